package catalog

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"enervolve/internal/model"
)

var (
	ErrUnknownTechnology       = errors.New("unknown technology")
	ErrNoPotentialData         = errors.New("no site potential data")
	ErrIncompleteReferenceData = errors.New("incomplete reference data")
)

type potentialKey struct {
	location   string
	technology string
}

// Adapter wraps the technology catalog and per-site potential tables into
// the normalized lookup used during evaluation. All data is read-only after
// construction, so one Adapter may be shared by any number of parallel
// evaluation tasks.
type Adapter struct {
	technologies map[string]model.Technology
	ordered      []string
	potentials   map[potentialKey]model.SitePotential
	discountRate float64
}

// New validates the catalog entries and builds the adapter. The discount
// rate is the fixed annualization rate for all capital costs.
func New(technologies []model.Technology, potentials []model.SitePotential, discountRate float64) (*Adapter, error) {
	if discountRate < 0 || discountRate >= 1 {
		return nil, fmt.Errorf("discount rate must be in [0, 1): %v", discountRate)
	}

	byID := make(map[string]model.Technology, len(technologies))
	ordered := make([]string, 0, len(technologies))
	for i, tech := range technologies {
		if tech.ID == "" {
			return nil, fmt.Errorf("%w: technology at index %d has no id", ErrIncompleteReferenceData, i)
		}
		if _, dup := byID[tech.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate technology id %s", ErrIncompleteReferenceData, tech.ID)
		}
		switch tech.Kind {
		case model.KindRenewable, model.KindConversion, model.KindStorage:
		default:
			return nil, fmt.Errorf("%w: technology %s has undefined kind %q", ErrIncompleteReferenceData, tech.ID, tech.Kind)
		}
		switch tech.Scope {
		case model.ScopeNetwork, model.ScopeBuilding, model.ScopeAny:
		default:
			return nil, fmt.Errorf("%w: technology %s has undefined scope %q", ErrIncompleteReferenceData, tech.ID, tech.Scope)
		}
		if len(tech.Serves) == 0 {
			return nil, fmt.Errorf("%w: technology %s serves no demand category", ErrIncompleteReferenceData, tech.ID)
		}
		if tech.MinCapacity < 0 || tech.MaxCapacity < tech.MinCapacity {
			return nil, fmt.Errorf("%w: technology %s has invalid capacity bounds [%v, %v]", ErrIncompleteReferenceData, tech.ID, tech.MinCapacity, tech.MaxCapacity)
		}
		if tech.LifetimeYears <= 0 && (tech.CapitalCostPerUnit > 0 || tech.FixedCapitalCost > 0) {
			return nil, fmt.Errorf("%w: technology %s has capital cost but no lifetime", ErrIncompleteReferenceData, tech.ID)
		}
		byID[tech.ID] = tech
		ordered = append(ordered, tech.ID)
	}
	sort.Strings(ordered)

	byKey := make(map[potentialKey]model.SitePotential, len(potentials))
	for _, p := range potentials {
		if _, ok := byID[p.TechnologyID]; !ok {
			return nil, fmt.Errorf("%w: potential entry references %s", ErrUnknownTechnology, p.TechnologyID)
		}
		if p.MaxCapacity < 0 {
			return nil, fmt.Errorf("%w: potential for %s at %s has negative max capacity", ErrIncompleteReferenceData, p.TechnologyID, p.LocationID)
		}
		byKey[potentialKey{location: p.LocationID, technology: p.TechnologyID}] = p
	}

	return &Adapter{
		technologies: byID,
		ordered:      ordered,
		potentials:   byKey,
		discountRate: discountRate,
	}, nil
}

// Technology resolves one catalog entry.
func (a *Adapter) Technology(id string) (model.Technology, error) {
	tech, ok := a.technologies[id]
	if !ok {
		return model.Technology{}, fmt.Errorf("%w: %s", ErrUnknownTechnology, id)
	}
	return tech, nil
}

// Technologies returns all catalog entries sorted by ID.
func (a *Adapter) Technologies() []model.Technology {
	out := make([]model.Technology, 0, len(a.ordered))
	for _, id := range a.ordered {
		out = append(out, a.technologies[id])
	}
	return out
}

// DiscountRate returns the configured annualization rate.
func (a *Adapter) DiscountRate() float64 {
	return a.discountRate
}

// CapacityBounds returns the installable capacity range for a technology at
// one location: the tighter of the catalog bound and the site potential
// ceiling. A site-constrained technology with no potential entry yields
// (0, 0) rather than an error, so exploration continues with incomplete
// geospatial coverage.
func (a *Adapter) CapacityBounds(locationID, technologyID string) (float64, float64, error) {
	tech, err := a.Technology(technologyID)
	if err != nil {
		return 0, 0, err
	}
	min, max := tech.MinCapacity, tech.MaxCapacity
	if tech.SiteConstrained {
		p, ok := a.potentials[potentialKey{location: locationID, technology: technologyID}]
		if !ok {
			return 0, 0, nil
		}
		if p.MaxCapacity < max {
			max = p.MaxCapacity
		}
		if min > max {
			min = max
		}
	}
	return min, max, nil
}

// AggregateCapacityBounds returns the installable range for a technology
// across a set of locations, as used by a shared hub: per-location ceilings
// add, the catalog bound still caps the total.
func (a *Adapter) AggregateCapacityBounds(locationIDs []string, technologyID string) (float64, float64, error) {
	tech, err := a.Technology(technologyID)
	if err != nil {
		return 0, 0, err
	}
	min, max := tech.MinCapacity, tech.MaxCapacity
	if tech.SiteConstrained {
		total := 0.0
		found := false
		for _, loc := range locationIDs {
			p, ok := a.potentials[potentialKey{location: loc, technology: technologyID}]
			if !ok {
				continue
			}
			found = true
			total += p.MaxCapacity
		}
		if !found {
			return 0, 0, nil
		}
		if total < max {
			max = total
		}
		if min > max {
			min = max
		}
	}
	return min, max, nil
}

// GenerationPotential returns the hourly per-unit availability series of a
// site-constrained technology at one location. Non-constrained technologies
// return nil with no error. A missing entry for a site-constrained
// technology returns ErrNoPotentialData; callers treat that as zero
// available capacity.
func (a *Adapter) GenerationPotential(locationID, technologyID string) ([]float64, error) {
	tech, err := a.Technology(technologyID)
	if err != nil {
		return nil, err
	}
	if !tech.SiteConstrained {
		return nil, nil
	}
	p, ok := a.potentials[potentialKey{location: locationID, technology: technologyID}]
	if !ok {
		return nil, fmt.Errorf("%w: %s at %s", ErrNoPotentialData, technologyID, locationID)
	}
	return p.HourlyPotential, nil
}

// AggregatePotential sums the hourly availability of a site-constrained
// technology across locations, weighted by each location's share of the
// summed ceiling. Missing entries are skipped; if no location has data the
// result is ErrNoPotentialData.
func (a *Adapter) AggregatePotential(locationIDs []string, technologyID string) ([]float64, error) {
	tech, err := a.Technology(technologyID)
	if err != nil {
		return nil, err
	}
	if !tech.SiteConstrained {
		return nil, nil
	}

	var combined []float64
	var totalCap float64
	for _, loc := range locationIDs {
		p, ok := a.potentials[potentialKey{location: loc, technology: technologyID}]
		if !ok {
			continue
		}
		if combined == nil {
			combined = make([]float64, len(p.HourlyPotential))
		}
		for h := range p.HourlyPotential {
			if h >= len(combined) {
				break
			}
			combined[h] += p.HourlyPotential[h] * p.MaxCapacity
		}
		totalCap += p.MaxCapacity
	}
	if combined == nil {
		return nil, fmt.Errorf("%w: %s across %d locations", ErrNoPotentialData, technologyID, len(locationIDs))
	}
	if totalCap > 0 {
		for h := range combined {
			combined[h] /= totalCap
		}
	}
	return combined, nil
}

// AnnualizedCost converts the capital cost of an installation into an
// annual payment using the capital recovery factor at the configured
// discount rate. Zero capacity costs nothing.
func (a *Adapter) AnnualizedCost(technologyID string, capacity float64) (float64, error) {
	tech, err := a.Technology(technologyID)
	if err != nil {
		return 0, err
	}
	if capacity <= 0 {
		return 0, nil
	}
	capital := tech.FixedCapitalCost + tech.CapitalCostPerUnit*capacity
	if capital <= 0 {
		return 0, nil
	}
	n := float64(tech.LifetimeYears)
	if a.discountRate == 0 {
		return capital / n, nil
	}
	growth := math.Pow(1+a.discountRate, n)
	crf := a.discountRate * growth / (growth - 1)
	return capital * crf, nil
}

// GHGFactor returns the per-unit-output emission factor of a technology.
// Renewables carry zero direct emissions regardless of the catalog value.
func (a *Adapter) GHGFactor(technologyID string) (float64, error) {
	tech, err := a.Technology(technologyID)
	if err != nil {
		return 0, err
	}
	if tech.Kind == model.KindRenewable {
		return 0, nil
	}
	return tech.GHGFactor, nil
}

// HeatRejection maps an hourly dispatched-load series to the hourly
// anthropogenic heat rejected by that technology: waste heat from
// conversion, not the served demand itself.
func (a *Adapter) HeatRejection(technologyID string, dispatched []float64) ([]float64, error) {
	tech, err := a.Technology(technologyID)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(dispatched))
	for h, load := range dispatched {
		out[h] = load * tech.HeatRejectionFactor
	}
	return out, nil
}

