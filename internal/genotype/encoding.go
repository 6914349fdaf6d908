package genotype

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"enervolve/internal/catalog"
	"enervolve/internal/model"
)

// Encoding produces syntactically valid genotypes over a fixed building set
// and catalog, and repairs invalid ones after variation. The building slice
// order defines the topology bitset layout and never changes during a run.
type Encoding struct {
	Catalog   *catalog.Adapter
	Buildings []model.Building

	// ConnectionProbability is the per-building inclusion probability used
	// by Random. TechFlipProbability is the per-flag mutation probability
	// for technology presence, smaller than the topology bit rate.
	ConnectionProbability float64
	TechFlipProbability   float64

	// TechAdoptProbability is the chance Random includes a compatible
	// technology beyond the minimum needed for coverage.
	TechAdoptProbability float64
}

// NewEncoding validates the encoding parameters.
func NewEncoding(cat *catalog.Adapter, buildings []model.Building, connectionProbability, techFlipProbability float64) (*Encoding, error) {
	if cat == nil {
		return nil, errors.New("catalog is required")
	}
	if connectionProbability < 0 || connectionProbability > 1 {
		return nil, fmt.Errorf("connection probability must be in [0, 1]: %v", connectionProbability)
	}
	if techFlipProbability < 0 || techFlipProbability > 1 {
		return nil, fmt.Errorf("tech flip probability must be in [0, 1]: %v", techFlipProbability)
	}
	return &Encoding{
		Catalog:               cat,
		Buildings:             buildings,
		ConnectionProbability: connectionProbability,
		TechFlipProbability:   techFlipProbability,
		TechAdoptProbability:  0.25,
	}, nil
}

// Random samples one syntactically valid genotype: an independent coin per
// candidate building for network membership, then a covering technology
// subset with uniform capacities for the hub and every stand-alone building.
func (e *Encoding) Random(rng *rand.Rand) (model.Genotype, error) {
	if rng == nil {
		return model.Genotype{}, errors.New("random source is required")
	}

	g := model.Genotype{
		VersionedRecord: model.VersionedRecord{SchemaVersion: 1, CodecVersion: 1},
		Connected:       make([]bool, len(e.Buildings)),
	}
	for i, b := range e.Buildings {
		if b.CandidateConnect && rng.Float64() < e.ConnectionProbability {
			g.Connected[i] = true
		}
	}

	hubLocs := e.connectedIDs(g.Connected)
	if len(hubLocs) > 0 {
		portfolio, err := e.samplePortfolio(rng, e.hubCategories(g.Connected), hubLocs, model.ScopeNetwork)
		if err != nil {
			return model.Genotype{}, err
		}
		g.Hub = portfolio
	}

	for i, b := range e.Buildings {
		if g.Connected[i] {
			continue
		}
		portfolio, err := e.samplePortfolio(rng, b.ServedCategories(), []string{b.ID}, model.ScopeBuilding)
		if err != nil {
			return model.Genotype{}, err
		}
		g.Standalone = append(g.Standalone, model.BuildingPortfolio{BuildingID: b.ID, Portfolio: portfolio})
	}
	sortStandalone(g.Standalone)
	return g, nil
}

// samplePortfolio picks a non-empty technology subset covering every given
// demand category, plus optional extras, with capacities drawn uniformly
// inside the location-tightened bounds.
func (e *Encoding) samplePortfolio(rng *rand.Rand, categories []model.DemandCategory, locationIDs []string, scope model.TechnologyScope) (model.Portfolio, error) {
	selected := map[string]float64{}

	for _, category := range categories {
		serving, err := e.installableServing(category, scope, locationIDs)
		if err != nil {
			return model.Portfolio{}, err
		}
		if len(serving) == 0 {
			continue
		}
		pick := serving[rng.Intn(len(serving))]
		if _, ok := selected[pick.ID]; !ok {
			capacity, err := e.sampleCapacity(rng, pick.ID, locationIDs)
			if err != nil {
				return model.Portfolio{}, err
			}
			selected[pick.ID] = capacity
		}
	}

	for _, tech := range e.Catalog.Technologies() {
		if _, ok := selected[tech.ID]; ok {
			continue
		}
		if !scopeCompatible(tech.Scope, scope) {
			continue
		}
		if !servesAny(tech, categories) {
			continue
		}
		if rng.Float64() >= e.TechAdoptProbability {
			continue
		}
		capacity, err := e.sampleCapacity(rng, tech.ID, locationIDs)
		if err != nil {
			return model.Portfolio{}, err
		}
		selected[tech.ID] = capacity
	}

	return portfolioFromMap(selected), nil
}

func (e *Encoding) sampleCapacity(rng *rand.Rand, technologyID string, locationIDs []string) (float64, error) {
	min, max, err := e.boundsFor(technologyID, locationIDs)
	if err != nil {
		return 0, err
	}
	if max <= min {
		return min, nil
	}
	return min + rng.Float64()*(max-min), nil
}

func (e *Encoding) boundsFor(technologyID string, locationIDs []string) (float64, float64, error) {
	if len(locationIDs) == 1 {
		return e.Catalog.CapacityBounds(locationIDs[0], technologyID)
	}
	return e.Catalog.AggregateCapacityBounds(locationIDs, technologyID)
}

// installableServing lists the technologies that serve a category, fit the
// scope, and have a positive capacity ceiling at the given locations.
func (e *Encoding) installableServing(category model.DemandCategory, scope model.TechnologyScope, locationIDs []string) ([]model.Technology, error) {
	out := make([]model.Technology, 0)
	for _, tech := range e.Catalog.Technologies() {
		if !tech.ServesCategory(category) || !scopeCompatible(tech.Scope, scope) {
			continue
		}
		_, max, err := e.boundsFor(tech.ID, locationIDs)
		if err != nil {
			return nil, err
		}
		if max <= 0 {
			continue
		}
		out = append(out, tech)
	}
	return out, nil
}

// connectedIDs returns the building IDs currently assigned to the hub.
func (e *Encoding) connectedIDs(connected []bool) []string {
	out := make([]string, 0)
	for i, b := range e.Buildings {
		if i < len(connected) && connected[i] {
			out = append(out, b.ID)
		}
	}
	return out
}

// hubCategories is the union of demand categories across connected
// buildings, in canonical order.
func (e *Encoding) hubCategories(connected []bool) []model.DemandCategory {
	present := map[model.DemandCategory]bool{}
	for i, b := range e.Buildings {
		if i >= len(connected) || !connected[i] {
			continue
		}
		for _, category := range b.ServedCategories() {
			present[category] = true
		}
	}
	out := make([]model.DemandCategory, 0, len(present))
	for _, category := range model.DemandCategories() {
		if present[category] {
			out = append(out, category)
		}
	}
	return out
}

// peakDemand is the maximum hourly aggregate demand of one category over a
// building subset, used by repair to size restored coverage.
func (e *Encoding) peakDemand(category model.DemandCategory, buildingIDs []string) float64 {
	ids := map[string]bool{}
	for _, id := range buildingIDs {
		ids[id] = true
	}
	var hourly []float64
	for _, b := range e.Buildings {
		if !ids[b.ID] {
			continue
		}
		series := b.Demand[category]
		if len(series) > len(hourly) {
			grown := make([]float64, len(series))
			copy(grown, hourly)
			hourly = grown
		}
		for h, v := range series {
			hourly[h] += v
		}
	}
	peak := 0.0
	for _, v := range hourly {
		if v > peak {
			peak = v
		}
	}
	return peak
}

func scopeCompatible(techScope, slot model.TechnologyScope) bool {
	return techScope == model.ScopeAny || techScope == slot
}

func servesAny(tech model.Technology, categories []model.DemandCategory) bool {
	for _, category := range categories {
		if tech.ServesCategory(category) {
			return true
		}
	}
	return false
}

func portfolioFromMap(selected map[string]float64) model.Portfolio {
	ids := make([]string, 0, len(selected))
	for id := range selected {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	installations := make([]model.Installation, 0, len(ids))
	for _, id := range ids {
		installations = append(installations, model.Installation{TechnologyID: id, Capacity: selected[id]})
	}
	return model.Portfolio{Installations: installations}
}

func sortStandalone(standalone []model.BuildingPortfolio) {
	sort.Slice(standalone, func(i, j int) bool {
		return standalone[i].BuildingID < standalone[j].BuildingID
	})
}
