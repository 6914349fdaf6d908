package dispatch

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"

	"enervolve/internal/catalog"
	"enervolve/internal/model"
)

// HoursPerYear is the annualization basis for operational totals.
const HoursPerYear = 8760.0

// Evaluator scores genotypes by simulating hourly merit-order dispatch over
// the representative period. It holds only immutable reference data, so one
// Evaluator is safely shared by any number of parallel evaluation tasks;
// Evaluate is a pure function of its argument.
type Evaluator struct {
	Catalog        *catalog.Adapter
	Buildings      []model.Building
	Hours          int
	UnmetTolerance float64

	scale float64
}

// Result attaches the feasibility classification to the objective vector.
// Infeasible designs stay in the population but are dominated by every
// feasible design during selection.
type Result struct {
	Objectives model.ObjectiveVector
	Feasible   bool
}

// NewEvaluator validates demand series lengths and fixes the representative
// period. The unmet tolerance is the total representative-period unmet
// demand above which a design is classified infeasible.
func NewEvaluator(cat *catalog.Adapter, buildings []model.Building, unmetTolerance float64) (*Evaluator, error) {
	if cat == nil {
		return nil, errors.New("catalog is required")
	}
	if unmetTolerance < 0 {
		return nil, fmt.Errorf("unmet tolerance must be >= 0: %v", unmetTolerance)
	}

	hours := 0
	for _, b := range buildings {
		for category, series := range b.Demand {
			if hours == 0 {
				hours = len(series)
				continue
			}
			if len(series) != hours {
				return nil, fmt.Errorf("building %s %s series has %d hours, want %d", b.ID, category, len(series), hours)
			}
		}
	}

	scale := 1.0
	if hours > 0 {
		scale = HoursPerYear / float64(hours)
	}
	return &Evaluator{
		Catalog:        cat,
		Buildings:      buildings,
		Hours:          hours,
		UnmetTolerance: unmetTolerance,
		scale:          scale,
	}, nil
}

// Evaluate computes the four-component objective vector of a design:
// annualized capital plus operating cost, GHG emissions, anthropogenic heat
// rejection, and unmet demand. Deterministic, no state across calls.
func (e *Evaluator) Evaluate(g model.Genotype) (Result, error) {
	var totals nodeTotals

	hubBuildings := make([]model.Building, 0)
	for i, b := range e.Buildings {
		if i < len(g.Connected) && g.Connected[i] {
			hubBuildings = append(hubBuildings, b)
		}
	}
	if len(hubBuildings) > 0 {
		hubLocs := make([]string, 0, len(hubBuildings))
		for _, b := range hubBuildings {
			hubLocs = append(hubLocs, b.ID)
		}
		nt, err := e.evaluateNode(g.Hub, hubBuildings, hubLocs)
		if err != nil {
			return Result{}, fmt.Errorf("evaluate hub: %w", err)
		}
		totals.add(nt)
	}

	portfolios := map[string]model.Portfolio{}
	for _, bp := range g.Standalone {
		portfolios[bp.BuildingID] = bp.Portfolio
	}
	for i, b := range e.Buildings {
		if i < len(g.Connected) && g.Connected[i] {
			continue
		}
		nt, err := e.evaluateNode(portfolios[b.ID], []model.Building{b}, []string{b.ID})
		if err != nil {
			return Result{}, fmt.Errorf("evaluate building %s: %w", b.ID, err)
		}
		totals.add(nt)
	}

	objectives := model.ObjectiveVector{
		AnnualizedCost: totals.capitalCost + totals.operatingCost*e.scale,
		Emissions:      totals.emissions * e.scale,
		HeatRejection:  totals.heatRejection * e.scale,
		UnmetDemand:    totals.unmet,
	}
	return Result{
		Objectives: objectives,
		Feasible:   totals.unmet <= e.UnmetTolerance,
	}, nil
}

type nodeTotals struct {
	capitalCost   float64
	operatingCost float64
	emissions     float64
	heatRejection float64
	unmet         float64
}

func (t *nodeTotals) add(o nodeTotals) {
	t.capitalCost += o.capitalCost
	t.operatingCost += o.operatingCost
	t.emissions += o.emissions
	t.heatRejection += o.heatRejection
	t.unmet += o.unmet
}

// unit is one installed technology prepared for dispatch: its capacity, the
// hourly availability factor series for site-constrained sources (nil means
// always fully available), and the categories it can serve.
type unit struct {
	tech         model.Technology
	capacity     float64
	availability []float64
	dispatched   []float64
}

// evaluateNode dispatches one hub or stand-alone building for every hour of
// the representative period. Site-constrained renewables run first at zero
// marginal cost, then dispatchables in ascending operating-cost order.
func (e *Evaluator) evaluateNode(p model.Portfolio, buildings []model.Building, locationIDs []string) (nodeTotals, error) {
	var totals nodeTotals

	demand := map[model.DemandCategory][]float64{}
	for _, category := range model.DemandCategories() {
		series := make([]float64, e.Hours)
		present := false
		for _, b := range buildings {
			src := b.Demand[category]
			for h := 0; h < len(src) && h < e.Hours; h++ {
				series[h] += src[h]
			}
			if len(src) > 0 {
				present = true
			}
		}
		if present {
			demand[category] = series
		}
	}

	units := make([]unit, 0, len(p.Installations))
	for _, inst := range p.Installations {
		if inst.Capacity <= 0 {
			continue
		}
		tech, err := e.Catalog.Technology(inst.TechnologyID)
		if err != nil {
			return nodeTotals{}, err
		}
		capital, err := e.Catalog.AnnualizedCost(inst.TechnologyID, inst.Capacity)
		if err != nil {
			return nodeTotals{}, err
		}
		totals.capitalCost += capital

		u := unit{tech: tech, capacity: inst.Capacity, dispatched: make([]float64, e.Hours)}
		if tech.SiteConstrained {
			availability, err := e.potentialFor(locationIDs, inst.TechnologyID)
			if err != nil {
				if !errors.Is(err, catalog.ErrNoPotentialData) {
					return nodeTotals{}, err
				}
				// No geospatial coverage here: zero available output,
				// never a crash.
				availability = make([]float64, e.Hours)
			}
			u.availability = availability
		}
		units = append(units, u)
	}
	sortDispatchOrder(units)

	for h := 0; h < e.Hours; h++ {
		for ui := range units {
			u := &units[ui]
			available := u.capacity
			if u.availability != nil {
				factor := 0.0
				if h < len(u.availability) {
					factor = u.availability[h]
				}
				available = u.capacity * factor
			}
			if available <= 0 {
				continue
			}
			for _, category := range model.DemandCategories() {
				series, ok := demand[category]
				if !ok || !u.tech.ServesCategory(category) {
					continue
				}
				if series[h] <= 0 {
					continue
				}
				served := series[h]
				if served > available {
					served = available
				}
				series[h] -= served
				available -= served
				u.dispatched[h] += served
				if available <= 0 {
					break
				}
			}
		}
		for _, category := range model.DemandCategories() {
			series, ok := demand[category]
			if ok && series[h] > 0 {
				totals.unmet += series[h]
			}
		}
	}

	for _, u := range units {
		output := floats.Sum(u.dispatched)
		if output <= 0 {
			continue
		}
		input := output
		if u.tech.Efficiency > 0 {
			input = output / u.tech.Efficiency
		}
		totals.operatingCost += input * u.tech.OperatingCostPerMWh

		ghg, err := e.Catalog.GHGFactor(u.tech.ID)
		if err != nil {
			return nodeTotals{}, err
		}
		totals.emissions += output * ghg

		rejected, err := e.Catalog.HeatRejection(u.tech.ID, u.dispatched)
		if err != nil {
			return nodeTotals{}, err
		}
		totals.heatRejection += floats.Sum(rejected)
	}

	return totals, nil
}

func (e *Evaluator) potentialFor(locationIDs []string, technologyID string) ([]float64, error) {
	if len(locationIDs) == 1 {
		return e.Catalog.GenerationPotential(locationIDs[0], technologyID)
	}
	return e.Catalog.AggregatePotential(locationIDs, technologyID)
}

// sortDispatchOrder fixes the merit order: site-constrained renewables,
// then other renewables, then dispatchables by ascending operating cost,
// ties broken by ID for determinism.
func sortDispatchOrder(units []unit) {
	group := func(u unit) int {
		switch {
		case u.tech.Kind == model.KindRenewable && u.tech.SiteConstrained:
			return 0
		case u.tech.Kind == model.KindRenewable:
			return 1
		default:
			return 2
		}
	}
	sort.SliceStable(units, func(i, j int) bool {
		gi, gj := group(units[i]), group(units[j])
		if gi != gj {
			return gi < gj
		}
		if units[i].tech.OperatingCostPerMWh != units[j].tech.OperatingCostPerMWh {
			return units[i].tech.OperatingCostPerMWh < units[j].tech.OperatingCostPerMWh
		}
		return units[i].tech.ID < units[j].tech.ID
	})
}
