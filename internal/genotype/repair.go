package genotype

import (
	"fmt"

	"enervolve/internal/model"
)

// Repair restores the structural invariants of a genotype after variation:
// topology bits on non-candidate buildings are cleared, capacities are
// clamped into the tighter of catalog and site bounds, the stand-alone list
// is rebuilt to exactly the unconnected buildings, and any hub or building
// that lost all coverage of a served demand category gets the lowest-cost
// feasible technology back. Repair is deterministic.
func (e *Encoding) Repair(g model.Genotype) (model.Genotype, error) {
	repaired := Clone(g)

	if len(repaired.Connected) != len(e.Buildings) {
		bits := make([]bool, len(e.Buildings))
		copy(bits, repaired.Connected)
		repaired.Connected = bits
	}
	for i, b := range e.Buildings {
		if !b.CandidateConnect {
			repaired.Connected[i] = false
		}
	}

	hubLocs := e.connectedIDs(repaired.Connected)
	if len(hubLocs) == 0 {
		repaired.Hub = model.Portfolio{}
	} else {
		hub, err := e.repairPortfolio(repaired.Hub, e.hubCategories(repaired.Connected), hubLocs, model.ScopeNetwork)
		if err != nil {
			return model.Genotype{}, fmt.Errorf("repair hub: %w", err)
		}
		repaired.Hub = hub
	}

	existing := map[string]model.Portfolio{}
	for _, bp := range repaired.Standalone {
		existing[bp.BuildingID] = bp.Portfolio
	}
	repaired.Standalone = repaired.Standalone[:0]
	for i, b := range e.Buildings {
		if repaired.Connected[i] {
			continue
		}
		portfolio, err := e.repairPortfolio(existing[b.ID], b.ServedCategories(), []string{b.ID}, model.ScopeBuilding)
		if err != nil {
			return model.Genotype{}, fmt.Errorf("repair building %s: %w", b.ID, err)
		}
		repaired.Standalone = append(repaired.Standalone, model.BuildingPortfolio{BuildingID: b.ID, Portfolio: portfolio})
	}
	sortStandalone(repaired.Standalone)
	return repaired, nil
}

func (e *Encoding) repairPortfolio(p model.Portfolio, categories []model.DemandCategory, locationIDs []string, scope model.TechnologyScope) (model.Portfolio, error) {
	selected := map[string]float64{}
	for _, inst := range p.Installations {
		tech, err := e.Catalog.Technology(inst.TechnologyID)
		if err != nil {
			// Dangling selections from crossover against a stale catalog
			// are dropped rather than surfaced.
			continue
		}
		if !scopeCompatible(tech.Scope, scope) {
			continue
		}
		min, max, err := e.boundsFor(inst.TechnologyID, locationIDs)
		if err != nil {
			return model.Portfolio{}, err
		}
		capacity := inst.Capacity
		if capacity < min {
			capacity = min
		}
		if capacity > max {
			capacity = max
		}
		selected[inst.TechnologyID] = capacity
	}

	for _, category := range categories {
		if categoryCovered(e, selected, category) {
			continue
		}
		fallbackID, capacity, ok, err := e.cheapestFeasible(category, scope, locationIDs)
		if err != nil {
			return model.Portfolio{}, err
		}
		if !ok {
			// Nothing installable serves this category; the evaluator
			// will charge the unmet demand.
			continue
		}
		selected[fallbackID] = capacity
	}

	return portfolioFromMap(selected), nil
}

// cheapestFeasible picks the lowest-cost installable technology serving a
// category at the given locations, sized to the category's peak aggregate
// demand clamped into bounds. Zero-ceiling technologies never qualify.
func (e *Encoding) cheapestFeasible(category model.DemandCategory, scope model.TechnologyScope, locationIDs []string) (string, float64, bool, error) {
	peak := e.peakDemand(category, locationIDs)
	reference := peak
	if reference <= 0 {
		reference = 1
	}

	bestID := ""
	bestCapacity := 0.0
	bestCost := 0.0
	for _, tech := range e.Catalog.Technologies() {
		if !tech.ServesCategory(category) || !scopeCompatible(tech.Scope, scope) {
			continue
		}
		min, max, err := e.boundsFor(tech.ID, locationIDs)
		if err != nil {
			return "", 0, false, err
		}
		if max <= 0 {
			continue
		}
		capacity := peak
		if capacity < min {
			capacity = min
		}
		if capacity > max {
			capacity = max
		}
		cost, err := e.Catalog.AnnualizedCost(tech.ID, reference)
		if err != nil {
			return "", 0, false, err
		}
		cost += tech.OperatingCostPerMWh * reference
		if bestID == "" || cost < bestCost {
			bestID = tech.ID
			bestCapacity = capacity
			bestCost = cost
		}
	}
	return bestID, bestCapacity, bestID != "", nil
}

// categoryCovered reports whether any selected technology with positive
// capacity serves the category; a selection clamped to zero is no coverage.
func categoryCovered(e *Encoding, selected map[string]float64, category model.DemandCategory) bool {
	for id, capacity := range selected {
		if capacity <= 0 {
			continue
		}
		tech, err := e.Catalog.Technology(id)
		if err != nil {
			continue
		}
		if tech.ServesCategory(category) {
			return true
		}
	}
	return false
}
