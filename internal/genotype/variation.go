package genotype

import (
	"errors"
	"math/rand"
	"sort"

	"enervolve/internal/model"
)

// Crossover recombines two parents: uniform exchange of topology bits,
// per-technology exchange of the hub and stand-alone selections, and
// arithmetic blending of capacities shared by both parents (alpha drawn
// per gene). Both children are repaired before being returned.
func (e *Encoding) Crossover(rng *rand.Rand, a, b model.Genotype) (model.Genotype, model.Genotype, error) {
	if rng == nil {
		return model.Genotype{}, model.Genotype{}, errors.New("random source is required")
	}

	child1 := Clone(a)
	child2 := Clone(b)

	bits := len(child1.Connected)
	if len(child2.Connected) < bits {
		bits = len(child2.Connected)
	}
	for i := 0; i < bits; i++ {
		if rng.Float64() < 0.5 {
			child1.Connected[i], child2.Connected[i] = child2.Connected[i], child1.Connected[i]
		}
	}

	child1.Hub, child2.Hub = e.crossPortfolios(rng, a.Hub, b.Hub)

	byID := map[string]model.Portfolio{}
	for _, bp := range b.Standalone {
		byID[bp.BuildingID] = bp.Portfolio
	}
	for i, bp := range child1.Standalone {
		other, ok := byID[bp.BuildingID]
		if !ok {
			continue
		}
		p1, p2 := e.crossPortfolios(rng, bp.Portfolio, other)
		child1.Standalone[i].Portfolio = p1
		for j := range child2.Standalone {
			if child2.Standalone[j].BuildingID == bp.BuildingID {
				child2.Standalone[j].Portfolio = p2
				break
			}
		}
	}

	repaired1, err := e.Repair(child1)
	if err != nil {
		return model.Genotype{}, model.Genotype{}, err
	}
	repaired2, err := e.Repair(child2)
	if err != nil {
		return model.Genotype{}, model.Genotype{}, err
	}
	return repaired1, repaired2, nil
}

// crossPortfolios exchanges technology presence per gene and blends shared
// capacities arithmetically.
func (e *Encoding) crossPortfolios(rng *rand.Rand, a, b model.Portfolio) (model.Portfolio, model.Portfolio) {
	capA := map[string]float64{}
	capB := map[string]float64{}
	for _, inst := range a.Installations {
		capA[inst.TechnologyID] = inst.Capacity
	}
	for _, inst := range b.Installations {
		capB[inst.TechnologyID] = inst.Capacity
	}

	out1 := map[string]float64{}
	out2 := map[string]float64{}
	for _, tech := range e.Catalog.Technologies() {
		va, inA := capA[tech.ID]
		vb, inB := capB[tech.ID]
		switch {
		case inA && inB:
			alpha := rng.Float64()
			out1[tech.ID] = alpha*va + (1-alpha)*vb
			alpha = rng.Float64()
			out2[tech.ID] = alpha*vb + (1-alpha)*va
		case inA:
			if rng.Float64() < 0.5 {
				out2[tech.ID] = va
			} else {
				out1[tech.ID] = va
			}
		case inB:
			if rng.Float64() < 0.5 {
				out1[tech.ID] = vb
			} else {
				out2[tech.ID] = vb
			}
		}
	}
	return portfolioFromMap(out1), portfolioFromMap(out2)
}

// Mutate flips topology bits with the given rate, flips technology presence
// with the encoding's smaller flip probability, and applies gaussian noise
// scaled to each capacity's bound range, then repairs.
func (e *Encoding) Mutate(rng *rand.Rand, g model.Genotype, rate float64) (model.Genotype, error) {
	if rng == nil {
		return model.Genotype{}, errors.New("random source is required")
	}
	if rate < 0 || rate > 1 {
		return model.Genotype{}, errors.New("mutation rate must be in [0, 1]")
	}

	mutated := Clone(g)
	for i, b := range e.Buildings {
		if i >= len(mutated.Connected) {
			break
		}
		if b.CandidateConnect && rng.Float64() < rate {
			mutated.Connected[i] = !mutated.Connected[i]
		}
	}

	hubLocs := e.connectedIDs(mutated.Connected)
	if len(hubLocs) > 0 {
		hub, err := e.mutatePortfolio(rng, mutated.Hub, e.hubCategories(mutated.Connected), hubLocs, model.ScopeNetwork)
		if err != nil {
			return model.Genotype{}, err
		}
		mutated.Hub = hub
	}
	for i, bp := range mutated.Standalone {
		b, ok := e.buildingByID(bp.BuildingID)
		if !ok {
			continue
		}
		portfolio, err := e.mutatePortfolio(rng, bp.Portfolio, b.ServedCategories(), []string{b.ID}, model.ScopeBuilding)
		if err != nil {
			return model.Genotype{}, err
		}
		mutated.Standalone[i].Portfolio = portfolio
	}

	return e.Repair(mutated)
}

func (e *Encoding) mutatePortfolio(rng *rand.Rand, p model.Portfolio, categories []model.DemandCategory, locationIDs []string, scope model.TechnologyScope) (model.Portfolio, error) {
	selected := map[string]float64{}
	for _, inst := range p.Installations {
		selected[inst.TechnologyID] = inst.Capacity
	}

	for _, tech := range e.Catalog.Technologies() {
		if !scopeCompatible(tech.Scope, scope) || !servesAny(tech, categories) {
			continue
		}
		if rng.Float64() >= e.TechFlipProbability {
			continue
		}
		if _, present := selected[tech.ID]; present {
			delete(selected, tech.ID)
			continue
		}
		capacity, err := e.sampleCapacity(rng, tech.ID, locationIDs)
		if err != nil {
			return model.Portfolio{}, err
		}
		selected[tech.ID] = capacity
	}

	ids := make([]string, 0, len(selected))
	for id := range selected {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		min, max, err := e.boundsFor(id, locationIDs)
		if err != nil {
			return model.Portfolio{}, err
		}
		span := max - min
		if span <= 0 {
			continue
		}
		selected[id] += rng.NormFloat64() * 0.1 * span
	}

	return portfolioFromMap(selected), nil
}

func (e *Encoding) buildingByID(id string) (model.Building, bool) {
	for _, b := range e.Buildings {
		if b.ID == id {
			return b, true
		}
	}
	return model.Building{}, false
}
