package evo

import (
	"enervolve/internal/model"
)

// ScoredDesign pairs a genotype with its evaluation for the duration of a
// run.
type ScoredDesign struct {
	Genotype   model.Genotype
	Objectives model.ObjectiveVector
	Feasible   bool
}

// Dominates implements the selection ordering over scored designs:
// a feasible design dominates every infeasible one; two infeasible designs
// compare by total unmet demand; two feasible designs compare by Pareto
// dominance over all four objectives (at least as good everywhere, strictly
// better somewhere).
func Dominates(a, b ScoredDesign) bool {
	if a.Feasible != b.Feasible {
		return a.Feasible
	}
	if !a.Feasible {
		return a.Objectives.UnmetDemand < b.Objectives.UnmetDemand
	}

	av, bv := a.Objectives.Values(), b.Objectives.Values()
	strictly := false
	for i := range av {
		if av[i] > bv[i] {
			return false
		}
		if av[i] < bv[i] {
			strictly = true
		}
	}
	return strictly
}
