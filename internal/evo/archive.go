package evo

import "sort"

// RebuildArchive recomputes the global non-dominated set from the previous
// archive plus a batch of newly scored designs. Only feasible designs enter
// the archive; an existing entry is removed exactly when a newer design
// dominates it, so archive quality never regresses across generations.
// Designs with identical objective vectors are collapsed to the earliest
// seen.
func RebuildArchive(previous []ScoredDesign, scored []ScoredDesign) []ScoredDesign {
	pool := make([]ScoredDesign, 0, len(previous)+len(scored))
	pool = append(pool, previous...)
	for _, d := range scored {
		if d.Feasible {
			pool = append(pool, d)
		}
	}

	kept := make([]ScoredDesign, 0, len(pool))
	for i, candidate := range pool {
		dominated := false
		for j, other := range pool {
			if i == j {
				continue
			}
			if Dominates(other, candidate) {
				dominated = true
				break
			}
			if j < i && other.Objectives == candidate.Objectives {
				dominated = true
				break
			}
		}
		if !dominated {
			kept = append(kept, candidate)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		vi, vj := kept[i].Objectives.Values(), kept[j].Objectives.Values()
		for k := range vi {
			if vi[k] != vj[k] {
				return vi[k] < vj[k]
			}
		}
		return kept[i].Genotype.ID < kept[j].Genotype.ID
	})
	return kept
}
