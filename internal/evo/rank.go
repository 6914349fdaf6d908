package evo

import (
	"math"
	"sort"
)

// NonDominatedSort partitions the designs into Pareto fronts and returns
// them as index lists, best front first. Within a front indices keep their
// input order, so the partition is deterministic.
func NonDominatedSort(designs []ScoredDesign) [][]int {
	n := len(designs)
	if n == 0 {
		return nil
	}

	dominates := make([][]int, n)
	dominatedCount := make([]int, n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			switch {
			case Dominates(designs[i], designs[j]):
				dominates[i] = append(dominates[i], j)
				dominatedCount[j]++
			case Dominates(designs[j], designs[i]):
				dominates[j] = append(dominates[j], i)
				dominatedCount[i]++
			}
		}
	}

	current := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if dominatedCount[i] == 0 {
			current = append(current, i)
		}
	}

	var fronts [][]int
	for len(current) > 0 {
		fronts = append(fronts, current)
		next := make([]int, 0)
		for _, i := range current {
			for _, j := range dominates[i] {
				dominatedCount[j]--
				if dominatedCount[j] == 0 {
					next = append(next, j)
				}
			}
		}
		sort.Ints(next)
		current = next
	}
	return fronts
}

// CrowdingDistances computes the crowding distance of each member of one
// front, indexed parallel to the front slice. Boundary designs per objective
// get +Inf so selection always keeps the extremes.
func CrowdingDistances(designs []ScoredDesign, front []int) []float64 {
	out := make([]float64, len(front))
	if len(front) <= 2 {
		for i := range out {
			out[i] = math.Inf(1)
		}
		return out
	}

	order := make([]int, len(front))
	for objective := 0; objective < 4; objective++ {
		for i := range order {
			order[i] = i
		}
		value := func(k int) float64 {
			return designs[front[k]].Objectives.Values()[objective]
		}
		sort.SliceStable(order, func(a, b int) bool {
			return value(order[a]) < value(order[b])
		})

		out[order[0]] = math.Inf(1)
		out[order[len(order)-1]] = math.Inf(1)
		span := value(order[len(order)-1]) - value(order[0])
		if span <= 0 {
			continue
		}
		for i := 1; i < len(order)-1; i++ {
			gap := value(order[i+1]) - value(order[i-1])
			out[order[i]] += gap / span
		}
	}
	return out
}
