package evo

import "math/rand"

// tournament picks one population index by binary tournament: lower rank
// wins, ties go to the larger crowding distance, remaining ties to the first
// draw.
func tournament(rng *rand.Rand, rank []int, crowding []float64) int {
	i := rng.Intn(len(rank))
	j := rng.Intn(len(rank))
	if rank[i] != rank[j] {
		if rank[i] < rank[j] {
			return i
		}
		return j
	}
	if crowding[j] > crowding[i] {
		return j
	}
	return i
}
