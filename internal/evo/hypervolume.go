package evo

import "sort"

// Hypervolume measures the objective-space volume dominated by a point set
// relative to a reference point, all objectives minimized. Points beyond the
// reference in any dimension contribute nothing. Computed by recursive
// slicing along the first objective; exact, and cheap at archive sizes.
func Hypervolume(points [][]float64, ref []float64) float64 {
	if len(points) == 0 || len(ref) == 0 {
		return 0
	}
	clipped := make([][]float64, 0, len(points))
	for _, p := range points {
		if len(p) != len(ref) {
			continue
		}
		q := make([]float64, len(p))
		for i := range p {
			if p[i] > ref[i] {
				q[i] = ref[i]
			} else {
				q[i] = p[i]
			}
		}
		clipped = append(clipped, q)
	}
	return sliceVolume(clipped, ref)
}

func sliceVolume(points [][]float64, ref []float64) float64 {
	if len(points) == 0 {
		return 0
	}
	if len(ref) == 1 {
		best := points[0][0]
		for _, p := range points[1:] {
			if p[0] < best {
				best = p[0]
			}
		}
		return ref[0] - best
	}

	ordered := make([][]float64, len(points))
	copy(ordered, points)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i][0] < ordered[j][0]
	})

	total := 0.0
	for i := range ordered {
		upper := ref[0]
		if i+1 < len(ordered) {
			upper = ordered[i+1][0]
		}
		width := upper - ordered[i][0]
		if width <= 0 {
			continue
		}
		proj := make([][]float64, 0, i+1)
		for j := 0; j <= i; j++ {
			proj = append(proj, ordered[j][1:])
		}
		total += width * sliceVolume(proj, ref[1:])
	}
	return total
}
