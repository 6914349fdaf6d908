package evo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"

	"enervolve/internal/dispatch"
	"enervolve/internal/genotype"
	"enervolve/internal/model"
)

// ErrInvalidConfiguration wraps every search configuration rejection.
var ErrInvalidConfiguration = errors.New("invalid search configuration")

// Config fixes one search run. A zero StagnationWindow disables early
// termination; Workers defaults to 1.
type Config struct {
	Encoding  *genotype.Encoding
	Evaluator *dispatch.Evaluator

	PopulationSize       int
	Generations          int
	CrossoverProbability float64
	MutationRate         float64
	StagnationWindow     int
	Workers              int
	Seed                 int64
}

// RunResult carries the outcome of one search run back to the caller: the
// global non-dominated archive, the per-generation diagnostics trail, and
// the final population for inspection.
type RunResult struct {
	Archive         []ScoredDesign
	Diagnostics     []model.GenerationDiagnostics
	FinalPopulation []ScoredDesign
	Generations     int
	Evaluations     int
	Hypervolume     float64
}

// Search drives the elitist multi-objective loop: parallel evaluation,
// non-dominated sorting, binary tournament selection, crossover and
// mutation through the encoding, and wholesale archive rebuilds. All
// randomness flows through the seeded source, so identical configurations
// reproduce identical runs.
type Search struct {
	cfg Config
	rng *rand.Rand
}

func NewSearch(cfg Config) (*Search, error) {
	if cfg.Encoding == nil {
		return nil, fmt.Errorf("%w: encoding is required", ErrInvalidConfiguration)
	}
	if cfg.Evaluator == nil {
		return nil, fmt.Errorf("%w: evaluator is required", ErrInvalidConfiguration)
	}
	if cfg.PopulationSize < 2 {
		return nil, fmt.Errorf("%w: population size must be >= 2", ErrInvalidConfiguration)
	}
	if cfg.Generations <= 0 {
		return nil, fmt.Errorf("%w: generations must be > 0", ErrInvalidConfiguration)
	}
	if cfg.CrossoverProbability < 0 || cfg.CrossoverProbability > 1 {
		return nil, fmt.Errorf("%w: crossover probability must be in [0, 1]", ErrInvalidConfiguration)
	}
	if cfg.MutationRate < 0 || cfg.MutationRate > 1 {
		return nil, fmt.Errorf("%w: mutation rate must be in [0, 1]", ErrInvalidConfiguration)
	}
	if cfg.StagnationWindow < 0 {
		return nil, fmt.Errorf("%w: stagnation window must be >= 0", ErrInvalidConfiguration)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Search{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// Run executes the search until the generation budget is exhausted, the
// archive stagnates for a full window, or the context is cancelled.
// Cancellation is cooperative: it is checked at the top of each generation,
// and the archive built so far is still returned.
func (s *Search) Run(ctx context.Context) (RunResult, error) {
	var result RunResult

	if len(s.cfg.Encoding.Buildings) == 0 {
		// Nothing to design for; score the empty design and stop.
		trivial, err := s.cfg.Encoding.Random(s.rng)
		if err != nil {
			return RunResult{}, err
		}
		trivial.ID = designID(0, 0)
		scored, err := s.evaluatePopulation([]model.Genotype{trivial})
		if err != nil {
			return RunResult{}, err
		}
		result.Archive = RebuildArchive(nil, scored)
		result.FinalPopulation = scored
		result.Evaluations = len(scored)
		return result, nil
	}

	initial := make([]model.Genotype, s.cfg.PopulationSize)
	for i := range initial {
		g, err := s.cfg.Encoding.Random(s.rng)
		if err != nil {
			return RunResult{}, fmt.Errorf("seed population: %w", err)
		}
		g.ID = designID(0, i)
		initial[i] = g
	}
	population, err := s.evaluatePopulation(initial)
	if err != nil {
		return RunResult{}, err
	}
	result.Evaluations += len(population)

	archive := RebuildArchive(nil, population)
	ref := referencePoint(population)
	hv := archiveHypervolume(archive, ref)
	result.Diagnostics = append(result.Diagnostics, diagnostics(0, result.Evaluations, archive, population, hv))

	stale := 0
	lastHV, lastSize := hv, len(archive)

	generation := 0
	for gen := 1; gen <= s.cfg.Generations; gen++ {
		if ctx.Err() != nil {
			break
		}
		generation = gen

		offspring, err := s.breed(population, gen)
		if err != nil {
			return RunResult{}, fmt.Errorf("generation %d: %w", gen, err)
		}
		scored, err := s.evaluatePopulation(offspring)
		if err != nil {
			return RunResult{}, fmt.Errorf("generation %d: %w", gen, err)
		}
		result.Evaluations += len(scored)

		merged := make([]ScoredDesign, 0, len(population)+len(scored))
		merged = append(merged, population...)
		merged = append(merged, scored...)
		population = truncate(merged, s.cfg.PopulationSize)

		archive = RebuildArchive(archive, merged)
		hv = archiveHypervolume(archive, ref)
		result.Diagnostics = append(result.Diagnostics, diagnostics(gen, len(scored), archive, scored, hv))

		if s.cfg.StagnationWindow > 0 {
			if hv == lastHV && len(archive) == lastSize {
				stale++
				if stale >= s.cfg.StagnationWindow {
					break
				}
			} else {
				stale = 0
				lastHV, lastSize = hv, len(archive)
			}
		}
	}

	result.Archive = archive
	result.FinalPopulation = population
	result.Generations = generation
	result.Hypervolume = hv
	return result, nil
}

// breed produces one offspring population by binary tournament over the
// current ranks and crowding distances, followed by crossover and mutation.
func (s *Search) breed(population []ScoredDesign, generation int) ([]model.Genotype, error) {
	rank := make([]int, len(population))
	crowding := make([]float64, len(population))
	for r, front := range NonDominatedSort(population) {
		distances := CrowdingDistances(population, front)
		for k, idx := range front {
			rank[idx] = r
			crowding[idx] = distances[k]
		}
	}

	offspring := make([]model.Genotype, 0, s.cfg.PopulationSize)
	serial := 0
	assign := func(g model.Genotype) model.Genotype {
		g.ID = designID(generation, serial)
		serial++
		return g
	}
	for len(offspring) < s.cfg.PopulationSize {
		a := population[tournament(s.rng, rank, crowding)].Genotype
		b := population[tournament(s.rng, rank, crowding)].Genotype

		var child1, child2 model.Genotype
		if s.rng.Float64() < s.cfg.CrossoverProbability {
			var err error
			child1, child2, err = s.cfg.Encoding.Crossover(s.rng, a, b)
			if err != nil {
				return nil, err
			}
		} else {
			child1, child2 = genotype.Clone(a), genotype.Clone(b)
		}

		child1, err := s.cfg.Encoding.Mutate(s.rng, child1, s.cfg.MutationRate)
		if err != nil {
			return nil, err
		}
		child2, err = s.cfg.Encoding.Mutate(s.rng, child2, s.cfg.MutationRate)
		if err != nil {
			return nil, err
		}

		offspring = append(offspring, assign(child1))
		if len(offspring) < s.cfg.PopulationSize {
			offspring = append(offspring, assign(child2))
		}
	}
	return offspring, nil
}

// evaluatePopulation fans the genotypes out over a bounded worker pool and
// collects results in input order. Evaluation is pure, so the parallel
// schedule cannot change the outcome. Individual evaluations are fast; they
// run to completion even when the run is being cancelled, and the
// generation loop observes the cancellation at its next step.
func (s *Search) evaluatePopulation(population []model.Genotype) ([]ScoredDesign, error) {
	type job struct {
		idx      int
		genotype model.Genotype
	}
	type outcome struct {
		idx    int
		scored ScoredDesign
		err    error
	}

	jobs := make(chan job)
	results := make(chan outcome, len(population))

	workerCount := s.cfg.Workers
	if workerCount > len(population) {
		workerCount = len(population)
	}
	if workerCount < 1 {
		workerCount = 1
	}

	var wg sync.WaitGroup
	wg.Add(workerCount)
	for w := 0; w < workerCount; w++ {
		go func() {
			defer wg.Done()
			for j := range jobs {
				res, err := s.cfg.Evaluator.Evaluate(j.genotype)
				if err != nil {
					results <- outcome{idx: j.idx, err: err}
					continue
				}
				results <- outcome{idx: j.idx, scored: ScoredDesign{
					Genotype:   j.genotype,
					Objectives: res.Objectives,
					Feasible:   res.Feasible,
				}}
			}
		}()
	}

	for i := range population {
		jobs <- job{idx: i, genotype: population[i]}
	}
	close(jobs)

	wg.Wait()
	close(results)

	scored := make([]ScoredDesign, len(population))
	for res := range results {
		if res.err != nil {
			return nil, res.err
		}
		scored[res.idx] = res.scored
	}
	return scored, nil
}

// truncate keeps the best size designs from the merged parent and offspring
// pool: whole fronts in order, the last partial front by descending crowding
// distance with ties broken by genotype ID.
func truncate(merged []ScoredDesign, size int) []ScoredDesign {
	if len(merged) <= size {
		return merged
	}

	next := make([]ScoredDesign, 0, size)
	for _, front := range NonDominatedSort(merged) {
		if len(next)+len(front) <= size {
			for _, idx := range front {
				next = append(next, merged[idx])
			}
			if len(next) == size {
				break
			}
			continue
		}

		distances := CrowdingDistances(merged, front)
		order := make([]int, len(front))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool {
			if distances[order[a]] != distances[order[b]] {
				return distances[order[a]] > distances[order[b]]
			}
			return merged[front[order[a]]].Genotype.ID < merged[front[order[b]]].Genotype.ID
		})
		for _, k := range order {
			if len(next) == size {
				break
			}
			next = append(next, merged[front[k]])
		}
		break
	}
	return next
}

// referencePoint fixes the hypervolume reference from the first generation:
// the worst value per objective with a ten percent margin, floored at one so
// an all-zero objective still spans volume.
func referencePoint(scored []ScoredDesign) []float64 {
	ref := make([]float64, 4)
	for _, d := range scored {
		values := d.Objectives.Values()
		for i, v := range values {
			if v > ref[i] {
				ref[i] = v
			}
		}
	}
	for i := range ref {
		ref[i] *= 1.1
		if ref[i] <= 0 {
			ref[i] = 1
		}
	}
	return ref
}

func archiveHypervolume(archive []ScoredDesign, ref []float64) float64 {
	if len(archive) == 0 {
		return 0
	}
	points := make([][]float64, 0, len(archive))
	for _, d := range archive {
		values := d.Objectives.Values()
		points = append(points, values[:])
	}
	return Hypervolume(points, ref)
}

// diagnostics summarizes one generation. Best objective values come from the
// archive when it has feasible entries, otherwise from the batch scored this
// generation.
func diagnostics(generation, evaluations int, archive, scored []ScoredDesign, hv float64) model.GenerationDiagnostics {
	feasible := 0
	for _, d := range scored {
		if d.Feasible {
			feasible++
		}
	}

	source := archive
	if len(source) == 0 {
		source = scored
	}
	best := [4]float64{math.Inf(1), math.Inf(1), math.Inf(1), math.Inf(1)}
	for _, d := range source {
		values := d.Objectives.Values()
		for i, v := range values {
			if v < best[i] {
				best[i] = v
			}
		}
	}
	if len(source) == 0 {
		best = [4]float64{}
	}

	return model.GenerationDiagnostics{
		Generation:        generation,
		Evaluations:       evaluations,
		ArchiveSize:       len(archive),
		FeasibleCount:     feasible,
		Hypervolume:       hv,
		BestCost:          best[0],
		BestEmissions:     best[1],
		BestHeatRejection: best[2],
		BestUnmetDemand:   best[3],
	}
}

func designID(generation, serial int) string {
	return fmt.Sprintf("gen%03d-%03d", generation, serial)
}
