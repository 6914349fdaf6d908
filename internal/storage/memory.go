package storage

import (
	"context"
	"sort"
	"sync"

	"enervolve/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	runs        map[string]model.RunRecord
	frontiers   map[string][]model.FrontierRecord
	diagnostics map[string][]model.GenerationDiagnostics
	genotypes   map[string]model.Genotype
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs = make(map[string]model.RunRecord)
	s.frontiers = make(map[string][]model.FrontierRecord)
	s.diagnostics = make(map[string][]model.GenerationDiagnostics)
	s.genotypes = make(map[string]model.Genotype)
	return nil
}

func (s *MemoryStore) SaveRun(_ context.Context, run model.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[run.RunID] = run
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, runID string) (model.RunRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[runID]
	return run, ok, nil
}

func (s *MemoryStore) ListRuns(_ context.Context) ([]model.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]model.RunRecord, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, run)
	}
	sortRuns(runs)
	return runs, nil
}

func (s *MemoryStore) SaveFrontier(_ context.Context, runID string, frontier []model.FrontierRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]model.FrontierRecord, len(frontier))
	copy(copied, frontier)
	s.frontiers[runID] = copied
	return nil
}

func (s *MemoryStore) GetFrontier(_ context.Context, runID string) ([]model.FrontierRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	frontier, ok := s.frontiers[runID]
	if !ok {
		return nil, false, nil
	}
	copied := make([]model.FrontierRecord, len(frontier))
	copy(copied, frontier)
	return copied, true, nil
}

func (s *MemoryStore) SaveDiagnostics(_ context.Context, runID string, diagnostics []model.GenerationDiagnostics) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]model.GenerationDiagnostics, len(diagnostics))
	copy(copied, diagnostics)
	s.diagnostics[runID] = copied
	return nil
}

func (s *MemoryStore) GetDiagnostics(_ context.Context, runID string) ([]model.GenerationDiagnostics, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	diagnostics, ok := s.diagnostics[runID]
	if !ok {
		return nil, false, nil
	}
	copied := make([]model.GenerationDiagnostics, len(diagnostics))
	copy(copied, diagnostics)
	return copied, true, nil
}

func (s *MemoryStore) SaveGenotype(_ context.Context, genotype model.Genotype) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.genotypes[genotype.ID] = genotype
	return nil
}

func (s *MemoryStore) GetGenotype(_ context.Context, id string) (model.Genotype, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	genotype, ok := s.genotypes[id]
	return genotype, ok, nil
}

// sortRuns orders newest first, ties broken by run ID for stability.
func sortRuns(runs []model.RunRecord) {
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].CreatedAtUTC != runs[j].CreatedAtUTC {
			return runs[i].CreatedAtUTC > runs[j].CreatedAtUTC
		}
		return runs[i].RunID < runs[j].RunID
	})
}
