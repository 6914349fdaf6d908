package storage

import (
	"context"

	"enervolve/internal/model"
)

// Store defines persistence for search runs: the run records themselves,
// their frontiers and diagnostics trails, and individual genotypes.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, runID string) (model.RunRecord, bool, error)
	ListRuns(ctx context.Context) ([]model.RunRecord, error)
	SaveFrontier(ctx context.Context, runID string, frontier []model.FrontierRecord) error
	GetFrontier(ctx context.Context, runID string) ([]model.FrontierRecord, bool, error)
	SaveDiagnostics(ctx context.Context, runID string, diagnostics []model.GenerationDiagnostics) error
	GetDiagnostics(ctx context.Context, runID string) ([]model.GenerationDiagnostics, bool, error)
	SaveGenotype(ctx context.Context, genotype model.Genotype) error
	GetGenotype(ctx context.Context, id string) (model.Genotype, bool, error)
}
