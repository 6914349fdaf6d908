// Package enervolve is the embedding API: it wires the dataset loaders,
// the catalog, the evolutionary search, the frontier reporter, and the
// persistence layers behind one client.
package enervolve

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"enervolve/internal/catalog"
	"enervolve/internal/dataload"
	"enervolve/internal/dispatch"
	"enervolve/internal/evo"
	"enervolve/internal/frontier"
	"enervolve/internal/genotype"
	"enervolve/internal/model"
	"enervolve/internal/stats"
	"enervolve/internal/storage"
)

const (
	defaultRunsDir    = "runs"
	defaultExportsDir = "exports"
	defaultDBPath     = "enervolve.db"
)

// ErrNoFeasibleDesign mirrors the reporter sentinel for callers that only
// import this package.
var ErrNoFeasibleDesign = frontier.ErrNoFeasibleDesign

type Options struct {
	StoreKind  string
	DBPath     string
	RunsDir    string
	ExportsDir string
}

type Client struct {
	store   storage.Store
	runsDir string

	exportsDir string

	initOnce sync.Once
	initErr  error
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	runsDir := opts.RunsDir
	if runsDir == "" {
		runsDir = defaultRunsDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:      store,
		runsDir:    runsDir,
		exportsDir: exportsDir,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) ensureStore(ctx context.Context) error {
	c.initOnce.Do(func() {
		c.initErr = c.store.Init(ctx)
	})
	return c.initErr
}

// RunRequest configures one search run over a dataset directory. Zero
// values take documented defaults; DatasetDir is required.
type RunRequest struct {
	DatasetDir            string
	Population            int
	Generations           int
	CrossoverProbability  float64
	MutationRate          float64
	ConnectionProbability float64
	TechFlipProbability   float64
	StagnationWindow      int
	UnmetTolerance        float64
	Workers               int
	Seed                  int64
	SortKey               string
	DedupeTolerance       float64
	Weights               frontier.Weights
}

// RunSummary is what a finished run reports back.
type RunSummary struct {
	RunID            string
	ArtifactsDir     string
	FrontierSize     int
	Generations      int
	Evaluations      int
	Hypervolume      float64
	NoFeasibleDesign bool
}

// Run executes one full search: load and validate the dataset, search,
// report the frontier, and persist both store records and disk artifacts.
// An over-constrained dataset yields an empty frontier with
// NoFeasibleDesign set, not an error.
func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	if req.DatasetDir == "" {
		return RunSummary{}, errors.New("dataset dir is required")
	}
	if req.Population <= 0 {
		req.Population = 32
	}
	if req.Generations <= 0 {
		req.Generations = 40
	}
	if req.CrossoverProbability <= 0 {
		req.CrossoverProbability = 0.9
	}
	if req.MutationRate <= 0 {
		req.MutationRate = 0.1
	}
	if req.ConnectionProbability <= 0 {
		req.ConnectionProbability = 0.5
	}
	if req.TechFlipProbability <= 0 {
		req.TechFlipProbability = 0.1
	}
	if req.Workers <= 0 {
		req.Workers = 4
	}
	if req.SortKey == "" {
		req.SortKey = string(frontier.SortByCost)
	}

	if err := c.ensureStore(ctx); err != nil {
		return RunSummary{}, err
	}

	dataset, err := dataload.LoadDataset(req.DatasetDir)
	if err != nil {
		return RunSummary{}, fmt.Errorf("load dataset: %w", err)
	}
	if err := dataset.Validate(); err != nil {
		return RunSummary{}, err
	}

	cat, err := catalog.New(dataset.Technologies, dataset.Potentials, dataset.DiscountRate)
	if err != nil {
		return RunSummary{}, fmt.Errorf("build catalog: %w", err)
	}
	encoding, err := genotype.NewEncoding(cat, dataset.Buildings, req.ConnectionProbability, req.TechFlipProbability)
	if err != nil {
		return RunSummary{}, err
	}
	evaluator, err := dispatch.NewEvaluator(cat, dataset.Buildings, req.UnmetTolerance)
	if err != nil {
		return RunSummary{}, err
	}

	search, err := evo.NewSearch(evo.Config{
		Encoding:             encoding,
		Evaluator:            evaluator,
		PopulationSize:       req.Population,
		Generations:          req.Generations,
		CrossoverProbability: req.CrossoverProbability,
		MutationRate:         req.MutationRate,
		StagnationWindow:     req.StagnationWindow,
		Workers:              req.Workers,
		Seed:                 req.Seed,
	})
	if err != nil {
		return RunSummary{}, err
	}

	result, err := search.Run(ctx)
	if err != nil {
		return RunSummary{}, err
	}

	summary := RunSummary{
		RunID:       uuid.NewString(),
		Generations: result.Generations,
		Evaluations: result.Evaluations,
		Hypervolume: result.Hypervolume,
	}

	records, err := frontier.Report(dataset.Buildings, result.Archive, frontier.Options{
		DedupeTolerance: req.DedupeTolerance,
		SortKey:         frontier.SortKey(req.SortKey),
		Weights:         req.Weights,
	})
	if err != nil {
		if !errors.Is(err, frontier.ErrNoFeasibleDesign) {
			return RunSummary{}, err
		}
		summary.NoFeasibleDesign = true
		records = nil
	}
	summary.FrontierSize = len(records)

	now := time.Now().UTC()
	run := model.RunRecord{
		VersionedRecord: model.VersionedRecord{
			SchemaVersion: storage.CurrentSchemaVersion,
			CodecVersion:  storage.CurrentCodecVersion,
		},
		RunID:          summary.RunID,
		CreatedAtUTC:   now.Format(time.RFC3339),
		Seed:           req.Seed,
		PopulationSize: req.Population,
		Generations:    result.Generations,
		FrontierSize:   len(records),
		Hypervolume:    result.Hypervolume,
	}
	if err := c.store.SaveRun(ctx, run); err != nil {
		return RunSummary{}, err
	}
	if err := c.store.SaveFrontier(ctx, run.RunID, records); err != nil {
		return RunSummary{}, err
	}
	if err := c.store.SaveDiagnostics(ctx, run.RunID, result.Diagnostics); err != nil {
		return RunSummary{}, err
	}
	for _, record := range records {
		if err := c.store.SaveGenotype(ctx, record.Genotype); err != nil {
			return RunSummary{}, err
		}
	}

	runDir, err := stats.WriteRunArtifacts(c.runsDir, stats.RunArtifacts{
		Config: stats.RunConfig{
			RunID:                run.RunID,
			DatasetDir:           req.DatasetDir,
			PopulationSize:       req.Population,
			Generations:          req.Generations,
			CrossoverProbability: req.CrossoverProbability,
			MutationRate:         req.MutationRate,
			StagnationWindow:     req.StagnationWindow,
			UnmetTolerance:       req.UnmetTolerance,
			DiscountRate:         dataset.DiscountRate,
			Workers:              req.Workers,
			Seed:                 req.Seed,
		},
		Frontier:    records,
		Diagnostics: result.Diagnostics,
		Hypervolume: result.Hypervolume,
		Evaluations: result.Evaluations,
	})
	if err != nil {
		return RunSummary{}, err
	}
	if err := stats.AppendRunIndex(c.runsDir, run); err != nil {
		return RunSummary{}, err
	}

	summary.ArtifactsDir = runDir
	return summary, nil
}

type RunsRequest struct {
	Limit int
}

// Runs lists persisted runs newest first, from the on-disk run index.
func (c *Client) Runs(_ context.Context, req RunsRequest) ([]model.RunRecord, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}

	entries, err := stats.ListRunIndex(c.runsDir)
	if err != nil {
		return nil, err
	}
	if len(entries) > req.Limit {
		entries = entries[:req.Limit]
	}
	return entries, nil
}

type FrontierRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

// Frontier returns the persisted frontier of one run, preferring the store
// and falling back to the on-disk artifacts.
func (c *Client) Frontier(ctx context.Context, req FrontierRequest) ([]model.FrontierRecord, error) {
	runID, err := c.resolveRunID(req.RunID, req.Latest)
	if err != nil {
		return nil, err
	}
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	if err := c.ensureStore(ctx); err != nil {
		return nil, err
	}

	records, ok, err := c.store.GetFrontier(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		records, ok, err = stats.ReadFrontier(c.runsDir, runID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("frontier not found for run id: %s", runID)
		}
	}
	if req.Limit > 0 && len(records) > req.Limit {
		records = records[:req.Limit]
	}
	return records, nil
}

type DiagnosticsRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

// Diagnostics returns the per-generation trail of one run.
func (c *Client) Diagnostics(ctx context.Context, req DiagnosticsRequest) ([]model.GenerationDiagnostics, error) {
	runID, err := c.resolveRunID(req.RunID, req.Latest)
	if err != nil {
		return nil, err
	}
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	if err := c.ensureStore(ctx); err != nil {
		return nil, err
	}

	diagnostics, ok, err := c.store.GetDiagnostics(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		diagnostics, ok, err = stats.ReadDiagnostics(c.runsDir, runID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("diagnostics not found for run id: %s", runID)
		}
	}
	if req.Limit > 0 && len(diagnostics) > req.Limit {
		diagnostics = diagnostics[:req.Limit]
	}
	return diagnostics, nil
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

// Export copies one run's artifacts directory for sharing.
func (c *Client) Export(_ context.Context, req ExportRequest) (ExportSummary, error) {
	runID, err := c.resolveRunID(req.RunID, req.Latest)
	if err != nil {
		return ExportSummary{}, err
	}
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}

	exportedDir, err := stats.ExportRunArtifacts(c.runsDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(exportedDir)}, nil
}

func (c *Client) resolveRunID(runID string, latest bool) (string, error) {
	if runID != "" && latest {
		return "", errors.New("use either run id or latest")
	}
	if runID != "" {
		return runID, nil
	}
	if !latest {
		return "", errors.New("run id or latest is required")
	}

	entries, err := stats.ListRunIndex(c.runsDir)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", errors.New("no runs available")
	}
	return entries[0].RunID, nil
}
