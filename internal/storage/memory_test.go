package storage

import (
	"context"
	"testing"

	"gotest.tools/v3/assert"

	"enervolve/internal/model"
)

func versioned() model.VersionedRecord {
	return model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
}

func TestMemoryStoreRunRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	assert.NilError(t, store.Init(ctx))

	run := model.RunRecord{
		VersionedRecord: versioned(),
		RunID:           "run-1",
		CreatedAtUTC:    "2026-08-20T12:00:00Z",
		Seed:            42,
		PopulationSize:  16,
		FrontierSize:    3,
	}
	assert.NilError(t, store.SaveRun(ctx, run))

	got, ok, err := store.GetRun(ctx, "run-1")
	assert.NilError(t, err)
	assert.Assert(t, ok)
	assert.DeepEqual(t, got, run)

	_, ok, err = store.GetRun(ctx, "missing")
	assert.NilError(t, err)
	assert.Assert(t, !ok)
}

func TestMemoryStoreListRunsNewestFirst(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	assert.NilError(t, store.Init(ctx))

	assert.NilError(t, store.SaveRun(ctx, model.RunRecord{VersionedRecord: versioned(), RunID: "run-a", CreatedAtUTC: "2026-08-01T00:00:00Z"}))
	assert.NilError(t, store.SaveRun(ctx, model.RunRecord{VersionedRecord: versioned(), RunID: "run-b", CreatedAtUTC: "2026-08-02T00:00:00Z"}))
	assert.NilError(t, store.SaveRun(ctx, model.RunRecord{VersionedRecord: versioned(), RunID: "run-c", CreatedAtUTC: "2026-08-02T00:00:00Z"}))

	runs, err := store.ListRuns(ctx)
	assert.NilError(t, err)
	assert.Equal(t, len(runs), 3)
	assert.Equal(t, runs[0].RunID, "run-b")
	assert.Equal(t, runs[1].RunID, "run-c")
	assert.Equal(t, runs[2].RunID, "run-a")
}

func TestMemoryStoreFrontierIsolatedFromCaller(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	assert.NilError(t, store.Init(ctx))

	frontier := []model.FrontierRecord{
		{Rank: 1, Objectives: model.ObjectiveVector{AnnualizedCost: 100}},
	}
	assert.NilError(t, store.SaveFrontier(ctx, "run-1", frontier))

	frontier[0].Rank = 99
	got, ok, err := store.GetFrontier(ctx, "run-1")
	assert.NilError(t, err)
	assert.Assert(t, ok)
	assert.Equal(t, got[0].Rank, 1)

	got[0].Rank = 42
	again, _, err := store.GetFrontier(ctx, "run-1")
	assert.NilError(t, err)
	assert.Equal(t, again[0].Rank, 1)
}

func TestMemoryStoreDiagnosticsAndGenotypes(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	assert.NilError(t, store.Init(ctx))

	diagnostics := []model.GenerationDiagnostics{
		{Generation: 0, ArchiveSize: 2, Hypervolume: 1.5},
	}
	assert.NilError(t, store.SaveDiagnostics(ctx, "run-1", diagnostics))
	got, ok, err := store.GetDiagnostics(ctx, "run-1")
	assert.NilError(t, err)
	assert.Assert(t, ok)
	assert.DeepEqual(t, got, diagnostics)

	genotype := model.Genotype{
		VersionedRecord: versioned(),
		ID:              "gen003-007",
		Connected:       []bool{true, false},
	}
	assert.NilError(t, store.SaveGenotype(ctx, genotype))
	gotGenotype, ok, err := store.GetGenotype(ctx, "gen003-007")
	assert.NilError(t, err)
	assert.Assert(t, ok)
	assert.DeepEqual(t, gotGenotype, genotype)
}
