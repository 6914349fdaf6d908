//go:build sqlite

package storage

import (
	"context"
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"

	"enervolve/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "enervolve.db"))
	assert.NilError(t, store.Init(context.Background()))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStoreRunRoundTrip(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	run := model.RunRecord{
		VersionedRecord: model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion},
		RunID:           "run-1",
		CreatedAtUTC:    "2026-08-20T12:00:00Z",
		Seed:            42,
		PopulationSize:  16,
		FrontierSize:    3,
		Hypervolume:     2.5,
	}
	assert.NilError(t, store.SaveRun(ctx, run))

	got, ok, err := store.GetRun(ctx, "run-1")
	assert.NilError(t, err)
	assert.Assert(t, ok)
	assert.DeepEqual(t, got, run)

	// Upsert replaces the payload.
	run.FrontierSize = 5
	assert.NilError(t, store.SaveRun(ctx, run))
	got, _, err = store.GetRun(ctx, "run-1")
	assert.NilError(t, err)
	assert.Equal(t, got.FrontierSize, 5)

	_, ok, err = store.GetRun(ctx, "missing")
	assert.NilError(t, err)
	assert.Assert(t, !ok)
}

func TestSQLiteStoreListRunsNewestFirst(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	vr := model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
	assert.NilError(t, store.SaveRun(ctx, model.RunRecord{VersionedRecord: vr, RunID: "run-a", CreatedAtUTC: "2026-08-01T00:00:00Z"}))
	assert.NilError(t, store.SaveRun(ctx, model.RunRecord{VersionedRecord: vr, RunID: "run-b", CreatedAtUTC: "2026-08-02T00:00:00Z"}))

	runs, err := store.ListRuns(ctx)
	assert.NilError(t, err)
	assert.Equal(t, len(runs), 2)
	assert.Equal(t, runs[0].RunID, "run-b")
	assert.Equal(t, runs[1].RunID, "run-a")
}

func TestSQLiteStoreFrontierDiagnosticsGenotypes(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	frontier := []model.FrontierRecord{
		{Rank: 1, Objectives: model.ObjectiveVector{AnnualizedCost: 100}},
	}
	assert.NilError(t, store.SaveFrontier(ctx, "run-1", frontier))
	gotFrontier, ok, err := store.GetFrontier(ctx, "run-1")
	assert.NilError(t, err)
	assert.Assert(t, ok)
	assert.DeepEqual(t, gotFrontier, frontier)

	diagnostics := []model.GenerationDiagnostics{{Generation: 0, ArchiveSize: 1}}
	assert.NilError(t, store.SaveDiagnostics(ctx, "run-1", diagnostics))
	gotDiagnostics, ok, err := store.GetDiagnostics(ctx, "run-1")
	assert.NilError(t, err)
	assert.Assert(t, ok)
	assert.DeepEqual(t, gotDiagnostics, diagnostics)

	genotype := model.Genotype{
		VersionedRecord: model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion},
		ID:              "gen002-004",
		Connected:       []bool{true},
	}
	assert.NilError(t, store.SaveGenotype(ctx, genotype))
	gotGenotype, ok, err := store.GetGenotype(ctx, "gen002-004")
	assert.NilError(t, err)
	assert.Assert(t, ok)
	assert.DeepEqual(t, gotGenotype, genotype)
}

func TestSQLiteStoreRequiresInit(t *testing.T) {
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "enervolve.db"))
	_, _, err := store.GetRun(context.Background(), "run-1")
	assert.ErrorContains(t, err, "not initialized")
}
