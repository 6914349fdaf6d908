package stats

import (
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"enervolve/internal/model"
)

func sampleFrontier() []model.FrontierRecord {
	return []model.FrontierRecord{
		{
			Rank: 1,
			Design: model.DecodedDesign{
				ConnectedBuildings: []string{"b1", "b2"},
				Hub: []model.Installation{
					{TechnologyID: "heat_pump", Capacity: 12.5},
				},
			},
			Objectives: model.ObjectiveVector{AnnualizedCost: 100, Emissions: 10, HeatRejection: 5},
			Genotype:   model.Genotype{ID: "gen004-001", Connected: []bool{true, true}},
		},
		{
			Rank: 2,
			Design: model.DecodedDesign{
				ConnectedBuildings: []string{},
				Standalone: []model.BuildingPortfolio{
					{BuildingID: "b1", Portfolio: model.Portfolio{Installations: []model.Installation{
						{TechnologyID: "gas_boiler", Capacity: 8},
					}}},
				},
			},
			Objectives: model.ObjectiveVector{AnnualizedCost: 60, Emissions: 40, HeatRejection: 12},
			Genotype:   model.Genotype{ID: "gen002-003", Connected: []bool{false, false}},
		},
	}
}

func TestWriteAndReadRunArtifacts(t *testing.T) {
	baseDir := t.TempDir()
	artifacts := RunArtifacts{
		Config: RunConfig{
			RunID:          "run-1",
			PopulationSize: 16,
			Generations:    20,
			Seed:           42,
		},
		Frontier: sampleFrontier(),
		Diagnostics: []model.GenerationDiagnostics{
			{Generation: 0, Evaluations: 16, ArchiveSize: 3, Hypervolume: 1.5},
			{Generation: 1, Evaluations: 16, ArchiveSize: 4, Hypervolume: 2.25},
		},
		Hypervolume: 2.25,
		Evaluations: 32,
	}

	runDir, err := WriteRunArtifacts(baseDir, artifacts)
	if err != nil {
		t.Fatalf("write artifacts: %v", err)
	}
	if runDir != filepath.Join(baseDir, "run-1") {
		t.Fatalf("unexpected run dir: %s", runDir)
	}

	frontier, ok, err := ReadFrontier(baseDir, "run-1")
	if err != nil || !ok {
		t.Fatalf("read frontier: ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(frontier, artifacts.Frontier) {
		t.Fatalf("frontier did not round-trip:\n got %+v\nwant %+v", frontier, artifacts.Frontier)
	}

	diagnostics, ok, err := ReadDiagnostics(baseDir, "run-1")
	if err != nil || !ok {
		t.Fatalf("read diagnostics: ok=%v err=%v", ok, err)
	}
	if len(diagnostics) != 2 || diagnostics[1].Hypervolume != 2.25 {
		t.Fatalf("diagnostics did not round-trip: %+v", diagnostics)
	}

	cfg, ok, err := ReadRunConfig(baseDir, "run-1")
	if err != nil || !ok {
		t.Fatalf("read config: ok=%v err=%v", ok, err)
	}
	if cfg.Seed != 42 || cfg.PopulationSize != 16 {
		t.Fatalf("config did not round-trip: %+v", cfg)
	}
}

func TestWriteRunArtifactsRequiresRunID(t *testing.T) {
	if _, err := WriteRunArtifacts(t.TempDir(), RunArtifacts{}); err == nil {
		t.Fatal("expected missing run id to be rejected")
	}
}

func TestFrontierCSVListsDesigns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frontier.csv")
	if err := WriteFrontierCSV(path, sampleFrontier()); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "rank,design_id,annualized_cost") {
		t.Fatalf("unexpected header: %s", lines[0])
	}
	if !strings.Contains(lines[1], "b1|b2") || !strings.Contains(lines[1], "heat_pump:12.5") {
		t.Fatalf("row must carry topology and hub selection: %s", lines[1])
	}
}

func TestRunIndexOrdersNewestFirst(t *testing.T) {
	baseDir := t.TempDir()
	entries := []model.RunRecord{
		{RunID: "run-a", CreatedAtUTC: "2026-08-01T10:00:00Z", FrontierSize: 2},
		{RunID: "run-b", CreatedAtUTC: "2026-08-02T10:00:00Z", FrontierSize: 4},
		{RunID: "run-c", CreatedAtUTC: "2026-08-01T09:00:00Z", FrontierSize: 1},
	}
	for _, entry := range entries {
		if err := AppendRunIndex(baseDir, entry); err != nil {
			t.Fatalf("append %s: %v", entry.RunID, err)
		}
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		t.Fatalf("list index: %v", err)
	}
	gotIDs := make([]string, 0, len(index))
	for _, entry := range index {
		gotIDs = append(gotIDs, entry.RunID)
	}
	if !reflect.DeepEqual(gotIDs, []string{"run-b", "run-a", "run-c"}) {
		t.Fatalf("unexpected index order: %v", gotIDs)
	}

	// Re-appending an existing run replaces its entry in place.
	if err := AppendRunIndex(baseDir, model.RunRecord{RunID: "run-a", CreatedAtUTC: "2026-08-01T10:00:00Z", FrontierSize: 9}); err != nil {
		t.Fatalf("replace run-a: %v", err)
	}
	index, err = ListRunIndex(baseDir)
	if err != nil {
		t.Fatalf("list index: %v", err)
	}
	if len(index) != 3 {
		t.Fatalf("replacement must not grow the index, got %d entries", len(index))
	}
	for _, entry := range index {
		if entry.RunID == "run-a" && entry.FrontierSize != 9 {
			t.Fatalf("run-a entry not replaced: %+v", entry)
		}
	}
}

func TestListRunIndexMissingFileIsEmpty(t *testing.T) {
	index, err := ListRunIndex(t.TempDir())
	if err != nil {
		t.Fatalf("list index: %v", err)
	}
	if len(index) != 0 {
		t.Fatalf("expected empty index, got %d entries", len(index))
	}
}

func TestExportRunArtifactsCopiesRunDir(t *testing.T) {
	baseDir := t.TempDir()
	artifacts := RunArtifacts{
		Config:   RunConfig{RunID: "run-1"},
		Frontier: sampleFrontier(),
	}
	if _, err := WriteRunArtifacts(baseDir, artifacts); err != nil {
		t.Fatalf("write artifacts: %v", err)
	}

	outDir := t.TempDir()
	dst, err := ExportRunArtifacts(baseDir, "run-1", outDir)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	for _, file := range []string{"config.json", "frontier.json", "frontier.csv", "generation_diagnostics.json"} {
		if _, err := os.Stat(filepath.Join(dst, file)); err != nil {
			t.Fatalf("exported file %s missing: %v", file, err)
		}
	}

	if _, err := ExportRunArtifacts(baseDir, "no-such-run", outDir); err == nil {
		t.Fatal("expected export of unknown run to fail")
	}
}

func TestSummarizeFrontierSpread(t *testing.T) {
	summaries := SummarizeFrontier(sampleFrontier())
	if len(summaries) != 4 {
		t.Fatalf("expected 4 objective summaries, got %d", len(summaries))
	}

	cost := summaries[0]
	if cost.Name != "annualized_cost" || cost.Min != 60 || cost.Max != 100 {
		t.Fatalf("unexpected cost summary: %+v", cost)
	}
	if math.Abs(cost.Mean-80) > 1e-12 {
		t.Fatalf("expected mean cost 80, got %v", cost.Mean)
	}
	if cost.Std <= 0 {
		t.Fatalf("expected positive std for spread costs, got %v", cost.Std)
	}

	empty := SummarizeFrontier(nil)
	if len(empty) != 4 || empty[0].Std != 0 {
		t.Fatalf("empty frontier must yield zeroed summaries: %+v", empty)
	}
}
