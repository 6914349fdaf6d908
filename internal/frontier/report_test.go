package frontier

import (
	"errors"
	"reflect"
	"testing"

	"enervolve/internal/evo"
	"enervolve/internal/model"
)

func scored(id string, cost, emissions, heat, unmet float64) evo.ScoredDesign {
	return evo.ScoredDesign{
		Genotype: model.Genotype{ID: id},
		Objectives: model.ObjectiveVector{
			AnnualizedCost: cost,
			Emissions:      emissions,
			HeatRejection:  heat,
			UnmetDemand:    unmet,
		},
		Feasible: true,
	}
}

func TestReportEmptyArchiveMeansNoFeasibleDesign(t *testing.T) {
	if _, err := Report(nil, nil, Options{}); !errors.Is(err, ErrNoFeasibleDesign) {
		t.Fatalf("expected ErrNoFeasibleDesign, got %v", err)
	}

	infeasible := []evo.ScoredDesign{
		{Genotype: model.Genotype{ID: "a"}, Objectives: model.ObjectiveVector{UnmetDemand: 4}},
	}
	if _, err := Report(nil, infeasible, Options{}); !errors.Is(err, ErrNoFeasibleDesign) {
		t.Fatalf("expected ErrNoFeasibleDesign for all-infeasible input, got %v", err)
	}
}

func TestReportOrdersByPrimaryObjective(t *testing.T) {
	archive := []evo.ScoredDesign{
		scored("a", 3, 1, 0, 0),
		scored("b", 1, 3, 0, 0),
		scored("c", 2, 2, 0, 0),
	}

	byCost, err := Report(nil, archive, Options{SortKey: SortByCost})
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	gotIDs := make([]string, 0, len(byCost))
	for _, r := range byCost {
		gotIDs = append(gotIDs, r.Genotype.ID)
	}
	if !reflect.DeepEqual(gotIDs, []string{"b", "c", "a"}) {
		t.Fatalf("unexpected cost order: %v", gotIDs)
	}
	for i, r := range byCost {
		if r.Rank != i+1 {
			t.Fatalf("ranks must be 1-based positions, got %d at index %d", r.Rank, i)
		}
	}

	byEmissions, err := Report(nil, archive, Options{SortKey: SortByEmissions})
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if byEmissions[0].Genotype.ID != "a" {
		t.Fatalf("expected lowest-emission design first, got %s", byEmissions[0].Genotype.ID)
	}
}

func TestReportWeightedRankingIsReportingOnly(t *testing.T) {
	archive := []evo.ScoredDesign{
		scored("cheap_dirty", 1, 10, 0, 0),
		scored("clean_costly", 10, 1, 0, 0),
	}

	emissionsHeavy, err := Report(nil, archive, Options{
		SortKey: SortByWeighted,
		Weights: Weights{Cost: 1, Emissions: 9},
	})
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if emissionsHeavy[0].Genotype.ID != "clean_costly" {
		t.Fatalf("emission-heavy weights must favor the clean design, got %s", emissionsHeavy[0].Genotype.ID)
	}

	costHeavy, err := Report(nil, archive, Options{
		SortKey: SortByWeighted,
		Weights: Weights{Cost: 9, Emissions: 1},
	})
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if costHeavy[0].Genotype.ID != "cheap_dirty" {
		t.Fatalf("cost-heavy weights must favor the cheap design, got %s", costHeavy[0].Genotype.ID)
	}

	// Either way both designs survive; weighting orders the frontier
	// without discarding anyone.
	if len(emissionsHeavy) != 2 || len(costHeavy) != 2 {
		t.Fatal("weighting must not drop frontier entries")
	}
}

func TestReportDedupesWithinTolerance(t *testing.T) {
	archive := []evo.ScoredDesign{
		scored("a", 1.000, 2, 0, 0),
		scored("b", 1.004, 2, 0, 0),
		scored("c", 5, 1, 0, 0),
	}

	records, err := Report(nil, archive, Options{DedupeTolerance: 0.01})
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected near-duplicates collapsed to 2 records, got %d", len(records))
	}
	if records[0].Genotype.ID != "a" {
		t.Fatalf("the first of a duplicate group must survive, got %s", records[0].Genotype.ID)
	}

	exact, err := Report(nil, archive, Options{})
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if len(exact) != 3 {
		t.Fatalf("zero tolerance must keep distinct vectors, got %d", len(exact))
	}
}

func TestReportRejectsBadOptions(t *testing.T) {
	archive := []evo.ScoredDesign{scored("a", 1, 1, 1, 0)}

	if _, err := Report(nil, archive, Options{DedupeTolerance: -1}); err == nil {
		t.Fatal("negative tolerance must be rejected")
	}
	if _, err := Report(nil, archive, Options{SortKey: "sideways"}); err == nil {
		t.Fatal("unknown sort key must be rejected")
	}
	if _, err := Report(nil, archive, Options{SortKey: SortByWeighted, Weights: Weights{Cost: -1}}); err == nil {
		t.Fatal("negative weights must be rejected")
	}
}

func TestDecodeExpandsTopologyAndPortfolios(t *testing.T) {
	buildings := []model.Building{{ID: "b1"}, {ID: "b2"}, {ID: "b3"}}
	g := model.Genotype{
		ID:        "d1",
		Connected: []bool{true, false, true},
		Hub: model.Portfolio{Installations: []model.Installation{
			{TechnologyID: "heat_pump", Capacity: 12},
		}},
		Standalone: []model.BuildingPortfolio{
			{BuildingID: "b2", Portfolio: model.Portfolio{Installations: []model.Installation{
				{TechnologyID: "gas_boiler", Capacity: 7},
			}}},
		},
	}

	design := Decode(buildings, g)
	if !reflect.DeepEqual(design.ConnectedBuildings, []string{"b1", "b3"}) {
		t.Fatalf("unexpected connected buildings: %v", design.ConnectedBuildings)
	}
	if len(design.Hub) != 1 || design.Hub[0].TechnologyID != "heat_pump" {
		t.Fatalf("unexpected hub: %+v", design.Hub)
	}
	if len(design.Standalone) != 1 || design.Standalone[0].BuildingID != "b2" {
		t.Fatalf("unexpected standalone: %+v", design.Standalone)
	}
}
