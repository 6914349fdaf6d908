package catalog

import (
	"errors"
	"math"
	"testing"

	"enervolve/internal/model"
)

func testTechnologies() []model.Technology {
	return []model.Technology{
		{
			ID:                  "rooftop_pv",
			Kind:                model.KindRenewable,
			Scope:               model.ScopeAny,
			Serves:              []model.DemandCategory{model.DemandElectricity},
			SiteConstrained:     true,
			CapitalCostPerUnit:  900,
			LifetimeYears:       25,
			Efficiency:          1.0,
			MinCapacity:         0,
			MaxCapacity:         50,
		},
		{
			ID:                  "gas_boiler",
			Kind:                model.KindConversion,
			Scope:               model.ScopeAny,
			Serves:              []model.DemandCategory{model.DemandHeating},
			CapitalCostPerUnit:  120,
			LifetimeYears:       20,
			OperatingCostPerMWh: 45,
			Efficiency:          0.92,
			GHGFactor:           0.2,
			HeatRejectionFactor: 0.08,
			MinCapacity:         0,
			MaxCapacity:         1000,
		},
	}
}

func testPotentials() []model.SitePotential {
	return []model.SitePotential{
		{
			LocationID:      "b1",
			TechnologyID:    "rooftop_pv",
			MaxCapacity:     10,
			HourlyPotential: []float64{0, 0.5, 1.0, 0.5},
		},
		{
			LocationID:      "b2",
			TechnologyID:    "rooftop_pv",
			MaxCapacity:     30,
			HourlyPotential: []float64{0, 0.25, 0.75, 0.25},
		},
	}
}

func newTestAdapter(t *testing.T) *Adapter {
	t.Helper()
	a, err := New(testTechnologies(), testPotentials(), 0.05)
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	return a
}

func TestUnknownTechnology(t *testing.T) {
	a := newTestAdapter(t)
	if _, err := a.Technology("fusion_reactor"); !errors.Is(err, ErrUnknownTechnology) {
		t.Fatalf("expected ErrUnknownTechnology, got %v", err)
	}
	if _, _, err := a.CapacityBounds("b1", "fusion_reactor"); !errors.Is(err, ErrUnknownTechnology) {
		t.Fatalf("expected ErrUnknownTechnology, got %v", err)
	}
}

func TestCapacityBoundsTakesTighterOfCatalogAndPotential(t *testing.T) {
	a := newTestAdapter(t)

	min, max, err := a.CapacityBounds("b1", "rooftop_pv")
	if err != nil {
		t.Fatalf("capacity bounds: %v", err)
	}
	if min != 0 || max != 10 {
		t.Fatalf("expected [0, 10], got [%v, %v]", min, max)
	}

	min, max, err = a.CapacityBounds("b1", "gas_boiler")
	if err != nil {
		t.Fatalf("capacity bounds: %v", err)
	}
	if min != 0 || max != 1000 {
		t.Fatalf("expected catalog bounds for non-constrained tech, got [%v, %v]", min, max)
	}
}

func TestMissingPotentialMeansZeroCapacity(t *testing.T) {
	a := newTestAdapter(t)

	min, max, err := a.CapacityBounds("no_such_site", "rooftop_pv")
	if err != nil {
		t.Fatalf("capacity bounds: %v", err)
	}
	if min != 0 || max != 0 {
		t.Fatalf("expected (0, 0) for missing potential, got [%v, %v]", min, max)
	}

	if _, err := a.GenerationPotential("no_such_site", "rooftop_pv"); !errors.Is(err, ErrNoPotentialData) {
		t.Fatalf("expected ErrNoPotentialData, got %v", err)
	}
}

func TestAggregateBoundsSumAcrossLocations(t *testing.T) {
	a := newTestAdapter(t)

	_, max, err := a.AggregateCapacityBounds([]string{"b1", "b2"}, "rooftop_pv")
	if err != nil {
		t.Fatalf("aggregate bounds: %v", err)
	}
	if max != 40 {
		t.Fatalf("expected summed ceiling 40, got %v", max)
	}

	series, err := a.AggregatePotential([]string{"b1", "b2"}, "rooftop_pv")
	if err != nil {
		t.Fatalf("aggregate potential: %v", err)
	}
	// Hour 2: (1.0*10 + 0.75*30) / 40 = 0.8125 capacity-weighted availability.
	if math.Abs(series[2]-0.8125) > 1e-12 {
		t.Fatalf("expected weighted availability 0.8125, got %v", series[2])
	}
}

func TestAnnualizedCostUsesCapitalRecoveryFactor(t *testing.T) {
	a := newTestAdapter(t)

	cost, err := a.AnnualizedCost("gas_boiler", 100)
	if err != nil {
		t.Fatalf("annualized cost: %v", err)
	}
	growth := math.Pow(1.05, 20)
	want := 120.0 * 100 * (0.05 * growth / (growth - 1))
	if math.Abs(cost-want) > 1e-9 {
		t.Fatalf("expected %v, got %v", want, cost)
	}

	zero, err := a.AnnualizedCost("gas_boiler", 0)
	if err != nil {
		t.Fatalf("annualized cost: %v", err)
	}
	if zero != 0 {
		t.Fatalf("zero capacity must cost nothing, got %v", zero)
	}
}

func TestRenewableGHGFactorIsZero(t *testing.T) {
	a := newTestAdapter(t)

	f, err := a.GHGFactor("rooftop_pv")
	if err != nil {
		t.Fatalf("ghg factor: %v", err)
	}
	if f != 0 {
		t.Fatalf("renewable ghg factor must be zero, got %v", f)
	}

	f, err = a.GHGFactor("gas_boiler")
	if err != nil {
		t.Fatalf("ghg factor: %v", err)
	}
	if f != 0.2 {
		t.Fatalf("expected 0.2, got %v", f)
	}
}

func TestHeatRejectionScalesDispatchedLoad(t *testing.T) {
	a := newTestAdapter(t)

	series, err := a.HeatRejection("gas_boiler", []float64{0, 10, 25})
	if err != nil {
		t.Fatalf("heat rejection: %v", err)
	}
	want := []float64{0, 0.8, 2.0}
	for h := range want {
		if math.Abs(series[h]-want[h]) > 1e-12 {
			t.Fatalf("hour %d: expected %v, got %v", h, want[h], series[h])
		}
	}
}

func TestNewRejectsMalformedCatalog(t *testing.T) {
	bad := testTechnologies()
	bad[1].Kind = "perpetual_motion"
	if _, err := New(bad, nil, 0.05); !errors.Is(err, ErrIncompleteReferenceData) {
		t.Fatalf("expected ErrIncompleteReferenceData, got %v", err)
	}

	dup := testTechnologies()
	dup[1].ID = dup[0].ID
	if _, err := New(dup, nil, 0.05); !errors.Is(err, ErrIncompleteReferenceData) {
		t.Fatalf("expected ErrIncompleteReferenceData for duplicate id, got %v", err)
	}

	if _, err := New(testTechnologies(), []model.SitePotential{{LocationID: "b1", TechnologyID: "ghost"}}, 0.05); !errors.Is(err, ErrUnknownTechnology) {
		t.Fatalf("expected ErrUnknownTechnology for dangling potential, got %v", err)
	}
}
