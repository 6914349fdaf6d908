package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func writeRunConfig(t *testing.T, payload map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run_config.json")
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadRunRequestFromConfig(t *testing.T) {
	path := writeRunConfig(t, map[string]any{
		"dataset_dir":            "datasets/midtown",
		"population":             48,
		"generations":            60,
		"crossover_probability":  0.85,
		"mutation_rate":          0.15,
		"connection_probability": 0.4,
		"tech_flip_probability":  0.05,
		"stagnation_window":      8,
		"unmet_tolerance":        12.5,
		"workers":                6,
		"seed":                   77,
		"sort_key":               "weighted",
		"dedupe_tolerance":       0.001,
		"weights": map[string]any{
			"cost":           2,
			"emissions":      1,
			"heat_rejection": 0.5,
			"unmet_demand":   0.25,
		},
	})

	req, err := loadRunRequestFromConfig(path)
	if err != nil {
		t.Fatalf("load run request: %v", err)
	}
	if req.DatasetDir != "datasets/midtown" || req.Population != 48 || req.Generations != 60 {
		t.Fatalf("unexpected base fields: %+v", req)
	}
	if req.CrossoverProbability != 0.85 || req.MutationRate != 0.15 {
		t.Fatalf("unexpected variation rates: %+v", req)
	}
	if req.ConnectionProbability != 0.4 || req.TechFlipProbability != 0.05 {
		t.Fatalf("unexpected sampling probabilities: %+v", req)
	}
	if req.StagnationWindow != 8 || req.UnmetTolerance != 12.5 {
		t.Fatalf("unexpected termination fields: %+v", req)
	}
	if req.Workers != 6 || req.Seed != 77 {
		t.Fatalf("unexpected execution fields: %+v", req)
	}
	if req.SortKey != "weighted" || req.DedupeTolerance != 0.001 {
		t.Fatalf("unexpected reporting fields: %+v", req)
	}
	if req.Weights.Cost != 2 || req.Weights.Emissions != 1 || req.Weights.HeatRejection != 0.5 || req.Weights.UnmetDemand != 0.25 {
		t.Fatalf("unexpected weights: %+v", req.Weights)
	}
}

func TestLoadRunRequestFromConfigIgnoresUnknownKeys(t *testing.T) {
	path := writeRunConfig(t, map[string]any{
		"dataset_dir": "datasets/small",
		"solver":      "nonsense",
		"population":  4.0,
	})

	req, err := loadRunRequestFromConfig(path)
	if err != nil {
		t.Fatalf("load run request: %v", err)
	}
	if req.DatasetDir != "datasets/small" {
		t.Fatalf("dataset dir lost: %+v", req)
	}
	// JSON numbers arrive as float64; integer fields still fill in.
	if req.Population != 4 {
		t.Fatalf("expected population 4, got %d", req.Population)
	}
}

func TestLoadRunRequestFromConfigRejectsMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run_config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := loadRunRequestFromConfig(path); err == nil {
		t.Fatal("malformed config must fail")
	}
}

func TestOverrideFromFlagsAppliesOnlySetFlags(t *testing.T) {
	path := writeRunConfig(t, map[string]any{
		"dataset_dir": "datasets/midtown",
		"population":  48,
		"seed":        77,
	})
	req, err := loadRunRequestFromConfig(path)
	if err != nil {
		t.Fatalf("load run request: %v", err)
	}

	set := map[string]bool{"pop": true, "seed": true}
	err = overrideFromFlags(&req, set, map[string]any{
		"pop":     16,
		"gens":    99,
		"seed":    int64(5),
		"dataset": "ignored",
	})
	if err != nil {
		t.Fatalf("override: %v", err)
	}
	if req.Population != 16 || req.Seed != 5 {
		t.Fatalf("set flags must override config: %+v", req)
	}
	if req.DatasetDir != "datasets/midtown" || req.Generations != 0 {
		t.Fatalf("unset flags must leave config values alone: %+v", req)
	}
}

func TestLoadOrDefaultRunRequestWithoutPath(t *testing.T) {
	req, err := loadOrDefaultRunRequest("")
	if err != nil {
		t.Fatalf("empty path must not fail: %v", err)
	}
	if req.DatasetDir != "" || req.Population != 0 {
		t.Fatalf("expected zero request, got %+v", req)
	}
}
