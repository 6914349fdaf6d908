package main

import (
	"encoding/json"
	"fmt"
	"os"

	enerapi "enervolve/pkg/enervolve"
)

// loadRunRequestFromConfig reads a run request from a loosely typed JSON
// file. Unknown keys are ignored so configs stay forward compatible;
// numeric fields accept both integers and floats.
func loadRunRequestFromConfig(path string) (enerapi.RunRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return enerapi.RunRequest{}, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return enerapi.RunRequest{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	var req enerapi.RunRequest
	if v, ok := asString(raw["dataset_dir"]); ok {
		req.DatasetDir = v
	}
	if v, ok := asInt(raw["population"]); ok {
		req.Population = v
	}
	if v, ok := asInt(raw["generations"]); ok {
		req.Generations = v
	}
	if v, ok := asFloat64(raw["crossover_probability"]); ok {
		req.CrossoverProbability = v
	}
	if v, ok := asFloat64(raw["mutation_rate"]); ok {
		req.MutationRate = v
	}
	if v, ok := asFloat64(raw["connection_probability"]); ok {
		req.ConnectionProbability = v
	}
	if v, ok := asFloat64(raw["tech_flip_probability"]); ok {
		req.TechFlipProbability = v
	}
	if v, ok := asInt(raw["stagnation_window"]); ok {
		req.StagnationWindow = v
	}
	if v, ok := asFloat64(raw["unmet_tolerance"]); ok {
		req.UnmetTolerance = v
	}
	if v, ok := asInt(raw["workers"]); ok {
		req.Workers = v
	}
	if v, ok := asInt64(raw["seed"]); ok {
		req.Seed = v
	}
	if v, ok := asString(raw["sort_key"]); ok {
		req.SortKey = v
	}
	if v, ok := asFloat64(raw["dedupe_tolerance"]); ok {
		req.DedupeTolerance = v
	}
	if weights, ok := raw["weights"].(map[string]any); ok {
		if v, ok := asFloat64(weights["cost"]); ok {
			req.Weights.Cost = v
		}
		if v, ok := asFloat64(weights["emissions"]); ok {
			req.Weights.Emissions = v
		}
		if v, ok := asFloat64(weights["heat_rejection"]); ok {
			req.Weights.HeatRejection = v
		}
		if v, ok := asFloat64(weights["unmet_demand"]); ok {
			req.Weights.UnmetDemand = v
		}
	}
	return req, nil
}

func loadOrDefaultRunRequest(path string) (enerapi.RunRequest, error) {
	if path == "" {
		return enerapi.RunRequest{}, nil
	}
	return loadRunRequestFromConfig(path)
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case float64:
		return int(x), true
	default:
		return 0, false
	}
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case float64:
		return int64(x), true
	default:
		return 0, false
	}
}

func asFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	default:
		return 0, false
	}
}

func overrideFromFlags(req *enerapi.RunRequest, set map[string]bool, flagValue map[string]any) error {
	for name := range set {
		v, ok := flagValue[name]
		if !ok {
			continue
		}
		switch name {
		case "dataset":
			req.DatasetDir = v.(string)
		case "pop":
			req.Population = v.(int)
		case "gens":
			req.Generations = v.(int)
		case "crossover":
			req.CrossoverProbability = v.(float64)
		case "mutation-rate":
			req.MutationRate = v.(float64)
		case "conn-prob":
			req.ConnectionProbability = v.(float64)
		case "tech-flip":
			req.TechFlipProbability = v.(float64)
		case "stagnation-window":
			req.StagnationWindow = v.(int)
		case "unmet-tolerance":
			req.UnmetTolerance = v.(float64)
		case "workers":
			req.Workers = v.(int)
		case "seed":
			req.Seed = v.(int64)
		case "sort":
			req.SortKey = v.(string)
		case "dedupe-tolerance":
			req.DedupeTolerance = v.(float64)
		case "w-cost":
			req.Weights.Cost = v.(float64)
		case "w-emissions":
			req.Weights.Emissions = v.(float64)
		case "w-heat":
			req.Weights.HeatRejection = v.(float64)
		case "w-unmet":
			req.Weights.UnmetDemand = v.(float64)
		default:
			return fmt.Errorf("unsupported override flag: %s", name)
		}
	}
	return nil
}
