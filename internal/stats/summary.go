package stats

import (
	"gonum.org/v1/gonum/stat"

	"enervolve/internal/model"
)

// ObjectiveSummary is the spread of one objective across a frontier.
type ObjectiveSummary struct {
	Name string  `json:"name"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

// SummarizeFrontier computes per-objective spread statistics over a
// frontier, in canonical objective order. A frontier with fewer than two
// entries reports zero standard deviation.
func SummarizeFrontier(frontier []model.FrontierRecord) []ObjectiveSummary {
	names := []string{"annualized_cost", "emissions", "heat_rejection", "unmet_demand"}
	summaries := make([]ObjectiveSummary, len(names))
	for i, name := range names {
		summaries[i].Name = name
	}
	if len(frontier) == 0 {
		return summaries
	}

	columns := make([][]float64, len(names))
	for i := range columns {
		columns[i] = make([]float64, 0, len(frontier))
	}
	for _, record := range frontier {
		values := record.Objectives.Values()
		for i, v := range values {
			columns[i] = append(columns[i], v)
		}
	}

	for i, column := range columns {
		lo, hi := column[0], column[0]
		for _, v := range column[1:] {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		summaries[i].Min = lo
		summaries[i].Max = hi
		summaries[i].Mean = stat.Mean(column, nil)
		if len(column) > 1 {
			summaries[i].Std = stat.StdDev(column, nil)
		}
	}
	return summaries
}
