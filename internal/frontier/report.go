package frontier

import (
	"errors"
	"fmt"
	"sort"

	"enervolve/internal/evo"
	"enervolve/internal/model"
)

// ErrNoFeasibleDesign is returned when the archive holds nothing to report.
// An empty frontier is a meaningful outcome of an over-constrained search,
// not a crash.
var ErrNoFeasibleDesign = errors.New("no feasible design found")

// SortKey selects the presentation order of the frontier. Ordering is a
// reporting concern only; it never influences the search itself.
type SortKey string

const (
	SortByCost          SortKey = "cost"
	SortByEmissions     SortKey = "emissions"
	SortByHeatRejection SortKey = "heat_rejection"
	SortByUnmetDemand   SortKey = "unmet_demand"
	SortByWeighted      SortKey = "weighted"
)

// Weights rank frontier entries by a normalized weighted sum when
// SortByWeighted is selected. All-zero weights mean equal weighting.
type Weights struct {
	Cost          float64 `json:"cost"`
	Emissions     float64 `json:"emissions"`
	HeatRejection float64 `json:"heat_rejection"`
	UnmetDemand   float64 `json:"unmet_demand"`
}

func (w Weights) values() [4]float64 {
	return [4]float64{w.Cost, w.Emissions, w.HeatRejection, w.UnmetDemand}
}

// Options controls deduplication and ordering of the reported frontier.
type Options struct {
	// DedupeTolerance collapses designs whose objective vectors differ by
	// at most this much in every component. Zero keeps exact duplicates
	// apart only.
	DedupeTolerance float64
	SortKey         SortKey
	Weights         Weights
}

// Report turns the archive into ranked, decoded frontier records. The
// buildings slice must be the one the search ran over; it defines the
// topology bitset layout being decoded.
func Report(buildings []model.Building, archive []evo.ScoredDesign, opts Options) ([]model.FrontierRecord, error) {
	if opts.DedupeTolerance < 0 {
		return nil, fmt.Errorf("dedupe tolerance must be >= 0: %v", opts.DedupeTolerance)
	}
	if opts.SortKey == "" {
		opts.SortKey = SortByCost
	}
	objectiveIndex := -1
	switch opts.SortKey {
	case SortByCost:
		objectiveIndex = 0
	case SortByEmissions:
		objectiveIndex = 1
	case SortByHeatRejection:
		objectiveIndex = 2
	case SortByUnmetDemand:
		objectiveIndex = 3
	case SortByWeighted:
	default:
		return nil, fmt.Errorf("unknown sort key %q", opts.SortKey)
	}
	for _, w := range opts.Weights.values() {
		if w < 0 {
			return nil, fmt.Errorf("weights must be >= 0: %+v", opts.Weights)
		}
	}

	feasible := make([]evo.ScoredDesign, 0, len(archive))
	for _, d := range archive {
		if d.Feasible {
			feasible = append(feasible, d)
		}
	}
	if len(feasible) == 0 {
		return nil, ErrNoFeasibleDesign
	}

	kept := dedupe(feasible, opts.DedupeTolerance)

	if opts.SortKey == SortByWeighted {
		scores := weightedScores(kept, opts.Weights)
		sort.SliceStable(kept, func(i, j int) bool {
			if scores[kept[i].Genotype.ID] != scores[kept[j].Genotype.ID] {
				return scores[kept[i].Genotype.ID] < scores[kept[j].Genotype.ID]
			}
			return kept[i].Genotype.ID < kept[j].Genotype.ID
		})
	} else {
		sort.SliceStable(kept, func(i, j int) bool {
			vi := kept[i].Objectives.Values()[objectiveIndex]
			vj := kept[j].Objectives.Values()[objectiveIndex]
			if vi != vj {
				return vi < vj
			}
			return kept[i].Genotype.ID < kept[j].Genotype.ID
		})
	}

	records := make([]model.FrontierRecord, 0, len(kept))
	for i, d := range kept {
		records = append(records, model.FrontierRecord{
			Rank:       i + 1,
			Design:     Decode(buildings, d.Genotype),
			Objectives: d.Objectives,
			Genotype:   d.Genotype,
		})
	}
	return records, nil
}

// Decode expands a genotype into its human-meaningful design: connected
// building IDs, the hub installations, and the stand-alone portfolios.
func Decode(buildings []model.Building, g model.Genotype) model.DecodedDesign {
	design := model.DecodedDesign{
		ConnectedBuildings: make([]string, 0),
		Hub:                append([]model.Installation(nil), g.Hub.Installations...),
	}
	for i, b := range buildings {
		if i < len(g.Connected) && g.Connected[i] {
			design.ConnectedBuildings = append(design.ConnectedBuildings, b.ID)
		}
	}
	for _, bp := range g.Standalone {
		design.Standalone = append(design.Standalone, model.BuildingPortfolio{
			BuildingID: bp.BuildingID,
			Portfolio: model.Portfolio{
				Installations: append([]model.Installation(nil), bp.Portfolio.Installations...),
			},
		})
	}
	return design
}

// dedupe keeps the first of any group of designs whose objectives coincide
// within the tolerance in every component. Input order is the archive's
// canonical objective order, so the survivor of a group is stable.
func dedupe(designs []evo.ScoredDesign, tolerance float64) []evo.ScoredDesign {
	kept := make([]evo.ScoredDesign, 0, len(designs))
	for _, candidate := range designs {
		duplicate := false
		for _, existing := range kept {
			if withinTolerance(existing.Objectives, candidate.Objectives, tolerance) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			kept = append(kept, candidate)
		}
	}
	return kept
}

func withinTolerance(a, b model.ObjectiveVector, tolerance float64) bool {
	av, bv := a.Values(), b.Values()
	for i := range av {
		diff := av[i] - bv[i]
		if diff < 0 {
			diff = -diff
		}
		if diff > tolerance {
			return false
		}
	}
	return true
}

// weightedScores normalizes each objective to [0, 1] over the kept set and
// combines them with the given weights, keyed by genotype ID.
func weightedScores(designs []evo.ScoredDesign, weights Weights) map[string]float64 {
	w := weights.values()
	total := 0.0
	for _, v := range w {
		total += v
	}
	if total == 0 {
		w = [4]float64{1, 1, 1, 1}
	}

	lo := designs[0].Objectives.Values()
	hi := designs[0].Objectives.Values()
	for _, d := range designs[1:] {
		values := d.Objectives.Values()
		for i, v := range values {
			if v < lo[i] {
				lo[i] = v
			}
			if v > hi[i] {
				hi[i] = v
			}
		}
	}

	scores := make(map[string]float64, len(designs))
	for _, d := range designs {
		values := d.Objectives.Values()
		score := 0.0
		for i, v := range values {
			span := hi[i] - lo[i]
			if span <= 0 {
				continue
			}
			score += w[i] * (v - lo[i]) / span
		}
		scores[d.Genotype.ID] = score
	}
	return scores
}
