package genotype

import "enervolve/internal/model"

// Clone deep-copies a genotype so variation operators never alias parent
// slices.
func Clone(g model.Genotype) model.Genotype {
	out := g
	out.Connected = append([]bool(nil), g.Connected...)
	out.Hub = clonePortfolio(g.Hub)
	out.Standalone = make([]model.BuildingPortfolio, 0, len(g.Standalone))
	for _, bp := range g.Standalone {
		out.Standalone = append(out.Standalone, model.BuildingPortfolio{
			BuildingID: bp.BuildingID,
			Portfolio:  clonePortfolio(bp.Portfolio),
		})
	}
	return out
}

func clonePortfolio(p model.Portfolio) model.Portfolio {
	return model.Portfolio{
		Installations: append([]model.Installation(nil), p.Installations...),
	}
}
