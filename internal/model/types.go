package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// DemandCategory names one class of hourly end-use demand.
type DemandCategory string

const (
	DemandHeating     DemandCategory = "heating"
	DemandCooling     DemandCategory = "cooling"
	DemandElectricity DemandCategory = "electricity"
	DemandProcess     DemandCategory = "process"
)

// DemandCategories returns all categories in canonical order.
func DemandCategories() []DemandCategory {
	return []DemandCategory{DemandHeating, DemandCooling, DemandElectricity, DemandProcess}
}

// Location is a site coordinate in the project's planar reference system.
type Location struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Building holds the immutable per-building inputs of a search run. Demand
// series are fixed hourly vectors over the representative period, keyed by
// category; absent categories mean zero demand.
type Building struct {
	ID               string                       `json:"id"`
	Location         Location                     `json:"location"`
	CandidateConnect bool                         `json:"candidate_connect"`
	Demand           map[DemandCategory][]float64 `json:"demand"`
}

// ServedCategories returns the demand categories with any nonzero demand,
// in canonical order.
func (b Building) ServedCategories() []DemandCategory {
	out := make([]DemandCategory, 0, len(b.Demand))
	for _, category := range DemandCategories() {
		series, ok := b.Demand[category]
		if !ok {
			continue
		}
		for _, v := range series {
			if v > 0 {
				out = append(out, category)
				break
			}
		}
	}
	return out
}

// TechnologyKind classifies catalog entries.
type TechnologyKind string

const (
	KindRenewable  TechnologyKind = "renewable"
	KindConversion TechnologyKind = "conversion"
	KindStorage    TechnologyKind = "storage"
)

// TechnologyScope restricts where a technology may be installed.
type TechnologyScope string

const (
	ScopeNetwork  TechnologyScope = "network"
	ScopeBuilding TechnologyScope = "building"
	ScopeAny      TechnologyScope = "any"
)

// Technology is one read-only catalog entry. Costs are per installed unit;
// GHG and heat-rejection factors are per unit of dispatched output.
type Technology struct {
	ID                  string           `json:"id"`
	Kind                TechnologyKind   `json:"kind"`
	Scope               TechnologyScope  `json:"scope"`
	Serves              []DemandCategory `json:"serves"`
	SiteConstrained     bool             `json:"site_constrained"`
	CapitalCostPerUnit  float64          `json:"capital_cost_per_unit"`
	FixedCapitalCost    float64          `json:"fixed_capital_cost"`
	LifetimeYears       int              `json:"lifetime_years"`
	OperatingCostPerMWh float64          `json:"operating_cost_per_mwh"`
	Efficiency          float64          `json:"efficiency"`
	GHGFactor           float64          `json:"ghg_factor"`
	HeatRejectionFactor float64          `json:"heat_rejection_factor"`
	MinCapacity         float64          `json:"min_capacity"`
	MaxCapacity         float64          `json:"max_capacity"`
}

// ServesCategory reports whether the technology can meet the given category.
func (t Technology) ServesCategory(category DemandCategory) bool {
	for _, c := range t.Serves {
		if c == category {
			return true
		}
	}
	return false
}

// SitePotential is the installable ceiling and hourly availability of a
// site-constrained technology at one location. HourlyPotential values are
// per-unit-capacity availability factors in [0, 1].
type SitePotential struct {
	LocationID      string    `json:"location_id"`
	TechnologyID    string    `json:"technology_id"`
	MaxCapacity     float64   `json:"max_capacity"`
	HourlyPotential []float64 `json:"hourly_potential"`
}

// Installation pairs one selected technology with its installed capacity.
type Installation struct {
	TechnologyID string  `json:"technology_id"`
	Capacity     float64 `json:"capacity"`
}

// Portfolio is the ordered technology selection of one hub or stand-alone
// building. Installations stay sorted by technology ID so genotypes have a
// canonical byte representation.
type Portfolio struct {
	Installations []Installation `json:"installations"`
}

// BuildingPortfolio binds a stand-alone portfolio to its building.
type BuildingPortfolio struct {
	BuildingID string    `json:"building_id"`
	Portfolio  Portfolio `json:"portfolio"`
}

// Genotype is one complete candidate design: the topology bitset over
// candidate buildings, the shared hub portfolio for the connected set, and
// one stand-alone portfolio per unconnected building (sorted by building ID).
type Genotype struct {
	VersionedRecord
	ID         string              `json:"id"`
	Connected  []bool              `json:"connected"`
	Hub        Portfolio           `json:"hub"`
	Standalone []BuildingPortfolio `json:"standalone"`
}

// ObjectiveVector is the four-component evaluation result of a design.
// All components are minimized.
type ObjectiveVector struct {
	AnnualizedCost float64 `json:"annualized_cost"`
	Emissions      float64 `json:"emissions"`
	HeatRejection  float64 `json:"heat_rejection"`
	UnmetDemand    float64 `json:"unmet_demand"`
}

// Values returns the objective components in canonical order.
func (o ObjectiveVector) Values() [4]float64 {
	return [4]float64{o.AnnualizedCost, o.Emissions, o.HeatRejection, o.UnmetDemand}
}

// DecodedDesign is the human-meaningful form of a genotype: which buildings
// connect to the shared hub, and which technologies are installed where.
type DecodedDesign struct {
	ConnectedBuildings []string            `json:"connected_buildings"`
	Hub                []Installation      `json:"hub"`
	Standalone         []BuildingPortfolio `json:"standalone"`
}

// FrontierRecord is one exported non-dominated design.
type FrontierRecord struct {
	Rank       int             `json:"rank"`
	Design     DecodedDesign   `json:"design"`
	Objectives ObjectiveVector `json:"objectives"`
	Genotype   Genotype        `json:"genotype"`
}

// GenerationDiagnostics summarizes one generation of the search.
type GenerationDiagnostics struct {
	Generation        int     `json:"generation"`
	Evaluations       int     `json:"evaluations"`
	ArchiveSize       int     `json:"archive_size"`
	FeasibleCount     int     `json:"feasible_count"`
	Hypervolume       float64 `json:"hypervolume"`
	BestCost          float64 `json:"best_cost"`
	BestEmissions     float64 `json:"best_emissions"`
	BestHeatRejection float64 `json:"best_heat_rejection"`
	BestUnmetDemand   float64 `json:"best_unmet_demand"`
}

// RunRecord is the persisted identity and outcome of one search run.
type RunRecord struct {
	VersionedRecord
	RunID          string  `json:"run_id"`
	CreatedAtUTC   string  `json:"created_at_utc"`
	Seed           int64   `json:"seed"`
	PopulationSize int     `json:"population_size"`
	Generations    int     `json:"generations"`
	FrontierSize   int     `json:"frontier_size"`
	Hypervolume    float64 `json:"hypervolume"`
}
