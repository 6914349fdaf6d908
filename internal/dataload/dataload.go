// Package dataload reads the reference dataset of a search run: building
// metadata and hourly demand series from CSV, the technology catalog from
// JSON, and geospatial site potentials from CSV.
package dataload

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/gocarina/gocsv"

	"enervolve/internal/catalog"
	"enervolve/internal/model"
)

// Conventional file names inside a dataset directory.
const (
	BuildingsFile  = "buildings.csv"
	DemandsFile    = "demands.csv"
	CatalogFile    = "catalog.json"
	PotentialsFile = "potentials.csv"
)

// Dataset is one fully loaded reference dataset, ready to be validated and
// turned into a catalog adapter plus building list.
type Dataset struct {
	Buildings    []model.Building
	Technologies []model.Technology
	Potentials   []model.SitePotential
	DiscountRate float64
}

type buildingRow struct {
	ID               string  `csv:"id"`
	X                float64 `csv:"x"`
	Y                float64 `csv:"y"`
	CandidateConnect bool    `csv:"candidate_connect"`
}

type demandRow struct {
	BuildingID string  `csv:"building_id"`
	Category   string  `csv:"category"`
	Hour       int     `csv:"hour"`
	Value      float64 `csv:"value"`
}

type potentialRow struct {
	LocationID   string  `csv:"location_id"`
	TechnologyID string  `csv:"technology_id"`
	MaxCapacity  float64 `csv:"max_capacity"`
	Hour         int     `csv:"hour"`
	Factor       float64 `csv:"factor"`
}

type catalogFile struct {
	DiscountRate float64            `json:"discount_rate"`
	Technologies []model.Technology `json:"technologies"`
}

// LoadDataset reads the four conventional files from one directory. The
// potentials file is optional; a dataset without geospatial data simply has
// no installable site-constrained capacity.
func LoadDataset(dir string) (*Dataset, error) {
	buildings, err := LoadBuildings(filepath.Join(dir, BuildingsFile), filepath.Join(dir, DemandsFile))
	if err != nil {
		return nil, err
	}
	technologies, discountRate, err := LoadCatalog(filepath.Join(dir, CatalogFile))
	if err != nil {
		return nil, err
	}

	var potentials []model.SitePotential
	potentialsPath := filepath.Join(dir, PotentialsFile)
	if _, statErr := os.Stat(potentialsPath); statErr == nil {
		potentials, err = LoadPotentials(potentialsPath)
		if err != nil {
			return nil, err
		}
	}

	return &Dataset{
		Buildings:    buildings,
		Technologies: technologies,
		Potentials:   potentials,
		DiscountRate: discountRate,
	}, nil
}

// LoadBuildings joins the building metadata file with the long-format
// demand file. Every (building, category) series must cover hours 0..n-1
// without gaps or duplicates.
func LoadBuildings(buildingsPath, demandsPath string) ([]model.Building, error) {
	var rows []buildingRow
	if err := unmarshalCSV(buildingsPath, &rows); err != nil {
		return nil, err
	}

	buildings := make([]model.Building, 0, len(rows))
	index := map[string]int{}
	for _, row := range rows {
		if row.ID == "" {
			return nil, fmt.Errorf("%s: building with empty id", buildingsPath)
		}
		if _, dup := index[row.ID]; dup {
			return nil, fmt.Errorf("%s: duplicate building %s", buildingsPath, row.ID)
		}
		index[row.ID] = len(buildings)
		buildings = append(buildings, model.Building{
			ID:               row.ID,
			Location:         model.Location{X: row.X, Y: row.Y},
			CandidateConnect: row.CandidateConnect,
			Demand:           map[model.DemandCategory][]float64{},
		})
	}

	var demands []demandRow
	if err := unmarshalCSV(demandsPath, &demands); err != nil {
		return nil, err
	}

	type seriesKey struct {
		building string
		category model.DemandCategory
	}
	series := map[seriesKey]map[int]float64{}
	for _, row := range demands {
		if _, ok := index[row.BuildingID]; !ok {
			return nil, fmt.Errorf("%s: demand for unknown building %s", demandsPath, row.BuildingID)
		}
		category := model.DemandCategory(row.Category)
		if !knownCategory(category) {
			return nil, fmt.Errorf("%s: unknown demand category %q", demandsPath, row.Category)
		}
		if row.Hour < 0 {
			return nil, fmt.Errorf("%s: negative hour %d for building %s", demandsPath, row.Hour, row.BuildingID)
		}
		key := seriesKey{row.BuildingID, category}
		hours := series[key]
		if hours == nil {
			hours = map[int]float64{}
			series[key] = hours
		}
		if _, dup := hours[row.Hour]; dup {
			return nil, fmt.Errorf("%s: duplicate hour %d for building %s category %s", demandsPath, row.Hour, row.BuildingID, category)
		}
		hours[row.Hour] = row.Value
	}

	keys := make([]seriesKey, 0, len(series))
	for key := range series {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].building != keys[j].building {
			return keys[i].building < keys[j].building
		}
		return keys[i].category < keys[j].category
	})
	for _, key := range keys {
		hours := series[key]
		values := make([]float64, len(hours))
		for h, v := range hours {
			if h >= len(values) {
				return nil, fmt.Errorf("%s: building %s category %s has a gap before hour %d", demandsPath, key.building, key.category, h)
			}
			values[h] = v
		}
		buildings[index[key.building]].Demand[key.category] = values
	}
	return buildings, nil
}

// LoadCatalog reads the technology catalog and discount rate.
func LoadCatalog(path string) ([]model.Technology, float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("read catalog: %w", err)
	}
	var file catalogFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, 0, fmt.Errorf("parse %s: %w", path, err)
	}
	return file.Technologies, file.DiscountRate, nil
}

// LoadPotentials reads the long-format site potential file. Availability
// factors must lie in [0, 1]; hours must cover 0..n-1 per entry.
func LoadPotentials(path string) ([]model.SitePotential, error) {
	var rows []potentialRow
	if err := unmarshalCSV(path, &rows); err != nil {
		return nil, err
	}

	type entryKey struct {
		location   string
		technology string
	}
	type entry struct {
		maxCapacity float64
		hours       map[int]float64
	}
	entries := map[entryKey]*entry{}
	for _, row := range rows {
		if row.Factor < 0 || row.Factor > 1 {
			return nil, fmt.Errorf("%s: availability factor must be in [0, 1]: %v at %s/%s hour %d",
				path, row.Factor, row.LocationID, row.TechnologyID, row.Hour)
		}
		key := entryKey{row.LocationID, row.TechnologyID}
		e := entries[key]
		if e == nil {
			e = &entry{maxCapacity: row.MaxCapacity, hours: map[int]float64{}}
			entries[key] = e
		}
		if _, dup := e.hours[row.Hour]; dup {
			return nil, fmt.Errorf("%s: duplicate hour %d for %s/%s", path, row.Hour, row.LocationID, row.TechnologyID)
		}
		e.hours[row.Hour] = row.Factor
	}

	keys := make([]entryKey, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].location != keys[j].location {
			return keys[i].location < keys[j].location
		}
		return keys[i].technology < keys[j].technology
	})

	potentials := make([]model.SitePotential, 0, len(keys))
	for _, key := range keys {
		e := entries[key]
		values := make([]float64, len(e.hours))
		for h, v := range e.hours {
			if h < 0 || h >= len(values) {
				return nil, fmt.Errorf("%s: %s/%s has a gap before hour %d", path, key.location, key.technology, h)
			}
			values[h] = v
		}
		potentials = append(potentials, model.SitePotential{
			LocationID:      key.location,
			TechnologyID:    key.technology,
			MaxCapacity:     e.maxCapacity,
			HourlyPotential: values,
		})
	}
	return potentials, nil
}

// Validate cross-checks the dataset before a run: every building needs at
// least one demand series, series lengths must agree, and potentials must
// reference known buildings and technologies. Violations wrap
// catalog.ErrIncompleteReferenceData.
func (d *Dataset) Validate() error {
	if len(d.Buildings) == 0 {
		return fmt.Errorf("%w: no buildings", catalog.ErrIncompleteReferenceData)
	}
	if len(d.Technologies) == 0 {
		return fmt.Errorf("%w: no technologies", catalog.ErrIncompleteReferenceData)
	}

	hours := 0
	for _, b := range d.Buildings {
		if len(b.Demand) == 0 {
			return fmt.Errorf("%w: building %s has no demand series", catalog.ErrIncompleteReferenceData, b.ID)
		}
		for category, series := range b.Demand {
			if hours == 0 {
				hours = len(series)
				continue
			}
			if len(series) != hours {
				return fmt.Errorf("%w: building %s %s series has %d hours, want %d",
					catalog.ErrIncompleteReferenceData, b.ID, category, len(series), hours)
			}
		}
	}

	buildingIDs := map[string]bool{}
	for _, b := range d.Buildings {
		buildingIDs[b.ID] = true
	}
	technologyIDs := map[string]bool{}
	for _, tech := range d.Technologies {
		technologyIDs[tech.ID] = true
	}
	for _, p := range d.Potentials {
		if !buildingIDs[p.LocationID] {
			return fmt.Errorf("%w: potential references unknown location %s", catalog.ErrIncompleteReferenceData, p.LocationID)
		}
		if !technologyIDs[p.TechnologyID] {
			return fmt.Errorf("%w: potential references unknown technology %s", catalog.ErrIncompleteReferenceData, p.TechnologyID)
		}
	}
	return nil
}

func knownCategory(category model.DemandCategory) bool {
	for _, c := range model.DemandCategories() {
		if c == category {
			return true
		}
	}
	return false
}

func unmarshalCSV(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := gocsv.UnmarshalBytes(data, out); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
