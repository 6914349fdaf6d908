package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"enervolve/internal/model"
)

const runIndexFile = "run_index.json"

// RunConfig is the persisted configuration of one search run, written next
// to its results so any frontier can be traced back to its inputs.
type RunConfig struct {
	RunID                string  `json:"run_id"`
	DatasetDir           string  `json:"dataset_dir,omitempty"`
	PopulationSize       int     `json:"population_size"`
	Generations          int     `json:"generations"`
	CrossoverProbability float64 `json:"crossover_probability"`
	MutationRate         float64 `json:"mutation_rate"`
	StagnationWindow     int     `json:"stagnation_window"`
	UnmetTolerance       float64 `json:"unmet_tolerance"`
	DiscountRate         float64 `json:"discount_rate"`
	Workers              int     `json:"workers"`
	Seed                 int64   `json:"seed"`
}

// RunArtifacts bundles everything one run writes to disk.
type RunArtifacts struct {
	Config      RunConfig                     `json:"config"`
	Frontier    []model.FrontierRecord        `json:"frontier"`
	Diagnostics []model.GenerationDiagnostics `json:"diagnostics,omitempty"`
	Hypervolume float64                       `json:"hypervolume"`
	Evaluations int                           `json:"evaluations"`
}

// WriteRunArtifacts writes the run directory under baseDir: the config, the
// frontier as JSON and CSV, and the per-generation diagnostics trail.
func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.Config.RunID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.Config.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, "config.json"), artifacts.Config); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "frontier.json"), artifacts.Frontier); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "generation_diagnostics.json"), artifacts.Diagnostics); err != nil {
		return "", err
	}
	if err := WriteFrontierCSV(filepath.Join(runDir, "frontier.csv"), artifacts.Frontier); err != nil {
		return "", err
	}

	return runDir, nil
}

// AppendRunIndex adds or replaces one entry in the run index under baseDir.
func AppendRunIndex(baseDir string, entry model.RunRecord) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns the run index sorted newest first. A missing index
// file is an empty index.
func ListRunIndex(baseDir string) ([]model.RunRecord, error) {
	path := filepath.Join(baseDir, runIndexFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []model.RunRecord{}, nil
		}
		return nil, err
	}

	var entries []model.RunRecord
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	type indexedEntry struct {
		entry model.RunRecord
		idx   int
	}
	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		indexed[i] = indexedEntry{entry: entries[i], idx: i}
	}
	sort.Slice(indexed, func(i, j int) bool {
		if indexed[i].entry.CreatedAtUTC == indexed[j].entry.CreatedAtUTC {
			// Prefer later appended entries for equal timestamps.
			return indexed[i].idx > indexed[j].idx
		}
		return indexed[i].entry.CreatedAtUTC > indexed[j].entry.CreatedAtUTC
	})

	sorted := make([]model.RunRecord, 0, len(indexed))
	for _, item := range indexed {
		sorted = append(sorted, item.entry)
	}
	return sorted, nil
}

// ReadFrontier loads the persisted frontier of one run. The second return
// reports whether the run directory held a frontier at all.
func ReadFrontier(baseDir, runID string) ([]model.FrontierRecord, bool, error) {
	path := filepath.Join(baseDir, runID, "frontier.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var frontier []model.FrontierRecord
	if err := json.Unmarshal(data, &frontier); err != nil {
		return nil, false, err
	}
	return frontier, true, nil
}

// ReadDiagnostics loads the per-generation diagnostics trail of one run.
func ReadDiagnostics(baseDir, runID string) ([]model.GenerationDiagnostics, bool, error) {
	path := filepath.Join(baseDir, runID, "generation_diagnostics.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var diagnostics []model.GenerationDiagnostics
	if err := json.Unmarshal(data, &diagnostics); err != nil {
		return nil, false, err
	}
	return diagnostics, true, nil
}

// ReadRunConfig loads the persisted configuration of one run.
func ReadRunConfig(baseDir, runID string) (RunConfig, bool, error) {
	path := filepath.Join(baseDir, runID, "config.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return RunConfig{}, false, nil
		}
		return RunConfig{}, false, err
	}

	var cfg RunConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return RunConfig{}, false, err
	}
	return cfg, true, nil
}

// ExportRunArtifacts copies one run directory to outDir for sharing.
func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}

	src := filepath.Join(baseDir, runID)
	if _, err := os.Stat(src); err != nil {
		return "", err
	}

	dst := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}

	files := []string{"config.json", "frontier.json", "frontier.csv", "generation_diagnostics.json"}
	for _, file := range files {
		if err := copyFile(filepath.Join(src, file), filepath.Join(dst, file)); err != nil {
			return "", err
		}
	}
	return dst, nil
}

// WriteFrontierCSV writes the flat spreadsheet view of a frontier: one row
// per design with its objectives, connected buildings, and hub selection.
func WriteFrontierCSV(path string, frontier []model.FrontierRecord) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	header := []string{
		"rank", "design_id",
		"annualized_cost", "emissions", "heat_rejection", "unmet_demand",
		"connected_buildings", "hub_installations",
	}
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, record := range frontier {
		row := []string{
			strconv.Itoa(record.Rank),
			record.Genotype.ID,
			formatFloat(record.Objectives.AnnualizedCost),
			formatFloat(record.Objectives.Emissions),
			formatFloat(record.Objectives.HeatRejection),
			formatFloat(record.Objectives.UnmetDemand),
			strings.Join(record.Design.ConnectedBuildings, "|"),
			formatInstallations(record.Design.Hub),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatInstallations(installations []model.Installation) string {
	parts := make([]string, 0, len(installations))
	for _, inst := range installations {
		parts = append(parts, inst.TechnologyID+":"+formatFloat(inst.Capacity))
	}
	return strings.Join(parts, "|")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
