package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"enervolve/internal/stats"
	"enervolve/internal/storage"
	enerapi "enervolve/pkg/enervolve"
)

const (
	runsDir    = "runs"
	exportsDir = "exports"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "run":
		return runRun(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "frontier":
		return runFrontier(ctx, args[1:])
	case "diagnostics":
		return runDiagnostics(ctx, args[1:])
	case "summary":
		return runSummary(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func newClient(storeKind, dbPath string) (*enerapi.Client, error) {
	return enerapi.New(enerapi.Options{
		StoreKind:  storeKind,
		DBPath:     dbPath,
		RunsDir:    runsDir,
		ExportsDir: exportsDir,
	})
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", "", "JSON run config path; flags override its fields")
	datasetDir := fs.String("dataset", "", "dataset directory with buildings.csv, demands.csv and catalog.json")
	population := fs.Int("pop", 0, "population size")
	generations := fs.Int("gens", 0, "generation budget")
	crossover := fs.Float64("crossover", 0, "crossover probability")
	mutationRate := fs.Float64("mutation-rate", 0, "per-gene mutation rate")
	connProbability := fs.Float64("conn-prob", 0, "initial connection probability for candidate buildings")
	techFlip := fs.Float64("tech-flip", 0, "technology flip probability during mutation")
	stagnationWindow := fs.Int("stagnation-window", 0, "stop after this many generations without frontier progress (0 disables)")
	unmetTolerance := fs.Float64("unmet-tolerance", 0, "annual unmet demand a design may carry and still count as feasible")
	workers := fs.Int("workers", 0, "parallel evaluation workers")
	seed := fs.Int64("seed", 0, "random seed")
	sortKey := fs.String("sort", "", "frontier order: cost|emissions|heat_rejection|unmet_demand|weighted")
	dedupeTolerance := fs.Float64("dedupe-tolerance", 0, "objective tolerance for collapsing near-identical designs")
	wCost := fs.Float64("w-cost", 0, "cost weight for weighted ordering")
	wEmissions := fs.Float64("w-emissions", 0, "emissions weight for weighted ordering")
	wHeat := fs.Float64("w-heat", 0, "heat rejection weight for weighted ordering")
	wUnmet := fs.Float64("w-unmet", 0, "unmet demand weight for weighted ordering")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "enervolve.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	setFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})

	req, err := loadOrDefaultRunRequest(*configPath)
	if err != nil {
		return err
	}
	if *configPath == "" {
		req = enerapi.RunRequest{
			DatasetDir:            *datasetDir,
			Population:            *population,
			Generations:           *generations,
			CrossoverProbability:  *crossover,
			MutationRate:          *mutationRate,
			ConnectionProbability: *connProbability,
			TechFlipProbability:   *techFlip,
			StagnationWindow:      *stagnationWindow,
			UnmetTolerance:        *unmetTolerance,
			Workers:               *workers,
			Seed:                  *seed,
			SortKey:               *sortKey,
			DedupeTolerance:       *dedupeTolerance,
		}
		req.Weights.Cost = *wCost
		req.Weights.Emissions = *wEmissions
		req.Weights.HeatRejection = *wHeat
		req.Weights.UnmetDemand = *wUnmet
	} else {
		err := overrideFromFlags(&req, setFlags, map[string]any{
			"dataset":           *datasetDir,
			"pop":               *population,
			"gens":              *generations,
			"crossover":         *crossover,
			"mutation-rate":     *mutationRate,
			"conn-prob":         *connProbability,
			"tech-flip":         *techFlip,
			"stagnation-window": *stagnationWindow,
			"unmet-tolerance":   *unmetTolerance,
			"workers":           *workers,
			"seed":              *seed,
			"sort":              *sortKey,
			"dedupe-tolerance":  *dedupeTolerance,
			"w-cost":            *wCost,
			"w-emissions":       *wEmissions,
			"w-heat":            *wHeat,
			"w-unmet":           *wUnmet,
		})
		if err != nil {
			return err
		}
	}
	if req.DatasetDir == "" {
		return errors.New("run requires --dataset or a config file with dataset_dir")
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Run(ctx, req)
	if err != nil {
		return err
	}

	fmt.Printf("run completed run_id=%s dataset=%s evaluations=%s hypervolume=%s\n",
		summary.RunID,
		req.DatasetDir,
		humanize.Comma(int64(summary.Evaluations)),
		humanize.CommafWithDigits(summary.Hypervolume, 4),
	)
	fmt.Printf("generations=%d frontier_size=%d\n", summary.Generations, summary.FrontierSize)
	if summary.NoFeasibleDesign {
		fmt.Println("no feasible design found; the dataset cannot cover its demand within tolerance")
	}
	fmt.Printf("artifacts_dir=%s\n", filepath.Clean(summary.ArtifactsDir))
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max runs to list")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "enervolve.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	entries, err := client.Runs(ctx, enerapi.RunsRequest{Limit: *limit})
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}
	for _, e := range entries {
		fmt.Printf("run_id=%s created_at=%s seed=%d pop=%d gens=%d frontier_size=%d hypervolume=%s\n",
			e.RunID,
			e.CreatedAtUTC,
			e.Seed,
			e.PopulationSize,
			e.Generations,
			e.FrontierSize,
			humanize.CommafWithDigits(e.Hypervolume, 4),
		)
	}
	return nil
}

func runFrontier(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("frontier", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show the frontier of the most recent run from the run index")
	limit := fs.Int("limit", 50, "max frontier rows to print (<=0 for all)")
	jsonOut := fs.Bool("json", false, "emit frontier records as JSON")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "enervolve.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	records, err := client.Frontier(ctx, enerapi.FrontierRequest{
		RunID:  *runID,
		Latest: *latest,
		Limit:  *limit,
	})
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("no frontier records")
		return nil
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	for _, rec := range records {
		hub := make([]string, 0, len(rec.Design.Hub))
		for _, inst := range rec.Design.Hub {
			hub = append(hub, fmt.Sprintf("%s:%s", inst.TechnologyID, humanize.CommafWithDigits(inst.Capacity, 2)))
		}
		fmt.Printf("rank=%d design_id=%s cost=%s emissions=%s heat_rejection=%s unmet_demand=%s connected=%d hub=[%s]\n",
			rec.Rank,
			rec.Genotype.ID,
			humanize.CommafWithDigits(rec.Objectives.AnnualizedCost, 2),
			humanize.CommafWithDigits(rec.Objectives.Emissions, 2),
			humanize.CommafWithDigits(rec.Objectives.HeatRejection, 2),
			humanize.CommafWithDigits(rec.Objectives.UnmetDemand, 2),
			len(rec.Design.ConnectedBuildings),
			strings.Join(hub, " "),
		)
	}
	return nil
}

func runDiagnostics(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("diagnostics", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show diagnostics for the most recent run from the run index")
	limit := fs.Int("limit", 50, "max generations to print (<=0 for all)")
	jsonOut := fs.Bool("json", false, "emit diagnostics as JSON")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "enervolve.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	rows, err := client.Diagnostics(ctx, enerapi.DiagnosticsRequest{
		RunID:  *runID,
		Latest: *latest,
		Limit:  *limit,
	})
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("no diagnostics records")
		return nil
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	for _, row := range rows {
		fmt.Printf("generation=%d evaluations=%d archive_size=%d feasible=%d hypervolume=%s best_cost=%s best_emissions=%s\n",
			row.Generation,
			row.Evaluations,
			row.ArchiveSize,
			row.FeasibleCount,
			humanize.CommafWithDigits(row.Hypervolume, 4),
			humanize.CommafWithDigits(row.BestCost, 2),
			humanize.CommafWithDigits(row.BestEmissions, 2),
		)
	}
	return nil
}

func runSummary(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("summary", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "summarize the most recent run from the run index")
	jsonOut := fs.Bool("json", false, "emit the summary as JSON")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "enervolve.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	records, err := client.Frontier(ctx, enerapi.FrontierRequest{RunID: *runID, Latest: *latest})
	if err != nil {
		return err
	}
	summaries := stats.SummarizeFrontier(records)

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summaries)
	}
	fmt.Printf("frontier_size=%d\n", len(records))
	for _, s := range summaries {
		fmt.Printf("objective=%s min=%s max=%s mean=%s std=%s\n",
			s.Name,
			humanize.CommafWithDigits(s.Min, 4),
			humanize.CommafWithDigits(s.Max, 4),
			humanize.CommafWithDigits(s.Mean, 4),
			humanize.CommafWithDigits(s.Std, 4),
		)
	}
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "export the most recent run from the run index")
	outDir := fs.String("out", exportsDir, "destination directory")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "enervolve.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	exported, err := client.Export(ctx, enerapi.ExportRequest{
		RunID:  *runID,
		Latest: *latest,
		OutDir: *outDir,
	})
	if err != nil {
		return err
	}
	fmt.Printf("exported run_id=%s dir=%s\n", exported.RunID, exported.Directory)
	return nil
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: enervolvectl <run|runs|frontier|diagnostics|summary|export> [flags]", msg)
}
