package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"

	"dcgp/internal/regression"
	"dcgp/internal/search"
	"dcgp/pkg/dcgp"
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
	case "kernels":
		return runKernels(args[1:])
	case "show":
		return runShow(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: dcgpctl <run|kernels|show> [flags]", msg)
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	datasetPath := fs.String("dataset", "", "path to a JSON dataset file ({\"points\":[[...]],\"labels\":[[...]]})")
	nIn := fs.Int("nin", 1, "number of dataset input features")
	dOut := fs.Int("dout", 1, "number of output components")
	rows := fs.Int("r", 1, "expression rows")
	cols := fs.Int("c", 8, "expression columns")
	levelsBack := fs.Int("l", 8, "expression levels-back")
	arity := fs.String("arity", "2", "comma-separated per-column kernel arity, or a single value applied to every column")
	kernelNames := fs.String("kernels", "sum,diff,mul,div", "comma-separated kernel names")
	nEph := fs.Int("neph", 1, "number of embedded real constants")
	constLow := fs.Float64("const-low", -10, "lower bound for embedded constants")
	constHigh := fs.Float64("const-high", 10, "upper bound for embedded constants")
	population := fs.Int("pop", 50, "population size")
	generations := fs.Int("gens", 100, "generation count")
	maxMut := fs.Int("max-mut", 4, "maximum active-gene mutations per offspring")
	seed := fs.Int64("seed", 1, "rng seed")
	verbosity := fs.Int("verbosity", 1, "generation log cadence (0 disables)")
	parallel := fs.Bool("parallel", false, "evaluate fitness across workers")
	workers := fs.Int("workers", 4, "worker count when -parallel is set")
	storeKind := fs.String("store", "memory", "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "dcgp.db", "sqlite database path")
	name := fs.String("name", "", "problem name, used to key the persisted fitness cache")
	extraInfo := fs.String("extra-info", "", "free-form note recorded with the run")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *datasetPath == "" {
		return errors.New("run requires -dataset")
	}

	dataset, err := loadDataset(*datasetPath)
	if err != nil {
		return err
	}
	arities, err := parseArity(*arity, *cols)
	if err != nil {
		return err
	}

	client, err := dcgp.New(dcgp.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Run(ctx, dcgp.RunRequest{
		Dataset:        dataset,
		NIn:            *nIn,
		DOut:           *dOut,
		R:              *rows,
		C:              *cols,
		L:              *levelsBack,
		Arity:          arities,
		Kernels:        splitNames(*kernelNames),
		NEph:           *nEph,
		ConstLow:       *constLow,
		ConstHigh:      *constHigh,
		PopulationSize: *population,
		Generations:    *generations,
		MaxMut:         *maxMut,
		Seed:           *seed,
		Verbosity:      *verbosity,
		Parallel:       *parallel,
		Workers:        *workers,
		Name:           *name,
		ExtraInfo:      *extraInfo,
	})
	if err != nil {
		return err
	}

	fmt.Printf("run completed run_id=%s generations=%d\n", summary.RunID, len(summary.Log))
	printSummary(summary)
	return nil
}

func runShow(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	storeKind := fs.String("store", "memory", "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "dcgp.db", "sqlite database path")
	jsonOut := fs.Bool("json", false, "emit the run summary as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID == "" {
		return errors.New("show requires -run-id")
	}

	client, err := dcgp.New(dcgp.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Show(ctx, *runID)
	if err != nil {
		return err
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}
	printSummary(summary)
	return nil
}

func runKernels(args []string) error {
	fs := flag.NewFlagSet("kernels", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	for _, name := range dcgp.Kernels() {
		fmt.Println(name)
	}
	return nil
}

// printSummary renders a RunSummary's generation log and top expressions.
// Colored "gen=..." prefixes are skipped entirely when stdout isn't a
// terminal, rather than emitting escape codes a pipe or log file would have
// to strip back out.
func printSummary(summary dcgp.RunSummary) {
	colorize := isatty.IsTerminal(os.Stdout.Fd())
	for _, entry := range summary.Log {
		if colorize {
			fmt.Print("\033[2m")
		}
		search.WriteLog(os.Stdout, entry)
		if colorize {
			fmt.Print("\033[0m")
		}
	}
	for _, top := range summary.TopExpressions {
		fmt.Printf("rank=%d loss=%.6g complexity=%.6g expr=%s\n",
			top.Rank, top.Loss, top.Complexity, strings.Join(top.PrettyForm, "; "))
	}
}

func loadDataset(path string) (regression.Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return regression.Dataset{}, err
	}
	var dataset regression.Dataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		return regression.Dataset{}, fmt.Errorf("parse dataset %s: %w", path, err)
	}
	return dataset, nil
}

func splitNames(csv string) []string {
	var out []string
	for _, part := range strings.Split(csv, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseArity(csv string, cols int) ([]int, error) {
	parts := strings.Split(csv, ",")
	values := make([]int, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid -arity value %q: %w", part, err)
		}
		values = append(values, v)
	}
	if len(values) == 0 {
		return nil, errors.New("-arity must list at least one value")
	}
	if len(values) == 1 {
		out := make([]int, cols)
		for i := range out {
			out[i] = values[0]
		}
		return out, nil
	}
	if len(values) != cols {
		return nil, fmt.Errorf("-arity lists %d values, want 1 or %d (columns)", len(values), cols)
	}
	return values, nil
}
