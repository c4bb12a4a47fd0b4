package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/raphaelgruber/corrx/internal/corr"
	"github.com/raphaelgruber/corrx/internal/explainer"
	"github.com/raphaelgruber/corrx/internal/graph"
	"github.com/raphaelgruber/corrx/internal/metrics"
	"github.com/raphaelgruber/corrx/internal/run"
)

var (
	matchCorrPath     string
	matchGraphPath    string
	matchGraphType    string
	matchSDRange      string
	matchExplainedSet string
	matchReactome     string
	matchOntology     string
	matchTag          string
	matchChunks       int
	matchWorkers      int
	matchSample       int
	matchSeed         int64
	matchOut          string
	matchOverwrite    bool
	matchRegister     bool
	matchNoUI         bool
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Match a correlation matrix against a knowledge graph",
	Long: `Match every correlated pair in a z-score matrix against the knowledge
graph and save the resulting explainer artifact.

Examples:
  corrx match --z-score corr.csv.gz --graph graph.json.gz --sd-range 3,4
  corrx match --z-score corr.csv.gz --graph graph.json.gz --sd-range 5 \
    --explained-set mitocarta.csv --reactome reactome.json.gz
  corrx match --z-score corr.csv.gz --graph graph.json.gz --sample 100000 \
    --out s3://results/depmap --register`,
	RunE: runMatch,
}

func init() {
	matchCmd.Flags().StringVar(&matchCorrPath, "z-score", "", "correlation z-score matrix (csv or csv.gz)")
	matchCmd.Flags().StringVar(&matchGraphPath, "graph", "", "knowledge graph dump (json or json.gz)")
	matchCmd.Flags().StringVar(&matchGraphType, "graph-type", "", "expected graph type: unsigned or signed")
	matchCmd.Flags().StringVar(&matchSDRange, "sd-range", "", "z-score window, 'lo,hi' or open-ended 'lo'")
	matchCmd.Flags().StringVar(&matchExplainedSet, "explained-set", "", "csv of entities explained a priori")
	matchCmd.Flags().StringVar(&matchReactome, "reactome", "", "reactome pathway dump (json or json.gz)")
	matchCmd.Flags().StringVar(&matchOntology, "ontology", "", "entity hierarchy dump (json or json.gz)")
	matchCmd.Flags().StringVar(&matchTag, "tag", "", "free-form tag recorded with the run")
	matchCmd.Flags().IntVar(&matchChunks, "chunks", 0, "number of work chunks (0 = auto)")
	matchCmd.Flags().IntVar(&matchWorkers, "workers", 0, "concurrent workers (0 = all cores)")
	matchCmd.Flags().IntVar(&matchSample, "sample", 0, "randomly sample at most this many pairs")
	matchCmd.Flags().Int64Var(&matchSeed, "seed", 0, "sampling seed")
	matchCmd.Flags().StringVar(&matchOut, "out", "", "artifact destination: file, directory or s3:// URL")
	matchCmd.Flags().BoolVar(&matchOverwrite, "overwrite", false, "replace an existing artifact")
	matchCmd.Flags().BoolVar(&matchRegister, "register", false, "record the run in the registry")
	matchCmd.Flags().BoolVar(&matchNoUI, "no-ui", false, "disable the interactive progress bar")

}

func runMatch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	opts, err := matchOptions(ctx)
	if err != nil {
		return err
	}

	collector := metrics.NewCollector()
	runner := run.New(opts, collector)

	expl, err := executeWithProgress(ctx, runner)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(expl.String())

	if verbose {
		printRunStats(collector.Snapshot())
	}
	return nil
}

// fallback returns the flag value, or the config default when the flag
// was not given.
func fallback(flag, def string) string {
	if flag != "" {
		return flag
	}
	return def
}

// matchOptions validates the flags and builds the run options. Flags
// fall back to the CORRX_* config defaults, and input files are checked
// up front so a typo fails before the graph loads.
func matchOptions(ctx context.Context) (run.Options, error) {
	var opts run.Options

	corrPath := fallback(matchCorrPath, cfg.CorrPath)
	graphPath := fallback(matchGraphPath, cfg.GraphPath)
	reactomePath := fallback(matchReactome, cfg.ReactomePath)
	ontologyPath := fallback(matchOntology, cfg.OntologyPath)
	if corrPath == "" {
		return opts, fmt.Errorf("no z-score matrix: set --z-score or CORRX_Z_SCORE")
	}
	if graphPath == "" {
		return opts, fmt.Errorf("no graph dump: set --graph or CORRX_GRAPH")
	}

	if matchGraphType != "" {
		if err := graph.ValidateType(matchGraphType); err != nil {
			return opts, err
		}
	}

	// A run is either windowed or an explicit random sample; matching
	// the full matrix by accident is never what the caller wants.
	if matchSDRange == "" && matchSample == 0 {
		return opts, fmt.Errorf("set --sd-range or --sample: %w", corr.ErrNoSDBounds)
	}

	var sdRange corr.SDRange
	if matchSDRange != "" {
		var err error
		if sdRange, err = corr.ParseSDRange(matchSDRange); err != nil {
			return opts, err
		}
	}

	if matchChunks < 0 {
		return opts, fmt.Errorf("invalid --chunks %d: must be non-negative", matchChunks)
	}
	if matchSample < 0 {
		return opts, fmt.Errorf("invalid --sample %d: must be non-negative", matchSample)
	}

	for _, path := range []string{corrPath, graphPath, matchExplainedSet, reactomePath, ontologyPath} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			return opts, fmt.Errorf("input not readable: %w", err)
		}
	}

	out := matchOut
	if out == "" {
		out = cfg.OutputBase
	}

	opts = run.Options{
		GraphPath:        graphPath,
		GraphType:        matchGraphType,
		CorrPath:         corrPath,
		SDRange:          sdRange,
		ExplainedSetPath: matchExplainedSet,
		ReactomePath:     reactomePath,
		OntologyPath:     ontologyPath,
		Chunks:           matchChunks,
		Workers:          matchWorkers,
		SampleSize:       matchSample,
		SampleSeed:       matchSeed,
		Tag:              matchTag,
		Out:              out,
		Overwrite:        matchOverwrite,
	}

	if matchRegister {
		registry, err := connectRegistry(ctx)
		if err != nil {
			return opts, err
		}
		opts.Registry = registry
	}

	return opts, nil
}

// executeWithProgress runs the matcher, with the interactive progress
// bar when stdout is a terminal.
func executeWithProgress(ctx context.Context, runner *run.Runner) (*explainer.Explainer, error) {
	if matchNoUI || !term.IsTerminal(int(os.Stdout.Fd())) {
		return runner.Execute(ctx)
	}
	return runMatchProgress(ctx, runner)
}

// printRunStats displays per-phase timing from the collector.
func printRunStats(snap metrics.Snapshot) {
	fmt.Printf("Run statistics\n")
	fmt.Printf("═══════════════════════════════════════\n")
	fmt.Printf("Elapsed: %.1f seconds\n", snap.UptimeSeconds)

	phases := []struct {
		name string
		op   *metrics.OperationSnapshot
	}{
		{"Graph load", snap.GraphLoad},
		{"Corr load", snap.CorrLoad},
		{"Match", snap.Match},
		{"Persist", snap.Persist},
		{"DB query", snap.DBQuery},
	}
	for _, p := range phases {
		if p.op == nil {
			continue
		}
		fmt.Printf("\n%s:\n", p.name)
		fmt.Printf("  Calls: %d, Total: %dms\n", p.op.Count, p.op.TotalTimeMs)
		if p.op.TotalItems != nil {
			fmt.Printf("  Pairs: %d total, avg %.0f per call\n", *p.op.TotalItems, *p.op.AvgItems)
		}
	}
}
