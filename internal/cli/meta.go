package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/raphaelgruber/corrx/internal/corr"
	"github.com/raphaelgruber/corrx/internal/explainer"
	"github.com/raphaelgruber/corrx/internal/run"
	"github.com/raphaelgruber/corrx/internal/store"
)

var metaRegister bool

var metaCmd = &cobra.Command{
	Use:   "meta <plan.yaml>",
	Short: "Run a sweep of matching runs from a YAML plan",
	Long: `Run one matching run per z-score window described in a YAML plan.

The plan divides [sd.start, sd.stop] into sd.steps evenly spaced cut
points and matches each consecutive window, optionally adding an
open-ended top window and a random-sample baseline run.

Example plan:

  graph: graph.json.gz
  z_score: corr.csv.gz
  out: s3://results/depmap
  sd:
    start: 2
    stop: 5
    steps: 7
    open_top: true
  random_sample: 100000

A window whose artifact already exists is skipped unless the plan sets
overwrite: true.`,
	Args: cobra.ExactArgs(1),
	RunE: runMeta,
}

func init() {
	metaCmd.Flags().BoolVar(&metaRegister, "register", false, "record each run in the registry")
}

// metaPlan is the YAML sweep description.
type metaPlan struct {
	Graph        string `yaml:"graph"`
	GraphType    string `yaml:"graph_type"`
	ZScore       string `yaml:"z_score"`
	ExplainedSet string `yaml:"explained_set"`
	Reactome     string `yaml:"reactome"`
	Ontology     string `yaml:"ontology"`
	Out          string `yaml:"out"`
	Tag          string `yaml:"tag"`
	Overwrite    bool   `yaml:"overwrite"`
	Chunks       int    `yaml:"chunks"`
	Workers      int    `yaml:"workers"`

	SD struct {
		Start   float64 `yaml:"start"`
		Stop    float64 `yaml:"stop"`
		Steps   int     `yaml:"steps"`
		OpenTop bool    `yaml:"open_top"`
	} `yaml:"sd"`

	RandomSample int   `yaml:"random_sample"`
	Seed         int64 `yaml:"seed"`
}

func loadPlan(path string) (*metaPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}
	var plan metaPlan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("parse plan: %w", err)
	}

	if plan.Graph == "" || plan.ZScore == "" {
		return nil, fmt.Errorf("plan must set graph and z_score")
	}
	if plan.SD.Steps == 0 && plan.RandomSample == 0 {
		return nil, fmt.Errorf("plan must set sd windows or random_sample")
	}
	if plan.SD.Steps != 0 {
		if plan.SD.Steps < 2 {
			return nil, fmt.Errorf("sd.steps must be at least 2, got %d", plan.SD.Steps)
		}
		if plan.SD.Stop <= plan.SD.Start {
			return nil, fmt.Errorf("sd.stop must exceed sd.start")
		}
	}
	return &plan, nil
}

// planRanges expands the plan into the z-score windows to run. The cut
// points are evenly spaced, each consecutive pair forms one window.
func planRanges(plan *metaPlan) []corr.SDRange {
	n := plan.SD.Steps
	if n == 0 {
		return nil
	}
	step := (plan.SD.Stop - plan.SD.Start) / float64(n-1)

	var ranges []corr.SDRange
	for i := 0; i < n-1; i++ {
		lo := plan.SD.Start + float64(i)*step
		hi := plan.SD.Start + float64(i+1)*step
		ranges = append(ranges, corr.NewSDRange(lo, hi))
	}
	if plan.SD.OpenTop {
		ranges = append(ranges, corr.NewOpenSDRange(plan.SD.Stop))
	}
	return ranges
}

func runMeta(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	plan, err := loadPlan(args[0])
	if err != nil {
		return err
	}

	baseOpts := run.Options{
		GraphPath:        plan.Graph,
		GraphType:        plan.GraphType,
		CorrPath:         plan.ZScore,
		ExplainedSetPath: plan.ExplainedSet,
		ReactomePath:     plan.Reactome,
		OntologyPath:     plan.Ontology,
		Chunks:           plan.Chunks,
		Workers:          plan.Workers,
		Tag:              plan.Tag,
		Out:              plan.Out,
		Overwrite:        plan.Overwrite,
	}
	if metaRegister {
		client, err := connectRegistry(ctx)
		if err != nil {
			return err
		}
		baseOpts.Registry = client
	}

	ranges := planRanges(plan)

	// The random-sample baseline matches an unwindowed subsample, used
	// to compare explanation rates against the z-score windows.
	type job struct {
		opts run.Options
		name string
	}
	jobs := make([]job, 0, len(ranges)+1)
	for _, r := range ranges {
		opts := baseOpts
		opts.SDRange = r
		jobs = append(jobs, job{opts: opts, name: r.String()})
	}
	if plan.RandomSample > 0 {
		opts := baseOpts
		opts.SampleSize = plan.RandomSample
		opts.SampleSeed = plan.Seed
		jobs = append(jobs, job{opts: opts, name: opts.SDRange.String()})
	}

	fmt.Printf("Sweep: %d runs\n", len(jobs))

	failed := 0
	for i, j := range jobs {
		fmt.Printf("\n[%d/%d] %s\n", i+1, len(jobs), j.name)

		expl, err := run.New(j.opts, nil).Execute(ctx)
		switch {
		case errors.Is(err, store.ErrExists):
			slog.Info("artifact exists, skipping", "window", j.name)
			fmt.Println("  Skipped: artifact already exists")
			continue
		case err != nil:
			failed++
			slog.Error("sweep run failed", "window", j.name, "error", err)
			fmt.Printf("  Failed: %v\n", err)
			continue
		}

		summary := expl.Summary()
		fmt.Printf("  Checked %d pairs, %d explained\n",
			summary[explainer.KeyTotalChecked], summary[explainer.KeyExplained])
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d sweep runs failed", failed, len(jobs))
	}
	return nil
}
