// Package run orchestrates a full matching run: load inputs, match,
// persist the artifact and register the run.
package run

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/raphaelgruber/corrx/internal/corr"
	"github.com/raphaelgruber/corrx/internal/db"
	"github.com/raphaelgruber/corrx/internal/explainer"
	"github.com/raphaelgruber/corrx/internal/graph"
	"github.com/raphaelgruber/corrx/internal/match"
	"github.com/raphaelgruber/corrx/internal/metrics"
	"github.com/raphaelgruber/corrx/internal/models"
	"github.com/raphaelgruber/corrx/internal/ontology"
	"github.com/raphaelgruber/corrx/internal/store"
)

// Run phases, used in PhaseError.
const (
	PhaseLoad     = "load"
	PhaseDispatch = "dispatch"
	PhasePersist  = "persist"
	PhaseRegister = "register"
)

// PhaseError wraps a failure with the phase it happened in, so callers
// can report where a run died without parsing messages.
type PhaseError struct {
	Phase string
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}

// Options configures one run end to end.
type Options struct {
	GraphPath        string
	GraphType        string // validated against the loaded dump
	CorrPath         string
	SDRange          corr.SDRange
	ExplainedSetPath string
	ReactomePath     string
	OntologyPath     string
	Chunks           int
	Workers          int
	SampleSize       int
	SampleSeed       int64
	Tag              string

	// Out is the artifact destination, a file path or s3:// URL.
	Out       string
	Overwrite bool

	// Registry is optional; when set the run is recorded there.
	Registry *db.Client
}

// Runner executes a run and exposes the matcher's progress while the
// dispatch phase is active.
type Runner struct {
	opts    Options
	metrics *metrics.Collector
	matcher *match.Matcher
}

// New prepares a runner. The collector may be nil.
func New(opts Options, collector *metrics.Collector) *Runner {
	if collector == nil {
		collector = metrics.NewCollector()
	}
	return &Runner{opts: opts, metrics: collector}
}

// Progress reports matched pairs and the total, zero before dispatch.
func (r *Runner) Progress() (checked, total int64) {
	if r.matcher == nil {
		return 0, 0
	}
	return r.matcher.Progress()
}

// Execute runs load, dispatch, persist and register in order. It never
// leaves a partial artifact: persist happens only after the matcher
// produced a complete explainer. The returned explainer is nil on error.
func (r *Runner) Execute(ctx context.Context) (*explainer.Explainer, error) {
	runID := shortID()
	log := slog.With("run_id", runID, "sd_range", r.opts.SDRange.String())

	expl, err := r.execute(ctx, runID, log)
	if err != nil {
		if r.opts.Registry != nil {
			if dbErr := r.opts.Registry.FailRun(ctx, runID, err.Error()); dbErr != nil {
				log.Error("failed to record run failure", "error", dbErr)
			}
		}
		return nil, err
	}
	return expl, nil
}

func (r *Runner) execute(ctx context.Context, runID string, log *slog.Logger) (*explainer.Explainer, error) {
	// Load phase
	loadStart := time.Now()
	g, err := graph.Load(r.opts.GraphPath)
	if err != nil {
		return nil, &PhaseError{Phase: PhaseLoad, Err: err}
	}
	if r.opts.GraphType != "" && g.Type() != r.opts.GraphType {
		return nil, &PhaseError{
			Phase: PhaseLoad,
			Err:   fmt.Errorf("graph type mismatch: dump is %q, requested %q", g.Type(), r.opts.GraphType),
		}
	}
	r.metrics.RecordTiming(metrics.OpGraphLoad, time.Since(loadStart))

	corrStart := time.Now()
	matrix, err := corr.Load(r.opts.CorrPath)
	if err != nil {
		return nil, &PhaseError{Phase: PhaseLoad, Err: err}
	}
	r.metrics.RecordTiming(metrics.OpCorrLoad, time.Since(corrStart))

	if r.opts.SampleSize > 0 {
		matrix = matrix.Sample(r.opts.SampleSize, r.opts.SampleSeed)
		log.Info("sampled correlation pairs", "max_pairs", r.opts.SampleSize, "kept", matrix.CountPairs())
	}

	var explainedSet map[string]struct{}
	if r.opts.ExplainedSetPath != "" {
		if explainedSet, err = match.LoadExplainedSet(r.opts.ExplainedSetPath); err != nil {
			return nil, &PhaseError{Phase: PhaseLoad, Err: err}
		}
	}
	var parents ontology.ParentLookup
	if r.opts.OntologyPath != "" {
		h, err := ontology.LoadHierarchy(r.opts.OntologyPath)
		if err != nil {
			return nil, &PhaseError{Phase: PhaseLoad, Err: err}
		}
		parents = h.Lookup()
	}
	var reactome *ontology.Reactome
	if r.opts.ReactomePath != "" {
		if reactome, err = ontology.LoadReactome(r.opts.ReactomePath); err != nil {
			return nil, &PhaseError{Phase: PhaseLoad, Err: err}
		}
	}

	// Register before dispatch so a crashed run is visible as failed.
	if r.opts.Registry != nil {
		_, err := r.opts.Registry.CreateRun(ctx, models.RunInput{
			ID:        runID,
			Tag:       optStr(r.opts.Tag),
			SDRange:   r.opts.SDRange.String(),
			GraphType: g.Type(),
			Signed:    g.Signed(),
			GraphPath: optStr(r.opts.GraphPath),
			CorrPath:  optStr(r.opts.CorrPath),
		})
		if err != nil {
			return nil, &PhaseError{Phase: PhaseRegister, Err: err}
		}
	}

	// Dispatch phase
	matcher, err := match.NewMatcher(match.Options{
		Matrix:       matrix,
		Graph:        g,
		SDRange:      r.opts.SDRange,
		ExplainedSet: explainedSet,
		Parents:      parents,
		Reactome:     reactome,
		Chunks:       r.opts.Chunks,
		Workers:      r.opts.Workers,
		Meta: explainer.Meta{
			RunID:            runID,
			Tag:              r.opts.Tag,
			GraphType:        g.Type(),
			GraphDate:        g.Date(),
			GraphPath:        r.opts.GraphPath,
			CorrPath:         r.opts.CorrPath,
			ExplainedSetPath: r.opts.ExplainedSetPath,
			ReactomePath:     r.opts.ReactomePath,
			Chunks:           r.opts.Chunks,
			SampleSize:       r.opts.SampleSize,
		},
	})
	if err != nil {
		return nil, &PhaseError{Phase: PhaseDispatch, Err: err}
	}
	r.matcher = matcher

	matchStart := time.Now()
	expl, err := matcher.Match(ctx)
	if err != nil {
		return nil, &PhaseError{Phase: PhaseDispatch, Err: err}
	}
	r.metrics.RecordThroughput(metrics.OpMatch, time.Since(matchStart), int64(expl.Len()))

	// Persist phase
	persistStart := time.Now()
	out := r.outPath(runID)
	backend, key, err := store.ForURL(ctx, out)
	if err != nil {
		return nil, &PhaseError{Phase: PhasePersist, Err: err}
	}
	blob, err := expl.Bytes()
	if err != nil {
		return nil, &PhaseError{Phase: PhasePersist, Err: err}
	}
	if err := backend.Put(ctx, key, blob, r.opts.Overwrite); err != nil {
		return nil, &PhaseError{Phase: PhasePersist, Err: err}
	}
	r.metrics.RecordTiming(metrics.OpPersist, time.Since(persistStart))
	log.Info("persisted explainer artifact", "dest", out, "bytes", len(blob))

	// Register phase
	if r.opts.Registry != nil {
		dbStart := time.Now()
		err := r.opts.Registry.CompleteRun(ctx, runID, out,
			expl.Len(), expl.Summary()[explainer.KeyExplained])
		r.metrics.RecordTiming(metrics.OpDBQuery, time.Since(dbStart))
		if err != nil {
			return nil, &PhaseError{Phase: PhaseRegister, Err: err}
		}
	}

	return expl, nil
}

// outPath resolves the artifact destination. A destination ending in
// ".json.gz" is used verbatim; anything else is treated as a base
// directory or prefix and a range-tagged file name is appended.
func (r *Runner) outPath(runID string) string {
	out := r.opts.Out
	if strings.HasSuffix(out, ".json.gz") {
		return out
	}
	name := fmt.Sprintf("%s_expl_%s.json.gz", r.opts.SDRange.String(), runID)
	if out == "" {
		return name
	}
	return strings.TrimSuffix(out, "/") + "/" + name
}

// shortID returns an 8-char run identifier.
func shortID() string {
	return uuid.NewString()[:8]
}

func optStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
