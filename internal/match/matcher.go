package match

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/raphaelgruber/corrx/internal/corr"
	"github.com/raphaelgruber/corrx/internal/explainer"
	"github.com/raphaelgruber/corrx/internal/graph"
	"github.com/raphaelgruber/corrx/internal/ontology"
)

// maxChunks caps how many chunks a run is split into. Requests above
// the cap clamp, they do not fail.
const maxChunks = 512

// defaultChunks is the chunk count used when the caller does not ask
// for a specific split.
const defaultChunks = 256

// ErrIncomplete indicates the run produced fewer stats rows than the
// matrix has pairs, which means results were lost.
var ErrIncomplete = errors.New("match: stats row count does not cover all pairs")

// Options configures a matching run. Matrix and Graph are required;
// everything else has a usable zero value.
type Options struct {
	Matrix *corr.Matrix
	Graph  *graph.Graph

	// SDRange is the magnitude window the matrix is filtered to
	// before matching. A range without bounds leaves the matrix as is.
	SDRange corr.SDRange

	// ExplainedSet holds entities whose pairings are a priori
	// explained. A pair with both endpoints in the set short-circuits
	// every strategy.
	ExplainedSet map[string]struct{}

	// Parents resolves common ontology ancestors. Nil disables the
	// common-parent strategy (its column reads false, not null).
	Parents ontology.ParentLookup

	// Reactome enables the shared-pathway strategy. Nil leaves the
	// reactome column null on every row.
	Reactome *ontology.Reactome

	// Chunks is the target chunk count, clamped to maxChunks.
	Chunks int

	// Workers caps concurrent chunk evaluation. Zero means GOMAXPROCS.
	Workers int

	Meta explainer.Meta
}

// Matcher runs one matching pass and exposes progress counters for
// observers polling from another goroutine.
type Matcher struct {
	opts    Options
	checked atomic.Int64
	total   atomic.Int64
}

// NewMatcher validates options and prepares a run.
func NewMatcher(opts Options) (*Matcher, error) {
	if opts.Matrix == nil {
		return nil, errors.New("match: correlation matrix is required")
	}
	if opts.Graph == nil {
		return nil, errors.New("match: graph is required")
	}
	return &Matcher{opts: opts}, nil
}

// Progress returns how many pairs have been checked and the total the
// run will check. Total is zero until Match has estimated the stream.
func (m *Matcher) Progress() (checked, total int64) {
	return m.checked.Load(), m.total.Load()
}

// chunkPlan derives the chunk size from the estimated pair count and
// the requested chunk count. Requests above maxChunks clamp; at the
// cap the size is bumped by one so the cap is never exceeded.
func chunkPlan(estPairs, requested int) (nChunks, chunkSize int) {
	nChunks = requested
	if nChunks <= 0 {
		nChunks = defaultChunks
	}
	if nChunks > maxChunks {
		nChunks = maxChunks
	}
	chunkSize = estPairs / nChunks
	if chunkSize < 1 {
		chunkSize = 1
	}
	if nChunks == maxChunks {
		chunkSize++
	}
	return nChunks, chunkSize
}

type chunkResult struct {
	stats []explainer.PairRow
	expls []explainer.ExplRow
}

// Match filters the matrix to the SD window, splits the pair stream
// into chunks and classifies every pair. It never returns a partial
// explainer: a worker failure or cancellation fails the whole run.
func (m *Matcher) Match(ctx context.Context) (*explainer.Explainer, error) {
	matrix := m.opts.Matrix
	if m.opts.SDRange.Lower != nil || m.opts.SDRange.Upper != nil {
		matrix = matrix.FilterSDRange(m.opts.SDRange)
	}

	est := matrix.CountPairs()
	m.total.Store(int64(est))

	nChunks, chunkSize := chunkPlan(est, m.opts.Chunks)
	workers := m.opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	slog.Info("starting correlation matching",
		"pairs", est,
		"chunks", nChunks,
		"chunk_size", chunkSize,
		"workers", workers,
		"sd_range", m.opts.SDRange.String(),
		"signed", m.opts.Graph.Signed())
	start := time.Now()

	env := &evalEnv{graph: m.opts.Graph, parents: m.opts.Parents, reactome: m.opts.Reactome}
	active := strategies(env)

	out := explainer.New(m.opts.Meta)
	out.Meta.SDRange = m.opts.SDRange
	out.Meta.Signed = m.opts.Graph.Signed()
	if out.Meta.CreatedAt.IsZero() {
		out.Meta.CreatedAt = time.Now().UTC()
	}

	var mu sync.Mutex
	parent := ctx
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for chunk := range matrix.Chunks(chunkSize) {
		if err := ctx.Err(); err != nil {
			break
		}
		g.Go(func() error {
			res := m.matchChunk(env, active, chunk)
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			mu.Lock()
			out.Stats = append(out.Stats, res.stats...)
			out.Expls = append(out.Expls, res.expls...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("match: %w", err)
	}
	if err := parent.Err(); err != nil {
		return nil, fmt.Errorf("match: %w", err)
	}

	if len(out.Stats) != est {
		return nil, fmt.Errorf("%w: %d rows for %d pairs", ErrIncomplete, len(out.Stats), est)
	}
	slog.Info("finished correlation matching",
		"pairs", est,
		"explained", out.Summary()[explainer.KeyExplained],
		"elapsed", time.Since(start))
	return out, nil
}

func (m *Matcher) matchChunk(env *evalEnv, active []strategy, chunk []corr.Pair) chunkResult {
	var res chunkResult
	for _, p := range chunk {
		row, expls := m.matchPair(env, active, p)
		res.stats = append(res.stats, row)
		res.expls = append(res.expls, expls...)
		m.checked.Add(1)
	}
	return res
}

// matchPair classifies a single pair. A panicking strategy must not
// take down the run, so the pair is recorded unexplained instead.
func (m *Matcher) matchPair(env *evalEnv, active []strategy, p corr.Pair) (row explainer.PairRow, expls []explainer.ExplRow) {
	row = explainer.PairRow{
		Pair:   explainer.PairKey(p.A, p.B),
		AgA:    p.A,
		AgB:    p.B,
		ZScore: p.Z,
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("strategy panic, recording pair unexplained",
				"pair", row.Pair, "panic", r)
			// Partially evaluated flags and expl rows would leave the
			// row claiming evidence its Explained column denies, so
			// the whole classification is discarded.
			expls = nil
			row = explainer.PairRow{
				Pair: row.Pair, AgA: row.AgA, AgB: row.AgB, ZScore: row.ZScore,
				AgANS: row.AgANS, AgAID: row.AgAID,
				AgBNS: row.AgBNS, AgBID: row.AgBID,
				Errored:   true,
				Explained: explainer.Bool(false),
			}
		}
	}()

	g := env.graph
	if !g.HasNode(p.A) || !g.HasNode(p.B) {
		row.NotInGraph = true
		return row, nil
	}

	if ann, ok := g.Annotation(p.A); ok {
		row.AgANS, row.AgAID = ann.Namespace, ann.ID
	}
	if ann, ok := g.Annotation(p.B); ok {
		row.AgBNS, row.AgBID = ann.Namespace, ann.ID
	}

	// A-priori explained pairs skip every strategy.
	if m.apriori(p.A, p.B) {
		row.ExplainedSet = explainer.Bool(true)
		row.Explained = explainer.Bool(true)
		for _, s := range active {
			row.SetFlag(s.name, false)
		}
		expls = append(expls, explainer.ExplRow{
			Pair: row.Pair, AgA: p.A, AgB: p.B, ZScore: p.Z,
			Strategy: explainer.StrategyExplainedSet,
		})
		return row, expls
	}
	row.ExplainedSet = explainer.Bool(false)

	anyHit := false
	for _, s := range active {
		pl := s.eval(env, p.A, p.B, p.Z)
		row.SetFlag(s.name, pl.ok)
		if !pl.ok {
			continue
		}
		anyHit = true
		agA, agB := p.A, p.B
		if s.name == explainer.StrategyBA || s.name == explainer.StrategyBXA {
			agA, agB = p.B, p.A
		}
		expls = append(expls, explainer.ExplRow{
			Pair: row.Pair, AgA: agA, AgB: agB, ZScore: p.Z,
			Strategy: s.name, Stmts: pl.stmts, Nodes: pl.nodes,
		})
	}
	row.Explained = explainer.Bool(anyHit)
	return row, expls
}

func (m *Matcher) apriori(a, b string) bool {
	if len(m.opts.ExplainedSet) == 0 {
		return false
	}
	_, aIn := m.opts.ExplainedSet[a]
	_, bIn := m.opts.ExplainedSet[b]
	return aIn && bIn
}
