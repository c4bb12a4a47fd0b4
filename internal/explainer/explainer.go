// Package explainer holds the result of matching correlation pairs
// against a causal graph: one stats row per checked pair, one
// explanation row per successful strategy, and the derived summary
// counts.
package explainer

import (
	"fmt"
	"sync"
	"time"

	"github.com/raphaelgruber/corrx/internal/corr"
	"github.com/raphaelgruber/corrx/internal/graph"
)

// Strategy column names. These double as the stats-table flag columns
// and the expl-table strategy tags.
const (
	StrategyAB           = "a-b"
	StrategyBA           = "b-a"
	StrategyCommonParent = "common parent"
	StrategyExplainedSet = "explained set"
	StrategyAXB          = "a-x-b"
	StrategyBXA          = "b-x-a"
	StrategySharedReg    = "shared regulator"
	StrategySharedTarget = "shared target"
	StrategyReactome     = "reactome paths"
)

// Strategies lists the flag columns in evaluation order.
var Strategies = []string{
	StrategyAB,
	StrategyBA,
	StrategyCommonParent,
	StrategyExplainedSet,
	StrategyAXB,
	StrategyBXA,
	StrategySharedReg,
	StrategySharedTarget,
	StrategyReactome,
}

// Bool returns a pointer to v, for filling tri-state flags.
func Bool(v bool) *bool { return &v }

// PairKey builds the unordered-pair key used across both tables. A and
// B are already in matrix iteration order, so the key is stable.
func PairKey(a, b string) string {
	return a + "," + b
}

// PairRow is one row of the stats table. Strategy flags are tri-state:
// nil means not evaluated, which is the case for every strategy flag of
// a not-in-graph pair and for all non-short-circuited flags of an
// a-priori explained pair.
type PairRow struct {
	Pair   string  `json:"pair"`
	AgA    string  `json:"agA"`
	AgB    string  `json:"agB"`
	ZScore float64 `json:"z_score"`
	AgANS  string  `json:"agA_ns,omitempty"`
	AgAID  string  `json:"agA_id,omitempty"`
	AgBNS  string  `json:"agB_ns,omitempty"`
	AgBID  string  `json:"agB_id,omitempty"`

	NotInGraph bool  `json:"not in graph"`
	Explained  *bool `json:"explained"`

	// Errored marks a pair whose classification died mid-way. Such a
	// row counts as unexplained and carries no strategy flags, so it
	// stays distinguishable from a pair every strategy rejected.
	Errored bool `json:"errored,omitempty"`

	AB           *bool `json:"a-b"`
	BA           *bool `json:"b-a"`
	CommonParent *bool `json:"common parent"`
	ExplainedSet *bool `json:"explained set"`
	AXB          *bool `json:"a-x-b"`
	BXA          *bool `json:"b-x-a"`
	SharedReg    *bool `json:"shared regulator"`
	SharedTarget *bool `json:"shared target"`
	Reactome     *bool `json:"reactome paths"`
}

// Flag returns the tri-state flag for a strategy column name.
func (r *PairRow) Flag(strategy string) *bool {
	switch strategy {
	case StrategyAB:
		return r.AB
	case StrategyBA:
		return r.BA
	case StrategyCommonParent:
		return r.CommonParent
	case StrategyExplainedSet:
		return r.ExplainedSet
	case StrategyAXB:
		return r.AXB
	case StrategyBXA:
		return r.BXA
	case StrategySharedReg:
		return r.SharedReg
	case StrategySharedTarget:
		return r.SharedTarget
	case StrategyReactome:
		return r.Reactome
	}
	return nil
}

// SetFlag sets the tri-state flag for a strategy column name.
func (r *PairRow) SetFlag(strategy string, v bool) error {
	switch strategy {
	case StrategyAB:
		r.AB = &v
	case StrategyBA:
		r.BA = &v
	case StrategyCommonParent:
		r.CommonParent = &v
	case StrategyExplainedSet:
		r.ExplainedSet = &v
	case StrategyAXB:
		r.AXB = &v
	case StrategyBXA:
		r.BXA = &v
	case StrategySharedReg:
		r.SharedReg = &v
	case StrategySharedTarget:
		r.SharedTarget = &v
	case StrategyReactome:
		r.Reactome = &v
	default:
		return fmt.Errorf("explainer: unknown strategy column %q", strategy)
	}
	return nil
}

func isTrue(p *bool) bool  { return p != nil && *p }
func isFalse(p *bool) bool { return p != nil && !*p }

// ExplRow is one row of the expl table: a single successful strategy
// for a pair, with the payload that strategy produced. Exactly one of
// Statements and Nodes is set, except for the a-priori explained-set
// marker which carries neither.
type ExplRow struct {
	Pair     string            `json:"pair"`
	AgA      string            `json:"agA"`
	AgB      string            `json:"agB"`
	ZScore   float64           `json:"z_score"`
	Strategy string            `json:"expl type"`
	Stmts    []graph.Statement `json:"statements,omitempty"`
	Nodes    []string          `json:"nodes,omitempty"`
}

// Meta records the inputs and settings a run was produced from.
type Meta struct {
	RunID            string       `json:"run_id,omitempty"`
	Tag              string       `json:"tag,omitempty"`
	GraphType        string       `json:"graph_type"`
	Signed           bool         `json:"signed"`
	SDRange          corr.SDRange `json:"sd_range"`
	GraphDate        string       `json:"graph_date,omitempty"`
	CorrDate         string       `json:"corr_date,omitempty"`
	GraphPath        string       `json:"graph_path,omitempty"`
	CorrPath         string       `json:"corr_path,omitempty"`
	ExplainedSetPath string       `json:"explained_set_path,omitempty"`
	ReactomePath     string       `json:"reactome_path,omitempty"`
	Chunks           int          `json:"chunks,omitempty"`
	SampleSize       int          `json:"sample_size,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
}

// SDString returns the file tag for the run's SD window ("3-4SD",
// "3+SD" or "RND").
func (m Meta) SDString() string {
	return m.SDRange.String()
}

// Explainer bundles the two result tables with run metadata. Rows are
// append-only during a run; the summary is derived lazily and cached,
// never mutating the tables.
type Explainer struct {
	Meta  Meta
	Stats []PairRow
	Expls []ExplRow

	summaryOnce sync.Once
	summary     map[string]int
	summaryKeys []string
}

// New creates an empty explainer for the given run metadata.
func New(meta Meta) *Explainer {
	return &Explainer{Meta: meta}
}

// Len returns the number of checked pairs.
func (e *Explainer) Len() int { return len(e.Stats) }

// HasData reports whether any rows were recorded.
func (e *Explainer) HasData() bool {
	return len(e.Stats) > 0 || len(e.Expls) > 0
}

// ExplsFor returns the explanation rows recorded for a pair key.
func (e *Explainer) ExplsFor(key string) []ExplRow {
	var out []ExplRow
	for _, r := range e.Expls {
		if r.Pair == key {
			out = append(out, r)
		}
	}
	return out
}
