package explainer

import (
	"bytes"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/raphaelgruber/corrx/internal/corr"
	"github.com/raphaelgruber/corrx/internal/graph"
)

// testExplainer builds five pairs covering the interesting summary
// buckets: direct, sr-only, axb-no-react, a-priori, not-in-graph.
func testExplainer() *Explainer {
	e := New(Meta{
		GraphType: graph.TypeUnsigned,
		SDRange:   corr.NewSDRange(3, 4),
		CreatedAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	})

	f := Bool(false)
	direct := PairRow{
		Pair: PairKey("A", "B"), AgA: "A", AgB: "B", ZScore: 3.1,
		Explained: Bool(true), AB: Bool(true), BA: f,
		CommonParent: f, ExplainedSet: f, AXB: f, BXA: f,
		SharedReg: f, SharedTarget: f,
	}
	srOnly := PairRow{
		Pair: PairKey("A", "C"), AgA: "A", AgB: "C", ZScore: -3.5,
		Explained: Bool(true), AB: f, BA: f,
		CommonParent: f, ExplainedSet: f, AXB: f, BXA: f,
		SharedReg: Bool(true), SharedTarget: f,
	}
	axb := PairRow{
		Pair: PairKey("B", "C"), AgA: "B", AgB: "C", ZScore: 3.9,
		Explained: Bool(true), AB: f, BA: f,
		CommonParent: f, ExplainedSet: f, AXB: Bool(true), BXA: f,
		SharedReg: f, SharedTarget: f,
	}
	apriori := PairRow{
		Pair: PairKey("A", "D"), AgA: "A", AgB: "D", ZScore: 3.2,
		Explained: Bool(true), ExplainedSet: Bool(true),
	}
	missing := PairRow{
		Pair: PairKey("C", "E"), AgA: "C", AgB: "E", ZScore: 3.0,
		NotInGraph: true,
	}
	unexplained := PairRow{
		Pair: PairKey("D", "E"), AgA: "D", AgB: "E", ZScore: 3.3,
		Explained: f, AB: f, BA: f,
		CommonParent: f, ExplainedSet: f, AXB: f, BXA: f,
		SharedReg: f, SharedTarget: f,
	}
	e.Stats = append(e.Stats, direct, srOnly, axb, apriori, missing, unexplained)

	e.Expls = append(e.Expls,
		ExplRow{Pair: direct.Pair, AgA: "A", AgB: "B", ZScore: 3.1, Strategy: StrategyAB,
			Stmts: []graph.Statement{{Type: "Activation", Hash: 42, Belief: 0.9}}},
		ExplRow{Pair: srOnly.Pair, AgA: "A", AgB: "C", ZScore: -3.5, Strategy: StrategySharedReg,
			Nodes: []string{"X"}},
		ExplRow{Pair: axb.Pair, AgA: "B", AgB: "C", ZScore: 3.9, Strategy: StrategyAXB,
			Nodes: []string{"Y", "Z"}},
		ExplRow{Pair: apriori.Pair, AgA: "A", AgB: "D", ZScore: 3.2, Strategy: StrategyExplainedSet},
	)
	return e
}

func TestExplainer_Summary(t *testing.T) {
	e := testExplainer()
	s := e.Summary()

	want := map[string]int{
		KeyTotalChecked:   6,
		KeyNotInGraph:     1,
		KeyExplained:      4,
		KeyUnexplained:    1,
		StrategyAB:        1,
		StrategySharedReg: 1,
		StrategyAXB:       1,
		StrategyExplainedSet: 1,
		KeyDirect:         1,
		KeyIntermediate:   1,
		KeyExplExclSR:     3,
		KeySROnly:         1,
		KeyAXBTypeNoReact: 1,
	}
	for key, n := range want {
		if s[key] != n {
			t.Errorf("Summary()[%q] = %d, want %d", key, s[key], n)
		}
	}
	if s[StrategyBA] != 0 || s[StrategyReactome] != 0 {
		t.Errorf("zero columns nonzero: b-a=%d reactome=%d", s[StrategyBA], s[StrategyReactome])
	}
}

func TestExplainer_SummaryIdempotent(t *testing.T) {
	e := testExplainer()
	first := make(map[string]int, len(e.Summary()))
	for k, v := range e.Summary() {
		first[k] = v
	}
	statsBefore := len(e.Stats)

	again := e.Summary()
	if !reflect.DeepEqual(first, again) {
		t.Errorf("Summary() changed between calls:\n%v\n%v", first, again)
	}
	if len(e.Stats) != statsBefore {
		t.Error("Summary() mutated the stats table")
	}
}

func TestExplainer_SummaryKeysOrdered(t *testing.T) {
	e := testExplainer()
	keys := e.SummaryKeys()
	if len(keys) != len(e.Summary()) {
		t.Fatalf("SummaryKeys() has %d keys, summary has %d", len(keys), len(e.Summary()))
	}
	if keys[len(keys)-1] != KeyAXBTypeNoReact {
		t.Errorf("last key = %q, want %q", keys[len(keys)-1], KeyAXBTypeNoReact)
	}
}

func TestExplainer_RoundTrip(t *testing.T) {
	e := testExplainer()

	var buf bytes.Buffer
	if err := e.Encode(&buf); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	got, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if !reflect.DeepEqual(got.Stats, e.Stats) {
		t.Error("stats table changed across round trip")
	}
	if !reflect.DeepEqual(got.Expls, e.Expls) {
		t.Error("expl table changed across round trip")
	}
	if !got.Meta.CreatedAt.Equal(e.Meta.CreatedAt) || got.Meta.GraphType != e.Meta.GraphType {
		t.Errorf("meta changed across round trip: %+v", got.Meta)
	}
	if !reflect.DeepEqual(got.Summary(), e.Summary()) {
		t.Error("summary differs across round trip")
	}
}

func TestDecode_BadInput(t *testing.T) {
	if _, err := Decode(strings.NewReader("not gzip")); err == nil {
		t.Error("Decode() accepted plain text")
	}
}

func TestExplainer_WriteStatsCSV(t *testing.T) {
	e := testExplainer()
	var buf bytes.Buffer
	if err := e.WriteStatsCSV(&buf); err != nil {
		t.Fatalf("WriteStatsCSV() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1+len(e.Stats) {
		t.Fatalf("stats csv has %d lines, want %d", len(lines), 1+len(e.Stats))
	}
	if !strings.Contains(lines[0], "shared regulator") {
		t.Errorf("header = %q", lines[0])
	}
	// Not-in-graph row keeps its flags empty, not False.
	for _, line := range lines[1:] {
		if strings.HasPrefix(line, "\"C,E\"") {
			if strings.Contains(line, "False,False,False") {
				t.Errorf("not-in-graph row has evaluated flags: %q", line)
			}
			return
		}
	}
	t.Error("not-in-graph row missing from csv")
}

func TestExplainer_WriteExplCSV(t *testing.T) {
	e := testExplainer()
	var buf bytes.Buffer
	if err := e.WriteExplCSV(&buf); err != nil {
		t.Fatalf("WriteExplCSV() error = %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Y;Z") {
		t.Errorf("node payload missing: %q", out)
	}
	if !strings.Contains(out, "42") {
		t.Errorf("statement hash payload missing: %q", out)
	}
}

func TestExplainer_String(t *testing.T) {
	e := testExplainer()
	out := e.String()
	if !strings.HasPrefix(out, "Explanation") {
		t.Errorf("String() = %q", out)
	}
	if !strings.Contains(out, KeyTotalChecked+": ") {
		t.Errorf("String() missing total checked line:\n%s", out)
	}
}

func TestPairRow_Flags(t *testing.T) {
	var r PairRow
	for _, name := range Strategies {
		if r.Flag(name) != nil {
			t.Errorf("Flag(%q) non-nil on zero row", name)
		}
		if err := r.SetFlag(name, true); err != nil {
			t.Errorf("SetFlag(%q) error = %v", name, err)
		}
		if p := r.Flag(name); p == nil || !*p {
			t.Errorf("Flag(%q) after SetFlag = %v", name, p)
		}
	}
	if err := r.SetFlag("bogus", true); err == nil {
		t.Error("SetFlag(bogus) accepted")
	}
}

func TestExplsFor(t *testing.T) {
	e := testExplainer()
	rows := e.ExplsFor(PairKey("A", "B"))
	if len(rows) != 1 || rows[0].Strategy != StrategyAB {
		t.Errorf("ExplsFor(A,B) = %+v", rows)
	}
	if rows := e.ExplsFor(PairKey("C", "E")); rows != nil {
		t.Errorf("ExplsFor(not-in-graph pair) = %+v", rows)
	}
}
