package explainer

import (
	"fmt"
	"strings"
)

// Summary key names for the derived counts.
const (
	KeyTotalChecked   = "total checked"
	KeyUnexplained    = "unexplained"
	KeyExplained      = "explained"
	KeyNotInGraph     = "not in graph"
	KeyDirect         = "complex or direct"
	KeyIntermediate   = "x intermediate"
	KeyExplExclSR     = "explained (excl sr)"
	KeySROnly         = "sr only"
	KeyAXBTypeNoReact = "explained no reactome, direct, apriori"
)

// Summary returns the per-column and derived counts, computed once
// from the stats table and cached. The map is shared; callers must not
// modify it.
func (e *Explainer) Summary() map[string]int {
	e.summarize()
	return e.summary
}

// SummaryKeys returns the summary keys in presentation order.
func (e *Explainer) SummaryKeys() []string {
	e.summarize()
	return e.summaryKeys
}

func (e *Explainer) summarize() {
	e.summaryOnce.Do(func() {
		s := make(map[string]int)
		add := func(key string, n int) {
			s[key] = n
			e.summaryKeys = append(e.summaryKeys, key)
		}

		notInGraph := 0
		explained := 0
		unexplained := 0
		direct := 0
		interm := 0
		anyExclSR := 0
		srOnly := 0
		axbNoReact := 0
		strat := make(map[string]int, len(Strategies))

		for i := range e.Stats {
			r := &e.Stats[i]
			if r.NotInGraph {
				notInGraph++
			}
			if isTrue(r.Explained) {
				explained++
			}
			if isFalse(r.Explained) {
				unexplained++
			}
			for _, name := range Strategies {
				if isTrue(r.Flag(name)) {
					strat[name]++
				}
			}
			if isTrue(r.AB) || isTrue(r.BA) {
				direct++
			}
			if isTrue(r.AXB) || isTrue(r.BXA) {
				interm++
			}

			// Shared regulator split: any other strategy vs sr alone.
			other := isTrue(r.AB) || isTrue(r.BA) || isTrue(r.CommonParent) ||
				isTrue(r.ExplainedSet) || isTrue(r.AXB) || isTrue(r.BXA) ||
				isTrue(r.SharedTarget) || isTrue(r.Reactome)
			if other {
				anyExclSR++
			} else if isTrue(r.SharedReg) {
				srOnly++
			}

			// Intermediate-type pairs with no direct, reactome or
			// a-priori explanation.
			if (isTrue(r.SharedTarget) || isTrue(r.AXB) || isTrue(r.BXA)) &&
				!isTrue(r.AB) && !isTrue(r.BA) &&
				!isTrue(r.ExplainedSet) && !isTrue(r.Reactome) {
				axbNoReact++
			}
		}

		add(KeyNotInGraph, notInGraph)
		add(KeyExplained, explained)
		for _, name := range Strategies {
			add(name, strat[name])
		}
		add(KeyTotalChecked, len(e.Stats))
		add(KeyUnexplained, unexplained)
		add(KeyDirect, direct)
		add(KeyIntermediate, interm)
		add(KeyExplExclSR, anyExclSR)
		add(KeySROnly, srOnly)
		add(KeyAXBTypeNoReact, axbNoReact)

		e.summary = s
	})
}

// String renders the summary as a two-column table.
func (e *Explainer) String() string {
	const pad = 40
	var b strings.Builder
	fmt.Fprintf(&b, "%-*s%s\n", pad, "Explanation", "count")
	fmt.Fprintf(&b, "%-*s%s\n", pad, strings.Repeat("-", len("Explanation")), strings.Repeat("-", len("count")))
	for _, key := range e.SummaryKeys() {
		fmt.Fprintf(&b, "%-*s%d\n", pad, key+": ", e.summary[key])
	}
	return b.String()
}
