// Package match schedules correlation pairs against the causal graph
// and classifies each pair with the explanation strategies.
package match

import (
	"sort"

	"github.com/raphaelgruber/corrx/internal/explainer"
	"github.com/raphaelgruber/corrx/internal/graph"
	"github.com/raphaelgruber/corrx/internal/ontology"
)

// payload is the outcome of one strategy on one pair. A strategy
// matched when ok is true; stmts or nodes then carry the evidence.
// The a-priori explained-set marker carries neither.
type payload struct {
	ok    bool
	stmts []graph.Statement
	nodes []string
}

// evalEnv bundles what the strategy evaluators read. It is shared
// read-only across workers.
type evalEnv struct {
	graph    *graph.Graph
	parents  ontology.ParentLookup
	reactome *ontology.Reactome
}

// strategy couples a flag column name with its evaluator.
type strategy struct {
	name string
	eval func(env *evalEnv, a, b string, z float64) payload
}

// strategies returns the active strategy set in evaluation order. The
// a-priori explained-set check is not part of the set: it short-
// circuits before any strategy runs. The reactome strategy only joins
// when pathway data is configured, so its column stays null otherwise.
func strategies(env *evalEnv) []strategy {
	out := []strategy{
		{explainer.StrategyAB, evalAB},
		{explainer.StrategyBA, evalBA},
		{explainer.StrategyCommonParent, evalCommonParent},
		{explainer.StrategyAXB, evalAXB},
		{explainer.StrategyBXA, evalBXA},
		{explainer.StrategySharedReg, evalSharedReg},
		{explainer.StrategySharedTarget, evalSharedTarget},
	}
	if env.reactome != nil {
		out = append(out, strategy{explainer.StrategyReactome, evalReactome})
	}
	return out
}

// evalAB matches a direct a to b edge, sign-resolved on signed graphs.
func evalAB(env *evalEnv, a, b string, z float64) payload {
	data, ok := env.graph.EdgeForCorrelation(a, b, z)
	if !ok {
		return payload{}
	}
	return payload{ok: true, stmts: data.Statements}
}

func evalBA(env *evalEnv, a, b string, z float64) payload {
	return evalAB(env, b, a, z)
}

// evalCommonParent resolves both entities to namespaced ids and asks
// the ontology for shared ancestors. There is no signed variant.
func evalCommonParent(env *evalEnv, a, b string, _ float64) payload {
	if env.parents == nil {
		return payload{}
	}
	aAnn, aOK := env.graph.Annotation(a)
	bAnn, bOK := env.graph.Annotation(b)
	if !aOK || !bOK || aAnn.ID == "" || bAnn.ID == "" {
		return payload{}
	}
	parents := env.parents(aAnn.Namespace, aAnn.ID, bAnn.Namespace, bAnn.ID)
	if len(parents) == 0 {
		return payload{}
	}
	return payload{ok: true, nodes: parents}
}

// evalAXB matches a -> x -> b intermediates.
func evalAXB(env *evalEnv, a, b string, z float64) payload {
	xs := intersect(env.graph.Successors(a), env.graph.Predecessors(b))
	return intermPayload(env, a, b, z, xs)
}

func evalBXA(env *evalEnv, a, b string, z float64) payload {
	return evalAXB(env, b, a, z)
}

// evalSharedReg matches a <- x -> b intermediates.
func evalSharedReg(env *evalEnv, a, b string, z float64) payload {
	xs := intersect(env.graph.Predecessors(a), env.graph.Predecessors(b))
	return intermPayload(env, a, b, z, xs)
}

// evalSharedTarget matches a -> x <- b intermediates.
func evalSharedTarget(env *evalEnv, a, b string, z float64) payload {
	xs := intersect(env.graph.Successors(a), env.graph.Successors(b))
	return intermPayload(env, a, b, z, xs)
}

// evalReactome matches pairs sharing at least one Reactome pathway.
func evalReactome(env *evalEnv, a, b string, _ float64) payload {
	shared := env.reactome.SharedPathways(reactomeKey(env, a), reactomeKey(env, b))
	if len(shared) == 0 {
		return payload{}
	}
	return payload{ok: true, nodes: shared}
}

// reactomeKey prefers the graph annotation id, falling back to the
// entity name for graphs without annotations.
func reactomeKey(env *evalEnv, name string) string {
	if ann, ok := env.graph.Annotation(name); ok && ann.ID != "" {
		return ann.ID
	}
	return name
}

func intersect(a, b map[string]struct{}) []string {
	if len(b) < len(a) {
		a, b = b, a
	}
	var out []string
	for x := range a {
		if _, ok := b[x]; ok {
			out = append(out, x)
		}
	}
	return out
}

// intermPayload applies the sign filter on signed graphs and returns
// the surviving intermediates sorted for reproducible payloads.
func intermPayload(env *evalEnv, a, b string, z float64, xs []string) payload {
	if env.graph.Signed() {
		xs = filterSignedInterm(env.graph, a, b, z, xs)
	}
	if len(xs) == 0 {
		return payload{}
	}
	sort.Strings(xs)
	return payload{ok: true, nodes: xs}
}

// filterSignedInterm keeps an intermediate x when the signs of the
// a to x and x to b legs combine consistently with the correlation
// sign: same-sign legs for a positive correlation, mixed signs for a
// negative one. A missing leg excludes x.
func filterSignedInterm(g *graph.Graph, a, b string, z float64, xs []string) []string {
	var kept []string
	for _, x := range xs {
		_, axPlus := g.SignedEdge(a, x, graph.SignPositive)
		_, axMinus := g.SignedEdge(a, x, graph.SignNegative)
		_, xbPlus := g.SignedEdge(x, b, graph.SignPositive)
		_, xbMinus := g.SignedEdge(x, b, graph.SignNegative)

		if graph.SignOf(z) == graph.SignPositive {
			if (axPlus && xbPlus) || (axMinus && xbMinus) {
				kept = append(kept, x)
			}
		} else {
			if (axPlus && xbMinus) || (axMinus && xbPlus) {
				kept = append(kept, x)
			}
		}
	}
	return kept
}
