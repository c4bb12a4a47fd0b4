// Package graph provides the directed causal knowledge graph that
// correlation pairs are matched against, in both its unsigned and
// sign-keyed (multi-edge) variants.
package graph

import (
	"errors"
	"fmt"
)

// Sentinel errors for graph operations.
var (
	// ErrEmptyNodeName indicates an empty node name was provided.
	ErrEmptyNodeName = errors.New("graph: node name is empty")

	// ErrSelfLoop indicates an edge from a node to itself, which the
	// causal graph does not carry.
	ErrSelfLoop = errors.New("graph: self-loops not allowed")

	// ErrBadSign indicates a sign value other than SignPositive or
	// SignNegative was used on a signed graph.
	ErrBadSign = errors.New("graph: invalid edge sign")

	// ErrUnsignedEdgeOnSigned indicates an unsigned edge operation was
	// attempted on a signed graph (or the reverse).
	ErrUnsignedEdgeOnSigned = errors.New("graph: edge sign does not match graph variant")
)

// Sign is the polarity tag of an edge in the signed graph variant.
// The integer values match the sign keys of the serialized dumps:
// 0 for positive (activating), 1 for negative (inhibiting).
type Sign int

const (
	SignPositive Sign = 0
	SignNegative Sign = 1
)

// SignOf returns the sign corresponding to a correlation z-score.
// Zero is treated as positive.
func SignOf(z float64) Sign {
	if z >= 0 {
		return SignPositive
	}
	return SignNegative
}

// String returns "+" or "-".
func (s Sign) String() string {
	if s == SignPositive {
		return "+"
	}
	return "-"
}

// Statement is a single supporting statement on an edge, carried over
// from the source database dump.
type Statement struct {
	Type          string         `json:"stmt_type"`
	Hash          int64          `json:"stmt_hash"`
	Belief        float64        `json:"belief"`
	EvidenceCount int            `json:"evidence_count,omitempty"`
	SourceCounts  map[string]int `json:"source_counts,omitempty"`
}

// Annotation is the namespace/id cross-reference carried by every node.
type Annotation struct {
	Namespace string `json:"ns"`
	ID        string `json:"id"`
}

// EdgeData holds the attributes of one edge: the list of statements
// supporting it.
type EdgeData struct {
	Statements []Statement `json:"statements"`
}

// edgeKey identifies an edge. For unsigned graphs the sign is always
// SignPositive.
type edgeKey struct {
	u, v string
	sign Sign
}

// Graph is a directed graph with annotated nodes and statement-backed
// edges. In signed mode each ordered node pair may carry up to two
// edges, one per sign. A Graph is built once and then treated as
// read-only; concurrent reads are safe, concurrent mutation is not.
type Graph struct {
	signed bool

	// Metadata from the serialized dump.
	date string

	nodes map[string]Annotation
	succ  map[string]map[string]struct{}
	pred  map[string]map[string]struct{}
	edges map[edgeKey]*EdgeData
}

// NewDirected creates an empty unsigned directed graph.
func NewDirected() *Graph {
	return newGraph(false)
}

// NewSigned creates an empty sign-keyed directed multigraph.
func NewSigned() *Graph {
	return newGraph(true)
}

func newGraph(signed bool) *Graph {
	return &Graph{
		signed: signed,
		nodes:  make(map[string]Annotation),
		succ:   make(map[string]map[string]struct{}),
		pred:   make(map[string]map[string]struct{}),
		edges:  make(map[edgeKey]*EdgeData),
	}
}

// Signed reports whether this is the sign-keyed multigraph variant.
func (g *Graph) Signed() bool { return g.signed }

// Type returns the dump type name, "signed" or "unsigned".
func (g *Graph) Type() string {
	if g.signed {
		return TypeSigned
	}
	return TypeUnsigned
}

// Date returns the date stamp of the dump the graph was loaded from,
// or "" if the graph was built programmatically.
func (g *Graph) Date() string { return g.date }

// SetDate sets the dump date stamp.
func (g *Graph) SetDate(date string) { g.date = date }

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges. In signed mode, the two signs
// of a node pair count separately.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// AddNode adds a node with its annotation. Re-adding a node replaces
// its annotation.
func (g *Graph) AddNode(name string, ann Annotation) error {
	if name == "" {
		return ErrEmptyNodeName
	}
	g.nodes[name] = ann
	return nil
}

// AddEdge adds an unsigned edge u→v. Nodes missing from the graph are
// created with empty annotations. Re-adding an edge appends statements.
func (g *Graph) AddEdge(u, v string, stmts ...Statement) error {
	if g.signed {
		return ErrUnsignedEdgeOnSigned
	}
	return g.addEdge(u, v, SignPositive, stmts)
}

// AddSignedEdge adds a signed edge u→v with the given sign. Only valid
// on the signed variant.
func (g *Graph) AddSignedEdge(u, v string, sign Sign, stmts ...Statement) error {
	if !g.signed {
		return ErrUnsignedEdgeOnSigned
	}
	if sign != SignPositive && sign != SignNegative {
		return fmt.Errorf("%w: %d", ErrBadSign, sign)
	}
	return g.addEdge(u, v, sign, stmts)
}

func (g *Graph) addEdge(u, v string, sign Sign, stmts []Statement) error {
	if u == "" || v == "" {
		return ErrEmptyNodeName
	}
	if u == v {
		return fmt.Errorf("%w: %s", ErrSelfLoop, u)
	}
	for _, name := range [2]string{u, v} {
		if _, ok := g.nodes[name]; !ok {
			g.nodes[name] = Annotation{}
		}
	}

	key := edgeKey{u: u, v: v, sign: sign}
	if data, ok := g.edges[key]; ok {
		data.Statements = append(data.Statements, stmts...)
	} else {
		g.edges[key] = &EdgeData{Statements: stmts}
	}

	if g.succ[u] == nil {
		g.succ[u] = make(map[string]struct{})
	}
	g.succ[u][v] = struct{}{}
	if g.pred[v] == nil {
		g.pred[v] = make(map[string]struct{})
	}
	g.pred[v][u] = struct{}{}
	return nil
}

// HasNode reports whether the node exists in the graph.
func (g *Graph) HasNode(name string) bool {
	_, ok := g.nodes[name]
	return ok
}

// Annotation returns the namespace/id annotation for a node. The
// second return value is false when the node is absent.
func (g *Graph) Annotation(name string) (Annotation, bool) {
	ann, ok := g.nodes[name]
	return ann, ok
}

// Successors returns the set of nodes reachable from name over one
// outgoing edge (union over signs in signed mode). The returned map is
// a read-only view owned by the graph and must not be modified.
func (g *Graph) Successors(name string) map[string]struct{} {
	return g.succ[name]
}

// Predecessors returns the set of nodes with an edge into name (union
// over signs in signed mode). The returned map is a read-only view
// owned by the graph and must not be modified.
func (g *Graph) Predecessors(name string) map[string]struct{} {
	return g.pred[name]
}

// Edge returns the edge data for the unsigned edge u→v.
func (g *Graph) Edge(u, v string) (*EdgeData, bool) {
	if g.signed {
		return nil, false
	}
	data, ok := g.edges[edgeKey{u: u, v: v, sign: SignPositive}]
	return data, ok
}

// SignedEdge returns the edge data for the signed edge (u, v, sign).
func (g *Graph) SignedEdge(u, v string, sign Sign) (*EdgeData, bool) {
	if !g.signed {
		return nil, false
	}
	data, ok := g.edges[edgeKey{u: u, v: v, sign: sign}]
	return data, ok
}

// EdgeForCorrelation resolves the edge u→v the way the strategies need
// it: by (u, v, sign-of-z) in signed mode and by (u, v) otherwise.
func (g *Graph) EdgeForCorrelation(u, v string, z float64) (*EdgeData, bool) {
	if g.signed {
		return g.SignedEdge(u, v, SignOf(z))
	}
	return g.Edge(u, v)
}
