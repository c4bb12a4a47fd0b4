package graph

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Graph type names accepted by Load and the CLI.
const (
	TypeUnsigned = "unsigned"
	TypeSigned   = "signed"
)

// ErrUnknownGraphType indicates a graph type outside {unsigned, signed}.
var ErrUnknownGraphType = errors.New("graph: unknown graph type")

// DumpNode is one endpoint of a dump edge.
type DumpNode struct {
	Name      string `json:"name"`
	Namespace string `json:"ns"`
	ID        string `json:"id"`
}

// DumpEdge is one edge row of a serialized graph dump.
type DumpEdge struct {
	Subj DumpNode `json:"subj"`
	Obj  DumpNode `json:"obj"`
	// Sign is only meaningful for signed dumps: 0 positive, 1 negative.
	Sign       Sign        `json:"sign"`
	Statements []Statement `json:"statements"`
}

// Dump is the on-disk form of a graph: metadata plus an edge list.
// Node annotations ride along on the edges; isolated nodes may be
// listed separately.
type Dump struct {
	GraphType string     `json:"graph_type"`
	Date      string     `json:"date"`
	Nodes     []DumpNode `json:"nodes,omitempty"`
	Edges     []DumpEdge `json:"edges"`
}

// ValidateType checks a user-provided graph type string.
func ValidateType(graphType string) error {
	switch graphType {
	case TypeUnsigned, TypeSigned:
		return nil
	}
	return fmt.Errorf("%w: %q (must be %q or %q)",
		ErrUnknownGraphType, graphType, TypeUnsigned, TypeSigned)
}

// Load reads a graph dump from a JSON file, transparently decompressing
// ".gz" files, and builds the graph.
func Load(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open graph dump: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip graph dump: %w", err)
		}
		defer zr.Close()
		r = zr
	}

	start := time.Now()
	g, err := Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode graph dump %s: %w", path, err)
	}
	slog.Info("loaded graph",
		"path", path,
		"nodes", g.NodeCount(),
		"edges", g.EdgeCount(),
		"signed", g.Signed(),
		"elapsed", time.Since(start))
	return g, nil
}

// Decode builds a graph from a JSON dump stream.
func Decode(r io.Reader) (*Graph, error) {
	var dump Dump
	if err := json.NewDecoder(r).Decode(&dump); err != nil {
		return nil, err
	}
	return FromDump(&dump)
}

// FromDump builds a graph from an in-memory dump.
func FromDump(dump *Dump) (*Graph, error) {
	if err := ValidateType(dump.GraphType); err != nil {
		return nil, err
	}

	var g *Graph
	if dump.GraphType == TypeSigned {
		g = NewSigned()
	} else {
		g = NewDirected()
	}
	g.SetDate(dump.Date)

	for _, n := range dump.Nodes {
		if err := g.AddNode(n.Name, Annotation{Namespace: n.Namespace, ID: n.ID}); err != nil {
			return nil, err
		}
	}

	for i, e := range dump.Edges {
		// Annotate endpoints before the edge so edges never overwrite
		// an annotation with an empty one.
		if err := g.AddNode(e.Subj.Name, Annotation{Namespace: e.Subj.Namespace, ID: e.Subj.ID}); err != nil {
			return nil, fmt.Errorf("edge %d: %w", i, err)
		}
		if err := g.AddNode(e.Obj.Name, Annotation{Namespace: e.Obj.Namespace, ID: e.Obj.ID}); err != nil {
			return nil, fmt.Errorf("edge %d: %w", i, err)
		}

		var err error
		if g.Signed() {
			err = g.AddSignedEdge(e.Subj.Name, e.Obj.Name, e.Sign, e.Statements...)
		} else {
			err = g.AddEdge(e.Subj.Name, e.Obj.Name, e.Statements...)
		}
		if err != nil {
			return nil, fmt.Errorf("edge %d (%s -> %s): %w", i, e.Subj.Name, e.Obj.Name, err)
		}
	}

	return g, nil
}
