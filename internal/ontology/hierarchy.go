// Package ontology provides the external lookups the matching
// strategies delegate to: a common-parent hierarchy over namespaced
// identifiers and a Reactome pathway membership table.
package ontology

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
)

// ErrBadRef indicates an identifier that is not "ns:id" shaped.
var ErrBadRef = errors.New("ontology: identifier must be ns:id")

// ParentLookup resolves the common ancestors of two namespaced
// identifiers. Implementations must be safe for concurrent use.
type ParentLookup func(ns1, id1, ns2, id2 string) []string

// Ref joins a namespace and identifier into the canonical "ns:id" key
// used throughout the hierarchy. Namespaces compare case-insensitively.
func Ref(ns, id string) string {
	return strings.ToLower(ns) + ":" + id
}

// Hierarchy is an in-memory isa/partof forest keyed by "ns:id". It is
// immutable after construction and safe for concurrent lookups.
type Hierarchy struct {
	parents map[string][]string
}

// NewHierarchy builds a hierarchy from a child to direct-parents map.
// Keys and parent entries must be "ns:id" references.
func NewHierarchy(parents map[string][]string) (*Hierarchy, error) {
	for child, ps := range parents {
		if !strings.Contains(child, ":") {
			return nil, fmt.Errorf("%w: %q", ErrBadRef, child)
		}
		for _, p := range ps {
			if !strings.Contains(p, ":") {
				return nil, fmt.Errorf("%w: %q (parent of %q)", ErrBadRef, p, child)
			}
		}
	}
	norm := make(map[string][]string, len(parents))
	for child, ps := range parents {
		norm[strings.ToLower(child)] = ps
	}
	return &Hierarchy{parents: norm}, nil
}

// LoadHierarchy reads a hierarchy from a JSON file mapping "ns:id" to
// its direct parents, transparently decompressing ".gz" files.
func LoadHierarchy(path string) (*Hierarchy, error) {
	r, closeFn, err := openMaybeGzip(path)
	if err != nil {
		return nil, fmt.Errorf("open ontology: %w", err)
	}
	defer closeFn()

	var parents map[string][]string
	if err := json.NewDecoder(r).Decode(&parents); err != nil {
		return nil, fmt.Errorf("decode ontology %s: %w", path, err)
	}
	h, err := NewHierarchy(parents)
	if err != nil {
		return nil, err
	}
	slog.Info("loaded ontology hierarchy", "path", path, "entries", len(parents))
	return h, nil
}

// Ancestors returns the transitive parent closure of a reference,
// excluding the reference itself. Cycles are tolerated.
func (h *Hierarchy) Ancestors(ns, id string) map[string]struct{} {
	out := make(map[string]struct{})
	h.collect(strings.ToLower(Ref(ns, id)), out)
	return out
}

func (h *Hierarchy) collect(ref string, seen map[string]struct{}) {
	for _, p := range h.parents[ref] {
		p = strings.ToLower(p)
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		h.collect(p, seen)
	}
}

// CommonParents returns the sorted intersection of the two references'
// ancestor sets. An empty slice means no shared ancestry.
func (h *Hierarchy) CommonParents(ns1, id1, ns2, id2 string) []string {
	a := h.Ancestors(ns1, id1)
	b := h.Ancestors(ns2, id2)
	if len(b) < len(a) {
		a, b = b, a
	}
	var common []string
	for ref := range a {
		if _, ok := b[ref]; ok {
			common = append(common, ref)
		}
	}
	sort.Strings(common)
	return common
}

// Lookup adapts the hierarchy to the ParentLookup contract.
func (h *Hierarchy) Lookup() ParentLookup {
	return h.CommonParents
}

func openMaybeGzip(path string) (io.Reader, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, f.Close, nil
	}
	zr, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return zr, func() error {
		zr.Close()
		return f.Close()
	}, nil
}
