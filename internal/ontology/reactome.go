package ontology

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
)

// Reactome holds pathway membership for genes. The dump mirrors the
// upstream export: gene id to pathway ids, the reverse mapping, and
// pathway descriptions.
type Reactome struct {
	genes        map[string][]string
	pathwayGenes map[string][]string
	descriptions map[string]string
}

type reactomeDump struct {
	Genes        map[string][]string `json:"genes"`
	Pathways     map[string][]string `json:"pathways"`
	Descriptions map[string]string   `json:"descriptions"`
}

// NewReactome builds a lookup from a gene to pathway-ids map and an
// optional pathway description table.
func NewReactome(genes map[string][]string, descriptions map[string]string) *Reactome {
	pathwayGenes := make(map[string][]string)
	for gene, pws := range genes {
		for _, pw := range pws {
			pathwayGenes[pw] = append(pathwayGenes[pw], gene)
		}
	}
	return &Reactome{genes: genes, pathwayGenes: pathwayGenes, descriptions: descriptions}
}

// LoadReactome reads a Reactome dump from a JSON file, transparently
// decompressing ".gz" files.
func LoadReactome(path string) (*Reactome, error) {
	r, closeFn, err := openMaybeGzip(path)
	if err != nil {
		return nil, fmt.Errorf("open reactome: %w", err)
	}
	defer closeFn()

	var dump reactomeDump
	if err := json.NewDecoder(r).Decode(&dump); err != nil {
		return nil, fmt.Errorf("decode reactome %s: %w", path, err)
	}
	rt := NewReactome(dump.Genes, dump.Descriptions)
	slog.Info("loaded reactome pathways",
		"path", path,
		"genes", len(rt.genes),
		"pathways", len(rt.pathwayGenes))
	return rt, nil
}

// SharedPathways returns the sorted pathway ids both genes belong to.
func (r *Reactome) SharedPathways(gene1, gene2 string) []string {
	a := r.genes[gene1]
	b := r.genes[gene2]
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(a))
	for _, pw := range a {
		set[pw] = struct{}{}
	}
	var shared []string
	for _, pw := range b {
		if _, ok := set[pw]; ok {
			shared = append(shared, pw)
			delete(set, pw)
		}
	}
	sort.Strings(shared)
	return shared
}

// Pathways returns the pathway ids a gene belongs to.
func (r *Reactome) Pathways(gene string) []string {
	return r.genes[gene]
}

// Genes returns the genes belonging to a pathway.
func (r *Reactome) Genes(pathway string) []string {
	return r.pathwayGenes[pathway]
}

// Description returns the human-readable name of a pathway id.
func (r *Reactome) Description(pathway string) (string, bool) {
	desc, ok := r.descriptions[pathway]
	return desc, ok
}
