package ontology

import (
	"reflect"
	"testing"
)

func testHierarchy(t *testing.T) *Hierarchy {
	t.Helper()
	h, err := NewHierarchy(map[string][]string{
		"hgnc:6407":  {"fplx:RAS"},
		"hgnc:3845":  {"fplx:RAS"},
		"fplx:RAS":   {"fplx:GTPase"},
		"hgnc:1097":  {"fplx:RAF"},
		"fplx:RAF":   {"fplx:Kinase"},
		"hgnc:99999": {},
	})
	if err != nil {
		t.Fatalf("NewHierarchy() error = %v", err)
	}
	return h
}

func TestHierarchy_Ancestors(t *testing.T) {
	h := testHierarchy(t)

	anc := h.Ancestors("HGNC", "6407")
	for _, want := range []string{"fplx:RAS", "fplx:GTPase"} {
		if _, ok := anc[want]; !ok {
			t.Errorf("Ancestors(HGNC:6407) missing %q: %v", want, anc)
		}
	}
	if _, ok := anc["hgnc:6407"]; ok {
		t.Error("Ancestors() contains the reference itself")
	}

	if got := h.Ancestors("HGNC", "99999"); len(got) != 0 {
		t.Errorf("Ancestors(HGNC:99999) = %v, want empty", got)
	}
}

func TestHierarchy_Cycle(t *testing.T) {
	h, err := NewHierarchy(map[string][]string{
		"a:1": {"a:2"},
		"a:2": {"a:1"},
	})
	if err != nil {
		t.Fatal(err)
	}
	anc := h.Ancestors("a", "1")
	if len(anc) != 2 {
		t.Errorf("Ancestors() on cycle = %v", anc)
	}
}

func TestHierarchy_CommonParents(t *testing.T) {
	h := testHierarchy(t)

	tests := []struct {
		name           string
		ns1, id1       string
		ns2, id2       string
		want           []string
	}{
		{"siblings", "HGNC", "6407", "HGNC", "3845", []string{"fplx:GTPase", "fplx:RAS"}},
		{"different families", "HGNC", "6407", "HGNC", "1097", nil},
		{"unknown id", "HGNC", "6407", "HGNC", "0", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := h.CommonParents(tt.ns1, tt.id1, tt.ns2, tt.id2)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("CommonParents() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHierarchy_LookupContract(t *testing.T) {
	h := testHierarchy(t)
	var lookup ParentLookup = h.Lookup()
	if got := lookup("hgnc", "6407", "hgnc", "3845"); len(got) != 2 {
		t.Errorf("lookup via ParentLookup = %v", got)
	}
}

func TestNewHierarchy_BadRef(t *testing.T) {
	if _, err := NewHierarchy(map[string][]string{"noseparator": nil}); err == nil {
		t.Error("NewHierarchy() accepted key without namespace")
	}
	if _, err := NewHierarchy(map[string][]string{"a:1": {"bad"}}); err == nil {
		t.Error("NewHierarchy() accepted parent without namespace")
	}
}

func TestReactome_SharedPathways(t *testing.T) {
	r := NewReactome(map[string][]string{
		"P01116": {"R-HSA-100", "R-HSA-200"},
		"P15056": {"R-HSA-200", "R-HSA-300"},
		"P04637": {"R-HSA-400"},
	}, map[string]string{
		"R-HSA-200": "MAPK signaling",
	})

	if got := r.SharedPathways("P01116", "P15056"); !reflect.DeepEqual(got, []string{"R-HSA-200"}) {
		t.Errorf("SharedPathways() = %v, want [R-HSA-200]", got)
	}
	if got := r.SharedPathways("P01116", "P04637"); got != nil {
		t.Errorf("SharedPathways() = %v, want nil", got)
	}
	if got := r.SharedPathways("P01116", "unknown"); got != nil {
		t.Errorf("SharedPathways() with unknown gene = %v, want nil", got)
	}

	if desc, ok := r.Description("R-HSA-200"); !ok || desc != "MAPK signaling" {
		t.Errorf("Description() = %q, %v", desc, ok)
	}
	genes := r.Genes("R-HSA-200")
	if len(genes) != 2 {
		t.Errorf("Genes(R-HSA-200) = %v", genes)
	}
}
