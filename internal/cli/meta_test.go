package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func writePlan(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadPlan(t *testing.T) {
	path := writePlan(t, `
graph: graph.json.gz
z_score: corr.csv.gz
out: /tmp/results
sd:
  start: 2
  stop: 5
  steps: 7
  open_top: true
random_sample: 100000
`)

	plan, err := loadPlan(path)
	if err != nil {
		t.Fatalf("loadPlan failed: %v", err)
	}
	if plan.SD.Steps != 7 || !plan.SD.OpenTop {
		t.Errorf("sd block = %+v", plan.SD)
	}
	if plan.RandomSample != 100000 {
		t.Errorf("random_sample = %d, want 100000", plan.RandomSample)
	}

	ranges := planRanges(plan)
	// 7 cut points over [2,5] give 6 windows, plus the open top.
	if len(ranges) != 7 {
		t.Fatalf("len(ranges) = %d, want 7", len(ranges))
	}
	if got := ranges[0].String(); got != "2-2.5SD" {
		t.Errorf("ranges[0] = %q, want %q", got, "2-2.5SD")
	}
	if got := ranges[5].String(); got != "4.5-5SD" {
		t.Errorf("ranges[5] = %q, want %q", got, "4.5-5SD")
	}
	if got := ranges[6].String(); got != "5+SD" {
		t.Errorf("ranges[6] = %q, want %q", got, "5+SD")
	}
}

func TestLoadPlan_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing inputs", "sd:\n  start: 2\n  stop: 5\n  steps: 3\n"},
		{"no windows", "graph: g\nz_score: z\n"},
		{"one step", "graph: g\nz_score: z\nsd:\n  start: 2\n  stop: 5\n  steps: 1\n"},
		{"inverted", "graph: g\nz_score: z\nsd:\n  start: 5\n  stop: 2\n  steps: 3\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := loadPlan(writePlan(t, tt.content)); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestLoadPlan_RandomOnly(t *testing.T) {
	plan, err := loadPlan(writePlan(t, "graph: g\nz_score: z\nrandom_sample: 500\n"))
	if err != nil {
		t.Fatalf("loadPlan failed: %v", err)
	}
	if ranges := planRanges(plan); len(ranges) != 0 {
		t.Errorf("len(ranges) = %d, want 0", len(ranges))
	}
}
