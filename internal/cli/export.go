package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/corrx/internal/explainer"
)

var exportCmd = &cobra.Command{
	Use:   "export <artifact> <dir>",
	Short: "Export a saved explainer to CSV files",
	Long: `Export a saved explainer artifact to CSV files for analysis in
spreadsheets or data frames.

Writes three files into the target directory:
  stats.csv    one row per checked pair with all strategy columns
  expl.csv     one row per individual explanation
  summary.csv  the aggregated counts

Examples:
  corrx export results/3-4SD_expl_1a2b3c4d.json.gz ./csv
  corrx export s3://results/depmap/3+SD_expl_9f8e7d6c.json.gz ./csv`,
	Args: cobra.ExactArgs(2),
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	artifact, dir := args[0], args[1]

	expl, err := loadArtifact(ctx, artifact)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}

	files := []struct {
		name  string
		write func(*explainer.Explainer, *os.File) error
	}{
		{"stats.csv", func(e *explainer.Explainer, f *os.File) error { return e.WriteStatsCSV(f) }},
		{"expl.csv", func(e *explainer.Explainer, f *os.File) error { return e.WriteExplCSV(f) }},
		{"summary.csv", func(e *explainer.Explainer, f *os.File) error { return e.WriteSummaryCSV(f) }},
	}

	for _, spec := range files {
		path := filepath.Join(dir, spec.name)
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		if err := spec.write(expl, f); err != nil {
			f.Close()
			return fmt.Errorf("write %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("close %s: %w", path, err)
		}
		if verbose {
			fmt.Printf("  Wrote: %s\n", path)
		}
	}

	fmt.Printf("Exported %d pairs to %s\n", expl.Len(), dir)
	return nil
}
