package cli

import (
	"bytes"
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/corrx/internal/explainer"
	"github.com/raphaelgruber/corrx/internal/store"
)

var summaryCmd = &cobra.Command{
	Use:   "summary <artifact>",
	Short: "Print the summary table of a saved explainer",
	Long: `Print the explanation summary of a saved explainer artifact.

The artifact may be a local file or an s3:// URL.

Examples:
  corrx summary results/3-4SD_expl_1a2b3c4d.json.gz
  corrx summary s3://results/depmap/3+SD_expl_9f8e7d6c.json.gz`,
	Args: cobra.ExactArgs(1),
	RunE: runSummary,
}

// loadArtifact fetches and decodes an explainer artifact.
func loadArtifact(ctx context.Context, url string) (*explainer.Explainer, error) {
	backend, key, err := store.ForURL(ctx, url)
	if err != nil {
		return nil, err
	}
	blob, err := backend.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("fetch artifact: %w", err)
	}
	expl, err := explainer.Decode(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	return expl, nil
}

func runSummary(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	expl, err := loadArtifact(ctx, args[0])
	if err != nil {
		return err
	}

	meta := expl.Meta
	fmt.Printf("Run %s  window %s  graph %s\n", meta.RunID, meta.SDString(), meta.GraphType)
	if meta.Tag != "" {
		fmt.Printf("Tag: %s\n", meta.Tag)
	}
	fmt.Println()
	fmt.Println(expl.String())

	return nil
}
