// Package cli provides the command-line interface for corrx.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/raphaelgruber/corrx/internal/config"
	"github.com/raphaelgruber/corrx/internal/db"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool

	// Global config and lazily connected run registry
	cfg      config.Config
	dbClient *db.Client

	logCleanup func() error
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "corrx",
	Short: "Correlation explanation engine",
	Long: `Corrx matches gene-gene correlation z-scores against a causal
knowledge graph and classifies each pair by the mechanisms that could
explain the correlation: direct edges, shared regulators or targets,
intermediate nodes, ontology parents and Reactome pathways.

Results are saved as gzipped explainer artifacts that the summary and
export commands read back.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()

		level := cfg.LogLevel
		if verbose {
			level = slog.LevelDebug
		}
		logger, cleanup := config.SetupLogger(cfg.LogFile, level)
		slog.SetDefault(logger)
		logCleanup = cleanup
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if dbClient != nil {
			if err := dbClient.Close(context.Background()); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
			}
		}
		if logCleanup != nil {
			_ = logCleanup()
		}
	},
}

// connectRegistry connects to the SurrealDB run registry on first use.
func connectRegistry(ctx context.Context) (*db.Client, error) {
	if dbClient != nil {
		return dbClient, nil
	}

	client, err := db.NewClient(ctx, db.Config{
		URL:       cfg.SurrealDBURL,
		Namespace: cfg.SurrealDBNamespace,
		Database:  cfg.SurrealDBDatabase,
		Username:  cfg.SurrealDBUser,
		Password:  cfg.SurrealDBPass,
		AuthLevel: cfg.SurrealDBAuthLevel,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("connect to run registry: %w", err)
	}
	if err := client.InitSchema(ctx); err != nil {
		client.Close(ctx)
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	dbClient = client
	return dbClient, nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Add subcommands
	rootCmd.AddCommand(matchCmd)
	rootCmd.AddCommand(metaCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(exportCmd)
}
