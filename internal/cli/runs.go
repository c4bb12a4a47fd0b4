package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/corrx/internal/db"
	"github.com/raphaelgruber/corrx/internal/models"
)

var (
	runsStatus string
	runsLimit  int
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect the run registry",
	Long: `List and manage recorded matching runs.

Subcommands:
  list    List runs (default)
  get     Show one run
  delete  Remove a run record

Examples:
  corrx runs
  corrx runs --status completed
  corrx runs get 1a2b3c4d
  corrx runs delete 1a2b3c4d`,
	RunE: runRunsList,
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List runs",
	RunE:  runRunsList,
}

var runsGetCmd = &cobra.Command{
	Use:   "get <run-id>",
	Short: "Show one run",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsGet,
}

var runsDeleteCmd = &cobra.Command{
	Use:   "delete <run-id>",
	Short: "Remove a run record",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsDelete,
}

func init() {
	runsCmd.Flags().StringVarP(&runsStatus, "status", "s", "", "filter by status (running, completed, failed)")
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 50, "max results")

	runsListCmd.Flags().StringVarP(&runsStatus, "status", "s", "", "filter by status (running, completed, failed)")
	runsListCmd.Flags().IntVarP(&runsLimit, "limit", "n", 50, "max results")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsGetCmd)
	runsCmd.AddCommand(runsDeleteCmd)
}

func runRunsList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	client, err := connectRegistry(ctx)
	if err != nil {
		return err
	}

	runs, err := client.ListRuns(ctx, runsStatus, runsLimit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Println("No runs found.")
		return nil
	}

	fmt.Printf("Runs (%d):\n\n", len(runs))
	for _, r := range runs {
		tag := ""
		if r.Tag != nil {
			tag = " #" + *r.Tag
		}
		fmt.Printf("- %s [%s] %s %s%s\n",
			models.MustRecordIDString(r.ID), r.Status, r.SDRange, r.GraphType, tag)
		if verbose {
			fmt.Printf("  Created: %s\n", r.Created.Format("2006-01-02 15:04:05"))
			if r.ArtifactURL != nil {
				fmt.Printf("  Artifact: %s\n", *r.ArtifactURL)
			}
			if r.PairsChecked > 0 {
				fmt.Printf("  Pairs: %d checked, %d explained\n", r.PairsChecked, r.PairsExplained)
			}
		}
	}

	return nil
}

func runRunsGet(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	client, err := connectRegistry(ctx)
	if err != nil {
		return err
	}

	r, err := client.GetRun(ctx, args[0])
	if errors.Is(err, db.ErrNotFound) {
		return fmt.Errorf("run %q not found", args[0])
	}
	if err != nil {
		return fmt.Errorf("get run: %w", err)
	}

	fmt.Printf("Run %s\n", models.MustRecordIDString(r.ID))
	fmt.Printf("  Status:     %s\n", r.Status)
	fmt.Printf("  Window:     %s\n", r.SDRange)
	fmt.Printf("  Graph type: %s (signed=%v)\n", r.GraphType, r.Signed)
	if r.Tag != nil {
		fmt.Printf("  Tag:        %s\n", *r.Tag)
	}
	if r.GraphPath != nil {
		fmt.Printf("  Graph:      %s\n", *r.GraphPath)
	}
	if r.CorrPath != nil {
		fmt.Printf("  Z-scores:   %s\n", *r.CorrPath)
	}
	if r.ArtifactURL != nil {
		fmt.Printf("  Artifact:   %s\n", *r.ArtifactURL)
	}
	if r.PairsChecked > 0 {
		fmt.Printf("  Pairs:      %d checked, %d explained\n", r.PairsChecked, r.PairsExplained)
	}
	if r.Error != nil {
		fmt.Printf("  Error:      %s\n", *r.Error)
	}
	fmt.Printf("  Created:    %s\n", r.Created.Format("2006-01-02 15:04:05"))
	if r.Finished != nil {
		fmt.Printf("  Finished:   %s\n", r.Finished.Format("2006-01-02 15:04:05"))
	}

	return nil
}

func runRunsDelete(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	client, err := connectRegistry(ctx)
	if err != nil {
		return err
	}

	deleted, err := client.DeleteRun(ctx, args[0])
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	if !deleted {
		fmt.Printf("Run %q not found.\n", args[0])
		return nil
	}

	fmt.Printf("Deleted run %q.\n", args[0])
	return nil
}
