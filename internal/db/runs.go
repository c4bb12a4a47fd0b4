// Package db provides SurrealDB query functions for the run registry.
package db

import (
	"context"
	"fmt"

	"github.com/raphaelgruber/corrx/internal/models"
	"github.com/surrealdb/surrealdb.go"
)

// CreateRun registers a new run in "running" state. Fails with
// ErrRunExists when the ID is already taken.
func (c *Client) CreateRun(ctx context.Context, input models.RunInput) (*models.Run, error) {
	sql := `
		CREATE type::record("run", $id) SET
			tag = $tag,
			sd_range = $sd_range,
			graph_type = $graph_type,
			signed = $signed,
			graph_path = $graph_path,
			corr_path = $corr_path
		RETURN AFTER
	`

	results, err := surrealdb.Query[[]models.Run](ctx, c.db, sql, map[string]any{
		"id":         input.ID,
		"tag":        input.Tag,
		"sd_range":   input.SDRange,
		"graph_type": input.GraphType,
		"signed":     input.Signed,
		"graph_path": input.GraphPath,
		"corr_path":  input.CorrPath,
	})
	if err != nil {
		return nil, fmt.Errorf("create run: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("create run: no result returned")
	}
	return &(*results)[0].Result[0], nil
}

// CompleteRun marks a run completed and records where the artifact
// landed together with the headline counts.
func (c *Client) CompleteRun(ctx context.Context, id, artifactURL string, pairsChecked, pairsExplained int) error {
	sql := `
		UPDATE type::record("run", $id) SET
			status = "completed",
			artifact_url = $artifact_url,
			pairs_checked = $pairs_checked,
			pairs_explained = $pairs_explained,
			finished = time::now()
	`
	_, err := surrealdb.Query[any](ctx, c.db, sql, map[string]any{
		"id":              id,
		"artifact_url":    artifactURL,
		"pairs_checked":   pairsChecked,
		"pairs_explained": pairsExplained,
	})
	if err != nil {
		return fmt.Errorf("complete run: %w", wrapQueryError(err))
	}
	return nil
}

// FailRun marks a run failed with the error that stopped it.
func (c *Client) FailRun(ctx context.Context, id, cause string) error {
	sql := `
		UPDATE type::record("run", $id) SET
			status = "failed",
			error = $error,
			finished = time::now()
	`
	_, err := surrealdb.Query[any](ctx, c.db, sql, map[string]any{
		"id":    id,
		"error": cause,
	})
	if err != nil {
		return fmt.Errorf("fail run: %w", wrapQueryError(err))
	}
	return nil
}

// GetRun retrieves a run by ID. Fails with ErrNotFound when absent.
func (c *Client) GetRun(ctx context.Context, id string) (*models.Run, error) {
	results, err := surrealdb.Query[[]models.Run](ctx, c.db, `
		SELECT * FROM type::record("run", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return &(*results)[0].Result[0], nil
}

// ListRuns returns runs newest first, optionally filtered by status.
func (c *Client) ListRuns(ctx context.Context, status string, limit int) ([]models.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	statusClause := ""
	vars := map[string]any{"limit": limit}
	if status != "" {
		statusClause = "WHERE status = $status"
		vars["status"] = status
	}

	sql := fmt.Sprintf(`
		SELECT * FROM run %s ORDER BY created DESC LIMIT $limit
	`, statusClause)

	results, err := surrealdb.Query[[]models.Run](ctx, c.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	if results == nil || len(*results) == 0 {
		return []models.Run{}, nil
	}
	return (*results)[0].Result, nil
}

// DeleteRun deletes a run by ID. Returns false if it did not exist.
func (c *Client) DeleteRun(ctx context.Context, id string) (bool, error) {
	sql := `DELETE type::record("run", $id) RETURN BEFORE`

	results, err := surrealdb.Query[[]models.Run](ctx, c.db, sql, map[string]any{"id": id})
	if err != nil {
		return false, fmt.Errorf("delete run: %w", err)
	}

	if results == nil || len(*results) == 0 {
		return false, nil
	}
	return len((*results)[0].Result) > 0, nil
}
