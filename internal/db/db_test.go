// Package db provides integration tests for SurrealDB operations.
package db

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/raphaelgruber/corrx/internal/models"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var testDB *Client
var testContainer testcontainers.Container

// TestMain sets up and tears down the SurrealDB container for all tests.
func TestMain(m *testing.M) {
	// Disable ryuk (cleanup container) as it can cause issues in some environments
	os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")

	ctx := context.Background()

	// Start SurrealDB container
	var err error
	testContainer, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "surrealdb/surrealdb:v3.0.0-beta.1",
			ExposedPorts: []string{"8000/tcp"},
			Cmd:          []string{"start", "--log", "info", "--user", "root", "--pass", "root"},
			WaitingFor:   wait.ForLog("Started web server").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("Failed to start SurrealDB container: %v", err)
	}

	// Get container host and port
	host, err := testContainer.Host(ctx)
	if err != nil {
		log.Fatalf("Failed to get container host: %v", err)
	}
	// Workaround: testcontainers may return "null" as host in some environments
	if host == "" || host == "null" {
		host = "localhost"
	}
	mappedPort, err := testContainer.MappedPort(ctx, "8000")
	if err != nil {
		log.Fatalf("Failed to get mapped port: %v", err)
	}

	// Connect to test database
	testDB, err = NewClient(ctx, Config{
		URL:       fmt.Sprintf("ws://%s:%s/rpc", host, mappedPort.Port()),
		Namespace: "test",
		Database:  "test",
		Username:  "root",
		Password:  "root",
		AuthLevel: "root",
	}, nil)
	if err != nil {
		log.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := testDB.InitSchema(ctx); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	// Run tests
	code := m.Run()

	// Cleanup
	_ = testDB.Close(ctx)
	_ = testContainer.Terminate(ctx)

	os.Exit(code)
}

func strPtr(s string) *string { return &s }

func TestCreateRun(t *testing.T) {
	ctx := context.Background()

	run, err := testDB.CreateRun(ctx, models.RunInput{
		ID:        "create-test",
		Tag:       strPtr("unit"),
		SDRange:   "3-4SD",
		GraphType: "signed",
		Signed:    true,
		GraphPath: strPtr("/data/graph.json.gz"),
		CorrPath:  strPtr("/data/corr.csv.gz"),
	})
	if err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	defer func() { _, _ = testDB.DeleteRun(ctx, "create-test") }()

	if run.SDRange != "3-4SD" {
		t.Errorf("Expected sd_range '3-4SD', got %q", run.SDRange)
	}
	if run.Status != models.RunStatusRunning {
		t.Errorf("Expected status 'running', got %q", run.Status)
	}
	if !run.Signed {
		t.Error("Expected signed run")
	}

	// Same ID again refuses.
	_, err = testDB.CreateRun(ctx, models.RunInput{
		ID:        "create-test",
		SDRange:   "3-4SD",
		GraphType: "signed",
	})
	if !errors.Is(err, ErrRunExists) {
		t.Errorf("Second CreateRun error = %v, want ErrRunExists", err)
	}
}

func TestCompleteRun(t *testing.T) {
	ctx := context.Background()

	_, err := testDB.CreateRun(ctx, models.RunInput{
		ID:        "complete-test",
		SDRange:   "3+SD",
		GraphType: "unsigned",
	})
	if err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	defer func() { _, _ = testDB.DeleteRun(ctx, "complete-test") }()

	err = testDB.CompleteRun(ctx, "complete-test", "s3://results/complete-test.json.gz", 1000, 420)
	if err != nil {
		t.Fatalf("CompleteRun failed: %v", err)
	}

	run, err := testDB.GetRun(ctx, "complete-test")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if run.Status != models.RunStatusCompleted {
		t.Errorf("Expected status 'completed', got %q", run.Status)
	}
	if run.ArtifactURL == nil || *run.ArtifactURL != "s3://results/complete-test.json.gz" {
		t.Errorf("Unexpected artifact url: %v", run.ArtifactURL)
	}
	if run.PairsChecked != 1000 || run.PairsExplained != 420 {
		t.Errorf("Counts = %d/%d, want 1000/420", run.PairsChecked, run.PairsExplained)
	}
	if run.Finished == nil {
		t.Error("Expected finished timestamp")
	}
}

func TestFailRun(t *testing.T) {
	ctx := context.Background()

	_, err := testDB.CreateRun(ctx, models.RunInput{
		ID:        "fail-test",
		SDRange:   "RND",
		GraphType: "unsigned",
	})
	if err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	defer func() { _, _ = testDB.DeleteRun(ctx, "fail-test") }()

	if err := testDB.FailRun(ctx, "fail-test", "graph load: no such file"); err != nil {
		t.Fatalf("FailRun failed: %v", err)
	}

	run, err := testDB.GetRun(ctx, "fail-test")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if run.Status != models.RunStatusFailed {
		t.Errorf("Expected status 'failed', got %q", run.Status)
	}
	if run.Error == nil || *run.Error != "graph load: no such file" {
		t.Errorf("Unexpected error field: %v", run.Error)
	}
}

func TestGetRun_NotFound(t *testing.T) {
	ctx := context.Background()

	_, err := testDB.GetRun(ctx, "no-such-run")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetRun error = %v, want ErrNotFound", err)
	}
}

func TestListRuns(t *testing.T) {
	ctx := context.Background()

	for i, id := range []string{"list-a", "list-b", "list-c"} {
		_, err := testDB.CreateRun(ctx, models.RunInput{
			ID:        id,
			SDRange:   fmt.Sprintf("%d+SD", i+3),
			GraphType: "unsigned",
		})
		if err != nil {
			t.Fatalf("CreateRun %s failed: %v", id, err)
		}
	}
	defer func() {
		for _, id := range []string{"list-a", "list-b", "list-c"} {
			_, _ = testDB.DeleteRun(ctx, id)
		}
	}()
	if err := testDB.CompleteRun(ctx, "list-b", "/tmp/b.json.gz", 10, 5); err != nil {
		t.Fatalf("CompleteRun failed: %v", err)
	}

	all, err := testDB.ListRuns(ctx, "", 0)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(all) < 3 {
		t.Errorf("Expected at least 3 runs, got %d", len(all))
	}

	completed, err := testDB.ListRuns(ctx, models.RunStatusCompleted, 0)
	if err != nil {
		t.Fatalf("ListRuns(completed) failed: %v", err)
	}
	found := false
	for _, run := range completed {
		if run.Status != models.RunStatusCompleted {
			t.Errorf("Status filter leaked run with status %q", run.Status)
		}
		if models.MustRecordIDString(run.ID) == "list-b" {
			found = true
		}
	}
	if !found {
		t.Error("Completed run list-b missing from filtered list")
	}
}

func TestDeleteRun(t *testing.T) {
	ctx := context.Background()

	_, err := testDB.CreateRun(ctx, models.RunInput{
		ID:        "delete-test",
		SDRange:   "3-4SD",
		GraphType: "unsigned",
	})
	if err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	deleted, err := testDB.DeleteRun(ctx, "delete-test")
	if err != nil {
		t.Fatalf("DeleteRun failed: %v", err)
	}
	if !deleted {
		t.Error("DeleteRun should return true for existing run")
	}

	if _, err := testDB.GetRun(ctx, "delete-test"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetRun after delete error = %v, want ErrNotFound", err)
	}

	// Idempotent on repeat.
	deleted, err = testDB.DeleteRun(ctx, "delete-test")
	if err != nil {
		t.Errorf("Second DeleteRun failed: %v", err)
	}
	if deleted {
		t.Error("Second DeleteRun should return false")
	}
}
