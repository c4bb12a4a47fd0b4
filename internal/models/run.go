package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Run statuses.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Run is a registered matching run.
type Run struct {
	ID             surrealmodels.RecordID `json:"id"`
	Tag            *string                `json:"tag,omitempty"`
	SDRange        string                 `json:"sd_range"`
	GraphType      string                 `json:"graph_type"`
	Signed         bool                   `json:"signed"`
	Status         string                 `json:"status"`
	ArtifactURL    *string                `json:"artifact_url,omitempty"`
	GraphPath      *string                `json:"graph_path,omitempty"`
	CorrPath       *string                `json:"corr_path,omitempty"`
	PairsChecked   int                    `json:"pairs_checked"`
	PairsExplained int                    `json:"pairs_explained"`
	Error          *string                `json:"error,omitempty"`
	Created        time.Time              `json:"created"`
	Finished       *time.Time             `json:"finished,omitempty"`
}

// RunInput carries the fields for registering a new run.
type RunInput struct {
	ID        string
	Tag       *string
	SDRange   string
	GraphType string
	Signed    bool
	GraphPath *string
	CorrPath  *string
}
