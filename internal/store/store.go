// Package store persists runs and extracted targets. Two backends are
// provided: SQLite for single-user CLI use and PostgreSQL for shared
// deployments.
package store

import (
	"context"

	"github.com/sells-group/atlas-cli/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Mode   model.Mode      `json:"mode,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the prospectivity
// pipeline.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, id string, mode model.Mode) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	AppendRunStage(ctx context.Context, runID string, stage string) error
	CompleteRun(ctx context.Context, runID string) error
	FailRun(ctx context.Context, runID string, cause error) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Targets
	SaveTargets(ctx context.Context, runID string, targets []model.Target) error
	ListTargets(ctx context.Context, runID string) ([]model.Target, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
