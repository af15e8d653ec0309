// Package store persists report runs behind a backend-neutral interface
// with SQLite and Postgres implementations.
package store

import (
	"context"

	"github.com/andes-group/invest-cli/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status     model.RunStatus `json:"status,omitempty"`
	ListingURL string          `json:"listing_url,omitempty"`
	Limit      int             `json:"limit,omitempty"`
	Offset     int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for report runs.
type Store interface {
	CreateRun(ctx context.Context, req model.ReportRequest) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	CompleteRun(ctx context.Context, runID string, report *model.FinalReport) error
	FailRun(ctx context.Context, runID string, errMsg string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	Migrate(ctx context.Context) error
	Close() error
}
