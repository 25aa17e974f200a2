// Package prefs persists per-machine workbench preferences and a local log
// of inspection runs. Nothing here is synced to the backend.
package prefs

import (
	"context"
	"time"
)

// RunRecord is one logged inspection run.
type RunRecord struct {
	ID              string    `json:"id"`
	Language        string    `json:"language"`
	SuggestionCount int       `json:"suggestion_count"`
	RateLimited     bool      `json:"rate_limited"`
	CreatedAt       time.Time `json:"created_at"`
}

// Store defines the local persistence interface.
type Store interface {
	// Per-project display preferences
	SetHideScore(ctx context.Context, projectID int, hide bool) error
	HideScore(ctx context.Context, projectID int) (bool, error)

	// Run history
	LogRun(ctx context.Context, rec *RunRecord) error
	ListRuns(ctx context.Context, limit int) ([]*RunRecord, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
