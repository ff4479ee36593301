// Package store provides persistence for normalization runs.
package store

import (
	"context"

	"github.com/ashureev/lohmm-traces/internal/domain"
)

// Repository defines the interface for persisting runs and their outputs.
type Repository interface {
	// SaveRun stores a finished run with its serialized sessions and path
	// domain in a single transaction.
	SaveRun(ctx context.Context, run *domain.Run, sessions []domain.StoredSession, paths []string) error

	// GetRun retrieves a run by ID. It returns nil, nil when the run does not exist.
	GetRun(ctx context.Context, runID string) (*domain.Run, error)

	// ListRuns returns the most recent runs first.
	ListRuns(ctx context.Context, limit int) ([]*domain.Run, error)

	// ListSessions returns the sessions of a run in corpus order.
	ListSessions(ctx context.Context, runID string, limit, offset int) ([]domain.StoredSession, error)

	// ListPaths returns the path domain of a run in lexical order.
	ListPaths(ctx context.Context, runID string) ([]string, error)

	// DeleteRun removes a run and everything stored for it.
	DeleteRun(ctx context.Context, runID string) (bool, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
