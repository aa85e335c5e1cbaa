// Package store provides the local durable cache for player payloads.
// It is the single source of truth for offline continuity: every save
// lands here synchronously before the remote store is attempted.
package store

import (
	"context"

	"github.com/itqan/nahw-station/internal/domain"
)

// Repository defines the interface for the local player cache.
type Repository interface {
	// GetPlayer retrieves the cached payload for a username.
	// Returns (nil, nil) when no record exists.
	GetPlayer(ctx context.Context, username string) (*domain.Payload, error)

	// UpsertPlayer creates or overwrites the cached payload for a
	// username. Each write replaces the whole record.
	UpsertPlayer(ctx context.Context, username string, payload domain.Payload) error

	// AllPlayers returns every cached username mapped to its payload.
	AllPlayers(ctx context.Context) (map[string]domain.Payload, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
