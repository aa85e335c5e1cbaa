// Package syncer is the remote sync gateway: it persists and retrieves
// player payloads against the remote store with the local cache as the
// always-written fallback. All transport failures are normalized here;
// no raw errors escape to the progression or session layers.
package syncer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/itqan/nahw-station/internal/domain"
	"github.com/itqan/nahw-station/internal/remote"
	"github.com/itqan/nahw-station/internal/store"
)

// Outcome classifies a remote fetch. Keeping "no record" distinct from
// "unreachable" prevents a down backend from silently zeroing a
// returning player's progress at login.
type Outcome int

const (
	// Found means the remote store returned a payload.
	Found Outcome = iota
	// NotFound means the username has no remote record: a new player.
	NotFound
	// Unreachable means the remote store failed at the transport level.
	Unreachable
)

// FetchResult is the tri-state outcome of a user fetch. Payload is
// non-nil only when Outcome is Found.
type FetchResult struct {
	Outcome Outcome
	Payload *domain.Payload
}

// Gateway combines the remote client with the local durable cache.
type Gateway struct {
	remote *remote.Client
	cache  store.Repository
	now    func() time.Time
}

// New creates a gateway over the given remote client and local cache.
func New(remoteClient *remote.Client, cache store.Repository) *Gateway {
	return &Gateway{remote: remoteClient, cache: cache, now: time.Now}
}

// FetchUser looks a player up in the remote store and classifies the
// result. Transport failures never surface as errors.
func (g *Gateway) FetchUser(ctx context.Context, username string) FetchResult {
	payload, err := g.remote.FetchUser(ctx, username)
	switch {
	case err == nil:
		return FetchResult{Outcome: Found, Payload: payload}
	case errors.Is(err, remote.ErrNotFound):
		return FetchResult{Outcome: NotFound}
	default:
		slog.Warn("remote fetch failed, treating store as unreachable", "username", username, "error", err)
		return FetchResult{Outcome: Unreachable}
	}
}

// CachedUser returns the locally cached payload for a username, or nil
// when none exists. Used for degraded-mode resumption.
func (g *Gateway) CachedUser(ctx context.Context, username string) *domain.Payload {
	payload, err := g.cache.GetPlayer(ctx, username)
	if err != nil {
		slog.Warn("local cache read failed", "username", username, "error", err)
		return nil
	}
	return payload
}

// SaveUser persists a player's payload. The local cache is always
// written first and synchronously so progress survives zero
// connectivity; the remote write is best-effort and its success is the
// returned flag. A failed remote leg never rolls back the local write.
// Last writer wins: concurrent writers to the same username can lose
// updates silently, an accepted limitation.
func (g *Gateway) SaveUser(ctx context.Context, username string, payload domain.Payload) bool {
	payload.LastSync = g.now().UTC().Format(time.RFC3339)

	if err := g.cache.UpsertPlayer(ctx, username, payload); err != nil {
		slog.Error("local cache write failed", "username", username, "error", err)
	}

	if err := g.remote.PutUser(ctx, username, payload); err != nil {
		if !errors.Is(err, remote.ErrUnconfigured) {
			slog.Warn("remote write failed, progress kept locally", "username", username, "error", err)
		}
		return false
	}
	return true
}

// FetchAllUsers returns the full username-to-payload mapping for the
// leaderboard. On remote failure it falls back to the local cache
// snapshot, possibly empty or stale, and never errors.
func (g *Gateway) FetchAllUsers(ctx context.Context) map[string]domain.Payload {
	users, err := g.remote.FetchAllUsers(ctx)
	if err == nil {
		return users
	}
	if !errors.Is(err, remote.ErrUnconfigured) {
		slog.Warn("remote leaderboard fetch failed, using local snapshot", "error", err)
	}

	cached, cacheErr := g.cache.AllPlayers(ctx)
	if cacheErr != nil {
		slog.Warn("local leaderboard snapshot failed", "error", cacheErr)
		return map[string]domain.Payload{}
	}
	return cached
}
