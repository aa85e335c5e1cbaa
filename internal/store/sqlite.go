package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/itqan/nahw-station/internal/domain"
	"github.com/itqan/nahw-station/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db      *sql.DB
	writeMu sync.Mutex // Serializes writes to avoid SQLITE_BUSY
}

// NewSQLite creates a new SQLite-backed player cache.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS players (
		username TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		last_sync TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_players_updated ON players(updated_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetPlayer retrieves the cached payload for a username.
func (s *SQLiteStore) GetPlayer(ctx context.Context, username string) (*domain.Payload, error) {
	query := `SELECT payload FROM players WHERE username = ?`

	var raw string
	err := s.db.QueryRowContext(ctx, query, username).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan player row: %w", err)
	}

	var payload domain.Payload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("decode player payload: %w", err)
	}
	return &payload, nil
}

// UpsertPlayer creates or overwrites the cached payload for a username.
// Retries with exponential backoff when another connection holds the
// write lock.
func (s *SQLiteStore) UpsertPlayer(ctx context.Context, username string, payload domain.Payload) error {
	maxRetries := 3
	baseDelay := 50 * time.Millisecond

	for i := 0; i < maxRetries; i++ {
		err := s.upsertPlayerOnce(ctx, username, payload)
		if err == nil {
			return nil
		}

		if shared.IsSQLiteConflictError(err) && i < maxRetries-1 {
			delay := baseDelay * time.Duration(1<<i) // 50ms, 100ms, 200ms
			slog.Debug("UpsertPlayer hit a locked database, retrying",
				"username", username,
				"attempt", i+1,
				"delay", delay)
			time.Sleep(delay)
			continue
		}

		return fmt.Errorf("upsert player %s: %w", username, err)
	}
	return nil
}

func (s *SQLiteStore) upsertPlayerOnce(ctx context.Context, username string, payload domain.Payload) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode player payload: %w", err)
	}

	query := `
	INSERT INTO players (username, payload, last_sync, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(username) DO UPDATE SET
		payload = excluded.payload,
		last_sync = excluded.last_sync,
		updated_at = excluded.updated_at`

	now := time.Now().Unix()
	var lastSync interface{}
	if payload.LastSync != "" {
		lastSync = payload.LastSync
	}

	if _, err := s.db.ExecContext(ctx, query, username, string(raw), lastSync, now, now); err != nil {
		return fmt.Errorf("exec upsert: %w", err)
	}
	return nil
}

// AllPlayers returns every cached username mapped to its payload.
func (s *SQLiteStore) AllPlayers(ctx context.Context) (map[string]domain.Payload, error) {
	query := `SELECT username, payload FROM players`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query players: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close players rows", "error", closeErr)
		}
	}()

	players := make(map[string]domain.Payload)
	for rows.Next() {
		var username, raw string
		if err := rows.Scan(&username, &raw); err != nil {
			return nil, fmt.Errorf("scan player row: %w", err)
		}

		var payload domain.Payload
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			slog.Warn("skipping undecodable cached payload", "username", username, "error", err)
			continue
		}
		players[username] = payload
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate players: %w", err)
	}
	return players, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
