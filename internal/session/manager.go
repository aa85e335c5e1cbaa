package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/itqan/nahw-station/internal/catalog"
	"github.com/itqan/nahw-station/internal/domain"
	"github.com/itqan/nahw-station/internal/progress"
	"github.com/itqan/nahw-station/internal/syncer"
)

const sweeperInterval = 5 * time.Minute

// Manager is the thread-safe registry of live sessions keyed by the
// normalized username.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	catalog *catalog.Catalog
	gateway *syncer.Gateway
	ttl     time.Duration
}

// NewManager creates a session manager over the catalog and gateway.
func NewManager(cat *catalog.Catalog, gateway *syncer.Gateway, ttl time.Duration) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		catalog:  cat,
		gateway:  gateway,
		ttl:      ttl,
	}
}

// Login establishes a session for the given identity. An existing
// remote record overrides the locally chosen gender, difficulty and
// progress wholesale (a missing remote difficulty keeps the local
// choice). A missing record creates and immediately persists fresh
// state. An unreachable remote falls back to the local cache record if
// one exists, otherwise fresh state, flagged offline.
func (m *Manager) Login(ctx context.Context, rawName string, gender domain.Gender, difficulty domain.Difficulty) (*Session, error) {
	username := domain.NormalizeUsername(rawName)
	if !domain.ValidUsername(username) {
		return nil, ErrInvalidUsername
	}

	s := &Session{
		state:      StateLoadingRemote,
		syncStatus: domain.SyncOnline,
		gateway:    m.gateway,
		lastSeen:   time.Now(),
		dirty:      make(chan struct{}, 1),
		done:       make(chan struct{}),
		stopped:    make(chan struct{}),
		subs:       make(map[*websocket.Conn]struct{}),
	}
	s.user = domain.User{
		Username:   username,
		Gender:     gender,
		Difficulty: difficulty,
		Progress:   domain.NewProgress(),
		History:    []domain.QuizAttempt{},
	}

	res := m.gateway.FetchUser(ctx, username)
	switch res.Outcome {
	case syncer.Found:
		adoptPayload(&s.user, res.Payload, difficulty)
		s.state = StateResumed
	case syncer.NotFound:
		s.state = StateOnboarding
		if !m.gateway.SaveUser(ctx, username, s.user.Payload()) {
			s.syncStatus = domain.SyncError
		}
	case syncer.Unreachable:
		if cached := m.gateway.CachedUser(ctx, username); cached != nil {
			adoptPayload(&s.user, cached, difficulty)
		}
		s.state = StateDegradedLocal
		s.syncStatus = domain.SyncOffline
	}

	stations := m.catalog.StationsByDifficulty(s.user.Difficulty)
	s.tracker = progress.NewTracker(stations, &s.user)

	m.mu.Lock()
	old := m.sessions[username]
	m.sessions[username] = s
	m.mu.Unlock()

	// Closing waits for the old session's final flush, so it must not
	// hold the registry lock.
	if old != nil {
		old.Close()
	}

	go s.saver()

	logSessionState(s, "session established")
	return s, nil
}

// adoptPayload hydrates the user from a stored record, keeping the
// locally chosen difficulty only when the record lacks one.
func adoptPayload(user *domain.User, payload *domain.Payload, localDifficulty domain.Difficulty) {
	user.Gender = payload.Gender
	if payload.Difficulty != "" {
		user.Difficulty = domain.ParseDifficulty(string(payload.Difficulty))
	} else {
		user.Difficulty = localDifficulty
	}
	user.Progress = payload.Progress.Clone()
	if user.Progress.CompletedStations == nil {
		user.Progress.CompletedStations = []int{}
	}
	user.History = make([]domain.QuizAttempt, len(payload.History))
	copy(user.History, payload.History)
}

// Get returns the live session for a username.
func (m *Manager) Get(username string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[domain.NormalizeUsername(username)]
	return s, ok
}

// Logout closes and removes a session after its final save.
func (m *Manager) Logout(username string) {
	username = domain.NormalizeUsername(username)

	m.mu.Lock()
	s, ok := m.sessions[username]
	if ok {
		delete(m.sessions, username)
	}
	m.mu.Unlock()

	if ok {
		s.Close()
		slog.Info("session closed", "username", username)
	}
}

// Leaderboard returns every known player's payload, remote first with
// local fallback.
func (m *Manager) Leaderboard(ctx context.Context) map[string]domain.Payload {
	return m.gateway.FetchAllUsers(ctx)
}

// StartSweeper runs the idle-session reaper until ctx is cancelled.
// Expired sessions get a final save through Close.
func (m *Manager) StartSweeper(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(sweeperInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.sweep()
			}
		}
	}()
}

func (m *Manager) sweep() {
	cutoff := time.Now().Add(-m.ttl)

	m.mu.Lock()
	var expired []*Session
	for username, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			expired = append(expired, s)
			delete(m.sessions, username)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		slog.Info("expiring idle session", "username", s.Username())
		s.Close()
	}
}

// CloseAll closes every live session, flushing each final save. Used at
// shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for username, s := range m.sessions {
		sessions = append(sessions, s)
		delete(m.sessions, username)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
