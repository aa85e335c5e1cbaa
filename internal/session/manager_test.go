package session

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/itqan/nahw-station/internal/catalog"
	"github.com/itqan/nahw-station/internal/domain"
	"github.com/itqan/nahw-station/internal/remote"
	"github.com/itqan/nahw-station/internal/syncer"
)

// memRepo is an in-memory Repository for session tests.
type memRepo struct {
	mu      sync.Mutex
	players map[string]domain.Payload
}

func newMemRepo() *memRepo {
	return &memRepo{players: make(map[string]domain.Payload)}
}

func (m *memRepo) GetPlayer(ctx context.Context, username string) (*domain.Payload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[username]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *memRepo) UpsertPlayer(ctx context.Context, username string, payload domain.Payload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.players[username] = payload
	return nil
}

func (m *memRepo) AllPlayers(ctx context.Context) (map[string]domain.Payload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]domain.Payload, len(m.players))
	for k, v := range m.players {
		out[k] = v
	}
	return out, nil
}

func (m *memRepo) Ping(ctx context.Context) error { return nil }
func (m *memRepo) Close() error                   { return nil }

// fakeRemote is a map-backed stand-in for the remote key-value store.
type fakeRemote struct {
	mu      sync.Mutex
	records map[string][]byte
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{records: make(map[string][]byte)}
}

func (f *fakeRemote) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/users/"), ".json")
	switch r.Method {
	case http.MethodGet:
		raw, ok := f.records[key]
		if !ok {
			_, _ = w.Write([]byte("null"))
			return
		}
		_, _ = w.Write(raw)
	case http.MethodPut:
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.records[key] = raw
	}
}

func (f *fakeRemote) put(t *testing.T, username string, payload domain.Payload) {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("encode fixture payload: %v", err)
	}
	f.mu.Lock()
	f.records[username] = raw
	f.mu.Unlock()
}

func testManager(t *testing.T, remoteURL string, repo *memRepo) *Manager {
	t.Helper()
	cat, err := catalog.New()
	if err != nil {
		t.Fatalf("catalog.New failed: %v", err)
	}
	gateway := syncer.New(remote.NewClient(remoteURL, time.Second), repo)
	return NewManager(cat, gateway, time.Hour)
}

func TestManager_LoginRejectsEmptyUsername(t *testing.T) {
	m := testManager(t, "", newMemRepo())

	for _, name := range []string{"", "   ", "\t\n"} {
		if _, err := m.Login(context.Background(), name, domain.GenderBoy, domain.DifficultyBeginner); !errors.Is(err, ErrInvalidUsername) {
			t.Errorf("Expected ErrInvalidUsername for %q, got %v", name, err)
		}
	}
}

func TestManager_LoginRejectsOverlongUsername(t *testing.T) {
	repo := newMemRepo()
	m := testManager(t, "", repo)

	// The identity cookie drops names over the limit, so login must
	// refuse them too instead of creating an unreachable session.
	long := strings.Repeat("ن", domain.MaxUsernameLen+1)
	if _, err := m.Login(context.Background(), long, domain.GenderBoy, domain.DifficultyBeginner); !errors.Is(err, ErrInvalidUsername) {
		t.Errorf("Expected ErrInvalidUsername for a %d-byte name, got %v", len(long), err)
	}
	if _, ok := m.Get(long); ok {
		t.Error("Expected no session registered for the rejected name")
	}
	repo.mu.Lock()
	cached := len(repo.players)
	repo.mu.Unlock()
	if cached != 0 {
		t.Errorf("Expected nothing persisted for the rejected name, found %d records", cached)
	}

	atLimit := strings.Repeat("a", domain.MaxUsernameLen)
	if _, err := m.Login(context.Background(), atLimit, domain.GenderBoy, domain.DifficultyBeginner); err != nil {
		t.Errorf("Expected a name at the limit to log in, got %v", err)
	}
	m.Logout(atLimit)
}

func TestManager_LoginNewPlayerOnboardsAndPersists(t *testing.T) {
	fr := newFakeRemote()
	srv := httptest.NewServer(fr)
	defer srv.Close()

	repo := newMemRepo()
	m := testManager(t, srv.URL, repo)

	s, err := m.Login(context.Background(), "  sara  ", domain.GenderGirl, domain.DifficultyBeginner)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	defer m.Logout("sara")

	if s.Username() != "sara" {
		t.Errorf("Expected trimmed username, got %q", s.Username())
	}
	if s.State() != StateOnboarding {
		t.Errorf("Expected ONBOARDING, got %s", s.State())
	}
	if s.SyncStatus() != domain.SyncOnline {
		t.Errorf("Expected online status, got %s", s.SyncStatus())
	}

	// Fresh state is persisted synchronously at first login.
	fr.mu.Lock()
	_, saved := fr.records["sara"]
	fr.mu.Unlock()
	if !saved {
		t.Error("Expected fresh state pushed to the remote store at login")
	}
	repo.mu.Lock()
	_, cached := repo.players["sara"]
	repo.mu.Unlock()
	if !cached {
		t.Error("Expected fresh state written to the local cache at login")
	}
}

func TestManager_LoginResumesRemoteRecord(t *testing.T) {
	fr := newFakeRemote()
	fr.put(t, "omar", domain.Payload{
		Gender:     domain.GenderBoy,
		Difficulty: domain.DifficultyAdvanced,
		Progress:   domain.Progress{CompletedStations: []int{1, 2}, TotalScore: 170},
		History:    []domain.QuizAttempt{{StationID: 1, QuestionID: 1, IsCorrect: true}},
	})
	srv := httptest.NewServer(fr)
	defer srv.Close()

	m := testManager(t, srv.URL, newMemRepo())

	// The locally chosen tier loses to the stored one.
	s, err := m.Login(context.Background(), "omar", domain.GenderBoy, domain.DifficultyBeginner)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	defer m.Logout("omar")

	if s.State() != StateResumed {
		t.Errorf("Expected RESUMED, got %s", s.State())
	}
	user := s.User()
	if user.Difficulty != domain.DifficultyAdvanced {
		t.Errorf("Expected stored difficulty to win, got %s", user.Difficulty)
	}
	if user.Progress.TotalScore != 170 || len(user.Progress.CompletedStations) != 2 {
		t.Errorf("Progress not adopted: %+v", user.Progress)
	}
	if len(user.History) != 1 {
		t.Errorf("History not adopted: %d entries", len(user.History))
	}
}

func TestManager_LoginUnreachableFallsBackToCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	repo := newMemRepo()
	repo.players["sara"] = domain.Payload{
		Gender:   domain.GenderGirl,
		Progress: domain.Progress{CompletedStations: []int{1}, TotalScore: 50},
		History:  []domain.QuizAttempt{},
	}
	m := testManager(t, srv.URL, repo)

	s, err := m.Login(context.Background(), "sara", domain.GenderGirl, domain.DifficultyBeginner)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	defer m.Logout("sara")

	if s.State() != StateDegradedLocal {
		t.Errorf("Expected DEGRADED_LOCAL, got %s", s.State())
	}
	if s.SyncStatus() != domain.SyncOffline {
		t.Errorf("Expected offline status, got %s", s.SyncStatus())
	}
	if got := s.User().Progress.TotalScore; got != 50 {
		t.Errorf("Expected cached progress adopted, got %d points", got)
	}
}

func TestManager_GetAndLogout(t *testing.T) {
	m := testManager(t, "", newMemRepo())

	s, err := m.Login(context.Background(), "sara", domain.GenderGirl, domain.DifficultyBeginner)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	got, ok := m.Get(" sara ")
	if !ok || got != s {
		t.Error("Expected Get to find the session under the normalized name")
	}

	m.Logout("sara")
	if _, ok := m.Get("sara"); ok {
		t.Error("Expected session gone after logout")
	}
}

func TestSession_FullStationFlow(t *testing.T) {
	fr := newFakeRemote()
	srv := httptest.NewServer(fr)
	defer srv.Close()

	m := testManager(t, srv.URL, newMemRepo())
	s, err := m.Login(context.Background(), "sara", domain.GenderGirl, domain.DifficultyBeginner)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	defer m.Logout("sara")

	views := s.Stations()
	if s.State() != StateActive {
		t.Fatalf("Expected ACTIVE after viewing the map, got %s", s.State())
	}
	if !views[0].Unlocked {
		t.Fatal("Expected station 1 unlocked")
	}
	for _, v := range views[1:] {
		if v.Unlocked {
			t.Errorf("Expected station %d locked for a fresh player", v.ID)
		}
	}

	// Locked station fails with no state change.
	if _, err := s.SelectStation(2); !errors.Is(err, ErrLockedStation) {
		t.Errorf("Expected ErrLockedStation, got %v", err)
	}
	if s.State() != StateActive {
		t.Errorf("Expected state unchanged after locked selection, got %s", s.State())
	}

	station, err := s.SelectStation(1)
	if err != nil {
		t.Fatalf("SelectStation failed: %v", err)
	}
	if err := s.StartQuiz(); err != nil {
		t.Fatalf("StartQuiz failed: %v", err)
	}

	total := len(station.Questions)
	var result *Result
	for i := 0; i < total; i++ {
		view, err := s.CurrentQuestion()
		if err != nil {
			t.Fatalf("CurrentQuestion %d failed: %v", i+1, err)
		}
		if view.Number != i+1 || view.Total != total {
			t.Errorf("Expected question %d/%d, got %d/%d", i+1, total, view.Number, view.Total)
		}
		if len(view.Options) != 4 {
			t.Errorf("Expected 4 options, got %d", len(view.Options))
		}

		if _, err := s.Answer(0); err != nil {
			t.Fatalf("Answer %d failed: %v", i+1, err)
		}
		result, err = s.Advance()
		if err != nil {
			t.Fatalf("Advance %d failed: %v", i+1, err)
		}
		if i < total-1 && result != nil {
			t.Fatalf("Expected no result before the last question, got %+v", result)
		}
	}

	if result == nil {
		t.Fatal("Expected a result after the last question")
	}
	if !result.FirstCompletion {
		t.Error("Expected a first completion")
	}
	if result.MaxScore != total*10 {
		t.Errorf("Expected max score %d, got %d", total*10, result.MaxScore)
	}
	if result.Score < 0 || result.Score > result.MaxScore || result.Score%10 != 0 {
		t.Errorf("Score %d out of bounds", result.Score)
	}

	user := s.User()
	if !user.Progress.Completed(1) {
		t.Error("Expected station 1 marked completed")
	}
	if len(user.History) != total {
		t.Errorf("Expected %d history entries, got %d", total, len(user.History))
	}

	if state := s.Continue(); state != StateActive {
		t.Errorf("Expected ACTIVE after result screen, got %s", state)
	}
	views = s.Stations()
	if !views[1].Unlocked {
		t.Error("Expected station 2 unlocked after completing 1")
	}
}

func TestSession_QuizGuards(t *testing.T) {
	m := testManager(t, "", newMemRepo())
	s, err := m.Login(context.Background(), "sara", domain.GenderGirl, domain.DifficultyBeginner)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	defer m.Logout("sara")

	if err := s.StartQuiz(); !errors.Is(err, ErrWrongState) {
		t.Errorf("Expected ErrWrongState before selection, got %v", err)
	}
	if _, err := s.CurrentQuestion(); !errors.Is(err, ErrWrongState) {
		t.Errorf("Expected ErrWrongState with no quiz, got %v", err)
	}
	if _, err := s.Answer(0); !errors.Is(err, ErrWrongState) {
		t.Errorf("Expected ErrWrongState with no quiz, got %v", err)
	}
	if _, err := s.Advance(); !errors.Is(err, ErrWrongState) {
		t.Errorf("Expected ErrWrongState with no quiz, got %v", err)
	}
}

// slowRepo delays writes so tests can observe whether shutdown waits
// for the final flush.
type slowRepo struct {
	*memRepo
	delay     time.Duration
	mu        sync.Mutex
	completed int
}

func (s *slowRepo) UpsertPlayer(ctx context.Context, username string, payload domain.Payload) error {
	time.Sleep(s.delay)
	if err := s.memRepo.UpsertPlayer(ctx, username, payload); err != nil {
		return err
	}
	s.mu.Lock()
	s.completed++
	s.mu.Unlock()
	return nil
}

func (s *slowRepo) completedUpserts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed
}

func TestManager_CloseAllWaitsForFinalFlush(t *testing.T) {
	repo := &slowRepo{memRepo: newMemRepo(), delay: 150 * time.Millisecond}

	cat, err := catalog.New()
	if err != nil {
		t.Fatalf("catalog.New failed: %v", err)
	}
	gateway := syncer.New(remote.NewClient("", time.Second), repo)
	m := NewManager(cat, gateway, time.Hour)

	if _, err := m.Login(context.Background(), "sara", domain.GenderGirl, domain.DifficultyBeginner); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if _, err := m.Login(context.Background(), "omar", domain.GenderBoy, domain.DifficultyBeginner); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	before := repo.completedUpserts()
	m.CloseAll()

	if got := repo.completedUpserts() - before; got != 2 {
		t.Errorf("Expected both final flushes to complete before CloseAll returns, got %d", got)
	}
	for _, name := range []string{"sara", "omar"} {
		if cached, err := repo.GetPlayer(context.Background(), name); err != nil || cached == nil {
			t.Errorf("Expected %s flushed to the cache, got %v / %v", name, cached, err)
		}
	}
}

func TestManager_LogoutWaitsForFinalFlush(t *testing.T) {
	repo := &slowRepo{memRepo: newMemRepo(), delay: 100 * time.Millisecond}

	cat, err := catalog.New()
	if err != nil {
		t.Fatalf("catalog.New failed: %v", err)
	}
	gateway := syncer.New(remote.NewClient("", time.Second), repo)
	m := NewManager(cat, gateway, time.Hour)

	if _, err := m.Login(context.Background(), "sara", domain.GenderGirl, domain.DifficultyBeginner); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	before := repo.completedUpserts()
	m.Logout("sara")
	if got := repo.completedUpserts() - before; got != 1 {
		t.Errorf("Expected the final flush to land before Logout returns, got %d", got)
	}
}

func TestManager_LoginReplacesExistingSession(t *testing.T) {
	m := testManager(t, "", newMemRepo())

	first, err := m.Login(context.Background(), "sara", domain.GenderGirl, domain.DifficultyBeginner)
	if err != nil {
		t.Fatalf("First login failed: %v", err)
	}
	second, err := m.Login(context.Background(), "sara", domain.GenderGirl, domain.DifficultyBeginner)
	if err != nil {
		t.Fatalf("Second login failed: %v", err)
	}
	defer m.Logout("sara")

	if first == second {
		t.Error("Expected a fresh session object on re-login")
	}
	got, _ := m.Get("sara")
	if got != second {
		t.Error("Expected the registry to hold the newest session")
	}
}
