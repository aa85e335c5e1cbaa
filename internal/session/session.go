// Package session orchestrates one player's screen flow: login and
// remote hydration, station selection, quiz runs, completion recording
// and persistence scheduling.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/itqan/nahw-station/internal/domain"
	"github.com/itqan/nahw-station/internal/progress"
	"github.com/itqan/nahw-station/internal/quiz"
	"github.com/itqan/nahw-station/internal/syncer"
)

var (
	// ErrInvalidUsername is returned for a username that is empty after
	// trimming or longer than the identity cookie allows.
	ErrInvalidUsername = errors.New("session: invalid username")
	// ErrWrongState is returned when an operation is attempted from a
	// state that does not allow it. Callers treat it as a no-op.
	ErrWrongState = errors.New("session: operation not allowed in current state")
	// ErrLockedStation is returned when selecting a station whose
	// predecessor has not been completed. No state changes.
	ErrLockedStation = errors.New("session: station is locked")
)

// Result is the outcome of a finished station run.
type Result struct {
	StationID       int
	Score           int
	MaxScore        int
	FirstCompletion bool
	GameComplete    bool
}

// Session holds the full state for one logged-in player. It is created
// at login and reset at logout; there is no ambient global state.
type Session struct {
	mu sync.Mutex

	user       domain.User
	state      State
	syncStatus domain.SyncStatus
	tracker    *progress.Tracker
	gateway    *syncer.Gateway

	selected   *domain.Station
	run        *quiz.Run
	lastResult *Result

	lastSeen time.Time

	dirty   chan struct{}
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once

	subsMu sync.Mutex
	subs   map[*websocket.Conn]struct{}
}

// Username returns the session's identity key.
func (s *Session) Username() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user.Username
}

// State returns the current state machine position.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SyncStatus returns the indicator driven by save outcomes.
func (s *Session) SyncStatus() domain.SyncStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.syncStatus
}

// User returns a snapshot of the player's state.
func (s *Session) User() domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user
	u.Progress = s.user.Progress.Clone()
	history := make([]domain.QuizAttempt, len(s.user.History))
	copy(history, s.user.History)
	u.History = history
	return u
}

// Touch refreshes the idle timer.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

// StationView is one station as shown on the map.
type StationView struct {
	domain.Station
	Unlocked  bool `json:"unlocked"`
	Completed bool `json:"completed"`
}

// Stations returns the active tier's stations with unlock and
// completion flags. Moves a fresh login outcome into Active.
func (s *Session) Stations() []StationView {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.loginOutcome() {
		s.state = StateActive
	}

	stations := s.tracker.Stations()
	views := make([]StationView, 0, len(stations))
	for _, st := range stations {
		views = append(views, StationView{
			Station:   st,
			Unlocked:  s.tracker.IsUnlocked(st.ID),
			Completed: s.user.Progress.Completed(st.ID),
		})
	}
	return views
}

// SelectStation picks a station for a quiz run. Locked or unknown
// stations fail silently with no state change.
func (s *Session) SelectStation(stationID int) (domain.Station, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive && s.state != StateStationResult && !s.state.loginOutcome() {
		return domain.Station{}, ErrWrongState
	}

	station, ok := s.tracker.SelectStation(stationID)
	if !ok {
		return domain.Station{}, ErrLockedStation
	}

	s.selected = &station
	s.state = StateStationSelected
	return station, nil
}

// StartQuiz begins the selected station's question sequence.
func (s *Session) StartQuiz() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateStationSelected || s.selected == nil {
		return ErrWrongState
	}
	s.run = quiz.NewRun(*s.selected, nil)
	s.state = StateQuizInProgress
	return nil
}

// QuestionView is the current question as presented to the player. The
// correct answer never leaves the server.
type QuestionView struct {
	StationID    int      `json:"stationId"`
	StationTitle string   `json:"stationTitle"`
	QuestionID   int      `json:"questionId"`
	Number       int      `json:"number"`
	Total        int      `json:"total"`
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	Answered     bool     `json:"answered"`
	Score        int      `json:"score"`
}

// CurrentQuestion returns the in-progress question with its displayed
// option order.
func (s *Session) CurrentQuestion() (QuestionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateQuizInProgress || s.run == nil {
		return QuestionView{}, ErrWrongState
	}

	q := s.run.Question()
	options := make([]string, 0, len(s.run.Options()))
	for _, opt := range s.run.Options() {
		options = append(options, opt.Text)
	}
	return QuestionView{
		StationID:    s.selected.ID,
		StationTitle: s.selected.Title,
		QuestionID:   q.ID,
		Number:       s.run.QuestionNumber(),
		Total:        s.run.TotalQuestions(),
		Text:         q.Text,
		Options:      options,
		Answered:     s.run.Answered(),
		Score:        s.run.Score(),
	}, nil
}

// Answer submits the displayed option position for the current
// question and returns the graded attempt. Double answers are rejected
// by the evaluator.
func (s *Session) Answer(position int) (domain.QuizAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateQuizInProgress || s.run == nil {
		return domain.QuizAttempt{}, ErrWrongState
	}
	return s.run.Answer(position)
}

// Advance moves to the next question or, after the last one, finalizes
// the run: attempts are appended to history, first completions update
// progress and score, and a persistence save is scheduled. Returns a
// non-nil Result only on finalization.
func (s *Session) Advance() (*Result, error) {
	s.mu.Lock()

	if s.state != StateQuizInProgress || s.run == nil {
		s.mu.Unlock()
		return nil, ErrWrongState
	}

	result, done, err := s.run.Advance()
	if err != nil || !done {
		s.mu.Unlock()
		return nil, err
	}

	station := *s.selected
	first := s.tracker.RecordCompletion(station.ID, result.Score, result.Attempts)
	gameComplete := s.tracker.IsGameComplete()

	outcome := &Result{
		StationID:       station.ID,
		Score:           result.Score,
		MaxScore:        station.MaxScore(),
		FirstCompletion: first,
		GameComplete:    gameComplete,
	}
	s.lastResult = outcome
	s.run = nil
	s.state = StateStationResult
	totalScore := s.user.Progress.TotalScore
	completed := len(s.user.Progress.CompletedStations)
	s.mu.Unlock()

	s.markDirty()
	s.broadcast(event{
		Type:       "progress",
		StationID:  station.ID,
		Score:      result.Score,
		TotalScore: totalScore,
		Completed:  completed,
	})
	return outcome, nil
}

// Continue leaves the result screen, moving to GameComplete once every
// station in the tier is done, otherwise back to the station map.
func (s *Session) Continue() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateStationResult {
		return s.state
	}
	s.selected = nil
	if s.tracker.IsGameComplete() {
		s.state = StateGameComplete
	} else {
		s.state = StateActive
	}
	return s.state
}

// LastResult returns the most recent finalized station result.
func (s *Session) LastResult() (*Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastResult == nil {
		return nil, false
	}
	out := *s.lastResult
	return &out, true
}

// History returns a copy of the player's full attempt log.
func (s *Session) History() []domain.QuizAttempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := make([]domain.QuizAttempt, len(s.user.History))
	copy(history, s.user.History)
	return history
}

// Close stops the saver after one final flush and drops every event
// subscriber. It returns only once the flush has completed, so shutdown
// and logout never race an in-flight save. Safe to call more than once.
func (s *Session) Close() {
	s.once.Do(func() {
		close(s.done)
	})
	<-s.stopped

	s.subsMu.Lock()
	for conn := range s.subs {
		_ = conn.Close(websocket.StatusNormalClosure, "session closed")
		delete(s.subs, conn)
	}
	s.subsMu.Unlock()
}

func (s *Session) setSyncStatus(status domain.SyncStatus) {
	s.mu.Lock()
	changed := s.syncStatus != status
	s.syncStatus = status
	s.mu.Unlock()

	if changed {
		s.broadcast(event{Type: "sync_status", Status: string(status)})
	}
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func logSessionState(s *Session, msg string) {
	slog.Info(msg, "username", s.Username(), "state", string(s.State()), "sync_status", string(s.SyncStatus()))
}

// saveSnapshot captures the latest durable state under lock.
func (s *Session) saveSnapshot() (string, domain.Payload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user.Username, s.user.Payload()
}

func (s *Session) saveNow(ctx context.Context) {
	username, payload := s.saveSnapshot()
	if s.gateway.SaveUser(ctx, username, payload) {
		s.setSyncStatus(domain.SyncOnline)
	} else {
		s.setSyncStatus(domain.SyncError)
	}
}
