package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/itqan/nahw-station/internal/domain"
	"github.com/itqan/nahw-station/internal/identity"
	"github.com/itqan/nahw-station/internal/session"
)

// GameHandler serves the login, map, quiz and leaderboard endpoints.
type GameHandler struct {
	*Handler
}

// NewGameHandler creates the game API handler.
func NewGameHandler(base *Handler) *GameHandler {
	return &GameHandler{Handler: base}
}

// RegisterRoutes registers the game routes.
func (h *GameHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Get("/leaderboard", h.Leaderboard)

		r.Group(func(r chi.Router) {
			r.Use(identity.RequirePlayer)
			r.Post("/logout", h.Logout)
			r.Get("/me", h.Me)
			r.Get("/status", h.Status)
			r.Get("/stations", h.Stations)
			r.Post("/stations/{stationID}/select", h.SelectStation)
			r.Post("/quiz/start", h.StartQuiz)
			r.Get("/quiz", h.CurrentQuestion)
			r.Post("/quiz/answer", h.Answer)
			r.Post("/quiz/advance", h.Advance)
			r.Post("/quiz/continue", h.Continue)
			r.Get("/history", h.History)
		})
	})
}

type loginRequest struct {
	Username   string `json:"username"`
	Gender     string `json:"gender"`
	Difficulty string `json:"difficulty"`
}

type sessionView struct {
	Username   string            `json:"username"`
	Gender     domain.Gender     `json:"gender"`
	Difficulty domain.Difficulty `json:"difficulty"`
	State      session.State     `json:"state"`
	SyncStatus domain.SyncStatus `json:"syncStatus"`
	Progress   domain.Progress   `json:"progress"`
}

func viewOf(s *session.Session) sessionView {
	user := s.User()
	return sessionView{
		Username:   user.Username,
		Gender:     user.Gender,
		Difficulty: user.Difficulty,
		State:      s.State(),
		SyncStatus: s.SyncStatus(),
		Progress:   user.Progress,
	}
}

// Login validates the submitted identity and establishes a session,
// hydrating from the remote store when possible.
func (h *GameHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s, err := h.sessions.Login(r.Context(), req.Username, domain.ParseGender(req.Gender), domain.ParseDifficulty(req.Difficulty))
	if err != nil {
		if errors.Is(err, session.ErrInvalidUsername) {
			Error(w, http.StatusBadRequest, "username must be non-empty and at most 64 characters")
			return
		}
		Error(w, http.StatusInternalServerError, "failed to establish session")
		return
	}

	identity.SetPlayerCookie(w, s.Username(), h.isDev)
	JSON(w, http.StatusOK, viewOf(s))
}

// Logout closes the session after a final save.
func (h *GameHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Logout(identity.PlayerFromContext(r.Context()))
	identity.ClearPlayerCookie(w)
	JSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (h *GameHandler) activeSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, ok := h.sessions.Get(identity.PlayerFromContext(r.Context()))
	if !ok {
		Error(w, http.StatusUnauthorized, "no active session")
		return nil, false
	}
	s.Touch()
	return s, true
}

// Me returns the session snapshot.
func (h *GameHandler) Me(w http.ResponseWriter, r *http.Request) {
	s, ok := h.activeSession(w, r)
	if !ok {
		return
	}
	JSON(w, http.StatusOK, viewOf(s))
}

// Status returns the sync indicator.
func (h *GameHandler) Status(w http.ResponseWriter, r *http.Request) {
	s, ok := h.activeSession(w, r)
	if !ok {
		return
	}
	JSON(w, http.StatusOK, map[string]string{
		"syncStatus": string(s.SyncStatus()),
		"state":      string(s.State()),
	})
}

// stationSummary is a station as shown on the map. Question content
// stays on the server.
type stationSummary struct {
	ID            int      `json:"id"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	SummaryPoints []string `json:"summaryPoints"`
	QuestionCount int      `json:"questionCount"`
	Unlocked      bool     `json:"unlocked"`
	Completed     bool     `json:"completed"`
}

// Stations returns the active tier's station map.
func (h *GameHandler) Stations(w http.ResponseWriter, r *http.Request) {
	s, ok := h.activeSession(w, r)
	if !ok {
		return
	}

	views := s.Stations()
	summaries := make([]stationSummary, 0, len(views))
	for _, v := range views {
		summaries = append(summaries, stationSummary{
			ID:            v.ID,
			Title:         v.Title,
			Description:   v.Description,
			SummaryPoints: v.SummaryPoints,
			QuestionCount: len(v.Questions),
			Unlocked:      v.Unlocked,
			Completed:     v.Completed,
		})
	}
	JSON(w, http.StatusOK, map[string]interface{}{"stations": summaries})
}

// SelectStation picks a station for the next quiz run. Locked stations
// are rejected without any state change.
func (h *GameHandler) SelectStation(w http.ResponseWriter, r *http.Request) {
	s, ok := h.activeSession(w, r)
	if !ok {
		return
	}

	stationID, err := strconv.Atoi(chi.URLParam(r, "stationID"))
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid station id")
		return
	}

	station, err := s.SelectStation(stationID)
	if err != nil {
		if errors.Is(err, session.ErrLockedStation) {
			Error(w, http.StatusConflict, "station is locked")
			return
		}
		Error(w, http.StatusConflict, "cannot select a station right now")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"id":            station.ID,
		"title":         station.Title,
		"description":   station.Description,
		"summaryPoints": station.SummaryPoints,
		"questionCount": len(station.Questions),
	})
}

// StartQuiz begins the selected station's question sequence.
func (h *GameHandler) StartQuiz(w http.ResponseWriter, r *http.Request) {
	s, ok := h.activeSession(w, r)
	if !ok {
		return
	}

	if err := s.StartQuiz(); err != nil {
		Error(w, http.StatusConflict, "no station selected")
		return
	}
	h.writeCurrentQuestion(w, s)
}

// CurrentQuestion returns the in-progress question with its shuffled
// options.
func (h *GameHandler) CurrentQuestion(w http.ResponseWriter, r *http.Request) {
	s, ok := h.activeSession(w, r)
	if !ok {
		return
	}
	h.writeCurrentQuestion(w, s)
}

func (h *GameHandler) writeCurrentQuestion(w http.ResponseWriter, s *session.Session) {
	view, err := s.CurrentQuestion()
	if err != nil {
		Error(w, http.StatusConflict, "no quiz in progress")
		return
	}
	JSON(w, http.StatusOK, view)
}

type answerRequest struct {
	Position int `json:"position"`
}

type answerResponse struct {
	IsCorrect     bool   `json:"isCorrect"`
	CorrectAnswer string `json:"correctAnswer"`
	Explanation   string `json:"explanation"`
	Score         int    `json:"score"`
}

// Answer grades the chosen displayed option.
func (h *GameHandler) Answer(w http.ResponseWriter, r *http.Request) {
	s, ok := h.activeSession(w, r)
	if !ok {
		return
	}

	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	attempt, err := s.Answer(req.Position)
	if err != nil {
		Error(w, http.StatusConflict, err.Error())
		return
	}

	view, viewErr := s.CurrentQuestion()
	score := 0
	if viewErr == nil {
		score = view.Score
	}
	JSON(w, http.StatusOK, answerResponse{
		IsCorrect:     attempt.IsCorrect,
		CorrectAnswer: attempt.CorrectAnswer,
		Explanation:   attempt.Explanation,
		Score:         score,
	})
}

type advanceResponse struct {
	Done     bool                  `json:"done"`
	Question *session.QuestionView `json:"question,omitempty"`
	Result   *resultView           `json:"result,omitempty"`
}

type resultView struct {
	StationID       int  `json:"stationId"`
	Score           int  `json:"score"`
	MaxScore        int  `json:"maxScore"`
	FirstCompletion bool `json:"firstCompletion"`
	GameComplete    bool `json:"gameComplete"`
	TotalScore      int  `json:"totalScore"`
}

// Advance moves to the next question or finalizes the station run.
func (h *GameHandler) Advance(w http.ResponseWriter, r *http.Request) {
	s, ok := h.activeSession(w, r)
	if !ok {
		return
	}

	result, err := s.Advance()
	if err != nil {
		Error(w, http.StatusConflict, err.Error())
		return
	}

	if result == nil {
		view, viewErr := s.CurrentQuestion()
		if viewErr != nil {
			Error(w, http.StatusInternalServerError, "quiz state lost")
			return
		}
		JSON(w, http.StatusOK, advanceResponse{Done: false, Question: &view})
		return
	}

	user := s.User()
	JSON(w, http.StatusOK, advanceResponse{
		Done: true,
		Result: &resultView{
			StationID:       result.StationID,
			Score:           result.Score,
			MaxScore:        result.MaxScore,
			FirstCompletion: result.FirstCompletion,
			GameComplete:    result.GameComplete,
			TotalScore:      user.Progress.TotalScore,
		},
	})
}

// Continue leaves the result screen.
func (h *GameHandler) Continue(w http.ResponseWriter, r *http.Request) {
	s, ok := h.activeSession(w, r)
	if !ok {
		return
	}
	JSON(w, http.StatusOK, map[string]string{"state": string(s.Continue())})
}

// History returns the player's full attempt log for the report screen.
func (h *GameHandler) History(w http.ResponseWriter, r *http.Request) {
	s, ok := h.activeSession(w, r)
	if !ok {
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"history": s.History()})
}

// leaderboardEntry is one row of the score table. Sorting and display
// are the client's concern.
type leaderboardEntry struct {
	Username   string            `json:"username"`
	TotalScore int               `json:"totalScore"`
	Difficulty domain.Difficulty `json:"difficulty"`
	Completed  int               `json:"completed"`
	LastSync   string            `json:"lastSync,omitempty"`
}

// Leaderboard returns every known player's score, remote first with
// local-cache fallback.
func (h *GameHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	players := h.sessions.Leaderboard(r.Context())

	entries := make([]leaderboardEntry, 0, len(players))
	for username, payload := range players {
		entries = append(entries, leaderboardEntry{
			Username:   username,
			TotalScore: payload.Progress.TotalScore,
			Difficulty: payload.Difficulty,
			Completed:  len(payload.Progress.CompletedStations),
			LastSync:   payload.LastSync,
		})
	}
	JSON(w, http.StatusOK, map[string]interface{}{"players": entries})
}
