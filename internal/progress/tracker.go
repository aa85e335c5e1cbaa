// Package progress owns the station unlock rules, completion state and
// cumulative score for one player.
package progress

import "github.com/itqan/nahw-station/internal/domain"

// Tracker is the progression state machine over one user's Progress and
// History against the active tier's station list.
type Tracker struct {
	stations []domain.Station
	user     *domain.User
}

// NewTracker binds a tracker to the active tier's stations and the
// session's user state.
func NewTracker(stations []domain.Station, user *domain.User) *Tracker {
	return &Tracker{stations: stations, user: user}
}

// Stations returns the active tier's ordered station list.
func (t *Tracker) Stations() []domain.Station { return t.stations }

// IsUnlocked reports whether a station is selectable: station 1 always
// is, station k requires k-1 to be completed.
func (t *Tracker) IsUnlocked(stationID int) bool {
	if stationID == 1 {
		return true
	}
	return t.user.Progress.Completed(stationID - 1)
}

// SelectStation yields the chosen station for the evaluator to run. A
// locked or unknown station fails silently with no state change.
func (t *Tracker) SelectStation(stationID int) (domain.Station, bool) {
	if stationID < 1 || stationID > len(t.stations) {
		return domain.Station{}, false
	}
	if !t.IsUnlocked(stationID) {
		return domain.Station{}, false
	}
	return t.stations[stationID-1], true
}

// RecordCompletion appends the attempts to history unconditionally and,
// on a station's first completion only, adds it to the completed set and
// its score to the total. Replays grow history without inflating the
// score. Returns true for a first completion.
func (t *Tracker) RecordCompletion(stationID, score int, attempts []domain.QuizAttempt) bool {
	t.user.History = append(t.user.History, attempts...)
	return t.user.Progress.MarkCompleted(stationID, score)
}

// IsGameComplete reports whether every station in the active tier has
// been completed.
func (t *Tracker) IsGameComplete() bool {
	return len(t.user.Progress.CompletedStations) == len(t.stations)
}
