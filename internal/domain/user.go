package domain

import "strings"

// User is the full in-memory state for one player. The trimmed username
// is the identity key; there is no separate ID.
type User struct {
	Username   string        `json:"username"`
	Gender     Gender        `json:"gender"`
	Difficulty Difficulty    `json:"difficulty"`
	Progress   Progress      `json:"progress"`
	History    []QuizAttempt `json:"history"`
}

// Payload is the persisted shape for one player, both in the remote
// store and the local cache. Each save overwrites the whole record.
type Payload struct {
	Gender     Gender        `json:"gender"`
	Difficulty Difficulty    `json:"difficulty"`
	Progress   Progress      `json:"progress"`
	History    []QuizAttempt `json:"history"`
	LastSync   string        `json:"lastSync,omitempty"`
}

// Payload snapshots the user's durable state for persistence.
func (u *User) Payload() Payload {
	history := make([]QuizAttempt, len(u.History))
	copy(history, u.History)
	return Payload{
		Gender:     u.Gender,
		Difficulty: u.Difficulty,
		Progress:   u.Progress.Clone(),
		History:    history,
	}
}

// MaxUsernameLen bounds the identity key in bytes. Login and the
// identity cookie enforce the same limit so every established session
// stays reachable.
const MaxUsernameLen = 64

// NormalizeUsername trims surrounding whitespace; the result is the
// store key. Empty results are invalid identities.
func NormalizeUsername(raw string) string {
	return strings.TrimSpace(raw)
}

// ValidUsername reports whether a normalized username is a usable
// identity key.
func ValidUsername(username string) bool {
	return username != "" && len(username) <= MaxUsernameLen
}

// SyncStatus reflects the outcome of the most recent save attempt
// against the remote store.
type SyncStatus string

const (
	// SyncOnline means the last remote write succeeded.
	SyncOnline SyncStatus = "online"
	// SyncOffline means the remote store was unreachable at login.
	SyncOffline SyncStatus = "offline"
	// SyncError means a local write succeeded but the remote leg failed.
	SyncError SyncStatus = "error"
)
