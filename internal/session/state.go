package session

// State is the finite-state position of one player session. The login
// flow moves LoggedOut -> LoadingRemote -> one of Onboarding, Resumed or
// DegradedLocal, then Active once the station map is shown. Gameplay
// cycles Active -> StationSelected -> QuizInProgress -> StationResult
// and back to Active, or to GameComplete when the tier is finished.
type State string

const (
	StateLoggedOut       State = "LOGGED_OUT"
	StateLoadingRemote   State = "LOADING_REMOTE"
	StateOnboarding      State = "ONBOARDING"
	StateResumed         State = "RESUMED"
	StateDegradedLocal   State = "DEGRADED_LOCAL"
	StateActive          State = "ACTIVE"
	StateStationSelected State = "STATION_SELECTED"
	StateQuizInProgress  State = "QUIZ_IN_PROGRESS"
	StateStationResult   State = "STATION_RESULT"
	StateGameComplete    State = "GAME_COMPLETE"
)

// loginOutcome reports whether a state is one of the three login
// results that may proceed to Active.
func (s State) loginOutcome() bool {
	return s == StateOnboarding || s == StateResumed || s == StateDegradedLocal
}
