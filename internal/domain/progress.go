package domain

// Progress is the minimal durable state needed to resume play: which
// stations are done and the cumulative score.
type Progress struct {
	CompletedStations []int `json:"completedStations"`
	TotalScore        int   `json:"totalScore"`
}

// NewProgress returns a zero-value progress record with a non-nil
// station list so it serializes as [] rather than null.
func NewProgress() Progress {
	return Progress{CompletedStations: []int{}}
}

// Completed reports whether the station has been completed at least once.
func (p *Progress) Completed(stationID int) bool {
	for _, id := range p.CompletedStations {
		if id == stationID {
			return true
		}
	}
	return false
}

// MarkCompleted records a station completion. Only the first completion
// affects membership and total score; repeats leave the record untouched.
// Returns true when this was a first completion.
func (p *Progress) MarkCompleted(stationID, score int) bool {
	if p.Completed(stationID) {
		return false
	}
	p.CompletedStations = append(p.CompletedStations, stationID)
	p.TotalScore += score
	return true
}

// Clone returns a deep copy safe to hand to another goroutine.
func (p *Progress) Clone() Progress {
	out := Progress{TotalScore: p.TotalScore, CompletedStations: make([]int, len(p.CompletedStations))}
	copy(out.CompletedStations, p.CompletedStations)
	return out
}
