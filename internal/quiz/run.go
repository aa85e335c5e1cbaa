// Package quiz administers a single station's question sequence and
// produces the final score and attempt history.
package quiz

import (
	"errors"
	"math/rand/v2"

	"github.com/itqan/nahw-station/internal/domain"
)

const pointsPerQuestion = 10

var (
	// ErrAnswered is returned when a question is answered a second time
	// without advancing. The call is a no-op.
	ErrAnswered = errors.New("quiz: question already answered")
	// ErrNotAnswered is returned when advancing before the current
	// question has been answered.
	ErrNotAnswered = errors.New("quiz: question not answered yet")
	// ErrInvalidOption is returned for an out-of-range option position.
	ErrInvalidOption = errors.New("quiz: option position out of range")
	// ErrFinished is returned for any call after the run has finalized.
	ErrFinished = errors.New("quiz: run already finished")
)

// Result is the outcome of a completed run.
type Result struct {
	Score    int
	Attempts []domain.QuizAttempt
}

// Run is the in-flight state of one station attempt. Every question must
// be answered exactly once, in order, to finalize; there are no retries
// and no skipping.
type Run struct {
	station   domain.Station
	rng       *rand.Rand
	index     int
	displayed []Option
	answered  bool
	score     int
	attempts  []domain.QuizAttempt
	finished  bool
}

// NewRun starts a run at question index 0 with freshly shuffled options.
// A nil rng gets a default random source; tests inject a seeded one.
func NewRun(station domain.Station, rng *rand.Rand) *Run {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	r := &Run{station: station, rng: rng}
	r.displayed = shuffleOptions(r.current().Options, rng)
	return r
}

func (r *Run) current() domain.Question {
	return r.station.Questions[r.index]
}

// Question returns the current question.
func (r *Run) Question() domain.Question { return r.current() }

// Options returns the current question's options in display order.
func (r *Run) Options() []Option { return r.displayed }

// QuestionNumber returns the 1-based position of the current question.
func (r *Run) QuestionNumber() int { return r.index + 1 }

// TotalQuestions returns the number of questions in the station.
func (r *Run) TotalQuestions() int { return len(r.station.Questions) }

// Answered reports whether the current question has been answered.
func (r *Run) Answered() bool { return r.answered }

// Score returns the running per-station score.
func (r *Run) Score() int { return r.score }

// Finished reports whether the run has finalized.
func (r *Run) Finished() bool { return r.finished }

// Answer marks the current question answered with the option at the
// given displayed position. Correctness is judged against the original
// option index, awarding 10 points with no partial credit, and exactly
// one attempt record is appended. Answering twice without advancing is
// rejected.
func (r *Run) Answer(position int) (domain.QuizAttempt, error) {
	if r.finished {
		return domain.QuizAttempt{}, ErrFinished
	}
	if r.answered {
		return domain.QuizAttempt{}, ErrAnswered
	}
	if position < 0 || position >= len(r.displayed) {
		return domain.QuizAttempt{}, ErrInvalidOption
	}

	question := r.current()
	chosen := r.displayed[position]
	isCorrect := chosen.OriginalIndex == question.CorrectAnswer
	if isCorrect {
		r.score += pointsPerQuestion
	}

	attempt := domain.QuizAttempt{
		StationID:     r.station.ID,
		QuestionID:    question.ID,
		QuestionText:  question.Text,
		IsCorrect:     isCorrect,
		UserAnswer:    chosen.Text,
		CorrectAnswer: question.Options[question.CorrectAnswer],
		Explanation:   question.Explanation,
		Topic:         r.station.Title,
	}
	r.attempts = append(r.attempts, attempt)
	r.answered = true
	return attempt, nil
}

// Advance moves to the next question with a fresh shuffle, or finalizes
// the run after the last question. Advancing before answering is
// rejected. The returned bool is true once the run has finalized.
func (r *Run) Advance() (Result, bool, error) {
	if r.finished {
		return Result{}, false, ErrFinished
	}
	if !r.answered {
		return Result{}, false, ErrNotAnswered
	}

	if r.index+1 < len(r.station.Questions) {
		r.index++
		r.answered = false
		r.displayed = shuffleOptions(r.current().Options, r.rng)
		return Result{}, false, nil
	}

	r.finished = true
	return Result{Score: r.score, Attempts: r.attempts}, true, nil
}
