package domain

// QuizAttempt is one recorded answer event. Attempts are append-only
// facts: created once per answered question, never mutated or deleted.
type QuizAttempt struct {
	StationID     int    `json:"stationId"`
	QuestionID    int    `json:"questionId"`
	QuestionText  string `json:"questionText"`
	IsCorrect     bool   `json:"isCorrect"`
	UserAnswer    string `json:"userAnswer"`
	CorrectAnswer string `json:"correctAnswer"`
	Explanation   string `json:"explanation"`
	Topic         string `json:"topic"`
}
