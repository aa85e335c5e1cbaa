package domain

// Question is one multiple-choice item. Options are ordered and
// CorrectAnswer is a zero-based index into them. Immutable once loaded.
type Question struct {
	ID            int      `json:"id"`
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
}

// Station is one themed unit of content gating a quiz. Stations within a
// tier are totally ordered by ID starting at 1 with no gaps.
type Station struct {
	ID            int        `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	SummaryPoints []string   `json:"summaryPoints"`
	Questions     []Question `json:"questions"`
}

// MaxScore returns the highest score a single run of this station can
// award (10 points per question).
func (s *Station) MaxScore() int {
	return len(s.Questions) * 10
}
