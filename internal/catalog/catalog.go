// Package catalog holds the static, read-only station registry. One
// ordered station list is loaded per difficulty tier from embedded JSON
// and validated once at startup.
package catalog

import (
	"embed"
	"encoding/json"
	"fmt"

	"github.com/itqan/nahw-station/internal/domain"
)

//go:embed data/*.json
var dataFS embed.FS

var tierFiles = map[domain.Difficulty]string{
	domain.DifficultyBeginner:     "data/beginner.json",
	domain.DifficultyIntermediate: "data/intermediate.json",
	domain.DifficultyAdvanced:     "data/advanced.json",
}

// stationRecord is the on-disk station shape. Stations without authored
// questions carry a topic instead; their question set is synthesized at
// load time.
type stationRecord struct {
	domain.Station
	Topic string `json:"topic,omitempty"`
}

// Catalog is an immutable registry of stations keyed by tier.
type Catalog struct {
	tiers map[domain.Difficulty][]domain.Station
}

// New loads and validates every tier from the embedded data files.
func New() (*Catalog, error) {
	c := &Catalog{tiers: make(map[domain.Difficulty][]domain.Station, len(tierFiles))}
	for tier, path := range tierFiles {
		stations, err := loadTier(tier, path)
		if err != nil {
			return nil, fmt.Errorf("load tier %s: %w", tier, err)
		}
		c.tiers[tier] = stations
	}
	return c, nil
}

func loadTier(tier domain.Difficulty, path string) ([]domain.Station, error) {
	raw, err := dataFS.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var records []stationRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	stations := make([]domain.Station, 0, len(records))
	for _, rec := range records {
		station := rec.Station
		if len(station.Questions) == 0 {
			topic := rec.Topic
			if topic == "" {
				topic = station.Title
			}
			station.Questions = genericQuestions(topic, tier)
		}
		stations = append(stations, station)
	}

	if err := validateTier(stations); err != nil {
		return nil, err
	}
	return stations, nil
}

// validateTier enforces the catalog invariants at the boundary: ids are
// contiguous from 1, every question has exactly 4 options and an
// in-range answer key.
func validateTier(stations []domain.Station) error {
	if len(stations) == 0 {
		return fmt.Errorf("tier has no stations")
	}
	for i, station := range stations {
		if station.ID != i+1 {
			return fmt.Errorf("station %d: expected id %d, got %d", i, i+1, station.ID)
		}
		if station.Title == "" {
			return fmt.Errorf("station %d: empty title", station.ID)
		}
		if len(station.Questions) == 0 {
			return fmt.Errorf("station %d: no questions", station.ID)
		}
		for _, q := range station.Questions {
			if len(q.Options) != 4 {
				return fmt.Errorf("station %d question %d: expected 4 options, got %d", station.ID, q.ID, len(q.Options))
			}
			if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
				return fmt.Errorf("station %d question %d: answer index %d out of range", station.ID, q.ID, q.CorrectAnswer)
			}
			if q.Text == "" {
				return fmt.Errorf("station %d question %d: empty text", station.ID, q.ID)
			}
		}
	}
	return nil
}

// StationsByDifficulty returns the ordered station list for a tier.
// Unknown tiers resolve to the beginner list via ParseDifficulty.
func (c *Catalog) StationsByDifficulty(tier domain.Difficulty) []domain.Station {
	if stations, ok := c.tiers[tier]; ok {
		return stations
	}
	return c.tiers[domain.ParseDifficulty(string(tier))]
}

// Station looks up a single station by tier and id.
func (c *Catalog) Station(tier domain.Difficulty, id int) (domain.Station, bool) {
	stations := c.StationsByDifficulty(tier)
	if id < 1 || id > len(stations) {
		return domain.Station{}, false
	}
	return stations[id-1], true
}

// genericQuestions synthesizes a deterministic 10-question drill for
// stations without authored content, mirroring the original curriculum
// filler.
func genericQuestions(topic string, tier domain.Difficulty) []domain.Question {
	prefix := "بسيط: "
	switch tier {
	case domain.DifficultyIntermediate:
		prefix = "متوسط: "
	case domain.DifficultyAdvanced:
		prefix = "متقدم: "
	}

	questions := make([]domain.Question, 0, 10)
	for i := 1; i <= 10; i++ {
		questions = append(questions, domain.Question{
			ID:            i,
			Text:          fmt.Sprintf("%sحدد الإجابة المتعلقة بـ %s (سؤال %d)؟", prefix, topic, i),
			Options:       []string{"الخيار الصحيح", "خيار غير دقيق", "تحقق من القاعدة", "ربما في محطة أخرى"},
			CorrectAnswer: 0,
			Explanation:   fmt.Sprintf("هذه قاعدة هامة في %s يجب إتقانها.", topic),
		})
	}
	return questions
}
