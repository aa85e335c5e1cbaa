// Package domain contains core domain types for the grammar game.
package domain

import "strings"

// Difficulty is a closed set of game tiers. Each tier owns its own
// ordered station list in the catalog.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "BEGINNER"
	DifficultyIntermediate Difficulty = "INTERMEDIATE"
	DifficultyAdvanced     Difficulty = "ADVANCED"
)

// ParseDifficulty normalizes a raw tier string. Unknown or empty values
// fall back to the beginner tier.
func ParseDifficulty(raw string) Difficulty {
	switch Difficulty(strings.ToUpper(strings.TrimSpace(raw))) {
	case DifficultyIntermediate:
		return DifficultyIntermediate
	case DifficultyAdvanced:
		return DifficultyAdvanced
	default:
		return DifficultyBeginner
	}
}

// Gender selects cosmetic text variants only; it carries no gameplay
// semantics.
type Gender string

const (
	GenderBoy  Gender = "boy"
	GenderGirl Gender = "girl"
)

// ParseGender normalizes a raw gender string, defaulting to boy.
func ParseGender(raw string) Gender {
	if Gender(strings.ToLower(strings.TrimSpace(raw))) == GenderGirl {
		return GenderGirl
	}
	return GenderBoy
}
