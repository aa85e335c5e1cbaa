// Package media holds the thin contracts for the illustration and
// narration collaborators plus the sound-effect registry. Failures here
// are always tolerated: the game plays on without pictures or audio.
package media

import (
	"context"
	"errors"
)

// ErrDisabled means the collaborator has no configured endpoint. The
// caller falls back silently.
var ErrDisabled = errors.New("media: service not configured")

// Illustrator generates an illustrative image for a text prompt.
type Illustrator interface {
	Illustrate(ctx context.Context, prompt string) (data []byte, contentType string, err error)
}

// Narrator renders spoken audio for a question, optionally reading the
// answer options as well.
type Narrator interface {
	Narrate(ctx context.Context, text string, options []string) (data []byte, contentType string, err error)
}

// SoundEffects maps discrete UI events to short effect clips played
// fire-and-forget by the client.
var SoundEffects = map[string]string{
	"click":      "https://actions.google.com/sounds/v1/buttons/light_switch_on.ogg",
	"correct":    "https://actions.google.com/sounds/v1/cartoon/pop.ogg",
	"wrong":      "https://actions.google.com/sounds/v1/cartoon/wood_plank_flick.ogg",
	"success":    "https://actions.google.com/sounds/v1/cartoon/clime_up_the_ladder.ogg",
	"transition": "https://actions.google.com/sounds/v1/cartoon/concussive_hit_guitar_accent.ogg",
}
