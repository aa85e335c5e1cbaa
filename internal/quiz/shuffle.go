package quiz

import "math/rand/v2"

// Option is one displayed answer choice. OriginalIndex records which
// catalog option this display position maps back to, so scoring is
// unaffected by shuffling.
type Option struct {
	Text          string `json:"text"`
	OriginalIndex int    `json:"-"`
}

// shuffleOptions produces a fresh random permutation of a question's
// options together with the reverse lookup from displayed position to
// original index.
func shuffleOptions(options []string, rng *rand.Rand) []Option {
	shuffled := make([]Option, len(options))
	for i, text := range options {
		shuffled[i] = Option{Text: text, OriginalIndex: i}
	}
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled
}
