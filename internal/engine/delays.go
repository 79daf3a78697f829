package engine

import (
	"time"

	"github.com/playroomlabs/partyroom/internal/dependencies/random"
)

// DelayRange is a uniform [Min, Max] delay window for a simulated action
type DelayRange struct {
	Min time.Duration
	Max time.Duration
}

// Pick draws a delay from the range
func (r DelayRange) Pick(rnd random.Random) time.Duration {
	return rnd.Duration(r.Min, r.Max)
}

// Delays configures per-action-kind timing for simulated players.
// "First" variants fire sooner so early engagement feels responsive.
type Delays struct {
	FirstComment DelayRange
	Comment      DelayRange
	FirstGuess   DelayRange
	Guess        DelayRange
	Vote         DelayRange
	DrawStart    DelayRange

	// CommentMinInterval is the minimum gap between an AI's comments
	CommentMinInterval time.Duration
	// CommentChance gates regular comments; both the gate and the
	// interval must pass for a comment to be emitted
	CommentChance float64
}

// DefaultDelays returns the standard AI timing configuration
func DefaultDelays() Delays {
	return Delays{
		FirstComment: DelayRange{Min: 3 * time.Second, Max: 8 * time.Second},
		Comment:      DelayRange{Min: 10 * time.Second, Max: 25 * time.Second},
		FirstGuess:   DelayRange{Min: 8 * time.Second, Max: 20 * time.Second},
		Guess:        DelayRange{Min: 15 * time.Second, Max: 40 * time.Second},
		Vote:         DelayRange{Min: 4 * time.Second, Max: 15 * time.Second},
		DrawStart:    DelayRange{Min: 2 * time.Second, Max: 6 * time.Second},

		CommentMinInterval: 12 * time.Second,
		CommentChance:      0.6,
	}
}
