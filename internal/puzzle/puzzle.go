// Package puzzle supplies targets and hints to a game session. Sources may be
// remote and unreliable; Guard turns every failure into a playable fallback.
package puzzle

import (
	"context"
	"errors"

	"github.com/peterkuimelis/powercountdown/internal/game"
)

var (
	// ErrUpstream marks a failure talking to a puzzle or hint provider.
	ErrUpstream = errors.New("puzzle provider failed")
	// ErrInvalidPuzzle marks a provider answer that cannot be played.
	ErrInvalidPuzzle = errors.New("invalid puzzle")
)

const (
	// FallbackHint is shown when the hint provider fails.
	FallbackHint = "Remember that 243 is 3^5 and 343 is 7^3."
	// EmptyHint is shown when the hint provider answers with nothing.
	EmptyHint = "Check if you can make roots using reciprocals."
	// LoadFailedMessage is the user-facing error when a puzzle could not be generated.
	LoadFailedMessage = "Failed to load puzzle. Please try again."
)

// Puzzle is a target together with the starting numbers.
type Puzzle struct {
	Target     float64         `json:"target" yaml:"target"`
	Numbers    []float64       `json:"numbers" yaml:"numbers"`
	Difficulty game.Difficulty `json:"difficulty" yaml:"difficulty"`
	// Solution is an optional worked answer, never shown to the player.
	Solution string `json:"solution,omitempty" yaml:"solution,omitempty"`
}

// Source generates puzzles.
type Source interface {
	Generate(ctx context.Context, d game.Difficulty) (Puzzle, error)
}

// Hinter produces a short strategy hint for the current position.
type Hinter interface {
	Hint(ctx context.Context, target float64, values []float64) (string, error)
}

// FallbackPuzzle is played whenever a source cannot deliver.
func FallbackPuzzle() Puzzle {
	return Puzzle{
		Target:     game.FallbackTarget,
		Numbers:    game.FixedDeck(),
		Difficulty: game.DifficultyMedium,
		Solution:   "16 × 5",
	}
}

// Guidance describes what a target of the given difficulty should demand.
func Guidance(d game.Difficulty) string {
	switch d {
	case game.DifficultyEasy:
		return "Generate a target that can be reached using simple multiplication or direct exponentiation (e.g., 2*5=10, 16*5=80)."
	case game.DifficultyHard:
		return "Generate a target that REQUIRES using reciprocals to create roots (e.g. 243^(1/5) = 3) or complex multi-step operations."
	default:
		return "Generate a target that requires at least 2 or 3 steps, possibly mixing simple roots or larger multiplications."
	}
}
