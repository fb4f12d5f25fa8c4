package puzzle

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/peterkuimelis/powercountdown/internal/game"
)

// Guard wraps a Source and a Hinter so that callers always get something
// playable back. Either collaborator may be nil.
type Guard struct {
	source Source
	hinter Hinter
	logger *zap.Logger
}

func NewGuard(source Source, hinter Hinter, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{source: source, hinter: hinter, logger: logger}
}

// Generate asks the source for a puzzle and validates it. On any failure it
// returns FallbackPuzzle together with the error, so the caller can both play
// and report.
func (g *Guard) Generate(ctx context.Context, d game.Difficulty) (Puzzle, error) {
	if g.source == nil {
		return g.fallback(d, fmt.Errorf("%w: no puzzle source configured", ErrUpstream))
	}
	p, err := g.source.Generate(ctx, d)
	if err != nil {
		return g.fallback(d, err)
	}
	p, err = Validate(p)
	if err != nil {
		return g.fallback(d, err)
	}
	p.Difficulty = d
	return p, nil
}

func (g *Guard) fallback(d game.Difficulty, err error) (Puzzle, error) {
	g.logger.Warn("puzzle generation failed, using fallback",
		zap.Stringer("difficulty", d),
		zap.Error(err),
	)
	p := FallbackPuzzle()
	p.Difficulty = d
	return p, err
}

// Hint asks the hinter for a hint. Failures become FallbackHint and an empty
// answer becomes EmptyHint. The only error returned is the context's own.
func (g *Guard) Hint(ctx context.Context, target float64, values []float64) (string, error) {
	if g.hinter == nil {
		return FallbackHint, nil
	}
	hint, err := g.hinter.Hint(ctx, target, values)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		g.logger.Warn("hint request failed, using fallback", zap.Error(err))
		return FallbackHint, nil
	}
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return EmptyHint, nil
	}
	return hint, nil
}

// Validate forces the fixed deck and checks that the target is a positive
// integer. A target within game.Epsilon of an integer is snapped to it.
func Validate(p Puzzle) (Puzzle, error) {
	t := p.Target
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return p, fmt.Errorf("%w: target %v is not finite", ErrInvalidPuzzle, t)
	}
	r := math.Round(t)
	if math.Abs(t-r) >= game.Epsilon {
		return p, fmt.Errorf("%w: target %v is not an integer", ErrInvalidPuzzle, t)
	}
	if r <= 0 {
		return p, fmt.Errorf("%w: target %v is not positive", ErrInvalidPuzzle, t)
	}
	p.Target = r
	p.Numbers = game.FixedDeck()
	return p, nil
}
