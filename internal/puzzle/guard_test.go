package puzzle

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/peterkuimelis/powercountdown/internal/game"
)

type fakeSource struct {
	puzzle Puzzle
	err    error
}

func (f fakeSource) Generate(context.Context, game.Difficulty) (Puzzle, error) {
	return f.puzzle, f.err
}

type fakeHinter struct {
	hint string
	err  error
}

func (f fakeHinter) Hint(context.Context, float64, []float64) (string, error) {
	return f.hint, f.err
}

func TestGuardGenerateForcesFixedDeck(t *testing.T) {
	g := NewGuard(fakeSource{puzzle: Puzzle{Target: 160, Numbers: []float64{1, 2, 3}}}, nil, zaptest.NewLogger(t))

	p, err := g.Generate(context.Background(), game.DifficultyHard)
	require.NoError(t, err)
	assert.Equal(t, 160.0, p.Target)
	assert.Equal(t, game.FixedDeck(), p.Numbers)
	assert.Equal(t, game.DifficultyHard, p.Difficulty)
}

func TestGuardGenerateFallsBack(t *testing.T) {
	tests := []struct {
		name    string
		source  Source
		wantErr error
	}{
		{"no source", nil, ErrUpstream},
		{"upstream error", fakeSource{err: ErrUpstream}, ErrUpstream},
		{"fractional target", fakeSource{puzzle: Puzzle{Target: 2.5}}, ErrInvalidPuzzle},
		{"infinite target", fakeSource{puzzle: Puzzle{Target: math.Inf(1)}}, ErrInvalidPuzzle},
		{"zero target", fakeSource{puzzle: Puzzle{Target: 0}}, ErrInvalidPuzzle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGuard(tt.source, nil, zaptest.NewLogger(t))
			p, err := g.Generate(context.Background(), game.DifficultyEasy)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, float64(game.FallbackTarget), p.Target)
			assert.Equal(t, game.FixedDeck(), p.Numbers)
			assert.Equal(t, game.DifficultyEasy, p.Difficulty)
		})
	}
}

func TestValidateSnapsNearIntegers(t *testing.T) {
	p, err := Validate(Puzzle{Target: 79.99999})
	require.NoError(t, err)
	assert.Equal(t, 80.0, p.Target)
}

func TestGuardHint(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name   string
		hinter Hinter
		want   string
	}{
		{"no hinter", nil, FallbackHint},
		{"failure", fakeHinter{err: errors.New("boom")}, FallbackHint},
		{"empty", fakeHinter{hint: "  \n"}, EmptyHint},
		{"answer", fakeHinter{hint: " Try 16 × 5. "}, "Try 16 × 5."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGuard(nil, tt.hinter, zaptest.NewLogger(t))
			got, err := g.Hint(ctx, 80, game.FixedDeck())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGuardHintCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g := NewGuard(nil, fakeHinter{err: context.Canceled}, zaptest.NewLogger(t))
	_, err := g.Hint(ctx, 80, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
