package game

import (
	"slices"
	"testing"

	"github.com/peterkuimelis/powercountdown/internal/log"
)

// newDeckSession starts a session on the fixed deck with the given target.
func newDeckSession(t *testing.T, target float64) (*Session, *log.MemoryLogger) {
	t.Helper()
	logger := log.NewMemoryLogger()
	s := NewSession(logger)
	if err := s.Start(target, FixedDeck(), DifficultyMedium); err != nil {
		t.Fatalf("start: %v", err)
	}
	return s, logger
}

// handCard returns the first hand card whose value is within Epsilon of v.
func handCard(t *testing.T, st State, v float64) Card {
	t.Helper()
	for _, c := range st.Hand {
		if IsTargetReached(c.Value, v) {
			return c
		}
	}
	t.Fatalf("no card with value %v in hand %v", v, st.Hand)
	return Card{}
}

// stageValue stages the hand card with value v into slot to.
func stageValue(t *testing.T, s *Session, v float64, to Location) Card {
	t.Helper()
	c := handCard(t, s.State, v)
	if err := s.Stage(LocationHand, c.ID, to); err != nil {
		t.Fatalf("stage %v into %s: %v", v, to, err)
	}
	return c
}

// combineValues stages a into slot A, b into slot B and combines them.
func combineValues(t *testing.T, s *Session, a, b float64, op Operation) Card {
	t.Helper()
	stageValue(t, s, a, LocationSlotA)
	stageValue(t, s, b, LocationSlotB)
	if err := s.Combine(op); err != nil {
		t.Fatalf("combine %v %s %v: %v", a, op, b, err)
	}
	return s.State.Hand[len(s.State.Hand)-1]
}

func liveIDs(st State) []int {
	var ids []int
	for _, c := range st.LiveCards() {
		ids = append(ids, c.ID)
	}
	slices.Sort(ids)
	return ids
}

func sortedValues(cards []Card) []float64 {
	values := make([]float64, len(cards))
	for i, c := range cards {
		values[i] = c.Value
	}
	slices.Sort(values)
	return values
}

// assertNoDuplicates fails if any card id appears twice among the live cards.
func assertNoDuplicates(t *testing.T, st State) {
	t.Helper()
	ids := liveIDs(st)
	if len(slices.Compact(slices.Clone(ids))) != len(ids) {
		t.Fatalf("duplicate live card ids: %v", ids)
	}
}
