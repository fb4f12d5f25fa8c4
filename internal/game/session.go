package game

import (
	"errors"
	"fmt"

	"github.com/peterkuimelis/powercountdown/internal/log"
)

// Session holds the current State of one player's game and records every
// transition to an event log. It is not safe for concurrent use.
type Session struct {
	State  State
	Logger log.EventLogger
}

// NewSession creates a session with no puzzle loaded.
func NewSession(logger log.EventLogger) *Session {
	if logger == nil {
		logger = log.NewMemoryLogger()
	}
	return &Session{State: NewState(), Logger: logger}
}

// Apply runs one action through Reduce. A rejected action leaves the state
// untouched, is logged as EventRejected, and its error is returned so the
// caller can decide whether to surface it (the surfaces do not).
func (s *Session) Apply(a Action) error {
	prev := s.State
	next, err := Reduce(prev, a)
	if err != nil {
		s.log(log.NewRejectedEvent(prev.Generation, a.String(), err))
		return err
	}
	s.State = next
	s.logTransition(prev, next, a)
	return nil
}

// Start begins a new puzzle.
func (s *Session) Start(target float64, numbers []float64, d Difficulty) error {
	return s.Apply(StartAction(target, numbers, d))
}

// Stage moves the card with id from its claimed location into slot to.
func (s *Session) Stage(from Location, id int, to Location) error {
	return s.Apply(StageAction(from, id, to))
}

// ReturnToHand sends a staged card back to the hand. It is a no-op when the
// card is not in a slot.
func (s *Session) ReturnToHand(id int) error {
	at, ok := s.State.Locate(id)
	if !ok || !at.IsSlot() {
		err := fmt.Errorf("%w: card #%d is not staged", ErrStaleReference, id)
		s.log(log.NewRejectedEvent(s.State.Generation, fmt.Sprintf("Return #%d", id), err))
		return err
	}
	return s.Apply(ReturnAction(at, id))
}

// Combine combines the two staged cards.
func (s *Session) Combine(op Operation) error {
	return s.Apply(CombineAction(op))
}

// Undo restores the hand from before the last combination.
func (s *Session) Undo() error {
	return s.Apply(UndoAction())
}

// IsRejection reports whether err is one of the inert-action rejections.
func IsRejection(err error) bool {
	for _, target := range []error{
		ErrStaleReference, ErrSlotsIncomplete, ErrInvalidCombination,
		ErrUnknownOperation, ErrSolved, ErrEmptyHistory,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (s *Session) log(e log.GameEvent) {
	s.Logger.Log(e)
}

func (s *Session) logTransition(prev, next State, a Action) {
	gen := next.Generation
	switch a.Type {
	case ActionStart:
		labels := make([]string, len(next.Hand))
		for i, c := range next.Hand {
			labels[i] = c.Label
		}
		s.log(log.NewGameEvent(gen, FormatValue(next.Target), next.Difficulty.String(), labels))

	case ActionStage:
		if a.Card.From == a.To {
			return
		}
		if a.Card.From.IsSlot() {
			s.log(log.NewSwapEvent(gen, slotLabel(next.SlotA), slotLabel(next.SlotB)))
			return
		}
		moved := next.Slot(a.To)
		s.log(log.NewStageEvent(gen, moved.Label, a.Card.From.String(), a.To.String()))

	case ActionReturn:
		c := prev.Slot(a.Card.From)
		s.log(log.NewReturnEvent(gen, c.Label, a.Card.From.String()))

	case ActionCombine:
		result := next.Hand[len(next.Hand)-1]
		s.log(log.NewCombineEvent(gen, prev.SlotA.Label, a.Op.Symbol(), prev.SlotB.Label, result.Label))
		if next.Solved {
			s.log(log.NewSolvedEvent(gen, result.Label, FormatValue(next.Target)))
		}

	case ActionUndo:
		s.log(log.NewUndoEvent(gen, len(next.History)))
	}
}

func slotLabel(c *Card) string {
	if c == nil {
		return "(empty)"
	}
	return c.Label
}
