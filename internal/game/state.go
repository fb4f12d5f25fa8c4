package game

import (
	"fmt"
	"slices"
)

// State is the complete, serializable state of one puzzle session.
// It is only ever changed through Reduce, which returns a new value.
type State struct {
	Generation int        `json:"generation"` // bumped by every Start
	Target     float64    `json:"target"`
	Difficulty Difficulty `json:"difficulty"`
	Hand       []Card     `json:"hand"`
	SlotA      *Card      `json:"slot_a,omitempty"`
	SlotB      *Card      `json:"slot_b,omitempty"`
	History    []Snapshot `json:"history"`
	Solved     bool       `json:"solved"`

	// NextID is the id the next created card receives. Undo does not rewind it.
	NextID int `json:"next_id"`
}

// NewState returns an empty state with no puzzle loaded.
func NewState() State {
	return State{NextID: 1}
}

// clone deep-copies the mutable parts so a transition never aliases its input.
func (s State) clone() State {
	out := s
	out.Hand = slices.Clone(s.Hand)
	out.History = slices.Clone(s.History)
	if s.SlotA != nil {
		a := *s.SlotA
		out.SlotA = &a
	}
	if s.SlotB != nil {
		b := *s.SlotB
		out.SlotB = &b
	}
	return out
}

// newCard allocates a card with a fresh id.
func (s *State) newCard(v float64, original bool) Card {
	if s.NextID < 1 {
		s.NextID = 1
	}
	c := Card{ID: s.NextID, Value: v, Label: FormatValue(v), Original: original}
	s.NextID++
	return c
}

// Slot returns the card in the given slot, or nil.
func (s State) Slot(l Location) *Card {
	switch l {
	case LocationSlotA:
		return s.SlotA
	case LocationSlotB:
		return s.SlotB
	default:
		return nil
	}
}

func (s *State) setSlot(l Location, c *Card) {
	switch l {
	case LocationSlotA:
		s.SlotA = c
	case LocationSlotB:
		s.SlotB = c
	}
}

// handIndex returns the index of the card with id in the hand, or -1.
func (s State) handIndex(id int) int {
	return slices.IndexFunc(s.Hand, func(c Card) bool { return c.ID == id })
}

// Locate reports where the card with id currently is.
func (s State) Locate(id int) (Location, bool) {
	if s.SlotA != nil && s.SlotA.ID == id {
		return LocationSlotA, true
	}
	if s.SlotB != nil && s.SlotB.ID == id {
		return LocationSlotB, true
	}
	if s.handIndex(id) >= 0 {
		return LocationHand, true
	}
	return LocationHand, false
}

// LiveCards returns hand + SlotA + SlotB, the exact contents a snapshot records.
func (s State) LiveCards() []Card {
	live := slices.Clone(s.Hand)
	if s.SlotA != nil {
		live = append(live, *s.SlotA)
	}
	if s.SlotB != nil {
		live = append(live, *s.SlotB)
	}
	return live
}

// LiveValues returns the values of LiveCards, in the same order.
func (s State) LiveValues() []float64 {
	live := s.LiveCards()
	values := make([]float64, len(live))
	for i, c := range live {
		values[i] = c.Value
	}
	return values
}

// CanUndo reports whether there is a snapshot to restore.
func (s State) CanUndo() bool {
	return len(s.History) > 0
}

// CanCombine reports whether a combine request would be attempted.
func (s State) CanCombine() bool {
	return !s.Solved && s.SlotA != nil && s.SlotB != nil
}

// Reduce applies one action. On rejection it returns s unchanged and a
// non-nil error; s itself is never modified.
func Reduce(s State, a Action) (State, error) {
	switch a.Type {
	case ActionStart:
		return start(s, a)
	case ActionStage:
		return stage(s, a.Card, a.To)
	case ActionReturn:
		return returnToHand(s, a.Card)
	case ActionCombine:
		return combine(s, a.Op)
	case ActionUndo:
		return undo(s)
	default:
		return s, fmt.Errorf("%w: %d", ErrUnknownAction, int(a.Type))
	}
}

func start(s State, a Action) (State, error) {
	if !isFinite(a.Target) {
		return s, ErrInvalidTarget
	}
	for _, n := range a.Numbers {
		if !isFinite(n) {
			return s, fmt.Errorf("%w: starting number %v", ErrInvalidTarget, n)
		}
	}
	next := State{
		Generation: s.Generation + 1,
		Target:     a.Target,
		Difficulty: a.Difficulty,
		Hand:       make([]Card, 0, len(a.Numbers)),
		NextID:     s.NextID,
	}
	for _, n := range a.Numbers {
		next.Hand = append(next.Hand, next.newCard(n, true))
	}
	return next, nil
}

// stage moves a card into slot to. A card coming from the hand displaces the
// current occupant back to the hand; a card coming from the other slot swaps.
func stage(s State, ref Ref, to Location) (State, error) {
	if s.Solved {
		return s, ErrSolved
	}
	if !to.IsSlot() {
		return s, fmt.Errorf("%w: stage target %s is not a slot", ErrStaleReference, to)
	}
	at, ok := s.Locate(ref.CardID)
	if !ok || at != ref.From {
		return s, fmt.Errorf("%w: card #%d at %s", ErrStaleReference, ref.CardID, ref.From)
	}
	if ref.From == to {
		return s, nil
	}

	next := s.clone()
	displaced := next.Slot(to)

	if ref.From == LocationHand {
		i := next.handIndex(ref.CardID)
		moved := next.Hand[i]
		next.Hand = slices.Delete(next.Hand, i, i+1)
		next.setSlot(to, &moved)
		if displaced != nil {
			next.Hand = append(next.Hand, *displaced)
		}
		return next, nil
	}

	// slot to slot
	moved := next.Slot(ref.From)
	next.setSlot(to, moved)
	next.setSlot(ref.From, displaced)
	return next, nil
}

func returnToHand(s State, ref Ref) (State, error) {
	if s.Solved {
		return s, ErrSolved
	}
	if !ref.From.IsSlot() {
		return s, fmt.Errorf("%w: card #%d is already in hand", ErrStaleReference, ref.CardID)
	}
	c := s.Slot(ref.From)
	if c == nil || c.ID != ref.CardID {
		return s, fmt.Errorf("%w: card #%d at %s", ErrStaleReference, ref.CardID, ref.From)
	}
	next := s.clone()
	next.Hand = append(next.Hand, *c)
	next.setSlot(ref.From, nil)
	return next, nil
}

func combine(s State, op Operation) (State, error) {
	if s.Solved {
		return s, ErrSolved
	}
	if s.SlotA == nil || s.SlotB == nil {
		return s, ErrSlotsIncomplete
	}

	next := s.clone()
	result, err := Combine(*next.SlotA, *next.SlotB, op, next.NextID)
	if err != nil {
		return s, err
	}
	next.NextID++

	next.History = append(next.History, Snapshot(s.LiveCards()))
	if !op.Consumes(LocationSlotB) {
		next.Hand = append(next.Hand, *next.SlotB)
	}
	next.Hand = append(next.Hand, result)
	next.SlotA, next.SlotB = nil, nil
	next.Solved = IsTargetReached(result.Value, next.Target)
	return next, nil
}

// undo restores the last snapshot. Solved is always cleared, even when the
// restored hand already contains the target.
func undo(s State) (State, error) {
	if len(s.History) == 0 {
		return s, ErrEmptyHistory
	}
	next := s.clone()
	last := next.History[len(next.History)-1]
	next.History = next.History[:len(next.History)-1]
	next.Hand = slices.Clone([]Card(last))
	next.SlotA, next.SlotB = nil, nil
	next.Solved = false
	return next, nil
}
