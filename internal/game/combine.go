package game

import (
	"fmt"
	"math"
)

// Combine applies op to the two staged cards and returns the derived card
// with the given id. It does not touch any state; the caller decides what
// the result means for the hand.
//
// RECIPROCAL only reads a (the SlotA card).
func Combine(a, b Card, op Operation, id int) (Card, error) {
	var v float64
	switch op {
	case OpMultiply:
		v = a.Value * b.Value
	case OpPower:
		v = math.Pow(a.Value, b.Value)
	case OpReciprocal:
		v = 1 / a.Value
	default:
		return Card{}, fmt.Errorf("%w: %d", ErrUnknownOperation, int(op))
	}
	if !isFinite(v) {
		return Card{}, fmt.Errorf("%w: %s %s %s", ErrInvalidCombination, a.Label, op.Symbol(), b.Label)
	}
	return Card{
		ID:    id,
		Value: v,
		Label: FormatValue(v),
	}, nil
}

// Consumes reports whether op uses up the SlotB card. Only the binary
// operations do; a reciprocal sends SlotB back to the hand.
func (o Operation) Consumes(slot Location) bool {
	switch slot {
	case LocationSlotA:
		return true
	case LocationSlotB:
		return o != OpReciprocal
	default:
		return false
	}
}
