package game

import "errors"

// Rejections. Reduce returns the state unchanged alongside one of these.
var (
	ErrStaleReference     = errors.New("card is not at the claimed location")
	ErrSlotsIncomplete    = errors.New("both slots must be occupied")
	ErrInvalidCombination = errors.New("combination does not produce a finite value")
	ErrUnknownOperation   = errors.New("unknown operation")
	ErrSolved             = errors.New("puzzle already solved")
	ErrEmptyHistory       = errors.New("nothing to undo")
	ErrInvalidTarget      = errors.New("target must be a finite number")
	ErrUnknownAction      = errors.New("unknown action")
)
