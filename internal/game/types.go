package game

import (
	"fmt"
	"strings"
)

// Epsilon is the tolerance for every floating-point equality check in the game.
const Epsilon = 1e-4

// FallbackTarget is the target of the puzzle used when no puzzle source answers (16 * 5).
const FallbackTarget = 80

// FixedDeck returns the starting numbers shared by every puzzle.
func FixedDeck() []float64 {
	return []float64{2, 5, 16, 243, 343, 512}
}

// --- Enums ---

type Difficulty int

const (
	DifficultyMedium Difficulty = iota
	DifficultyEasy
	DifficultyHard
)

func (d Difficulty) String() string {
	switch d {
	case DifficultyEasy:
		return "EASY"
	case DifficultyHard:
		return "HARD"
	default:
		return "MEDIUM"
	}
}

// ParseDifficulty accepts EASY, MEDIUM or HARD in any case. The empty string is MEDIUM.
func ParseDifficulty(s string) (Difficulty, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "EASY":
		return DifficultyEasy, nil
	case "MEDIUM", "":
		return DifficultyMedium, nil
	case "HARD":
		return DifficultyHard, nil
	default:
		return DifficultyMedium, fmt.Errorf("unknown difficulty %q", s)
	}
}

func (d Difficulty) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Difficulty) UnmarshalText(b []byte) error {
	parsed, err := ParseDifficulty(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

type Operation int

const (
	OpMultiply Operation = iota + 1
	OpPower
	OpReciprocal
)

func (o Operation) String() string {
	switch o {
	case OpMultiply:
		return "MULTIPLY"
	case OpPower:
		return "POWER"
	case OpReciprocal:
		return "RECIPROCAL"
	default:
		return "UNKNOWN"
	}
}

// Symbol is the short form used in event details.
func (o Operation) Symbol() string {
	switch o {
	case OpMultiply:
		return "×"
	case OpPower:
		return "^"
	case OpReciprocal:
		return "1/"
	default:
		return "?"
	}
}

// ParseOperation understands the canonical names plus the short REPL aliases.
func ParseOperation(s string) (Operation, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "MULTIPLY", "MUL", "*", "×":
		return OpMultiply, nil
	case "POWER", "POWER_AB", "POW", "^":
		return OpPower, nil
	case "RECIPROCAL", "INV", "1/":
		return OpReciprocal, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownOperation, s)
	}
}

// Location is where a card currently sits.
type Location int

const (
	LocationHand Location = iota
	LocationSlotA
	LocationSlotB
)

func (l Location) String() string {
	switch l {
	case LocationSlotA:
		return "slotA"
	case LocationSlotB:
		return "slotB"
	default:
		return "hand"
	}
}

// IsSlot reports whether l is one of the two staging slots.
func (l Location) IsSlot() bool {
	return l == LocationSlotA || l == LocationSlotB
}

func ParseLocation(s string) (Location, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hand", "":
		return LocationHand, nil
	case "slota", "a":
		return LocationSlotA, nil
	case "slotb", "b":
		return LocationSlotB, nil
	default:
		return LocationHand, fmt.Errorf("unknown location %q", s)
	}
}

// --- Card ---

// Card is an immutable numeric token. Derived cards come only from Combine.
type Card struct {
	ID       int     `json:"id"`
	Value    float64 `json:"value"`
	Label    string  `json:"label"`
	Original bool    `json:"original"`
}

func (c Card) String() string {
	return fmt.Sprintf("%s#%d", c.Label, c.ID)
}

// Snapshot is the full live card set captured before a combination.
type Snapshot []Card

// Ref names a card at the location it is claimed to be in, as carried by a drag gesture.
type Ref struct {
	From   Location `json:"from"`
	CardID int      `json:"card_id"`
}

// --- Actions ---

type ActionType int

const (
	ActionStart ActionType = iota
	ActionStage
	ActionReturn
	ActionCombine
	ActionUndo
)

func (a ActionType) String() string {
	switch a {
	case ActionStart:
		return "Start"
	case ActionStage:
		return "Stage"
	case ActionReturn:
		return "Return"
	case ActionCombine:
		return "Combine"
	case ActionUndo:
		return "Undo"
	default:
		return "Unknown"
	}
}

// Action is one player input. Only the fields relevant to Type are read.
type Action struct {
	Type ActionType

	// Start
	Target     float64
	Numbers    []float64
	Difficulty Difficulty

	// Stage, Return
	Card Ref
	To   Location

	// Combine
	Op Operation
}

func (a Action) String() string {
	switch a.Type {
	case ActionStart:
		return fmt.Sprintf("Start target=%s numbers=%d", FormatValue(a.Target), len(a.Numbers))
	case ActionStage:
		return fmt.Sprintf("Stage #%d %s→%s", a.Card.CardID, a.Card.From, a.To)
	case ActionReturn:
		return fmt.Sprintf("Return #%d from %s", a.Card.CardID, a.Card.From)
	case ActionCombine:
		return fmt.Sprintf("Combine %s", a.Op)
	default:
		return a.Type.String()
	}
}

// Convenience constructors used by the surfaces.

func StartAction(target float64, numbers []float64, d Difficulty) Action {
	return Action{Type: ActionStart, Target: target, Numbers: numbers, Difficulty: d}
}

func StageAction(from Location, cardID int, to Location) Action {
	return Action{Type: ActionStage, Card: Ref{From: from, CardID: cardID}, To: to}
}

func ReturnAction(from Location, cardID int) Action {
	return Action{Type: ActionReturn, Card: Ref{From: from, CardID: cardID}}
}

func CombineAction(op Operation) Action {
	return Action{Type: ActionCombine, Op: op}
}

func UndoAction() Action {
	return Action{Type: ActionUndo}
}
