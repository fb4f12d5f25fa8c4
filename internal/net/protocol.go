package net

import (
	"fmt"
	"math"
	"strconv"

	"github.com/peterkuimelis/powercountdown/internal/game"
	"github.com/peterkuimelis/powercountdown/internal/log"
	"github.com/peterkuimelis/powercountdown/internal/play"
)

// Message types for the JSON protocol. The same messages travel over TCP
// (one JSON value per line) and over the browser websocket.

// --- Server → Client messages ---

const (
	MsgState = "state"
	MsgError = "error"
)

// ServerMessage is the envelope for all server-to-client messages.
type ServerMessage struct {
	Type string `json:"type"`

	// For "state"
	State  *StateView  `json:"state,omitempty"`
	Events []EventView `json:"events,omitempty"`

	// For "error"
	Error string `json:"error,omitempty"`
}

// EventView is a game event for the client.
type EventView struct {
	Seq        int    `json:"seq"`
	Generation int    `json:"generation"`
	Type       string `json:"type"`
	Card       string `json:"card,omitempty"`
	Details    string `json:"details"`
}

// CardView is one card as rendered. Approx is set when the label hides a
// fractional value.
type CardView struct {
	ID       int     `json:"id"`
	Value    float64 `json:"value"`
	Label    string  `json:"label"`
	Original bool    `json:"original"`
	Approx   string  `json:"approx,omitempty"`
}

// StateView is everything a surface needs to draw one session.
type StateView struct {
	Session     string     `json:"session"`
	Target      float64    `json:"target"`
	TargetLabel string     `json:"target_label"`
	Difficulty  string     `json:"difficulty"`
	Hand        []CardView `json:"hand"`
	SlotA       *CardView  `json:"slot_a"`
	SlotB       *CardView  `json:"slot_b"`
	CanUndo     bool       `json:"can_undo"`
	CanCombine  bool       `json:"can_combine"`
	Solved      bool       `json:"solved"`
	Loading     bool       `json:"loading"`
	LoadingHint bool       `json:"loading_hint"`
	Hint        string     `json:"hint,omitempty"`
	Error       string     `json:"error,omitempty"`
	Generation  int        `json:"generation"`
}

// --- Client → Server messages ---

const (
	MsgNewGame  = "new_game"
	MsgStage    = "stage"
	MsgReturn   = "return"
	MsgCombine  = "combine"
	MsgUndo     = "undo"
	MsgHint     = "hint"
	MsgGetState = "state"
)

// ClientMessage is the envelope for all client-to-server messages.
type ClientMessage struct {
	Type string `json:"type"`

	// For "stage" and "return"
	CardID int    `json:"card_id,omitempty"`
	From   string `json:"from,omitempty"` // hand, slotA, slotB
	Slot   string `json:"slot,omitempty"` // slotA, slotB

	// For "combine"
	Operation string `json:"operation,omitempty"`

	// For "new_game"; empty keeps the current difficulty
	Difficulty string `json:"difficulty,omitempty"`
}

// --- Views ---

// BuildStateView creates the read model of a controller snapshot.
func BuildStateView(snap play.Snapshot) *StateView {
	st := snap.State
	sv := &StateView{
		Session:     snap.ID,
		Target:      st.Target,
		TargetLabel: game.FormatValue(st.Target),
		Difficulty:  snap.Difficulty.String(),
		Hand:        make([]CardView, 0, len(st.Hand)),
		CanUndo:     st.CanUndo() && !snap.Loading,
		CanCombine:  st.CanCombine() && !snap.Loading,
		Solved:      st.Solved,
		Loading:     snap.Loading,
		LoadingHint: snap.LoadingHint,
		Hint:        snap.Hint,
		Error:       snap.Error,
		Generation:  st.Generation,
	}
	for _, c := range st.Hand {
		sv.Hand = append(sv.Hand, NewCardView(c))
	}
	if st.SlotA != nil {
		cv := NewCardView(*st.SlotA)
		sv.SlotA = &cv
	}
	if st.SlotB != nil {
		cv := NewCardView(*st.SlotB)
		sv.SlotB = &cv
	}
	return sv
}

func NewCardView(c game.Card) CardView {
	return CardView{
		ID:       c.ID,
		Value:    c.Value,
		Label:    c.Label,
		Original: c.Original,
		Approx:   Approx(c),
	}
}

// Approx returns "≈ x.xx" for a card whose value is fractional and not
// exactly what its label says, or "".
func Approx(c game.Card) string {
	if c.Value == math.Trunc(c.Value) {
		return ""
	}
	if c.Label == strconv.FormatFloat(c.Value, 'f', -1, 64) {
		return ""
	}
	return fmt.Sprintf("≈ %.2f", c.Value)
}

func NewEventView(e log.GameEvent) EventView {
	return EventView{
		Seq:        e.Seq,
		Generation: e.Generation,
		Type:       e.Type.String(),
		Card:       e.Card,
		Details:    e.Details,
	}
}
