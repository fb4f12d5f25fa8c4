package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/peterkuimelis/powercountdown/internal/game"
	pcdnet "github.com/peterkuimelis/powercountdown/internal/net"
	"github.com/peterkuimelis/powercountdown/internal/play"
)

// ToolResponse is the JSON envelope returned by all MCP tools.
type ToolResponse struct {
	Events []pcdnet.EventView `json:"events"`
	State  *pcdnet.StateView  `json:"state,omitempty"`
	Note   string             `json:"note,omitempty"`
}

// GameSession holds the single game of one stdio process. Tool calls are
// serialised: each one holds mu for its whole duration.
type GameSession struct {
	ctrl *play.Controller

	mu      sync.Mutex
	lastSeq int
}

// NewGameSession creates a session with no puzzle loaded. New games default
// to difficulty d.
func NewGameSession(puzzles play.Puzzles, d game.Difficulty, logger *zap.Logger) *GameSession {
	ctrl := play.NewController(puzzles, nil, logger)
	ctrl.SetDifficulty(d)
	return &GameSession{ctrl: ctrl}
}

// Close cancels outstanding requests.
func (s *GameSession) Close() { s.ctrl.Close() }

// drainEvents returns the game events not yet reported to the caller.
func (s *GameSession) drainEvents() []pcdnet.EventView {
	events := []pcdnet.EventView{}
	for _, e := range s.ctrl.Events().Events() {
		if e.Seq > s.lastSeq {
			events = append(events, pcdnet.NewEventView(e))
			s.lastSeq = e.Seq
		}
	}
	return events
}

// waitIdle blocks until no puzzle or hint request is outstanding.
func (s *GameSession) waitIdle(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.ctrl.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// respond builds the tool response for the current state. An inert err
// becomes the note; nothing changed, but the caller still gets the state.
func (s *GameSession) respond(err error) *ToolResponse {
	resp := &ToolResponse{
		Events: s.drainEvents(),
		State:  pcdnet.BuildStateView(s.ctrl.Snapshot()),
	}
	if err != nil {
		resp.Note = inertNote(err)
	}
	return resp
}

func inertNote(err error) string {
	switch {
	case errors.Is(err, play.ErrNoGame):
		return "No puzzle yet. Use new_game first."
	case errors.Is(err, play.ErrBusy):
		return "A request is still in progress; try again."
	case errors.Is(err, game.ErrSolved):
		return "The target is already reached. Use undo or new_game."
	default:
		return fmt.Sprintf("Nothing changed: %v.", err)
	}
}

// respondJSON marshals a ToolResponse to a JSON string.
func respondJSON(resp *ToolResponse) string {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Sprintf(`{"error": "marshal error: %v"}`, err)
	}
	return string(data)
}
