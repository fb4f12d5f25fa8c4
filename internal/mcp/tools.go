package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/peterkuimelis/powercountdown/internal/game"
	"github.com/peterkuimelis/powercountdown/internal/play"
)

const rules = "Cards start as 2, 5, 16, 243, 343 and 512. Stage two cards into slots A and B, " +
	"then combine them: MULTIPLY gives A × B, POWER gives A ^ B, RECIPROCAL gives 1/A and sends B back to the hand. " +
	"The result replaces the consumed cards. Reach the target value to win."

// RegisterTools adds all game tools to the MCP server.
func RegisterTools(s *server.MCPServer, sess *GameSession) {
	s.AddTool(newGameTool(), sess.handleNewGame)
	s.AddTool(stageCardTool(), sess.handleStageCard)
	s.AddTool(returnCardTool(), sess.handleReturnCard)
	s.AddTool(combineTool(), sess.handleCombine)
	s.AddTool(undoTool(), sess.handleUndo)
	s.AddTool(getHintTool(), sess.handleGetHint)
	s.AddTool(getGameStateTool(), sess.handleGetGameState)
}

// --- Tool definitions ---

func newGameTool() mcp.Tool {
	return mcp.NewTool("new_game",
		mcp.WithDescription("Start a new Power Countdown puzzle. "+rules+
			" Blocks until the puzzle is ready and returns the state and events."),
		mcp.WithString("difficulty", mcp.Description("Puzzle difficulty; defaults to the current one"),
			mcp.Enum("EASY", "MEDIUM", "HARD")),
	)
}

func stageCardTool() mcp.Tool {
	return mcp.NewTool("stage_card",
		mcp.WithDescription("Move a card into slot A or B. A card already in the target slot is swapped back to where this card came from."),
		mcp.WithNumber("card_id", mcp.Required(), mcp.Description("The card's id from the state")),
		mcp.WithString("from", mcp.Description("Where the card is now; defaults to hand"),
			mcp.Enum("hand", "slotA", "slotB")),
		mcp.WithString("slot", mcp.Required(), mcp.Description("Slot to move the card into"),
			mcp.Enum("slotA", "slotB")),
	)
}

func returnCardTool() mcp.Tool {
	return mcp.NewTool("return_card",
		mcp.WithDescription("Return a staged card to the hand."),
		mcp.WithNumber("card_id", mcp.Required(), mcp.Description("The staged card's id")),
	)
}

func combineTool() mcp.Tool {
	return mcp.NewTool("combine",
		mcp.WithDescription("Combine the staged cards into one new card."),
		mcp.WithString("operation", mcp.Required(), mcp.Description("MULTIPLY (A × B), POWER (A ^ B) or RECIPROCAL (1/A)"),
			mcp.Enum("MULTIPLY", "POWER", "RECIPROCAL")),
	)
}

func undoTool() mcp.Tool {
	return mcp.NewTool("undo",
		mcp.WithDescription("Undo the last combination, restoring the cards it consumed."),
	)
}

func getHintTool() mcp.Tool {
	return mcp.NewTool("get_hint",
		mcp.WithDescription("Ask for a hint about the next step. Blocks until the hint arrives."),
	)
}

func getGameStateTool() mcp.Tool {
	return mcp.NewTool("get_game_state",
		mcp.WithDescription("Get the current game state and any events since the last call. Read-only."),
	)
}

// --- Tool handlers ---

func (s *GameSession) handleNewGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.ctrl.Snapshot().Difficulty
	if v := request.GetString("difficulty", ""); v != "" {
		var err error
		if d, err = game.ParseDifficulty(v); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	if err := s.ctrl.NewGame(d); err != nil {
		return s.result(err)
	}
	if err := s.waitIdle(ctx); err != nil {
		return mcp.NewToolResultErrorf("Error waiting for puzzle: %v", err), nil
	}
	return s.result(nil)
}

func (s *GameSession) handleStageCard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := request.GetInt("card_id", -1)
	from, err := game.ParseLocation(request.GetString("from", "hand"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	to, err := game.ParseLocation(request.GetString("slot", ""))
	if err != nil || !to.IsSlot() {
		return mcp.NewToolResultError("slot must be slotA or slotB"), nil
	}
	return s.result(s.ctrl.Stage(from, id, to))
}

func (s *GameSession) handleReturnCard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.result(s.ctrl.Return(request.GetInt("card_id", -1)))
}

func (s *GameSession) handleCombine(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	op, err := game.ParseOperation(request.GetString("operation", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.result(s.ctrl.Combine(op))
}

func (s *GameSession) handleUndo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.result(s.ctrl.Undo())
}

func (s *GameSession) handleGetHint(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ctrl.RequestHint(); err != nil {
		return s.result(err)
	}
	if err := s.waitIdle(ctx); err != nil {
		return mcp.NewToolResultErrorf("Error waiting for hint: %v", err), nil
	}
	return s.result(nil)
}

func (s *GameSession) handleGetGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var note error
	if snap := s.ctrl.Snapshot(); snap.State.Generation == 0 && !snap.Loading {
		note = play.ErrNoGame
	}
	return s.result(note)
}

// result turns a controller outcome into a tool result. Inert outcomes are
// reported in the response note; anything else is a tool error.
func (s *GameSession) result(err error) (*mcp.CallToolResult, error) {
	if err != nil && !play.IsInert(err) {
		return mcp.NewToolResultError(fmt.Sprintf("Request failed: %v", err)), nil
	}
	return mcp.NewToolResultText(respondJSON(s.respond(err))), nil
}
