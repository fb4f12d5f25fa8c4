package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/peterkuimelis/powercountdown/internal/game"
	"github.com/peterkuimelis/powercountdown/internal/puzzle"
)

type fixedPuzzles struct{ target float64 }

func (f fixedPuzzles) Generate(_ context.Context, d game.Difficulty) (puzzle.Puzzle, error) {
	return puzzle.Puzzle{Target: f.target, Numbers: game.FixedDeck(), Difficulty: d}, nil
}

func (f fixedPuzzles) Hint(context.Context, float64, []float64) (string, error) {
	return "Try 16 × 5.", nil
}

type toolHandler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

func newSession(t *testing.T) *GameSession {
	t.Helper()
	sess := NewGameSession(fixedPuzzles{target: 80}, game.DifficultyMedium, zaptest.NewLogger(t))
	t.Cleanup(sess.Close)
	return sess
}

func call(t *testing.T, h toolHandler, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	res, err := h(context.Background(), mcp.CallToolRequest{
		Params: mcp.CallToolParams{Arguments: args},
	})
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return tc.Text
}

// decode asserts a successful tool call and returns its response.
func decode(t *testing.T, res *mcp.CallToolResult) ToolResponse {
	t.Helper()
	require.False(t, res.IsError, resultText(t, res))
	var resp ToolResponse
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &resp))
	return resp
}

func cardID(t *testing.T, resp ToolResponse, value float64) int {
	t.Helper()
	for _, cv := range resp.State.Hand {
		if cv.Value == value {
			return cv.ID
		}
	}
	t.Fatalf("no hand card with value %v", value)
	return 0
}

func TestToolNames(t *testing.T) {
	tools := []mcp.Tool{newGameTool(), stageCardTool(), returnCardTool(), combineTool(), undoTool(), getHintTool(), getGameStateTool()}
	var names []string
	for _, tool := range tools {
		names = append(names, tool.Name)
	}
	assert.Equal(t, []string{"new_game", "stage_card", "return_card", "combine", "undo", "get_hint", "get_game_state"}, names)
	assert.Contains(t, stageCardTool().InputSchema.Required, "slot")
	assert.Contains(t, newGameTool().Description, "replaces the consumed cards")
	assert.NotContains(t, newGameTool().Description, "both cards")

	s := server.NewMCPServer("pcd", "test")
	assert.NotPanics(t, func() { RegisterTools(s, newSession(t)) })
}

func TestPlayThroughTools(t *testing.T) {
	sess := newSession(t)

	resp := decode(t, call(t, sess.handleGetGameState, nil))
	assert.Equal(t, "No puzzle yet. Use new_game first.", resp.Note)

	resp = decode(t, call(t, sess.handleNewGame, map[string]any{"difficulty": "EASY"}))
	require.NotNil(t, resp.State)
	assert.False(t, resp.State.Loading)
	assert.Equal(t, "80", resp.State.TargetLabel)
	assert.Equal(t, "EASY", resp.State.Difficulty)
	require.NotEmpty(t, resp.Events)
	assert.Equal(t, "NewGame", resp.Events[0].Type)

	five, sixteen := cardID(t, resp, 5), cardID(t, resp, 16)
	decode(t, call(t, sess.handleStageCard, map[string]any{"card_id": float64(sixteen), "slot": "slotA"}))
	resp = decode(t, call(t, sess.handleStageCard, map[string]any{"card_id": float64(five), "from": "hand", "slot": "slotB"}))
	assert.True(t, resp.State.CanCombine)

	resp = decode(t, call(t, sess.handleCombine, map[string]any{"operation": "MULTIPLY"}))
	assert.True(t, resp.State.Solved)
	assert.Empty(t, resp.Note)
	var kinds []string
	for _, e := range resp.Events {
		kinds = append(kinds, e.Type)
	}
	assert.Equal(t, []string{"Combine", "Solved"}, kinds)

	resp = decode(t, call(t, sess.handleGetHint, nil))
	assert.NotEmpty(t, resp.Note, "hint refused once solved")

	resp = decode(t, call(t, sess.handleUndo, nil))
	assert.False(t, resp.State.Solved)
	assert.Len(t, resp.State.Hand, 6)

	resp = decode(t, call(t, sess.handleGetGameState, nil))
	assert.Empty(t, resp.Events, "events are reported once")
	assert.Empty(t, resp.Note)
}

func TestGetHintWaitsForResult(t *testing.T) {
	sess := newSession(t)
	decode(t, call(t, sess.handleNewGame, nil))

	resp := decode(t, call(t, sess.handleGetHint, nil))
	assert.False(t, resp.State.LoadingHint)
	assert.Equal(t, "Try 16 × 5.", resp.State.Hint)
	assert.Equal(t, "MEDIUM", resp.State.Difficulty)
}

func TestInertRequestsReportNote(t *testing.T) {
	sess := newSession(t)

	resp := decode(t, call(t, sess.handleUndo, nil))
	assert.Equal(t, "No puzzle yet. Use new_game first.", resp.Note)

	decode(t, call(t, sess.handleNewGame, nil))

	resp = decode(t, call(t, sess.handleUndo, nil))
	assert.Contains(t, resp.Note, game.ErrEmptyHistory.Error())

	resp = decode(t, call(t, sess.handleReturnCard, map[string]any{"card_id": float64(999)}))
	assert.Contains(t, resp.Note, "Nothing changed")

	resp = decode(t, call(t, sess.handleCombine, map[string]any{"operation": "POWER"}))
	assert.Contains(t, resp.Note, game.ErrSlotsIncomplete.Error())
}

func TestBadArgumentsAreToolErrors(t *testing.T) {
	sess := newSession(t)
	decode(t, call(t, sess.handleNewGame, nil))

	tests := []struct {
		name string
		h    toolHandler
		args map[string]any
	}{
		{"bad difficulty", sess.handleNewGame, map[string]any{"difficulty": "EXTREME"}},
		{"bad slot", sess.handleStageCard, map[string]any{"card_id": float64(1), "slot": "hand"}},
		{"bad from", sess.handleStageCard, map[string]any{"card_id": float64(1), "from": "deck", "slot": "slotA"}},
		{"bad operation", sess.handleCombine, map[string]any{"operation": "DIVIDE"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := call(t, tt.h, tt.args)
			assert.True(t, res.IsError)
		})
	}
}
