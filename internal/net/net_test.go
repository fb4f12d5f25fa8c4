package net

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/peterkuimelis/powercountdown/internal/game"
	"github.com/peterkuimelis/powercountdown/internal/play"
	"github.com/peterkuimelis/powercountdown/internal/puzzle"
)

type fixedPuzzles struct {
	target float64
	hint   string
}

func (f fixedPuzzles) Generate(_ context.Context, d game.Difficulty) (puzzle.Puzzle, error) {
	return puzzle.Puzzle{Target: f.target, Numbers: game.FixedDeck(), Difficulty: d}, nil
}

func (f fixedPuzzles) Hint(context.Context, float64, []float64) (string, error) {
	return f.hint, nil
}

// testConn is the client side of a served session.
type testConn struct {
	t    *testing.T
	conn net.Conn
	enc  *json.Encoder
	dec  *json.Decoder
}

func (tc *testConn) send(msg ClientMessage) {
	tc.t.Helper()
	require.NoError(tc.t, tc.enc.Encode(msg))
}

// next reads one server message, failing after a timeout.
func (tc *testConn) next() ServerMessage {
	tc.t.Helper()
	require.NoError(tc.t, tc.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg ServerMessage
	require.NoError(tc.t, tc.dec.Decode(&msg))
	return msg
}

// untilMsg reads messages until ok accepts one. Asynchronous pushes may
// arrive between replies, so tests never assume a fixed message count.
func (tc *testConn) untilMsg(ok func(ServerMessage) bool) ServerMessage {
	tc.t.Helper()
	for range 20 {
		if msg := tc.next(); ok(msg) {
			return msg
		}
	}
	tc.t.Fatal("no matching message")
	return ServerMessage{}
}

// until reads state messages until ok accepts one.
func (tc *testConn) until(ok func(*StateView) bool) *StateView {
	tc.t.Helper()
	return tc.untilMsg(func(msg ServerMessage) bool {
		return msg.Type == MsgState && ok(msg.State)
	}).State
}

func (tc *testConn) untilError() ServerMessage {
	tc.t.Helper()
	return tc.untilMsg(func(msg ServerMessage) bool { return msg.Type == MsgError })
}

func solved(sv *StateView) bool { return sv.Solved }

func loaded(sv *StateView) bool { return !sv.Loading && sv.Generation > 0 }

func servePipe(t *testing.T, p play.Puzzles) (*testConn, <-chan error) {
	t.Helper()
	srvConn, cliConn := net.Pipe()
	s := &Server{Puzzles: p, Difficulty: game.DifficultyEasy, Logger: zaptest.NewLogger(t)}
	done := make(chan error, 1)
	finished := make(chan struct{})
	go func() {
		done <- s.ServeConn(context.Background(), srvConn)
		close(finished)
	}()
	// The session must end before the test logger goes away.
	t.Cleanup(func() {
		cliConn.Close()
		select {
		case <-finished:
		case <-time.After(2 * time.Second):
			t.Error("session did not end")
		}
	})
	return &testConn{t: t, conn: cliConn, enc: json.NewEncoder(cliConn), dec: json.NewDecoder(cliConn)}, done
}

func handByValue(t *testing.T, sv *StateView, v float64) CardView {
	t.Helper()
	for _, cv := range sv.Hand {
		if game.IsTargetReached(cv.Value, v) {
			return cv
		}
	}
	t.Fatalf("no %v in hand", v)
	return CardView{}
}

func TestServeConnPlaysAGame(t *testing.T) {
	tc, done := servePipe(t, fixedPuzzles{target: 80, hint: "Multiply 16 by 5."})

	sv := tc.until(loaded)
	assert.Equal(t, 80.0, sv.Target)
	assert.Equal(t, "EASY", sv.Difficulty)
	assert.Len(t, sv.Hand, 6)
	assert.NotEmpty(t, sv.Session)

	tc.send(ClientMessage{Type: MsgHint})
	sv = tc.until(func(sv *StateView) bool { return sv.Hint != "" })
	assert.Equal(t, "Multiply 16 by 5.", sv.Hint)

	c16 := handByValue(t, sv, 16)
	c5 := handByValue(t, sv, 5)
	tc.send(ClientMessage{Type: MsgStage, CardID: c16.ID, From: "hand", Slot: "slotA"})
	tc.until(func(sv *StateView) bool { return sv.SlotA != nil })
	tc.send(ClientMessage{Type: MsgStage, CardID: c5.ID, From: "hand", Slot: "slotB"})
	sv = tc.until(func(sv *StateView) bool { return sv.SlotB != nil })
	assert.True(t, sv.CanCombine)

	tc.send(ClientMessage{Type: MsgCombine, Operation: "MULTIPLY"})
	msg := tc.untilMsg(func(msg ServerMessage) bool { return msg.Type == MsgState && msg.State.Solved })
	var kinds []string
	for _, ev := range msg.Events {
		kinds = append(kinds, ev.Type)
	}
	assert.Contains(t, kinds, "Combine")
	assert.Contains(t, kinds, "Solved")

	// inert requests still answer with state
	tc.send(ClientMessage{Type: MsgHint})
	sv = tc.until(solved)
	assert.False(t, sv.LoadingHint)

	tc.send(ClientMessage{Type: MsgUndo})
	sv = tc.until(func(sv *StateView) bool { return !sv.Solved })
	assert.Len(t, sv.Hand, 6)
	assert.Empty(t, sv.Hint, "undo clears the hint")

	tc.send(ClientMessage{Type: "bogus"})
	assert.Contains(t, tc.untilError().Error, "bogus")

	tc.send(ClientMessage{Type: MsgCombine, Operation: "divide"})
	assert.Contains(t, tc.untilError().Error, "divide")

	require.NoError(t, tc.conn.Close())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServeConnNewGameChangesDifficulty(t *testing.T) {
	tc, _ := servePipe(t, fixedPuzzles{target: 6})
	t.Cleanup(func() { tc.conn.Close() })
	tc.until(loaded)

	tc.send(ClientMessage{Type: MsgNewGame, Difficulty: "hard"})
	sv := tc.until(func(sv *StateView) bool { return loaded(sv) && sv.Generation == 2 })
	assert.Equal(t, "HARD", sv.Difficulty)

	tc.send(ClientMessage{Type: MsgNewGame, Difficulty: "extreme"})
	assert.Contains(t, tc.untilError().Error, "extreme")
}

func TestServerRunAcceptsIndependentSessions(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan string, 1)
	s := &Server{Addr: "127.0.0.1:0", Puzzles: fixedPuzzles{target: 10}, Logger: zaptest.NewLogger(t), ready: ready}
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	addr := <-ready

	var sessions []string
	for range 2 {
		conn, err := net.Dial("tcp", addr)
		require.NoError(t, err)
		defer conn.Close()
		tc := &testConn{t: t, conn: conn, enc: json.NewEncoder(conn), dec: json.NewDecoder(conn)}
		sv := tc.until(loaded)
		assert.Equal(t, 10.0, sv.Target)
		sessions = append(sessions, sv.Session)
	}
	assert.NotEqual(t, sessions[0], sessions[1])

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestApprox(t *testing.T) {
	tests := []struct {
		value float64
		want  string
	}{
		{80, ""},
		{2.5, ""},
		{0.2, "≈ 0.20"},
		{math.Sqrt(2), "≈ 1.41"},
		{math.Pow(243, 0.2), "≈ 3.00"},
	}
	for _, tt := range tests {
		c := game.Card{Value: tt.value, Label: game.FormatValue(tt.value)}
		assert.Equal(t, tt.want, Approx(c), "value %v", tt.value)
	}
}

func TestBuildStateView(t *testing.T) {
	s := game.NewSession(nil)
	require.NoError(t, s.Start(80, game.FixedDeck(), game.DifficultyHard))
	require.NoError(t, s.Stage(game.LocationHand, s.State.Hand[0].ID, game.LocationSlotB))

	sv := BuildStateView(play.Snapshot{ID: "abc", State: s.State, Difficulty: game.DifficultyHard, Hint: "h"})
	assert.Equal(t, "abc", sv.Session)
	assert.Equal(t, "80", sv.TargetLabel)
	assert.Equal(t, "HARD", sv.Difficulty)
	assert.Len(t, sv.Hand, 5)
	assert.Nil(t, sv.SlotA)
	require.NotNil(t, sv.SlotB)
	assert.Equal(t, "2", sv.SlotB.Label)
	assert.False(t, sv.CanCombine)
	assert.False(t, sv.CanUndo)
	assert.Equal(t, "h", sv.Hint)
	assert.Equal(t, 1, sv.Generation)
}

func TestParseCommand(t *testing.T) {
	sv := &StateView{
		Hand:  []CardView{{ID: 3, Label: "2"}, {ID: 7, Label: "16"}},
		SlotB: &CardView{ID: 9, Label: "5"},
	}
	tests := []struct {
		line string
		want ClientMessage
	}{
		{"a 2", ClientMessage{Type: MsgStage, CardID: 7, From: "hand", Slot: "slotA"}},
		{"B 1", ClientMessage{Type: MsgStage, CardID: 3, From: "hand", Slot: "slotB"}},
		{"swap", ClientMessage{Type: MsgStage, CardID: 9, From: "slotB", Slot: "slotA"}},
		{"rb", ClientMessage{Type: MsgReturn, CardID: 9, From: "slotB"}},
		{"mul", ClientMessage{Type: MsgCombine, Operation: "MULTIPLY"}},
		{"^", ClientMessage{Type: MsgCombine, Operation: "POWER"}},
		{"inv", ClientMessage{Type: MsgCombine, Operation: "RECIPROCAL"}},
		{"undo", ClientMessage{Type: MsgUndo}},
		{"hint", ClientMessage{Type: MsgHint}},
		{"new", ClientMessage{Type: MsgNewGame}},
		{"new hard", ClientMessage{Type: MsgNewGame, Difficulty: "HARD"}},
	}
	for _, tt := range tests {
		got, err := ParseCommand(tt.line, sv)
		require.NoError(t, err, tt.line)
		assert.Equal(t, tt.want, got, tt.line)
	}

	for _, bad := range []string{"a 3", "a x", "a", "ra", "new extreme", "divide"} {
		_, err := ParseCommand(bad, sv)
		assert.Error(t, err, bad)
	}

	_, err := ParseCommand("   ", sv)
	assert.ErrorIs(t, err, errNoCommand)
	_, err = ParseCommand("a 1", nil)
	assert.Error(t, err)
}

func TestRenderState(t *testing.T) {
	var buf bytes.Buffer
	renderState(&buf, &StateView{
		TargetLabel: "3",
		Difficulty:  "HARD",
		Hand:        []CardView{{Label: "1/5", Approx: "≈ 0.20"}},
		SlotA:       &CardView{Label: "243"},
		Solved:      true,
		Hint:        "Try finding the 5th root of 243",
	})
	out := buf.String()
	assert.Contains(t, out, "TARGET 3  (HARD)")
	assert.Contains(t, out, "A: [243]   B: [ ]")
	assert.Contains(t, out, "[1] 1/5 (≈ 0.20)")
	assert.Contains(t, out, "Target reached!")
	assert.Contains(t, out, "Hint: Try finding")

	buf.Reset()
	renderState(&buf, &StateView{Loading: true, Difficulty: "MEDIUM"})
	assert.Contains(t, buf.String(), "Generating medium puzzle...")
}

func TestClientREPL(t *testing.T) {
	srvConn, cliConn := net.Pipe()
	s := &Server{Puzzles: fixedPuzzles{target: 80}, Logger: zaptest.NewLogger(t)}
	served := make(chan struct{})
	go func() {
		_ = s.ServeConn(context.Background(), srvConn)
		close(served)
	}()

	// the REPL ends when input runs out, so feed commands slowly through a pipe
	in, inW := net.Pipe()
	var out syncBuffer
	done := make(chan error, 1)
	go func() { done <- NewClient(cliConn, in, &out).RunREPL(context.Background()) }()

	waitOutput(t, &out, "TARGET 80")
	_, err := inW.Write([]byte("help\n"))
	require.NoError(t, err)
	waitOutput(t, &out, "stage hand card N")
	_, err = inW.Write([]byte("quit\n"))
	require.NoError(t, err)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("REPL did not exit")
	}
	cliConn.Close()
	inW.Close()
	select {
	case <-served:
	case <-time.After(2 * time.Second):
		t.Fatal("session did not end")
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func waitOutput(t *testing.T, out *syncBuffer, want string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(out.String(), want) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("output never contained %q:\n%s", want, out.String())
}
