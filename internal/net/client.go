package net

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"

	"github.com/peterkuimelis/powercountdown/internal/game"
)

// errNoCommand is returned by ParseCommand for a blank line.
var errNoCommand = errors.New("no command")

const helpText = `Commands:
  a N, b N     stage hand card N into slot A or B
  swap         swap the staged cards (or move the single one across)
  ra, rb       return the card in slot A or B to the hand
  mul, pow     combine A × B or A ^ B
  inv          reciprocal of A (B goes back to the hand)
  undo         undo the last combination
  hint         ask for a hint
  new [level]  new puzzle (easy, medium, hard)
  quit         leave`

// Client connects to a game server and provides a terminal REPL.
type Client struct {
	conn io.ReadWriter
	in   io.Reader
	out  io.Writer

	mu   sync.Mutex // guards out and last
	last *StateView
}

func NewClient(conn io.ReadWriter, in io.Reader, out io.Writer) *Client {
	return &Client{conn: conn, in: in, out: out}
}

// Connect dials a server and runs the REPL on in and out.
func Connect(ctx context.Context, addr string, in io.Reader, out io.Writer) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	fmt.Fprintln(out, "Connected! Waiting for the first puzzle...")
	return NewClient(conn, in, out).RunREPL(ctx)
}

// RunREPL prints every server message and sends one request per input line.
// It returns when the user quits, input ends, or the server goes away.
func (c *Client) RunREPL(ctx context.Context) error {
	dec := json.NewDecoder(c.conn)
	enc := json.NewEncoder(c.conn)

	serverDone := make(chan error, 1)
	go func() {
		for {
			var msg ServerMessage
			if err := dec.Decode(&msg); err != nil {
				serverDone <- err
				return
			}
			c.handle(msg)
		}
	}()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-serverDone:
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				c.printf("Server closed the connection.\n")
				return nil
			}
			return fmt.Errorf("read message: %w", err)
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			switch strings.ToLower(strings.TrimSpace(line)) {
			case "quit", "exit", "q":
				return nil
			case "help", "?":
				c.printf("%s\n> ", helpText)
				continue
			}
			msg, err := ParseCommand(line, c.view())
			if errors.Is(err, errNoCommand) {
				c.printf("> ")
				continue
			}
			if err != nil {
				c.printf("%v (type 'help' for commands)\n> ", err)
				continue
			}
			if err := enc.Encode(msg); err != nil {
				return fmt.Errorf("send %s: %w", msg.Type, err)
			}
		}
	}
}

func (c *Client) view() *StateView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

func (c *Client) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

func (c *Client) handle(msg ServerMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch msg.Type {
	case MsgState:
		for _, ev := range msg.Events {
			renderEvent(c.out, ev)
		}
		if msg.State != nil {
			c.last = msg.State
			renderState(c.out, msg.State)
		}
	case MsgError:
		fmt.Fprintf(c.out, "error: %s\n", msg.Error)
	}
	fmt.Fprint(c.out, "> ")
}

// ParseCommand turns one REPL line into a client message. Hand positions are
// 1-based indexes into sv.Hand.
func ParseCommand(line string, sv *StateView) (ClientMessage, error) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return ClientMessage{}, errNoCommand
	}
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "new", "n":
		msg := ClientMessage{Type: MsgNewGame}
		if len(args) > 0 {
			d, err := game.ParseDifficulty(args[0])
			if err != nil {
				return ClientMessage{}, err
			}
			msg.Difficulty = d.String()
		}
		return msg, nil
	case "undo", "u":
		return ClientMessage{Type: MsgUndo}, nil
	case "hint", "h":
		return ClientMessage{Type: MsgHint}, nil
	case "state", "s":
		return ClientMessage{Type: MsgGetState}, nil
	case "mul", "pow", "inv", "*", "^", "1/", "x", "×":
		if cmd == "x" {
			cmd = "mul"
		}
		op, err := game.ParseOperation(cmd)
		if err != nil {
			return ClientMessage{}, err
		}
		return ClientMessage{Type: MsgCombine, Operation: op.String()}, nil
	}

	if sv == nil {
		return ClientMessage{}, fmt.Errorf("no puzzle yet")
	}

	switch cmd {
	case "a", "b":
		if len(args) != 1 {
			return ClientMessage{}, fmt.Errorf("usage: %s N", cmd)
		}
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 || n > len(sv.Hand) {
			return ClientMessage{}, fmt.Errorf("enter a hand position between 1 and %d", len(sv.Hand))
		}
		return ClientMessage{
			Type:   MsgStage,
			CardID: sv.Hand[n-1].ID,
			From:   game.LocationHand.String(),
			Slot:   slotName(cmd),
		}, nil
	case "swap":
		switch {
		case sv.SlotA != nil:
			return ClientMessage{Type: MsgStage, CardID: sv.SlotA.ID, From: "slotA", Slot: "slotB"}, nil
		case sv.SlotB != nil:
			return ClientMessage{Type: MsgStage, CardID: sv.SlotB.ID, From: "slotB", Slot: "slotA"}, nil
		default:
			return ClientMessage{}, fmt.Errorf("both slots are empty")
		}
	case "ra", "rb":
		slot := sv.SlotA
		if cmd == "rb" {
			slot = sv.SlotB
		}
		if slot == nil {
			return ClientMessage{}, fmt.Errorf("slot %s is empty", strings.ToUpper(cmd[1:]))
		}
		return ClientMessage{Type: MsgReturn, CardID: slot.ID, From: slotName(cmd[1:])}, nil
	}
	return ClientMessage{}, fmt.Errorf("unknown command %q", cmd)
}

func slotName(letter string) string {
	if letter == "b" {
		return game.LocationSlotB.String()
	}
	return game.LocationSlotA.String()
}

// --- Rendering ---

func renderEvent(w io.Writer, ev EventView) {
	kind := ev.Type
	for len(kind) < 14 {
		kind += " "
	}
	fmt.Fprintf(w, "G%-2d %s| %s\n", ev.Generation, kind, ev.Details)
}

func renderState(w io.Writer, sv *StateView) {
	fmt.Fprintln(w)
	if sv.Loading {
		fmt.Fprintf(w, "Generating %s puzzle...\n", strings.ToLower(sv.Difficulty))
		return
	}
	if sv.Error != "" {
		fmt.Fprintf(w, "!! %s\n", sv.Error)
	}

	fmt.Fprintln(w, "╔══════════════════════════════════════════════════════╗")
	fmt.Fprintf(w, "║  TARGET %s  (%s)\n", sv.TargetLabel, sv.Difficulty)
	fmt.Fprintln(w, "║──────────────────────────────────────────────────────")
	fmt.Fprintf(w, "║  A: %s   B: %s\n", formatSlot(sv.SlotA), formatSlot(sv.SlotB))
	fmt.Fprintln(w, "║──────────────────────────────────────────────────────")
	fmt.Fprintf(w, "║  Hand: ")
	if len(sv.Hand) == 0 {
		fmt.Fprint(w, "(all cards in use)")
	}
	for i, cv := range sv.Hand {
		fmt.Fprintf(w, "[%d] %s  ", i+1, formatCard(cv))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "╚══════════════════════════════════════════════════════╝")

	switch {
	case sv.Solved:
		fmt.Fprintln(w, "*** Target reached! Type 'new' for the next puzzle. ***")
	case sv.LoadingHint:
		fmt.Fprintln(w, "Thinking...")
	}
	if sv.Hint != "" {
		fmt.Fprintf(w, "Hint: %s\n", sv.Hint)
	}
}

func formatSlot(cv *CardView) string {
	if cv == nil {
		return "[ ]"
	}
	return "[" + formatCard(*cv) + "]"
}

func formatCard(cv CardView) string {
	if cv.Approx != "" {
		return cv.Label + " (" + cv.Approx + ")"
	}
	return cv.Label
}
