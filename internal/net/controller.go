package net

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/peterkuimelis/powercountdown/internal/game"
	"github.com/peterkuimelis/powercountdown/internal/play"
)

// Transport moves protocol messages over one connection.
type Transport interface {
	ReadMessage(ctx context.Context) (ClientMessage, error)
	WriteMessage(ctx context.Context, msg ServerMessage) error
}

// jsonTransport speaks newline-delimited JSON over a stream.
type jsonTransport struct {
	enc *json.Encoder
	dec *json.Decoder
}

// NewJSONTransport creates a Transport over a TCP connection or pipe.
func NewJSONTransport(rw io.ReadWriter) Transport {
	return &jsonTransport{enc: json.NewEncoder(rw), dec: json.NewDecoder(rw)}
}

func (t *jsonTransport) ReadMessage(context.Context) (ClientMessage, error) {
	var msg ClientMessage
	err := t.dec.Decode(&msg)
	return msg, err
}

func (t *jsonTransport) WriteMessage(_ context.Context, msg ServerMessage) error {
	return t.enc.Encode(msg)
}

// ConnController serves one play.Controller over one Transport. It answers
// every request with a state message and also pushes one whenever an
// asynchronous puzzle or hint result lands.
type ConnController struct {
	t      Transport
	ctrl   *play.Controller
	logger *zap.Logger

	mu      sync.Mutex // serialises writes
	lastSeq int
}

func NewConnController(t Transport, ctrl *play.Controller, logger *zap.Logger) *ConnController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConnController{t: t, ctrl: ctrl, logger: logger.With(zap.String("session", ctrl.ID()))}
}

// Run starts a first game at difficulty d and then handles client messages
// until the connection ends. A clean EOF returns nil.
func (cc *ConnController) Run(ctx context.Context, d game.Difficulty) error {
	cc.ctrl.SetNotifier(func() {
		if err := cc.Push(ctx); err != nil {
			cc.logger.Debug("push failed", zap.Error(err))
		}
	})
	defer cc.ctrl.SetNotifier(nil)

	if err := cc.ctrl.NewGame(d); err != nil && !play.IsInert(err) {
		return err
	}
	if err := cc.Push(ctx); err != nil {
		return fmt.Errorf("send state: %w", err)
	}

	for {
		msg, err := cc.t.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				return nil
			}
			return fmt.Errorf("recv message: %w", err)
		}

		if err := Dispatch(cc.ctrl, msg); err != nil {
			cc.logger.Debug("bad client message", zap.String("type", msg.Type), zap.Error(err))
			if err := cc.send(ctx, ServerMessage{Type: MsgError, Error: err.Error()}); err != nil {
				return fmt.Errorf("send error: %w", err)
			}
			continue
		}
		if err := cc.Push(ctx); err != nil {
			return fmt.Errorf("send state: %w", err)
		}
	}
}

// Push sends the current state plus every game event not yet sent.
func (cc *ConnController) Push(ctx context.Context) error {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	snap := cc.ctrl.Snapshot()
	var events []EventView
	for _, e := range cc.ctrl.Events().Events() {
		if e.Seq > cc.lastSeq {
			events = append(events, NewEventView(e))
			cc.lastSeq = e.Seq
		}
	}
	return cc.t.WriteMessage(ctx, ServerMessage{
		Type:   MsgState,
		State:  BuildStateView(snap),
		Events: events,
	})
}

func (cc *ConnController) send(ctx context.Context, msg ServerMessage) error {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.t.WriteMessage(ctx, msg)
}

// Dispatch applies one client message to ctrl. Requests that are merely inert
// (a stale card reference, nothing to undo, a request already in flight) are
// not errors; malformed messages are.
func Dispatch(ctrl *play.Controller, msg ClientMessage) error {
	var err error
	switch msg.Type {
	case MsgNewGame:
		d := ctrl.Snapshot().Difficulty
		if msg.Difficulty != "" {
			if d, err = game.ParseDifficulty(msg.Difficulty); err != nil {
				return err
			}
		}
		err = ctrl.NewGame(d)

	case MsgStage:
		from, perr := game.ParseLocation(msg.From)
		if perr != nil {
			return perr
		}
		to, perr := game.ParseLocation(msg.Slot)
		if perr != nil {
			return perr
		}
		if !to.IsSlot() {
			return fmt.Errorf("stage target must be slotA or slotB, got %q", msg.Slot)
		}
		err = ctrl.Stage(from, msg.CardID, to)

	case MsgReturn:
		err = ctrl.Return(msg.CardID)

	case MsgCombine:
		op, perr := game.ParseOperation(msg.Operation)
		if perr != nil {
			return perr
		}
		err = ctrl.Combine(op)

	case MsgUndo:
		err = ctrl.Undo()

	case MsgHint:
		err = ctrl.RequestHint()

	case MsgGetState:

	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}

	if err != nil && !play.IsInert(err) {
		return err
	}
	return nil
}
