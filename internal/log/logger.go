package log

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// EventLogger is the interface for logging game events.
type EventLogger interface {
	Log(event GameEvent)
	Events() []GameEvent
}

// --- MemoryLogger: stores events in memory for test assertions ---

type MemoryLogger struct {
	mu     sync.Mutex
	events []GameEvent
	seq    int
}

func NewMemoryLogger() *MemoryLogger {
	return &MemoryLogger{}
}

func (l *MemoryLogger) Log(event GameEvent) {
	l.record(event)
}

// record stamps the sequence number and stores the event.
func (l *MemoryLogger) record(event GameEvent) GameEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	event.Seq = l.seq
	l.events = append(l.events, event)
	return event
}

func (l *MemoryLogger) Events() []GameEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]GameEvent, len(l.events))
	copy(out, l.events)
	return out
}

// EventsOfType returns all events matching the given type.
func (l *MemoryLogger) EventsOfType(t EventType) []GameEvent {
	var result []GameEvent
	for _, e := range l.Events() {
		if e.Type == t {
			result = append(result, e)
		}
	}
	return result
}

// LastEvent returns the most recent event, or a zero event if none.
func (l *MemoryLogger) LastEvent() GameEvent {
	events := l.Events()
	if len(events) == 0 {
		return GameEvent{}
	}
	return events[len(events)-1]
}

// --- TextLogger: writes human-readable lines to an io.Writer ---

type TextLogger struct {
	MemoryLogger
	w io.Writer
}

func NewTextLogger(w io.Writer) *TextLogger {
	return &TextLogger{w: w}
}

func (l *TextLogger) Log(event GameEvent) {
	event = l.MemoryLogger.record(event)
	fmt.Fprintln(l.w, FormatEvent(event))
}

// --- ZapLogger: forwards events to a structured logger ---

// ZapLogger keeps events in memory and mirrors each one to zap. Rejections
// and stage moves go out at debug level, everything else at info.
type ZapLogger struct {
	MemoryLogger
	logger *zap.Logger
}

func NewZapLogger(logger *zap.Logger) *ZapLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapLogger{logger: logger}
}

func (l *ZapLogger) Log(event GameEvent) {
	event = l.MemoryLogger.record(event)
	fields := []zap.Field{
		zap.Int("seq", event.Seq),
		zap.Int("generation", event.Generation),
		zap.String("event", event.Type.String()),
	}
	if event.Card != "" {
		fields = append(fields, zap.String("card", event.Card))
	}
	switch event.Type {
	case EventRejected, EventStage, EventSwap, EventReturn, EventStaleResult:
		l.logger.Debug(event.Details, fields...)
	case EventPuzzleFailed:
		l.logger.Warn(event.Details, fields...)
	default:
		l.logger.Info(event.Details, fields...)
	}
}

// --- Formatting ---

// FormatEvent formats a single event as a human-readable line.
func FormatEvent(e GameEvent) string {
	kind := e.Type.String()
	for len(kind) < 14 {
		kind += " "
	}
	return fmt.Sprintf("G%-2d %s| %s", e.Generation, kind, e.Details)
}

// FormatAll formats all events as a multi-line string.
func FormatAll(events []GameEvent) string {
	var sb strings.Builder
	for _, e := range events {
		sb.WriteString(FormatEvent(e))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// --- Helper constructors for common events ---

func NewGameEvent(gen int, target string, difficulty string, numbers []string) GameEvent {
	return GameEvent{
		Generation: gen,
		Type:       EventNewGame,
		Details:    fmt.Sprintf("=== New %s puzzle: reach %s from [%s] ===", difficulty, target, strings.Join(numbers, ", ")),
	}
}

func NewStageEvent(gen int, label string, from, to string) GameEvent {
	return GameEvent{
		Generation: gen,
		Type:       EventStage,
		Card:       label,
		Details:    fmt.Sprintf("%s staged from %s into %s", label, from, to),
	}
}

func NewSwapEvent(gen int, a, b string) GameEvent {
	return GameEvent{
		Generation: gen,
		Type:       EventSwap,
		Details:    fmt.Sprintf("slots swapped: A=%s B=%s", a, b),
	}
}

func NewReturnEvent(gen int, label string, from string) GameEvent {
	return GameEvent{
		Generation: gen,
		Type:       EventReturn,
		Card:       label,
		Details:    fmt.Sprintf("%s returned to hand from %s", label, from),
	}
}

func NewCombineEvent(gen int, a, op, b, result string) GameEvent {
	details := fmt.Sprintf("%s %s %s = %s", a, op, b, result)
	if op == "1/" {
		details = fmt.Sprintf("1/(%s) = %s (%s returned to hand)", a, result, b)
	}
	return GameEvent{
		Generation: gen,
		Type:       EventCombine,
		Card:       result,
		Details:    details,
	}
}

func NewSolvedEvent(gen int, label, target string) GameEvent {
	return GameEvent{
		Generation: gen,
		Type:       EventSolved,
		Card:       label,
		Details:    fmt.Sprintf("Target %s reached with %s!", target, label),
	}
}

func NewUndoEvent(gen int, remaining int) GameEvent {
	return GameEvent{
		Generation: gen,
		Type:       EventUndo,
		Details:    fmt.Sprintf("undo (%d step(s) left)", remaining),
	}
}

func NewRejectedEvent(gen int, action string, reason error) GameEvent {
	return GameEvent{
		Generation: gen,
		Type:       EventRejected,
		Details:    fmt.Sprintf("%s ignored: %v", action, reason),
	}
}

func NewPuzzleLoadedEvent(gen int, difficulty string, target string) GameEvent {
	return GameEvent{
		Generation: gen,
		Type:       EventPuzzleLoaded,
		Details:    fmt.Sprintf("%s puzzle loaded (target %s)", difficulty, target),
	}
}

func NewPuzzleFailedEvent(gen int, reason error) GameEvent {
	return GameEvent{
		Generation: gen,
		Type:       EventPuzzleFailed,
		Details:    fmt.Sprintf("puzzle source failed, using fallback: %v", reason),
	}
}

func NewHintRequestedEvent(gen int, values []string) GameEvent {
	return GameEvent{
		Generation: gen,
		Type:       EventHintRequested,
		Details:    fmt.Sprintf("hint requested for [%s]", strings.Join(values, ", ")),
	}
}

func NewHintEvent(gen int, hint string) GameEvent {
	return GameEvent{
		Generation: gen,
		Type:       EventHint,
		Details:    fmt.Sprintf("hint: %s", hint),
	}
}

func NewStaleResultEvent(gen int, kind string, launchedAt int) GameEvent {
	return GameEvent{
		Generation: gen,
		Type:       EventStaleResult,
		Details:    fmt.Sprintf("%s requested at generation %d dropped", kind, launchedAt),
	}
}
