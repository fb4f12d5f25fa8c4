package log

// EventType enumerates all observable game events.
type EventType int

const (
	EventNewGame EventType = iota
	EventStage
	EventSwap
	EventReturn
	EventCombine
	EventSolved
	EventUndo
	EventRejected     // an inert action: stale drag, empty slots, non-finite result
	EventPuzzleLoaded // a puzzle arrived from the puzzle source
	EventPuzzleFailed // the source failed and the fallback puzzle was used
	EventHintRequested
	EventHint
	EventStaleResult // an async result was superseded and dropped
)

func (e EventType) String() string {
	switch e {
	case EventNewGame:
		return "NewGame"
	case EventStage:
		return "Stage"
	case EventSwap:
		return "Swap"
	case EventReturn:
		return "Return"
	case EventCombine:
		return "Combine"
	case EventSolved:
		return "Solved"
	case EventUndo:
		return "Undo"
	case EventRejected:
		return "Rejected"
	case EventPuzzleLoaded:
		return "PuzzleLoaded"
	case EventPuzzleFailed:
		return "PuzzleFailed"
	case EventHintRequested:
		return "HintRequested"
	case EventHint:
		return "Hint"
	case EventStaleResult:
		return "StaleResult"
	default:
		return "Unknown"
	}
}

// GameEvent represents a single observable event in a puzzle session.
type GameEvent struct {
	Seq        int       // monotonic sequence number
	Generation int       // which session (1-based, bumped per new game)
	Type       EventType // event type
	Card       string    // card label (if applicable)
	Details    string    // human-readable detail string
}
