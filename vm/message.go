package vm

import "time"

type EventType int

const (
	_ EventType = iota
	EventInstruction
	EventThreadStart
	EventThreadExit
	EventFault
)

func (et EventType) String() string {
	switch et {
	case EventInstruction:
		return "instruction"
	case EventThreadStart:
		return "start"
	case EventThreadExit:
		return "exit"
	case EventFault:
		return "fault"
	default:
		return "unknown"
	}
}

// Event is an execution trace record.
type Event struct {
	Type     EventType
	Time     time.Time
	ThreadID uint64
	PC       uint32 // Bit address.
	Message  string
}

func NewEvent(et EventType, threadID uint64, pc uint32, msg string) Event {
	return Event{
		Type:     et,
		Time:     time.Now(),
		ThreadID: threadID,
		PC:       pc,
		Message:  msg,
	}
}

// Tracer receives trace events from every thread concurrently.
// It only observes, execution doesn't depend on it.
type Tracer interface {
	Trace(Event)
}
