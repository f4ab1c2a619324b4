package console

import (
	"sync"
	"time"
)

// EventKind tags a log entry.
type EventKind uint8

// Event kinds, in the order they usually occur on a connection.
const (
	EventOpened EventKind = iota + 1
	EventReceived
	EventError
	EventClosed
	EventSent
)

func (k EventKind) String() string {
	switch k {
	case EventOpened:
		return "opened"
	case EventReceived:
		return "received"
	case EventError:
		return "error"
	case EventClosed:
		return "closed"
	case EventSent:
		return "sent"
	default:
		return "unknown"
	}
}

// Entry is one line of the console log. Text holds the payload for
// received and sent frames and the error detail for errors.
type Entry struct {
	Seq  uint64
	Kind EventKind
	Text string
	Time time.Time
}

// String renders the entry the way it is displayed.
func (e Entry) String() string {
	switch e.Kind {
	case EventOpened:
		return "CONNECTION OPENED"
	case EventReceived:
		return "RECEIVED: " + e.Text
	case EventError:
		return "ERROR: " + e.Text
	case EventClosed:
		return "CONNECTION CLOSED"
	case EventSent:
		return "SENT: " + e.Text
	default:
		return e.Text
	}
}

// Log is an append-only, unbounded sequence of entries. It is safe for
// concurrent use.
type Log struct {
	mu      sync.RWMutex
	entries []Entry
	now     func() time.Time
}

// NewLog returns an empty log stamping entries with now. A nil now uses
// time.Now.
func NewLog(now func() time.Time) *Log {
	if now == nil {
		now = time.Now
	}

	return &Log{now: now}
}

// Append adds an entry and returns it with its sequence number set.
// Sequence numbers start at 1.
func (l *Log) Append(kind EventKind, text string) Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	e := Entry{
		Seq:  uint64(len(l.entries)) + 1,
		Kind: kind,
		Text: text,
		Time: l.now(),
	}
	l.entries = append(l.entries, e)

	return e
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.entries)
}

// Entries returns a copy of all entries in order.
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Entry, len(l.entries))
	copy(out, l.entries)

	return out
}

// Lines returns the rendered entries in order.
func (l *Log) Lines() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]string, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.String()
	}

	return out
}
