package notify

import (
	"sync"
	"time"

	"github.com/harunnryd/libradesk/internal/config"
	"github.com/harunnryd/libradesk/internal/conversation"
)

type Entry struct {
	ID        string                 `json:"id"`
	SessionID string                 `json:"sessionId"`
	Message   string                 `json:"message"`
	Timestamp time.Time              `json:"timestamp"`
	History   []conversation.Message `json:"history"`
}

// Log keeps the most recent escalation entries in a fixed-size ring.
type Log struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	full    bool
}

func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = config.DefaultNotificationsLogCapacity
	}
	return &Log{entries: make([]Entry, capacity)}
}

func (l *Log) Capacity() int {
	return len(l.entries)
}

// Append records e, overwriting the oldest entry once the ring is full.
func (l *Log) Append(e Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries[l.next] = e
	l.next = (l.next + 1) % len(l.entries)
	if l.next == 0 {
		l.full = true
	}
}

func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.full {
		return len(l.entries)
	}
	return l.next
}

// Recent returns a copy of the retained entries, oldest first.
func (l *Log) Recent() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.full {
		out := make([]Entry, l.next)
		copy(out, l.entries[:l.next])
		return out
	}
	out := make([]Entry, 0, len(l.entries))
	out = append(out, l.entries[l.next:]...)
	out = append(out, l.entries[:l.next]...)
	return out
}
