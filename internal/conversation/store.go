package conversation

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	deskErrors "github.com/harunnryd/libradesk/internal/errors"

	"github.com/oklog/ulid/v2"
)

// Store holds every live conversation. Implementations hand out copies; the
// only way to change a record is through the store.
type Store interface {
	GetOrCreate(sessionID string, initial Status, initialMessages []Message) (*Conversation, bool, error)
	Get(sessionID string) (*Conversation, error)
	AppendMessage(sessionID string, msg Message) (*Conversation, error)
	SetStatus(sessionID string, status Status) (*Conversation, error)
	SetCountdown(sessionID string, seconds *int) (*Conversation, error)
	Update(sessionID string, fn func(*Conversation) error) (*Conversation, error)
	Evict(match func(*Conversation) bool) []string
	List() []*Conversation
	Len() int
}

const (
	DefaultMaxConversations = 1000
	DefaultEvictionBuffer   = 50
)

type Option func(*MemoryStore)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithCapacity sets the hard limit and the extra headroom freed once it is hit.
// A non-positive max disables the guard.
func WithCapacity(max, buffer int) Option {
	return func(s *MemoryStore) {
		s.max = max
		if buffer >= 0 {
			s.buffer = buffer
		}
	}
}

// WithEvictHook is called with the ids removed by Evict or by the capacity guard.
func WithEvictHook(fn func(ids []string)) Option {
	return func(s *MemoryStore) {
		s.onEvict = fn
	}
}

type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Conversation
	now     func() time.Time
	max     int
	buffer  int
	onEvict func(ids []string)
}

func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		records: make(map[string]*Conversation),
		now:     time.Now,
		max:     DefaultMaxConversations,
		buffer:  DefaultEvictionBuffer,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) GetOrCreate(sessionID string, initial Status, initialMessages []Message) (*Conversation, bool, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, false, deskErrors.InvalidInput("session id is required")
	}
	if !initial.Valid() {
		return nil, false, deskErrors.InvalidInput(fmt.Sprintf("unknown status %q", initial))
	}

	s.mu.Lock()
	if existing, ok := s.records[sessionID]; ok {
		snapshot := existing.clone()
		s.mu.Unlock()
		return snapshot, false, nil
	}

	now := s.now()
	conv := &Conversation{
		SessionID:    sessionID,
		Status:       initial,
		Messages:     make([]Message, 0, len(initialMessages)),
		StartTime:    now,
		LastActivity: now,
	}
	for _, msg := range initialMessages {
		conv.Messages = append(conv.Messages, s.stamp(msg, now))
	}
	if initial == StatusClosed {
		closedAt := now
		conv.ClosedAt = &closedAt
	}
	s.records[sessionID] = conv
	evicted := s.enforceCapacityLocked(sessionID)
	snapshot := conv.clone()
	s.mu.Unlock()

	s.notifyEvicted(evicted)
	return snapshot, true, nil
}

func (s *MemoryStore) Get(sessionID string) (*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.records[sessionID]
	if !ok {
		return nil, deskErrors.NotFound(fmt.Sprintf("session %s", sessionID))
	}
	return conv.clone(), nil
}

func (s *MemoryStore) AppendMessage(sessionID string, msg Message) (*Conversation, error) {
	return s.Update(sessionID, func(c *Conversation) error {
		c.Messages = append(c.Messages, msg)
		return nil
	})
}

func (s *MemoryStore) SetStatus(sessionID string, status Status) (*Conversation, error) {
	if !status.Valid() {
		return nil, deskErrors.InvalidInput(fmt.Sprintf("unknown status %q", status))
	}
	return s.Update(sessionID, func(c *Conversation) error {
		c.Status = status
		return nil
	})
}

// SetCountdown starts a warning of the given seconds. nil or zero clears it.
func (s *MemoryStore) SetCountdown(sessionID string, seconds *int) (*Conversation, error) {
	if seconds != nil && (*seconds < 0 || *seconds > MaxCountdownSeconds) {
		return nil, deskErrors.InvalidInput(fmt.Sprintf("countdown must be between 0 and %d seconds", MaxCountdownSeconds))
	}
	return s.Update(sessionID, func(c *Conversation) error {
		if seconds == nil || *seconds == 0 {
			c.CountdownEndsAt = nil
			return nil
		}
		endsAt := s.now().Add(time.Duration(*seconds) * time.Second)
		c.CountdownEndsAt = &endsAt
		return nil
	})
}

// Update runs fn against a copy of the record and commits the copy only if
// fn succeeds and the message log was extended, never shortened or edited.
func (s *MemoryStore) Update(sessionID string, fn func(*Conversation) error) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.records[sessionID]
	if !ok {
		return nil, deskErrors.NotFound(fmt.Sprintf("session %s", sessionID))
	}

	next := current.clone()
	if err := fn(next); err != nil {
		return nil, err
	}

	if next.SessionID != current.SessionID {
		return nil, deskErrors.Conflict("session id cannot change")
	}
	if !next.Status.Valid() {
		return nil, deskErrors.InvalidInput(fmt.Sprintf("unknown status %q", next.Status))
	}
	if len(next.Messages) < len(current.Messages) {
		return nil, deskErrors.Conflict(fmt.Sprintf("session %s: message log cannot shrink", sessionID))
	}
	for i := range current.Messages {
		if next.Messages[i] != current.Messages[i] {
			return nil, deskErrors.Conflict(fmt.Sprintf("session %s: message %d cannot be edited", sessionID, i))
		}
	}

	now := s.now()
	for i := len(current.Messages); i < len(next.Messages); i++ {
		next.Messages[i] = s.stamp(next.Messages[i], now)
	}

	switch {
	case next.Status == StatusClosed && next.ClosedAt == nil:
		closedAt := now
		next.ClosedAt = &closedAt
	case next.Status != StatusClosed:
		next.ClosedAt = nil
	}

	if len(next.Messages) > len(current.Messages) || next.Status != current.Status {
		next.LastActivity = now
	}

	next.StartTime = current.StartTime
	s.records[sessionID] = next
	return next.clone(), nil
}

// Evict removes every conversation match accepts. match sees the live record
// and must not modify or retain it.
func (s *MemoryStore) Evict(match func(*Conversation) bool) []string {
	s.mu.Lock()
	var removed []string
	for id, conv := range s.records {
		if match(conv) {
			delete(s.records, id)
			removed = append(removed, id)
		}
	}
	s.mu.Unlock()

	sort.Strings(removed)
	s.notifyEvicted(removed)
	return removed
}

// List returns snapshots ordered by start time.
func (s *MemoryStore) List() []*Conversation {
	s.mu.RLock()
	out := make([]*Conversation, 0, len(s.records))
	for _, conv := range s.records {
		out = append(out, conv.clone())
	}
	s.mu.RUnlock()

	sortByStart(out)
	return out
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// CountByStatus tallies conversations per status.
func (s *MemoryStore) CountByStatus() map[Status]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[Status]int, 5)
	for _, conv := range s.records {
		counts[conv.Status]++
	}
	return counts
}

func (s *MemoryStore) enforceCapacityLocked(keep string) []string {
	if s.max <= 0 || len(s.records) <= s.max {
		return nil
	}

	excess := len(s.records) - s.max + s.buffer
	if excess > len(s.records)-1 {
		excess = len(s.records) - 1
	}

	candidates := make([]*Conversation, 0, len(s.records))
	for id, conv := range s.records {
		if id != keep {
			candidates = append(candidates, conv)
		}
	}
	sortByStart(candidates)

	removed := make([]string, 0, excess)
	for _, conv := range candidates[:excess] {
		delete(s.records, conv.SessionID)
		removed = append(removed, conv.SessionID)
	}
	return removed
}

func (s *MemoryStore) notifyEvicted(ids []string) {
	if len(ids) > 0 && s.onEvict != nil {
		s.onEvict(ids)
	}
}

func (s *MemoryStore) stamp(msg Message, now time.Time) Message {
	if msg.ID == "" {
		msg.ID = ulid.Make().String()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = now
	}
	return msg
}

func sortByStart(convs []*Conversation) {
	sort.SliceStable(convs, func(i, j int) bool {
		if convs[i].StartTime.Equal(convs[j].StartTime) {
			return convs[i].SessionID < convs[j].SessionID
		}
		return convs[i].StartTime.Before(convs[j].StartTime)
	})
}
