// Package feedback keeps patron ratings of bot answers and of whole
// conversations for as long as the conversation itself is retained.
package feedback

import (
	"strings"
	"sync"
	"time"

	deskErrors "github.com/harunnryd/libradesk/internal/errors"
)

type Vote string

const (
	VoteUp   Vote = "up"
	VoteDown Vote = "down"
)

func (v Vote) Valid() bool {
	return v == VoteUp || v == VoteDown
}

const (
	MinRating = 1
	MaxRating = 5
)

type Rating struct {
	Score     int             `json:"rating"`
	Comment   string          `json:"comment,omitempty"`
	Messages  map[string]Vote `json:"messageFeedback,omitempty"`
	Submitted time.Time       `json:"submitted"`
}

// Counts is the derived view attached to a conversation record.
type Counts struct {
	ThumbsUp   int  `json:"thumbsUp"`
	ThumbsDown int  `json:"thumbsDown"`
	Rating     *int `json:"rating,omitempty"`
}

type sessionFeedback struct {
	votes  map[string]Vote
	rating *Rating
}

type Store struct {
	mu       sync.RWMutex
	sessions map[string]*sessionFeedback
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*sessionFeedback),
		now:      time.Now,
	}
}

func (s *Store) entryLocked(sessionID string) *sessionFeedback {
	fb, ok := s.sessions[sessionID]
	if !ok {
		fb = &sessionFeedback{votes: make(map[string]Vote)}
		s.sessions[sessionID] = fb
	}
	return fb
}

// RecordVote stores a thumbs vote on one message. A later vote on the same
// message replaces the earlier one.
func (s *Store) RecordVote(sessionID, messageID string, vote Vote) error {
	sessionID = strings.TrimSpace(sessionID)
	messageID = strings.TrimSpace(messageID)
	if sessionID == "" || messageID == "" {
		return deskErrors.InvalidInput("sessionId and messageId are required")
	}
	if !vote.Valid() {
		return deskErrors.InvalidInput("feedback type must be up or down")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entryLocked(sessionID).votes[messageID] = vote
	return nil
}

// RecordRating stores the end-of-conversation rating. Votes carried in
// messages are merged into the per-message votes.
func (s *Store) RecordRating(sessionID string, score int, comment string, messages map[string]Vote) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return deskErrors.InvalidInput("sessionId is required")
	}
	if score < MinRating || score > MaxRating {
		return deskErrors.InvalidInput("rating must be between 1 and 5")
	}
	for id, v := range messages {
		if !v.Valid() {
			return deskErrors.InvalidInput("invalid feedback for message " + id)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fb := s.entryLocked(sessionID)
	copied := make(map[string]Vote, len(messages))
	for id, v := range messages {
		fb.votes[id] = v
		copied[id] = v
	}
	fb.rating = &Rating{
		Score:     score,
		Comment:   strings.TrimSpace(comment),
		Messages:  copied,
		Submitted: s.now(),
	}
	return nil
}

func (s *Store) Counts(sessionID string) Counts {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var c Counts
	fb, ok := s.sessions[sessionID]
	if !ok {
		return c
	}
	for _, v := range fb.votes {
		switch v {
		case VoteUp:
			c.ThumbsUp++
		case VoteDown:
			c.ThumbsDown++
		}
	}
	if fb.rating != nil {
		score := fb.rating.Score
		c.Rating = &score
	}
	return c
}

func (s *Store) Rating(sessionID string) (Rating, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fb, ok := s.sessions[sessionID]
	if !ok || fb.rating == nil {
		return Rating{}, false
	}
	return *fb.rating, true
}

// Forget drops everything recorded for the given conversations.
func (s *Store) Forget(sessionIDs []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range sessionIDs {
		delete(s.sessions, id)
	}
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
