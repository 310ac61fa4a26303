// Package handoff implements the librarian side of a conversation: viewing,
// replying, ending and the inactivity countdown.
package handoff

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/harunnryd/libradesk/internal/concurrency"
	"github.com/harunnryd/libradesk/internal/conversation"
	"github.com/harunnryd/libradesk/internal/countdown"
	deskErrors "github.com/harunnryd/libradesk/internal/errors"
	"github.com/harunnryd/libradesk/internal/logger"
	"github.com/harunnryd/libradesk/internal/notify"
)

var errCountdownCleared = errors.New("countdown cleared")

type Deps struct {
	Store  conversation.Store
	Locks  *concurrency.KeyedMutex
	Timers *countdown.Timers
	Log    *notify.Log
}

type Desk struct {
	store            conversation.Store
	locks            *concurrency.KeyedMutex
	timers           *countdown.Timers
	log              *notify.Log
	maxMessageLength int
	now              func() time.Time
}

func NewDesk(deps Deps, maxMessageLength int) *Desk {
	if deps.Locks == nil {
		deps.Locks = concurrency.NewKeyedMutex()
	}
	if deps.Timers == nil {
		deps.Timers = countdown.New()
	}
	if deps.Log == nil {
		deps.Log = notify.NewLog(0)
	}
	return &Desk{
		store:            deps.Store,
		locks:            deps.Locks,
		timers:           deps.Timers,
		log:              deps.Log,
		maxMessageLength: maxMessageLength,
		now:              time.Now,
	}
}

// apply runs trigger against the conversation under its lock. extra may add
// messages or fields once the transition is known.
func (d *Desk) apply(sessionID string, trigger conversation.Trigger, extra func(*conversation.Conversation, conversation.Transition)) (*conversation.Conversation, conversation.Transition, error) {
	d.locks.Lock(sessionID)
	defer d.locks.Unlock(sessionID)

	var transition conversation.Transition
	conv, err := d.store.Update(sessionID, func(c *conversation.Conversation) error {
		t, err := conversation.Next(c.Status, trigger)
		if err != nil {
			return err
		}
		transition = t
		if t.Effects.Has(conversation.EffectTakeoverNotice) && !c.HasLibrarianReply() {
			c.Messages = append(c.Messages, conversation.Notice(conversation.TakeoverNotice))
		}
		if extra != nil {
			extra(c, t)
		}
		if t.Effects.Has(conversation.EffectCancelCountdown) {
			c.CountdownEndsAt = nil
		}
		c.Status = t.To
		return nil
	})
	return conv, transition, err
}

// View returns the full record. Unless skipView is set, opening a bot
// conversation marks it viewed.
func (d *Desk) View(ctx context.Context, sessionID string, skipView bool) (*conversation.Conversation, error) {
	sessionID, err := conversation.NormalizeSessionID(sessionID)
	if err != nil {
		return nil, err
	}
	if skipView {
		return d.store.Get(sessionID)
	}

	conv, err := d.store.Get(sessionID)
	if err != nil || conv.Status != conversation.StatusBot {
		return conv, err
	}

	conv, t, err := d.apply(sessionID, conversation.TriggerDashboardView, nil)
	if err != nil {
		return nil, err
	}
	if t.Changed() {
		logger.From(ctx).Info("Conversation viewed by librarian", "component", "desk", "session_id", sessionID)
	}
	return conv, nil
}

// Respond appends a librarian message. The first librarian reply in a
// conversation is preceded by a takeover notice.
func (d *Desk) Respond(ctx context.Context, sessionID, text string) (*conversation.Conversation, error) {
	sessionID, err := conversation.NormalizeSessionID(sessionID)
	if err != nil {
		return nil, err
	}
	text, err = conversation.NormalizeText(text, d.maxMessageLength)
	if err != nil {
		return nil, err
	}

	conv, t, err := d.apply(sessionID, conversation.TriggerLibrarianReply, func(c *conversation.Conversation, _ conversation.Transition) {
		c.Messages = append(c.Messages, conversation.LibrarianMessage(text))
	})
	if err != nil {
		return nil, err
	}

	logger.From(ctx).Info("Librarian replied", "component", "desk", "session_id", sessionID,
		"from", t.From, "to", t.To)
	return conv, nil
}

// EndSession closes the conversation with exactly one closure notice.
func (d *Desk) EndSession(ctx context.Context, sessionID string) (*conversation.Conversation, error) {
	sessionID, err := conversation.NormalizeSessionID(sessionID)
	if err != nil {
		return nil, err
	}
	conv, _, err := d.apply(sessionID, conversation.TriggerEndSession, func(c *conversation.Conversation, _ conversation.Transition) {
		c.Messages = append(c.Messages, conversation.Notice(conversation.ClosureNotice))
	})
	if err != nil {
		return nil, err
	}
	d.timers.Cancel(sessionID)

	logger.From(ctx).Info("Session ended by librarian", "component", "desk", "session_id", sessionID)
	return conv, nil
}

// SetCountdown starts the inactivity warning. nil or zero clears it. When it
// runs out without a patron message the conversation closes.
func (d *Desk) SetCountdown(ctx context.Context, sessionID string, seconds *int) (*int, error) {
	sessionID, err := conversation.NormalizeSessionID(sessionID)
	if err != nil {
		return nil, err
	}
	if seconds != nil && (*seconds < 0 || *seconds > conversation.MaxCountdownSeconds) {
		return nil, deskErrors.InvalidInput(fmt.Sprintf("countdown must be between 0 and %d seconds", conversation.MaxCountdownSeconds))
	}
	log := logger.From(ctx).With("component", "desk", "session_id", sessionID)

	if seconds == nil || *seconds == 0 {
		d.locks.WithLock(sessionID, func() {
			_, err = d.store.SetCountdown(sessionID, nil)
		})
		if err != nil {
			return nil, err
		}
		d.timers.Cancel(sessionID)
		log.Info("Countdown cleared")
		return nil, nil
	}

	var conv *conversation.Conversation
	d.locks.WithLock(sessionID, func() {
		var current *conversation.Conversation
		current, err = d.store.Get(sessionID)
		if err != nil {
			return
		}
		if _, err = conversation.Next(current.Status, conversation.TriggerCountdownWarning); err != nil {
			return
		}
		conv, err = d.store.SetCountdown(sessionID, seconds)
	})
	if err != nil {
		return nil, err
	}

	d.timers.Schedule(sessionID, time.Duration(*seconds)*time.Second, func() {
		d.expire(sessionID)
	})
	log.Info("Countdown started", "seconds", *seconds)
	return conv.Countdown(d.now()), nil
}

// expire closes the conversation unless the countdown was cleared while the
// timer was waiting for the lock.
func (d *Desk) expire(sessionID string) {
	d.locks.Lock(sessionID)
	defer d.locks.Unlock(sessionID)

	closed := false
	_, err := d.store.Update(sessionID, func(c *conversation.Conversation) error {
		if c.CountdownEndsAt == nil {
			return errCountdownCleared
		}
		t, err := conversation.Next(c.Status, conversation.TriggerCountdownElapsed)
		if err != nil {
			return err
		}
		c.CountdownEndsAt = nil
		if !t.Changed() {
			return nil
		}
		c.Messages = append(c.Messages, conversation.Notice(conversation.TimeoutNotice))
		c.Status = t.To
		closed = true
		return nil
	})

	switch {
	case err == nil && !closed:
		logger.From(context.Background()).Debug("Countdown elapsed on a closed session", "component", "desk", "session_id", sessionID)
	case err == nil:
		logger.From(context.Background()).Info("Session closed after countdown", "component", "desk", "session_id", sessionID)
	case errors.Is(err, errCountdownCleared), deskErrors.IsCategory(err, deskErrors.ErrNotFound):
	default:
		logger.From(context.Background()).Warn("Countdown close failed", "component", "desk", "session_id", sessionID, "error", err)
	}
}

type ActiveConversation struct {
	SessionID    string                `json:"sessionId"`
	Status       conversation.Status   `json:"status"`
	MessageCount int                   `json:"messageCount"`
	StartTime    time.Time             `json:"startTime"`
	LastMessage  *conversation.Message `json:"lastMessage"`
}

type Dashboard struct {
	Notifications       []notify.Entry       `json:"notifications"`
	ActiveConversations []ActiveConversation `json:"activeConversations"`
}

// Dashboard lists recent escalations and every conversation in memory,
// oldest first.
func (d *Desk) Dashboard() Dashboard {
	convs := d.store.List()
	active := make([]ActiveConversation, 0, len(convs))
	for _, c := range convs {
		active = append(active, ActiveConversation{
			SessionID:    c.SessionID,
			Status:       c.Status,
			MessageCount: len(c.Messages),
			StartTime:    c.StartTime,
			LastMessage:  c.LastMessage(),
		})
	}
	return Dashboard{
		Notifications:       d.log.Recent(),
		ActiveConversations: active,
	}
}

// Status is the lightweight poll view. Unknown sessions report bot with no
// messages.
func (d *Desk) Status(sessionID string) (conversation.Status, int) {
	sessionID, err := conversation.NormalizeSessionID(sessionID)
	if err != nil {
		return conversation.StatusBot, 0
	}
	conv, err := d.store.Get(sessionID)
	if err != nil {
		return conversation.StatusBot, 0
	}
	return conv.Status, len(conv.Messages)
}

// Countdown reports the seconds left on a pending warning.
func (d *Desk) Countdown(conv *conversation.Conversation) *int {
	return conv.Countdown(d.now())
}
