// Package router decides who answers a patron message: a fixed pre-filter
// response, the bot, or the librarian on duty.
package router

import (
	"context"
	"strings"

	"github.com/harunnryd/libradesk/internal/bot"
	"github.com/harunnryd/libradesk/internal/classifier"
	"github.com/harunnryd/libradesk/internal/concurrency"
	"github.com/harunnryd/libradesk/internal/conversation"
	"github.com/harunnryd/libradesk/internal/countdown"
	deskErrors "github.com/harunnryd/libradesk/internal/errors"
	"github.com/harunnryd/libradesk/internal/logger"
	"github.com/harunnryd/libradesk/internal/notify"
)

const (
	DefaultApology = "I'm sorry, I'm having trouble answering right now. Please try again in a moment, or ask for a librarian."

	LibrarianRequestedMessage = "A librarian has been notified and will assist you shortly."

	// alertHistory is how many trailing messages ride along with an alert.
	alertHistory = 10
)

type Outcome struct {
	Response *string
	Status   conversation.Status
	Filtered classifier.Verdict
	Degraded bool
}

type Options struct {
	MaxMessageLength int
	Apology          string
}

type Deps struct {
	Store    conversation.Store
	Locks    *concurrency.KeyedMutex
	Filters  classifier.Classifier
	Replier  bot.Replier
	Notifier *notify.Notifier
	Timers   *countdown.Timers
}

type Router struct {
	store    conversation.Store
	locks    *concurrency.KeyedMutex
	filters  classifier.Classifier
	replier  bot.Replier
	notifier *notify.Notifier
	timers   *countdown.Timers
	opts     Options
}

func New(deps Deps, opts Options) *Router {
	if deps.Locks == nil {
		deps.Locks = concurrency.NewKeyedMutex()
	}
	if deps.Filters == nil {
		deps.Filters = classifier.Chain{}
	}
	if deps.Timers == nil {
		deps.Timers = countdown.New()
	}
	if strings.TrimSpace(opts.Apology) == "" {
		opts.Apology = DefaultApology
	}
	return &Router{
		store:    deps.Store,
		locks:    deps.Locks,
		filters:  deps.Filters,
		replier:  deps.Replier,
		notifier: deps.Notifier,
		timers:   deps.Timers,
		opts:     opts,
	}
}

// Route handles one patron message.
func (r *Router) Route(ctx context.Context, sessionID, text string) (*Outcome, error) {
	sessionID, err := conversation.NormalizeSessionID(sessionID)
	if err != nil {
		return nil, err
	}
	text, err = conversation.NormalizeText(text, r.opts.MaxMessageLength)
	if err != nil {
		return nil, err
	}
	ctx = logger.WithSessionID(ctx, sessionID)
	log := logger.From(ctx).With("component", "router")

	// Filtered messages never reach the store.
	if res := r.filters.Classify(text); res.Matched() {
		status := conversation.StatusBot
		if conv, err := r.store.Get(sessionID); err == nil {
			status = conv.Status
		}
		log.Info("Message answered by pre-filter", "verdict", res.Verdict)
		response := res.Response
		return &Outcome{Response: &response, Status: status, Filtered: res.Verdict}, nil
	}

	conv, transition, err := r.recordUserMessage(sessionID, text)
	if err != nil {
		return nil, err
	}
	r.timers.Cancel(sessionID)

	if conv.Status != conversation.StatusBot {
		if transition.Effects.Has(conversation.EffectNotify) {
			r.notify(ctx, sessionID, notify.UserMessageSummary(text), conv.Recent(alertHistory))
		}
		log.Info("Message queued for librarian", "status", conv.Status)
		return &Outcome{Status: conv.Status}, nil
	}

	return r.botReply(ctx, conv, text), nil
}

// recordUserMessage appends the message and applies the user-message
// transition under the conversation lock.
func (r *Router) recordUserMessage(sessionID, text string) (*conversation.Conversation, conversation.Transition, error) {
	r.locks.Lock(sessionID)
	defer r.locks.Unlock(sessionID)

	if _, _, err := r.store.GetOrCreate(sessionID, conversation.StatusBot, nil); err != nil {
		return nil, conversation.Transition{}, err
	}

	var transition conversation.Transition
	conv, err := r.store.Update(sessionID, func(c *conversation.Conversation) error {
		t, err := conversation.Next(c.Status, conversation.TriggerUserMessage)
		if err != nil {
			return err
		}
		transition = t
		c.Messages = append(c.Messages, conversation.UserMessage(text))
		c.Status = t.To
		c.CountdownEndsAt = nil
		return nil
	})
	return conv, transition, err
}

// botReply runs without the lock held. A librarian may take over meanwhile;
// the reply is still appended.
func (r *Router) botReply(ctx context.Context, conv *conversation.Conversation, text string) *Outcome {
	log := logger.From(ctx).With("component", "router")
	history := conv.Messages[:len(conv.Messages)-1]

	reply, err := r.reply(ctx, history, text)
	if err != nil {
		log.Warn("Bot reply failed, sending apology", "error", err, "retryable", deskErrors.IsRetryable(err))
		apology := r.opts.Apology
		return &Outcome{Response: &apology, Status: conv.Status, Degraded: true}
	}

	status := conv.Status
	r.locks.WithLock(conv.SessionID, func() {
		updated, err := r.store.AppendMessage(conv.SessionID, conversation.BotReply(reply))
		if err != nil {
			log.Warn("Bot reply not stored", "error", err)
			return
		}
		status = updated.Status
	})
	return &Outcome{Response: &reply, Status: status}
}

func (r *Router) reply(ctx context.Context, history []conversation.Message, text string) (string, error) {
	if r.replier == nil {
		return "", deskErrors.Upstream("no bot configured")
	}
	return r.replier.Reply(ctx, history, text)
}

// RequestLibrarian hands the conversation to a human. history seeds a
// conversation the server has not seen yet; roles other than user and
// assistant are dropped.
func (r *Router) RequestLibrarian(ctx context.Context, sessionID string, history []conversation.Message) (*Outcome, error) {
	sessionID, err := conversation.NormalizeSessionID(sessionID)
	if err != nil {
		return nil, err
	}
	ctx = logger.WithSessionID(ctx, sessionID)

	conv, err := r.escalate(sessionID, SanitizeHistory(history))
	if err != nil {
		return nil, err
	}
	r.timers.Cancel(sessionID)
	r.notify(ctx, sessionID, notify.EscalationSummary(conv.Messages), conv.Recent(alertHistory))

	logger.From(ctx).Info("Librarian requested", "component", "router")
	message := LibrarianRequestedMessage
	return &Outcome{Response: &message, Status: conv.Status}, nil
}

func (r *Router) escalate(sessionID string, seed []conversation.Message) (*conversation.Conversation, error) {
	r.locks.Lock(sessionID)
	defer r.locks.Unlock(sessionID)

	if _, _, err := r.store.GetOrCreate(sessionID, conversation.StatusHuman, seed); err != nil {
		return nil, err
	}
	return r.store.Update(sessionID, func(c *conversation.Conversation) error {
		t, err := conversation.Next(c.Status, conversation.TriggerEscalationRequest)
		if err != nil {
			return err
		}
		c.Status = t.To
		c.CountdownEndsAt = nil
		return nil
	})
}

func (r *Router) notify(ctx context.Context, sessionID, summary string, recent []conversation.Message) {
	if r.notifier == nil {
		logger.From(ctx).Warn("No notifier configured, escalation not delivered", "component", "router")
		return
	}
	r.notifier.Notify(ctx, sessionID, summary, recent)
}

// SanitizeHistory keeps client-supplied user and assistant turns. Assistant
// turns are recorded as bot replies.
func SanitizeHistory(history []conversation.Message) []conversation.Message {
	out := make([]conversation.Message, 0, len(history))
	for _, m := range history {
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		switch m.Role {
		case conversation.RoleUser:
			out = append(out, conversation.UserMessage(content))
		case conversation.RoleAssistant:
			out = append(out, conversation.BotReply(content))
		}
	}
	return out
}
