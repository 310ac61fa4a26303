package librarian

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/harunnryd/libradesk/internal/config"
	"github.com/harunnryd/libradesk/internal/egress"
	"github.com/harunnryd/libradesk/internal/errors"
	"github.com/harunnryd/libradesk/internal/idempotency"
)

const (
	AccessRequestedMessage = "✅ Your request has been sent to the administrators.\n\n" +
		"We will notify you once your request has been approved.\n\n" +
		"Thank you for your patience!"
	AlreadyAuthorizedMessage = "✅ You already have librarian access!\n\n" +
		"You will receive notifications when users request assistance.\n\n" +
		"No further action needed."
	ApprovedMessage = "🎉 Congratulations!\n\n" +
		"Your librarian access request has been approved!\n\n" +
		"You will now receive notifications when users request assistance.\n\n" +
		"Welcome to the team!"

	ApproveResult = "Librarian approved and saved permanently!"
	RemoveResult  = "Librarian removed and saved permanently!"
)

// redeliveryWindow covers platform retries of an unacknowledged event.
const redeliveryWindow = 10 * time.Minute

// Sender delivers a message to a librarian address.
type Sender interface {
	Send(ctx context.Context, address string, content string) error
}

type PendingRequest struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	LastMessage     time.Time `json:"lastMessage"`
	MessageCount    int       `json:"messageCount"`
	RequestedAccess bool      `json:"requestedAccess"`
}

// Access runs the self-service workflow: people message the bot with the
// request keyword, an admin approves them, and from then on they receive
// escalation notifications.
type Access struct {
	registry     *Registry
	sender       Sender
	keyword      string
	dashboardURL string
	now          func() time.Time
	seen         *idempotency.Store

	mu      sync.Mutex
	pending map[string]*PendingRequest
}

func NewAccess(registry *Registry, sender Sender, keyword, dashboardURL string) *Access {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		keyword = config.DefaultLibrariansRequestKeyword
	}
	return &Access{
		registry:     registry,
		sender:       sender,
		keyword:      keyword,
		dashboardURL: dashboardURL,
		now:          time.Now,
		seen:         idempotency.NewStore(redeliveryWindow),
		pending:      make(map[string]*PendingRequest),
	}
}

func (a *Access) Keyword() string {
	return a.keyword
}

func (a *Access) Registry() *Registry {
	return a.registry
}

// HandleEvent has the adapter.EventHandler shape and receives every inbound
// direct message from the messaging platforms.
func (a *Access) HandleEvent(ctx context.Context, source string, eventType string, target string, content string, metadata map[string]string) error {
	address := egress.FormatAddress(source, target)
	if _, err := NormalizeAddress(address); err != nil {
		return err
	}

	if a.seen.CheckAndMark(idempotency.EventKey(source, target, metadata)) {
		slog.Debug("Dropping redelivered event", "component", "librarian_access", "address", address)
		return nil
	}

	authorized := a.registry.IsAuthorized(address)
	isRequest := strings.EqualFold(strings.TrimSpace(content), a.keyword)
	log := slog.With("component", "librarian_access", "address", address)

	switch {
	case isRequest && authorized:
		log.Info("Access requested by existing librarian")
		a.send(ctx, address, AlreadyAuthorizedMessage)

	case isRequest:
		name := strings.TrimSpace(metadata["user_name"])
		if name == "" {
			name = address
		}
		a.recordPending(address, name)
		log.Info("New librarian access request", "name", name)
		a.send(ctx, address, AccessRequestedMessage)

	case !authorized:
		log.Debug("Ignoring message from unauthorized sender")

	default:
		log.Info("Librarian message received; replies belong on the dashboard", "dashboard", a.dashboardURL)
	}
	return nil
}

func (a *Access) recordPending(address, name string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if req, ok := a.pending[address]; ok {
		req.MessageCount++
		req.LastMessage = a.now()
		req.Name = name
		return
	}
	a.pending[address] = &PendingRequest{
		ID:              address,
		Name:            name,
		LastMessage:     a.now(),
		MessageCount:    1,
		RequestedAccess: true,
	}
}

// Pending lists outstanding requests, oldest activity first.
func (a *Access) Pending() []PendingRequest {
	a.mu.Lock()
	out := make([]PendingRequest, 0, len(a.pending))
	for _, req := range a.pending {
		out = append(out, *req)
	}
	a.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].LastMessage.Equal(out[j].LastMessage) {
			return out[i].ID < out[j].ID
		}
		return out[i].LastMessage.Before(out[j].LastMessage)
	})
	return out
}

// Approve persists id, clears its pending request and congratulates the
// new librarian. The congratulation is best-effort.
func (a *Access) Approve(ctx context.Context, id string) (string, error) {
	if strings.TrimSpace(id) == "" {
		return "", errors.InvalidInput("librarian id required")
	}
	address, err := NormalizeAddress(id)
	if err != nil {
		return "", err
	}
	if err := a.registry.Add(address); err != nil {
		return "", err
	}

	a.mu.Lock()
	delete(a.pending, address)
	a.mu.Unlock()

	slog.Info("Librarian approved", "component", "librarian_access", "address", address)
	a.send(ctx, address, ApprovedMessage)
	return ApproveResult, nil
}

func (a *Access) Remove(id string) (string, error) {
	if strings.TrimSpace(id) == "" {
		return "", errors.InvalidInput("librarian id required")
	}
	address, err := NormalizeAddress(id)
	if err != nil {
		return "", err
	}
	if err := a.registry.Remove(address); err != nil {
		return "", err
	}
	slog.Info("Librarian removed", "component", "librarian_access", "address", address)
	return RemoveResult, nil
}

func (a *Access) send(ctx context.Context, address, content string) {
	if a.sender == nil {
		return
	}
	if err := a.sender.Send(ctx, address, content); err != nil {
		slog.Warn("Failed to message librarian", "component", "librarian_access", "address", address, "error", err)
	}
}
