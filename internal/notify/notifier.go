package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/harunnryd/libradesk/internal/concurrency"
	"github.com/harunnryd/libradesk/internal/conversation"
	"github.com/harunnryd/libradesk/internal/logger"

	"github.com/oklog/ulid/v2"
)

// Directory lists the librarian addresses that receive alerts.
type Directory interface {
	Authorized() []string
}

// Sender delivers one alert to one librarian address.
type Sender interface {
	Send(ctx context.Context, address string, content string) error
}

type Options struct {
	DashboardURL string
	SendTimeout  time.Duration
}

// Notifier records escalations and pushes them to every approved librarian.
// Delivery never blocks or fails the caller.
type Notifier struct {
	log       *Log
	directory Directory
	sender    Sender
	opts      Options
	now       func() time.Time

	inflight sync.WaitGroup
}

func NewNotifier(log *Log, directory Directory, sender Sender, opts Options) *Notifier {
	if log == nil {
		log = NewLog(0)
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 10 * time.Second
	}
	return &Notifier{
		log:       log,
		directory: directory,
		sender:    sender,
		opts:      opts,
		now:       time.Now,
	}
}

func (n *Notifier) Log() *Log {
	return n.log
}

// Notify appends an entry to the log and starts delivery in the background.
func (n *Notifier) Notify(ctx context.Context, sessionID, summary string, recent []conversation.Message) Entry {
	history := make([]conversation.Message, len(recent))
	copy(history, recent)

	entry := Entry{
		ID:        ulid.Make().String(),
		SessionID: sessionID,
		Message:   summary,
		Timestamp: n.now(),
		History:   history,
	}
	n.log.Append(entry)

	// Delivery outlives the HTTP request that triggered it.
	deliverCtx := context.WithoutCancel(ctx)
	n.inflight.Add(1)
	concurrency.SafeGo("notify:"+sessionID, func() {
		defer n.inflight.Done()
		n.deliver(deliverCtx, entry)
	}, nil)
	return entry
}

func (n *Notifier) deliver(ctx context.Context, entry Entry) {
	if logger.GetSessionID(ctx) == "" {
		ctx = logger.WithSessionID(ctx, entry.SessionID)
	}
	log := logger.From(ctx).With("component", "notifier")

	if n.directory == nil || n.sender == nil {
		log.Warn("No librarian channel configured; escalation kept on dashboard only")
		return
	}
	addresses := n.directory.Authorized()
	if len(addresses) == 0 {
		log.Warn("No authorized librarians to notify")
		return
	}

	text := FormatAlert(entry.SessionID, entry.Message, n.opts.DashboardURL)
	delivered := 0
	for _, address := range addresses {
		sendCtx, cancel := context.WithTimeout(ctx, n.opts.SendTimeout)
		err := n.sender.Send(sendCtx, address, text)
		cancel()
		if err != nil {
			log.Error("Failed to notify librarian", "address", address, "error", err)
			continue
		}
		delivered++
	}
	log.Info("Librarians notified", "delivered", delivered, "total", len(addresses))
}

// Wait blocks until in-flight deliveries finish.
func (n *Notifier) Wait() {
	n.inflight.Wait()
}

func FormatAlert(sessionID, summary, dashboardURL string) string {
	return fmt.Sprintf("🔔 New Librarian Request!\n\nSession: %s\n\n%s\n\nView dashboard: %s", sessionID, summary, dashboardURL)
}
