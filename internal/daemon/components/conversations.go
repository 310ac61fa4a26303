package components

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/harunnryd/libradesk/internal/bot"
	"github.com/harunnryd/libradesk/internal/canned"
	"github.com/harunnryd/libradesk/internal/classifier"
	"github.com/harunnryd/libradesk/internal/concurrency"
	"github.com/harunnryd/libradesk/internal/config"
	"github.com/harunnryd/libradesk/internal/conversation"
	"github.com/harunnryd/libradesk/internal/countdown"
	"github.com/harunnryd/libradesk/internal/daemon"
	"github.com/harunnryd/libradesk/internal/feedback"
	"github.com/harunnryd/libradesk/internal/handoff"
	"github.com/harunnryd/libradesk/internal/model"
	"github.com/harunnryd/libradesk/internal/notify"
	"github.com/harunnryd/libradesk/internal/router"
)

// ConversationsComponent wires the conversation store and everything that
// mutates it: the message router, the librarian desk and the escalation notifier.
type ConversationsComponent struct {
	cfg        *config.Config
	librarians *LibrariansComponent

	store    *conversation.MemoryStore
	timers   *countdown.Timers
	notifier *notify.Notifier
	models   *model.DefaultModelRouter
	router   *router.Router
	desk     *handoff.Desk
	feedback *feedback.Store
	canned   *canned.Catalog

	initialized bool
	started     bool
	mu          sync.RWMutex
}

func NewConversationsComponent(cfg *config.Config, librarians *LibrariansComponent) *ConversationsComponent {
	return &ConversationsComponent{cfg: cfg, librarians: librarians}
}

func (c *ConversationsComponent) Name() string {
	return "Conversations"
}

func (c *ConversationsComponent) Dependencies() []string {
	return []string{"Librarians"}
}

func (c *ConversationsComponent) Init(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.librarians == nil || c.librarians.Registry() == nil {
		return fmt.Errorf("librarians component not initialized")
	}

	replyTimeout, err := config.DurationOrDefault(c.cfg.Chat.ReplyTimeout, config.DefaultChatReplyTimeout)
	if err != nil {
		return fmt.Errorf("parse chat reply timeout: %w", err)
	}
	sendTimeout, err := config.DurationOrDefault(c.cfg.Notifications.SendTimeout, config.DefaultNotificationsSendTimeout)
	if err != nil {
		return fmt.Errorf("parse notification send timeout: %w", err)
	}

	catalog, err := canned.Load(c.cfg.Canned.File)
	if err != nil {
		return fmt.Errorf("failed to load canned responses: %w", err)
	}

	models, err := model.NewModelRouter(c.cfg.Models)
	if err != nil {
		return fmt.Errorf("failed to create model router: %w", err)
	}

	maxConversations := c.cfg.Store.MaxConversations
	if maxConversations == 0 {
		maxConversations = config.DefaultStoreMaxConversations
	}
	evictionBuffer := c.cfg.Store.EvictionBuffer
	if evictionBuffer == 0 {
		evictionBuffer = config.DefaultStoreEvictionBuffer
	}
	maxMessageLength := c.cfg.Chat.MaxMessageLength
	if maxMessageLength <= 0 {
		maxMessageLength = config.DefaultChatMaxMessageLength
	}
	logCapacity := c.cfg.Notifications.LogCapacity
	if logCapacity <= 0 {
		logCapacity = config.DefaultNotificationsLogCapacity
	}

	fb := feedback.NewStore()
	convStore := conversation.NewMemoryStore(
		conversation.WithCapacity(maxConversations, evictionBuffer),
		conversation.WithEvictHook(fb.Forget),
	)
	locks := concurrency.NewKeyedMutex()
	timers := countdown.New()
	alerts := notify.NewLog(logCapacity)

	notifier := notify.NewNotifier(alerts, c.librarians.Registry(), c.librarians.Egress(), notify.Options{
		DashboardURL: c.cfg.Notifications.DashboardURL,
		SendTimeout:  sendTimeout,
	})

	replier := bot.NewModelReplier(models, bot.Options{
		Model:        c.cfg.Chat.Model,
		SystemPrompt: c.cfg.Chat.SystemPrompt,
		HistoryTurns: c.cfg.Chat.HistoryTurns,
		Temperature:  c.cfg.Chat.Temperature,
		TopP:         c.cfg.Chat.TopP,
		MaxTokens:    c.cfg.Chat.MaxTokens,
		Timeout:      replyTimeout,
	})

	c.router = router.New(router.Deps{
		Store:    convStore,
		Locks:    locks,
		Filters:  classifier.Default(),
		Replier:  replier,
		Notifier: notifier,
		Timers:   timers,
	}, router.Options{
		MaxMessageLength: maxMessageLength,
		Apology:          c.cfg.Chat.Apology,
	})
	c.desk = handoff.NewDesk(handoff.Deps{
		Store:  convStore,
		Locks:  locks,
		Timers: timers,
		Log:    alerts,
	}, maxMessageLength)

	c.store = convStore
	c.timers = timers
	c.notifier = notifier
	c.models = models
	c.feedback = fb
	c.canned = catalog
	c.initialized = true

	slog.Info("Conversations initialized",
		"component", c.Name(),
		"max_conversations", maxConversations,
		"models", len(models.ListModels()),
		"canned_categories", len(catalog.Categories))
	return nil
}

func (c *ConversationsComponent) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		return fmt.Errorf("Conversations not initialized")
	}
	c.started = true
	slog.Info("Conversations started", "component", c.Name())
	return nil
}

// Stop cancels pending countdowns and waits for in-flight librarian alerts.
func (c *ConversationsComponent) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started {
		slog.Info("Conversations not started, skipping stop", "component", c.Name())
		return nil
	}

	c.timers.Stop()

	done := make(chan struct{})
	go func() {
		c.notifier.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		slog.Warn("Librarian alerts still in flight at shutdown", "component", c.Name())
	}

	c.started = false
	slog.Info("Conversations stopped", "component", c.Name(), "remaining", c.store.Len())
	return nil
}

func (c *ConversationsComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.initialized {
		return &daemon.ComponentHealth{Name: c.Name(), Healthy: false, Error: fmt.Errorf("not initialized")}, nil
	}
	if !c.started {
		return &daemon.ComponentHealth{Name: c.Name(), Healthy: false, Error: fmt.Errorf("not started")}, nil
	}
	// Without a model the bot path degrades to the apology; the desk still works.
	if err := c.models.Health(ctx); err != nil {
		return daemon.Unhealthy(c.Name(), err), nil
	}

	counts := c.store.CountByStatus()
	return daemon.Healthy(c.Name(), map[string]any{
		"conversations":      c.store.Len(),
		"awaiting_librarian": counts[conversation.StatusHuman],
		"with_librarian":     counts[conversation.StatusResponded],
		"closed":             counts[conversation.StatusClosed],
		"recent_alerts":      c.notifier.Log().Len(),
	}), nil
}

func (c *ConversationsComponent) Store() *conversation.MemoryStore {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.store
}

func (c *ConversationsComponent) Router() *router.Router {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.router
}

func (c *ConversationsComponent) Desk() *handoff.Desk {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.desk
}

func (c *ConversationsComponent) Feedback() *feedback.Store {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.feedback
}

func (c *ConversationsComponent) Canned() *canned.Catalog {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.canned
}
