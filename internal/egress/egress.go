package egress

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/harunnryd/libradesk/internal/adapter"
	"github.com/harunnryd/libradesk/internal/errors"
)

type Egress interface {
	// Register registers an output adapter
	Register(adapter adapter.OutputAdapter) error

	// Unregister removes an output adapter
	Unregister(name string) error

	// Send delivers content to a "<channel>:<target>" address
	Send(ctx context.Context, address string, content string) error

	// Health checks egress health and all registered adapters
	Health(ctx context.Context) error

	// ListAdapters returns all registered adapters
	ListAdapters() []adapter.OutputAdapter
}

// ParseAddress splits "<channel>:<target>". The target may itself contain
// colons, as Matrix room IDs do.
func ParseAddress(address string) (channel, target string, err error) {
	channel, target, ok := strings.Cut(strings.TrimSpace(address), ":")
	channel = strings.ToLower(strings.TrimSpace(channel))
	target = strings.TrimSpace(target)
	if !ok || channel == "" || target == "" {
		return "", "", errors.InvalidInput(fmt.Sprintf("address %q must look like <channel>:<target>", address))
	}
	return channel, target, nil
}

// FormatAddress is the inverse of ParseAddress.
func FormatAddress(channel, target string) string {
	return strings.ToLower(strings.TrimSpace(channel)) + ":" + strings.TrimSpace(target)
}

type DefaultEgress struct {
	mu       sync.RWMutex
	adapters map[string]adapter.OutputAdapter
}

func NewEgress() *DefaultEgress {
	return &DefaultEgress{
		adapters: make(map[string]adapter.OutputAdapter),
	}
}

func (e *DefaultEgress) Register(adapter adapter.OutputAdapter) error {
	if adapter == nil {
		return errors.InvalidInput("adapter cannot be nil")
	}

	name := adapter.Name()
	if name == "" {
		return errors.InvalidInput("adapter name cannot be empty")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.adapters[name]; exists {
		return errors.Conflict("adapter already registered: " + name)
	}

	e.adapters[name] = adapter
	slog.Info("Egress adapter registered", "name", name)
	return nil
}

func (e *DefaultEgress) Unregister(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.adapters[name]; !exists {
		return errors.NotFound("adapter not found: " + name)
	}

	delete(e.adapters, name)
	slog.Info("Egress adapter unregistered", "name", name)
	return nil
}

func (e *DefaultEgress) Send(ctx context.Context, address string, content string) error {
	channel, target, err := ParseAddress(address)
	if err != nil {
		return err
	}

	adapter, err := e.getAdapter(channel)
	if err != nil {
		return err
	}

	if err := adapter.Send(ctx, target, content); err != nil {
		return errors.Wrap(err, "failed to send to "+channel)
	}

	slog.Debug("Message sent", "channel", channel, "target", target, "content_length", len(content))
	return nil
}

func (e *DefaultEgress) getAdapter(name string) (adapter.OutputAdapter, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	adapter, ok := e.adapters[name]
	if !ok {
		return nil, errors.NotFound("no adapter for channel: " + name)
	}

	return adapter, nil
}

func (e *DefaultEgress) Health(ctx context.Context) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if len(e.adapters) == 0 {
		return errors.Upstream("no adapters registered")
	}

	var unhealthy []string
	for name, adapter := range e.adapters {
		if err := adapter.Health(ctx); err != nil {
			unhealthy = append(unhealthy, name)
			slog.Warn("Adapter unhealthy", "name", name, "error", err)
		}
	}

	if len(unhealthy) > 0 {
		sort.Strings(unhealthy)
		return errors.Upstream(fmt.Sprintf("%d adapter(s) unhealthy: %v", len(unhealthy), unhealthy))
	}

	return nil
}

func (e *DefaultEgress) ListAdapters() []adapter.OutputAdapter {
	e.mu.RLock()
	defer e.mu.RUnlock()

	adapters := make([]adapter.OutputAdapter, 0, len(e.adapters))
	for _, a := range e.adapters {
		adapters = append(adapters, a)
	}
	sort.Slice(adapters, func(i, j int) bool { return adapters[i].Name() < adapters[j].Name() })
	return adapters
}
