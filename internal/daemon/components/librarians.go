package components

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/harunnryd/libradesk/internal/config"
	"github.com/harunnryd/libradesk/internal/daemon"
	"github.com/harunnryd/libradesk/internal/egress"
	"github.com/harunnryd/libradesk/internal/librarian"
	"github.com/harunnryd/libradesk/internal/store"
)

// LibrariansComponent owns the on-disk allow-list, the access workflow and the
// egress that every outbound librarian message goes through.
type LibrariansComponent struct {
	cfg         *config.Config
	egress      *egress.DefaultEgress
	registry    *librarian.Registry
	access      *librarian.Access
	initialized bool
	started     bool
	mu          sync.RWMutex
}

func NewLibrariansComponent(cfg *config.Config) *LibrariansComponent {
	return &LibrariansComponent{
		cfg:    cfg,
		egress: egress.NewEgress(),
	}
}

func (l *LibrariansComponent) Name() string {
	return "Librarians"
}

func (l *LibrariansComponent) Dependencies() []string {
	return []string{}
}

func (l *LibrariansComponent) Init(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	select {
	case <-ctx.Done():
		return fmt.Errorf("Librarians init cancelled: %w", ctx.Err())
	default:
	}

	lockCfg, err := store.FileLockConfigFrom(l.cfg.Store)
	if err != nil {
		return fmt.Errorf("parse librarian lock config: %w", err)
	}

	registry, err := librarian.OpenRegistry(l.cfg.Librarians.DataFile, lockCfg, l.cfg.Librarians.Seed)
	if err != nil {
		return fmt.Errorf("failed to open librarian registry: %w", err)
	}

	l.registry = registry
	l.access = librarian.NewAccess(registry, l.egress, l.cfg.Librarians.RequestKeyword, l.cfg.Notifications.DashboardURL)
	l.initialized = true
	slog.Info("Librarians initialized", "component", l.Name(), "data_file", registry.Path(), "authorized", len(registry.Authorized()))
	return nil
}

func (l *LibrariansComponent) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.initialized {
		return fmt.Errorf("Librarians not initialized")
	}
	l.started = true
	return nil
}

func (l *LibrariansComponent) Stop(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.started = false
	return nil
}

func (l *LibrariansComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if !l.initialized {
		return &daemon.ComponentHealth{Name: l.Name(), Healthy: false, Error: fmt.Errorf("not initialized")}, nil
	}
	if !l.started {
		return &daemon.ComponentHealth{Name: l.Name(), Healthy: false, Error: fmt.Errorf("not started")}, nil
	}
	if _, err := os.Stat(l.registry.Path()); err != nil {
		return daemon.Unhealthy(l.Name(), fmt.Errorf("registry file: %w", err)), nil
	}
	return daemon.Healthy(l.Name(), map[string]any{
		"authorized":       len(l.registry.Authorized()),
		"pending_requests": len(l.access.Pending()),
	}), nil
}

func (l *LibrariansComponent) Egress() *egress.DefaultEgress {
	return l.egress
}

func (l *LibrariansComponent) Registry() *librarian.Registry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.registry
}

func (l *LibrariansComponent) Access() *librarian.Access {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.access
}
