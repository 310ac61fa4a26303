package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/harunnryd/libradesk/internal/adapter"
	"github.com/harunnryd/libradesk/internal/config"
	"github.com/harunnryd/libradesk/internal/daemon"
)

// AdaptersComponent runs the messaging channels. Inbound events feed the
// librarian access workflow; outputs are registered into the shared egress.
type AdaptersComponent struct {
	cfg         config.AdaptersConfig
	opts        adapter.RuntimeAdapterOptions
	librarians  *LibrariansComponent
	manager     *adapter.RuntimeManager
	initialized bool
	started     bool
}

func NewAdaptersComponent(cfg config.AdaptersConfig, librarians *LibrariansComponent, opts adapter.RuntimeAdapterOptions) *AdaptersComponent {
	return &AdaptersComponent{cfg: cfg, librarians: librarians, opts: opts}
}

func (a *AdaptersComponent) Name() string {
	return "Adapters"
}

func (a *AdaptersComponent) Dependencies() []string {
	return []string{"Librarians"}
}

func (a *AdaptersComponent) Init(ctx context.Context) error {
	if a.librarians == nil {
		return fmt.Errorf("librarians component not provided")
	}
	access := a.librarians.Access()
	if access == nil {
		return fmt.Errorf("librarian access not initialized")
	}

	manager, err := adapter.NewRuntimeManager(a.cfg, access.HandleEvent, a.opts)
	if err != nil {
		return fmt.Errorf("failed to create adapter manager: %w", err)
	}

	eg := a.librarians.Egress()
	for _, out := range manager.OutputAdapters() {
		if err := eg.Register(out); err != nil {
			return fmt.Errorf("failed to register egress adapter %s: %w", out.Name(), err)
		}
	}

	a.manager = manager
	a.initialized = true
	slog.Info("Adapters initialized", "component", a.Name(), "outputs", len(eg.ListAdapters()))
	return nil
}

func (a *AdaptersComponent) Start(ctx context.Context) error {
	if !a.initialized {
		return fmt.Errorf("adapters component not initialized")
	}
	a.manager.Start(ctx)
	a.started = true
	slog.Info("Adapters started", "component", a.Name())
	return nil
}

func (a *AdaptersComponent) Stop(ctx context.Context) error {
	if !a.started {
		return nil
	}
	err := a.manager.Stop(ctx)
	a.started = false
	if err != nil {
		return err
	}
	slog.Info("Adapters stopped", "component", a.Name())
	return nil
}

func (a *AdaptersComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	if !a.initialized {
		return &daemon.ComponentHealth{Name: a.Name(), Healthy: false, Error: fmt.Errorf("not initialized")}, nil
	}
	if !a.started {
		return &daemon.ComponentHealth{Name: a.Name(), Healthy: false, Error: fmt.Errorf("not started")}, nil
	}
	if err := a.manager.Health(ctx); err != nil {
		return daemon.Unhealthy(a.Name(), err), nil
	}
	return daemon.Healthy(a.Name(), map[string]any{"channels": len(a.manager.OutputAdapters())}), nil
}
