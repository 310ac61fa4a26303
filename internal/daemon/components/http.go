package components

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/harunnryd/libradesk/internal/api"
	"github.com/harunnryd/libradesk/internal/config"
	"github.com/harunnryd/libradesk/internal/daemon"
	"github.com/harunnryd/libradesk/internal/librarian"
)

var defaultHTTPDependencies = []string{"Librarians", "Conversations"}

type HTTPServerComponent struct {
	daemon        *daemon.Daemon
	cfg           *config.ServerConfig
	conversations *ConversationsComponent
	librarians    *LibrariansComponent
	dependencies  []string
	server        *http.Server
	shutdownTTL   time.Duration
	initialized   bool
	started       bool
	mu            sync.RWMutex
	startTime     time.Time
}

func NewHTTPServerComponent(d *daemon.Daemon, cfg *config.ServerConfig, conversations *ConversationsComponent, librarians *LibrariansComponent) *HTTPServerComponent {
	return NewHTTPServerComponentWithDependencies(d, cfg, conversations, librarians, defaultHTTPDependencies)
}

// NewHTTPServerComponentWithDependencies lets callers order the listener after
// extra components, such as the adapters, so the API only opens once they are up.
func NewHTTPServerComponentWithDependencies(d *daemon.Daemon, cfg *config.ServerConfig, conversations *ConversationsComponent, librarians *LibrariansComponent, deps []string) *HTTPServerComponent {
	copied := make([]string, len(deps))
	copy(copied, deps)
	return &HTTPServerComponent{
		daemon:        d,
		cfg:           cfg,
		conversations: conversations,
		librarians:    librarians,
		dependencies:  copied,
	}
}

func (h *HTTPServerComponent) Name() string {
	return "HTTPServer"
}

func (h *HTTPServerComponent) Dependencies() []string {
	out := make([]string, len(h.dependencies))
	copy(out, h.dependencies)
	return out
}

func (h *HTTPServerComponent) Init(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.conversations == nil || h.conversations.Router() == nil {
		return fmt.Errorf("conversations component not initialized")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.handleHealth)

	api.NewServer(api.Deps{
		Router:   h.conversations.Router(),
		Desk:     h.conversations.Desk(),
		Feedback: h.conversations.Feedback(),
		Canned:   h.conversations.Canned(),
		Access:   h.librarianAccess(),
	}).Register(mux)

	readTimeout, err := config.DurationOrDefault(h.cfg.ReadTimeout, config.DefaultServerReadTimeout)
	if err != nil {
		return fmt.Errorf("parse server read timeout: %w", err)
	}
	writeTimeout, err := config.DurationOrDefault(h.cfg.WriteTimeout, config.DefaultServerWriteTimeout)
	if err != nil {
		return fmt.Errorf("parse server write timeout: %w", err)
	}
	idleTimeout, err := config.DurationOrDefault(h.cfg.IdleTimeout, config.DefaultServerIdleTimeout)
	if err != nil {
		return fmt.Errorf("parse server idle timeout: %w", err)
	}
	shutdownTimeout, err := config.DurationOrDefault(h.cfg.ShutdownTimeout, config.DefaultServerShutdownTimeout)
	if err != nil {
		return fmt.Errorf("parse server shutdown timeout: %w", err)
	}

	h.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", h.cfg.Port),
		Handler:      api.WithRequestLogging(mux),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
	h.shutdownTTL = shutdownTimeout

	h.initialized = true
	slog.Info("HTTPServer initialized", "component", h.Name(), "port", h.cfg.Port)
	return nil
}

func (h *HTTPServerComponent) librarianAccess() *librarian.Access {
	if h.librarians == nil {
		return nil
	}
	return h.librarians.Access()
}

func (h *HTTPServerComponent) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.initialized {
		return fmt.Errorf("HTTPServer not initialized")
	}

	go func() {
		slog.Info("HTTP server listening", "component", h.Name(), "addr", h.server.Addr)
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server failed", "component", h.Name(), "error", err)
		}
	}()

	h.started = true
	h.startTime = time.Now()
	slog.Info("HTTPServer started", "component", h.Name())
	return nil
}

func (h *HTTPServerComponent) Stop(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.started {
		slog.Info("HTTPServer not started, skipping stop", "component", h.Name())
		return nil
	}

	slog.Info("Stopping HTTPServer...", "component", h.Name())
	shutdownCtx, cancel := context.WithTimeout(ctx, h.shutdownTTL)
	defer cancel()

	if err := h.server.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTPServer shutdown error", "component", h.Name(), "error", err)
		return err
	}

	h.started = false
	slog.Info("HTTPServer stopped", "component", h.Name())
	return nil
}

func (h *HTTPServerComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if !h.initialized {
		return &daemon.ComponentHealth{
			Name:    h.Name(),
			Healthy: false,
			Error:   fmt.Errorf("not initialized"),
		}, nil
	}

	if !h.started {
		return &daemon.ComponentHealth{
			Name:    h.Name(),
			Healthy: false,
			Error:   fmt.Errorf("not started"),
		}, nil
	}

	return &daemon.ComponentHealth{
		Name:    h.Name(),
		Healthy: true,
		Error:   nil,
	}, nil
}

type healthResponse struct {
	Status          string                             `json:"status"`
	Version         string                             `json:"version"`
	Daemon          daemon.HealthStatus                `json:"daemon,omitempty"`
	Uptime          string                             `json:"uptime,omitempty"`
	Components      map[string]*daemon.ComponentHealth `json:"components"`
	RecoveredPanics int64                              `json:"recoveredPanics"`
	Conversations   int                                `json:"conversations"`
}

func (h *HTTPServerComponent) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:     "ok",
		Version:    "1.0.0",
		Components: map[string]*daemon.ComponentHealth{},
	}

	if h.daemon != nil {
		report := h.daemon.Snapshot()
		resp.Daemon = report.Status
		resp.Uptime = report.Uptime
		resp.Components = report.Components
		resp.RecoveredPanics = report.RecoveredPanics
		if !report.Healthy() {
			resp.Status = "degraded"
		}
	}
	if h.conversations != nil {
		if s := h.conversations.Store(); s != nil {
			resp.Conversations = s.Len()
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}
