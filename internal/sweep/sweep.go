package sweep

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/harunnryd/libradesk/internal/config"
	"github.com/harunnryd/libradesk/internal/conversation"
	deskErrors "github.com/harunnryd/libradesk/internal/errors"

	"github.com/robfig/cron/v3"
)

// Policy holds the parsed sweep settings.
type Policy struct {
	ClosedSchedule    string
	ClosedRetention   time.Duration
	AbandonedSchedule string
	AbandonedAfter    time.Duration
}

func PolicyFrom(cfg config.SweepConfig) (Policy, error) {
	p := Policy{
		ClosedSchedule:    cfg.ClosedSchedule,
		AbandonedSchedule: cfg.AbandonedSchedule,
	}
	if p.ClosedSchedule == "" {
		p.ClosedSchedule = config.DefaultSweepClosedSchedule
	}
	if p.AbandonedSchedule == "" {
		p.AbandonedSchedule = config.DefaultSweepAbandonedSchedule
	}

	var err error
	if p.ClosedRetention, err = config.DurationOrDefault(cfg.ClosedRetention, config.DefaultSweepClosedRetention); err != nil {
		return p, fmt.Errorf("parse sweep closed retention: %w", err)
	}
	if p.AbandonedAfter, err = config.DurationOrDefault(cfg.AbandonedAfter, config.DefaultSweepAbandonedAfter); err != nil {
		return p, fmt.Errorf("parse sweep abandoned after: %w", err)
	}

	for _, spec := range []string{p.ClosedSchedule, p.AbandonedSchedule} {
		if _, err := cron.ParseStandard(spec); err != nil {
			return p, deskErrors.InvalidInput(fmt.Sprintf("invalid sweep schedule %q: %v", spec, err))
		}
	}
	return p, nil
}

// Sweeper removes finished and abandoned conversations on two independent
// cron schedules. Conversations a librarian is involved in are never swept.
type Sweeper struct {
	store  conversation.Store
	policy Policy
	now    func() time.Time

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

func NewSweeper(store conversation.Store, policy Policy) *Sweeper {
	return &Sweeper{store: store, policy: policy, now: time.Now}
}

// SweepClosed evicts closed conversations older than the retention window,
// measured from ClosedAt or from StartTime when ClosedAt is unknown.
func (s *Sweeper) SweepClosed(now time.Time) []string {
	cutoff := now.Add(-s.policy.ClosedRetention)
	ids := s.store.Evict(func(c *conversation.Conversation) bool {
		if c.Status != conversation.StatusClosed {
			return false
		}
		ref := c.StartTime
		if c.ClosedAt != nil {
			ref = *c.ClosedAt
		}
		return ref.Before(cutoff)
	})
	if len(ids) > 0 {
		slog.Info("Swept closed conversations", "component", "sweeper", "count", len(ids))
	}
	return ids
}

// SweepAbandoned evicts bot conversations idle for longer than AbandonedAfter.
func (s *Sweeper) SweepAbandoned(now time.Time) []string {
	cutoff := now.Add(-s.policy.AbandonedAfter)
	ids := s.store.Evict(func(c *conversation.Conversation) bool {
		return c.Status == conversation.StatusBot && c.LastActivity.Before(cutoff)
	})
	if len(ids) > 0 {
		slog.Info("Swept abandoned conversations", "component", "sweeper", "count", len(ids))
	}
	return ids
}

func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	log := cronLogger{}
	c := cron.New(
		cron.WithLogger(log),
		cron.WithChain(cron.Recover(log), cron.SkipIfStillRunning(log)),
	)
	if _, err := c.AddFunc(s.policy.ClosedSchedule, func() { s.SweepClosed(s.now()) }); err != nil {
		return deskErrors.InvalidInput(fmt.Sprintf("closed sweep schedule: %v", err))
	}
	if _, err := c.AddFunc(s.policy.AbandonedSchedule, func() { s.SweepAbandoned(s.now()) }); err != nil {
		return deskErrors.InvalidInput(fmt.Sprintf("abandoned sweep schedule: %v", err))
	}
	c.Start()

	s.cron = c
	s.running = true
	slog.Info("Sweeper started", "closed", s.policy.ClosedSchedule, "abandoned", s.policy.AbandonedSchedule)
	return nil
}

// Stop halts both schedules and waits for a sweep in progress.
func (s *Sweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	c := s.cron
	s.mu.Unlock()

	select {
	case <-c.Stop().Done():
		slog.Info("Sweeper stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.Warn("Sweeper shutdown timeout, force stopping")
		return ctx.Err()
	}
}

func (s *Sweeper) Health(ctx context.Context) error {
	if !s.IsRunning() {
		return deskErrors.Internal("sweeper not running")
	}
	return nil
}

func (s *Sweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRuns reports when each schedule fires next.
func (s *Sweeper) NextRuns() []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron == nil {
		return nil
	}
	entries := s.cron.Entries()
	out := make([]time.Time, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Next)
	}
	return out
}

// cronLogger routes robfig/cron's logging into slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug(msg, append([]interface{}{"component", "cron"}, keysAndValues...)...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error(msg, append([]interface{}{"component", "cron", "error", err}, keysAndValues...)...)
}
