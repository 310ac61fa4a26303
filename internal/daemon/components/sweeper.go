package components

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/harunnryd/libradesk/internal/config"
	"github.com/harunnryd/libradesk/internal/daemon"
	"github.com/harunnryd/libradesk/internal/sweep"
)

type SweeperComponent struct {
	sweeper       *sweep.Sweeper
	cfg           config.SweepConfig
	conversations *ConversationsComponent
}

func NewSweeperComponent(cfg config.SweepConfig, conversations *ConversationsComponent) *SweeperComponent {
	return &SweeperComponent{
		cfg:           cfg,
		conversations: conversations,
	}
}

func (s *SweeperComponent) Name() string {
	return "Sweeper"
}

func (s *SweeperComponent) Dependencies() []string {
	return []string{"Conversations"}
}

func (s *SweeperComponent) Init(ctx context.Context) error {
	if s.conversations == nil {
		return fmt.Errorf("conversations component not provided")
	}

	convStore := s.conversations.Store()
	if convStore == nil {
		return fmt.Errorf("conversation store not initialized")
	}

	policy, err := sweep.PolicyFrom(s.cfg)
	if err != nil {
		return fmt.Errorf("failed to parse sweep policy: %w", err)
	}
	s.sweeper = sweep.NewSweeper(convStore, policy)

	slog.Info("Sweeper initialized", "component", s.Name(),
		"closed_retention", policy.ClosedRetention, "abandoned_after", policy.AbandonedAfter)
	return nil
}

func (s *SweeperComponent) Start(ctx context.Context) error {
	if s.sweeper == nil {
		return fmt.Errorf("sweeper not initialized")
	}

	if err := s.sweeper.Start(ctx); err != nil {
		return fmt.Errorf("failed to start sweeper: %w", err)
	}

	slog.Info("Sweeper started", "component", s.Name(), "next_runs", s.sweeper.NextRuns())
	return nil
}

func (s *SweeperComponent) Stop(ctx context.Context) error {
	if s.sweeper == nil {
		slog.Info("Sweeper not initialized, skipping stop", "component", s.Name())
		return nil
	}

	if err := s.sweeper.Stop(ctx); err != nil {
		return fmt.Errorf("failed to stop sweeper: %w", err)
	}

	slog.Info("Sweeper stopped", "component", s.Name())
	return nil
}

func (s *SweeperComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	if s.sweeper == nil {
		return &daemon.ComponentHealth{
			Name:    s.Name(),
			Healthy: false,
			Error:   fmt.Errorf("not initialized"),
		}, nil
	}

	if err := s.sweeper.Health(ctx); err != nil {
		return &daemon.ComponentHealth{
			Name:    s.Name(),
			Healthy: false,
			Error:   err,
		}, nil
	}

	details := make(map[string]any)
	var soonest time.Time
	for _, next := range s.sweeper.NextRuns() {
		if soonest.IsZero() || next.Before(soonest) {
			soonest = next
		}
	}
	if !soonest.IsZero() {
		details["next_sweep"] = soonest.Format(time.RFC3339)
	}
	return &daemon.ComponentHealth{
		Name:    s.Name(),
		Healthy: true,
		Details: details,
	}, nil
}

func (s *SweeperComponent) GetSweeper() *sweep.Sweeper {
	return s.sweeper
}
