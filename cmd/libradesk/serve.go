package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/harunnryd/libradesk/internal/adapter"
	"github.com/harunnryd/libradesk/internal/config"
	"github.com/harunnryd/libradesk/internal/daemon"
	"github.com/harunnryd/libradesk/internal/daemon/components"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"daemon"},
	Short:   "Start the chat desk server",
	Long:    `Starts the HTTP API, the messaging adapters used for librarian alerts and the conversation sweeps as one long-running service.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		forceClean, _ := cmd.Flags().GetBool("force-clean-locks")

		if cfg == nil {
			return fmt.Errorf("config not loaded")
		}

		daemonMgr, err := buildDaemon(cfg)
		if err != nil {
			return err
		}
		daemonMgr.SetForceCleanup(forceClean)

		slog.Info("Libradesk starting up...", "port", cfg.Server.Port, "data_file", cfg.Librarians.DataFile)
		err = daemonMgr.Start(context.Background())
		if err != nil {
			// Cancellation via signal/context is a graceful shutdown case for CLI.
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				slog.Info("Libradesk stopped gracefully")
				return nil
			}
			return fmt.Errorf("daemon failed: %w", err)
		}

		slog.Info("Libradesk stopped gracefully")
		return nil
	},
}

// buildDaemon registers every component in start order. Init order follows
// the declared dependencies.
func buildDaemon(cfg *config.Config) (*daemon.Daemon, error) {
	daemonMgr, err := daemon.NewDaemon(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create daemon manager: %w", err)
	}

	librariansComp := components.NewLibrariansComponent(cfg)
	adaptersComp := components.NewAdaptersComponent(cfg.Adapters, librariansComp, adapter.RuntimeAdapterOptions{
		IncludeLogOutput:    true,
		RequireSlackSecrets: true,
	})
	conversationsComp := components.NewConversationsComponent(cfg, librariansComp)
	sweeperComp := components.NewSweeperComponent(cfg.Sweep, conversationsComp)
	httpComp := components.NewHTTPServerComponentWithDependencies(daemonMgr, &cfg.Server, conversationsComp, librariansComp,
		[]string{"Librarians", "Adapters", "Conversations", "Sweeper"})

	daemonMgr.AddComponent(librariansComp)
	daemonMgr.AddComponent(adaptersComp)
	daemonMgr.AddComponent(conversationsComp)
	daemonMgr.AddComponent(sweeperComp)
	daemonMgr.AddComponent(httpComp)
	return daemonMgr, nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Bool("force-clean-locks", false, "Force cleanup of stale lock files (default: warn-only)")
}
