package main

import (
	"fmt"
	"io"

	"github.com/harunnryd/libradesk/internal/config"
	"github.com/harunnryd/libradesk/internal/egress"
	"github.com/harunnryd/libradesk/internal/formatter"
	"github.com/harunnryd/libradesk/internal/librarian"
	"github.com/harunnryd/libradesk/internal/store"

	"github.com/spf13/cobra"
)

var librariansCmd = &cobra.Command{
	Use:   "librarians",
	Short: "Manage the librarian allow-list",
	Long:  `List, add and remove the messaging addresses that receive escalation alerts. Changes are picked up by a running server without a restart.`,
}

var librariansLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List authorized librarians",
	RunE: func(cmd *cobra.Command, args []string) error {
		outputFormat, _ := cmd.Flags().GetString("output")
		format, err := formatter.ParseOutputFormat(outputFormat)
		if err != nil {
			return err
		}
		loadedCfg, err := loadConfigForCommand(cmd)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return listLibrarians(cmd.OutOrStdout(), loadedCfg, format)
	},
}

var librariansAddCmd = &cobra.Command{
	Use:   "add <channel:target>",
	Short: "Authorize a librarian address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		loadedCfg, err := loadConfigForCommand(cmd)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		registry, err := openRegistry(loadedCfg)
		if err != nil {
			return err
		}
		if err := registry.Add(args[0]); err != nil {
			return fmt.Errorf("failed to add librarian: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Librarian '%s' authorized.\n", args[0])
		return nil
	},
}

var librariansRemoveCmd = &cobra.Command{
	Use:     "remove <channel:target>",
	Aliases: []string{"rm"},
	Short:   "Revoke a librarian address",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		loadedCfg, err := loadConfigForCommand(cmd)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		registry, err := openRegistry(loadedCfg)
		if err != nil {
			return err
		}
		if err := registry.Remove(args[0]); err != nil {
			return fmt.Errorf("failed to remove librarian: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Librarian '%s' removed.\n", args[0])
		return nil
	},
}

func openRegistry(c *config.Config) (*librarian.Registry, error) {
	lockCfg, err := store.FileLockConfigFrom(c.Store)
	if err != nil {
		return nil, fmt.Errorf("parse lock config: %w", err)
	}
	registry, err := librarian.OpenRegistry(c.Librarians.DataFile, lockCfg, c.Librarians.Seed)
	if err != nil {
		return nil, fmt.Errorf("failed to open librarian data %s: %w", c.Librarians.DataFile, err)
	}
	return registry, nil
}

func listLibrarians(out io.Writer, c *config.Config, format formatter.OutputFormat) error {
	registry, err := openRegistry(c)
	if err != nil {
		return err
	}

	addresses := registry.Authorized()
	rows := make([]formatter.LibrarianRow, 0, len(addresses))
	for _, addr := range addresses {
		channel, target, err := egress.ParseAddress(addr)
		if err != nil {
			continue
		}
		rows = append(rows, formatter.LibrarianRow{Address: addr, Channel: channel, Target: target})
	}

	f, err := formatter.NewFormatterFactory().Create(format)
	if err != nil {
		return fmt.Errorf("invalid output format: %w", err)
	}
	output, err := f.FormatLibrarians(rows)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}

	fmt.Fprintln(out, output)
	return nil
}

func init() {
	librariansLsCmd.Flags().StringP("output", "o", "table", "Output format (table, json, yaml)")
	librariansCmd.AddCommand(librariansLsCmd)
	librariansCmd.AddCommand(librariansAddCmd)
	librariansCmd.AddCommand(librariansRemoveCmd)
	rootCmd.AddCommand(librariansCmd)
}
