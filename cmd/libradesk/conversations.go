package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/harunnryd/libradesk/internal/formatter"
	"github.com/harunnryd/libradesk/internal/handoff"

	"github.com/spf13/cobra"
)

var conversationsCmd = &cobra.Command{
	Use:   "conversations",
	Short: "Inspect live conversations",
	Long:  `Query a running server for the conversations a librarian would see on the dashboard.`,
}

var conversationsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List conversations on a running server",
	RunE: func(cmd *cobra.Command, args []string) error {
		outputFormat, _ := cmd.Flags().GetString("output")
		format, err := formatter.ParseOutputFormat(outputFormat)
		if err != nil {
			return err
		}
		server, _ := cmd.Flags().GetString("server")
		if server == "" {
			loadedCfg, err := loadConfigForCommand(cmd)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			server = fmt.Sprintf("http://127.0.0.1:%d", loadedCfg.Server.Port)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		dashboard, err := fetchDashboard(ctx, http.DefaultClient, server)
		if err != nil {
			return err
		}
		return printConversations(cmd.OutOrStdout(), dashboard, format)
	},
}

func fetchDashboard(ctx context.Context, client *http.Client, server string) (*handoff.Dashboard, error) {
	url := strings.TrimRight(server, "/") + "/api/librarian/notifications"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach server %s: %w", server, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server %s returned %s", server, resp.Status)
	}

	var dashboard handoff.Dashboard
	if err := json.NewDecoder(resp.Body).Decode(&dashboard); err != nil {
		return nil, fmt.Errorf("decode dashboard: %w", err)
	}
	return &dashboard, nil
}

func printConversations(out io.Writer, dashboard *handoff.Dashboard, format formatter.OutputFormat) error {
	rows := make([]formatter.ConversationRow, 0, len(dashboard.ActiveConversations))
	for _, c := range dashboard.ActiveConversations {
		row := formatter.ConversationRow{
			SessionID:    c.SessionID,
			Status:       string(c.Status),
			MessageCount: c.MessageCount,
			StartTime:    c.StartTime,
		}
		if c.LastMessage != nil {
			row.LastMessage = c.LastMessage.Content
		}
		rows = append(rows, row)
	}

	f, err := formatter.NewFormatterFactory().Create(format)
	if err != nil {
		return fmt.Errorf("invalid output format: %w", err)
	}
	output, err := f.FormatConversations(rows)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}

	fmt.Fprintln(out, output)
	if format == formatter.OutputFormatTable {
		fmt.Fprintf(out, "\nRecent alerts: %d\n", len(dashboard.Notifications))
	}
	return nil
}

func init() {
	conversationsLsCmd.Flags().StringP("output", "o", "table", "Output format (table, json, yaml)")
	conversationsLsCmd.Flags().String("server", "", "Server base URL (default is http://127.0.0.1:<server.port>)")
	conversationsCmd.AddCommand(conversationsLsCmd)
	rootCmd.AddCommand(conversationsCmd)
}
