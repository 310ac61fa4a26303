package formatter

import (
	"strconv"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
)

type TableFormatter struct {
	headerStyle  lipgloss.Style
	oddRowStyle  lipgloss.Style
	evenRowStyle lipgloss.Style
	borderStyle  lipgloss.Style
}

func NewTableFormatter() *TableFormatter {
	purple := lipgloss.Color("99")
	gray := lipgloss.Color("245")
	lightGray := lipgloss.Color("241")

	return &TableFormatter{
		headerStyle: lipgloss.NewStyle().
			Foreground(purple).
			Bold(true).
			Align(lipgloss.Center).
			Padding(0, 1),
		oddRowStyle: lipgloss.NewStyle().
			Foreground(gray).
			Padding(0, 1),
		evenRowStyle: lipgloss.NewStyle().
			Foreground(lightGray).
			Padding(0, 1),
		borderStyle: lipgloss.NewStyle().
			Foreground(purple),
	}
}

func (f *TableFormatter) newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(f.borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return f.headerStyle
			case row%2 == 0:
				return f.evenRowStyle
			default:
				return f.oddRowStyle
			}
		}).
		Headers(headers...)
}

func (f *TableFormatter) FormatLibrarians(rows []LibrarianRow) (string, error) {
	if len(rows) == 0 {
		return "No librarians authorized", nil
	}

	t := f.newTable("Channel", "Target", "Address")
	for _, r := range rows {
		t.Row(r.Channel, truncateString(r.Target, 30), truncateString(r.Address, 40))
	}
	return t.String(), nil
}

func (f *TableFormatter) FormatConversations(rows []ConversationRow) (string, error) {
	if len(rows) == 0 {
		return "No conversations", nil
	}

	t := f.newTable("Session", "Status", "Messages", "Started", "Last Message")
	for _, r := range rows {
		t.Row(
			truncateString(r.SessionID, 24),
			r.Status,
			strconv.Itoa(r.MessageCount),
			r.StartTime.Local().Format("2006-01-02 15:04"),
			truncateString(r.LastMessage, 40),
		)
	}
	return t.String(), nil
}

func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
