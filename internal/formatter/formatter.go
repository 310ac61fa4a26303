package formatter

import (
	"fmt"
	"strings"
	"time"
)

type OutputFormat string

const (
	OutputFormatTable OutputFormat = "table"
	OutputFormatJSON  OutputFormat = "json"
	OutputFormatYAML  OutputFormat = "yaml"
)

// LibrarianRow is one allow-listed address split into its channel and target.
type LibrarianRow struct {
	Address string `json:"address" yaml:"address"`
	Channel string `json:"channel" yaml:"channel"`
	Target  string `json:"target" yaml:"target"`
}

// ConversationRow is the dashboard view of one conversation.
type ConversationRow struct {
	SessionID    string    `json:"sessionId" yaml:"session_id"`
	Status       string    `json:"status" yaml:"status"`
	MessageCount int       `json:"messageCount" yaml:"message_count"`
	StartTime    time.Time `json:"startTime" yaml:"start_time"`
	LastMessage  string    `json:"lastMessage,omitempty" yaml:"last_message,omitempty"`
}

type ListFormatter interface {
	FormatLibrarians([]LibrarianRow) (string, error)
	FormatConversations([]ConversationRow) (string, error)
}

type FormatterFactory struct{}

func NewFormatterFactory() *FormatterFactory {
	return &FormatterFactory{}
}

func (f *FormatterFactory) Create(format OutputFormat) (ListFormatter, error) {
	switch format {
	case OutputFormatTable:
		return NewTableFormatter(), nil
	case OutputFormatJSON:
		return NewJSONFormatter(), nil
	case OutputFormatYAML:
		return NewYAMLFormatter(), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s (supported: table, json, yaml)", format)
	}
}

func ParseOutputFormat(s string) (OutputFormat, error) {
	format := OutputFormat(strings.ToLower(strings.TrimSpace(s)))
	switch format {
	case OutputFormatTable, OutputFormatJSON, OutputFormatYAML:
		return format, nil
	default:
		return "", fmt.Errorf("invalid output format: %s (supported: table, json, yaml)", s)
	}
}
