package formatter

import (
	"encoding/json"
)

type JSONFormatter struct{}

func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

func (f *JSONFormatter) FormatLibrarians(rows []LibrarianRow) (string, error) {
	return marshalJSON(rows)
}

func (f *JSONFormatter) FormatConversations(rows []ConversationRow) (string, error) {
	return marshalJSON(rows)
}

func marshalJSON[T any](rows []T) (string, error) {
	if rows == nil {
		rows = []T{}
	}
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
