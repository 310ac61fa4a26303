package formatter

import (
	"strings"

	"gopkg.in/yaml.v3"
)

type YAMLFormatter struct{}

func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

func (f *YAMLFormatter) FormatLibrarians(rows []LibrarianRow) (string, error) {
	return marshalYAML(rows)
}

func (f *YAMLFormatter) FormatConversations(rows []ConversationRow) (string, error) {
	return marshalYAML(rows)
}

func marshalYAML[T any](rows []T) (string, error) {
	if rows == nil {
		rows = []T{}
	}
	data, err := yaml.Marshal(rows)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
