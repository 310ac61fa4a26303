package conversation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	deskErrors "github.com/harunnryd/libradesk/internal/errors"
)

const (
	MaxSessionIDLength      = 128
	DefaultMaxMessageLength = 2000
)

// NormalizeSessionID trims id and rejects empty or oversized values.
func NormalizeSessionID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", deskErrors.InvalidInput("sessionId is required")
	}
	if utf8.RuneCountInString(id) > MaxSessionIDLength {
		return "", deskErrors.InvalidInput(fmt.Sprintf("sessionId longer than %d characters", MaxSessionIDLength))
	}
	return id, nil
}

// NormalizeText trims a chat message and enforces maxRunes. A non-positive
// maxRunes uses DefaultMaxMessageLength.
func NormalizeText(text string, maxRunes int) (string, error) {
	if maxRunes <= 0 {
		maxRunes = DefaultMaxMessageLength
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", deskErrors.InvalidInput("message is empty")
	}
	if utf8.RuneCountInString(text) > maxRunes {
		return "", deskErrors.InvalidInput(fmt.Sprintf("message longer than %d characters", maxRunes))
	}
	return text, nil
}
