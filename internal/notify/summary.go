package notify

import (
	"strings"

	"github.com/harunnryd/libradesk/internal/conversation"
)

// EscalationTurns is how many recent turns an escalation summary quotes.
const EscalationTurns = 5

func UserMessageSummary(text string) string {
	return "New message from user:\n\n" + text
}

// EscalationSummary quotes the last few user and bot turns of history.
func EscalationSummary(history []conversation.Message) string {
	var b strings.Builder
	b.WriteString("New librarian request!\n\nRecent conversation:\n")

	turns := make([]conversation.Message, 0, EscalationTurns)
	for _, m := range history {
		if m.IsTurn() {
			turns = append(turns, m)
		}
	}
	if len(turns) > EscalationTurns {
		turns = turns[len(turns)-EscalationTurns:]
	}

	for _, m := range turns {
		if m.Role == conversation.RoleUser {
			b.WriteString("User: ")
		} else {
			b.WriteString("Bot: ")
		}
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	return b.String()
}
