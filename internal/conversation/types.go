package conversation

import "time"

// Status is the owner of a conversation at a point in time.
type Status string

const (
	StatusBot       Status = "bot"
	StatusViewed    Status = "viewed"
	StatusHuman     Status = "human"
	StatusResponded Status = "responded"
	StatusClosed    Status = "closed"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusBot, StatusViewed, StatusHuman, StatusResponded, StatusClosed:
		return true
	}
	return false
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleLibrarian Role = "librarian"
)

// Kind tells bot replies apart from synthetic notices. Only assistant
// messages carry one.
type Kind string

const (
	KindBotReply     Kind = "bot_reply"
	KindSystemNotice Kind = "system_notice"
)

const (
	TakeoverNotice = "A librarian has joined the conversation and will help you from here."
	ClosureNotice  = "This session has been ended by the librarian. Thank you for contacting the library!"
	TimeoutNotice  = "This session has ended due to inactivity. Thank you for contacting the library!"
)

// MaxCountdownSeconds caps a countdown warning.
const MaxCountdownSeconds = 300

type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Kind      Kind      `json:"kind,omitempty"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// UserMessage builds an unsaved user turn.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// BotReply builds an unsaved assistant reply.
func BotReply(content string) Message {
	return Message{Role: RoleAssistant, Kind: KindBotReply, Content: content}
}

// Notice builds an unsaved system notice.
func Notice(content string) Message {
	return Message{Role: RoleAssistant, Kind: KindSystemNotice, Content: content}
}

// LibrarianMessage builds an unsaved librarian turn.
func LibrarianMessage(content string) Message {
	return Message{Role: RoleLibrarian, Content: content}
}

// IsTurn reports whether m belongs in bot context: user text or a bot reply.
func (m Message) IsTurn() bool {
	return m.Role == RoleUser || (m.Role == RoleAssistant && m.Kind == KindBotReply)
}

type Conversation struct {
	SessionID       string     `json:"sessionId"`
	Status          Status     `json:"status"`
	Messages        []Message  `json:"messages"`
	StartTime       time.Time  `json:"startTime"`
	LastActivity    time.Time  `json:"lastActivity"`
	ClosedAt        *time.Time `json:"closedAt,omitempty"`
	CountdownEndsAt *time.Time `json:"-"`
}

// Countdown returns the whole seconds left before auto-close, or nil when no
// warning is pending.
func (c *Conversation) Countdown(now time.Time) *int {
	if c.CountdownEndsAt == nil {
		return nil
	}
	remaining := c.CountdownEndsAt.Sub(now)
	if remaining <= 0 {
		zero := 0
		return &zero
	}
	secs := int((remaining + time.Second - 1) / time.Second)
	return &secs
}

// LastMessage returns the newest message, or nil for an empty log.
func (c *Conversation) LastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	m := c.Messages[len(c.Messages)-1]
	return &m
}

// HasLibrarianReply reports whether a librarian has written in this conversation.
func (c *Conversation) HasLibrarianReply() bool {
	for _, m := range c.Messages {
		if m.Role == RoleLibrarian {
			return true
		}
	}
	return false
}

// RecentTurns returns up to n user/bot_reply turns, oldest first.
func (c *Conversation) RecentTurns(n int) []Message {
	if n <= 0 {
		return nil
	}
	out := make([]Message, 0, n)
	for i := len(c.Messages) - 1; i >= 0 && len(out) < n; i-- {
		if c.Messages[i].IsTurn() {
			out = append(out, c.Messages[i])
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Recent returns the last n messages of any kind.
func (c *Conversation) Recent(n int) []Message {
	if n <= 0 || len(c.Messages) == 0 {
		return nil
	}
	start := len(c.Messages) - n
	if start < 0 {
		start = 0
	}
	out := make([]Message, len(c.Messages)-start)
	copy(out, c.Messages[start:])
	return out
}

func (c *Conversation) clone() *Conversation {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Messages = make([]Message, len(c.Messages))
	copy(cp.Messages, c.Messages)
	if c.ClosedAt != nil {
		t := *c.ClosedAt
		cp.ClosedAt = &t
	}
	if c.CountdownEndsAt != nil {
		t := *c.CountdownEndsAt
		cp.CountdownEndsAt = &t
	}
	return &cp
}
