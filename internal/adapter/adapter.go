package adapter

import (
	"context"
)

const EventTypeDirectMessage = "direct_message"

// EventHandler receives inbound messages from a messaging platform.
// target is the platform identifier replies should go to (chat id, user id,
// room id); together with source it forms a librarian address.
type EventHandler func(ctx context.Context, source string, eventType string, target string, content string, metadata map[string]string) error

// InputAdapter defines the interface for adapters that receive events from external platforms
type InputAdapter interface {
	// Name returns the adapter name (e.g. "slack", "telegram", "matrix").
	Name() string

	// Start begins listening for events (e.g. starts a server or long-poll).
	// Must respect context cancellation.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the adapter.
	Stop(ctx context.Context) error

	// Health checks if the adapter is healthy and connected.
	Health(ctx context.Context) error
}

// OutputAdapter defines the interface for adapters that deliver messages to librarians
type OutputAdapter interface {
	// Name returns the adapter name. It is the channel part of a librarian address.
	Name() string

	// Send delivers content to a platform-specific target (chat ID, user ID, room ID).
	Send(ctx context.Context, target string, content string) error

	// Health checks if the adapter is healthy and can send messages.
	Health(ctx context.Context) error
}
