package adapter

import (
	"context"
	"log/slog"
)

// NullAdapter drops messages after logging them. It backs the "log" channel
// used for local runs without a messaging platform.
type NullAdapter struct {
	name string
}

func NewNullAdapter(name string) *NullAdapter {
	if name == "" {
		name = "null"
	}
	return &NullAdapter{name: name}
}

func (a *NullAdapter) Name() string {
	return a.name
}

func (a *NullAdapter) Send(ctx context.Context, target string, content string) error {
	slog.Info("Message dropped by null adapter", "adapter", a.name, "target", target, "content_length", len(content))
	return nil
}

func (a *NullAdapter) Health(ctx context.Context) error {
	return nil
}
