package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel(" WARN "))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestFrom_AddsContextIDs(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	SetupWriter(&buf, "info")

	ctx := WithSessionID(WithRequestID(context.Background(), "req-1"), "s1")
	From(ctx).Info("routed")

	out := buf.String()
	assert.Contains(t, out, "routed")
	assert.Contains(t, out, "req-1")
	assert.Contains(t, out, "s1")
}

func TestContextGetters_Empty(t *testing.T) {
	assert.Empty(t, GetRequestID(context.Background()))
	assert.Empty(t, GetSessionID(context.Background()))
}
