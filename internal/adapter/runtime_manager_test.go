package adapter

import (
	"context"
	"testing"

	"github.com/harunnryd/libradesk/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRuntimeManager_LogOnly(t *testing.T) {
	m, err := NewRuntimeManager(config.AdaptersConfig{}, nil, RuntimeAdapterOptions{IncludeLogOutput: true})
	require.NoError(t, err)

	outputs := m.OutputAdapters()
	require.Len(t, outputs, 1)
	assert.Equal(t, "log", outputs[0].Name())
	assert.NoError(t, m.Health(context.Background()))
}

func TestNewRuntimeManager_RequiresSecrets(t *testing.T) {
	t.Setenv("SLACK_BOT_TOKEN", "")
	t.Setenv("SLACK_SIGNING_SECRET", "")

	_, err := NewRuntimeManager(config.AdaptersConfig{Slack: config.SlackConfig{Enabled: true}}, nil, RuntimeAdapterOptions{RequireSlackSecrets: true})
	assert.Error(t, err)

	_, err = NewRuntimeManager(config.AdaptersConfig{Telegram: config.TelegramConfig{Enabled: true}}, nil, RuntimeAdapterOptions{})
	assert.Error(t, err)

	_, err = NewRuntimeManager(config.AdaptersConfig{Matrix: config.MatrixConfig{Enabled: true}}, nil, RuntimeAdapterOptions{})
	assert.Error(t, err)
}

func TestNewRuntimeManager_Matrix(t *testing.T) {
	m, err := NewRuntimeManager(config.AdaptersConfig{Matrix: config.MatrixConfig{
		Enabled:     true,
		Homeserver:  "https://matrix.example.org",
		UserID:      "@desk:example.org",
		AccessToken: "token",
	}}, nil, RuntimeAdapterOptions{})
	require.NoError(t, err)

	names := []string{}
	for _, out := range m.OutputAdapters() {
		names = append(names, out.Name())
	}
	assert.Equal(t, []string{"matrix"}, names)
}

func TestDedupeOutputAdapters_LastWins(t *testing.T) {
	first := NewNullAdapter("log")
	second := NewNullAdapter("log")
	out := dedupeOutputAdapters([]OutputAdapter{first, nil, second, NewNullAdapter("other")})
	require.Len(t, out, 2)
	assert.Same(t, second, out[0])
}
