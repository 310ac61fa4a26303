package egress

import (
	"context"
	stdErrors "errors"
	"sync"
	"testing"

	"github.com/harunnryd/libradesk/internal/adapter"
	"github.com/harunnryd/libradesk/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingAdapter struct {
	name string
	err  error

	mu   sync.Mutex
	sent []string
}

func (r *recordingAdapter) Name() string { return r.name }

func (r *recordingAdapter) Send(ctx context.Context, target string, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, target+"|"+content)
	return r.err
}

func (r *recordingAdapter) Health(ctx context.Context) error { return r.err }

func TestParseAddress(t *testing.T) {
	tests := []struct {
		in      string
		channel string
		target  string
		wantErr bool
	}{
		{in: "telegram:123456", channel: "telegram", target: "123456"},
		{in: " Slack:U01ABC ", channel: "slack", target: "U01ABC"},
		{in: "matrix:!room:example.org", channel: "matrix", target: "!room:example.org"},
		{in: "123456", wantErr: true},
		{in: "telegram:", wantErr: true},
		{in: ":123", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			channel, target, err := ParseAddress(tt.in)
			if tt.wantErr {
				assert.True(t, errors.IsCategory(err, errors.ErrInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.channel, channel)
			assert.Equal(t, tt.target, target)
			assert.Equal(t, FormatAddress(channel, target), FormatAddress(tt.channel, tt.target))
		})
	}
}

func TestSend_RoutesByChannel(t *testing.T) {
	e := NewEgress()
	tg := &recordingAdapter{name: "telegram"}
	mx := &recordingAdapter{name: "matrix"}
	require.NoError(t, e.Register(tg))
	require.NoError(t, e.Register(mx))

	require.NoError(t, e.Send(context.Background(), "telegram:42", "hello"))
	require.NoError(t, e.Send(context.Background(), "matrix:!r:example.org", "hi"))

	assert.Equal(t, []string{"42|hello"}, tg.sent)
	assert.Equal(t, []string{"!r:example.org|hi"}, mx.sent)

	err := e.Send(context.Background(), "slack:U1", "x")
	assert.True(t, errors.IsCategory(err, errors.ErrNotFound))
}

func TestSend_WrapsAdapterError(t *testing.T) {
	e := NewEgress()
	cause := stdErrors.New("chat not found")
	require.NoError(t, e.Register(&recordingAdapter{name: "telegram", err: cause}))

	err := e.Send(context.Background(), "telegram:1", "x")
	assert.ErrorIs(t, err, cause)
}

func TestRegister(t *testing.T) {
	e := NewEgress()
	require.NoError(t, e.Register(adapter.NewNullAdapter("log")))

	err := e.Register(adapter.NewNullAdapter("log"))
	assert.True(t, errors.IsCategory(err, errors.ErrConflict))
	assert.Error(t, e.Register(nil))

	require.NoError(t, e.Unregister("log"))
	assert.True(t, errors.IsCategory(e.Unregister("log"), errors.ErrNotFound))
}

func TestHealth(t *testing.T) {
	e := NewEgress()
	assert.Error(t, e.Health(context.Background()))

	require.NoError(t, e.Register(adapter.NewNullAdapter("log")))
	assert.NoError(t, e.Health(context.Background()))

	require.NoError(t, e.Register(&recordingAdapter{name: "slack", err: stdErrors.New("down")}))
	assert.True(t, errors.IsCategory(e.Health(context.Background()), errors.ErrUpstream))
	assert.Len(t, e.ListAdapters(), 2)
}
