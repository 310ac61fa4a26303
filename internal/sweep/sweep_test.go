package sweep

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/harunnryd/libradesk/internal/config"
	"github.com/harunnryd/libradesk/internal/conversation"
	deskErrors "github.com/harunnryd/libradesk/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testPolicy(t *testing.T) Policy {
	t.Helper()
	p, err := PolicyFrom(config.SweepConfig{})
	require.NoError(t, err)
	return p
}

func TestPolicyFrom(t *testing.T) {
	p := testPolicy(t)
	assert.Equal(t, "@every 5m", p.ClosedSchedule)
	assert.Equal(t, time.Hour, p.ClosedRetention)
	assert.Equal(t, "@every 30m", p.AbandonedSchedule)
	assert.Equal(t, 24*time.Hour, p.AbandonedAfter)

	_, err := PolicyFrom(config.SweepConfig{ClosedSchedule: "every now and then"})
	assert.True(t, deskErrors.IsCategory(err, deskErrors.ErrInvalidInput))

	_, err = PolicyFrom(config.SweepConfig{AbandonedAfter: "a while"})
	assert.Error(t, err)
}

func TestSweepClosed(t *testing.T) {
	c := &clock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	var evicted []string
	store := conversation.NewMemoryStore(
		conversation.WithClock(c.Now),
		conversation.WithEvictHook(func(ids []string) { evicted = append(evicted, ids...) }),
	)
	s := NewSweeper(store, testPolicy(t))

	_, _, err := store.GetOrCreate("old-closed", conversation.StatusHuman, nil)
	require.NoError(t, err)
	_, err = store.SetStatus("old-closed", conversation.StatusClosed)
	require.NoError(t, err)
	_, _, err = store.GetOrCreate("old-human", conversation.StatusHuman, nil)
	require.NoError(t, err)

	c.Advance(50 * time.Minute)
	_, _, err = store.GetOrCreate("new-closed", conversation.StatusClosed, nil)
	require.NoError(t, err)

	c.Advance(11 * time.Minute)
	ids := s.SweepClosed(c.Now())

	assert.Equal(t, []string{"old-closed"}, ids)
	assert.Equal(t, []string{"old-closed"}, evicted)
	assert.Equal(t, 2, store.Len())
}

func TestSweepAbandoned_OnlyBot(t *testing.T) {
	c := &clock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	store := conversation.NewMemoryStore(conversation.WithClock(c.Now))
	s := NewSweeper(store, testPolicy(t))

	for id, status := range map[string]conversation.Status{
		"idle-bot":       conversation.StatusBot,
		"idle-viewed":    conversation.StatusViewed,
		"idle-human":     conversation.StatusHuman,
		"idle-responded": conversation.StatusResponded,
	} {
		_, _, err := store.GetOrCreate(id, status, nil)
		require.NoError(t, err)
	}
	c.Advance(23 * time.Hour)
	_, _, err := store.GetOrCreate("recent-bot", conversation.StatusBot, nil)
	require.NoError(t, err)

	c.Advance(2 * time.Hour)
	ids := s.SweepAbandoned(c.Now())

	assert.Equal(t, []string{"idle-bot"}, ids)
	assert.Equal(t, 4, store.Len())
}

func TestSweeper_Lifecycle(t *testing.T) {
	s := NewSweeper(conversation.NewMemoryStore(), testPolicy(t))
	assert.Error(t, s.Health(context.Background()))

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()))
	assert.NoError(t, s.Health(context.Background()))
	assert.Len(t, s.NextRuns(), 2)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.False(t, s.IsRunning())
	require.NoError(t, s.Stop(ctx))
}
