package idempotency

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestStore(ttl time.Duration) (*Store, *time.Time) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s := NewStore(ttl)
	s.now = func() time.Time { return now }
	return s, &now
}

func TestCheckAndMark(t *testing.T) {
	s, now := newTestStore(time.Minute)

	assert.False(t, s.CheckAndMark("slack:C1:1.0"))
	assert.True(t, s.CheckAndMark("slack:C1:1.0"))
	assert.False(t, s.CheckAndMark("slack:C1:2.0"))

	*now = now.Add(2 * time.Minute)
	assert.False(t, s.CheckAndMark("slack:C1:1.0"), "expired key is new again")
}

func TestCheckAndMark_EmptyKey(t *testing.T) {
	s, _ := newTestStore(time.Minute)
	assert.False(t, s.CheckAndMark(""))
	assert.False(t, s.CheckAndMark(""))
	assert.Equal(t, 0, s.Len())
}

func TestPrune(t *testing.T) {
	s, now := newTestStore(time.Minute)
	s.CheckAndMark("a")
	*now = now.Add(30 * time.Second)
	s.CheckAndMark("b")
	*now = now.Add(45 * time.Second)

	assert.Equal(t, 1, s.Prune())
	assert.Equal(t, 1, s.Len())
}

func TestCheckAndMark_PrunesInlineWhenFull(t *testing.T) {
	s, now := newTestStore(time.Minute)
	for i := 0; i < pruneThreshold; i++ {
		s.CheckAndMark(fmt.Sprintf("old-%d", i))
	}
	*now = now.Add(2 * time.Minute)

	s.CheckAndMark("fresh")
	assert.Equal(t, 1, s.Len())
}

func TestEventKey(t *testing.T) {
	tests := []struct {
		name     string
		metadata map[string]string
		want     string
	}{
		{name: "matrix", metadata: map[string]string{"event_id": "$abc"}, want: "matrix:@u:$abc"},
		{name: "telegram", metadata: map[string]string{"msg_id": "7"}, want: "matrix:@u:7"},
		{name: "slack", metadata: map[string]string{"ts": "1700000000.0001"}, want: "matrix:@u:1700000000.0001"},
		{name: "none", metadata: map[string]string{"user_id": "x"}, want: ""},
		{name: "nil", metadata: nil, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EventKey("matrix", "@u", tt.metadata))
		})
	}
}
