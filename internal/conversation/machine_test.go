package conversation

import (
	"testing"

	deskErrors "github.com/harunnryd/libradesk/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNext_TransitionTable(t *testing.T) {
	tests := []struct {
		from    Status
		trigger Trigger
		to      Status
		effects Effects
	}{
		{StatusBot, TriggerDashboardView, StatusViewed, 0},
		{StatusViewed, TriggerDashboardView, StatusViewed, 0},
		{StatusHuman, TriggerDashboardView, StatusHuman, 0},
		{StatusClosed, TriggerDashboardView, StatusClosed, 0},

		{StatusBot, TriggerEscalationRequest, StatusHuman, EffectNotify | EffectCancelCountdown},
		{StatusViewed, TriggerEscalationRequest, StatusHuman, EffectNotify | EffectCancelCountdown},
		{StatusResponded, TriggerEscalationRequest, StatusHuman, EffectNotify | EffectCancelCountdown},
		{StatusClosed, TriggerEscalationRequest, StatusHuman, EffectNotify | EffectCancelCountdown},

		{StatusBot, TriggerUserMessage, StatusBot, 0},
		{StatusViewed, TriggerUserMessage, StatusHuman, EffectNotify | EffectCancelCountdown},
		{StatusHuman, TriggerUserMessage, StatusHuman, EffectNotify | EffectCancelCountdown},
		{StatusResponded, TriggerUserMessage, StatusHuman, EffectNotify | EffectCancelCountdown},
		{StatusClosed, TriggerUserMessage, StatusHuman, EffectNotify | EffectCancelCountdown},

		{StatusBot, TriggerLibrarianReply, StatusResponded, EffectTakeoverNotice},
		{StatusViewed, TriggerLibrarianReply, StatusResponded, EffectTakeoverNotice},
		{StatusHuman, TriggerLibrarianReply, StatusResponded, EffectTakeoverNotice},
		{StatusResponded, TriggerLibrarianReply, StatusResponded, 0},

		{StatusBot, TriggerEndSession, StatusClosed, EffectClosureNotice | EffectCancelCountdown},
		{StatusClosed, TriggerEndSession, StatusClosed, EffectClosureNotice | EffectCancelCountdown},

		{StatusHuman, TriggerCountdownWarning, StatusHuman, EffectScheduleClose},
		{StatusResponded, TriggerCountdownElapsed, StatusClosed, EffectClosureNotice},
		{StatusClosed, TriggerCountdownElapsed, StatusClosed, 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.trigger), func(t *testing.T) {
			tr, err := Next(tt.from, tt.trigger)
			require.NoError(t, err)
			assert.Equal(t, tt.from, tr.From)
			assert.Equal(t, tt.to, tr.To)
			assert.Equal(t, tt.effects, tr.Effects)
		})
	}
}

func TestNext_Rejections(t *testing.T) {
	_, err := Next(StatusClosed, TriggerLibrarianReply)
	assert.True(t, deskErrors.IsCategory(err, deskErrors.ErrConflict))

	_, err = Next(StatusClosed, TriggerCountdownWarning)
	assert.True(t, deskErrors.IsCategory(err, deskErrors.ErrConflict))

	_, err = Next(Status("archived"), TriggerUserMessage)
	assert.True(t, deskErrors.IsCategory(err, deskErrors.ErrInvalidInput))

	_, err = Next(StatusBot, Trigger("poke"))
	assert.True(t, deskErrors.IsCategory(err, deskErrors.ErrInvalidInput))
}

func TestEffects_Has(t *testing.T) {
	e := EffectNotify | EffectCancelCountdown
	assert.True(t, e.Has(EffectNotify))
	assert.True(t, e.Has(EffectCancelCountdown))
	assert.False(t, e.Has(EffectTakeoverNotice))
}
