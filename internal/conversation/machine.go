package conversation

import (
	"fmt"

	deskErrors "github.com/harunnryd/libradesk/internal/errors"
)

// Trigger is an event that may move a conversation between statuses.
type Trigger string

const (
	TriggerDashboardView     Trigger = "dashboard_view"
	TriggerEscalationRequest Trigger = "escalation_request"
	TriggerUserMessage       Trigger = "user_message"
	TriggerLibrarianReply    Trigger = "librarian_reply"
	TriggerEndSession        Trigger = "end_session"
	TriggerCountdownWarning  Trigger = "countdown_warning"
	TriggerCountdownElapsed  Trigger = "countdown_elapsed"
)

// Effects are the side effects a caller must carry out after a transition.
type Effects uint8

const (
	EffectNotify Effects = 1 << iota
	EffectCancelCountdown
	EffectTakeoverNotice
	EffectClosureNotice
	EffectScheduleClose
)

func (e Effects) Has(flag Effects) bool {
	return e&flag != 0
}

type Transition struct {
	From    Status
	To      Status
	Effects Effects
}

// Changed reports whether the status moves.
func (t Transition) Changed() bool {
	return t.From != t.To
}

// Next computes the transition for trigger applied to from. It has no side
// effects; callers apply the result under the conversation lock.
func Next(from Status, trigger Trigger) (Transition, error) {
	if !from.Valid() {
		return Transition{}, deskErrors.InvalidInput(fmt.Sprintf("unknown status %q", from))
	}
	stay := Transition{From: from, To: from}

	switch trigger {
	case TriggerDashboardView:
		if from == StatusBot {
			return Transition{From: from, To: StatusViewed}, nil
		}
		return stay, nil

	case TriggerEscalationRequest:
		return Transition{From: from, To: StatusHuman, Effects: EffectNotify | EffectCancelCountdown}, nil

	case TriggerUserMessage:
		if from == StatusBot {
			return stay, nil
		}
		// closed reopens into human on purpose
		return Transition{From: from, To: StatusHuman, Effects: EffectNotify | EffectCancelCountdown}, nil

	case TriggerLibrarianReply:
		// TakeoverNotice only applies to a librarian's first reply; callers
		// check the log for an earlier one.
		switch from {
		case StatusBot, StatusViewed, StatusHuman:
			return Transition{From: from, To: StatusResponded, Effects: EffectTakeoverNotice}, nil
		case StatusResponded:
			return Transition{From: from, To: StatusResponded}, nil
		default:
			return Transition{}, deskErrors.Conflict("conversation is closed")
		}

	case TriggerEndSession:
		return Transition{From: from, To: StatusClosed, Effects: EffectClosureNotice | EffectCancelCountdown}, nil

	case TriggerCountdownWarning:
		if from == StatusClosed {
			return Transition{}, deskErrors.Conflict("conversation is closed")
		}
		return Transition{From: from, To: from, Effects: EffectScheduleClose}, nil

	case TriggerCountdownElapsed:
		if from == StatusClosed {
			return stay, nil
		}
		return Transition{From: from, To: StatusClosed, Effects: EffectClosureNotice}, nil
	}

	return Transition{}, deskErrors.InvalidInput(fmt.Sprintf("unknown trigger %q", trigger))
}
