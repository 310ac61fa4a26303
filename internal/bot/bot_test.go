package bot

import (
	"context"
	"testing"
	"time"

	"github.com/harunnryd/libradesk/internal/conversation"
	deskErrors "github.com/harunnryd/libradesk/internal/errors"
	"github.com/harunnryd/libradesk/internal/model/contract"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRouter struct {
	reply   string
	err     error
	lastReq contract.CompletionRequest
	model   string
	hadDL   bool
}

func (f *fakeRouter) Route(ctx context.Context, model string, req contract.CompletionRequest) (*contract.CompletionResponse, error) {
	f.model = model
	f.lastReq = req
	_, f.hadDL = ctx.Deadline()
	if f.err != nil {
		return nil, f.err
	}
	return &contract.CompletionResponse{Content: f.reply}, nil
}

func (f *fakeRouter) ListModels() []string             { return nil }
func (f *fakeRouter) Health(ctx context.Context) error { return nil }

func TestBuildContext(t *testing.T) {
	history := []conversation.Message{
		conversation.UserMessage("one"),
		conversation.BotReply("two"),
		conversation.Notice(conversation.TakeoverNotice),
		conversation.LibrarianMessage("librarian text"),
		conversation.UserMessage("three"),
	}

	msgs := BuildContext(history, "four", 2)
	require.Len(t, msgs, 3)
	assert.Equal(t, contract.Message{Role: contract.RoleAssistant, Content: "two"}, msgs[0])
	assert.Equal(t, contract.Message{Role: contract.RoleUser, Content: "three"}, msgs[1])
	assert.Equal(t, contract.Message{Role: contract.RoleUser, Content: "four"}, msgs[2])

	assert.Len(t, BuildContext(nil, "hi", 10), 1)
	assert.Len(t, BuildContext(history, "hi", 0), 1)
}

func TestModelReplier_Reply(t *testing.T) {
	router := &fakeRouter{reply: "  We open at 9am.  "}
	r := NewModelReplier(router, Options{
		Model:        "llama3.2",
		SystemPrompt: "library only",
		HistoryTurns: 10,
		Temperature:  0.7,
		TopP:         0.9,
		Timeout:      time.Second,
	})

	reply, err := r.Reply(context.Background(), nil, "hours?")
	require.NoError(t, err)
	assert.Equal(t, "We open at 9am.", reply)
	assert.Equal(t, "llama3.2", router.model)
	assert.Equal(t, "library only", router.lastReq.System)
	assert.Equal(t, float32(0.9), router.lastReq.TopP)
	assert.True(t, router.hadDL)
}

func TestModelReplier_EmptyReplyIsUpstream(t *testing.T) {
	r := NewModelReplier(&fakeRouter{reply: "   "}, Options{})
	_, err := r.Reply(context.Background(), nil, "hi")
	assert.True(t, deskErrors.IsCategory(err, deskErrors.ErrUpstream))
}
