// Package bot turns a conversation's recent turns into an assistant reply.
package bot

import (
	"context"
	"strings"
	"time"

	"github.com/harunnryd/libradesk/internal/conversation"
	deskErrors "github.com/harunnryd/libradesk/internal/errors"
	"github.com/harunnryd/libradesk/internal/model"
	"github.com/harunnryd/libradesk/internal/model/contract"
)

// Replier answers the newest user message given the prior turns.
type Replier interface {
	Reply(ctx context.Context, history []conversation.Message, text string) (string, error)
}

type Options struct {
	Model        string
	SystemPrompt string
	HistoryTurns int
	Temperature  float32
	TopP         float32
	MaxTokens    int
	Timeout      time.Duration
}

// ModelReplier sends the system prompt, the last HistoryTurns turns and the
// new message through a model router.
type ModelReplier struct {
	router model.ModelRouter
	opts   Options
}

func NewModelReplier(router model.ModelRouter, opts Options) *ModelReplier {
	return &ModelReplier{router: router, opts: opts}
}

func (r *ModelReplier) Reply(ctx context.Context, history []conversation.Message, text string) (string, error) {
	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	req := contract.CompletionRequest{
		Model:       r.opts.Model,
		System:      r.opts.SystemPrompt,
		Messages:    BuildContext(history, text, r.opts.HistoryTurns),
		Temperature: r.opts.Temperature,
		TopP:        r.opts.TopP,
		MaxTokens:   r.opts.MaxTokens,
	}

	resp, err := r.router.Route(ctx, r.opts.Model, req)
	if err != nil {
		return "", err
	}

	reply := strings.TrimSpace(resp.Content)
	if reply == "" {
		return "", deskErrors.Upstream("model returned an empty reply")
	}
	return reply, nil
}

// BuildContext keeps at most turns user/bot_reply messages from history and
// appends text as the final user turn.
func BuildContext(history []conversation.Message, text string, turns int) []contract.Message {
	kept := make([]conversation.Message, 0, len(history))
	for _, m := range history {
		if m.IsTurn() {
			kept = append(kept, m)
		}
	}
	if turns >= 0 && len(kept) > turns {
		kept = kept[len(kept)-turns:]
	}

	out := make([]contract.Message, 0, len(kept)+1)
	for _, m := range kept {
		role := contract.RoleUser
		if m.Role == conversation.RoleAssistant {
			role = contract.RoleAssistant
		}
		out = append(out, contract.Message{Role: role, Content: m.Content})
	}
	return append(out, contract.Message{Role: contract.RoleUser, Content: text})
}
