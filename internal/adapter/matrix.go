package adapter

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/harunnryd/libradesk/internal/errors"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"
)

// MatrixAdapter notifies librarians in Matrix rooms and listens there for
// access requests. A librarian's target is the room ID of their DM with the bot.
type MatrixAdapter struct {
	userID       id.UserID
	client       *mautrix.Client
	eventHandler EventHandler
	cancel       context.CancelFunc
}

func NewMatrixAdapter(homeserver, userID, accessToken string, eventHandler EventHandler) (*MatrixAdapter, error) {
	client, err := mautrix.NewClient(homeserver, id.UserID(userID), accessToken)
	if err != nil {
		return nil, fmt.Errorf("creating matrix client: %w", err)
	}
	return &MatrixAdapter{
		userID:       id.UserID(userID),
		client:       client,
		eventHandler: eventHandler,
	}, nil
}

func (m *MatrixAdapter) Name() string {
	return "matrix"
}

func (m *MatrixAdapter) Start(ctx context.Context) error {
	syncer, ok := m.client.Syncer.(*mautrix.DefaultSyncer)
	if !ok {
		return fmt.Errorf("unexpected syncer type: %T", m.client.Syncer)
	}
	syncer.OnEventType(event.EventMessage, m.handleMessageEvent)

	syncCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	slog.Info("Matrix Adapter syncing", "user", m.userID.String())
	if err := m.client.SyncWithContext(syncCtx); err != nil && syncCtx.Err() == nil {
		return errors.WrapWithCategory(err, "matrix sync failed", errors.ErrUpstream)
	}
	return nil
}

func (m *MatrixAdapter) Stop(ctx context.Context) error {
	if m.cancel != nil {
		m.cancel()
	}
	return nil
}

func (m *MatrixAdapter) handleMessageEvent(ctx context.Context, evt *event.Event) {
	if evt.Sender == m.userID {
		return
	}

	content, ok := evt.Content.Parsed.(*event.MessageEventContent)
	if !ok || content.MsgType != event.MsgText {
		return
	}

	if m.eventHandler == nil {
		return
	}

	metadata := map[string]string{
		"user_id":   evt.Sender.String(),
		"user_name": evt.Sender.String(),
		"event_id":  evt.ID.String(),
	}

	if err := m.eventHandler(ctx, m.Name(), EventTypeDirectMessage, evt.RoomID.String(), content.Body, metadata); err != nil {
		slog.Error("Failed to handle Matrix event", "error", err)
	}
}

func (m *MatrixAdapter) Send(ctx context.Context, target string, content string) error {
	if _, err := m.client.SendText(ctx, id.RoomID(target), content); err != nil {
		return errors.WrapWithCategory(err, "failed to send matrix message", errors.ErrUpstream)
	}
	slog.Debug("Matrix message sent", "room", target)
	return nil
}

func (m *MatrixAdapter) Health(ctx context.Context) error {
	if _, err := m.client.Whoami(ctx); err != nil {
		return errors.Upstream("Matrix connection failed: " + err.Error())
	}
	return nil
}
