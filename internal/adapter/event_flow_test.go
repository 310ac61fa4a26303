package adapter

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/slack-go/slack/slackevents"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"
)

type capturedEvent struct {
	source    string
	eventType string
	target    string
	content   string
	metadata  map[string]string
}

func TestTelegramAdapter_EventFlow(t *testing.T) {
	var got capturedEvent

	adapter := NewTelegramAdapter("test-token", func(ctx context.Context, source string, eventType string, target string, content string, metadata map[string]string) error {
		got = capturedEvent{
			source:    source,
			eventType: eventType,
			target:    target,
			content:   content,
			metadata:  metadata,
		}
		return nil
	}, 1)

	adapter.handleUpdate(context.Background(), tgbotapi.Update{
		UpdateID: 99,
		Message: &tgbotapi.Message{
			MessageID: 123,
			Text:      "REQUEST_LIBRARIAN_ACCESS",
			Chat:      &tgbotapi.Chat{ID: 456},
			From:      &tgbotapi.User{ID: 789, UserName: "alice"},
		},
	})

	if got.source != "telegram" {
		t.Fatalf("source = %q, want %q", got.source, "telegram")
	}
	if got.eventType != EventTypeDirectMessage {
		t.Fatalf("eventType = %q, want %q", got.eventType, EventTypeDirectMessage)
	}
	if got.target != "456" {
		t.Fatalf("target = %q, want %q", got.target, "456")
	}
	if got.content != "REQUEST_LIBRARIAN_ACCESS" {
		t.Fatalf("content = %q, want %q", got.content, "REQUEST_LIBRARIAN_ACCESS")
	}
	if got.metadata["user_id"] != "789" {
		t.Fatalf("metadata user_id = %q, want %q", got.metadata["user_id"], "789")
	}
	if got.metadata["user_name"] != "alice" {
		t.Fatalf("metadata user_name = %q, want %q", got.metadata["user_name"], "alice")
	}
	if got.metadata["msg_id"] != "123" {
		t.Fatalf("metadata msg_id = %q, want %q", got.metadata["msg_id"], "123")
	}
}

func TestSlackAdapter_EventFlow(t *testing.T) {
	secret := "test-signing-secret"

	var got capturedEvent
	adapter := NewSlackAdapter(0, secret, "xoxb-test", func(ctx context.Context, source string, eventType string, target string, content string, metadata map[string]string) error {
		got = capturedEvent{
			source:    source,
			eventType: eventType,
			target:    target,
			content:   content,
			metadata:  metadata,
		}
		return nil
	})

	body := []byte(`{"type":"event_callback","event":{"type":"message","user":"U123","text":"REQUEST_LIBRARIAN_ACCESS","channel":"D123","ts":"1710000000.000100"}}`)
	req := httptest.NewRequest(http.MethodPost, "/slack/events", bytes.NewReader(body))

	ts := strconv.FormatInt(time.Now().Unix(), 10)
	base := "v0:" + ts + ":" + string(body)
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(base))
	sig := "v0=" + hex.EncodeToString(mac.Sum(nil))

	req.Header.Set("X-Slack-Request-Timestamp", ts)
	req.Header.Set("X-Slack-Signature", sig)

	rr := httptest.NewRecorder()
	adapter.handleEvents(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	if got.source != "slack" {
		t.Fatalf("source = %q, want %q", got.source, "slack")
	}
	if got.eventType != EventTypeDirectMessage {
		t.Fatalf("eventType = %q, want %q", got.eventType, EventTypeDirectMessage)
	}
	if got.target != "U123" {
		t.Fatalf("target = %q, want %q", got.target, "U123")
	}
	if got.metadata["channel"] != "D123" {
		t.Fatalf("metadata channel = %q, want %q", got.metadata["channel"], "D123")
	}
	if got.content != "REQUEST_LIBRARIAN_ACCESS" {
		t.Fatalf("content = %q, want %q", got.content, "REQUEST_LIBRARIAN_ACCESS")
	}
	if got.metadata["user_id"] != "U123" {
		t.Fatalf("metadata user_id = %q, want %q", got.metadata["user_id"], "U123")
	}
	if got.metadata["ts"] != "1710000000.000100" {
		t.Fatalf("metadata ts = %q, want %q", got.metadata["ts"], "1710000000.000100")
	}
}

func TestSlackAdapter_IgnoresBotMessages(t *testing.T) {
	called := false
	adapter := NewSlackAdapter(0, "secret", "xoxb-test", func(ctx context.Context, source string, eventType string, target string, content string, metadata map[string]string) error {
		called = true
		return nil
	})

	adapter.handleMessage(context.Background(), &slackevents.MessageEvent{BotID: "B1", User: "U1", Text: "hi"})
	adapter.handleMessage(context.Background(), &slackevents.MessageEvent{SubType: "message_changed", User: "U1", Text: "hi"})

	if called {
		t.Fatal("handler should not run for bot or edited messages")
	}
}

func TestSlackAdapter_RejectsBadSignature(t *testing.T) {
	adapter := NewSlackAdapter(0, "secret", "xoxb-test", nil)

	req := httptest.NewRequest(http.MethodPost, "/slack/events", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("X-Slack-Request-Timestamp", strconv.FormatInt(time.Now().Unix(), 10))
	req.Header.Set("X-Slack-Signature", "v0=deadbeef")

	rr := httptest.NewRecorder()
	adapter.handleEvents(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestMatrixAdapter_EventFlow(t *testing.T) {
	var got capturedEvent
	adapter, err := NewMatrixAdapter("https://matrix.example.org", "@desk:example.org", "token", func(ctx context.Context, source string, eventType string, target string, content string, metadata map[string]string) error {
		got = capturedEvent{source: source, eventType: eventType, target: target, content: content, metadata: metadata}
		return nil
	})
	if err != nil {
		t.Fatalf("NewMatrixAdapter() error: %v", err)
	}

	adapter.handleMessageEvent(context.Background(), &event.Event{
		Sender: id.UserID("@alice:example.org"),
		RoomID: id.RoomID("!dm:example.org"),
		ID:     id.EventID("$evt1"),
		Content: event.Content{Parsed: &event.MessageEventContent{
			MsgType: event.MsgText,
			Body:    "REQUEST_LIBRARIAN_ACCESS",
		}},
	})

	if got.source != "matrix" {
		t.Fatalf("source = %q, want %q", got.source, "matrix")
	}
	if got.target != "!dm:example.org" {
		t.Fatalf("target = %q, want %q", got.target, "!dm:example.org")
	}
	if got.metadata["user_id"] != "@alice:example.org" {
		t.Fatalf("metadata user_id = %q", got.metadata["user_id"])
	}

	got = capturedEvent{}
	adapter.handleMessageEvent(context.Background(), &event.Event{
		Sender: id.UserID("@desk:example.org"),
		RoomID: id.RoomID("!dm:example.org"),
		Content: event.Content{Parsed: &event.MessageEventContent{
			MsgType: event.MsgText,
			Body:    "echo",
		}},
	})
	if got.source != "" {
		t.Fatal("own messages should be ignored")
	}
}
