package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/harunnryd/libradesk/internal/config"
	"github.com/harunnryd/libradesk/internal/errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type TelegramAdapter struct {
	token         string
	updateTimeout int
	eventHandler  EventHandler
	bot           *tgbotapi.BotAPI
	updates       tgbotapi.UpdatesChannel
}

func NewTelegramAdapter(token string, eventHandler EventHandler, updateTimeout int) *TelegramAdapter {
	if updateTimeout <= 0 {
		updateTimeout = config.DefaultTelegramUpdateTimeout
	}
	return &TelegramAdapter{
		token:         token,
		updateTimeout: updateTimeout,
		eventHandler:  eventHandler,
	}
}

func (t *TelegramAdapter) Name() string {
	return "telegram"
}

func (t *TelegramAdapter) Start(ctx context.Context) error {
	var err error
	t.bot, err = tgbotapi.NewBotAPI(t.token)
	if err != nil {
		return errors.WrapWithCategory(err, "failed to init telegram bot", errors.ErrUpstream)
	}

	slog.Info("Telegram Adapter started", "user", t.bot.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = t.updateTimeout

	t.updates = t.bot.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case update, ok := <-t.updates:
				if !ok {
					return
				}
				t.handleUpdate(ctx, update)
			}
		}
	}()

	return nil
}

func (t *TelegramAdapter) Stop(ctx context.Context) error {
	if t.bot != nil {
		t.bot.StopReceivingUpdates()
	}
	return nil
}

func (t *TelegramAdapter) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return
	}

	// a private chat id doubles as the address notifications go back to
	target := fmt.Sprintf("%d", msg.Chat.ID)

	name := msg.From.UserName
	if name == "" {
		name = strings.TrimSpace(msg.From.FirstName + " " + msg.From.LastName)
	}

	metadata := map[string]string{
		"user_id":   fmt.Sprintf("%d", msg.From.ID),
		"user_name": name,
		"msg_id":    fmt.Sprintf("%d", msg.MessageID),
	}

	if t.eventHandler != nil {
		if err := t.eventHandler(ctx, t.Name(), EventTypeDirectMessage, target, msg.Text, metadata); err != nil {
			slog.Error("Failed to handle Telegram event", "error", err)
		}
	}
}

// Send sends a message to a Telegram chat.
func (t *TelegramAdapter) Send(ctx context.Context, target string, content string) error {
	if t.bot == nil {
		return errors.Upstream("Telegram bot not initialized")
	}

	chatID, err := strconv.ParseInt(target, 10, 64)
	if err != nil {
		return errors.InvalidInput("invalid telegram chat ID: " + err.Error())
	}

	if _, err := t.bot.Send(tgbotapi.NewMessage(chatID, content)); err != nil {
		return errors.WrapWithCategory(err, "failed to send telegram message", errors.ErrUpstream)
	}

	slog.Debug("Telegram message sent", "chat_id", target)
	return nil
}

func (t *TelegramAdapter) Health(ctx context.Context) error {
	if t.bot == nil {
		return errors.Upstream("Telegram bot not initialized")
	}

	if _, err := t.bot.GetMe(); err != nil {
		return errors.Upstream("Telegram connection failed: " + err.Error())
	}

	return nil
}
