// Package telegram serves index commands over a Telegram webhook.
package telegram

import (
	"encoding/json"
	"net/http"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Bot receives webhook updates and dispatches messages to its handlers.
type Bot struct {
	api    *tgbotapi.BotAPI
	h      *Handlers
	logger log.Logger
}

// NewBot connects to the Bot API, registers webhookURL and builds the handlers.
func NewBot(token, webhookURL string, deps Deps, logger log.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	webhook, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		return nil, err
	}
	if _, err := api.Request(webhook); err != nil {
		return nil, err
	}
	_ = level.Info(logger).Log("msg", "webhook set", "url", webhookURL, "bot", api.Self.UserName)

	return &Bot{api: api, h: NewHandlers(api, deps, logger), logger: logger}, nil
}

// Handlers exposes the message handlers, e.g. for scheduled reports.
func (b *Bot) Handlers() *Handlers { return b.h }

// WebhookHandler decodes one update; registered at /telegram/webhook.
func (b *Bot) WebhookHandler(w http.ResponseWriter, r *http.Request) {
	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "bad update", http.StatusBadRequest)
		return
	}
	if m := update.Message; m != nil && m.Chat != nil {
		_ = level.Debug(b.logger).Log("msg", "webhook message", "chat_id", m.Chat.ID, "text", m.Text)
		go b.h.HandleMessage(m)
	} else {
		_ = level.Debug(b.logger).Log("msg", "non-message update received", "update_id", update.UpdateID)
	}
	w.WriteHeader(http.StatusOK)
}
