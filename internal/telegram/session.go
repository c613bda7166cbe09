package telegram

import tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

// Session is the per-message context passed to every handler. It is built
// from the incoming message and discarded after the reply.
type Session struct {
	ChatID  int64
	UserID  int64
	Allowed bool
}

// newSession builds the session for m. An empty allowlist admits every chat.
func newSession(m *tgbotapi.Message, allowed map[int64]bool) Session {
	s := Session{ChatID: m.Chat.ID, Allowed: len(allowed) == 0 || allowed[m.Chat.ID]}
	if m.From != nil {
		s.UserID = m.From.ID
	}
	return s
}
