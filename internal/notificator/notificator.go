package notificator

import (
	"runtime/debug"

	"github.com/core-coin/walletx/internal/models"
	"github.com/core-coin/walletx/pkg/logger"
)

// Sender delivers a text message to a channel specific recipient.
type Sender interface {
	SendNotification(to, message string) error
}

// Notificator forwards ledger events to the operator's Telegram chat and
// mailbox. A nil sender or empty recipient disables that channel.
type Notificator struct {
	logger *logger.Logger

	TelegramNotificator Sender
	TelegramChatID      string
	EmailNotificator    Sender
	NotifyEmail         string
}

func NewNotificator(logger *logger.Logger, telNotif Sender, chatID string, emailNotif Sender, email string) *Notificator {
	return &Notificator{
		logger:              logger,
		TelegramNotificator: telNotif,
		TelegramChatID:      chatID,
		EmailNotificator:    emailNotif,
		NotifyEmail:         email,
	}
}

// safeCall runs a function with panic recovery (synchronous, no goroutine spawning)
func (n *Notificator) safeCall(fn func() error, context string) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("Function panicked",
				"context", context,
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	if err := fn(); err != nil {
		n.logger.Error("Failed to send notification", "context", context, "error", err)
	}
}

func (n *Notificator) SendNotification(event *models.Event) {
	message := event.String()
	if n.TelegramNotificator != nil && n.TelegramChatID != "" {
		n.safeCall(func() error { return n.TelegramNotificator.SendNotification(n.TelegramChatID, message) }, "telegramNotification")
	}
	if n.EmailNotificator != nil && n.NotifyEmail != "" {
		n.safeCall(func() error { return n.EmailNotificator.SendNotification(n.NotifyEmail, message) }, "emailNotification")
	}
}
