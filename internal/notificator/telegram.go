package notificator

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	tgModels "github.com/go-telegram/bot/models"

	"github.com/core-coin/walletx/pkg/logger"
)

type TelegramNotificator struct {
	logger *logger.Logger
	bot    *bot.Bot

	cancel context.CancelFunc
	done   chan struct{}
}

// NewTelegramNotificator connects the bot and starts polling for updates.
// Call Stop to end polling.
func NewTelegramNotificator(logger *logger.Logger, token string) (*TelegramNotificator, error) {
	provider := &TelegramNotificator{
		logger: logger,
		done:   make(chan struct{}),
	}
	opts := []bot.Option{
		bot.WithDefaultHandler(provider.handler),
	}

	b, err := bot.New(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	provider.bot = b

	ctx, cancel := context.WithCancel(context.Background())
	provider.cancel = cancel
	go func() {
		defer close(provider.done)
		b.Start(ctx)
	}()

	return provider, nil
}

func (t *TelegramNotificator) SendNotification(chatID, message string) error {
	params := &bot.SendMessageParams{
		ChatID: chatID,
		Text:   message,
	}
	if _, err := t.bot.SendMessage(context.Background(), params); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}

func (t *TelegramNotificator) Stop() {
	t.cancel()
	<-t.done
}

// handler answers /start with the chat id to put in TELEGRAM_CHAT_ID.
func (t *TelegramNotificator) handler(ctx context.Context, b *bot.Bot, update *tgModels.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	t.logger.Debug("Telegram update", "username", update.Message.From.Username, "text", update.Message.Text)
	if update.Message.Text != "/start" {
		return
	}
	chatID := fmt.Sprint(update.Message.Chat.ID)
	if err := t.SendNotification(chatID, "WalletX ledger notifications are available for this chat. Chat ID: "+chatID); err != nil {
		t.logger.Error("Failed to answer /start", "chat_id", chatID, "error", err)
	}
}
