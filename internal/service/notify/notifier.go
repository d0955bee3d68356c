package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	client "github.com/polatjonbaxtiyorov/mytushlikbot/pkg/clients/telegram"
)

// Notifier delivers outbound notices to users. Implementations must be
// safe for sequential per-user iteration; callers treat a returned
// error as one failed delivery, never as a batch abort.
type Notifier interface {
	Notify(ctx context.Context, chatID int64, text string) error
}

// TelegramNotifier is the production implementation backed by the
// Telegram Bot API.
type TelegramNotifier struct {
	client client.Client
	logger *zap.Logger
}

// NewTelegramNotifier wires a new notifier instance.
func NewTelegramNotifier(client client.Client, logger *zap.Logger) *TelegramNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TelegramNotifier{client: client, logger: logger}
}

// Notify sends one plain text message to the chat.
func (n *TelegramNotifier) Notify(ctx context.Context, chatID int64, text string) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := n.client.SendMessage(ctxWithTimeout, client.SendMessageRequest{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		n.logger.Debug("notify failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	return err
}
