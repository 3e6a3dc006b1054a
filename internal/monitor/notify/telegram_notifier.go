package notify

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/central-university-dev/go-WebMonitor/internal/domain/errors"
	"github.com/central-university-dev/go-WebMonitor/internal/domain/models"
)

// TelegramSender отправляет HTML-сообщение в чат. Реализуется клиентом
// Telegram Bot API из пакета bot.
type TelegramSender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

type TelegramNotifier struct {
	sender TelegramSender
	logger *slog.Logger
}

func NewTelegramNotifier(sender TelegramSender, logger *slog.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		sender: sender,
		logger: logger,
	}
}

type telegramChannelConfig struct {
	ChatID int64 `json:"chat_id"`
}

func (n *TelegramNotifier) Send(
	ctx context.Context,
	subscriber *models.Subscriber,
	digests []*models.Digest,
	runLabel string,
) error {
	var cfg telegramChannelConfig

	if err := json.Unmarshal(subscriber.ChannelConfig, &cfg); err != nil || cfg.ChatID == 0 {
		return &errors.ErrInvalidChannelConfig{ChannelType: string(models.ChannelTelegram), Field: "chat_id"}
	}

	message := FormatDigestMessage(digests, runLabel)

	if err := n.sender.SendMessage(ctx, cfg.ChatID, message); err != nil {
		return err
	}

	n.logger.Info("Дайджест отправлен в Telegram",
		"subscriberID", subscriber.ID,
		"chatID", cfg.ChatID,
		"digests", len(digests),
	)

	return nil
}
