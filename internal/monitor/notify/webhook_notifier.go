package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/central-university-dev/go-WebMonitor/internal/common/httputil"
	"github.com/central-university-dev/go-WebMonitor/internal/config"
	"github.com/central-university-dev/go-WebMonitor/internal/domain/errors"
	"github.com/central-university-dev/go-WebMonitor/internal/domain/models"
	"github.com/go-resty/resty/v2"
)

// WebhookNotifier публикует сообщение дайджеста POST-запросом на URL
// подписчика в формате входящих вебхуков Slack: {"text": "..."}.
type WebhookNotifier struct {
	client *resty.Client
	logger *slog.Logger
}

func NewWebhookNotifier(cfg *config.Config, logger *slog.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		client: httputil.CreateResilientHTTPClient(cfg, logger, "webhook"),
		logger: logger,
	}
}

type webhookChannelConfig struct {
	WebhookURL string `json:"webhook_url"`
}

type webhookPayload struct {
	Text string `json:"text"`
}

func (n *WebhookNotifier) Send(
	ctx context.Context,
	subscriber *models.Subscriber,
	digests []*models.Digest,
	runLabel string,
) error {
	var cfg webhookChannelConfig

	if err := json.Unmarshal(subscriber.ChannelConfig, &cfg); err != nil || cfg.WebhookURL == "" {
		return &errors.ErrInvalidChannelConfig{ChannelType: string(models.ChannelWebhook), Field: "webhook_url"}
	}

	message := FormatDigestMessage(digests, runLabel)

	resp, err := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(&webhookPayload{Text: message}).
		Post(cfg.WebhookURL)
	if err != nil {
		return fmt.Errorf("ошибка при отправке вебхука: %w", err)
	}

	if !resp.IsSuccess() {
		return fmt.Errorf("вебхук вернул статус: %d", resp.StatusCode())
	}

	n.logger.Info("Дайджест отправлен вебхуком",
		"subscriberID", subscriber.ID,
		"digests", len(digests),
	)

	return nil
}
