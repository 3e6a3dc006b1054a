package notify

import (
	"context"
	"log/slog"

	"github.com/central-university-dev/go-WebMonitor/internal/common/metrics"
	"github.com/central-university-dev/go-WebMonitor/internal/domain/errors"
	"github.com/central-university-dev/go-WebMonitor/internal/domain/models"
)

// ChannelNotifier доставляет дайджесты одному подписчику по его каналу.
type ChannelNotifier interface {
	Send(ctx context.Context, subscriber *models.Subscriber, digests []*models.Digest, runLabel string) error
}

// Dispatcher выбирает нотификатор по типу канала подписчика.
type Dispatcher struct {
	notifiers map[models.ChannelType]ChannelNotifier
	logger    *slog.Logger
}

func NewDispatcher(logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		notifiers: make(map[models.ChannelType]ChannelNotifier),
		logger:    logger,
	}
}

func (d *Dispatcher) Register(channelType models.ChannelType, notifier ChannelNotifier) {
	d.notifiers[channelType] = notifier
}

func (d *Dispatcher) Dispatch(
	ctx context.Context,
	subscriber *models.Subscriber,
	digests []*models.Digest,
	runLabel string,
) error {
	notifier, ok := d.notifiers[subscriber.ChannelType]
	if !ok {
		metrics.RecordNotificationSent(string(subscriber.ChannelType), "error")

		return &errors.ErrUnknownChannelType{Type: string(subscriber.ChannelType)}
	}

	if err := notifier.Send(ctx, subscriber, digests, runLabel); err != nil {
		metrics.RecordNotificationSent(string(subscriber.ChannelType), "error")

		d.logger.Error("Ошибка при доставке дайджеста подписчику",
			"subscriberID", subscriber.ID,
			"channel", subscriber.ChannelType,
			"error", err,
		)

		return err
	}

	metrics.RecordNotificationSent(string(subscriber.ChannelType), "success")

	return nil
}
