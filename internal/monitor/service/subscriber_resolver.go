package service

import (
	"context"
	"log/slog"

	"github.com/central-university-dev/go-WebMonitor/internal/domain/models"
	"github.com/central-university-dev/go-WebMonitor/internal/monitor/repository"
)

// Delivery связывает подписчика с дайджестами, попавшими в его область подписки.
type Delivery struct {
	Subscriber *models.Subscriber
	Digests    []*models.Digest
}

// SubscriberResolver сопоставляет дайджесты с подписчиками по области подписки
// (топик, сущность или ресурс). Пересекающиеся подписки не схлопываются.
type SubscriberResolver struct {
	subscriberRepo repository.SubscriberRepository
	logger         *slog.Logger
}

func NewSubscriberResolver(subscriberRepo repository.SubscriberRepository, logger *slog.Logger) *SubscriberResolver {
	return &SubscriberResolver{
		subscriberRepo: subscriberRepo,
		logger:         logger,
	}
}

// ResolveDeliveries группирует дайджесты по подписчикам. Ошибка поиска
// подписчиков одного ресурса не прерывает обработку остальных.
func (r *SubscriberResolver) ResolveDeliveries(ctx context.Context, digests []*models.Digest) []*Delivery {
	byID := make(map[int64]*Delivery)
	order := make([]int64, 0)

	for _, digest := range digests {
		resource := &models.Resource{
			ID:       digest.ResourceID,
			EntityID: digest.EntityID,
			TopicID:  digest.TopicID,
		}

		subscribers, err := r.subscriberRepo.FindActiveForResource(ctx, resource)
		if err != nil {
			r.logger.Error("Ошибка при поиске подписчиков ресурса",
				"resourceID", digest.ResourceID,
				"error", err,
			)

			continue
		}

		for _, subscriber := range subscribers {
			delivery, ok := byID[subscriber.ID]
			if !ok {
				delivery = &Delivery{Subscriber: subscriber}
				byID[subscriber.ID] = delivery
				order = append(order, subscriber.ID)
			}

			delivery.Digests = append(delivery.Digests, digest)
		}
	}

	deliveries := make([]*Delivery, 0, len(order))
	for _, id := range order {
		deliveries = append(deliveries, byID[id])
	}

	return deliveries
}
