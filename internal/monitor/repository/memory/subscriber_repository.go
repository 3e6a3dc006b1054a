package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/central-university-dev/go-WebMonitor/internal/domain/errors"
	"github.com/central-university-dev/go-WebMonitor/internal/domain/models"
)

type SubscriberRepository struct {
	subscribers map[int64]*models.Subscriber
	registry    *RegistryRepository
	mu          sync.RWMutex
	nextID      int64
}

// NewSubscriberRepository принимает реестр для каскадных зачисток:
// подписки на ресурсы сущности или топика находятся через него.
func NewSubscriberRepository(registry *RegistryRepository) *SubscriberRepository {
	return &SubscriberRepository{
		subscribers: make(map[int64]*models.Subscriber),
		registry:    registry,
		nextID:      1,
	}
}

func (r *SubscriberRepository) Save(_ context.Context, subscriber *models.Subscriber) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if subscriber.ID == 0 {
		subscriber.ID = r.nextID
		r.nextID++
	}

	if subscriber.CreatedAt.IsZero() {
		subscriber.CreatedAt = time.Now()
	}

	r.subscribers[subscriber.ID] = subscriber

	return nil
}

func (r *SubscriberRepository) FindByID(_ context.Context, id int64) (*models.Subscriber, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subscriber, exists := r.subscribers[id]
	if !exists {
		return nil, &errors.ErrSubscriberNotFound{ID: id}
	}

	return subscriber, nil
}

func (r *SubscriberRepository) GetAll(_ context.Context) ([]*models.Subscriber, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subscribers := make([]*models.Subscriber, 0, len(r.subscribers))
	for _, subscriber := range r.subscribers {
		subscribers = append(subscribers, subscriber)
	}

	sortByID(subscribers)

	return subscribers, nil
}

func (r *SubscriberRepository) FindActiveForResource(
	_ context.Context,
	resource *models.Resource,
) ([]*models.Subscriber, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*models.Subscriber

	for _, subscriber := range r.subscribers {
		if !subscriber.Enabled {
			continue
		}

		switch {
		case subscriber.TopicID != nil && *subscriber.TopicID == resource.TopicID:
			matched = append(matched, subscriber)
		case subscriber.EntityID != nil && *subscriber.EntityID == resource.EntityID:
			matched = append(matched, subscriber)
		case subscriber.ResourceID != nil && *subscriber.ResourceID == resource.ID:
			matched = append(matched, subscriber)
		}
	}

	sortByID(matched)

	return matched, nil
}

func (r *SubscriberRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.subscribers[id]; !exists {
		return &errors.ErrSubscriberNotFound{ID: id}
	}

	delete(r.subscribers, id)

	return nil
}

func (r *SubscriberRepository) DeleteByResourceID(_ context.Context, resourceID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.deleteMatchingLocked(map[int64]struct{}{}, map[int64]struct{}{resourceID: {}}, map[int64]struct{}{})

	return nil
}

func (r *SubscriberRepository) DeleteByEntitySweep(ctx context.Context, entityID int64) error {
	resourceIDs := make(map[int64]struct{})

	if r.registry != nil {
		resources, err := r.registry.GetResourcesByEntityID(ctx, entityID)
		if err != nil {
			return err
		}

		for _, resource := range resources {
			resourceIDs[resource.ID] = struct{}{}
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.deleteMatchingLocked(map[int64]struct{}{entityID: {}}, resourceIDs, map[int64]struct{}{})

	return nil
}

func (r *SubscriberRepository) DeleteByTopicSweep(ctx context.Context, topicID int64) error {
	entityIDs := make(map[int64]struct{})
	resourceIDs := make(map[int64]struct{})

	if r.registry != nil {
		entities, err := r.registry.GetEntitiesByTopicID(ctx, topicID)
		if err != nil {
			return err
		}

		for _, entity := range entities {
			entityIDs[entity.ID] = struct{}{}

			resources, err := r.registry.GetResourcesByEntityID(ctx, entity.ID)
			if err != nil {
				return err
			}

			for _, resource := range resources {
				resourceIDs[resource.ID] = struct{}{}
			}
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.deleteMatchingLocked(entityIDs, resourceIDs, map[int64]struct{}{topicID: {}})

	return nil
}

func (r *SubscriberRepository) deleteMatchingLocked(
	entityIDs, resourceIDs, topicIDs map[int64]struct{},
) {
	for id, subscriber := range r.subscribers {
		switch {
		case subscriber.TopicID != nil:
			if _, ok := topicIDs[*subscriber.TopicID]; ok {
				delete(r.subscribers, id)
			}
		case subscriber.EntityID != nil:
			if _, ok := entityIDs[*subscriber.EntityID]; ok {
				delete(r.subscribers, id)
			}
		case subscriber.ResourceID != nil:
			if _, ok := resourceIDs[*subscriber.ResourceID]; ok {
				delete(r.subscribers, id)
			}
		}
	}
}

func sortByID(subscribers []*models.Subscriber) {
	sort.Slice(subscribers, func(i, j int) bool { return subscribers[i].ID < subscribers[j].ID })
}
