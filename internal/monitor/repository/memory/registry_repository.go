package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/central-university-dev/go-WebMonitor/internal/domain/errors"
	"github.com/central-university-dev/go-WebMonitor/internal/domain/models"
)

type RegistryRepository struct {
	topics    map[int64]*models.Topic
	entities  map[int64]*models.Entity
	resources map[int64]*models.Resource
	mu        sync.RWMutex
	nextID    int64
}

func NewRegistryRepository() *RegistryRepository {
	return &RegistryRepository{
		topics:    make(map[int64]*models.Topic),
		entities:  make(map[int64]*models.Entity),
		resources: make(map[int64]*models.Resource),
		nextID:    1,
	}
}

func (r *RegistryRepository) nextIDLocked() int64 {
	id := r.nextID
	r.nextID++

	return id
}

func (r *RegistryRepository) SaveTopic(_ context.Context, topic *models.Topic) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.topics {
		if existing.Name == topic.Name {
			return &errors.ErrTopicAlreadyExists{Name: topic.Name}
		}
	}

	if topic.ID == 0 {
		topic.ID = r.nextIDLocked()
	}

	if topic.CreatedAt.IsZero() {
		topic.CreatedAt = time.Now()
	}

	r.topics[topic.ID] = topic

	return nil
}

func (r *RegistryRepository) FindTopicByID(_ context.Context, id int64) (*models.Topic, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	topic, exists := r.topics[id]
	if !exists {
		return nil, &errors.ErrTopicNotFound{Name: fmt.Sprintf("ID: %d", id)}
	}

	return topic, nil
}

func (r *RegistryRepository) FindTopicByName(_ context.Context, name string) (*models.Topic, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, topic := range r.topics {
		if topic.Name == name {
			return topic, nil
		}
	}

	return nil, &errors.ErrTopicNotFound{Name: name}
}

func (r *RegistryRepository) GetTopics(_ context.Context) ([]*models.Topic, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	topics := make([]*models.Topic, 0, len(r.topics))
	for _, topic := range r.topics {
		topics = append(topics, topic)
	}

	sort.Slice(topics, func(i, j int) bool { return topics[i].Name < topics[j].Name })

	return topics, nil
}

func (r *RegistryRepository) DeleteTopic(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.topics[id]; !exists {
		return &errors.ErrTopicNotFound{Name: fmt.Sprintf("ID: %d", id)}
	}

	delete(r.topics, id)

	return nil
}

func (r *RegistryRepository) SaveEntity(_ context.Context, entity *models.Entity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.entities {
		if existing.TopicID == entity.TopicID && existing.Name == entity.Name {
			return &errors.ErrEntityAlreadyExists{Name: entity.Name}
		}
	}

	if entity.ID == 0 {
		entity.ID = r.nextIDLocked()
	}

	if entity.CreatedAt.IsZero() {
		entity.CreatedAt = time.Now()
	}

	r.entities[entity.ID] = entity

	return nil
}

func (r *RegistryRepository) FindEntityByID(_ context.Context, id int64) (*models.Entity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entity, exists := r.entities[id]
	if !exists {
		return nil, &errors.ErrEntityNotFound{Name: fmt.Sprintf("ID: %d", id)}
	}

	return entity, nil
}

func (r *RegistryRepository) FindEntityByName(_ context.Context, topicID int64, name string) (*models.Entity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, entity := range r.entities {
		if entity.TopicID == topicID && entity.Name == name {
			return entity, nil
		}
	}

	return nil, &errors.ErrEntityNotFound{Name: name}
}

// LookupEntityByName ищет сущность по имени без привязки к топику, при
// совпадении имён в разных топиках возвращается первая по ID.
func (r *RegistryRepository) LookupEntityByName(_ context.Context, name string) (*models.Entity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var found *models.Entity

	for _, entity := range r.entities {
		if entity.Name != name {
			continue
		}

		if found == nil || entity.ID < found.ID {
			found = entity
		}
	}

	if found == nil {
		return nil, &errors.ErrEntityNotFound{Name: name}
	}

	return found, nil
}

func (r *RegistryRepository) GetEntitiesByTopicID(_ context.Context, topicID int64) ([]*models.Entity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var entities []*models.Entity

	for _, entity := range r.entities {
		if entity.TopicID == topicID {
			entities = append(entities, entity)
		}
	}

	sort.Slice(entities, func(i, j int) bool { return entities[i].Name < entities[j].Name })

	return entities, nil
}

func (r *RegistryRepository) DeleteEntity(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entities[id]; !exists {
		return &errors.ErrEntityNotFound{Name: fmt.Sprintf("ID: %d", id)}
	}

	delete(r.entities, id)

	return nil
}

func (r *RegistryRepository) DeleteEntitiesByTopicID(_ context.Context, topicID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, entity := range r.entities {
		if entity.TopicID == topicID {
			delete(r.entities, id)
		}
	}

	return nil
}

func (r *RegistryRepository) SaveResource(_ context.Context, resource *models.Resource) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if resource.ID == 0 {
		resource.ID = r.nextIDLocked()
	}

	if resource.CreatedAt.IsZero() {
		resource.CreatedAt = time.Now()
	}

	r.resources[resource.ID] = resource

	return nil
}

func (r *RegistryRepository) FindResourceByID(_ context.Context, id int64) (*models.Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	resource, exists := r.resources[id]
	if !exists {
		return nil, &errors.ErrResourceNotFound{ID: id}
	}

	return resource, nil
}

func (r *RegistryRepository) GetResourcesByEntityID(_ context.Context, entityID int64) ([]*models.Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var resources []*models.Resource

	for _, resource := range r.resources {
		if resource.EntityID == entityID {
			resources = append(resources, resource)
		}
	}

	sort.Slice(resources, func(i, j int) bool { return resources[i].Name < resources[j].Name })

	return resources, nil
}

func (r *RegistryRepository) GetActiveResources(_ context.Context, filter *models.RunFilter) ([]*models.Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var resources []*models.Resource

	for _, resource := range r.resources {
		if !resource.Enabled {
			continue
		}

		entity, ok := r.entities[resource.EntityID]
		if !ok || !entity.Enabled {
			continue
		}

		topic, ok := r.topics[resource.TopicID]
		if !ok || !topic.Enabled {
			continue
		}

		if filter != nil && filter.TopicName != "" && topic.Name != filter.TopicName {
			continue
		}

		if filter != nil && filter.EntityName != "" && entity.Name != filter.EntityName {
			continue
		}

		resources = append(resources, resource)
	}

	sort.Slice(resources, func(i, j int) bool { return resources[i].ID < resources[j].ID })

	return resources, nil
}

func (r *RegistryRepository) UpdateResourceCheckState(
	_ context.Context,
	id int64,
	checkedAt time.Time,
	changedAt *time.Time,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	resource, exists := r.resources[id]
	if !exists {
		return &errors.ErrResourceNotFound{ID: id}
	}

	resource.LastCheckedAt = checkedAt

	if changedAt != nil {
		resource.LastChangedAt = *changedAt
	}

	return nil
}

func (r *RegistryRepository) DeleteResource(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.resources[id]; !exists {
		return &errors.ErrResourceNotFound{ID: id}
	}

	delete(r.resources, id)

	return nil
}

func (r *RegistryRepository) DeleteResourcesByEntityID(_ context.Context, entityID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, resource := range r.resources {
		if resource.EntityID == entityID {
			delete(r.resources, id)
		}
	}

	return nil
}

func (r *RegistryRepository) DeleteResourcesByTopicID(_ context.Context, topicID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, resource := range r.resources {
		if resource.TopicID == topicID {
			delete(r.resources, id)
		}
	}

	return nil
}

func (r *RegistryRepository) CountActiveResources(_ context.Context) (map[models.ResourceType]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[models.ResourceType]int)

	for _, resource := range r.resources {
		if resource.Enabled {
			counts[resource.Type]++
		}
	}

	return counts, nil
}
