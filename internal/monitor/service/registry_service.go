package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	customerrors "github.com/central-university-dev/go-WebMonitor/internal/domain/errors"
	"github.com/central-university-dev/go-WebMonitor/internal/domain/models"
	"github.com/central-university-dev/go-WebMonitor/internal/monitor/cache"
	"github.com/central-university-dev/go-WebMonitor/internal/monitor/repository"
)

// RegistryService управляет реестром наблюдения: топиками, сущностями,
// ресурсами и подписчиками. Внешних ключей с каскадным удалением в схеме нет,
// зависимые записи удаляются явно внутри одной транзакции в порядке
// подписчики, дайджесты, снимки, ресурсы, сущности, топик.
type RegistryService struct {
	registryRepo   repository.RegistryRepository
	snapshotRepo   repository.SnapshotRepository
	digestRepo     repository.DigestRepository
	subscriberRepo repository.SubscriberRepository
	hashCache      cache.HashCache
	txManager      Transactor
	logger         *slog.Logger
}

func NewRegistryService(
	registryRepo repository.RegistryRepository,
	snapshotRepo repository.SnapshotRepository,
	digestRepo repository.DigestRepository,
	subscriberRepo repository.SubscriberRepository,
	hashCache cache.HashCache,
	txManager Transactor,
	logger *slog.Logger,
) *RegistryService {
	return &RegistryService{
		registryRepo:   registryRepo,
		snapshotRepo:   snapshotRepo,
		digestRepo:     digestRepo,
		subscriberRepo: subscriberRepo,
		hashCache:      hashCache,
		txManager:      txManager,
		logger:         logger,
	}
}

func (s *RegistryService) AddTopic(ctx context.Context, name, description string) (*models.Topic, error) {
	if name == "" {
		return nil, &customerrors.ErrInvalidArgument{Message: "имя топика не может быть пустым"}
	}

	topic := &models.Topic{
		Name:        name,
		Description: description,
		Enabled:     true,
		CreatedAt:   time.Now(),
	}

	err := s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		return s.registryRepo.SaveTopic(ctx, topic)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Топик создан", "topicID", topic.ID, "name", topic.Name)

	return topic, nil
}

func (s *RegistryService) GetTopics(ctx context.Context) ([]*models.Topic, error) {
	return s.registryRepo.GetTopics(ctx)
}

func (s *RegistryService) RemoveTopic(ctx context.Context, name string) error {
	var resourceIDs []int64

	err := s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		topic, err := s.registryRepo.FindTopicByName(ctx, name)
		if err != nil {
			return err
		}

		resourceIDs, err = s.collectTopicResourceIDs(ctx, topic.ID)
		if err != nil {
			return err
		}

		if err := s.subscriberRepo.DeleteByTopicSweep(ctx, topic.ID); err != nil {
			return err
		}

		if err := s.digestRepo.DeleteByTopicID(ctx, topic.ID); err != nil {
			return err
		}

		if err := s.snapshotRepo.DeleteByTopicID(ctx, topic.ID); err != nil {
			return err
		}

		if err := s.registryRepo.DeleteResourcesByTopicID(ctx, topic.ID); err != nil {
			return err
		}

		if err := s.registryRepo.DeleteEntitiesByTopicID(ctx, topic.ID); err != nil {
			return err
		}

		if err := s.registryRepo.DeleteTopic(ctx, topic.ID); err != nil {
			return err
		}

		s.logger.Info("Топик удалён со всеми зависимостями", "topicID", topic.ID, "name", name)

		return nil
	})
	if err != nil {
		return err
	}

	s.sweepHashCache(ctx, resourceIDs)

	return nil
}

func (s *RegistryService) AddEntity(
	ctx context.Context,
	topicName, name, url string,
	entityType models.EntityType,
) (*models.Entity, error) {
	if name == "" {
		return nil, &customerrors.ErrInvalidArgument{Message: "имя сущности не может быть пустым"}
	}

	if !models.ValidEntityType(entityType) {
		return nil, &customerrors.ErrInvalidEntityType{Type: string(entityType)}
	}

	var entity *models.Entity

	err := s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		topic, err := s.registryRepo.FindTopicByName(ctx, topicName)
		if err != nil {
			return err
		}

		entity = &models.Entity{
			TopicID:   topic.ID,
			Name:      name,
			URL:       url,
			Type:      entityType,
			Enabled:   true,
			CreatedAt: time.Now(),
		}

		return s.registryRepo.SaveEntity(ctx, entity)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Сущность добавлена", "entityID", entity.ID, "name", name, "topic", topicName)

	return entity, nil
}

// GetEntities возвращает сущности топика либо все сущности реестра, если имя
// топика не задано.
func (s *RegistryService) GetEntities(ctx context.Context, topicName string) ([]*models.Entity, error) {
	if topicName != "" {
		topic, err := s.registryRepo.FindTopicByName(ctx, topicName)
		if err != nil {
			return nil, err
		}

		return s.registryRepo.GetEntitiesByTopicID(ctx, topic.ID)
	}

	topics, err := s.registryRepo.GetTopics(ctx)
	if err != nil {
		return nil, err
	}

	var entities []*models.Entity

	for _, topic := range topics {
		topicEntities, err := s.registryRepo.GetEntitiesByTopicID(ctx, topic.ID)
		if err != nil {
			return nil, err
		}

		entities = append(entities, topicEntities...)
	}

	return entities, nil
}

func (s *RegistryService) RemoveEntity(ctx context.Context, name string) error {
	var resourceIDs []int64

	err := s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		entity, err := s.registryRepo.LookupEntityByName(ctx, name)
		if err != nil {
			return err
		}

		resourceIDs, err = s.collectEntityResourceIDs(ctx, entity.ID)
		if err != nil {
			return err
		}

		if err := s.subscriberRepo.DeleteByEntitySweep(ctx, entity.ID); err != nil {
			return err
		}

		if err := s.digestRepo.DeleteByEntityID(ctx, entity.ID); err != nil {
			return err
		}

		if err := s.snapshotRepo.DeleteByEntityID(ctx, entity.ID); err != nil {
			return err
		}

		if err := s.registryRepo.DeleteResourcesByEntityID(ctx, entity.ID); err != nil {
			return err
		}

		if err := s.registryRepo.DeleteEntity(ctx, entity.ID); err != nil {
			return err
		}

		s.logger.Info("Сущность удалена со всеми зависимостями", "entityID", entity.ID, "name", name)

		return nil
	})
	if err != nil {
		return err
	}

	s.sweepHashCache(ctx, resourceIDs)

	return nil
}

func (s *RegistryService) collectTopicResourceIDs(ctx context.Context, topicID int64) ([]int64, error) {
	entities, err := s.registryRepo.GetEntitiesByTopicID(ctx, topicID)
	if err != nil {
		return nil, err
	}

	var ids []int64

	for _, entity := range entities {
		entityResourceIDs, err := s.collectEntityResourceIDs(ctx, entity.ID)
		if err != nil {
			return nil, err
		}

		ids = append(ids, entityResourceIDs...)
	}

	return ids, nil
}

func (s *RegistryService) collectEntityResourceIDs(ctx context.Context, entityID int64) ([]int64, error) {
	resources, err := s.registryRepo.GetResourcesByEntityID(ctx, entityID)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(resources))
	for _, resource := range resources {
		ids = append(ids, resource.ID)
	}

	return ids, nil
}

// sweepHashCache удаляет кэшированные хеши ресурсов после фиксации транзакции.
// Ошибки кэша не влияют на результат операции.
func (s *RegistryService) sweepHashCache(ctx context.Context, resourceIDs []int64) {
	if s.hashCache == nil {
		return
	}

	for _, id := range resourceIDs {
		if err := s.hashCache.DeleteHash(ctx, id); err != nil {
			s.logger.Warn("Не удалось удалить хеш ресурса из кэша", "resourceID", id, "error", err)
		}
	}
}

func (s *RegistryService) AddResource(
	ctx context.Context,
	entityName, url, name string,
	resourceType models.ResourceType,
) (*models.Resource, error) {
	if url == "" {
		return nil, &customerrors.ErrInvalidArgument{Message: "URL ресурса не может быть пустым"}
	}

	if !models.ValidResourceType(resourceType) {
		return nil, &customerrors.ErrInvalidResourceType{Type: string(resourceType)}
	}

	var resource *models.Resource

	err := s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		entity, err := s.registryRepo.LookupEntityByName(ctx, entityName)
		if err != nil {
			return err
		}

		if name == "" {
			name = fmt.Sprintf("%s %s", entity.Name, resourceType)
		}

		resource = &models.Resource{
			EntityID:  entity.ID,
			TopicID:   entity.TopicID,
			Name:      name,
			URL:       url,
			Type:      resourceType,
			Enabled:   true,
			CreatedAt: time.Now(),
		}

		return s.registryRepo.SaveResource(ctx, resource)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Ресурс добавлен",
		"resourceID", resource.ID,
		"name", resource.Name,
		"url", url,
		"entity", entityName,
	)

	return resource, nil
}

// GetResources возвращает ресурсы сущности либо все включённые ресурсы
// реестра, если имя сущности не задано.
func (s *RegistryService) GetResources(ctx context.Context, entityName string) ([]*models.Resource, error) {
	if entityName == "" {
		return s.registryRepo.GetActiveResources(ctx, nil)
	}

	entity, err := s.registryRepo.LookupEntityByName(ctx, entityName)
	if err != nil {
		return nil, err
	}

	return s.registryRepo.GetResourcesByEntityID(ctx, entity.ID)
}

func (s *RegistryService) RemoveResource(ctx context.Context, id int64) error {
	err := s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.registryRepo.FindResourceByID(ctx, id); err != nil {
			return err
		}

		if err := s.subscriberRepo.DeleteByResourceID(ctx, id); err != nil {
			return err
		}

		if err := s.digestRepo.DeleteByResourceID(ctx, id); err != nil {
			return err
		}

		if err := s.snapshotRepo.DeleteByResourceID(ctx, id); err != nil {
			return err
		}

		return s.registryRepo.DeleteResource(ctx, id)
	})
	if err != nil {
		return err
	}

	s.sweepHashCache(ctx, []int64{id})

	s.logger.Info("Ресурс удалён со всеми зависимостями", "resourceID", id)

	return nil
}

// Subscribe создаёт подписку на цель, разрешая её по порядку: сначала как имя
// топика, затем как имя сущности, затем как числовой ID ресурса.
func (s *RegistryService) Subscribe(
	ctx context.Context,
	target string,
	channelType models.ChannelType,
	channelConfig json.RawMessage,
) (*models.Subscriber, error) {
	if !models.ValidChannelType(channelType) {
		return nil, &customerrors.ErrInvalidChannelType{Type: string(channelType)}
	}

	if len(channelConfig) == 0 {
		channelConfig = json.RawMessage(`{}`)
	}

	subscriber := &models.Subscriber{
		ChannelType:   channelType,
		ChannelConfig: channelConfig,
		Enabled:       true,
		CreatedAt:     time.Now(),
	}

	err := s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.resolveSubscribeTarget(ctx, target, subscriber); err != nil {
			return err
		}

		return s.subscriberRepo.Save(ctx, subscriber)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Подписка создана",
		"subscriberID", subscriber.ID,
		"target", target,
		"channelType", channelType,
	)

	return subscriber, nil
}

func (s *RegistryService) resolveSubscribeTarget(ctx context.Context, target string, subscriber *models.Subscriber) error {
	topic, err := s.registryRepo.FindTopicByName(ctx, target)
	if err == nil {
		subscriber.TopicID = &topic.ID
		return nil
	}

	if !errors.Is(err, &customerrors.ErrTopicNotFound{}) {
		return err
	}

	entity, err := s.registryRepo.LookupEntityByName(ctx, target)
	if err == nil {
		subscriber.EntityID = &entity.ID
		return nil
	}

	if !errors.Is(err, &customerrors.ErrEntityNotFound{}) {
		return err
	}

	if resourceID, parseErr := strconv.ParseInt(target, 10, 64); parseErr == nil {
		resource, err := s.registryRepo.FindResourceByID(ctx, resourceID)
		if err == nil {
			subscriber.ResourceID = &resource.ID
			return nil
		}

		if !errors.Is(err, &customerrors.ErrResourceNotFound{}) {
			return err
		}
	}

	return &customerrors.ErrSubscribeTargetNotFound{Target: target}
}

func (s *RegistryService) GetSubscribers(ctx context.Context) ([]*models.Subscriber, error) {
	return s.subscriberRepo.GetAll(ctx)
}

func (s *RegistryService) Unsubscribe(ctx context.Context, id int64) error {
	return s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		return s.subscriberRepo.Delete(ctx, id)
	})
}

// GetRecentDigests возвращает последние дайджесты, опционально ограниченные
// одним топиком.
func (s *RegistryService) GetRecentDigests(ctx context.Context, topicName string, limit int) ([]*models.Digest, error) {
	if limit <= 0 {
		limit = 20
	}

	if topicName == "" {
		return s.digestRepo.FindRecent(ctx, limit)
	}

	topic, err := s.registryRepo.FindTopicByName(ctx, topicName)
	if err != nil {
		return nil, err
	}

	return s.digestRepo.FindByTopicID(ctx, topic.ID, limit)
}
