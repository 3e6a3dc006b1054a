package repository

import (
	"context"
	"time"

	"github.com/central-university-dev/go-WebMonitor/internal/domain/models"
)

type RegistryRepository interface {
	SaveTopic(ctx context.Context, topic *models.Topic) error
	FindTopicByID(ctx context.Context, id int64) (*models.Topic, error)
	FindTopicByName(ctx context.Context, name string) (*models.Topic, error)
	GetTopics(ctx context.Context) ([]*models.Topic, error)
	DeleteTopic(ctx context.Context, id int64) error
	SaveEntity(ctx context.Context, entity *models.Entity) error
	FindEntityByID(ctx context.Context, id int64) (*models.Entity, error)
	FindEntityByName(ctx context.Context, topicID int64, name string) (*models.Entity, error)
	LookupEntityByName(ctx context.Context, name string) (*models.Entity, error)
	GetEntitiesByTopicID(ctx context.Context, topicID int64) ([]*models.Entity, error)
	DeleteEntity(ctx context.Context, id int64) error
	DeleteEntitiesByTopicID(ctx context.Context, topicID int64) error
	SaveResource(ctx context.Context, resource *models.Resource) error
	FindResourceByID(ctx context.Context, id int64) (*models.Resource, error)
	GetResourcesByEntityID(ctx context.Context, entityID int64) ([]*models.Resource, error)
	GetActiveResources(ctx context.Context, filter *models.RunFilter) ([]*models.Resource, error)
	UpdateResourceCheckState(ctx context.Context, id int64, checkedAt time.Time, changedAt *time.Time) error
	DeleteResource(ctx context.Context, id int64) error
	DeleteResourcesByEntityID(ctx context.Context, entityID int64) error
	DeleteResourcesByTopicID(ctx context.Context, topicID int64) error
	CountActiveResources(ctx context.Context) (map[models.ResourceType]int, error)
}

type SnapshotRepository interface {
	Save(ctx context.Context, snapshot *models.Snapshot) error
	FindLatestByResourceID(ctx context.Context, resourceID int64) (*models.Snapshot, error)
	DeleteByResourceID(ctx context.Context, resourceID int64) error
	DeleteByEntityID(ctx context.Context, entityID int64) error
	DeleteByTopicID(ctx context.Context, topicID int64) error
}

type DigestRepository interface {
	Save(ctx context.Context, digest *models.Digest) error
	FindRecent(ctx context.Context, limit int) ([]*models.Digest, error)
	FindByTopicID(ctx context.Context, topicID int64, limit int) ([]*models.Digest, error)
	DeleteByResourceID(ctx context.Context, resourceID int64) error
	DeleteByEntityID(ctx context.Context, entityID int64) error
	DeleteByTopicID(ctx context.Context, topicID int64) error
}

type SubscriberRepository interface {
	Save(ctx context.Context, subscriber *models.Subscriber) error
	FindByID(ctx context.Context, id int64) (*models.Subscriber, error)
	GetAll(ctx context.Context) ([]*models.Subscriber, error)
	FindActiveForResource(ctx context.Context, resource *models.Resource) ([]*models.Subscriber, error)
	Delete(ctx context.Context, id int64) error
	DeleteByResourceID(ctx context.Context, resourceID int64) error
	DeleteByEntitySweep(ctx context.Context, entityID int64) error
	DeleteByTopicSweep(ctx context.Context, topicID int64) error
}
