package service_test

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	customerrors "github.com/central-university-dev/go-WebMonitor/internal/domain/errors"
	"github.com/central-university-dev/go-WebMonitor/internal/domain/models"
	"github.com/central-university-dev/go-WebMonitor/internal/monitor/repository/memory"
	"github.com/central-university-dev/go-WebMonitor/internal/monitor/service"
)

type fakeHashCache struct {
	mu      sync.Mutex
	deleted []int64
}

func (f *fakeHashCache) GetHash(context.Context, int64) (string, error) { return "", nil }

func (f *fakeHashCache) SetHash(context.Context, int64, string) error { return nil }

func (f *fakeHashCache) DeleteHash(_ context.Context, resourceID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.deleted = append(f.deleted, resourceID)

	return nil
}

func (f *fakeHashCache) deletedIDs() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]int64(nil), f.deleted...)
}

type registryFixture struct {
	registryRepo   *memory.RegistryRepository
	snapshotRepo   *memory.SnapshotRepository
	digestRepo     *memory.DigestRepository
	subscriberRepo *memory.SubscriberRepository
	hashCache      *fakeHashCache
	service        *service.RegistryService
}

func newRegistryFixture(t *testing.T) *registryFixture {
	t.Helper()

	registryRepo := memory.NewRegistryRepository()
	snapshotRepo := memory.NewSnapshotRepository()
	digestRepo := memory.NewDigestRepository()
	subscriberRepo := memory.NewSubscriberRepository(registryRepo)
	hashCache := &fakeHashCache{}

	registryService := service.NewRegistryService(
		registryRepo,
		snapshotRepo,
		digestRepo,
		subscriberRepo,
		hashCache,
		passthroughTx{},
		testLogger(),
	)

	return &registryFixture{
		registryRepo:   registryRepo,
		snapshotRepo:   snapshotRepo,
		digestRepo:     digestRepo,
		subscriberRepo: subscriberRepo,
		hashCache:      hashCache,
		service:        registryService,
	}
}

func (f *registryFixture) seedTree(t *testing.T) (*models.Topic, *models.Entity, *models.Resource) {
	t.Helper()

	ctx := context.Background()

	topic, err := f.service.AddTopic(ctx, "competitors", "отслеживание конкурентов")
	require.NoError(t, err)

	entity, err := f.service.AddEntity(ctx, "competitors", "acme", "https://acme.example", models.EntityCompany)
	require.NoError(t, err)

	resource, err := f.service.AddResource(ctx, "acme", "https://acme.example/blog", "", models.ResourceBlog)
	require.NoError(t, err)

	return topic, entity, resource
}

func TestRegistryService_AddTopic_Duplicate(t *testing.T) {
	t.Parallel()

	f := newRegistryFixture(t)
	ctx := context.Background()

	_, err := f.service.AddTopic(ctx, "competitors", "")
	require.NoError(t, err)

	_, err = f.service.AddTopic(ctx, "competitors", "")
	assert.ErrorIs(t, err, &customerrors.ErrTopicAlreadyExists{})
}

func TestRegistryService_AddEntity_InvalidType(t *testing.T) {
	t.Parallel()

	f := newRegistryFixture(t)
	ctx := context.Background()

	_, err := f.service.AddTopic(ctx, "competitors", "")
	require.NoError(t, err)

	_, err = f.service.AddEntity(ctx, "competitors", "acme", "https://acme.example", "spaceship")

	var invalidType *customerrors.ErrInvalidEntityType

	assert.ErrorAs(t, err, &invalidType)
}

func TestRegistryService_AddResource_DefaultName(t *testing.T) {
	t.Parallel()

	f := newRegistryFixture(t)
	_, _, resource := f.seedTree(t)

	assert.Equal(t, "acme blog", resource.Name)
	assert.True(t, resource.Enabled)
}

func TestRegistryService_Subscribe_TargetResolution(t *testing.T) {
	t.Parallel()

	f := newRegistryFixture(t)
	topic, entity, resource := f.seedTree(t)

	ctx := context.Background()
	config := json.RawMessage(`{"chat_id": 5}`)

	topicSub, err := f.service.Subscribe(ctx, "competitors", models.ChannelTelegram, config)
	require.NoError(t, err)
	require.NotNil(t, topicSub.TopicID)
	assert.Equal(t, topic.ID, *topicSub.TopicID)

	entitySub, err := f.service.Subscribe(ctx, "acme", models.ChannelTelegram, config)
	require.NoError(t, err)
	require.NotNil(t, entitySub.EntityID)
	assert.Equal(t, entity.ID, *entitySub.EntityID)

	resourceSub, err := f.service.Subscribe(ctx, strconv.FormatInt(resource.ID, 10), models.ChannelTelegram, config)
	require.NoError(t, err)
	require.NotNil(t, resourceSub.ResourceID)
	assert.Equal(t, resource.ID, *resourceSub.ResourceID)

	_, err = f.service.Subscribe(ctx, "nonexistent", models.ChannelTelegram, config)
	assert.ErrorIs(t, err, &customerrors.ErrSubscribeTargetNotFound{})
}

func TestRegistryService_Subscribe_InvalidChannel(t *testing.T) {
	t.Parallel()

	f := newRegistryFixture(t)
	f.seedTree(t)

	_, err := f.service.Subscribe(context.Background(), "competitors", "pigeon", nil)

	var invalidChannel *customerrors.ErrInvalidChannelType

	assert.ErrorAs(t, err, &invalidChannel)
}

func TestRegistryService_RemoveTopic_Cascade(t *testing.T) {
	t.Parallel()

	f := newRegistryFixture(t)
	topic, entity, resource := f.seedTree(t)

	ctx := context.Background()

	snapshot := &models.Snapshot{
		ResourceID:  resource.ID,
		EntityID:    entity.ID,
		TopicID:     topic.ID,
		ContentHash: "abc",
		Content:     "content",
		FetchedAt:   time.Now(),
	}
	require.NoError(t, f.snapshotRepo.Save(ctx, snapshot))

	digest := &models.Digest{
		ResourceID: resource.ID,
		EntityID:   entity.ID,
		TopicID:    topic.ID,
		SnapshotID: snapshot.ID,
		Summary:    "что-то изменилось",
		ChangeType: "content_update",
		CreatedAt:  time.Now(),
	}
	require.NoError(t, f.digestRepo.Save(ctx, digest))

	_, err := f.service.Subscribe(ctx, "competitors", models.ChannelTelegram, json.RawMessage(`{"chat_id": 5}`))
	require.NoError(t, err)

	require.NoError(t, f.service.RemoveTopic(ctx, "competitors"))

	_, err = f.registryRepo.FindTopicByName(ctx, "competitors")
	assert.ErrorIs(t, err, &customerrors.ErrTopicNotFound{})

	_, err = f.registryRepo.LookupEntityByName(ctx, "acme")
	assert.ErrorIs(t, err, &customerrors.ErrEntityNotFound{})

	_, err = f.registryRepo.FindResourceByID(ctx, resource.ID)
	assert.ErrorIs(t, err, &customerrors.ErrResourceNotFound{})

	_, err = f.snapshotRepo.FindLatestByResourceID(ctx, resource.ID)
	assert.ErrorIs(t, err, &customerrors.ErrSnapshotNotFound{})

	digests, err := f.digestRepo.FindRecent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, digests)

	subscribers, err := f.subscriberRepo.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, subscribers)
}

func TestRegistryService_RemoveEntity_Cascade(t *testing.T) {
	t.Parallel()

	f := newRegistryFixture(t)
	topic, entity, resource := f.seedTree(t)

	ctx := context.Background()

	snapshot := &models.Snapshot{
		ResourceID:  resource.ID,
		EntityID:    entity.ID,
		TopicID:     topic.ID,
		ContentHash: "abc",
		Content:     "content",
		FetchedAt:   time.Now(),
	}
	require.NoError(t, f.snapshotRepo.Save(ctx, snapshot))

	_, err := f.service.Subscribe(ctx, "acme", models.ChannelTelegram, json.RawMessage(`{"chat_id": 5}`))
	require.NoError(t, err)

	require.NoError(t, f.service.RemoveEntity(ctx, "acme"))

	// Топик остаётся, его зависимые записи удалены.
	_, err = f.registryRepo.FindTopicByName(ctx, "competitors")
	require.NoError(t, err)

	_, err = f.registryRepo.FindResourceByID(ctx, resource.ID)
	assert.ErrorIs(t, err, &customerrors.ErrResourceNotFound{})

	_, err = f.snapshotRepo.FindLatestByResourceID(ctx, resource.ID)
	assert.ErrorIs(t, err, &customerrors.ErrSnapshotNotFound{})

	subscribers, err := f.subscriberRepo.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, subscribers)
}

func TestRegistryService_RemoveTopic_SweepsHashCache(t *testing.T) {
	t.Parallel()

	f := newRegistryFixture(t)
	_, _, resource := f.seedTree(t)

	ctx := context.Background()

	second, err := f.service.AddResource(ctx, "acme", "https://acme.example/pricing", "", models.ResourcePricing)
	require.NoError(t, err)

	require.NoError(t, f.service.RemoveTopic(ctx, "competitors"))

	assert.ElementsMatch(t, []int64{resource.ID, second.ID}, f.hashCache.deletedIDs())
}

func TestRegistryService_RemoveEntity_SweepsHashCache(t *testing.T) {
	t.Parallel()

	f := newRegistryFixture(t)
	_, _, resource := f.seedTree(t)

	ctx := context.Background()

	require.NoError(t, f.service.RemoveEntity(ctx, "acme"))

	assert.ElementsMatch(t, []int64{resource.ID}, f.hashCache.deletedIDs())
}

func TestRegistryService_RemoveResource_Cascade(t *testing.T) {
	t.Parallel()

	f := newRegistryFixture(t)
	topic, entity, resource := f.seedTree(t)

	ctx := context.Background()

	snapshot := &models.Snapshot{
		ResourceID:  resource.ID,
		EntityID:    entity.ID,
		TopicID:     topic.ID,
		ContentHash: "abc",
		Content:     "content",
		FetchedAt:   time.Now(),
	}
	require.NoError(t, f.snapshotRepo.Save(ctx, snapshot))

	_, err := f.service.Subscribe(ctx, strconv.FormatInt(resource.ID, 10), models.ChannelTelegram, json.RawMessage(`{"chat_id": 5}`))
	require.NoError(t, err)

	require.NoError(t, f.service.RemoveResource(ctx, resource.ID))

	_, err = f.registryRepo.FindResourceByID(ctx, resource.ID)
	assert.ErrorIs(t, err, &customerrors.ErrResourceNotFound{})

	_, err = f.snapshotRepo.FindLatestByResourceID(ctx, resource.ID)
	assert.ErrorIs(t, err, &customerrors.ErrSnapshotNotFound{})

	subscribers, err := f.subscriberRepo.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, subscribers)

	// Сущность и топик не затронуты.
	_, err = f.registryRepo.LookupEntityByName(ctx, "acme")
	require.NoError(t, err)
}

func TestRegistryService_GetRecentDigests_ByTopic(t *testing.T) {
	t.Parallel()

	f := newRegistryFixture(t)
	topic, entity, resource := f.seedTree(t)

	ctx := context.Background()

	digest := &models.Digest{
		ResourceID: resource.ID,
		EntityID:   entity.ID,
		TopicID:    topic.ID,
		Summary:    "обновление",
		ChangeType: "content_update",
		CreatedAt:  time.Now(),
	}
	require.NoError(t, f.digestRepo.Save(ctx, digest))

	digests, err := f.service.GetRecentDigests(ctx, "competitors", 10)
	require.NoError(t, err)
	assert.Len(t, digests, 1)

	_, err = f.service.GetRecentDigests(ctx, "unknown", 10)
	assert.ErrorIs(t, err, &customerrors.ErrTopicNotFound{})
}
