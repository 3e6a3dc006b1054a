package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	customerrors "github.com/central-university-dev/go-WebMonitor/internal/domain/errors"
	"github.com/central-university-dev/go-WebMonitor/internal/domain/models"
	clientmocks "github.com/central-university-dev/go-WebMonitor/internal/monitor/clients/mocks"
	"github.com/central-university-dev/go-WebMonitor/internal/monitor/repository/memory"
	"github.com/central-university-dev/go-WebMonitor/internal/monitor/service"
	servicemocks "github.com/central-university-dev/go-WebMonitor/internal/monitor/service/mocks"
)

type runFixture struct {
	registryRepo   *memory.RegistryRepository
	snapshotRepo   *memory.SnapshotRepository
	digestRepo     *memory.DigestRepository
	subscriberRepo *memory.SubscriberRepository
	fetcher        *clientmocks.ContentFetcher
	summarizer     *clientmocks.ChangeSummarizer
	dispatcher     *servicemocks.NotificationDispatcher
	runService     *service.RunService
	topic          *models.Topic
	entity         *models.Entity
}

func newRunFixture(t *testing.T) *runFixture {
	t.Helper()

	registryRepo := memory.NewRegistryRepository()
	snapshotRepo := memory.NewSnapshotRepository()
	digestRepo := memory.NewDigestRepository()
	subscriberRepo := memory.NewSubscriberRepository(registryRepo)
	fetcher := new(clientmocks.ContentFetcher)
	summarizer := new(clientmocks.ChangeSummarizer)
	dispatcher := new(servicemocks.NotificationDispatcher)

	ctx := context.Background()

	topic := &models.Topic{Name: "competitors", Enabled: true}
	require.NoError(t, registryRepo.SaveTopic(ctx, topic))

	entity := &models.Entity{TopicID: topic.ID, Name: "acme", Type: models.EntityCompany, Enabled: true}
	require.NoError(t, registryRepo.SaveEntity(ctx, entity))

	monitorService := service.NewMonitorService(
		registryRepo,
		snapshotRepo,
		digestRepo,
		fetcher,
		summarizer,
		nil,
		passthroughTx{},
		testLogger(),
	)

	resolver := service.NewSubscriberResolver(subscriberRepo, testLogger())

	runService := service.NewRunService(
		monitorService,
		registryRepo,
		resolver,
		dispatcher,
		2,
		testLogger(),
	)

	return &runFixture{
		registryRepo:   registryRepo,
		snapshotRepo:   snapshotRepo,
		digestRepo:     digestRepo,
		subscriberRepo: subscriberRepo,
		fetcher:        fetcher,
		summarizer:     summarizer,
		dispatcher:     dispatcher,
		runService:     runService,
		topic:          topic,
		entity:         entity,
	}
}

func (f *runFixture) addResource(t *testing.T, name, url string) *models.Resource {
	t.Helper()

	resource := &models.Resource{
		EntityID: f.entity.ID,
		TopicID:  f.topic.ID,
		Name:     name,
		URL:      url,
		Type:     models.ResourceBlog,
		Enabled:  true,
	}
	require.NoError(t, f.registryRepo.SaveResource(context.Background(), resource))

	return resource
}

func (f *runFixture) seedSnapshot(t *testing.T, resource *models.Resource, content string) {
	t.Helper()

	f.fetcher.On("FetchContent", mock.Anything, resource).Return(content, nil).Once()

	_, err := f.runService.RunCheck(context.Background(), nil, "Seed")
	require.NoError(t, err)
}

func TestRunService_BaselineRunIsSilent(t *testing.T) {
	t.Parallel()

	f := newRunFixture(t)
	resource := f.addResource(t, "acme blog", "https://acme.example/blog")

	f.fetcher.On("FetchContent", mock.Anything, resource).Return("first", nil)

	summary, err := f.runService.RunCheck(context.Background(), nil, "Check")

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Baseline)
	assert.Zero(t, summary.Changed)
	assert.Empty(t, summary.Digests)
	f.dispatcher.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRunService_ChangedResourceNotifiesSubscriber(t *testing.T) {
	t.Parallel()

	f := newRunFixture(t)
	resource := f.addResource(t, "acme blog", "https://acme.example/blog")

	subscriber := &models.Subscriber{
		TopicID:       &f.topic.ID,
		ChannelType:   models.ChannelTelegram,
		ChannelConfig: json.RawMessage(`{"chat_id": 100}`),
		Enabled:       true,
	}
	require.NoError(t, f.subscriberRepo.Save(context.Background(), subscriber))

	f.seedSnapshot(t, resource, "old content")

	f.fetcher.On("FetchContent", mock.Anything, resource).Return("new content", nil).Once()
	f.summarizer.On("SummarizeChanges", mock.Anything, resource, "old content", "new content").
		Return(&models.SummaryResult{Summary: "New post published", ChangeType: "new_post"}, nil)

	f.dispatcher.On("Dispatch", mock.Anything, mock.MatchedBy(func(s *models.Subscriber) bool {
		return s.ID == subscriber.ID
	}), mock.MatchedBy(func(digests []*models.Digest) bool {
		return len(digests) == 1 && digests[0].Summary == "New post published"
	}), "Manual check").Return(nil)

	summary, err := f.runService.RunCheck(context.Background(), nil, "Manual check")

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Changed)
	assert.Len(t, summary.Digests, 1)
	f.dispatcher.AssertExpectations(t)
}

func TestRunService_SecondRunUnchangedIsSilent(t *testing.T) {
	t.Parallel()

	f := newRunFixture(t)
	resource := f.addResource(t, "acme blog", "https://acme.example/blog")

	subscriber := &models.Subscriber{
		TopicID:       &f.topic.ID,
		ChannelType:   models.ChannelTelegram,
		ChannelConfig: json.RawMessage(`{"chat_id": 100}`),
		Enabled:       true,
	}
	require.NoError(t, f.subscriberRepo.Save(context.Background(), subscriber))

	f.seedSnapshot(t, resource, "same content")

	f.fetcher.On("FetchContent", mock.Anything, resource).Return("same content", nil).Once()

	summary, err := f.runService.RunCheck(context.Background(), nil, "Check")

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Unchanged)
	assert.Zero(t, summary.Changed)
	assert.Empty(t, summary.Digests)
	f.summarizer.AssertNotCalled(t, "SummarizeChanges", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.dispatcher.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRunService_FetchFailureIsolation(t *testing.T) {
	t.Parallel()

	f := newRunFixture(t)
	broken := f.addResource(t, "broken", "https://acme.example/broken")
	healthy := f.addResource(t, "healthy", "https://acme.example/healthy")

	f.fetcher.On("FetchContent", mock.Anything, broken).Return("b1", nil).Once()
	f.fetcher.On("FetchContent", mock.Anything, healthy).Return("h1", nil).Once()

	_, err := f.runService.RunCheck(context.Background(), nil, "Seed")
	require.NoError(t, err)

	f.fetcher.On("FetchContent", mock.Anything, broken).
		Return("", &customerrors.ErrFetchFailed{URL: broken.URL, Cause: errors.New("503")}).Once()
	f.fetcher.On("FetchContent", mock.Anything, healthy).Return("h2", nil).Once()
	f.summarizer.On("SummarizeChanges", mock.Anything, healthy, "h1", "h2").
		Return(&models.SummaryResult{Summary: "Updated", ChangeType: "content_update"}, nil)

	summary, err := f.runService.RunCheck(context.Background(), nil, "Check")

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Changed)
	assert.Len(t, summary.Digests, 1)
}

func TestRunService_SummarizeFailureKeepsSnapshot(t *testing.T) {
	t.Parallel()

	f := newRunFixture(t)
	resource := f.addResource(t, "acme blog", "https://acme.example/blog")

	f.seedSnapshot(t, resource, "old")

	f.fetcher.On("FetchContent", mock.Anything, resource).Return("new", nil).Once()
	f.summarizer.On("SummarizeChanges", mock.Anything, resource, "old", "new").
		Return(nil, &customerrors.ErrMalformedSummary{Raw: "garbage"})

	summary, err := f.runService.RunCheck(context.Background(), nil, "Check")

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Changed)
	assert.Empty(t, summary.Digests)
	f.dispatcher.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	// Снимок сохранён: повторная проверка того же содержимого не даёт изменения.
	snapshot, err := f.snapshotRepo.FindLatestByResourceID(context.Background(), resource.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", snapshot.Content)
}

func TestRunService_DispatchFailureDoesNotBlockOthers(t *testing.T) {
	t.Parallel()

	f := newRunFixture(t)
	resource := f.addResource(t, "acme blog", "https://acme.example/blog")

	ctx := context.Background()

	failingSub := &models.Subscriber{
		TopicID:       &f.topic.ID,
		ChannelType:   models.ChannelTelegram,
		ChannelConfig: json.RawMessage(`{"chat_id": 1}`),
		Enabled:       true,
	}
	require.NoError(t, f.subscriberRepo.Save(ctx, failingSub))

	healthySub := &models.Subscriber{
		EntityID:      &f.entity.ID,
		ChannelType:   models.ChannelWebhook,
		ChannelConfig: json.RawMessage(`{"webhook_url": "https://hooks.example/x"}`),
		Enabled:       true,
	}
	require.NoError(t, f.subscriberRepo.Save(ctx, healthySub))

	f.seedSnapshot(t, resource, "v1")

	f.fetcher.On("FetchContent", mock.Anything, resource).Return("v2", nil).Once()
	f.summarizer.On("SummarizeChanges", mock.Anything, resource, "v1", "v2").
		Return(&models.SummaryResult{Summary: "Changed", ChangeType: "content_update"}, nil)

	f.dispatcher.On("Dispatch", mock.Anything, mock.MatchedBy(func(s *models.Subscriber) bool {
		return s.ID == failingSub.ID
	}), mock.Anything, "Check").Return(errors.New("канал недоступен")).Once()

	f.dispatcher.On("Dispatch", mock.Anything, mock.MatchedBy(func(s *models.Subscriber) bool {
		return s.ID == healthySub.ID
	}), mock.Anything, "Check").Return(nil).Once()

	summary, err := f.runService.RunCheck(ctx, nil, "Check")

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Changed)
	f.dispatcher.AssertExpectations(t)
}

func TestRunService_OverlappingScopesBothNotified(t *testing.T) {
	t.Parallel()

	f := newRunFixture(t)
	resource := f.addResource(t, "acme blog", "https://acme.example/blog")

	ctx := context.Background()

	topicSub := &models.Subscriber{
		TopicID:       &f.topic.ID,
		ChannelType:   models.ChannelTelegram,
		ChannelConfig: json.RawMessage(`{"chat_id": 1}`),
		Enabled:       true,
	}
	require.NoError(t, f.subscriberRepo.Save(ctx, topicSub))

	entitySub := &models.Subscriber{
		EntityID:      &f.entity.ID,
		ChannelType:   models.ChannelWebhook,
		ChannelConfig: json.RawMessage(`{"webhook_url": "https://hooks.example/x"}`),
		Enabled:       true,
	}
	require.NoError(t, f.subscriberRepo.Save(ctx, entitySub))

	f.seedSnapshot(t, resource, "v1")

	f.fetcher.On("FetchContent", mock.Anything, resource).Return("v2", nil).Once()
	f.summarizer.On("SummarizeChanges", mock.Anything, resource, "v1", "v2").
		Return(&models.SummaryResult{Summary: "Changed", ChangeType: "content_update"}, nil)

	f.dispatcher.On("Dispatch", mock.Anything, mock.Anything, mock.Anything, "Check").Return(nil).Twice()

	_, err := f.runService.RunCheck(ctx, nil, "Check")

	require.NoError(t, err)
	f.dispatcher.AssertNumberOfCalls(t, "Dispatch", 2)
}

func TestRunService_FilterByTopic(t *testing.T) {
	t.Parallel()

	f := newRunFixture(t)
	resource := f.addResource(t, "acme blog", "https://acme.example/blog")

	ctx := context.Background()

	otherTopic := &models.Topic{Name: "vendors", Enabled: true}
	require.NoError(t, f.registryRepo.SaveTopic(ctx, otherTopic))

	otherEntity := &models.Entity{TopicID: otherTopic.ID, Name: "globex", Type: models.EntityCompany, Enabled: true}
	require.NoError(t, f.registryRepo.SaveEntity(ctx, otherEntity))

	otherResource := &models.Resource{
		EntityID: otherEntity.ID,
		TopicID:  otherTopic.ID,
		Name:     "globex blog",
		URL:      "https://globex.example/blog",
		Type:     models.ResourceBlog,
		Enabled:  true,
	}
	require.NoError(t, f.registryRepo.SaveResource(ctx, otherResource))

	f.fetcher.On("FetchContent", mock.Anything, resource).Return("content", nil).Once()

	summary, err := f.runService.RunCheck(ctx, &models.RunFilter{TopicName: "competitors"}, "Check")

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Total())
	f.fetcher.AssertNotCalled(t, "FetchContent", mock.Anything, otherResource)
}
