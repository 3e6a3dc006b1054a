package service_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	botservice "github.com/central-university-dev/go-WebMonitor/internal/bot/service"
	"github.com/central-university-dev/go-WebMonitor/internal/domain/models"
	"github.com/central-university-dev/go-WebMonitor/internal/monitor/repository/memory"
	monitorservice "github.com/central-university-dev/go-WebMonitor/internal/monitor/service"
)

type passthroughTx struct{}

func (passthroughTx) WithTransaction(ctx context.Context, txFunc func(ctx context.Context) error) error {
	return txFunc(ctx)
}

type fakeRunner struct {
	lastFilter *models.RunFilter
	lastLabel  string
	summary    *models.RunSummary
}

func (f *fakeRunner) RunCheck(_ context.Context, filter *models.RunFilter, runLabel string) (*models.RunSummary, error) {
	f.lastFilter = filter
	f.lastLabel = runLabel

	return f.summary, nil
}

type botFixture struct {
	subscriberRepo *memory.SubscriberRepository
	runner         *fakeRunner
	bot            *botservice.BotService
}

func newBotFixture(t *testing.T) *botFixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	registryRepo := memory.NewRegistryRepository()
	snapshotRepo := memory.NewSnapshotRepository()
	digestRepo := memory.NewDigestRepository()
	subscriberRepo := memory.NewSubscriberRepository(registryRepo)

	registryService := monitorservice.NewRegistryService(
		registryRepo,
		snapshotRepo,
		digestRepo,
		subscriberRepo,
		nil,
		passthroughTx{},
		logger,
	)

	runner := &fakeRunner{summary: &models.RunSummary{}}

	return &botFixture{
		subscriberRepo: subscriberRepo,
		runner:         runner,
		bot:            botservice.NewBotService(registryService, runner, logger),
	}
}

func (f *botFixture) command(t *testing.T, text string) string {
	t.Helper()

	response, err := f.bot.ProcessCommand(context.Background(), 42, text)
	require.NoError(t, err)

	return response
}

func TestBotService_Help(t *testing.T) {
	t.Parallel()

	f := newBotFixture(t)

	response := f.command(t, "/help")

	assert.Contains(t, response, "/monitor topic list|add|remove")
	assert.Contains(t, response, "/monitor subscribe")
}

func TestBotService_TopicLifecycle(t *testing.T) {
	t.Parallel()

	f := newBotFixture(t)

	assert.Equal(t, "✅ Topic 'competitors' created", f.command(t, "/monitor topic add competitors rival watch"))
	assert.Equal(t, "Topic 'competitors' already exists.", f.command(t, "/monitor topic add competitors"))

	listing := f.command(t, "/monitor topic list")
	assert.Contains(t, listing, "competitors")
	assert.Contains(t, listing, "rival watch")

	assert.Equal(t, "✅ Deleted topic 'competitors'", f.command(t, "/monitor topic remove competitors"))
	assert.Equal(t, "Topic 'ghost' not found.", f.command(t, "/monitor topic remove ghost"))
}

func TestBotService_EntityAndResource(t *testing.T) {
	t.Parallel()

	f := newBotFixture(t)

	f.command(t, "/monitor topic add competitors")

	response := f.command(t, "/monitor entity add competitors acme https://acme.example company")
	assert.Equal(t, "✅ Entity 'acme' added to topic 'competitors'", response)

	response = f.command(t, "/monitor entity add competitors beta https://beta.example spaceship")
	assert.Contains(t, response, "Invalid type 'spaceship'")

	response = f.command(t, "/monitor resource add acme https://acme.example/blog blog")
	assert.Equal(t, "✅ Resource 'acme blog' added to 'acme'", response)

	listing := f.command(t, "/monitor resource list acme")
	assert.Contains(t, listing, "acme blog")
	assert.Contains(t, listing, "never")
}

func TestBotService_SubscribeUsesChatID(t *testing.T) {
	t.Parallel()

	f := newBotFixture(t)

	f.command(t, "/monitor topic add competitors")

	response := f.command(t, "/monitor subscribe competitors telegram")
	assert.Equal(t, "✅ Subscribed to 'competitors' via telegram", response)

	subscribers, err := f.subscriberRepo.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, subscribers, 1)
	assert.Equal(t, models.ChannelTelegram, subscribers[0].ChannelType)
	assert.JSONEq(t, `{"chat_id": 42}`, string(subscribers[0].ChannelConfig))
}

func TestBotService_SubscribeWebhookRequiresURL(t *testing.T) {
	t.Parallel()

	f := newBotFixture(t)

	f.command(t, "/monitor topic add competitors")

	response := f.command(t, "/monitor subscribe competitors webhook")
	assert.Contains(t, response, "Webhook requires URL")

	response = f.command(t, "/monitor subscribe competitors webhook https://hooks.example/x")
	assert.Equal(t, "✅ Subscribed to 'competitors' via webhook", response)
}

func TestBotService_SubscribeUnknownTarget(t *testing.T) {
	t.Parallel()

	f := newBotFixture(t)

	response := f.command(t, "/monitor subscribe ghost telegram")

	assert.Equal(t, "'ghost' not found as topic, entity or resource.", response)
}

func TestBotService_CheckFormatsDigests(t *testing.T) {
	t.Parallel()

	f := newBotFixture(t)
	f.runner.summary = &models.RunSummary{
		Changed: 1,
		Digests: []*models.Digest{
			{ResourceName: "acme blog", Summary: "New post published", ChangeType: "new_post"},
		},
	}

	response := f.command(t, "/monitor check competitors")

	assert.Equal(t, "Check [competitors]", f.runner.lastLabel)
	require.NotNil(t, f.runner.lastFilter)
	assert.Equal(t, "competitors", f.runner.lastFilter.TopicName)
	assert.Contains(t, response, "1 change(s) found")
	assert.Contains(t, response, "<b>acme blog</b>: New post published")
}

func TestBotService_CheckNoChanges(t *testing.T) {
	t.Parallel()

	f := newBotFixture(t)

	response := f.command(t, "/monitor check")

	assert.Nil(t, f.runner.lastFilter)
	assert.Contains(t, response, "No changes detected")
}

func TestBotService_UnknownCommand(t *testing.T) {
	t.Parallel()

	f := newBotFixture(t)

	response := f.command(t, "/frobnicate")

	assert.Contains(t, response, "Usage:")
}
