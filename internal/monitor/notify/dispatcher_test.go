package notify_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/central-university-dev/go-WebMonitor/internal/config"
	customerrors "github.com/central-university-dev/go-WebMonitor/internal/domain/errors"
	"github.com/central-university-dev/go-WebMonitor/internal/domain/models"
	"github.com/central-university-dev/go-WebMonitor/internal/monitor/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNotifier struct {
	sent []*models.Subscriber
	err  error
}

func (f *fakeNotifier) Send(_ context.Context, subscriber *models.Subscriber, _ []*models.Digest, _ string) error {
	if f.err != nil {
		return f.err
	}

	f.sent = append(f.sent, subscriber)

	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDispatcher_RoutesByChannelType(t *testing.T) {
	telegram := &fakeNotifier{}
	webhook := &fakeNotifier{}

	dispatcher := notify.NewDispatcher(testLogger())
	dispatcher.Register(models.ChannelTelegram, telegram)
	dispatcher.Register(models.ChannelWebhook, webhook)

	digests := []*models.Digest{{ResourceName: "blog", Summary: "update", ChangeType: "content_update"}}

	err := dispatcher.Dispatch(context.Background(),
		&models.Subscriber{ID: 1, ChannelType: models.ChannelTelegram}, digests, "Check")
	require.NoError(t, err)

	err = dispatcher.Dispatch(context.Background(),
		&models.Subscriber{ID: 2, ChannelType: models.ChannelWebhook}, digests, "Check")
	require.NoError(t, err)

	assert.Len(t, telegram.sent, 1)
	assert.Len(t, webhook.sent, 1)
	assert.Equal(t, int64(1), telegram.sent[0].ID)
	assert.Equal(t, int64(2), webhook.sent[0].ID)
}

func TestDispatcher_UnknownChannel(t *testing.T) {
	dispatcher := notify.NewDispatcher(testLogger())

	err := dispatcher.Dispatch(context.Background(),
		&models.Subscriber{ID: 1, ChannelType: "pigeon"}, nil, "Check")

	require.Error(t, err)
	assert.True(t, errors.Is(err, &customerrors.ErrUnknownChannelType{}))
}

func TestDispatcher_NotifierError(t *testing.T) {
	failing := &fakeNotifier{err: errors.New("канал недоступен")}

	dispatcher := notify.NewDispatcher(testLogger())
	dispatcher.Register(models.ChannelTelegram, failing)

	err := dispatcher.Dispatch(context.Background(),
		&models.Subscriber{ID: 1, ChannelType: models.ChannelTelegram}, nil, "Check")

	require.Error(t, err)
}

func TestWebhookNotifier_Send(t *testing.T) {
	var received struct {
		Text string `json:"text"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := &config.Config{
		ExternalRequestTimeout:     5 * time.Second,
		RetryCount:                 1,
		RetryBackoff:               50 * time.Millisecond,
		RetryableStatusCodes:       []int{500},
		CBSlidingWindowSize:        100,
		CBMinimumRequiredCalls:     10,
		CBFailureRateThreshold:     90,
		CBPermittedCallsInHalfOpen: 3,
		CBWaitDurationInOpenState:  10 * time.Second,
	}

	notifier := notify.NewWebhookNotifier(cfg, testLogger())

	channelConfig, _ := json.Marshal(map[string]string{"webhook_url": server.URL})
	subscriber := &models.Subscriber{ID: 7, ChannelType: models.ChannelWebhook, ChannelConfig: channelConfig}

	digests := []*models.Digest{{ResourceName: "pricing", Summary: "price up", ChangeType: "price_change"}}

	err := notifier.Send(context.Background(), subscriber, digests, "Check")

	require.NoError(t, err)
	assert.Contains(t, received.Text, "pricing")
	assert.Contains(t, received.Text, "price up")
}

func TestWebhookNotifier_MissingURL(t *testing.T) {
	cfg := &config.Config{
		ExternalRequestTimeout:     5 * time.Second,
		RetryableStatusCodes:       []int{},
		CBSlidingWindowSize:        100,
		CBMinimumRequiredCalls:     10,
		CBFailureRateThreshold:     90,
		CBPermittedCallsInHalfOpen: 3,
		CBWaitDurationInOpenState:  10 * time.Second,
	}

	notifier := notify.NewWebhookNotifier(cfg, testLogger())

	subscriber := &models.Subscriber{
		ID:            7,
		ChannelType:   models.ChannelWebhook,
		ChannelConfig: json.RawMessage(`{}`),
	}

	err := notifier.Send(context.Background(), subscriber, nil, "Check")

	require.Error(t, err)

	var invalidCfg *customerrors.ErrInvalidChannelConfig

	assert.True(t, errors.As(err, &invalidCfg))
}
