package repository_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/central-university-dev/go-WebMonitor/internal/config"
	"github.com/central-university-dev/go-WebMonitor/internal/database"
	customerrors "github.com/central-university-dev/go-WebMonitor/internal/domain/errors"
	"github.com/central-university-dev/go-WebMonitor/internal/domain/models"
	"github.com/central-university-dev/go-WebMonitor/internal/monitor/repository"
	"github.com/central-university-dev/go-WebMonitor/pkg/txs"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	testDB *database.PostgresDB
	logger *slog.Logger
)

func setupTestDatabase(ctx context.Context) (*database.PostgresDB, func(), error) {
	dbName := "testdb"
	dbUser := "testuser"
	dbPassword := "testpassword"

	container, err := postgres.Run(ctx,
		"postgres:16",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(10*time.Second),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("не удалось запустить контейнер postgres: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("не удалось получить хост контейнера: %w", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return nil, nil, fmt.Errorf("не удалось получить порт контейнера: %w", err)
	}

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", dbUser, dbPassword, host, port.Port(), dbName)

	migrationsPath, _ := filepath.Abs("../../../migrations")
	migrateURL := fmt.Sprintf("file://%s", migrationsPath)

	m, err := migrate.New(migrateURL, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("не удалось создать экземпляр migrate: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return nil, nil, fmt.Errorf("не удалось применить миграции: %w", err)
	}

	sourceErr, dbErr := m.Close()
	if sourceErr != nil {
		return nil, nil, fmt.Errorf("ошибка закрытия источника миграций: %w", sourceErr)
	}

	if dbErr != nil {
		return nil, nil, fmt.Errorf("ошибка закрытия подключения БД миграций: %w", dbErr)
	}

	logger.Info("Миграции успешно применены к тестовой БД")

	testCfg := &config.Config{
		DatabaseURL:     dsn,
		DatabaseMaxConn: 5,
	}

	db, err := database.NewPostgresDB(ctx, testCfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("не удалось подключиться к тестовой БД: %w", err)
	}

	cleanup := func() {
		if err := container.Terminate(ctx); err != nil {
			logger.Error("Не удалось остановить контейнер postgres", "error", err)
		}

		logger.Info("Контейнер postgres остановлен")
	}

	return db, cleanup, nil
}

func TestMain(m *testing.M) {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	exitCode := func() int {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		var cleanup func()

		var err error

		testDB, cleanup, err = setupTestDatabase(ctx)
		if err != nil {
			logger.Error("Ошибка при настройке тестовой БД", "error", err)
			return 1
		}

		code := m.Run()

		cleanup()

		return code
	}()

	os.Exit(exitCode)
}

func clearTables(ctx context.Context, t *testing.T) {
	t.Helper()

	tables := []string{
		"subscribers",
		"digests",
		"snapshots",
		"resources",
		"entities",
		"topics",
	}
	for _, table := range tables {
		query := fmt.Sprintf("DELETE FROM %s", table)
		_, err := testDB.Pool.Exec(ctx, query)

		require.NoErrorf(t, err, "Failed to clear table %s", table)
	}

	sequences := []string{
		"topics_id_seq",
		"entities_id_seq",
		"resources_id_seq",
		"snapshots_id_seq",
		"digests_id_seq",
		"subscribers_id_seq",
	}
	for _, seq := range sequences {
		query := fmt.Sprintf("ALTER SEQUENCE %s RESTART WITH 1", seq)

		_, err := testDB.Pool.Exec(ctx, query)
		if err != nil {
			t.Logf("Warning: failed to restart sequence %s: %v", seq, err)
		}
	}
}

type testRepos struct {
	registry   repository.RegistryRepository
	snapshot   repository.SnapshotRepository
	digest     repository.DigestRepository
	subscriber repository.SubscriberRepository
}

func createRepos(t *testing.T, accessType config.AccessType) *testRepos {
	t.Helper()

	quietLogger := slog.New(slog.NewTextHandler(io.Discard, nil))

	testCfg := &config.Config{
		DatabaseAccessType: accessType,
	}

	txManager := txs.NewTxManager(testDB.Pool, quietLogger)
	factory := repository.NewFactory(testDB, txManager, testCfg, quietLogger)

	registryRepo, err := factory.CreateRegistryRepository()
	require.NoError(t, err, "Ошибка создания RegistryRepository для %s", accessType)

	snapshotRepo, err := factory.CreateSnapshotRepository()
	require.NoError(t, err, "Ошибка создания SnapshotRepository для %s", accessType)

	digestRepo, err := factory.CreateDigestRepository()
	require.NoError(t, err, "Ошибка создания DigestRepository для %s", accessType)

	subscriberRepo, err := factory.CreateSubscriberRepository()
	require.NoError(t, err, "Ошибка создания SubscriberRepository для %s", accessType)

	return &testRepos{
		registry:   registryRepo,
		snapshot:   snapshotRepo,
		digest:     digestRepo,
		subscriber: subscriberRepo,
	}
}

func seedTree(ctx context.Context, t *testing.T, repos *testRepos) (*models.Topic, *models.Entity, *models.Resource) {
	t.Helper()

	topic := &models.Topic{Name: "competitors", Description: "rival watch", Enabled: true}
	require.NoError(t, repos.registry.SaveTopic(ctx, topic))
	require.NotZero(t, topic.ID)

	entity := &models.Entity{
		TopicID: topic.ID,
		Name:    "acme",
		URL:     "https://acme.example",
		Type:    models.EntityCompany,
		Enabled: true,
	}
	require.NoError(t, repos.registry.SaveEntity(ctx, entity))
	require.NotZero(t, entity.ID)

	resource := &models.Resource{
		EntityID: entity.ID,
		TopicID:  topic.ID,
		Name:     "acme blog",
		URL:      "https://acme.example/blog",
		Type:     models.ResourceBlog,
		Enabled:  true,
	}
	require.NoError(t, repos.registry.SaveResource(ctx, resource))
	require.NotZero(t, resource.ID)

	return topic, entity, resource
}

//nolint:funlen // Покрытие всех репозиториев одним прогоном на каждую реализацию.
func runTestsForConfig(t *testing.T, accessType config.AccessType) {
	t.Helper()

	ctx := context.Background()
	repos := createRepos(t, accessType)

	t.Run("RegistryRepository topics", func(t *testing.T) {
		clearTables(ctx, t)

		topic := &models.Topic{Name: "competitors", Description: "rival watch", Enabled: true}
		err := repos.registry.SaveTopic(ctx, topic)
		require.NoError(t, err, "SaveTopic failed for %s", accessType)
		require.NotZero(t, topic.ID, "Topic ID should be set after save for %s", accessType)
		require.False(t, topic.CreatedAt.IsZero(), "CreatedAt should be set for %s", accessType)

		found, err := repos.registry.FindTopicByName(ctx, "competitors")
		require.NoError(t, err, "FindTopicByName failed for %s", accessType)
		assert.Equal(t, topic.ID, found.ID)
		assert.Equal(t, "rival watch", found.Description)
		assert.True(t, found.Enabled)

		duplicate := &models.Topic{Name: "competitors", Enabled: true}
		err = repos.registry.SaveTopic(ctx, duplicate)
		require.Error(t, err, "Saving duplicate topic should fail for %s", accessType)
		assert.True(t, errors.Is(err, &customerrors.ErrTopicAlreadyExists{}), "Error should be ErrTopicAlreadyExists for %s", accessType)

		second := &models.Topic{Name: "vendors", Enabled: true}
		require.NoError(t, repos.registry.SaveTopic(ctx, second))

		topics, err := repos.registry.GetTopics(ctx)
		require.NoError(t, err, "GetTopics failed for %s", accessType)
		assert.Len(t, topics, 2)

		err = repos.registry.DeleteTopic(ctx, second.ID)
		require.NoError(t, err, "DeleteTopic failed for %s", accessType)

		_, err = repos.registry.FindTopicByID(ctx, second.ID)
		require.Error(t, err, "FindTopicByID after delete should fail for %s", accessType)
		assert.True(t, errors.Is(err, &customerrors.ErrTopicNotFound{}), "Error should be ErrTopicNotFound for %s", accessType)
	})

	t.Run("RegistryRepository entities", func(t *testing.T) {
		clearTables(ctx, t)

		topic, entity, _ := seedTree(ctx, t, repos)

		found, err := repos.registry.FindEntityByName(ctx, topic.ID, "acme")
		require.NoError(t, err, "FindEntityByName failed for %s", accessType)
		assert.Equal(t, entity.ID, found.ID)
		assert.Equal(t, models.EntityCompany, found.Type)

		// Глобальный поиск по имени находит сущность без знания топика.
		looked, err := repos.registry.LookupEntityByName(ctx, "acme")
		require.NoError(t, err, "LookupEntityByName failed for %s", accessType)
		assert.Equal(t, entity.ID, looked.ID)

		_, err = repos.registry.LookupEntityByName(ctx, "ghost")
		require.Error(t, err)
		assert.True(t, errors.Is(err, &customerrors.ErrEntityNotFound{}), "Error should be ErrEntityNotFound for %s", accessType)

		entities, err := repos.registry.GetEntitiesByTopicID(ctx, topic.ID)
		require.NoError(t, err)
		assert.Len(t, entities, 1)
	})

	t.Run("RegistryRepository resources and check state", func(t *testing.T) {
		clearTables(ctx, t)

		topic, entity, resource := seedTree(ctx, t, repos)

		active, err := repos.registry.GetActiveResources(ctx, nil)
		require.NoError(t, err, "GetActiveResources failed for %s", accessType)
		require.Len(t, active, 1)
		assert.Equal(t, resource.ID, active[0].ID)
		assert.True(t, active[0].LastCheckedAt.IsZero(), "New resource should never have been checked for %s", accessType)

		filtered, err := repos.registry.GetActiveResources(ctx, &models.RunFilter{TopicName: topic.Name})
		require.NoError(t, err)
		assert.Len(t, filtered, 1)

		filtered, err = repos.registry.GetActiveResources(ctx, &models.RunFilter{EntityName: entity.Name})
		require.NoError(t, err)
		assert.Len(t, filtered, 1)

		filtered, err = repos.registry.GetActiveResources(ctx, &models.RunFilter{TopicName: "ghost"})
		require.NoError(t, err)
		assert.Empty(t, filtered)

		checkedAt := time.Now().Truncate(time.Microsecond)
		err = repos.registry.UpdateResourceCheckState(ctx, resource.ID, checkedAt, nil)
		require.NoError(t, err, "UpdateResourceCheckState failed for %s", accessType)

		updated, err := repos.registry.FindResourceByID(ctx, resource.ID)
		require.NoError(t, err)
		assert.WithinDuration(t, checkedAt, updated.LastCheckedAt, time.Second)
		assert.True(t, updated.LastChangedAt.IsZero(), "LastChangedAt should stay empty without changes for %s", accessType)

		changedAt := time.Now().Truncate(time.Microsecond)
		err = repos.registry.UpdateResourceCheckState(ctx, resource.ID, changedAt, &changedAt)
		require.NoError(t, err)

		updated, err = repos.registry.FindResourceByID(ctx, resource.ID)
		require.NoError(t, err)
		assert.WithinDuration(t, changedAt, updated.LastChangedAt, time.Second)

		counts, err := repos.registry.CountActiveResources(ctx)
		require.NoError(t, err, "CountActiveResources failed for %s", accessType)
		assert.Equal(t, 1, counts[models.ResourceBlog])

		err = repos.registry.DeleteResource(ctx, resource.ID)
		require.NoError(t, err)

		_, err = repos.registry.FindResourceByID(ctx, resource.ID)
		require.Error(t, err)
		assert.True(t, errors.Is(err, &customerrors.ErrResourceNotFound{}), "Error should be ErrResourceNotFound for %s", accessType)
	})

	t.Run("SnapshotRepository Save and FindLatest", func(t *testing.T) {
		clearTables(ctx, t)

		topic, entity, resource := seedTree(ctx, t, repos)

		_, err := repos.snapshot.FindLatestByResourceID(ctx, resource.ID)
		require.Error(t, err, "FindLatest on empty history should fail for %s", accessType)
		assert.True(t, errors.Is(err, &customerrors.ErrSnapshotNotFound{}), "Error should be ErrSnapshotNotFound for %s", accessType)

		first := &models.Snapshot{
			ResourceID:  resource.ID,
			EntityID:    entity.ID,
			TopicID:     topic.ID,
			ContentHash: "hash-1",
			Content:     "# v1",
			FetchedAt:   time.Now().Add(-time.Hour).Truncate(time.Microsecond),
		}
		require.NoError(t, repos.snapshot.Save(ctx, first))
		require.NotZero(t, first.ID)

		second := &models.Snapshot{
			ResourceID:  resource.ID,
			EntityID:    entity.ID,
			TopicID:     topic.ID,
			ContentHash: "hash-2",
			Content:     "# v2",
			HasChanges:  true,
			FetchedAt:   time.Now().Truncate(time.Microsecond),
		}
		require.NoError(t, repos.snapshot.Save(ctx, second))

		latest, err := repos.snapshot.FindLatestByResourceID(ctx, resource.ID)
		require.NoError(t, err, "FindLatestByResourceID failed for %s", accessType)
		assert.Equal(t, "hash-2", latest.ContentHash)
		assert.Equal(t, "# v2", latest.Content)
		assert.True(t, latest.HasChanges)

		err = repos.snapshot.DeleteByResourceID(ctx, resource.ID)
		require.NoError(t, err)

		_, err = repos.snapshot.FindLatestByResourceID(ctx, resource.ID)
		require.Error(t, err, "FindLatest after delete should fail for %s", accessType)
	})

	t.Run("DigestRepository FindRecent and FindByTopicID", func(t *testing.T) {
		clearTables(ctx, t)

		topic, entity, resource := seedTree(ctx, t, repos)

		otherTopic := &models.Topic{Name: "vendors", Enabled: true}
		require.NoError(t, repos.registry.SaveTopic(ctx, otherTopic))

		snapshot := &models.Snapshot{
			ResourceID:  resource.ID,
			EntityID:    entity.ID,
			TopicID:     topic.ID,
			ContentHash: "hash-1",
			Content:     "# v1",
			FetchedAt:   time.Now().Truncate(time.Microsecond),
		}
		require.NoError(t, repos.snapshot.Save(ctx, snapshot))

		digest := &models.Digest{
			ResourceID:   resource.ID,
			EntityID:     entity.ID,
			TopicID:      topic.ID,
			SnapshotID:   snapshot.ID,
			ResourceName: resource.Name,
			ResourceType: resource.Type,
			EntityName:   entity.Name,
			Summary:      "New post published",
			ChangeType:   "new_post",
		}
		err := repos.digest.Save(ctx, digest)
		require.NoError(t, err, "Save digest failed for %s", accessType)
		require.NotZero(t, digest.ID)

		recent, err := repos.digest.FindRecent(ctx, 10)
		require.NoError(t, err, "FindRecent failed for %s", accessType)
		require.Len(t, recent, 1)
		assert.Equal(t, "New post published", recent[0].Summary)
		assert.Equal(t, "acme blog", recent[0].ResourceName)
		assert.Equal(t, "acme", recent[0].EntityName)

		byTopic, err := repos.digest.FindByTopicID(ctx, topic.ID, 10)
		require.NoError(t, err, "FindByTopicID failed for %s", accessType)
		assert.Len(t, byTopic, 1)

		empty, err := repos.digest.FindByTopicID(ctx, otherTopic.ID, 10)
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("SubscriberRepository FindActiveForResource", func(t *testing.T) {
		clearTables(ctx, t)

		topic, entity, resource := seedTree(ctx, t, repos)

		topicSub := &models.Subscriber{
			TopicID:       &topic.ID,
			ChannelType:   models.ChannelTelegram,
			ChannelConfig: []byte(`{"chat_id": 42}`),
			Enabled:       true,
		}
		require.NoError(t, repos.subscriber.Save(ctx, topicSub))
		require.NotZero(t, topicSub.ID)

		entitySub := &models.Subscriber{
			EntityID:      &entity.ID,
			ChannelType:   models.ChannelWebhook,
			ChannelConfig: []byte(`{"url": "https://hooks.example/x"}`),
			Enabled:       true,
		}
		require.NoError(t, repos.subscriber.Save(ctx, entitySub))

		resourceSub := &models.Subscriber{
			ResourceID:    &resource.ID,
			ChannelType:   models.ChannelKafka,
			ChannelConfig: []byte(`{}`),
			Enabled:       true,
		}
		require.NoError(t, repos.subscriber.Save(ctx, resourceSub))

		all, err := repos.subscriber.GetAll(ctx)
		require.NoError(t, err, "GetAll failed for %s", accessType)
		assert.Len(t, all, 3)

		active, err := repos.subscriber.FindActiveForResource(ctx, resource)
		require.NoError(t, err, "FindActiveForResource failed for %s", accessType)
		assert.Len(t, active, 3, "All three scopes should match the resource for %s", accessType)

		err = repos.subscriber.Delete(ctx, entitySub.ID)
		require.NoError(t, err, "Delete failed for %s", accessType)

		active, err = repos.subscriber.FindActiveForResource(ctx, resource)
		require.NoError(t, err)
		assert.Len(t, active, 2)

		err = repos.subscriber.DeleteByTopicSweep(ctx, topic.ID)
		require.NoError(t, err, "DeleteByTopicSweep failed for %s", accessType)

		remaining, err := repos.subscriber.GetAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, remaining, "Topic sweep should remove all scoped subscribers for %s", accessType)
	})
}

func TestRepository_Implementations(t *testing.T) {
	t.Run("SQL Implementation", func(t *testing.T) {
		runTestsForConfig(t, config.SQLAccess)
	})
	t.Run("Squirrel Implementation", func(t *testing.T) {
		runTestsForConfig(t, config.SquirrelAccess)
	})
}
