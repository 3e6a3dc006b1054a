package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"log/slog"

	botclients "github.com/central-university-dev/go-WebMonitor/internal/bot/clients"
	botservice "github.com/central-university-dev/go-WebMonitor/internal/bot/service"
	"github.com/central-university-dev/go-WebMonitor/internal/bot/telegram"
	"github.com/central-university-dev/go-WebMonitor/internal/common/metrics"
	"github.com/central-university-dev/go-WebMonitor/internal/common/middleware"
	"github.com/central-university-dev/go-WebMonitor/internal/config"
	"github.com/central-university-dev/go-WebMonitor/internal/database"
	"github.com/central-university-dev/go-WebMonitor/internal/domain/models"
	"github.com/central-university-dev/go-WebMonitor/internal/monitor/cache"
	"github.com/central-university-dev/go-WebMonitor/internal/monitor/clients"
	"github.com/central-university-dev/go-WebMonitor/internal/monitor/handler"
	"github.com/central-university-dev/go-WebMonitor/internal/monitor/notify"
	"github.com/central-university-dev/go-WebMonitor/internal/monitor/repository"
	"github.com/central-university-dev/go-WebMonitor/internal/monitor/scheduler"
	"github.com/central-university-dev/go-WebMonitor/internal/monitor/service"
	"github.com/central-university-dev/go-WebMonitor/pkg"
	"github.com/central-university-dev/go-WebMonitor/pkg/txs"
)

type Scheduler interface {
	Start()
	Stop()
}

type Poller interface {
	Start()
	Stop()
}

func gracefulShutdown(
	ctx context.Context,
	server *http.Server,
	checkScheduler Scheduler,
	poller Poller,
	metricsServer *metrics.MetricsServer,
	kafkaNotifier *notify.KafkaNotifier,
	hashCache *cache.RedisHashCache,
	stopCh <-chan struct{},
	appLogger *slog.Logger,
) {
	<-stopCh
	appLogger.Info("Получен сигнал завершения")

	checkScheduler.Stop()

	if poller != nil {
		poller.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Ошибка при остановке HTTP сервера",
			"error", err,
		)
	}

	if err := metricsServer.Stop(shutdownCtx); err != nil {
		appLogger.Error("Ошибка при остановке сервера метрик",
			"error", err,
		)
	}

	if kafkaNotifier != nil {
		if err := kafkaNotifier.Close(); err != nil {
			appLogger.Error("Ошибка при закрытии Kafka нотификатора",
				"error", err,
			)
		}
	}

	if hashCache != nil {
		if err := hashCache.Close(); err != nil {
			appLogger.Error("Ошибка при закрытии Redis кеша",
				"error", err,
			)
		}
	}

	appLogger.Info("Сервер успешно остановлен")
}

func startHTTPServer(_ context.Context, server *http.Server, port int, stopCh chan<- struct{}, appLogger *slog.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		appLogger.Info("Получен системный сигнал",
			"signal", sig.String(),
		)
		close(stopCh)
	}()

	go func() {
		appLogger.Info("Запуск HTTP сервера монитора",
			"port", port,
		)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Ошибка при запуске HTTP сервера",
				"error", err,
			)
			close(stopCh)
		}
	}()
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка запуска сервиса: %v\n", err)
		os.Exit(1)
	}
}

//nolint:funlen // Длина функции обусловлена необходимостью последовательной инициализации всех компонентов.
func run() error {
	appLogger := pkg.NewLogger(os.Stdout)

	cfg := config.LoadConfig()

	ctx := context.Background()

	db, err := database.NewPostgresDB(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Error("Ошибка при подключении к базе данных",
			"error", err,
		)

		return fmt.Errorf("ошибка подключения к базе данных: %w", err)
	}

	defer db.Close()

	if err := database.RunMigrations(cfg, appLogger); err != nil {
		appLogger.Error("Ошибка при применении миграций",
			"error", err,
		)

		return fmt.Errorf("ошибка применения миграций: %w", err)
	}

	txManager := txs.NewTxManager(db.Pool, appLogger)

	repoFactory := repository.NewFactory(db, txManager, cfg, appLogger)

	registryRepo, err := repoFactory.CreateRegistryRepository()
	if err != nil {
		appLogger.Error("Ошибка при создании репозитория реестра",
			"error", err,
		)

		return err
	}

	snapshotRepo, err := repoFactory.CreateSnapshotRepository()
	if err != nil {
		appLogger.Error("Ошибка при создании репозитория снимков",
			"error", err,
		)

		return err
	}

	digestRepo, err := repoFactory.CreateDigestRepository()
	if err != nil {
		appLogger.Error("Ошибка при создании репозитория дайджестов",
			"error", err,
		)

		return err
	}

	subscriberRepo, err := repoFactory.CreateSubscriberRepository()
	if err != nil {
		appLogger.Error("Ошибка при создании репозитория подписчиков",
			"error", err,
		)

		return err
	}

	var hashCache *cache.RedisHashCache

	hashCache, err = cache.NewRedisHashCache(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB, cfg.RedisCacheTTL, appLogger)
	if err != nil {
		appLogger.Error("Ошибка при подключении к Redis",
			"error", err,
		)

		appLogger.Warn("Продолжаем без кеша хешей")

		hashCache = nil
	}

	crawlerClient := clients.NewCrawlerClient(cfg, appLogger)
	summarizerClient := clients.NewSummarizerClient(cfg, appLogger)

	telegramClient := botclients.NewTelegramClient(cfg.TelegramBotToken, appLogger)

	kafkaNotifier := notify.NewKafkaNotifier(
		strings.Split(cfg.KafkaBrokers, ","),
		cfg.TopicDigestUpdates,
		cfg.TopicDeadLetterQueue,
		appLogger,
	)

	dispatcher := notify.NewDispatcher(appLogger)
	dispatcher.Register(models.ChannelTelegram, notify.NewTelegramNotifier(telegramClient, appLogger))
	dispatcher.Register(models.ChannelWebhook, notify.NewWebhookNotifier(cfg, appLogger))
	dispatcher.Register(models.ChannelKafka, kafkaNotifier)

	var cacheForServices cache.HashCache
	if hashCache != nil {
		cacheForServices = hashCache
	}

	monitorService := service.NewMonitorService(
		registryRepo,
		snapshotRepo,
		digestRepo,
		crawlerClient,
		summarizerClient,
		cacheForServices,
		txManager,
		appLogger,
	)

	resolver := service.NewSubscriberResolver(subscriberRepo, appLogger)

	runService := service.NewRunService(
		monitorService,
		registryRepo,
		resolver,
		dispatcher,
		cfg.SchedulerWorkers,
		appLogger,
	)

	registryService := service.NewRegistryService(
		registryRepo,
		snapshotRepo,
		digestRepo,
		subscriberRepo,
		cacheForServices,
		txManager,
		appLogger,
	)

	botService := botservice.NewBotService(registryService, runService, appLogger)

	var poller Poller

	if cfg.TelegramBotToken != "" {
		if err := telegramClient.SetMyCommands(ctx, map[string]string{
			"start":   "Начало работы с ботом",
			"help":    "Показать справку по командам",
			"monitor": "Управление мониторингом ресурсов",
		}); err != nil {
			appLogger.Error("Ошибка при установке команд бота",
				"error", err,
			)
		}

		tgPoller := telegram.NewPoller(telegramClient, botService, appLogger)
		tgPoller.Start()

		poller = tgPoller
	} else {
		appLogger.Info("Telegram бот отключён: токен не задан")
	}

	monitorHandler := handler.NewMonitorHandler(runService, registryService, appLogger)

	mux := http.NewServeMux()
	monitorHandler.RegisterRoutes(mux)

	rateLimiter := middleware.NewRateLimiterMiddleware(
		ctx,
		cfg.RateLimitRequests,
		cfg.RateLimitWindow,
		appLogger,
	)

	metricsMiddleware := middleware.NewMetricsMiddleware("monitor")

	serverWithMiddleware := rateLimiter.Middleware(metricsMiddleware.Middleware(mux))

	metricsServer := metrics.NewMetricsServer(cfg.MonitorMetricsPort, appLogger)

	go func() {
		if err := metricsServer.Start(ctx); err != nil {
			appLogger.Error("Ошибка при запуске сервера метрик",
				"error", err,
			)
		}
	}()

	checkScheduler := scheduler.NewScheduler(runService, cfg.SchedulerCheckInterval, appLogger)
	checkScheduler.Start()

	httpServer := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.MonitorServerPort),
		Handler:           serverWithMiddleware,
		ReadHeaderTimeout: 10 * time.Second,
	}

	stopCh := make(chan struct{})

	startHTTPServer(ctx, httpServer, cfg.MonitorServerPort, stopCh, appLogger)

	gracefulShutdown(ctx, httpServer, checkScheduler, poller, metricsServer, kafkaNotifier, hashCache, stopCh, appLogger)

	return nil
}
