package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/central-university-dev/go-WebMonitor/internal/domain/models"
	"github.com/go-co-op/gocron"
)

const scheduledRunLabel = "Scheduled check"

type CheckRunner interface {
	RunCheck(ctx context.Context, filter *models.RunFilter, runLabel string) (*models.RunSummary, error)
}

// Scheduler периодически запускает полный прогон проверки без фильтра.
type Scheduler struct {
	scheduler *gocron.Scheduler
	runner    CheckRunner
	logger    *slog.Logger
	interval  time.Duration
}

func NewScheduler(runner CheckRunner, interval time.Duration, logger *slog.Logger) *Scheduler {
	scheduler := gocron.NewScheduler(time.UTC)

	return &Scheduler{
		scheduler: scheduler,
		runner:    runner,
		logger:    logger,
		interval:  interval,
	}
}

func (s *Scheduler) Start() {
	s.logger.Info("Запуск планировщика проверок",
		"interval", s.interval.String(),
	)

	_, err := s.scheduler.Every(s.interval).Do(func() {
		s.logger.Info("Запуск планового прогона проверки")

		ctx := context.Background()

		summary, err := s.runner.RunCheck(ctx, nil, scheduledRunLabel)
		if err != nil {
			s.logger.Error("Ошибка при плановом прогоне проверки",
				"error", err,
			)

			return
		}

		s.logger.Info("Плановый прогон проверки завершён",
			"total", summary.Total(),
			"changed", summary.Changed,
			"failed", summary.Failed,
		)
	})

	if err != nil {
		s.logger.Error("Ошибка при настройке планировщика",
			"error", err,
		)

		return
	}

	s.scheduler.StartAsync()
}

func (s *Scheduler) Stop() {
	s.logger.Info("Остановка планировщика")
	s.scheduler.Stop()
}
