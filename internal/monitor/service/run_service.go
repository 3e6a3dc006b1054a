package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/central-university-dev/go-WebMonitor/internal/common/metrics"
	"github.com/central-university-dev/go-WebMonitor/internal/domain/models"
	"github.com/central-university-dev/go-WebMonitor/internal/monitor/repository"
)

type ResourceChecker interface {
	CheckResource(ctx context.Context, resource *models.Resource) (*models.CheckResult, error)
	GenerateDigest(ctx context.Context, result *models.CheckResult) (*models.Digest, error)
}

type NotificationDispatcher interface {
	Dispatch(ctx context.Context, subscriber *models.Subscriber, digests []*models.Digest, runLabel string) error
}

// RunService выполняет полный прогон проверки: ресурсы обрабатываются пулом
// воркеров, затем для изменённых генерируются дайджесты, и только после
// обработки всех ресурсов рассылаются уведомления. Конкурентные запуски
// сериализуются: второй вызов ждёт завершения первого.
type RunService struct {
	checker      ResourceChecker
	registryRepo repository.RegistryRepository
	resolver     *SubscriberResolver
	dispatcher   NotificationDispatcher
	workers      int
	logger       *slog.Logger
	runMu        sync.Mutex
}

func NewRunService(
	checker ResourceChecker,
	registryRepo repository.RegistryRepository,
	resolver *SubscriberResolver,
	dispatcher NotificationDispatcher,
	workers int,
	logger *slog.Logger,
) *RunService {
	if workers <= 0 {
		workers = 5
	}

	return &RunService{
		checker:      checker,
		registryRepo: registryRepo,
		resolver:     resolver,
		dispatcher:   dispatcher,
		workers:      workers,
		logger:       logger,
	}
}

func (s *RunService) RunCheck(ctx context.Context, filter *models.RunFilter, runLabel string) (*models.RunSummary, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	resources, err := s.registryRepo.GetActiveResources(ctx, filter)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Начало прогона проверки",
		"label", runLabel,
		"resources", len(resources),
		"workers", s.workers,
	)

	s.updateActiveResourcesMetrics(ctx)

	results := s.checkAll(ctx, resources)

	summary := &models.RunSummary{}

	for _, result := range results {
		switch result.Outcome {
		case models.OutcomeBaseline:
			summary.Baseline++
		case models.OutcomeUnchanged:
			summary.Unchanged++
		case models.OutcomeChanged:
			summary.Changed++

			digest, digestErr := s.checker.GenerateDigest(ctx, result)
			if digestErr != nil {
				s.logger.Error("Дайджест не сгенерирован, снимок сохранён",
					"resourceID", result.Resource.ID,
					"error", digestErr,
				)

				continue
			}

			summary.Digests = append(summary.Digests, digest)
		case models.OutcomeFetchFailed:
			summary.Failed++
		}
	}

	s.notifySubscribers(ctx, summary.Digests, runLabel)

	s.logger.Info("Прогон проверки завершён",
		"label", runLabel,
		"baseline", summary.Baseline,
		"unchanged", summary.Unchanged,
		"changed", summary.Changed,
		"failed", summary.Failed,
		"digests", len(summary.Digests),
	)

	return summary, nil
}

// checkAll прогоняет ресурсы через пул воркеров. Ошибка одного ресурса не
// прерывает обработку остальных: он учитывается как fetch_failed.
func (s *RunService) checkAll(ctx context.Context, resources []*models.Resource) []*models.CheckResult {
	resourceCh := make(chan *models.Resource)
	results := make([]*models.CheckResult, 0, len(resources))

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)

	for i := 0; i < s.workers; i++ {
		workerID := i + 1

		wg.Add(1)

		go func(workerID int) {
			defer wg.Done()

			for resource := range resourceCh {
				s.logger.Debug("Воркер проверяет ресурс",
					"worker", workerID,
					"resourceID", resource.ID,
					"url", resource.URL,
				)

				result, err := s.checker.CheckResource(ctx, resource)
				if err != nil {
					s.logger.Error("Ошибка при проверке ресурса",
						"worker", workerID,
						"resourceID", resource.ID,
						"url", resource.URL,
						"error", err,
					)

					result = &models.CheckResult{
						Resource: resource,
						Outcome:  models.OutcomeFetchFailed,
						Err:      err,
					}
				}

				mu.Lock()
				results = append(results, result)
				mu.Unlock()
			}
		}(workerID)
	}

	go func() {
		for _, resource := range resources {
			resourceCh <- resource
		}

		close(resourceCh)
	}()

	wg.Wait()

	return results
}

// notifySubscribers рассылает дайджесты. Прогон без изменений тихий: ни одно
// уведомление не отправляется.
func (s *RunService) notifySubscribers(ctx context.Context, digests []*models.Digest, runLabel string) {
	if len(digests) == 0 {
		return
	}

	deliveries := s.resolver.ResolveDeliveries(ctx, digests)

	for _, delivery := range deliveries {
		err := s.dispatcher.Dispatch(ctx, delivery.Subscriber, delivery.Digests, runLabel)
		if err != nil {
			s.logger.Error("Ошибка при отправке уведомления подписчику",
				"subscriberID", delivery.Subscriber.ID,
				"channelType", delivery.Subscriber.ChannelType,
				"error", err,
			)
		}
	}
}

func (s *RunService) updateActiveResourcesMetrics(ctx context.Context) {
	counts, err := s.registryRepo.CountActiveResources(ctx)
	if err != nil {
		s.logger.Error("Ошибка при подсчёте активных ресурсов для метрик", "error", err)
		return
	}

	for resourceType, count := range counts {
		metrics.UpdateActiveResourcesCount(string(resourceType), float64(count))
	}
}
