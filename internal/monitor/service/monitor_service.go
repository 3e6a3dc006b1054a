package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/central-university-dev/go-WebMonitor/internal/common"
	"github.com/central-university-dev/go-WebMonitor/internal/common/metrics"
	customerrors "github.com/central-university-dev/go-WebMonitor/internal/domain/errors"
	"github.com/central-university-dev/go-WebMonitor/internal/domain/models"
	"github.com/central-university-dev/go-WebMonitor/internal/monitor/cache"
	"github.com/central-university-dev/go-WebMonitor/internal/monitor/clients"
	"github.com/central-university-dev/go-WebMonitor/internal/monitor/repository"
)

type Transactor interface {
	WithTransaction(ctx context.Context, txFunc func(ctx context.Context) error) error
}

// MonitorService выполняет проверку одного ресурса: получает содержимое,
// сравнивает хеш с последним снимком и сохраняет новый снимок. История
// снимков append-only.
type MonitorService struct {
	registryRepo repository.RegistryRepository
	snapshotRepo repository.SnapshotRepository
	digestRepo   repository.DigestRepository
	fetcher      clients.ContentFetcher
	summarizer   clients.ChangeSummarizer
	hashCache    cache.HashCache
	txManager    Transactor
	logger       *slog.Logger
}

func NewMonitorService(
	registryRepo repository.RegistryRepository,
	snapshotRepo repository.SnapshotRepository,
	digestRepo repository.DigestRepository,
	fetcher clients.ContentFetcher,
	summarizer clients.ChangeSummarizer,
	hashCache cache.HashCache,
	txManager Transactor,
	logger *slog.Logger,
) *MonitorService {
	return &MonitorService{
		registryRepo: registryRepo,
		snapshotRepo: snapshotRepo,
		digestRepo:   digestRepo,
		fetcher:      fetcher,
		summarizer:   summarizer,
		hashCache:    hashCache,
		txManager:    txManager,
		logger:       logger,
	}
}

// CheckResource проверяет один ресурс. Ошибка выборки содержимого не считается
// ошибкой проверки: состояние ресурса не меняется, возвращается результат с
// исходом fetch_failed. Ошибка возвращается только при сбое персистентности.
func (s *MonitorService) CheckResource(ctx context.Context, resource *models.Resource) (*models.CheckResult, error) {
	startTime := time.Now()

	s.logger.Info("Проверка ресурса",
		"resourceID", resource.ID,
		"url", resource.URL,
		"type", resource.Type,
	)

	content, err := s.fetcher.FetchContent(ctx, resource)
	if err != nil {
		s.logger.Error("Ошибка при получении содержимого ресурса",
			"resourceID", resource.ID,
			"url", resource.URL,
			"error", err,
		)

		metrics.RecordResourceCheck(string(resource.Type), string(models.OutcomeFetchFailed), time.Since(startTime))

		return &models.CheckResult{
			Resource: resource,
			Outcome:  models.OutcomeFetchFailed,
			Err:      err,
		}, nil
	}

	contentHash := common.HashContent(content)

	outcome, previousContent, err := s.classifyCheck(ctx, resource, contentHash)
	if err != nil {
		return nil, err
	}

	now := time.Now()

	snapshot := &models.Snapshot{
		ResourceID:  resource.ID,
		EntityID:    resource.EntityID,
		TopicID:     resource.TopicID,
		ContentHash: contentHash,
		Content:     content,
		HasChanges:  outcome == models.OutcomeChanged,
		FetchedAt:   now,
	}

	err = s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.snapshotRepo.Save(ctx, snapshot); err != nil {
			return err
		}

		var changedAt *time.Time
		if outcome == models.OutcomeChanged {
			changedAt = &now
		}

		return s.registryRepo.UpdateResourceCheckState(ctx, resource.ID, now, changedAt)
	})
	if err != nil {
		return nil, err
	}

	if s.hashCache != nil {
		if cacheErr := s.hashCache.SetHash(ctx, resource.ID, contentHash); cacheErr != nil {
			s.logger.Warn("Не удалось обновить кэш хеша",
				"resourceID", resource.ID,
				"error", cacheErr,
			)
		}
	}

	metrics.RecordResourceCheck(string(resource.Type), string(outcome), time.Since(startTime))

	s.logger.Info("Проверка ресурса завершена",
		"resourceID", resource.ID,
		"outcome", outcome,
		"snapshotID", snapshot.ID,
	)

	return &models.CheckResult{
		Resource:        resource,
		Outcome:         outcome,
		SnapshotID:      snapshot.ID,
		PreviousContent: previousContent,
		CurrentContent:  content,
	}, nil
}

// classifyCheck определяет исход проверки по последнему известному хешу.
func (s *MonitorService) classifyCheck(
	ctx context.Context,
	resource *models.Resource,
	contentHash string,
) (models.CheckOutcome, string, error) {
	if s.hashCache != nil {
		cachedHash, cacheErr := s.hashCache.GetHash(ctx, resource.ID)
		if cacheErr != nil {
			s.logger.Warn("Не удалось прочитать кэш хеша",
				"resourceID", resource.ID,
				"error", cacheErr,
			)
		} else if cachedHash != "" && cachedHash == contentHash {
			return models.OutcomeUnchanged, "", nil
		}
	}

	latest, err := s.snapshotRepo.FindLatestByResourceID(ctx, resource.ID)
	if err != nil {
		if errors.Is(err, &customerrors.ErrSnapshotNotFound{}) {
			return models.OutcomeBaseline, "", nil
		}

		return "", "", err
	}

	if latest.ContentHash == contentHash {
		return models.OutcomeUnchanged, "", nil
	}

	return models.OutcomeChanged, latest.Content, nil
}

// GenerateDigest суммирует изменения по результату проверки и сохраняет
// дайджест. При ошибке суммаризации дайджест не создаётся, но снимок уже
// сохранён, поэтому следующая проверка не продублирует изменение.
func (s *MonitorService) GenerateDigest(ctx context.Context, result *models.CheckResult) (*models.Digest, error) {
	resource := result.Resource

	summaryResult, err := s.summarizer.SummarizeChanges(ctx, resource, result.PreviousContent, result.CurrentContent)
	if err != nil {
		s.logger.Error("Ошибка при суммаризации изменений",
			"resourceID", resource.ID,
			"snapshotID", result.SnapshotID,
			"error", err,
		)

		return nil, err
	}

	digest := &models.Digest{
		ResourceID:   resource.ID,
		EntityID:     resource.EntityID,
		TopicID:      resource.TopicID,
		SnapshotID:   result.SnapshotID,
		ResourceName: resource.Name,
		ResourceType: resource.Type,
		Summary:      summaryResult.Summary,
		ChangeType:   summaryResult.ChangeType,
		CreatedAt:    time.Now(),
	}

	if entity, entityErr := s.registryRepo.FindEntityByID(ctx, resource.EntityID); entityErr == nil {
		digest.EntityName = entity.Name
	}

	err = s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		return s.digestRepo.Save(ctx, digest)
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordDigestGenerated(digest.ChangeType)

	s.logger.Info("Дайджест сохранён",
		"digestID", digest.ID,
		"resourceID", resource.ID,
		"changeType", digest.ChangeType,
	)

	return digest, nil
}
