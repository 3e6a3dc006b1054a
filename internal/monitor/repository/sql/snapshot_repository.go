package sql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/central-university-dev/go-WebMonitor/internal/database"
	customerrors "github.com/central-university-dev/go-WebMonitor/internal/domain/errors"
	"github.com/central-university-dev/go-WebMonitor/internal/domain/models"
	"github.com/central-university-dev/go-WebMonitor/pkg/txs"
	"github.com/jackc/pgx/v5"
)

type SnapshotRepository struct {
	db *database.PostgresDB
}

func NewSnapshotRepository(db *database.PostgresDB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

func (r *SnapshotRepository) Save(ctx context.Context, snapshot *models.Snapshot) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	if snapshot.FetchedAt.IsZero() {
		snapshot.FetchedAt = time.Now()
	}

	err := querier.QueryRow(ctx,
		`INSERT INTO snapshots (resource_id, entity_id, topic_id, content_hash, content, has_changes, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		snapshot.ResourceID, snapshot.EntityID, snapshot.TopicID,
		snapshot.ContentHash, snapshot.Content, snapshot.HasChanges, snapshot.FetchedAt).Scan(&snapshot.ID)
	if err != nil {
		return fmt.Errorf("ошибка при сохранении снимка: %w", err)
	}

	return nil
}

func (r *SnapshotRepository) FindLatestByResourceID(ctx context.Context, resourceID int64) (*models.Snapshot, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	var snapshot models.Snapshot

	err := querier.QueryRow(ctx,
		`SELECT id, resource_id, entity_id, topic_id, content_hash, content, has_changes, fetched_at
		FROM snapshots WHERE resource_id = $1
		ORDER BY fetched_at DESC, id DESC LIMIT 1`, resourceID).
		Scan(
			&snapshot.ID,
			&snapshot.ResourceID,
			&snapshot.EntityID,
			&snapshot.TopicID,
			&snapshot.ContentHash,
			&snapshot.Content,
			&snapshot.HasChanges,
			&snapshot.FetchedAt,
		)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &customerrors.ErrSnapshotNotFound{ResourceID: resourceID}
		}

		return nil, fmt.Errorf("ошибка при поиске последнего снимка: %w", err)
	}

	return &snapshot, nil
}

func (r *SnapshotRepository) DeleteByResourceID(ctx context.Context, resourceID int64) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	_, err := querier.Exec(ctx, "DELETE FROM snapshots WHERE resource_id = $1", resourceID)
	if err != nil {
		return fmt.Errorf("ошибка при удалении снимков ресурса: %w", err)
	}

	return nil
}

func (r *SnapshotRepository) DeleteByEntityID(ctx context.Context, entityID int64) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	_, err := querier.Exec(ctx, "DELETE FROM snapshots WHERE entity_id = $1", entityID)
	if err != nil {
		return fmt.Errorf("ошибка при удалении снимков сущности: %w", err)
	}

	return nil
}

func (r *SnapshotRepository) DeleteByTopicID(ctx context.Context, topicID int64) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	_, err := querier.Exec(ctx, "DELETE FROM snapshots WHERE topic_id = $1", topicID)
	if err != nil {
		return fmt.Errorf("ошибка при удалении снимков топика: %w", err)
	}

	return nil
}
