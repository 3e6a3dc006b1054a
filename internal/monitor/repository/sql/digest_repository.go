package sql

import (
	"context"
	"fmt"
	"time"

	"github.com/central-university-dev/go-WebMonitor/internal/database"
	"github.com/central-university-dev/go-WebMonitor/internal/domain/models"
	"github.com/central-university-dev/go-WebMonitor/pkg/txs"
	"github.com/jackc/pgx/v5"
)

type DigestRepository struct {
	db *database.PostgresDB
}

func NewDigestRepository(db *database.PostgresDB) *DigestRepository {
	return &DigestRepository{db: db}
}

func (r *DigestRepository) Save(ctx context.Context, digest *models.Digest) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	if digest.CreatedAt.IsZero() {
		digest.CreatedAt = time.Now()
	}

	err := querier.QueryRow(ctx,
		`INSERT INTO digests (resource_id, entity_id, topic_id, snapshot_id, summary, change_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		digest.ResourceID, digest.EntityID, digest.TopicID, digest.SnapshotID,
		digest.Summary, digest.ChangeType, digest.CreatedAt).Scan(&digest.ID)
	if err != nil {
		return fmt.Errorf("ошибка при сохранении дайджеста: %w", err)
	}

	return nil
}

const digestSelect = `SELECT d.id, d.resource_id, d.entity_id, d.topic_id, d.snapshot_id,
		d.summary, d.change_type, d.created_at,
		r.name AS resource_name, r.resource_type, e.name AS entity_name
	FROM digests d
	JOIN resources r ON d.resource_id = r.id
	JOIN entities e ON d.entity_id = e.id`

func (r *DigestRepository) FindRecent(ctx context.Context, limit int) ([]*models.Digest, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	rows, err := querier.Query(ctx,
		digestSelect+" ORDER BY d.created_at DESC, d.id DESC LIMIT $1", limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка при запросе последних дайджестов: %w", err)
	}
	defer rows.Close()

	return collectDigests(rows)
}

func (r *DigestRepository) FindByTopicID(ctx context.Context, topicID int64, limit int) ([]*models.Digest, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	rows, err := querier.Query(ctx,
		digestSelect+" WHERE d.topic_id = $1 ORDER BY d.created_at DESC, d.id DESC LIMIT $2", topicID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка при запросе дайджестов топика: %w", err)
	}
	defer rows.Close()

	return collectDigests(rows)
}

func (r *DigestRepository) DeleteByResourceID(ctx context.Context, resourceID int64) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	_, err := querier.Exec(ctx, "DELETE FROM digests WHERE resource_id = $1", resourceID)
	if err != nil {
		return fmt.Errorf("ошибка при удалении дайджестов ресурса: %w", err)
	}

	return nil
}

func (r *DigestRepository) DeleteByEntityID(ctx context.Context, entityID int64) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	_, err := querier.Exec(ctx, "DELETE FROM digests WHERE entity_id = $1", entityID)
	if err != nil {
		return fmt.Errorf("ошибка при удалении дайджестов сущности: %w", err)
	}

	return nil
}

func (r *DigestRepository) DeleteByTopicID(ctx context.Context, topicID int64) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	_, err := querier.Exec(ctx, "DELETE FROM digests WHERE topic_id = $1", topicID)
	if err != nil {
		return fmt.Errorf("ошибка при удалении дайджестов топика: %w", err)
	}

	return nil
}

func collectDigests(rows pgx.Rows) ([]*models.Digest, error) {
	var digests []*models.Digest

	for rows.Next() {
		var digest models.Digest

		var resourceType string

		err := rows.Scan(
			&digest.ID,
			&digest.ResourceID,
			&digest.EntityID,
			&digest.TopicID,
			&digest.SnapshotID,
			&digest.Summary,
			&digest.ChangeType,
			&digest.CreatedAt,
			&digest.ResourceName,
			&resourceType,
			&digest.EntityName,
		)
		if err != nil {
			return nil, fmt.Errorf("ошибка при сканировании дайджеста: %w", err)
		}

		digest.ResourceType = models.ResourceType(resourceType)
		digests = append(digests, &digest)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка при обработке результатов запроса дайджестов: %w", err)
	}

	return digests, nil
}
