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

type SubscriberRepository struct {
	db *database.PostgresDB
}

func NewSubscriberRepository(db *database.PostgresDB) *SubscriberRepository {
	return &SubscriberRepository{db: db}
}

func (r *SubscriberRepository) Save(ctx context.Context, subscriber *models.Subscriber) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	if subscriber.CreatedAt.IsZero() {
		subscriber.CreatedAt = time.Now()
	}

	err := querier.QueryRow(ctx,
		`INSERT INTO subscribers (topic_id, entity_id, resource_id, channel_type, channel_config, enabled, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		subscriber.TopicID, subscriber.EntityID, subscriber.ResourceID,
		subscriber.ChannelType, subscriber.ChannelConfig, subscriber.Enabled, subscriber.CreatedAt).
		Scan(&subscriber.ID)
	if err != nil {
		return fmt.Errorf("ошибка при сохранении подписчика: %w", err)
	}

	return nil
}

func (r *SubscriberRepository) FindByID(ctx context.Context, id int64) (*models.Subscriber, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	row := querier.QueryRow(ctx,
		`SELECT id, topic_id, entity_id, resource_id, channel_type, channel_config, enabled, created_at
		FROM subscribers WHERE id = $1`, id)

	subscriber, err := scanSubscriber(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &customerrors.ErrSubscriberNotFound{ID: id}
		}

		return nil, fmt.Errorf("ошибка при поиске подписчика: %w", err)
	}

	return subscriber, nil
}

func (r *SubscriberRepository) GetAll(ctx context.Context) ([]*models.Subscriber, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	rows, err := querier.Query(ctx,
		`SELECT id, topic_id, entity_id, resource_id, channel_type, channel_config, enabled, created_at
		FROM subscribers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("ошибка при запросе всех подписчиков: %w", err)
	}
	defer rows.Close()

	return collectSubscribers(rows)
}

// FindActiveForResource возвращает всех включённых подписчиков, чья область
// покрывает ресурс: подписку на его топик, его сущность или сам ресурс.
// Дедупликация пересекающихся областей не выполняется.
func (r *SubscriberRepository) FindActiveForResource(
	ctx context.Context,
	resource *models.Resource,
) ([]*models.Subscriber, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	rows, err := querier.Query(ctx,
		`SELECT id, topic_id, entity_id, resource_id, channel_type, channel_config, enabled, created_at
		FROM subscribers
		WHERE enabled AND (topic_id = $1 OR entity_id = $2 OR resource_id = $3)
		ORDER BY id`,
		resource.TopicID, resource.EntityID, resource.ID)
	if err != nil {
		return nil, fmt.Errorf("ошибка при поиске подписчиков ресурса: %w", err)
	}
	defer rows.Close()

	return collectSubscribers(rows)
}

func (r *SubscriberRepository) Delete(ctx context.Context, id int64) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	result, err := querier.Exec(ctx, "DELETE FROM subscribers WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("ошибка при удалении подписчика: %w", err)
	}

	if result.RowsAffected() == 0 {
		return &customerrors.ErrSubscriberNotFound{ID: id}
	}

	return nil
}

func (r *SubscriberRepository) DeleteByResourceID(ctx context.Context, resourceID int64) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	_, err := querier.Exec(ctx, "DELETE FROM subscribers WHERE resource_id = $1", resourceID)
	if err != nil {
		return fmt.Errorf("ошибка при удалении подписчиков ресурса: %w", err)
	}

	return nil
}

func (r *SubscriberRepository) DeleteByEntitySweep(ctx context.Context, entityID int64) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	_, err := querier.Exec(ctx,
		`DELETE FROM subscribers
		WHERE entity_id = $1 OR resource_id IN (SELECT id FROM resources WHERE entity_id = $1)`,
		entityID)
	if err != nil {
		return fmt.Errorf("ошибка при удалении подписчиков сущности: %w", err)
	}

	return nil
}

func (r *SubscriberRepository) DeleteByTopicSweep(ctx context.Context, topicID int64) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	_, err := querier.Exec(ctx,
		`DELETE FROM subscribers
		WHERE topic_id = $1
			OR entity_id IN (SELECT id FROM entities WHERE topic_id = $1)
			OR resource_id IN (SELECT id FROM resources WHERE topic_id = $1)`,
		topicID)
	if err != nil {
		return fmt.Errorf("ошибка при удалении подписчиков топика: %w", err)
	}

	return nil
}

func scanSubscriber(row pgx.Row) (*models.Subscriber, error) {
	var subscriber models.Subscriber

	var channelType string

	err := row.Scan(
		&subscriber.ID,
		&subscriber.TopicID,
		&subscriber.EntityID,
		&subscriber.ResourceID,
		&channelType,
		&subscriber.ChannelConfig,
		&subscriber.Enabled,
		&subscriber.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	subscriber.ChannelType = models.ChannelType(channelType)

	return &subscriber, nil
}

func collectSubscribers(rows pgx.Rows) ([]*models.Subscriber, error) {
	var subscribers []*models.Subscriber

	for rows.Next() {
		subscriber, err := scanSubscriber(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка при сканировании подписчика: %w", err)
		}

		subscribers = append(subscribers, subscriber)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка при обработке результатов запроса подписчиков: %w", err)
	}

	return subscribers, nil
}
