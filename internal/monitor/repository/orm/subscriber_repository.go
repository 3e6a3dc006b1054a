package orm

import (
	"context"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/central-university-dev/go-WebMonitor/internal/database"
	customerrors "github.com/central-university-dev/go-WebMonitor/internal/domain/errors"
	"github.com/central-university-dev/go-WebMonitor/internal/domain/models"
	"github.com/central-university-dev/go-WebMonitor/pkg/txs"
	"github.com/jackc/pgx/v5"
)

type SubscriberRepository struct {
	db *database.PostgresDB
	sq sq.StatementBuilderType
}

func NewSubscriberRepository(db *database.PostgresDB) *SubscriberRepository {
	return &SubscriberRepository{
		db: db,
		sq: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

const subscriberColumns = "id, topic_id, entity_id, resource_id, channel_type, channel_config, enabled, created_at"

func (r *SubscriberRepository) Save(ctx context.Context, subscriber *models.Subscriber) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	if subscriber.CreatedAt.IsZero() {
		subscriber.CreatedAt = time.Now()
	}

	insertQuery := r.sq.Insert("subscribers").
		Columns("topic_id", "entity_id", "resource_id", "channel_type", "channel_config", "enabled", "created_at").
		Values(subscriber.TopicID, subscriber.EntityID, subscriber.ResourceID,
			subscriber.ChannelType, subscriber.ChannelConfig, subscriber.Enabled, subscriber.CreatedAt).
		Suffix("RETURNING id")

	query, args, err := insertQuery.ToSql()
	if err != nil {
		return &customerrors.ErrBuildSQLQuery{Operation: "сохранение подписчика", Cause: err}
	}

	err = querier.QueryRow(ctx, query, args...).Scan(&subscriber.ID)
	if err != nil {
		return &customerrors.ErrSQLExecution{Operation: "сохранение подписчика", Cause: err}
	}

	return nil
}

func (r *SubscriberRepository) FindByID(ctx context.Context, id int64) (*models.Subscriber, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	selectQuery := r.sq.Select(subscriberColumns).
		From("subscribers").
		Where(sq.Eq{"id": id})

	query, args, err := selectQuery.ToSql()
	if err != nil {
		return nil, &customerrors.ErrBuildSQLQuery{Operation: "поиск подписчика", Cause: err}
	}

	subscriber, err := scanSubscriber(querier.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &customerrors.ErrSubscriberNotFound{ID: id}
		}

		return nil, &customerrors.ErrSQLExecution{Operation: "поиск подписчика", Cause: err}
	}

	return subscriber, nil
}

func (r *SubscriberRepository) GetAll(ctx context.Context) ([]*models.Subscriber, error) {
	selectQuery := r.sq.Select(subscriberColumns).
		From("subscribers").
		OrderBy("id")

	return r.querySubscribers(ctx, selectQuery, "получение всех подписчиков")
}

// FindActiveForResource возвращает всех включённых подписчиков, чья область
// покрывает ресурс. Дедупликация пересекающихся областей не выполняется.
func (r *SubscriberRepository) FindActiveForResource(
	ctx context.Context,
	resource *models.Resource,
) ([]*models.Subscriber, error) {
	selectQuery := r.sq.Select(subscriberColumns).
		From("subscribers").
		Where(sq.And{
			sq.Eq{"enabled": true},
			sq.Or{
				sq.Eq{"topic_id": resource.TopicID},
				sq.Eq{"entity_id": resource.EntityID},
				sq.Eq{"resource_id": resource.ID},
			},
		}).
		OrderBy("id")

	return r.querySubscribers(ctx, selectQuery, "поиск подписчиков ресурса")
}

func (r *SubscriberRepository) querySubscribers(
	ctx context.Context,
	selectQuery sq.SelectBuilder,
	operation string,
) ([]*models.Subscriber, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	query, args, err := selectQuery.ToSql()
	if err != nil {
		return nil, &customerrors.ErrBuildSQLQuery{Operation: operation, Cause: err}
	}

	rows, err := querier.Query(ctx, query, args...)
	if err != nil {
		return nil, &customerrors.ErrSQLExecution{Operation: operation, Cause: err}
	}
	defer rows.Close()

	return collectSubscribers(rows)
}

func (r *SubscriberRepository) Delete(ctx context.Context, id int64) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	deleteQuery := r.sq.Delete("subscribers").Where(sq.Eq{"id": id})

	query, args, err := deleteQuery.ToSql()
	if err != nil {
		return &customerrors.ErrBuildSQLQuery{Operation: "удаление подписчика", Cause: err}
	}

	result, err := querier.Exec(ctx, query, args...)
	if err != nil {
		return &customerrors.ErrSQLExecution{Operation: "удаление подписчика", Cause: err}
	}

	if result.RowsAffected() == 0 {
		return &customerrors.ErrSubscriberNotFound{ID: id}
	}

	return nil
}

func (r *SubscriberRepository) DeleteByResourceID(ctx context.Context, resourceID int64) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	deleteQuery := r.sq.Delete("subscribers").Where(sq.Eq{"resource_id": resourceID})

	query, args, err := deleteQuery.ToSql()
	if err != nil {
		return &customerrors.ErrBuildSQLQuery{Operation: "удаление подписчиков ресурса", Cause: err}
	}

	_, err = querier.Exec(ctx, query, args...)
	if err != nil {
		return &customerrors.ErrSQLExecution{Operation: "удаление подписчиков ресурса", Cause: err}
	}

	return nil
}

func (r *SubscriberRepository) DeleteByEntitySweep(ctx context.Context, entityID int64) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	deleteQuery := r.sq.Delete("subscribers").
		Where(sq.Or{
			sq.Eq{"entity_id": entityID},
			sq.Expr("resource_id IN (SELECT id FROM resources WHERE entity_id = ?)", entityID),
		})

	query, args, err := deleteQuery.ToSql()
	if err != nil {
		return &customerrors.ErrBuildSQLQuery{Operation: "удаление подписчиков сущности", Cause: err}
	}

	_, err = querier.Exec(ctx, query, args...)
	if err != nil {
		return &customerrors.ErrSQLExecution{Operation: "удаление подписчиков сущности", Cause: err}
	}

	return nil
}

func (r *SubscriberRepository) DeleteByTopicSweep(ctx context.Context, topicID int64) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	deleteQuery := r.sq.Delete("subscribers").
		Where(sq.Or{
			sq.Eq{"topic_id": topicID},
			sq.Expr("entity_id IN (SELECT id FROM entities WHERE topic_id = ?)", topicID),
			sq.Expr("resource_id IN (SELECT id FROM resources WHERE topic_id = ?)", topicID),
		})

	query, args, err := deleteQuery.ToSql()
	if err != nil {
		return &customerrors.ErrBuildSQLQuery{Operation: "удаление подписчиков топика", Cause: err}
	}

	_, err = querier.Exec(ctx, query, args...)
	if err != nil {
		return &customerrors.ErrSQLExecution{Operation: "удаление подписчиков топика", Cause: err}
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
			return nil, &customerrors.ErrSQLScan{Entity: "подписчика", Cause: err}
		}

		subscribers = append(subscribers, subscriber)
	}

	if err := rows.Err(); err != nil {
		return nil, &customerrors.ErrSQLExecution{Operation: "обработка результатов", Cause: err}
	}

	return subscribers, nil
}
