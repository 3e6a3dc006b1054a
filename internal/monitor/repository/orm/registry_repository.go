package orm

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/central-university-dev/go-WebMonitor/internal/database"
	customerrors "github.com/central-university-dev/go-WebMonitor/internal/domain/errors"
	"github.com/central-university-dev/go-WebMonitor/internal/domain/models"
	"github.com/central-university-dev/go-WebMonitor/pkg/txs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolationCode = "23505"

type RegistryRepository struct {
	db        *database.PostgresDB
	sq        sq.StatementBuilderType
	txManager *txs.TxManager
}

func NewRegistryRepository(db *database.PostgresDB, txManager *txs.TxManager) *RegistryRepository {
	return &RegistryRepository{
		db:        db,
		sq:        sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		txManager: txManager,
	}
}

func (r *RegistryRepository) SaveTopic(ctx context.Context, topic *models.Topic) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	if topic.CreatedAt.IsZero() {
		topic.CreatedAt = time.Now()
	}

	insertQuery := r.sq.Insert("topics").
		Columns("name", "description", "enabled", "created_at").
		Values(topic.Name, topic.Description, topic.Enabled, topic.CreatedAt).
		Suffix("RETURNING id")

	query, args, err := insertQuery.ToSql()
	if err != nil {
		return &customerrors.ErrBuildSQLQuery{Operation: "сохранение топика", Cause: err}
	}

	err = querier.QueryRow(ctx, query, args...).Scan(&topic.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return &customerrors.ErrTopicAlreadyExists{Name: topic.Name}
		}

		return &customerrors.ErrSQLExecution{Operation: "сохранение топика", Cause: err}
	}

	return nil
}

func (r *RegistryRepository) FindTopicByID(ctx context.Context, id int64) (*models.Topic, error) {
	return r.findTopic(ctx, sq.Eq{"id": id}, fmt.Sprintf("ID: %d", id))
}

func (r *RegistryRepository) FindTopicByName(ctx context.Context, name string) (*models.Topic, error) {
	return r.findTopic(ctx, sq.Eq{"name": name}, name)
}

func (r *RegistryRepository) findTopic(ctx context.Context, where sq.Eq, notFoundName string) (*models.Topic, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	selectQuery := r.sq.Select("id", "name", "description", "enabled", "created_at").
		From("topics").
		Where(where)

	query, args, err := selectQuery.ToSql()
	if err != nil {
		return nil, &customerrors.ErrBuildSQLQuery{Operation: "поиск топика", Cause: err}
	}

	var topic models.Topic

	err = querier.QueryRow(ctx, query, args...).
		Scan(&topic.ID, &topic.Name, &topic.Description, &topic.Enabled, &topic.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &customerrors.ErrTopicNotFound{Name: notFoundName}
		}

		return nil, &customerrors.ErrSQLExecution{Operation: "поиск топика", Cause: err}
	}

	return &topic, nil
}

func (r *RegistryRepository) GetTopics(ctx context.Context) ([]*models.Topic, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	selectQuery := r.sq.Select("id", "name", "description", "enabled", "created_at").
		From("topics").
		OrderBy("name")

	query, args, err := selectQuery.ToSql()
	if err != nil {
		return nil, &customerrors.ErrBuildSQLQuery{Operation: "получение топиков", Cause: err}
	}

	rows, err := querier.Query(ctx, query, args...)
	if err != nil {
		return nil, &customerrors.ErrSQLExecution{Operation: "запрос топиков", Cause: err}
	}
	defer rows.Close()

	var topics []*models.Topic

	for rows.Next() {
		var topic models.Topic

		err = rows.Scan(&topic.ID, &topic.Name, &topic.Description, &topic.Enabled, &topic.CreatedAt)
		if err != nil {
			return nil, &customerrors.ErrSQLScan{Entity: "топика", Cause: err}
		}

		topics = append(topics, &topic)
	}

	if err = rows.Err(); err != nil {
		return nil, &customerrors.ErrSQLExecution{Operation: "обработка результатов", Cause: err}
	}

	return topics, nil
}

func (r *RegistryRepository) DeleteTopic(ctx context.Context, id int64) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	deleteQuery := r.sq.Delete("topics").Where(sq.Eq{"id": id})

	query, args, err := deleteQuery.ToSql()
	if err != nil {
		return &customerrors.ErrBuildSQLQuery{Operation: "удаление топика", Cause: err}
	}

	result, err := querier.Exec(ctx, query, args...)
	if err != nil {
		return &customerrors.ErrSQLExecution{Operation: "удаление топика", Cause: err}
	}

	if result.RowsAffected() == 0 {
		return &customerrors.ErrTopicNotFound{Name: fmt.Sprintf("ID: %d", id)}
	}

	return nil
}

func (r *RegistryRepository) SaveEntity(ctx context.Context, entity *models.Entity) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	if entity.CreatedAt.IsZero() {
		entity.CreatedAt = time.Now()
	}

	insertQuery := r.sq.Insert("entities").
		Columns("topic_id", "name", "url", "entity_type", "enabled", "created_at").
		Values(entity.TopicID, entity.Name, entity.URL, entity.Type, entity.Enabled, entity.CreatedAt).
		Suffix("RETURNING id")

	query, args, err := insertQuery.ToSql()
	if err != nil {
		return &customerrors.ErrBuildSQLQuery{Operation: "сохранение сущности", Cause: err}
	}

	err = querier.QueryRow(ctx, query, args...).Scan(&entity.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return &customerrors.ErrEntityAlreadyExists{Name: entity.Name}
		}

		return &customerrors.ErrSQLExecution{Operation: "сохранение сущности", Cause: err}
	}

	return nil
}

func (r *RegistryRepository) FindEntityByID(ctx context.Context, id int64) (*models.Entity, error) {
	return r.findEntity(ctx, sq.Eq{"id": id}, fmt.Sprintf("ID: %d", id))
}

func (r *RegistryRepository) FindEntityByName(ctx context.Context, topicID int64, name string) (*models.Entity, error) {
	return r.findEntity(ctx, sq.Eq{"topic_id": topicID, "name": name}, name)
}

// LookupEntityByName ищет сущность по имени без привязки к топику, при
// совпадении имён в разных топиках возвращается первая по ID.
func (r *RegistryRepository) LookupEntityByName(ctx context.Context, name string) (*models.Entity, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	selectQuery := r.sq.Select("id", "topic_id", "name", "url", "entity_type", "enabled", "created_at").
		From("entities").
		Where(sq.Eq{"name": name}).
		OrderBy("id").
		Limit(1)

	query, args, err := selectQuery.ToSql()
	if err != nil {
		return nil, &customerrors.ErrBuildSQLQuery{Operation: "поиск сущности по имени", Cause: err}
	}

	entity, err := scanEntity(querier.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &customerrors.ErrEntityNotFound{Name: name}
		}

		return nil, &customerrors.ErrSQLExecution{Operation: "поиск сущности по имени", Cause: err}
	}

	return entity, nil
}

func (r *RegistryRepository) findEntity(ctx context.Context, where sq.Eq, notFoundName string) (*models.Entity, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	selectQuery := r.sq.Select("id", "topic_id", "name", "url", "entity_type", "enabled", "created_at").
		From("entities").
		Where(where)

	query, args, err := selectQuery.ToSql()
	if err != nil {
		return nil, &customerrors.ErrBuildSQLQuery{Operation: "поиск сущности", Cause: err}
	}

	entity, err := scanEntity(querier.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &customerrors.ErrEntityNotFound{Name: notFoundName}
		}

		return nil, &customerrors.ErrSQLExecution{Operation: "поиск сущности", Cause: err}
	}

	return entity, nil
}

func (r *RegistryRepository) GetEntitiesByTopicID(ctx context.Context, topicID int64) ([]*models.Entity, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	selectQuery := r.sq.Select("id", "topic_id", "name", "url", "entity_type", "enabled", "created_at").
		From("entities").
		Where(sq.Eq{"topic_id": topicID}).
		OrderBy("name")

	query, args, err := selectQuery.ToSql()
	if err != nil {
		return nil, &customerrors.ErrBuildSQLQuery{Operation: "получение сущностей топика", Cause: err}
	}

	rows, err := querier.Query(ctx, query, args...)
	if err != nil {
		return nil, &customerrors.ErrSQLExecution{Operation: "запрос сущностей топика", Cause: err}
	}
	defer rows.Close()

	var entities []*models.Entity

	for rows.Next() {
		entity, err := scanEntity(rows)
		if err != nil {
			return nil, &customerrors.ErrSQLScan{Entity: "сущности", Cause: err}
		}

		entities = append(entities, entity)
	}

	if err = rows.Err(); err != nil {
		return nil, &customerrors.ErrSQLExecution{Operation: "обработка результатов", Cause: err}
	}

	return entities, nil
}

func (r *RegistryRepository) DeleteEntity(ctx context.Context, id int64) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	deleteQuery := r.sq.Delete("entities").Where(sq.Eq{"id": id})

	query, args, err := deleteQuery.ToSql()
	if err != nil {
		return &customerrors.ErrBuildSQLQuery{Operation: "удаление сущности", Cause: err}
	}

	result, err := querier.Exec(ctx, query, args...)
	if err != nil {
		return &customerrors.ErrSQLExecution{Operation: "удаление сущности", Cause: err}
	}

	if result.RowsAffected() == 0 {
		return &customerrors.ErrEntityNotFound{Name: fmt.Sprintf("ID: %d", id)}
	}

	return nil
}

func (r *RegistryRepository) DeleteEntitiesByTopicID(ctx context.Context, topicID int64) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	deleteQuery := r.sq.Delete("entities").Where(sq.Eq{"topic_id": topicID})

	query, args, err := deleteQuery.ToSql()
	if err != nil {
		return &customerrors.ErrBuildSQLQuery{Operation: "удаление сущностей топика", Cause: err}
	}

	_, err = querier.Exec(ctx, query, args...)
	if err != nil {
		return &customerrors.ErrSQLExecution{Operation: "удаление сущностей топика", Cause: err}
	}

	return nil
}

func (r *RegistryRepository) SaveResource(ctx context.Context, resource *models.Resource) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	if resource.CreatedAt.IsZero() {
		resource.CreatedAt = time.Now()
	}

	insertQuery := r.sq.Insert("resources").
		Columns("entity_id", "topic_id", "name", "url", "resource_type", "enabled", "created_at").
		Values(resource.EntityID, resource.TopicID, resource.Name, resource.URL,
			resource.Type, resource.Enabled, resource.CreatedAt).
		Suffix("RETURNING id")

	query, args, err := insertQuery.ToSql()
	if err != nil {
		return &customerrors.ErrBuildSQLQuery{Operation: "сохранение ресурса", Cause: err}
	}

	err = querier.QueryRow(ctx, query, args...).Scan(&resource.ID)
	if err != nil {
		return &customerrors.ErrSQLExecution{Operation: "сохранение ресурса", Cause: err}
	}

	return nil
}

const resourceColumns = "id, entity_id, topic_id, name, url, resource_type, enabled, " +
	"last_checked_at, last_changed_at, created_at"

func (r *RegistryRepository) FindResourceByID(ctx context.Context, id int64) (*models.Resource, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	selectQuery := r.sq.Select(resourceColumns).
		From("resources").
		Where(sq.Eq{"id": id})

	query, args, err := selectQuery.ToSql()
	if err != nil {
		return nil, &customerrors.ErrBuildSQLQuery{Operation: "поиск ресурса", Cause: err}
	}

	resource, err := scanResource(querier.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &customerrors.ErrResourceNotFound{ID: id}
		}

		return nil, &customerrors.ErrSQLExecution{Operation: "поиск ресурса", Cause: err}
	}

	return resource, nil
}

func (r *RegistryRepository) GetResourcesByEntityID(ctx context.Context, entityID int64) ([]*models.Resource, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	selectQuery := r.sq.Select(resourceColumns).
		From("resources").
		Where(sq.Eq{"entity_id": entityID}).
		OrderBy("name")

	query, args, err := selectQuery.ToSql()
	if err != nil {
		return nil, &customerrors.ErrBuildSQLQuery{Operation: "получение ресурсов сущности", Cause: err}
	}

	rows, err := querier.Query(ctx, query, args...)
	if err != nil {
		return nil, &customerrors.ErrSQLExecution{Operation: "запрос ресурсов сущности", Cause: err}
	}
	defer rows.Close()

	return collectResources(rows)
}

func (r *RegistryRepository) GetActiveResources(ctx context.Context, filter *models.RunFilter) ([]*models.Resource, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	selectQuery := r.sq.Select(
		"r.id", "r.entity_id", "r.topic_id", "r.name", "r.url", "r.resource_type", "r.enabled",
		"r.last_checked_at", "r.last_changed_at", "r.created_at").
		From("resources r").
		Join("entities e ON r.entity_id = e.id").
		Join("topics t ON r.topic_id = t.id").
		Where(sq.Eq{"r.enabled": true, "e.enabled": true, "t.enabled": true}).
		OrderBy("r.id")

	if filter != nil && filter.TopicName != "" {
		selectQuery = selectQuery.Where(sq.Eq{"t.name": filter.TopicName})
	}

	if filter != nil && filter.EntityName != "" {
		selectQuery = selectQuery.Where(sq.Eq{"e.name": filter.EntityName})
	}

	query, args, err := selectQuery.ToSql()
	if err != nil {
		return nil, &customerrors.ErrBuildSQLQuery{Operation: "получение активных ресурсов", Cause: err}
	}

	rows, err := querier.Query(ctx, query, args...)
	if err != nil {
		return nil, &customerrors.ErrSQLExecution{Operation: "запрос активных ресурсов", Cause: err}
	}
	defer rows.Close()

	return collectResources(rows)
}

func (r *RegistryRepository) UpdateResourceCheckState(
	ctx context.Context,
	id int64,
	checkedAt time.Time,
	changedAt *time.Time,
) error {
	return r.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		querier := txs.GetQuerier(ctx, r.db.Pool)

		updateQuery := r.sq.Update("resources").
			Set("last_checked_at", checkedAt).
			Where(sq.Eq{"id": id})

		if changedAt != nil {
			updateQuery = updateQuery.Set("last_changed_at", *changedAt)
		}

		query, args, err := updateQuery.ToSql()
		if err != nil {
			return &customerrors.ErrBuildSQLQuery{Operation: "обновление состояния проверки", Cause: err}
		}

		result, err := querier.Exec(ctx, query, args...)
		if err != nil {
			return &customerrors.ErrSQLExecution{Operation: "обновление состояния проверки", Cause: err}
		}

		if result.RowsAffected() == 0 {
			return &customerrors.ErrResourceNotFound{ID: id}
		}

		return nil
	})
}

func (r *RegistryRepository) DeleteResource(ctx context.Context, id int64) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	deleteQuery := r.sq.Delete("resources").Where(sq.Eq{"id": id})

	query, args, err := deleteQuery.ToSql()
	if err != nil {
		return &customerrors.ErrBuildSQLQuery{Operation: "удаление ресурса", Cause: err}
	}

	result, err := querier.Exec(ctx, query, args...)
	if err != nil {
		return &customerrors.ErrSQLExecution{Operation: "удаление ресурса", Cause: err}
	}

	if result.RowsAffected() == 0 {
		return &customerrors.ErrResourceNotFound{ID: id}
	}

	return nil
}

func (r *RegistryRepository) DeleteResourcesByEntityID(ctx context.Context, entityID int64) error {
	return r.deleteResourcesBy(ctx, sq.Eq{"entity_id": entityID}, "удаление ресурсов сущности")
}

func (r *RegistryRepository) DeleteResourcesByTopicID(ctx context.Context, topicID int64) error {
	return r.deleteResourcesBy(ctx, sq.Eq{"topic_id": topicID}, "удаление ресурсов топика")
}

func (r *RegistryRepository) deleteResourcesBy(ctx context.Context, where sq.Eq, operation string) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	deleteQuery := r.sq.Delete("resources").Where(where)

	query, args, err := deleteQuery.ToSql()
	if err != nil {
		return &customerrors.ErrBuildSQLQuery{Operation: operation, Cause: err}
	}

	_, err = querier.Exec(ctx, query, args...)
	if err != nil {
		return &customerrors.ErrSQLExecution{Operation: operation, Cause: err}
	}

	return nil
}

func (r *RegistryRepository) CountActiveResources(ctx context.Context) (map[models.ResourceType]int, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	selectQuery := r.sq.Select("resource_type", "COUNT(*)").
		From("resources").
		Where(sq.Eq{"enabled": true}).
		GroupBy("resource_type")

	query, args, err := selectQuery.ToSql()
	if err != nil {
		return nil, &customerrors.ErrBuildSQLQuery{Operation: "подсчёт активных ресурсов", Cause: err}
	}

	rows, err := querier.Query(ctx, query, args...)
	if err != nil {
		return nil, &customerrors.ErrSQLExecution{Operation: "подсчёт активных ресурсов", Cause: err}
	}
	defer rows.Close()

	counts := make(map[models.ResourceType]int)

	for rows.Next() {
		var resourceType string

		var count int

		if err := rows.Scan(&resourceType, &count); err != nil {
			return nil, &customerrors.ErrSQLScan{Entity: "счётчика ресурсов", Cause: err}
		}

		counts[models.ResourceType(resourceType)] = count
	}

	if err = rows.Err(); err != nil {
		return nil, &customerrors.ErrSQLExecution{Operation: "обработка результатов", Cause: err}
	}

	return counts, nil
}

func scanEntity(row pgx.Row) (*models.Entity, error) {
	var entity models.Entity

	var entityType string

	err := row.Scan(&entity.ID, &entity.TopicID, &entity.Name, &entity.URL, &entityType, &entity.Enabled, &entity.CreatedAt)
	if err != nil {
		return nil, err
	}

	entity.Type = models.EntityType(entityType)

	return &entity, nil
}

func scanResource(row pgx.Row) (*models.Resource, error) {
	var resource models.Resource

	var resourceType string

	var lastCheckedAt, lastChangedAt *time.Time

	err := row.Scan(
		&resource.ID,
		&resource.EntityID,
		&resource.TopicID,
		&resource.Name,
		&resource.URL,
		&resourceType,
		&resource.Enabled,
		&lastCheckedAt,
		&lastChangedAt,
		&resource.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	resource.Type = models.ResourceType(resourceType)

	if lastCheckedAt != nil {
		resource.LastCheckedAt = *lastCheckedAt
	}

	if lastChangedAt != nil {
		resource.LastChangedAt = *lastChangedAt
	}

	return &resource, nil
}

func collectResources(rows pgx.Rows) ([]*models.Resource, error) {
	var resources []*models.Resource

	for rows.Next() {
		resource, err := scanResource(rows)
		if err != nil {
			return nil, &customerrors.ErrSQLScan{Entity: "ресурса", Cause: err}
		}

		resources = append(resources, resource)
	}

	if err := rows.Err(); err != nil {
		return nil, &customerrors.ErrSQLExecution{Operation: "обработка результатов", Cause: err}
	}

	return resources, nil
}
