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
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolationCode = "23505"

type RegistryRepository struct {
	db *database.PostgresDB
}

func NewRegistryRepository(db *database.PostgresDB) *RegistryRepository {
	return &RegistryRepository{db: db}
}

func (r *RegistryRepository) SaveTopic(ctx context.Context, topic *models.Topic) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	if topic.CreatedAt.IsZero() {
		topic.CreatedAt = time.Now()
	}

	err := querier.QueryRow(ctx,
		"INSERT INTO topics (name, description, enabled, created_at) VALUES ($1, $2, $3, $4) RETURNING id",
		topic.Name, topic.Description, topic.Enabled, topic.CreatedAt).Scan(&topic.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return &customerrors.ErrTopicAlreadyExists{Name: topic.Name}
		}

		return fmt.Errorf("ошибка при сохранении топика: %w", err)
	}

	return nil
}

func (r *RegistryRepository) FindTopicByID(ctx context.Context, id int64) (*models.Topic, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	var topic models.Topic

	err := querier.QueryRow(ctx,
		"SELECT id, name, description, enabled, created_at FROM topics WHERE id = $1", id).
		Scan(&topic.ID, &topic.Name, &topic.Description, &topic.Enabled, &topic.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &customerrors.ErrTopicNotFound{Name: fmt.Sprintf("ID: %d", id)}
		}

		return nil, fmt.Errorf("ошибка при поиске топика: %w", err)
	}

	return &topic, nil
}

func (r *RegistryRepository) FindTopicByName(ctx context.Context, name string) (*models.Topic, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	var topic models.Topic

	err := querier.QueryRow(ctx,
		"SELECT id, name, description, enabled, created_at FROM topics WHERE name = $1", name).
		Scan(&topic.ID, &topic.Name, &topic.Description, &topic.Enabled, &topic.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &customerrors.ErrTopicNotFound{Name: name}
		}

		return nil, fmt.Errorf("ошибка при поиске топика по имени: %w", err)
	}

	return &topic, nil
}

func (r *RegistryRepository) GetTopics(ctx context.Context) ([]*models.Topic, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	rows, err := querier.Query(ctx,
		"SELECT id, name, description, enabled, created_at FROM topics ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("ошибка при запросе топиков: %w", err)
	}
	defer rows.Close()

	var topics []*models.Topic

	for rows.Next() {
		var topic models.Topic

		err := rows.Scan(&topic.ID, &topic.Name, &topic.Description, &topic.Enabled, &topic.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("ошибка при сканировании топика: %w", err)
		}

		topics = append(topics, &topic)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка при обработке результатов запроса топиков: %w", err)
	}

	return topics, nil
}

func (r *RegistryRepository) DeleteTopic(ctx context.Context, id int64) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	result, err := querier.Exec(ctx, "DELETE FROM topics WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("ошибка при удалении топика: %w", err)
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

	err := querier.QueryRow(ctx,
		`INSERT INTO entities (topic_id, name, url, entity_type, enabled, created_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		entity.TopicID, entity.Name, entity.URL, entity.Type, entity.Enabled, entity.CreatedAt).Scan(&entity.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return &customerrors.ErrEntityAlreadyExists{Name: entity.Name}
		}

		return fmt.Errorf("ошибка при сохранении сущности: %w", err)
	}

	return nil
}

func (r *RegistryRepository) FindEntityByID(ctx context.Context, id int64) (*models.Entity, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	row := querier.QueryRow(ctx,
		"SELECT id, topic_id, name, url, entity_type, enabled, created_at FROM entities WHERE id = $1", id)

	entity, err := scanEntity(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &customerrors.ErrEntityNotFound{Name: fmt.Sprintf("ID: %d", id)}
		}

		return nil, fmt.Errorf("ошибка при поиске сущности: %w", err)
	}

	return entity, nil
}

func (r *RegistryRepository) FindEntityByName(ctx context.Context, topicID int64, name string) (*models.Entity, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	row := querier.QueryRow(ctx,
		"SELECT id, topic_id, name, url, entity_type, enabled, created_at FROM entities WHERE topic_id = $1 AND name = $2",
		topicID, name)

	entity, err := scanEntity(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &customerrors.ErrEntityNotFound{Name: name}
		}

		return nil, fmt.Errorf("ошибка при поиске сущности по имени: %w", err)
	}

	return entity, nil
}

// LookupEntityByName ищет сущность по имени без привязки к топику. Имена
// сущностей уникальны в пределах топика, при совпадении имён в разных топиках
// возвращается первая по ID.
func (r *RegistryRepository) LookupEntityByName(ctx context.Context, name string) (*models.Entity, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	row := querier.QueryRow(ctx,
		"SELECT id, topic_id, name, url, entity_type, enabled, created_at FROM entities WHERE name = $1 ORDER BY id LIMIT 1",
		name)

	entity, err := scanEntity(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &customerrors.ErrEntityNotFound{Name: name}
		}

		return nil, fmt.Errorf("ошибка при поиске сущности по имени: %w", err)
	}

	return entity, nil
}

func (r *RegistryRepository) GetEntitiesByTopicID(ctx context.Context, topicID int64) ([]*models.Entity, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	rows, err := querier.Query(ctx,
		"SELECT id, topic_id, name, url, entity_type, enabled, created_at FROM entities WHERE topic_id = $1 ORDER BY name",
		topicID)
	if err != nil {
		return nil, fmt.Errorf("ошибка при запросе сущностей топика: %w", err)
	}
	defer rows.Close()

	var entities []*models.Entity

	for rows.Next() {
		entity, err := scanEntity(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка при сканировании сущности: %w", err)
		}

		entities = append(entities, entity)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка при обработке результатов запроса сущностей: %w", err)
	}

	return entities, nil
}

func (r *RegistryRepository) DeleteEntity(ctx context.Context, id int64) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	result, err := querier.Exec(ctx, "DELETE FROM entities WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("ошибка при удалении сущности: %w", err)
	}

	if result.RowsAffected() == 0 {
		return &customerrors.ErrEntityNotFound{Name: fmt.Sprintf("ID: %d", id)}
	}

	return nil
}

func (r *RegistryRepository) DeleteEntitiesByTopicID(ctx context.Context, topicID int64) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	_, err := querier.Exec(ctx, "DELETE FROM entities WHERE topic_id = $1", topicID)
	if err != nil {
		return fmt.Errorf("ошибка при удалении сущностей топика: %w", err)
	}

	return nil
}

func (r *RegistryRepository) SaveResource(ctx context.Context, resource *models.Resource) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	if resource.CreatedAt.IsZero() {
		resource.CreatedAt = time.Now()
	}

	err := querier.QueryRow(ctx,
		`INSERT INTO resources (entity_id, topic_id, name, url, resource_type, enabled, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		resource.EntityID, resource.TopicID, resource.Name, resource.URL,
		resource.Type, resource.Enabled, resource.CreatedAt).Scan(&resource.ID)
	if err != nil {
		return fmt.Errorf("ошибка при сохранении ресурса: %w", err)
	}

	return nil
}

func (r *RegistryRepository) FindResourceByID(ctx context.Context, id int64) (*models.Resource, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	row := querier.QueryRow(ctx,
		`SELECT id, entity_id, topic_id, name, url, resource_type, enabled, last_checked_at, last_changed_at, created_at
		FROM resources WHERE id = $1`, id)

	resource, err := scanResource(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &customerrors.ErrResourceNotFound{ID: id}
		}

		return nil, fmt.Errorf("ошибка при поиске ресурса: %w", err)
	}

	return resource, nil
}

func (r *RegistryRepository) GetResourcesByEntityID(ctx context.Context, entityID int64) ([]*models.Resource, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	rows, err := querier.Query(ctx,
		`SELECT id, entity_id, topic_id, name, url, resource_type, enabled, last_checked_at, last_changed_at, created_at
		FROM resources WHERE entity_id = $1 ORDER BY name`, entityID)
	if err != nil {
		return nil, fmt.Errorf("ошибка при запросе ресурсов сущности: %w", err)
	}
	defer rows.Close()

	return collectResources(rows)
}

func (r *RegistryRepository) GetActiveResources(ctx context.Context, filter *models.RunFilter) ([]*models.Resource, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	query := `SELECT r.id, r.entity_id, r.topic_id, r.name, r.url, r.resource_type, r.enabled,
			r.last_checked_at, r.last_changed_at, r.created_at
		FROM resources r
		JOIN entities e ON r.entity_id = e.id
		JOIN topics t ON r.topic_id = t.id
		WHERE r.enabled AND e.enabled AND t.enabled`

	args := []any{}

	if filter != nil && filter.TopicName != "" {
		args = append(args, filter.TopicName)
		query += fmt.Sprintf(" AND t.name = $%d", len(args))
	}

	if filter != nil && filter.EntityName != "" {
		args = append(args, filter.EntityName)
		query += fmt.Sprintf(" AND e.name = $%d", len(args))
	}

	query += " ORDER BY r.id"

	rows, err := querier.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка при запросе активных ресурсов: %w", err)
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
	querier := txs.GetQuerier(ctx, r.db.Pool)

	result, err := querier.Exec(ctx,
		"UPDATE resources SET last_checked_at = $1, last_changed_at = COALESCE($2, last_changed_at) WHERE id = $3",
		checkedAt, changedAt, id)
	if err != nil {
		return fmt.Errorf("ошибка при обновлении состояния проверки ресурса: %w", err)
	}

	if result.RowsAffected() == 0 {
		return &customerrors.ErrResourceNotFound{ID: id}
	}

	return nil
}

func (r *RegistryRepository) DeleteResource(ctx context.Context, id int64) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	result, err := querier.Exec(ctx, "DELETE FROM resources WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("ошибка при удалении ресурса: %w", err)
	}

	if result.RowsAffected() == 0 {
		return &customerrors.ErrResourceNotFound{ID: id}
	}

	return nil
}

func (r *RegistryRepository) DeleteResourcesByEntityID(ctx context.Context, entityID int64) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	_, err := querier.Exec(ctx, "DELETE FROM resources WHERE entity_id = $1", entityID)
	if err != nil {
		return fmt.Errorf("ошибка при удалении ресурсов сущности: %w", err)
	}

	return nil
}

func (r *RegistryRepository) DeleteResourcesByTopicID(ctx context.Context, topicID int64) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	_, err := querier.Exec(ctx, "DELETE FROM resources WHERE topic_id = $1", topicID)
	if err != nil {
		return fmt.Errorf("ошибка при удалении ресурсов топика: %w", err)
	}

	return nil
}

func (r *RegistryRepository) CountActiveResources(ctx context.Context) (map[models.ResourceType]int, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	rows, err := querier.Query(ctx,
		"SELECT resource_type, COUNT(*) FROM resources WHERE enabled GROUP BY resource_type")
	if err != nil {
		return nil, fmt.Errorf("ошибка при подсчёте активных ресурсов: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.ResourceType]int)

	for rows.Next() {
		var resourceType string

		var count int

		if err := rows.Scan(&resourceType, &count); err != nil {
			return nil, fmt.Errorf("ошибка при сканировании счётчика ресурсов: %w", err)
		}

		counts[models.ResourceType(resourceType)] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка при обработке результатов подсчёта ресурсов: %w", err)
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
			return nil, fmt.Errorf("ошибка при сканировании ресурса: %w", err)
		}

		resources = append(resources, resource)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка при обработке результатов запроса ресурсов: %w", err)
	}

	return resources, nil
}
