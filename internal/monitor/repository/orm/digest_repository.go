package orm

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/central-university-dev/go-WebMonitor/internal/database"
	customerrors "github.com/central-university-dev/go-WebMonitor/internal/domain/errors"
	"github.com/central-university-dev/go-WebMonitor/internal/domain/models"
	"github.com/central-university-dev/go-WebMonitor/pkg/txs"
	"github.com/jackc/pgx/v5"
)

type DigestRepository struct {
	db *database.PostgresDB
	sq sq.StatementBuilderType
}

func NewDigestRepository(db *database.PostgresDB) *DigestRepository {
	return &DigestRepository{
		db: db,
		sq: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *DigestRepository) Save(ctx context.Context, digest *models.Digest) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	if digest.CreatedAt.IsZero() {
		digest.CreatedAt = time.Now()
	}

	insertQuery := r.sq.Insert("digests").
		Columns("resource_id", "entity_id", "topic_id", "snapshot_id", "summary", "change_type", "created_at").
		Values(digest.ResourceID, digest.EntityID, digest.TopicID, digest.SnapshotID,
			digest.Summary, digest.ChangeType, digest.CreatedAt).
		Suffix("RETURNING id")

	query, args, err := insertQuery.ToSql()
	if err != nil {
		return &customerrors.ErrBuildSQLQuery{Operation: "сохранение дайджеста", Cause: err}
	}

	err = querier.QueryRow(ctx, query, args...).Scan(&digest.ID)
	if err != nil {
		return &customerrors.ErrSQLExecution{Operation: "сохранение дайджеста", Cause: err}
	}

	return nil
}

func (r *DigestRepository) selectDigests() sq.SelectBuilder {
	return r.sq.Select(
		"d.id", "d.resource_id", "d.entity_id", "d.topic_id", "d.snapshot_id",
		"d.summary", "d.change_type", "d.created_at",
		"r.name AS resource_name", "r.resource_type", "e.name AS entity_name").
		From("digests d").
		Join("resources r ON d.resource_id = r.id").
		Join("entities e ON d.entity_id = e.id")
}

func (r *DigestRepository) FindRecent(ctx context.Context, limit int) ([]*models.Digest, error) {
	selectQuery := r.selectDigests().
		OrderBy("d.created_at DESC", "d.id DESC").
		Limit(uint64(limit)) //nolint:gosec // G115: limit проверяется выше по стеку

	return r.queryDigests(ctx, selectQuery, "получение последних дайджестов")
}

func (r *DigestRepository) FindByTopicID(ctx context.Context, topicID int64, limit int) ([]*models.Digest, error) {
	selectQuery := r.selectDigests().
		Where(sq.Eq{"d.topic_id": topicID}).
		OrderBy("d.created_at DESC", "d.id DESC").
		Limit(uint64(limit)) //nolint:gosec // G115: limit проверяется выше по стеку

	return r.queryDigests(ctx, selectQuery, "получение дайджестов топика")
}

func (r *DigestRepository) queryDigests(
	ctx context.Context,
	selectQuery sq.SelectBuilder,
	operation string,
) ([]*models.Digest, error) {
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

	return collectDigests(rows)
}

func (r *DigestRepository) DeleteByResourceID(ctx context.Context, resourceID int64) error {
	return r.deleteBy(ctx, sq.Eq{"resource_id": resourceID}, "удаление дайджестов ресурса")
}

func (r *DigestRepository) DeleteByEntityID(ctx context.Context, entityID int64) error {
	return r.deleteBy(ctx, sq.Eq{"entity_id": entityID}, "удаление дайджестов сущности")
}

func (r *DigestRepository) DeleteByTopicID(ctx context.Context, topicID int64) error {
	return r.deleteBy(ctx, sq.Eq{"topic_id": topicID}, "удаление дайджестов топика")
}

func (r *DigestRepository) deleteBy(ctx context.Context, where sq.Eq, operation string) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	deleteQuery := r.sq.Delete("digests").Where(where)

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
			return nil, &customerrors.ErrSQLScan{Entity: "дайджеста", Cause: err}
		}

		digest.ResourceType = models.ResourceType(resourceType)
		digests = append(digests, &digest)
	}

	if err := rows.Err(); err != nil {
		return nil, &customerrors.ErrSQLExecution{Operation: "обработка результатов", Cause: err}
	}

	return digests, nil
}
