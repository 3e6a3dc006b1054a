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

type SnapshotRepository struct {
	db *database.PostgresDB
	sq sq.StatementBuilderType
}

func NewSnapshotRepository(db *database.PostgresDB) *SnapshotRepository {
	return &SnapshotRepository{
		db: db,
		sq: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *SnapshotRepository) Save(ctx context.Context, snapshot *models.Snapshot) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	if snapshot.FetchedAt.IsZero() {
		snapshot.FetchedAt = time.Now()
	}

	insertQuery := r.sq.Insert("snapshots").
		Columns("resource_id", "entity_id", "topic_id", "content_hash", "content", "has_changes", "fetched_at").
		Values(snapshot.ResourceID, snapshot.EntityID, snapshot.TopicID,
			snapshot.ContentHash, snapshot.Content, snapshot.HasChanges, snapshot.FetchedAt).
		Suffix("RETURNING id")

	query, args, err := insertQuery.ToSql()
	if err != nil {
		return &customerrors.ErrBuildSQLQuery{Operation: "сохранение снимка", Cause: err}
	}

	err = querier.QueryRow(ctx, query, args...).Scan(&snapshot.ID)
	if err != nil {
		return &customerrors.ErrSQLExecution{Operation: "сохранение снимка", Cause: err}
	}

	return nil
}

func (r *SnapshotRepository) FindLatestByResourceID(ctx context.Context, resourceID int64) (*models.Snapshot, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	selectQuery := r.sq.Select("id", "resource_id", "entity_id", "topic_id",
		"content_hash", "content", "has_changes", "fetched_at").
		From("snapshots").
		Where(sq.Eq{"resource_id": resourceID}).
		OrderBy("fetched_at DESC", "id DESC").
		Limit(1)

	query, args, err := selectQuery.ToSql()
	if err != nil {
		return nil, &customerrors.ErrBuildSQLQuery{Operation: "поиск последнего снимка", Cause: err}
	}

	var snapshot models.Snapshot

	err = querier.QueryRow(ctx, query, args...).Scan(
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

		return nil, &customerrors.ErrSQLExecution{Operation: "поиск последнего снимка", Cause: err}
	}

	return &snapshot, nil
}

func (r *SnapshotRepository) DeleteByResourceID(ctx context.Context, resourceID int64) error {
	return r.deleteBy(ctx, sq.Eq{"resource_id": resourceID}, "удаление снимков ресурса")
}

func (r *SnapshotRepository) DeleteByEntityID(ctx context.Context, entityID int64) error {
	return r.deleteBy(ctx, sq.Eq{"entity_id": entityID}, "удаление снимков сущности")
}

func (r *SnapshotRepository) DeleteByTopicID(ctx context.Context, topicID int64) error {
	return r.deleteBy(ctx, sq.Eq{"topic_id": topicID}, "удаление снимков топика")
}

func (r *SnapshotRepository) deleteBy(ctx context.Context, where sq.Eq, operation string) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	deleteQuery := r.sq.Delete("snapshots").Where(where)

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
