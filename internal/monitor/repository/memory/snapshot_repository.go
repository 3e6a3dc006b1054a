package memory

import (
	"context"
	"sync"
	"time"

	"github.com/central-university-dev/go-WebMonitor/internal/domain/errors"
	"github.com/central-university-dev/go-WebMonitor/internal/domain/models"
)

type SnapshotRepository struct {
	snapshots map[int64]*models.Snapshot
	mu        sync.RWMutex
	nextID    int64
}

func NewSnapshotRepository() *SnapshotRepository {
	return &SnapshotRepository{
		snapshots: make(map[int64]*models.Snapshot),
		nextID:    1,
	}
}

func (r *SnapshotRepository) Save(_ context.Context, snapshot *models.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if snapshot.ID == 0 {
		snapshot.ID = r.nextID
		r.nextID++
	}

	if snapshot.FetchedAt.IsZero() {
		snapshot.FetchedAt = time.Now()
	}

	r.snapshots[snapshot.ID] = snapshot

	return nil
}

func (r *SnapshotRepository) FindLatestByResourceID(_ context.Context, resourceID int64) (*models.Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *models.Snapshot

	for _, snapshot := range r.snapshots {
		if snapshot.ResourceID != resourceID {
			continue
		}

		if latest == nil ||
			snapshot.FetchedAt.After(latest.FetchedAt) ||
			(snapshot.FetchedAt.Equal(latest.FetchedAt) && snapshot.ID > latest.ID) {
			latest = snapshot
		}
	}

	if latest == nil {
		return nil, &errors.ErrSnapshotNotFound{ResourceID: resourceID}
	}

	return latest, nil
}

func (r *SnapshotRepository) DeleteByResourceID(_ context.Context, resourceID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, snapshot := range r.snapshots {
		if snapshot.ResourceID == resourceID {
			delete(r.snapshots, id)
		}
	}

	return nil
}

func (r *SnapshotRepository) DeleteByEntityID(_ context.Context, entityID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, snapshot := range r.snapshots {
		if snapshot.EntityID == entityID {
			delete(r.snapshots, id)
		}
	}

	return nil
}

func (r *SnapshotRepository) DeleteByTopicID(_ context.Context, topicID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, snapshot := range r.snapshots {
		if snapshot.TopicID == topicID {
			delete(r.snapshots, id)
		}
	}

	return nil
}
