package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/central-university-dev/go-WebMonitor/internal/domain/models"
)

type DigestRepository struct {
	digests map[int64]*models.Digest
	mu      sync.RWMutex
	nextID  int64
}

func NewDigestRepository() *DigestRepository {
	return &DigestRepository{
		digests: make(map[int64]*models.Digest),
		nextID:  1,
	}
}

func (r *DigestRepository) Save(_ context.Context, digest *models.Digest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if digest.ID == 0 {
		digest.ID = r.nextID
		r.nextID++
	}

	if digest.CreatedAt.IsZero() {
		digest.CreatedAt = time.Now()
	}

	r.digests[digest.ID] = digest

	return nil
}

func (r *DigestRepository) FindRecent(_ context.Context, limit int) ([]*models.Digest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.collectLocked(func(*models.Digest) bool { return true }, limit), nil
}

func (r *DigestRepository) FindByTopicID(_ context.Context, topicID int64, limit int) ([]*models.Digest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.collectLocked(func(d *models.Digest) bool { return d.TopicID == topicID }, limit), nil
}

func (r *DigestRepository) collectLocked(match func(*models.Digest) bool, limit int) []*models.Digest {
	var digests []*models.Digest

	for _, digest := range r.digests {
		if match(digest) {
			digests = append(digests, digest)
		}
	}

	sort.Slice(digests, func(i, j int) bool {
		if digests[i].CreatedAt.Equal(digests[j].CreatedAt) {
			return digests[i].ID > digests[j].ID
		}

		return digests[i].CreatedAt.After(digests[j].CreatedAt)
	})

	if limit > 0 && len(digests) > limit {
		digests = digests[:limit]
	}

	return digests
}

func (r *DigestRepository) DeleteByResourceID(_ context.Context, resourceID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, digest := range r.digests {
		if digest.ResourceID == resourceID {
			delete(r.digests, id)
		}
	}

	return nil
}

func (r *DigestRepository) DeleteByEntityID(_ context.Context, entityID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, digest := range r.digests {
		if digest.EntityID == entityID {
			delete(r.digests, id)
		}
	}

	return nil
}

func (r *DigestRepository) DeleteByTopicID(_ context.Context, topicID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, digest := range r.digests {
		if digest.TopicID == topicID {
			delete(r.digests, id)
		}
	}

	return nil
}
