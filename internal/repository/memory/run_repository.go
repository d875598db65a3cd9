package memory

import (
	"time"

	"support-flow-be/internal/entity"

	"github.com/patrickmn/go-cache"
)

// RunRepository keeps async run records in process memory. Records expire
// after ttl; there is no persistence across restarts.
type RunRepository struct {
	cache *cache.Cache
}

func NewRunRepository(ttl time.Duration) *RunRepository {
	cleanup := ttl / 6
	if cleanup < time.Minute {
		cleanup = time.Minute
	}
	return &RunRepository{
		cache: cache.New(ttl, cleanup),
	}
}

// Save stores a copy of run.
func (r *RunRepository) Save(run entity.RunRecord) {
	r.cache.Set(run.Id, run, cache.DefaultExpiration)
}

func (r *RunRepository) Get(runID string) (entity.RunRecord, bool) {
	if x, found := r.cache.Get(runID); found {
		return x.(entity.RunRecord), true
	}
	return entity.RunRecord{}, false
}

func (r *RunRepository) Delete(runID string) {
	r.cache.Delete(runID)
}

func (r *RunRepository) Count() int {
	return r.cache.ItemCount()
}
