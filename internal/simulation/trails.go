package simulation

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/mudworld/internal/game/world"
)

// PruneObserver receives prune counts.
type PruneObserver interface {
	TracksPruned(n int)
}

// TrailRegistry holds the trail of every tracked entity.
type TrailRegistry struct {
	mu     sync.Mutex
	trails map[uuid.UUID]*world.Trail
}

// NewTrailRegistry returns an empty registry.
func NewTrailRegistry() *TrailRegistry {
	return &TrailRegistry{trails: make(map[uuid.UUID]*world.Trail)}
}

// Track returns the trail of creator, creating it on first use.
func (r *TrailRegistry) Track(creator uuid.UUID) *world.Trail {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trails[creator]
	if !ok {
		t = world.NewTrail(creator)
		r.trails[creator] = t
	}
	return t
}

// Trail returns the trail of creator, if tracked.
func (r *TrailRegistry) Trail(creator uuid.UUID) (*world.Trail, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trails[creator]
	return t, ok
}

// Forget clears and drops the trail of creator.
//
// Postcondition: every track of creator is removed from its location.
func (r *TrailRegistry) Forget(creator uuid.UUID) bool {
	r.mu.Lock()
	t, ok := r.trails[creator]
	delete(r.trails, creator)
	r.mu.Unlock()
	if ok {
		t.Clear()
	}
	return ok
}

// Creators returns the tracked entity ids in a stable order.
func (r *TrailRegistry) Creators() []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(r.trails))
	for id := range r.trails {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// Prune removes every track older than expiry from every trail.
//
// Postcondition: Returns the number of tracks removed.
func (r *TrailRegistry) Prune(expiry time.Time) int {
	r.mu.Lock()
	trails := make([]*world.Trail, 0, len(r.trails))
	for _, t := range r.trails {
		trails = append(trails, t)
	}
	r.mu.Unlock()

	total := 0
	for _, t := range trails {
		total += t.Prune(expiry)
	}
	return total
}

// PruneTask returns a task that prunes tracks older than maxAge.
//
// Precondition: maxAge > 0.
func PruneTask(r *TrailRegistry, maxAge time.Duration, observer PruneObserver, logger *zap.Logger) Task {
	return func(_ context.Context, now time.Time) {
		n := r.Prune(now.Add(-maxAge))
		if n == 0 {
			return
		}
		if observer != nil {
			observer.TracksPruned(n)
		}
		logger.Debug("tracks pruned", zap.Int("count", n))
	}
}
