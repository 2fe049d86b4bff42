package session

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Registry is the process-wide map from session id to conversation state.
// It is sharded so unrelated sessions never contend on one lock.
type Registry struct {
	logger *zap.Logger
	shards []*shard
}

type shard struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates a registry with the given shard count.
func NewRegistry(logger *zap.Logger, shards int) *Registry {
	if shards <= 0 {
		shards = 16
	}
	r := &Registry{
		logger: logger.Named("session.registry"),
		shards: make([]*shard, shards),
	}
	for i := range r.shards {
		r.shards[i] = &shard{sessions: make(map[string]*Session)}
	}
	return r
}

func (r *Registry) shardFor(id string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return r.shards[h.Sum32()%uint32(len(r.shards))]
}

// GetOrCreate returns the session for id, creating it on first join.
// Concurrent first joins of the same id observe the same session: the
// shard lock guarantees exactly one history wins.
func (r *Registry) GetOrCreate(id, ownerID string) *Session {
	sh := r.shardFor(id)

	sh.mu.RLock()
	s, ok := sh.sessions[id]
	sh.mu.RUnlock()
	if ok {
		return s
	}

	sh.mu.Lock()
	defer sh.mu.Unlock()
	if s, ok := sh.sessions[id]; ok {
		return s
	}
	s = newSession(id, ownerID)
	sh.sessions[id] = s
	r.logger.Debug("session created",
		zap.String("session_id", id),
		zap.String("owner_id", ownerID))
	return s
}

// Get returns the session for id if it exists.
func (r *Registry) Get(id string) (*Session, bool) {
	sh := r.shardFor(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	s, ok := sh.sessions[id]
	return s, ok
}

// Len returns the number of live sessions across all shards.
func (r *Registry) Len() int {
	n := 0
	for _, sh := range r.shards {
		sh.mu.RLock()
		n += len(sh.sessions)
		sh.mu.RUnlock()
	}
	return n
}

// Evict removes sessions idle since before cutoff and returns how many
// were dropped. Sessions with an engine call in flight are never evicted.
func (r *Registry) Evict(cutoff time.Time) int {
	evicted := 0
	for _, sh := range r.shards {
		sh.mu.Lock()
		for id, s := range sh.sessions {
			if s.idleSince(cutoff) {
				delete(sh.sessions, id)
				evicted++
			}
		}
		sh.mu.Unlock()
	}
	if evicted > 0 {
		r.logger.Info("evicted idle sessions", zap.Int("count", evicted))
	}
	return evicted
}

// RunSweeper evicts idle sessions on a timer until ctx is cancelled.
// A zero ttl disables eviction entirely: sessions then live for the
// lifetime of the process, matching the availability-over-durability
// trade-off the relay makes.
func (r *Registry) RunSweeper(ctx context.Context, ttl, interval time.Duration) {
	if ttl <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Evict(time.Now().Add(-ttl))
		}
	}
}
