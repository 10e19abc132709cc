// Package rediscache implements matcher.PairTimeCache against Redis, grounded
// on this codebase's ETA service cache-aside idiom: a deterministic cache key,
// JSON-marshaled payload, and a bounded TTL.
package rediscache

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/ubi-africa/dispatch-sim/internal/roadnet"
)

// DefaultTTL bounds how long a cached pair time stays usable; spec.md §9 notes
// the cache is not invalidated on hour change, so callers relying on per-hour
// accuracy (P3/P4) must bypass it, not this package.
const DefaultTTL = 10 * time.Minute

// PairTimeStore caches shortest-path query results keyed by (u, v). It
// implements matcher.PairTimeCache.
type PairTimeStore struct {
	client *redis.Client
	ctx    context.Context
	ttl    time.Duration
}

// NewPairTimeStore wraps an already-connected client.
func NewPairTimeStore(client *redis.Client) *PairTimeStore {
	return &PairTimeStore{client: client, ctx: context.Background(), ttl: DefaultTTL}
}

type cachedValue struct {
	Hours float64 `json:"hours"`
}

func (s *PairTimeStore) key(u, v roadnet.NodeID) string {
	raw := fmt.Sprintf("pairtime:%d:%d", u, v)
	return fmt.Sprintf("%x", md5.Sum([]byte(raw)))
}

// Get implements matcher.PairTimeCache.
func (s *PairTimeStore) Get(u, v roadnet.NodeID) (float64, bool) {
	raw, err := s.client.Get(s.ctx, s.key(u, v)).Result()
	if err != nil {
		return 0, false
	}
	var cv cachedValue
	if json.Unmarshal([]byte(raw), &cv) != nil {
		return 0, false
	}
	return cv.Hours, true
}

// Set implements matcher.PairTimeCache.
func (s *PairTimeStore) Set(u, v roadnet.NodeID, hours float64) {
	payload, err := json.Marshal(cachedValue{Hours: hours})
	if err != nil {
		return
	}
	s.client.Set(s.ctx, s.key(u, v), payload, s.ttl)
}
