package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Stats holds lookup counters for one cache category. Expired is tracked
// separately from Misses: both trigger a rebuild, but an expired entry
// means the prefetch horizon was exhausted rather than never primed.
type Stats struct {
	Hits        int64     `json:"hits"`
	Misses      int64     `json:"misses"`
	Expired     int64     `json:"expired"`
	HitRate     float64   `json:"hit_rate"`
	TotalOps    int64     `json:"total_ops"`
	LastUpdated time.Time `json:"last_updated"`
}

// Analytics tracks cache performance per category (one category per
// field/frequency pair in practice) with optional Redis persistence so
// counters survive restarts.
type Analytics struct {
	redisClient *redis.Client
	keyPrefix   string
	stats       map[string]*Stats
	mu          sync.RWMutex
}

// NewAnalytics creates an analytics tracker. redisClient may be nil, in
// which case counters are in-memory only.
func NewAnalytics(redisClient *redis.Client) *Analytics {
	return &Analytics{
		redisClient: redisClient,
		keyPrefix:   "histwindow:cache_stats:",
		stats:       make(map[string]*Stats),
	}
}

// RecordHit records a cache hit for the category.
func (a *Analytics) RecordHit(category string) {
	a.record(category, func(s *Stats) { s.Hits++ })
}

// RecordMiss records a lookup for a key that was never cached.
func (a *Analytics) RecordMiss(category string) {
	a.record(category, func(s *Stats) { s.Misses++ })
}

// RecordExpired records a lookup that found an entry past its prefetch
// horizon.
func (a *Analytics) RecordExpired(category string) {
	a.record(category, func(s *Stats) { s.Expired++ })
}

func (a *Analytics) record(category string, update func(*Stats)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, name := range []string{category, "overall"} {
		s := a.stats[name]
		if s == nil {
			s = &Stats{}
			a.stats[name] = s
		}
		update(s)
		s.TotalOps++
		s.HitRate = float64(s.Hits) / float64(s.TotalOps)
		s.LastUpdated = time.Now()
	}
}

// GetStats returns counters for one category.
func (a *Analytics) GetStats(category string) Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if s, ok := a.stats[category]; ok {
		return *s
	}
	return Stats{}
}

// GetAllStats returns a copy of all per-category counters.
func (a *Analytics) GetAllStats() map[string]Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make(map[string]Stats, len(a.stats))
	for name, s := range a.stats {
		out[name] = *s
	}
	return out
}

// Persist writes the current counters to Redis, one key per category.
func (a *Analytics) Persist(ctx context.Context) error {
	if a.redisClient == nil {
		return nil
	}
	for name, s := range a.GetAllStats() {
		data, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("marshal stats for %s: %w", name, err)
		}
		if err := a.redisClient.Set(ctx, a.keyPrefix+name, data, 0).Err(); err != nil {
			return fmt.Errorf("persist stats for %s: %w", name, err)
		}
	}
	return nil
}

// Restore loads previously persisted counters from Redis, replacing any
// in-memory state for categories found there.
func (a *Analytics) Restore(ctx context.Context) error {
	if a.redisClient == nil {
		return nil
	}
	var keys []string
	iter := a.redisClient.Scan(ctx, 0, a.keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan stats keys: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	for _, key := range keys {
		data, err := a.redisClient.Get(ctx, key).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return fmt.Errorf("load stats %s: %w", key, err)
		}
		var s Stats
		if err := json.Unmarshal([]byte(data), &s); err != nil {
			return fmt.Errorf("decode stats %s: %w", key, err)
		}
		a.stats[key[len(a.keyPrefix):]] = &s
	}
	return nil
}
