package ledger

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	redisplatform "trustledger/internal/platform/redis"
	id "trustledger/pkg/domain"
)

// RedisSource reads the latest block height published by the external chain
// follower. A short local cache keeps hot paths off Redis; a monotonic guard
// ensures a lagging replica can never make the clock run backwards.
type RedisSource struct {
	client   *redisplatform.Client
	key      string
	cacheTTL time.Duration

	mu       sync.Mutex
	cached   id.Height
	cachedAt time.Time
	lastSeen id.Height
}

// NewRedisSource creates a Redis-backed height source reading the given key.
func NewRedisSource(client *redisplatform.Client, key string, cacheTTL time.Duration) *RedisSource {
	return &RedisSource{
		client:   client,
		key:      key,
		cacheTTL: cacheTTL,
	}
}

func (s *RedisSource) CurrentHeight(ctx context.Context) (id.Height, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.cachedAt.IsZero() && time.Since(s.cachedAt) < s.cacheTTL {
		return s.cached, nil
	}

	raw, err := s.client.Get(ctx, s.key).Result()
	if err != nil {
		// A stale height beats no height while Redis hiccups.
		if s.lastSeen > 0 {
			return s.lastSeen, nil
		}
		return 0, fmt.Errorf("read ledger height: %w", err)
	}

	parsed, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse ledger height %q: %w", raw, err)
	}

	height := id.Height(parsed)
	if height < s.lastSeen {
		height = s.lastSeen
	}
	s.lastSeen = height
	s.cached = height
	s.cachedAt = time.Now()
	return height, nil
}
