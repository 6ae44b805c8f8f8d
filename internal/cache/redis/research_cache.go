package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alanyoungcy/marketwire/internal/domain"
	"github.com/redis/go-redis/v9"
)

// ResearchCache implements domain.ResearchCache with plain string keys.
//
// Key schema:
//
//	research:{marketID} - research context text
type ResearchCache struct {
	rdb *redis.Client
}

func NewResearchCache(c *Client) *ResearchCache {
	return &ResearchCache{rdb: c.rdb}
}

func researchKey(marketID string) string { return "research:" + marketID }

// Set stores text for ttl. A zero ttl keeps it until evicted.
func (rc *ResearchCache) Set(ctx context.Context, marketID, text string, ttl time.Duration) error {
	if err := rc.rdb.Set(ctx, researchKey(marketID), text, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set research %s: %w", marketID, err)
	}
	return nil
}

// Get returns domain.ErrNotFound on a miss.
func (rc *ResearchCache) Get(ctx context.Context, marketID string) (string, error) {
	text, err := rc.rdb.Get(ctx, researchKey(marketID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis: get research %s: %w", marketID, err)
	}
	return text, nil
}

var _ domain.ResearchCache = (*ResearchCache)(nil)
