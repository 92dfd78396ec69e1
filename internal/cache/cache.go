package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tutorhub/scheduler/internal/model"
)

// AvailabilityCache caches computed bookable windows per owner in Redis.
// Mutations to slots or bookings are followed by an explicit Flush of the
// owner's scope; the core scheduling logic never touches this layer.
type AvailabilityCache struct {
	rdb    *goredis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func New(addr, password string, logger *zap.Logger) (*AvailabilityCache, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	logger.Info("Redis connected", zap.String("addr", addr))

	return &AvailabilityCache{rdb: rdb, ttl: 5 * time.Minute, logger: logger}, nil
}

func key(ownerID int64, from, to time.Time) string {
	return fmt.Sprintf("availability:%d:%d:%d", ownerID, from.Unix(), to.Unix())
}

// cacheEntry wraps the window list so a stored empty result stays
// distinguishable from a key that was never set.
type cacheEntry struct {
	Windows []model.BookableWindow `json:"windows"`
}

// Get returns the cached windows for the query; the second return is false on
// a miss. A hit with zero windows is still a hit: fully booked owners do not
// get recomputed on every query. Cache failures degrade to a miss, never to a
// request failure.
func (c *AvailabilityCache) Get(ctx context.Context, ownerID int64, from, to time.Time) ([]model.BookableWindow, bool) {
	if c == nil {
		return nil, false
	}

	raw, err := c.rdb.Get(ctx, key(ownerID, from, to)).Bytes()
	if err != nil {
		if err != goredis.Nil {
			c.logger.Warn("availability cache read failed", zap.Error(err))
		}
		return nil, false
	}

	var entry cacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		c.logger.Warn("availability cache entry corrupt", zap.Error(err))
		return nil, false
	}

	return entry.Windows, true
}

func (c *AvailabilityCache) Set(ctx context.Context, ownerID int64, from, to time.Time, windows []model.BookableWindow) {
	if c == nil {
		return
	}

	raw, err := json.Marshal(cacheEntry{Windows: windows})
	if err != nil {
		return
	}

	if err := c.rdb.Set(ctx, key(ownerID, from, to), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("availability cache write failed", zap.Error(err))
	}

	// Track keys per owner so Flush can drop the whole scope.
	if err := c.rdb.SAdd(ctx, fmt.Sprintf("availability-keys:%d", ownerID), key(ownerID, from, to)).Err(); err != nil {
		c.logger.Warn("availability cache index write failed", zap.Error(err))
	}
}

// Flush drops every cached window set for the owner. Called after any slot
// or booking mutation in the owner's scope.
func (c *AvailabilityCache) Flush(ctx context.Context, ownerID int64) {
	if c == nil {
		return
	}

	indexKey := fmt.Sprintf("availability-keys:%d", ownerID)
	keys, err := c.rdb.SMembers(ctx, indexKey).Result()
	if err != nil {
		c.logger.Warn("availability cache flush failed", zap.Int64("owner_id", ownerID), zap.Error(err))
		return
	}

	if len(keys) > 0 {
		if err := c.rdb.Del(ctx, append(keys, indexKey)...).Err(); err != nil {
			c.logger.Warn("availability cache flush failed", zap.Int64("owner_id", ownerID), zap.Error(err))
			return
		}
	}

	c.logger.Debug("availability cache flushed",
		zap.Int64("owner_id", ownerID),
		zap.Int("keys", len(keys)))
}
