package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const ratingCacheTTL = 5 * time.Minute

// RatingCache is a redis-backed TTL cache for aggregate ratings. The
// aggregate is read once per candidate during matching, so a short-lived
// cache takes most of that load off the database. Misses and redis errors
// both fall through to SQL.
type RatingCache struct {
	rdb *redis.Client
}

// NewRatingCache connects to redis from a URL, e.g. "redis://localhost:6379".
func NewRatingCache(url string) (*RatingCache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %v", err)
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %v", err)
	}
	return &RatingCache{rdb: rdb}, nil
}

func ratingKey(userID uint, role string) string {
	return fmt.Sprintf("rating:avg:%d:%s", userID, role)
}

func (c *RatingCache) Get(userID uint, role string) (float64, bool) {
	val, err := c.rdb.Get(context.Background(), ratingKey(userID, role)).Result()
	if err != nil {
		return 0, false
	}
	avg, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, false
	}
	return avg, true
}

func (c *RatingCache) Set(userID uint, role string, avg float64) {
	c.rdb.Set(context.Background(), ratingKey(userID, role),
		strconv.FormatFloat(avg, 'f', -1, 64), ratingCacheTTL)
}

func (c *RatingCache) Invalidate(userID uint, role string) {
	c.rdb.Del(context.Background(), ratingKey(userID, role))
}
