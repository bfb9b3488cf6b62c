package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"maps-scraper/internal/types"
	scrapeerrors "maps-scraper/pkg/errors"
)

// redisWriteTimeout bounds a single dataset write
const redisWriteTimeout = 5 * time.Second

// RedisSink stores the dataset as one JSON value under a key, replacing it
// on every write.
type RedisSink struct {
	client *redis.Client
	key    string
}

// NewRedisSink creates a Redis sink
func NewRedisSink(addr string, db int, key string) *RedisSink {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	return &RedisSink{
		client: client,
		key:    key,
	}
}

// Ping checks that the server is reachable.
func (s *RedisSink) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return scrapeerrors.NewSink("redis", "server unreachable", err)
	}
	return nil
}

// WriteAll replaces the value at the sink's key with records.
func (s *RedisSink) WriteAll(records []types.PlaceRecord) error {
	if records == nil {
		records = []types.PlaceRecord{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return scrapeerrors.NewSink("redis", "failed to encode dataset", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisWriteTimeout)
	defer cancel()

	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return scrapeerrors.NewSink("redis", "failed to write "+s.key, err)
	}
	return nil
}

// Close closes the Redis connection
func (s *RedisSink) Close() error {
	return s.client.Close()
}
