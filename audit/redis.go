package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the list key used when RedisOptions.Key is empty.
const DefaultRedisKey = "bimq:audit"

// RedisOptions configures a RedisSink.
type RedisOptions struct {
	// URL is the Redis connection string (e.g., "redis://localhost:6379").
	URL string

	// Key is the list the entries are pushed to.
	Key string

	// MaxLen trims the list to its newest MaxLen entries after each push.
	// Zero keeps everything.
	MaxLen int64

	// ConnectTimeout is the maximum time to wait for connection establishment.
	ConnectTimeout time.Duration
}

// RedisSink pushes entries as JSON onto a Redis list (RPUSH), oldest first.
type RedisSink struct {
	client *redis.Client
	key    string
	maxLen int64
}

// NewRedisSink connects to Redis and verifies the connection with PING.
func NewRedisSink(opts RedisOptions) (*RedisSink, error) {
	if opts.URL == "" {
		opts.URL = "redis://localhost:6379"
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	redisOpts.DialTimeout = opts.ConnectTimeout

	client := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisSinkFromClient(client, opts.Key, opts.MaxLen), nil
}

// NewRedisSinkFromClient wraps an existing client.
func NewRedisSinkFromClient(client *redis.Client, key string, maxLen int64) *RedisSink {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisSink{client: client, key: key, maxLen: maxLen}
}

// Key returns the list key.
func (s *RedisSink) Key() string {
	return s.key
}

// Append implements Sink.
func (s *RedisSink) Append(ctx context.Context, e Entry) error {
	data, err := json.Marshal(e.Stamped())
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, s.key, data)
	if s.maxLen > 0 {
		pipe.LTrim(ctx, s.key, -s.maxLen, -1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to push to %s: %w", s.key, err)
	}
	return nil
}

// Entries returns every entry in the list, oldest first.
func (s *RedisSink) Entries(ctx context.Context) ([]Entry, error) {
	items, err := s.client.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.key, err)
	}
	out := make([]Entry, 0, len(items))
	for _, item := range items {
		var e Entry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal audit entry: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}

// Ping checks the connection.
func (s *RedisSink) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *RedisSink) Close() error {
	return s.client.Close()
}
