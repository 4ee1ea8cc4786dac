package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "yourland:resolver:"

// RedisStore keeps resolution results in Redis so every instance shares them.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects using a redis:// URL and checks the connection.
func NewRedisStore(ctx context.Context, url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.Addr, err)
	}
	return &RedisStore{client: client}, nil
}

// Values are stored as "1:<value>" for hits and "0:" for negative results.
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, bool, error) {
	raw, err := s.client.Get(ctx, redisKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, false, nil
	}
	if err != nil {
		return "", false, false, err
	}
	found, value, ok := strings.Cut(raw, ":")
	if !ok {
		return "", false, false, nil
	}
	return value, found == "1", true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string, found bool, ttl time.Duration) error {
	flag := "0"
	if found {
		flag = "1"
	}
	return s.client.Set(ctx, redisKeyPrefix+key, flag+":"+value, ttl).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
