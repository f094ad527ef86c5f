package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hpungsan/coursedesk/internal/errors"
)

const defaultRedisTimeout = 2 * time.Second

// RedisOptions configures a RedisStore.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Timeout  time.Duration // per call; default 2s
}

// RedisStore keeps values as plain redis strings without expiry.
type RedisStore struct {
	client  *redis.Client
	timeout time.Duration
}

// NewRedisStore connects and verifies the server answers PING.
func NewRedisStore(opts RedisOptions) (*RedisStore, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultRedisTimeout
	}

	client := redis.NewClient(&redis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: timeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	pong, err := client.Ping(ctx).Result()
	if err != nil {
		client.Close()
		return nil, errors.NewStorageUnavailable("redis", err)
	}
	if pong != "PONG" {
		client.Close()
		return nil, errors.NewStorageUnavailable("redis", fmt.Errorf("expected PONG, got %s", pong))
	}

	return &RedisStore{client: client, timeout: timeout}, nil
}

func (s *RedisStore) Get(key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.NewStorageUnavailable("redis", err)
	}
	return val, true, nil
}

func (s *RedisStore) Set(key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return errors.NewStorageUnavailable("redis", err)
	}
	return nil
}

func (s *RedisStore) Remove(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.client.Del(ctx, key).Err(); err != nil {
		return errors.NewStorageUnavailable("redis", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
