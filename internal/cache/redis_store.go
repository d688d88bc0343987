package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jonesrussell/newsgate/internal/retry"
	"github.com/redis/go-redis/v9"
)

// ErrEmptyAddress is returned when the Redis address is not configured.
var ErrEmptyAddress = errors.New("redis address is required")

const connectionTimeout = 5 * time.Second

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

// NewRedisClient creates a client and verifies the connection.
func NewRedisClient(cfg RedisConfig) (*redis.Client, error) {
	if cfg.Address == "" {
		return nil, ErrEmptyAddress
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// RedisStore keeps the record as a JSON string under one key. Transient
// errors are retried.
type RedisStore struct {
	client redis.UniversalClient
	key    string
	retry  retry.Config
}

// NewRedisStore returns a store using key on client.
func NewRedisStore(client redis.UniversalClient, key string) *RedisStore {
	cfg := retry.DefaultConfig()
	cfg.InitialDelay = 50 * time.Millisecond
	cfg.MaxDelay = time.Second
	cfg.IsRetryable = func(err error) bool {
		return !errors.Is(err, redis.Nil) && retry.DefaultIsRetryable(err)
	}
	return &RedisStore{client: client, key: key, retry: cfg}
}

func (s *RedisStore) Load(ctx context.Context) (*Record, error) {
	var data []byte
	err := retry.Retry(ctx, s.retry, func() error {
		var getErr error
		data, getErr = s.client.Get(ctx, s.key).Bytes()
		return getErr
	})
	if errors.Is(err, redis.Nil) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", s.key, err)
	}

	var rec Record
	if err = json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode budget cache: %w", err)
	}
	return &rec, nil
}

func (s *RedisStore) Save(ctx context.Context, rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode budget cache: %w", err)
	}
	err = retry.Retry(ctx, s.retry, func() error {
		return s.client.Set(ctx, s.key, data, 0).Err()
	})
	if err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	return nil
}
