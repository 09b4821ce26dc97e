package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// DefaultKeyPrefix namespaces every key and channel.
	DefaultKeyPrefix = "beerzone"

	logValueField = "v"
	scanBatchSize = 200
)

// RedisStoreConfig holds configuration for the Redis store.
type RedisStoreConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// RedisStore implements Store on Redis. Values are plain keys, logs are
// streams (XADD/XRANGE) and change notifications go over Pub/Sub.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	logger    *zap.Logger

	closeOnce sync.Once
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg RedisStoreConfig, logger *zap.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     20,
		MinIdleConns: 5,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	s := NewRedisStoreWithClient(client, cfg.KeyPrefix, logger)
	s.logger.Info("Redis realtime store connected",
		zap.String("addr", cfg.Addr),
		zap.Int("db", cfg.DB),
		zap.String("prefix", s.keyPrefix))
	return s, nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client, keyPrefix string, logger *zap.Logger) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{client: client, keyPrefix: keyPrefix, logger: logger.Named("realtime.redis")}
}

func (s *RedisStore) key(path string) string {
	return s.keyPrefix + ":" + path
}

func (s *RedisStore) channel() string {
	return s.keyPrefix + ":events"
}

func (s *RedisStore) publish(ctx context.Context, pipe redis.Pipeliner, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	pipe.Publish(ctx, s.channel(), payload)
	return nil
}

// Get retrieves a value by path.
func (s *RedisStore) Get(ctx context.Context, path string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key(path)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", path, err)
	}
	return data, nil
}

// Set stores a value and publishes a change event in one round trip.
func (s *RedisStore) Set(ctx context.Context, path string, value []byte) error {
	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(path), value, 0)
	if err := s.publish(ctx, pipe, Event{Path: path, Value: value}); err != nil {
		return err
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to set %s: %w", path, err)
	}
	return nil
}

// Delete removes a value and publishes a deletion event.
func (s *RedisStore) Delete(ctx context.Context, path string) error {
	n, err := s.client.Del(ctx, s.key(path)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}
	if n == 0 {
		return nil
	}

	pipe := s.client.Pipeline()
	if err := s.publish(ctx, pipe, Event{Path: path, Deleted: true}); err != nil {
		return err
	}
	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Warn("Failed to publish deletion", zap.String("path", path), zap.Error(err))
	}
	return nil
}

// List returns the direct children of path.
func (s *RedisStore) List(ctx context.Context, path string) ([]Entry, error) {
	parent := s.key(path)
	var keys []string

	iter := s.client.Scan(ctx, 0, parent+"/*", scanBatchSize).Iterator()
	for iter.Next(ctx) {
		k := iter.Val()
		if !strings.Contains(k[len(parent)+1:], "/") {
			keys = append(keys, k)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", path, err)
	}
	if len(keys) == 0 {
		return nil, nil
	}
	sort.Strings(keys)

	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	out := make([]Entry, 0, len(keys))
	for i, k := range keys {
		str, ok := vals[i].(string)
		if !ok {
			// Deleted between SCAN and MGET.
			continue
		}
		out = append(out, Entry{Key: k[len(parent)+1:], Value: []byte(str)})
	}
	return out, nil
}

// Push appends to the stream at path.
func (s *RedisStore) Push(ctx context.Context, path string, value []byte) (string, error) {
	id, err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.key(path),
		ID:     "*",
		Values: map[string]interface{}{logValueField: value},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("failed to append to %s: %w", path, err)
	}

	pipe := s.client.Pipeline()
	if err := s.publish(ctx, pipe, Event{Path: Join(path, id), Value: value}); err == nil {
		if _, err := pipe.Exec(ctx); err != nil {
			s.logger.Warn("Failed to publish append", zap.String("path", path), zap.Error(err))
		}
	}
	return id, nil
}

// Range returns the stream at path in insertion order.
func (s *RedisStore) Range(ctx context.Context, path string) ([]Entry, error) {
	msgs, err := s.client.XRange(ctx, s.key(path), "-", "+").Result()
	if err != nil {
		return nil, fmt.Errorf("failed to range %s: %w", path, err)
	}

	out := make([]Entry, 0, len(msgs))
	for _, m := range msgs {
		raw, ok := m.Values[logValueField].(string)
		if !ok {
			s.logger.Warn("Skipping malformed log entry", zap.String("path", path), zap.String("id", m.ID))
			continue
		}
		out = append(out, Entry{Key: m.ID, Value: []byte(raw)})
	}
	return out, nil
}

// Subscribe listens on the events channel and forwards matching events.
func (s *RedisStore) Subscribe(ctx context.Context, prefix string) (<-chan Event, error) {
	pubsub := s.client.Subscribe(ctx, s.channel())

	// Wait for subscription confirmation
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	out := make(chan Event, subscriberBuffer)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					s.logger.Warn("Realtime event channel closed")
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					s.logger.Error("Failed to unmarshal event", zap.String("payload", msg.Payload), zap.Error(err))
					continue
				}
				if !matches(prefix, ev.Path) {
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.client.Close()
	})
	return err
}

// Ensure RedisStore implements Store
var _ Store = (*RedisStore)(nil)
