package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kirillkom/drive-filing-bot/internal/core/domain"
)

// Store backs the batch buffer with a Redis list per owner. The key TTL
// is a safety net against orphaned buffers when the process dies mid
// window; the collector's own timer drives the real flush.
type Store struct {
	client *redis.Client
	keyTTL time.Duration
}

func New(addr, password string, db int, keyTTL time.Duration) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	if keyTTL <= 0 {
		keyTTL = 10 * time.Minute
	}
	return &Store{client: client, keyTTL: keyTTL}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func bufferKey(ownerID string) string {
	return "buffer:" + ownerID
}

func (s *Store) Append(ctx context.Context, ownerID string, item domain.PendingItem) error {
	payload, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("marshal pending item: %w", err)
	}

	key := bufferKey(ownerID)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, payload)
	pipe.Expire(ctx, key, s.keyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis rpush: %w", err)
	}
	return nil
}

func (s *Store) Items(ctx context.Context, ownerID string) ([]domain.PendingItem, error) {
	raw, err := s.client.LRange(ctx, bufferKey(ownerID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange: %w", err)
	}
	return decodeItems(raw)
}

func (s *Store) Replace(ctx context.Context, ownerID string, items []domain.PendingItem) error {
	key := bufferKey(ownerID)
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	for _, item := range items {
		payload, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("marshal pending item: %w", err)
		}
		pipe.RPush(ctx, key, payload)
	}
	if len(items) > 0 {
		pipe.Expire(ctx, key, s.keyTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis replace: %w", err)
	}
	return nil
}

func (s *Store) Flush(ctx context.Context, ownerID string) ([]domain.PendingItem, error) {
	key := bufferKey(ownerID)

	pipe := s.client.TxPipeline()
	rangeCmd := pipe.LRange(ctx, key, 0, -1)
	pipe.Del(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("redis flush: %w", err)
	}
	return decodeItems(rangeCmd.Val())
}

func (s *Store) Size(ctx context.Context, ownerID string) (int, error) {
	size, err := s.client.LLen(ctx, bufferKey(ownerID)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis llen: %w", err)
	}
	return int(size), nil
}

func decodeItems(raw []string) ([]domain.PendingItem, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	items := make([]domain.PendingItem, 0, len(raw))
	for _, entry := range raw {
		var item domain.PendingItem
		if err := json.Unmarshal([]byte(entry), &item); err != nil {
			return nil, fmt.Errorf("unmarshal pending item: %w", err)
		}
		items = append(items, item)
	}
	return items, nil
}
