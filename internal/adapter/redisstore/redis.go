// Package redisstore implements domain.HandoffStore on Redis.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"nutriscan/internal/domain"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "analysis:"

var _ domain.HandoffStore = (*Handoff)(nil)

// Handoff stores the latest analysis per requester as JSON text with a TTL.
type Handoff struct {
	client *redis.Client
	ttl    time.Duration
}

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Open connects to Redis and pings it.
func Open(ctx context.Context, opts Options) (*Handoff, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	return New(client, opts.TTL), nil
}

// New wraps an existing client. A zero ttl stores keys without expiry.
func New(client *redis.Client, ttl time.Duration) *Handoff {
	return &Handoff{client: client, ttl: ttl}
}

// Close closes the underlying client.
func (h *Handoff) Close() error {
	return h.client.Close()
}

// SaveLatest overwrites the requester's slot.
func (h *Handoff) SaveLatest(ctx context.Context, key string, rec domain.NutritionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode analysis: %w", err)
	}
	if err := h.client.Set(ctx, keyPrefix+key, data, h.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save analysis to Redis: %w", err)
	}
	return nil
}

// LoadLatest reads the requester's slot, returning nil when it is empty.
func (h *Handoff) LoadLatest(ctx context.Context, key string) (*domain.NutritionRecord, error) {
	data, err := h.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis from Redis: %w", err)
	}
	var rec domain.NutritionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode analysis: %w", err)
	}
	return &rec, nil
}
