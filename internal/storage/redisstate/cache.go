// Package redisstate keeps a write-through snapshot of each auction's
// observable state in Redis, so state reads normally skip Postgres. Entries
// may vanish at any time; Postgres stays authoritative.
package redisstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/mvidala/gavel/internal/domain"
)

const (
	keyPrefix  = "auction:state:"
	defaultTTL = 30 * time.Second
)

type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func New(client *redis.Client, opts ...Option) *Cache {
	c := &Cache{client: client, ttl: defaultTTL}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type Option func(*Cache)

// WithTTL overrides how long a snapshot stays servable without a refresh.
func WithTTL(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.ttl = d
		}
	}
}

func (c *Cache) Put(ctx context.Context, state domain.AuctionState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := c.client.Set(ctx, keyPrefix+state.AuctionID.String(), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

func (c *Cache) Get(ctx context.Context, auctionID uuid.UUID) (*domain.AuctionState, error) {
	payload, err := c.client.Get(ctx, keyPrefix+auctionID.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("cache get: %w", err)
	}

	var state domain.AuctionState
	if err := json.Unmarshal(payload, &state); err != nil {
		// A corrupt entry is treated as a miss; the next Put overwrites it.
		return nil, nil
	}
	return &state, nil
}
