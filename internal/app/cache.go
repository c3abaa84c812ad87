package app

import (
	"context"

	"github.com/google/uuid"

	"github.com/mvidala/gavel/internal/domain"
)

// StateCache holds the latest observable state per auction for fast reads.
// Implementations may lose entries at any time; Postgres stays authoritative.
type StateCache interface {
	Put(ctx context.Context, state domain.AuctionState) error
	// Get returns nil without error on a cache miss.
	Get(ctx context.Context, auctionID uuid.UUID) (*domain.AuctionState, error)
}

// NopStateCache is used when no cache backend is configured.
type NopStateCache struct{}

func (NopStateCache) Put(context.Context, domain.AuctionState) error { return nil }

func (NopStateCache) Get(context.Context, uuid.UUID) (*domain.AuctionState, error) {
	return nil, nil
}
