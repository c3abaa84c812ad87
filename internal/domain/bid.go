package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BidStatus string

const (
	BidStatusValid    BidStatus = "valid"
	BidStatusRejected BidStatus = "rejected"
)

// Bid records a bidder's private ceiling on one auction. The history is
// append-only: a bid is never deleted, only flipped to rejected by a ban.
type Bid struct {
	ID        uuid.UUID
	AuctionID uuid.UUID
	BidderID  uuid.UUID
	MaxBid    decimal.Decimal
	Status    BidStatus
	PlacedAt  time.Time
}

// BidRejection bans one bidder from one auction. Unique per
// (auction, bidder); once present the bidder can never hold a valid bid
// on that auction again.
type BidRejection struct {
	ID        uuid.UUID
	AuctionID uuid.UUID
	BidderID  uuid.UUID
	CreatedAt time.Time
}
