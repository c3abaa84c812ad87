package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AuctionStatus string

const (
	AuctionStatusOpen   AuctionStatus = "open"
	AuctionStatusClosed AuctionStatus = "closed"
)

// Auction is a single proxy-bidding listing. CurrentPrice and CurrentLeaderID
// are derived from the valid bid history and only mutated under the auction's
// row lock; Status flips open -> closed exactly once.
type Auction struct {
	ID              uuid.UUID
	SellerID        uuid.UUID
	Title           string
	StartPrice      decimal.Decimal
	StepPrice       decimal.Decimal
	BuyNowPrice     *decimal.Decimal
	EndTime         time.Time
	AutoExtend      bool
	InstantPurchase bool
	Status          AuctionStatus
	CurrentPrice    decimal.Decimal
	CurrentLeaderID *uuid.UUID
	ClosedAt        *time.Time
	CreatedAt       time.Time
}

// AuctionState is the read model served to clients and cached between
// mutations. TimeRemaining is computed against the caller's clock.
type AuctionState struct {
	AuctionID       uuid.UUID       `json:"auction_id"`
	Status          AuctionStatus   `json:"status"`
	CurrentPrice    decimal.Decimal `json:"current_price"`
	CurrentLeaderID *uuid.UUID      `json:"current_leader_id"`
	BidCount        int             `json:"bid_count"`
	EndTime         time.Time       `json:"end_time"`
}
