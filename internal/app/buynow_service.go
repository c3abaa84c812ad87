package app

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mvidala/gavel/internal/clock"
	"github.com/mvidala/gavel/internal/domain"
	"github.com/mvidala/gavel/internal/notify"
)

type BuyNowRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetAuctionForUpdate(ctx context.Context, id uuid.UUID) (domain.Auction, error)
	GetUser(ctx context.Context, id uuid.UUID) (domain.User, error)
	CountValidBids(ctx context.Context, auctionID uuid.UUID) (int, error)
	CloseAuction(ctx context.Context, id uuid.UUID, price decimal.Decimal, winnerID *uuid.UUID, closedAt time.Time) (bool, error)
}

type BuyNowService struct {
	repo     BuyNowRepository
	clock    clock.Clock
	guard    EligibilityGuard
	notifier notify.Notifier
	cache    StateCache
	logger   *log.Logger
}

func NewBuyNowService(repo BuyNowRepository, clk clock.Clock, guard EligibilityGuard, notifier notify.Notifier, cache StateCache, logger *log.Logger) *BuyNowService {
	if cache == nil {
		cache = NopStateCache{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &BuyNowService{
		repo:     repo,
		clock:    clk,
		guard:    guard,
		notifier: notifier,
		cache:    cache,
		logger:   logger,
	}
}

// BuyNow closes an auction immediately at its buy-now price, bypassing the
// bidding algorithm entirely. Only the reputation gate applies; buy-now is
// itself a closing action, so the deadline check does not. The close is a
// conditional write on status=open, so it can never re-close an auction the
// sweep or a concurrent purchase already closed.
func (s *BuyNowService) BuyNow(ctx context.Context, auctionID, buyerID uuid.UUID) (domain.Auction, error) {
	now := s.clock.Now()
	var (
		result   domain.Auction
		bidCount int
	)

	err := retryConflicts(ctx, func(ctx context.Context) error {
		return s.repo.WithTx(ctx, func(txCtx context.Context) error {
			auction, err := s.repo.GetAuctionForUpdate(txCtx, auctionID)
			if err != nil {
				return err
			}
			if auction.Status != domain.AuctionStatusOpen {
				return domain.ErrAuctionEnded
			}
			if auction.BuyNowPrice == nil {
				return domain.ErrBuyNowUnavailable
			}

			buyer, err := s.repo.GetUser(txCtx, buyerID)
			if err != nil {
				return err
			}
			if err := s.guard.AdmitReputation(auction, buyer); err != nil {
				return err
			}

			winner := buyerID
			closed, err := s.repo.CloseAuction(txCtx, auction.ID, *auction.BuyNowPrice, &winner, now)
			if err != nil {
				return err
			}
			if !closed {
				return domain.ErrAuctionEnded
			}

			count, err := s.repo.CountValidBids(txCtx, auctionID)
			if err != nil {
				return err
			}

			auction.Status = domain.AuctionStatusClosed
			auction.CurrentPrice = *auction.BuyNowPrice
			auction.CurrentLeaderID = &winner
			auction.ClosedAt = &now

			result = auction
			bidCount = count
			return nil
		})
	})
	if err != nil {
		return domain.Auction{}, err
	}

	if err := s.cache.Put(ctx, snapshot(result, bidCount)); err != nil {
		s.logger.Printf("WARN: state cache write auction=%s: %v", result.ID, err)
	}
	s.notifier.AuctionClosed(notify.AuctionClosedEvent{
		AuctionID:  result.ID,
		WinnerID:   result.CurrentLeaderID,
		FinalPrice: result.CurrentPrice,
	})

	return result, nil
}
