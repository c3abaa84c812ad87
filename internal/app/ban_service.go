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

type BanRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetAuctionForUpdate(ctx context.Context, id uuid.UUID) (domain.Auction, error)
	InsertRejection(ctx context.Context, rejection domain.BidRejection) error
	InvalidateBids(ctx context.Context, auctionID, bidderID uuid.UUID) (int, error)
	ListValidBids(ctx context.Context, auctionID uuid.UUID) ([]domain.Bid, error)
	UpdateAuctionBidState(ctx context.Context, id uuid.UUID, price decimal.Decimal, leaderID *uuid.UUID, endTime time.Time) error
}

type BanService struct {
	repo     BanRepository
	clock    clock.Clock
	notifier notify.Notifier
	cache    StateCache
	logger   *log.Logger
}

func NewBanService(repo BanRepository, clk clock.Clock, notifier notify.Notifier, cache StateCache, logger *log.Logger) *BanService {
	if cache == nil {
		cache = NopStateCache{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &BanService{
		repo:     repo,
		clock:    clk,
		notifier: notifier,
		cache:    cache,
		logger:   logger,
	}
}

type RejectBidderResult struct {
	Auction       domain.Auction
	LeaderChanged bool
	BidCount      int
}

// RejectBidder bans one bidder from one auction: it records the ban, flips
// all of that bidder's valid bids to rejected, and replays the remaining
// history with the same fold placement uses, so the runner-up re-emerges at
// whatever price the surviving bids imply. With no bids left, the price
// reverts to the start price and the leader clears.
func (s *BanService) RejectBidder(ctx context.Context, auctionID, bidderID uuid.UUID) (RejectBidderResult, error) {
	now := s.clock.Now()
	var result RejectBidderResult

	err := retryConflicts(ctx, func(ctx context.Context) error {
		return s.repo.WithTx(ctx, func(txCtx context.Context) error {
			auction, err := s.repo.GetAuctionForUpdate(txCtx, auctionID)
			if err != nil {
				return err
			}
			if auction.Status != domain.AuctionStatusOpen {
				return domain.ErrAuctionEnded
			}

			rejection := domain.BidRejection{
				ID:        uuid.New(),
				AuctionID: auctionID,
				BidderID:  bidderID,
				CreatedAt: now,
			}
			if err := s.repo.InsertRejection(txCtx, rejection); err != nil {
				return err
			}
			if _, err := s.repo.InvalidateBids(txCtx, auctionID, bidderID); err != nil {
				return err
			}

			history, err := s.repo.ListValidBids(txCtx, auctionID)
			if err != nil {
				return err
			}
			outcome := domain.ReplayBids(history, auction.StartPrice, auction.StepPrice)

			if err := s.repo.UpdateAuctionBidState(txCtx, auction.ID, outcome.Price, outcome.LeaderID, auction.EndTime); err != nil {
				return err
			}

			leaderChanged := auction.CurrentLeaderID != nil &&
				(outcome.LeaderID == nil || *outcome.LeaderID != *auction.CurrentLeaderID)

			auction.CurrentPrice = outcome.Price
			auction.CurrentLeaderID = outcome.LeaderID

			result = RejectBidderResult{
				Auction:       auction,
				LeaderChanged: leaderChanged,
				BidCount:      len(history),
			}
			return nil
		})
	})
	if err != nil {
		return RejectBidderResult{}, err
	}

	if err := s.cache.Put(ctx, snapshot(result.Auction, result.BidCount)); err != nil {
		s.logger.Printf("WARN: state cache write auction=%s: %v", result.Auction.ID, err)
	}

	ev := notify.BidderBannedEvent{
		AuctionID: auctionID,
		BidderID:  bidderID,
	}
	if result.LeaderChanged {
		ev.NewLeaderID = result.Auction.CurrentLeaderID
	}
	s.notifier.BidderBanned(ev)

	return result, nil
}
