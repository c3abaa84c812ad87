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

type BidRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetAuction(ctx context.Context, id uuid.UUID) (domain.Auction, error)
	GetAuctionForUpdate(ctx context.Context, id uuid.UUID) (domain.Auction, error)
	GetUser(ctx context.Context, id uuid.UUID) (domain.User, error)
	HasRejection(ctx context.Context, auctionID, bidderID uuid.UUID) (bool, error)
	ListValidBids(ctx context.Context, auctionID uuid.UUID) ([]domain.Bid, error)
	CountValidBids(ctx context.Context, auctionID uuid.UUID) (int, error)
	InsertBid(ctx context.Context, bid domain.Bid) error
	UpdateAuctionBidState(ctx context.Context, id uuid.UUID, price decimal.Decimal, leaderID *uuid.UUID, endTime time.Time) error
}

const (
	defaultSnipeWindow    = 5 * time.Minute
	defaultSnipeExtension = 5 * time.Minute
)

type BidService struct {
	repo           BidRepository
	clock          clock.Clock
	guard          EligibilityGuard
	notifier       notify.Notifier
	cache          StateCache
	logger         *log.Logger
	snipeWindow    time.Duration
	snipeExtension time.Duration
}

func NewBidService(repo BidRepository, clk clock.Clock, guard EligibilityGuard, notifier notify.Notifier, opts ...BidServiceOption) *BidService {
	svc := &BidService{
		repo:           repo,
		clock:          clk,
		guard:          guard,
		notifier:       notifier,
		cache:          NopStateCache{},
		logger:         log.Default(),
		snipeWindow:    defaultSnipeWindow,
		snipeExtension: defaultSnipeExtension,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type BidServiceOption func(*BidService)

// WithSnipeWindow overrides the trailing window in which a bid triggers an
// auto-extension.
func WithSnipeWindow(d time.Duration) BidServiceOption {
	return func(s *BidService) {
		if d > 0 {
			s.snipeWindow = d
		}
	}
}

// WithSnipeExtension overrides how far the deadline is pushed on auto-extend.
func WithSnipeExtension(d time.Duration) BidServiceOption {
	return func(s *BidService) {
		if d > 0 {
			s.snipeExtension = d
		}
	}
}

// WithStateCache attaches a live-state cache refreshed after each mutation.
func WithStateCache(c StateCache) BidServiceOption {
	return func(s *BidService) {
		if c != nil {
			s.cache = c
		}
	}
}

// WithLogger overrides the default logger.
func WithLogger(l *log.Logger) BidServiceOption {
	return func(s *BidService) {
		if l != nil {
			s.logger = l
		}
	}
}

type PlaceBidInput struct {
	AuctionID uuid.UUID
	BidderID  uuid.UUID
	MaxBid    decimal.Decimal
}

type PlaceBidResult struct {
	Auction          domain.Auction
	Bid              domain.Bid
	IsLeading        bool
	PreviousLeaderID *uuid.UUID
	BidCount         int
}

// PlaceBid runs the whole placement transaction for one bid: eligibility,
// minimum-increment validation, ledger append, full replay of the valid
// history, anti-snipe extension, and the auction row update. Everything
// happens under the auction's row lock; any failure aborts with no writes.
// Notifications and the cache refresh run only after commit.
func (s *BidService) PlaceBid(ctx context.Context, in PlaceBidInput) (PlaceBidResult, error) {
	if !in.MaxBid.IsPositive() {
		return PlaceBidResult{}, domain.ErrInvalidAmount
	}

	now := s.clock.Now()
	var result PlaceBidResult

	err := retryConflicts(ctx, func(ctx context.Context) error {
		return s.repo.WithTx(ctx, func(txCtx context.Context) error {
			auction, err := s.repo.GetAuctionForUpdate(txCtx, in.AuctionID)
			if err != nil {
				return err
			}
			bidder, err := s.repo.GetUser(txCtx, in.BidderID)
			if err != nil {
				return err
			}
			banned, err := s.repo.HasRejection(txCtx, in.AuctionID, in.BidderID)
			if err != nil {
				return err
			}
			if err := s.guard.Admit(auction, bidder, banned, now); err != nil {
				return err
			}

			history, err := s.repo.ListValidBids(txCtx, in.AuctionID)
			if err != nil {
				return err
			}
			if in.MaxBid.LessThan(domain.MinimumBid(auction, len(history))) {
				return domain.ErrBidTooLow
			}

			bid := domain.Bid{
				ID:        uuid.New(),
				AuctionID: in.AuctionID,
				BidderID:  in.BidderID,
				MaxBid:    in.MaxBid,
				Status:    domain.BidStatusValid,
				PlacedAt:  now,
			}
			if err := s.repo.InsertBid(txCtx, bid); err != nil {
				return err
			}

			history = append(history, bid)
			outcome := domain.ReplayBids(history, auction.StartPrice, auction.StepPrice)

			endTime := auction.EndTime
			if auction.AutoExtend && !now.Before(endTime.Add(-s.snipeWindow)) {
				endTime = endTime.Add(s.snipeExtension)
			}

			if err := s.repo.UpdateAuctionBidState(txCtx, auction.ID, outcome.Price, outcome.LeaderID, endTime); err != nil {
				return err
			}

			var displaced *uuid.UUID
			if auction.CurrentLeaderID != nil && outcome.LeaderID != nil &&
				*auction.CurrentLeaderID != *outcome.LeaderID {
				displaced = auction.CurrentLeaderID
			}

			auction.CurrentPrice = outcome.Price
			auction.CurrentLeaderID = outcome.LeaderID
			auction.EndTime = endTime

			result = PlaceBidResult{
				Auction:          auction,
				Bid:              bid,
				IsLeading:        outcome.LeaderID != nil && *outcome.LeaderID == in.BidderID,
				PreviousLeaderID: displaced,
				BidCount:         len(history),
			}
			return nil
		})
	})
	if err != nil {
		return PlaceBidResult{}, err
	}

	s.refreshCache(ctx, result.Auction, result.BidCount)
	s.notifier.BidPlaced(notify.BidPlacedEvent{
		AuctionID:    result.Auction.ID,
		SellerID:     result.Auction.SellerID,
		BidderID:     in.BidderID,
		CurrentPrice: result.Auction.CurrentPrice,
		IsLeading:    result.IsLeading,
	})
	if result.PreviousLeaderID != nil {
		s.notifier.Outbid(notify.OutbidEvent{
			AuctionID:        result.Auction.ID,
			PreviousLeaderID: *result.PreviousLeaderID,
			CurrentPrice:     result.Auction.CurrentPrice,
		})
	}

	return result, nil
}

type CurrentState struct {
	State         domain.AuctionState
	TimeRemaining time.Duration
}

// GetAuctionState serves the observable auction state: cache first, Postgres
// on a miss (repopulating the cache on the way out).
func (s *BidService) GetAuctionState(ctx context.Context, auctionID uuid.UUID) (CurrentState, error) {
	now := s.clock.Now()

	cached, err := s.cache.Get(ctx, auctionID)
	if err != nil {
		s.logger.Printf("WARN: state cache read auction=%s: %v", auctionID, err)
	} else if cached != nil {
		return CurrentState{State: *cached, TimeRemaining: remaining(*cached, now)}, nil
	}

	auction, err := s.repo.GetAuction(ctx, auctionID)
	if err != nil {
		return CurrentState{}, err
	}
	count, err := s.repo.CountValidBids(ctx, auctionID)
	if err != nil {
		return CurrentState{}, err
	}

	state := snapshot(auction, count)
	if err := s.cache.Put(ctx, state); err != nil {
		s.logger.Printf("WARN: state cache write auction=%s: %v", auctionID, err)
	}
	return CurrentState{State: state, TimeRemaining: remaining(state, now)}, nil
}

func (s *BidService) refreshCache(ctx context.Context, auction domain.Auction, bidCount int) {
	if err := s.cache.Put(ctx, snapshot(auction, bidCount)); err != nil {
		s.logger.Printf("WARN: state cache write auction=%s: %v", auction.ID, err)
	}
}

func snapshot(a domain.Auction, bidCount int) domain.AuctionState {
	return domain.AuctionState{
		AuctionID:       a.ID,
		Status:          a.Status,
		CurrentPrice:    a.CurrentPrice,
		CurrentLeaderID: a.CurrentLeaderID,
		BidCount:        bidCount,
		EndTime:         a.EndTime,
	}
}

func remaining(state domain.AuctionState, now time.Time) time.Duration {
	if state.Status != domain.AuctionStatusOpen {
		return 0
	}
	d := state.EndTime.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
