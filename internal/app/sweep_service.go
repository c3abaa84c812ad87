package app

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/mvidala/gavel/internal/clock"
	"github.com/mvidala/gavel/internal/domain"
	"github.com/mvidala/gavel/internal/notify"
)

type SweepAuctionRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	ListDueOpenAuctions(ctx context.Context, now time.Time) ([]uuid.UUID, error)
	// CloseExpiredAuction conditionally closes one due auction; it returns nil
	// when another sweep already won or the deadline moved after listing.
	CloseExpiredAuction(ctx context.Context, id uuid.UUID, now time.Time) (*domain.Auction, error)
	CountValidBids(ctx context.Context, auctionID uuid.UUID) (int, error)
}

type SweepPrivilegeRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	ListDueActivePrivileges(ctx context.Context, now time.Time) ([]uuid.UUID, error)
	ExpirePrivilege(ctx context.Context, id uuid.UUID) (bool, error)
	ListDueExpiredPrivileges(ctx context.Context, cutoff time.Time) ([]domain.SellerPrivilege, error)
	DowngradePrivilege(ctx context.Context, id uuid.UUID) (bool, error)
	SetUserRole(ctx context.Context, userID uuid.UUID, role domain.Role) error
}

const defaultPrivilegeGrace = 7 * 24 * time.Hour

type SweepService struct {
	auctions   SweepAuctionRepository
	privileges SweepPrivilegeRepository
	clock      clock.Clock
	notifier   notify.Notifier
	cache      StateCache
	logger     *log.Logger
	grace      time.Duration
}

func NewSweepService(auctions SweepAuctionRepository, privileges SweepPrivilegeRepository, clk clock.Clock, notifier notify.Notifier, opts ...SweepServiceOption) *SweepService {
	svc := &SweepService{
		auctions:   auctions,
		privileges: privileges,
		clock:      clk,
		notifier:   notifier,
		cache:      NopStateCache{},
		logger:     log.Default(),
		grace:      defaultPrivilegeGrace,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type SweepServiceOption func(*SweepService)

// WithPrivilegeGrace overrides the window between privilege expiry and role
// downgrade.
func WithPrivilegeGrace(d time.Duration) SweepServiceOption {
	return func(s *SweepService) {
		if d > 0 {
			s.grace = d
		}
	}
}

// WithSweepStateCache attaches a live-state cache refreshed on every closure.
func WithSweepStateCache(c StateCache) SweepServiceOption {
	return func(s *SweepService) {
		if c != nil {
			s.cache = c
		}
	}
}

// WithSweepLogger overrides the default logger.
func WithSweepLogger(l *log.Logger) SweepServiceOption {
	return func(s *SweepService) {
		if l != nil {
			s.logger = l
		}
	}
}

// SweepExpiredAuctions closes every open auction whose deadline has passed
// and emits one closing event per auction it wins. Each closure is its own
// transaction conditioned on status=open, so overlapping sweeps are no-ops
// against each other and one bad auction never aborts the rest. Returns the
// number of auctions this run closed.
func (s *SweepService) SweepExpiredAuctions(ctx context.Context) (int, error) {
	now := s.clock.Now()

	due, err := s.auctions.ListDueOpenAuctions(ctx, now)
	if err != nil {
		return 0, err
	}

	closed := 0
	for _, id := range due {
		var (
			auction  *domain.Auction
			bidCount int
		)
		err := s.auctions.WithTx(ctx, func(txCtx context.Context) error {
			a, err := s.auctions.CloseExpiredAuction(txCtx, id, now)
			if err != nil {
				return err
			}
			if a == nil {
				return nil
			}
			count, err := s.auctions.CountValidBids(txCtx, id)
			if err != nil {
				return err
			}
			auction = a
			bidCount = count
			return nil
		})
		if err != nil {
			// The status write failed; the auction stays open and the next
			// sweep picks it up.
			s.logger.Printf("WARN: sweep close auction=%s: %v", id, err)
			continue
		}
		if auction == nil {
			continue
		}
		closed++

		if err := s.cache.Put(ctx, snapshot(*auction, bidCount)); err != nil {
			s.logger.Printf("WARN: state cache write auction=%s: %v", auction.ID, err)
		}
		s.notifier.AuctionClosed(notify.AuctionClosedEvent{
			AuctionID:  auction.ID,
			WinnerID:   auction.CurrentLeaderID,
			FinalPrice: auction.CurrentPrice,
		})
	}
	return closed, nil
}

// SweepSellerPrivileges advances the privilege state machine: active grants
// past their expiry flip to expired; expired grants past the grace window
// flip to downgraded and return the user to plain bidder. Every transition
// is a conditional write on the current status, so re-runs and overlapping
// sweeps cannot double-apply. Returns (expired, downgraded) counts.
func (s *SweepService) SweepSellerPrivileges(ctx context.Context) (int, int, error) {
	now := s.clock.Now()

	dueActive, err := s.privileges.ListDueActivePrivileges(ctx, now)
	if err != nil {
		return 0, 0, err
	}
	expired := 0
	for _, id := range dueActive {
		flipped, err := s.privileges.ExpirePrivilege(ctx, id)
		if err != nil {
			s.logger.Printf("WARN: sweep expire privilege=%s: %v", id, err)
			continue
		}
		if flipped {
			expired++
		}
	}

	duePast, err := s.privileges.ListDueExpiredPrivileges(ctx, now.Add(-s.grace))
	if err != nil {
		return expired, 0, err
	}
	downgraded := 0
	for _, priv := range duePast {
		var flipped bool
		err := s.privileges.WithTx(ctx, func(txCtx context.Context) error {
			won, err := s.privileges.DowngradePrivilege(txCtx, priv.ID)
			if err != nil {
				return err
			}
			if !won {
				return nil
			}
			flipped = true
			return s.privileges.SetUserRole(txCtx, priv.UserID, domain.RoleBidder)
		})
		if err != nil {
			s.logger.Printf("WARN: sweep downgrade privilege=%s: %v", priv.ID, err)
			continue
		}
		if flipped {
			downgraded++
		}
	}
	return expired, downgraded, nil
}
