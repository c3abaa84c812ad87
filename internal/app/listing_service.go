package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mvidala/gavel/internal/clock"
	"github.com/mvidala/gavel/internal/domain"
)

type ListingRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetUser(ctx context.Context, id uuid.UUID) (domain.User, error)
	CreateUser(ctx context.Context, user domain.User) error
	CreateAuction(ctx context.Context, auction domain.Auction) error
	InsertPrivilege(ctx context.Context, privilege domain.SellerPrivilege) error
	SetUserRole(ctx context.Context, userID uuid.UUID, role domain.Role) error
}

const defaultPrivilegeTTL = 30 * 24 * time.Hour

type ListingService struct {
	repo         ListingRepository
	clock        clock.Clock
	privilegeTTL time.Duration
}

func NewListingService(repo ListingRepository, clk clock.Clock, opts ...ListingServiceOption) *ListingService {
	svc := &ListingService{
		repo:         repo,
		clock:        clk,
		privilegeTTL: defaultPrivilegeTTL,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type ListingServiceOption func(*ListingService)

// WithPrivilegeTTL overrides how long a granted seller privilege lasts.
func WithPrivilegeTTL(d time.Duration) ListingServiceOption {
	return func(s *ListingService) {
		if d > 0 {
			s.privilegeTTL = d
		}
	}
}

type CreateAuctionInput struct {
	SellerID        uuid.UUID
	Title           string
	StartPrice      decimal.Decimal
	StepPrice       decimal.Decimal
	BuyNowPrice     *decimal.Decimal
	EndTime         time.Time
	AutoExtend      bool
	InstantPurchase bool
}

// CreateAuction lists a new item. The seller must currently hold the seller
// role; prices must be positive and a buy-now price, when set, must exceed
// the start price.
func (s *ListingService) CreateAuction(ctx context.Context, in CreateAuctionInput) (domain.Auction, error) {
	if !in.StartPrice.IsPositive() || !in.StepPrice.IsPositive() {
		return domain.Auction{}, domain.ErrInvalidAmount
	}
	if in.BuyNowPrice != nil && !in.BuyNowPrice.GreaterThan(in.StartPrice) {
		return domain.Auction{}, domain.ErrInvalidAmount
	}

	now := s.clock.Now()
	if !in.EndTime.After(now) {
		return domain.Auction{}, domain.ErrAuctionEnded
	}

	seller, err := s.repo.GetUser(ctx, in.SellerID)
	if err != nil {
		return domain.Auction{}, err
	}
	if seller.Role != domain.RoleSeller {
		return domain.Auction{}, domain.ErrSellerRoleRequired
	}

	auction := domain.Auction{
		ID:              uuid.New(),
		SellerID:        in.SellerID,
		Title:           in.Title,
		StartPrice:      in.StartPrice,
		StepPrice:       in.StepPrice,
		BuyNowPrice:     in.BuyNowPrice,
		EndTime:         in.EndTime,
		AutoExtend:      in.AutoExtend,
		InstantPurchase: in.InstantPurchase,
		Status:          domain.AuctionStatusOpen,
		CurrentPrice:    in.StartPrice,
		CreatedAt:       now,
	}
	if err := s.repo.CreateAuction(ctx, auction); err != nil {
		return domain.Auction{}, err
	}
	return auction, nil
}

type RegisterUserInput struct {
	Role            domain.Role
	PositiveRatings int
	TotalRatings    int
}

// RegisterUser creates the local mirror of an account, seeded with its
// reputation aggregate.
func (s *ListingService) RegisterUser(ctx context.Context, in RegisterUserInput) (domain.User, error) {
	if in.Role == "" {
		in.Role = domain.RoleBidder
	}
	if in.TotalRatings < 0 || in.PositiveRatings < 0 || in.PositiveRatings > in.TotalRatings {
		return domain.User{}, domain.ErrInvalidAmount
	}

	user := domain.User{
		ID:              uuid.New(),
		Role:            in.Role,
		PositiveRatings: in.PositiveRatings,
		TotalRatings:    in.TotalRatings,
		CreatedAt:       s.clock.Now(),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// GrantSellerPrivilege upgrades a user to seller and records the
// time-bounded grant the hourly sweep later expires.
func (s *ListingService) GrantSellerPrivilege(ctx context.Context, userID uuid.UUID) (domain.SellerPrivilege, error) {
	now := s.clock.Now()
	privilege := domain.SellerPrivilege{
		ID:        uuid.New(),
		UserID:    userID,
		GrantedAt: now,
		ExpiresAt: now.Add(s.privilegeTTL),
		Status:    domain.PrivilegeStatusActive,
	}

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if _, err := s.repo.GetUser(txCtx, userID); err != nil {
			return err
		}
		if err := s.repo.SetUserRole(txCtx, userID, domain.RoleSeller); err != nil {
			return err
		}
		return s.repo.InsertPrivilege(txCtx, privilege)
	})
	if err != nil {
		return domain.SellerPrivilege{}, err
	}
	return privilege, nil
}
