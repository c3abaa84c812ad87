package app

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mvidala/gavel/internal/domain"
	"github.com/mvidala/gavel/internal/notify"
)

// fakeRepo is an in-memory stand-in for the Postgres repositories. It backs
// every service interface so one fixture serves all unit tests.
type fakeRepo struct {
	mu         sync.Mutex
	auctions   map[uuid.UUID]*domain.Auction
	bids       []domain.Bid
	rejections []domain.BidRejection
	users      map[uuid.UUID]*domain.User
	privileges map[uuid.UUID]*domain.SellerPrivilege
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		auctions:   make(map[uuid.UUID]*domain.Auction),
		users:      make(map[uuid.UUID]*domain.User),
		privileges: make(map[uuid.UUID]*domain.SellerPrivilege),
	}
}

func (r *fakeRepo) addAuction(a domain.Auction) {
	cp := a
	r.auctions[a.ID] = &cp
}

func (r *fakeRepo) addUser(u domain.User) {
	cp := u
	r.users[u.ID] = &cp
}

func (r *fakeRepo) addBid(b domain.Bid) {
	r.bids = append(r.bids, b)
}

func (r *fakeRepo) addPrivilege(p domain.SellerPrivilege) {
	cp := p
	r.privileges[p.ID] = &cp
}

func (r *fakeRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(ctx)
}

func (r *fakeRepo) GetAuction(ctx context.Context, id uuid.UUID) (domain.Auction, error) {
	a, ok := r.auctions[id]
	if !ok {
		return domain.Auction{}, domain.ErrAuctionNotFound
	}
	return *a, nil
}

func (r *fakeRepo) GetAuctionForUpdate(ctx context.Context, id uuid.UUID) (domain.Auction, error) {
	return r.GetAuction(ctx, id)
}

func (r *fakeRepo) GetUser(ctx context.Context, id uuid.UUID) (domain.User, error) {
	u, ok := r.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return *u, nil
}

func (r *fakeRepo) HasRejection(ctx context.Context, auctionID, bidderID uuid.UUID) (bool, error) {
	for _, rej := range r.rejections {
		if rej.AuctionID == auctionID && rej.BidderID == bidderID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRepo) ListValidBids(ctx context.Context, auctionID uuid.UUID) ([]domain.Bid, error) {
	var out []domain.Bid
	for _, b := range r.bids {
		if b.AuctionID == auctionID && b.Status == domain.BidStatusValid {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *fakeRepo) CountValidBids(ctx context.Context, auctionID uuid.UUID) (int, error) {
	bids, _ := r.ListValidBids(ctx, auctionID)
	return len(bids), nil
}

func (r *fakeRepo) InsertBid(ctx context.Context, bid domain.Bid) error {
	r.bids = append(r.bids, bid)
	return nil
}

func (r *fakeRepo) UpdateAuctionBidState(ctx context.Context, id uuid.UUID, price decimal.Decimal, leaderID *uuid.UUID, endTime time.Time) error {
	a, ok := r.auctions[id]
	if !ok {
		return domain.ErrAuctionNotFound
	}
	a.CurrentPrice = price
	a.CurrentLeaderID = leaderID
	a.EndTime = endTime
	return nil
}

func (r *fakeRepo) InsertRejection(ctx context.Context, rejection domain.BidRejection) error {
	for _, rej := range r.rejections {
		if rej.AuctionID == rejection.AuctionID && rej.BidderID == rejection.BidderID {
			return domain.ErrAlreadyBanned
		}
	}
	r.rejections = append(r.rejections, rejection)
	return nil
}

func (r *fakeRepo) InvalidateBids(ctx context.Context, auctionID, bidderID uuid.UUID) (int, error) {
	n := 0
	for i := range r.bids {
		if r.bids[i].AuctionID == auctionID && r.bids[i].BidderID == bidderID && r.bids[i].Status == domain.BidStatusValid {
			r.bids[i].Status = domain.BidStatusRejected
			n++
		}
	}
	return n, nil
}

func (r *fakeRepo) CloseAuction(ctx context.Context, id uuid.UUID, price decimal.Decimal, winnerID *uuid.UUID, closedAt time.Time) (bool, error) {
	a, ok := r.auctions[id]
	if !ok {
		return false, domain.ErrAuctionNotFound
	}
	if a.Status != domain.AuctionStatusOpen {
		return false, nil
	}
	a.Status = domain.AuctionStatusClosed
	a.CurrentPrice = price
	a.CurrentLeaderID = winnerID
	t := closedAt
	a.ClosedAt = &t
	return true, nil
}

func (r *fakeRepo) ListDueOpenAuctions(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []uuid.UUID
	for id, a := range r.auctions {
		if a.Status == domain.AuctionStatusOpen && !a.EndTime.After(now) {
			out = append(out, id)
		}
	}
	return out, nil
}

func (r *fakeRepo) CloseExpiredAuction(ctx context.Context, id uuid.UUID, now time.Time) (*domain.Auction, error) {
	a, ok := r.auctions[id]
	if !ok {
		return nil, domain.ErrAuctionNotFound
	}
	if a.Status != domain.AuctionStatusOpen || a.EndTime.After(now) {
		return nil, nil
	}
	a.Status = domain.AuctionStatusClosed
	t := now
	a.ClosedAt = &t
	cp := *a
	return &cp, nil
}

func (r *fakeRepo) CreateAuction(ctx context.Context, auction domain.Auction) error {
	r.addAuction(auction)
	return nil
}

func (r *fakeRepo) CreateUser(ctx context.Context, user domain.User) error {
	r.addUser(user)
	return nil
}

func (r *fakeRepo) InsertPrivilege(ctx context.Context, privilege domain.SellerPrivilege) error {
	r.addPrivilege(privilege)
	return nil
}

func (r *fakeRepo) SetUserRole(ctx context.Context, userID uuid.UUID, role domain.Role) error {
	u, ok := r.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.Role = role
	return nil
}

func (r *fakeRepo) ListDueActivePrivileges(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []uuid.UUID
	for id, p := range r.privileges {
		if p.Status == domain.PrivilegeStatusActive && !p.ExpiresAt.After(now) {
			out = append(out, id)
		}
	}
	return out, nil
}

func (r *fakeRepo) ExpirePrivilege(ctx context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.privileges[id]
	if !ok || p.Status != domain.PrivilegeStatusActive {
		return false, nil
	}
	p.Status = domain.PrivilegeStatusExpired
	return true, nil
}

func (r *fakeRepo) ListDueExpiredPrivileges(ctx context.Context, cutoff time.Time) ([]domain.SellerPrivilege, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.SellerPrivilege
	for _, p := range r.privileges {
		if p.Status == domain.PrivilegeStatusExpired && !p.ExpiresAt.After(cutoff) {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *fakeRepo) DowngradePrivilege(ctx context.Context, id uuid.UUID) (bool, error) {
	p, ok := r.privileges[id]
	if !ok || p.Status != domain.PrivilegeStatusExpired {
		return false, nil
	}
	p.Status = domain.PrivilegeStatusDowngraded
	return true, nil
}

// fakeNotifier records emitted events for assertions.
type fakeNotifier struct {
	mu        sync.Mutex
	bidPlaced []notify.BidPlacedEvent
	outbid    []notify.OutbidEvent
	banned    []notify.BidderBannedEvent
	closed    []notify.AuctionClosedEvent
}

func (n *fakeNotifier) BidPlaced(ev notify.BidPlacedEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.bidPlaced = append(n.bidPlaced, ev)
}

func (n *fakeNotifier) Outbid(ev notify.OutbidEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.outbid = append(n.outbid, ev)
}

func (n *fakeNotifier) BidderBanned(ev notify.BidderBannedEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.banned = append(n.banned, ev)
}

func (n *fakeNotifier) AuctionClosed(ev notify.AuctionClosedEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = append(n.closed, ev)
}

// fakeCache is an in-memory StateCache.
type fakeCache struct {
	mu     sync.Mutex
	states map[uuid.UUID]domain.AuctionState
	puts   int
}

func newFakeCache() *fakeCache {
	return &fakeCache{states: make(map[uuid.UUID]domain.AuctionState)}
}

func (c *fakeCache) Put(ctx context.Context, state domain.AuctionState) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states[state.AuctionID] = state
	c.puts++
	return nil
}

func (c *fakeCache) Get(ctx context.Context, auctionID uuid.UUID) (*domain.AuctionState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.states[auctionID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}
