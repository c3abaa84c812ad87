package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/mvidala/gavel/internal/domain"
)

// AuctionRepository owns auctions, their bid ledger and ban records, and the
// user reads the bidding paths need. All row mutations on one auction run
// behind GetAuctionForUpdate inside a WithTx closure.
type AuctionRepository struct {
	pool *pgxpool.Pool
}

func NewAuctionRepository(pool *pgxpool.Pool) *AuctionRepository {
	return &AuctionRepository{pool: pool}
}

func (r *AuctionRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

const auctionColumns = `id, seller_id, title, start_price, step_price, buy_now_price,
end_time, auto_extend, instant_purchase, status, current_price, current_leader_id, closed_at, created_at`

func (r *AuctionRepository) GetAuction(ctx context.Context, id uuid.UUID) (domain.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = $1`
	return r.scanAuction(r.queryRow(ctx, query, id))
}

func (r *AuctionRepository) GetAuctionForUpdate(ctx context.Context, id uuid.UUID) (domain.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = $1 FOR UPDATE`
	return r.scanAuction(r.queryRow(ctx, query, id))
}

func (r *AuctionRepository) scanAuction(row pgx.Row) (domain.Auction, error) {
	var (
		a        domain.Auction
		status   string
		buyNow   decimal.NullDecimal
		leader   uuid.NullUUID
		closedAt *time.Time
	)
	err := row.Scan(
		&a.ID, &a.SellerID, &a.Title, &a.StartPrice, &a.StepPrice, &buyNow,
		&a.EndTime, &a.AutoExtend, &a.InstantPurchase, &status, &a.CurrentPrice, &leader, &closedAt, &a.CreatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Auction{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Auction{}, domain.ErrAuctionNotFound
		}
		return domain.Auction{}, fmt.Errorf("get auction: %w", err)
	}
	a.Status = domain.AuctionStatus(status)
	if buyNow.Valid {
		a.BuyNowPrice = &buyNow.Decimal
	}
	if leader.Valid {
		id := leader.UUID
		a.CurrentLeaderID = &id
	}
	a.ClosedAt = closedAt
	return a, nil
}

func (r *AuctionRepository) CreateAuction(ctx context.Context, a domain.Auction) error {
	const stmt = `
INSERT INTO auctions (id, seller_id, title, start_price, step_price, buy_now_price,
	end_time, auto_extend, instant_purchase, status, current_price, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	buyNow := decimal.NullDecimal{}
	if a.BuyNowPrice != nil {
		buyNow = decimal.NullDecimal{Decimal: *a.BuyNowPrice, Valid: true}
	}
	_, err := r.exec(ctx, stmt,
		a.ID, a.SellerID, a.Title, a.StartPrice, a.StepPrice, buyNow,
		a.EndTime, a.AutoExtend, a.InstantPurchase, string(a.Status), a.CurrentPrice, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create auction: %w", err)
	}
	return nil
}

func (r *AuctionRepository) UpdateAuctionBidState(ctx context.Context, id uuid.UUID, price decimal.Decimal, leaderID *uuid.UUID, endTime time.Time) error {
	const stmt = `
UPDATE auctions
SET current_price = $2, current_leader_id = $3, end_time = $4
WHERE id = $1 AND status = 'open'`

	tag, err := r.exec(ctx, stmt, id, price, leaderID, endTime)
	if err != nil {
		return fmt.Errorf("update auction bid state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAuctionEnded
	}
	return nil
}

// CloseAuction flips one auction to closed with the given sale outcome. The
// write is conditioned on status=open so at most one caller can win.
func (r *AuctionRepository) CloseAuction(ctx context.Context, id uuid.UUID, price decimal.Decimal, winnerID *uuid.UUID, closedAt time.Time) (bool, error) {
	const stmt = `
UPDATE auctions
SET status = 'closed', current_price = $2, current_leader_id = $3, closed_at = $4
WHERE id = $1 AND status = 'open'`

	tag, err := r.exec(ctx, stmt, id, price, winnerID, closedAt)
	if err != nil {
		return false, fmt.Errorf("close auction: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *AuctionRepository) ListDueOpenAuctions(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	const query = `SELECT id FROM auctions WHERE status = 'open' AND end_time <= $1 ORDER BY end_time ASC`

	rows, err := r.query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("list due auctions: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan due auction: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CloseExpiredAuction closes one due auction and returns the row it sealed.
// The deadline re-check matters: a bid placed after the sweep listed the
// auction may have auto-extended it.
func (r *AuctionRepository) CloseExpiredAuction(ctx context.Context, id uuid.UUID, now time.Time) (*domain.Auction, error) {
	stmt := `
UPDATE auctions
SET status = 'closed', closed_at = $2
WHERE id = $1 AND status = 'open' AND end_time <= $2
RETURNING ` + auctionColumns

	a, err := r.scanAuction(r.queryRow(ctx, stmt, id, now))
	if err != nil {
		if err == domain.ErrAuctionNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func (r *AuctionRepository) InsertBid(ctx context.Context, bid domain.Bid) error {
	const stmt = `
INSERT INTO bids (id, auction_id, bidder_id, max_bid, status, placed_at)
VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.exec(ctx, stmt, bid.ID, bid.AuctionID, bid.BidderID, bid.MaxBid, string(bid.Status), bid.PlacedAt)
	if err != nil {
		return fmt.Errorf("insert bid: %w", err)
	}
	return nil
}

// ListValidBids returns the auction's surviving ledger in arrival order, the
// exact input the replay fold expects.
func (r *AuctionRepository) ListValidBids(ctx context.Context, auctionID uuid.UUID) ([]domain.Bid, error) {
	const query = `
SELECT id, auction_id, bidder_id, max_bid, status, placed_at
FROM bids
WHERE auction_id = $1 AND status = 'valid'
ORDER BY placed_at ASC, id ASC`

	rows, err := r.query(ctx, query, auctionID)
	if err != nil {
		return nil, fmt.Errorf("list valid bids: %w", err)
	}
	defer rows.Close()

	var bids []domain.Bid
	for rows.Next() {
		var (
			b      domain.Bid
			status string
		)
		if err := rows.Scan(&b.ID, &b.AuctionID, &b.BidderID, &b.MaxBid, &status, &b.PlacedAt); err != nil {
			return nil, fmt.Errorf("scan bid: %w", err)
		}
		b.Status = domain.BidStatus(status)
		bids = append(bids, b)
	}
	return bids, rows.Err()
}

func (r *AuctionRepository) CountValidBids(ctx context.Context, auctionID uuid.UUID) (int, error) {
	const query = `SELECT COUNT(*) FROM bids WHERE auction_id = $1 AND status = 'valid'`

	var count int
	if err := r.queryRow(ctx, query, auctionID).Scan(&count); err != nil {
		if isInvalidUUID(err) {
			return 0, domain.ErrInvalidID
		}
		return 0, fmt.Errorf("count valid bids: %w", err)
	}
	return count, nil
}

func (r *AuctionRepository) InvalidateBids(ctx context.Context, auctionID, bidderID uuid.UUID) (int, error) {
	const stmt = `
UPDATE bids SET status = 'rejected'
WHERE auction_id = $1 AND bidder_id = $2 AND status = 'valid'`

	tag, err := r.exec(ctx, stmt, auctionID, bidderID)
	if err != nil {
		return 0, fmt.Errorf("invalidate bids: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *AuctionRepository) HasRejection(ctx context.Context, auctionID, bidderID uuid.UUID) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM bid_rejections WHERE auction_id = $1 AND bidder_id = $2)`

	var banned bool
	if err := r.queryRow(ctx, query, auctionID, bidderID).Scan(&banned); err != nil {
		return false, fmt.Errorf("check rejection: %w", err)
	}
	return banned, nil
}

func (r *AuctionRepository) InsertRejection(ctx context.Context, rejection domain.BidRejection) error {
	const stmt = `
INSERT INTO bid_rejections (id, auction_id, bidder_id, created_at)
VALUES ($1, $2, $3, $4)`

	_, err := r.exec(ctx, stmt, rejection.ID, rejection.AuctionID, rejection.BidderID, rejection.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyBanned
		}
		return fmt.Errorf("insert rejection: %w", err)
	}
	return nil
}

func (r *AuctionRepository) GetUser(ctx context.Context, id uuid.UUID) (domain.User, error) {
	const query = `SELECT id, role, positive_ratings, total_ratings, created_at FROM users WHERE id = $1`

	var (
		u    domain.User
		role string
	)
	err := r.queryRow(ctx, query, id).Scan(&u.ID, &role, &u.PositiveRatings, &u.TotalRatings, &u.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.User{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	u.Role = domain.Role(role)
	return u, nil
}

func (r *AuctionRepository) CreateUser(ctx context.Context, u domain.User) error {
	const stmt = `
INSERT INTO users (id, role, positive_ratings, total_ratings, created_at)
VALUES ($1, $2, $3, $4, $5)`

	_, err := r.exec(ctx, stmt, u.ID, string(u.Role), u.PositiveRatings, u.TotalRatings, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *AuctionRepository) SetUserRole(ctx context.Context, userID uuid.UUID, role domain.Role) error {
	const stmt = `UPDATE users SET role = $2 WHERE id = $1`

	tag, err := r.exec(ctx, stmt, userID, string(role))
	if err != nil {
		return fmt.Errorf("set user role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *AuctionRepository) InsertPrivilege(ctx context.Context, p domain.SellerPrivilege) error {
	const stmt = `
INSERT INTO seller_privileges (id, user_id, granted_at, expires_at, status)
VALUES ($1, $2, $3, $4, $5)`

	_, err := r.exec(ctx, stmt, p.ID, p.UserID, p.GrantedAt, p.ExpiresAt, string(p.Status))
	if err != nil {
		return fmt.Errorf("insert privilege: %w", err)
	}
	return nil
}

func (r *AuctionRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *AuctionRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}

func (r *AuctionRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}
