package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mvidala/gavel/internal/domain"
)

// PrivilegeRepository serves the hourly privilege sweep. Every transition is
// a conditional write on the current status, never on a prior sweep's result.
type PrivilegeRepository struct {
	pool *pgxpool.Pool
}

func NewPrivilegeRepository(pool *pgxpool.Pool) *PrivilegeRepository {
	return &PrivilegeRepository{pool: pool}
}

func (r *PrivilegeRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *PrivilegeRepository) ListDueActivePrivileges(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	const query = `SELECT id FROM seller_privileges WHERE status = 'active' AND expires_at <= $1`
	return r.listIDs(ctx, query, now)
}

func (r *PrivilegeRepository) ExpirePrivilege(ctx context.Context, id uuid.UUID) (bool, error) {
	const stmt = `UPDATE seller_privileges SET status = 'expired' WHERE id = $1 AND status = 'active'`

	tag, err := r.exec(ctx, stmt, id)
	if err != nil {
		return false, fmt.Errorf("expire privilege: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PrivilegeRepository) ListDueExpiredPrivileges(ctx context.Context, cutoff time.Time) ([]domain.SellerPrivilege, error) {
	const query = `
SELECT id, user_id, granted_at, expires_at, status
FROM seller_privileges
WHERE status = 'expired' AND expires_at <= $1`

	rows, err := r.query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list due expired privileges: %w", err)
	}
	defer rows.Close()

	var out []domain.SellerPrivilege
	for rows.Next() {
		var (
			p      domain.SellerPrivilege
			status string
		)
		if err := rows.Scan(&p.ID, &p.UserID, &p.GrantedAt, &p.ExpiresAt, &status); err != nil {
			return nil, fmt.Errorf("scan privilege: %w", err)
		}
		p.Status = domain.PrivilegeStatus(status)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PrivilegeRepository) DowngradePrivilege(ctx context.Context, id uuid.UUID) (bool, error) {
	const stmt = `UPDATE seller_privileges SET status = 'downgraded' WHERE id = $1 AND status = 'expired'`

	tag, err := r.exec(ctx, stmt, id)
	if err != nil {
		return false, fmt.Errorf("downgrade privilege: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PrivilegeRepository) SetUserRole(ctx context.Context, userID uuid.UUID, role domain.Role) error {
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

func (r *PrivilegeRepository) listIDs(ctx context.Context, query string, args ...any) ([]uuid.UUID, error) {
	rows, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list privileges: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan privilege id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *PrivilegeRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *PrivilegeRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}
