package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mvidala/gavel/internal/domain"
	"github.com/mvidala/gavel/internal/testutil"
)

func insertPrivilege(t *testing.T, ctx context.Context, pool *pgxpool.Pool, userID uuid.UUID, expiresAt time.Time, status domain.PrivilegeStatus) uuid.UUID {
	t.Helper()
	var id uuid.UUID
	err := pool.QueryRow(ctx, `
INSERT INTO seller_privileges (user_id, expires_at, status)
VALUES ($1, $2, $3)
RETURNING id`,
		userID, expiresAt, string(status),
	).Scan(&id)
	if err != nil {
		t.Fatalf("insert privilege: %v", err)
	}
	return id
}

func TestPrivilegeRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	repo := NewPrivilegeRepository(pool)
	testutil.ApplyMigrations(t, context.Background(), pool)

	t.Run("ExpirePrivilege flips active once", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		userID := testutil.InsertUser(t, ctx, pool, domain.RoleSeller, 10, 10)
		now := time.Now().UTC()
		dueID := insertPrivilege(t, ctx, pool, userID, now.Add(-time.Hour), domain.PrivilegeStatusActive)
		insertPrivilege(t, ctx, pool, userID, now.Add(time.Hour), domain.PrivilegeStatusActive)

		ids, err := repo.ListDueActivePrivileges(ctx, now)
		if err != nil {
			t.Fatalf("list due: %v", err)
		}
		if len(ids) != 1 || ids[0] != dueID {
			t.Fatalf("expected only the due privilege, got %v", ids)
		}

		flipped, err := repo.ExpirePrivilege(ctx, dueID)
		if err != nil || !flipped {
			t.Fatalf("expire: flipped=%v err=%v", flipped, err)
		}
		flipped, err = repo.ExpirePrivilege(ctx, dueID)
		if err != nil {
			t.Fatalf("re-expire: %v", err)
		}
		if flipped {
			t.Fatal("expected re-expire to be a no-op")
		}
	})

	t.Run("DowngradePrivilege applies after the grace cutoff", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		userID := testutil.InsertUser(t, ctx, pool, domain.RoleSeller, 10, 10)
		now := time.Now().UTC()
		grace := 7 * 24 * time.Hour

		staleID := insertPrivilege(t, ctx, pool, userID, now.Add(-grace-time.Hour), domain.PrivilegeStatusExpired)
		insertPrivilege(t, ctx, pool, userID, now.Add(-time.Hour), domain.PrivilegeStatusExpired)

		due, err := repo.ListDueExpiredPrivileges(ctx, now.Add(-grace))
		if err != nil {
			t.Fatalf("list due expired: %v", err)
		}
		if len(due) != 1 || due[0].ID != staleID {
			t.Fatalf("expected only the stale privilege, got %v", due)
		}
		if due[0].UserID != userID {
			t.Fatalf("expected user %s, got %s", userID, due[0].UserID)
		}

		flipped, err := repo.DowngradePrivilege(ctx, staleID)
		if err != nil || !flipped {
			t.Fatalf("downgrade: flipped=%v err=%v", flipped, err)
		}

		if err := repo.SetUserRole(ctx, userID, domain.RoleBidder); err != nil {
			t.Fatalf("set role: %v", err)
		}
		var role string
		if err := pool.QueryRow(ctx, `SELECT role FROM users WHERE id = $1`, userID).Scan(&role); err != nil {
			t.Fatalf("query role: %v", err)
		}
		if role != string(domain.RoleBidder) {
			t.Fatalf("expected bidder role, got %q", role)
		}

		flipped, err = repo.DowngradePrivilege(ctx, staleID)
		if err != nil {
			t.Fatalf("re-downgrade: %v", err)
		}
		if flipped {
			t.Fatal("expected re-downgrade to be a no-op")
		}
	})

	t.Run("SetUserRole unknown user", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		if err := repo.SetUserRole(ctx, uuid.New(), domain.RoleBidder); err != domain.ErrUserNotFound {
			t.Fatalf("expected ErrUserNotFound, got %v", err)
		}
	})
}
