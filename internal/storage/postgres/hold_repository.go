package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/itwhiprentals/claims-service/internal/domain"
)

type HoldRepository struct {
	pool *pgxpool.Pool
}

func NewHoldRepository(pool *pgxpool.Pool) *HoldRepository {
	return &HoldRepository{pool: pool}
}

// CreateHold inserts a hold; the partial unique index over active rows
// turns a duplicate active (account, claim) pair into
// domain.ErrIdempotencyConflict for the caller to re-read.
func (r *HoldRepository) CreateHold(ctx context.Context, hold domain.AccountHold) error {
	const stmt = `
INSERT INTO account_holds (id, account_id, claim_id, reason, applied_at, expires_at, lifted_at, lifted_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.exec(ctx, stmt,
		hold.ID,
		hold.AccountID,
		hold.ClaimID,
		hold.Reason,
		hold.AppliedAt,
		hold.ExpiresAt,
		hold.LiftedAt,
		hold.LiftedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrIdempotencyConflict
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create hold: %w", err)
	}
	return nil
}

func (r *HoldRepository) FindActiveHold(ctx context.Context, accountID, claimID string) (*domain.AccountHold, error) {
	const query = `
SELECT id, account_id, claim_id, reason, applied_at, expires_at, lifted_at, lifted_by
FROM account_holds
WHERE account_id = $1 AND claim_id = $2 AND lifted_at IS NULL`

	var h domain.AccountHold
	err := r.queryRow(ctx, query, accountID, claimID).
		Scan(&h.ID, &h.AccountID, &h.ClaimID, &h.Reason, &h.AppliedAt, &h.ExpiresAt, &h.LiftedAt, &h.LiftedBy)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find active hold: %w", err)
	}
	return &h, nil
}

// MarkLifted settles the active hold for (account, claim). Zero rows
// affected means there was nothing active to lift; that is reported as
// lifted=false, not an error, so repeated lifts stay no-ops.
func (r *HoldRepository) MarkLifted(ctx context.Context, accountID, claimID string, liftedAt time.Time, by domain.LiftActor) (bool, error) {
	const stmt = `
UPDATE account_holds
SET lifted_at = $3, lifted_by = $4
WHERE account_id = $1 AND claim_id = $2 AND lifted_at IS NULL`

	tag, err := r.exec(ctx, stmt, accountID, claimID, liftedAt, by)
	if err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		return false, fmt.Errorf("lift hold: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *HoldRepository) HasActiveHold(ctx context.Context, accountID string, now time.Time) (bool, error) {
	const query = `
SELECT EXISTS (
	SELECT 1 FROM account_holds
	WHERE account_id = $1 AND lifted_at IS NULL AND expires_at > $2
)`

	var restricted bool
	if err := r.queryRow(ctx, query, accountID, now).Scan(&restricted); err != nil {
		return false, fmt.Errorf("check active hold: %w", err)
	}
	return restricted, nil
}

func (r *HoldRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *HoldRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
