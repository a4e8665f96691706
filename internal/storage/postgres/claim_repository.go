package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/itwhiprentals/claims-service/internal/domain"
)

type ClaimRepository struct {
	pool *pgxpool.Pool
}

func NewClaimRepository(pool *pgxpool.Pool) *ClaimRepository {
	return &ClaimRepository{pool: pool}
}

func (r *ClaimRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

const claimColumns = `
id, booking_id, vehicle_id, guest_id, host_id, guest_email, host_email,
kind, filed_by, claim_type, incident_at, estimated_cost, description,
state, outcome, response_deadline, round, max_rounds, needs_manual_review,
tier, hierarchy, idempotency_key, resolved_at, created_at, updated_at, version`

func (r *ClaimRepository) CreateClaim(ctx context.Context, claim domain.Claim) error {
	hierarchy, err := json.Marshal(claim.Hierarchy)
	if err != nil {
		return fmt.Errorf("marshal hierarchy: %w", err)
	}

	const stmt = `
INSERT INTO claims (` + claimColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
        $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)`

	_, err = r.exec(ctx, stmt,
		claim.ID,
		claim.BookingID,
		claim.VehicleID,
		claim.GuestID,
		claim.HostID,
		claim.GuestEmail,
		claim.HostEmail,
		claim.Kind,
		claim.FiledBy,
		claim.Type,
		claim.IncidentAt,
		claim.EstimatedCost,
		claim.Description,
		claim.State,
		claim.Outcome,
		claim.ResponseDeadline,
		claim.Round,
		claim.MaxRounds,
		claim.NeedsManualReview,
		claim.Tier,
		hierarchy,
		claim.IdempotencyKey,
		claim.ResolvedAt,
		claim.CreatedAt,
		claim.UpdatedAt,
		claim.Version,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrIdempotencyConflict
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create claim: %w", err)
	}
	return nil
}

func (r *ClaimRepository) GetClaim(ctx context.Context, id string) (domain.Claim, error) {
	const query = `SELECT ` + claimColumns + ` FROM claims WHERE id = $1`

	claim, err := scanClaim(r.queryRow(ctx, query, id))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Claim{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Claim{}, domain.ErrClaimNotFound
		}
		return domain.Claim{}, fmt.Errorf("get claim: %w", err)
	}
	return claim, nil
}

func (r *ClaimRepository) FindClaimByIdempotencyKey(ctx context.Context, bookingID string, filedBy domain.PartyRole, key string) (*domain.Claim, error) {
	const query = `SELECT ` + claimColumns + `
FROM claims
WHERE booking_id = $1 AND filed_by = $2 AND idempotency_key = $3`

	claim, err := scanClaim(r.queryRow(ctx, query, bookingID, filedBy, key))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find claim by idempotency key: %w", err)
	}
	return &claim, nil
}

// UpdateClaim persists a transition guarded by the optimistic version
// check: zero rows affected with the claim still present means another
// transition won the race.
func (r *ClaimRepository) UpdateClaim(ctx context.Context, claim domain.Claim, expectedVersion int64) error {
	const stmt = `
UPDATE claims
SET state = $2,
    outcome = $3,
    response_deadline = $4,
    round = $5,
    needs_manual_review = $6,
    resolved_at = $7,
    updated_at = $8,
    version = version + 1
WHERE id = $1 AND version = $9`

	tag, err := r.exec(ctx, stmt,
		claim.ID,
		claim.State,
		claim.Outcome,
		claim.ResponseDeadline,
		claim.Round,
		claim.NeedsManualReview,
		claim.ResolvedAt,
		claim.UpdatedAt,
		expectedVersion,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("update claim: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.queryRow(ctx, `SELECT EXISTS (SELECT 1 FROM claims WHERE id = $1)`, claim.ID).Scan(&exists); err != nil {
			return fmt.Errorf("check claim exists: %w", err)
		}
		if !exists {
			return domain.ErrClaimNotFound
		}
		return domain.ErrVersionConflict
	}
	return nil
}

func (r *ClaimRepository) DueClaimIDs(ctx context.Context, now time.Time, limit int) ([]string, error) {
	const query = `
SELECT id
FROM claims
WHERE state IN ('awaiting_response', 'counter_offered') AND response_deadline <= $1
ORDER BY response_deadline
LIMIT $2`

	rows, err := r.query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list due claims: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan due claim id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list due claims: %w", err)
	}
	return ids, nil
}

func scanClaim(row pgx.Row) (domain.Claim, error) {
	var c domain.Claim
	var hierarchy []byte
	err := row.Scan(
		&c.ID,
		&c.BookingID,
		&c.VehicleID,
		&c.GuestID,
		&c.HostID,
		&c.GuestEmail,
		&c.HostEmail,
		&c.Kind,
		&c.FiledBy,
		&c.Type,
		&c.IncidentAt,
		&c.EstimatedCost,
		&c.Description,
		&c.State,
		&c.Outcome,
		&c.ResponseDeadline,
		&c.Round,
		&c.MaxRounds,
		&c.NeedsManualReview,
		&c.Tier,
		&hierarchy,
		&c.IdempotencyKey,
		&c.ResolvedAt,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.Version,
	)
	if err != nil {
		return domain.Claim{}, err
	}
	if err := json.Unmarshal(hierarchy, &c.Hierarchy); err != nil {
		return domain.Claim{}, fmt.Errorf("unmarshal hierarchy: %w", err)
	}
	return c, nil
}

func (r *ClaimRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *ClaimRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}

func (r *ClaimRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}
