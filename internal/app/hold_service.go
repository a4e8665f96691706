package app

import (
	"context"
	"errors"
	"time"

	"github.com/itwhiprentals/claims-service/internal/clock"
	"github.com/itwhiprentals/claims-service/internal/domain"
)

type HoldRepository interface {
	CreateHold(ctx context.Context, hold domain.AccountHold) error
	FindActiveHold(ctx context.Context, accountID, claimID string) (*domain.AccountHold, error)
	MarkLifted(ctx context.Context, accountID, claimID string, liftedAt time.Time, by domain.LiftActor) (bool, error)
	HasActiveHold(ctx context.Context, accountID string, now time.Time) (bool, error)
}

// HoldService enforces account restrictions tied to open claims. All hold
// writes go through here; the lifecycle never touches hold rows directly.
type HoldService struct {
	repo  HoldRepository
	clock clock.Clock
}

func NewHoldService(repo HoldRepository, clk clock.Clock) *HoldService {
	return &HoldService{repo: repo, clock: clk}
}

// Apply places a hold on the account for the given claim. Re-applying
// while one is active returns the existing record untouched (created is
// false), never a duplicate; a race on the active-hold uniqueness is
// resolved by re-reading the winner.
func (s *HoldService) Apply(ctx context.Context, accountID, claimID, reason string, expiresAt time.Time) (domain.AccountHold, bool, error) {
	if accountID == "" || claimID == "" {
		return domain.AccountHold{}, false, domain.ErrInvalidID
	}

	if existing, err := s.repo.FindActiveHold(ctx, accountID, claimID); err != nil {
		return domain.AccountHold{}, false, err
	} else if existing != nil {
		return *existing, false, nil
	}

	now := s.clock.Now()
	hold := domain.AccountHold{
		ID:        newID(),
		AccountID: accountID,
		ClaimID:   claimID,
		Reason:    reason,
		AppliedAt: now,
		ExpiresAt: expiresAt,
	}
	if err := s.repo.CreateHold(ctx, hold); err != nil {
		if errors.Is(err, domain.ErrIdempotencyConflict) {
			existing, err := s.repo.FindActiveHold(ctx, accountID, claimID)
			if err != nil {
				return domain.AccountHold{}, false, err
			}
			if existing != nil {
				return *existing, false, nil
			}
		}
		return domain.AccountHold{}, false, err
	}
	return hold, true, nil
}

// Lift removes the active hold for (account, claim). Lifting an
// already-lifted or missing hold is a no-op with lifted=false.
func (s *HoldService) Lift(ctx context.Context, accountID, claimID string, by domain.LiftActor) (bool, error) {
	if accountID == "" || claimID == "" {
		return false, domain.ErrInvalidID
	}
	return s.repo.MarkLifted(ctx, accountID, claimID, s.clock.Now(), by)
}

// IsRestricted is the guard consulted on every booking and listing
// mutation: one indexed existence query over active, unexpired holds.
func (s *HoldService) IsRestricted(ctx context.Context, accountID string) (bool, error) {
	if accountID == "" {
		return false, domain.ErrInvalidID
	}
	return s.repo.HasActiveHold(ctx, accountID, s.clock.Now())
}
