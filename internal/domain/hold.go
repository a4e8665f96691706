package domain

import "time"

// LiftActor records who lifted a hold.
type LiftActor string

const (
	LiftedBySystem LiftActor = "system"
	LiftedByManual LiftActor = "manual"
)

// AccountHold is a temporary restriction on one account, tied to the
// claim that caused it. At most one hold may be active per (account,
// claim); re-applying an active hold returns the existing record.
type AccountHold struct {
	ID        string
	AccountID string
	ClaimID   string
	Reason    string
	AppliedAt time.Time
	// ExpiresAt is a safety valve: a hold the system never lifted stops
	// restricting the account after this instant.
	ExpiresAt time.Time
	LiftedAt  *time.Time
	LiftedBy  LiftActor
}

// Active reports whether the hold restricts the account at the given time.
func (h *AccountHold) Active(now time.Time) bool {
	return h.LiftedAt == nil && now.Before(h.ExpiresAt)
}
