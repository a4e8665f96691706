package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ClaimKind string

const (
	// ClaimKindIncident covers damage and trip-conduct claims.
	ClaimKindIncident ClaimKind = "incident"
	// ClaimKindCommission covers fleet-management commission negotiations,
	// which share the deadline machinery but add capped counter-offer rounds.
	ClaimKindCommission ClaimKind = "commission"
)

type ClaimState string

const (
	ClaimFiled            ClaimState = "filed"
	ClaimAwaitingResponse ClaimState = "awaiting_response"
	ClaimResponded        ClaimState = "responded"
	ClaimResponseExpired  ClaimState = "response_expired"
	ClaimCounterOffered   ClaimState = "counter_offered"
	ClaimUnderReview      ClaimState = "under_review"
	ClaimResolved         ClaimState = "resolved"
)

type ClaimOutcome string

const (
	OutcomeNone            ClaimOutcome = ""
	OutcomeApproved        ClaimOutcome = "approved"
	OutcomeDenied          ClaimOutcome = "denied"
	OutcomeSettled         ClaimOutcome = "settled"
	OutcomeAccepted        ClaimOutcome = "accepted"
	OutcomeDeclined        ClaimOutcome = "declined"
	OutcomeRoundsExhausted ClaimOutcome = "rounds_exhausted"
)

type PartyRole string

const (
	PartyGuest PartyRole = "guest"
	PartyHost  PartyRole = "host"
)

type ClaimType string

const (
	ClaimTypeDamage          ClaimType = "damage"
	ClaimTypeCleaning        ClaimType = "cleaning"
	ClaimTypeFuel            ClaimType = "fuel"
	ClaimTypeMileage         ClaimType = "mileage"
	ClaimTypeLateReturn      ClaimType = "late_return"
	ClaimTypeCommissionTerms ClaimType = "commission_terms"
	ClaimTypeOther           ClaimType = "other"
)

// DefaultMaxRounds caps commission counter-offers; reaching the cap forces
// a binary accept/decline.
const DefaultMaxRounds = 3

// Claim is a single incident or commission negotiation tied to one
// booking. It is created when a party files and mutated only through the
// transition methods below; claims are never deleted, so the resolution
// trail stays auditable.
type Claim struct {
	ID          string
	BookingID   string
	VehicleID   string
	GuestID     string
	HostID      string
	GuestEmail  string
	HostEmail   string
	Kind        ClaimKind
	FiledBy     PartyRole
	Type        ClaimType
	IncidentAt  time.Time
	EstimatedCost decimal.Decimal
	Description string

	State   ClaimState
	Outcome ClaimOutcome
	// ResponseDeadline is stored as an absolute instant so it survives
	// restarts and is evaluated purely by comparison during sweeps.
	ResponseDeadline  time.Time
	Round             int
	MaxRounds         int
	NeedsManualReview bool

	// Tier and Hierarchy are snapshotted at filing; later insurance
	// changes never alter an open claim's payer order.
	Tier      Tier
	Hierarchy []PayerRef

	IdempotencyKey string
	ResolvedAt     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Version        int64
}

// Counterparty returns the role expected to respond to this claim.
func (c *Claim) Counterparty() PartyRole {
	if c.FiledBy == PartyGuest {
		return PartyHost
	}
	return PartyGuest
}

// CounterpartyAccountID returns the account the response hold applies to.
func (c *Claim) CounterpartyAccountID() string {
	if c.FiledBy == PartyGuest {
		return c.HostID
	}
	return c.GuestID
}

// FilerAccountID returns the account of the party that filed.
func (c *Claim) FilerAccountID() string {
	if c.FiledBy == PartyGuest {
		return c.GuestID
	}
	return c.HostID
}

// EmailFor returns the notification address for a party on this claim.
func (c *Claim) EmailFor(role PartyRole) string {
	if role == PartyGuest {
		return c.GuestEmail
	}
	return c.HostEmail
}

// Open reports whether the claim still blocks vehicle edits.
func (c *Claim) Open() bool {
	return c.State != ClaimResolved
}

// StartResponseWindow moves a freshly filed claim into awaiting_response
// with a deadline strictly after now. Called once, before the first save.
func (c *Claim) StartResponseWindow(now time.Time, ttl time.Duration) error {
	if c.State != ClaimFiled {
		return ErrInvalidTransition
	}
	if ttl <= 0 {
		return ErrInvalidTransition
	}
	c.State = ClaimAwaitingResponse
	c.ResponseDeadline = now.Add(ttl)
	c.UpdatedAt = now
	return nil
}

// Respond records a substantive counterparty submission. It reports
// whether the claim changed: responding to an already-responded claim is
// a no-op, matching at-least-once delivery of the request.
func (c *Claim) Respond(now time.Time) (bool, error) {
	switch c.State {
	case ClaimResponded, ClaimUnderReview:
		return false, nil
	case ClaimAwaitingResponse, ClaimCounterOffered:
		c.State = ClaimResponded
		c.UpdatedAt = now
		return true, nil
	case ClaimResponseExpired:
		return false, ErrDeadlinePassed
	case ClaimResolved:
		return false, ErrClaimClosed
	default:
		return false, ErrInvalidTransition
	}
}

// CounterOffer advances a commission negotiation one round. Each counter
// extends the existing deadline by the grace period rather than resetting
// it, so repeated late-round counters cannot stall indefinitely. A counter
// at the round cap is rejected; only accept or decline remain.
func (c *Claim) CounterOffer(now time.Time, grace time.Duration) (bool, error) {
	if c.Kind != ClaimKindCommission {
		return false, ErrNotNegotiable
	}
	switch c.State {
	case ClaimAwaitingResponse, ClaimCounterOffered:
	case ClaimResponseExpired:
		return false, ErrDeadlinePassed
	case ClaimResolved:
		return false, ErrClaimClosed
	default:
		return false, ErrInvalidTransition
	}
	if c.Round >= c.MaxRounds {
		return false, ErrRoundsExhausted
	}
	c.State = ClaimCounterOffered
	c.Round++
	c.ResponseDeadline = c.ResponseDeadline.Add(grace)
	c.UpdatedAt = now
	return true, nil
}

// AcceptOffer closes a commission negotiation with agreement.
func (c *Claim) AcceptOffer(now time.Time) (bool, error) {
	return c.closeNegotiation(now, OutcomeAccepted)
}

// DeclineOffer closes a commission negotiation with rejection.
func (c *Claim) DeclineOffer(now time.Time) (bool, error) {
	return c.closeNegotiation(now, OutcomeDeclined)
}

func (c *Claim) closeNegotiation(now time.Time, outcome ClaimOutcome) (bool, error) {
	if c.Kind != ClaimKindCommission {
		return false, ErrNotNegotiable
	}
	switch c.State {
	case ClaimCounterOffered, ClaimAwaitingResponse:
		c.State = ClaimResolved
		c.Outcome = outcome
		t := now
		c.ResolvedAt = &t
		c.UpdatedAt = now
		return true, nil
	case ClaimResolved:
		if c.Outcome == outcome {
			return false, nil
		}
		return false, ErrClaimClosed
	default:
		return false, ErrInvalidTransition
	}
}

// Expire applies the deadline-elapsed transition. Expiry is an expected,
// first-class outcome: an unanswered claim moves to response_expired with
// the manual-review flag set and its hold left in place; a commission
// negotiation whose final round lapsed resolves as rounds_exhausted.
// Re-applying against an already-expired claim is a no-op.
func (c *Claim) Expire(now time.Time) (bool, error) {
	switch c.State {
	case ClaimResponseExpired, ClaimResolved:
		return false, nil
	case ClaimAwaitingResponse, ClaimCounterOffered:
	default:
		return false, ErrInvalidTransition
	}
	if now.Before(c.ResponseDeadline) {
		return false, ErrDeadlineNotReached
	}
	if c.State == ClaimCounterOffered && c.Round >= c.MaxRounds {
		c.State = ClaimResolved
		c.Outcome = OutcomeRoundsExhausted
		t := now
		c.ResolvedAt = &t
		c.UpdatedAt = now
		return true, nil
	}
	c.State = ClaimResponseExpired
	c.NeedsManualReview = true
	c.UpdatedAt = now
	return true, nil
}

// BeginReview moves a responded or expired claim into manual review.
func (c *Claim) BeginReview(now time.Time) (bool, error) {
	switch c.State {
	case ClaimUnderReview:
		return false, nil
	case ClaimResponded, ClaimResponseExpired:
		c.State = ClaimUnderReview
		c.UpdatedAt = now
		return true, nil
	case ClaimResolved:
		return false, ErrClaimClosed
	default:
		return false, ErrInvalidTransition
	}
}

// Resolve closes a reviewed claim with exactly one terminal outcome.
// Replaying the same outcome is a no-op; a different outcome against a
// resolved claim is rejected.
func (c *Claim) Resolve(now time.Time, outcome ClaimOutcome) (bool, error) {
	switch outcome {
	case OutcomeApproved, OutcomeDenied, OutcomeSettled:
	default:
		return false, ErrInvalidTransition
	}
	switch c.State {
	case ClaimResolved:
		if c.Outcome == outcome {
			return false, nil
		}
		return false, ErrClaimClosed
	case ClaimUnderReview:
		c.State = ClaimResolved
		c.Outcome = outcome
		t := now
		c.ResolvedAt = &t
		c.UpdatedAt = now
		return true, nil
	default:
		return false, ErrInvalidTransition
	}
}

// RemainingResponse returns how long the counterparty still has to act,
// clipped at zero once the deadline passed.
func (c *Claim) RemainingResponse(now time.Time) time.Duration {
	if c.State != ClaimAwaitingResponse && c.State != ClaimCounterOffered {
		return 0
	}
	d := c.ResponseDeadline.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// ValidClaimType reports whether t is one of the defined claim types.
func ValidClaimType(t ClaimType) bool {
	switch t {
	case ClaimTypeDamage, ClaimTypeCleaning, ClaimTypeFuel, ClaimTypeMileage,
		ClaimTypeLateReturn, ClaimTypeCommissionTerms, ClaimTypeOther:
		return true
	}
	return false
}
