package domain

import (
	"time"
)

// TemplateKind names a notification template. The core hands the
// dispatcher structured payloads only; rendering belongs to the external
// notifier.
type TemplateKind string

const (
	TemplateClaimFiledConfirmation TemplateKind = "claim-filed-confirmation"
	TemplateClaimActionRequired    TemplateKind = "claim-action-required"
	TemplateAccountHoldApplied     TemplateKind = "account-hold-applied"
	TemplateAccountHoldLifted      TemplateKind = "account-hold-lifted"
	TemplateCounterOfferMade       TemplateKind = "counter-offer-made"
	TemplateClaimResolved          TemplateKind = "claim-resolved"
	TemplateDepositReleased        TemplateKind = "deposit-released"
	TemplatePayoutConfirmation     TemplateKind = "payout-confirmation"
)

// Transactional reports whether the kind must be delivered even when the
// unsubscribe lookup fails (fail-open). The filer's own courtesy
// confirmation is the only kind that fails closed.
func (k TemplateKind) Transactional() bool {
	return k != TemplateClaimFiledConfirmation
}

// Payload fields are plain structured data: ids, dates in RFC3339 and
// amounts as decimal strings. Never pre-rendered markup. Each kind has
// one exhaustively-typed payload validated at construction.

type ClaimFiledPayload struct {
	ClaimID          string `json:"claim_id"`
	BookingID        string `json:"booking_id"`
	ClaimType        string `json:"claim_type"`
	FiledBy          string `json:"filed_by"`
	IncidentSummary  string `json:"incident_summary"`
	EstimatedCost    string `json:"estimated_cost"`
	ResponseDeadline string `json:"response_deadline"`
}

func NewClaimFiledPayload(c *Claim) (ClaimFiledPayload, error) {
	if c.ID == "" || c.BookingID == "" {
		return ClaimFiledPayload{}, ErrInvalidClaimInput
	}
	return ClaimFiledPayload{
		ClaimID:          c.ID,
		BookingID:        c.BookingID,
		ClaimType:        string(c.Type),
		FiledBy:          string(c.FiledBy),
		IncidentSummary:  c.Description,
		EstimatedCost:    c.EstimatedCost.StringFixed(2),
		ResponseDeadline: c.ResponseDeadline.Format(time.RFC3339),
	}, nil
}

type HoldAppliedPayload struct {
	ClaimID          string `json:"claim_id"`
	AccountID        string `json:"account_id"`
	Reason           string `json:"reason"`
	ResponseDeadline string `json:"response_deadline"`
}

func NewHoldAppliedPayload(h AccountHold, deadline time.Time) (HoldAppliedPayload, error) {
	if h.ClaimID == "" || h.AccountID == "" {
		return HoldAppliedPayload{}, ErrInvalidClaimInput
	}
	return HoldAppliedPayload{
		ClaimID:          h.ClaimID,
		AccountID:        h.AccountID,
		Reason:           h.Reason,
		ResponseDeadline: deadline.Format(time.RFC3339),
	}, nil
}

type HoldLiftedPayload struct {
	ClaimID   string `json:"claim_id"`
	AccountID string `json:"account_id"`
	LiftedBy  string `json:"lifted_by"`
	LiftedAt  string `json:"lifted_at"`
}

type CounterOfferPayload struct {
	ClaimID          string `json:"claim_id"`
	Round            int    `json:"round"`
	RoundsRemaining  int    `json:"rounds_remaining"`
	OfferNote        string `json:"offer_note"`
	ResponseDeadline string `json:"response_deadline"`
}

func NewCounterOfferPayload(c *Claim, note string) (CounterOfferPayload, error) {
	if c.ID == "" || c.Kind != ClaimKindCommission {
		return CounterOfferPayload{}, ErrNotNegotiable
	}
	return CounterOfferPayload{
		ClaimID:          c.ID,
		Round:            c.Round,
		RoundsRemaining:  c.MaxRounds - c.Round,
		OfferNote:        note,
		ResponseDeadline: c.ResponseDeadline.Format(time.RFC3339),
	}, nil
}

type ClaimResolvedPayload struct {
	ClaimID    string `json:"claim_id"`
	BookingID  string `json:"booking_id"`
	Outcome    string `json:"outcome"`
	ResolvedAt string `json:"resolved_at"`
}

func NewClaimResolvedPayload(c *Claim) (ClaimResolvedPayload, error) {
	if c.State != ClaimResolved || c.ResolvedAt == nil {
		return ClaimResolvedPayload{}, ErrInvalidTransition
	}
	return ClaimResolvedPayload{
		ClaimID:    c.ID,
		BookingID:  c.BookingID,
		Outcome:    string(c.Outcome),
		ResolvedAt: c.ResolvedAt.Format(time.RFC3339),
	}, nil
}

type DepositReleasedPayload struct {
	BookingID    string `json:"booking_id"`
	TotalDeposit string `json:"total_deposit"`
	CardRefund   string `json:"card_refund"`
	WalletReturn string `json:"wallet_return"`
}

func NewDepositReleasedPayload(bookingID string, rel DepositRelease) (DepositReleasedPayload, error) {
	if bookingID == "" {
		return DepositReleasedPayload{}, ErrInvalidClaimInput
	}
	return DepositReleasedPayload{
		BookingID:    bookingID,
		TotalDeposit: rel.TotalDeposit.StringFixed(2),
		CardRefund:   rel.CardRefund.StringFixed(2),
		WalletReturn: rel.WalletReturn.StringFixed(2),
	}, nil
}

type PayoutConfirmationPayload struct {
	ClaimID   string `json:"claim_id"`
	BookingID string `json:"booking_id"`
	Amount    string `json:"amount"`
	Outcome   string `json:"outcome"`
}

// OutboxMessage is a pending notification intent. Rows are written in the
// same transaction as the lifecycle transition that caused them, then
// dispatched best-effort afterwards; a send failure never rolls the
// transition back.
type OutboxMessage struct {
	// ID is a ULID so dispatch order follows creation order.
	ID        string
	Recipient string
	Kind      TemplateKind
	Payload   []byte
	Attempts  int
	CreatedAt time.Time
	SentAt    *time.Time
}
