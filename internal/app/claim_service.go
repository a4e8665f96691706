package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/itwhiprentals/claims-service/internal/clock"
	"github.com/itwhiprentals/claims-service/internal/domain"
)

// ClaimRepository is the persistence surface of the claim lifecycle.
// UpdateClaim must fail with domain.ErrVersionConflict when the expected
// version is stale; that check is what serializes concurrent transitions
// against the same claim.
type ClaimRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	CreateClaim(ctx context.Context, claim domain.Claim) error
	GetClaim(ctx context.Context, id string) (domain.Claim, error)
	FindClaimByIdempotencyKey(ctx context.Context, bookingID string, filedBy domain.PartyRole, key string) (*domain.Claim, error)
	UpdateClaim(ctx context.Context, claim domain.Claim, expectedVersion int64) error
	DueClaimIDs(ctx context.Context, now time.Time, limit int) ([]string, error)
}

// OutboxEnqueuer stores a notification intent; when called inside a
// repository transaction the row commits atomically with the transition.
type OutboxEnqueuer interface {
	Enqueue(ctx context.Context, msg domain.OutboxMessage) error
}

// HoldEnforcer applies and lifts account holds on behalf of the lifecycle.
type HoldEnforcer interface {
	Apply(ctx context.Context, accountID, claimID, reason string, expiresAt time.Time) (domain.AccountHold, bool, error)
	Lift(ctx context.Context, accountID, claimID string, by domain.LiftActor) (bool, error)
}

const (
	defaultResponseTTL  = 48 * time.Hour
	defaultCounterGrace = 72 * time.Hour
	// Holds outlive the response deadline so an expired, unanswered claim
	// keeps restricting the counterparty until review.
	defaultHoldGrace = 30 * 24 * time.Hour

	transitionAttempts = 3
)

type ClaimService struct {
	claims ClaimRepository
	holds  HoldEnforcer
	outbox OutboxEnqueuer
	clock  clock.Clock
	logger *log.Logger

	responseTTL  time.Duration
	counterGrace time.Duration
	holdGrace    time.Duration
	maxRounds    int
}

type ClaimServiceOption func(*ClaimService)

// WithResponseTTL overrides the 48h response window for new claims.
func WithResponseTTL(d time.Duration) ClaimServiceOption {
	return func(s *ClaimService) {
		if d > 0 {
			s.responseTTL = d
		}
	}
}

// WithCounterGrace overrides the per-counter deadline extension.
func WithCounterGrace(d time.Duration) ClaimServiceOption {
	return func(s *ClaimService) {
		if d > 0 {
			s.counterGrace = d
		}
	}
}

// WithMaxRounds overrides the commission negotiation round cap.
func WithMaxRounds(n int) ClaimServiceOption {
	return func(s *ClaimService) {
		if n > 0 {
			s.maxRounds = n
		}
	}
}

func WithClaimLogger(l *log.Logger) ClaimServiceOption {
	return func(s *ClaimService) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewClaimService(claims ClaimRepository, holds HoldEnforcer, outbox OutboxEnqueuer, clk clock.Clock, opts ...ClaimServiceOption) *ClaimService {
	svc := &ClaimService{
		claims:       claims,
		holds:        holds,
		outbox:       outbox,
		clock:        clk,
		logger:       log.Default(),
		responseTTL:  defaultResponseTTL,
		counterGrace: defaultCounterGrace,
		holdGrace:    defaultHoldGrace,
		maxRounds:    domain.DefaultMaxRounds,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type FileClaimInput struct {
	Booking        domain.Booking
	Kind           domain.ClaimKind
	FiledBy        domain.PartyRole
	Type           domain.ClaimType
	IncidentAt     time.Time
	EstimatedCost  decimal.Decimal
	Description    string
	HostDocs       domain.InsuranceDocs
	IdempotencyKey string
}

func (in FileClaimInput) validate() error {
	if in.IdempotencyKey == "" {
		return domain.ErrIdempotencyKeyRequired
	}
	if in.Booking.ID == "" || in.Booking.VehicleID == "" || in.Booking.GuestID == "" || in.Booking.HostID == "" {
		return domain.ErrInvalidClaimInput
	}
	if in.FiledBy != domain.PartyGuest && in.FiledBy != domain.PartyHost {
		return domain.ErrInvalidClaimInput
	}
	if in.Kind != domain.ClaimKindIncident && in.Kind != domain.ClaimKindCommission {
		return domain.ErrInvalidClaimInput
	}
	if !domain.ValidClaimType(in.Type) {
		return domain.ErrInvalidClaimInput
	}
	if in.IncidentAt.IsZero() {
		return domain.ErrInvalidClaimInput
	}
	if in.EstimatedCost.IsNegative() {
		return domain.ErrInvalidAmount
	}
	if in.Kind == domain.ClaimKindIncident && in.Description == "" {
		return domain.ErrInvalidClaimInput
	}
	return nil
}

// FileClaim creates a claim, stamps the tier and payer hierarchy onto it,
// applies the counterparty hold and enqueues both notification intents in
// one transaction. Validation failures reject synchronously; nothing is
// partially persisted. Replaying the same (booking, filer, key) returns
// the existing claim.
func (s *ClaimService) FileClaim(ctx context.Context, in FileClaimInput) (domain.Claim, error) {
	if err := in.validate(); err != nil {
		return domain.Claim{}, err
	}

	now := s.clock.Now()
	tier := domain.ResolveTier(in.HostDocs)
	hierarchy := domain.BuildHierarchy(tier, in.Booking.HostPolicyID, in.Booking.GuestPolicyID)

	var result domain.Claim
	err := s.claims.WithTx(ctx, func(txCtx context.Context) error {
		existing, err := s.claims.FindClaimByIdempotencyKey(txCtx, in.Booking.ID, in.FiledBy, in.IdempotencyKey)
		if err != nil {
			return err
		}
		if existing != nil {
			if existing.Type != in.Type {
				return domain.ErrIdempotencyConflict
			}
			result = *existing
			return nil
		}

		claim := domain.Claim{
			ID:             newID(),
			BookingID:      in.Booking.ID,
			VehicleID:      in.Booking.VehicleID,
			GuestID:        in.Booking.GuestID,
			HostID:         in.Booking.HostID,
			GuestEmail:     in.Booking.GuestEmail,
			HostEmail:      in.Booking.HostEmail,
			Kind:           in.Kind,
			FiledBy:        in.FiledBy,
			Type:           in.Type,
			IncidentAt:     in.IncidentAt,
			EstimatedCost:  in.EstimatedCost,
			Description:    in.Description,
			State:          domain.ClaimFiled,
			MaxRounds:      s.maxRounds,
			Tier:           tier,
			Hierarchy:      hierarchy,
			IdempotencyKey: in.IdempotencyKey,
			CreatedAt:      now,
			UpdatedAt:      now,
			Version:        1,
		}
		if err := claim.StartResponseWindow(now, s.responseTTL); err != nil {
			return err
		}

		if err := s.claims.CreateClaim(txCtx, claim); err != nil {
			// Re-read on conflict to keep idempotent retries consistent under concurrency.
			if errors.Is(err, domain.ErrIdempotencyConflict) {
				existing, err := s.claims.FindClaimByIdempotencyKey(txCtx, in.Booking.ID, in.FiledBy, in.IdempotencyKey)
				if err != nil {
					return err
				}
				if existing != nil {
					if existing.Type != in.Type {
						return domain.ErrIdempotencyConflict
					}
					result = *existing
					return nil
				}
			}
			return err
		}

		hold, created, err := s.holds.Apply(txCtx, claim.CounterpartyAccountID(), claim.ID, holdReason(&claim), claim.ResponseDeadline.Add(s.holdGrace))
		if err != nil {
			return err
		}

		filed, err := domain.NewClaimFiledPayload(&claim)
		if err != nil {
			return err
		}
		if err := s.enqueue(txCtx, now, claim.EmailFor(claim.FiledBy), domain.TemplateClaimFiledConfirmation, filed); err != nil {
			return err
		}
		if err := s.enqueue(txCtx, now, claim.EmailFor(claim.Counterparty()), domain.TemplateClaimActionRequired, filed); err != nil {
			return err
		}
		if created {
			applied, err := domain.NewHoldAppliedPayload(hold, claim.ResponseDeadline)
			if err != nil {
				return err
			}
			if err := s.enqueue(txCtx, now, claim.EmailFor(claim.Counterparty()), domain.TemplateAccountHoldApplied, applied); err != nil {
				return err
			}
		}

		result = claim
		return nil
	})
	if err != nil {
		return domain.Claim{}, err
	}
	return result, nil
}

type RespondInput struct {
	ClaimID string
}

// Respond records the counterparty's submission and lifts their hold.
// Replays against an already-responded claim are successful no-ops.
func (s *ClaimService) Respond(ctx context.Context, in RespondInput) (domain.Claim, error) {
	now := s.clock.Now()
	claim, changed, err := s.transition(ctx, in.ClaimID, func(c *domain.Claim) (bool, error) {
		return c.Respond(now)
	})
	if err != nil {
		return domain.Claim{}, err
	}
	if changed {
		s.liftHold(ctx, &claim, now)
	}
	return claim, nil
}

type CounterOfferInput struct {
	ClaimID string
	By      domain.PartyRole
	Note    string
}

// CounterOffer advances a commission negotiation one round and notifies
// the other party with the extended deadline.
func (s *ClaimService) CounterOffer(ctx context.Context, in CounterOfferInput) (domain.Claim, error) {
	if in.By != domain.PartyGuest && in.By != domain.PartyHost {
		return domain.Claim{}, domain.ErrInvalidClaimInput
	}
	now := s.clock.Now()
	claim, changed, err := s.transition(ctx, in.ClaimID, func(c *domain.Claim) (bool, error) {
		return c.CounterOffer(now, s.counterGrace)
	})
	if err != nil {
		return domain.Claim{}, err
	}
	if changed {
		payload, err := domain.NewCounterOfferPayload(&claim, in.Note)
		if err != nil {
			return domain.Claim{}, err
		}
		recipient := claim.GuestEmail
		if in.By == domain.PartyGuest {
			recipient = claim.HostEmail
		}
		if err := s.enqueue(ctx, now, recipient, domain.TemplateCounterOfferMade, payload); err != nil {
			s.logger.Printf("WARN: enqueue counter-offer notification for claim %s: %v", claim.ID, err)
		}
	}
	return claim, nil
}

// AcceptOffer closes a commission negotiation with agreement.
func (s *ClaimService) AcceptOffer(ctx context.Context, claimID string) (domain.Claim, error) {
	return s.closeNegotiation(ctx, claimID, domain.OutcomeAccepted)
}

// DeclineOffer closes a commission negotiation with rejection.
func (s *ClaimService) DeclineOffer(ctx context.Context, claimID string) (domain.Claim, error) {
	return s.closeNegotiation(ctx, claimID, domain.OutcomeDeclined)
}

func (s *ClaimService) closeNegotiation(ctx context.Context, claimID string, outcome domain.ClaimOutcome) (domain.Claim, error) {
	now := s.clock.Now()
	claim, changed, err := s.transition(ctx, claimID, func(c *domain.Claim) (bool, error) {
		if outcome == domain.OutcomeAccepted {
			return c.AcceptOffer(now)
		}
		return c.DeclineOffer(now)
	})
	if err != nil {
		return domain.Claim{}, err
	}
	if changed {
		s.liftHold(ctx, &claim, now)
		s.notifyResolved(ctx, &claim, now)
	}
	return claim, nil
}

// BeginReview moves a responded or expired claim into manual review.
func (s *ClaimService) BeginReview(ctx context.Context, claimID string) (domain.Claim, error) {
	now := s.clock.Now()
	claim, _, err := s.transition(ctx, claimID, func(c *domain.Claim) (bool, error) {
		return c.BeginReview(now)
	})
	if err != nil {
		return domain.Claim{}, err
	}
	return claim, nil
}

type ResolveInput struct {
	ClaimID      string
	Outcome      domain.ClaimOutcome
	PayoutAmount decimal.Decimal
}

// Resolve closes a reviewed claim. The committed transition then lifts
// the counterparty hold and enqueues resolution notifications; for an
// approved or settled claim with a payout, a payout confirmation goes to
// the filer.
func (s *ClaimService) Resolve(ctx context.Context, in ResolveInput) (domain.Claim, error) {
	if in.PayoutAmount.IsNegative() {
		return domain.Claim{}, domain.ErrInvalidAmount
	}
	now := s.clock.Now()
	claim, changed, err := s.transition(ctx, in.ClaimID, func(c *domain.Claim) (bool, error) {
		return c.Resolve(now, in.Outcome)
	})
	if err != nil {
		return domain.Claim{}, err
	}
	if !changed {
		return claim, nil
	}

	s.liftHold(ctx, &claim, now)
	s.notifyResolved(ctx, &claim, now)

	if (in.Outcome == domain.OutcomeApproved || in.Outcome == domain.OutcomeSettled) && in.PayoutAmount.IsPositive() {
		payout := domain.PayoutConfirmationPayload{
			ClaimID:   claim.ID,
			BookingID: claim.BookingID,
			Amount:    in.PayoutAmount.StringFixed(2),
			Outcome:   string(claim.Outcome),
		}
		if err := s.enqueue(ctx, now, claim.EmailFor(claim.FiledBy), domain.TemplatePayoutConfirmation, payout); err != nil {
			s.logger.Printf("WARN: enqueue payout confirmation for claim %s: %v", claim.ID, err)
		}
	}
	return claim, nil
}

// ExpireClaim drives the deadline-elapsed transition for one claim. A
// concurrent response or competing sweep that wins the version race turns
// this call into a no-op, never an error. The hold stays in place.
func (s *ClaimService) ExpireClaim(ctx context.Context, claimID string) (bool, error) {
	now := s.clock.Now()
	claim, changed, err := s.transition(ctx, claimID, func(c *domain.Claim) (bool, error) {
		return c.Expire(now)
	})
	if errors.Is(err, domain.ErrDeadlineNotReached) || errors.Is(err, domain.ErrInvalidTransition) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if changed && claim.State == domain.ClaimResolved {
		// Final negotiation round lapsed into rounds_exhausted.
		s.liftHold(ctx, &claim, now)
		s.notifyResolved(ctx, &claim, now)
	}
	return changed, nil
}

// DueClaimIDs lists claims whose response window has elapsed.
func (s *ClaimService) DueClaimIDs(ctx context.Context, now time.Time, limit int) ([]string, error) {
	return s.claims.DueClaimIDs(ctx, now, limit)
}

// ClaimStatus is the caller-facing view of a claim: the current state,
// the exact remaining response time and the single action that lifts an
// active hold.
type ClaimStatus struct {
	Claim          domain.Claim
	Remaining      time.Duration
	RequiredAction string
}

func (s *ClaimService) GetClaim(ctx context.Context, claimID string) (ClaimStatus, error) {
	claim, err := s.claims.GetClaim(ctx, claimID)
	if err != nil {
		return ClaimStatus{}, err
	}
	now := s.clock.Now()
	status := ClaimStatus{Claim: claim, Remaining: claim.RemainingResponse(now)}
	if status.Remaining > 0 {
		status.RequiredAction = "respond"
	}
	return status, nil
}

// transition loads the claim, applies the domain transition and saves it
// with a version check, retrying on conflict. Once the claim reaches a
// state where the transition is an already-satisfied no-op the loop stops
// with changed=false.
func (s *ClaimService) transition(ctx context.Context, claimID string, apply func(*domain.Claim) (bool, error)) (domain.Claim, bool, error) {
	var lastErr error
	for attempt := 0; attempt < transitionAttempts; attempt++ {
		claim, err := s.claims.GetClaim(ctx, claimID)
		if err != nil {
			return domain.Claim{}, false, err
		}
		changed, err := apply(&claim)
		if err != nil {
			return claim, false, err
		}
		if !changed {
			return claim, false, nil
		}
		if err := s.claims.UpdateClaim(ctx, claim, claim.Version); err != nil {
			if errors.Is(err, domain.ErrVersionConflict) {
				lastErr = err
				continue
			}
			return domain.Claim{}, false, err
		}
		claim.Version++
		return claim, true, nil
	}
	return domain.Claim{}, false, lastErr
}

func (s *ClaimService) liftHold(ctx context.Context, claim *domain.Claim, now time.Time) {
	lifted, err := s.holds.Lift(ctx, claim.CounterpartyAccountID(), claim.ID, domain.LiftedBySystem)
	if err != nil {
		s.logger.Printf("WARN: lift hold for claim %s: %v", claim.ID, err)
		return
	}
	if !lifted {
		return
	}
	payload := domain.HoldLiftedPayload{
		ClaimID:   claim.ID,
		AccountID: claim.CounterpartyAccountID(),
		LiftedBy:  string(domain.LiftedBySystem),
		LiftedAt:  now.Format(time.RFC3339),
	}
	if err := s.enqueue(ctx, now, claim.EmailFor(claim.Counterparty()), domain.TemplateAccountHoldLifted, payload); err != nil {
		s.logger.Printf("WARN: enqueue hold-lifted notification for claim %s: %v", claim.ID, err)
	}
}

func (s *ClaimService) notifyResolved(ctx context.Context, claim *domain.Claim, now time.Time) {
	payload, err := domain.NewClaimResolvedPayload(claim)
	if err != nil {
		s.logger.Printf("WARN: build resolved payload for claim %s: %v", claim.ID, err)
		return
	}
	for _, role := range []domain.PartyRole{domain.PartyGuest, domain.PartyHost} {
		if err := s.enqueue(ctx, now, claim.EmailFor(role), domain.TemplateClaimResolved, payload); err != nil {
			s.logger.Printf("WARN: enqueue resolved notification for claim %s: %v", claim.ID, err)
		}
	}
}

func (s *ClaimService) enqueue(ctx context.Context, now time.Time, recipient string, kind domain.TemplateKind, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return s.outbox.Enqueue(ctx, domain.OutboxMessage{
		ID:        newOutboxID(now),
		Recipient: recipient,
		Kind:      kind,
		Payload:   body,
		CreatedAt: now,
	})
}

func holdReason(c *domain.Claim) string {
	return fmt.Sprintf("open claim %s (%s)", c.ID, c.Type)
}
