package domain

import (
	"testing"
	"time"
)

func newTestClaim(kind ClaimKind) *Claim {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	return &Claim{
		ID:         "claim-1",
		BookingID:  "booking-1",
		VehicleID:  "vehicle-1",
		GuestID:    "guest-1",
		HostID:     "host-1",
		GuestEmail: "guest@example.com",
		HostEmail:  "host@example.com",
		Kind:       kind,
		FiledBy:    PartyHost,
		Type:       ClaimTypeDamage,
		State:      ClaimFiled,
		MaxRounds:  DefaultMaxRounds,
		CreatedAt:  now,
		UpdatedAt:  now,
		Version:    1,
	}
}

func TestClaimResponseWindow(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	ttl := 48 * time.Hour

	t.Run("starts with a future deadline", func(t *testing.T) {
		t.Parallel()
		c := newTestClaim(ClaimKindIncident)
		if err := c.StartResponseWindow(now, ttl); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if c.State != ClaimAwaitingResponse {
			t.Fatalf("expected awaiting_response, got %s", c.State)
		}
		if !c.ResponseDeadline.After(now) {
			t.Fatalf("expected deadline after now, got %v", c.ResponseDeadline)
		}
		if c.RemainingResponse(now) != ttl {
			t.Fatalf("expected remaining %v, got %v", ttl, c.RemainingResponse(now))
		}
	})

	t.Run("cannot start twice", func(t *testing.T) {
		t.Parallel()
		c := newTestClaim(ClaimKindIncident)
		if err := c.StartResponseWindow(now, ttl); err != nil {
			t.Fatalf("first start: %v", err)
		}
		if err := c.StartResponseWindow(now, ttl); err != ErrInvalidTransition {
			t.Fatalf("expected ErrInvalidTransition, got %v", err)
		}
	})

	t.Run("rejects non-positive ttl", func(t *testing.T) {
		t.Parallel()
		c := newTestClaim(ClaimKindIncident)
		if err := c.StartResponseWindow(now, 0); err != ErrInvalidTransition {
			t.Fatalf("expected ErrInvalidTransition, got %v", err)
		}
	})

	t.Run("remaining clips at zero after the deadline", func(t *testing.T) {
		t.Parallel()
		c := newTestClaim(ClaimKindIncident)
		if err := c.StartResponseWindow(now, ttl); err != nil {
			t.Fatalf("start: %v", err)
		}
		if got := c.RemainingResponse(now.Add(ttl + time.Hour)); got != 0 {
			t.Fatalf("expected zero remaining, got %v", got)
		}
	})
}

func TestClaimRespond(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	t.Run("records response while window open", func(t *testing.T) {
		t.Parallel()
		c := newTestClaim(ClaimKindIncident)
		if err := c.StartResponseWindow(now, 48*time.Hour); err != nil {
			t.Fatalf("start: %v", err)
		}
		changed, err := c.Respond(now.Add(time.Hour))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !changed {
			t.Fatalf("expected state change")
		}
		if c.State != ClaimResponded {
			t.Fatalf("expected responded, got %s", c.State)
		}
	})

	t.Run("repeat response is a no-op", func(t *testing.T) {
		t.Parallel()
		c := newTestClaim(ClaimKindIncident)
		if err := c.StartResponseWindow(now, 48*time.Hour); err != nil {
			t.Fatalf("start: %v", err)
		}
		if _, err := c.Respond(now); err != nil {
			t.Fatalf("first respond: %v", err)
		}
		changed, err := c.Respond(now.Add(time.Minute))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if changed {
			t.Fatalf("expected no-op on repeat response")
		}
	})

	t.Run("rejected after expiry", func(t *testing.T) {
		t.Parallel()
		c := newTestClaim(ClaimKindIncident)
		if err := c.StartResponseWindow(now, time.Hour); err != nil {
			t.Fatalf("start: %v", err)
		}
		if _, err := c.Expire(now.Add(2 * time.Hour)); err != nil {
			t.Fatalf("expire: %v", err)
		}
		if _, err := c.Respond(now.Add(3 * time.Hour)); err != ErrDeadlinePassed {
			t.Fatalf("expected ErrDeadlinePassed, got %v", err)
		}
	})
}

func TestClaimCounterOffer(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	grace := 72 * time.Hour

	start := func(t *testing.T, kind ClaimKind) *Claim {
		t.Helper()
		c := newTestClaim(kind)
		c.Type = ClaimTypeCommissionTerms
		if err := c.StartResponseWindow(now, 48*time.Hour); err != nil {
			t.Fatalf("start: %v", err)
		}
		return c
	}

	t.Run("extends the deadline instead of resetting it", func(t *testing.T) {
		t.Parallel()
		c := start(t, ClaimKindCommission)
		before := c.ResponseDeadline
		changed, err := c.CounterOffer(now.Add(time.Hour), grace)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !changed {
			t.Fatalf("expected state change")
		}
		if c.Round != 1 {
			t.Fatalf("expected round 1, got %d", c.Round)
		}
		if !c.ResponseDeadline.Equal(before.Add(grace)) {
			t.Fatalf("expected deadline %v, got %v", before.Add(grace), c.ResponseDeadline)
		}
	})

	t.Run("counter at the round cap is rejected", func(t *testing.T) {
		t.Parallel()
		c := start(t, ClaimKindCommission)
		for i := 0; i < DefaultMaxRounds; i++ {
			if _, err := c.CounterOffer(now, grace); err != nil {
				t.Fatalf("round %d: %v", i+1, err)
			}
		}
		if _, err := c.CounterOffer(now, grace); err != ErrRoundsExhausted {
			t.Fatalf("expected ErrRoundsExhausted, got %v", err)
		}
		// accept still works at the cap
		changed, err := c.AcceptOffer(now)
		if err != nil {
			t.Fatalf("accept at cap: %v", err)
		}
		if !changed || c.State != ClaimResolved || c.Outcome != OutcomeAccepted {
			t.Fatalf("expected resolved accepted, got %s/%s", c.State, c.Outcome)
		}
	})

	t.Run("incident claims are not negotiable", func(t *testing.T) {
		t.Parallel()
		c := start(t, ClaimKindIncident)
		if _, err := c.CounterOffer(now, grace); err != ErrNotNegotiable {
			t.Fatalf("expected ErrNotNegotiable, got %v", err)
		}
		if _, err := c.AcceptOffer(now); err != ErrNotNegotiable {
			t.Fatalf("expected ErrNotNegotiable, got %v", err)
		}
	})

	t.Run("decline replay with same outcome is a no-op", func(t *testing.T) {
		t.Parallel()
		c := start(t, ClaimKindCommission)
		if _, err := c.DeclineOffer(now); err != nil {
			t.Fatalf("decline: %v", err)
		}
		changed, err := c.DeclineOffer(now.Add(time.Minute))
		if err != nil {
			t.Fatalf("expected no error on replay, got %v", err)
		}
		if changed {
			t.Fatalf("expected no-op on replay")
		}
		if _, err := c.AcceptOffer(now.Add(time.Minute)); err != ErrClaimClosed {
			t.Fatalf("expected ErrClaimClosed for conflicting close, got %v", err)
		}
	})
}

func TestClaimExpire(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	t.Run("unanswered claim flags manual review", func(t *testing.T) {
		t.Parallel()
		c := newTestClaim(ClaimKindIncident)
		if err := c.StartResponseWindow(now, time.Hour); err != nil {
			t.Fatalf("start: %v", err)
		}
		changed, err := c.Expire(now.Add(time.Hour))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !changed {
			t.Fatalf("expected state change")
		}
		if c.State != ClaimResponseExpired {
			t.Fatalf("expected response_expired, got %s", c.State)
		}
		if !c.NeedsManualReview {
			t.Fatalf("expected manual review flag")
		}
	})

	t.Run("before the deadline is refused", func(t *testing.T) {
		t.Parallel()
		c := newTestClaim(ClaimKindIncident)
		if err := c.StartResponseWindow(now, time.Hour); err != nil {
			t.Fatalf("start: %v", err)
		}
		if _, err := c.Expire(now.Add(time.Minute)); err != ErrDeadlineNotReached {
			t.Fatalf("expected ErrDeadlineNotReached, got %v", err)
		}
	})

	t.Run("re-expiry is a no-op", func(t *testing.T) {
		t.Parallel()
		c := newTestClaim(ClaimKindIncident)
		if err := c.StartResponseWindow(now, time.Hour); err != nil {
			t.Fatalf("start: %v", err)
		}
		if _, err := c.Expire(now.Add(2 * time.Hour)); err != nil {
			t.Fatalf("first expire: %v", err)
		}
		changed, err := c.Expire(now.Add(3 * time.Hour))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if changed {
			t.Fatalf("expected no-op on second expire")
		}
	})

	t.Run("final-round lapse resolves as rounds exhausted", func(t *testing.T) {
		t.Parallel()
		c := newTestClaim(ClaimKindCommission)
		c.Type = ClaimTypeCommissionTerms
		if err := c.StartResponseWindow(now, time.Hour); err != nil {
			t.Fatalf("start: %v", err)
		}
		for i := 0; i < DefaultMaxRounds; i++ {
			if _, err := c.CounterOffer(now, time.Hour); err != nil {
				t.Fatalf("round %d: %v", i+1, err)
			}
		}
		changed, err := c.Expire(c.ResponseDeadline.Add(time.Minute))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !changed {
			t.Fatalf("expected state change")
		}
		if c.State != ClaimResolved || c.Outcome != OutcomeRoundsExhausted {
			t.Fatalf("expected resolved rounds_exhausted, got %s/%s", c.State, c.Outcome)
		}
		if c.ResolvedAt == nil {
			t.Fatalf("expected resolved_at set")
		}
	})

	t.Run("mid-negotiation lapse expires normally", func(t *testing.T) {
		t.Parallel()
		c := newTestClaim(ClaimKindCommission)
		c.Type = ClaimTypeCommissionTerms
		if err := c.StartResponseWindow(now, time.Hour); err != nil {
			t.Fatalf("start: %v", err)
		}
		if _, err := c.CounterOffer(now, time.Hour); err != nil {
			t.Fatalf("counter: %v", err)
		}
		if _, err := c.Expire(c.ResponseDeadline.Add(time.Minute)); err != nil {
			t.Fatalf("expire: %v", err)
		}
		if c.State != ClaimResponseExpired {
			t.Fatalf("expected response_expired, got %s", c.State)
		}
	})
}

func TestClaimReviewAndResolve(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	reviewed := func(t *testing.T) *Claim {
		t.Helper()
		c := newTestClaim(ClaimKindIncident)
		if err := c.StartResponseWindow(now, time.Hour); err != nil {
			t.Fatalf("start: %v", err)
		}
		if _, err := c.Respond(now); err != nil {
			t.Fatalf("respond: %v", err)
		}
		if _, err := c.BeginReview(now); err != nil {
			t.Fatalf("review: %v", err)
		}
		return c
	}

	t.Run("review from responded and expired states", func(t *testing.T) {
		t.Parallel()
		c := newTestClaim(ClaimKindIncident)
		if err := c.StartResponseWindow(now, time.Hour); err != nil {
			t.Fatalf("start: %v", err)
		}
		if _, err := c.Expire(now.Add(2 * time.Hour)); err != nil {
			t.Fatalf("expire: %v", err)
		}
		changed, err := c.BeginReview(now.Add(3 * time.Hour))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !changed || c.State != ClaimUnderReview {
			t.Fatalf("expected under_review, got %s", c.State)
		}
		// expired claims stay respondable only through review
		if changed, err := c.BeginReview(now.Add(4 * time.Hour)); err != nil || changed {
			t.Fatalf("expected no-op repeat review, got changed=%v err=%v", changed, err)
		}
	})

	t.Run("resolve accepts one terminal outcome", func(t *testing.T) {
		t.Parallel()
		c := reviewed(t)
		changed, err := c.Resolve(now, OutcomeApproved)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !changed || c.State != ClaimResolved || c.Outcome != OutcomeApproved {
			t.Fatalf("expected resolved approved, got %s/%s", c.State, c.Outcome)
		}
	})

	t.Run("same-outcome replay is a no-op", func(t *testing.T) {
		t.Parallel()
		c := reviewed(t)
		if _, err := c.Resolve(now, OutcomeDenied); err != nil {
			t.Fatalf("resolve: %v", err)
		}
		changed, err := c.Resolve(now.Add(time.Minute), OutcomeDenied)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if changed {
			t.Fatalf("expected no-op replay")
		}
	})

	t.Run("conflicting outcome is rejected", func(t *testing.T) {
		t.Parallel()
		c := reviewed(t)
		if _, err := c.Resolve(now, OutcomeSettled); err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if _, err := c.Resolve(now, OutcomeApproved); err != ErrClaimClosed {
			t.Fatalf("expected ErrClaimClosed, got %v", err)
		}
	})

	t.Run("negotiation outcomes are not valid review outcomes", func(t *testing.T) {
		t.Parallel()
		c := reviewed(t)
		if _, err := c.Resolve(now, OutcomeAccepted); err != ErrInvalidTransition {
			t.Fatalf("expected ErrInvalidTransition, got %v", err)
		}
	})

	t.Run("resolve outside review is rejected", func(t *testing.T) {
		t.Parallel()
		c := newTestClaim(ClaimKindIncident)
		if err := c.StartResponseWindow(now, time.Hour); err != nil {
			t.Fatalf("start: %v", err)
		}
		if _, err := c.Resolve(now, OutcomeApproved); err != ErrInvalidTransition {
			t.Fatalf("expected ErrInvalidTransition, got %v", err)
		}
	})
}

func TestClaimParties(t *testing.T) {
	t.Parallel()

	c := newTestClaim(ClaimKindIncident)
	if c.Counterparty() != PartyGuest {
		t.Fatalf("expected guest counterparty, got %s", c.Counterparty())
	}
	if c.CounterpartyAccountID() != "guest-1" {
		t.Fatalf("expected guest-1, got %s", c.CounterpartyAccountID())
	}
	if c.FilerAccountID() != "host-1" {
		t.Fatalf("expected host-1, got %s", c.FilerAccountID())
	}
	if c.EmailFor(PartyGuest) != "guest@example.com" {
		t.Fatalf("unexpected guest email %s", c.EmailFor(PartyGuest))
	}

	c.FiledBy = PartyGuest
	if c.Counterparty() != PartyHost {
		t.Fatalf("expected host counterparty, got %s", c.Counterparty())
	}
	if c.CounterpartyAccountID() != "host-1" {
		t.Fatalf("expected host-1, got %s", c.CounterpartyAccountID())
	}
}
