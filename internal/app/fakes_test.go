package app

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/itwhiprentals/claims-service/internal/domain"
)

// fakeClaimRepo is an in-memory ClaimRepository with the same uniqueness
// and version-check semantics as the Postgres implementation.
type fakeClaimRepo struct {
	claims map[string]domain.Claim
	// updateConflicts fails that many UpdateClaim calls with a version
	// conflict before letting one through.
	updateConflicts int
}

func newFakeClaimRepo() *fakeClaimRepo {
	return &fakeClaimRepo{claims: make(map[string]domain.Claim)}
}

func (f *fakeClaimRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (f *fakeClaimRepo) CreateClaim(_ context.Context, claim domain.Claim) error {
	for _, c := range f.claims {
		if c.BookingID == claim.BookingID && c.FiledBy == claim.FiledBy && c.IdempotencyKey == claim.IdempotencyKey {
			return domain.ErrIdempotencyConflict
		}
	}
	f.claims[claim.ID] = claim
	return nil
}

func (f *fakeClaimRepo) GetClaim(_ context.Context, id string) (domain.Claim, error) {
	c, ok := f.claims[id]
	if !ok {
		return domain.Claim{}, domain.ErrClaimNotFound
	}
	return c, nil
}

func (f *fakeClaimRepo) FindClaimByIdempotencyKey(_ context.Context, bookingID string, filedBy domain.PartyRole, key string) (*domain.Claim, error) {
	for _, c := range f.claims {
		if c.BookingID == bookingID && c.FiledBy == filedBy && c.IdempotencyKey == key {
			cc := c
			return &cc, nil
		}
	}
	return nil, nil
}

func (f *fakeClaimRepo) UpdateClaim(_ context.Context, claim domain.Claim, expectedVersion int64) error {
	stored, ok := f.claims[claim.ID]
	if !ok {
		return domain.ErrClaimNotFound
	}
	if f.updateConflicts > 0 {
		f.updateConflicts--
		return domain.ErrVersionConflict
	}
	if stored.Version != expectedVersion {
		return domain.ErrVersionConflict
	}
	claim.Version = expectedVersion + 1
	f.claims[claim.ID] = claim
	return nil
}

func (f *fakeClaimRepo) DueClaimIDs(_ context.Context, now time.Time, limit int) ([]string, error) {
	var ids []string
	for id, c := range f.claims {
		if c.State != domain.ClaimAwaitingResponse && c.State != domain.ClaimCounterOffered {
			continue
		}
		if c.ResponseDeadline.After(now) {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

// fakeEnforcer records hold applications and lifts.
type fakeEnforcer struct {
	applied []appliedHold
	lifted  []liftedHold
	active  map[string]bool
}

type appliedHold struct {
	accountID string
	claimID   string
	reason    string
	expiresAt time.Time
}

type liftedHold struct {
	accountID string
	claimID   string
	by        domain.LiftActor
}

func newFakeEnforcer() *fakeEnforcer {
	return &fakeEnforcer{active: make(map[string]bool)}
}

func (f *fakeEnforcer) Apply(_ context.Context, accountID, claimID, reason string, expiresAt time.Time) (domain.AccountHold, bool, error) {
	key := accountID + "|" + claimID
	if f.active[key] {
		return domain.AccountHold{AccountID: accountID, ClaimID: claimID, Reason: reason}, false, nil
	}
	f.active[key] = true
	f.applied = append(f.applied, appliedHold{accountID, claimID, reason, expiresAt})
	return domain.AccountHold{ID: "hold-" + claimID, AccountID: accountID, ClaimID: claimID, Reason: reason, ExpiresAt: expiresAt}, true, nil
}

func (f *fakeEnforcer) Lift(_ context.Context, accountID, claimID string, by domain.LiftActor) (bool, error) {
	key := accountID + "|" + claimID
	if !f.active[key] {
		return false, nil
	}
	f.active[key] = false
	f.lifted = append(f.lifted, liftedHold{accountID, claimID, by})
	return true, nil
}

// fakeOutbox is an in-memory OutboxRepository usable both as the enqueue
// sink of the services and as the dispatcher's source.
type fakeOutbox struct {
	msgs       []domain.OutboxMessage
	enqueueErr error
}

func (f *fakeOutbox) Enqueue(_ context.Context, msg domain.OutboxMessage) error {
	if f.enqueueErr != nil {
		return f.enqueueErr
	}
	f.msgs = append(f.msgs, msg)
	return nil
}

func (f *fakeOutbox) ListPending(_ context.Context, limit int) ([]domain.OutboxMessage, error) {
	var pending []domain.OutboxMessage
	for _, m := range f.msgs {
		if m.SentAt == nil {
			pending = append(pending, m)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].ID < pending[j].ID })
	if len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (f *fakeOutbox) MarkSent(_ context.Context, id string, sentAt time.Time) error {
	for i := range f.msgs {
		if f.msgs[i].ID == id && f.msgs[i].SentAt == nil {
			t := sentAt
			f.msgs[i].SentAt = &t
		}
	}
	return nil
}

func (f *fakeOutbox) MarkAttempted(_ context.Context, id string) error {
	for i := range f.msgs {
		if f.msgs[i].ID == id {
			f.msgs[i].Attempts++
		}
	}
	return nil
}

func (f *fakeOutbox) kinds() []domain.TemplateKind {
	out := make([]domain.TemplateKind, 0, len(f.msgs))
	for _, m := range f.msgs {
		out = append(out, m.Kind)
	}
	return out
}

func (f *fakeOutbox) countKind(kind domain.TemplateKind) int {
	n := 0
	for _, m := range f.msgs {
		if m.Kind == kind {
			n++
		}
	}
	return n
}

// fakeNotifier records sends and can fail specific recipients.
type fakeNotifier struct {
	sent    []sentMessage
	failFor map[string]error
}

type sentMessage struct {
	recipient string
	kind      domain.TemplateKind
	payload   json.RawMessage
}

func (f *fakeNotifier) Send(_ context.Context, recipient string, kind domain.TemplateKind, payload json.RawMessage) error {
	if err, ok := f.failFor[recipient]; ok {
		return err
	}
	f.sent = append(f.sent, sentMessage{recipient, kind, payload})
	return nil
}

// fakePrefs answers unsubscribe lookups from a fixed table, or fails.
type fakePrefs struct {
	unsubscribed map[string]bool
	err          error
}

func (f *fakePrefs) IsUnsubscribed(_ context.Context, recipient string, _ domain.TemplateKind) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.unsubscribed[recipient], nil
}
