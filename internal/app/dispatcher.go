package app

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/itwhiprentals/claims-service/internal/clock"
	"github.com/itwhiprentals/claims-service/internal/domain"
)

// Notifier renders and sends one templated message. Implementations live
// outside the core; payloads are structured data, never markup.
type Notifier interface {
	Send(ctx context.Context, recipient string, kind domain.TemplateKind, payload json.RawMessage) error
}

// PreferenceLookup answers whether a recipient opted out of a template
// kind. Lookups can fail; the dispatch policy below decides what happens
// then, per kind, as data rather than a buried catch block.
type PreferenceLookup interface {
	IsUnsubscribed(ctx context.Context, recipient string, kind domain.TemplateKind) (bool, error)
}

// OutboxRepository reads and settles pending notification intents.
type OutboxRepository interface {
	Enqueue(ctx context.Context, msg domain.OutboxMessage) error
	ListPending(ctx context.Context, limit int) ([]domain.OutboxMessage, error)
	MarkSent(ctx context.Context, id string, sentAt time.Time) error
	MarkAttempted(ctx context.Context, id string) error
}

const defaultDispatchBatch = 50

// OutboxDispatcher delivers committed notification intents best-effort.
// Lifecycle transitions never wait on it and never roll back because of
// it; failed sends stay queued with an incremented attempt count.
type OutboxDispatcher struct {
	outbox   OutboxRepository
	notifier Notifier
	prefs    PreferenceLookup
	clock    clock.Clock
	logger   *log.Logger
	batch    int
}

func NewOutboxDispatcher(outbox OutboxRepository, notifier Notifier, prefs PreferenceLookup, clk clock.Clock, logger *log.Logger) *OutboxDispatcher {
	if logger == nil {
		logger = log.Default()
	}
	return &OutboxDispatcher{
		outbox:   outbox,
		notifier: notifier,
		prefs:    prefs,
		clock:    clk,
		logger:   logger,
		batch:    defaultDispatchBatch,
	}
}

// DispatchOnce processes pending messages in creation (ULID) order and
// returns how many were settled.
func (d *OutboxDispatcher) DispatchOnce(ctx context.Context) (int, error) {
	msgs, err := d.outbox.ListPending(ctx, d.batch)
	if err != nil {
		return 0, err
	}

	settled := 0
	now := d.clock.Now()
	for _, msg := range msgs {
		if d.skip(ctx, msg) {
			// Opt-outs settle as sent so they are not retried forever.
			if err := d.outbox.MarkSent(ctx, msg.ID, now); err != nil {
				d.logger.Printf("WARN: settle skipped notification %s: %v", msg.ID, err)
				continue
			}
			settled++
			continue
		}

		if err := d.notifier.Send(ctx, msg.Recipient, msg.Kind, msg.Payload); err != nil {
			d.logger.Printf("WARN: send %s notification %s: %v", msg.Kind, msg.ID, err)
			if err := d.outbox.MarkAttempted(ctx, msg.ID); err != nil {
				d.logger.Printf("WARN: record attempt for notification %s: %v", msg.ID, err)
			}
			continue
		}
		if err := d.outbox.MarkSent(ctx, msg.ID, now); err != nil {
			d.logger.Printf("WARN: mark notification %s sent: %v", msg.ID, err)
			continue
		}
		settled++
	}
	return settled, nil
}

// skip consults the unsubscribe preference. Transactional kinds fail open
// on lookup errors because they carry deadline and money information the
// recipient must see; courtesy kinds fail closed.
func (d *OutboxDispatcher) skip(ctx context.Context, msg domain.OutboxMessage) bool {
	unsubscribed, err := d.prefs.IsUnsubscribed(ctx, msg.Recipient, msg.Kind)
	if err != nil {
		d.logger.Printf("WARN: unsubscribe lookup for %s: %v", msg.ID, err)
		return !msg.Kind.Transactional()
	}
	return unsubscribed && !msg.Kind.Transactional()
}

// Run dispatches on the given interval until the context is cancelled.
func (d *OutboxDispatcher) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := d.DispatchOnce(ctx); err != nil {
				d.logger.Printf("WARN: notification dispatch: %v", err)
			}
		}
	}
}
