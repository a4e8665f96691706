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

type OutboxRepository struct {
	pool *pgxpool.Pool
}

func NewOutboxRepository(pool *pgxpool.Pool) *OutboxRepository {
	return &OutboxRepository{pool: pool}
}

// Enqueue stores a notification intent. Called inside a claim
// transaction it commits atomically with the transition.
func (r *OutboxRepository) Enqueue(ctx context.Context, msg domain.OutboxMessage) error {
	const stmt = `
INSERT INTO notification_outbox (id, recipient, kind, payload, attempts, created_at, sent_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.exec(ctx, stmt,
		msg.ID,
		msg.Recipient,
		msg.Kind,
		msg.Payload,
		msg.Attempts,
		msg.CreatedAt,
		msg.SentAt,
	)
	if err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}
	return nil
}

// ListPending returns unsent messages in ULID (creation) order.
func (r *OutboxRepository) ListPending(ctx context.Context, limit int) ([]domain.OutboxMessage, error) {
	const query = `
SELECT id, recipient, kind, payload, attempts, created_at, sent_at
FROM notification_outbox
WHERE sent_at IS NULL
ORDER BY id
LIMIT $1`

	rows, err := r.query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending notifications: %w", err)
	}
	defer rows.Close()

	var msgs []domain.OutboxMessage
	for rows.Next() {
		var m domain.OutboxMessage
		if err := rows.Scan(&m.ID, &m.Recipient, &m.Kind, &m.Payload, &m.Attempts, &m.CreatedAt, &m.SentAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list pending notifications: %w", err)
	}
	return msgs, nil
}

func (r *OutboxRepository) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	const stmt = `UPDATE notification_outbox SET sent_at = $2 WHERE id = $1 AND sent_at IS NULL`

	if _, err := r.exec(ctx, stmt, id, sentAt); err != nil {
		return fmt.Errorf("mark notification sent: %w", err)
	}
	return nil
}

func (r *OutboxRepository) MarkAttempted(ctx context.Context, id string) error {
	const stmt = `UPDATE notification_outbox SET attempts = attempts + 1 WHERE id = $1`

	if _, err := r.exec(ctx, stmt, id); err != nil {
		return fmt.Errorf("record notification attempt: %w", err)
	}
	return nil
}

func (r *OutboxRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *OutboxRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}
