package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/syncwire/clerk-sync/internal/model"
)

// DeliveriesRepository records and lists processed webhook deliveries in
// ClickHouse (audit view).
type DeliveriesRepository interface {
	Insert(ctx context.Context, d model.Delivery) error
	List(ctx context.Context, eventType, outcome string, limit, offset int) ([]model.Delivery, error)
}

type deliveriesRepository struct {
	ch *sqlx.DB // ClickHouse connection
}

func NewDeliveriesRepository(ch *sqlx.DB) DeliveriesRepository {
	return &deliveriesRepository{ch: ch}
}

func (r *deliveriesRepository) Insert(ctx context.Context, d model.Delivery) error {
	const q = `
		INSERT INTO clerksync.deliveries
		    (id, message_id, event_type, outcome, clerk_id, email, received_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.ch.ExecContext(ctx, q,
		d.ID, d.MessageID, d.EventType, d.Outcome, d.ClerkID, d.Email, d.ReceivedAt,
	)
	return err
}

func (r *deliveriesRepository) List(ctx context.Context, eventType, outcome string, limit, offset int) ([]model.Delivery, error) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	q := `
		SELECT id, message_id, event_type, outcome, clerk_id, email, received_at
		FROM clerksync.deliveries
		WHERE 1 = 1
	`
	args := []any{}

	if eventType != "" {
		q += " AND event_type = ?"
		args = append(args, eventType)
	}
	if outcome != "" {
		q += " AND outcome = ?"
		args = append(args, outcome)
	}

	q += " ORDER BY received_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	var rows []model.Delivery
	if err := r.ch.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	return rows, nil
}
