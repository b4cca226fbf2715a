package model

import "time"

// Delivery is one processed webhook delivery, recorded in ClickHouse for
// reporting. Audit rows are best-effort and never block the sync path.
type Delivery struct {
	ID         string    `db:"id"` // ULID
	MessageID  string    `db:"message_id"`
	EventType  string    `db:"event_type"`
	Outcome    string    `db:"outcome"` // created|updated|skipped|ignored|duplicate
	ClerkID    string    `db:"clerk_id"`
	Email      string    `db:"email"`
	ReceivedAt time.Time `db:"received_at"`
}
