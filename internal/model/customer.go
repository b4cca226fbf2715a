package model

import "time"

// Customer is the DB entity persisted in the customers table, mirroring
// one identity-provider user. clerk_id and email are nullable but UNIQUE
// when present. deleted_at exists as a soft-delete extension point and is
// never written by the sync path.
type Customer struct {
	ID        string     `db:"id"` // ULID
	ClerkID   *string    `db:"clerk_id"`
	Email     *string    `db:"email"`
	FirstName string     `db:"first_name"`
	LastName  string     `db:"last_name"`
	Username  string     `db:"username"`
	Avatar    *string    `db:"avatar"`
	DeletedAt *time.Time `db:"deleted_at"`
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt time.Time  `db:"updated_at"`
}
