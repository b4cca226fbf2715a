package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/syncwire/clerk-sync/internal/model"
)

// CustomersRepository is the persistence surface the reconciler relies on:
// single-field equality lookups plus create/update. No transactions; the
// at-most-one-record guarantee lives in the UNIQUE keys on clerk_id and
// email.
type CustomersRepository interface {
	FindByClerkID(ctx context.Context, clerkID string) (*model.Customer, error)
	FindByEmail(ctx context.Context, email string) (*model.Customer, error)
	Create(ctx context.Context, c model.Customer) error
	Update(ctx context.Context, c model.Customer) error
}

type CustomersRepositoryImpl struct {
	db *sqlx.DB
}

func NewCustomersRepository(db *sqlx.DB) *CustomersRepositoryImpl {
	return &CustomersRepositoryImpl{db: db}
}

var _ CustomersRepository = (*CustomersRepositoryImpl)(nil)

const customerColumns = `id, clerk_id, email, first_name, last_name, username, avatar, deleted_at, created_at, updated_at`

func (r *CustomersRepositoryImpl) FindByClerkID(ctx context.Context, clerkID string) (*model.Customer, error) {
	var c model.Customer
	err := r.db.GetContext(ctx, &c, `
		SELECT `+customerColumns+`
		  FROM customers
		 WHERE clerk_id = ? LIMIT 1
	`, clerkID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CustomersRepositoryImpl) FindByEmail(ctx context.Context, email string) (*model.Customer, error) {
	var c model.Customer
	err := r.db.GetContext(ctx, &c, `
		SELECT `+customerColumns+`
		  FROM customers
		 WHERE email = ? LIMIT 1
	`, email)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CustomersRepositoryImpl) Create(ctx context.Context, c model.Customer) error {
	const q = `
		INSERT INTO customers
		    (id, clerk_id, email, first_name, last_name, username, avatar, created_at, updated_at)
		VALUES
		    (?,  ?,        ?,     ?,          ?,         ?,        ?,      NOW(),      NOW())
	`
	_, err := r.db.ExecContext(ctx, q,
		c.ID, c.ClerkID, c.Email, c.FirstName, c.LastName, c.Username, c.Avatar,
	)
	return err
}

// Update overwrites all mutable fields in place. clerk_id is re-set from
// the inbound event every time; it is never cleared once present because
// events always carry it.
func (r *CustomersRepositoryImpl) Update(ctx context.Context, c model.Customer) error {
	const q = `
		UPDATE customers
		   SET clerk_id = ?, email = ?, first_name = ?, last_name = ?,
		       username = ?, avatar = ?, updated_at = NOW()
		 WHERE id = ?
	`
	_, err := r.db.ExecContext(ctx, q,
		c.ClerkID, c.Email, c.FirstName, c.LastName, c.Username, c.Avatar, c.ID,
	)
	return err
}
