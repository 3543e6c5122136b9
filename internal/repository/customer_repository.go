package repository

import (
	"context"
	"database/sql"
	"errors"

	"venue-booking/internal/model"
)

// CustomerRepo provides data access to the customers table.  Customers
// are identified by email: creating a hold for a known email reuses the
// existing row instead of minting a duplicate.
type CustomerRepo struct{}

// NewCustomerRepo returns a CustomerRepo.
func NewCustomerRepo() *CustomerRepo { return &CustomerRepo{} }

// UpsertByEmail inserts the customer or refreshes name/phone on the
// existing row, and returns the row's ID either way.  The
// LAST_INSERT_ID(id) trick makes LastInsertId return the existing ID on
// the duplicate-key path.
func (r *CustomerRepo) UpsertByEmail(ctx context.Context, q Querier, c model.Customer) (uint64, error) {
	res, err := q.ExecContext(ctx,
		`INSERT INTO customers (email, name, phone) VALUES (?, ?, ?)
		 ON DUPLICATE KEY UPDATE
			id = LAST_INSERT_ID(id), name = VALUES(name), phone = VALUES(phone)`,
		c.Email, c.Name, c.Phone,
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// Get loads one customer by ID.
func (r *CustomerRepo) Get(ctx context.Context, q Querier, id uint64) (model.Customer, error) {
	var c model.Customer
	err := q.QueryRowContext(ctx,
		`SELECT id, email, name, phone, created_at FROM customers WHERE id = ?`, id,
	).Scan(&c.ID, &c.Email, &c.Name, &c.Phone, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Customer{}, ErrNotFound
	}
	return c, err
}
