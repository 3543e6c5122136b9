package repository

import (
	"context"
	"database/sql"
	"errors"

	"venue-booking/internal/model"
)

// AdminRepo provides data access to the admins table.
type AdminRepo struct{}

// NewAdminRepo returns an AdminRepo.
func NewAdminRepo() *AdminRepo { return &AdminRepo{} }

// GetByEmail loads one admin by email for login.
func (r *AdminRepo) GetByEmail(ctx context.Context, q Querier, email string) (model.Admin, error) {
	var a model.Admin
	err := q.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM admins WHERE email = ?`, email,
	).Scan(&a.ID, &a.Email, &a.PasswordHash, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Admin{}, ErrNotFound
	}
	return a, err
}

// Ensure creates the admin if no row exists for the email.  Used at
// startup to seed the back-office account from the environment; an
// existing row is left untouched so password changes survive restarts.
func (r *AdminRepo) Ensure(ctx context.Context, q Querier, email, passwordHash string) error {
	_, err := q.ExecContext(ctx,
		`INSERT IGNORE INTO admins (email, password_hash) VALUES (?, ?)`,
		email, passwordHash,
	)
	return err
}
