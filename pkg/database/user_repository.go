package database

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/lib/pq"

	"github.com/jordanlanch/leadbook/pkg/domain"
	"github.com/jordanlanch/leadbook/pkg/models"
)

// UserRepository persists users over database/sql.
type UserRepository struct {
	DB *sql.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{DB: db}
}

// Create inserts a user. A duplicate email surfaces as a conflict.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, role, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		user.ID, user.Email, user.PasswordHash, user.Role, user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewConflictError("Email is already registered")
		}
		return domain.NewInternalError(err)
	}
	return nil
}

// isUniqueViolation detects a duplicate key error. Postgres reports it
// with a typed error code; the string fallback covers sqlite in tests.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique")
}

// GetByEmail fetches a user by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getBy(ctx, `email = $1`, email)
}

// GetByID fetches a user by id.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getBy(ctx, `id = $1`, id)
}

func (r *UserRepository) getBy(ctx context.Context, cond string, arg any) (*models.User, error) {
	var u models.User
	err := r.DB.QueryRowContext(ctx, `
		SELECT id, email, password_hash, role, created_at
		FROM users WHERE `+cond, arg,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.NewNotFoundError("user")
	}
	if err != nil {
		return nil, domain.NewInternalError(err)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}
