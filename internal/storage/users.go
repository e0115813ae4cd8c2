package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fmuoria/nexushire/internal/models"
)

// UserRepository stores authentication identities
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a user and fills in its id and creation time.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (email, hashed_password)
		VALUES ($1, $2)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query, user.Email, user.HashedPassword).
		Scan(&user.ID, &user.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByEmail looks a user up by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, `SELECT id, email, hashed_password, created_at FROM users WHERE email = $1`, email)
}

// GetByID looks a user up by id.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, `SELECT id, email, hashed_password, created_at FROM users WHERE id = $1`, id)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg interface{}) (*models.User, error) {
	var u models.User
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Email, &u.HashedPassword, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}
