// Package storage persists users, screening batches and candidate results in PostgreSQL.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

var (
	// ErrNotFound is returned when a row does not exist or is not visible to the caller.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateEmail is returned when registering an email that already exists.
	ErrDuplicateEmail = errors.New("email already registered")
)

const uniqueViolation = "23505"

// Open connects to PostgreSQL through the pgx database/sql driver.
func Open(ctx context.Context, databaseURL string, maxConns int) (*sql.DB, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
		db.SetMaxIdleConns(maxConns / 2)
	}
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
