package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fmuoria/nexushire/internal/models"
)

// BatchRepository stores screening batches and their candidate results
type BatchRepository struct {
	db *sql.DB
}

// NewBatchRepository creates a new batch repository
func NewBatchRepository(db *sql.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// CreateBatch inserts a batch and fills in its id and creation time.
func (r *BatchRepository) CreateBatch(ctx context.Context, batch *models.ScreeningBatch) error {
	query := `
		INSERT INTO screening_batches (user_id, company_name, tagline, role_name, role_requirements)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		batch.UserID, batch.CompanyName, batch.Tagline, batch.RoleName, batch.RoleRequirements,
	).Scan(&batch.ID, &batch.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create batch: %w", err)
	}
	return nil
}

// AddResult records the outcome of one candidate.
func (r *BatchRepository) AddResult(ctx context.Context, result *models.CandidateResult) error {
	query := `
		INSERT INTO candidate_results (batch_id, email, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query, result.BatchID, result.Email, result.Status).
		Scan(&result.ID, &result.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to add result: %w", err)
	}
	return nil
}

// ListByUser returns a user's batches with their result counts, newest first.
func (r *BatchRepository) ListByUser(ctx context.Context, userID int64) ([]models.BatchSummary, error) {
	query := `
		SELECT b.id, b.user_id, b.company_name, b.tagline, b.role_name, b.role_requirements,
		       b.created_at, COUNT(c.id)
		FROM screening_batches b
		LEFT JOIN candidate_results c ON c.batch_id = b.id
		WHERE b.user_id = $1
		GROUP BY b.id
		ORDER BY b.created_at DESC, b.id DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	defer rows.Close()

	summaries := []models.BatchSummary{}
	for rows.Next() {
		var s models.BatchSummary
		if err := rows.Scan(&s.ID, &s.UserID, &s.CompanyName, &s.Tagline, &s.RoleName,
			&s.RoleRequirements, &s.CreatedAt, &s.ResultCount); err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate batches: %w", err)
	}
	return summaries, nil
}

// GetForUser returns a batch only when it belongs to userID.
func (r *BatchRepository) GetForUser(ctx context.Context, batchID, userID int64) (*models.ScreeningBatch, error) {
	query := `
		SELECT id, user_id, company_name, tagline, role_name, role_requirements, created_at
		FROM screening_batches
		WHERE id = $1 AND user_id = $2
	`
	var b models.ScreeningBatch
	err := r.db.QueryRowContext(ctx, query, batchID, userID).Scan(
		&b.ID, &b.UserID, &b.CompanyName, &b.Tagline, &b.RoleName, &b.RoleRequirements, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}
	return &b, nil
}

// Results returns the candidate results of a batch in insertion order.
func (r *BatchRepository) Results(ctx context.Context, batchID int64) ([]models.CandidateResult, error) {
	query := `
		SELECT id, batch_id, email, status, created_at
		FROM candidate_results
		WHERE batch_id = $1
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer rows.Close()

	results := []models.CandidateResult{}
	for rows.Next() {
		var c models.CandidateResult
		if err := rows.Scan(&c.ID, &c.BatchID, &c.Email, &c.Status, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate results: %w", err)
	}
	return results, nil
}
