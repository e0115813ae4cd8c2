// Package progress keeps the user-visible trace and results of screening runs.
package progress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fmuoria/nexushire/internal/models"
)

// ErrRunNotFound is returned for unknown run ids and for users without runs.
var ErrRunNotFound = errors.New("run not found")

// TimeLayout is the clock prefix of every progress line.
const TimeLayout = "15:04:05"

// Store holds the Progress Log and Results Buffer of each run.
type Store interface {
	// Begin registers a run for a user and makes it the user's latest run.
	Begin(ctx context.Context, runID string, userID int64) error
	Append(ctx context.Context, runID, line string) error
	AddResult(ctx context.Context, runID string, entry models.ResultEntry) error
	Logs(ctx context.Context, runID string) ([]string, error)
	Results(ctx context.Context, runID string) ([]models.ResultEntry, error)
	Owner(ctx context.Context, runID string) (int64, error)
	LatestRun(ctx context.Context, userID int64) (string, error)
}

// FormatLine prefixes msg with the wall clock time.
func FormatLine(t time.Time, msg string) string {
	return fmt.Sprintf("[%s] %s", t.Format(TimeLayout), msg)
}

// Resolve returns runID when the user owns it, or the user's latest run when
// runID is empty.
func Resolve(ctx context.Context, s Store, userID int64, runID string) (string, error) {
	if runID == "" {
		return s.LatestRun(ctx, userID)
	}
	owner, err := s.Owner(ctx, runID)
	if err != nil {
		return "", err
	}
	if owner != userID {
		return "", ErrRunNotFound
	}
	return runID, nil
}
