// Package interfaces defines the narrow contracts the Submission service
// and Worker depend on, so the Postgres and Redis implementations can be
// swapped for test doubles without touching caller code.
package interfaces

import (
	"context"

	"github.com/bobmcallan/satqueue/internal/models"
)

// Store is the durable record of formulas, runs, and results. Every
// operation borrows a pooled connection and releases it on every exit path.
type Store interface {
	// GetOrCreateFormula upserts keyed by hash; on conflict it is a no-op
	// update that still returns the existing id.
	GetOrCreateFormula(ctx context.Context, normalized, hash string, notation models.Notation) (int64, error)

	// CreateRun inserts a new Run in status CREATED.
	CreateRun(ctx context.Context, formulaID int64, mode models.Mode, timeoutS int) (int64, error)

	// UpdateRunStatus writes the new status, idempotently stamping
	// started_at (iff status == PROCESSING) and finished_at (iff status is
	// terminal) only while those columns are still null.
	UpdateRunStatus(ctx context.Context, runID int64, status models.RunStatus) error

	GetStatusByRunID(ctx context.Context, runID int64) (models.RunStatus, error)
	GetRunByID(ctx context.Context, runID int64) (*models.Run, error)
	GetFormulaByID(ctx context.Context, formulaID int64) (*models.Formula, error)
	GetResultByRunID(ctx context.Context, runID int64) (*models.Result, error)

	// InsertResult is idempotent: a conflicting insert for a run_id already
	// recorded is ignored.
	InsertResult(ctx context.Context, result *models.Result) error

	// GetActiveRun returns any run for formulaID in {CREATED, PROCESSING,
	// QUEUED}, used to collapse concurrent submissions of the same formula.
	GetActiveRun(ctx context.Context, formulaID int64) (*models.Run, error)

	// GetCompletedRun returns the most recent COMPLETED run for formulaID,
	// the cache-hit path.
	GetCompletedRun(ctx context.Context, formulaID int64) (*models.Run, error)

	// ListRecentRuns returns a newest-first, keyset-paginated page of runs.
	// beforeID == 0 starts from the most recent run.
	ListRecentRuns(ctx context.Context, limit int, beforeID int64) ([]models.RunSummary, error)

	// Ping is a trivial connectivity probe for the readiness surface.
	Ping(ctx context.Context) error

	Close()
}
