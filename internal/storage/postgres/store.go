package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bobmcallan/satqueue/internal/common"
	"github.com/bobmcallan/satqueue/internal/models"
)

// activeStatuses is the set of non-terminal statuses get_active_run collapses
// concurrent submissions against.
var activeStatuses = []string{
	string(models.RunStatusCreated),
	string(models.RunStatusQueued),
	string(models.RunStatusProcessing),
}

var terminalStatuses = []string{
	string(models.RunStatusCompleted),
	string(models.RunStatusFailed),
	string(models.RunStatusTimeout),
	string(models.RunStatusCancelled),
}

// Store is the Postgres-backed implementation of interfaces.Store.
type Store struct {
	pool   *pgxpool.Pool
	logger *common.Logger
}

// NewStore connects to Postgres per cfg, verifies connectivity, and ensures
// the formulas/runs/results schema exists.
func NewStore(logger *common.Logger, cfg *common.StoreConfig) (*Store, error) {
	ctx := context.Background()

	pool, err := newPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := ensureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("db", cfg.Name).
		Int("pool_min", cfg.PoolMin).
		Int("pool_max", cfg.PoolMax).
		Msg("Store connected")

	return &Store{pool: pool, logger: logger}, nil
}

// GetOrCreateFormula upserts keyed by hash; a conflicting insert is a no-op
// update that still returns the existing id.
func (s *Store) GetOrCreateFormula(ctx context.Context, normalized, hash string, notation models.Notation) (int64, error) {
	const q = `
		INSERT INTO formulas (normalized_input, hash, notation)
		VALUES ($1, $2, $3)
		ON CONFLICT (hash) DO UPDATE SET hash = EXCLUDED.hash
		RETURNING id`

	var id int64
	if err := s.pool.QueryRow(ctx, q, normalized, hash, string(notation)).Scan(&id); err != nil {
		return 0, fmt.Errorf("get or create formula: %w", err)
	}
	return id, nil
}

// CreateRun inserts a new Run in status CREATED.
func (s *Store) CreateRun(ctx context.Context, formulaID int64, mode models.Mode, timeoutS int) (int64, error) {
	const q = `
		INSERT INTO runs (formula_id, status, timeout_s, mode)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	var id int64
	err := s.pool.QueryRow(ctx, q, formulaID, string(models.RunStatusCreated), timeoutS, string(mode)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create run: %w", err)
	}
	return id, nil
}

// UpdateRunStatus writes the new status, idempotently stamping started_at
// (iff status == PROCESSING) and finished_at (iff status is terminal), only
// while those columns are still null.
func (s *Store) UpdateRunStatus(ctx context.Context, runID int64, status models.RunStatus) error {
	const q = `
		UPDATE runs SET
			status = $1,
			started_at = CASE WHEN $1 = $2 AND started_at IS NULL THEN now() ELSE started_at END,
			finished_at = CASE WHEN $1 = ANY($3) AND finished_at IS NULL THEN now() ELSE finished_at END
		WHERE id = $4`

	_, err := s.pool.Exec(ctx, q, string(status), string(models.RunStatusProcessing), terminalStatuses, runID)
	if err != nil {
		return fmt.Errorf("update run status: %w", err)
	}
	return nil
}

// GetStatusByRunID returns the run's status, or ("", nil) on miss.
func (s *Store) GetStatusByRunID(ctx context.Context, runID int64) (models.RunStatus, error) {
	const q = `SELECT status FROM runs WHERE id = $1`

	var status string
	if err := s.pool.QueryRow(ctx, q, runID).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("get status by run id: %w", err)
	}
	return models.RunStatus(status), nil
}

// GetRunByID returns the full Run row, or (nil, nil) on miss.
func (s *Store) GetRunByID(ctx context.Context, runID int64) (*models.Run, error) {
	const q = `
		SELECT id, formula_id, status, created_at, started_at, finished_at, timeout_s, mode
		FROM runs WHERE id = $1`

	var run models.Run
	var status, mode string
	err := s.pool.QueryRow(ctx, q, runID).Scan(
		&run.ID, &run.FormulaID, &status, &run.CreatedAt, &run.StartedAt, &run.FinishedAt,
		&run.TimeoutS, &mode,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get run by id: %w", err)
	}
	run.Status = models.RunStatus(status)
	run.Mode = models.Mode(mode)
	return &run, nil
}

// GetFormulaByID returns the Formula row, or (nil, nil) on miss.
func (s *Store) GetFormulaByID(ctx context.Context, formulaID int64) (*models.Formula, error) {
	const q = `SELECT id, normalized_input, hash, notation FROM formulas WHERE id = $1`

	var f models.Formula
	var notation string
	err := s.pool.QueryRow(ctx, q, formulaID).Scan(&f.ID, &f.NormalizedInput, &f.Hash, &notation)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get formula by id: %w", err)
	}
	f.Notation = models.Notation(notation)
	return &f, nil
}

// GetResultByRunID returns the Result row, or (nil, nil) on miss.
func (s *Store) GetResultByRunID(ctx context.Context, runID int64) (*models.Result, error) {
	const q = `
		SELECT run_id, result, assignment, stdout, stderr, error_type, error_message, runtime_s
		FROM results WHERE run_id = $1`

	var r models.Result
	var result string
	var assignmentJSON []byte
	var errorType *string
	err := s.pool.QueryRow(ctx, q, runID).Scan(
		&r.RunID, &result, &assignmentJSON, &r.Stdout, &r.Stderr, &errorType, &r.ErrorMessage, &r.RuntimeS,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get result by run id: %w", err)
	}
	r.Result = models.Outcome(result)
	if errorType != nil {
		et := models.ErrorType(*errorType)
		r.ErrorType = &et
	}
	if len(assignmentJSON) > 0 {
		if err := json.Unmarshal(assignmentJSON, &r.Assignment); err != nil {
			return nil, fmt.Errorf("decode assignment: %w", err)
		}
	}
	return &r, nil
}

// InsertResult is idempotent: a conflicting insert for a run_id already
// recorded is ignored so a retried worker cannot corrupt a recorded result.
func (s *Store) InsertResult(ctx context.Context, result *models.Result) error {
	var assignmentJSON []byte
	if result.Assignment != nil {
		var err error
		assignmentJSON, err = json.Marshal(result.Assignment)
		if err != nil {
			return fmt.Errorf("encode assignment: %w", err)
		}
	}

	var errorType *string
	if result.ErrorType != nil {
		s := string(*result.ErrorType)
		errorType = &s
	}

	const q = `
		INSERT INTO results (run_id, result, assignment, stdout, stderr, error_type, error_message, runtime_s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (run_id) DO NOTHING`

	_, err := s.pool.Exec(ctx, q,
		result.RunID, string(result.Result), assignmentJSON, result.Stdout, result.Stderr,
		errorType, result.ErrorMessage, result.RuntimeS,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil
		}
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

// GetActiveRun returns any run for formulaID in {CREATED, QUEUED, PROCESSING},
// or (nil, nil) if none exists.
func (s *Store) GetActiveRun(ctx context.Context, formulaID int64) (*models.Run, error) {
	const q = `
		SELECT id, status FROM runs
		WHERE formula_id = $1 AND status = ANY($2)
		ORDER BY id DESC LIMIT 1`

	var run models.Run
	var status string
	err := s.pool.QueryRow(ctx, q, formulaID, activeStatuses).Scan(&run.ID, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get active run: %w", err)
	}
	run.Status = models.RunStatus(status)
	run.FormulaID = formulaID
	return &run, nil
}

// GetCompletedRun returns the most recent COMPLETED run for formulaID, the
// cache-hit path, or (nil, nil) if none exists.
func (s *Store) GetCompletedRun(ctx context.Context, formulaID int64) (*models.Run, error) {
	const q = `
		SELECT id, status FROM runs
		WHERE formula_id = $1 AND status = $2
		ORDER BY id DESC LIMIT 1`

	var run models.Run
	var status string
	err := s.pool.QueryRow(ctx, q, formulaID, string(models.RunStatusCompleted)).Scan(&run.ID, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get completed run: %w", err)
	}
	run.Status = models.RunStatus(status)
	run.FormulaID = formulaID
	return &run, nil
}

// ListRecentRuns returns a newest-first, keyset-paginated page of runs joined
// with their terminal result, if any. beforeID == 0 starts from the most
// recent run.
func (s *Store) ListRecentRuns(ctx context.Context, limit int, beforeID int64) ([]models.RunSummary, error) {
	const q = `
		SELECT r.id, r.formula_id, r.status, res.result, r.created_at, r.finished_at
		FROM runs r
		LEFT JOIN results res ON res.run_id = r.id
		WHERE ($2 = 0 OR r.id < $2)
		ORDER BY r.id DESC
		LIMIT $1`

	rows, err := s.pool.Query(ctx, q, limit, beforeID)
	if err != nil {
		return nil, fmt.Errorf("list recent runs: %w", err)
	}
	defer rows.Close()

	var summaries []models.RunSummary
	for rows.Next() {
		var rs models.RunSummary
		var status string
		var result *string
		if err := rows.Scan(&rs.RunID, &rs.FormulaID, &status, &result, &rs.CreatedAt, &rs.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan run summary: %w", err)
		}
		rs.Status = models.RunStatus(status)
		rs.Result = result
		summaries = append(summaries, rs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list recent runs: %w", err)
	}
	return summaries, nil
}

// Ping is a trivial connectivity probe for the readiness surface.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the pool. Safe to call multiple times.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}
