// Package submission implements the async job submission surface: formula
// normalization and deduplication, run creation, and the status/result
// projections polled by clients.
package submission

import (
	"context"
	"fmt"

	"github.com/bobmcallan/satqueue/internal/common"
	"github.com/bobmcallan/satqueue/internal/interfaces"
	"github.com/bobmcallan/satqueue/internal/models"
	"github.com/bobmcallan/satqueue/internal/normalizer"
)

// Kind classifies a Service error so the HTTP layer can map it to a status
// code without inspecting message text.
type Kind string

const (
	KindInvalidFormula    Kind = "InvalidFormula"
	KindNotFound          Kind = "NotFound"
	KindResultNotReady    Kind = "ResultNotReady"
	KindBrokerUnavailable Kind = "BrokerUnavailable"
	KindInternal          Kind = "Internal"
)

// Error carries a Kind alongside a human-readable message.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

func invalidFormula(reason string) *Error {
	return &Error{Kind: KindInvalidFormula, Message: reason}
}

func notFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func resultNotReady(msg string) *Error {
	return &Error{Kind: KindResultNotReady, Message: msg}
}

func brokerUnavailable(msg string) *Error {
	return &Error{Kind: KindBrokerUnavailable, Message: msg}
}

func internal(msg string) *Error {
	return &Error{Kind: KindInternal, Message: msg}
}

// SubmitResult is the response to a submission: either a freshly queued run
// or an existing run (cached or in-flight) that the submission coalesced
// onto.
type SubmitResult struct {
	Msg       string           `json:"msg"`
	Formula   string           `json:"formula"`
	FormulaID int64            `json:"formula_id"`
	RunID     int64            `json:"run_id"`
	Status    models.RunStatus `json:"status"`
}

// StatusResult is the response to a status lookup.
type StatusResult struct {
	Msg    string           `json:"msg"`
	RunID  int64            `json:"run_id"`
	Status models.RunStatus `json:"status"`
}

// ResultResponse is the response to a result lookup: the run's terminal
// outcome joined with its formula text.
type ResultResponse struct {
	Msg        string           `json:"msg"`
	Status     models.RunStatus `json:"status"`
	RunID      int64            `json:"run_id"`
	FormulaID  int64            `json:"formula_id"`
	Formula    string           `json:"formula"`
	Result     models.Outcome   `json:"result"`
	Assignment map[string]bool  `json:"assignment,omitempty"`
	RuntimeS   float64          `json:"runtime"`
}

// Service is the submission surface sitting in front of Store and Broker.
// It never invokes the solver directly; that is the worker's job.
type Service struct {
	store  interfaces.Store
	broker interfaces.Broker
	solver *common.SolverConfig
	logger *common.Logger
}

// NewService wires a Service from its dependencies.
func NewService(store interfaces.Store, broker interfaces.Broker, solver *common.SolverConfig, logger *common.Logger) *Service {
	return &Service{store: store, broker: broker, solver: solver, logger: logger}
}

// Submit normalizes formulaRaw, deduplicates against the store, and either
// returns an existing run (cached result or in-flight submission) or
// creates and enqueues a new one.
func (s *Service) Submit(ctx context.Context, formulaRaw string, mode models.Mode) (*SubmitResult, error) {
	normalized, hash, err := normalizer.NormalizeAndHash(formulaRaw, models.NotationRPN)
	if err != nil {
		s.logger.Warn().Err(err).Msg("formula failed normalization")
		return nil, invalidFormula("re-check your input, it may be invalid: " + err.Error())
	}

	formulaID, err := s.store.GetOrCreateFormula(ctx, normalized, hash, models.NotationRPN)
	if err != nil {
		return nil, internal(fmt.Sprintf("store formula: %v", err))
	}
	s.logger.Debug().Int64("formula_id", formulaID).Msg("formula checked or created")

	if completed, err := s.store.GetCompletedRun(ctx, formulaID); err != nil {
		return nil, internal(fmt.Sprintf("lookup completed run: %v", err))
	} else if completed != nil {
		s.logger.Info().Int64("formula_id", formulaID).Int64("run_id", completed.ID).Msg("cached result found")
		return &SubmitResult{
			Msg:       "Cached result found. Returning existing run_id.",
			Formula:   normalized,
			FormulaID: formulaID,
			RunID:     completed.ID,
			Status:    completed.Status,
		}, nil
	}

	if active, err := s.store.GetActiveRun(ctx, formulaID); err != nil {
		return nil, internal(fmt.Sprintf("lookup active run: %v", err))
	} else if active != nil {
		s.logger.Info().Int64("formula_id", formulaID).Int64("run_id", active.ID).Msg("run already pending against formula")
		return &SubmitResult{
			Msg:       "A run already exists for said formula, run_id is returned.",
			Formula:   normalized,
			FormulaID: formulaID,
			RunID:     active.ID,
			Status:    active.Status,
		}, nil
	}

	timeoutS := s.solver.TimeoutSSat
	if mode == models.ModeCNFSudoku {
		timeoutS = s.solver.TimeoutSSudoku
	}

	runID, err := s.store.CreateRun(ctx, formulaID, mode, timeoutS)
	if err != nil {
		return nil, internal(fmt.Sprintf("create run: %v", err))
	}

	payload := &models.JobPayload{
		Formula:   normalized,
		RunID:     runID,
		FormulaID: formulaID,
		Mode:      mode,
		TimeoutS:  timeoutS,
	}

	if err := s.broker.Enqueue(ctx, payload); err != nil {
		s.logger.Error().Int64("run_id", runID).Int64("formula_id", formulaID).Err(err).
			Msg("failed to enqueue run")
		if uerr := s.store.UpdateRunStatus(ctx, runID, models.RunStatusFailed); uerr != nil {
			s.logger.Error().Int64("run_id", runID).Err(uerr).Msg("failed to mark run FAILED after broker error")
		}
		return nil, brokerUnavailable("Job queue temporarily unavailable")
	}

	if err := s.store.UpdateRunStatus(ctx, runID, models.RunStatusQueued); err != nil {
		return nil, internal(fmt.Sprintf("update run status: %v", err))
	}
	s.logger.Info().Int64("run_id", runID).Msg("run queued")

	return &SubmitResult{
		Msg:       "Job submitted successfully",
		Formula:   normalized,
		FormulaID: formulaID,
		RunID:     runID,
		Status:    models.RunStatusQueued,
	}, nil
}

// GetStatus returns the current status of run_id.
func (s *Service) GetStatus(ctx context.Context, runID int64) (*StatusResult, error) {
	run, err := s.store.GetRunByID(ctx, runID)
	if err != nil {
		return nil, internal(fmt.Sprintf("get run: %v", err))
	}
	if run == nil {
		return nil, notFound(fmt.Sprintf("Run ID %d not found. Please check the run_id from your job submission.", runID))
	}
	return &StatusResult{
		Msg:    "Here is the status of your run.",
		RunID:  runID,
		Status: run.Status,
	}, nil
}

// GetResult returns the terminal outcome of run_id, or a ResultNotReady
// error if the run has not reached a terminal status yet.
func (s *Service) GetResult(ctx context.Context, runID int64) (*ResultResponse, error) {
	run, err := s.store.GetRunByID(ctx, runID)
	if err != nil {
		return nil, internal(fmt.Sprintf("get run: %v", err))
	}
	if run == nil {
		return nil, notFound(fmt.Sprintf("Run ID %d not found. Please check the run_id from your job submission.", runID))
	}

	if !run.Status.IsTerminal() {
		return nil, resultNotReady(fmt.Sprintf(
			"Run is not complete yet. Current status: %s. Use 'status %d' to check progress.", run.Status, runID))
	}

	result, err := s.store.GetResultByRunID(ctx, runID)
	if err != nil {
		return nil, internal(fmt.Sprintf("get result: %v", err))
	}
	if result == nil {
		return nil, notFound(fmt.Sprintf("Result not found for run_id %d. The job may have failed or timed out.", runID))
	}

	formula, err := s.store.GetFormulaByID(ctx, run.FormulaID)
	if err != nil {
		return nil, internal(fmt.Sprintf("get formula: %v", err))
	}
	formulaText := ""
	if formula != nil {
		formulaText = formula.NormalizedInput
	}

	return &ResultResponse{
		Msg:        "Here is the result for your run_id.",
		Status:     run.Status,
		RunID:      runID,
		FormulaID:  run.FormulaID,
		Formula:    formulaText,
		Result:     result.Result,
		Assignment: result.Assignment,
		RuntimeS:   result.RuntimeS,
	}, nil
}

// ListHistory returns a newest-first, keyset-paginated page of past runs.
func (s *Service) ListHistory(ctx context.Context, limit int, beforeID int64) ([]models.RunSummary, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	summaries, err := s.store.ListRecentRuns(ctx, limit, beforeID)
	if err != nil {
		return nil, internal(fmt.Sprintf("list history: %v", err))
	}
	return summaries, nil
}
