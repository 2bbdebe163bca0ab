package worker

import (
	"fmt"

	"github.com/bobmcallan/satqueue/internal/models"
)

// classify translates a SolverOutcome into the Result to persist and the
// terminal RunStatus that accompanies it.
func classify(runID int64, timeoutS int, outcome SolverOutcome) (*models.Result, models.RunStatus) {
	switch {
	case outcome.TimedOut:
		msg := fmt.Sprintf("Solver execution timed out after %ds", timeoutS)
		errType := models.ErrorTypeTimeout
		return &models.Result{
			RunID:        runID,
			Result:       models.OutcomeTimeout,
			ErrorType:    &errType,
			ErrorMessage: &msg,
			RuntimeS:     float64(timeoutS),
		}, models.RunStatusTimeout

	case outcome.BinaryNotFound:
		msg := "Solver binary not available"
		errType := models.ErrorTypeBinaryNotFound
		return &models.Result{
			RunID:        runID,
			Result:       models.OutcomeError,
			ErrorType:    &errType,
			ErrorMessage: &msg,
			RuntimeS:     0,
		}, models.RunStatusFailed

	case outcome.ExecErr != nil:
		msg := outcome.ExecErr.Error()
		errType := models.ErrorTypeExecutionError
		return &models.Result{
			RunID:        runID,
			Result:       models.OutcomeError,
			ErrorType:    &errType,
			ErrorMessage: &msg,
			RuntimeS:     0,
		}, models.RunStatusFailed

	case outcome.ExitCode == exitCodeParseError:
		msg := outcome.Stderr
		if msg == "" {
			msg = "Formula parsing failed"
		}
		errType := models.ErrorTypeParseError
		return &models.Result{
			RunID:        runID,
			Result:       models.OutcomeError,
			Stdout:       outcome.Stdout,
			Stderr:       outcome.Stderr,
			ErrorType:    &errType,
			ErrorMessage: &msg,
			RuntimeS:     outcome.RuntimeS,
		}, models.RunStatusFailed

	case outcome.ExitCode == exitCodeSAT || outcome.ExitCode == exitCodeUNSAT:
		decision, assignment := ParseSolverOutput(outcome.Stdout)
		return &models.Result{
			RunID:      runID,
			Result:     models.Outcome(decision),
			Assignment: assignment,
			Stdout:     outcome.Stdout,
			Stderr:     outcome.Stderr,
			RuntimeS:   outcome.RuntimeS,
		}, models.RunStatusCompleted

	default:
		msg := fmt.Sprintf("Unexpected solver return code %d", outcome.ExitCode)
		errType := models.ErrorTypeUnexpectedRC
		return &models.Result{
			RunID:        runID,
			Result:       models.OutcomeError,
			Stdout:       outcome.Stdout,
			Stderr:       outcome.Stderr,
			ErrorType:    &errType,
			ErrorMessage: &msg,
			RuntimeS:     outcome.RuntimeS,
		}, models.RunStatusFailed
	}
}
