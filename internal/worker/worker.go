// Package worker implements the claim/execute/ack loop that pulls jobs off
// the broker, invokes the external solver, and writes the terminal outcome
// to the store.
package worker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/bobmcallan/satqueue/internal/common"
	"github.com/bobmcallan/satqueue/internal/interfaces"
	"github.com/bobmcallan/satqueue/internal/models"
)

// Worker claims jobs from a Broker, executes them against the external
// solver, and records their outcome in a Store.
type Worker struct {
	store       interfaces.Store
	broker      interfaces.Broker
	logger      *common.Logger
	solverPath  string
	pollTimeout time.Duration
	running     atomic.Bool
}

// New constructs a Worker. solverPath is the path to the solver executable;
// pollTimeout bounds each blocking claim.
func New(store interfaces.Store, broker interfaces.Broker, logger *common.Logger, solverPath string, pollTimeout time.Duration) *Worker {
	w := &Worker{
		store:       store,
		broker:      broker,
		logger:      logger,
		solverPath:  solverPath,
		pollTimeout: pollTimeout,
	}
	w.running.Store(true)
	return w
}

// Stop flips the cooperative shutdown flag. It is sampled only between
// iterations, so a solver invocation already in flight is never
// interrupted; shutdown may therefore be delayed by up to the run's
// timeout plus one poll window.
func (w *Worker) Stop() {
	w.running.Store(false)
}

// RunForever claims and processes jobs until Stop is called or ctx is
// done. A broker error backs off for 2s before retrying, matching the
// original system's poll loop.
func (w *Worker) RunForever(ctx context.Context) {
	w.logger.Info().Msg("worker starting")

	for w.running.Load() {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("worker stopping: context cancelled")
			return
		default:
		}

		job, err := w.broker.Claim(ctx, w.pollTimeout)
		if err != nil {
			w.logger.Error().Err(err).Msg("queue claim failed")
			time.Sleep(2 * time.Second)
			continue
		}
		if job == nil {
			continue
		}

		w.logger.Info().Int64("run_id", job.RunID).Msg("claimed run")
		w.processJob(ctx, job)
	}

	w.logger.Info().Msg("worker shutting down cleanly")
}

func (w *Worker) processJob(ctx context.Context, job *models.JobPayload) {
	if err := w.store.UpdateRunStatus(ctx, job.RunID, models.RunStatusProcessing); err != nil {
		w.logger.Error().Int64("run_id", job.RunID).Err(err).Msg("failed to mark run PROCESSING")
	}

	outcome := RunSolver(ctx, w.solverPath, job.Formula, time.Duration(job.TimeoutS)*time.Second)
	result, status := classify(job.RunID, job.TimeoutS, outcome)

	if err := w.store.InsertResult(ctx, result); err != nil {
		w.logger.Error().Int64("run_id", job.RunID).Err(err).Msg("failed to insert result")
		if ackErr := w.broker.Fail(ctx, job.RunID, err.Error()); ackErr != nil {
			w.logger.Error().Int64("run_id", job.RunID).Err(ackErr).Msg("failed to mark broker entry failed")
		}
		return
	}

	if err := w.store.UpdateRunStatus(ctx, job.RunID, status); err != nil {
		w.logger.Error().Int64("run_id", job.RunID).Err(err).Msg("failed to write terminal run status")
		if ackErr := w.broker.Fail(ctx, job.RunID, err.Error()); ackErr != nil {
			w.logger.Error().Int64("run_id", job.RunID).Err(ackErr).Msg("failed to mark broker entry failed")
		}
		return
	}

	if err := w.broker.Ack(ctx, job.RunID); err != nil {
		w.logger.Error().Int64("run_id", job.RunID).Err(err).Msg("failed to ack run")
	}

	w.logger.Info().Int64("run_id", job.RunID).Str("result", string(result.Result)).Msg("run finished")
}
