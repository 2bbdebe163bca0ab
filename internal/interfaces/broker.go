package interfaces

import (
	"context"
	"time"

	"github.com/bobmcallan/satqueue/internal/models"
)

// Broker is the transient work queue with claim/ack semantics described in
// the fixed key layout: q:pending, q:processing, q:dead (reserved), and
// per-job payload/meta/status keys.
type Broker interface {
	// Enqueue sets the payload (TTL'd), metadata, and status keys, then
	// right-pushes run_id onto q:pending, all in one atomic batch.
	Enqueue(ctx context.Context, payload *models.JobPayload) error

	// Claim atomically right-pops from q:pending and left-pushes onto
	// q:processing, blocking up to timeout for an item to appear. Returns
	// (nil, nil) on timeout. A poison entry (unparseable run id, or missing
	// or invalid payload JSON) is removed from q:processing and reported as
	// (nil, nil), not an error.
	Claim(ctx context.Context, timeout time.Duration) (*models.JobPayload, error)

	// Ack removes run_id from q:processing and deletes its payload and
	// metadata keys. Broker errors here are swallowed by the caller policy
	// described in the worker, not by this method: Ack still returns them.
	Ack(ctx context.Context, runID int64) error

	// Fail removes run_id from q:processing and records failed_at/last_error
	// in its metadata, without requeueing.
	Fail(ctx context.Context, runID int64, reason string) error

	// Ping is a trivial connectivity probe for the readiness surface.
	Ping(ctx context.Context) error

	Close()
}
