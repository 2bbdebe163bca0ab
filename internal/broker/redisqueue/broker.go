// Package redisqueue implements interfaces.Broker over a Redis list-based
// queue: q:pending -> q:processing, with per-job payload/meta/status keys.
package redisqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bobmcallan/satqueue/internal/common"
	"github.com/bobmcallan/satqueue/internal/models"
)

const (
	pendingQueue    = "q:pending"
	processingQueue = "q:processing"
	// deadQueue is reserved for a future retry/reaper pass; no operation
	// moves entries into it yet.
	deadQueue = "q:dead"
)

func payloadKey(runID int64) string { return fmt.Sprintf("job:%d:payload", runID) }
func metaKey(runID int64) string    { return fmt.Sprintf("job:%d:meta", runID) }
func statusKey(runID int64) string  { return fmt.Sprintf("job:%d:status", runID) }

// Broker is the Redis-backed implementation of interfaces.Broker.
type Broker struct {
	client *redis.Client
	logger *common.Logger
	jobTTL time.Duration
}

// NewBroker dials Redis per cfg and verifies connectivity with a ping.
func NewBroker(logger *common.Logger, cfg *common.BrokerConfig) (*Broker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		DB:           cfg.DB,
		Password:     cfg.Password,
		PoolSize:     cfg.PoolMax,
		DialTimeout:  cfg.GetSocketTimeout(),
		ReadTimeout:  cfg.GetSocketTimeout(),
		WriteTimeout: cfg.GetSocketTimeout(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping broker: %w", err)
	}

	logger.Info().Str("addr", cfg.Addr()).Int("db", cfg.DB).Msg("Broker connected")

	return &Broker{client: client, logger: logger, jobTTL: cfg.GetJobTTL()}, nil
}

// Enqueue writes the payload, metadata, and status keys and right-pushes
// run_id onto q:pending in a single pipelined transaction.
func (b *Broker) Enqueue(ctx context.Context, payload *models.JobPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode job payload: %w", err)
	}

	now := time.Now().Unix()
	runIDStr := strconv.FormatInt(payload.RunID, 10)

	_, err = b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, payloadKey(payload.RunID), body, b.jobTTL)
		pipe.HSet(ctx, metaKey(payload.RunID), map[string]interface{}{
			"attempts":        0,
			"created_at":      now,
			"last_claimed_at": 0,
		})
		pipe.Set(ctx, statusKey(payload.RunID), string(models.RunStatusQueued), b.jobTTL)
		pipe.RPush(ctx, pendingQueue, runIDStr)
		return nil
	})
	if err != nil {
		return fmt.Errorf("enqueue run_id=%d: %w", payload.RunID, err)
	}
	return nil
}

// Claim blocks up to timeout for a run id to appear in q:pending, moving it
// atomically to q:processing via BRPOPLPUSH, then loads its payload. A
// poison entry: a run id that fails to parse, or a payload that is missing
// or fails to decode, is removed from q:processing and reported as a clean
// miss rather than an error, matching the non-fatal metadata-bump policy
// below.
func (b *Broker) Claim(ctx context.Context, timeout time.Duration) (*models.JobPayload, error) {
	runIDStr, err := b.client.BRPopLPush(ctx, pendingQueue, processingQueue, timeout).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim: brpoplpush: %w", err)
	}

	runID, err := strconv.ParseInt(runIDStr, 10, 64)
	if err != nil {
		b.logger.Error().Str("raw", runIDStr).Msg("claimed non-integer run_id from broker")
		b.cleanupProcessing(ctx, runIDStr)
		return nil, nil
	}

	payloadJSON, err := b.client.Get(ctx, payloadKey(runID)).Result()
	if errors.Is(err, redis.Nil) {
		b.logger.Error().Int64("run_id", runID).Msg("payload missing for claimed run_id")
		b.cleanupProcessing(ctx, runIDStr)
		return nil, nil
	}
	if err != nil {
		b.cleanupProcessing(ctx, runIDStr)
		return nil, fmt.Errorf("claim: get payload run_id=%d: %w", runID, err)
	}

	var payload models.JobPayload
	if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
		b.logger.Error().Int64("run_id", runID).Err(err).Msg("invalid payload JSON for claimed run_id")
		b.cleanupProcessing(ctx, runIDStr)
		return nil, nil
	}

	// Metadata bump is best effort: a failure here must not stop the job
	// from being handed to the caller.
	now := time.Now().Unix()
	if _, metaErr := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, metaKey(runID), map[string]interface{}{"last_claimed_at": now})
		pipe.HIncrBy(ctx, metaKey(runID), "attempts", 1)
		return nil
	}); metaErr != nil {
		b.logger.Warn().Int64("run_id", runID).Err(metaErr).Msg("failed to update claim metadata (non-fatal)")
	}

	return &payload, nil
}

func (b *Broker) cleanupProcessing(ctx context.Context, runIDStr string) {
	if err := b.client.LRem(ctx, processingQueue, 1, runIDStr).Err(); err != nil {
		b.logger.Warn().Str("raw", runIDStr).Err(err).Msg("failed to clean up processing queue entry")
	}
}

// Ack removes run_id from q:processing and deletes its payload and
// metadata keys.
func (b *Broker) Ack(ctx context.Context, runID int64) error {
	runIDStr := strconv.FormatInt(runID, 10)
	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, processingQueue, 1, runIDStr)
		pipe.Del(ctx, payloadKey(runID))
		pipe.Del(ctx, metaKey(runID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("ack run_id=%d: %w", runID, err)
	}
	return nil
}

// Fail removes run_id from q:processing and records failed_at/last_error in
// its metadata, without requeueing. The caller (the worker) is
// responsible for reflecting the failure in the store.
func (b *Broker) Fail(ctx context.Context, runID int64, reason string) error {
	runIDStr := strconv.FormatInt(runID, 10)
	now := time.Now().Unix()
	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, processingQueue, 1, runIDStr)
		pipe.HSet(ctx, metaKey(runID), map[string]interface{}{
			"failed_at":  now,
			"last_error": reason,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("fail run_id=%d: %w", runID, err)
	}
	return nil
}

// Ping is a trivial connectivity probe for the readiness surface.
func (b *Broker) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// Close releases the underlying client. Safe to call multiple times.
func (b *Broker) Close() {
	if b.client != nil {
		_ = b.client.Close()
	}
}
