package redisqueue

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bobmcallan/satqueue/internal/common"
	"github.com/bobmcallan/satqueue/internal/models"
)

var (
	redisOnce sync.Once
	redisCfg  *common.BrokerConfig
	redisErr  error
)

func startRedis(t *testing.T) *common.BrokerConfig {
	t.Helper()

	if os.Getenv("SATQUEUE_TEST_DOCKER") != "true" {
		t.Skip("Docker-backed Redis tests disabled (set SATQUEUE_TEST_DOCKER=true to enable)")
	}

	redisOnce.Do(func() {
		ctx := context.Background()

		req := testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
		}

		container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: req,
			Started:          true,
		})
		if err != nil {
			redisErr = err
			return
		}

		host, err := container.Host(ctx)
		if err != nil {
			redisErr = err
			return
		}
		mappedPort, err := container.MappedPort(ctx, "6379/tcp")
		if err != nil {
			redisErr = err
			return
		}

		redisCfg = &common.BrokerConfig{
			Host:          host,
			Port:          mappedPort.Int(),
			PoolMax:       10,
			SocketTimeout: "5s",
			JobTTL:        "1h",
		}
	})

	require.NoError(t, redisErr)
	return redisCfg
}

func newTestBroker(t *testing.T) *Broker {
	t.Helper()
	cfg := startRedis(t)
	broker, err := NewBroker(common.NewSilentLogger(), cfg)
	require.NoError(t, err)
	t.Cleanup(broker.Close)
	return broker
}

func TestBroker_EnqueueClaimAck(t *testing.T) {
	broker := newTestBroker(t)
	ctx := context.Background()

	payload := &models.JobPayload{
		Formula:   "A B &&",
		RunID:     1001,
		FormulaID: 1,
		Mode:      models.ModeRPN,
		TimeoutS:  10,
	}
	require.NoError(t, broker.Enqueue(ctx, payload))

	claimed, err := broker.Claim(ctx, 2*time.Second)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	require.Equal(t, payload.RunID, claimed.RunID)
	require.Equal(t, payload.Formula, claimed.Formula)

	require.NoError(t, broker.Ack(ctx, payload.RunID))

	exists, err := broker.client.Exists(ctx, payloadKey(payload.RunID)).Result()
	require.NoError(t, err)
	require.Zero(t, exists)
}

func TestBroker_Claim_TimesOutOnEmptyQueue(t *testing.T) {
	broker := newTestBroker(t)

	claimed, err := broker.Claim(context.Background(), 500*time.Millisecond)
	require.NoError(t, err)
	require.Nil(t, claimed)
}

func TestBroker_Fail_RemovesFromProcessingWithoutRequeue(t *testing.T) {
	broker := newTestBroker(t)
	ctx := context.Background()

	payload := &models.JobPayload{
		Formula:   "A",
		RunID:     1002,
		FormulaID: 2,
		Mode:      models.ModeRPN,
		TimeoutS:  10,
	}
	require.NoError(t, broker.Enqueue(ctx, payload))

	_, err := broker.Claim(ctx, 2*time.Second)
	require.NoError(t, err)

	require.NoError(t, broker.Fail(ctx, payload.RunID, "solver binary missing"))

	llen, err := broker.client.LLen(ctx, processingQueue).Result()
	require.NoError(t, err)
	require.Zero(t, llen)

	// Fail does not requeue: pending stays empty, so a subsequent claim
	// times out rather than returning the failed job again.
	claimed, err := broker.Claim(ctx, 500*time.Millisecond)
	require.NoError(t, err)
	require.Nil(t, claimed)
}

func TestBroker_Claim_CleansUpPoisonPayload(t *testing.T) {
	broker := newTestBroker(t)
	ctx := context.Background()

	// Push a run id with no payload key behind it directly, bypassing
	// Enqueue, to simulate a poison entry.
	require.NoError(t, broker.client.RPush(ctx, pendingQueue, "9999").Err())

	claimed, err := broker.Claim(ctx, 2*time.Second)
	require.NoError(t, err)
	require.Nil(t, claimed)

	llen, err := broker.client.LLen(ctx, processingQueue).Result()
	require.NoError(t, err)
	require.Zero(t, llen)
}

func TestBroker_Ping(t *testing.T) {
	broker := newTestBroker(t)
	require.NoError(t, broker.Ping(context.Background()))
}
