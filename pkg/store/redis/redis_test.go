package redis

import (
	"context"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ballotproof/ballotproof-go/pkg/logger"
	"github.com/ballotproof/ballotproof-go/pkg/store"
)

// getTestRedisAddress returns the Redis address for testing.
// Uses REDIS_TEST_ADDRESS env var if set, otherwise defaults to localhost:6379.
func getTestRedisAddress() string {
	if addr := os.Getenv("REDIS_TEST_ADDRESS"); addr != "" {
		return addr
	}
	return "localhost:6379"
}

// requireRedis returns a store against test DB 15, skipping the test
// if no Redis server is reachable.
func requireRedis(t *testing.T) *RedisStore {
	t.Helper()

	addr := getTestRedisAddress()
	probe := goredis.NewClient(&goredis.Options{Addr: addr, DB: 15})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := probe.Ping(ctx).Err(); err != nil {
		_ = probe.Close()
		t.Skipf("Redis not available at %s: %v", addr, err)
	}
	// Each test starts from a clean database
	require.NoError(t, probe.FlushDB(ctx).Err())
	_ = probe.Close()

	testLogger := logger.NewNopLogger()
	rs, err := NewRedisStore(&RedisConfig{
		Address: addr,
		DB:      15, // Use DB 15 for tests to avoid conflicts
	}, testLogger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rs.Close() })

	return rs
}

func testRecord(value, nullifier string) *store.CommitmentRecord {
	return &store.CommitmentRecord{
		ID:        "rec-" + value,
		Value:     value,
		Nullifier: nullifier,
		CreatedAt: 1700000000,
	}
}

func TestRedisStore_AppendAndList(t *testing.T) {
	rs := requireRedis(t)

	require.NoError(t, rs.AppendCommitment(testRecord("c1", "n1")))
	require.NoError(t, rs.AppendCommitment(testRecord("c2", "n2")))
	require.NoError(t, rs.AppendCommitment(testRecord("c3", "n3")))

	records, err := rs.ListCommitments()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "c1", records[0].Value)
	assert.Equal(t, "c2", records[1].Value)
	assert.Equal(t, "c3", records[2].Value)
}

func TestRedisStore_AppendIdempotent(t *testing.T) {
	rs := requireRedis(t)

	require.NoError(t, rs.AppendCommitment(testRecord("c1", "n1")))
	require.NoError(t, rs.AppendCommitment(testRecord("c1", "n1")))

	records, err := rs.ListCommitments()
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestRedisStore_RemovePreservesOrder(t *testing.T) {
	rs := requireRedis(t)

	require.NoError(t, rs.AppendCommitment(testRecord("c1", "n1")))
	require.NoError(t, rs.AppendCommitment(testRecord("c2", "n2")))
	require.NoError(t, rs.AppendCommitment(testRecord("c3", "n3")))

	require.NoError(t, rs.RemoveCommitment("c2"))
	require.NoError(t, rs.RemoveCommitment("c2")) // Idempotent

	records, err := rs.ListCommitments()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "c1", records[0].Value)
	assert.Equal(t, "c3", records[1].Value)
}

func TestRedisStore_GetCommitmentByNullifier(t *testing.T) {
	rs := requireRedis(t)

	require.NoError(t, rs.AppendCommitment(testRecord("c1", "n1")))

	rec, err := rs.GetCommitmentByNullifier("n1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "c1", rec.Value)

	rec, err = rs.GetCommitmentByNullifier("unknown")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestRedisStore_Nullifiers(t *testing.T) {
	rs := requireRedis(t)

	has, err := rs.HasNullifier("n1")
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, rs.SaveNullifier("n1"))

	has, err = rs.HasNullifier("n1")
	require.NoError(t, err)
	assert.True(t, has)
}

func TestRedisStore_Reveals(t *testing.T) {
	rs := requireRedis(t)

	require.NoError(t, rs.SaveReveal(&store.RevealRecord{
		ID: "r1", Nullifier: "n1", Commitment: "c1", Choice: "yes", RevealedAt: 1700000000,
	}))
	require.NoError(t, rs.SaveReveal(&store.RevealRecord{
		ID: "r2", Nullifier: "n1", Commitment: "c2", Choice: "no", RevealedAt: 1700000100,
	}))

	reveals, err := rs.ListReveals()
	require.NoError(t, err)
	require.Len(t, reveals, 1)
	assert.Equal(t, "no", reveals[0].Choice)
}

func TestRedisStore_Close(t *testing.T) {
	rs := requireRedis(t)

	require.NoError(t, rs.Close())
	require.NoError(t, rs.Close()) // Idempotent

	assert.Error(t, rs.AppendCommitment(testRecord("c1", "n1")))
	assert.Error(t, rs.HealthCheck())
}
