package badger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ballotproof/ballotproof-go/pkg/store"
)

func newTestStore(t *testing.T) *BadgerStore {
	t.Helper()

	bs, err := NewBadgerStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = bs.Close() })
	return bs
}

func testRecord(value, nullifier string) *store.CommitmentRecord {
	return &store.CommitmentRecord{
		ID:        "rec-" + value,
		Value:     value,
		Nullifier: nullifier,
		CreatedAt: 1700000000,
	}
}

func TestBadgerStore_AppendAndList(t *testing.T) {
	bs := newTestStore(t)

	require.NoError(t, bs.AppendCommitment(testRecord("c1", "n1")))
	require.NoError(t, bs.AppendCommitment(testRecord("c2", "n2")))
	require.NoError(t, bs.AppendCommitment(testRecord("c3", "n3")))

	records, err := bs.ListCommitments()
	require.NoError(t, err)
	require.Len(t, records, 3)

	// Insertion order preserved across the key iteration
	assert.Equal(t, "c1", records[0].Value)
	assert.Equal(t, "c2", records[1].Value)
	assert.Equal(t, "c3", records[2].Value)
}

func TestBadgerStore_AppendIdempotent(t *testing.T) {
	bs := newTestStore(t)

	require.NoError(t, bs.AppendCommitment(testRecord("c1", "n1")))
	require.NoError(t, bs.AppendCommitment(testRecord("c1", "n1")))

	records, err := bs.ListCommitments()
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestBadgerStore_RemovePreservesOrder(t *testing.T) {
	bs := newTestStore(t)

	require.NoError(t, bs.AppendCommitment(testRecord("c1", "n1")))
	require.NoError(t, bs.AppendCommitment(testRecord("c2", "n2")))
	require.NoError(t, bs.AppendCommitment(testRecord("c3", "n3")))

	require.NoError(t, bs.RemoveCommitment("c2"))

	records, err := bs.ListCommitments()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "c1", records[0].Value)
	assert.Equal(t, "c3", records[1].Value)

	// Idempotent
	require.NoError(t, bs.RemoveCommitment("c2"))
}

func TestBadgerStore_GetCommitmentByNullifier(t *testing.T) {
	bs := newTestStore(t)

	require.NoError(t, bs.AppendCommitment(testRecord("c1", "n1")))

	rec, err := bs.GetCommitmentByNullifier("n1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "c1", rec.Value)

	rec, err = bs.GetCommitmentByNullifier("unknown")
	require.NoError(t, err)
	assert.Nil(t, rec)

	require.NoError(t, bs.RemoveCommitment("c1"))
	rec, err = bs.GetCommitmentByNullifier("n1")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestBadgerStore_Nullifiers(t *testing.T) {
	bs := newTestStore(t)

	has, err := bs.HasNullifier("n1")
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, bs.SaveNullifier("n1"))

	has, err = bs.HasNullifier("n1")
	require.NoError(t, err)
	assert.True(t, has)
}

func TestBadgerStore_Reveals(t *testing.T) {
	bs := newTestStore(t)

	require.NoError(t, bs.SaveReveal(&store.RevealRecord{
		ID: "r1", Nullifier: "n1", Commitment: "c1", Choice: "yes", RevealedAt: 1700000000,
	}))
	require.NoError(t, bs.SaveReveal(&store.RevealRecord{
		ID: "r2", Nullifier: "n1", Commitment: "c2", Choice: "no", RevealedAt: 1700000100,
	}))

	reveals, err := bs.ListReveals()
	require.NoError(t, err)
	require.Len(t, reveals, 1)
	assert.Equal(t, "no", reveals[0].Choice)
}

func TestBadgerStore_PersistenceAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	bs, err := NewBadgerStore(dir, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, bs.AppendCommitment(testRecord("c1", "n1")))
	require.NoError(t, bs.AppendCommitment(testRecord("c2", "n2")))
	require.NoError(t, bs.Close())

	reopened, err := NewBadgerStore(dir, zap.NewNop())
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	records, err := reopened.ListCommitments()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "c1", records[0].Value)
	assert.Equal(t, "c2", records[1].Value)

	// Sequence counter survives too
	rec := testRecord("c3", "n3")
	require.NoError(t, reopened.AppendCommitment(rec))
	assert.Equal(t, uint64(2), rec.Sequence)
}

func TestBadgerStore_Close(t *testing.T) {
	bs, err := NewBadgerStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, bs.Close())
	require.NoError(t, bs.Close()) // Idempotent

	assert.Error(t, bs.AppendCommitment(testRecord("c1", "n1")))
	assert.Error(t, bs.HealthCheck())
}

func TestBadgerStore_HealthCheck(t *testing.T) {
	bs := newTestStore(t)
	require.NoError(t, bs.HealthCheck())
}
