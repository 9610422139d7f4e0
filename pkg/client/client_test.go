package client

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ballotproof/ballotproof-go/pkg/commitment"
	"github.com/ballotproof/ballotproof-go/pkg/poll"
	"github.com/ballotproof/ballotproof-go/pkg/store/memory"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()

	p, err := poll.New(poll.Config{
		Question: "Approve proposal 7?",
		Store:    memory.NewMemoryStore(),
	})
	require.NoError(t, err)

	srv := httptest.NewServer(poll.NewServer(p, 0).GetHandler())
	t.Cleanup(srv.Close)

	return NewClient(srv.URL)
}

func TestClientVotingFlow(t *testing.T) {
	c := newTestClient(t)

	nullifier, err := c.Register("alice-secret")
	require.NoError(t, err)
	assert.NotEmpty(t, nullifier)

	// Duplicate registration surfaces the server's rejection
	_, err = c.Register("alice-secret")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "409")

	result, err := c.Vote("alice-secret", "yes", "salt1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.LeafCount)
	assert.Equal(t, result.Commitment, result.Root)

	root, err := c.Root()
	require.NoError(t, err)
	assert.Equal(t, result.Root, root.Root)

	proof, err := c.Proof(result.Commitment)
	require.NoError(t, err)
	assert.True(t, commitment.VerifyProof(proof))

	valid, err := c.Verify(proof)
	require.NoError(t, err)
	assert.True(t, valid)

	// Tampered proof comes back invalid, not as an error
	tampered := *proof
	tampered.Root = "0" + tampered.Root[1:]
	valid, err = c.Verify(&tampered)
	require.NoError(t, err)
	assert.False(t, valid)

	_, err = c.Reveal("alice-secret", "yes", "salt1")
	require.NoError(t, err)

	counts, err := c.Tally()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"yes": 1}, counts)
}

func TestClientProofNotFound(t *testing.T) {
	c := newTestClient(t)

	_, err := c.Proof("deadbeef")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestClientRetriesTransportFailures(t *testing.T) {
	c := NewClient("http://127.0.0.1:1") // Nothing listens here
	c.retryConfig = RetryConfig{
		MaxAttempts:     2,
		InitialBackoff:  1,
		MaxBackoff:      1,
		BackoffMultiple: 1,
	}

	_, err := c.Root()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
}
