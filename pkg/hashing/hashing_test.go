package hashing

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestDigest checks the primitive against known SHA-256 vectors.
func TestDigest(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"Empty string", "", "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
		{"Simple string", "hello", "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, Digest(tc.input))
		})
	}
}

func TestDigestDeterministic(t *testing.T) {
	require.Equal(t, Digest("same input"), Digest("same input"))
	require.NotEqual(t, Digest("input a"), Digest("input b"))
}

// TestNullifier pins the exact input construction so independently
// built verifiers stay compatible.
func TestNullifier(t *testing.T) {
	require.Equal(t,
		"daffb20db0f2ff745f73f88e2af3ce7e3422c689b1b6fcaabd1e0b059e3adb9c",
		Nullifier("alice-secret"))

	// Must match the literal concatenation rule.
	require.Equal(t, Digest("nullifier:alice-secret"), Nullifier("alice-secret"))

	// Nullifier depends only on identity, never on anything else.
	require.Equal(t, Nullifier("alice-secret"), Nullifier("alice-secret"))
	require.NotEqual(t, Nullifier("alice-secret"), Nullifier("bob-secret"))
}

func TestCommitment(t *testing.T) {
	require.Equal(t,
		"85667565fcbce4b56d391d18a79502b86a91e31efd97e2f96aabed86b2e5961a",
		Commitment("alice-secret", "yes", "salt1"))
	require.Equal(t,
		"19e1fbadca7a5d972f752449b6178b8969acd466de15a175886406fe36ced503",
		Commitment("bob-secret", "no", "salt2"))

	require.Equal(t, Digest("alice-secret:yes:salt1"), Commitment("alice-secret", "yes", "salt1"))

	// Different salt hides whether the choice changed.
	require.NotEqual(t,
		Commitment("alice-secret", "yes", "salt1"),
		Commitment("alice-secret", "yes", "salt2"))
}

func TestCommitmentWithDefaultSalt(t *testing.T) {
	before := time.Now().Unix()
	commitment, salt := CommitmentWithDefaultSalt("alice-secret", "yes")
	after := time.Now().Unix()

	// The returned salt is the wall-clock fallback.
	saltSecs, err := strconv.ParseInt(salt, 10, 64)
	require.NoError(t, err)
	require.GreaterOrEqual(t, saltSecs, before)
	require.LessOrEqual(t, saltSecs, after)

	// Recording the salt makes the commitment reproducible.
	require.Equal(t, Commitment("alice-secret", "yes", salt), commitment)
}

func TestHashPair(t *testing.T) {
	// No separator, order sensitive.
	require.Equal(t, Digest("h1h2"), HashPair("h1", "h2"))
	require.NotEqual(t, HashPair("h1", "h2"), HashPair("h2", "h1"))
}
