package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Digest computes the SHA-256 hash of the input and returns it as a
// lowercase hex string. This is the single digest primitive used for
// commitments, nullifiers and tree node hashing.
func Digest(data string) string {
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}

// Nullifier derives the duplicate-participation marker for a voter.
// It depends only on the secret identity, never on the choice, so the
// same voter always produces the same nullifier regardless of how they
// vote.
//
// Input layout: "nullifier:" + secretIdentity. Any independently built
// verifier must reproduce this byte-for-byte.
func Nullifier(secretIdentity string) string {
	return Digest("nullifier:" + secretIdentity)
}

// Commitment binds a secret identity, a choice and a salt into a single
// digest. The salt hides the choice from dictionary attacks over the
// (small) choice space; callers needing unlinkability must supply a
// high-entropy salt.
//
// Input layout: secretIdentity + ":" + choice + ":" + salt.
func Commitment(secretIdentity, choice, salt string) string {
	return Digest(secretIdentity + ":" + choice + ":" + salt)
}

// CommitmentWithDefaultSalt computes a commitment using a coarse
// wall-clock salt (unix seconds). The result is NOT reproducible later
// unless the caller records the returned salt, so the salt is returned
// alongside the commitment.
func CommitmentWithDefaultSalt(secretIdentity, choice string) (commitment, salt string) {
	salt = fmt.Sprintf("%d", time.Now().Unix())
	return Commitment(secretIdentity, choice, salt), salt
}

// HashPair computes the parent hash of two sibling node hashes.
// Plain concatenation, no separator; order is significant.
func HashPair(left, right string) string {
	return Digest(left + right)
}
