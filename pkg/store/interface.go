package store

// ICommitmentStore defines the interface for persisting poll state
// across restarts. All implementations must be thread-safe; the Poll
// serializes tree mutations but reads may arrive concurrently.
//
// The interface supports:
// - Commitment lifecycle (append, remove, ordered listing)
// - Nullifier tracking (duplicate participation detection)
// - Reveal records (finalized choices for tallying)
// - Lifecycle management (close, health check)
//
// The ordered commitment listing is the authoritative input for
// rebuilding the commitment tree on startup: insertion order must be
// preserved exactly or the rebuilt root will not match the one voters
// hold proofs against.
type ICommitmentStore interface {
	// Commitment Management

	// AppendCommitment persists a commitment record at the end of the
	// insertion order, assigning rec.Sequence. Appending a value that
	// is already stored is a no-op (idempotent).
	// Returns error only on storage failure.
	AppendCommitment(rec *CommitmentRecord) error

	// RemoveCommitment deletes the record holding the given commitment
	// value. Idempotent - returns nil if the value is not stored.
	RemoveCommitment(value string) error

	// GetCommitmentByNullifier returns the current commitment record
	// for a nullifier, nil if the voter has no live commitment.
	// Returns error only on storage failure.
	GetCommitmentByNullifier(nullifier string) (*CommitmentRecord, error)

	// ListCommitments returns all live commitment records in insertion
	// order (ascending sequence). Returns empty slice if none exist.
	ListCommitments() ([]*CommitmentRecord, error)

	// Nullifier Tracking

	// SaveNullifier records that an identity has registered.
	// Idempotent.
	SaveNullifier(nullifier string) error

	// HasNullifier reports whether an identity has registered.
	HasNullifier(nullifier string) (bool, error)

	// Reveal Records

	// SaveReveal persists a finalized choice. A second reveal for the
	// same nullifier overwrites the first (the latest reveal is the
	// tallyable one).
	SaveReveal(rev *RevealRecord) error

	// ListReveals returns all reveal records, one per nullifier, in
	// unspecified order.
	ListReveals() ([]*RevealRecord, error)

	// Lifecycle Management

	// Close releases resources. Operations after Close return errors.
	Close() error

	// HealthCheck returns nil if the backend is reachable and usable.
	HealthCheck() error
}
