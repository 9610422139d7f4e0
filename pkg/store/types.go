package store

// CommitmentRecord is one live commitment in the poll, carrying the
// bookkeeping the tree itself does not hold.
type CommitmentRecord struct {
	// ID uniquely identifies this record
	ID string `json:"id"`

	// Value is the commitment digest stored as a tree leaf
	Value string `json:"value"`

	// Nullifier links the record to a registered identity without
	// revealing it
	Nullifier string `json:"nullifier"`

	// Sequence is the insertion-order position, assigned by the store.
	// Sequences are monotonic and never reused, so surviving records
	// keep their relative order after removals.
	Sequence uint64 `json:"sequence"`

	// CreatedAt is the unix timestamp of insertion
	CreatedAt int64 `json:"createdAt"`
}

// RevealRecord is a finalized choice: the voter has opened their
// commitment and the opening checked out against the tree.
type RevealRecord struct {
	// ID uniquely identifies this record
	ID string `json:"id"`

	// Nullifier identifies the voter; one tallyable reveal per nullifier
	Nullifier string `json:"nullifier"`

	// Commitment is the tree leaf the reveal opened
	Commitment string `json:"commitment"`

	// Choice is the revealed vote choice
	Choice string `json:"choice"`

	// RevealedAt is the unix timestamp of finalization
	RevealedAt int64 `json:"revealedAt"`
}
