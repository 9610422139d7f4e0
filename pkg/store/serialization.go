package store

import (
	"encoding/json"
	"fmt"
)

// MarshalCommitmentRecord serializes a CommitmentRecord to JSON bytes.
func MarshalCommitmentRecord(rec *CommitmentRecord) ([]byte, error) {
	if rec == nil {
		return nil, fmt.Errorf("cannot marshal nil CommitmentRecord")
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal CommitmentRecord to JSON: %w", err)
	}

	return data, nil
}

// UnmarshalCommitmentRecord deserializes a CommitmentRecord from JSON bytes.
func UnmarshalCommitmentRecord(data []byte) (*CommitmentRecord, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("cannot unmarshal empty data")
	}

	var rec CommitmentRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON to CommitmentRecord: %w", err)
	}

	return &rec, nil
}

// MarshalRevealRecord serializes a RevealRecord to JSON bytes.
func MarshalRevealRecord(rev *RevealRecord) ([]byte, error) {
	if rev == nil {
		return nil, fmt.Errorf("cannot marshal nil RevealRecord")
	}

	data, err := json.Marshal(rev)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal RevealRecord to JSON: %w", err)
	}

	return data, nil
}

// UnmarshalRevealRecord deserializes a RevealRecord from JSON bytes.
func UnmarshalRevealRecord(data []byte) (*RevealRecord, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("cannot unmarshal empty data")
	}

	var rev RevealRecord
	if err := json.Unmarshal(data, &rev); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON to RevealRecord: %w", err)
	}

	return &rev, nil
}
