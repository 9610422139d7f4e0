package memory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ballotproof/ballotproof-go/pkg/store"
)

// MemoryStore is an in-memory implementation of ICommitmentStore.
// This implementation is intended for TESTING ONLY.
//
// All data is stored in memory and will be lost when the process exits.
// Thread-safe using sync.RWMutex for concurrent access.
// Deep copies data to prevent external mutation.
type MemoryStore struct {
	mu sync.RWMutex

	// Commitment storage: value -> record
	commitments map[string]*store.CommitmentRecord

	// Nullifier index: nullifier -> live commitment value
	byNullifier map[string]string

	// Registered nullifiers
	nullifiers map[string]struct{}

	// Reveal storage: nullifier -> record
	reveals map[string]*store.RevealRecord

	// Next insertion sequence
	nextSeq uint64

	// Closed flag
	closed bool
}

// NewMemoryStore creates a new in-memory commitment store.
// Prints a loud warning since this should only be used for testing.
func NewMemoryStore() *MemoryStore {
	fmt.Println("⚠️  WARNING: Using in-memory store - ALL DATA WILL BE LOST ON RESTART")
	fmt.Println("⚠️  This should ONLY be used for testing. Set POLL_STORE_TYPE=badger for production")

	return &MemoryStore{
		commitments: make(map[string]*store.CommitmentRecord),
		byNullifier: make(map[string]string),
		nullifiers:  make(map[string]struct{}),
		reveals:     make(map[string]*store.RevealRecord),
	}
}

// AppendCommitment persists a commitment record, assigning its sequence.
func (m *MemoryStore) AppendCommitment(rec *store.CommitmentRecord) error {
	if rec == nil {
		return fmt.Errorf("cannot save nil CommitmentRecord")
	}
	if rec.Value == "" {
		return fmt.Errorf("cannot save CommitmentRecord with empty value")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("store is closed")
	}

	// Idempotent by commitment value
	if _, exists := m.commitments[rec.Value]; exists {
		return nil
	}

	rec.Sequence = m.nextSeq
	m.nextSeq++

	// Deep copy to prevent external mutation
	stored := *rec
	m.commitments[rec.Value] = &stored
	if rec.Nullifier != "" {
		m.byNullifier[rec.Nullifier] = rec.Value
	}

	return nil
}

// RemoveCommitment deletes a commitment record by value.
func (m *MemoryStore) RemoveCommitment(value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("store is closed")
	}

	rec, exists := m.commitments[value]
	if !exists {
		return nil // Not found is not an error
	}

	delete(m.commitments, value)
	if rec.Nullifier != "" && m.byNullifier[rec.Nullifier] == value {
		delete(m.byNullifier, rec.Nullifier)
	}

	return nil
}

// GetCommitmentByNullifier returns the live commitment for a nullifier.
func (m *MemoryStore) GetCommitmentByNullifier(nullifier string) (*store.CommitmentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("store is closed")
	}

	value, exists := m.byNullifier[nullifier]
	if !exists {
		return nil, nil // Not found is not an error
	}

	rec := *m.commitments[value]
	return &rec, nil
}

// ListCommitments returns all commitment records in insertion order.
func (m *MemoryStore) ListCommitments() ([]*store.CommitmentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("store is closed")
	}

	records := make([]*store.CommitmentRecord, 0, len(m.commitments))
	for _, rec := range m.commitments {
		copied := *rec
		records = append(records, &copied)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Sequence < records[j].Sequence
	})

	return records, nil
}

// SaveNullifier records a registered identity.
func (m *MemoryStore) SaveNullifier(nullifier string) error {
	if nullifier == "" {
		return fmt.Errorf("cannot save empty nullifier")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("store is closed")
	}

	m.nullifiers[nullifier] = struct{}{}
	return nil
}

// HasNullifier reports whether an identity has registered.
func (m *MemoryStore) HasNullifier(nullifier string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return false, fmt.Errorf("store is closed")
	}

	_, exists := m.nullifiers[nullifier]
	return exists, nil
}

// SaveReveal persists a finalized choice, overwriting any earlier
// reveal from the same nullifier.
func (m *MemoryStore) SaveReveal(rev *store.RevealRecord) error {
	if rev == nil {
		return fmt.Errorf("cannot save nil RevealRecord")
	}
	if rev.Nullifier == "" {
		return fmt.Errorf("cannot save RevealRecord with empty nullifier")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("store is closed")
	}

	stored := *rev
	m.reveals[rev.Nullifier] = &stored
	return nil
}

// ListReveals returns all reveal records.
func (m *MemoryStore) ListReveals() ([]*store.RevealRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("store is closed")
	}

	records := make([]*store.RevealRecord, 0, len(m.reveals))
	for _, rev := range m.reveals {
		copied := *rev
		records = append(records, &copied)
	}

	return records, nil
}

// Close marks the store closed.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}

// HealthCheck returns nil if the store is usable.
func (m *MemoryStore) HealthCheck() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return fmt.Errorf("store is closed")
	}

	return nil
}

// Ensure MemoryStore implements ICommitmentStore
var _ store.ICommitmentStore = (*MemoryStore)(nil)
