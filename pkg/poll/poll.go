package poll

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ballotproof/ballotproof-go/pkg/commitment"
	"github.com/ballotproof/ballotproof-go/pkg/hashing"
	"github.com/ballotproof/ballotproof-go/pkg/store"
)

// Service-level error conditions. Handlers map these to HTTP status
// codes; everything else is a storage or internal failure.
var (
	ErrAlreadyRegistered = errors.New("identity already registered")
	ErrNotRegistered     = errors.New("identity not registered")
	ErrInvalidChoice     = errors.New("choice not in poll choice set")
	ErrRevealMismatch    = errors.New("revealed choice does not open a current commitment")
)

// Config configures a Poll.
type Config struct {
	// ID identifies the poll; a UUID is generated if empty
	ID string

	// Question is the poll question, informational only
	Question string

	// Choices is an optional closed choice set. Empty means any
	// choice string is accepted.
	Choices []string

	// Store persists commitments, nullifiers and reveals
	Store store.ICommitmentStore

	// Logger is optional; a no-op logger is used if nil
	Logger *zap.Logger
}

// Poll runs one anonymous vote: registration, commitment casting and
// updating, inclusion proofs, and reveal-based tallying.
//
// The commitment tree requires at most one in-flight mutation at a
// time; Poll enforces that discipline with an internal RWMutex, so a
// single Poll instance is safe for concurrent callers.
type Poll struct {
	ID       string
	Question string

	choices map[string]struct{}
	store   store.ICommitmentStore
	logger  *zap.Logger

	mu   sync.RWMutex
	tree *commitment.Tree
}

// CastResult reports the tree state published after a cast.
type CastResult struct {
	// Commitment is the leaf value now standing for the voter's choice
	Commitment string `json:"commitment"`

	// Salt is the salt the commitment was computed with. Voters must
	// keep it to reveal or re-derive the commitment later.
	Salt string `json:"salt"`

	// Root is the tree root after the mutation, "" if the tree is empty
	Root string `json:"root"`

	// LeafCount is the number of live commitments after the mutation
	LeafCount int `json:"leafCount"`

	// Updated is true when this cast replaced an earlier commitment
	// from the same voter
	Updated bool `json:"updated"`
}

// New creates a Poll and seeds its commitment tree from the store's
// ordered commitment history, so roots survive process restarts.
func New(cfg Config) (*Poll, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("poll requires a commitment store")
	}

	id := cfg.ID
	if id == "" {
		id = uuid.New().String()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var choices map[string]struct{}
	if len(cfg.Choices) > 0 {
		choices = make(map[string]struct{}, len(cfg.Choices))
		for _, c := range cfg.Choices {
			choices[c] = struct{}{}
		}
	}

	records, err := cfg.Store.ListCommitments()
	if err != nil {
		return nil, fmt.Errorf("failed to load commitment history: %w", err)
	}

	leaves := make([]string, 0, len(records))
	for _, rec := range records {
		leaves = append(leaves, rec.Value)
	}

	p := &Poll{
		ID:       id,
		Question: cfg.Question,
		choices:  choices,
		store:    cfg.Store,
		logger:   logger,
		tree:     commitment.NewTreeFromLeaves(leaves),
	}

	root, _ := p.tree.Root()
	logger.Sugar().Infow("Poll initialized",
		"poll_id", id, "leaf_count", p.tree.Len(), "root", root)

	return p, nil
}

// Register records a voter's nullifier. The nullifier is derived from
// the secret identity alone, so a second registration attempt by the
// same identity is detected without learning anything about choices.
func (p *Poll) Register(secretIdentity string) (string, error) {
	nullifier := hashing.Nullifier(secretIdentity)

	exists, err := p.store.HasNullifier(nullifier)
	if err != nil {
		return "", fmt.Errorf("failed to check nullifier: %w", err)
	}
	if exists {
		return "", ErrAlreadyRegistered
	}

	if err := p.store.SaveNullifier(nullifier); err != nil {
		return "", fmt.Errorf("failed to save nullifier: %w", err)
	}

	p.logger.Sugar().Infow("Voter registered", "poll_id", p.ID, "nullifier", nullifier)
	return nullifier, nil
}

// Cast commits a voter to a choice. A repeat cast by the same voter is
// a vote update: the previous commitment is removed and the new one
// inserted, changing the root deterministically. Casting the exact
// same commitment twice is a no-op.
//
// If salt is empty a coarse wall-clock salt is generated; the salt in
// use is always returned so the voter can reveal later.
func (p *Poll) Cast(secretIdentity, choice, salt string) (*CastResult, error) {
	if p.choices != nil {
		if _, ok := p.choices[choice]; !ok {
			return nil, ErrInvalidChoice
		}
	}

	nullifier := hashing.Nullifier(secretIdentity)

	registered, err := p.store.HasNullifier(nullifier)
	if err != nil {
		return nil, fmt.Errorf("failed to check nullifier: %w", err)
	}
	if !registered {
		return nil, ErrNotRegistered
	}

	var value string
	if salt == "" {
		value, salt = hashing.CommitmentWithDefaultSalt(secretIdentity, choice)
	} else {
		value = hashing.Commitment(secretIdentity, choice, salt)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	existing, err := p.store.GetCommitmentByNullifier(nullifier)
	if err != nil {
		return nil, fmt.Errorf("failed to look up existing commitment: %w", err)
	}

	updated := false
	if existing != nil {
		if existing.Value == value {
			// Re-submitting the identical commitment changes nothing
			root, _ := p.tree.Root()
			return &CastResult{
				Commitment: value,
				Salt:       salt,
				Root:       root,
				LeafCount:  p.tree.Len(),
			}, nil
		}

		// Vote update: retire the old commitment first
		if err := p.store.RemoveCommitment(existing.Value); err != nil {
			return nil, fmt.Errorf("failed to remove superseded commitment: %w", err)
		}
		p.tree.Remove(existing.Value)
		updated = true
	}

	rec := &store.CommitmentRecord{
		ID:        uuid.New().String(),
		Value:     value,
		Nullifier: nullifier,
		CreatedAt: time.Now().Unix(),
	}
	if err := p.store.AppendCommitment(rec); err != nil {
		return nil, fmt.Errorf("failed to persist commitment: %w", err)
	}
	p.tree.Insert(value)

	root, _ := p.tree.Root()
	p.logger.Sugar().Infow("Vote cast",
		"poll_id", p.ID, "nullifier", nullifier, "commitment", value,
		"updated", updated, "root", root, "leaf_count", p.tree.Len())

	return &CastResult{
		Commitment: value,
		Salt:       salt,
		Root:       root,
		LeafCount:  p.tree.Len(),
		Updated:    updated,
	}, nil
}

// Root returns the current tree root; ok is false when no commitments
// are live.
func (p *Poll) Root() (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.tree.Root()
}

// LeafCount returns the number of live commitments.
func (p *Poll) LeafCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.tree.Len()
}

// Leaves returns the ordered live commitment values.
func (p *Poll) Leaves() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.tree.Leaves()
}

// ProveInclusion generates an inclusion proof for a commitment value.
// ok is false when the value is not a live leaf; that means "cannot
// prove membership", not a fault.
func (p *Poll) ProveInclusion(value string) (*commitment.Proof, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.tree.GenerateProof(value)
}

// Reveal finalizes a voter's choice. The voter supplies the opening
// (identity, choice, salt); the recomputed commitment must be a live
// leaf or the reveal is rejected with ErrRevealMismatch. A later
// reveal by the same voter supersedes an earlier one.
func (p *Poll) Reveal(secretIdentity, choice, salt string) (*store.RevealRecord, error) {
	nullifier := hashing.Nullifier(secretIdentity)
	value := hashing.Commitment(secretIdentity, choice, salt)

	p.mu.RLock()
	_, present := p.tree.GenerateProof(value)
	p.mu.RUnlock()
	if !present {
		return nil, ErrRevealMismatch
	}

	rev := &store.RevealRecord{
		ID:         uuid.New().String(),
		Nullifier:  nullifier,
		Commitment: value,
		Choice:     choice,
		RevealedAt: time.Now().Unix(),
	}
	if err := p.store.SaveReveal(rev); err != nil {
		return nil, fmt.Errorf("failed to persist reveal: %w", err)
	}

	p.logger.Sugar().Infow("Choice revealed",
		"poll_id", p.ID, "nullifier", nullifier, "commitment", value)

	return rev, nil
}

// Tally counts finalized choices, one per nullifier.
func (p *Poll) Tally() (map[string]int, error) {
	reveals, err := p.store.ListReveals()
	if err != nil {
		return nil, fmt.Errorf("failed to list reveals: %w", err)
	}

	counts := make(map[string]int, len(reveals))
	for _, rev := range reveals {
		counts[rev.Choice]++
	}

	return counts, nil
}
