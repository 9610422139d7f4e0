package commitment

import (
	"fmt"

	"github.com/ballotproof/ballotproof-go/pkg/hashing"
)

// NewTree creates an empty commitment tree.
func NewTree() *Tree {
	return &Tree{}
}

// NewTreeFromLeaves rebuilds a tree from a previously persisted leaf
// sequence. Order is preserved; duplicate values are dropped the same
// way repeated Insert calls would drop them.
func NewTreeFromLeaves(leaves []string) *Tree {
	t := &Tree{}
	seen := make(map[string]struct{}, len(leaves))
	for _, leaf := range leaves {
		if _, ok := seen[leaf]; ok {
			continue
		}
		seen[leaf] = struct{}{}
		t.leaves = append(t.leaves, leaf)
	}
	t.rebuild()
	return t
}

// Insert appends a commitment to the leaf sequence and rebuilds the
// tree. Inserting a value that is already present is a no-op; the
// return value reports whether the tree changed.
func (t *Tree) Insert(leaf string) bool {
	if t.indexOf(leaf) >= 0 {
		return false
	}
	t.leaves = append(t.leaves, leaf)
	t.rebuild()
	return true
}

// Remove deletes a commitment from the leaf sequence, preserving the
// relative order of the remaining leaves, and rebuilds the tree.
// Removing an absent value is a no-op; the return value reports
// whether the tree changed.
func (t *Tree) Remove(leaf string) bool {
	idx := t.indexOf(leaf)
	if idx < 0 {
		return false
	}
	t.leaves = append(t.leaves[:idx], t.leaves[idx+1:]...)
	t.rebuild()
	return true
}

// Root returns the current root hash. ok is false when the tree has no
// leaves.
func (t *Tree) Root() (root string, ok bool) {
	if len(t.leaves) == 0 {
		return "", false
	}
	return t.root, true
}

// Leaves returns a copy of the ordered leaf sequence. Mutating the
// returned slice does not affect the tree.
func (t *Tree) Leaves() []string {
	out := make([]string, len(t.leaves))
	copy(out, t.leaves)
	return out
}

// Len returns the current leaf count.
func (t *Tree) Len() int {
	return len(t.leaves)
}

// rebuild recomputes every tree level from the current leaf sequence.
// The new levels are built off to the side and swapped in only once
// complete, so a failed rebuild can never leave a half-updated tree.
//
// If a level has an odd number of nodes, the last node is paired with
// itself. This duplicate-node padding affects both the root value and
// proof shape and must match proof generation exactly.
func (t *Tree) rebuild() {
	if len(t.leaves) == 0 {
		t.levels = nil
		t.root = ""
		return
	}

	levels := make([][]string, 0)
	currentLevel := make([]string, len(t.leaves))
	copy(currentLevel, t.leaves)
	levels = append(levels, currentLevel)

	for len(currentLevel) > 1 {
		nextLevel := make([]string, 0, (len(currentLevel)+1)/2)

		for i := 0; i < len(currentLevel); i += 2 {
			left := currentLevel[i]
			right := left
			if i+1 < len(currentLevel) {
				right = currentLevel[i+1]
			}
			nextLevel = append(nextLevel, hashing.HashPair(left, right))
		}

		levels = append(levels, nextLevel)
		currentLevel = nextLevel
	}

	t.levels = levels
	t.root = currentLevel[0]
}

// GenerateProof builds an inclusion proof for the given commitment.
// ok is false when the value is not a current leaf or the tree is
// empty; callers must treat that as "cannot prove membership", not as
// a fault.
//
// The walk mirrors rebuild's pairing rule level by level: at each
// level the sibling opposite the tracked node is recorded, with the
// side it occupies relative to the running hash. A node alone at the
// end of an odd level is its own sibling.
func (t *Tree) GenerateProof(leaf string) (*Proof, bool) {
	index := t.indexOf(leaf)
	if index < 0 || len(t.levels) == 0 {
		return nil, false
	}

	path := make([]ProofStep, 0, len(t.levels)-1)

	for level := 0; level < len(t.levels)-1; level++ {
		currentLevel := t.levels[level]

		if index%2 == 0 {
			// Tracked node is the left member; sibling is on the right.
			siblingIndex := index + 1
			if siblingIndex >= len(currentLevel) {
				// Odd level end: the node is paired with itself.
				siblingIndex = index
			}
			path = append(path, ProofStep{Hash: currentLevel[siblingIndex], Position: SideRight})
		} else {
			path = append(path, ProofStep{Hash: currentLevel[index-1], Position: SideLeft})
		}

		index = index / 2
	}

	return &Proof{
		Leaf: leaf,
		Path: path,
		Root: t.root,
	}, true
}

// VerifyProof checks an inclusion proof by folding the path onto the
// leaf value and comparing the result against the claimed root. It is
// a pure function: a party holding only the proof can run it.
//
// Returning false means the proof is cryptographically invalid
// (tampered or stale). A structurally malformed proof is a caller
// programming error and panics instead, so the two failure modes are
// never confused.
func VerifyProof(proof *Proof) bool {
	if proof == nil {
		panic("commitment: VerifyProof called with nil proof")
	}
	if proof.Leaf == "" || proof.Root == "" {
		panic("commitment: proof is missing leaf or root")
	}

	current := proof.Leaf
	for i, step := range proof.Path {
		if step.Hash == "" {
			panic(fmt.Sprintf("commitment: proof step %d has empty hash", i))
		}
		switch step.Position {
		case SideLeft:
			current = hashing.HashPair(step.Hash, current)
		case SideRight:
			current = hashing.HashPair(current, step.Hash)
		default:
			panic(fmt.Sprintf("commitment: proof step %d has invalid position %q", i, step.Position))
		}
	}

	return current == proof.Root
}

// indexOf returns the position of a leaf in the sequence, -1 if absent.
func (t *Tree) indexOf(leaf string) int {
	for i, l := range t.leaves {
		if l == leaf {
			return i
		}
	}
	return -1
}
