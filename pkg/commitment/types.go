package commitment

// Side indicates which side of the running hash a proof step's sibling
// occupies. It is relative to the hash computed so far while folding
// the proof, not to the original leaf position; with duplicate-node
// padding those can differ.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// ProofStep is one level of an inclusion proof: the sibling hash and
// which side it sits on when recomputing the parent.
type ProofStep struct {
	Hash     string `json:"hash"`
	Position Side   `json:"position"`
}

// Proof is a self-contained inclusion proof. Verification needs only
// this structure, never the tree it was generated from.
type Proof struct {
	// Leaf is the commitment value being proven
	Leaf string `json:"leafValue"`

	// Path contains sibling steps ordered from leaf level to root.
	// Path[0] is the leaf's sibling, Path[len-1] is just below the root.
	Path []ProofStep `json:"path"`

	// Root is the tree root the proof was generated against
	Root string `json:"root"`
}

// Tree is an ordered collection of commitment leaves with a binary
// hash tree built over them. Leaves are hex digest strings; insertion
// order determines tree shape and is preserved across rebuilds.
//
// Tree is not synchronized. Callers must serialize mutations; reads
// against a tree with no in-flight mutation are safe to run
// concurrently.
type Tree struct {
	// leaves is the ordered leaf sequence, the sole input to rebuild
	leaves []string

	// levels caches every tree level from the last rebuild.
	// levels[0] = leaves, levels[len-1] = [root]. Nil when empty.
	levels [][]string

	// root is the cached root hash, "" when the tree is empty
	root string
}
