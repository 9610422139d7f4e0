package commitment

import (
	"fmt"
	"testing"
)

// benchLeaves generates n random leaf values for benchmarks.
func benchLeaves(n int) []string {
	leaves := make([]string, n)
	for i := range leaves {
		leaves[i] = randomLeaf()
	}
	return leaves
}

// BenchmarkTreeRebuild benchmarks the full rebuild triggered by every
// mutation, across tree sizes.
func BenchmarkTreeRebuild(b *testing.B) {
	sizes := []int{10, 50, 100, 200}

	for _, size := range sizes {
		b.Run(fmt.Sprintf("Leaves_%d", size), func(b *testing.B) {
			leaves := benchLeaves(size)
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				_ = NewTreeFromLeaves(leaves)
			}
		})
	}
}

// BenchmarkGenerateProof benchmarks proof generation.
func BenchmarkGenerateProof(b *testing.B) {
	sizes := []int{10, 50, 100, 200}

	for _, size := range sizes {
		leaves := benchLeaves(size)
		tree := NewTreeFromLeaves(leaves)

		b.Run(fmt.Sprintf("Leaves_%d", size), func(b *testing.B) {
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				_, _ = tree.GenerateProof(leaves[i%size])
			}
		})
	}
}

// BenchmarkVerifyProof benchmarks proof verification.
func BenchmarkVerifyProof(b *testing.B) {
	sizes := []int{10, 50, 100, 200}

	for _, size := range sizes {
		leaves := benchLeaves(size)
		tree := NewTreeFromLeaves(leaves)
		proof, _ := tree.GenerateProof(leaves[0])

		b.Run(fmt.Sprintf("Leaves_%d", size), func(b *testing.B) {
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				_ = VerifyProof(proof)
			}
		})
	}
}
