package block

import (
	"crypto/sha256"

	"emberchain/types/ids"
)

// EmptyMerkleRoot is the root of a block with no transactions: the
// SHA-256 of the empty byte sequence.
var EmptyMerkleRoot = ids.NewID(nil)

// MerkleRoot computes the Merkle root of leaves level by level. Odd
// levels duplicate their last node. A single leaf is its own root.
func MerkleRoot(leaves []ids.ID) ids.ID {
	n := len(leaves)
	if n == 0 {
		return EmptyMerkleRoot
	}
	level := make([]ids.ID, n)
	copy(level, leaves)
	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		next := make([]ids.ID, 0, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			h := sha256.New()
			h.Write(level[i][:])
			h.Write(level[i+1][:])
			var parent ids.ID
			copy(parent[:], h.Sum(nil))
			next = append(next, parent)
		}
		level = next
	}
	return level[0]
}

// TransactionsRoot returns the Merkle root over the transaction IDs.
func TransactionsRoot(txs []Transaction) ids.ID {
	leaves := make([]ids.ID, len(txs))
	for i := range txs {
		leaves[i] = txs[i].ID()
	}
	return MerkleRoot(leaves)
}
