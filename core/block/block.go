package block

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"emberchain/core"
	"emberchain/types/ids"
)

// GenesisPrevHash is the previous-hash sentinel carried by block 0.
const GenesisPrevHash = "0"

var (
	ErrHashMismatch   = fmt.Errorf("%w: block hash mismatch", core.ErrValidationFailed)
	ErrMerkleMismatch = fmt.Errorf("%w: merkle root mismatch", core.ErrValidationFailed)
	ErrEmptyBlock     = errors.New("empty block data")
)

type Block struct {
	Index        uint64        `json:"index"`        // Block height (genesis = 0)
	Timestamp    time.Time     `json:"timestamp"`    // UTC
	Transactions []Transaction `json:"transactions"` // Ordered transaction batch
	PrevHash     string        `json:"prevHash"`     // Hex hash of the parent block
	MerkleRoot   string        `json:"merkleRoot"`   // Hex Merkle root of transaction IDs
	Nonce        uint64        `json:"nonce"`
	Proposer     string        `json:"proposer"` // Address of the proposing validator
	Hash         ids.ID        `json:"hash"`     // Cached ComputeHash result
}

// NewBlock assembles a block and fills in its Merkle root and hash.
func NewBlock(index uint64, prevHash string, txs []Transaction, proposer string, ts time.Time) *Block {
	if txs == nil {
		txs = []Transaction{}
	}
	b := &Block{
		Index:        index,
		Timestamp:    ts.UTC(),
		Transactions: txs,
		PrevHash:     prevHash,
		Proposer:     proposer,
	}
	b.MerkleRoot = TransactionsRoot(txs).String()
	b.Hash = b.ComputeHash()
	return b
}

// NewGenesisBlock returns block 0.
func NewGenesisBlock(ts time.Time) *Block {
	return NewBlock(0, GenesisPrevHash, nil, "", ts)
}

// ComputeHash hashes every block field except Hash itself.
func (b *Block) ComputeHash() ids.ID {
	header := struct {
		Index        uint64
		Timestamp    time.Time
		Transactions []Transaction
		PrevHash     string
		MerkleRoot   string
		Nonce        uint64
		Proposer     string
	}{
		b.Index, b.Timestamp, b.Transactions, b.PrevHash, b.MerkleRoot, b.Nonce, b.Proposer,
	}
	data, _ := json.Marshal(header)
	return ids.NewID(data)
}

// Verify recomputes the Merkle root and hash and compares them with the
// stored values.
func (b *Block) Verify() error {
	if root := TransactionsRoot(b.Transactions).String(); root != b.MerkleRoot {
		return fmt.Errorf("%w: have %s, computed %s", ErrMerkleMismatch, b.MerkleRoot, root)
	}
	if h := b.ComputeHash(); h != b.Hash {
		return fmt.Errorf("%w: have %s, computed %s", ErrHashMismatch, b.Hash, h)
	}
	return nil
}

// IsGenesis reports whether b is shaped like a genesis block.
func (b *Block) IsGenesis() bool {
	return b.Index == 0 && b.PrevHash == GenesisPrevHash && len(b.Transactions) == 0
}

// Serialize encodes Block into JSON
func (b *Block) Serialize() ([]byte, error) {
	return json.Marshal(b)
}

// Deserialize decodes JSON into Block
func Deserialize(data []byte) (*Block, error) {
	if len(data) == 0 {
		return nil, ErrEmptyBlock
	}
	var b Block
	err := json.Unmarshal(data, &b)
	if err != nil {
		return nil, err
	}
	if b.Transactions == nil {
		b.Transactions = []Transaction{}
	}
	return &b, nil
}
