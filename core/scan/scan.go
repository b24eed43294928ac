package scan

import (
	"errors"
	"fmt"
	"io"
	"time"

	"emberchain/core/block"
	"emberchain/core/storage"
)

// BlockSource reads stored blocks by height.
type BlockSource interface {
	GetChainHeight() (uint64, bool, error)
	GetBlockByHeight(height uint64) (*block.Block, error)
}

// Problem is a block that fails verification or does not link to its
// predecessor.
type Problem struct {
	Index  uint64
	Reason string
}

type Report struct {
	Blocks       int
	Transactions int
	Volume       uint64
	Fees         uint64
	Problems     []Problem
}

func (r Report) OK() bool { return len(r.Problems) == 0 }

// ScanChain walks the store from genesis to the recorded height, writes a
// human-readable dump of every block to w and checks hashes, Merkle roots
// and links along the way.
func ScanChain(src BlockSource, w io.Writer) (Report, error) {
	var rep Report
	height, ok, err := src.GetChainHeight()
	if err != nil {
		return rep, err
	}
	if !ok {
		fmt.Fprintln(w, "store is empty")
		return rep, nil
	}

	var prev *block.Block
	for h := uint64(0); h <= height; h++ {
		blk, err := src.GetBlockByHeight(h)
		if errors.Is(err, storage.ErrNotFound) {
			rep.Problems = append(rep.Problems, Problem{Index: h, Reason: "block missing"})
			continue
		}
		if err != nil {
			return rep, fmt.Errorf("block %d: %w", h, err)
		}
		rep.Blocks++
		fmt.Fprintf(w, "block %d\n", blk.Index)
		fmt.Fprintf(w, "  hash:      %s\n", blk.Hash)
		fmt.Fprintf(w, "  prev:      %s\n", blk.PrevHash)
		fmt.Fprintf(w, "  time:      %s\n", blk.Timestamp.UTC().Format(time.RFC3339))
		if blk.Proposer != "" {
			fmt.Fprintf(w, "  proposer:  %s\n", blk.Proposer)
		}
		fmt.Fprintf(w, "  txs:       %d\n", len(blk.Transactions))
		for i := range blk.Transactions {
			tx := &blk.Transactions[i]
			fmt.Fprintf(w, "    %s %s -> %s amount=%d fee=%d\n", tx.ID(), tx.Sender, tx.Recipient, tx.Amount, tx.Fee)
			rep.Transactions++
			rep.Volume += tx.Amount
			rep.Fees += tx.Fee
		}

		if err := blk.Verify(); err != nil {
			rep.Problems = append(rep.Problems, Problem{Index: blk.Index, Reason: err.Error()})
		}
		switch {
		case blk.Index != h:
			rep.Problems = append(rep.Problems, Problem{Index: h, Reason: fmt.Sprintf("stored under height %d but has index %d", h, blk.Index)})
		case h == 0 && !blk.IsGenesis():
			rep.Problems = append(rep.Problems, Problem{Index: h, Reason: "first stored block is not genesis"})
		case prev != nil && prev.Index+1 == blk.Index && blk.PrevHash != prev.Hash.String():
			rep.Problems = append(rep.Problems, Problem{Index: blk.Index, Reason: "previous hash does not match"})
		}
		prev = blk
	}

	fmt.Fprintf(w, "%d blocks, %d transactions, volume %d, fees %d\n", rep.Blocks, rep.Transactions, rep.Volume, rep.Fees)
	for _, p := range rep.Problems {
		fmt.Fprintf(w, "problem at block %d: %s\n", p.Index, p.Reason)
	}
	return rep, nil
}
