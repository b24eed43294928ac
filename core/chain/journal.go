package chain

import (
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"emberchain/core"
	"emberchain/core/consensus"
	"emberchain/core/ledger"
)

// EntryKind names a ledger change made between blocks.
type EntryKind string

const (
	EntryRewards  EntryKind = "rewards"
	EntryContract EntryKind = "contract"
)

var (
	ErrOrphanEntry = fmt.Errorf("%w: journal entry beyond the stored chain", core.ErrBlockchain)
	ErrNotRestored = fmt.Errorf("%w: chain must be restored before it is written", core.ErrBlockchain)
)

// Entry is a ledger change that is not carried by a block. Entries are
// stored next to the blocks and Restore replays each one after the block
// at Height.
type Entry struct {
	Height   uint64             `json:"height"`
	Kind     EntryKind          `json:"kind"`
	Time     time.Time          `json:"time"`
	Rewards  []consensus.Reward `json:"rewards,omitempty"`
	Contract *ledger.Contract   `json:"contract,omitempty"`
}

// journal persists e. Without a store it is a no-op.
func (c *Chain) journal(e Entry) error {
	if c.store == nil {
		return nil
	}
	if !c.restored {
		return ErrNotRestored
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if err := c.store.AppendEntry(data); err != nil {
		return fmt.Errorf("persist %s entry: %w", e.Kind, err)
	}
	return nil
}

func (c *Chain) loadEntries() ([]Entry, error) {
	raw, err := c.store.LoadEntries()
	if err != nil {
		return nil, fmt.Errorf("load entries: %w", err)
	}
	entries := make([]Entry, len(raw))
	for i, data := range raw {
		if err := json.Unmarshal(data, &entries[i]); err != nil {
			return nil, fmt.Errorf("decode entry %d: %w", i, err)
		}
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].Height < entries[i-1].Height {
			return nil, fmt.Errorf("entry %d: height %d after %d", i, entries[i].Height, entries[i-1].Height)
		}
	}
	return entries, nil
}

func (c *Chain) applyEntry(e Entry) error {
	switch e.Kind {
	case EntryRewards:
		return c.engine.ReplayRewards(e.Rewards, e.Time)
	case EntryContract:
		if e.Contract == nil {
			return fmt.Errorf("contract entry at height %d has no contract", e.Height)
		}
		return c.ledger.RecordContract(e.Contract.Address, e.Contract.Owner, e.Contract.RecordedAt)
	default:
		return fmt.Errorf("unknown entry kind %q", e.Kind)
	}
}

// DistributeRewards mints staking rewards between commit rounds. The
// distribution is journaled before it takes effect.
func (c *Chain) DistributeRewards() ([]consensus.Reward, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	return c.engine.DistributeRewards(now, func(rewards []consensus.Reward) error {
		return c.journal(Entry{Height: c.tip().Index, Kind: EntryRewards, Time: now, Rewards: rewards})
	})
}

// RecordContract stores a contract address reported by an external VM.
func (c *Chain) RecordContract(address, owner string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ledger.CheckContract(address, owner); err != nil {
		return err
	}
	now := c.now().UTC()
	contract := ledger.Contract{Address: address, Owner: owner, RecordedAt: now}
	if err := c.journal(Entry{Height: c.tip().Index, Kind: EntryContract, Time: now, Contract: &contract}); err != nil {
		return err
	}
	if err := c.ledger.RecordContract(address, owner, now); err != nil {
		return err
	}
	c.log.Info("recorded contract", zap.String("address", address), zap.String("owner", owner))
	return nil
}
