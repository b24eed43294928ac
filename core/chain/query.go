package chain

import (
	"fmt"
	"slices"
	"time"

	"emberchain/core/block"
	"emberchain/core/ledger"
	"emberchain/core/mempool"
	"emberchain/core/validator"
	"emberchain/types/ids"
)

// Tip returns the last committed block.
func (c *Chain) Tip() *block.Block {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tip()
}

// Height returns the index of the tip block.
func (c *Chain) Height() uint64 {
	return c.Tip().Index
}

func (c *Chain) BlockAt(index uint64) (*block.Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index >= uint64(len(c.blocks)) {
		return nil, fmt.Errorf("%w: index %d", ErrBlockNotFound, index)
	}
	return c.blocks[index], nil
}

func (c *Chain) BlockByHash(hash ids.ID) (*block.Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i, ok := c.byHash[hash]
	if !ok {
		return nil, fmt.Errorf("%w: hash %s", ErrBlockNotFound, hash)
	}
	return c.blocks[i], nil
}

// Blocks returns the committed blocks in index order.
func (c *Chain) Blocks() []*block.Block {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.blocks)
}

// HasTransaction reports whether tx id is in a committed block.
func (c *Chain) HasTransaction(id ids.ID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.txIndex[id]
	return ok
}

// PendingTransactions returns the pool contents in order.
func (c *Chain) PendingTransactions() []block.Transaction {
	return c.pool.Pending()
}

// ExpiredTransactions lists the retained transactions that left the pool
// without being committed, oldest first.
func (c *Chain) ExpiredTransactions() []mempool.ExpiredTx {
	if c.pool.ExpiredPool == nil {
		return nil
	}
	return c.pool.ExpiredPool.ListExpiredTxs()
}

// Account summarizes one address.
type Account struct {
	Address    string   `json:"address"`
	Balance    uint64   `json:"balance"`
	Stake      uint64   `json:"stake"`
	Delegated  uint64   `json:"delegated"`
	Delegators []string `json:"delegators,omitempty"`
	Known      bool     `json:"known"`
}

func (c *Chain) Account(addr string) Account {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Account{
		Address:    addr,
		Balance:    c.ledger.Balance(addr),
		Stake:      c.ledger.StakeOf(addr),
		Delegated:  c.ledger.DelegatedStake(addr),
		Delegators: c.ledger.Delegators(addr),
		Known:      c.ledger.IsKnown(addr),
	}
}

func (c *Chain) Balance(addr string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ledger.Balance(addr)
}

// Supply summarizes monetary totals.
type Supply struct {
	Total  uint64 `json:"total"`
	Staked uint64 `json:"staked"`
	Burned uint64 `json:"burned"`
}

func (c *Chain) Supply() Supply {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Supply{
		Total:  c.ledger.TotalSupply(),
		Staked: c.ledger.TotalStaked(),
		Burned: c.ledger.Burned(),
	}
}

func (c *Chain) Validators() []validator.Validator {
	return c.engine.Validators().Validators()
}

func (c *Chain) Quorum() int { return c.engine.Quorum() }

func (c *Chain) Contracts() []ledger.Contract {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ledger.Contracts()
}

// LastRewardTime is the end of the last reward period.
func (c *Chain) LastRewardTime() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine.LastRewardTime()
}

// TxLocation is where a transaction was found. Block is nil unless the
// transaction is committed. Expired transactions left the pool without
// being committed; Reason says why.
type TxLocation struct {
	Transaction block.Transaction `json:"transaction"`
	Block       *uint64           `json:"block,omitempty"`
	Pending     bool              `json:"pending"`
	Expired     bool              `json:"expired,omitempty"`
	Reason      string            `json:"reason,omitempty"`
}

// FindTransaction looks id up among committed blocks, then in the pool,
// then among recently expired transactions.
func (c *Chain) FindTransaction(id ids.ID) (TxLocation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index, ok := c.txIndex[id]; ok {
		for _, tx := range c.blocks[index].Transactions {
			if tx.ID() == id {
				return TxLocation{Transaction: tx, Block: &index}, true
			}
		}
	}
	if tx, ok := c.pool.Get(id); ok {
		return TxLocation{Transaction: tx, Pending: true}, true
	}
	if exp, ok := c.pool.Expired(id); ok {
		return TxLocation{Transaction: exp.Tx, Expired: true, Reason: exp.Reason}, true
	}
	return TxLocation{}, false
}
