package chain

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"emberchain/core"
	"emberchain/core/block"
	"emberchain/core/consensus"
	"emberchain/core/ledger"
	"emberchain/core/mempool"
	"emberchain/types/ids"
)

var (
	ErrAlreadyCommitted = fmt.Errorf("%w: transaction already committed", core.ErrInvalidTransaction)
	ErrBlockNotFound    = errors.New("block not found")
	ErrBrokenLink       = fmt.Errorf("%w: previous hash does not match parent", core.ErrBlockchain)
	ErrGenesisMismatch  = fmt.Errorf("%w: stored genesis does not match configuration", core.ErrBlockchain)
	ErrNoLocalSigner    = fmt.Errorf("%w: no local validator key", core.ErrBlockchain)
)

// Store persists committed blocks as an append-only sequence keyed by
// index, plus the journal of ledger changes made between blocks.
type Store interface {
	SaveBlock(blk *block.Block) error
	LoadBlocks() ([]*block.Block, error)
	AppendEntry(data []byte) error
	LoadEntries() ([][]byte, error)
}

type Config struct {
	GenesisTime time.Time
	Store       Store
	Logger      *zap.Logger
	Now         func() time.Time
}

// Chain owns the committed blocks and serializes every call into the
// ledger, pool and consensus engine behind a single lock.
type Chain struct {
	mu       sync.Mutex
	blocks   []*block.Block
	byHash   map[ids.ID]uint64
	txIndex  map[ids.ID]uint64 // tx ID -> committing block index
	ledger   *ledger.Ledger
	pool     *mempool.Pool
	engine   *consensus.Engine
	store    Store
	restored bool
	log      *zap.Logger
	now      func() time.Time
}

// New creates the chain and its genesis block. When a store is given and
// holds no blocks, genesis is persisted.
func New(l *ledger.Ledger, pool *mempool.Pool, engine *consensus.Engine, cfg Config) (*Chain, error) {
	if l == nil || pool == nil || engine == nil {
		return nil, fmt.Errorf("%w: chain needs a ledger, pool and engine", core.ErrBlockchain)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	c := &Chain{
		byHash:  make(map[ids.ID]uint64),
		txIndex: make(map[ids.ID]uint64),
		ledger:  l,
		pool:    pool,
		engine:  engine,
		store:   cfg.Store,
		log:     cfg.Logger.Named("chain"),
		now:     cfg.Now,
	}
	genesis := block.NewGenesisBlock(cfg.GenesisTime)
	c.index(genesis)
	c.log.Info("created genesis block", zap.Stringer("hash", genesis.Hash))
	return c, nil
}

func (c *Chain) index(blk *block.Block) {
	c.blocks = append(c.blocks, blk)
	c.byHash[blk.Hash] = blk.Index
	for i := range blk.Transactions {
		c.txIndex[blk.Transactions[i].ID()] = blk.Index
	}
}

// Restore replays blocks and journal entries from the store on top of
// genesis, rebuilding ledger state and the reward period. It persists
// genesis into an empty store and returns the number of replayed blocks.
// Only the first call does any work.
func (c *Chain) Restore() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil || c.restored {
		return 0, nil
	}
	stored, err := c.store.LoadBlocks()
	if err != nil {
		return 0, fmt.Errorf("load blocks: %w", err)
	}
	entries, err := c.loadEntries()
	if err != nil {
		return 0, err
	}
	if len(stored) == 0 {
		if len(entries) > 0 {
			return 0, ErrOrphanEntry
		}
		if err := c.store.SaveBlock(c.blocks[0]); err != nil {
			return 0, err
		}
		c.restored = true
		return 0, nil
	}
	if stored[0].Hash != c.blocks[0].Hash {
		return 0, fmt.Errorf("%w: have %s, want %s", ErrGenesisMismatch, stored[0].Hash, c.blocks[0].Hash)
	}

	next := 0
	applyUpTo := func(height uint64) error {
		for ; next < len(entries) && entries[next].Height <= height; next++ {
			if err := c.applyEntry(entries[next]); err != nil {
				return fmt.Errorf("replay %s entry after block %d: %w", entries[next].Kind, height, err)
			}
		}
		return nil
	}
	if err := applyUpTo(0); err != nil {
		return 0, err
	}
	for _, blk := range stored[1:] {
		if err := c.replay(blk); err != nil {
			return 0, fmt.Errorf("replay block %d: %w", blk.Index, err)
		}
		if err := applyUpTo(blk.Index); err != nil {
			return 0, err
		}
	}
	if next < len(entries) {
		return 0, fmt.Errorf("%w: height %d", ErrOrphanEntry, entries[next].Height)
	}
	c.restored = true
	c.log.Info("restored chain",
		zap.Int("blocks", len(stored)-1),
		zap.Int("entries", len(entries)),
		zap.Uint64("height", c.tip().Index),
	)
	return len(stored) - 1, nil
}

func (c *Chain) replay(blk *block.Block) error {
	tip := c.tip()
	if blk.Index != tip.Index+1 {
		return fmt.Errorf("%w: have %d, want %d", consensus.ErrBadIndex, blk.Index, tip.Index+1)
	}
	if blk.PrevHash != tip.Hash.String() {
		return ErrBrokenLink
	}
	if err := blk.Verify(); err != nil {
		return err
	}
	staged, err := c.ledger.StageBlock(blk.Transactions)
	if err != nil {
		return err
	}
	if err := c.ledger.Commit(staged); err != nil {
		return err
	}
	c.index(blk)
	return nil
}

func (c *Chain) tip() *block.Block { return c.blocks[len(c.blocks)-1] }

// SubmitTransaction admits a signed transaction into the pool.
func (c *Chain) SubmitTransaction(tx *block.Transaction) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.txIndex[tx.ID()]; ok {
		return ErrAlreadyCommitted
	}
	return c.ledger.SubmitTransaction(tx)
}

// CreateTransaction builds, signs and submits a transfer from signer.
func (c *Chain) CreateTransaction(signer core.Signer, recipient string, amount uint64) (*block.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tx, err := c.ledger.CreateTransaction(signer, recipient, amount, c.now())
	if err != nil {
		return nil, err
	}
	if err := c.ledger.SubmitTransaction(tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// ProposeBlock records a candidate built from the pool by proposer.
func (c *Chain) ProposeBlock(proposer string) (ids.ID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine.ProposeBlock(writer{c}, proposer, c.now())
}

// Vote records a validator vote for a candidate.
func (c *Chain) Vote(v *consensus.Vote) (consensus.Phase, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine.AddVote(v)
}

// Candidate returns a pending candidate and its phase.
func (c *Chain) Candidate(hash ids.ID) (*block.Block, consensus.Phase, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine.Candidate(hash)
}

// AddBlockToChain commits the candidate hash. Validation and quorum are
// checked before any mutation; on failure the error wraps
// core.ErrValidationFailed and chain, ledger and pool are unchanged.
func (c *Chain) AddBlockToChain(hash ids.ID) (*block.Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.addBlock(hash)
}

func (c *Chain) addBlock(hash ids.ID) (*block.Block, error) {
	blk, err := c.engine.CommitBlock(hash, writer{c})
	if err != nil {
		if !errors.Is(err, core.ErrValidationFailed) && !errors.Is(err, core.ErrBlockchain) {
			err = fmt.Errorf("%w: %w", core.ErrValidationFailed, err)
		}
		return nil, err
	}
	return blk, nil
}

// RunRound proposes a block with one of the local validator signers,
// collects a vote from each of them and commits once quorum is reached.
// The proposer rotates with the chain height. Without quorum the
// candidate stays pending for remote votes and ErrNoQuorum is returned.
func (c *Chain) RunRound(signers []core.Signer) (*block.Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	local := make([]core.Signer, 0, len(signers))
	for _, s := range signers {
		if c.engine.Validators().Contains(s.Address()) {
			local = append(local, s)
		}
	}
	if len(local) == 0 {
		return nil, ErrNoLocalSigner
	}
	proposer := local[int(c.tip().Index+1)%len(local)]
	hash, err := c.engine.ProposeBlock(writer{c}, proposer.Address(), c.now())
	if err != nil {
		return nil, err
	}
	for _, s := range local {
		v, err := consensus.NewVote(s, hash)
		if err != nil {
			return nil, err
		}
		if _, err := c.engine.AddVote(v); err != nil {
			return nil, err
		}
	}
	if _, err := c.engine.CommittableBlock(hash); err != nil {
		return nil, err
	}
	return c.addBlock(hash)
}

// Prune drops stalled candidates and pending transactions older than
// txMaxAge. It returns the number of each removed.
func (c *Chain) Prune(txMaxAge time.Duration) (candidates, txs int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	candidates = c.engine.PruneExpired(now)
	if txMaxAge > 0 {
		txs = len(c.pool.PurgeExpired(txMaxAge, now))
	}
	return candidates, txs
}

// Verify walks the chain checking every hash, Merkle root and link.
func (c *Chain) Verify() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, blk := range c.blocks {
		if err := blk.Verify(); err != nil {
			return fmt.Errorf("block %d: %w", i, err)
		}
		if i == 0 {
			continue
		}
		if blk.PrevHash != c.blocks[i-1].Hash.String() || blk.Index != uint64(i) {
			return fmt.Errorf("block %d: %w", i, ErrBrokenLink)
		}
	}
	return nil
}

// writer gives the engine lock-free access while Chain holds mu.
type writer struct{ c *Chain }

func (w writer) Tip() *block.Block { return w.c.tip() }

func (w writer) HasTransaction(id ids.ID) bool {
	_, ok := w.c.txIndex[id]
	return ok
}

func (w writer) Append(blk *block.Block) error {
	if w.c.store != nil {
		if !w.c.restored {
			return ErrNotRestored
		}
		if err := w.c.store.SaveBlock(blk); err != nil {
			return err
		}
	}
	w.c.index(blk)
	return nil
}
