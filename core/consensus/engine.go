package consensus

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"emberchain/core"
	"emberchain/core/audit"
	"emberchain/core/block"
	"emberchain/core/ledger"
	"emberchain/core/mempool"
	"emberchain/core/validator"
	"emberchain/types/ids"
)

const (
	DefaultQuorumNum          = 2
	DefaultQuorumDen          = 3
	DefaultAnnualYieldBps     = 500
	DefaultMaxFutureBlockTime = 60 * time.Second
	DefaultProposalTimeout    = 30 * time.Second
	DefaultMaxBlockTxs        = 1000
)

type Config struct {
	// QuorumNum/QuorumDen is the fraction t of validators whose votes
	// commit a block.
	QuorumNum          uint64
	QuorumDen          uint64
	AnnualYieldBps     uint64
	MaxFutureBlockTime time.Duration
	ProposalTimeout    time.Duration
	MaxBlockTxs        int

	Verifier   core.Verifier
	Auditor    audit.AuditLogger
	Logger     *zap.Logger
	Registerer prometheus.Registerer
	Now        func() time.Time
}

func (c *Config) setDefaults() {
	if c.QuorumNum == 0 || c.QuorumDen == 0 {
		c.QuorumNum, c.QuorumDen = DefaultQuorumNum, DefaultQuorumDen
	}
	if c.AnnualYieldBps == 0 {
		c.AnnualYieldBps = DefaultAnnualYieldBps
	}
	if c.MaxFutureBlockTime == 0 {
		c.MaxFutureBlockTime = DefaultMaxFutureBlockTime
	}
	if c.ProposalTimeout == 0 {
		c.ProposalTimeout = DefaultProposalTimeout
	}
	if c.MaxBlockTxs == 0 {
		c.MaxBlockTxs = DefaultMaxBlockTxs
	}
	if c.Verifier == nil {
		c.Verifier = core.Ed25519Verifier{}
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// ChainReader is the view of committed blocks the engine validates against.
type ChainReader interface {
	Tip() *block.Block
	HasTransaction(id ids.ID) bool
}

// ChainWriter appends a committed block. Append must fail without side
// effects when the block cannot be recorded.
type ChainWriter interface {
	ChainReader
	Append(blk *block.Block) error
}

type candidate struct {
	block      *block.Block
	phase      Phase
	votes      map[string]*Vote
	proposedAt time.Time
	err        error
}

// Engine drives candidate blocks through propose, prepare and commit for a
// static validator set. It holds no locks; callers serialize access.
type Engine struct {
	cfg        Config
	validators *validator.Set
	quorum     int
	ledger     *ledger.Ledger
	pool       *mempool.Pool
	pending    map[ids.ID]*candidate
	lastReward time.Time
	log        *zap.Logger
	metrics    *engineMetrics
}

// New creates an engine. lastReward is the starting point of the first
// reward period, normally the genesis time.
func New(vs *validator.Set, l *ledger.Ledger, pool *mempool.Pool, lastReward time.Time, cfg Config) (*Engine, error) {
	cfg.setDefaults()
	quorum, err := vs.Quorum(cfg.QuorumNum, cfg.QuorumDen)
	if err != nil {
		return nil, err
	}
	m, err := newMetrics(cfg.Registerer)
	if err != nil {
		return nil, err
	}
	return &Engine{
		cfg:        cfg,
		validators: vs,
		quorum:     quorum,
		ledger:     l,
		pool:       pool,
		pending:    make(map[ids.ID]*candidate),
		lastReward: lastReward,
		log:        cfg.Logger.Named("consensus"),
		metrics:    m,
	}, nil
}

func (e *Engine) Quorum() int { return e.quorum }

func (e *Engine) Validators() *validator.Set { return e.validators }

// ProposeBlock snapshots the pool, keeps the transactions that apply
// cleanly and records the resulting candidate on top of the chain tip.
func (e *Engine) ProposeBlock(chain ChainReader, proposer string, now time.Time) (ids.ID, error) {
	if !e.validators.Contains(proposer) {
		return ids.Empty, fmt.Errorf("%w: %s", ErrNotValidator, proposer)
	}
	tip := chain.Tip()
	snapshot := e.pool.Pending()
	fresh := make([]block.Transaction, 0, len(snapshot))
	for _, tx := range snapshot {
		if !chain.HasTransaction(tx.ID()) {
			fresh = append(fresh, tx)
		}
	}
	txs := e.ledger.SelectTransactions(fresh, e.cfg.MaxBlockTxs)
	if now.Before(tip.Timestamp) {
		now = tip.Timestamp
	}
	blk := block.NewBlock(tip.Index+1, tip.Hash.String(), txs, proposer, now)
	if _, exists := e.pending[blk.Hash]; exists {
		return blk.Hash, nil
	}
	e.pending[blk.Hash] = &candidate{
		block:      blk,
		phase:      PhaseProposed,
		votes:      make(map[string]*Vote),
		proposedAt: e.cfg.Now(),
	}
	e.metrics.proposed.Inc()
	e.metrics.pending.Set(float64(len(e.pending)))
	e.log.Debug("proposed block",
		zap.Stringer("hash", blk.Hash),
		zap.Uint64("index", blk.Index),
		zap.Int("txs", len(txs)),
		zap.Int("skipped", len(snapshot)-len(txs)),
	)
	return blk.Hash, nil
}

// Candidate returns a recorded candidate regardless of its vote count.
func (e *Engine) Candidate(hash ids.ID) (*block.Block, Phase, bool) {
	c, ok := e.pending[hash]
	if !ok {
		return nil, 0, false
	}
	return c.block, c.phase, true
}

// VoteCount returns the number of distinct validators that approved hash.
func (e *Engine) VoteCount(hash ids.ID) int {
	if c, ok := e.pending[hash]; ok {
		return len(c.votes)
	}
	return 0
}

// AddVote records a validator's approval. Repeating a vote is a no-op.
// The first vote moves the candidate into the prepare phase.
func (e *Engine) AddVote(v *Vote) (Phase, error) {
	c, ok := e.pending[v.BlockHash]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownCandidate, v.BlockHash)
	}
	if c.phase == PhaseRejected {
		return c.phase, fmt.Errorf("%w: %v", ErrCandidateRejected, c.err)
	}
	if !e.validators.Contains(v.Validator) {
		return c.phase, fmt.Errorf("%w: %s", ErrNotValidator, v.Validator)
	}
	if err := v.Verify(e.cfg.Verifier); err != nil {
		return c.phase, err
	}
	if _, dup := c.votes[v.Validator]; dup {
		return c.phase, nil
	}
	c.votes[v.Validator] = v
	if c.phase == PhaseProposed {
		c.phase = PhasePreparing
	}
	e.metrics.votes.Inc()
	e.log.Debug("vote accepted",
		zap.Stringer("hash", v.BlockHash),
		zap.String("validator", v.Validator),
		zap.Int("votes", len(c.votes)),
		zap.Int("quorum", e.quorum),
	)
	return c.phase, nil
}

// CommittableBlock returns the candidate once its votes reach quorum.
func (e *Engine) CommittableBlock(hash ids.ID) (*block.Block, error) {
	c, ok := e.pending[hash]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCandidate, hash)
	}
	if c.phase == PhaseRejected {
		return nil, fmt.Errorf("%w: %v", ErrCandidateRejected, c.err)
	}
	if len(c.votes) < e.quorum {
		return nil, fmt.Errorf("%w: %d of %d votes", ErrNoQuorum, len(c.votes), e.quorum)
	}
	return c.block, nil
}

// ValidateBlock checks blk against the chain tip and committed ledger
// state without changing either.
func (e *Engine) ValidateBlock(blk *block.Block, chain ChainReader) error {
	_, err := e.validate(blk, chain)
	return err
}

func (e *Engine) validate(blk *block.Block, chain ChainReader) (*ledger.Staged, error) {
	if blk == nil {
		return nil, ErrNilBlock
	}
	tip := chain.Tip()
	if blk.Index != tip.Index+1 {
		return nil, fmt.Errorf("%w: have %d, want %d", ErrBadIndex, blk.Index, tip.Index+1)
	}
	if blk.PrevHash != tip.Hash.String() {
		return nil, fmt.Errorf("%w: have %s, want %s", ErrBadPrevHash, blk.PrevHash, tip.Hash)
	}
	if blk.Timestamp.Before(tip.Timestamp) {
		return nil, fmt.Errorf("%w: %s precedes parent %s", ErrBadTimestamp, blk.Timestamp, tip.Timestamp)
	}
	if limit := e.cfg.Now().Add(e.cfg.MaxFutureBlockTime); blk.Timestamp.After(limit) {
		return nil, fmt.Errorf("%w: %s is too far in the future", ErrBadTimestamp, blk.Timestamp)
	}
	if !e.validators.Contains(blk.Proposer) {
		return nil, fmt.Errorf("%w: %s", ErrBadProposer, blk.Proposer)
	}
	if err := blk.Verify(); err != nil {
		return nil, err
	}
	seen := make(map[ids.ID]struct{}, len(blk.Transactions))
	for i := range blk.Transactions {
		tx := &blk.Transactions[i]
		id := tx.ID()
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTx, id)
		}
		seen[id] = struct{}{}
		if chain.HasTransaction(id) {
			return nil, fmt.Errorf("%w: %s", ErrReplayedTx, id)
		}
		if err := e.ledger.VerifyTransaction(tx); err != nil {
			return nil, fmt.Errorf("%w: transaction %d: %w", ErrInvalidTx, i, err)
		}
	}
	staged, err := e.ledger.StageBlock(blk.Transactions)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTx, err)
	}
	return staged, nil
}

// CommitBlock commits the candidate hash once it has quorum: it validates
// the block, appends it to chain, applies its transactions to the ledger
// and removes them from the pool. Any validation failure rejects the
// candidate and leaves chain, ledger and pool unchanged.
func (e *Engine) CommitBlock(hash ids.ID, chain ChainWriter) (*block.Block, error) {
	blk, err := e.CommittableBlock(hash)
	if err != nil {
		return nil, err
	}
	staged, err := e.validate(blk, chain)
	if err != nil {
		e.reject(hash, err)
		return nil, err
	}
	if err := chain.Append(blk); err != nil {
		return nil, fmt.Errorf("%w: append block %d: %w", core.ErrBlockchain, blk.Index, err)
	}
	if err := e.ledger.Commit(staged); err != nil {
		return nil, err
	}
	e.pool.RemoveAll(staged.TxIDs())

	c := e.pending[hash]
	c.phase = PhaseCommitted
	for h, other := range e.pending {
		if other.block.Index <= blk.Index {
			delete(e.pending, h)
		}
	}
	e.metrics.committed.Inc()
	e.metrics.pending.Set(float64(len(e.pending)))
	e.log.Info("committed block",
		zap.Stringer("hash", blk.Hash),
		zap.Uint64("index", blk.Index),
		zap.Int("txs", len(blk.Transactions)),
		zap.Int("votes", len(c.votes)),
	)
	e.audit(audit.NewEvent("BlockCommitted", blk.Hash.String(), audit.ResultSuccess, "", map[string]string{
		"index":    strconv.FormatUint(blk.Index, 10),
		"proposer": blk.Proposer,
		"txs":      strconv.Itoa(len(blk.Transactions)),
	}))
	return blk, nil
}

func (e *Engine) reject(hash ids.ID, err error) {
	c, ok := e.pending[hash]
	if !ok {
		return
	}
	c.phase = PhaseRejected
	c.err = err
	e.metrics.rejected.Inc()
	e.log.Warn("rejected block",
		zap.Stringer("hash", hash),
		zap.Uint64("index", c.block.Index),
		zap.Error(err),
	)
	e.audit(audit.NewEvent("BlockRejected", hash.String(), audit.ResultFailure, err.Error(), map[string]string{
		"index": strconv.FormatUint(c.block.Index, 10),
	}))
}

func (e *Engine) audit(event audit.AuditEvent) {
	if e.cfg.Auditor != nil {
		e.cfg.Auditor.LogEvent(event)
	}
}

// PruneExpired drops candidates proposed more than ProposalTimeout before
// now and returns how many were removed.
func (e *Engine) PruneExpired(now time.Time) int {
	removed := 0
	for h, c := range e.pending {
		if now.Sub(c.proposedAt) > e.cfg.ProposalTimeout {
			delete(e.pending, h)
			removed++
		}
	}
	if removed > 0 {
		e.metrics.pending.Set(float64(len(e.pending)))
		e.log.Debug("pruned stalled candidates", zap.Int("count", removed))
	}
	return removed
}

// PendingCount returns the number of recorded candidates.
func (e *Engine) PendingCount() int { return len(e.pending) }
