package node

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"emberchain/core/audit"
	"emberchain/core/chain"
	"emberchain/core/consensus"
	"emberchain/core/genesis"
	"emberchain/core/ledger"
	"emberchain/core/mempool"
	"emberchain/core/validation"
)

type ChainOptions struct {
	Store           chain.Store
	MempoolSize     int
	ProposalTimeout time.Duration // overrides the genesis value when set
	Auditor         audit.AuditLogger
	Registerer      prometheus.Registerer
	Logger          *zap.Logger
	Now             func() time.Time
}

// BuildChain seeds a ledger from gen, wires pool, engine and chain, and
// replays any blocks already in the store.
func BuildChain(gen *genesis.GenesisConfig, opts ChainOptions) (*chain.Chain, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	validation.SetAuditLogger(opts.Auditor)

	pool, err := mempool.NewPool(opts.MempoolSize, opts.Registerer)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if opts.Now != nil {
		pool.Now = opts.Now
	}
	lcfg := gen.LedgerConfig()
	lcfg.Logger = opts.Logger
	l := ledger.New(pool, lcfg)

	vs, err := genesis.Apply(gen, l)
	genesis.AuditApplied(opts.Auditor, gen, vs, l, err)
	if err != nil {
		return nil, fmt.Errorf("apply genesis: %w", err)
	}

	ccfg := gen.ConsensusConfig()
	if opts.ProposalTimeout > 0 {
		ccfg.ProposalTimeout = opts.ProposalTimeout
	}
	ccfg.Auditor = opts.Auditor
	ccfg.Logger = opts.Logger
	ccfg.Registerer = opts.Registerer
	ccfg.Now = opts.Now
	engine, err := consensus.New(vs, l, pool, gen.GenesisTime, ccfg)
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}

	c, err := chain.New(l, pool, engine, chain.Config{
		GenesisTime: gen.GenesisTime,
		Store:       opts.Store,
		Logger:      opts.Logger,
		Now:         opts.Now,
	})
	if err != nil {
		return nil, err
	}
	if _, err := c.Restore(); err != nil {
		return nil, fmt.Errorf("restore chain: %w", err)
	}
	return c, nil
}
