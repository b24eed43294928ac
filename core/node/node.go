package node

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"emberchain/api/server"
	"emberchain/core"
	"emberchain/core/audit"
	"emberchain/core/auth"
	"emberchain/core/chain"
	"emberchain/core/config"
	"emberchain/core/consensus"
	"emberchain/core/genesis"
	"emberchain/core/oracle"
	"emberchain/core/storage"
	"emberchain/core/wallet"
)

const auditRetention = 256

// Transaction submissions allowed per client IP per window.
const (
	submitWindow     = time.Minute
	submitsPerWindow = 3000
)

// Node runs the API and, when it produces blocks, periodic consensus
// rounds with its locally held validator keys.
type Node struct {
	Chain   *chain.Chain
	Server  *server.Server
	Audit   *audit.MemoryAuditLogger
	store   *storage.Storage
	signers []core.Signer
	cfg     config.Config
	log     *zap.Logger
}

// New loads genesis and local keys, opens storage and restores the chain.
func New(cfg *config.Config, log *zap.Logger) (*Node, error) {
	if log == nil {
		log = zap.NewNop()
	}
	gen, err := genesis.LoadGenesisConfig(cfg.GenesisPath)
	if err != nil {
		return nil, err
	}

	var signers []core.Signer
	ring, err := wallet.LoadKeyring(cfg.KeyDir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Warn("key directory missing, running without validator keys", zap.String("dir", cfg.KeyDir))
	case err != nil:
		return nil, err
	default:
		members := make(map[string]bool, len(gen.Validators))
		for _, v := range gen.Validators {
			members[v.Address] = true
		}
		signers = wallet.Signers(ring, func(addr string) bool { return members[addr] })
	}

	dek, err := storage.ParseKey(cfg.DEK)
	if err != nil {
		return nil, err
	}
	store, err := storage.NewStorage(cfg.DataDir, storage.Options{EncryptionKey: dek})
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	reg := prometheus.NewRegistry()
	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		store.Close()
		return nil, err
	}
	trail := audit.NewMemoryAuditLogger(auditRetention, audit.NewZapAuditLogger(log))

	c, err := BuildChain(gen, ChainOptions{
		Store:           store,
		MempoolSize:     cfg.MempoolSize,
		ProposalTimeout: cfg.ProposalTimeout,
		Auditor:         trail,
		Registerer:      reg,
		Logger:          log,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	var authorizer *auth.Authorizer
	if cfg.JWTSecret != "" {
		authorizer = &auth.Authorizer{
			Verifier: &auth.TokenVerifier{
				KeyProvider: &auth.HMACKeyProvider{Secret: []byte(cfg.JWTSecret)},
				ChainID:     gen.ChainID,
			},
			AuditLogger: trail,
		}
	}

	var prices oracle.PriceOracle = oracle.NewStaticOracle(gen.Params.Symbol, nil)
	if cfg.OracleURL != "" {
		prices = oracle.NewHTTPOracle(cfg.OracleURL, prices, log)
	}

	srv := server.NewServer(c, server.Config{
		ListenAddr: cfg.APIAddr,
		ChainID:    gen.ChainID,
		Symbol:     gen.Params.Symbol,
		DataDir:    cfg.DataDir,
		Oracle:     prices,
		Gatherer:   reg,
		AuditTrail: trail,
		Logger:     log,
		Signers:    signers,
		Authorizer: authorizer,
		Store:      store,
		RateLimit:  server.NewRateLimiter(submitWindow, submitsPerWindow),
	})

	log.Info("node ready",
		zap.String("chain", gen.ChainID),
		zap.Uint64("height", c.Height()),
		zap.Int("localValidators", len(signers)),
		zap.Bool("blockProducer", cfg.BlockProducer),
	)
	return &Node{
		Chain:   c,
		Server:  srv,
		Audit:   trail,
		store:   store,
		signers: signers,
		cfg:     *cfg,
		log:     log.Named("node"),
	}, nil
}

// Run serves the API and runs consensus rounds until ctx is cancelled or
// either of them fails.
func (n *Node) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return n.Server.Start(ctx)
	})
	if n.cfg.BlockProducer {
		g.Go(func() error {
			RunRounds(ctx, n.Chain, n.signers, n.cfg.RoundInterval, n.cfg.TxMaxAge, n.log)
			return nil
		})
	}
	return g.Wait()
}

func (n *Node) Close() error {
	return n.store.Close()
}

// RunRounds prunes stale candidates and expired transactions every
// interval and commits pending transactions with the local signers. It
// returns when ctx is done.
func RunRounds(ctx context.Context, c *chain.Chain, signers []core.Signer, interval, txMaxAge time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if candidates, txs := c.Prune(txMaxAge); candidates > 0 || txs > 0 {
			log.Info("pruned", zap.Int("candidates", candidates), zap.Int("txs", txs))
		}
		if len(signers) == 0 || len(c.PendingTransactions()) == 0 {
			continue
		}
		blk, err := c.RunRound(signers)
		switch {
		case errors.Is(err, consensus.ErrNoQuorum):
			log.Debug("waiting for remote votes", zap.Error(err))
		case err != nil:
			log.Warn("round failed", zap.Error(err))
		default:
			log.Info("committed block",
				zap.Uint64("index", blk.Index),
				zap.Stringer("hash", blk.Hash),
				zap.Int("txs", len(blk.Transactions)),
			)
		}
	}
}
