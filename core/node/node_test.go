package node

import (
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"emberchain/core"
	"emberchain/core/audit"
	"emberchain/core/block"
	"emberchain/core/config"
	"emberchain/core/genesis"
	"emberchain/core/storage"
)

type fixture struct {
	gen     *genesis.GenesisConfig
	signers []core.Signer
	user    *core.Ed25519Signer
	payee   string
}

func newFixture(t *testing.T, validators int) *fixture {
	t.Helper()
	f := &fixture{}
	var addrs []string
	for i := 0; i < validators; i++ {
		s, err := core.GenerateSigner()
		require.NoError(t, err)
		f.signers = append(f.signers, s)
		addrs = append(addrs, s.Address())
	}
	var err error
	f.user, err = core.GenerateSigner()
	require.NoError(t, err)
	f.payee = "payee"
	f.gen = genesis.DevGenesis("ember-test", addrs, 100, []string{f.user.Address(), f.payee}, 1000, time.Now().Add(-time.Hour))
	return f
}

func (f *fixture) transfer(t *testing.T, amount uint64) *block.Transaction {
	t.Helper()
	tx := block.NewTransaction(f.user.Address(), f.payee, amount, 1, time.Now())
	require.NoError(t, tx.Sign(f.user))
	return tx
}

func TestBuildChainRestores(t *testing.T) {
	f := newFixture(t, 3)
	dir := t.TempDir()

	store, err := storage.NewStorage(dir, storage.Options{})
	require.NoError(t, err)
	trail := audit.NewMemoryAuditLogger(10, nil)
	c, err := BuildChain(f.gen, ChainOptions{Store: store, Auditor: trail})
	require.NoError(t, err)
	require.Equal(t, "GenesisApplied", trail.Events()[0].EventType)

	require.NoError(t, c.SubmitTransaction(f.transfer(t, 25)))
	_, err = c.RunRound(f.signers)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = storage.NewStorage(dir, storage.Options{})
	require.NoError(t, err)
	defer store.Close()
	restored, err := BuildChain(f.gen, ChainOptions{Store: store})
	require.NoError(t, err)
	require.Equal(t, uint64(1), restored.Height())
	require.Equal(t, uint64(1000-26), restored.Balance(f.user.Address()))
	require.Equal(t, uint64(1025), restored.Balance(f.payee))
	require.NoError(t, restored.Verify())
}

func TestRewardsSurviveRestart(t *testing.T) {
	f := newFixture(t, 1)
	f.gen = genesis.DevGenesis("ember-test", []string{f.signers[0].Address()}, 10_000_000,
		[]string{f.user.Address(), f.payee}, 1000, time.Now().Add(-365*24*time.Hour))
	at := time.Now()
	now := func() time.Time { return at }
	dir := t.TempDir()

	store, err := storage.NewStorage(dir, storage.Options{})
	require.NoError(t, err)
	c, err := BuildChain(f.gen, ChainOptions{Store: store, Now: now})
	require.NoError(t, err)

	rewards, err := c.DistributeRewards()
	require.NoError(t, err)
	require.Len(t, rewards, 1)
	validator := f.signers[0]
	reward := c.Balance(validator.Address())
	require.Equal(t, rewards[0].Amount, reward)
	require.Positive(t, reward)

	// Only the minted reward is spendable; the stake stays bonded.
	_, err = c.CreateTransaction(validator, f.payee, reward/2)
	require.NoError(t, err)
	blk, err := c.RunRound(f.signers)
	require.NoError(t, err)
	require.Len(t, blk.Transactions, 1)
	require.NoError(t, store.Close())

	store, err = storage.NewStorage(dir, storage.Options{})
	require.NoError(t, err)
	defer store.Close()
	restored, err := BuildChain(f.gen, ChainOptions{Store: store, Now: now})
	require.NoError(t, err)

	require.Equal(t, c.Height(), restored.Height())
	for _, addr := range []string{validator.Address(), f.user.Address(), f.payee} {
		require.Equal(t, c.Account(addr), restored.Account(addr), addr)
	}
	require.Equal(t, c.Supply(), restored.Supply())
	require.True(t, c.LastRewardTime().Equal(restored.LastRewardTime()))
	require.NoError(t, restored.Verify())

	again, err := restored.DistributeRewards()
	require.NoError(t, err)
	require.Empty(t, again)
}

func TestRunRoundsCommitsAndStops(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	f := newFixture(t, 1)
	c, err := BuildChain(f.gen, ChainOptions{})
	require.NoError(t, err)
	require.NoError(t, c.SubmitTransaction(f.transfer(t, 5)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		RunRounds(ctx, c, f.signers, 10*time.Millisecond, time.Minute, zap.NewNop())
		close(done)
	}()

	require.Eventually(t, func() bool { return c.Height() == 1 }, 5*time.Second, 10*time.Millisecond)
	cancel()
	<-done
	require.Empty(t, c.PendingTransactions())
}

func TestNodeRunShutsDown(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	f := newFixture(t, 1)
	root := t.TempDir()
	genesisPath := filepath.Join(root, "genesis.json")
	raw, err := json.Marshal(f.gen)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(genesisPath, raw, 0o600))

	keyDir := filepath.Join(root, "keys")
	require.NoError(t, core.SaveKeypair(filepath.Join(keyDir, "v0"), f.signers[0].(*core.Ed25519Signer)))

	cfg := config.Default()
	cfg.DataDir = filepath.Join(root, "data")
	cfg.GenesisPath = genesisPath
	cfg.KeyDir = keyDir
	cfg.APIAddr = freeAddr(t)
	cfg.RoundInterval = 10 * time.Millisecond

	n, err := New(&cfg, nil)
	require.NoError(t, err)
	require.NoError(t, n.Chain.SubmitTransaction(f.transfer(t, 7)))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- n.Run(ctx) }()

	require.Eventually(t, func() bool { return n.Chain.Height() == 1 }, 5*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-errCh)
	require.NoError(t, n.Close())
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}
