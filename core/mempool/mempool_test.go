package mempool

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"emberchain/core/block"
	"emberchain/types/ids"
)

var testTime = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func newTx(sender string, amount, fee uint64) block.Transaction {
	return *block.NewTransaction(sender, "bob", amount, fee, testTime)
}

func newPool(t *testing.T, maxTxs int) *Pool {
	t.Helper()
	p, err := NewPool(maxTxs, prometheus.NewRegistry())
	require.NoError(t, err)
	return p
}

func TestPoolPreservesInsertionOrder(t *testing.T) {
	p := newPool(t, 0)
	a, b, c := newTx("a", 1, 0), newTx("b", 2, 0), newTx("c", 3, 0)
	require.True(t, p.Add(b))
	require.True(t, p.Add(a))
	require.True(t, p.Add(c))

	require.Equal(t, []block.Transaction{b, a, c}, p.Pending())
	require.Equal(t, 3, p.Len())
}

func TestPoolIgnoresIdenticalTransaction(t *testing.T) {
	p := newPool(t, 0)
	tx := newTx("a", 1, 0)
	require.True(t, p.Add(tx))
	require.False(t, p.Add(tx))
	require.Equal(t, 1, p.Len())

	// Same sender and amount but a different timestamp is a distinct tx.
	other := *block.NewTransaction("a", "bob", 1, 0, testTime.Add(time.Second))
	require.True(t, p.Add(other))
}

func TestPoolRemoveIsIdempotent(t *testing.T) {
	p := newPool(t, 0)
	tx := newTx("a", 1, 0)
	p.Add(tx)

	p.Remove(tx.ID())
	p.Remove(tx.ID())
	p.Remove(ids.IDFromString("never-added"))
	require.Zero(t, p.Len())
	require.False(t, p.Contains(tx.ID()))
}

func TestPoolRemoveAll(t *testing.T) {
	p := newPool(t, 0)
	a, b, c := newTx("a", 1, 0), newTx("b", 1, 0), newTx("c", 1, 0)
	p.Add(a)
	p.Add(b)
	p.Add(c)

	p.RemoveAll([]ids.ID{a.ID(), c.ID(), a.ID()})
	require.Equal(t, []block.Transaction{b}, p.Pending())
}

func TestPendingIsASnapshot(t *testing.T) {
	p := newPool(t, 0)
	tx := newTx("a", 1, 0)
	p.Add(tx)

	snap := p.Pending()
	p.Remove(tx.ID())
	require.Len(t, snap, 1)
	require.Zero(t, p.Len())
}

func TestPoolEvictsOldestWhenFull(t *testing.T) {
	p := newPool(t, 2)
	a, b, c := newTx("a", 1, 0), newTx("b", 1, 0), newTx("c", 1, 0)
	p.Add(a)
	p.Add(b)
	p.Add(c)

	require.Equal(t, []block.Transaction{b, c}, p.Pending())
	expired, ok := p.ExpiredPool.GetExpiredTx(a.ID())
	require.True(t, ok)
	require.Equal(t, reasonEvicted, expired.Reason)
	require.Equal(t, float64(1), testutil.ToFloat64(p.metrics.evicted))
	require.Equal(t, float64(2), testutil.ToFloat64(p.metrics.numTxs))
}

func TestReservedBy(t *testing.T) {
	p := newPool(t, 0)
	first, second := newTx("alice", 10, 1), newTx("alice", 20, 2)
	p.Add(first)
	p.Add(second)
	p.Add(newTx("carol", 99, 0))

	reserved, err := p.ReservedBy("alice", ids.Empty)
	require.NoError(t, err)
	require.Equal(t, uint64(33), reserved)

	reserved, err = p.ReservedBy("alice", first.ID())
	require.NoError(t, err)
	require.Equal(t, uint64(22), reserved)
}

func TestPurgeExpired(t *testing.T) {
	p := newPool(t, 0)
	clock := testTime
	p.Now = func() time.Time { return clock }

	old := newTx("a", 1, 0)
	p.Add(old)
	clock = clock.Add(45 * time.Minute)
	fresh := newTx("b", 1, 0)
	p.Add(fresh)

	purged := p.PurgeExpired(30*time.Minute, testTime.Add(time.Hour))
	require.Equal(t, []ids.ID{old.ID()}, purged)
	require.Equal(t, []block.Transaction{fresh}, p.Pending())

	list := p.ExpiredPool.ListExpiredTxs()
	require.Len(t, list, 1)
	require.Equal(t, reasonTimeout, list[0].Reason)
	require.Equal(t, old, list[0].Tx)

	expired, ok := p.Expired(old.ID())
	require.True(t, ok)
	require.Equal(t, testTime.Add(time.Hour), expired.ExpiredAt)
}

func TestPurgeExpiredIgnoresClientTimestamp(t *testing.T) {
	p := newPool(t, 0)
	p.Now = func() time.Time { return testTime }

	future := *block.NewTransaction("a", "bob", 1, 0, testTime.Add(100*24*time.Hour))
	backdated := *block.NewTransaction("b", "bob", 1, 0, testTime.Add(-100*24*time.Hour))
	p.Add(future)
	p.Add(backdated)

	require.Empty(t, p.PurgeExpired(30*time.Minute, testTime.Add(time.Minute)))
	require.Len(t, p.PurgeExpired(30*time.Minute, testTime.Add(time.Hour)), 2)
	require.Zero(t, p.Len())
}

func TestExpiredTxPoolIsBounded(t *testing.T) {
	e, err := NewExpiredTxPool(2)
	require.NoError(t, err)
	txs := []block.Transaction{newTx("a", 1, 0), newTx("b", 1, 0), newTx("c", 1, 0)}
	for i, tx := range txs {
		e.AddExpiredTx(ExpiredTx{TxID: tx.ID(), Tx: tx, ExpiredAt: testTime.Add(time.Duration(i) * time.Second), Reason: reasonTimeout})
	}

	require.Equal(t, 2, e.Len())
	_, ok := e.GetExpiredTx(txs[0].ID())
	require.False(t, ok)
	list := e.ListExpiredTxs()
	require.Len(t, list, 2)
	require.Equal(t, txs[1].ID(), list[0].TxID)
	require.Equal(t, txs[2].ID(), list[1].TxID)
}
