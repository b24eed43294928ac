package mempool

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"emberchain/core"
	"emberchain/core/block"
	"emberchain/types/ids"
)

const (
	reasonTimeout = "timeout"
	reasonEvicted = "evicted"
)

// Pool holds pending transactions in insertion order until they are
// included in a committed block.
type Pool struct {
	mu          sync.Mutex
	txs         map[ids.ID]block.Transaction
	admitted    map[ids.ID]time.Time // local admission time, used for expiry
	order       []ids.ID             // FIFO order for eviction
	maxTxs      int                  // Max transactions in pool, 0 for unbounded
	ExpiredPool *ExpiredTxPool       // Archive for expired and evicted transactions
	metrics     *poolMetrics

	// Now stamps admissions. It defaults to time.Now.
	Now func() time.Time
}

// NewPool creates a pool holding at most maxTxs transactions. A nil
// registerer leaves the metrics unregistered.
func NewPool(maxTxs int, registerer prometheus.Registerer) (*Pool, error) {
	m, err := newMetrics(registerer)
	if err != nil {
		return nil, err
	}
	expired, err := NewExpiredTxPool(DefaultExpiredCapacity)
	if err != nil {
		return nil, err
	}
	return &Pool{
		txs:         make(map[ids.ID]block.Transaction),
		admitted:    make(map[ids.ID]time.Time),
		order:       make([]ids.ID, 0),
		maxTxs:      maxTxs,
		ExpiredPool: expired,
		metrics:     m,
		Now:         time.Now,
	}, nil
}

// Add appends tx to the pool. It returns false if the identical
// transaction is already pending.
func (p *Pool) Add(tx block.Transaction) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := tx.ID()
	if _, exists := p.txs[id]; exists {
		return false
	}
	now := p.Now()
	if p.maxTxs > 0 && len(p.txs) >= p.maxTxs {
		oldest := p.order[0]
		p.archive(oldest, reasonEvicted, now)
		delete(p.txs, oldest)
		delete(p.admitted, oldest)
		p.order = p.order[1:]
		p.metrics.evicted.Inc()
	}
	p.txs[id] = tx
	p.admitted[id] = now
	p.order = append(p.order, id)
	p.metrics.numTxs.Set(float64(len(p.txs)))
	return true
}

// Remove drops a transaction. Removing an absent transaction is a no-op.
func (p *Pool) Remove(id ids.ID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.remove(id)
	p.metrics.numTxs.Set(float64(len(p.txs)))
}

// RemoveAll drops every listed transaction under a single lock.
func (p *Pool) RemoveAll(txIDs []ids.ID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, id := range txIDs {
		p.remove(id)
	}
	p.metrics.numTxs.Set(float64(len(p.txs)))
}

func (p *Pool) remove(id ids.ID) {
	if _, exists := p.txs[id]; !exists {
		return
	}
	delete(p.txs, id)
	delete(p.admitted, id)
	for i, existing := range p.order {
		if existing == id {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}

// Get returns a transaction by ID (and bool for existence)
func (p *Pool) Get(id ids.ID) (block.Transaction, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	tx, ok := p.txs[id]
	return tx, ok
}

func (p *Pool) Contains(id ids.ID) bool {
	_, ok := p.Get(id)
	return ok
}

func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.txs)
}

// Pending returns an ordered snapshot of the pool taken under one lock.
func (p *Pool) Pending() []block.Transaction {
	p.mu.Lock()
	defer p.mu.Unlock()
	txs := make([]block.Transaction, 0, len(p.order))
	for _, id := range p.order {
		txs = append(txs, p.txs[id])
	}
	return txs
}

// ReservedBy sums amount plus fee over the pending transactions sent by
// sender, skipping exclude.
func (p *Pool) ReservedBy(sender string, exclude ids.ID) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var reserved uint64
	for _, id := range p.order {
		if id == exclude {
			continue
		}
		tx := p.txs[id]
		if tx.Sender != sender {
			continue
		}
		total, err := tx.Total()
		if err != nil {
			return 0, err
		}
		if reserved, err = core.SafeAdd(reserved, total); err != nil {
			return 0, err
		}
	}
	return reserved, nil
}

// PurgeExpired moves transactions admitted more than maxAge before now to
// the ExpiredTxPool and returns their IDs. Age is measured from admission,
// not from the client-supplied timestamp.
func (p *Pool) PurgeExpired(maxAge time.Duration, now time.Time) []ids.ID {
	p.mu.Lock()
	defer p.mu.Unlock()
	var purged []ids.ID
	newOrder := make([]ids.ID, 0, len(p.order))
	for _, id := range p.order {
		if now.Sub(p.admitted[id]) > maxAge {
			p.archive(id, reasonTimeout, now)
			delete(p.txs, id)
			delete(p.admitted, id)
			purged = append(purged, id)
		} else {
			newOrder = append(newOrder, id)
		}
	}
	p.order = newOrder
	p.metrics.numTxs.Set(float64(len(p.txs)))
	return purged
}

// Expired looks up a transaction that left the pool without being
// committed.
func (p *Pool) Expired(id ids.ID) (ExpiredTx, bool) {
	if p.ExpiredPool == nil {
		return ExpiredTx{}, false
	}
	return p.ExpiredPool.GetExpiredTx(id)
}

func (p *Pool) archive(id ids.ID, reason string, at time.Time) {
	if p.ExpiredPool == nil {
		return
	}
	p.ExpiredPool.AddExpiredTx(ExpiredTx{
		TxID:      id,
		Tx:        p.txs[id],
		ExpiredAt: at,
		Reason:    reason,
	})
}
