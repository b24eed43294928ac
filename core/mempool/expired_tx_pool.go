package mempool

import (
	"sort"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"emberchain/core/block"
	"emberchain/types/ids"
)

// DefaultExpiredCapacity bounds the archive of dropped transactions.
const DefaultExpiredCapacity = 4096

// ExpiredTx represents a transaction that left the pool without being
// included in a block.
type ExpiredTx struct {
	TxID      ids.ID            `json:"id"`
	Tx        block.Transaction `json:"transaction"`
	ExpiredAt time.Time         `json:"expiredAt"`
	Reason    string            `json:"reason"` // "timeout" or "evicted"
}

// ExpiredTxPool keeps the most recently dropped transactions. The oldest
// entries are forgotten once it is full.
type ExpiredTxPool struct {
	cache *lru.Cache
}

// NewExpiredTxPool holds up to size transactions, DefaultExpiredCapacity
// when size is not positive.
func NewExpiredTxPool(size int) (*ExpiredTxPool, error) {
	if size <= 0 {
		size = DefaultExpiredCapacity
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &ExpiredTxPool{cache: cache}, nil
}

// AddExpiredTx adds an expired transaction to the pool.
func (e *ExpiredTxPool) AddExpiredTx(tx ExpiredTx) {
	e.cache.Add(tx.TxID, tx)
}

// GetExpiredTx retrieves an expired transaction by ID.
func (e *ExpiredTxPool) GetExpiredTx(txID ids.ID) (ExpiredTx, bool) {
	v, ok := e.cache.Peek(txID)
	if !ok {
		return ExpiredTx{}, false
	}
	return v.(ExpiredTx), true
}

func (e *ExpiredTxPool) Len() int { return e.cache.Len() }

// ListExpiredTxs returns the retained expired transactions, oldest first.
func (e *ExpiredTxPool) ListExpiredTxs() []ExpiredTx {
	keys := e.cache.Keys()
	txs := make([]ExpiredTx, 0, len(keys))
	for _, k := range keys {
		if v, ok := e.cache.Peek(k); ok {
			txs = append(txs, v.(ExpiredTx))
		}
	}
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].ExpiredAt.Before(txs[j].ExpiredAt)
	})
	return txs
}
