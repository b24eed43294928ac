package mempool

import (
	"github.com/prometheus/client_golang/prometheus"
)

type poolMetrics struct {
	numTxs  prometheus.Gauge
	evicted prometheus.Counter
}

func newMetrics(registerer prometheus.Registerer) (*poolMetrics, error) {
	m := &poolMetrics{
		numTxs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mempool_num_txs",
			Help: "Number of transactions in mempool",
		}),
		evicted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mempool_evicted_txs",
			Help: "Number of transactions evicted because the mempool was full",
		}),
	}
	if registerer == nil {
		return m, nil
	}

	err := registerer.Register(m.numTxs)
	if err != nil {
		return nil, err
	}
	err = registerer.Register(m.evicted)
	if err != nil {
		return nil, err
	}

	return m, nil
}
