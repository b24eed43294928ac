package consensus

import (
	"github.com/prometheus/client_golang/prometheus"
)

type engineMetrics struct {
	proposed  prometheus.Counter
	committed prometheus.Counter
	rejected  prometheus.Counter
	votes     prometheus.Counter
	pending   prometheus.Gauge
	rewards   prometheus.Counter
}

func newMetrics(registerer prometheus.Registerer) (*engineMetrics, error) {
	m := &engineMetrics{
		proposed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "consensus_blocks_proposed",
			Help: "Number of candidate blocks proposed",
		}),
		committed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "consensus_blocks_committed",
			Help: "Number of blocks committed",
		}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "consensus_blocks_rejected",
			Help: "Number of candidate blocks rejected during commit",
		}),
		votes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "consensus_votes",
			Help: "Number of distinct validator votes accepted",
		}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "consensus_pending_candidates",
			Help: "Number of candidate blocks awaiting commit",
		}),
		rewards: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "consensus_rewards_minted",
			Help: "Embers minted as staking rewards",
		}),
	}
	if registerer == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.proposed, m.committed, m.rejected, m.votes, m.pending, m.rewards} {
		if err := registerer.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}
