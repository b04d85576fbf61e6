package market

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
)

// u256Float converts a u256 amount to a float64 for Prometheus, which has
// no arbitrary-precision numeric type. This is lossy for very large
// balances and exists only for observability; no accounting decision in
// the Controller ever depends on it.
func u256Float(x *uint256.Int) float64 {
	f := new(big.Float).SetInt(x.ToBig())
	v, _ := f.Float64()
	return v
}

// metrics holds the Controller's Prometheus collectors. Each Controller
// owns its own prometheus.Registry rather than registering against the
// global default registerer, so tests can spin up many Controllers (and
// cmd/racer can spin up exactly one) without tripping "duplicate metrics
// collector registration" panics.
type metrics struct {
	registry      *prometheus.Registry
	votesPlaced   prometheus.Counter
	rewardsClaimed prometheus.Counter
	openBalance   prometheus.Gauge
	rewardAmounts prometheus.Histogram
}

func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	m := &metrics{
		registry: reg,
		votesPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "racer_votes_placed_total",
			Help: "Total number of votes successfully placed across all cycles.",
		}),
		rewardsClaimed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "racer_rewards_claimed_total",
			Help: "Total number of successful reward claims across all cycles.",
		}),
		openBalance: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "racer_open_cycle_balance",
			Help: "Sum of escrowed balance across all cycles that have not fully paid out.",
		}),
		rewardAmounts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "racer_reward_amount",
			Help:    "Distribution of paid-out reward amounts, in whole fee units.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.votesPlaced, m.rewardsClaimed, m.openBalance, m.rewardAmounts)
	return m
}

// Registry exposes the Controller's private Prometheus registry so a
// caller (cmd/racer) can serve it over /metrics.
func (c *Controller) Registry() *prometheus.Registry {
	return c.metrics.registry
}
