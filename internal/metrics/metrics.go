package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vncsmyrnk/relayer/internal/core/domain"
)

const namespace = "relayer"

type Metrics struct {
	VotesTotal      *prometheus.CounterVec
	PollsCreated    prometheus.Counter
	Transactions    *prometheus.CounterVec
	WalletBalance   prometheus.Gauge
	WalletHealth    *prometheus.GaugeVec
	FundingAttempts *prometheus.CounterVec
}

// New registers the relayer collectors with reg. A nil reg yields working
// collectors that are not exported anywhere.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		VotesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "votes_total",
				Help:      "Vote requests by outcome",
			},
			[]string{"outcome"},
		),
		PollsCreated: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "polls_created_total",
				Help:      "Polls created",
			},
		),
		Transactions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transactions_total",
				Help:      "Sponsored transactions by kind and result",
			},
			[]string{"kind", "result"},
		),
		WalletBalance: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "wallet_balance_lamports",
				Help:      "Last sampled relayer wallet balance",
			},
		),
		WalletHealth: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "wallet_health",
				Help:      "1 for the current wallet health state, 0 otherwise",
			},
			[]string{"state"},
		),
		FundingAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "funding_attempts_total",
				Help:      "Wallet replenishment attempts by result",
			},
			[]string{"result"},
		),
	}
}

func (m *Metrics) SetWalletHealth(health domain.WalletHealth) {
	for _, h := range []domain.WalletHealth{domain.WalletHealthy, domain.WalletWarning, domain.WalletCritical} {
		v := 0.0
		if h == health {
			v = 1
		}
		m.WalletHealth.WithLabelValues(string(h)).Set(v)
	}
}
