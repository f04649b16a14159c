package ledger

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts ledger operations by outcome. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	operations *prometheus.CounterVec
	wallets    prometheus.Gauge
	members    prometheus.Gauge
}

// NewMetrics registers the ledger metrics with registry. It returns nil when
// registry is nil.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		return nil
	}
	factory := promauto.With(registry)
	return &Metrics{
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "walletx_ledger_operations_total",
			Help: "Total number of ledger operations by operation and result",
		}, []string{"operation", "result"}),
		wallets: factory.NewGauge(prometheus.GaugeOpts{
			Name: "walletx_ledger_wallets",
			Help: "Number of registered wallets",
		}),
		members: factory.NewGauge(prometheus.GaugeOpts{
			Name: "walletx_ledger_members",
			Help: "Number of live members across all wallets",
		}),
	}
}

func (m *Metrics) observe(operation string, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, resultLabel(err)).Inc()
}

func (m *Metrics) setCounts(wallets, members int) {
	if m == nil {
		return
	}
	m.wallets.Set(float64(wallets))
	m.members.Set(float64(members))
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsInsufficientFunds(err):
		return "insufficient_funds"
	case errors.Is(err, ErrNotAdmin), errors.Is(err, ErrNotMember):
		return "unauthorized"
	case errors.Is(err, ErrNoAllowance):
		return "no_allowance"
	default:
		return "rejected"
	}
}
