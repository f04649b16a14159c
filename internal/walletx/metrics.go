package walletx

import (
	"math/big"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	drift  prometheus.Gauge
	writer prometheus.Gauge
}

func newMetrics(registry prometheus.Registerer) *metrics {
	if registry == nil {
		return nil
	}
	factory := promauto.With(registry)
	return &metrics{
		drift: factory.NewGauge(prometheus.GaugeOpts{
			Name: "walletx_custody_drift",
			Help: "Custody token balance minus the balance expected by the ledger, in base units",
		}),
		writer: factory.NewGauge(prometheus.GaugeOpts{
			Name: "walletx_writer",
			Help: "1 if this instance holds the ledger writer lease",
		}),
	}
}

func (m *metrics) setDrift(drift *big.Int) {
	if m == nil {
		return
	}
	f, _ := new(big.Float).SetInt(drift).Float64()
	m.drift.Set(f)
}

func (m *metrics) setWriter(writer bool) {
	if m == nil {
		return
	}
	if writer {
		m.writer.Set(1)
	} else {
		m.writer.Set(0)
	}
}
