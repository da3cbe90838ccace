package checkout

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	reasonInvalidInput = "invalid_input"
	reasonUnknownItems = "unknown_items"
)

type Metrics struct {
	Priced   prometheus.Counter
	Rejected *prometheus.CounterVec
	Totals   prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Priced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "baskets_priced_total",
			Help: "Baskets priced successfully",
		}),
		Rejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "baskets_rejected_total",
				Help: "Baskets rejected before pricing",
			},
			[]string{"reason"},
		),
		Totals: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "basket_total_minor_units",
			Help:    "Basket totals in minor currency units",
			Buckets: prometheus.ExponentialBuckets(10, 4, 8),
		}),
	}

	reg.MustRegister(m.Priced, m.Rejected, m.Totals)
	return m
}

func (m *Metrics) observePriced(total int64) {
	if m == nil {
		return
	}
	m.Priced.Inc()
	m.Totals.Observe(float64(total))
}

func (m *Metrics) observeRejected(reason string) {
	if m == nil {
		return
	}
	m.Rejected.WithLabelValues(reason).Inc()
}
