package obs

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the store's Prometheus collectors.
type Metrics struct {
	SalesTotal        *prometheus.CounterVec
	SaleRejections    *prometheus.CounterVec
	ReceiptsPersisted *prometheus.CounterVec
	Turnover          prometheus.Gauge
}

// NewMetrics builds and registers the collectors. Collectors already registered under the
// same name are reused, so building twice against one registry is safe.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		SalesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sale_lines_total",
			Help:      "Committed sale lines by entry point.",
		}, []string{"entry"}),
		SaleRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sale_rejections_total",
			Help:      "Rejected sale attempts by error kind.",
		}, []string{"kind"}),
		ReceiptsPersisted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "receipts_persisted_total",
			Help:      "Receipt archive writes by result.",
		}, []string{"result"}),
		Turnover: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "turnover",
			Help:      "Turnover of all committed receipt lines.",
		}),
	}

	mustRegisterCollector(reg, m.SalesTotal, func(existing prometheus.Collector) {
		if v, ok := existing.(*prometheus.CounterVec); ok {
			m.SalesTotal = v
		}
	})
	mustRegisterCollector(reg, m.SaleRejections, func(existing prometheus.Collector) {
		if v, ok := existing.(*prometheus.CounterVec); ok {
			m.SaleRejections = v
		}
	})
	mustRegisterCollector(reg, m.ReceiptsPersisted, func(existing prometheus.Collector) {
		if v, ok := existing.(*prometheus.CounterVec); ok {
			m.ReceiptsPersisted = v
		}
	})
	mustRegisterCollector(reg, m.Turnover, func(existing prometheus.Collector) {
		if v, ok := existing.(prometheus.Gauge); ok {
			m.Turnover = v
		}
	})
	return m
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register metric: %w", err))
	}
}
