package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// TotalsComputedTotal counts document totals computations by tax mode and outcome.
	TotalsComputedTotal *prometheus.CounterVec
	// ValidationViolationsTotal counts rejected input fields.
	ValidationViolationsTotal *prometheus.CounterVec
	// QuotationCreatedTotal counts persisted quotations.
	QuotationCreatedTotal prometheus.Counter
	// QuotationTransitionsTotal counts status transitions by target status.
	QuotationTransitionsTotal *prometheus.CounterVec
	// QuotationGrossTotal records quotation gross totals in major currency units.
	QuotationGrossTotal prometheus.Histogram
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		TotalsComputedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quotation_totals_computed_total",
			Help:      "Count of document totals computations by tax mode and result.",
		}, []string{"mode", "result"})
		ValidationViolationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quotation_validation_violations_total",
			Help:      "Count of rejected input fields.",
		}, []string{"field"})
		QuotationCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quotation_created_total",
			Help:      "Total number of quotations created.",
		})
		QuotationTransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quotation_transitions_total",
			Help:      "Count of quotation status transitions by target status.",
		}, []string{"status"})
		QuotationGrossTotal = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "quotation_gross_total",
			Help:      "Distribution of quotation gross totals in major currency units.",
			Buckets:   []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000},
		})

		mustRegisterCollector(reg, TotalsComputedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				TotalsComputedTotal = v
			}
		})
		mustRegisterCollector(reg, ValidationViolationsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				ValidationViolationsTotal = v
			}
		})
		mustRegisterCollector(reg, QuotationCreatedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				QuotationCreatedTotal = v
			}
		})
		mustRegisterCollector(reg, QuotationTransitionsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				QuotationTransitionsTotal = v
			}
		})
		mustRegisterCollector(reg, QuotationGrossTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				QuotationGrossTotal = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
