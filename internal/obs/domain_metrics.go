package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// SaleSubmissionsTotal counts per-company sale submission outcomes.
	SaleSubmissionsTotal *prometheus.CounterVec
	// PaymentValidationFailures counts payment guard rejections by kind.
	PaymentValidationFailures *prometheus.CounterVec
	// CatalogGuardFailures counts forced postings blocked by missing catalog items.
	CatalogGuardFailures prometheus.Counter
	// SplitSalesTotal counts mixed carts split into two invoices.
	SplitSalesTotal prometheus.Counter
	// SkippedStockMovesTotal counts cross-company lines skipped by forced postings.
	SkippedStockMovesTotal prometheus.Counter
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		SaleSubmissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sale_submissions_total",
			Help:      "Count of sale submission outcomes per company.",
		}, []string{"company", "result"})
		PaymentValidationFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_validation_failures_total",
			Help:      "Count of payment guard rejections by kind.",
		}, []string{"kind"})
		CatalogGuardFailures = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_guard_failures_total",
			Help:      "Forced single-company postings blocked by missing catalog items.",
		})
		SplitSalesTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "split_sales_total",
			Help:      "Mixed carts split into one invoice per company.",
		})
		SkippedStockMovesTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skipped_stock_moves_total",
			Help:      "Cross-company lines whose stock move was skipped by a forced posting.",
		})

		mustRegisterCollector(reg, SaleSubmissionsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				SaleSubmissionsTotal = v
			}
		})
		mustRegisterCollector(reg, PaymentValidationFailures, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PaymentValidationFailures = v
			}
		})
		mustRegisterCollector(reg, CatalogGuardFailures, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				CatalogGuardFailures = v
			}
		})
		mustRegisterCollector(reg, SplitSalesTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				SplitSalesTotal = v
			}
		})
		mustRegisterCollector(reg, SkippedStockMovesTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				SkippedStockMovesTotal = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, c prometheus.Collector, onExisting func(prometheus.Collector)) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			onExisting(are.ExistingCollector)
			return
		}
		panic(err)
	}
}
