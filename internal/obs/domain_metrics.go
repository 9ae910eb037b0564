package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CartCalculationsTotal counts cart calculation runs by result.
	CartCalculationsTotal *prometheus.CounterVec
	// CartCalculationDuration records full pipeline latency in milliseconds.
	CartCalculationDuration *prometheus.HistogramVec
	// ShippingTierMatchTotal counts shipping tier resolution outcomes.
	ShippingTierMatchTotal *prometheus.CounterVec
	// PromotionOutcomeTotal counts how promotion items were handled.
	PromotionOutcomeTotal *prometheus.CounterVec
	// CartPersistTotal counts cart load/save/delete outcomes in the store.
	CartPersistTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CartCalculationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_calculations_total",
			Help:      "Count of cart calculation pipeline runs by result.",
		}, []string{"result"})
		CartCalculationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cart_calculation_duration_ms",
			Help:      "Latency of cart calculation pipeline runs in milliseconds.",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 500},
		}, []string{"result"})
		ShippingTierMatchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shipping_tier_match_total",
			Help:      "Count of shipping price tier resolution outcomes.",
		}, []string{"outcome"})
		PromotionOutcomeTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "promotion_outcome_total",
			Help:      "Count of promotion line item handling outcomes.",
		}, []string{"outcome"})
		CartPersistTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_persist_total",
			Help:      "Count of cart persistence operations by action and result.",
		}, []string{"action", "result"})

		mustRegisterCollector(reg, CartCalculationsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CartCalculationsTotal = v
			}
		})
		mustRegisterCollector(reg, CartCalculationDuration, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.HistogramVec); ok {
				CartCalculationDuration = v
			}
		})
		mustRegisterCollector(reg, ShippingTierMatchTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				ShippingTierMatchTotal = v
			}
		})
		mustRegisterCollector(reg, PromotionOutcomeTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PromotionOutcomeTotal = v
			}
		})
		mustRegisterCollector(reg, CartPersistTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CartPersistTotal = v
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
