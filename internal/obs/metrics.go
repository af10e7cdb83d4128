package obs

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	engineOnce sync.Once

	// MatchAttemptsTotal counts bundle match attempts by outcome.
	MatchAttemptsTotal *prometheus.CounterVec
	// AdjustmentsTotal counts adjustment dispositions (emitted, vetoed, suppressed).
	AdjustmentsTotal *prometheus.CounterVec
	// DiscountMinorUnitsTotal accumulates emitted discount amounts in minor units.
	DiscountMinorUnitsTotal prometheus.Counter
	// MatchDuration records full adjustment-pass latency per order in milliseconds.
	MatchDuration prometheus.Histogram
)

// MustRegisterEngineMetrics initialises and registers the engine's Prometheus
// collectors. Safe to call more than once; later calls reuse the collectors
// already registered.
func MustRegisterEngineMetrics(namespace string, reg prometheus.Registerer) {
	engineOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		MatchAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bundle_match_attempts_total",
			Help:      "Count of bundle match attempts by result.",
		}, []string{"result"})
		AdjustmentsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bundle_adjustments_total",
			Help:      "Count of bundle adjustments by disposition.",
		}, []string{"disposition"})
		DiscountMinorUnitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bundle_discount_minor_units_total",
			Help:      "Total discount emitted by bundle adjustments, in minor units.",
		})
		MatchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "bundle_adjust_duration_ms",
			Help:      "Latency of a full bundle adjustment pass in milliseconds.",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 500},
		})

		mustRegisterCollector(reg, MatchAttemptsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				MatchAttemptsTotal = v
			}
		})
		mustRegisterCollector(reg, AdjustmentsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				AdjustmentsTotal = v
			}
		})
		mustRegisterCollector(reg, DiscountMinorUnitsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				DiscountMinorUnitsTotal = v
			}
		})
		mustRegisterCollector(reg, MatchDuration, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				MatchDuration = v
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
		panic(fmt.Errorf("register engine metric: %w", err))
	}
}

// DurationMillis converts a duration to milliseconds for metric observation.
func DurationMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
