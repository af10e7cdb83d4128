package obs

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestMustRegisterEngineMetricsIsIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	MustRegisterEngineMetrics("bundle_engine_test", reg)
	// Re-registration must neither panic nor replace the collectors.
	MustRegisterEngineMetrics("bundle_engine_test", reg)

	if MatchAttemptsTotal == nil || AdjustmentsTotal == nil || DiscountMinorUnitsTotal == nil || MatchDuration == nil {
		t.Fatal("expected all engine collectors to be initialised")
	}
}

func TestDurationMillis(t *testing.T) {
	if got := DurationMillis(1500 * time.Millisecond); got != 1500 {
		t.Fatalf("expected 1500, got %f", got)
	}
}
