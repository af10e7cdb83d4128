package obs

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/noah-isme/bundle-engine"

// Tracer returns the engine's OpenTelemetry tracer. The host process owns
// tracer-provider setup and exporters; the engine only opens spans.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}
