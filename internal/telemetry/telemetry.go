// Package telemetry wraps OTel SDK tracer-provider setup. When
// telemetry is disabled, Init returns a noop Providers and the
// package-level tracers registered throughout the module stay no-ops.
package telemetry

import (
	"context"
	"runtime/debug"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/flipsync/fabric/config"
)

// Providers holds the OTel SDK TracerProvider. When telemetry is
// disabled, tp is nil and Shutdown is a no-op.
type Providers struct {
	tp *sdktrace.TracerProvider
}

// Init builds and globally registers a TracerProvider sampling at
// cfg.TelemetrySampleRate. It has no span exporter wired (no OTLP
// collector dependency is part of this module's stack), so spans are
// created and timed but not shipped anywhere. The returned Providers
// does not expose the TracerProvider; the only handle to it is the
// global one registered via otel.SetTracerProvider.
func Init(cfg *config.Config, logger *zap.Logger) (*Providers, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.TelemetryEnabled {
		logger.Info("telemetry disabled, using noop tracer provider")
		return &Providers{}, nil
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			attribute.String("service.name", cfg.TelemetryServiceName),
			attribute.String("service.version", buildVersion()),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.TelemetrySampleRate)),
	)
	otel.SetTracerProvider(tp)

	logger.Info("telemetry initialized",
		zap.String("service_name", cfg.TelemetryServiceName),
		zap.Float64("sample_rate", cfg.TelemetrySampleRate),
	)
	return &Providers{tp: tp}, nil
}

// Shutdown flushes the tracer provider. Safe to call on a noop
// Providers.
func (p *Providers) Shutdown(ctx context.Context) error {
	if p == nil || p.tp == nil {
		return nil
	}
	return p.tp.Shutdown(ctx)
}

func buildVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "dev"
	}
	if info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev"
}
