// Package tracing configures the OpenTelemetry tracer provider.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.uber.org/zap"
)

// Config selects where spans are exported.
type Config struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"` // host:port of an OTLP/HTTP collector
	Insecure    bool   `yaml:"insecure"`
	ServiceName string `yaml:"serviceName"`
}

// Setup installs a global tracer provider and returns it. Without an
// endpoint, spans are recorded and discarded.
func Setup(ctx context.Context, logger *zap.Logger, cfg Config, version string) (*sdktrace.TracerProvider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	var exporter sdktrace.SpanExporter
	if cfg.Endpoint != "" {
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		exporter, err = otlptracehttp.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		logger.Info("tracing exports to OTLP collector",
			zap.String("op", "tracing.Setup"),
			zap.String("endpoint", cfg.Endpoint),
		)
	} else {
		exporter = noopExporter{}
		logger.Info("tracing enabled without an exporter endpoint",
			zap.String("op", "tracing.Setup"),
		)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp, nil
}

// noopExporter drops every span.
type noopExporter struct{}

func (noopExporter) ExportSpans(context.Context, []sdktrace.ReadOnlySpan) error {
	return nil
}

func (noopExporter) Shutdown(context.Context) error {
	return nil
}
