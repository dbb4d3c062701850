package observability

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/studyplan/studyplan/internal/logger"
)

const (
	TraceOff    = "off"
	TraceStdout = "stdout"
	TraceOTLP   = "otlp"
)

type TracingConfig struct {
	ServiceName string
	Environment string
	Version     string
	// Exporter is TraceOff, TraceStdout or TraceOTLP.
	Exporter string
	// Writer receives stdout spans; nil means os.Stdout.
	Writer io.Writer

	// OTLPEndpoint is host:port of an OTLP/HTTP collector. Empty uses the
	// exporter's default (localhost:4318).
	OTLPEndpoint string
	OTLPInsecure bool
}

// InitTracing installs the global tracer provider and propagator and
// returns its shutdown function. With the exporter off the propagator is
// still installed so X-Request-ID and traceparent flow to the service,
// and the returned shutdown is a no-op.
func InitTracing(ctx context.Context, log *logger.Logger, cfg TracingConfig) (func(context.Context) error, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	kind := strings.ToLower(strings.TrimSpace(cfg.Exporter))
	switch kind {
	case "", TraceOff:
		return func(context.Context) error { return nil }, nil
	case TraceStdout, TraceOTLP:
	default:
		return nil, fmt.Errorf("unknown trace exporter %q", cfg.Exporter)
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "studyplan"
	}
	res, err := resource.New(
		ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(strings.TrimSpace(cfg.Version)),
			attribute.String("deployment.environment", strings.TrimSpace(cfg.Environment)),
		),
	)
	if err != nil && log != nil {
		log.Warn("otel resource init failed (continuing)", "error", err)
	}

	var tp *sdktrace.TracerProvider
	if kind == TraceOTLP {
		exporter, err := buildOTLPExporter(ctx, cfg)
		if err != nil {
			return nil, err
		}
		tp = sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
			sdktrace.WithResource(res),
		)
	} else {
		opts := []stdouttrace.Option{stdouttrace.WithPrettyPrint()}
		if cfg.Writer != nil {
			opts = append(opts, stdouttrace.WithWriter(cfg.Writer))
		}
		exporter, err := stdouttrace.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
		}
		// Synchronous so a short CLI run still prints its spans.
		tp = sdktrace.NewTracerProvider(
			sdktrace.WithSyncer(exporter),
			sdktrace.WithResource(res),
		)
	}

	otel.SetTracerProvider(tp)
	if log != nil {
		log.Info("otel tracing initialized", "service", serviceName, "exporter", kind, "endpoint", cfg.OTLPEndpoint)
	}
	return tp.Shutdown, nil
}

func buildOTLPExporter(ctx context.Context, cfg TracingConfig) (sdktrace.SpanExporter, error) {
	opts := []otlptracehttp.Option{}
	if cfg.OTLPInsecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if endpoint := strings.TrimSpace(cfg.OTLPEndpoint); endpoint != "" {
		opts = append(opts, otlptracehttp.WithEndpoint(endpoint))
	}
	exp, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create otlp exporter: %w", err)
	}
	return exp, nil
}
