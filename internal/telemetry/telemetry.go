// Package telemetry provides OpenTelemetry tracing initialization and
// lifecycle management for the mailroom worker.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/mailroom-io/mailroom/internal/build"
)

// Options configures the OpenTelemetry providers.
type Options struct {
	// Enabled controls whether tracing is active. When false, a no-op
	// TracerProvider is installed and the shutdown function is a no-op.
	Enabled bool

	// Endpoint is the OTLP gRPC collector endpoint (e.g. "otel-collector:4317").
	Endpoint string

	// Insecure disables TLS for the OTLP gRPC connection.
	Insecure bool

	// SamplingRatio is the probability of sampling a trace (0.0-1.0).
	// Out-of-range values are clamped to 1.0.
	SamplingRatio float64

	// Extended additionally installs an OTel log provider and returns an
	// otelslog handler so application logs ship to the same collector.
	Extended bool

	// Logger is used for internal diagnostics during initialization.
	Logger *slog.Logger
}

// ShutdownFunc gracefully shuts down the installed providers, flushing
// pending spans and log records.
type ShutdownFunc func(ctx context.Context) error

// Init initialises the global OpenTelemetry TracerProvider and propagator.
// The returned slog.Handler is non-nil only when opts.Extended is set; callers
// wire it into their logger to ship logs through OTLP.
//
// When opts.Enabled is false a no-op provider is installed; the returned
// ShutdownFunc is safe to call and always returns nil.
func Init(ctx context.Context, opts Options) (trace.TracerProvider, slog.Handler, ShutdownFunc, error) {
	if !opts.Enabled {
		tp := noop.NewTracerProvider()
		otel.SetTracerProvider(tp)
		return tp, nil, func(context.Context) error { return nil }, nil
	}

	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if opts.SamplingRatio <= 0 || opts.SamplingRatio > 1.0 {
		log.Warn("telemetry sampling ratio out of range, clamping to 1.0",
			slog.Float64("provided", opts.SamplingRatio))
		opts.SamplingRatio = 1.0
	}

	// NewSchemaless avoids schema URL conflicts with resource.Default().
	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			attribute.String("service.name", build.Name),
			attribute.String("service.version", build.Version),
		),
	)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("creating OTel resource: %w", err)
	}

	grpcOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(opts.Endpoint)}
	if opts.Insecure {
		grpcOpts = append(grpcOpts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, grpcOpts...)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("creating OTLP trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(
			sdktrace.TraceIDRatioBased(opts.SamplingRatio),
		)),
		sdktrace.WithBatcher(exporter),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	// Route OTel internal errors (e.g. OTLP export failures) through the
	// structured logger instead of the default stderr handler.
	otel.SetErrorHandler(otel.ErrorHandlerFunc(func(err error) {
		log.Warn("opentelemetry internal error", slog.Any("error", err))
	}))

	var lp *sdklog.LoggerProvider
	var handler slog.Handler
	if opts.Extended {
		logOpts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(opts.Endpoint)}
		if opts.Insecure {
			logOpts = append(logOpts, otlploggrpc.WithInsecure())
		}
		logExporter, err := otlploggrpc.New(ctx, logOpts...)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("creating OTLP log exporter: %w", err)
		}
		lp = sdklog.NewLoggerProvider(
			sdklog.WithResource(res),
			sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter)),
		)
		handler = otelslog.NewHandler(build.Name, otelslog.WithLoggerProvider(lp))
	}

	log.Info("opentelemetry initialized",
		slog.String("endpoint", opts.Endpoint),
		slog.Bool("insecure", opts.Insecure),
		slog.Float64("sampling_ratio", opts.SamplingRatio),
		slog.Bool("extended", opts.Extended),
	)

	shutdown := func(ctx context.Context) error {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		err := tp.Shutdown(shutdownCtx)
		if lp != nil {
			if lpErr := lp.Shutdown(shutdownCtx); err == nil {
				err = lpErr
			}
		}
		return err
	}

	return tp, handler, shutdown, nil
}
