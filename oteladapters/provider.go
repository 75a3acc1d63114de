package oteladapters

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/bookverse/borrowledger/shell"
)

const (
	tracesPath     = "v1/traces"
	metricsPath    = "v1/metrics"
	metricInterval = 10 * time.Second
)

var ErrInvalidEndpoint = errors.New("invalid OTLP endpoint")

// Setup registers a tracer provider and a meter provider exporting to the OTLP/HTTP collector at
// endpoint (a base URL such as http://localhost:4318), and returns the matching Observability for
// the ledger handlers. Contextual logs go to local, tagged with the active span.
//
// Telemetry is opt-in: with an empty endpoint nothing is registered, the Observability is the
// zero value and shutdown is a no-op. Shutdown flushes pending spans and metrics and should be
// deferred.
func Setup(
	ctx context.Context,
	serviceName, endpoint string,
	local slog.Handler,
) (shell.Observability, func(context.Context) error, error) {

	noop := func(context.Context) error { return nil }

	if endpoint == "" {
		return shell.Observability{}, noop, nil
	}

	tracesURL, metricsURL, err := signalURLs(endpoint)
	if err != nil {
		return shell.Observability{}, noop, err
	}

	traceExporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(tracesURL))
	if err != nil {
		return shell.Observability{}, noop, err
	}

	metricExporter, err := otlpmetrichttp.New(ctx, otlpmetrichttp.WithEndpointURL(metricsURL))
	if err != nil {
		return shell.Observability{}, noop, errors.Join(err, traceExporter.Shutdown(ctx))
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(serviceName)))
	if err != nil {
		return shell.Observability{}, noop, errors.Join(err, traceExporter.Shutdown(ctx), metricExporter.Shutdown(ctx))
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(metricInterval))),
		sdkmetric.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	if local == nil {
		local = slog.DiscardHandler
	}

	observability := shell.Observability{
		ContextualLogger: NewSlogBridgeLogger(serviceName, local),
		Metrics:          NewMetricsCollector(mp.Meter(serviceName)),
		Tracing:          NewTracingCollector(tp.Tracer(serviceName)),
	}

	shutdown := func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}

	return observability, shutdown, nil
}

func signalURLs(endpoint string) (string, string, error) {
	base, err := url.Parse(endpoint)
	if err != nil {
		return "", "", errors.Join(ErrInvalidEndpoint, err)
	}

	if (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return "", "", errors.Join(ErrInvalidEndpoint, errors.New(endpoint))
	}

	return base.JoinPath(tracesPath).String(), base.JoinPath(metricsPath).String(), nil
}
