package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// newMeterProvider returns the provider selected by --metrics and a function
// that flushes and stops it.
func newMeterProvider(exporter string) (metric.MeterProvider, func() error, error) {
	nop := func() error { return nil }
	switch exporter {
	case "", "none":
		return noop.NewMeterProvider(), nop, nil
	case "stdout":
	default:
		return nil, nop, fmt.Errorf("unsupported metrics exporter %q", exporter)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceName("arenactl"),
			semconv.ServiceVersion(version),
		))
	if err != nil {
		return nil, nop, fmt.Errorf("creating OTEL resource: %w", err)
	}
	// Metrics go to stderr so stdout keeps the report.
	me, err := stdoutmetric.New(stdoutmetric.WithWriter(os.Stderr))
	if err != nil {
		return nil, nop, fmt.Errorf("creating stdout exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(me)),
	)
	shutdown := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mp.Shutdown(ctx); err != nil {
			return fmt.Errorf("metrics shutdown: %w", err)
		}
		return nil
	}
	return mp, shutdown, nil
}
