// Copyright (C) 2024 Christian Rößner
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

package monitoring

import (
	"context"
	"strings"
	"sync"

	"github.com/cloudcopy/suspicious-login/server/config"
	"github.com/cloudcopy/suspicious-login/server/definitions"
	"github.com/cloudcopy/suspicious-login/server/log"

	"github.com/go-kit/log/level"
	b3prop "go.opentelemetry.io/contrib/propagators/b3"
	jaegerprop "go.opentelemetry.io/contrib/propagators/jaeger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// Telemetry provides lifecycle management for OpenTelemetry tracing.
type Telemetry struct {
	started bool
	tp      *sdktrace.TracerProvider
	mu      sync.Mutex
	prov    TelemetryConfigProvider
}

var telemetry Telemetry

// GetTelemetry returns the Telemetry singleton.
func GetTelemetry() *Telemetry { return &telemetry }

// TelemetryConfigProvider abstracts access to configuration used by telemetry.
type TelemetryConfigProvider interface {
	GetTelemetry() *config.Telemetry
	GetInstanceName() string
}

type defaultProvider struct{}

func (defaultProvider) GetTelemetry() *config.Telemetry {
	return config.GetFile().GetServer().GetTelemetry()
}

func (defaultProvider) GetInstanceName() string {
	return config.GetFile().GetServer().GetInstanceName()
}

// SetProvider allows injecting a custom configuration provider (primarily for tests).
func (t *Telemetry) SetProvider(p TelemetryConfigProvider) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.prov = p
}

// Started reports whether a tracer provider is installed.
func (t *Telemetry) Started() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.started
}

// Start installs a tracer provider exporting to server.telemetry.otlp_endpoint. Without an
// endpoint the global no-op provider stays in place. Safe to call multiple times.
func (t *Telemetry) Start(ctx context.Context, appVersion string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	prov := t.prov
	if prov == nil {
		prov = defaultProvider{}
	}

	cfg := prov.GetTelemetry()
	if !cfg.Enabled() || t.started {
		return
	}

	svcName := prov.GetInstanceName()

	res, _ := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(svcName),
		semconv.ServiceVersionKey.String(appVersion),
		attribute.String("instance", svcName),
	))

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.OTLPEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	tpOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.GetSamplerRatio()))),
		sdktrace.WithResource(res),
	}

	exp, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		level.Warn(log.Logger).Log(definitions.LogKeyMsg, "Failed to initialize OTLP/HTTP exporter", definitions.LogKeyError, err)
	} else {
		tpOpts = append(tpOpts, sdktrace.WithBatcher(newLoggingExporter(exp)))
	}

	tp := sdktrace.NewTracerProvider(tpOpts...)

	otel.SetTextMapPropagator(buildPropagators(cfg.Propagators))
	otel.SetTracerProvider(tp)

	t.tp = tp
	t.started = true

	level.Info(log.Logger).Log(definitions.LogKeyMsg, "OpenTelemetry tracing enabled", "service", svcName, "endpoint", cfg.OTLPEndpoint)
}

// loggingExporter decorates a SpanExporter to log failed exports.
type loggingExporter struct {
	delegate sdktrace.SpanExporter
}

func newLoggingExporter(delegate sdktrace.SpanExporter) sdktrace.SpanExporter {
	return &loggingExporter{delegate: delegate}
}

func (l *loggingExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	err := l.delegate.ExportSpans(ctx, spans)
	if err != nil {
		level.Warn(log.Logger).Log(
			definitions.LogKeyMsg, "OpenTelemetry trace export failed",
			definitions.LogKeyError, err,
			"span_count", len(spans),
		)
	}

	return err
}

func (l *loggingExporter) Shutdown(ctx context.Context) error {
	err := l.delegate.Shutdown(ctx)
	if err != nil {
		level.Warn(log.Logger).Log(definitions.LogKeyMsg, "OpenTelemetry exporter shutdown failed", definitions.LogKeyError, err)
	}

	return err
}

// Shutdown flushes pending spans and closes the provider.
func (t *Telemetry) Shutdown(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.started || t.tp == nil {
		return
	}

	_ = t.tp.Shutdown(ctx)

	t.started = false
	t.tp = nil
}

// buildPropagators maps server.telemetry.propagators to a composite propagator. Trace context
// and baggage are used when nothing (known) is configured.
func buildPropagators(names []string) propagation.TextMapPropagator {
	var list []propagation.TextMapPropagator

	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "tracecontext":
			list = append(list, propagation.TraceContext{})
		case "baggage":
			list = append(list, propagation.Baggage{})
		case "b3":
			list = append(list, b3prop.New())
		case "b3multi":
			list = append(list, b3prop.New(b3prop.WithInjectEncoding(b3prop.B3MultipleHeader)))
		case "jaeger":
			list = append(list, jaegerprop.Jaeger{})
		}
	}

	if len(list) == 0 {
		list = append(list, propagation.TraceContext{}, propagation.Baggage{})
	}

	return propagation.NewCompositeTextMapPropagator(list...)
}
