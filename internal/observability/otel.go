// Package observability wires tracing and metrics for the translation
// service: the OTLP tracer provider, GORM query tracing, and prometheus
// collectors for the cache and lifecycle notifications.
package observability

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"google.golang.org/grpc/credentials"

	"github.com/tbourn/go-polyglot/internal/config"
)

// ShutdownFunc flushes and stops the tracer provider.
type ShutdownFunc func(context.Context) error

// Seams replaced in tests.
var (
	newExporter = func(ctx context.Context, opts ...otlptracegrpc.Option) (*otlptrace.Exporter, error) {
		return otlptrace.New(ctx, otlptracegrpc.NewClient(opts...))
	}
	newResource = func(ctx context.Context, attrs ...attribute.KeyValue) (*resource.Resource, error) {
		return resource.New(ctx, resource.WithAttributes(attrs...))
	}
)

// TracingInfo describes the running service on every exported span.
type TracingInfo struct {
	Version          string
	SourceLocale     string
	SupportedLocales []string
}

func (i TracingInfo) attributes(service string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(service),
		semconv.ServiceVersion(i.Version),
	}
	if i.SourceLocale != "" {
		attrs = append(attrs, attribute.String("polyglot.source_locale", i.SourceLocale))
	}
	if len(i.SupportedLocales) > 0 {
		attrs = append(attrs, attribute.String("polyglot.supported_locales", strings.Join(i.SupportedLocales, ",")))
	}
	return attrs
}

// SetupOTel installs a global OTLP/gRPC tracer provider and the W3C
// propagators. When tracing is disabled it returns a no-op shutdown and
// leaves the globals alone; on error the globals are untouched as well.
func SetupOTel(ctx context.Context, cfg config.OTELConfig, info TracingInfo) (ShutdownFunc, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, errors.New("otel: exporter endpoint is empty")
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	} else {
		opts = append(opts, otlptracegrpc.WithTLSCredentials(credentials.NewClientTLSFromCert(nil, "")))
	}

	exp, err := newExporter(ctx, opts...)
	if err != nil {
		return nil, err
	}
	res, err := newResource(ctx, info.attributes(cfg.ServiceName)...)
	if err != nil {
		_ = exp.Shutdown(ctx)
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))
	return tp.Shutdown, nil
}
