package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/tbourn/go-polyglot/internal/config"
)

func keepGlobals(t *testing.T) {
	t.Helper()
	tp, prop := otel.GetTracerProvider(), otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(prop)
	})
}

func enabled(name string, insecure bool) config.OTELConfig {
	return config.OTELConfig{
		Enabled:     true,
		Insecure:    insecure,
		Endpoint:    "localhost:4317",
		ServiceName: name,
		SampleRatio: 1.0,
	}
}

func TestSetupOTel_DisabledIsNoop(t *testing.T) {
	keepGlobals(t)
	prev := otel.GetTracerProvider()

	shutdown, err := SetupOTel(context.Background(), config.OTELConfig{}, TracingInfo{})
	if err != nil || shutdown == nil {
		t.Fatalf("disabled: shutdown=%v err=%v", shutdown, err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("no-op shutdown: %v", err)
	}
	if otel.GetTracerProvider() != prev {
		t.Fatalf("provider replaced while disabled")
	}
}

func TestSetupOTel_InstallsProvider(t *testing.T) {
	for _, insecure := range []bool{true, false} {
		keepGlobals(t)
		shutdown, err := SetupOTel(context.Background(), enabled("polyglot-test", insecure), TracingInfo{Version: "v1"})
		if err != nil {
			t.Fatalf("insecure=%v: %v", insecure, err)
		}
		if _, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider); !ok {
			t.Fatalf("insecure=%v: provider not installed", insecure)
		}
		_, span := otel.Tracer("services/Test").Start(context.Background(), "Op")
		span.End()

		ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
		_ = shutdown(ctx)
		cancel()
	}
}

func TestSetupOTel_EmptyEndpoint(t *testing.T) {
	keepGlobals(t)
	cfg := enabled("svc", true)
	cfg.Endpoint = " "
	if _, err := SetupOTel(context.Background(), cfg, TracingInfo{}); err == nil {
		t.Fatalf("expected error for empty endpoint")
	}
}

func TestSetupOTel_ErrorsLeaveGlobals(t *testing.T) {
	keepGlobals(t)
	origExp, origRes := newExporter, newResource
	t.Cleanup(func() { newExporter, newResource = origExp, origRes })

	prevTP, prevProp := otel.GetTracerProvider(), otel.GetTextMapPropagator()
	check := func(name string) {
		t.Helper()
		if _, err := SetupOTel(context.Background(), enabled("svc", true), TracingInfo{}); err == nil {
			t.Fatalf("%s: expected error", name)
		}
		if otel.GetTracerProvider() != prevTP || otel.GetTextMapPropagator() != prevProp {
			t.Fatalf("%s: globals changed on failure", name)
		}
	}

	newExporter = func(context.Context, ...otlptracegrpc.Option) (*otlptrace.Exporter, error) {
		return nil, errors.New("boom-exporter")
	}
	check("exporter")

	newExporter = origExp
	newResource = func(context.Context, ...attribute.KeyValue) (*resource.Resource, error) {
		return nil, errors.New("boom-resource")
	}
	check("resource")
}

func TestTracingInfo_Attributes(t *testing.T) {
	attrs := TracingInfo{Version: "v2", SourceLocale: "en", SupportedLocales: []string{"en", "tr"}}.attributes("svc")
	got := map[attribute.Key]string{}
	for _, a := range attrs {
		got[a.Key] = a.Value.Emit()
	}
	if got["service.name"] != "svc" || got["polyglot.source_locale"] != "en" || got["polyglot.supported_locales"] != "en,tr" {
		t.Fatalf("attributes = %v", got)
	}
	if n := len(TracingInfo{}.attributes("svc")); n != 2 {
		t.Fatalf("empty info attrs = %d; want 2", n)
	}
}
