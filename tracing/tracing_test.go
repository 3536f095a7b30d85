package tracing

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// recordSpans installs a tracer provider that keeps ended spans in memory.
func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return rec
}

func attrMap(kvs []attribute.KeyValue) map[string]string {
	m := make(map[string]string, len(kvs))
	for _, kv := range kvs {
		m[string(kv.Key)] = kv.Value.Emit()
	}
	return m
}

func onlySpan(t *testing.T, rec *tracetest.SpanRecorder) sdktrace.ReadOnlySpan {
	t.Helper()
	ended := rec.Ended()
	if len(ended) != 1 {
		t.Fatalf("expected 1 ended span, got %d", len(ended))
	}
	return ended[0]
}

func TestDefaultConfig(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		enabled     bool
		environment string
		endpoint    string
	}{
		{
			name:        "no environment",
			environment: "development",
		},
		{
			name:        "explicitly enabled",
			env:         map[string]string{"OTEL_ENABLED": "true", "OTEL_ENVIRONMENT": "production"},
			enabled:     true,
			environment: "production",
		},
		{
			name:        "endpoint enables export",
			env:         map[string]string{"OTEL_EXPORTER_OTLP_ENDPOINT": "collector:4318"},
			enabled:     true,
			environment: "development",
			endpoint:    "collector:4318",
		},
		{
			name:        "only true enables",
			env:         map[string]string{"OTEL_ENABLED": "1"},
			environment: "development",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("OTEL_ENABLED", "")
			t.Setenv("OTEL_ENVIRONMENT", "")
			t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg := DefaultConfig()
			if cfg.ServiceName != TracerName {
				t.Errorf("ServiceName = %q, want %q", cfg.ServiceName, TracerName)
			}
			if cfg.Enabled != tt.enabled {
				t.Errorf("Enabled = %v, want %v", cfg.Enabled, tt.enabled)
			}
			if cfg.Environment != tt.environment {
				t.Errorf("Environment = %q, want %q", cfg.Environment, tt.environment)
			}
			if cfg.OTLPEndpoint != tt.endpoint {
				t.Errorf("OTLPEndpoint = %q, want %q", cfg.OTLPEndpoint, tt.endpoint)
			}
			if cfg.SampleRate != 1.0 {
				t.Errorf("SampleRate = %v, want 1.0", cfg.SampleRate)
			}
		})
	}
}

func TestSetup_DisabledLeavesProviderAlone(t *testing.T) {
	prev := otel.GetTracerProvider()

	shutdown, err := Setup(context.Background(), Config{Enabled: false})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
	if otel.GetTracerProvider() != prev {
		t.Error("disabled Setup replaced the global tracer provider")
	}
}

func TestSetup_StderrExporter(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	for _, rate := range []float64{1.5, 1.0, 0.25, 0, -1} {
		cfg := DefaultConfig()
		cfg.Enabled = true
		cfg.OTLPEndpoint = ""
		cfg.SampleRate = rate

		shutdown, err := Setup(context.Background(), cfg)
		if err != nil {
			t.Fatalf("Setup(rate=%v): %v", rate, err)
		}
		if _, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider); !ok {
			t.Errorf("rate=%v: global provider is %T, want SDK provider", rate, otel.GetTracerProvider())
		}
		if err := shutdown(context.Background()); err != nil {
			t.Errorf("rate=%v: shutdown: %v", rate, err)
		}
	}
}

func TestAddToolAttributes(t *testing.T) {
	rec := recordSpans(t)

	_, span := StartSpan(context.Background(), "mcp.tool.get_exoplanet_properties")
	AddToolAttributes(span, "get_exoplanet_properties", "exomast")
	span.End()

	got := onlySpan(t, rec)
	if got.Name() != "mcp.tool.get_exoplanet_properties" {
		t.Errorf("span name = %q", got.Name())
	}
	attrs := attrMap(got.Attributes())
	if attrs["mcp.tool.name"] != "get_exoplanet_properties" {
		t.Errorf("mcp.tool.name = %q", attrs["mcp.tool.name"])
	}
	if attrs["mcp.tool.server"] != "exomast" {
		t.Errorf("mcp.tool.server = %q", attrs["mcp.tool.server"])
	}
	if got.InstrumentationScope().Name != TracerName {
		t.Errorf("scope = %q, want %q", got.InstrumentationScope().Name, TracerName)
	}
}

func TestAddUpstreamAttributes(t *testing.T) {
	tests := []struct {
		name        string
		upstream    string
		service     string
		wantService bool
	}{
		{"portal service", "mast", "Mast.Caom.Filtered.Position", true},
		{"exomast route", "exomast", "exoplanets/properties", true},
		{"no service", "mast", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := recordSpans(t)

			_, span := StartSpan(context.Background(), tt.upstream+".request")
			AddUpstreamAttributes(span, tt.upstream, tt.service)
			span.End()

			attrs := attrMap(onlySpan(t, rec).Attributes())
			if attrs["archive.upstream"] != tt.upstream {
				t.Errorf("archive.upstream = %q, want %q", attrs["archive.upstream"], tt.upstream)
			}
			svc, ok := attrs["archive.service"]
			if ok != tt.wantService {
				t.Fatalf("archive.service present = %v, want %v", ok, tt.wantService)
			}
			if ok && svc != tt.service {
				t.Errorf("archive.service = %q, want %q", svc, tt.service)
			}
		})
	}
}

func TestRecordError(t *testing.T) {
	rec := recordSpans(t)

	_, span := StartSpan(context.Background(), "mast.invoke")
	RecordError(span, nil)
	RecordError(span, errors.New("portal job failed"))
	span.End()

	events := onlySpan(t, rec).Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Name != "exception" {
		t.Errorf("event name = %q, want exception", events[0].Name)
	}
	if msg := attrMap(events[0].Attributes)["exception.message"]; msg != "portal job failed" {
		t.Errorf("exception.message = %q", msg)
	}
}

func TestStartSpan_NestsUnderToolSpan(t *testing.T) {
	rec := recordSpans(t)

	ctx, tool := StartSpan(context.Background(), "mcp.tool.search_observations")
	_, upstream := StartSpan(ctx, "mast.request")
	upstream.End()
	tool.End()

	ended := rec.Ended()
	if len(ended) != 2 {
		t.Fatalf("expected 2 ended spans, got %d", len(ended))
	}
	child, parent := ended[0], ended[1]
	if child.Parent().SpanID() != parent.SpanContext().SpanID() {
		t.Error("upstream span is not a child of the tool span")
	}
	if child.SpanContext().TraceID() != parent.SpanContext().TraceID() {
		t.Error("upstream span is in a different trace")
	}
}

func TestGetEnvOrDefault(t *testing.T) {
	t.Setenv("MAST_TRACING_TEST_SET", "ops")
	t.Setenv("MAST_TRACING_TEST_EMPTY", "")

	if got := getEnvOrDefault("MAST_TRACING_TEST_SET", "development"); got != "ops" {
		t.Errorf("set: got %q", got)
	}
	if got := getEnvOrDefault("MAST_TRACING_TEST_EMPTY", "development"); got != "development" {
		t.Errorf("empty: got %q", got)
	}
	if got := getEnvOrDefault("MAST_TRACING_TEST_UNSET", "development"); got != "development" {
		t.Errorf("unset: got %q", got)
	}
}
