package telemetry_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"

	"github.com/JaimeStill/dispatch/pkg/telemetry"
)

func TestConfigFinalize(t *testing.T) {
	cfg := telemetry.Config{}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}
	if cfg.ServiceName != "dispatch" {
		t.Errorf("service_name: got %s, want dispatch", cfg.ServiceName)
	}
	if cfg.SampleRatio != 1 {
		t.Errorf("sample_ratio: got %v, want 1", cfg.SampleRatio)
	}

	bad := telemetry.Config{SampleRatio: 1.5}
	if err := bad.Finalize(nil); err == nil {
		t.Error("expected error for sample_ratio > 1")
	}
}

func TestConfigEnv(t *testing.T) {
	t.Setenv("TEST_TRACE_ENABLED", "true")
	t.Setenv("TEST_TRACE_RATIO", "0.25")

	cfg := telemetry.Config{}
	if err := cfg.Finalize(&telemetry.Env{Enabled: "TEST_TRACE_ENABLED", SampleRatio: "TEST_TRACE_RATIO"}); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}
	if !cfg.Enabled || cfg.SampleRatio != 0.25 {
		t.Errorf("config = %+v", cfg)
	}
}

func TestInitTracerExportsSpans(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	var buf bytes.Buffer
	cfg := &telemetry.Config{Enabled: true, ServiceName: "dispatch-test", SampleRatio: 1}

	shutdown, err := telemetry.InitTracerWriter(cfg, "v0.0.1", &buf, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("InitTracer: %v", err)
	}

	_, span := otel.Tracer("test").Start(context.Background(), "pipeline.run")
	span.End()

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "pipeline.run") {
		t.Errorf("exported spans missing pipeline.run: %s", out)
	}
	if !strings.Contains(out, "dispatch-test") {
		t.Errorf("exported spans missing service name: %s", out)
	}
}

func TestInitTracerDisabled(t *testing.T) {
	prev := otel.GetTracerProvider()

	shutdown, err := telemetry.InitTracer(&telemetry.Config{}, "dev", slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("InitTracer: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
	if otel.GetTracerProvider() != prev {
		t.Error("disabled tracing replaced the global provider")
	}
}
