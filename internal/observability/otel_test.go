package observability

import (
	"testing"
)

func TestOtelHeaders(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "authorization=Bearer x, bad, empty=,k=v")
	h := otelHeaders()
	if len(h) != 2 || h["authorization"] != "Bearer x" || h["k"] != "v" {
		t.Fatalf("unexpected headers: %v", h)
	}
}

func TestOtelSampleRatioClamps(t *testing.T) {
	t.Setenv("OTEL_SAMPLER_RATIO", "3")
	if r := otelSampleRatio(); r != 1 {
		t.Fatalf("expected clamp to 1, got %v", r)
	}
	t.Setenv("OTEL_SAMPLER_RATIO", "nope")
	if r := otelSampleRatio(); r != 0.1 {
		t.Fatalf("expected default 0.1, got %v", r)
	}
}

func TestStatusClass(t *testing.T) {
	if statusClass(204) != "2xx" || statusClass(404) != "4xx" || statusClass(503) != "5xx" || statusClass(0) != "unknown" {
		t.Fatalf("unexpected status classes")
	}
}
