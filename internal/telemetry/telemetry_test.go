package telemetry

import (
	"context"
	"io"
	"testing"

	"github.com/charmbracelet/log"
)

func TestEndpoint(t *testing.T) {
	tc := []struct {
		env  string
		want string
	}{
		{"", ""},
		{"collector:4318", "http://collector:4318"},
		{"https://otel.example.com", "https://otel.example.com"},
	}

	for _, tt := range tc {
		t.Run(tt.env, func(t *testing.T) {
			t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", tt.env)
			if got := Endpoint(); got != tt.want {
				t.Errorf("Endpoint() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInitDisabled(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	shutdown, err := Init(context.Background(), "reeltrack-test", log.New(io.Discard))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("noop shutdown returned %v", err)
	}
}
