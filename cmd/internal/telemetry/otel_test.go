package telemetry

import (
	"context"
	"testing"

	"smallcrm/cmd/internal/config"
)

func TestSetup_Disabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), config.OTELConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestSetup_Enabled(t *testing.T) {
	// The gRPC exporter connects lazily, so an unreachable endpoint still sets up.
	shutdown, err := Setup(context.Background(), config.OTELConfig{Enabled: true, Endpoint: "127.0.0.1:1", SampleRatio: 1})
	if err != nil {
		t.Fatal(err)
	}
	_ = shutdown(context.Background())
}
