package telemetry

import (
	"context"
	"testing"

	"github.com/persona/backend/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitTracerDisabledWithoutEndpoint(t *testing.T) {
	tp, err := InitTracer(context.Background(), config.TelemetryConfig{ServiceName: "persona-api"})
	require.NoError(t, err)
	assert.Nil(t, tp)
}

func TestInitTracerWithEndpoint(t *testing.T) {
	// The gRPC exporter connects lazily, so no collector is needed here.
	tp, err := InitTracer(context.Background(), config.TelemetryConfig{
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "persona-api",
		Insecure:     true,
	})
	require.NoError(t, err)
	require.NotNil(t, tp)
	assert.NoError(t, tp.Shutdown(context.Background()))
}
