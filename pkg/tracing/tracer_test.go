package tracing_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/jhoicas/medstock-api/pkg/tracing"
)

func TestInitTracer_SinEndpointEsNoop(t *testing.T) {
	tp, err := tracing.InitTracer("medstock-api", "")
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "op")
	assert.False(t, span.SpanContext().IsValid())
	span.End()
	assert.NoError(t, tracing.Shutdown(context.Background(), tp))
}
