package tracer_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"assura/internal/platform/tracer"
)

func TestNoopTracer(t *testing.T) {
	tr := tracer.NewNoop()
	ctx := context.Background()

	newCtx, span := tr.Start(ctx, tracer.SpanGDPRExport, tracer.Int64(tracer.AttrPersonID, 42))

	assert.Equal(t, ctx, newCtx)
	require.NotNil(t, span)
	span.SetAttributes(tracer.Bool(tracer.AttrEligible, true))
	span.AddEvent(tracer.EventAuditAppended)
	span.End(errors.New("ignored"))
}

func TestOTelTracer_WithProvider(t *testing.T) {
	tr := tracer.NewOTel(tracer.WithTracerProvider(noop.NewTracerProvider()))

	_, span := tr.Start(context.Background(), tracer.SpanGDPRAnonymize,
		tracer.Int64(tracer.AttrPersonID, 7),
		tracer.Int(tracer.AttrContractCount, 2),
		tracer.String(tracer.AttrOutcome, "ineligible"),
	)
	require.NotNil(t, span)
	span.SetAttributes(tracer.Duration("elapsed_ms", 25*time.Millisecond))
	span.End(errors.New("storage unavailable"))
}

func TestAttributeConstructors(t *testing.T) {
	assert.Equal(t, tracer.Attribute{Key: "k", Value: "v"}, tracer.String("k", "v"))
	assert.Equal(t, int64(42), tracer.Int64("n", 42).Value)
	assert.Equal(t, 3, tracer.Int("n", 3).Value)
	assert.Equal(t, int64(150), tracer.Duration("d", 150*time.Millisecond).Value)
}
