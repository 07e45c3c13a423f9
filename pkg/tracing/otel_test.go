// Copyright 2026 fanjia1024
// Tests for span helpers

package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInferenceSpan(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	_, span := StartInferenceSpan(context.Background(), "req-1", "docmatix")
	EndSpan(span, "", nil)
	_, span = StartInferenceSpan(context.Background(), "req-2", "gemini")
	EndSpan(span, "ConfigError", errors.New("credential not configured"))

	ended := rec.Ended()
	require.Len(t, ended, 2)
	assert.Equal(t, "vision.invoke", ended[0].Name())
	assert.Equal(t, codes.Unset, ended[0].Status().Code)
	assert.Equal(t, codes.Error, ended[1].Status().Code)
	assert.Equal(t, "ConfigError", ended[1].Status().Description)
	assert.Len(t, ended[1].Events(), 1)
}
