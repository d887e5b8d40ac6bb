package tracing

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewTraceID(t *testing.T) {
	id1 := NewTraceID()
	id2 := NewTraceID()

	if id1 == "" {
		t.Error("NewTraceID returned empty string")
	}

	if id1 == id2 {
		t.Error("NewTraceID returned duplicate IDs")
	}
}

func TestWithTraceID(t *testing.T) {
	ctx := WithTraceID(context.Background(), "test-trace-id")

	if got := GetTraceID(ctx); got != "test-trace-id" {
		t.Errorf("Expected trace ID %s, got %s", "test-trace-id", got)
	}
}

func TestWithClientID(t *testing.T) {
	ctx := WithClientID(context.Background(), "client-1")

	if got := GetClientID(ctx); got != "client-1" {
		t.Errorf("Expected client ID %s, got %s", "client-1", got)
	}
}

func TestGetEmpty(t *testing.T) {
	ctx := context.Background()

	if GetTraceID(ctx) != "" {
		t.Error("Expected empty trace ID")
	}
	if GetClientID(ctx) != "" {
		t.Error("Expected empty client ID")
	}
}

func TestFromContext(t *testing.T) {
	ctx := WithClientID(WithTraceID(context.Background(), "trace"), "client")

	tc := FromContext(ctx)
	if tc.TraceID != "trace" || tc.ClientID != "client" {
		t.Errorf("Unexpected trace context: %+v", tc)
	}
}

func TestNewRequestContext(t *testing.T) {
	ctx := NewRequestContext(context.Background())

	if GetTraceID(ctx) == "" {
		t.Error("NewRequestContext did not set trace ID")
	}
}

func TestLoggerFromContext(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	ctx := WithClientID(WithTraceID(context.Background(), "trace-123"), "client-abc")
	logger := LoggerFromContext(ctx, base)
	logger.Info().Msg("hello")

	out := buf.String()
	if !bytes.Contains([]byte(out), []byte(`"trace_id":"trace-123"`)) {
		t.Errorf("Expected trace_id in log output, got %s", out)
	}
	if !bytes.Contains([]byte(out), []byte(`"client_id":"client-abc"`)) {
		t.Errorf("Expected client_id in log output, got %s", out)
	}
}

func TestLoggerFromContextEmpty(t *testing.T) {
	var buf bytes.Buffer
	logger := LoggerFromContext(context.Background(), zerolog.New(&buf))
	logger.Info().Msg("hello")

	if bytes.Contains(buf.Bytes(), []byte("trace_id")) {
		t.Errorf("Did not expect trace_id, got %s", buf.String())
	}
}
