package observability

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestLoggerFromContext_FallsBackToNop(t *testing.T) {
	if LoggerFromContext(context.Background()) == nil {
		t.Fatal("LoggerFromContext() = nil, want no-op logger")
	}
}

func TestLoggerFromContext_ReturnsStoredLogger(t *testing.T) {
	l := zap.NewExample()
	ctx := WithLogger(context.Background(), l)
	if got := LoggerFromContext(ctx); got != l {
		t.Errorf("LoggerFromContext() = %p, want %p", got, l)
	}
}

func TestCorrelationIDFromContext(t *testing.T) {
	if got := CorrelationIDFromContext(context.Background()); got != "" {
		t.Errorf("CorrelationIDFromContext() = %q, want empty", got)
	}
	ctx := WithCorrelationID(context.Background(), "abc-123")
	if got := CorrelationIDFromContext(ctx); got != "abc-123" {
		t.Errorf("CorrelationIDFromContext() = %q, want abc-123", got)
	}
}
