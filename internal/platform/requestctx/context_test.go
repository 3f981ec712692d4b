package requestctx

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestLoggerFallsBackToNoop(t *testing.T) {
	if Logger(context.Background()) != NoopLogger() {
		t.Fatalf("expected noop logger for an unseeded context")
	}
	if Logger(nil) != NoopLogger() {
		t.Fatalf("expected noop logger for a nil context")
	}

	ctx := WithLogger(context.Background(), nil)
	if Logger(ctx) != NoopLogger() {
		t.Fatalf("a nil logger must degrade to the noop instance")
	}
}

func TestWithLoggerRoundTrip(t *testing.T) {
	logger := zap.NewNop()
	ctx := WithLogger(context.Background(), logger)
	if Logger(ctx) != logger {
		t.Fatalf("expected the attached logger back")
	}
}

func TestTraceRoundTrip(t *testing.T) {
	info := TraceInfo{TraceID: "abc", SpanID: "def", Sampled: true, ProjectID: "proj-1"}
	ctx := WithTrace(context.Background(), info)

	got, ok := Trace(ctx)
	if !ok || got != info {
		t.Fatalf("trace info = %+v, ok = %v", got, ok)
	}
	if TraceID(ctx) != "abc" {
		t.Fatalf("TraceID = %q", TraceID(ctx))
	}
	if TraceID(context.Background()) != "" {
		t.Fatalf("expected empty trace id for an unseeded context")
	}
}
