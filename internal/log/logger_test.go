package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newBufferLogger(buf *bytes.Buffer, component string) *Logger {
	return New(Config{Level: slog.LevelDebug, Component: component, Output: buf})
}

func TestLogger_ComponentOnce(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf, ComponentReport).WithComponent(ComponentWorker)
	logger.Info("hello", FieldPeriod, "2025-06")

	out := buf.String()
	if strings.Count(out, "component=") != 1 || !strings.Contains(out, "component=worker") {
		t.Fatalf("unexpected component attrs: %s", out)
	}
	if !strings.Contains(out, "period=2025-06") {
		t.Fatalf("missing period: %s", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFromContext(t *testing.T) {
	if got := FromContext(context.Background()).Component(); got != "unknown" {
		t.Fatalf("fallback component = %q", got)
	}
	logger := Nop().WithComponent(ComponentHTTP)
	if got := FromContext(IntoContext(context.Background(), logger)); got != logger {
		t.Fatalf("logger not recovered from context")
	}
}

func TestMiddleware_RequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf, ComponentHTTP)

	h := Middleware(logger)(RequestIDMiddleware(func(*http.Request) string { return "req-1" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			FromContext(r.Context()).InfoContext(r.Context(), "inside")
		})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if !strings.Contains(buf.String(), "request_id=req-1") {
		t.Fatalf("request id not logged: %s", buf.String())
	}
}

func TestStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(newBufferLogger(&buf, ComponentHTTP))
	ctx := context.Background()

	sl.LogHTTPEnd(ctx, httptest.NewRequest(http.MethodGet, "/api/overview", nil), "req-9", 503, 12, "10.0.0.1")
	sl.LogRecordAppended(ctx, "2025-06", "PersonA", "10.00", false, "mem:1")
	sl.LogError(ctx, "boom", errors.New("kaput"), OpReconcile, nil)

	out := buf.String()
	for _, want := range []string{"level=ERROR", "status_code=503", "request_id=req-9", "participant=PersonA", "error=kaput", "operation=reconcile"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %s", want, out)
		}
	}
}
