package observability

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace"
)

type testHandler struct {
	enabled    bool
	handleErr  error
	lastRecord slog.Record
	handled    int
	attrs      []slog.Attr
}

func (h *testHandler) Enabled(context.Context, slog.Level) bool { return h.enabled }

func (h *testHandler) Handle(_ context.Context, r slog.Record) error {
	h.handled++
	h.lastRecord = r
	return h.handleErr
}

func (h *testHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h.attrs = append(h.attrs, attrs...)
	return h
}

func (h *testHandler) WithGroup(string) slog.Handler { return h }

func TestParseLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"  Warn ": slog.LevelWarn,
		"":        slog.LevelInfo,
		"junk":    slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLogLevel(in); got != want {
			t.Fatalf("parseLogLevel(%q)=%v want=%v", in, got, want)
		}
	}
}

func TestMultiHandlerEnabledAndHandle(t *testing.T) {
	h1 := &testHandler{enabled: false}
	h2 := &testHandler{enabled: true}
	mh := &multiHandler{handlers: []slog.Handler{h1, h2}}

	if !mh.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("expected enabled when one child is enabled")
	}

	rec := slog.NewRecord(time.Now(), slog.LevelInfo, "hello", 0)
	if err := mh.Handle(context.Background(), rec); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if h1.handled != 1 || h2.handled != 1 {
		t.Fatalf("expected both handlers invoked, got h1=%d h2=%d", h1.handled, h2.handled)
	}
}

func TestMultiHandlerReturnsFirstError(t *testing.T) {
	wantErr := errors.New("sink unavailable")
	h1 := &testHandler{enabled: true, handleErr: wantErr}
	h2 := &testHandler{enabled: true}
	mh := &multiHandler{handlers: []slog.Handler{h1, h2}}

	rec := slog.NewRecord(time.Now(), slog.LevelInfo, "hello", 0)
	if err := mh.Handle(context.Background(), rec); !errors.Is(err, wantErr) {
		t.Fatalf("expected %v, got %v", wantErr, err)
	}
	if h2.handled != 1 {
		t.Fatal("expected second handler to still receive the record")
	}
}

func TestNewLoggerFansOutToExtraHandlers(t *testing.T) {
	extra := &testHandler{enabled: true}
	logger := NewLogger("test", "info", extra)

	logger.Info("archive opened")

	if extra.handled != 1 {
		t.Fatalf("expected extra handler to receive the record, got %d", extra.handled)
	}
	if extra.lastRecord.Message != "archive opened" {
		t.Fatalf("unexpected message %q", extra.lastRecord.Message)
	}
}

func TestTraceContextHandlerAddsTraceFields(t *testing.T) {
	inner := &testHandler{enabled: true}
	h := &traceContextHandler{next: inner}

	rec := slog.NewRecord(time.Now(), slog.LevelInfo, "msg", 0)
	if err := h.Handle(context.Background(), rec); err != nil {
		t.Fatalf("handle no span: %v", err)
	}
	if got := countAttrs(inner.lastRecord, "trace_id"); got != 0 {
		t.Fatalf("expected no trace_id without span, got %d", got)
	}

	traceID := trace.TraceID{0x01}
	spanID := trace.SpanID{0x02}
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	rec = slog.NewRecord(time.Now(), slog.LevelInfo, "msg", 0)
	if err := h.Handle(ctx, rec); err != nil {
		t.Fatalf("handle with span: %v", err)
	}
	if got := countAttrs(inner.lastRecord, "trace_id"); got != 1 {
		t.Fatalf("expected trace_id attr, got %d", got)
	}
	if got := countAttrs(inner.lastRecord, "span_id"); got != 1 {
		t.Fatalf("expected span_id attr, got %d", got)
	}
}

func countAttrs(r slog.Record, key string) int {
	n := 0
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == key {
			n++
		}
		return true
	})
	return n
}
