package logging

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestStdLoggerRespectsMinLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewStdLogger(LevelWarn, &buf)
	ctx := context.Background()

	l.Debug(ctx, "debug msg")
	l.Info(ctx, "info msg")
	l.Warn(ctx, "warn msg")
	l.Error(ctx, "error msg", errors.New("boom"))

	out := buf.String()
	if strings.Contains(out, "debug msg") || strings.Contains(out, "info msg") {
		t.Fatalf("entries below min level should be suppressed, got %q", out)
	}
	if !strings.Contains(out, "warn msg") || !strings.Contains(out, "error msg") {
		t.Fatalf("expected warn and error entries, got %q", out)
	}
	if !strings.Contains(out, `[error="boom"]`) {
		t.Fatalf("error entry should include the error, got %q", out)
	}
}

func TestStdLoggerIncludesFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewStdLogger(LevelDebug, &buf)

	l.Info(context.Background(), "frame rendered", Field("width", 80), Field("height", 24))

	out := buf.String()
	if !strings.Contains(out, "width=80") || !strings.Contains(out, "height=24") {
		t.Fatalf("expected fields in output, got %q", out)
	}
}

func TestWithFieldsPersistAcrossEntries(t *testing.T) {
	var buf bytes.Buffer
	l := NewStdLogger(LevelDebug, &buf).WithFields(Field("component", "runner"))

	l.Info(context.Background(), "first")
	l.Info(context.Background(), "second")

	if got := strings.Count(buf.String(), "component=runner"); got != 2 {
		t.Fatalf("bound field should appear on every entry, got %d occurrences", got)
	}
}

func TestTraceIDFlowsFromContext(t *testing.T) {
	var buf bytes.Buffer
	l := NewStdLogger(LevelDebug, &buf)

	id := NewTraceID()
	ctx := WithTraceID(context.Background(), id)
	l.Info(ctx, "correlated")

	if !strings.Contains(buf.String(), "trace_id="+id) {
		t.Fatalf("expected trace id %q in output %q", id, buf.String())
	}
}

func TestNilWriterDiscards(t *testing.T) {
	l := NewStdLogger(LevelDebug, nil)
	l.Info(context.Background(), "goes nowhere")
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		"DEBUG":   LevelDebug,
		"info":    LevelInfo,
		"warn":    LevelWarn,
		"warning": LevelWarn,
		"error":   LevelError,
		"":        LevelInfo,
		"bogus":   LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}
