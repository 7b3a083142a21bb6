package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func newTestLogger(t *testing.T) (*SlogLogger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	h := slog.NewTextHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})
	return NewSlogLogger(slog.New(h)), &buf
}

func TestSlogLogger_Levels_WriteExpectedOutput(t *testing.T) {
	log, buf := newTestLogger(t)
	ctx := context.Background()

	cases := []struct {
		level string
		fn    func(ctx context.Context, msg string, args ...any)
		msg   string
		key   string
		val   string
	}{
		{"DEBUG", log.Debug, "debug-msg", "k1", "v1"},
		{"INFO", log.Info, "info-msg", "k2", "v2"},
		{"WARN", log.Warn, "warn-msg", "k3", "v3"},
		{"ERROR", log.Error, "error-msg", "k4", "v4"},
	}

	for _, tc := range cases {
		buf.Reset()
		tc.fn(ctx, tc.msg, tc.key, tc.val)

		out := buf.String()
		if !strings.Contains(out, "level="+tc.level) {
			t.Fatalf("expected level=%s in output:\n%s", tc.level, out)
		}
		if !strings.Contains(out, "msg="+tc.msg) {
			t.Fatalf("expected line with msg=%q in output:\n%s", tc.msg, out)
		}
		if !strings.Contains(out, tc.key+"="+tc.val) {
			t.Fatalf("expected attribute %s=%s in output:\n%s", tc.key, tc.val, out)
		}
	}
}

func TestSlogLogger_With_AddsAttributes(t *testing.T) {
	log, buf := newTestLogger(t)
	ctx := context.Background()

	log2 := log.With("module", "lobby", "session_id", "s1")
	log2.Info(ctx, "joined", "user_id", "u1")

	out := buf.String()
	wantSubs := []string{
		"level=INFO",
		"msg=joined",
		"module=lobby",
		"session_id=s1",
		"user_id=u1",
	}
	for _, s := range wantSubs {
		if !strings.Contains(out, s) {
			t.Fatalf("expected %q in output, got:\n%s", s, out)
		}
	}
}

func TestSlogLogger_ContextDoesNotPanic(t *testing.T) {
	log, _ := newTestLogger(t)

	ctx := context.TODO()
	log.Debug(ctx, "ctx-ok")
	log.Info(ctx, "ctx-ok")
	log.Warn(ctx, "ctx-ok")
	log.Error(ctx, "ctx-ok")
}
