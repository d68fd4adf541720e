package log

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func handleRecord(t *testing.T, h slog.Handler, r slog.Record) string {
	t.Helper()
	buf, ok := h.(*TerminalHandler).writer.(*bytes.Buffer)
	if !ok {
		t.Fatal("handler writer is not a buffer")
	}
	if err := h.Handle(context.Background(), r); err != nil {
		t.Fatalf("Handle() error: %v", err)
	}
	return buf.String()
}

func debugHandler(buf *bytes.Buffer) *TerminalHandler {
	return newTerminalHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})
}

func TestTerminalHandler_LineFormat(t *testing.T) {
	var buf bytes.Buffer
	h := debugHandler(&buf)

	ts := time.Date(2026, 1, 15, 10, 30, 45, 123000000, time.UTC)
	r := slog.NewRecord(ts, slog.LevelInfo, "server started", 0)
	r.AddAttrs(slog.String("port", "8080"))

	output := handleRecord(t, h, r)

	for _, want := range []string{"10:30:45.123", "INF", "server started", "port=", "8080"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q: %s", want, output)
		}
	}
}

func TestTerminalHandler_LevelLabels(t *testing.T) {
	tests := []struct {
		level slog.Level
		label string
	}{
		{slog.LevelDebug, "DBG"},
		{slog.LevelInfo, "INF"},
		{slog.LevelWarn, "WRN"},
		{slog.LevelError, "ERR"},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			var buf bytes.Buffer
			output := handleRecord(t, debugHandler(&buf), slog.NewRecord(time.Now(), tt.level, "msg", 0))
			if !strings.Contains(output, tt.label) {
				t.Errorf("missing %s label: %s", tt.label, output)
			}
		})
	}
}

func TestTerminalHandler_ErrorsAreRed(t *testing.T) {
	var buf bytes.Buffer
	output := handleRecord(t, debugHandler(&buf), slog.NewRecord(time.Now(), slog.LevelError, "fail", 0))

	if !strings.Contains(output, ansiRed) {
		t.Error("ERR line should use red")
	}
	if !strings.Contains(output, ansiReset) {
		t.Error("colours must be reset")
	}
	if !strings.Contains(output, ansiBold) {
		t.Error("message should be bold")
	}
}

func TestTerminalHandler_Enabled(t *testing.T) {
	h := newTerminalHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn})

	if h.Enabled(context.Background(), slog.LevelDebug) || h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("levels below WARN should be disabled")
	}
	if !h.Enabled(context.Background(), slog.LevelWarn) || !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("WARN and ERROR should be enabled")
	}
}

func TestTerminalHandler_FiltersThroughSlog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newTerminalHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	logger.Debug("debug")
	logger.Info("info")
	logger.Warn("warn")
	logger.Error("error")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Errorf("log lines = %d, want 2: %s", len(lines), buf.String())
	}
}

func TestTerminalHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := debugHandler(&buf).WithAttrs([]slog.Attr{slog.String("component", "api")})

	r := slog.NewRecord(time.Now(), slog.LevelInfo, "request", 0)
	r.AddAttrs(slog.Int("status", 200))
	output := handleRecord(t, h, r)

	for _, want := range []string{"component=", "api", "status="} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q: %s", want, output)
		}
	}
}

func TestTerminalHandler_WithGroupPrefixesKeys(t *testing.T) {
	var buf bytes.Buffer
	h := debugHandler(&buf).WithGroup("http")

	r := slog.NewRecord(time.Now(), slog.LevelInfo, "request", 0)
	r.AddAttrs(slog.String("method", "GET"))
	output := handleRecord(t, h, r)

	if !strings.Contains(output, "http.method=") {
		t.Errorf("expected http.method prefix: %s", output)
	}
}

func TestTerminalHandler_InlineGroupAttr(t *testing.T) {
	var buf bytes.Buffer
	r := slog.NewRecord(time.Now(), slog.LevelInfo, "msg", 0)
	r.AddAttrs(slog.Group("request",
		slog.String("method", "POST"),
		slog.Int("status", 201),
	))

	output := handleRecord(t, debugHandler(&buf), r)

	if !strings.Contains(output, "request.method=") || !strings.Contains(output, "request.status=") {
		t.Errorf("expected request.* prefixes: %s", output)
	}
}

func TestTerminalHandler_QuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	r := slog.NewRecord(time.Now(), slog.LevelInfo, "msg", 0)
	r.AddAttrs(slog.String("error", "connection refused"))

	output := handleRecord(t, debugHandler(&buf), r)

	if !strings.Contains(output, `"connection refused"`) {
		t.Errorf("expected quoted value: %s", output)
	}
}

func TestTerminalHandler_NilOptsDefaultsToInfo(t *testing.T) {
	h := newTerminalHandler(&bytes.Buffer{}, nil)

	if !h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("INFO should be enabled by default")
	}
	if h.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("DEBUG should be disabled by default")
	}
}

func TestTerminalHandler_EmptyGroupIsNoOp(t *testing.T) {
	h := debugHandler(&bytes.Buffer{})
	if h.WithGroup("") != slog.Handler(h) {
		t.Error("WithGroup(\"\") should return the same handler")
	}
}
