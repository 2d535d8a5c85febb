package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for input, want := range cases {
		got, err := ParseLevel(input)
		if err != nil {
			t.Fatalf("ParseLevel(%q) returned error: %v", input, err)
		}
		if got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", input, got, want)
		}
	}

	if _, err := ParseLevel("verbose"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, slog.LevelInfo, "json")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Debug("hidden")
	logger.Info("booking created", "booking_id", 7)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one log line, got %d: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["msg"] != "booking created" || entry["booking_id"] != float64(7) {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestNew_TextAndUnknown(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, slog.LevelDebug, "text")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("visible")
	if !strings.Contains(buf.String(), "msg=visible") {
		t.Fatalf("expected text output, got %q", buf.String())
	}

	if _, err := New(&buf, slog.LevelInfo, "xml"); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestContextWithLogger(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	ctx := ContextWithLogger(context.Background(), logger)
	if FromContext(ctx) != logger {
		t.Fatalf("expected logger from context")
	}
	if FromContext(context.Background()) != nil {
		t.Fatalf("expected nil logger on bare context")
	}
	if got := ContextWithLogger(context.Background(), nil); FromContext(got) != nil {
		t.Fatalf("nil logger must not be attached")
	}
}

func TestScoped(t *testing.T) {
	var base, scoped bytes.Buffer
	baseLogger := slog.New(slog.NewJSONHandler(&base, nil))
	requestLogger := slog.New(slog.NewJSONHandler(&scoped, nil)).With("request_id", "r-1")

	Scoped(context.Background(), baseLogger, "service", "BookingService", "CreateBooking", "date", "2024-05-20").Info("hello")
	if !strings.Contains(base.String(), `"service":"BookingService"`) ||
		!strings.Contains(base.String(), `"operation":"CreateBooking"`) ||
		!strings.Contains(base.String(), `"date":"2024-05-20"`) {
		t.Fatalf("unexpected base output %q", base.String())
	}

	ctx := ContextWithLogger(context.Background(), requestLogger)
	Scoped(ctx, baseLogger, "handler", "BookingHandler", "").Info("hi")
	if !strings.Contains(scoped.String(), `"request_id":"r-1"`) || strings.Contains(scoped.String(), "operation") {
		t.Fatalf("expected request logger without operation, got %q", scoped.String())
	}

	if OrDefault(nil) != slog.Default() || OrDefault(baseLogger) != baseLogger {
		t.Fatalf("OrDefault returned the wrong logger")
	}
}
