package application

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/example/room-booking/internal/logging"
)

func TestServiceLogger_PrefersRequestLogger(t *testing.T) {
	t.Parallel()

	var base, request bytes.Buffer
	baseLogger := slog.New(slog.NewJSONHandler(&base, nil))
	ctx := logging.ContextWithLogger(context.Background(), slog.New(slog.NewJSONHandler(&request, nil)))

	serviceLogger(ctx, baseLogger, "BookingService", "DeleteBooking", "booking_id", 4).Info("booking deleted")

	if base.Len() != 0 {
		t.Fatalf("expected base logger to stay silent, got %q", base.String())
	}
	for _, want := range []string{`"service":"BookingService"`, `"operation":"DeleteBooking"`, `"booking_id":4`} {
		if !strings.Contains(request.String(), want) {
			t.Fatalf("expected %s in %q", want, request.String())
		}
	}
}

func TestNewBookingServiceWithLogger_Defaults(t *testing.T) {
	t.Parallel()

	service := NewBookingServiceWithLogger(nil, nil, nil)
	if service.logger != slog.Default() {
		t.Fatalf("expected default logger when none provided")
	}
	if service.now == nil {
		t.Fatalf("expected a clock when none provided")
	}
}
