package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/room-booking/internal/application"
	"github.com/example/room-booking/internal/bookingstore"
	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/persistence/memory"
)

// ServiceFactory assists tests with constructing application services using
// deterministic clocks.
type ServiceFactory struct {
	Clock  *Clock
	Logger *slog.Logger
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{Clock: NewClock(time.Time{})}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithLogger overrides the logger handed to services.
func WithLogger(logger *slog.Logger) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Logger = logger
	}
}

// NewBookingService builds a booking service on top of backend.
func (f *ServiceFactory) NewBookingService(backend persistence.BookingStore) *application.BookingService {
	return application.NewBookingServiceWithLogger(bookingstore.New(backend), f.Clock.NowFunc(), f.Logger)
}

// NewMemoryBookingService builds a booking service on a fresh in-memory store
// and returns both.
func (f *ServiceFactory) NewMemoryBookingService() (*application.BookingService, *memory.Storage) {
	store := memory.Open()
	return f.NewBookingService(store), store
}
