package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/room-booking/internal/application"
	"github.com/example/room-booking/internal/bookingstore"
	"github.com/example/room-booking/internal/config"
	httptransport "github.com/example/room-booking/internal/http"
	"github.com/example/room-booking/internal/logging"
	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/persistence/memory"
	"github.com/example/room-booking/internal/persistence/mongo"
	"github.com/example/room-booking/internal/persistence/sqlite"
	"github.com/example/room-booking/internal/persistence/sqlite/migration"
)

func main() {
	fallback := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fallback.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		fallback.Error("invalid log level", "error", err)
		os.Exit(1)
	}
	logger, err := logging.New(os.Stdout, level, cfg.LogFormat)
	if err != nil {
		fallback.Error("invalid log format", "error", err)
		os.Exit(1)
	}

	if err := run(ctx, cfg, logger, nil); err != nil {
		logger.Error("booking API stopped with error", "error", err)
		os.Exit(1)
	}
}

// run serves the booking API until ctx is cancelled. When ready is non-nil the
// bound listener address is sent on it once the server accepts connections.
func run(ctx context.Context, cfg config.Config, logger *slog.Logger, ready chan<- string) error {
	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           newHandler(cfg, store, logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	listener, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", server.Addr, err)
	}

	logger.Info("booking API listening", "addr", listener.Addr().String(), "storage", cfg.Storage)
	if ready != nil {
		ready <- listener.Addr().String()
	}
	return serve(ctx, server, listener, cfg.ShutdownTimeout, logger)
}

// serve runs server on listener until ctx is cancelled or Serve fails. It
// returns only after the shutdown goroutine has finished.
func serve(ctx context.Context, server *http.Server, listener net.Listener, shutdownTimeout time.Duration, logger *slog.Logger) error {
	serveCtx, stopServing := context.WithCancel(ctx)
	defer stopServing()

	shutdownDone := make(chan error, 1)
	go func() {
		<-serveCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down booking API", "timeout", shutdownTimeout)
		shutdownDone <- server.Shutdown(shutdownCtx)
	}()

	if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		stopServing()
		<-shutdownDone
		return fmt.Errorf("serve: %w", err)
	}

	if err := <-shutdownDone; err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("booking API stopped")
	return nil
}

// openStorage opens and migrates the configured booking backend.
func openStorage(ctx context.Context, cfg config.Config, logger *slog.Logger) (persistence.BookingStore, error) {
	switch cfg.Storage {
	case config.StorageMemory:
		logger.Warn("using in-memory storage; bookings are lost on restart")
		return memory.Open(), nil

	case config.StorageSQLite:
		storage, err := sqlite.Open(ctx, migration.DefaultSQLiteConfig(cfg.SQLitePath), logger)
		if err != nil {
			return nil, fmt.Errorf("open sqlite storage: %w", err)
		}
		if err := storage.Migrate(ctx); err != nil {
			_ = storage.Close()
			return nil, fmt.Errorf("migrate sqlite storage: %w", err)
		}
		return storage, nil

	case config.StorageMongo:
		storage, err := mongo.Open(ctx, mongo.DefaultConfig(cfg.MongoURI, cfg.MongoDatabase), logger)
		if err != nil {
			return nil, fmt.Errorf("open mongo storage: %w", err)
		}
		if err := storage.Migrate(ctx); err != nil {
			_ = storage.Close()
			return nil, fmt.Errorf("migrate mongo storage: %w", err)
		}
		return storage, nil

	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Storage)
	}
}

// newHandler wires the booking service and its HTTP surface over store.
func newHandler(cfg config.Config, store persistence.BookingStore, logger *slog.Logger) http.Handler {
	adapted := bookingstore.New(store)
	service := application.NewBookingServiceWithLogger(adapted, time.Now, logger)

	return httptransport.NewRouter(httptransport.RouterConfig{
		Bookings: httptransport.NewBookingHandler(service, logger),
		Health:   httptransport.NewHealthHandler(adapted, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
			httptransport.CORS(cfg.CORSOrigins),
			httptransport.RequestTimeout(cfg.RequestTimeout, logger),
			httptransport.Recovery(logger),
		},
	})
}
