package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/room-booking/internal/config"
	"github.com/example/room-booking/internal/persistence/memory"
	"github.com/example/room-booking/internal/persistence/sqlite"
)

func testConfig(t *testing.T, storage string) config.Config {
	t.Helper()
	return config.Config{
		HTTPPort:        0,
		Storage:         storage,
		SQLitePath:      filepath.Join(t.TempDir(), "booking.db"),
		MongoDatabase:   "booking",
		LogLevel:        "info",
		LogFormat:       "json",
		RequestTimeout:  5 * time.Second,
		ShutdownTimeout: 5 * time.Second,
		CORSOrigins:     []string{"*"},
	}
}

func TestOpenStorage(t *testing.T) {
	t.Parallel()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		t.Parallel()
		store, err := openStorage(ctx, testConfig(t, config.StorageMemory), logger)
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &memory.Storage{}, store)
	})

	t.Run("sqlite is migrated", func(t *testing.T) {
		t.Parallel()
		store, err := openStorage(ctx, testConfig(t, config.StorageSQLite), logger)
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &sqlite.Storage{}, store)

		found, err := store.FindBookingsByDate(ctx, time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		assert.Empty(t, found)
	})

	t.Run("unknown backend", func(t *testing.T) {
		t.Parallel()
		_, err := openStorage(ctx, testConfig(t, "redis"), logger)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported storage backend")
	})
}

func TestNewHandler_EndToEnd(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t, config.StorageSQLite)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := openStorage(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	server := httptest.NewServer(newHandler(cfg, store, logger))
	t.Cleanup(server.Close)

	body := `{"room_name":"Phòng họp lớn","date":"2024-05-20","start_time":"09:00","end_time":"10:00","purpose":"Demo"}`
	resp, err := http.Post(server.URL+"/api/bookings", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	var created map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, "Phòng họp lớn", created["room_name"])

	resp2, err := http.Post(server.URL+"/api/bookings", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp2.StatusCode)
	raw, err := io.ReadAll(resp2.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"detail":"Khung giờ này đã có người đặt rồi!"}`, string(raw))

	resp3, err := http.Get(server.URL + "/readyz")
	require.NoError(t, err)
	defer resp3.Body.Close()
	assert.Equal(t, http.StatusOK, resp3.StatusCode)
}

func TestRun_ServesUntilCancelled(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&syncWriter{w: &logs}, nil))

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() {
		errCh <- run(ctx, testConfig(t, config.StorageMemory), logger, ready)
	}()

	var addr string
	select {
	case addr = <-ready:
	case err := <-errCh:
		t.Fatalf("run returned before ready: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not become ready")
	}

	resp, err := http.Get("http://" + addr + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}

	assert.Contains(t, logs.String(), "booking API listening")
	assert.Contains(t, logs.String(), "booking API stopped")
}

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// brokenListener fails every Accept with a permanent error.
type brokenListener struct{}

func (l *brokenListener) Accept() (net.Conn, error) { return nil, errors.New("accept failed") }

func (l *brokenListener) Close() error { return nil }

func (l *brokenListener) Addr() net.Addr { return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)} }

func TestServe_ReturnsAfterServeFailure(t *testing.T) {
	t.Parallel()

	server := &http.Server{Handler: http.NotFoundHandler()}
	listener := &brokenListener{}

	errCh := make(chan error, 1)
	go func() {
		errCh <- serve(context.Background(), server, listener, time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
	}()

	select {
	case err := <-errCh:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "accept failed")
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after Serve failed")
	}

	// Shutdown marks the server closed; a second Serve must refuse to start.
	assert.ErrorIs(t, server.Serve(listener), http.ErrServerClosed)
}
