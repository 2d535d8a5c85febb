package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/example/room-booking/internal/logging"
)

const readinessTimeout = 2 * time.Second

// Pinger reports whether the booking storage is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	storage   Pinger
	responder responder
	logger    *slog.Logger
}

func NewHealthHandler(storage Pinger, logger *slog.Logger) *HealthHandler {
	logger = logging.OrDefault(logger)
	return &HealthHandler{
		storage:   storage,
		responder: newResponder(logger),
		logger:    logger,
	}
}

type healthResponse struct {
	Status  string `json:"status"`
	Storage string `json:"storage,omitempty"`
}

// Health reports process liveness.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.responder.writeJSON(r.Context(), w, http.StatusOK, healthResponse{Status: "ok"})
}

// Ready reports whether the storage answers within readinessTimeout.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	if h.storage != nil {
		if err := h.storage.Ping(ctx); err != nil {
			handlerLogger(r.Context(), h.logger, "HealthHandler", "Ready").
				ErrorContext(r.Context(), "storage health check failed", "error", err)
			h.responder.writeJSON(r.Context(), w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable", Storage: "error"})
			return
		}
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, healthResponse{Status: "ready", Storage: "ok"})
}
