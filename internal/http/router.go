package http

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

type RouterConfig struct {
	Bookings   *BookingHandler
	Health     *HealthHandler
	Middleware []func(http.Handler) http.Handler
}

// NewRouter registers the API routes and wraps them with cfg.Middleware. The
// first middleware in the slice is the outermost.
func NewRouter(cfg RouterConfig) http.Handler {
	router := httprouter.New()
	router.RedirectTrailingSlash = false
	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		newResponder(nil).writeError(r.Context(), w, http.StatusNotFound, localizedStatusMessage(http.StatusNotFound))
	})
	router.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		newResponder(nil).writeError(r.Context(), w, http.StatusMethodNotAllowed, localizedStatusMessage(http.StatusMethodNotAllowed))
	})

	if cfg.Bookings != nil {
		router.POST("/api/bookings", cfg.Bookings.Create)
		router.GET("/api/bookings", cfg.Bookings.List)
		router.GET("/api/bookings/:id", cfg.Bookings.Get)
		router.DELETE("/api/bookings/:id", cfg.Bookings.Delete)
	}

	if cfg.Health != nil {
		router.GET("/healthz", cfg.Health.Health)
		router.GET("/readyz", cfg.Health.Ready)
	}

	var handler http.Handler = router
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}

	return handler
}
