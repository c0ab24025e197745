package admin

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marcomacias410/ferry/internal/logger"
	"github.com/marcomacias410/ferry/pkg/metrics"
	"github.com/marcomacias410/ferry/pkg/store"
)

// NewRouter builds the chi router with the admin middleware stack and
// routes. Exported so tests can drive the handlers without binding a
// port.
func NewRouter(src StatusSource, st store.Store) http.Handler {
	r := chi.NewRouter()

	// Middleware stack; order matters.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	health := newHealthHandler(st)
	status := newStatusHandler(src)

	r.Get("/healthz", health.Check)
	r.Get("/v1/status", status.Status)

	if metrics.IsEnabled() {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(
			metrics.GetRegistry(),
			promhttp.HandlerOpts{},
		))
	} else {
		r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusNotFound, errorResponse("metrics collection disabled"))
		})
	}

	// Root redirect for convenience.
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/healthz", http.StatusTemporaryRedirect)
	})

	return r
}

// requestLogger logs admin requests through the process logger. Health
// probes log at debug so a scraping kubelet does not flood the output.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logArgs := []any{
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
		}

		if r.URL.Path == "/healthz" || r.URL.Path == "/metrics" {
			logger.Debug("Admin request completed", logArgs...)
		} else {
			logger.Info("Admin request completed", logArgs...)
		}
	})
}
