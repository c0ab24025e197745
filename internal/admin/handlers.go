package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/marcomacias410/ferry/internal/logger"
	"github.com/marcomacias410/ferry/pkg/store"
)

// healthCheckTimeout bounds the storage backend probe so a wedged
// backend cannot hang a kubelet probe.
const healthCheckTimeout = 5 * time.Second

// Response is the envelope every admin reply uses.
type Response struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
	Error     string    `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode admin response", "error", err)
	}
}

func healthyResponse(data any) Response {
	return Response{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

func unhealthyResponse(errMsg string, data any) Response {
	return Response{
		Status:    "unhealthy",
		Timestamp: time.Now().UTC(),
		Data:      data,
		Error:     errMsg,
	}
}

func errorResponse(errMsg string) Response {
	return Response{
		Status:    "error",
		Timestamp: time.Now().UTC(),
		Error:     errMsg,
	}
}

// healthHandler serves GET /healthz.
type healthHandler struct {
	store     store.Store
	startTime time.Time
}

func newHealthHandler(st store.Store) *healthHandler {
	return &healthHandler{store: st, startTime: time.Now()}
}

// storeHealth is the backend portion of the health payload.
type storeHealth struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Check reports process liveness and storage backend health. 200 when
// the backend responds, 503 when it does not.
func (h *healthHandler) Check(w http.ResponseWriter, r *http.Request) {
	uptime := time.Since(h.startTime)
	data := map[string]any{
		"service":    "ferry",
		"started_at": h.startTime.UTC().Format(time.RFC3339),
		"uptime":     uptime.Round(time.Second).String(),
		"uptime_sec": int64(uptime.Seconds()),
	}

	if h.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("storage backend not initialized", data))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	start := time.Now()
	err := h.store.HealthCheck(ctx)
	health := storeHealth{Latency: time.Since(start).String()}

	if err != nil {
		health.Status = "unhealthy"
		health.Error = err.Error()
		data["store"] = health
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("storage backend unhealthy", data))
		return
	}

	health.Status = "healthy"
	data["store"] = health
	writeJSON(w, http.StatusOK, healthyResponse(data))
}

// statusHandler serves GET /v1/status.
type statusHandler struct {
	src StatusSource
}

func newStatusHandler(src StatusSource) *statusHandler {
	return &statusHandler{src: src}
}

// statusData is the /v1/status payload; ferryd status renders it.
type statusData struct {
	ListenAddress    string `json:"listen_address"`
	ActiveSessions   int32  `json:"active_sessions"`
	TotalConnections uint64 `json:"total_connections"`
	Uptime           string `json:"uptime"`
	UptimeSec        int64  `json:"uptime_sec"`
}

// Status reports transfer server counters. 503 until the transfer
// server has been wired in.
func (h *statusHandler) Status(w http.ResponseWriter, r *http.Request) {
	if h.src == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse("transfer server not running"))
		return
	}

	uptime := h.src.Uptime()
	writeJSON(w, http.StatusOK, Response{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Data: statusData{
			ListenAddress:    h.src.Addr(),
			ActiveSessions:   h.src.ActiveSessions(),
			TotalConnections: h.src.TotalConnections(),
			Uptime:           uptime.Round(time.Second).String(),
			UptimeSec:        int64(uptime.Seconds()),
		},
	})
}
