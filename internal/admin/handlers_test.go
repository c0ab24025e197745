package admin

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/marcomacias410/ferry/pkg/metrics"
	"github.com/marcomacias410/ferry/pkg/store/memory"
)

type fakeStatusSource struct {
	addr   string
	active int32
	total  uint64
	uptime time.Duration
}

func (f *fakeStatusSource) Addr() string             { return f.addr }
func (f *fakeStatusSource) ActiveSessions() int32    { return f.active }
func (f *fakeStatusSource) TotalConnections() uint64 { return f.total }
func (f *fakeStatusSource) Uptime() time.Duration    { return f.uptime }

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return resp
}

func TestHealthz_HealthyStore(t *testing.T) {
	handler := newHealthHandler(memory.New())
	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()

	handler.Check(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
	}

	resp := decodeResponse(t, w)
	if resp.Status != "healthy" {
		t.Errorf("Expected status 'healthy', got '%s'", resp.Status)
	}

	data, ok := resp.Data.(map[string]any)
	if !ok {
		t.Fatalf("Expected Data to be a map, got %T", resp.Data)
	}
	if data["service"] != "ferry" {
		t.Errorf("Expected service 'ferry', got '%v'", data["service"])
	}

	storeData, ok := data["store"].(map[string]any)
	if !ok {
		t.Fatalf("Expected store data to be a map, got %T", data["store"])
	}
	if storeData["status"] != "healthy" {
		t.Errorf("Expected store status 'healthy', got '%v'", storeData["status"])
	}
	if storeData["latency"] == nil || storeData["latency"] == "" {
		t.Error("Expected store latency to be set")
	}
}

func TestHealthz_NoStore_Returns503(t *testing.T) {
	handler := newHealthHandler(nil)
	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()

	handler.Check(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status %d, got %d", http.StatusServiceUnavailable, w.Code)
	}

	resp := decodeResponse(t, w)
	if resp.Status != "unhealthy" {
		t.Errorf("Expected status 'unhealthy', got '%s'", resp.Status)
	}
	if resp.Error != "storage backend not initialized" {
		t.Errorf("Unexpected error message '%s'", resp.Error)
	}
}

func TestHealthz_ClosedStore_Returns503(t *testing.T) {
	st := memory.New()
	_ = st.Close()

	handler := newHealthHandler(st)
	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()

	handler.Check(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status %d, got %d", http.StatusServiceUnavailable, w.Code)
	}

	resp := decodeResponse(t, w)
	data := resp.Data.(map[string]any)
	storeData := data["store"].(map[string]any)
	if storeData["status"] != "unhealthy" {
		t.Errorf("Expected store status 'unhealthy', got '%v'", storeData["status"])
	}
	if storeData["error"] == nil || storeData["error"] == "" {
		t.Error("Expected store error to be set")
	}
}

func TestStatus_NoSource_Returns503(t *testing.T) {
	handler := newStatusHandler(nil)
	req := httptest.NewRequest("GET", "/v1/status", nil)
	w := httptest.NewRecorder()

	handler.Status(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status %d, got %d", http.StatusServiceUnavailable, w.Code)
	}
}

func TestStatus_ReportsCounters(t *testing.T) {
	src := &fakeStatusSource{
		addr:   "127.0.0.1:5001",
		active: 3,
		total:  42,
		uptime: 90 * time.Second,
	}
	handler := newStatusHandler(src)
	req := httptest.NewRequest("GET", "/v1/status", nil)
	w := httptest.NewRecorder()

	handler.Status(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
	}

	resp := decodeResponse(t, w)
	if resp.Status != "ok" {
		t.Errorf("Expected status 'ok', got '%s'", resp.Status)
	}

	data, ok := resp.Data.(map[string]any)
	if !ok {
		t.Fatalf("Expected Data to be a map, got %T", resp.Data)
	}
	if data["listen_address"] != "127.0.0.1:5001" {
		t.Errorf("Expected listen_address '127.0.0.1:5001', got '%v'", data["listen_address"])
	}
	if data["active_sessions"].(float64) != 3 {
		t.Errorf("Expected 3 active sessions, got %v", data["active_sessions"])
	}
	if data["total_connections"].(float64) != 42 {
		t.Errorf("Expected 42 total connections, got %v", data["total_connections"])
	}
	if data["uptime_sec"].(float64) != 90 {
		t.Errorf("Expected uptime_sec 90, got %v", data["uptime_sec"])
	}
}

func TestRouter_RootRedirectsToHealthz(t *testing.T) {
	router := NewRouter(nil, memory.New())
	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusTemporaryRedirect {
		t.Fatalf("Expected status %d, got %d", http.StatusTemporaryRedirect, w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/healthz" {
		t.Errorf("Expected redirect to /healthz, got '%s'", loc)
	}
}

func TestRouter_MetricsDisabled_Returns404(t *testing.T) {
	metrics.ResetForTesting()

	router := NewRouter(nil, memory.New())
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected status %d, got %d", http.StatusNotFound, w.Code)
	}
}

func TestRouter_MetricsEnabled_ServesExposition(t *testing.T) {
	metrics.ResetForTesting()
	metrics.InitRegistry()

	router := NewRouter(nil, memory.New())
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
	// The registry always carries the Go runtime collector.
	if body := w.Body.String(); !strings.Contains(body, "go_goroutines") {
		t.Errorf("Exposition is missing runtime series:\n%s", body[:min(len(body), 512)])
	}
}
