// Package health provides shared types for decoding admin API responses.
package health

// Response mirrors the admin API /healthz envelope.
type Response struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Data      struct {
		Service   string `json:"service"`
		StartedAt string `json:"started_at"`
		Uptime    string `json:"uptime"`
		UptimeSec int64  `json:"uptime_sec"`
		Store     struct {
			Status  string `json:"status"`
			Latency string `json:"latency,omitempty"`
			Error   string `json:"error,omitempty"`
		} `json:"store"`
	} `json:"data"`
	Error string `json:"error,omitempty"`
}

// StatusResponse mirrors the admin API /v1/status envelope.
type StatusResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Data      struct {
		ListenAddress    string `json:"listen_address"`
		ActiveSessions   int32  `json:"active_sessions"`
		TotalConnections uint64 `json:"total_connections"`
		Uptime           string `json:"uptime"`
		UptimeSec        int64  `json:"uptime_sec"`
	} `json:"data"`
	Error string `json:"error,omitempty"`
}
