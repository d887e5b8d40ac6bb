package gateway

import (
	"time"
)

// ClientInfo represents information about a connected client
type ClientInfo struct {
	ID           string    `json:"id"`
	Path         string    `json:"path"`
	ConnectedAt  time.Time `json:"connectedAt"`
	LastActivity time.Time `json:"lastActivity"`
	IPAddress    string    `json:"ipAddress"`
	Idle         bool      `json:"idle"`
}

// Client represents a connected WebSocket client
type Client struct {
	ID           string
	Conn         *Conn
	Path         string
	ConnectedAt  time.Time
	LastActivity time.Time
	IPAddress    string
}

// HealthStatus is the body served on /healthz.
type HealthStatus struct {
	Status   string       `json:"status"`
	Clients  int          `json:"clients"`
	Sessions []ClientInfo `json:"sessions"`
}
