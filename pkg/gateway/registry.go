package gateway

import (
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// idleAfter is how long a client may go without inbound messages before it
// is reported as idle. Tailing clients answer a ping every heartbeat, so
// only snapshot-only or stalled clients go idle.
const idleAfter = 5 * time.Minute

// ClientRegistry tracks the connections that currently hold a session.
type ClientRegistry struct {
	mu      sync.RWMutex
	clock   clock.Clock
	clients map[string]*Client
}

// NewClientRegistry creates an empty registry. A nil clock uses wall time.
func NewClientRegistry(clk clock.Clock) *ClientRegistry {
	if clk == nil {
		clk = clock.New()
	}
	return &ClientRegistry{
		clock:   clk,
		clients: make(map[string]*Client),
	}
}

// Add registers client, stamping its connect time, and returns the number of
// registered clients.
func (r *ClientRegistry) Add(client *Client) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	client.ConnectedAt = now
	client.LastActivity = now
	r.clients[client.ID] = client
	return len(r.clients)
}

// Remove unregisters a client and returns the number still registered.
func (r *ClientRegistry) Remove(clientID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.clients, clientID)
	return len(r.clients)
}

// Count returns the number of connected clients
func (r *ClientRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.clients)
}

// Conns returns the connections of all registered clients.
func (r *ClientRegistry) Conns() []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*Conn, 0, len(r.clients))
	for _, client := range r.clients {
		conns = append(conns, client.Conn)
	}
	return conns
}

// Touch records inbound activity for a client.
func (r *ClientRegistry) Touch(clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if client, exists := r.clients[clientID]; exists {
		client.LastActivity = r.clock.Now()
	}
}

// Sessions describes the registered clients, oldest connection first.
func (r *ClientRegistry) Sessions() []ClientInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := r.clock.Now()
	infos := make([]ClientInfo, 0, len(r.clients))
	for _, client := range r.clients {
		infos = append(infos, ClientInfo{
			ID:           client.ID,
			Path:         client.Path,
			ConnectedAt:  client.ConnectedAt,
			LastActivity: client.LastActivity,
			IPAddress:    client.IPAddress,
			Idle:         now.Sub(client.LastActivity) > idleAfter,
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].ConnectedAt.Equal(infos[j].ConnectedAt) {
			return infos[i].ID < infos[j].ID
		}
		return infos[i].ConnectedAt.Before(infos[j].ConnectedAt)
	})
	return infos
}
