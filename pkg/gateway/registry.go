package gateway

import (
	"sync"
	"time"

	"github.com/harun/rudder/internal/observability"
)

// idleThreshold is how long a client can go without activity before being
// reported as idle.
const idleThreshold = 5 * time.Minute

// ClientRegistry tracks every live WebSocket connection. It is written from
// the accept and disconnect paths and read by the broadcaster, so all access
// goes through the lock.
type ClientRegistry struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewClientRegistry creates an empty registry.
func NewClientRegistry() *ClientRegistry {
	return &ClientRegistry{clients: make(map[string]*Client)}
}

// Add registers a freshly accepted connection.
func (r *ClientRegistry) Add(client *Client) {
	r.mu.Lock()
	r.clients[client.ID] = client
	count := len(r.clients)
	r.mu.Unlock()

	observability.SetConnectedClients(count)
}

// Remove drops a client after its connection closes.
func (r *ClientRegistry) Remove(clientID string) {
	r.mu.Lock()
	delete(r.clients, clientID)
	count := len(r.clients)
	r.mu.Unlock()

	observability.SetConnectedClients(count)
}

// Get looks a client up by ID.
func (r *ClientRegistry) Get(clientID string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	client, ok := r.clients[clientID]
	return client, ok
}

// Count returns the number of live connections.
func (r *ClientRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// UpdateActivity stamps a client's last-activity time. Called on every frame
// the client sends.
func (r *ClientRegistry) UpdateActivity(clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if client, ok := r.clients[clientID]; ok {
		client.LastActivity = time.Now()
	}
}

// GetAll snapshots every connection, authenticated or not.
func (r *ClientRegistry) GetAll() []*Client {
	return r.snapshot(func(*Client) bool { return true })
}

// GetAuthenticatedClients snapshots the connections that passed the auth
// handshake. Only these receive broadcasts.
func (r *ClientRegistry) GetAuthenticatedClients() []*Client {
	return r.snapshot(func(c *Client) bool { return c.Authenticated })
}

func (r *ClientRegistry) snapshot(keep func(*Client) bool) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clients := make([]*Client, 0, len(r.clients))
	for _, client := range r.clients {
		if keep(client) {
			clients = append(clients, client)
		}
	}
	return clients
}

// GetConnectedClients reports connection metadata for status surfaces.
func (r *ClientRegistry) GetConnectedClients() []ClientInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := time.Now()
	infos := make([]ClientInfo, 0, len(r.clients))
	for _, client := range r.clients {
		infos = append(infos, ClientInfo{
			ID:            client.ID,
			Authenticated: client.Authenticated,
			ConnectedAt:   client.ConnectedAt,
			LastActivity:  client.LastActivity,
			IPAddress:     client.IPAddress,
			Idle:          now.Sub(client.LastActivity) > idleThreshold,
		})
	}
	return infos
}
