package push

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/partyroom/internal/model"
)

// Message is one event delivered to every client of a session
type Message struct {
	Event string
	Data  []byte
}

// NewMessage encodes a session event for delivery
func NewMessage(event model.Event) (Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return Message{}, err
	}
	return Message{Event: string(event.Type), Data: data}, nil
}

// Hub fans events out to the clients watching a single session.
// Messages are delivered to each client in the order they were broadcast.
type Hub struct {
	session model.SessionID
	clients map[*Client]bool
	mu      sync.RWMutex
	logger  *slog.Logger

	// Channels for managing clients
	register   chan *Client
	unregister chan *Client
	broadcast  chan Message
	done       chan struct{}
	closeOnce  sync.Once
}

// NewHub creates a new Hub for a session
func NewHub(session model.SessionID, logger *slog.Logger) *Hub {
	return &Hub{
		session:    session,
		clients:    make(map[*Client]bool),
		logger:     logger.With(slog.String("session", string(session))),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Message, 256),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's event loop
func (h *Hub) Run() {
	h.logger.Debug("hub started")
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			clientCount := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("client registered",
				slog.String("participant", string(client.participant)),
				slog.Int("total_clients", clientCount))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				clientCount := len(h.clients)
				h.mu.Unlock()
				h.logger.Info("client unregistered",
					slog.String("participant", string(client.participant)),
					slog.Duration("connection_duration", time.Since(client.connectedAt)),
					slog.Int("total_clients", clientCount))
			} else {
				h.mu.Unlock()
			}

		case message := <-h.broadcast:
			h.mu.RLock()
			dropped := 0
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					dropped++
					h.logger.Warn("message dropped - client buffer full",
						slog.String("participant", string(client.participant)),
						slog.String("event", message.Event))
				}
			}
			sent := len(h.clients) - dropped
			h.mu.RUnlock()
			if dropped > 0 {
				h.logger.Warn("broadcast partial failure",
					slog.Int("sent", sent),
					slog.Int("dropped", dropped))
			}

		case <-h.done:
			h.mu.Lock()
			clientCount := len(h.clients)
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.logger.Debug("hub stopped", slog.Int("disconnected_clients", clientCount))
			return
		}
	}
}

// Register adds a client to the hub. Once Register returns the client
// receives every later broadcast.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.send)
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast sends a message to all clients
func (h *Hub) Broadcast(message Message) {
	select {
	case h.broadcast <- message:
	case <-h.done:
	default:
		h.logger.Warn("broadcast dropped - hub buffer full", slog.String("event", message.Event))
	}
}

// Close shuts down the hub
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HubManager manages hubs for all sessions
type HubManager struct {
	hubs   map[model.SessionID]*Hub
	idle   map[model.SessionID]struct{}
	mu     sync.RWMutex
	logger *slog.Logger

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewHubManager creates a new HubManager
func NewHubManager(logger *slog.Logger) *HubManager {
	return &HubManager{
		hubs:   make(map[model.SessionID]*Hub),
		idle:   make(map[model.SessionID]struct{}),
		logger: logger.With(slog.String("component", "push")),
		stop:   make(chan struct{}),
	}
}

// GetOrCreateHub returns the hub for a session, creating one if it doesn't exist
func (m *HubManager) GetOrCreateHub(session model.SessionID) *Hub {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.idle, session)
	if hub, ok := m.hubs[session]; ok {
		return hub
	}

	hub := NewHub(session, m.logger)
	m.hubs[session] = hub
	go hub.Run()
	return hub
}

// GetHub returns the hub for a session, or nil if it doesn't exist
func (m *HubManager) GetHub(session model.SessionID) *Hub {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hubs[session]
}

// Publish delivers event to every client watching its session.
// Sessions nobody is watching are skipped.
func (m *HubManager) Publish(event model.Event) {
	hub := m.GetHub(event.Session)
	if hub == nil {
		return
	}
	msg, err := NewMessage(event)
	if err != nil {
		m.logger.Error("failed to encode event",
			slog.String("session", string(event.Session)),
			slog.String("event", string(event.Type)),
			slog.String("error", err.Error()))
		return
	}
	hub.Broadcast(msg)
}

// CleanupEmptyHubs removes hubs that have had no clients for two
// consecutive sweeps. A hub found empty for the first time is only marked,
// so a watcher that has just fetched it still gets to register.
func (m *HubManager) CleanupEmptyHubs() {
	m.mu.Lock()
	defer m.mu.Unlock()

	removedCount := 0
	for session, hub := range m.hubs {
		if hub.ClientCount() > 0 {
			delete(m.idle, session)
			continue
		}
		if _, marked := m.idle[session]; !marked {
			m.idle[session] = struct{}{}
			continue
		}
		hub.Close()
		delete(m.hubs, session)
		delete(m.idle, session)
		removedCount++
	}
	if removedCount > 0 {
		m.logger.Info("empty hubs cleaned up", slog.Int("removed", removedCount))
	}
}

// StartCleanup sweeps for empty hubs every interval until Close.
func (m *HubManager) StartCleanup(interval time.Duration) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.CleanupEmptyHubs()
			case <-m.stop:
				return
			}
		}
	}()
}

// Close stops the cleanup loop and shuts down every hub
func (m *HubManager) Close() {
	m.stopOnce.Do(func() { close(m.stop) })
	m.wg.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()
	for session, hub := range m.hubs {
		hub.Close()
		delete(m.hubs, session)
	}
	clear(m.idle)
}
