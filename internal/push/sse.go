package push

import (
	"net/http"
	"strings"
	"time"

	"github.com/mcoot/partyroom/internal/model"
)

const (
	// Time between keepalive pings
	pingPeriod = 30 * time.Second

	// Buffer size for outgoing messages
	sendBufferSize = 256

	// Reconnect delay suggested to EventSource clients, in milliseconds
	retryMillis = "3000"
)

// Client is one subscriber to a session hub
type Client struct {
	hub         *Hub
	participant model.ParticipantID
	send        chan Message
	connectedAt time.Time
}

// NewClient creates a new client for hub. It receives nothing until registered.
func NewClient(hub *Hub, participant model.ParticipantID) *Client {
	return &Client{
		hub:         hub,
		participant: participant,
		send:        make(chan Message, sendBufferSize),
		connectedAt: time.Now(),
	}
}

// Messages returns the client's delivery channel. It is closed when the
// client is unregistered or the hub shuts down.
func (c *Client) Messages() <-chan Message {
	return c.send
}

// ServeSSE streams the client's messages as server-sent events until the
// request ends. The client must already be registered; initial messages are
// written before anything queued on the client.
func ServeSSE(w http.ResponseWriter, r *http.Request, client *Client, initial ...Message) {
	defer client.hub.Unregister(client)

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
	w.WriteHeader(http.StatusOK)

	_, _ = w.Write([]byte("retry: " + retryMillis + "\n\n"))
	for _, msg := range initial {
		if _, err := w.Write(formatSSEMessage(msg.Event, string(msg.Data))); err != nil {
			return
		}
	}
	flusher.Flush()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-client.send:
			if !ok {
				// Hub closed the channel
				return
			}
			if _, err := w.Write(formatSSEMessage(msg.Event, string(msg.Data))); err != nil {
				return
			}
			flusher.Flush()

		case <-ticker.C:
			if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
				return
			}
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

// formatSSEMessage formats an SSE message with event name and data.
// Each line of data gets its own "data: " prefix.
func formatSSEMessage(eventName, data string) []byte {
	var b strings.Builder
	b.WriteString("event: ")
	b.WriteString(eventName)
	b.WriteString("\n")
	for _, line := range splitLines(data) {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return []byte(b.String())
}

// splitLines splits a string into lines, dropping carriage returns and a
// trailing newline
func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.TrimSuffix(s, "\n")
	return strings.Split(s, "\n")
}
