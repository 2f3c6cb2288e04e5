package push

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mcoot/partyroom/internal/api/apierr"
	"github.com/mcoot/partyroom/internal/command"
	"github.com/mcoot/partyroom/internal/model"
	"github.com/mcoot/partyroom/internal/services/identity"
)

const (
	// Time allowed to write a frame to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong from the peer
	pongWait = 60 * time.Second

	// Send pings to the peer with this period. Must be less than pongWait.
	wsPingPeriod = (pongWait * 9) / 10

	// Largest inbound frame accepted
	maxMessageSize = 64 * 1024
)

// Inbound frame types
const (
	FrameJoinRoom  = "joinRoom"
	FrameLeaveRoom = "leaveRoom"
	FrameAction    = "action"
)

// Outbound frame types
const (
	FrameConnected = "connected"
	FrameEvent     = "event"
	FrameResult    = "result"
	FrameError     = "error"
)

// Dispatcher runs the session operations a websocket connection can request
type Dispatcher interface {
	Connect(ctx context.Context, conn identity.ConnectionID, credential string) (model.ParticipantID, error)
	Disconnect(ctx context.Context, conn identity.ConnectionID)
	Join(ctx context.Context, session model.SessionID, participant model.ParticipantID) (*model.Snapshot, error)
	Leave(ctx context.Context, session model.SessionID, participant model.ParticipantID) (*model.Snapshot, error)
	Execute(ctx context.Context, session model.SessionID, participant model.ParticipantID, cmd command.Command) (*model.Snapshot, error)
	Watch(ctx context.Context, session model.SessionID, participant model.ParticipantID, subscribe func()) (*model.Snapshot, error)
}

// InboundFrame is a request sent by a websocket client
type InboundFrame struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	SessionID model.SessionID `json:"session_id"`
	GameType  model.GameType  `json:"game_type,omitempty"`
	Action    string          `json:"action,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// OutboundFrame is a reply or pushed event sent to a websocket client
type OutboundFrame struct {
	Type        string              `json:"type"`
	RequestID   string              `json:"request_id,omitempty"`
	Participant model.ParticipantID `json:"participant,omitempty"`
	Snapshot    *model.Snapshot     `json:"snapshot,omitempty"`
	Event       json.RawMessage     `json:"event,omitempty"`
	Error       *apierr.APIError    `json:"error,omitempty"`
}

// WebSocketHandler upgrades authenticated requests to websocket connections
type WebSocketHandler struct {
	dispatcher Dispatcher
	hubs       *HubManager
	upgrader   websocket.Upgrader
	logger     *slog.Logger
}

// NewWebSocketHandler creates a websocket handler
func NewWebSocketHandler(dispatcher Dispatcher, hubs *HubManager, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		dispatcher: dispatcher,
		hubs:       hubs,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: logger.With(slog.String("component", "websocket")),
	}
}

// ServeHTTP binds the connection to the caller's identity and runs it until
// either side closes. The token comes from the "token" query parameter
// (browsers cannot set headers on websocket requests) or a Bearer header.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			token = strings.TrimPrefix(auth, "Bearer ")
		}
	}

	id := identity.ConnectionID(uuid.NewString())
	participant, err := h.dispatcher.Connect(r.Context(), id, token)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", slog.String("error", err.Error()))
		h.dispatcher.Disconnect(context.Background(), id)
		return
	}

	c := &Conn{
		id:          id,
		ws:          ws,
		participant: participant,
		dispatcher:  h.dispatcher,
		hubs:        h.hubs,
		out:         make(chan OutboundFrame, sendBufferSize),
		subs:        make(map[model.SessionID]*Client),
		done:        make(chan struct{}),
		logger: h.logger.With(
			slog.String("connection", string(id)),
			slog.String("participant", string(participant)),
		),
	}
	c.logger.Info("websocket connected")

	c.enqueue(OutboundFrame{Type: FrameConnected, Participant: participant})
	go c.writePump()
	c.readPump()
}

// Conn is one websocket connection. A connection can watch several sessions.
type Conn struct {
	id          identity.ConnectionID
	ws          *websocket.Conn
	participant model.ParticipantID
	dispatcher  Dispatcher
	hubs        *HubManager
	out         chan OutboundFrame
	done        chan struct{}
	logger      *slog.Logger

	mu   sync.Mutex
	subs map[model.SessionID]*Client
}

// readPump handles inbound frames one at a time until the peer goes away
func (c *Conn) readPump() {
	defer c.close()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var frame InboundFrame
		if err := c.ws.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read failed", slog.String("error", err.Error()))
			}
			return
		}
		c.handle(context.Background(), frame)
	}
}

// writePump sends queued frames and keepalive pings
func (c *Conn) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case frame := <-c.out:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *Conn) handle(ctx context.Context, frame InboundFrame) {
	if frame.SessionID == "" {
		c.replyError(frame.RequestID, apierr.NewInvalidRequestError("session_id is required"))
		return
	}

	var snapshot *model.Snapshot
	var err error
	switch frame.Type {
	case FrameJoinRoom:
		snapshot, err = c.join(ctx, frame.SessionID)
	case FrameLeaveRoom:
		c.unsubscribe(frame.SessionID)
		snapshot, err = c.dispatcher.Leave(ctx, frame.SessionID, c.participant)
	case FrameAction:
		var cmd command.Command
		cmd, err = command.Parse(frame.GameType, frame.Action, frame.Payload)
		if err == nil {
			snapshot, err = c.dispatcher.Execute(ctx, frame.SessionID, c.participant, cmd)
		}
	default:
		err = apierr.NewInvalidRequestError("unknown frame type: " + frame.Type)
	}

	if err != nil {
		c.replyError(frame.RequestID, err)
		return
	}
	c.enqueue(OutboundFrame{Type: FrameResult, RequestID: frame.RequestID, Snapshot: snapshot})
}

// join adds the participant to the session and starts forwarding its events
func (c *Conn) join(ctx context.Context, session model.SessionID) (*model.Snapshot, error) {
	if _, err := c.dispatcher.Join(ctx, session, c.participant); err != nil {
		return nil, err
	}

	c.mu.Lock()
	_, watching := c.subs[session]
	c.mu.Unlock()
	if watching {
		return c.dispatcher.Watch(ctx, session, c.participant, func() {})
	}

	hub := c.hubs.GetOrCreateHub(session)
	client := NewClient(hub, c.participant)
	snapshot, err := c.dispatcher.Watch(ctx, session, c.participant, func() {
		hub.Register(client)
	})
	if err != nil {
		hub.Unregister(client)
		return nil, err
	}

	c.mu.Lock()
	c.subs[session] = client
	c.mu.Unlock()
	go c.forward(client)
	return snapshot, nil
}

// forward relays a session's events onto the connection until unsubscribed
func (c *Conn) forward(client *Client) {
	for msg := range client.send {
		c.enqueue(OutboundFrame{Type: FrameEvent, Event: json.RawMessage(msg.Data)})
	}
}

func (c *Conn) unsubscribe(session model.SessionID) {
	c.mu.Lock()
	client, ok := c.subs[session]
	delete(c.subs, session)
	c.mu.Unlock()
	if ok {
		client.hub.Unregister(client)
	}
}

func (c *Conn) replyError(requestID string, err error) {
	_, apiError := apierr.Resolve(err)
	c.enqueue(OutboundFrame{Type: FrameError, RequestID: requestID, Error: &apiError})
}

func (c *Conn) enqueue(frame OutboundFrame) {
	select {
	case c.out <- frame:
	case <-c.done:
	}
}

// close tears down subscriptions and releases the connection's identity
func (c *Conn) close() {
	c.mu.Lock()
	subs := c.subs
	c.subs = make(map[model.SessionID]*Client)
	c.mu.Unlock()
	for _, client := range subs {
		client.hub.Unregister(client)
	}

	close(c.done)
	c.dispatcher.Disconnect(context.Background(), c.id)
	c.logger.Info("websocket disconnected")
}
