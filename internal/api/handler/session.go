package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/mcoot/partyroom/internal/api/middleware"
	"github.com/mcoot/partyroom/internal/api/request"
	"github.com/mcoot/partyroom/internal/api/response"
	"github.com/mcoot/partyroom/internal/command"
	"github.com/mcoot/partyroom/internal/dependencies/clock"
	"github.com/mcoot/partyroom/internal/model"
	"github.com/mcoot/partyroom/internal/push"
	"github.com/mcoot/partyroom/internal/services/coordinator"
	"github.com/mcoot/partyroom/internal/services/identity"
)

// SessionHandler handles session membership, commands and event streams
type SessionHandler struct {
	coordinator *coordinator.Coordinator
	hubs        *push.HubManager
	clock       clock.Clock
	logger      *slog.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(coord *coordinator.Coordinator, hubs *push.HubManager, clk clock.Clock, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		coordinator: coord,
		hubs:        hubs,
		clock:       clk,
		logger:      logger.With(slog.String("component", "session_handler")),
	}
}

// Get handles GET /api/v1/sessions/{id}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	session := model.SessionID(mux.Vars(r)["id"])
	response.JSON(w, http.StatusOK, h.coordinator.Snapshot(r.Context(), session))
}

// Join handles POST /api/v1/sessions/{id}/join
func (h *SessionHandler) Join(w http.ResponseWriter, r *http.Request) {
	participant := middleware.MustGetParticipant(r.Context())
	session := model.SessionID(mux.Vars(r)["id"])

	snapshot, err := h.coordinator.Join(r.Context(), session, participant)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, snapshot)
}

// Leave handles POST /api/v1/sessions/{id}/leave
func (h *SessionHandler) Leave(w http.ResponseWriter, r *http.Request) {
	participant := middleware.MustGetParticipant(r.Context())
	session := model.SessionID(mux.Vars(r)["id"])

	snapshot, err := h.coordinator.Leave(r.Context(), session, participant)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, snapshot)
}

// Participants handles GET /api/v1/sessions/{id}/participants
func (h *SessionHandler) Participants(w http.ResponseWriter, r *http.Request) {
	session := model.SessionID(mux.Vars(r)["id"])
	response.JSON(w, http.StatusOK, response.ParticipantsFromModel(session, h.coordinator.Participants(r.Context(), session)))
}

// Action handles POST /api/v1/sessions/{id}/actions
func (h *SessionHandler) Action(w http.ResponseWriter, r *http.Request) {
	participant := middleware.MustGetParticipant(r.Context())
	session := model.SessionID(mux.Vars(r)["id"])

	var req request.ActionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	cmd, err := command.Parse(model.GameType(req.GameType), req.Action, req.Payload)
	if err != nil {
		WriteError(w, err)
		return
	}

	snapshot, err := h.coordinator.Execute(r.Context(), session, participant, cmd)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, snapshot)
}

// History handles GET /api/v1/sessions/{id}/history
func (h *SessionHandler) History(w http.ResponseWriter, r *http.Request) {
	session := model.SessionID(mux.Vars(r)["id"])

	records, err := h.coordinator.History(r.Context(), session)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.History{SessionID: string(session), Rounds: records})
}

// Events handles GET /api/v1/sessions/{id}/events as a server-sent event
// stream. The stream counts as a connection: when a participant's last
// connection closes they leave every session.
func (h *SessionHandler) Events(w http.ResponseWriter, r *http.Request) {
	participant := middleware.MustGetParticipant(r.Context())
	session := model.SessionID(mux.Vars(r)["id"])
	ctx := r.Context()

	hub := h.hubs.GetOrCreateHub(session)
	client := push.NewClient(hub, participant)
	snapshot, err := h.coordinator.Watch(ctx, session, participant, func() {
		hub.Register(client)
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	initial, err := push.NewMessage(model.Event{
		Type:      model.EventSnapshot,
		Timestamp: h.clock.Now(),
		Session:   session,
		Actor:     participant,
		Snapshot:  *snapshot,
	})
	if err != nil {
		hub.Unregister(client)
		WriteError(w, NewInternalError())
		return
	}

	// Bind only once the stream is known to be valid, so a rejected stream
	// never counts as a lost connection
	conn := identity.ConnectionID(uuid.NewString())
	if _, err := h.coordinator.Connect(ctx, conn, middleware.GetToken(ctx)); err != nil {
		hub.Unregister(client)
		WriteError(w, err)
		return
	}
	defer h.coordinator.Disconnect(context.WithoutCancel(ctx), conn)

	h.logger.Debug("event stream opened",
		slog.String("session", string(session)),
		slog.String("participant", string(participant)),
	)
	push.ServeSSE(w, r, client, initial)
}
