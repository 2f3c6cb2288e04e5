package handler

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/mcoot/partyroom/internal/api/middleware"
	"github.com/mcoot/partyroom/internal/api/request"
	"github.com/mcoot/partyroom/internal/api/response"
	"github.com/mcoot/partyroom/internal/model"
	"github.com/mcoot/partyroom/internal/services/coordinator"
	"github.com/mcoot/partyroom/internal/services/rooms"
)

// qrSize is the edge length of generated QR codes in pixels
const qrSize = 320

// RoomHandler handles room-related endpoints
type RoomHandler struct {
	rooms       *rooms.Service
	coordinator *coordinator.Coordinator
	publicURL   string
}

// NewRoomHandler creates a new room handler. publicURL is the externally
// visible base URL used in QR codes; when empty it is derived from the request.
func NewRoomHandler(roomService *rooms.Service, coord *coordinator.Coordinator, publicURL string) *RoomHandler {
	return &RoomHandler{
		rooms:       roomService,
		coordinator: coord,
		publicURL:   strings.TrimSuffix(publicURL, "/"),
	}
}

// Create handles POST /api/v1/rooms
func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	participant := middleware.MustGetParticipant(r.Context())

	var req request.CreateRoomRequest
	if !decodeBody(w, r, &req) {
		return
	}

	room, err := h.rooms.CreateRoom(r.Context(), participant, rooms.CreateParams{
		ID:         model.SessionID(req.ID),
		Name:       req.Name,
		GameType:   model.GameType(req.GameType),
		MaxPlayers: req.MaxPlayers,
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	// The creator joins their own room
	snapshot, err := h.coordinator.Join(r.Context(), room.ID, participant)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.RoomFromModel(room, snapshot.Participants))
}

// List handles GET /api/v1/rooms
func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	all, err := h.rooms.ListRooms(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}

	resp := response.RoomList{Rooms: make([]response.Room, len(all))}
	for i, room := range all {
		resp.Rooms[i] = response.RoomFromModel(room, h.coordinator.Participants(r.Context(), room.ID))
	}
	response.JSON(w, http.StatusOK, resp)
}

// Get handles GET /api/v1/rooms/{id}
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := model.SessionID(mux.Vars(r)["id"])

	room, err := h.rooms.GetRoom(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RoomFromModel(room, h.coordinator.Participants(r.Context(), id)))
}

// Delete handles DELETE /api/v1/rooms/{id}
func (h *RoomHandler) Delete(w http.ResponseWriter, r *http.Request) {
	participant := middleware.MustGetParticipant(r.Context())
	id := model.SessionID(mux.Vars(r)["id"])

	if err := h.rooms.DeleteRoom(r.Context(), id, participant); err != nil {
		WriteError(w, err)
		return
	}
	response.NoContent(w)
}

// QR handles GET /api/v1/rooms/{id}/qr with a PNG QR code linking to the room
func (h *RoomHandler) QR(w http.ResponseWriter, r *http.Request) {
	id := model.SessionID(mux.Vars(r)["id"])

	if _, err := h.rooms.GetRoom(r.Context(), id); err != nil {
		WriteError(w, err)
		return
	}

	png, err := qrcode.Encode(h.baseURL(r)+"/rooms/"+string(id), qrcode.Medium, qrSize)
	if err != nil {
		WriteError(w, NewInternalError())
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// baseURL returns the configured public URL, or one derived from the request
// (respecting TLS and X-Forwarded-Proto)
func (h *RoomHandler) baseURL(r *http.Request) string {
	if h.publicURL != "" {
		return h.publicURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}
