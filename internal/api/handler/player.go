package handler

import (
	"net/http"

	"github.com/mcoot/partyroom/internal/api/middleware"
	"github.com/mcoot/partyroom/internal/api/request"
	"github.com/mcoot/partyroom/internal/api/response"
	"github.com/mcoot/partyroom/internal/services/auth"
)

// PlayerHandler serves account endpoints. Validation lives in auth.Service.
type PlayerHandler struct {
	auth *auth.Service
}

// NewPlayerHandler creates a new player handler
func NewPlayerHandler(authService *auth.Service) *PlayerHandler {
	return &PlayerHandler{auth: authService}
}

// CreateGuest handles POST /api/v1/players/guest
func (h *PlayerHandler) CreateGuest(w http.ResponseWriter, r *http.Request) {
	var req request.CreateGuestRequest
	if !decodeBody(w, r, &req) {
		return
	}
	session, err := h.auth.CreateGuestPlayer(r.Context(), req.DisplayName)
	writeSession(w, http.StatusCreated, session, err)
}

// Register handles POST /api/v1/players/register
func (h *PlayerHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req request.RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}
	creds := auth.Credentials{Username: req.Username, Password: req.Password}
	session, err := h.auth.RegisterPlayer(r.Context(), creds, req.DisplayName)
	writeSession(w, http.StatusCreated, session, err)
}

// Login handles POST /api/v1/players/login
func (h *PlayerHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req request.LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	session, err := h.auth.Login(r.Context(), auth.Credentials{Username: req.Username, Password: req.Password})
	writeSession(w, http.StatusOK, session, err)
}

// GetMe handles GET /api/v1/players/me
func (h *PlayerHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	player, err := h.auth.GetPlayer(r.Context(), middleware.GetToken(r.Context()))
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.PlayerFromModel(player))
}

func writeSession(w http.ResponseWriter, status int, session *auth.Session, err error) {
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, status, response.AuthResponseFromSession(session))
}
