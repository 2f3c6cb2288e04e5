package request

import "encoding/json"

// CreateGuestRequest is the request body for creating a guest player
type CreateGuestRequest struct {
	DisplayName string `json:"display_name"`
}

// RegisterRequest is the request body for registering a player
type RegisterRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// LoginRequest is the request body for logging in
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// CreateRoomRequest is the request body for creating a room
type CreateRoomRequest struct {
	ID         string `json:"id,omitempty"`
	Name       string `json:"name,omitempty"`
	GameType   string `json:"game_type"`
	MaxPlayers int    `json:"max_players,omitempty"`
}

// ActionRequest is the request body for running a game command
type ActionRequest struct {
	GameType string          `json:"game_type"`
	Action   string          `json:"action"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}
