package response

import (
	"time"

	"github.com/mcoot/partyroom/internal/model"
	"github.com/mcoot/partyroom/internal/services/auth"
)

// Player represents a player in API responses
type Player struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	IsGuest     bool   `json:"is_guest"`
}

// PlayerFromModel converts a model.Player to a response Player
func PlayerFromModel(p *model.Player) Player {
	return Player{
		ID:          string(p.ID),
		DisplayName: p.DisplayName,
		IsGuest:     p.IsGuest,
	}
}

// AuthResponse is the response for authentication endpoints
type AuthResponse struct {
	Player    Player    `json:"player"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AuthResponseFromSession creates an AuthResponse from an issued session
func AuthResponseFromSession(s *auth.Session) AuthResponse {
	return AuthResponse{
		Player:    PlayerFromModel(&s.Player),
		Token:     s.Token,
		ExpiresAt: s.ExpiresAt,
	}
}

// Room represents a room in API responses
type Room struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	GameType     string    `json:"game_type"`
	MaxPlayers   int       `json:"max_players"`
	CreatedBy    string    `json:"created_by"`
	CreatedAt    time.Time `json:"created_at"`
	Participants []string  `json:"participants"`
}

// RoomFromModel converts a model.Room with its current participants
func RoomFromModel(r *model.Room, participants []model.ParticipantID) Room {
	return Room{
		ID:           string(r.ID),
		Name:         r.Name,
		GameType:     string(r.GameType),
		MaxPlayers:   r.MaxPlayers,
		CreatedBy:    string(r.CreatedBy),
		CreatedAt:    r.CreatedAt,
		Participants: participantStrings(participants),
	}
}

// RoomList is the response for listing rooms
type RoomList struct {
	Rooms []Room `json:"rooms"`
}

// Participants is the response for a session's member list
type Participants struct {
	SessionID    string   `json:"session_id"`
	Participants []string `json:"participants"`
}

// ParticipantsFromModel converts a member list
func ParticipantsFromModel(session model.SessionID, participants []model.ParticipantID) Participants {
	return Participants{
		SessionID:    string(session),
		Participants: participantStrings(participants),
	}
}

// History is the response for a session's scored rounds
type History struct {
	SessionID string               `json:"session_id"`
	Rounds    []*model.RoundRecord `json:"rounds"`
}

func participantStrings(participants []model.ParticipantID) []string {
	out := make([]string, len(participants))
	for i, p := range participants {
		out[i] = string(p)
	}
	return out
}
