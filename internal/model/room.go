package model

import "time"

// SessionID identifies a live game session. A room and its session share an ID.
type SessionID string

// GameType selects the engine a command is routed to
type GameType string

const (
	GameTypeWar     GameType = "war"
	GameTypeEratzIr GameType = "eratz-ir"
)

// Valid reports whether the game type is supported
func (t GameType) Valid() bool {
	return t == GameTypeWar || t == GameTypeEratzIr
}

// Room capacity limits
const (
	DefaultMaxPlayers = 2
	MinMaxPlayers     = 2
	MaxMaxPlayers     = 10
)

// Room is the stored metadata for a session
type Room struct {
	ID         SessionID     `json:"id"`
	Name       string        `json:"name"`
	GameType   GameType      `json:"game_type"`
	MaxPlayers int           `json:"max_players"`
	CreatedBy  ParticipantID `json:"created_by"`
	CreatedAt  time.Time     `json:"created_at"`
}
