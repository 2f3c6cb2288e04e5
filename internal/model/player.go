package model

import "time"

// ParticipantID uniquely identifies a player across the system
type ParticipantID string

// Player represents a game participant
type Player struct {
	ID          ParticipantID
	DisplayName string
	IsGuest     bool // true for unregistered players
	CreatedAt   time.Time
}

// RegisteredPlayer extends Player with authentication data
type RegisteredPlayer struct {
	PlayerID     ParticipantID
	Username     string // login username (immutable)
	PasswordHash string // bcrypt hash
	CreatedAt    time.Time
}
