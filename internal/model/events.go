package model

import "time"

// EventType identifies the type of event pushed to session connections
type EventType string

const (
	EventRoomUpdated      EventType = "room.updated"
	EventGameUpdated      EventType = "game.updated"
	EventCountdownStarted EventType = "round.countdown"
	EventSnapshot         EventType = "session.snapshot" // first event on every new stream
)

// Snapshot is the full authoritative state of a session.
// Every command result and every pushed event carries one.
type Snapshot struct {
	Session      SessionID       `json:"session_id"`
	Participants []ParticipantID `json:"participants"`
	GameType     GameType        `json:"game_type,omitempty"`
	Action       string          `json:"action,omitempty"`
	Outcome      *Outcome        `json:"outcome,omitempty"`
	War          *CardGameState  `json:"war,omitempty"`
	Word         *WordGameState  `json:"word,omitempty"`
}

// Event is a snapshot published to every connection bound to a session
type Event struct {
	Type      EventType     `json:"type"`
	Timestamp time.Time     `json:"timestamp"`
	Session   SessionID     `json:"session_id"`
	Actor     ParticipantID `json:"actor,omitempty"` // participant who triggered the change
	Snapshot  Snapshot      `json:"snapshot"`
}
