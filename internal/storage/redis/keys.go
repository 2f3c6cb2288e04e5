package redis

import (
	"fmt"

	"github.com/mcoot/partyroom/internal/model"
)

// Key prefix for all partyroom data
const keyPrefix = "partyroom"

// playerKey returns the Redis key for a Player
func playerKey(id model.ParticipantID) string {
	return fmt.Sprintf("%s:player:%s", keyPrefix, id)
}

// registeredPlayerKey returns the Redis key for a RegisteredPlayer, keyed by username
func registeredPlayerKey(username string) string {
	return fmt.Sprintf("%s:registered_player:%s", keyPrefix, username)
}

// roomKey returns the Redis key for a Room
func roomKey(id model.SessionID) string {
	return fmt.Sprintf("%s:room:%s", keyPrefix, id)
}

// roomsIndexKey returns the Redis key for the SET of known room IDs
func roomsIndexKey() string {
	return fmt.Sprintf("%s:idx:rooms", keyPrefix)
}

// roundHistoryKey returns the Redis key for the LIST of scored rounds in a session
func roundHistoryKey(session model.SessionID) string {
	return fmt.Sprintf("%s:rounds:%s", keyPrefix, session)
}
