package storage

import (
	"context"
	"sort"

	"github.com/mcoot/partyroom/internal/model"
)

// Storage defines the interface for data persistence.
// Live session and game state never goes through here; only accounts, room
// metadata and the scored-round history are stored.
type Storage interface {
	// Player operations
	SavePlayer(ctx context.Context, player *model.Player) error
	GetPlayer(ctx context.Context, id model.ParticipantID) (*model.Player, error)

	// Registered player operations
	SaveRegisteredPlayer(ctx context.Context, rp *model.RegisteredPlayer) error
	GetRegisteredPlayerByUsername(ctx context.Context, username string) (*model.RegisteredPlayer, error)

	// Room operations
	SaveRoom(ctx context.Context, room *model.Room) error
	GetRoom(ctx context.Context, id model.SessionID) (*model.Room, error)
	ListRooms(ctx context.Context) ([]*model.Room, error)
	DeleteRoom(ctx context.Context, id model.SessionID) error

	// Round history operations
	AppendRoundRecord(ctx context.Context, record *model.RoundRecord) error
	ListRoundRecords(ctx context.Context, session model.SessionID) ([]*model.RoundRecord, error)
}

// SortRooms orders rooms newest first, breaking ties by ID
func SortRooms(rooms []*model.Room) {
	sort.Slice(rooms, func(i, j int) bool {
		if !rooms[i].CreatedAt.Equal(rooms[j].CreatedAt) {
			return rooms[i].CreatedAt.After(rooms[j].CreatedAt)
		}
		return rooms[i].ID < rooms[j].ID
	})
}
