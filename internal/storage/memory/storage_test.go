package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/partyroom/internal/model"
)

type StorageSuite struct {
	suite.Suite
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.storage = New()
	s.ctx = context.Background()
}

// Player tests

func (s *StorageSuite) TestSaveAndGetPlayer() {
	player := &model.Player{
		ID:          "player-1",
		DisplayName: "Alice",
		CreatedAt:   time.Now(),
	}

	err := s.storage.SavePlayer(s.ctx, player)
	s.Require().NoError(err)

	retrieved, err := s.storage.GetPlayer(s.ctx, "player-1")
	s.Require().NoError(err)
	s.Equal(player.ID, retrieved.ID)
	s.Equal(player.DisplayName, retrieved.DisplayName)
}

func (s *StorageSuite) TestGetPlayerNotFound() {
	_, err := s.storage.GetPlayer(s.ctx, "nonexistent")
	s.ErrorIs(err, model.ErrPlayerNotFound)
	s.ErrorIs(err, model.ErrNotFound)
}

func (s *StorageSuite) TestReturnedPlayerIsACopy() {
	s.Require().NoError(s.storage.SavePlayer(s.ctx, &model.Player{ID: "p1", DisplayName: "Alice"}))

	p, err := s.storage.GetPlayer(s.ctx, "p1")
	s.Require().NoError(err)
	p.DisplayName = "Mallory"

	again, err := s.storage.GetPlayer(s.ctx, "p1")
	s.Require().NoError(err)
	s.Equal("Alice", again.DisplayName)
}

// Registered player tests

func (s *StorageSuite) TestRegisteredPlayerByUsername() {
	rp := &model.RegisteredPlayer{PlayerID: "p1", Username: "alice", PasswordHash: "hash"}
	s.Require().NoError(s.storage.SaveRegisteredPlayer(s.ctx, rp))

	got, err := s.storage.GetRegisteredPlayerByUsername(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(model.ParticipantID("p1"), got.PlayerID)

	_, err = s.storage.GetRegisteredPlayerByUsername(s.ctx, "bob")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *StorageSuite) TestRegisteredPlayerUsernameTaken() {
	s.Require().NoError(s.storage.SaveRegisteredPlayer(s.ctx, &model.RegisteredPlayer{PlayerID: "p1", Username: "alice"}))

	err := s.storage.SaveRegisteredPlayer(s.ctx, &model.RegisteredPlayer{PlayerID: "p2", Username: "alice"})
	s.ErrorIs(err, model.ErrUsernameTaken)
}

// Room tests

func (s *StorageSuite) TestRoomLifecycle() {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s.Require().NoError(s.storage.SaveRoom(s.ctx, &model.Room{ID: "r1", Name: "first", GameType: model.GameTypeWar, MaxPlayers: 2, CreatedAt: now}))
	s.Require().NoError(s.storage.SaveRoom(s.ctx, &model.Room{ID: "r2", Name: "second", GameType: model.GameTypeEratzIr, MaxPlayers: 6, CreatedAt: now.Add(time.Minute)}))

	room, err := s.storage.GetRoom(s.ctx, "r1")
	s.Require().NoError(err)
	s.Equal("first", room.Name)

	rooms, err := s.storage.ListRooms(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(rooms, 2)
	s.Equal(model.SessionID("r2"), rooms[0].ID, "newest room first")

	s.Require().NoError(s.storage.DeleteRoom(s.ctx, "r1"))
	_, err = s.storage.GetRoom(s.ctx, "r1")
	s.ErrorIs(err, model.ErrRoomNotFound)
	s.ErrorIs(s.storage.DeleteRoom(s.ctx, "r1"), model.ErrRoomNotFound)
}

// Round history tests

func (s *StorageSuite) TestRoundRecordsAreAppendOnlyPerSession() {
	s.Require().NoError(s.storage.AppendRoundRecord(s.ctx, &model.RoundRecord{Session: "r1", Round: 1, Letter: "א"}))
	s.Require().NoError(s.storage.AppendRoundRecord(s.ctx, &model.RoundRecord{Session: "r1", Round: 2, Letter: "ב"}))
	s.Require().NoError(s.storage.AppendRoundRecord(s.ctx, &model.RoundRecord{Session: "r2", Round: 1, Letter: "ג"}))

	records, err := s.storage.ListRoundRecords(s.ctx, "r1")
	s.Require().NoError(err)
	s.Require().Len(records, 2)
	s.Equal(1, records[0].Round)
	s.Equal(2, records[1].Round)

	empty, err := s.storage.ListRoundRecords(s.ctx, "unknown")
	s.Require().NoError(err)
	s.Empty(empty)
}
