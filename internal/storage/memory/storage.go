package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/mcoot/partyroom/internal/model"
	"github.com/mcoot/partyroom/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	players           map[model.ParticipantID]*model.Player
	registeredPlayers map[string]*model.RegisteredPlayer // keyed by username
	rooms             map[model.SessionID]*model.Room
	rounds            map[model.SessionID][]*model.RoundRecord
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		players:           make(map[model.ParticipantID]*model.Player),
		registeredPlayers: make(map[string]*model.RegisteredPlayer),
		rooms:             make(map[model.SessionID]*model.Room),
		rounds:            make(map[model.SessionID][]*model.RoundRecord),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Player operations

func (s *Storage) SavePlayer(ctx context.Context, player *model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := *player
	s.players[player.ID] = &p
	return nil
}

func (s *Storage) GetPlayer(ctx context.Context, id model.ParticipantID) (*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	player, ok := s.players[id]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	p := *player
	return &p, nil
}

// Registered player operations

func (s *Storage) SaveRegisteredPlayer(ctx context.Context, rp *model.RegisteredPlayer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.registeredPlayers[rp.Username]; ok && existing.PlayerID != rp.PlayerID {
		return model.ErrUsernameTaken
	}
	r := *rp
	s.registeredPlayers[rp.Username] = &r
	return nil
}

func (s *Storage) GetRegisteredPlayerByUsername(ctx context.Context, username string) (*model.RegisteredPlayer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rp, ok := s.registeredPlayers[username]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	r := *rp
	return &r, nil
}

// Room operations

func (s *Storage) SaveRoom(ctx context.Context, room *model.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := *room
	s.rooms[room.ID] = &r
	return nil
}

func (s *Storage) GetRoom(ctx context.Context, id model.SessionID) (*model.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[id]
	if !ok {
		return nil, model.ErrRoomNotFound
	}
	r := *room
	return &r, nil
}

func (s *Storage) ListRooms(ctx context.Context) ([]*model.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rooms := make([]*model.Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		r := *room
		rooms = append(rooms, &r)
	}
	storage.SortRooms(rooms)
	return rooms, nil
}

func (s *Storage) DeleteRoom(ctx context.Context, id model.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[id]; !ok {
		return model.ErrRoomNotFound
	}
	delete(s.rooms, id)
	return nil
}

// Round history operations

func (s *Storage) AppendRoundRecord(ctx context.Context, record *model.RoundRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := *record
	s.rounds[record.Session] = append(s.rounds[record.Session], &r)
	return nil
}

func (s *Storage) ListRoundRecords(ctx context.Context, session model.SessionID) ([]*model.RoundRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]*model.RoundRecord, 0, len(s.rounds[session]))
	for _, record := range s.rounds[session] {
		r := *record
		records = append(records, &r)
	}
	sort.SliceStable(records, func(i, j int) bool { return records[i].Round < records[j].Round })
	return records, nil
}
