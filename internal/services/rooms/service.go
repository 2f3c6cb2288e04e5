package rooms

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/mcoot/partyroom/internal/dependencies/clock"
	"github.com/mcoot/partyroom/internal/dependencies/random"
	"github.com/mcoot/partyroom/internal/model"
	"github.com/mcoot/partyroom/internal/storage"
)

const (
	// CodeLength is the length of generated room codes
	CodeLength = 6
	// CodeAlphabet is the characters used in room codes (avoid confusing chars)
	CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	// maxCodeAttempts bounds the search for an unused code
	maxCodeAttempts = 32
)

// CreateParams describes a room to create
type CreateParams struct {
	// ID is optional; a random code is generated when empty
	ID         model.SessionID
	Name       string
	GameType   model.GameType
	MaxPlayers int
}

// Service manages stored room metadata
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	random  random.Random
	logger  *slog.Logger
}

// New creates a new room service
func New(storage storage.Storage, clock clock.Clock, random random.Random, logger *slog.Logger) *Service {
	return &Service{
		storage: storage,
		clock:   clock,
		random:  random,
		logger:  logger.With(slog.String("component", "rooms")),
	}
}

// CreateRoom stores a new room owned by creator
func (s *Service) CreateRoom(ctx context.Context, creator model.ParticipantID, params CreateParams) (*model.Room, error) {
	if !params.GameType.Valid() {
		return nil, model.ErrUnknownGameType
	}
	maxPlayers := params.MaxPlayers
	if maxPlayers == 0 {
		maxPlayers = model.DefaultMaxPlayers
	}
	if maxPlayers < model.MinMaxPlayers || maxPlayers > model.MaxMaxPlayers {
		return nil, model.ErrInvalidMaxPlayers
	}

	id := model.SessionID(strings.TrimSpace(string(params.ID)))
	if id != "" {
		exists, err := s.exists(ctx, id)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, model.ErrRoomExists
		}
	} else {
		generated, err := s.newCode(ctx)
		if err != nil {
			return nil, err
		}
		id = generated
	}

	name := strings.TrimSpace(params.Name)
	if name == "" {
		name = string(id)
	}

	room := &model.Room{
		ID:         id,
		Name:       name,
		GameType:   params.GameType,
		MaxPlayers: maxPlayers,
		CreatedBy:  creator,
		CreatedAt:  s.clock.Now(),
	}
	if err := s.storage.SaveRoom(ctx, room); err != nil {
		return nil, err
	}

	s.logger.Info("room created",
		slog.String("room", string(room.ID)),
		slog.String("game_type", string(room.GameType)),
		slog.Int("max_players", room.MaxPlayers),
	)
	return room, nil
}

// GetRoom retrieves a room by ID
func (s *Service) GetRoom(ctx context.Context, id model.SessionID) (*model.Room, error) {
	return s.storage.GetRoom(ctx, id)
}

// ListRooms returns every stored room, newest first
func (s *Service) ListRooms(ctx context.Context) ([]*model.Room, error) {
	return s.storage.ListRooms(ctx)
}

// DeleteRoom removes a room. Only its creator may delete it.
func (s *Service) DeleteRoom(ctx context.Context, id model.SessionID, caller model.ParticipantID) error {
	room, err := s.storage.GetRoom(ctx, id)
	if err != nil {
		return err
	}
	if room.CreatedBy != caller {
		return model.ErrNotRoomOwner
	}
	if err := s.storage.DeleteRoom(ctx, id); err != nil {
		return err
	}
	s.logger.Info("room deleted", slog.String("room", string(id)))
	return nil
}

func (s *Service) exists(ctx context.Context, id model.SessionID) (bool, error) {
	_, err := s.storage.GetRoom(ctx, id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, model.ErrRoomNotFound) {
		return false, nil
	}
	return false, err
}

// newCode generates a room code not used by any stored room
func (s *Service) newCode(ctx context.Context) (model.SessionID, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		var b strings.Builder
		for i := 0; i < CodeLength; i++ {
			b.WriteByte(CodeAlphabet[s.random.Intn(len(CodeAlphabet))])
		}
		code := model.SessionID(b.String())
		exists, err := s.exists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", errors.New("could not generate an unused room code")
}
