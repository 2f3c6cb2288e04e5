package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mcoot/partyroom/internal/model"
	"github.com/mcoot/partyroom/internal/storage"
)

//go:embed schema.sql
var schema string

// Storage is a SQLite-backed implementation of the storage interface
type Storage struct {
	db *sql.DB
}

// New opens the database at path and applies the schema.
// Use ":memory:" for a throwaway database.
func New(ctx context.Context, path string) (*Storage, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Storage{db: db}, nil
}

// Close closes the database
func (s *Storage) Close() error {
	return s.db.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Player operations

func (s *Storage) SavePlayer(ctx context.Context, player *model.Player) error {
	q := `
	INSERT OR REPLACE INTO players (id, display_name, is_guest, created_at)
	VALUES (?, ?, ?, ?);
	`
	_, err := s.db.ExecContext(ctx, q, string(player.ID), player.DisplayName, player.IsGuest, player.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to save player: %w", err)
	}
	return nil
}

func (s *Storage) GetPlayer(ctx context.Context, id model.ParticipantID) (*model.Player, error) {
	q := `SELECT display_name, is_guest, created_at FROM players WHERE id = ?;`

	player := model.Player{ID: id}
	var createdAt int64
	err := s.db.QueryRowContext(ctx, q, string(id)).Scan(&player.DisplayName, &player.IsGuest, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to scan player: %w", err)
	}
	player.CreatedAt = time.Unix(0, createdAt).UTC()
	return &player, nil
}

// Registered player operations

func (s *Storage) SaveRegisteredPlayer(ctx context.Context, rp *model.RegisteredPlayer) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var owner string
	err = tx.QueryRowContext(ctx, `SELECT player_id FROM registered_players WHERE username = ?;`, rp.Username).Scan(&owner)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("failed to look up username: %w", err)
	case owner != string(rp.PlayerID):
		return model.ErrUsernameTaken
	}

	q := `
	INSERT OR REPLACE INTO registered_players (username, player_id, password_hash, created_at)
	VALUES (?, ?, ?, ?);
	`
	if _, err := tx.ExecContext(ctx, q, rp.Username, string(rp.PlayerID), rp.PasswordHash, rp.CreatedAt.UnixNano()); err != nil {
		return fmt.Errorf("failed to save registered player: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Storage) GetRegisteredPlayerByUsername(ctx context.Context, username string) (*model.RegisteredPlayer, error) {
	q := `SELECT player_id, password_hash, created_at FROM registered_players WHERE username = ?;`

	rp := model.RegisteredPlayer{Username: username}
	var playerID string
	var createdAt int64
	err := s.db.QueryRowContext(ctx, q, username).Scan(&playerID, &rp.PasswordHash, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to scan registered player: %w", err)
	}
	rp.PlayerID = model.ParticipantID(playerID)
	rp.CreatedAt = time.Unix(0, createdAt).UTC()
	return &rp, nil
}

// Room operations

func (s *Storage) SaveRoom(ctx context.Context, room *model.Room) error {
	q := `
	INSERT OR REPLACE INTO rooms (id, name, game_type, max_players, created_by, created_at)
	VALUES (?, ?, ?, ?, ?, ?);
	`
	_, err := s.db.ExecContext(ctx, q, string(room.ID), room.Name, string(room.GameType), room.MaxPlayers, string(room.CreatedBy), room.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to save room: %w", err)
	}
	return nil
}

func (s *Storage) GetRoom(ctx context.Context, id model.SessionID) (*model.Room, error) {
	q := `SELECT id, name, game_type, max_players, created_by, created_at FROM rooms WHERE id = ?;`

	room, err := scanRoom(s.db.QueryRowContext(ctx, q, string(id)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to scan room: %w", err)
	}
	return room, nil
}

func (s *Storage) ListRooms(ctx context.Context) ([]*model.Room, error) {
	q := `SELECT id, name, game_type, max_players, created_by, created_at FROM rooms;`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to query rooms: %w", err)
	}
	defer rows.Close()

	rooms := []*model.Room{}
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	storage.SortRooms(rooms)
	return rooms, nil
}

func (s *Storage) DeleteRoom(ctx context.Context, id model.SessionID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?;`, string(id))
	if err != nil {
		return fmt.Errorf("failed to delete room: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrRoomNotFound
	}
	return nil
}

// Round history operations

func (s *Storage) AppendRoundRecord(ctx context.Context, record *model.RoundRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	q := `
	INSERT INTO round_records (session_id, round, data, finished_at)
	VALUES (?, ?, ?, ?);
	`
	if _, err := s.db.ExecContext(ctx, q, string(record.Session), record.Round, string(data), record.FinishedAt.UnixNano()); err != nil {
		return fmt.Errorf("failed to append round record: %w", err)
	}
	return nil
}

func (s *Storage) ListRoundRecords(ctx context.Context, session model.SessionID) ([]*model.RoundRecord, error) {
	q := `SELECT data FROM round_records WHERE session_id = ? ORDER BY round, id;`

	rows, err := s.db.QueryContext(ctx, q, string(session))
	if err != nil {
		return nil, fmt.Errorf("failed to query round records: %w", err)
	}
	defer rows.Close()

	records := []*model.RoundRecord{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan round record: %w", err)
		}
		var record model.RoundRecord
		if err := json.Unmarshal([]byte(data), &record); err != nil {
			continue // Skip invalid data
		}
		records = append(records, &record)
	}
	return records, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRoom(row scanner) (*model.Room, error) {
	var room model.Room
	var id, gameType, createdBy string
	var createdAt int64
	if err := row.Scan(&id, &room.Name, &gameType, &room.MaxPlayers, &createdBy, &createdAt); err != nil {
		return nil, err
	}
	room.ID = model.SessionID(id)
	room.GameType = model.GameType(gameType)
	room.CreatedBy = model.ParticipantID(createdBy)
	room.CreatedAt = time.Unix(0, createdAt).UTC()
	return &room, nil
}
