package command

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/mcoot/partyroom/internal/model"
)

// Actions accepted for each game type
const (
	ActionWarStart = "start"
	ActionWarPlay  = "play"
	ActionWarState = "state"
	ActionWarEnd   = "end"

	ActionWordStartGame      = "startGame"
	ActionWordStartRound     = "startRound"
	ActionWordSaveAnswers    = "saveAnswers"
	ActionWordFinishRound    = "finishRound"
	ActionWordStartCountdown = "startCountdown"
	ActionWordResetGame      = "resetGame"
	ActionWordState          = "state"
)

// Command is a validated game action. The set of implementations is closed;
// callers switch on the concrete type.
type Command interface {
	GameType() model.GameType
	Action() string
	command()
}

// WarStart deals a new card game. An empty player list means the session's members.
type WarStart struct {
	Players []model.ParticipantID `json:"players"`
}

// WarPlay plays the caller's top card
type WarPlay struct{}

// WarState reads the card game
type WarState struct{}

// WarEnd discards the card game
type WarEnd struct{}

// WordStartGame starts the word game
type WordStartGame struct{}

// WordStartRound opens a round. Empty categories reuse the previous ones.
type WordStartRound struct {
	Categories []string `json:"categories"`
}

// WordSaveAnswers submits the caller's answers for the current round
type WordSaveAnswers struct {
	Answers model.Answers `json:"answers"`
}

// WordFinishRound scores the current round
type WordFinishRound struct{}

// WordStartCountdown schedules the current round to finish automatically
type WordStartCountdown struct{}

// WordResetGame returns the word game to waiting
type WordResetGame struct{}

// WordState reads the word game
type WordState struct{}

func (WarStart) GameType() model.GameType           { return model.GameTypeWar }
func (WarPlay) GameType() model.GameType            { return model.GameTypeWar }
func (WarState) GameType() model.GameType           { return model.GameTypeWar }
func (WarEnd) GameType() model.GameType             { return model.GameTypeWar }
func (WordStartGame) GameType() model.GameType      { return model.GameTypeEratzIr }
func (WordStartRound) GameType() model.GameType     { return model.GameTypeEratzIr }
func (WordSaveAnswers) GameType() model.GameType    { return model.GameTypeEratzIr }
func (WordFinishRound) GameType() model.GameType    { return model.GameTypeEratzIr }
func (WordStartCountdown) GameType() model.GameType { return model.GameTypeEratzIr }
func (WordResetGame) GameType() model.GameType      { return model.GameTypeEratzIr }
func (WordState) GameType() model.GameType          { return model.GameTypeEratzIr }

func (WarStart) Action() string           { return ActionWarStart }
func (WarPlay) Action() string            { return ActionWarPlay }
func (WarState) Action() string           { return ActionWarState }
func (WarEnd) Action() string             { return ActionWarEnd }
func (WordStartGame) Action() string      { return ActionWordStartGame }
func (WordStartRound) Action() string     { return ActionWordStartRound }
func (WordSaveAnswers) Action() string    { return ActionWordSaveAnswers }
func (WordFinishRound) Action() string    { return ActionWordFinishRound }
func (WordStartCountdown) Action() string { return ActionWordStartCountdown }
func (WordResetGame) Action() string      { return ActionWordResetGame }
func (WordState) Action() string          { return ActionWordState }

func (WarStart) command()           {}
func (WarPlay) command()            {}
func (WarState) command()           {}
func (WarEnd) command()             {}
func (WordStartGame) command()      {}
func (WordStartRound) command()     {}
func (WordSaveAnswers) command()    {}
func (WordFinishRound) command()    {}
func (WordStartCountdown) command() {}
func (WordResetGame) command()      {}
func (WordState) command()          {}

// Mutates reports whether executing cmd can change session state
func Mutates(cmd Command) bool {
	switch cmd.(type) {
	case WarState, WordState:
		return false
	default:
		return true
	}
}

// Parse validates a (gameType, action, payload) triple into a Command.
// Unknown combinations fail with ErrUnknownCommand; payloads that do not
// match the action's shape fail with ErrInvalidPayload.
func Parse(gameType model.GameType, action string, payload json.RawMessage) (Command, error) {
	switch gameType {
	case model.GameTypeWar:
		return parseWar(action, payload)
	case model.GameTypeEratzIr:
		return parseWord(action, payload)
	default:
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownGameType, gameType)
	}
}

func parseWar(action string, payload json.RawMessage) (Command, error) {
	switch action {
	case ActionWarStart:
		var cmd WarStart
		if err := decode(payload, &cmd); err != nil {
			return nil, err
		}
		return cmd, nil
	case ActionWarPlay:
		return WarPlay{}, nil
	case ActionWarState:
		return WarState{}, nil
	case ActionWarEnd:
		return WarEnd{}, nil
	}
	return nil, fmt.Errorf("%w: %s/%s", model.ErrUnknownCommand, model.GameTypeWar, action)
}

func parseWord(action string, payload json.RawMessage) (Command, error) {
	switch action {
	case ActionWordStartGame:
		return WordStartGame{}, nil
	case ActionWordStartRound:
		var cmd WordStartRound
		if err := decode(payload, &cmd); err != nil {
			return nil, err
		}
		return cmd, nil
	case ActionWordSaveAnswers:
		var cmd WordSaveAnswers
		if err := decode(payload, &cmd); err != nil {
			return nil, err
		}
		if len(cmd.Answers) == 0 {
			return nil, model.ErrEmptyAnswers
		}
		return cmd, nil
	case ActionWordFinishRound:
		return WordFinishRound{}, nil
	case ActionWordStartCountdown:
		return WordStartCountdown{}, nil
	case ActionWordResetGame:
		return WordResetGame{}, nil
	case ActionWordState:
		return WordState{}, nil
	}
	return nil, fmt.Errorf("%w: %s/%s", model.ErrUnknownCommand, model.GameTypeEratzIr, action)
}

// decode unmarshals payload into v, treating an absent payload as empty
func decode(payload json.RawMessage, v any) error {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %s", model.ErrInvalidPayload, err.Error())
	}
	return nil
}
