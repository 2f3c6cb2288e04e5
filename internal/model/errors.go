package model

import "errors"

// Error kinds. Every error returned by the services wraps exactly one of these
// so transports can map failures without knowing individual sentinels.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInvalidState    = errors.New("invalid state")
	ErrNotFound        = errors.New("not found")
	ErrUnauthenticated = errors.New("unauthenticated")
)

// kindError is a sentinel error that belongs to one error kind
type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

func newError(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

// KindOf returns the error kind err belongs to, or nil if it has none
func KindOf(err error) error {
	for _, kind := range []error{ErrInvalidArgument, ErrInvalidState, ErrNotFound, ErrUnauthenticated} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// Common errors used across the application
var (
	// Player errors
	ErrPlayerNotFound     = newError(ErrNotFound, "player not found")
	ErrUsernameTaken      = newError(ErrInvalidState, "username is already taken")
	ErrInvalidCredentials = newError(ErrUnauthenticated, "invalid username or password")
	ErrInvalidToken       = newError(ErrUnauthenticated, "invalid or expired token")
	ErrConnectionUnbound  = newError(ErrUnauthenticated, "connection is not bound to a participant")
	ErrDisplayNameEmpty   = newError(ErrInvalidArgument, "display name is required")
	ErrCredentialsEmpty   = newError(ErrInvalidArgument, "username and password are required")

	// Room and session errors
	ErrRoomNotFound      = newError(ErrNotFound, "room not found")
	ErrRoomExists        = newError(ErrInvalidState, "room already exists")
	ErrRoomFull          = newError(ErrInvalidState, "room is full")
	ErrNotRoomOwner      = newError(ErrInvalidState, "only the room creator can do this")
	ErrInvalidMaxPlayers = newError(ErrInvalidArgument, "max players must be between 2 and 10")
	ErrUnknownGameType   = newError(ErrInvalidArgument, "unknown game type")
	ErrNotMember         = newError(ErrInvalidState, "participant is not a member of this session")
	ErrOtherGameActive   = newError(ErrInvalidState, "another game is active in this session")

	// Command errors
	ErrUnknownCommand = newError(ErrInvalidArgument, "unknown game type and action combination")
	ErrInvalidPayload = newError(ErrInvalidArgument, "invalid command payload")

	// Card game errors
	ErrWrongPlayerCount  = newError(ErrInvalidArgument, "exactly two distinct players are required")
	ErrGameAlreadyExists = newError(ErrInvalidArgument, "a game already exists for this session")
	ErrGameNotFound      = newError(ErrNotFound, "game not found")
	ErrGameFinished      = newError(ErrInvalidState, "game is already finished")
	ErrNotInGame         = newError(ErrInvalidArgument, "participant is not playing this game")

	// Word game errors
	ErrGameNotWaiting   = newError(ErrInvalidState, "game has already started")
	ErrNotEnoughPlayers = newError(ErrInvalidArgument, "at least two participants are required")
	ErrCannotStartRound = newError(ErrInvalidState, "a round cannot be started in the current state")
	ErrRoundNotActive   = newError(ErrInvalidState, "no round is being played")
	ErrEmptyAnswers     = newError(ErrInvalidArgument, "answers are required")

	// Oracle errors
	ErrOracleUnavailable = errors.New("scoring oracle unavailable")
	ErrOracleMalformed   = errors.New("scoring oracle returned a malformed result")
)
