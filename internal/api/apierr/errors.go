package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/partyroom/internal/model"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeInvalidState       = "INVALID_STATE"
	CodeNotFound           = "NOT_FOUND"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeUsernameExists     = "USERNAME_EXISTS"
	CodePlayerNotFound     = "PLAYER_NOT_FOUND"
	CodeRoomNotFound       = "ROOM_NOT_FOUND"
	CodeRoomExists         = "ROOM_EXISTS"
	CodeRoomFull           = "ROOM_FULL"
	CodeNotRoomOwner       = "NOT_ROOM_OWNER"
	CodeNotMember          = "NOT_MEMBER"
	CodeOtherGameActive    = "OTHER_GAME_ACTIVE"
	CodeUnknownCommand     = "UNKNOWN_COMMAND"
	CodeInvalidPayload     = "INVALID_PAYLOAD"
	CodeWrongPlayerCount   = "WRONG_PLAYER_COUNT"
	CodeGameNotFound       = "GAME_NOT_FOUND"
	CodeGameFinished       = "GAME_FINISHED"
	CodeRoundNotActive     = "ROUND_NOT_ACTIVE"
	CodeInternalError      = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// specific errors that get their own code; everything else is mapped by kind
var codes = []struct {
	err  error
	code string
}{
	{model.ErrInvalidCredentials, CodeInvalidCredentials},
	{model.ErrUsernameTaken, CodeUsernameExists},
	{model.ErrPlayerNotFound, CodePlayerNotFound},
	{model.ErrRoomNotFound, CodeRoomNotFound},
	{model.ErrRoomExists, CodeRoomExists},
	{model.ErrRoomFull, CodeRoomFull},
	{model.ErrNotRoomOwner, CodeNotRoomOwner},
	{model.ErrNotMember, CodeNotMember},
	{model.ErrOtherGameActive, CodeOtherGameActive},
	{model.ErrUnknownCommand, CodeUnknownCommand},
	{model.ErrUnknownGameType, CodeUnknownCommand},
	{model.ErrInvalidPayload, CodeInvalidPayload},
	{model.ErrWrongPlayerCount, CodeWrongPlayerCount},
	{model.ErrGameNotFound, CodeGameNotFound},
	{model.ErrGameFinished, CodeGameFinished},
	{model.ErrRoundNotActive, CodeRoundNotActive},
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	status, apiError := Resolve(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: apiError})
}

// Resolve maps err to an HTTP status and the error body sent to clients
func Resolve(err error) (int, APIError) {
	he := toHTTPError(err)
	return he.status, he.apiError
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	kind := model.KindOf(err)
	if kind == nil {
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}

	status, code := statusForKind(kind)
	for _, c := range codes {
		if errors.Is(err, c.err) {
			code = c.code
			break
		}
	}
	return &httpError{status, APIError{code, err.Error()}}
}

func statusForKind(kind error) (int, string) {
	switch kind {
	case model.ErrInvalidArgument:
		return http.StatusBadRequest, CodeInvalidRequest
	case model.ErrInvalidState:
		return http.StatusConflict, CodeInvalidState
	case model.ErrNotFound:
		return http.StatusNotFound, CodeNotFound
	default:
		return http.StatusUnauthorized, CodeUnauthorized
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Authentication required"}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
