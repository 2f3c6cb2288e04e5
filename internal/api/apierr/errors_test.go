package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/partyroom/internal/model"
)

func TestResolveMapsKindsToStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{model.ErrRoomFull, http.StatusConflict, CodeRoomFull},
		{model.ErrGameNotWaiting, http.StatusConflict, CodeInvalidState},
		{model.ErrWrongPlayerCount, http.StatusBadRequest, CodeWrongPlayerCount},
		{model.ErrEmptyAnswers, http.StatusBadRequest, CodeInvalidRequest},
		{model.ErrGameNotFound, http.StatusNotFound, CodeGameNotFound},
		{model.ErrInvalidToken, http.StatusUnauthorized, CodeUnauthorized},
		{fmt.Errorf("%w: war/fly", model.ErrUnknownCommand), http.StatusBadRequest, CodeUnknownCommand},
		{errors.New("boom"), http.StatusInternalServerError, CodeInternalError},
		{NewInvalidRequestError("bad body"), http.StatusBadRequest, CodeInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			status, apiError := Resolve(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, apiError.Code)
		})
	}
}

func TestWriteErrorHidesInternalMessages(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, errors.New("dial tcp 10.0.0.1:6379: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "Internal server error", body.Error.Message)
}
