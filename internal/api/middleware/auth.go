package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/mcoot/partyroom/internal/api/apierr"
	"github.com/mcoot/partyroom/internal/model"
)

type contextKey string

const (
	participantContextKey contextKey = "participant"
	tokenContextKey       contextKey = "token"
)

// TokenCookie is the cookie a browser client may carry its token in
const TokenCookie = "partyroom_token"

// TokenVerifier resolves a bearer token to a participant
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (model.ParticipantID, error)
}

// Auth creates authentication middleware
func Auth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractToken(r)
			if token == "" {
				apierr.WriteError(w, apierr.NewUnauthorizedError())
				return
			}

			participant, err := verifier.Verify(r.Context(), token)
			if err != nil {
				apierr.WriteError(w, err)
				return
			}

			ctx := r.Context()
			ctx = context.WithValue(ctx, participantContextKey, participant)
			ctx = context.WithValue(ctx, tokenContextKey, token)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ExtractToken finds the caller's token in the Authorization header, the
// token cookie, or the "token" query parameter (for EventSource clients,
// which cannot set headers).
func ExtractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	if cookie, err := r.Cookie(TokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	return r.URL.Query().Get("token")
}

// GetParticipant returns the authenticated participant from the request context
func GetParticipant(ctx context.Context) (model.ParticipantID, bool) {
	participant, ok := ctx.Value(participantContextKey).(model.ParticipantID)
	return participant, ok
}

// GetToken returns the verified token from the request context
func GetToken(ctx context.Context) string {
	token, _ := ctx.Value(tokenContextKey).(string)
	return token
}

// MustGetParticipant returns the authenticated participant or panics
func MustGetParticipant(ctx context.Context) model.ParticipantID {
	participant, ok := GetParticipant(ctx)
	if !ok {
		panic("no participant in context - auth middleware not applied?")
	}
	return participant
}
