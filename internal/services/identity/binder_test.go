package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/partyroom/internal/model"
	"github.com/mcoot/partyroom/internal/testutil"
)

// stubVerifier accepts tokens of the form "token-<participant>"
type stubVerifier struct {
	calls int
}

func (v *stubVerifier) Verify(ctx context.Context, token string) (model.ParticipantID, error) {
	v.calls++
	const prefix = "token-"
	if len(token) <= len(prefix) || token[:len(prefix)] != prefix {
		return "", model.ErrInvalidToken
	}
	return model.ParticipantID(token[len(prefix):]), nil
}

type BinderSuite struct {
	suite.Suite
	verifier *stubVerifier
	binder   *Binder
	ctx      context.Context
}

func TestBinderSuite(t *testing.T) {
	suite.Run(t, new(BinderSuite))
}

func (s *BinderSuite) SetupTest() {
	s.verifier = &stubVerifier{}
	s.binder = NewBinder(s.verifier, testutil.NopLogger())
	s.ctx = context.Background()
}

func (s *BinderSuite) TestBindAndResolve() {
	participant, err := s.binder.Bind(s.ctx, "c1", "token-alice")
	s.Require().NoError(err)
	s.Equal(model.ParticipantID("alice"), participant)

	resolved, err := s.binder.Resolve("c1")
	s.Require().NoError(err)
	s.Equal(participant, resolved)
}

func (s *BinderSuite) TestBindRejectsBadCredential() {
	_, err := s.binder.Bind(s.ctx, "c1", "garbage")
	s.ErrorIs(err, model.ErrUnauthenticated)

	_, err = s.binder.Resolve("c1")
	s.ErrorIs(err, model.ErrConnectionUnbound)
}

func (s *BinderSuite) TestBindVerifiesOncePerConnection() {
	_, err := s.binder.Bind(s.ctx, "c1", "token-alice")
	s.Require().NoError(err)

	// A later credential on the same connection does not change the identity
	participant, err := s.binder.Bind(s.ctx, "c1", "token-bob")
	s.Require().NoError(err)
	s.Equal(model.ParticipantID("alice"), participant)
	s.Equal(1, s.verifier.calls)
}

func (s *BinderSuite) TestUnbindReportsLastConnection() {
	_, _ = s.binder.Bind(s.ctx, "c1", "token-alice")
	_, _ = s.binder.Bind(s.ctx, "c2", "token-alice")
	s.Equal(2, s.binder.Connections("alice"))

	participant, last := s.binder.Unbind("c1")
	s.Equal(model.ParticipantID("alice"), participant)
	s.False(last)

	participant, last = s.binder.Unbind("c2")
	s.Equal(model.ParticipantID("alice"), participant)
	s.True(last)
	s.Equal(0, s.binder.Connections("alice"))
}

func (s *BinderSuite) TestUnbindUnknownConnection() {
	participant, last := s.binder.Unbind("nope")
	s.Empty(participant)
	s.False(last)
}
