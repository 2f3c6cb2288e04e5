package scoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/partyroom/internal/model"
	"github.com/mcoot/partyroom/internal/services/oracle"
	"github.com/mcoot/partyroom/internal/testutil"
)

// stubOracle returns a canned verdict or error, optionally blocking until the deadline
type stubOracle struct {
	verdict *oracle.Verdict
	err     error
	block   bool
	calls   int
	lastReq oracle.Request
}

func (o *stubOracle) Validate(ctx context.Context, req oracle.Request) (*oracle.Verdict, error) {
	o.calls++
	o.lastReq = req
	if o.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return o.verdict, o.err
}

type ServiceSuite struct {
	suite.Suite
	oracle     *stubOracle
	service    *Service
	ctx        context.Context
	categories []string
	answers    map[model.ParticipantID]model.Answers
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.oracle = &stubOracle{}
	s.service = New(s.oracle, 20*time.Millisecond, testutil.NopLogger())
	s.ctx = context.Background()
	s.categories = []string{"city", "country"}
	s.answers = map[model.ParticipantID]model.Answers{
		"a": {"city": "Berlin", "country": "  "},
		"b": {"city": "Bonn", "country": "Brazil"},
	}
}

func (s *ServiceSuite) TestOracleVerdictsAreCounted() {
	s.oracle.verdict = &oracle.Verdict{
		Valid: true,
		Details: map[model.ParticipantID]map[string]bool{
			"a": {"city": true, "country": false},
			"b": {"city": true, "country": true},
		},
	}

	result := s.service.ScoreRound(s.ctx, "B", []model.ParticipantID{"a", "b", "c"}, s.answers, s.categories)

	s.Equal(model.ScoredByOracle, result.Source)
	s.Equal(1, result.RoundScores["a"])
	s.Equal(2, result.RoundScores["b"])
	s.Equal(0, result.RoundScores["c"], "non-submitters score zero")
	s.Equal(1, s.oracle.calls)
	s.Equal("B", s.oracle.lastReq.Letter)
}

func (s *ServiceSuite) TestOracleMissingCategoryCountsAsWrong() {
	s.oracle.verdict = &oracle.Verdict{
		Details: map[model.ParticipantID]map[string]bool{
			"a": {"city": true},
			"b": {"city": true, "country": true, "animal": true},
		},
	}

	result := s.service.ScoreRound(s.ctx, "B", nil, s.answers, s.categories)

	s.Equal(1, result.RoundScores["a"])
	s.Equal(2, result.RoundScores["b"], "only round categories count")
}

func (s *ServiceSuite) TestOracleErrorsAreReported() {
	s.oracle.verdict = &oracle.Verdict{
		Errors:  []string{"Brazil is not a city"},
		Details: map[model.ParticipantID]map[string]bool{"a": {}, "b": {}},
	}

	result := s.service.ScoreRound(s.ctx, "B", nil, s.answers, s.categories)

	s.Equal([]string{"Brazil is not a city"}, result.Errors)
}

func (s *ServiceSuite) TestFallbackWhenOracleUnavailable() {
	s.oracle.err = model.ErrOracleUnavailable

	result := s.service.ScoreRound(s.ctx, "B", nil, s.answers, s.categories)

	s.Equal(model.ScoredByHeuristic, result.Source)
	s.Equal(1, result.RoundScores["a"], "whitespace-only answer is not counted")
	s.Equal(2, result.RoundScores["b"])
}

func (s *ServiceSuite) TestFallbackWhenOracleMalformed() {
	cases := []*oracle.Verdict{
		nil,
		{Valid: true},
		{Details: map[model.ParticipantID]map[string]bool{"a": {"city": true}}},
	}
	for _, verdict := range cases {
		s.oracle.verdict = verdict
		s.oracle.err = nil

		result := s.service.ScoreRound(s.ctx, "B", nil, s.answers, s.categories)

		s.Equal(model.ScoredByHeuristic, result.Source)
		s.Equal(2, result.RoundScores["b"])
	}
}

func (s *ServiceSuite) TestFallbackWhenOracleTimesOut() {
	s.oracle.block = true

	start := time.Now()
	result := s.service.ScoreRound(s.ctx, "B", nil, s.answers, s.categories)

	s.Equal(model.ScoredByHeuristic, result.Source)
	s.Less(time.Since(start), time.Second)
}

func (s *ServiceSuite) TestFallbackOnArbitraryError() {
	s.oracle.err = errors.New("boom")

	result := s.service.ScoreRound(s.ctx, "B", nil, s.answers, s.categories)
	s.Equal(model.ScoredByHeuristic, result.Source)
}

func (s *ServiceSuite) TestNilOracleIsUnavailable() {
	service := New(nil, 0, testutil.NopLogger())

	result := service.ScoreRound(s.ctx, "B", nil, s.answers, s.categories)
	s.Equal(model.ScoredByHeuristic, result.Source)
}

func (s *ServiceSuite) TestHeuristic() {
	verdicts := Heuristic(map[model.ParticipantID]model.Answers{
		"a": {"city": " x ", "country": ""},
	}, s.categories)

	s.True(verdicts["a"]["city"])
	s.False(verdicts["a"]["country"])
}

func (s *ServiceSuite) TestDetermineLeader() {
	s.Equal(model.ParticipantID("b"), DetermineLeader(map[model.ParticipantID]int{"a": 1, "b": 3}))
	s.Empty(DetermineLeader(map[model.ParticipantID]int{"a": 2, "b": 2}))
	s.Empty(DetermineLeader(nil))
	s.Empty(DetermineLeader(map[model.ParticipantID]int{"a": 0}))
}
