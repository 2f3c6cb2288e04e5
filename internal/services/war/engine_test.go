package war

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/partyroom/internal/dependencies/mocks"
	"github.com/mcoot/partyroom/internal/dependencies/random"
	"github.com/mcoot/partyroom/internal/model"
	"github.com/mcoot/partyroom/internal/testutil"
)

type EngineSuite struct {
	suite.Suite
	random *mocks.MockRandom
	engine *Engine
	ctx    context.Context
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.random = mocks.NewMockRandom()
	s.engine = NewEngine(s.random, testutil.NopLogger())
	s.ctx = context.Background()
}

// cards builds a hand of the given ranks in one suit
func cards(suit model.Suit, ranks ...int) []model.Card {
	hand := make([]model.Card, len(ranks))
	for i, r := range ranks {
		hand[i] = model.Card{Rank: r, Suit: suit}
	}
	return hand
}

// filler returns n low cards used to keep hands from running out
func filler(suit model.Suit, n int) []model.Card {
	hand := make([]model.Card, n)
	for i := range hand {
		hand[i] = model.Card{Rank: 2 + i%13, Suit: suit}
	}
	return hand
}

func (s *EngineSuite) total(state *model.CardGameState) int {
	n := len(state.Pile)
	for _, c := range state.HandCounts {
		n += c
	}
	return n
}

// Start tests

func (s *EngineSuite) TestNewDeckHas52UniqueCards() {
	deck := NewDeck()
	s.Len(deck, model.DeckSize)

	seen := make(map[model.Card]bool)
	for _, c := range deck {
		s.GreaterOrEqual(c.Rank, model.MinRank)
		s.LessOrEqual(c.Rank, model.MaxRank)
		seen[c] = true
	}
	s.Len(seen, model.DeckSize)
}

func (s *EngineSuite) TestStartDealsEvenly() {
	state, err := s.engine.Start(s.ctx, "r1", []model.ParticipantID{"a", "b"})
	s.Require().NoError(err)

	s.Equal(model.CardGameOngoing, state.Status)
	s.Equal(26, state.HandCounts["a"])
	s.Equal(26, state.HandCounts["b"])
	s.Empty(state.Pile)
	s.Empty(state.Winner)
	s.Equal(1, s.random.ShuffleCalls)
}

func (s *EngineSuite) TestStartRequiresExactlyTwoDistinctPlayers() {
	cases := [][]model.ParticipantID{
		nil,
		{"a"},
		{"a", "b", "c"},
		{"a", "a"},
		{"a", ""},
	}
	for _, players := range cases {
		_, err := s.engine.Start(s.ctx, "r1", players)
		s.ErrorIs(err, model.ErrWrongPlayerCount, "players %v", players)
		s.ErrorIs(err, model.ErrInvalidArgument, "players %v", players)
	}
}

func (s *EngineSuite) TestStartFailsWhenGameOngoing() {
	_, err := s.engine.Start(s.ctx, "r1", []model.ParticipantID{"a", "b"})
	s.Require().NoError(err)

	_, err = s.engine.Start(s.ctx, "r1", []model.ParticipantID{"a", "b"})
	s.ErrorIs(err, model.ErrGameAlreadyExists)
	s.ErrorIs(err, model.ErrInvalidArgument)

	// Other sessions are independent
	_, err = s.engine.Start(s.ctx, "r2", []model.ParticipantID{"a", "b"})
	s.NoError(err)
}

func (s *EngineSuite) TestStartReplacesFinishedGame() {
	s.engine.startWithHands("r1", "a", "b", cards(model.SuitHearts, 2), cards(model.SuitClubs, 3, 4))
	_, _, err := s.engine.PlayTurn(s.ctx, "r1", "a")
	s.Require().NoError(err)
	s.False(s.engine.Active(s.ctx, "r1"))

	state, err := s.engine.Start(s.ctx, "r1", []model.ParticipantID{"a", "b"})
	s.Require().NoError(err)
	s.Equal(model.CardGameOngoing, state.Status)
	s.True(s.engine.Active(s.ctx, "r1"))
}

// PlayTurn tests

func (s *EngineSuite) TestPlayTurnWithoutGame() {
	_, _, err := s.engine.PlayTurn(s.ctx, "r1", "a")
	s.ErrorIs(err, model.ErrGameNotFound)
	s.ErrorIs(err, model.ErrNotFound)
}

func (s *EngineSuite) TestPlayTurnByOutsider() {
	_, err := s.engine.Start(s.ctx, "r1", []model.ParticipantID{"a", "b"})
	s.Require().NoError(err)

	_, _, err = s.engine.PlayTurn(s.ctx, "r1", "mallory")
	s.ErrorIs(err, model.ErrNotInGame)
}

func (s *EngineSuite) TestTieThenWin() {
	hand1 := append(cards(model.SuitHearts, 5, 9), filler(model.SuitHearts, 24)...)
	hand2 := append(cards(model.SuitClubs, 5, 3), filler(model.SuitClubs, 24)...)
	s.engine.startWithHands("r1", "p1", "p2", hand1, hand2)

	// Equal ranks: tie reported, pile keeps both cards
	state, outcome, err := s.engine.PlayTurn(s.ctx, "r1", "p1")
	s.Require().NoError(err)
	s.False(outcome.Tie)
	s.Len(state.Pile, 1)

	state, outcome, err = s.engine.PlayTurn(s.ctx, "r1", "p2")
	s.Require().NoError(err)
	s.True(outcome.Tie)
	s.Equal(TieMessage, outcome.Message)
	s.Len(state.Pile, 2)
	s.Equal(25, state.HandCounts["p1"])
	s.Equal(25, state.HandCounts["p2"])

	// Unequal ranks: p1 takes all four cards
	state, _, err = s.engine.PlayTurn(s.ctx, "r1", "p1")
	s.Require().NoError(err)
	before := state.HandCounts["p1"]

	state, outcome, err = s.engine.PlayTurn(s.ctx, "r1", "p2")
	s.Require().NoError(err)
	s.False(outcome.Tie)
	s.Equal(model.ParticipantID("p1"), outcome.RoundWinner)
	s.Equal(before+4, state.HandCounts["p1"])
	s.Equal(24, state.HandCounts["p2"])
	s.Empty(state.Pile)
	s.Equal(52, s.total(state))
}

func (s *EngineSuite) TestNoResolutionUntilBothContributeEqually() {
	hand1 := append(cards(model.SuitHearts, 14, 2), filler(model.SuitHearts, 10)...)
	hand2 := append(cards(model.SuitClubs, 3, 13), filler(model.SuitClubs, 10)...)
	s.engine.startWithHands("r1", "p1", "p2", hand1, hand2)

	// p1 plays twice in a row: pile grows, nothing resolves
	_, _, err := s.engine.PlayTurn(s.ctx, "r1", "p1")
	s.Require().NoError(err)
	state, outcome, err := s.engine.PlayTurn(s.ctx, "r1", "p1")
	s.Require().NoError(err)
	s.Len(state.Pile, 2)
	s.Empty(outcome.RoundWinner)

	// One card from p2 still leaves the contributions uneven
	state, outcome, err = s.engine.PlayTurn(s.ctx, "r1", "p2")
	s.Require().NoError(err)
	s.Len(state.Pile, 3)
	s.Empty(outcome.RoundWinner)

	// Second card evens it out; the latest plays are p1's 2 and p2's K
	state, outcome, err = s.engine.PlayTurn(s.ctx, "r1", "p2")
	s.Require().NoError(err)
	s.Equal(model.ParticipantID("p2"), outcome.RoundWinner)
	s.Empty(state.Pile)
	s.Equal(10, state.HandCounts["p1"])
	s.Equal(14, state.HandCounts["p2"])
}

func (s *EngineSuite) TestResolutionOnlyOnEvenPile() {
	_, err := s.engine.Start(s.ctx, "r1", []model.ParticipantID{"a", "b"})
	s.Require().NoError(err)

	// Arbitrary play order: every resolution must leave an empty pile after an even number of cards
	order := []model.ParticipantID{"a", "a", "b", "a", "b", "b", "b", "a", "a", "b"}
	for _, p := range order {
		before, err := s.engine.State(s.ctx, "r1")
		s.Require().NoError(err)
		state, outcome, err := s.engine.PlayTurn(s.ctx, "r1", p)
		s.Require().NoError(err)
		if outcome.RoundWinner != "" {
			s.Equal(0, (len(before.Pile)+1)%2, "resolved an odd pile")
			s.Empty(state.Pile)
		}
		s.Equal(52, s.total(state))
	}
}

func (s *EngineSuite) TestHandExhaustionFinishesGame() {
	s.engine.startWithHands("r1", "p1", "p2", cards(model.SuitHearts, 10, 4), cards(model.SuitClubs, 3))

	_, _, err := s.engine.PlayTurn(s.ctx, "r1", "p1")
	s.Require().NoError(err)
	state, outcome, err := s.engine.PlayTurn(s.ctx, "r1", "p2")
	s.Require().NoError(err)

	s.Equal(model.CardGameFinished, state.Status)
	s.Equal(model.ParticipantID("p1"), state.Winner)
	s.Equal(3, state.HandCounts["p1"])
	s.Equal(0, state.HandCounts["p2"])
	s.Contains(outcome.Message, "p1 wins")

	_, _, err = s.engine.PlayTurn(s.ctx, "r1", "p1")
	s.ErrorIs(err, model.ErrGameFinished)
	s.ErrorIs(err, model.ErrInvalidState)
}

func (s *EngineSuite) TestEmptyHandIsInformationalNoOp() {
	s.engine.startWithHands("r1", "p1", "p2", nil, cards(model.SuitClubs, 3))

	state, outcome, err := s.engine.PlayTurn(s.ctx, "r1", "p1")
	s.Require().NoError(err)
	s.True(outcome.NoOp)
	s.Contains(outcome.Message, "no cards left")
	s.Empty(state.Pile)
	s.Equal(1, state.HandCounts["p2"])
}

func (s *EngineSuite) TestConservationOverFullGame() {
	engine := NewEngine(random.New(), testutil.NopLogger())
	_, err := engine.Start(s.ctx, "r1", []model.ParticipantID{"a", "b"})
	s.Require().NoError(err)

	players := []model.ParticipantID{"a", "b"}
	for i := 0; i < 5000; i++ {
		state, _, err := engine.PlayTurn(s.ctx, "r1", players[i%2])
		s.Require().NoError(err)
		s.Equal(52, s.total(state), "cards conserved at play %d", i)
		if state.Status == model.CardGameFinished {
			return
		}
	}
}

// State and End tests

func (s *EngineSuite) TestStateReportsLastCards() {
	s.engine.startWithHands("r1", "p1", "p2", cards(model.SuitHearts, 7, 8), cards(model.SuitClubs, 9, 10))

	state, err := s.engine.State(s.ctx, "r1")
	s.Require().NoError(err)
	s.Nil(state.LastCards["p1"])

	_, _, err = s.engine.PlayTurn(s.ctx, "r1", "p1")
	s.Require().NoError(err)

	state, err = s.engine.State(s.ctx, "r1")
	s.Require().NoError(err)
	s.Require().NotNil(state.LastCards["p1"])
	s.Equal(model.Card{Rank: 7, Suit: model.SuitHearts}, *state.LastCards["p1"])
	s.Equal([]model.ParticipantID{"p1", "p2"}, state.Players)
}

func (s *EngineSuite) TestStateWithoutGame() {
	_, err := s.engine.State(s.ctx, "r1")
	s.ErrorIs(err, model.ErrGameNotFound)
}

func (s *EngineSuite) TestEndDiscardsGame() {
	_, err := s.engine.Start(s.ctx, "r1", []model.ParticipantID{"a", "b"})
	s.Require().NoError(err)

	s.Require().NoError(s.engine.End(s.ctx, "r1"))

	_, err = s.engine.State(s.ctx, "r1")
	s.ErrorIs(err, model.ErrGameNotFound)
	s.ErrorIs(s.engine.End(s.ctx, "r1"), model.ErrGameNotFound)
	s.False(s.engine.Active(s.ctx, "r1"))
}
