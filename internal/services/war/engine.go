package war

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mcoot/partyroom/internal/dependencies/random"
	"github.com/mcoot/partyroom/internal/model"
)

// TieMessage is reported when both players' latest cards share a rank.
// Ties are resolved by comparing the next pair of cards; no cards are burned.
const TieMessage = "War! Tie occurred. Each player must play again."

// EngineInterface defines the card game operations used by the coordinator
type EngineInterface interface {
	Start(ctx context.Context, session model.SessionID, players []model.ParticipantID) (*model.CardGameState, error)
	PlayTurn(ctx context.Context, session model.SessionID, participant model.ParticipantID) (*model.CardGameState, *model.Outcome, error)
	State(ctx context.Context, session model.SessionID) (*model.CardGameState, error)
	End(ctx context.Context, session model.SessionID) error
	Active(ctx context.Context, session model.SessionID) bool
}

// Ensure Engine implements EngineInterface
var _ EngineInterface = (*Engine)(nil)

// Engine runs two-player "war" games, one per session
type Engine struct {
	random random.Random
	logger *slog.Logger

	mu    sync.Mutex
	games map[model.SessionID]*game
}

// game is the mutable state of one card game. Never handed out; callers get snapshots.
type game struct {
	players   [2]model.ParticipantID
	hands     map[model.ParticipantID][]model.Card
	pile      []model.CardPlay
	pending   map[model.ParticipantID]int // cards contributed since the last resolution
	lastCards map[model.ParticipantID]*model.Card
	status    model.CardGameStatus
	winner    model.ParticipantID
}

// NewEngine creates a card game engine
func NewEngine(random random.Random, logger *slog.Logger) *Engine {
	return &Engine{
		random: random,
		logger: logger.With(slog.String("component", "war")),
		games:  make(map[model.SessionID]*game),
	}
}

// NewDeck returns the 52 cards in suit-then-rank order
func NewDeck() []model.Card {
	deck := make([]model.Card, 0, model.DeckSize)
	for _, suit := range model.Suits {
		for rank := model.MinRank; rank <= model.MaxRank; rank++ {
			deck = append(deck, model.Card{Rank: rank, Suit: suit})
		}
	}
	return deck
}

// Start shuffles a fresh deck and deals it evenly between exactly two players.
// A finished game in the session is replaced; an ongoing one is an error.
func (e *Engine) Start(ctx context.Context, session model.SessionID, players []model.ParticipantID) (*model.CardGameState, error) {
	if len(players) != 2 || players[0] == "" || players[1] == "" || players[0] == players[1] {
		return nil, model.ErrWrongPlayerCount
	}

	deck := NewDeck()
	e.random.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})
	half := len(deck) / 2

	e.mu.Lock()
	defer e.mu.Unlock()

	if g, ok := e.games[session]; ok && g.status == model.CardGameOngoing {
		return nil, model.ErrGameAlreadyExists
	}

	g := newGame(players[0], players[1], deck[:half], deck[half:])
	e.games[session] = g

	e.logger.Info("card game started",
		slog.String("session", string(session)),
		slog.String("player1", string(players[0])),
		slog.String("player2", string(players[1])),
	)
	return g.snapshot(session), nil
}

// PlayTurn moves the participant's top card onto the pile and resolves the pile
// once both players have contributed the same number of cards.
func (e *Engine) PlayTurn(ctx context.Context, session model.SessionID, participant model.ParticipantID) (*model.CardGameState, *model.Outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	g, ok := e.games[session]
	if !ok {
		return nil, nil, model.ErrGameNotFound
	}
	if g.status == model.CardGameFinished {
		return nil, nil, model.ErrGameFinished
	}
	opponent, ok := g.opponentOf(participant)
	if !ok {
		return nil, nil, model.ErrNotInGame
	}

	hand := g.hands[participant]
	if len(hand) == 0 {
		outcome := &model.Outcome{
			Message: fmt.Sprintf("Player %s has no cards left", participant),
			NoOp:    true,
		}
		return g.snapshot(session), outcome, nil
	}

	card := hand[0]
	g.hands[participant] = hand[1:]
	g.pile = append(g.pile, model.CardPlay{Participant: participant, Card: card})
	g.lastCards[participant] = &card
	g.pending[participant]++

	outcome := &model.Outcome{Message: fmt.Sprintf("Player %s played %s", participant, card)}

	if g.pending[participant] == g.pending[opponent] {
		e.resolve(session, g, participant, opponent, outcome)
	}

	if len(g.hands[participant]) == 0 || len(g.hands[opponent]) == 0 {
		g.finish()
		e.logger.Info("card game finished",
			slog.String("session", string(session)),
			slog.String("winner", string(g.winner)),
		)
		if g.winner != "" {
			outcome.Message = fmt.Sprintf("Game over! %s wins", g.winner)
		} else {
			outcome.Message = "Game over! Both hands are empty"
		}
	}

	return g.snapshot(session), outcome, nil
}

// resolve compares the two latest plays. The higher rank takes the whole pile;
// a tie leaves the pile in place for the next pair of cards.
func (e *Engine) resolve(session model.SessionID, g *game, a, b model.ParticipantID, outcome *model.Outcome) {
	cardA, cardB := g.lastCards[a], g.lastCards[b]

	if cardA.Rank == cardB.Rank {
		outcome.Tie = true
		outcome.Message = TieMessage
		return
	}

	winner := a
	if cardB.Rank > cardA.Rank {
		winner = b
	}
	for _, play := range g.pile {
		g.hands[winner] = append(g.hands[winner], play.Card)
	}

	e.logger.Debug("pile resolved",
		slog.String("session", string(session)),
		slog.String("winner", string(winner)),
		slog.Int("cards", len(g.pile)),
	)

	outcome.RoundWinner = winner
	outcome.Message = fmt.Sprintf("Player %s wins the round with %s against %s", winner, g.lastCards[winner], g.lastCards[g.mustOpponent(winner)])
	g.pile = nil
	g.pending[a] = 0
	g.pending[b] = 0
}

// State returns the public state of the session's card game
func (e *Engine) State(ctx context.Context, session model.SessionID) (*model.CardGameState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	g, ok := e.games[session]
	if !ok {
		return nil, model.ErrGameNotFound
	}
	return g.snapshot(session), nil
}

// End discards the session's card game
func (e *Engine) End(ctx context.Context, session model.SessionID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.games[session]; !ok {
		return model.ErrGameNotFound
	}
	delete(e.games, session)

	e.logger.Info("card game ended", slog.String("session", string(session)))
	return nil
}

// Active reports whether the session has an ongoing card game
func (e *Engine) Active(ctx context.Context, session model.SessionID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	g, ok := e.games[session]
	return ok && g.status == model.CardGameOngoing
}

// startWithHands installs a game with fixed hands, bypassing the shuffle
func (e *Engine) startWithHands(session model.SessionID, p1, p2 model.ParticipantID, hand1, hand2 []model.Card) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.games[session] = newGame(p1, p2, hand1, hand2)
}

func newGame(p1, p2 model.ParticipantID, hand1, hand2 []model.Card) *game {
	return &game{
		players: [2]model.ParticipantID{p1, p2},
		hands: map[model.ParticipantID][]model.Card{
			p1: append([]model.Card(nil), hand1...),
			p2: append([]model.Card(nil), hand2...),
		},
		pending:   map[model.ParticipantID]int{p1: 0, p2: 0},
		lastCards: map[model.ParticipantID]*model.Card{p1: nil, p2: nil},
		status:    model.CardGameOngoing,
	}
}

func (g *game) opponentOf(p model.ParticipantID) (model.ParticipantID, bool) {
	switch p {
	case g.players[0]:
		return g.players[1], true
	case g.players[1]:
		return g.players[0], true
	}
	return "", false
}

func (g *game) mustOpponent(p model.ParticipantID) model.ParticipantID {
	o, _ := g.opponentOf(p)
	return o
}

// finish marks the game over; the player holding more cards wins
func (g *game) finish() {
	g.status = model.CardGameFinished
	n1, n2 := len(g.hands[g.players[0]]), len(g.hands[g.players[1]])
	switch {
	case n1 > n2:
		g.winner = g.players[0]
	case n2 > n1:
		g.winner = g.players[1]
	}
}

func (g *game) snapshot(session model.SessionID) *model.CardGameState {
	state := &model.CardGameState{
		Session:    session,
		Status:     g.status,
		Players:    []model.ParticipantID{g.players[0], g.players[1]},
		HandCounts: make(map[model.ParticipantID]int, 2),
		Pile:       append([]model.CardPlay{}, g.pile...),
		LastCards:  make(map[model.ParticipantID]*model.Card, 2),
		Winner:     g.winner,
	}
	for _, p := range g.players {
		state.HandCounts[p] = len(g.hands[p])
		if c := g.lastCards[p]; c != nil {
			card := *c
			state.LastCards[p] = &card
		} else {
			state.LastCards[p] = nil
		}
	}
	return state
}
