package wordround

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/mcoot/partyroom/internal/dependencies/clock"
	"github.com/mcoot/partyroom/internal/dependencies/random"
	"github.com/mcoot/partyroom/internal/model"
	"github.com/mcoot/partyroom/internal/services/scoring"
)

// DefaultAlphabet is the 22-letter Hebrew alphabet prompt letters are drawn from
const DefaultAlphabet = "אבגדהוזחטיכלמנסעפצקרשת"

// DefaultCategories are used when a round is started without categories
var DefaultCategories = []string{"עיר", "ארץ", "חי", "צומח"}

// Roster supplies the current members of a session
type Roster interface {
	Participants(ctx context.Context, session model.SessionID) []model.ParticipantID
}

// RoundScorer judges a finished round
type RoundScorer interface {
	ScoreRound(ctx context.Context, letter string, participants []model.ParticipantID, answers map[model.ParticipantID]model.Answers, categories []string) scoring.RoundResult
}

// HistoryRecorder stores scored rounds
type HistoryRecorder interface {
	AppendRoundRecord(ctx context.Context, record *model.RoundRecord) error
}

// Config holds word game settings
type Config struct {
	Alphabet          string
	DefaultCategories []string
}

// DefaultConfig returns the default word game configuration
func DefaultConfig() Config {
	return Config{
		Alphabet:          DefaultAlphabet,
		DefaultCategories: DefaultCategories,
	}
}

// EngineInterface defines the word game operations used by the coordinator
type EngineInterface interface {
	StartGame(ctx context.Context, session model.SessionID) (*model.WordGameState, error)
	StartRound(ctx context.Context, session model.SessionID, categories []string) (*model.WordGameState, error)
	SubmitAnswer(ctx context.Context, session model.SessionID, participant model.ParticipantID, answers model.Answers) (*model.WordGameState, error)
	FinishRound(ctx context.Context, session model.SessionID) (*model.WordGameState, error)
	ResetGame(ctx context.Context, session model.SessionID) (*model.WordGameState, error)
	State(ctx context.Context, session model.SessionID) *model.WordGameState
	Active(ctx context.Context, session model.SessionID) bool
}

// Ensure Engine implements EngineInterface
var _ EngineInterface = (*Engine)(nil)

// Engine runs "eratz-ir" word games, one per session
type Engine struct {
	roster  Roster
	scorer  RoundScorer
	history HistoryRecorder
	clock   clock.Clock
	random  random.Random
	logger  *slog.Logger

	letters           []string
	defaultCategories []string

	mu    sync.RWMutex
	games map[model.SessionID]*game
}

// game is the mutable state of one word game. Never handed out; callers get snapshots.
type game struct {
	status       model.WordGameStatus
	round        int
	letter       string
	categories   []string
	participants []model.ParticipantID
	answers      map[model.ParticipantID]model.Answers
	submitted    []model.ParticipantID
	verdicts     map[model.ParticipantID]map[string]bool
	roundScores  map[model.ParticipantID]int
	scores       map[model.ParticipantID]int
	scoredBy     model.ScoreSource
	oracleErrors []string
}

// NewEngine creates a word game engine
func NewEngine(
	roster Roster,
	scorer RoundScorer,
	history HistoryRecorder,
	clock clock.Clock,
	random random.Random,
	cfg Config,
	logger *slog.Logger,
) *Engine {
	if cfg.Alphabet == "" {
		cfg.Alphabet = DefaultAlphabet
	}
	if len(cfg.DefaultCategories) == 0 {
		cfg.DefaultCategories = DefaultCategories
	}

	letters := make([]string, 0, len(cfg.Alphabet))
	for _, r := range cfg.Alphabet {
		letters = append(letters, string(r))
	}

	return &Engine{
		roster:            roster,
		scorer:            scorer,
		history:           history,
		clock:             clock,
		random:            random,
		logger:            logger.With(slog.String("component", "wordround")),
		letters:           letters,
		defaultCategories: slices.Clone(cfg.DefaultCategories),
		games:             make(map[model.SessionID]*game),
	}
}

// Letters returns the alphabet prompt letters are drawn from
func (e *Engine) Letters() []string {
	return slices.Clone(e.letters)
}

// StartGame moves a waiting game to in-progress with every current member scored at zero
func (e *Engine) StartGame(ctx context.Context, session model.SessionID) (*model.WordGameState, error) {
	members := e.roster.Participants(ctx, session)

	e.mu.Lock()
	defer e.mu.Unlock()

	g := e.getOrCreateLocked(session, members)
	if g.status != model.WordGameWaiting {
		return nil, model.ErrGameNotWaiting
	}
	g.participants = members
	if len(g.participants) < 2 {
		return nil, model.ErrNotEnoughPlayers
	}

	g.scores = make(map[model.ParticipantID]int, len(g.participants))
	for _, p := range g.participants {
		g.scores[p] = 0
	}
	g.status = model.WordGameInProgress

	e.logger.Info("word game started",
		slog.String("session", string(session)),
		slog.Int("participants", len(g.participants)),
	)
	return g.snapshot(session), nil
}

// StartRound draws a prompt letter and opens a new round for submissions
func (e *Engine) StartRound(ctx context.Context, session model.SessionID, categories []string) (*model.WordGameState, error) {
	members := e.roster.Participants(ctx, session)

	e.mu.Lock()
	defer e.mu.Unlock()

	g, ok := e.games[session]
	if !ok {
		return nil, model.ErrGameNotFound
	}
	if g.status != model.WordGameInProgress && g.status != model.WordGameEnded {
		return nil, model.ErrCannotStartRound
	}

	if cleaned := cleanCategories(categories); len(cleaned) > 0 {
		g.categories = cleaned
	} else if len(g.categories) == 0 {
		g.categories = slices.Clone(e.defaultCategories)
	}

	// Late joiners play from this round on
	for _, p := range members {
		g.addParticipant(p)
	}

	g.round++
	g.letter = e.letters[e.random.Intn(len(e.letters))]
	g.answers = make(map[model.ParticipantID]model.Answers)
	g.submitted = nil
	g.verdicts = nil
	g.roundScores = make(map[model.ParticipantID]int)
	g.scoredBy = ""
	g.oracleErrors = nil
	g.status = model.WordGamePlayingRound

	e.logger.Info("round started",
		slog.String("session", string(session)),
		slog.Int("round", g.round),
		slog.String("letter", g.letter),
		slog.Int("categories", len(g.categories)),
	)
	return g.snapshot(session), nil
}

// SubmitAnswer stores a participant's answers for the current round.
// A later submission from the same participant replaces the earlier one.
func (e *Engine) SubmitAnswer(ctx context.Context, session model.SessionID, participant model.ParticipantID, answers model.Answers) (*model.WordGameState, error) {
	if len(answers) == 0 {
		return nil, model.ErrEmptyAnswers
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	g, ok := e.games[session]
	if !ok {
		return nil, model.ErrGameNotFound
	}
	if g.status != model.WordGamePlayingRound {
		return nil, model.ErrRoundNotActive
	}

	stored := make(model.Answers, len(answers))
	for category, text := range answers {
		stored[category] = text
	}
	if _, resubmit := g.answers[participant]; !resubmit {
		g.submitted = append(g.submitted, participant)
	}
	g.answers[participant] = stored
	g.addParticipant(participant)

	e.logger.Debug("answers submitted",
		slog.String("session", string(session)),
		slog.String("participant", string(participant)),
		slog.Int("round", g.round),
	)
	return g.snapshot(session), nil
}

// FinishRound scores the current round and adds the results to the cumulative scores.
// Only one caller can finish a given round; later callers get ErrRoundNotActive.
func (e *Engine) FinishRound(ctx context.Context, session model.SessionID) (*model.WordGameState, error) {
	e.mu.Lock()
	g, ok := e.games[session]
	if !ok {
		e.mu.Unlock()
		return nil, model.ErrGameNotFound
	}
	if g.status != model.WordGamePlayingRound {
		e.mu.Unlock()
		return nil, model.ErrRoundNotActive
	}
	round := g.round
	letter := g.letter
	categories := slices.Clone(g.categories)
	participants := slices.Clone(g.participants)
	answers := make(map[model.ParticipantID]model.Answers, len(g.answers))
	for p, a := range g.answers {
		answers[p] = a
	}
	e.mu.Unlock()

	// The oracle may be slow; score without holding the engine lock
	result := e.scorer.ScoreRound(ctx, letter, participants, answers, categories)

	e.mu.Lock()
	defer e.mu.Unlock()

	// Another caller finished (or reset) the round while it was being scored
	if g != e.games[session] || g.status != model.WordGamePlayingRound || g.round != round {
		return nil, model.ErrRoundNotActive
	}

	g.verdicts = result.Verdicts
	g.roundScores = result.RoundScores
	g.scoredBy = result.Source
	g.oracleErrors = result.Errors
	for p, score := range result.RoundScores {
		g.scores[p] += score
	}
	g.status = model.WordGameEnded

	e.logger.Info("round finished",
		slog.String("session", string(session)),
		slog.Int("round", round),
		slog.String("scored_by", string(result.Source)),
	)

	e.recordLocked(ctx, session, g)
	return g.snapshot(session), nil
}

// recordLocked appends the finished round to the history log. Failures are
// logged and do not affect the game.
func (e *Engine) recordLocked(ctx context.Context, session model.SessionID, g *game) {
	if e.history == nil {
		return
	}
	snap := g.snapshot(session)
	record := &model.RoundRecord{
		Session:     session,
		Round:       g.round,
		Letter:      g.letter,
		Categories:  snap.Categories,
		Answers:     snap.Answers,
		Verdicts:    snap.Verdicts,
		RoundScores: snap.RoundScores,
		ScoredBy:    g.scoredBy,
		FinishedAt:  e.clock.Now(),
	}
	if err := e.history.AppendRoundRecord(ctx, record); err != nil {
		e.logger.Error("failed to record round",
			slog.String("session", string(session)),
			slog.Int("round", g.round),
			slog.String("error", err.Error()),
		)
	}
}

// ResetGame reinitializes the session's game to waiting with all scores zeroed
func (e *Engine) ResetGame(ctx context.Context, session model.SessionID) (*model.WordGameState, error) {
	members := e.roster.Participants(ctx, session)

	e.mu.Lock()
	defer e.mu.Unlock()

	previous := e.games[session]
	g := newGame(members)
	if previous != nil {
		for p := range previous.scores {
			g.scores[p] = 0
		}
	}
	e.games[session] = g

	e.logger.Info("word game reset", slog.String("session", string(session)))
	return g.snapshot(session), nil
}

// State returns the session's game, creating a waiting game on first access
func (e *Engine) State(ctx context.Context, session model.SessionID) *model.WordGameState {
	members := e.roster.Participants(ctx, session)

	e.mu.Lock()
	defer e.mu.Unlock()

	g := e.getOrCreateLocked(session, members)
	return g.snapshot(session)
}

// Active reports whether the session's game has started and not been reset.
// A game between rounds is still active: it resumes with the next round.
func (e *Engine) Active(ctx context.Context, session model.SessionID) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	g, ok := e.games[session]
	return ok && g.status != model.WordGameWaiting
}

// getOrCreateLocked returns the session's game, resyncing participants while waiting
func (e *Engine) getOrCreateLocked(session model.SessionID, members []model.ParticipantID) *game {
	g, ok := e.games[session]
	if !ok {
		g = newGame(members)
		e.games[session] = g
		return g
	}
	if g.status == model.WordGameWaiting {
		g.participants = slices.Clone(members)
		for _, p := range members {
			if _, ok := g.scores[p]; !ok {
				g.scores[p] = 0
			}
		}
	}
	return g
}

func newGame(members []model.ParticipantID) *game {
	g := &game{
		status:       model.WordGameWaiting,
		participants: slices.Clone(members),
		answers:      make(map[model.ParticipantID]model.Answers),
		roundScores:  make(map[model.ParticipantID]int),
		scores:       make(map[model.ParticipantID]int, len(members)),
	}
	for _, p := range members {
		g.scores[p] = 0
	}
	return g
}

func (g *game) addParticipant(p model.ParticipantID) {
	if !slices.Contains(g.participants, p) {
		g.participants = append(g.participants, p)
	}
	if _, ok := g.scores[p]; !ok {
		g.scores[p] = 0
	}
}

func (g *game) snapshot(session model.SessionID) *model.WordGameState {
	state := &model.WordGameState{
		Session:      session,
		Status:       g.status,
		Round:        g.round,
		Categories:   slices.Clone(g.categories),
		Participants: slices.Clone(g.participants),
		Submitted:    slices.Clone(g.submitted),
		RoundScores:  copyScores(g.roundScores),
		Scores:       copyScores(g.scores),
		ScoredBy:     g.scoredBy,
		OracleErrors: slices.Clone(g.oracleErrors),
		Leader:       scoring.DetermineLeader(g.scores),
	}
	if state.Categories == nil {
		state.Categories = []string{}
	}
	if state.Participants == nil {
		state.Participants = []model.ParticipantID{}
	}
	if state.Submitted == nil {
		state.Submitted = []model.ParticipantID{}
	}
	if g.letter != "" {
		letter := g.letter
		state.Letter = &letter
	}

	// Answers stay private until the round is scored
	if g.status == model.WordGameEnded {
		state.Answers = make(map[model.ParticipantID]model.Answers, len(g.answers))
		for p, a := range g.answers {
			answers := make(model.Answers, len(a))
			for c, text := range a {
				answers[c] = text
			}
			state.Answers[p] = answers
		}
		state.Verdicts = make(map[model.ParticipantID]map[string]bool, len(g.verdicts))
		for p, v := range g.verdicts {
			verdicts := make(map[string]bool, len(v))
			for c, ok := range v {
				verdicts[c] = ok
			}
			state.Verdicts[p] = verdicts
		}
	}
	return state
}

func copyScores(in map[model.ParticipantID]int) map[model.ParticipantID]int {
	out := make(map[model.ParticipantID]int, len(in))
	for p, s := range in {
		out[p] = s
	}
	return out
}

// cleanCategories trims names and drops blanks and duplicates, keeping order
func cleanCategories(categories []string) []string {
	var out []string
	for _, c := range categories {
		c = strings.TrimSpace(c)
		if c == "" || slices.Contains(out, c) {
			continue
		}
		out = append(out, c)
	}
	return out
}
