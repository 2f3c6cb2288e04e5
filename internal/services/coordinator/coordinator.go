package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/partyroom/internal/command"
	"github.com/mcoot/partyroom/internal/dependencies/clock"
	"github.com/mcoot/partyroom/internal/model"
	"github.com/mcoot/partyroom/internal/scheduler"
	"github.com/mcoot/partyroom/internal/services/directory"
	"github.com/mcoot/partyroom/internal/services/identity"
	"github.com/mcoot/partyroom/internal/services/war"
	"github.com/mcoot/partyroom/internal/services/wordround"
)

// DefaultCountdown is how long a round stays open once its countdown starts
const DefaultCountdown = 10 * time.Second

// Publisher delivers events to everyone watching a session
type Publisher interface {
	Publish(event model.Event)
}

// RoomStore looks up room metadata and round history
type RoomStore interface {
	GetRoom(ctx context.Context, id model.SessionID) (*model.Room, error)
	ListRoundRecords(ctx context.Context, session model.SessionID) ([]*model.RoundRecord, error)
}

// Config holds coordinator settings
type Config struct {
	Countdown time.Duration
}

// Coordinator serializes every change to a session and publishes the
// resulting snapshot. Each command runs to completion under its session's
// lock, and its event is published before the lock is released, so every
// watcher sees changes in the order they happened.
type Coordinator struct {
	directory directory.DirectoryInterface
	binder    *identity.Binder
	war       war.EngineInterface
	word      wordround.EngineInterface
	rooms     RoomStore
	scheduler *scheduler.Scheduler
	publisher Publisher
	clock     clock.Clock
	cfg       Config
	logger    *slog.Logger

	locksMu sync.Mutex
	locks   map[model.SessionID]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// New creates a coordinator
func New(
	dir directory.DirectoryInterface,
	binder *identity.Binder,
	warEngine war.EngineInterface,
	wordEngine wordround.EngineInterface,
	rooms RoomStore,
	sched *scheduler.Scheduler,
	publisher Publisher,
	clk clock.Clock,
	cfg Config,
	logger *slog.Logger,
) *Coordinator {
	if cfg.Countdown <= 0 {
		cfg.Countdown = DefaultCountdown
	}
	return &Coordinator{
		directory: dir,
		binder:    binder,
		war:       warEngine,
		word:      wordEngine,
		rooms:     rooms,
		scheduler: sched,
		publisher: publisher,
		clock:     clk,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "coordinator")),
		locks:     make(map[model.SessionID]*sessionLock),
	}
}

// lock acquires the session's lock and returns its release func
func (c *Coordinator) lock(session model.SessionID) func() {
	c.locksMu.Lock()
	l, ok := c.locks[session]
	if !ok {
		l = &sessionLock{}
		c.locks[session] = l
	}
	l.refs++
	c.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		c.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(c.locks, session)
		}
		c.locksMu.Unlock()
	}
}

// Connect binds a transport connection to the participant its credential names
func (c *Coordinator) Connect(ctx context.Context, conn identity.ConnectionID, credential string) (model.ParticipantID, error) {
	return c.binder.Bind(ctx, conn, credential)
}

// Disconnect releases a connection. When it was the participant's last
// connection they are removed from every session they had joined.
func (c *Coordinator) Disconnect(ctx context.Context, conn identity.ConnectionID) {
	participant, last := c.binder.Unbind(conn)
	if participant == "" || !last {
		return
	}

	// Hold every affected session's lock across the purge so no command in
	// those sessions sees membership change partway through. Locks are taken
	// in ID order; no other path holds more than one session lock.
	locked := make(map[model.SessionID]func())
	for _, session := range c.directory.SessionsOf(ctx, participant) {
		locked[session] = c.lock(session)
	}

	var late []model.SessionID
	for _, session := range c.directory.Purge(ctx, participant) {
		if _, ok := locked[session]; !ok {
			late = append(late, session)
			continue
		}
		c.publishLocked(ctx, session, model.EventRoomUpdated, participant, c.snapshotLocked(ctx, session))
	}
	for _, unlock := range locked {
		unlock()
	}

	// Sessions joined after the lookup are announced one lock at a time
	for _, session := range late {
		unlock := c.lock(session)
		c.publishLocked(ctx, session, model.EventRoomUpdated, participant, c.snapshotLocked(ctx, session))
		unlock()
	}
	c.logger.Info("participant disconnected", slog.String("participant", string(participant)))
}

// Join adds participant to session. Rooms with a stored record are capped at
// their MaxPlayers; sessions without one are uncapped.
func (c *Coordinator) Join(ctx context.Context, session model.SessionID, participant model.ParticipantID) (*model.Snapshot, error) {
	unlock := c.lock(session)
	defer unlock()

	if !c.directory.IsMember(ctx, session, participant) {
		if err := c.checkCapacity(ctx, session); err != nil {
			return nil, err
		}
		c.directory.Join(ctx, session, participant)
		snapshot := c.snapshotLocked(ctx, session)
		c.publishLocked(ctx, session, model.EventRoomUpdated, participant, snapshot)
		return snapshot, nil
	}
	return c.snapshotLocked(ctx, session), nil
}

func (c *Coordinator) checkCapacity(ctx context.Context, session model.SessionID) error {
	room, err := c.rooms.GetRoom(ctx, session)
	if errors.Is(err, model.ErrRoomNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get room: %w", err)
	}
	if len(c.directory.Participants(ctx, session)) >= room.MaxPlayers {
		return model.ErrRoomFull
	}
	return nil
}

// Leave removes participant from session. Leaving twice is a no-op.
func (c *Coordinator) Leave(ctx context.Context, session model.SessionID, participant model.ParticipantID) (*model.Snapshot, error) {
	unlock := c.lock(session)
	defer unlock()

	if c.directory.IsMember(ctx, session, participant) {
		c.directory.Leave(ctx, session, participant)
		snapshot := c.snapshotLocked(ctx, session)
		c.publishLocked(ctx, session, model.EventRoomUpdated, participant, snapshot)
		return snapshot, nil
	}
	return c.snapshotLocked(ctx, session), nil
}

// Participants returns the session's members in join order
func (c *Coordinator) Participants(ctx context.Context, session model.SessionID) []model.ParticipantID {
	return c.directory.Participants(ctx, session)
}

// Snapshot returns the current state of session
func (c *Coordinator) Snapshot(ctx context.Context, session model.SessionID) *model.Snapshot {
	unlock := c.lock(session)
	defer unlock()
	return c.snapshotLocked(ctx, session)
}

// Watch runs subscribe under the session lock and returns the snapshot taken
// at that point. Every event published afterwards is newer than the snapshot.
func (c *Coordinator) Watch(ctx context.Context, session model.SessionID, participant model.ParticipantID, subscribe func()) (*model.Snapshot, error) {
	unlock := c.lock(session)
	defer unlock()

	if !c.directory.IsMember(ctx, session, participant) {
		return nil, model.ErrNotMember
	}
	subscribe()
	return c.snapshotLocked(ctx, session), nil
}

// History returns the scored rounds of session's word games, oldest first
func (c *Coordinator) History(ctx context.Context, session model.SessionID) ([]*model.RoundRecord, error) {
	return c.rooms.ListRoundRecords(ctx, session)
}

// Execute runs cmd on behalf of participant and returns the resulting snapshot.
// State-changing commands publish a game.updated event.
func (c *Coordinator) Execute(ctx context.Context, session model.SessionID, participant model.ParticipantID, cmd command.Command) (*model.Snapshot, error) {
	unlock := c.lock(session)
	defer unlock()

	if !c.directory.IsMember(ctx, session, participant) {
		return nil, model.ErrNotMember
	}

	outcome, err := c.executeLocked(ctx, session, participant, cmd)
	if err != nil {
		c.logger.Debug("command rejected",
			slog.String("session", string(session)),
			slog.String("participant", string(participant)),
			slog.String("game_type", string(cmd.GameType())),
			slog.String("action", cmd.Action()),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	snapshot := c.snapshotLocked(ctx, session)
	snapshot.GameType = cmd.GameType()
	snapshot.Action = cmd.Action()
	snapshot.Outcome = outcome

	if command.Mutates(cmd) {
		c.publishLocked(ctx, session, model.EventGameUpdated, participant, snapshot)
	}
	return snapshot, nil
}

func (c *Coordinator) executeLocked(ctx context.Context, session model.SessionID, participant model.ParticipantID, cmd command.Command) (*model.Outcome, error) {
	switch cmd := cmd.(type) {
	case command.WarStart:
		if c.word.Active(ctx, session) {
			return nil, model.ErrOtherGameActive
		}
		players := cmd.Players
		if len(players) == 0 {
			players = c.directory.Participants(ctx, session)
		}
		_, err := c.war.Start(ctx, session, players)
		return nil, err

	case command.WarPlay:
		_, outcome, err := c.war.PlayTurn(ctx, session, participant)
		return outcome, err

	case command.WarState:
		_, err := c.war.State(ctx, session)
		return nil, err

	case command.WarEnd:
		return nil, c.war.End(ctx, session)

	case command.WordStartGame:
		if c.war.Active(ctx, session) {
			return nil, model.ErrOtherGameActive
		}
		_, err := c.word.StartGame(ctx, session)
		return nil, err

	case command.WordStartRound:
		if c.war.Active(ctx, session) {
			return nil, model.ErrOtherGameActive
		}
		_, err := c.word.StartRound(ctx, session, cmd.Categories)
		return nil, err

	case command.WordSaveAnswers:
		if c.war.Active(ctx, session) {
			return nil, model.ErrOtherGameActive
		}
		state, err := c.word.SubmitAnswer(ctx, session, participant, cmd.Answers)
		if err != nil {
			return nil, err
		}
		if c.allSubmitted(ctx, session, state) {
			c.scheduler.Cancel(session)
			_, err := c.word.FinishRound(ctx, session)
			return nil, err
		}
		// The first submission of a round starts the countdown
		c.startCountdownLocked(ctx, session, state.Round, participant)
		return nil, nil

	case command.WordFinishRound:
		c.scheduler.Cancel(session)
		_, err := c.word.FinishRound(ctx, session)
		return nil, err

	case command.WordStartCountdown:
		if c.war.Active(ctx, session) {
			return nil, model.ErrOtherGameActive
		}
		state := c.word.State(ctx, session)
		if state.Status != model.WordGamePlayingRound {
			return nil, model.ErrRoundNotActive
		}
		c.startCountdownLocked(ctx, session, state.Round, participant)
		return nil, nil

	case command.WordResetGame:
		c.scheduler.Cancel(session)
		_, err := c.word.ResetGame(ctx, session)
		return nil, err

	case command.WordState:
		c.word.State(ctx, session)
		return nil, nil
	}
	return nil, fmt.Errorf("%w: %s/%s", model.ErrUnknownCommand, cmd.GameType(), cmd.Action())
}

// allSubmitted reports whether every current member has answered this round
func (c *Coordinator) allSubmitted(ctx context.Context, session model.SessionID, state *model.WordGameState) bool {
	submitted := make(map[model.ParticipantID]bool, len(state.Submitted))
	for _, p := range state.Submitted {
		submitted[p] = true
	}
	members := c.directory.Participants(ctx, session)
	if len(members) == 0 {
		return false
	}
	for _, p := range members {
		if !submitted[p] {
			return false
		}
	}
	return true
}

// startCountdownLocked schedules the round to finish automatically. Starting a
// countdown while one is pending changes nothing.
func (c *Coordinator) startCountdownLocked(ctx context.Context, session model.SessionID, round int, actor model.ParticipantID) {
	_, created := c.scheduler.Schedule(session, c.cfg.Countdown, func() {
		c.countdownExpired(session, round)
	})
	if !created {
		return
	}

	c.logger.Info("countdown started",
		slog.String("session", string(session)),
		slog.Int("round", round),
		slog.Duration("countdown", c.cfg.Countdown),
	)
	snapshot := c.snapshotLocked(ctx, session)
	snapshot.GameType = model.GameTypeEratzIr
	snapshot.Action = command.ActionWordStartCountdown
	c.publishLocked(ctx, session, model.EventCountdownStarted, actor, snapshot)
}

// countdownExpired finishes the round the countdown was started for. If that
// round was already finished or reset, it does nothing.
func (c *Coordinator) countdownExpired(session model.SessionID, round int) {
	ctx := context.Background()
	unlock := c.lock(session)
	defer unlock()

	state := c.word.State(ctx, session)
	if state.Status != model.WordGamePlayingRound || state.Round != round {
		c.logger.Debug("countdown expired for a round that is no longer open",
			slog.String("session", string(session)),
			slog.Int("round", round),
		)
		return
	}

	if _, err := c.word.FinishRound(ctx, session); err != nil {
		c.logger.Warn("countdown could not finish round",
			slog.String("session", string(session)),
			slog.Int("round", round),
			slog.String("error", err.Error()),
		)
		return
	}

	snapshot := c.snapshotLocked(ctx, session)
	snapshot.GameType = model.GameTypeEratzIr
	snapshot.Action = command.ActionWordFinishRound
	c.publishLocked(ctx, session, model.EventGameUpdated, "", snapshot)
}

// snapshotLocked assembles the full session state
func (c *Coordinator) snapshotLocked(ctx context.Context, session model.SessionID) *model.Snapshot {
	snapshot := &model.Snapshot{
		Session:      session,
		Participants: c.directory.Participants(ctx, session),
	}
	if state, err := c.war.State(ctx, session); err == nil {
		snapshot.War = state
	}
	snapshot.Word = c.word.State(ctx, session)
	if deadline, ok := c.scheduler.Deadline(session); ok && snapshot.Word.Status == model.WordGamePlayingRound {
		snapshot.Word.CountdownEndsAt = &deadline
	}
	return snapshot
}

func (c *Coordinator) publishLocked(ctx context.Context, session model.SessionID, eventType model.EventType, actor model.ParticipantID, snapshot *model.Snapshot) {
	c.publisher.Publish(model.Event{
		Type:      eventType,
		Timestamp: c.clock.Now(),
		Session:   session,
		Actor:     actor,
		Snapshot:  *snapshot,
	})
}

// Stop cancels pending countdowns
func (c *Coordinator) Stop() {
	c.scheduler.Stop()
}
