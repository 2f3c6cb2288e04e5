package factory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/partyroom/internal/command"
	"github.com/mcoot/partyroom/internal/model"
	"github.com/mcoot/partyroom/internal/push"
	"github.com/mcoot/partyroom/internal/services/coordinator"
	"github.com/mcoot/partyroom/internal/services/identity"
	"github.com/mcoot/partyroom/internal/services/oracle"
	"github.com/mcoot/partyroom/internal/services/rooms"
)

type IntegrationSuite struct {
	suite.Suite
	app *TestApp
	ctx context.Context
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationSuite))
}

func (s *IntegrationSuite) SetupTest() {
	s.app = NewTestApp()
	s.ctx = context.Background()
}

func (s *IntegrationSuite) TearDownTest() {
	s.Require().NoError(s.app.Close())
}

// guest creates a guest account and returns its id and token
func (s *IntegrationSuite) guest(name string) (model.ParticipantID, string) {
	session, err := s.app.AuthService.CreateGuestPlayer(s.ctx, name)
	s.Require().NoError(err)
	return session.PlayerID, session.Token
}

func (s *IntegrationSuite) join(session model.SessionID, participants ...model.ParticipantID) {
	for _, p := range participants {
		_, err := s.app.Coordinator.Join(s.ctx, session, p)
		s.Require().NoError(err)
	}
}

func (s *IntegrationSuite) exec(session model.SessionID, participant model.ParticipantID, cmd command.Command) *model.Snapshot {
	snapshot, err := s.app.Coordinator.Execute(s.ctx, session, participant, cmd)
	s.Require().NoError(err)
	return snapshot
}

// Test: A war game from room creation through several plays
func (s *IntegrationSuite) TestWarGameFlow() {
	alice, _ := s.guest("Alice")
	bob, _ := s.guest("Bob")

	room, err := s.app.RoomService.CreateRoom(s.ctx, alice, rooms.CreateParams{GameType: model.GameTypeWar})
	s.Require().NoError(err)
	s.Equal(model.SessionID("AAAAAA"), room.ID)

	s.join(room.ID, alice, bob)

	snapshot := s.exec(room.ID, alice, command.WarStart{})
	s.Require().NotNil(snapshot.War)
	s.Equal(model.CardGameOngoing, snapshot.War.Status)
	s.Equal(26, snapshot.War.HandCounts[alice])
	s.Equal(26, snapshot.War.HandCounts[bob])

	for i := 0; i < 6; i++ {
		snapshot = s.exec(room.ID, alice, command.WarPlay{})
		snapshot = s.exec(room.ID, bob, command.WarPlay{})

		total := len(snapshot.War.Pile)
		for _, n := range snapshot.War.HandCounts {
			total += n
		}
		s.Equal(model.DeckSize, total, "cards must be conserved after round %d", i+1)
	}

	snapshot = s.exec(room.ID, alice, command.WarEnd{})
	s.Nil(snapshot.War)
}

// Test: A third member cannot join a two-player room
func (s *IntegrationSuite) TestRoomCapacityEnforcedOnJoin() {
	alice, _ := s.guest("Alice")
	bob, _ := s.guest("Bob")
	carol, _ := s.guest("Carol")

	room, err := s.app.RoomService.CreateRoom(s.ctx, alice, rooms.CreateParams{ID: "table", GameType: model.GameTypeWar})
	s.Require().NoError(err)

	s.join(room.ID, alice, bob)

	_, err = s.app.Coordinator.Join(s.ctx, room.ID, carol)
	s.ErrorIs(err, model.ErrRoomFull)
}

// Test: A word round judged by the oracle, then recorded in history
func (s *IntegrationSuite) TestWordRoundWithOracle() {
	alice, _ := s.guest("Alice")
	bob, _ := s.guest("Bob")

	s.join("r1", alice, bob)

	s.exec("r1", alice, command.WordStartGame{})
	snapshot := s.exec("r1", alice, command.WordStartRound{Categories: []string{"עיר", "ארץ"}})
	s.Equal("א", *snapshot.Word.Letter)

	s.app.Oracle.SetVerdict(&oracle.Verdict{
		Valid: true,
		Details: map[model.ParticipantID]map[string]bool{
			alice: {"עיר": true, "ארץ": true},
			bob:   {"עיר": true, "ארץ": false},
		},
	})

	s.exec("r1", alice, command.WordSaveAnswers{Answers: model.Answers{"עיר": "אשדוד", "ארץ": "איטליה"}})
	snapshot = s.exec("r1", bob, command.WordSaveAnswers{Answers: model.Answers{"עיר": "אילת", "ארץ": "בלגיה"}})

	// Everyone submitted, so the round finished without waiting for the countdown
	s.Equal(model.WordGameEnded, snapshot.Word.Status)
	s.Equal(model.ScoredByOracle, snapshot.Word.ScoredBy)
	s.Equal(2, snapshot.Word.Scores[alice])
	s.Equal(1, snapshot.Word.Scores[bob])
	s.Equal(alice, snapshot.Word.Leader)
	s.Equal(1, s.app.Oracle.Calls())
	s.Equal(0, s.app.MockClock.PendingTimers())

	history, err := s.app.Coordinator.History(s.ctx, "r1")
	s.Require().NoError(err)
	s.Require().Len(history, 1)
	s.Equal("א", history[0].Letter)
	s.Equal(model.ScoredByOracle, history[0].ScoredBy)
}

// Test: The countdown closes a round that not everyone answered
func (s *IntegrationSuite) TestCountdownClosesRound() {
	alice, _ := s.guest("Alice")
	bob, _ := s.guest("Bob")
	s.join("r1", alice, bob)

	s.exec("r1", alice, command.WordStartGame{})
	s.exec("r1", alice, command.WordStartRound{Categories: []string{"עיר"}})
	snapshot := s.exec("r1", alice, command.WordSaveAnswers{Answers: model.Answers{"עיר": "אשדוד"}})
	s.Require().NotNil(snapshot.Word.CountdownEndsAt)

	s.app.MockClock.Advance(coordinator.DefaultCountdown)

	snapshot = s.app.Coordinator.Snapshot(s.ctx, "r1")
	s.Equal(model.WordGameEnded, snapshot.Word.Status)
	s.Equal(model.ScoredByHeuristic, snapshot.Word.ScoredBy)
	s.Equal(1, snapshot.Word.Scores[alice])
	s.Equal(0, snapshot.Word.Scores[bob])
}

// Test: Losing the last connection removes the participant from sessions
func (s *IntegrationSuite) TestDisconnectLeavesSessions() {
	alice, token := s.guest("Alice")
	bob, _ := s.guest("Bob")

	participant, err := s.app.Coordinator.Connect(s.ctx, identity.ConnectionID("c1"), token)
	s.Require().NoError(err)
	s.Equal(alice, participant)

	s.join("r1", alice, bob)

	s.app.Coordinator.Disconnect(s.ctx, "c1")

	s.Equal([]model.ParticipantID{bob}, s.app.Coordinator.Participants(s.ctx, "r1"))
}

// Test: Watchers receive every event after their snapshot, in order
func (s *IntegrationSuite) TestWatcherReceivesEvents() {
	alice, _ := s.guest("Alice")
	bob, _ := s.guest("Bob")
	s.join("r1", alice)

	hub := s.app.HubManager.GetOrCreateHub("r1")
	client := push.NewClient(hub, alice)
	snapshot, err := s.app.Coordinator.Watch(s.ctx, "r1", alice, func() { hub.Register(client) })
	s.Require().NoError(err)
	s.Equal([]model.ParticipantID{alice}, snapshot.Participants)

	s.join("r1", bob)
	s.exec("r1", bob, command.WordStartGame{})

	var events []string
	timeout := time.After(time.Second)
	for len(events) < 2 {
		select {
		case msg := <-client.Messages():
			events = append(events, msg.Event)
		case <-timeout:
			s.FailNow("timed out waiting for events", "got %v", events)
		}
	}
	s.Equal([]string{string(model.EventRoomUpdated), string(model.EventGameUpdated)}, events)
}

func TestAppClosesUnwatchedHubs(t *testing.T) {
	app, err := New(Config{HubCleanupInterval: 5 * time.Millisecond})
	require.NoError(t, err)
	defer func() { require.NoError(t, app.Close()) }()

	hub := app.HubManager.GetOrCreateHub("r1")
	watched := app.HubManager.GetOrCreateHub("r2")
	watched.Register(push.NewClient(watched, "alice"))

	require.Eventually(t, func() bool { return app.HubManager.GetHub("r1") == nil }, time.Second, 5*time.Millisecond)
	// The removed hub is closed, so a late client is released at once
	late := push.NewClient(hub, "bob")
	hub.Register(late)
	_, open := <-late.Messages()
	require.False(t, open)
	require.Same(t, watched, app.HubManager.GetHub("r2"))
}
