package push

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/partyroom/internal/model"
	"github.com/mcoot/partyroom/internal/testutil"
)

func receive(t *testing.T, client *Client) Message {
	t.Helper()
	select {
	case msg, ok := <-client.Messages():
		require.True(t, ok, "client channel closed")
		return msg
	case <-time.After(time.Second):
		t.Fatal("client did not receive message")
		return Message{}
	}
}

func TestFormatSSEMessage(t *testing.T) {
	tests := []struct {
		name      string
		eventName string
		data      string
		expected  string
	}{
		{
			name:      "single line data",
			eventName: "game.updated",
			data:      `{"round":1}`,
			expected:  "event: game.updated\ndata: {\"round\":1}\n\n",
		},
		{
			name:      "multi-line data",
			eventName: "room.updated",
			data:      "{\n  \"a\": 1\n}",
			expected:  "event: room.updated\ndata: {\ndata:   \"a\": 1\ndata: }\n\n",
		},
		{
			name:      "empty data",
			eventName: "ping",
			data:      "",
			expected:  "event: ping\ndata: \n\n",
		},
		{
			name:      "data with carriage returns",
			eventName: "test",
			data:      "line1\r\nline2",
			expected:  "event: test\ndata: line1\ndata: line2\n\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(formatSSEMessage(tt.eventName, tt.data)))
		})
	}
}

func TestHub_RegisterAndBroadcast(t *testing.T) {
	hub := NewHub("r1", testutil.NopLogger())
	go hub.Run()
	defer hub.Close()

	client := NewClient(hub, "p1")
	hub.Register(client)
	assert.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	hub.Broadcast(Message{Event: "game.updated", Data: []byte("one")})
	assert.Equal(t, "one", string(receive(t, client).Data))
}

func TestHub_DeliversInOrder(t *testing.T) {
	hub := NewHub("r1", testutil.NopLogger())
	go hub.Run()
	defer hub.Close()

	client := NewClient(hub, "p1")
	hub.Register(client)

	for _, data := range []string{"1", "2", "3", "4"} {
		hub.Broadcast(Message{Event: "game.updated", Data: []byte(data)})
	}
	for _, want := range []string{"1", "2", "3", "4"} {
		assert.Equal(t, want, string(receive(t, client).Data))
	}
}

func TestHub_Unregister(t *testing.T) {
	hub := NewHub("r1", testutil.NopLogger())
	go hub.Run()
	defer hub.Close()

	client := NewClient(hub, "p1")
	hub.Register(client)
	hub.Unregister(client)

	// Unregister is processed by the event loop; the closed channel is the signal
	select {
	case _, ok := <-client.Messages():
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("client channel was not closed")
	}
	assert.Equal(t, 0, hub.ClientCount())
}

func TestHub_CloseReleasesClients(t *testing.T) {
	hub := NewHub("r1", testutil.NopLogger())
	go hub.Run()

	client := NewClient(hub, "p1")
	hub.Register(client)
	hub.Close()

	select {
	case _, ok := <-client.Messages():
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("client channel was not closed")
	}

	// Calls on a closed hub must not block
	late := NewClient(hub, "p2")
	hub.Register(late)
	hub.Unregister(late)
	hub.Broadcast(Message{Event: "x"})
	hub.Close()
}

func TestHubManager_PublishEncodesEvent(t *testing.T) {
	manager := NewHubManager(testutil.NopLogger())
	defer manager.Close()

	// No hub yet: nothing to deliver to
	manager.Publish(model.Event{Type: model.EventRoomUpdated, Session: "r1"})
	assert.Nil(t, manager.GetHub("r1"))

	hub := manager.GetOrCreateHub("r1")
	client := NewClient(hub, "p1")
	hub.Register(client)

	manager.Publish(model.Event{
		Type:     model.EventRoomUpdated,
		Session:  "r1",
		Snapshot: model.Snapshot{Session: "r1", Participants: []model.ParticipantID{"p1"}},
	})

	msg := receive(t, client)
	assert.Equal(t, "room.updated", msg.Event)
	var event model.Event
	require.NoError(t, json.Unmarshal(msg.Data, &event))
	assert.Equal(t, []model.ParticipantID{"p1"}, event.Snapshot.Participants)
}

func TestHubManager_GetOrCreateHub(t *testing.T) {
	manager := NewHubManager(testutil.NopLogger())
	defer manager.Close()

	hub1 := manager.GetOrCreateHub("r1")
	assert.Same(t, hub1, manager.GetOrCreateHub("r1"))
	assert.NotSame(t, hub1, manager.GetOrCreateHub("r2"))
	assert.Same(t, hub1, manager.GetHub("r1"))
	assert.Nil(t, manager.GetHub("nope"))
}

func TestHubManager_CleanupEmptyHubs(t *testing.T) {
	manager := NewHubManager(testutil.NopLogger())
	defer manager.Close()

	empty := manager.GetOrCreateHub("empty")
	active := manager.GetOrCreateHub("active")
	active.Register(NewClient(active, "p1"))
	require.Eventually(t, func() bool { return active.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	// First sweep only marks the empty hub
	manager.CleanupEmptyHubs()
	assert.Same(t, empty, manager.GetHub("empty"))

	manager.CleanupEmptyHubs()
	assert.Nil(t, manager.GetHub("empty"))
	assert.Same(t, active, manager.GetHub("active"))

	// A closed hub is replaced on next use
	assert.NotSame(t, empty, manager.GetOrCreateHub("empty"))
}

func TestHubManager_CleanupSparesHubFetchedBetweenSweeps(t *testing.T) {
	manager := NewHubManager(testutil.NopLogger())
	defer manager.Close()

	hub := manager.GetOrCreateHub("r1")
	manager.CleanupEmptyHubs()

	// A watcher fetching the hub clears the mark
	assert.Same(t, hub, manager.GetOrCreateHub("r1"))
	manager.CleanupEmptyHubs()
	assert.Same(t, hub, manager.GetHub("r1"))
}

func TestHubManager_StartCleanup(t *testing.T) {
	manager := NewHubManager(testutil.NopLogger())

	manager.GetOrCreateHub("r1")
	manager.StartCleanup(5 * time.Millisecond)

	require.Eventually(t, func() bool { return manager.GetHub("r1") == nil }, time.Second, 5*time.Millisecond)

	manager.Close()
	// Close is idempotent once the loop has stopped
	manager.Close()
}
