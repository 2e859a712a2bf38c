package realtime

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(identity string) *Client {
	return &Client{
		identity: identity,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		send:     make(chan []byte, sendQueueSize),
		done:     make(chan struct{}),
	}
}

// drain returns the frames queued on the client without blocking.
func drain(c *Client) [][]byte {
	var frames [][]byte
	for {
		select {
		case f := <-c.send:
			frames = append(frames, f)
		default:
			return frames
		}
	}
}

func TestPresenceTracker_LastConnectWins(t *testing.T) {
	tracker := NewPresenceTracker()
	first := testClient("alice")
	second := testClient("alice")

	assert.Nil(t, tracker.Register("alice", first))
	assert.True(t, tracker.IsOnline("alice"))

	// The newer connection supersedes the older one.
	superseded := tracker.Register("alice", second)
	assert.Same(t, first, superseded)
	assert.Same(t, second, tracker.Get("alice"))

	// Re-registering the bound connection supersedes nothing.
	assert.Nil(t, tracker.Register("alice", second))
}

func TestPresenceTracker_StaleUnregisterKeepsFreshConnection(t *testing.T) {
	tracker := NewPresenceTracker()
	first := testClient("alice")
	second := testClient("alice")

	tracker.Register("alice", first)
	tracker.Register("alice", second)

	// The superseded connection going away does not take alice offline.
	assert.False(t, tracker.Unregister("alice", first))
	assert.True(t, tracker.IsOnline("alice"))

	assert.True(t, tracker.Unregister("alice", second))
	assert.False(t, tracker.IsOnline("alice"))
}

func TestPresenceTracker_Online(t *testing.T) {
	tracker := NewPresenceTracker()
	tracker.Register("alice", testClient("alice"))
	tracker.Register("bob", testClient("bob"))

	assert.ElementsMatch(t, []string{"alice", "bob"}, tracker.Online())
}

func TestHub_RoomMembership(t *testing.T) {
	hub := NewHub(NewPresenceTracker())
	alice := testClient("alice")
	bob := testClient("bob")

	hub.Join("conv-1", alice)
	hub.Join("conv-1", bob)
	hub.Join("conv-2", alice)

	assert.True(t, hub.InRoom("conv-1", alice))
	assert.True(t, hub.InRoom("conv-1", bob))
	assert.False(t, hub.InRoom("conv-2", bob))

	hub.LeaveAll(alice)
	assert.False(t, hub.InRoom("conv-1", alice))
	assert.False(t, hub.InRoom("conv-2", alice))
	assert.True(t, hub.InRoom("conv-1", bob))

	hub.Leave("conv-1", bob)
	assert.False(t, hub.InRoom("conv-1", bob))
}

func TestHub_EmitToRoomExcludesSender(t *testing.T) {
	hub := NewHub(NewPresenceTracker())
	alice := testClient("alice")
	bob := testClient("bob")
	hub.Join("conv-1", alice)
	hub.Join("conv-1", bob)

	hub.EmitToRoom("conv-1", []byte("typing"), alice)

	assert.Empty(t, drain(alice))
	require.Len(t, drain(bob), 1)
}

func TestHub_EmitToConversationReachesEachClientOnce(t *testing.T) {
	presence := NewPresenceTracker()
	hub := NewHub(presence)

	// Alice is online and in the room; bob is online but elsewhere.
	alice := testClient("alice")
	bob := testClient("bob")
	presence.Register("alice", alice)
	presence.Register("bob", bob)
	hub.Join("conv-1", alice)

	hub.EmitToConversation("conv-1", []string{"alice", "bob"}, []byte("new message"))

	// Alice is both a room member and an online participant; one frame only.
	assert.Len(t, drain(alice), 1)
	assert.Len(t, drain(bob), 1)
}

func TestHub_EmitToIdentity(t *testing.T) {
	presence := NewPresenceTracker()
	hub := NewHub(presence)
	alice := testClient("alice")
	presence.Register("alice", alice)

	hub.EmitToIdentity("alice", []byte("hello"))
	hub.EmitToIdentity("offline", []byte("hello"))

	assert.Len(t, drain(alice), 1)
}

func TestMarshalEvent(t *testing.T) {
	frame := marshalEvent(EventUserOnline, PresencePayload{Identity: "alice"})

	var env Envelope
	require.NoError(t, json.Unmarshal(frame, &env))
	assert.Equal(t, EventUserOnline, env.Event)

	var payload PresencePayload
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Equal(t, "alice", payload.Identity)
}
