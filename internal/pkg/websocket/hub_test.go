package websocket

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(zerolog.Nop())
	go hub.Run()
	t.Cleanup(hub.Close)
	return hub
}

// newTestClient builds a client without a websocket connection; hub tests read
// frames straight off the send channel.
func newTestClient(hub *Hub, communityID, userID int64, buffer int) *Client {
	return &Client{
		hub:         hub,
		send:        make(chan []byte, buffer),
		userID:      userID,
		communityID: communityID,
		addr:        "test",
		logger:      zerolog.Nop(),
	}
}

func waitForSubscribers(t *testing.T, hub *Hub, communityID int64, want int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return hub.SubscriberCount(communityID) == want
	}, time.Second, 5*time.Millisecond)
}

func receiveEvent(t *testing.T, client *Client) *Event {
	t.Helper()
	select {
	case data, ok := <-client.send:
		require.True(t, ok, "send channel closed")
		var event Event
		require.NoError(t, json.Unmarshal(data, &event))
		return &event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestHub_DeliversInPublicationOrder(t *testing.T) {
	hub := newTestHub(t)

	client := newTestClient(hub, 1, 10, sendBufferSize)
	hub.Register(client)
	waitForSubscribers(t, hub, 1, 1)

	const n = 20
	for i := 0; i < n; i++ {
		hub.Publish(NewLoanSubmittedEvent(1, fmt.Sprintf("loan-%d", i)))
	}

	for i := 0; i < n; i++ {
		event := receiveEvent(t, client)
		assert.Equal(t, EventLoanSubmitted, event.Type)
		assert.Equal(t, fmt.Sprintf("loan-%d", i), event.LoanID)
	}
}

func TestHub_IsolatesCommunities(t *testing.T) {
	hub := newTestHub(t)

	subscriberA := newTestClient(hub, 1, 10, sendBufferSize)
	subscriberB := newTestClient(hub, 2, 11, sendBufferSize)
	hub.Register(subscriberA)
	hub.Register(subscriberB)
	waitForSubscribers(t, hub, 1, 1)
	waitForSubscribers(t, hub, 2, 1)

	hub.Publish(NewMemberJoinedEvent(1, 99, 4))

	event := receiveEvent(t, subscriberA)
	assert.Equal(t, EventMemberJoined, event.Type)
	assert.Equal(t, int64(1), event.CommunityID)
	assert.Equal(t, 4, event.MemberCount)

	select {
	case data := <-subscriberB.send:
		t.Fatalf("subscriber of another community received event: %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_FanOutToMultipleSubscribers(t *testing.T) {
	hub := newTestHub(t)

	clients := make([]*Client, 3)
	for i := range clients {
		clients[i] = newTestClient(hub, 7, int64(i), sendBufferSize)
		hub.Register(clients[i])
	}
	waitForSubscribers(t, hub, 7, 3)

	hub.Publish(NewCommunityArchivedEvent(7))

	for _, client := range clients {
		event := receiveEvent(t, client)
		assert.Equal(t, EventCommunityArchived, event.Type)
	}
}

func TestHub_UnregisterIsIdempotent(t *testing.T) {
	hub := newTestHub(t)

	client := newTestClient(hub, 1, 10, sendBufferSize)
	hub.Register(client)
	waitForSubscribers(t, hub, 1, 1)

	hub.Unregister(client)
	waitForSubscribers(t, hub, 1, 0)

	// A second unregister for the same client must not panic or close the
	// channel twice.
	hub.Unregister(client)
	waitForSubscribers(t, hub, 1, 0)
}

func TestHub_DropsStalledSubscriber(t *testing.T) {
	hub := newTestHub(t)

	stalled := newTestClient(hub, 1, 10, 1)
	healthy := newTestClient(hub, 1, 11, sendBufferSize)
	hub.Register(stalled)
	hub.Register(healthy)
	waitForSubscribers(t, hub, 1, 2)

	// First event fills the stalled client's buffer, the second overflows it.
	hub.Publish(NewMemberJoinedEvent(1, 20, 2))
	hub.Publish(NewMemberJoinedEvent(1, 21, 3))

	waitForSubscribers(t, hub, 1, 1)

	event := receiveEvent(t, healthy)
	assert.Equal(t, int64(20), event.UserID)
	event = receiveEvent(t, healthy)
	assert.Equal(t, int64(21), event.UserID)
}

func TestHub_CloseDropsSubscribersAndDropsEvents(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	go hub.Run()

	client := newTestClient(hub, 1, 10, sendBufferSize)
	hub.Register(client)
	waitForSubscribers(t, hub, 1, 1)

	hub.Close()

	// The send channel closes once the hub drops its subscriptions.
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-client.send:
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)

	// Publishing after close must not block.
	done := make(chan struct{})
	go func() {
		hub.Publish(NewCommunityArchivedEvent(1))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked after Close")
	}

	// Close twice is fine.
	hub.Close()
}
