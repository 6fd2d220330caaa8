package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"whiteboard/internal/session"
)

// setupTestRedis creates a miniredis instance and a redis client for testing
func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { client.Close() })

	return mr, client
}

func subscribe(t *testing.T, rdb *redis.Client, channel string) <-chan *redis.Message {
	t.Helper()
	ctx := context.Background()
	sub := rdb.Subscribe(ctx, channel)
	t.Cleanup(func() { sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)
	return sub.Channel()
}

func nextEvent(t *testing.T, ch <-chan *redis.Message) Event {
	t.Helper()
	select {
	case msg := <-ch:
		var e Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &e))
		return e
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for event")
		return Event{}
	}
}

func TestConnect(t *testing.T) {
	mr, _ := setupTestRedis(t)

	rdb, err := Connect(context.Background(), mr.Addr())
	require.NoError(t, err)
	assert.NoError(t, rdb.Close())
}

func TestConnectFailure(t *testing.T) {
	mr, _ := setupTestRedis(t)
	addr := mr.Addr()
	mr.Close()

	_, err := Connect(context.Background(), addr)
	assert.Error(t, err)
}

func TestRedisPublisherPublishesRoomActivity(t *testing.T) {
	_, rdb := setupTestRedis(t)
	ch := subscribe(t, rdb, "whiteboard:events")

	pub := NewRedisPublisher(rdb, "whiteboard:events", zaptest.NewLogger(t))
	t.Cleanup(pub.Close)
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	pub.now = func() time.Time { return fixed }

	pub.RoomCreated("room-1")
	pub.ClientJoined("room-1", "alice")
	pub.ClientLeft("room-1", "alice")
	pub.ClientDropped("room-1", "bob", session.ErrSendBufferFull)

	want := []Event{
		{Type: TypeRoomCreated, RoomID: "room-1"},
		{Type: TypeParticipantJoined, RoomID: "room-1", ParticipantID: "alice"},
		{Type: TypeParticipantLeft, RoomID: "room-1", ParticipantID: "alice"},
		{Type: TypeParticipantLeft, RoomID: "room-1", ParticipantID: "bob"},
	}
	for _, w := range want {
		got := nextEvent(t, ch)
		assert.NotEmpty(t, got.ID)
		assert.True(t, fixed.Equal(got.At))
		assert.Equal(t, w.Type, got.Type)
		assert.Equal(t, w.RoomID, got.RoomID)
		assert.Equal(t, w.ParticipantID, got.ParticipantID)
	}
}

func TestRedisPublisherIgnoresMessageCallbacks(t *testing.T) {
	_, rdb := setupTestRedis(t)
	ch := subscribe(t, rdb, "events")

	pub := NewRedisPublisher(rdb, "events", nil)
	t.Cleanup(pub.Close)

	pub.MessageHandled("r", "DRAW")
	pub.MessageRejected("r", session.ErrMalformedMessage)
	pub.RoomCreated("r")

	got := nextEvent(t, ch)
	assert.Equal(t, TypeRoomCreated, got.Type)
}

func TestRedisPublisherCloseIsIdempotent(t *testing.T) {
	_, rdb := setupTestRedis(t)
	pub := NewRedisPublisher(rdb, "events", zaptest.NewLogger(t))

	pub.Close()
	pub.Close()
	// events after close are discarded without panicking
	pub.RoomCreated("late")
}

func TestRedisPublisherSurvivesRedisOutage(t *testing.T) {
	mr, rdb := setupTestRedis(t)
	pub := NewRedisPublisher(rdb, "events", zaptest.NewLogger(t))
	mr.Close()

	pub.RoomCreated("r")
	done := make(chan struct{})
	go func() {
		pub.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("Close blocked on an unreachable redis")
	}
}

func TestRedisPublisherIsObserver(t *testing.T) {
	_, rdb := setupTestRedis(t)
	pub := NewRedisPublisher(rdb, "events", nil)
	t.Cleanup(pub.Close)

	var _ session.Observer = pub
}
