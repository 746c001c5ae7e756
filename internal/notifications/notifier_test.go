package notifications

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestUserChannel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		userID   uint
		expected string
	}{
		{1, "notifications:user:1"},
		{100, "notifications:user:100"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, UserChannel(tt.userID))
		id, err := parseUserChannel(tt.expected)
		require.NoError(t, err)
		assert.Equal(t, tt.userID, id)
	}

	_, err := parseUserChannel("chat:conv:1")
	assert.Error(t, err)
	_, err = parseUserChannel("notifications:user:abc")
	assert.Error(t, err)
}

func TestNotifier_NilIsNoop(t *testing.T) {
	var n *Notifier
	assert.NoError(t, n.PublishUser(context.Background(), 1, "x"))
	assert.NoError(t, n.PublishEvent(context.Background(), []uint{1}, FeedEvent{Type: EventPostCreated}))
	assert.NoError(t, NewNotifier(nil, nil).PublishUser(context.Background(), 1, "x"))
}

func TestNotifier_LocalDeliveryWithoutRedis(t *testing.T) {
	hub := NewHub()
	client, err := hub.Register(7, nil)
	require.NoError(t, err)
	other, err := hub.Register(8, nil)
	require.NoError(t, err)

	n := NewNotifier(nil, hub)
	event := FeedEvent{Type: EventPostCreated, Payload: PostCreatedPayload{PostID: 3, Author: "leo", Text: "hi", URL: "/posts/3/"}}
	require.NoError(t, n.PublishEvent(context.Background(), []uint{7}, event))

	select {
	case msg := <-client.Send:
		var decoded map[string]interface{}
		require.NoError(t, json.Unmarshal(msg, &decoded))
		assert.Equal(t, "post_created", decoded["type"])
		payload := decoded["payload"].(map[string]interface{})
		assert.Equal(t, "leo", payload["author"])
		assert.Equal(t, "/posts/3/", payload["url"])
	default:
		t.Fatal("expected a queued message for user 7")
	}
	assert.Empty(t, other.Send)
}

func TestNotifier_RedisFanOut(t *testing.T) {
	rdb := newTestRedis(t)
	hub := NewHub()
	client, err := hub.Register(42, nil)
	require.NoError(t, err)

	n := NewNotifier(rdb, hub)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, hub.StartWiring(ctx, n))

	require.NoError(t, n.PublishEvent(ctx, []uint{42}, FeedEvent{Type: EventPostCreated, Payload: map[string]int{"post_id": 1}}))

	select {
	case msg := <-client.Send:
		assert.JSONEq(t, `{"type":"post_created","payload":{"post_id":1}}`, string(msg))
	case <-time.After(time.Second):
		t.Fatal("message was not delivered through redis")
	}
}

func TestNotifier_SubscriberStopsOnCancel(t *testing.T) {
	rdb := newTestRedis(t)
	n := NewNotifier(rdb, nil)
	ctx, cancel := context.WithCancel(context.Background())

	var mu sync.Mutex
	var got []string
	require.NoError(t, n.StartPatternSubscriber(ctx, func(_ string, payload string) {
		mu.Lock()
		got = append(got, payload)
		mu.Unlock()
	}))

	require.NoError(t, n.PublishUser(context.Background(), 1, "before-cancel"))
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, n.PublishUser(context.Background(), 1, "after-cancel"))
	assert.Never(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) > 1
	}, 200*time.Millisecond, 10*time.Millisecond)
}
