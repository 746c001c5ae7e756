package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"strconv"
	"time"

	"yatube/internal/middleware"
	"yatube/internal/observability"

	"github.com/redis/go-redis/v9"
)

const (
	userChannelPrefix = "notifications:user:"

	// EventPostCreated is pushed to an author's followers when they publish.
	EventPostCreated = "post_created"
)

// FeedEvent is the JSON frame written to /ws/feed clients.
type FeedEvent struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// PostCreatedPayload describes a freshly published post.
type PostCreatedPayload struct {
	PostID    uint      `json:"post_id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	Group     string    `json:"group,omitempty"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"pub_date"`
}

// Notifier publishes feed events to Redis channels, or straight into the
// local hub when Redis is not configured.
type Notifier struct {
	rdb   *redis.Client
	local *Hub
}

// NewNotifier creates a Notifier. local may be nil when this process serves no sockets.
func NewNotifier(rdb *redis.Client, local *Hub) *Notifier {
	return &Notifier{rdb: rdb, local: local}
}

// PublishUser sends a raw payload to a user's channel.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, payload string) error {
	if n == nil {
		return nil
	}
	if n.rdb == nil {
		if n.local != nil {
			n.local.Broadcast(userID, []byte(payload))
		}
		return nil
	}
	return n.rdb.Publish(ctx, UserChannel(userID), payload).Err()
}

// PublishEvent encodes event once and publishes it to every recipient.
// Delivery failures are logged per recipient; the first error is returned.
func (n *Notifier) PublishEvent(ctx context.Context, recipients []uint, event FeedEvent) error {
	if n == nil || len(recipients) == 0 {
		return nil
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal feed event: %w", err)
	}

	path := "redis"
	if n.rdb == nil {
		path = "local"
	}
	var firstErr error
	for _, uid := range recipients {
		if err := n.PublishUser(ctx, uid, string(body)); err != nil {
			middleware.Logger.WarnContext(ctx, "Failed to publish feed event", "user_id", uid, "type", event.Type, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		observability.FeedEventsPublished.WithLabelValues(event.Type, path).Inc()
	}
	return firstErr
}

// StartPatternSubscriber subscribes to `notifications:user:*` and calls
// onMessage for each incoming message until ctx is cancelled.
func (n *Notifier) StartPatternSubscriber(ctx context.Context, onMessage func(channel string, payload string)) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, userChannelPrefix+"*")
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe to feed channels: %w", err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("Panic in feed subscriber", "panic", r, "stack", string(debug.Stack()))
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}

// UserChannel derives the Redis channel name for a user.
func UserChannel(userID uint) string {
	return userChannelPrefix + strconv.FormatUint(uint64(userID), 10)
}
