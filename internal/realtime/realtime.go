// Package realtime fans change events out over Redis pub/sub so open
// dashboards refresh without polling.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

type Topic string

const (
	TopicPosts      Topic = "posts"
	TopicLeaves     Topic = "leaves"
	TopicGatePasses Topic = "gatepasses"
)

func ParseTopic(s string) (Topic, bool) {
	switch t := Topic(s); t {
	case TopicPosts, TopicLeaves, TopicGatePasses:
		return t, true
	}
	return "", false
}

func (t Topic) Channel() string {
	return "campus:" + string(t)
}

// Event describes a committed change. Subscribers re-read the entity.
type Event struct {
	Type   string    `json:"type"`
	ID     uint      `json:"id"`
	UserID uint      `json:"user_id,omitempty"`
	Status string    `json:"status,omitempty"`
	At     time.Time `json:"at"`
}

// NewRedisClient returns nil when url is empty, which disables the feed.
func NewRedisClient(url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	return redis.NewClient(opts), nil
}

// Publisher is safe to use with a nil client or as a nil pointer; both
// make every call a no-op.
type Publisher struct {
	rdb *redis.Client
}

func NewPublisher(rdb *redis.Client) *Publisher {
	return &Publisher{rdb: rdb}
}

func (p *Publisher) Enabled() bool {
	return p != nil && p.rdb != nil
}

func (p *Publisher) Publish(ctx context.Context, topic Topic, ev Event) error {
	if !p.Enabled() {
		return nil
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, topic.Channel(), payload).Err()
}

// Notify publishes and logs failures. Callers have already committed, so a
// lost event only delays the next refresh.
func (p *Publisher) Notify(ctx context.Context, topic Topic, ev Event) {
	if err := p.Publish(ctx, topic, ev); err != nil {
		slog.Warn("failed to publish change event", "topic", topic, "type", ev.Type, "error", err)
	}
}

// Subscribe streams events on topic until ctx is cancelled or the returned
// stop func is called. The subscription is confirmed before returning.
func (p *Publisher) Subscribe(ctx context.Context, topic Topic) (<-chan Event, func(), error) {
	if !p.Enabled() {
		return nil, nil, fmt.Errorf("realtime feed disabled")
	}
	sub := p.rdb.Subscribe(ctx, topic.Channel())
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, err
	}

	out := make(chan Event, 16)
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("realtime subscriber panic", "topic", topic, "panic", r)
			}
			close(out)
			_ = sub.Close()
		}()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					slog.Warn("dropping malformed change event", "topic", topic, "error", err)
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, cancel, nil
}
