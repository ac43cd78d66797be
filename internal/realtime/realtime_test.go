package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPublisher(t *testing.T) *Publisher {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewPublisher(rdb)
}

func TestPublishSubscribe(t *testing.T) {
	p := newTestPublisher(t)
	ctx := context.Background()

	events, stop, err := p.Subscribe(ctx, TopicLeaves)
	require.NoError(t, err)
	defer stop()

	require.NoError(t, p.Publish(ctx, TopicLeaves, Event{Type: "leave.updated", ID: 3, Status: "approved"}))
	require.NoError(t, p.Publish(ctx, TopicPosts, Event{Type: "post.updated", ID: 9}))

	select {
	case ev := <-events:
		assert.Equal(t, "leave.updated", ev.Type)
		assert.Equal(t, uint(3), ev.ID)
		assert.Equal(t, "approved", ev.Status)
		assert.False(t, ev.At.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}

	select {
	case ev := <-events:
		t.Fatalf("received event from another topic: %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestStopClosesStream(t *testing.T) {
	p := newTestPublisher(t)
	events, stop, err := p.Subscribe(context.Background(), TopicPosts)
	require.NoError(t, err)

	stop()
	select {
	case _, ok := <-events:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("stream not closed")
	}
}

func TestDisabledPublisherIsNoop(t *testing.T) {
	var nilPub *Publisher
	assert.NoError(t, nilPub.Publish(context.Background(), TopicPosts, Event{Type: "post.updated"}))
	nilPub.Notify(context.Background(), TopicPosts, Event{Type: "post.updated"})

	p := NewPublisher(nil)
	assert.False(t, p.Enabled())
	_, _, err := p.Subscribe(context.Background(), TopicPosts)
	assert.Error(t, err)
}

func TestParseTopic(t *testing.T) {
	topic, ok := ParseTopic("gatepasses")
	assert.True(t, ok)
	assert.Equal(t, "campus:gatepasses", topic.Channel())

	_, ok = ParseTopic("secrets")
	assert.False(t, ok)
}

func TestNewRedisClient(t *testing.T) {
	rdb, err := NewRedisClient("")
	assert.NoError(t, err)
	assert.Nil(t, rdb)

	_, err = NewRedisClient("::bad")
	assert.Error(t, err)
}
