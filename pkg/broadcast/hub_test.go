package broadcast

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, sub *Subscription) Message {
	t.Helper()
	select {
	case msg, ok := <-sub.C:
		require.True(t, ok, "subscription closed")
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for message")
	}
	return Message{}
}

func assertNoMessage(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case msg := <-sub.C:
		t.Fatalf("unexpected message on %s: %s", msg.Topic, msg.Payload)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_DeliversByTopic(t *testing.T) {
	h := NewHub()
	ctx := context.Background()
	foo := h.Subscribe([]string{"type-2"}, 4)
	both := h.Subscribe([]string{"type-2", "type-4"}, 4)

	require.NoError(t, h.Publish(ctx, "type-4", []byte(`[1]`)))
	require.NoError(t, h.Publish(ctx, "type-2", []byte(`[2]`)))

	assert.Equal(t, Message{Topic: "type-2", Payload: []byte(`[2]`)}, receive(t, foo))
	assertNoMessage(t, foo)

	assert.Equal(t, "type-4", receive(t, both).Topic)
	assert.Equal(t, "type-2", receive(t, both).Topic)
}

func TestHub_DefaultBuffer(t *testing.T) {
	h := NewHub()
	sub := h.Subscribe([]string{"type-1"}, 0)
	assert.Equal(t, DefaultBuffer, cap(sub.ch))
}

func TestHub_DropsWhenBufferFull(t *testing.T) {
	h := NewHub()
	ctx := context.Background()
	sub := h.Subscribe([]string{"type-1"}, 1)
	defer h.Unsubscribe(sub)

	require.NoError(t, h.Publish(ctx, "type-1", []byte("first")))
	require.NoError(t, h.Publish(ctx, "type-1", []byte("second")))

	assert.Equal(t, []byte("first"), receive(t, sub).Payload)
	assertNoMessage(t, sub)
}

func TestHub_UnsubscribeIdempotent(t *testing.T) {
	h := NewHub()
	sub := h.Subscribe([]string{"type-1"}, 1)
	assert.Equal(t, 1, h.Subscribers("type-1"))

	h.Unsubscribe(sub)
	h.Unsubscribe(sub)
	h.Unsubscribe(nil)

	_, ok := <-sub.C
	assert.False(t, ok)
	assert.Equal(t, 0, h.Subscribers("type-1"))
	require.NoError(t, h.Publish(context.Background(), "type-1", []byte("x")))
}

func TestHub_Close(t *testing.T) {
	h := NewHub()
	a := h.Subscribe([]string{"type-1"}, 1)
	b := h.Subscribe([]string{"type-2"}, 1)

	require.NoError(t, h.Close())
	_, ok := <-a.C
	assert.False(t, ok)
	_, ok = <-b.C
	assert.False(t, ok)
}

func TestHub_ConcurrentPublishAndUnsubscribe(t *testing.T) {
	h := NewHub()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		sub := h.Subscribe([]string{"type-2"}, 1)
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = h.Publish(ctx, "type-2", []byte("x"))
			}
		}()
		go func() {
			defer wg.Done()
			h.Unsubscribe(sub)
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, h.Subscribers("type-2"))
}
