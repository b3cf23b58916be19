package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockCatchupQuerier implements CatchupQuerier for tests.
type mockCatchupQuerier struct {
	events []CatchupEvent
	err    error
}

func (m *mockCatchupQuerier) GetCatchupEvents(_ context.Context, _ string, sinceID int64, limit int) ([]CatchupEvent, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []CatchupEvent
	for _, evt := range m.events {
		if evt.ID > sinceID {
			out = append(out, evt)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// readEvent reads the next event from a subscription with a timeout.
func readEvent(t *testing.T, sub *Subscription) map[string]interface{} {
	t.Helper()
	select {
	case data, ok := <-sub.Events:
		require.True(t, ok, "subscription closed while waiting for event")
		var msg map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

// requireNoEvent asserts that nothing arrives on the subscription shortly.
func requireNoEvent(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case data, ok := <-sub.Events:
		if ok {
			t.Fatalf("unexpected event: %s", data)
		}
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSubscriberManager_SubscribeDeliversCatchup(t *testing.T) {
	events := []CatchupEvent{
		{ID: 10, Payload: map[string]interface{}{"type": "workflow.step", "seq": float64(1)}},
		{ID: 11, Payload: map[string]interface{}{"type": "workflow.step", "seq": float64(2)}},
		{ID: 12, Payload: map[string]interface{}{"type": "session.status", "seq": float64(3)}},
	}
	manager := NewSubscriberManager(&mockCatchupQuerier{events: events})

	sub, err := manager.Subscribe(context.Background(), "session:catchup-test", 0)
	require.NoError(t, err)
	defer sub.Close()

	for i := 0; i < 3; i++ {
		msg := readEvent(t, sub)
		assert.Equal(t, float64(i+1), msg["seq"])
		assert.Equal(t, float64(10+i), msg["db_event_id"], "catchup should inject db_event_id from the row ID")
	}

	// No overflow notice should follow a small catchup.
	requireNoEvent(t, sub)
}

func TestSubscriberManager_CatchupFromLastEventID(t *testing.T) {
	events := []CatchupEvent{
		{ID: 10, Payload: map[string]interface{}{"seq": float64(1)}},
		{ID: 11, Payload: map[string]interface{}{"seq": float64(2)}},
		{ID: 12, Payload: map[string]interface{}{"seq": float64(3)}},
	}
	manager := NewSubscriberManager(&mockCatchupQuerier{events: events})

	// Reconnecting client already saw event 11.
	sub, err := manager.Subscribe(context.Background(), "session:resume-test", 11)
	require.NoError(t, err)
	defer sub.Close()

	msg := readEvent(t, sub)
	assert.Equal(t, float64(3), msg["seq"])
	assert.Equal(t, float64(12), msg["db_event_id"])
	requireNoEvent(t, sub)
}

func TestSubscriberManager_CatchupOverflow(t *testing.T) {
	manyEvents := make([]CatchupEvent, catchupLimit+5)
	for i := range manyEvents {
		manyEvents[i] = CatchupEvent{
			ID: int64(i + 1),
			Payload: map[string]interface{}{
				"type": "workflow.step",
				"seq":  i,
			},
		}
	}
	manager := NewSubscriberManager(&mockCatchupQuerier{events: manyEvents})

	sub, err := manager.Subscribe(context.Background(), "session:overflow-test", 0)
	require.NoError(t, err)
	defer sub.Close()

	// catchupLimit events, then the overflow notice.
	for i := 0; i < catchupLimit; i++ {
		msg := readEvent(t, sub)
		assert.Equal(t, float64(i), msg["seq"])
	}
	msg := readEvent(t, sub)
	assert.Equal(t, "catchup.overflow", msg["type"])
	assert.Equal(t, true, msg["has_more"])
}

func TestSubscriberManager_CatchupError(t *testing.T) {
	// Catchup failure is logged, not fatal: the subscription still works
	// for live events.
	manager := NewSubscriberManager(&mockCatchupQuerier{err: fmt.Errorf("database unreachable")})

	sub, err := manager.Subscribe(context.Background(), "session:err-test", 0)
	require.NoError(t, err)
	defer sub.Close()

	payload, _ := json.Marshal(map[string]string{"type": "session.status", "status": "in_progress"})
	manager.Broadcast("session:err-test", payload)

	msg := readEvent(t, sub)
	assert.Equal(t, "in_progress", msg["status"])
}

func TestSubscriberManager_Broadcast(t *testing.T) {
	manager := NewSubscriberManager(&mockCatchupQuerier{})
	channel := "session:broadcast-test"

	sub1, err := manager.Subscribe(context.Background(), channel, 0)
	require.NoError(t, err)
	defer sub1.Close()
	sub2, err := manager.Subscribe(context.Background(), channel, 0)
	require.NoError(t, err)
	defer sub2.Close()

	payload, _ := json.Marshal(map[string]string{"type": "test", "data": "hello"})
	manager.Broadcast(channel, payload)

	msg1 := readEvent(t, sub1)
	msg2 := readEvent(t, sub2)
	assert.Equal(t, "hello", msg1["data"])
	assert.Equal(t, "hello", msg2["data"])
}

func TestSubscriberManager_BroadcastIsolation(t *testing.T) {
	// A subscriber on ch1 should NOT receive ch2 broadcasts.
	manager := NewSubscriberManager(&mockCatchupQuerier{})

	sub1, err := manager.Subscribe(context.Background(), "session:ch1", 0)
	require.NoError(t, err)
	defer sub1.Close()
	sub2, err := manager.Subscribe(context.Background(), "session:ch2", 0)
	require.NoError(t, err)
	defer sub2.Close()

	payload, _ := json.Marshal(map[string]string{"type": "test", "target": "ch1"})
	manager.Broadcast("session:ch1", payload)

	msg := readEvent(t, sub1)
	assert.Equal(t, "ch1", msg["target"])
	requireNoEvent(t, sub2)
}

func TestSubscriberManager_BroadcastToNonExistentChannel(t *testing.T) {
	manager := NewSubscriberManager(&mockCatchupQuerier{})

	// Should not panic
	payload, _ := json.Marshal(map[string]string{"type": "test"})
	manager.Broadcast("nonexistent-channel", payload)
}

func TestSubscriberManager_CloseStopsDelivery(t *testing.T) {
	manager := NewSubscriberManager(&mockCatchupQuerier{})
	channel := "session:close-test"

	sub, err := manager.Subscribe(context.Background(), channel, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, manager.ActiveSubscribers())
	assert.Equal(t, 1, manager.subscriberCount(channel))

	sub.Close()

	assert.Equal(t, 0, manager.ActiveSubscribers())
	assert.Equal(t, 0, manager.subscriberCount(channel))

	// The events channel is closed so the SSE handler's drain loop ends.
	_, ok := <-sub.Events
	assert.False(t, ok, "events channel should be closed after Close")

	// Broadcast after close should not panic.
	payload, _ := json.Marshal(map[string]string{"type": "test"})
	assert.NotPanics(t, func() {
		manager.Broadcast(channel, payload)
	})

	// Second Close is a no-op.
	assert.NotPanics(t, func() { sub.Close() })
}

func TestSubscriberManager_ResubscribeAfterClose(t *testing.T) {
	manager := NewSubscriberManager(&mockCatchupQuerier{})
	channel := "session:resub-test"

	sub, err := manager.Subscribe(context.Background(), channel, 0)
	require.NoError(t, err)
	sub.Close()

	// A reconnecting client can subscribe to the same channel again.
	sub2, err := manager.Subscribe(context.Background(), channel, 0)
	require.NoError(t, err)
	defer sub2.Close()

	payload, _ := json.Marshal(map[string]string{"type": "test", "data": "after-reconnect"})
	manager.Broadcast(channel, payload)
	msg := readEvent(t, sub2)
	assert.Equal(t, "after-reconnect", msg["data"])
}

func TestSubscriberManager_SlowSubscriberDropsEvents(t *testing.T) {
	manager := NewSubscriberManager(&mockCatchupQuerier{})
	channel := "session:slow-test"

	sub, err := manager.Subscribe(context.Background(), channel, 0)
	require.NoError(t, err)
	defer sub.Close()

	// Fill the buffer past capacity without draining. Broadcast must not
	// block; overflow events are dropped.
	payload, _ := json.Marshal(map[string]string{"type": "test"})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < subscriberBuffer+10; i++ {
			manager.Broadcast(channel, payload)
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Broadcast blocked on a full subscriber buffer")
	}

	// Exactly the buffered events are deliverable.
	received := 0
	for {
		select {
		case <-sub.Events:
			received++
		default:
			assert.Equal(t, subscriberBuffer, received)
			return
		}
	}
}

func TestSubscriberManager_ConcurrentBroadcast(t *testing.T) {
	manager := NewSubscriberManager(&mockCatchupQuerier{})
	channel := "session:concurrent-test"

	sub, err := manager.Subscribe(context.Background(), channel, 0)
	require.NoError(t, err)
	defer sub.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			payload, _ := json.Marshal(map[string]interface{}{"type": "concurrent", "idx": idx})
			manager.Broadcast(channel, payload)
		}(i)
	}
	wg.Wait()

	// All 20 fit comfortably in the buffer (order may vary).
	for i := 0; i < 20; i++ {
		msg := readEvent(t, sub)
		assert.Equal(t, "concurrent", msg["type"])
	}
}

func TestSubscriberManager_ConcurrentBroadcastAndClose(t *testing.T) {
	// Closing a subscription while broadcasts are in flight must not panic
	// (send on closed channel).
	manager := NewSubscriberManager(&mockCatchupQuerier{})
	channel := "session:race-test"

	sub, err := manager.Subscribe(context.Background(), channel, 0)
	require.NoError(t, err)

	payload, _ := json.Marshal(map[string]string{"type": "test"})
	var wg sync.WaitGroup
	wg.Add(2)
	assert.NotPanics(t, func() {
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				manager.Broadcast(channel, payload)
			}
		}()
		go func() {
			defer wg.Done()
			sub.Close()
		}()
		wg.Wait()
	})
}

func TestSubscriberManager_SetListener(t *testing.T) {
	manager := NewSubscriberManager(&mockCatchupQuerier{})
	assert.Nil(t, manager.listener)

	listener := NewNotifyListener("host=localhost", manager)
	manager.SetListener(listener)

	manager.listenerMu.RLock()
	assert.Equal(t, listener, manager.listener)
	manager.listenerMu.RUnlock()
}

func TestSubscriberManager_NilCatchupQuerier(t *testing.T) {
	// A manager without a catchup querier still delivers live events.
	manager := NewSubscriberManager(nil)

	sub, err := manager.Subscribe(context.Background(), "session:nocatchup", 42)
	require.NoError(t, err)
	defer sub.Close()

	payload, _ := json.Marshal(map[string]string{"type": "test", "data": "live"})
	manager.Broadcast("session:nocatchup", payload)
	msg := readEvent(t, sub)
	assert.Equal(t, "live", msg["data"])
}
