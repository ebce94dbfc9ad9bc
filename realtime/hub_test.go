package realtime

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case ev := <-sub.Events():
		return ev
	case <-time.After(time.Second):
		t.Fatalf("no event on %s", sub.Topic())
		return Event{}
	}
}

func TestPublishReachesTopicSubscribersInOrder(t *testing.T) {
	hub := NewHub()
	owner := uuid.New()
	sub := hub.Subscribe(owner, "thread:a_b")
	other := hub.Subscribe(owner, "thread:c_d")

	hub.Publish("thread:a_b", "message.created", map[string]int{"n": 1})
	hub.Publish("thread:a_b", "message.created", map[string]int{"n": 2})

	for want := 1; want <= 2; want++ {
		ev := receive(t, sub)
		var body map[string]int
		require.NoError(t, json.Unmarshal(ev.Payload, &body))
		assert.Equal(t, want, body["n"])
	}

	select {
	case ev := <-other.Events():
		t.Fatalf("unexpected event on other topic: %+v", ev)
	default:
	}
}

func TestReleaseStopsDelivery(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe(uuid.New(), "unread:x")
	require.Equal(t, 1, hub.Count())

	sub.Release()
	sub.Release()

	assert.Equal(t, 0, hub.Count())
	hub.Publish("unread:x", "unread.changed", nil)
	select {
	case <-sub.Events():
		t.Fatal("released subscription received an event")
	default:
	}
	select {
	case <-sub.Done():
	default:
		t.Fatal("Done was not closed")
	}
}

func TestReleaseOwnerDetachesEverySubscription(t *testing.T) {
	hub := NewHub()
	owner := uuid.New()
	keep := hub.Subscribe(uuid.New(), "toasts:1")
	hub.Subscribe(owner, "toasts:1")
	hub.Subscribe(owner, "thread:1")

	var counts []int
	hub.OnCountChange = func(n int) { counts = append(counts, n) }

	assert.Equal(t, 2, hub.ReleaseOwner(owner))
	assert.Equal(t, 1, hub.Count())
	assert.Equal(t, []int{2, 1}, counts)

	hub.Publish("toasts:1", "toast.shown", nil)
	assert.Equal(t, "toast.shown", receive(t, keep).Type)
}

func TestFullBufferSignalsLag(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe(uuid.New(), "thread:a_b")

	for i := 0; i < subscriptionBuffer; i++ {
		hub.Publish("thread:a_b", "message.created", nil)
	}
	select {
	case <-sub.Lagged():
		t.Fatal("lag signalled before any event was dropped")
	default:
	}

	hub.Publish("thread:a_b", "message.created", nil)
	hub.Publish("thread:a_b", "message.created", nil)
	select {
	case <-sub.Lagged():
	default:
		t.Fatal("dropped event did not signal lag")
	}
	assert.Len(t, sub.Events(), subscriptionBuffer)
}
