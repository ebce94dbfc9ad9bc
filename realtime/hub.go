package realtime

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Event is one change notification on a topic. Payload is already JSON so
// the same value can be written to a socket or relayed through Redis.
type Event struct {
	Topic   string          `json:"topic"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

const subscriptionBuffer = 64

// Subscription is a live interest in one topic, owned by one principal.
// Events stop arriving once Release has returned.
type Subscription struct {
	hub    *Hub
	topic  string
	owner  uuid.UUID
	events chan Event
	done   chan struct{}
	lagged chan struct{}
	once   sync.Once
}

func (s *Subscription) Topic() string { return s.topic }
func (s *Subscription) Events() <-chan Event { return s.events }
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Lagged fires after at least one event was dropped because the buffer was
// full. Consumers that need every event resynchronize from the store.
func (s *Subscription) Lagged() <-chan struct{} { return s.lagged }

func (s *Subscription) Release() {
	s.once.Do(func() {
		s.hub.remove(s)
		close(s.done)
	})
}

type envelope struct {
	Origin string `json:"origin"`
	Event  Event  `json:"event"`
}

type Hub struct {
	mu      sync.RWMutex
	topics  map[string]map[*Subscription]struct{}
	owners  map[uuid.UUID]map[*Subscription]struct{}
	origin  string
	redis   *redis.Client
	channel string

	// OnCountChange, when set, receives the number of live subscriptions
	// after every change.
	OnCountChange func(n int)
}

func NewHub() *Hub {
	return &Hub{
		topics: make(map[string]map[*Subscription]struct{}),
		owners: make(map[uuid.UUID]map[*Subscription]struct{}),
		origin: uuid.NewString(),
	}
}

var Default = NewHub()

func (h *Hub) Subscribe(owner uuid.UUID, topic string) *Subscription {
	sub := &Subscription{
		hub:    h,
		topic:  topic,
		owner:  owner,
		events: make(chan Event, subscriptionBuffer),
		done:   make(chan struct{}),
		lagged: make(chan struct{}, 1),
	}

	h.mu.Lock()
	if h.topics[topic] == nil {
		h.topics[topic] = make(map[*Subscription]struct{})
	}
	h.topics[topic][sub] = struct{}{}
	if h.owners[owner] == nil {
		h.owners[owner] = make(map[*Subscription]struct{})
	}
	h.owners[owner][sub] = struct{}{}
	n := h.countLocked()
	h.mu.Unlock()

	h.reportCount(n)
	return sub
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	if subs, ok := h.topics[sub.topic]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.topics, sub.topic)
		}
	}
	if subs, ok := h.owners[sub.owner]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.owners, sub.owner)
		}
	}
	n := h.countLocked()
	h.mu.Unlock()

	h.reportCount(n)
}

// ReleaseOwner releases every subscription held by owner and returns how many
// there were. Used on sign-out and when a socket closes.
func (h *Hub) ReleaseOwner(owner uuid.UUID) int {
	h.mu.RLock()
	subs := make([]*Subscription, 0, len(h.owners[owner]))
	for sub := range h.owners[owner] {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	for _, sub := range subs {
		sub.Release()
	}
	return len(subs)
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.countLocked()
}

func (h *Hub) countLocked() int {
	n := 0
	for _, subs := range h.topics {
		n += len(subs)
	}
	return n
}

func (h *Hub) reportCount(n int) {
	if h.OnCountChange != nil {
		h.OnCountChange(n)
	}
}

// Publish delivers an event to local subscribers of topic and, when a Redis
// relay is configured, to every other instance.
func (h *Hub) Publish(topic, eventType string, payload any) {
	ev := Event{Topic: topic, Type: eventType}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			log.Printf("🔥 Failed to encode %s event for %s: %v", eventType, topic, err)
			return
		}
		ev.Payload = raw
	}

	h.dispatch(ev)

	if h.redis != nil {
		data, err := json.Marshal(envelope{Origin: h.origin, Event: ev})
		if err != nil {
			return
		}
		if err := h.redis.Publish(context.Background(), h.channel, data).Err(); err != nil {
			log.Printf("🔥 Redis publish failed for %s: %v", topic, err)
		}
	}
}

func (h *Hub) dispatch(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.topics[ev.Topic] {
		select {
		case sub.events <- ev:
		default:
			select {
			case sub.lagged <- struct{}{}:
				log.Printf("⚠️ Subscriber of %s is lagging, dropped %s event", ev.Topic, ev.Type)
			default:
			}
		}
	}
}

// UseRedis relays events through a Redis pub/sub channel so that subscribers
// connected to other instances see them too. The relay stops with ctx.
func (h *Hub) UseRedis(ctx context.Context, client *redis.Client, channel string) {
	h.redis = client
	h.channel = channel

	pubsub := client.Subscribe(ctx, channel)
	go func() {
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var env envelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					log.Printf("⚠️ Ignoring malformed relay message: %v", err)
					continue
				}
				if env.Origin == h.origin {
					continue
				}
				h.dispatch(env.Event)
			}
		}
	}()
	log.Printf("✅ Realtime relay attached to Redis channel %s", channel)
}
