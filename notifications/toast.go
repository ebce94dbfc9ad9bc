package notifications

import (
	"sort"
	"sync"
	"time"

	"github.com/anjiri1684/tutor_booking/metrics"
	"github.com/anjiri1684/tutor_booking/realtime"
	"github.com/google/uuid"
)

type ToastKind string

const (
	ToastSuccess ToastKind = "success"
	ToastError   ToastKind = "error"
)

const DefaultToastTTL = 5 * time.Second

type Toast struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"-"`
	Kind      ToastKind `json:"type"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Relay holds the short-lived outcome messages of user actions. A toast is
// dismissed automatically after the TTL unless the user dismisses it first.
type Relay struct {
	ttl    time.Duration
	hub    *realtime.Hub
	mu     sync.Mutex
	active map[uuid.UUID]map[uuid.UUID]*Toast
	timers map[uuid.UUID]*time.Timer
}

func NewRelay(ttl time.Duration, hub *realtime.Hub) *Relay {
	if ttl <= 0 {
		ttl = DefaultToastTTL
	}
	return &Relay{
		ttl:    ttl,
		hub:    hub,
		active: make(map[uuid.UUID]map[uuid.UUID]*Toast),
		timers: make(map[uuid.UUID]*time.Timer),
	}
}

var Toasts = NewRelay(DefaultToastTTL, realtime.Default)

func (r *Relay) Success(userID uuid.UUID, message string) Toast {
	return r.Push(userID, ToastSuccess, message)
}

func (r *Relay) Error(userID uuid.UUID, message string) Toast {
	return r.Push(userID, ToastError, message)
}

func (r *Relay) Push(userID uuid.UUID, kind ToastKind, message string) Toast {
	now := time.Now().UTC()
	toast := &Toast{
		ID:        uuid.New(),
		UserID:    userID,
		Kind:      kind,
		Message:   message,
		CreatedAt: now,
		ExpiresAt: now.Add(r.ttl),
	}

	r.mu.Lock()
	if r.active[userID] == nil {
		r.active[userID] = make(map[uuid.UUID]*Toast)
	}
	r.active[userID][toast.ID] = toast
	r.timers[toast.ID] = time.AfterFunc(r.ttl, func() { r.Dismiss(userID, toast.ID) })
	r.mu.Unlock()

	metrics.ToastsShown.WithLabelValues(string(kind)).Inc()
	if r.hub != nil {
		r.hub.Publish(realtime.ToastTopic(userID), "toast.shown", toast)
	}
	return *toast
}

func (r *Relay) Dismiss(userID, toastID uuid.UUID) bool {
	r.mu.Lock()
	toasts := r.active[userID]
	if _, ok := toasts[toastID]; !ok {
		r.mu.Unlock()
		return false
	}
	delete(toasts, toastID)
	if len(toasts) == 0 {
		delete(r.active, userID)
	}
	if timer, ok := r.timers[toastID]; ok {
		timer.Stop()
		delete(r.timers, toastID)
	}
	r.mu.Unlock()

	if r.hub != nil {
		r.hub.Publish(realtime.ToastTopic(userID), "toast.dismissed", map[string]uuid.UUID{"id": toastID})
	}
	return true
}

// Active returns the user's toasts that are still showing, oldest first.
func (r *Relay) Active(userID uuid.UUID) []Toast {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Toast, 0, len(r.active[userID]))
	for _, t := range r.active[userID] {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
