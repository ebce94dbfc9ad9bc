package notifications

import (
	"testing"
	"time"

	"github.com/anjiri1684/tutor_booking/realtime"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToastAutoDismissesAfterTTL(t *testing.T) {
	hub := realtime.NewHub()
	relay := NewRelay(50*time.Millisecond, hub)
	user := uuid.New()
	sub := hub.Subscribe(user, realtime.ToastTopic(user))
	defer sub.Release()

	toast := relay.Success(user, "Appointment request sent successfully!")
	assert.Equal(t, ToastSuccess, toast.Kind)
	require.Len(t, relay.Active(user), 1)

	require.Eventually(t, func() bool { return len(relay.Active(user)) == 0 }, time.Second, 10*time.Millisecond)

	var types []string
	for len(types) < 2 {
		select {
		case ev := <-sub.Events():
			types = append(types, ev.Type)
		case <-time.After(time.Second):
			t.Fatalf("missing events, got %v", types)
		}
	}
	assert.Equal(t, []string{"toast.shown", "toast.dismissed"}, types)
}

func TestToastManualDismiss(t *testing.T) {
	relay := NewRelay(time.Minute, nil)
	user := uuid.New()
	first := relay.Error(user, "Failed to send request. Please try again.")
	relay.Success(user, "Saved")

	assert.True(t, relay.Dismiss(user, first.ID))
	assert.False(t, relay.Dismiss(user, first.ID))

	active := relay.Active(user)
	require.Len(t, active, 1)
	assert.Equal(t, "Saved", active[0].Message)
}

func TestToastDefaultsTTL(t *testing.T) {
	relay := NewRelay(0, nil)
	toast := relay.Success(uuid.New(), "ok")
	assert.Equal(t, DefaultToastTTL, toast.ExpiresAt.Sub(toast.CreatedAt))
}
