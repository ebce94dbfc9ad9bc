package notifications

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPayloadDefaultsRecipientName(t *testing.T) {
	p, err := buildPayload("Tutor Booking", "no-reply@example.com", "asha@example.com", "", "Hi", "<p>x</p>")
	require.NoError(t, err)
	assert.Equal(t, "asha", p.To[0]["name"])
	assert.Equal(t, "no-reply@example.com", p.Sender["email"])
}

func TestBuildPayloadRejectsBadAddress(t *testing.T) {
	_, err := buildPayload("a", "b@example.com", "not-an-email", "x", "s", "c")
	assert.Error(t, err)
}

func TestSendEmailWithoutClientIsNoop(t *testing.T) {
	EmailClient = nil
	SendEmail("x", "x@example.com", "s", "c")
}
