package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AppointmentsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tutor_appointments_created_total",
		Help: "Appointment requests accepted by the store.",
	})

	BookingConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tutor_booking_conflicts_total",
		Help: "Booking attempts refused because the slot was already taken.",
	})

	AppointmentTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tutor_appointment_transitions_total",
		Help: "Appointment status changes by target status.",
	}, []string{"status"})

	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tutor_messages_sent_total",
		Help: "Chat messages stored.",
	})

	LiveSubscriptions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tutor_live_subscriptions",
		Help: "Realtime subscriptions currently held open.",
	})

	ToastsShown = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tutor_toasts_total",
		Help: "Toasts pushed to users by kind.",
	}, []string{"kind"})
)

func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
