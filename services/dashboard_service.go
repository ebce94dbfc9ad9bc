package services

import (
	"context"
	"errors"
	"sync"
	"time"

	config "github.com/anjiri1684/tutor_booking/configs"
	"github.com/anjiri1684/tutor_booking/database"
	"github.com/anjiri1684/tutor_booking/models"
	"github.com/google/uuid"
)

// Metric is one dashboard figure. A metric that is not Ready is still
// loading, or failed when Error is set.
type Metric struct {
	Value int64  `json:"value"`
	Ready bool   `json:"ready"`
	Error string `json:"error,omitempty"`
}

type Dashboard struct {
	Role    models.Role          `json:"role"`
	Metrics map[string]Metric    `json:"metrics"`
	Next    []models.Appointment `json:"next_appointments"`
	// NextReady is false while the appointment list is still loading.
	NextReady bool   `json:"next_ready"`
	NextError string `json:"next_error,omitempty"`
}

const (
	MetricUpcoming        = "upcoming_appointments"
	MetricPending         = "pending_requests"
	MetricUnread          = "unread_messages"
	MetricMentorsInRegion = "mentors_in_region"
)

type metricSource func(ctx context.Context) (int64, error)

func metricTimeout() time.Duration {
	return config.Duration("DASHBOARD_METRIC_TIMEOUT", 3*time.Second)
}

// collect runs every source concurrently, each under its own deadline, so a
// slow source only holds back its own metric.
func collect(ctx context.Context, sources map[string]metricSource, next func(ctx context.Context) ([]models.Appointment, error)) (map[string]Metric, []models.Appointment, Metric) {
	timeout := metricTimeout()
	results := make(map[string]Metric, len(sources))
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		upcoming []models.Appointment
		nextMeta Metric
	)

	settle := func(err error) Metric {
		switch {
		case err == nil:
			return Metric{Ready: true}
		case errors.Is(err, context.DeadlineExceeded):
			return Metric{}
		default:
			return Metric{Error: err.Error()}
		}
	}

	for name, source := range sources {
		wg.Add(1)
		go func(name string, source metricSource) {
			defer wg.Done()
			mctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			value, err := source(mctx)
			m := settle(err)
			if m.Ready {
				m.Value = value
			}
			mu.Lock()
			results[name] = m
			mu.Unlock()
		}(name, source)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		nctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		list, err := next(nctx)
		mu.Lock()
		defer mu.Unlock()
		nextMeta = settle(err)
		if nextMeta.Ready {
			upcoming = list
		}
	}()

	wg.Wait()
	if upcoming == nil {
		upcoming = []models.Appointment{}
	}
	return results, upcoming, nextMeta
}

func countAppointments(userColumn string, userID uuid.UUID, status models.AppointmentStatus, fromDate string) metricSource {
	return func(ctx context.Context) (int64, error) {
		var count int64
		q := database.DB.WithContext(ctx).Model(&models.Appointment{}).
			Where(userColumn+" = ? AND status = ?", userID, status)
		if fromDate != "" {
			q = q.Where("date >= ?", fromDate)
		}
		if err := q.Count(&count).Error; err != nil {
			return 0, storeErr("count appointments", "", err)
		}
		return count, nil
	}
}

func nextAppointments(userColumn string, userID uuid.UUID, today string, limit int) func(ctx context.Context) ([]models.Appointment, error) {
	return func(ctx context.Context) ([]models.Appointment, error) {
		list := []models.Appointment{}
		err := database.DB.WithContext(ctx).
			Where(userColumn+" = ? AND status = ? AND date >= ?", userID, models.StatusUpcoming, today).
			Order("date ASC").Find(&list).Error
		if err != nil {
			return nil, storeErr("load next appointments", "", err)
		}
		sortByDate(list, true)
		if len(list) > limit {
			list = list[:limit]
		}
		return list, nil
	}
}

func finish(role models.Role, metrics map[string]Metric, next []models.Appointment, meta Metric) *Dashboard {
	return &Dashboard{
		Role:      role,
		Metrics:   metrics,
		Next:      next,
		NextReady: meta.Ready,
		NextError: meta.Error,
	}
}

func StudentDashboard(ctx context.Context, student *models.User) *Dashboard {
	today := Today()
	sources := map[string]metricSource{
		MetricUpcoming: countAppointments("student_id", student.ID, models.StatusUpcoming, today),
		MetricUnread: func(ctx context.Context) (int64, error) {
			return UnreadCountFor(ctx, student.ID)
		},
		MetricMentorsInRegion: func(ctx context.Context) (int64, error) {
			return CountTeachersInRegion(ctx, student.City, student.State, student.Country)
		},
	}
	metrics, next, meta := collect(ctx, sources, nextAppointments("student_id", student.ID, today, 3))
	return finish(models.RoleStudent, metrics, next, meta)
}

func TeacherDashboard(ctx context.Context, teacher *models.User) *Dashboard {
	today := Today()
	sources := map[string]metricSource{
		MetricUpcoming: countAppointments("teacher_id", teacher.ID, models.StatusUpcoming, today),
		MetricPending:  countAppointments("teacher_id", teacher.ID, models.StatusPending, ""),
		MetricUnread: func(ctx context.Context) (int64, error) {
			return UnreadCountFor(ctx, teacher.ID)
		},
	}
	metrics, next, meta := collect(ctx, sources, nextAppointments("teacher_id", teacher.ID, today, 4))
	return finish(models.RoleTeacher, metrics, next, meta)
}
