package jobs

import (
	config "github.com/anjiri1684/tutor_booking/configs"
	"github.com/robfig/cron/v3"
)

// NewScheduler registers every background job on a cron running in the
// booking timezone. The caller starts and stops it.
func NewScheduler() (*cron.Cron, error) {
	c := cron.New(cron.WithLocation(config.Location()))
	if _, err := c.AddFunc(config.Get("PENDING_CRON", "0 17 * * *"), NudgePendingRequests); err != nil {
		return nil, err
	}
	if _, err := c.AddFunc(config.Get("REMINDER_CRON", "0 18 * * *"), SendAppointmentReminders); err != nil {
		return nil, err
	}
	return c, nil
}
