package services

import (
	"time"

	config "github.com/anjiri1684/tutor_booking/configs"
	"github.com/anjiri1684/tutor_booking/models"
)

var now = time.Now

// Today is the reference date used for every past/future decision, in the
// configured TIMEZONE. It is computed once per call site, never per item.
func Today() string {
	return now().In(config.Location()).Format(models.DateLayout)
}

func parseDate(value string) (time.Time, error) {
	return time.ParseInLocation(models.DateLayout, value, config.Location())
}

func addDays(date string, days int) string {
	t, err := parseDate(date)
	if err != nil {
		return date
	}
	return t.AddDate(0, 0, days).Format(models.DateLayout)
}
