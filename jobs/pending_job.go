package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/anjiri1684/tutor_booking/database"
	"github.com/anjiri1684/tutor_booking/models"
	"github.com/anjiri1684/tutor_booking/notifications"
	"github.com/anjiri1684/tutor_booking/services"
	"github.com/google/uuid"
)

// NudgePendingRequests emails teachers who still have unanswered requests
// for tomorrow. Nothing is written to the store.
func NudgePendingRequests() {
	n, err := nudgePending(context.Background(), services.Tomorrow(), notifications.SendEmail)
	if err != nil {
		log.Printf("Error nudging teachers about pending requests: %v", err)
		return
	}
	if n > 0 {
		log.Printf("Nudged %d teachers about pending requests", n)
	}
}

func nudgePending(ctx context.Context, date string, send mailer) (int, error) {
	pending, err := services.PendingOn(ctx, date)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	counts := make(map[uuid.UUID]int)
	var ids []uuid.UUID
	for _, a := range pending {
		if counts[a.TeacherID] == 0 {
			ids = append(ids, a.TeacherID)
		}
		counts[a.TeacherID]++
	}
	var teachers []models.User
	if err := database.DB.WithContext(ctx).Where("id IN ?", ids).Find(&teachers).Error; err != nil {
		return 0, err
	}

	for _, t := range teachers {
		body := fmt.Sprintf(
			"<h1>Requests waiting</h1><p>Hi %s,</p><p>You have %d unanswered session request(s) for %s. Requests that are not confirmed before that day can no longer be accepted.</p>",
			t.FullName, counts[t.ID], date,
		)
		send(t.FullName, t.Email, "You have pending session requests", body)
	}
	return len(teachers), nil
}
