package realtime

import "github.com/google/uuid"

func ThreadTopic(pairKey string) string { return "thread:" + pairKey }

func UnreadTopic(userID uuid.UUID) string { return "unread:" + userID.String() }

func AppointmentsTopic(userID uuid.UUID) string { return "appointments:" + userID.String() }

func ToastTopic(userID uuid.UUID) string { return "toasts:" + userID.String() }
