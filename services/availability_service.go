package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/anjiri1684/tutor_booking/database"
	"github.com/anjiri1684/tutor_booking/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm/clause"
)

// Days are the keys of a weekly template, indexed like time.Weekday.
var Days = [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// SlotVocabulary lists every bookable hour in display order.
var SlotVocabulary = []string{
	"09:00 AM", "10:00 AM", "11:00 AM", "12:00 PM",
	"01:00 PM", "02:00 PM", "03:00 PM", "04:00 PM", "05:00 PM",
}

var slotRank = func() map[string]int {
	rank := make(map[string]int, len(SlotVocabulary))
	for i, s := range SlotVocabulary {
		rank[s] = i
	}
	return rank
}()

func IsSlot(label string) bool {
	_, ok := slotRank[label]
	return ok
}

func IsDay(day string) bool {
	for _, d := range Days {
		if d == day {
			return true
		}
	}
	return false
}

// WeeklyTemplate maps a day name to its slot labels. Normalized templates
// carry all seven days and keep each day's slots unique and in vocabulary
// order.
type WeeklyTemplate map[string][]string

func EmptyTemplate() WeeklyTemplate {
	t := make(WeeklyTemplate, len(Days))
	for _, d := range Days {
		t[d] = []string{}
	}
	return t
}

func sortSlots(slots []string) {
	sort.SliceStable(slots, func(i, j int) bool { return slotRank[slots[i]] < slotRank[slots[j]] })
}

func (t WeeklyTemplate) normalize() (WeeklyTemplate, error) {
	out := EmptyTemplate()
	for day, slots := range t {
		if !IsDay(day) {
			return nil, invalid("day", "unknown day "+day)
		}
		seen := make(map[string]bool, len(slots))
		for _, s := range slots {
			if !IsSlot(s) {
				return nil, invalid("slot", "unknown slot "+s)
			}
			if seen[s] {
				continue
			}
			seen[s] = true
			out[day] = append(out[day], s)
		}
		sortSlots(out[day])
	}
	return out, nil
}

// SlotsFor returns the template slots for the weekday of date.
func (t WeeklyTemplate) SlotsFor(date time.Time) []string {
	return t[Days[date.Weekday()]]
}

func GetWeeklyTemplate(ctx context.Context, teacherID uuid.UUID) (WeeklyTemplate, error) {
	var schedule models.TeacherSchedule
	res := database.DB.WithContext(ctx).Where("teacher_id = ?", teacherID).Limit(1).Find(&schedule)
	if res.Error != nil {
		return nil, storeErr("load schedule", "", res.Error)
	}
	if res.RowsAffected == 0 || len(schedule.Availability) == 0 {
		return EmptyTemplate(), nil
	}

	var raw WeeklyTemplate
	if err := json.Unmarshal(schedule.Availability, &raw); err != nil {
		return nil, &StoreError{Op: "decode schedule", Err: err}
	}
	// Stored data is trusted but may predate a vocabulary change.
	out := EmptyTemplate()
	for day, slots := range raw {
		if !IsDay(day) {
			continue
		}
		for _, s := range slots {
			if IsSlot(s) {
				out[day] = append(out[day], s)
			}
		}
		sortSlots(out[day])
	}
	return out, nil
}

// SaveTemplate replaces the availability of a teacher. Other columns of the
// schedule row are left as they are.
func SaveTemplate(ctx context.Context, teacherID uuid.UUID, template WeeklyTemplate) (WeeklyTemplate, error) {
	normalized, err := template.normalize()
	if err != nil {
		return nil, err
	}
	encoded, err := json.Marshal(normalized)
	if err != nil {
		return nil, &StoreError{Op: "encode schedule", Err: err}
	}

	schedule := models.TeacherSchedule{
		TeacherID:    teacherID,
		Availability: datatypes.JSON(encoded),
	}
	err = database.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "teacher_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"availability", "updated_at"}),
	}).Create(&schedule).Error
	if err != nil {
		return nil, storeErr("save schedule", "", err)
	}
	return normalized, nil
}

const maxNoteLength = 500

// GetScheduleNote returns the free-text note shown next to a teacher's
// availability, or "" when there is none.
func GetScheduleNote(ctx context.Context, teacherID uuid.UUID) (string, error) {
	var schedule models.TeacherSchedule
	res := database.DB.WithContext(ctx).Select("note").Where("teacher_id = ?", teacherID).Limit(1).Find(&schedule)
	if res.Error != nil {
		return "", storeErr("load schedule note", "", res.Error)
	}
	return schedule.Note, nil
}

// SaveScheduleNote sets the note without touching the availability.
func SaveScheduleNote(ctx context.Context, teacherID uuid.UUID, note string) (string, error) {
	note = strings.TrimSpace(note)
	if len([]rune(note)) > maxNoteLength {
		return "", invalid("note", fmt.Sprintf("keep the note under %d characters", maxNoteLength))
	}

	schedule := models.TeacherSchedule{TeacherID: teacherID, Note: note}
	err := database.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "teacher_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"note", "updated_at"}),
	}).Create(&schedule).Error
	if err != nil {
		return "", storeErr("save schedule note", "", err)
	}
	return note, nil
}

// SetSlot adds or removes one slot. Applying the same state twice is a no-op.
func SetSlot(ctx context.Context, teacherID uuid.UUID, day, slot string, present bool) (WeeklyTemplate, error) {
	if !IsDay(day) {
		return nil, invalid("day", "unknown day "+day)
	}
	if !IsSlot(slot) {
		return nil, invalid("slot", "unknown slot "+slot)
	}

	template, err := GetWeeklyTemplate(ctx, teacherID)
	if err != nil {
		return nil, err
	}

	slots := template[day]
	idx := -1
	for i, s := range slots {
		if s == slot {
			idx = i
			break
		}
	}
	switch {
	case present && idx < 0:
		slots = append(slots, slot)
		sortSlots(slots)
	case !present && idx >= 0:
		slots = append(slots[:idx], slots[idx+1:]...)
	default:
		return template, nil
	}
	template[day] = slots

	return SaveTemplate(ctx, teacherID, template)
}
