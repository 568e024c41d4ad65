package automation

import (
	"time"

	"github.com/nhle/marketing-pilot/internal/model"
)

// IsDueSoon reports whether an open task is due within window of now.
// Both ends are inclusive, so a task due exactly now is due soon and not
// yet overdue.
func IsDueSoon(t model.Task, now time.Time, window time.Duration) bool {
	if t.IsComplete() || t.DueDate == nil {
		return false
	}
	due := *t.DueDate
	return !due.Before(now) && !due.After(now.Add(window))
}

// IsOverdue reports whether an open task's due date is strictly in the past.
func IsOverdue(t model.Task, now time.Time) bool {
	if t.IsComplete() || t.DueDate == nil {
		return false
	}
	return t.DueDate.Before(now)
}

// IsStuck reports whether an open task has seen no activity for longer
// than after.
func IsStuck(t model.Task, now time.Time, after time.Duration) bool {
	if t.IsComplete() {
		return false
	}
	return t.ActivityAt().Before(now.Add(-after))
}

// WeekStart returns Monday 00:00 of the week containing t, in loc.
func WeekStart(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	// time.Weekday has Sunday = 0; shift so Monday = 0.
	offset := (int(local.Weekday()) + 6) % 7
	y, m, d := local.Date()
	return time.Date(y, m, d-offset, 0, 0, 0, 0, loc)
}
