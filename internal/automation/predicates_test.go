package automation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/marketing-pilot/internal/model"
)

var now = time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)

func due(d time.Duration) *time.Time {
	t := now.Add(d)
	return &t
}

func TestIsDueSoon(t *testing.T) {
	window := 48 * time.Hour
	tests := []struct {
		name string
		task model.Task
		want bool
	}{
		{"no due date", model.Task{Status: model.StatusAssigned}, false},
		{"due exactly now", model.Task{DueDate: due(0)}, true},
		{"due inside window", model.Task{DueDate: due(24 * time.Hour)}, true},
		{"due at window end", model.Task{DueDate: due(window)}, true},
		{"due after window", model.Task{DueDate: due(window + time.Second)}, false},
		{"already overdue", model.Task{DueDate: due(-time.Second)}, false},
		{"done", model.Task{DueDate: due(time.Hour), Status: model.StatusDone}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDueSoon(tt.task, now, window))
		})
	}
}

func TestIsOverdue(t *testing.T) {
	tests := []struct {
		name string
		task model.Task
		want bool
	}{
		{"no due date", model.Task{}, false},
		{"due exactly now", model.Task{DueDate: due(0)}, false},
		{"one second past", model.Task{DueDate: due(-time.Second)}, true},
		{"long past", model.Task{DueDate: due(-30 * 24 * time.Hour)}, true},
		{"future", model.Task{DueDate: due(time.Hour)}, false},
		{"done", model.Task{DueDate: due(-time.Hour), Status: model.StatusDone}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsOverdue(tt.task, now))
		})
	}
}

func TestIsStuck(t *testing.T) {
	after := 72 * time.Hour
	tests := []struct {
		name string
		task model.Task
		want bool
	}{
		{"recent activity", model.Task{LastActivityAt: due(-time.Hour)}, false},
		{"activity exactly at threshold", model.Task{LastActivityAt: due(-after)}, false},
		{"activity past threshold", model.Task{LastActivityAt: due(-after - time.Second)}, true},
		{"never touched, old", model.Task{CreatedAt: now.Add(-5 * 24 * time.Hour)}, true},
		{"never touched, new", model.Task{CreatedAt: now.Add(-time.Hour)}, false},
		{"done", model.Task{LastActivityAt: due(-30 * 24 * time.Hour), Status: model.StatusDone}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsStuck(tt.task, now, after))
		})
	}
}

func TestWeekStart(t *testing.T) {
	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, monday, WeekStart(now, time.UTC))
	assert.Equal(t, monday, WeekStart(monday, time.UTC))
	assert.Equal(t, monday, WeekStart(time.Date(2026, 3, 8, 23, 59, 0, 0, time.UTC), time.UTC))
	assert.Equal(t, monday.AddDate(0, 0, 7), WeekStart(time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), nil))

	// Monday 01:00 in Tokyo is still Sunday in UTC.
	tokyo := time.FixedZone("JST", 9*60*60)
	sundayUTC := time.Date(2026, 3, 8, 16, 0, 0, 0, time.UTC)
	got := WeekStart(sundayUTC, tokyo)
	assert.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, tokyo), got)
}
