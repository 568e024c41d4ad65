package model

import (
	"errors"
	"fmt"
)

// CheckType names an automation routine that can be triggered.
type CheckType string

const (
	CheckAll          CheckType = "all"
	CheckDueSoon      CheckType = "due_soon"
	CheckOverdue      CheckType = "overdue"
	CheckStuck        CheckType = "stuck"
	CheckWeeklyReport CheckType = "weekly_report"
)

// CheckTypes lists every accepted value in the order "all" runs them,
// with "all" itself first.
var CheckTypes = []CheckType{
	CheckAll,
	CheckDueSoon,
	CheckOverdue,
	CheckStuck,
	CheckWeeklyReport,
}

// ErrUnknownCheckType is returned by ParseCheckType for values outside CheckTypes.
var ErrUnknownCheckType = errors.New("unknown automation type")

// ParseCheckType validates a raw type string.
func ParseCheckType(s string) (CheckType, error) {
	for _, ct := range CheckTypes {
		if string(ct) == s {
			return ct, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCheckType, s)
}

// RunResult is the in-memory summary of one automation run. It is
// returned to the caller and never persisted.
type RunResult struct {
	Checked              int      `json:"checked"`
	Flagged              int      `json:"flagged"`
	NotificationsCreated int      `json:"notificationsCreated"`
	TaskIDs              []string `json:"taskIds"`

	// Breakdown holds the per-routine results of an "all" run.
	Breakdown map[CheckType]*RunResult `json:"breakdown,omitempty"`

	// Reports holds the per-user summaries of a weekly report run.
	Reports []UserReport `json:"reports,omitempty"`
}

// NewRunResult returns an empty result with a non-nil TaskIDs slice so it
// encodes as [] rather than null.
func NewRunResult() *RunResult {
	return &RunResult{TaskIDs: []string{}}
}

// Add folds other's counters and task IDs into r.
func (r *RunResult) Add(other *RunResult) {
	r.Checked += other.Checked
	r.Flagged += other.Flagged
	r.NotificationsCreated += other.NotificationsCreated
	r.TaskIDs = append(r.TaskIDs, other.TaskIDs...)
	r.Reports = append(r.Reports, other.Reports...)
}

// UserReport is one user's weekly aggregate.
type UserReport struct {
	UserID           string `json:"userId"`
	UserName         string `json:"userName"`
	TasksCompleted   int    `json:"tasksCompleted"`
	SecondsLogged    int64  `json:"secondsLogged"`
	TasksOverdue     int    `json:"tasksOverdue"`
	NotificationSent bool   `json:"notificationSent"`
	EmailSent        bool   `json:"emailSent"`
}
