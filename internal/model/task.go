package model

import "time"

// Task workflow states. A task moves assigned → in_progress → in_review → done.
const (
	StatusAssigned   = "assigned"
	StatusInProgress = "in_progress"
	StatusInReview   = "in_review"
	StatusDone       = "done"
)

// ValidTaskStatus reports whether s is one of the workflow states.
func ValidTaskStatus(s string) bool {
	switch s {
	case StatusAssigned, StatusInProgress, StatusInReview, StatusDone:
		return true
	}
	return false
}

// Task is a unit of work assigned to a team member for a client.
type Task struct {
	// ID is the unique identifier for this task.
	ID string `json:"id" db:"id" firestore:"-"`

	// Title is the human-readable summary of the task.
	Title string `json:"title" db:"title" firestore:"title"`

	// Description is the full body text.
	Description string `json:"description" db:"description" firestore:"description"`

	// AssigneeID references the user responsible for the task.
	AssigneeID string `json:"assignee_id" db:"assignee_id" firestore:"assignee_id"`

	// ClientID references the client the work is done for.
	ClientID string `json:"client_id" db:"client_id" firestore:"client_id"`

	// ProjectID optionally groups the task under a project.
	ProjectID *string `json:"project_id,omitempty" db:"project_id" firestore:"project_id"`

	// DueDate is when the task must be finished. Tasks without one are
	// never due soon or overdue.
	DueDate *time.Time `json:"due_date,omitempty" db:"due_date" firestore:"due_date"`

	// Status is the workflow state (use Status* constants).
	Status string `json:"status" db:"status" firestore:"status"`

	// LastActivityAt is bumped by every user action on the task and is
	// what the stuck check looks at.
	LastActivityAt *time.Time `json:"last_activity_at,omitempty" db:"last_activity_at" firestore:"last_activity_at"`

	// TimeSpentSeconds is the accumulated tracked time.
	TimeSpentSeconds int64 `json:"time_spent_seconds" db:"time_spent_seconds" firestore:"time_spent_seconds"`

	// TimerStartedAt and TimerStartedBy mark a running timer so other
	// viewers can see someone is working on the task.
	TimerStartedAt *time.Time `json:"timer_started_at,omitempty" db:"timer_started_at" firestore:"timer_started_at"`
	TimerStartedBy *string    `json:"timer_started_by,omitempty" db:"timer_started_by" firestore:"timer_started_by"`

	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at" firestore:"completed_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at" firestore:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at" firestore:"updated_at"`
}

// IsComplete reports whether the task has reached the done state.
func (t Task) IsComplete() bool { return t.Status == StatusDone }

// ActivityAt returns the last activity timestamp, falling back to the
// creation time for tasks nobody has touched yet.
func (t Task) ActivityAt() time.Time {
	if t.LastActivityAt != nil {
		return *t.LastActivityAt
	}
	return t.CreatedAt
}

// TimeSpent returns the accumulated tracked time as a duration.
func (t Task) TimeSpent() time.Duration {
	return time.Duration(t.TimeSpentSeconds) * time.Second
}

// TimeEntry records one stopped timer session against a task.
type TimeEntry struct {
	ID       string    `json:"id" db:"id" firestore:"-"`
	TaskID   string    `json:"task_id" db:"task_id" firestore:"task_id"`
	UserID   string    `json:"user_id" db:"user_id" firestore:"user_id"`
	Seconds  int64     `json:"seconds" db:"seconds" firestore:"seconds"`
	LoggedAt time.Time `json:"logged_at" db:"logged_at" firestore:"logged_at"`
}
