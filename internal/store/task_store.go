package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/marketing-pilot/internal/model"
)

// validateTask applies the field rules shared by every backend and fills
// defaults for a task about to be created.
func validateTask(task *model.Task, now time.Time) error {
	if strings.TrimSpace(task.Title) == "" {
		return fmt.Errorf("task title must not be empty")
	}
	if task.Status == "" {
		task.Status = model.StatusAssigned
	}
	if !model.ValidTaskStatus(task.Status) {
		return fmt.Errorf("invalid task status %q", task.Status)
	}
	if task.TimeSpentSeconds < 0 {
		return fmt.Errorf("time spent must not be negative")
	}
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now
	if task.Status == model.StatusDone && task.CompletedAt == nil {
		task.CompletedAt = &now
	}
	return nil
}

// CreateTask inserts a new task. Generates a UUID if ID is empty and
// writes the generated values back into task.
func (s *SQLiteStore) CreateTask(ctx context.Context, task *model.Task) error {
	if err := validateTask(task, s.timestamp()); err != nil {
		return err
	}
	task.CreatedAt = dbTime(task.CreatedAt)
	task.DueDate = dbTimePtr(task.DueDate)
	task.LastActivityAt = dbTimePtr(task.LastActivityAt)
	task.CompletedAt = dbTimePtr(task.CompletedAt)

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO tasks (
			id, title, description, assignee_id, client_id, project_id,
			due_date, status, last_activity_at, time_spent_seconds,
			timer_started_at, timer_started_by, completed_at,
			created_at, updated_at
		) VALUES (
			:id, :title, :description, :assignee_id, :client_id, :project_id,
			:due_date, :status, :last_activity_at, :time_spent_seconds,
			:timer_started_at, :timer_started_by, :completed_at,
			:created_at, :updated_at
		)`, task)
	if err != nil {
		return fmt.Errorf("creating task: %w", err)
	}
	return nil
}

// GetTasks retrieves tasks matching the filter, oldest first.
func (s *SQLiteStore) GetTasks(
	ctx context.Context,
	filter TaskFilter,
) ([]model.Task, error) {
	var conditions []string
	var args []interface{}

	if filter.AssigneeID != nil {
		conditions = append(conditions, "assignee_id = ?")
		args = append(args, *filter.AssigneeID)
	}
	if filter.ClientID != nil {
		conditions = append(conditions, "client_id = ?")
		args = append(args, *filter.ClientID)
	}
	if filter.ProjectID != nil {
		conditions = append(conditions, "project_id = ?")
		args = append(args, *filter.ProjectID)
	}
	if filter.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, *filter.Status)
	}
	if filter.ExcludeDone {
		conditions = append(conditions, "status != ?")
		args = append(args, model.StatusDone)
	}

	query := "SELECT * FROM tasks"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at ASC, id ASC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	var tasks []model.Task
	if err := s.db.SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	return tasks, nil
}

// GetTaskByID retrieves a single task by its ID.
func (s *SQLiteStore) GetTaskByID(
	ctx context.Context,
	id string,
) (*model.Task, error) {
	var task model.Task
	if err := s.db.GetContext(ctx, &task, "SELECT * FROM tasks WHERE id = ?", id); err != nil {
		return nil, notFound(err, "task", id)
	}
	return &task, nil
}

// UpdateTaskStatus moves a task to a new workflow state, managing
// completed_at and bumping the activity timestamp.
func (s *SQLiteStore) UpdateTaskStatus(ctx context.Context, id, status string) error {
	if !model.ValidTaskStatus(status) {
		return fmt.Errorf("invalid task status %q", status)
	}
	now := s.timestamp()

	var completedAt *time.Time
	if status == model.StatusDone {
		completedAt = &now
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET
			status = ?,
			completed_at = CASE WHEN ? = 'done' THEN COALESCE(completed_at, ?) ELSE NULL END,
			last_activity_at = ?, updated_at = ?
		WHERE id = ?`,
		status, status, completedAt, now, now, id,
	)
	if err != nil {
		return fmt.Errorf("updating status of task %s: %w", id, err)
	}
	return requireRow(result, "task", id)
}

// AssignTask sets the task's assignee.
func (s *SQLiteStore) AssignTask(ctx context.Context, id, assigneeID string) error {
	now := s.timestamp()
	result, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET assignee_id = ?, last_activity_at = ?, updated_at = ?
		WHERE id = ?`,
		assigneeID, now, now, id,
	)
	if err != nil {
		return fmt.Errorf("assigning task %s: %w", id, err)
	}
	return requireRow(result, "task", id)
}

// UpdateTaskDueDate sets or clears the due date.
func (s *SQLiteStore) UpdateTaskDueDate(ctx context.Context, id string, due *time.Time) error {
	now := s.timestamp()
	result, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET due_date = ?, last_activity_at = ?, updated_at = ?
		WHERE id = ?`,
		dbTimePtr(due), now, now, id,
	)
	if err != nil {
		return fmt.Errorf("updating due date of task %s: %w", id, err)
	}
	return requireRow(result, "task", id)
}

// MarkTimerStarted records who started a timer on the task and when.
func (s *SQLiteStore) MarkTimerStarted(
	ctx context.Context,
	taskID, userID string,
	at time.Time,
) error {
	at = dbTime(at)
	result, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET timer_started_at = ?, timer_started_by = ?,
			last_activity_at = ?, updated_at = ?
		WHERE id = ?`,
		at, userID, at, s.timestamp(), taskID,
	)
	if err != nil {
		return fmt.Errorf("marking timer started on task %s: %w", taskID, err)
	}
	return requireRow(result, "task", taskID)
}

// LogTime adds entry.Seconds to the task's accumulated time, records the
// entry and clears the running-timer marker, in one transaction.
func (s *SQLiteStore) LogTime(ctx context.Context, entry model.TimeEntry) error {
	if entry.Seconds <= 0 {
		return fmt.Errorf("logged time must be positive, got %d seconds", entry.Seconds)
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.LoggedAt.IsZero() {
		entry.LoggedAt = s.now()
	}
	entry.LoggedAt = dbTime(entry.LoggedAt)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE tasks SET
			time_spent_seconds = time_spent_seconds + ?,
			timer_started_at = NULL, timer_started_by = NULL,
			last_activity_at = ?, updated_at = ?
		WHERE id = ?`,
		entry.Seconds, entry.LoggedAt, entry.LoggedAt, entry.TaskID,
	)
	if err != nil {
		return fmt.Errorf("adding time to task %s: %w", entry.TaskID, err)
	}
	if err := requireRow(result, "task", entry.TaskID); err != nil {
		return err
	}

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO time_entries (id, task_id, user_id, seconds, logged_at)
		VALUES (:id, :task_id, :user_id, :seconds, :logged_at)`, entry)
	if err != nil {
		return fmt.Errorf("recording time entry: %w", err)
	}

	return tx.Commit()
}

// GetTimeEntries returns entries logged between from and to, inclusive.
func (s *SQLiteStore) GetTimeEntries(
	ctx context.Context,
	from, to time.Time,
) ([]model.TimeEntry, error) {
	var entries []model.TimeEntry
	err := s.db.SelectContext(ctx, &entries, `
		SELECT * FROM time_entries
		WHERE logged_at >= ? AND logged_at <= ?
		ORDER BY logged_at`,
		dbTime(from), dbTime(to),
	)
	if err != nil {
		return nil, fmt.Errorf("querying time entries: %w", err)
	}
	return entries, nil
}
