package store

import (
	"context"
	"errors"
	"time"

	"github.com/nhle/marketing-pilot/internal/model"
)

// ErrNotFound is wrapped by every lookup that matches no record.
var ErrNotFound = errors.New("not found")

// TaskFilter controls filtering for task queries. Zero values mean "no
// constraint".
type TaskFilter struct {
	AssigneeID  *string
	ClientID    *string
	ProjectID   *string
	Status      *string
	ExcludeDone bool
	Limit       int
}

// NotificationFilter controls filtering for notification queries.
type NotificationFilter struct {
	UserID     string
	UnreadOnly bool
	Limit      int
}

// UserFilter controls filtering for user directory queries.
type UserFilter struct {
	Role *string
}

// Store defines the persistence interface for tasks, projects, the
// client/user directories, time entries and notifications.
type Store interface {
	// === Tasks ===

	CreateTask(ctx context.Context, task *model.Task) error
	GetTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error)
	GetTaskByID(ctx context.Context, id string) (*model.Task, error)
	UpdateTaskStatus(ctx context.Context, id, status string) error
	AssignTask(ctx context.Context, id, assigneeID string) error
	UpdateTaskDueDate(ctx context.Context, id string, due *time.Time) error

	// === Time tracking ===

	MarkTimerStarted(ctx context.Context, taskID, userID string, at time.Time) error
	LogTime(ctx context.Context, entry model.TimeEntry) error
	GetTimeEntries(ctx context.Context, from, to time.Time) ([]model.TimeEntry, error)

	// === Projects ===

	CreateProject(ctx context.Context, project *model.Project) error
	GetProjectByID(ctx context.Context, id string) (*model.Project, error)
	GetProjects(ctx context.Context) ([]model.Project, error)

	// === Directory ===

	UpsertClient(ctx context.Context, client *model.Client) error
	GetClientByID(ctx context.Context, id string) (*model.Client, error)
	GetClients(ctx context.Context) ([]model.Client, error)
	UpsertUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUsers(ctx context.Context, filter UserFilter) ([]model.User, error)

	// === Notifications ===

	CreateNotification(ctx context.Context, n *model.Notification) error
	GetNotificationByID(ctx context.Context, id string) (*model.Notification, error)
	GetNotifications(ctx context.Context, filter NotificationFilter) ([]model.Notification, error)
	CountNotifications(ctx context.Context, filter NotificationFilter) (int, error)
	MarkNotificationRead(ctx context.Context, id string) error

	Close() error
}

// GetEntity loads the task or project a reference points at.
func GetEntity(ctx context.Context, s Store, ref model.EntityRef) (model.Entity, error) {
	switch ref.Kind {
	case model.EntityKindTask:
		t, err := s.GetTaskByID(ctx, ref.ID)
		if err != nil {
			return model.Entity{}, err
		}
		return model.TaskEntity(*t), nil
	case model.EntityKindProject:
		p, err := s.GetProjectByID(ctx, ref.ID)
		if err != nil {
			return model.Entity{}, err
		}
		return model.ProjectEntity(*p), nil
	}
	return model.Entity{}, errors.New("entity reference has no kind")
}
