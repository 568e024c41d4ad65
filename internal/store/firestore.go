package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/nhle/marketing-pilot/internal/model"
)

// Firestore collection names.
const (
	colTasks         = "tasks"
	colProjects      = "projects"
	colClients       = "clients"
	colUsers         = "users"
	colTimeEntries   = "time_entries"
	colNotifications = "notifications"
)

// FirestoreStore implements the Store interface on Cloud Firestore.
//
// Notification listing orders by created_at within a user, which needs the
// composite index (user_id ASC, created_at DESC) and, for unread-only
// listing, (user_id ASC, read ASC, created_at DESC).
type FirestoreStore struct {
	client *firestore.Client
	now    func() time.Time
}

var _ Store = (*FirestoreStore)(nil)

// NewFirestoreStore connects to the Firestore database of projectID. When
// credentialsFile is empty, Application Default Credentials are used (or
// the emulator, if FIRESTORE_EMULATOR_HOST is set).
func NewFirestoreStore(
	ctx context.Context,
	projectID, credentialsFile string,
) (*FirestoreStore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("opening firestore client for %s: %w", projectID, err)
	}
	return &FirestoreStore{client: client, now: time.Now}, nil
}

// SetClock overrides the time source used for store-managed timestamps.
func (s *FirestoreStore) SetClock(now func() time.Time) {
	s.now = now
}

// Close releases the underlying client.
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

func (s *FirestoreStore) col(name string) *firestore.CollectionRef {
	return s.client.Collection(name)
}

// docError maps a gRPC NotFound into ErrNotFound.
func docError(err error, kind, id string) error {
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return fmt.Errorf("getting %s %s: %w", kind, id, err)
}

// each runs fn for every document the query yields.
func each(ctx context.Context, q firestore.Query, fn func(*firestore.DocumentSnapshot) error) error {
	it := q.Documents(ctx)
	defer it.Stop()
	for {
		doc, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(doc); err != nil {
			return err
		}
	}
}

// === Tasks ===

func (s *FirestoreStore) CreateTask(ctx context.Context, task *model.Task) error {
	if err := validateTask(task, s.now().UTC()); err != nil {
		return err
	}
	if _, err := s.col(colTasks).Doc(task.ID).Create(ctx, task); err != nil {
		return fmt.Errorf("creating task: %w", err)
	}
	return nil
}

func (s *FirestoreStore) GetTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error) {
	q := s.col(colTasks).Query
	if filter.AssigneeID != nil {
		q = q.Where("assignee_id", "==", *filter.AssigneeID)
	}
	if filter.ClientID != nil {
		q = q.Where("client_id", "==", *filter.ClientID)
	}
	if filter.ProjectID != nil {
		q = q.Where("project_id", "==", *filter.ProjectID)
	}
	if filter.Status != nil {
		q = q.Where("status", "==", *filter.Status)
	}

	var tasks []model.Task
	err := each(ctx, q, func(doc *firestore.DocumentSnapshot) error {
		var t model.Task
		if err := doc.DataTo(&t); err != nil {
			return fmt.Errorf("decoding task %s: %w", doc.Ref.ID, err)
		}
		t.ID = doc.Ref.ID
		if filter.ExcludeDone && t.IsComplete() {
			return nil
		}
		tasks = append(tasks, t)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}

	sort.SliceStable(tasks, func(i, j int) bool {
		if !tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
		}
		return tasks[i].ID < tasks[j].ID
	})
	if filter.Limit > 0 && len(tasks) > filter.Limit {
		tasks = tasks[:filter.Limit]
	}
	return tasks, nil
}

func (s *FirestoreStore) GetTaskByID(ctx context.Context, id string) (*model.Task, error) {
	snap, err := s.col(colTasks).Doc(id).Get(ctx)
	if err != nil {
		return nil, docError(err, "task", id)
	}
	var t model.Task
	if err := snap.DataTo(&t); err != nil {
		return nil, fmt.Errorf("decoding task %s: %w", id, err)
	}
	t.ID = snap.Ref.ID
	return &t, nil
}

func (s *FirestoreStore) UpdateTaskStatus(ctx context.Context, id, newStatus string) error {
	if !model.ValidTaskStatus(newStatus) {
		return fmt.Errorf("invalid task status %q", newStatus)
	}
	ref := s.col(colTasks).Doc(id)
	now := s.now().UTC()

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return docError(err, "task", id)
		}
		var t model.Task
		if err := snap.DataTo(&t); err != nil {
			return fmt.Errorf("decoding task %s: %w", id, err)
		}

		var completedAt *time.Time
		if newStatus == model.StatusDone {
			completedAt = t.CompletedAt
			if completedAt == nil {
				completedAt = &now
			}
		}
		return tx.Update(ref, []firestore.Update{
			{Path: "status", Value: newStatus},
			{Path: "completed_at", Value: completedAt},
			{Path: "last_activity_at", Value: now},
			{Path: "updated_at", Value: now},
		})
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("updating status of task %s: %w", id, err)
	}
	return nil
}

// updateTask applies field updates to an existing task document.
func (s *FirestoreStore) updateTask(ctx context.Context, id string, updates []firestore.Update) error {
	if _, err := s.col(colTasks).Doc(id).Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("task %s: %w", id, ErrNotFound)
		}
		return fmt.Errorf("updating task %s: %w", id, err)
	}
	return nil
}

func (s *FirestoreStore) AssignTask(ctx context.Context, id, assigneeID string) error {
	now := s.now().UTC()
	return s.updateTask(ctx, id, []firestore.Update{
		{Path: "assignee_id", Value: assigneeID},
		{Path: "last_activity_at", Value: now},
		{Path: "updated_at", Value: now},
	})
}

func (s *FirestoreStore) UpdateTaskDueDate(ctx context.Context, id string, due *time.Time) error {
	now := s.now().UTC()
	return s.updateTask(ctx, id, []firestore.Update{
		{Path: "due_date", Value: due},
		{Path: "last_activity_at", Value: now},
		{Path: "updated_at", Value: now},
	})
}

// === Time tracking ===

func (s *FirestoreStore) MarkTimerStarted(ctx context.Context, taskID, userID string, at time.Time) error {
	at = at.UTC()
	return s.updateTask(ctx, taskID, []firestore.Update{
		{Path: "timer_started_at", Value: at},
		{Path: "timer_started_by", Value: userID},
		{Path: "last_activity_at", Value: at},
		{Path: "updated_at", Value: s.now().UTC()},
	})
}

func (s *FirestoreStore) LogTime(ctx context.Context, entry model.TimeEntry) error {
	if entry.Seconds <= 0 {
		return fmt.Errorf("logged time must be positive, got %d seconds", entry.Seconds)
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.LoggedAt.IsZero() {
		entry.LoggedAt = s.now()
	}
	entry.LoggedAt = entry.LoggedAt.UTC()

	taskRef := s.col(colTasks).Doc(entry.TaskID)
	entryRef := s.col(colTimeEntries).Doc(entry.ID)

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(taskRef); err != nil {
			return docError(err, "task", entry.TaskID)
		}
		if err := tx.Update(taskRef, []firestore.Update{
			{Path: "time_spent_seconds", Value: firestore.Increment(entry.Seconds)},
			{Path: "timer_started_at", Value: nil},
			{Path: "timer_started_by", Value: nil},
			{Path: "last_activity_at", Value: entry.LoggedAt},
			{Path: "updated_at", Value: entry.LoggedAt},
		}); err != nil {
			return err
		}
		return tx.Create(entryRef, entry)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("logging time on task %s: %w", entry.TaskID, err)
	}
	return nil
}

func (s *FirestoreStore) GetTimeEntries(ctx context.Context, from, to time.Time) ([]model.TimeEntry, error) {
	q := s.col(colTimeEntries).
		Where("logged_at", ">=", from.UTC()).
		Where("logged_at", "<=", to.UTC()).
		OrderBy("logged_at", firestore.Asc)

	var entries []model.TimeEntry
	err := each(ctx, q, func(doc *firestore.DocumentSnapshot) error {
		var e model.TimeEntry
		if err := doc.DataTo(&e); err != nil {
			return fmt.Errorf("decoding time entry %s: %w", doc.Ref.ID, err)
		}
		e.ID = doc.Ref.ID
		entries = append(entries, e)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("querying time entries: %w", err)
	}
	return entries, nil
}

// === Projects ===

func (s *FirestoreStore) CreateProject(ctx context.Context, project *model.Project) error {
	if strings.TrimSpace(project.Name) == "" {
		return fmt.Errorf("project name must not be empty")
	}
	if project.ID == "" {
		project.ID = uuid.New().String()
	}
	if project.Status == "" {
		project.Status = "active"
	}
	if project.CreatedAt.IsZero() {
		project.CreatedAt = s.now().UTC()
	}
	if _, err := s.col(colProjects).Doc(project.ID).Create(ctx, project); err != nil {
		return fmt.Errorf("creating project: %w", err)
	}
	return nil
}

func (s *FirestoreStore) GetProjectByID(ctx context.Context, id string) (*model.Project, error) {
	snap, err := s.col(colProjects).Doc(id).Get(ctx)
	if err != nil {
		return nil, docError(err, "project", id)
	}
	var p model.Project
	if err := snap.DataTo(&p); err != nil {
		return nil, fmt.Errorf("decoding project %s: %w", id, err)
	}
	p.ID = snap.Ref.ID
	return &p, nil
}

func (s *FirestoreStore) GetProjects(ctx context.Context) ([]model.Project, error) {
	var projects []model.Project
	err := each(ctx, s.col(colProjects).OrderBy("name", firestore.Asc), func(doc *firestore.DocumentSnapshot) error {
		var p model.Project
		if err := doc.DataTo(&p); err != nil {
			return fmt.Errorf("decoding project %s: %w", doc.Ref.ID, err)
		}
		p.ID = doc.Ref.ID
		projects = append(projects, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("querying projects: %w", err)
	}
	return projects, nil
}

// === Directory ===

// keepCreatedAt reuses the stored creation time of an existing document
// so upserts do not reset it.
func (s *FirestoreStore) keepCreatedAt(ctx context.Context, ref *firestore.DocumentRef, createdAt *time.Time) error {
	if !createdAt.IsZero() {
		return nil
	}
	*createdAt = s.now().UTC()
	snap, err := ref.Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil
	}
	if err != nil {
		return err
	}
	if v, err := snap.DataAt("created_at"); err == nil {
		if t, ok := v.(time.Time); ok {
			*createdAt = t
		}
	}
	return nil
}

func (s *FirestoreStore) UpsertClient(ctx context.Context, client *model.Client) error {
	if strings.TrimSpace(client.Name) == "" {
		return fmt.Errorf("client name must not be empty")
	}
	if client.ID == "" {
		client.ID = uuid.New().String()
	}
	ref := s.col(colClients).Doc(client.ID)
	if err := s.keepCreatedAt(ctx, ref, &client.CreatedAt); err != nil {
		return fmt.Errorf("upserting client %s: %w", client.ID, err)
	}
	if _, err := ref.Set(ctx, client); err != nil {
		return fmt.Errorf("upserting client %s: %w", client.ID, err)
	}
	return nil
}

func (s *FirestoreStore) GetClientByID(ctx context.Context, id string) (*model.Client, error) {
	snap, err := s.col(colClients).Doc(id).Get(ctx)
	if err != nil {
		return nil, docError(err, "client", id)
	}
	var c model.Client
	if err := snap.DataTo(&c); err != nil {
		return nil, fmt.Errorf("decoding client %s: %w", id, err)
	}
	c.ID = snap.Ref.ID
	return &c, nil
}

func (s *FirestoreStore) GetClients(ctx context.Context) ([]model.Client, error) {
	var clients []model.Client
	err := each(ctx, s.col(colClients).OrderBy("name", firestore.Asc), func(doc *firestore.DocumentSnapshot) error {
		var c model.Client
		if err := doc.DataTo(&c); err != nil {
			return fmt.Errorf("decoding client %s: %w", doc.Ref.ID, err)
		}
		c.ID = doc.Ref.ID
		clients = append(clients, c)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("querying clients: %w", err)
	}
	return clients, nil
}

func (s *FirestoreStore) UpsertUser(ctx context.Context, user *model.User) error {
	if err := validateUser(user); err != nil {
		return err
	}
	ref := s.col(colUsers).Doc(user.ID)
	if err := s.keepCreatedAt(ctx, ref, &user.CreatedAt); err != nil {
		return fmt.Errorf("upserting user %s: %w", user.ID, err)
	}
	if _, err := ref.Set(ctx, user); err != nil {
		return fmt.Errorf("upserting user %s: %w", user.ID, err)
	}
	return nil
}

func (s *FirestoreStore) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	snap, err := s.col(colUsers).Doc(id).Get(ctx)
	if err != nil {
		return nil, docError(err, "user", id)
	}
	var u model.User
	if err := snap.DataTo(&u); err != nil {
		return nil, fmt.Errorf("decoding user %s: %w", id, err)
	}
	u.ID = snap.Ref.ID
	return &u, nil
}

func (s *FirestoreStore) GetUsers(ctx context.Context, filter UserFilter) ([]model.User, error) {
	q := s.col(colUsers).Query
	if filter.Role != nil {
		q = q.Where("role", "==", *filter.Role)
	}

	var users []model.User
	err := each(ctx, q, func(doc *firestore.DocumentSnapshot) error {
		var u model.User
		if err := doc.DataTo(&u); err != nil {
			return fmt.Errorf("decoding user %s: %w", doc.Ref.ID, err)
		}
		u.ID = doc.Ref.ID
		users = append(users, u)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	sort.SliceStable(users, func(i, j int) bool {
		if users[i].Name != users[j].Name {
			return users[i].Name < users[j].Name
		}
		return users[i].ID < users[j].ID
	})
	return users, nil
}

// === Notifications ===

func (s *FirestoreStore) CreateNotification(ctx context.Context, n *model.Notification) error {
	if err := validateNotification(n); err != nil {
		return err
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now().UTC()
	}
	if _, err := s.col(colNotifications).Doc(n.ID).Create(ctx, n); err != nil {
		return fmt.Errorf("creating notification: %w", err)
	}
	return nil
}

func (s *FirestoreStore) GetNotificationByID(ctx context.Context, id string) (*model.Notification, error) {
	snap, err := s.col(colNotifications).Doc(id).Get(ctx)
	if err != nil {
		return nil, docError(err, "notification", id)
	}
	var n model.Notification
	if err := snap.DataTo(&n); err != nil {
		return nil, fmt.Errorf("decoding notification %s: %w", id, err)
	}
	n.ID = snap.Ref.ID
	return &n, nil
}

func (s *FirestoreStore) notificationQuery(filter NotificationFilter) firestore.Query {
	q := s.col(colNotifications).Query
	if filter.UserID != "" {
		q = q.Where("user_id", "==", filter.UserID)
	}
	if filter.UnreadOnly {
		q = q.Where("read", "==", false)
	}
	return q
}

func (s *FirestoreStore) GetNotifications(ctx context.Context, filter NotificationFilter) ([]model.Notification, error) {
	q := s.notificationQuery(filter).OrderBy("created_at", firestore.Desc)
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var notifications []model.Notification
	err := each(ctx, q, func(doc *firestore.DocumentSnapshot) error {
		var n model.Notification
		if err := doc.DataTo(&n); err != nil {
			return fmt.Errorf("decoding notification %s: %w", doc.Ref.ID, err)
		}
		n.ID = doc.Ref.ID
		notifications = append(notifications, n)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("querying notifications: %w", err)
	}
	return notifications, nil
}

// CountNotifications runs a server-side count aggregation.
func (s *FirestoreStore) CountNotifications(ctx context.Context, filter NotificationFilter) (int, error) {
	q := s.notificationQuery(filter)
	res, err := q.NewAggregationQuery().WithCount("count").Get(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting notifications: %w", err)
	}
	v, ok := res["count"].(*firestorepb.Value)
	if !ok {
		return 0, fmt.Errorf("counting notifications: unexpected result %v", res["count"])
	}
	return int(v.GetIntegerValue()), nil
}

// MarkNotificationRead flips read to true inside a transaction so the
// first read_at is kept when two callers race.
func (s *FirestoreStore) MarkNotificationRead(ctx context.Context, id string) error {
	ref := s.col(colNotifications).Doc(id)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return docError(err, "notification", id)
		}
		read, err := snap.DataAt("read")
		if err == nil {
			if b, ok := read.(bool); ok && b {
				return nil
			}
		}
		return tx.Update(ref, []firestore.Update{
			{Path: "read", Value: true},
			{Path: "read_at", Value: s.now().UTC()},
		})
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("marking notification %s as read: %w", id, err)
	}
	return nil
}
