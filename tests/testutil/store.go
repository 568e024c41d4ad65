package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/nhle/marketing-pilot/internal/model"
	"github.com/nhle/marketing-pilot/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// FixedClock returns a time source that always reports at.
func FixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

// AddUser inserts a user with the given role and returns it.
func AddUser(t *testing.T, s store.Store, name, role string) model.User {
	t.Helper()

	u := model.User{Name: name, Email: name + "@example.com", Role: role}
	if err := s.UpsertUser(context.Background(), &u); err != nil {
		t.Fatalf("adding user %s: %v", name, err)
	}
	return u
}

// AddClient inserts a client and returns it.
func AddClient(t *testing.T, s store.Store, name string) model.Client {
	t.Helper()

	c := model.Client{Name: name}
	if err := s.UpsertClient(context.Background(), &c); err != nil {
		t.Fatalf("adding client %s: %v", name, err)
	}
	return c
}

// AddTask inserts task and returns it with generated fields filled in.
func AddTask(t *testing.T, s store.Store, task model.Task) model.Task {
	t.Helper()

	if err := s.CreateTask(context.Background(), &task); err != nil {
		t.Fatalf("adding task %q: %v", task.Title, err)
	}
	return task
}

// CountNotifications returns the total number of notifications for user.
func CountNotifications(t *testing.T, s store.Store, userID string) int {
	t.Helper()

	n, err := s.CountNotifications(context.Background(), store.NotificationFilter{UserID: userID})
	if err != nil {
		t.Fatalf("counting notifications: %v", err)
	}
	return n
}

// TimePtr returns a pointer to t.
func TimePtr(t time.Time) *time.Time { return &t }
