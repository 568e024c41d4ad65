package store_test

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/marketing-pilot/internal/model"
	"github.com/nhle/marketing-pilot/internal/store"
	"github.com/nhle/marketing-pilot/tests/testutil"
)

// newFirestoreStore connects to the emulator with a project of its own,
// so tests never see each other's documents.
func newFirestoreStore(t *testing.T) *store.FirestoreStore {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	project := "pilot-test-" + strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
	s, err := store.NewFirestoreStore(context.Background(), project, "")
	require.NoError(t, err)
	s.SetClock(testutil.FixedClock(now))
	t.Cleanup(func() { s.Close() })
	return s
}

func TestFirestore_TasksAndTime(t *testing.T) {
	ctx := context.Background()
	s := newFirestoreStore(t)

	a := testutil.AddTask(t, s, model.Task{Title: "a", AssigneeID: "u1", DueDate: testutil.TimePtr(now.Add(time.Hour))})
	testutil.AddTask(t, s, model.Task{Title: "b", Status: model.StatusDone})

	open, err := s.GetTasks(ctx, store.TaskFilter{ExcludeDone: true})
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, a.ID, open[0].ID)

	require.NoError(t, s.MarkTimerStarted(ctx, a.ID, "u1", now))
	require.NoError(t, s.LogTime(ctx, model.TimeEntry{TaskID: a.ID, UserID: "u1", Seconds: 90, LoggedAt: now}))

	got, err := s.GetTaskByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(90), got.TimeSpentSeconds)
	assert.Nil(t, got.TimerStartedBy)

	entries, err := s.GetTimeEntries(ctx, now.Add(-time.Minute), now.Add(time.Minute))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	require.NoError(t, s.UpdateTaskStatus(ctx, a.ID, model.StatusDone))
	got, err = s.GetTaskByID(ctx, a.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.CompletedAt)

	_, err = s.GetTaskByID(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestFirestore_Notifications(t *testing.T) {
	ctx := context.Background()
	s := newFirestoreStore(t)

	n := model.Notification{UserID: "u1", Type: model.NotificationOverdue, Message: "late"}
	require.NoError(t, s.CreateNotification(ctx, &n))
	require.NoError(t, s.CreateNotification(ctx, &model.Notification{UserID: "u2", Type: model.NotificationStuck, Message: "idle"}))

	list, err := s.GetNotifications(ctx, store.NotificationFilter{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, n.ID, list[0].ID)

	require.NoError(t, s.MarkNotificationRead(ctx, n.ID))
	require.NoError(t, s.MarkNotificationRead(ctx, n.ID))

	unread, err := s.CountNotifications(ctx, store.NotificationFilter{UserID: "u1", UnreadOnly: true})
	require.NoError(t, err)
	assert.Zero(t, unread)

	total, err := s.CountNotifications(ctx, store.NotificationFilter{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	all, err := s.CountNotifications(ctx, store.NotificationFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, all)

	assert.ErrorIs(t, s.MarkNotificationRead(ctx, "missing"), store.ErrNotFound)
}
