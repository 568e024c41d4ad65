package timer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/marketing-pilot/internal/model"
)

type fakeRecorder struct {
	marks   int
	entries []model.TimeEntry
	markErr error
	logErr  error
}

func (f *fakeRecorder) MarkTimerStarted(context.Context, string, string, time.Time) error {
	f.marks++
	return f.markErr
}

func (f *fakeRecorder) LogTime(_ context.Context, e model.TimeEntry) error {
	if f.logErr != nil {
		return f.logErr
	}
	f.entries = append(f.entries, e)
	return nil
}

// clock is a manually advanced time source.
type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTimer(rec Recorder, userID string) (*Timer, *clock) {
	c := &clock{t: time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)}
	return New(rec, "task-1", userID, WithClock(c.now)), c
}

func TestTimer_Lifecycle(t *testing.T) {
	rec := &fakeRecorder{}
	tm, c := newTimer(rec, "ana")
	ctx := context.Background()

	assert.Equal(t, Idle, tm.State())
	assert.Zero(t, tm.Elapsed())

	require.NoError(t, tm.Start(ctx))
	assert.Equal(t, Running, tm.State())
	assert.Equal(t, 1, rec.marks)

	c.advance(25*time.Minute + 300*time.Millisecond)
	assert.Equal(t, 25*time.Minute+300*time.Millisecond, tm.Elapsed())

	got, err := tm.Stop(ctx)
	require.NoError(t, err)
	assert.Equal(t, 25*time.Minute, got)
	assert.Equal(t, Stopped, tm.State())

	require.Len(t, rec.entries, 1)
	assert.Equal(t, int64(1500), rec.entries[0].Seconds)
	assert.Equal(t, "task-1", rec.entries[0].TaskID)
	assert.Equal(t, "ana", rec.entries[0].UserID)
	assert.Equal(t, c.now(), rec.entries[0].LoggedAt)
}

func TestTimer_ElapsedFollowsWallClock(t *testing.T) {
	tm, c := newTimer(&fakeRecorder{}, "ana")
	require.NoError(t, tm.Start(context.Background()))

	// A long jump, as after a suspended process, is reflected at once.
	c.advance(3 * time.Hour)
	assert.Equal(t, 3*time.Hour, tm.Elapsed())
}

func TestTimer_StopTwicePersistsOnce(t *testing.T) {
	rec := &fakeRecorder{}
	tm, c := newTimer(rec, "ana")
	ctx := context.Background()

	require.NoError(t, tm.Start(ctx))
	c.advance(10 * time.Second)
	_, err := tm.Stop(ctx)
	require.NoError(t, err)

	c.advance(time.Hour)
	got, err := tm.Stop(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, got)
	assert.Len(t, rec.entries, 1)
	assert.Equal(t, 10*time.Second, tm.Elapsed())
}

func TestTimer_NoPersistUnderOneSecond(t *testing.T) {
	rec := &fakeRecorder{}
	tm, c := newTimer(rec, "ana")
	ctx := context.Background()

	require.NoError(t, tm.Start(ctx))
	c.advance(900 * time.Millisecond)
	got, err := tm.Stop(ctx)
	require.NoError(t, err)
	assert.Zero(t, got)
	assert.Empty(t, rec.entries)
}

func TestTimer_ClockGoingBackwards(t *testing.T) {
	rec := &fakeRecorder{}
	tm, c := newTimer(rec, "ana")
	ctx := context.Background()

	require.NoError(t, tm.Start(ctx))
	c.advance(-time.Minute)
	assert.Zero(t, tm.Elapsed())
	_, err := tm.Stop(ctx)
	require.NoError(t, err)
	assert.Empty(t, rec.entries)
}

func TestTimer_StopIdle(t *testing.T) {
	tm, _ := newTimer(&fakeRecorder{}, "ana")
	_, err := tm.Stop(context.Background())
	assert.ErrorIs(t, err, ErrNotRunning)
}

func TestTimer_StartTwice(t *testing.T) {
	tm, _ := newTimer(&fakeRecorder{}, "ana")
	require.NoError(t, tm.Start(context.Background()))
	assert.ErrorIs(t, tm.Start(context.Background()), ErrAlreadyStarted)
}

func TestTimer_UnknownUserSkipsMarker(t *testing.T) {
	rec := &fakeRecorder{}
	tm, _ := newTimer(rec, "")
	require.NoError(t, tm.Start(context.Background()))
	assert.Zero(t, rec.marks)
}

func TestTimer_MarkerFailureKeepsRunning(t *testing.T) {
	rec := &fakeRecorder{markErr: errors.New("offline")}
	tm, _ := newTimer(rec, "ana")
	err := tm.Start(context.Background())
	require.Error(t, err)
	assert.Equal(t, Running, tm.State())
}

func TestTimer_PersistFailureNotRetried(t *testing.T) {
	boom := errors.New("offline")
	rec := &fakeRecorder{logErr: boom}
	tm, c := newTimer(rec, "ana")
	ctx := context.Background()

	require.NoError(t, tm.Start(ctx))
	c.advance(time.Minute)
	got, err := tm.Stop(ctx)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, time.Minute, got)

	rec.logErr = nil
	_, err = tm.Stop(ctx)
	require.NoError(t, err)
	assert.Empty(t, rec.entries)
}
