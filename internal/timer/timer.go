// Package timer implements the Pomodoro stopwatch attached to a task.
//
// A Timer moves idle → running → stopped exactly once. Elapsed time is
// always recomputed from the wall clock, never accumulated from ticks,
// so a suspended process shows the right value when it resumes.
package timer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nhle/marketing-pilot/internal/model"
)

var (
	// ErrNotRunning is returned when stopping a timer that never started.
	ErrNotRunning = errors.New("timer is not running")
	// ErrAlreadyStarted is returned when starting a timer twice.
	ErrAlreadyStarted = errors.New("timer already started")
)

// State is the lifecycle phase of a Timer.
type State int

const (
	Idle State = iota
	Running
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Recorder persists timer activity on a task. store.Store satisfies it.
type Recorder interface {
	MarkTimerStarted(ctx context.Context, taskID, userID string, at time.Time) error
	LogTime(ctx context.Context, entry model.TimeEntry) error
}

// Timer tracks one working session on a task.
type Timer struct {
	rec    Recorder
	taskID string
	userID string
	now    func() time.Time

	state State
	start time.Time
	final time.Duration
}

// Option customizes a Timer.
type Option func(*Timer)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(t *Timer) { t.now = now }
}

// New returns an idle timer for taskID. userID may be empty when the
// user is unknown, in which case no start marker is written.
func New(rec Recorder, taskID, userID string, opts ...Option) *Timer {
	t := &Timer{rec: rec, taskID: taskID, userID: userID, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// State returns the current lifecycle phase.
func (t *Timer) State() State { return t.state }

// TaskID returns the task the timer is attached to.
func (t *Timer) TaskID() string { return t.taskID }

// Start begins timing. The timer is running even when writing the start
// marker fails; the marker error is returned for display.
func (t *Timer) Start(ctx context.Context) error {
	if t.state != Idle {
		return ErrAlreadyStarted
	}
	t.start = t.now()
	t.state = Running

	if t.userID == "" {
		return nil
	}
	if err := t.rec.MarkTimerStarted(ctx, t.taskID, t.userID, t.start); err != nil {
		return fmt.Errorf("marking timer started on %s: %w", t.taskID, err)
	}
	return nil
}

// Elapsed returns the time since Start while running, the final value
// once stopped, and zero before starting.
func (t *Timer) Elapsed() time.Duration {
	switch t.state {
	case Running:
		d := t.now().Sub(t.start)
		if d < 0 {
			return 0
		}
		return d
	case Stopped:
		return t.final
	}
	return 0
}

// Stop ends the session and adds the whole elapsed seconds to the task.
// Nothing is written when no full second has passed. A failed write is
// returned and not retried; the timer stays stopped either way. Stopping
// again returns the final elapsed time without writing.
func (t *Timer) Stop(ctx context.Context) (time.Duration, error) {
	switch t.state {
	case Idle:
		return 0, ErrNotRunning
	case Stopped:
		return t.final, nil
	}

	end := t.now()
	t.final = t.Elapsed().Truncate(time.Second)
	t.state = Stopped

	seconds := int64(t.final / time.Second)
	if seconds <= 0 {
		return t.final, nil
	}
	err := t.rec.LogTime(ctx, model.TimeEntry{
		TaskID:   t.taskID,
		UserID:   t.userID,
		Seconds:  seconds,
		LoggedAt: end,
	})
	if err != nil {
		return t.final, fmt.Errorf("saving %ds on %s: %w", seconds, t.taskID, err)
	}
	return t.final, nil
}
