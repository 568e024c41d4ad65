package trigger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/robfig/cron/v3"

	"github.com/nhle/marketing-pilot/internal/api"
	"github.com/nhle/marketing-pilot/internal/logging"
	"github.com/nhle/marketing-pilot/internal/model"
)

// parser accepts standard five-field expressions and descriptors such
// as @daily and @weekly.
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseSchedule parses a cron expression.
func ParseSchedule(expr string) (cron.Schedule, error) {
	s, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("parsing schedule %q: %w", expr, err)
	}
	return s, nil
}

// Runner is the part of Client the loop needs.
type Runner interface {
	Run(ctx context.Context, check model.CheckType) (*api.RunResponse, error)
}

// Loop fires check on every tick of a cron schedule until its context
// is cancelled. Failed runs are logged and the loop keeps going.
type Loop struct {
	runner   Runner
	schedule cron.Schedule
	check    model.CheckType
	log      *slog.Logger
	now      func() time.Time
	wait     func(ctx context.Context, d time.Duration) error
}

// LoopOption customizes a Loop.
type LoopOption func(*Loop)

// WithLoopLogger sets the logger.
func WithLoopLogger(log *slog.Logger) LoopOption {
	return func(l *Loop) { l.log = log }
}

// WithLoopClock overrides the time source and the sleep function.
func WithLoopClock(now func() time.Time, wait func(ctx context.Context, d time.Duration) error) LoopOption {
	return func(l *Loop) {
		l.now = now
		l.wait = wait
	}
}

// NewLoop returns a loop that runs check on schedule via runner.
func NewLoop(runner Runner, schedule cron.Schedule, check model.CheckType, opts ...LoopOption) *Loop {
	l := &Loop{
		runner:   runner,
		schedule: schedule,
		check:    check,
		log:      logging.Discard(),
		now:      time.Now,
		wait:     sleep,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run blocks until ctx is done. It returns nil on cancellation.
func (l *Loop) Run(ctx context.Context) error {
	for {
		now := l.now()
		next := l.schedule.Next(now)
		if next.IsZero() {
			return errors.New("schedule has no future activations")
		}
		l.log.Info("next automation run", "type", l.check, "at", next.Format(time.RFC3339), "in", humanize.RelTime(next, now, "ago", "from now"))

		if err := l.wait(ctx, next.Sub(now)); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}

		l.Once(ctx)
	}
}

// Once fires a single run and logs its outcome.
func (l *Loop) Once(ctx context.Context) (*api.RunResponse, error) {
	resp, err := l.runner.Run(ctx, l.check)
	if err != nil {
		l.log.Error("automation run failed", "type", l.check, "error", err)
		return nil, err
	}
	attrs := []any{"type", resp.Type, "executed_at", resp.ExecutedAt}
	if resp.Result != nil {
		attrs = append(attrs,
			"checked", resp.Result.Checked,
			"flagged", resp.Result.Flagged,
			"notifications", resp.Result.NotificationsCreated,
		)
	}
	l.log.Info("automation run finished", attrs...)
	return resp, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
