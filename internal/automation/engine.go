// Package automation implements the scheduled-by-external-trigger checks:
// due soon, overdue and stuck tasks, and the weekly per-user report.
//
// Every routine loads the tasks it needs, evaluates a pure predicate per
// task and writes one notification per match. Routines stop at the first
// store error; notifications already written are left in place. Nothing
// is deduplicated, so running a check twice notifies twice.
package automation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/nhle/marketing-pilot/internal/logging"
	"github.com/nhle/marketing-pilot/internal/mail"
	"github.com/nhle/marketing-pilot/internal/model"
	"github.com/nhle/marketing-pilot/internal/store"
)

// Mailer sends the optional weekly report email.
type Mailer interface {
	Send(ctx context.Context, msg mail.Message) error
}

// Config tunes the check predicates and recipients.
type Config struct {
	DueSoonWindow     time.Duration
	StuckAfter        time.Duration
	NotifyManagers    bool
	EmailWeeklyReport bool
	Location          *time.Location
}

// ConfigFrom converts the application automation section.
func ConfigFrom(c model.AutomationConfig) (Config, error) {
	loc, err := c.Location()
	if err != nil {
		return Config{}, err
	}
	return Config{
		DueSoonWindow:     c.DueSoonWindow(),
		StuckAfter:        c.StuckAfter(),
		NotifyManagers:    c.NotifyManagers,
		EmailWeeklyReport: c.EmailWeeklyReport,
		Location:          loc,
	}, nil
}

// Engine runs automation checks against a store.
type Engine struct {
	store  store.Store
	cfg    Config
	now    func() time.Time
	log    *slog.Logger
	mailer Mailer
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithMailer enables weekly report emails.
func WithMailer(m Mailer) Option {
	return func(e *Engine) { e.mailer = m }
}

// New returns an Engine. Zero durations in cfg fall back to two days
// (due soon) and three days (stuck).
func New(s store.Store, cfg Config, opts ...Option) *Engine {
	if cfg.DueSoonWindow <= 0 {
		cfg.DueSoonWindow = 48 * time.Hour
	}
	if cfg.StuckAfter <= 0 {
		cfg.StuckAfter = 72 * time.Hour
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	e := &Engine{
		store: s,
		cfg:   cfg,
		now:   time.Now,
		log:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run dispatches to the routine named by check.
func (e *Engine) Run(ctx context.Context, check model.CheckType) (*model.RunResult, error) {
	start := e.now()
	var (
		res *model.RunResult
		err error
	)
	switch check {
	case model.CheckAll:
		res, err = e.RunAll(ctx)
	case model.CheckDueSoon:
		res, err = e.CheckDueSoon(ctx)
	case model.CheckOverdue:
		res, err = e.CheckOverdue(ctx)
	case model.CheckStuck:
		res, err = e.CheckStuck(ctx)
	case model.CheckWeeklyReport:
		res, err = e.WeeklyReport(ctx)
	default:
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownCheckType, check)
	}
	if err != nil {
		e.log.Error("automation run failed", "type", check, "error", err)
		return nil, err
	}
	e.log.Info("automation run finished",
		"type", check,
		"checked", res.Checked,
		"flagged", res.Flagged,
		"notifications", res.NotificationsCreated,
		"duration", e.now().Sub(start),
	)
	return res, nil
}

// RunAll runs due_soon, overdue, stuck and weekly_report in order. The
// first failing routine aborts the rest. Weekly reports are returned on
// the combined result, not repeated in the breakdown.
func (e *Engine) RunAll(ctx context.Context) (*model.RunResult, error) {
	total := model.NewRunResult()
	total.Breakdown = make(map[model.CheckType]*model.RunResult, 4)

	steps := []struct {
		check model.CheckType
		run   func(context.Context) (*model.RunResult, error)
	}{
		{model.CheckDueSoon, e.CheckDueSoon},
		{model.CheckOverdue, e.CheckOverdue},
		{model.CheckStuck, e.CheckStuck},
		{model.CheckWeeklyReport, e.WeeklyReport},
	}
	for _, step := range steps {
		res, err := step.run(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", step.check, err)
		}
		total.Add(res)
		// Reports live on the combined result only.
		res.Reports = nil
		total.Breakdown[step.check] = res
	}
	return total, nil
}

// CheckDueSoon notifies about open tasks due within the configured window.
func (e *Engine) CheckDueSoon(ctx context.Context) (*model.RunResult, error) {
	now := e.now()
	return e.scan(ctx, now,
		func(t model.Task) bool { return IsDueSoon(t, now, e.cfg.DueSoonWindow) },
		func(t model.Task) (string, string) {
			return "Task due soon",
				fmt.Sprintf("%q is due %s.", t.Title, humanize.RelTime(*t.DueDate, now, "ago", "from now"))
		},
		model.NotificationDueSoon,
	)
}

// CheckOverdue notifies about open tasks whose due date has passed.
func (e *Engine) CheckOverdue(ctx context.Context) (*model.RunResult, error) {
	now := e.now()
	return e.scan(ctx, now,
		func(t model.Task) bool { return IsOverdue(t, now) },
		func(t model.Task) (string, string) {
			return "Task overdue",
				fmt.Sprintf("%q was due %s.", t.Title, humanize.RelTime(*t.DueDate, now, "ago", "from now"))
		},
		model.NotificationOverdue,
	)
}

// CheckStuck notifies about open tasks with no recent activity.
func (e *Engine) CheckStuck(ctx context.Context) (*model.RunResult, error) {
	now := e.now()
	return e.scan(ctx, now,
		func(t model.Task) bool { return IsStuck(t, now, e.cfg.StuckAfter) },
		func(t model.Task) (string, string) {
			return "Task stuck",
				fmt.Sprintf("%q has had no activity since %s.", t.Title, humanize.RelTime(t.ActivityAt(), now, "ago", "from now"))
		},
		model.NotificationStuck,
	)
}

// scan is the shared body of the per-task checks.
func (e *Engine) scan(
	ctx context.Context,
	now time.Time,
	match func(model.Task) bool,
	text func(model.Task) (title, message string),
	typ model.NotificationType,
) (*model.RunResult, error) {
	tasks, err := e.store.GetTasks(ctx, store.TaskFilter{ExcludeDone: true})
	if err != nil {
		return nil, fmt.Errorf("loading tasks: %w", err)
	}

	managers, err := e.managers(ctx)
	if err != nil {
		return nil, err
	}

	res := model.NewRunResult()
	res.Checked = len(tasks)
	for _, t := range tasks {
		if !match(t) {
			continue
		}
		res.Flagged++
		res.TaskIDs = append(res.TaskIDs, t.ID)

		title, message := text(t)
		ref := model.EntityRef{Kind: model.EntityKindTask, ID: t.ID}
		for _, uid := range recipients(t.AssigneeID, managers) {
			n := &model.Notification{
				UserID:     uid,
				Type:       typ,
				Title:      title,
				Message:    message,
				Link:       ref.Link(),
				EntityKind: ref.Kind,
				EntityID:   ref.ID,
				CreatedAt:  now,
			}
			if err := e.store.CreateNotification(ctx, n); err != nil {
				return nil, fmt.Errorf("notifying %s about task %s: %w", uid, t.ID, err)
			}
			res.NotificationsCreated++
		}
	}
	return res, nil
}

// managers returns the IDs of users who get manager copies, or nil when
// manager notification is off.
func (e *Engine) managers(ctx context.Context) ([]string, error) {
	if !e.cfg.NotifyManagers {
		return nil, nil
	}
	users, err := e.store.GetUsers(ctx, store.UserFilter{})
	if err != nil {
		return nil, fmt.Errorf("loading managers: %w", err)
	}
	var ids []string
	for _, u := range users {
		if u.IsManager() {
			ids = append(ids, u.ID)
		}
	}
	return ids, nil
}

// recipients returns the assignee followed by every manager that is not
// the assignee. Unassigned tasks go to managers only.
func recipients(assignee string, managers []string) []string {
	out := make([]string, 0, len(managers)+1)
	if assignee != "" {
		out = append(out, assignee)
	}
	for _, m := range managers {
		if m != assignee {
			out = append(out, m)
		}
	}
	return out
}
