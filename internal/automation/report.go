package automation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize/english"

	"github.com/nhle/marketing-pilot/internal/mail"
	"github.com/nhle/marketing-pilot/internal/model"
	"github.com/nhle/marketing-pilot/internal/store"
)

// WeeklyReport aggregates, per user, the tasks completed and time logged
// since Monday 00:00 and the tasks currently overdue, and writes one
// weekly_report notification per user. Email failures are logged and do
// not fail the run.
func (e *Engine) WeeklyReport(ctx context.Context) (*model.RunResult, error) {
	now := e.now()
	weekStart := WeekStart(now, e.cfg.Location)

	users, err := e.store.GetUsers(ctx, store.UserFilter{})
	if err != nil {
		return nil, fmt.Errorf("loading users: %w", err)
	}
	tasks, err := e.store.GetTasks(ctx, store.TaskFilter{})
	if err != nil {
		return nil, fmt.Errorf("loading tasks: %w", err)
	}
	entries, err := e.store.GetTimeEntries(ctx, weekStart, now)
	if err != nil {
		return nil, fmt.Errorf("loading time entries: %w", err)
	}

	reports := make(map[string]*model.UserReport, len(users))
	for _, u := range users {
		reports[u.ID] = &model.UserReport{UserID: u.ID, UserName: u.Name}
	}
	for _, t := range tasks {
		r, ok := reports[t.AssigneeID]
		if !ok {
			continue
		}
		if t.IsComplete() && t.CompletedAt != nil && !t.CompletedAt.Before(weekStart) && !t.CompletedAt.After(now) {
			r.TasksCompleted++
		}
		if IsOverdue(t, now) {
			r.TasksOverdue++
		}
	}
	for _, te := range entries {
		if r, ok := reports[te.UserID]; ok {
			r.SecondsLogged += te.Seconds
		}
	}

	res := model.NewRunResult()
	res.Checked = len(tasks)
	for _, u := range users {
		r := reports[u.ID]
		title := "Weekly report"
		message := reportText(*r, weekStart)
		n := &model.Notification{
			UserID:    u.ID,
			Type:      model.NotificationWeeklyReport,
			Title:     title,
			Message:   message,
			CreatedAt: now,
		}
		if err := e.store.CreateNotification(ctx, n); err != nil {
			return nil, fmt.Errorf("writing weekly report for %s: %w", u.ID, err)
		}
		r.NotificationSent = true
		res.NotificationsCreated++
		res.Flagged++

		if e.cfg.EmailWeeklyReport && e.mailer != nil && u.Email != "" {
			msg := mail.Message{
				To:      []string{u.Email},
				Subject: fmt.Sprintf("%s: week of %s", title, weekStart.Format("Jan 2")),
				Text:    fmt.Sprintf("Hi %s,\n\n%s\n", u.Name, message),
			}
			if err := e.mailer.Send(ctx, msg); err != nil {
				e.log.Warn("weekly report email failed", "user", u.ID, "error", err)
			} else {
				r.EmailSent = true
			}
		}
		res.Reports = append(res.Reports, *r)
	}
	return res, nil
}

func reportText(r model.UserReport, weekStart time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Since %s: ", weekStart.Format("Mon Jan 2"))
	fmt.Fprintf(&b, "%s completed, ", plural(r.TasksCompleted, "task"))
	fmt.Fprintf(&b, "%s logged, ", FormatSeconds(r.SecondsLogged))
	fmt.Fprintf(&b, "%s overdue.", plural(r.TasksOverdue, "task"))
	return b.String()
}

func plural(n int, noun string) string {
	return english.Plural(n, noun, "")
}

// FormatSeconds renders whole hours and minutes, e.g. "3h 05m".
func FormatSeconds(s int64) string {
	d := time.Duration(s) * time.Second
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh %02dm", h, m)
}
