// Package timer is the terminal front end of the Pomodoro timer.
package timer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/marketing-pilot/internal/keys"
	"github.com/nhle/marketing-pilot/internal/model"
	"github.com/nhle/marketing-pilot/internal/theme"
	stopwatch "github.com/nhle/marketing-pilot/internal/timer"
)

// statusTTL is how long a status message stays on screen.
const statusTTL = 4 * time.Second

type tickMsg time.Time

type clearStatusMsg struct{ seq int }

// Model is the bubbletea model driving a single timer session.
type Model struct {
	ctx   context.Context
	timer *stopwatch.Timer
	task  model.Task
	keys  *keys.KeyMap
	help  help.Model

	status    string
	statusErr bool
	statusSeq int

	// err is the last persistence failure, kept for the caller after
	// the program exits.
	err      error
	quitting bool
}

// New returns a model for t on task.
func New(ctx context.Context, t *stopwatch.Timer, task model.Task) Model {
	return Model{
		ctx:   ctx,
		timer: t,
		task:  task,
		keys:  keys.DefaultKeyMap(),
		help:  help.New(),
	}
}

// Err returns the last error reported to the user, if any.
func (m Model) Err() error { return m.err }

// Timer returns the underlying stopwatch.
func (m Model) Timer() *stopwatch.Timer { return m.timer }

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd { return nil }

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		if m.timer.State() == stopwatch.Running {
			return m, tick()
		}
		return m, nil

	case clearStatusMsg:
		if msg.seq == m.statusSeq {
			m.status, m.statusErr = "", false
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m.quit()
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, m.keys.Start):
			return m.start()
		case key.Matches(msg, m.keys.Stop):
			return m.stop()
		}
	}
	return m, nil
}

func (m Model) start() (tea.Model, tea.Cmd) {
	if m.timer.State() != stopwatch.Idle {
		return m, nil
	}
	cmds := []tea.Cmd{tick()}
	if err := m.timer.Start(m.ctx); err != nil {
		cmds = append(cmds, m.setStatus(err.Error(), true))
	}
	return m, tea.Batch(cmds...)
}

func (m Model) stop() (tea.Model, tea.Cmd) {
	if m.timer.State() != stopwatch.Running {
		return m, nil
	}
	elapsed, err := m.timer.Stop(m.ctx)
	if err != nil {
		m.err = err
		return m, m.setStatus("Not saved: "+err.Error(), true)
	}
	if elapsed < time.Second {
		return m, m.setStatus("Under a second, nothing saved", false)
	}
	return m, m.setStatus("Saved "+formatDuration(elapsed), false)
}

// quit stops a running timer first so the elapsed time is persisted once.
func (m Model) quit() (tea.Model, tea.Cmd) {
	if m.timer.State() == stopwatch.Running {
		if _, err := m.timer.Stop(m.ctx); err != nil {
			m.err = err
		}
	}
	m.quitting = true
	return m, tea.Quit
}

// setStatus shows a transient message and schedules its removal.
func (m *Model) setStatus(text string, isErr bool) tea.Cmd {
	m.statusSeq++
	m.status, m.statusErr = text, isErr
	seq := m.statusSeq
	return tea.Tick(statusTTL, func(time.Time) tea.Msg { return clearStatusMsg{seq: seq} })
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(theme.HeaderStyle.Render("Pomodoro"))
	b.WriteString(" ")
	b.WriteString(m.task.Title)
	b.WriteString(theme.StatusStyle(m.task.Status).Render(m.task.Status))
	b.WriteString("\n\n")

	clock := theme.ClockStyle.Render(formatDuration(m.timer.Elapsed()))
	state := theme.HelpStyle.Render(m.timer.State().String())
	b.WriteString(theme.PanelStyle.Render(lipgloss.JoinVertical(lipgloss.Center, clock, state)))
	b.WriteString("\n")

	if m.status != "" {
		style := theme.StatusBarStyle
		if m.statusErr {
			style = theme.ErrorBarStyle
		}
		b.WriteString(style.Render(m.status))
		b.WriteString("\n")
	}

	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	mm := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, mm, s)
}
