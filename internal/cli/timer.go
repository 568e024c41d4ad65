package cli

import (
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nhle/marketing-pilot/internal/store"
	stopwatch "github.com/nhle/marketing-pilot/internal/timer"
	uitimer "github.com/nhle/marketing-pilot/internal/ui/timer"
)

// runProgram runs a bubbletea program, allowing it to be replaced in tests.
var runProgram = func(m tea.Model) (tea.Model, error) {
	return tea.NewProgram(m).Run()
}

func newTimerCommand(opts *rootOptions) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:     "timer <task-id>",
		Short:   "Track time on a task with a Pomodoro timer",
		Long:    "Open a terminal stopwatch for a task. Stopping the timer adds the elapsed whole seconds to the task and records a time entry.",
		GroupID: groupWork,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.load(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			task, err := c.Store.GetTaskByID(ctx, args[0])
			if err != nil {
				return err
			}

			if userID != "" {
				if _, err := c.Store.GetUserByID(ctx, userID); errors.Is(err, store.ErrNotFound) {
					c.Logger.Warn("unknown user, timer start will not be recorded", "user", userID)
					userID = ""
				} else if err != nil {
					return err
				}
			}

			sw := stopwatch.New(c.Store, task.ID, userID)
			final, err := runProgram(uitimer.New(ctx, sw, *task))
			if err != nil {
				return fmt.Errorf("running timer: %w", err)
			}
			if m, ok := final.(uitimer.Model); ok && m.Err() != nil {
				return fmt.Errorf("time was not saved: %w", m.Err())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user ID recorded as the timer owner")
	return cmd
}
