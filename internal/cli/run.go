package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/nhle/marketing-pilot/internal/automation"
	"github.com/nhle/marketing-pilot/internal/model"
	"github.com/nhle/marketing-pilot/internal/theme"
)

func newRunCommand(opts *rootOptions) *cobra.Command {
	var asJSON bool

	types := make([]string, len(model.CheckTypes))
	for i, ct := range model.CheckTypes {
		types[i] = string(ct)
	}

	cmd := &cobra.Command{
		Use:       "run <type>",
		Short:     "Run an automation check in-process",
		Long:      "Run one automation routine directly against the store, bypassing the HTTP endpoint.\n\nTypes: " + strings.Join(types, ", "),
		GroupID:   groupServer,
		Args:      cobra.ExactArgs(1),
		ValidArgs: types,
		RunE: func(cmd *cobra.Command, args []string) error {
			check, err := model.ParseCheckType(args[0])
			if err != nil {
				return err
			}
			c, err := opts.load(cmd)
			if err != nil {
				return err
			}
			res, err := c.Engine.Run(cmd.Context(), check)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			printRunResult(cmd.OutOrStdout(), check, res)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

func printRunResult(w io.Writer, check model.CheckType, res *model.RunResult) {
	fmt.Fprintln(w, theme.HeaderStyle.Render("Automation: "+string(check)))
	fmt.Fprintln(w, summaryLine(res))

	if len(res.Breakdown) > 0 {
		for _, ct := range model.CheckTypes[1:] {
			sub, ok := res.Breakdown[ct]
			if !ok {
				continue
			}
			label := lipgloss.NewStyle().Width(15).Render(string(ct))
			fmt.Fprintln(w, theme.ListItemStyle.Render(label+summaryLine(sub)))
		}
	}

	for _, r := range res.Reports {
		fmt.Fprintln(w, theme.ListItemStyle.Render(fmt.Sprintf(
			"%s: %d completed, %s logged, %d overdue",
			r.UserName, r.TasksCompleted, automation.FormatSeconds(r.SecondsLogged), r.TasksOverdue,
		)))
	}
}

func summaryLine(res *model.RunResult) string {
	return fmt.Sprintf("checked %d, flagged %d, notifications %d",
		res.Checked, res.Flagged, res.NotificationsCreated)
}
