package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/nhle/marketing-pilot/internal/model"
	"github.com/nhle/marketing-pilot/internal/notify"
	"github.com/nhle/marketing-pilot/internal/theme"
)

func newNotificationsCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"notif"},
		Short:   "List and acknowledge notifications",
		GroupID: groupWork,
	}
	cmd.AddCommand(newNotificationsListCommand(opts), newNotificationsReadCommand(opts))
	return cmd
}

func newNotificationsListCommand(opts *rootOptions) *cobra.Command {
	var (
		userID     string
		unreadOnly bool
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a user's notifications, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.load(cmd)
			if err != nil {
				return err
			}
			inbox, err := c.Notify.List(cmd.Context(), userID, unreadOnly, limit)
			if err != nil {
				return err
			}
			printInbox(cmd.OutOrStdout(), inbox, time.Now())
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "recipient user ID (required)")
	cmd.Flags().BoolVar(&unreadOnly, "unread", false, "only unread notifications")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum notifications to show (0 for all)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newNotificationsReadCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "read <id>",
		Short: "Mark a notification as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if err := c.Notify.Acknowledge(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Marked %s as read\n", args[0])
			return nil
		},
	}
}

func printInbox(w io.Writer, inbox *notify.Inbox, now time.Time) {
	fmt.Fprintln(w, theme.HeaderStyle.Render(fmt.Sprintf("Notifications (%d unread)", inbox.Unread)))
	if len(inbox.Notifications) == 0 {
		fmt.Fprintln(w, theme.HelpStyle.Render("  nothing here"))
		return
	}
	for _, n := range inbox.Notifications {
		fmt.Fprintln(w, renderNotification(n, now))
	}
}

func renderNotification(n model.Notification, now time.Time) string {
	head := fmt.Sprintf("%s  %s  %s",
		theme.NotificationStyle(n.Type).Render(string(n.Type)),
		n.Title,
		theme.HelpStyle.Render(humanize.RelTime(n.CreatedAt, now, "ago", "from now")),
	)
	body := head + "\n" + n.Message + "\n" + theme.HelpStyle.Render(n.ID)
	if n.Read {
		return theme.ListItemStyle.Render(body)
	}
	return theme.UnreadItemStyle.Render(body)
}
