package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nhle/marketing-pilot/internal/credential"
	"github.com/nhle/marketing-pilot/internal/logging"
	"github.com/nhle/marketing-pilot/internal/model"
	"github.com/nhle/marketing-pilot/internal/trigger"
)

func newTriggerCommand(opts *rootOptions) *cobra.Command {
	var (
		baseURL  string
		check    string
		schedule string
		once     bool
	)

	cmd := &cobra.Command{
		Use:   "trigger",
		Short: "Call a running server's automation endpoint on a schedule",
		Long: `trigger is an external scheduler for the automation endpoint. It posts
to /api/automations/run with the configured secret, either once or on
every activation of a cron expression (five fields or @daily, @weekly...).`,
		Example: `  pilot trigger --type all --once
  pilot trigger --type weekly_report --schedule "0 8 * * 1"`,
		GroupID: groupServer,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ct, err := model.ParseCheckType(check)
			if err != nil {
				return err
			}
			if !once && schedule == "" {
				return fmt.Errorf("either --schedule or --once is required")
			}

			// trigger talks to a server; it never opens the store.
			cfg, err := model.LoadConfig(opts.configPath)
			if err != nil {
				return err
			}
			log := logging.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
			secret, src := credential.Resolve(cfg.Automation.Secret, keyringGet,
				credential.KeyAutomationSecret, model.DefaultAutomationSecret)
			if src == credential.SourceFallback {
				log.Warn("AUTOMATION_SECRET is not set; using the built-in development secret")
			}

			client := trigger.NewClient(baseURL, secret)

			if once {
				loop := trigger.NewLoop(client, nil, ct, trigger.WithLoopLogger(log))
				resp, err := loop.Once(cmd.Context())
				if err != nil {
					return err
				}
				if resp.Result != nil {
					fmt.Fprintln(cmd.OutOrStdout(), summaryLine(resp.Result))
				}
				return nil
			}

			sched, err := trigger.ParseSchedule(schedule)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return trigger.NewLoop(client, sched, ct, trigger.WithLoopLogger(log)).Run(ctx)
		},
	}

	cmd.Flags().StringVar(&baseURL, "url", "http://localhost:8080", "base URL of the pilot server")
	cmd.Flags().StringVar(&check, "type", string(model.CheckAll), "automation type to run")
	cmd.Flags().StringVar(&schedule, "schedule", "", "cron expression")
	cmd.Flags().BoolVar(&once, "once", false, "run once and exit")
	cmd.MarkFlagsMutuallyExclusive("schedule", "once")
	return cmd
}
