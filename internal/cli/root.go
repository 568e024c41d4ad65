// Package cli provides the command-line interface for marketing-pilot.
package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/nhle/marketing-pilot/internal/app"
	"github.com/nhle/marketing-pilot/internal/model"
)

// Command group IDs.
const (
	groupServer = "server"
	groupWork   = "work"
	groupSetup  = "setup"
)

// containerFunc builds the service container, allowing it to be replaced
// in tests.
type containerFunc func(ctx context.Context, configPath string) (*app.Container, error)

func defaultContainer(ctx context.Context, configPath string) (*app.Container, error) {
	return app.New(ctx, configPath, app.Options{LogOutput: os.Stderr, Lookup: keyringGet})
}

// rootOptions carries the persistent flags and the lazily built container.
type rootOptions struct {
	configPath   string
	newContainer containerFunc
	container    *app.Container
}

// load builds the container on first use.
func (o *rootOptions) load(cmd *cobra.Command) (*app.Container, error) {
	if o.container != nil {
		return o.container, nil
	}
	c, err := o.newContainer(cmd.Context(), o.configPath)
	if err != nil {
		return nil, err
	}
	o.container = c
	return c, nil
}

func (o *rootOptions) close() error {
	if o.container == nil {
		return nil
	}
	err := o.container.Close()
	o.container = nil
	return err
}

// NewRootCommand creates the root command for pilot.
func NewRootCommand(version string) *cobra.Command {
	return newRootCommand(version, defaultContainer)
}

func newRootCommand(version string, newContainer containerFunc) *cobra.Command {
	opts := &rootOptions{newContainer: newContainer}

	root := &cobra.Command{
		Use:   "pilot",
		Short: "Marketing Pilot task automation backend",
		Long: `pilot runs the Marketing Pilot backend: the automation endpoint that
flags due, overdue and stuck tasks and sends weekly reports, the
notification API used by the web client, and a terminal Pomodoro timer.

Automations have no internal schedule. Point an external scheduler, or
"pilot trigger", at POST /api/automations/run.`,
		Version: version,
		// SilenceUsage prevents usage from being printed on errors
		SilenceUsage: true,
		// SilenceErrors prevents Cobra from printing errors (we handle it in main)
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", model.DefaultConfigPath(), "path to config file")

	root.AddGroup(
		&cobra.Group{ID: groupServer, Title: "Server:"},
		&cobra.Group{ID: groupWork, Title: "Work:"},
		&cobra.Group{ID: groupSetup, Title: "Setup:"},
	)

	root.AddCommand(
		newServeCommand(opts),
		newRunCommand(opts),
		newTriggerCommand(opts),
		newNotificationsCommand(opts),
		newTimerCommand(opts),
		newSecretCommand(opts),
		newConfigCommand(opts),
		newSeedCommand(opts),
	)
	closeAfterRun(root, opts)

	return root
}

// closeAfterRun wraps every RunE in the tree so the container is closed
// whether or not the command fails.
func closeAfterRun(cmd *cobra.Command, opts *rootOptions) {
	if run := cmd.RunE; run != nil {
		cmd.RunE = func(c *cobra.Command, args []string) (err error) {
			defer func() {
				if cerr := opts.close(); err == nil {
					err = cerr
				}
			}()
			return run(c, args)
		}
	}
	for _, sub := range cmd.Commands() {
		closeAfterRun(sub, opts)
	}
}
