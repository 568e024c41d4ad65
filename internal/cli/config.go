package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nhle/marketing-pilot/internal/model"
)

const redacted = "<redacted>"

func newConfigCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "config",
		Short:   "Create or inspect the configuration file",
		GroupID: groupSetup,
	}
	cmd.AddCommand(newConfigInitCommand(opts), newConfigShowCommand(opts))
	return cmd
}

func newConfigInitCommand(opts *rootOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := os.Stat(opts.configPath)
			switch {
			case err == nil && !force:
				return fmt.Errorf("%s already exists (use --force to overwrite)", opts.configPath)
			case err != nil && !errors.Is(err, fs.ErrNotExist):
				return fmt.Errorf("checking %s: %w", opts.configPath, err)
			}

			if err := model.SaveConfig(opts.configPath, model.DefaultConfig()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", opts.configPath)
			fmt.Fprintln(cmd.OutOrStdout(), "Set AUTOMATION_SECRET or run \"pilot secret set automation-secret\" before serving.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func newConfigShowCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets redacted",
		Long:  "Print the configuration after defaults and environment overrides are applied.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := model.LoadConfig(opts.configPath)
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(redact(*cfg))
			if err != nil {
				return fmt.Errorf("encoding config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", opts.configPath)
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

// redact hides secret values while keeping whether they are set visible.
func redact(cfg model.AppConfig) model.AppConfig {
	if cfg.Automation.Secret != "" {
		cfg.Automation.Secret = redacted
	}
	if cfg.SMTP.Pass != "" {
		cfg.SMTP.Pass = redacted
	}
	return cfg
}
