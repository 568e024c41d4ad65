package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nhle/marketing-pilot/internal/credential"
	"github.com/nhle/marketing-pilot/internal/model"
)

// Keyring and prompt seams, replaced in tests.
var (
	keyringGet   credential.Lookup = credential.Get
	keyringSet                     = credential.Set
	promptSecret                   = promptPassword
)

// secretKeys maps the accepted key names to their keyring entries.
var secretKeys = map[string]string{
	credential.KeyAutomationSecret: credential.KeyAutomationSecret,
	credential.KeySMTPPassword:     credential.KeySMTPPassword,
}

func newSecretCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "secret",
		Short:   "Store secrets in the system keyring",
		Long:    "Manage the automation secret and the SMTP password in the system keyring.\nEnvironment variables and the config file take precedence over keyring entries.",
		GroupID: groupSetup,
	}
	cmd.AddCommand(newSecretSetCommand(), newSecretGetCommand(opts))
	return cmd
}

func newSecretSetCommand() *cobra.Command {
	var value string

	cmd := &cobra.Command{
		Use:       "set <automation-secret|smtp-password>",
		Short:     "Save a secret to the keyring",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{credential.KeyAutomationSecret, credential.KeySMTPPassword},
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := secretKey(args[0])
			if err != nil {
				return err
			}
			if value == "" {
				value, err = promptSecret(key)
				if err != nil {
					return err
				}
			}
			if strings.TrimSpace(value) == "" {
				return errors.New("secret must not be empty")
			}
			if err := keyringSet(key, value); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s to the keyring\n", key)
			return nil
		},
	}

	cmd.Flags().StringVar(&value, "value", "", "secret value (prompted for when omitted)")
	return cmd
}

func newSecretGetCommand(opts *rootOptions) *cobra.Command {
	var reveal bool

	cmd := &cobra.Command{
		Use:       "get <automation-secret|smtp-password>",
		Short:     "Show which secret is in effect and where it comes from",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{credential.KeyAutomationSecret, credential.KeySMTPPassword},
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := secretKey(args[0])
			if err != nil {
				return err
			}
			cfg, err := model.LoadConfig(opts.configPath)
			if err != nil {
				return err
			}

			configured, fallback := cfg.Automation.Secret, model.DefaultAutomationSecret
			if key == credential.KeySMTPPassword {
				configured, fallback = cfg.SMTP.Pass, ""
			}
			v, src := credential.Resolve(configured, keyringGet, key, fallback)

			shown := maskSecret(v)
			if reveal {
				shown = v
			}
			if v == "" {
				shown = "(not set)"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (source: %s)\n", key, shown, src)
			return nil
		},
	}

	cmd.Flags().BoolVar(&reveal, "reveal", false, "print the value unmasked")
	return cmd
}

func secretKey(name string) (string, error) {
	key, ok := secretKeys[name]
	if !ok {
		return "", fmt.Errorf("unknown secret %q (want %s or %s)",
			name, credential.KeyAutomationSecret, credential.KeySMTPPassword)
	}
	return key, nil
}

// maskSecret keeps the last four characters of values longer than eight.
func maskSecret(v string) string {
	if len(v) <= 8 {
		return strings.Repeat("*", len(v))
	}
	return strings.Repeat("*", len(v)-4) + v[len(v)-4:]
}

func promptPassword(key string) (string, error) {
	var value string
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(key).
				Description("Stored in the system keyring").
				EchoMode(huh.EchoModePassword).
				Value(&value).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("value is required")
					}
					return nil
				}),
		),
	).Run()
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", key, err)
	}
	return value, nil
}
