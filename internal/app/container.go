// Package app provides the dependency injection container for the application.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/marketing-pilot/internal/api"
	"github.com/nhle/marketing-pilot/internal/automation"
	"github.com/nhle/marketing-pilot/internal/credential"
	"github.com/nhle/marketing-pilot/internal/logging"
	"github.com/nhle/marketing-pilot/internal/mail"
	"github.com/nhle/marketing-pilot/internal/model"
	"github.com/nhle/marketing-pilot/internal/notify"
	"github.com/nhle/marketing-pilot/internal/store"
)

// Container holds the process-wide services. It is built once per
// command and closed when the command returns.
type Container struct {
	Config     *model.AppConfig
	ConfigPath string
	Logger     *slog.Logger

	Store  store.Store
	Mailer *mail.Mailer // nil when SMTP is not configured
	Engine *automation.Engine
	Notify *notify.Service

	Secret       string
	SecretSource credential.Source
}

// Options override process dependencies, mostly for tests.
type Options struct {
	// LogOutput receives log lines. Defaults to io.Discard.
	LogOutput io.Writer

	// Lookup reads keyring entries. Defaults to credential.Get.
	Lookup credential.Lookup

	// OpenStore opens the configured backend. Defaults to OpenStore.
	OpenStore func(ctx context.Context, cfg model.StoreConfig) (store.Store, error)
}

// New loads the configuration at configPath and wires every service.
func New(ctx context.Context, configPath string, opts Options) (*Container, error) {
	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	return NewFromConfig(ctx, cfg, configPath, opts)
}

// NewFromConfig wires every service from an already loaded configuration.
func NewFromConfig(ctx context.Context, cfg *model.AppConfig, configPath string, opts Options) (*Container, error) {
	if opts.LogOutput == nil {
		opts.LogOutput = io.Discard
	}
	if opts.Lookup == nil {
		opts.Lookup = credential.Get
	}
	if opts.OpenStore == nil {
		opts.OpenStore = OpenStore
	}

	applyTheme(cfg.Display.Theme)
	log := logging.New(opts.LogOutput, cfg.Log.Level, cfg.Log.Format)

	st, err := opts.OpenStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	c := &Container{
		Config:     cfg,
		ConfigPath: configPath,
		Logger:     log,
		Store:      st,
	}

	c.Secret, c.SecretSource = credential.Resolve(
		cfg.Automation.Secret, opts.Lookup,
		credential.KeyAutomationSecret, model.DefaultAutomationSecret,
	)
	if c.SecretSource == credential.SourceFallback {
		log.Warn("AUTOMATION_SECRET is not set; using the built-in development secret")
	}

	smtp := cfg.SMTP
	smtp.Pass, _ = credential.Resolve(smtp.Pass, opts.Lookup, credential.KeySMTPPassword, "")
	mailOpts := []mail.Option{mail.WithLogger(log.With("component", "mail"))}
	if smtp.IMAPHost != "" {
		mailOpts = append(mailOpts, mail.WithArchiver(
			mail.NewIMAPArchiver(smtp.IMAPHost, smtp.IMAPPort, smtp.User, smtp.Pass, smtp.SentFolder),
		))
	}
	mailer, err := mail.New(mail.ConfigFrom(smtp), mailOpts...)
	switch {
	case err == nil:
		c.Mailer = mailer
	case errors.Is(err, mail.ErrNotConfigured):
		log.Debug("outbound mail disabled", "reason", err)
	default:
		st.Close()
		return nil, err
	}

	autoCfg, err := automation.ConfigFrom(cfg.Automation)
	if err != nil {
		st.Close()
		return nil, err
	}
	engineOpts := []automation.Option{automation.WithLogger(log.With("component", "automation"))}
	if c.Mailer != nil {
		engineOpts = append(engineOpts, automation.WithMailer(c.Mailer))
	}
	c.Engine = automation.New(st, autoCfg, engineOpts...)
	c.Notify = notify.New(st, notify.WithLogger(log.With("component", "notify")))

	return c, nil
}

// Server builds the HTTP API server.
func (c *Container) Server() *api.Server {
	deps := api.Deps{
		Runner: c.Engine,
		Notify: c.Notify,
		Store:  c.Store,
		Logger: c.Logger.With("component", "api"),
	}
	// A nil *mail.Mailer must not become a non-nil interface.
	if c.Mailer != nil {
		deps.Mailer = c.Mailer
	}
	return api.NewServer(api.ConfigFrom(c.Config.Server, c.Secret), deps)
}

// Close releases the store.
func (c *Container) Close() error {
	return c.Store.Close()
}

// OpenStore opens the backend named by cfg.Backend.
func OpenStore(ctx context.Context, cfg model.StoreConfig) (store.Store, error) {
	switch cfg.Backend {
	case model.BackendSQLite:
		return store.NewSQLiteStore(cfg.Path)
	case model.BackendFirestore:
		return store.NewFirestoreStore(ctx, cfg.FirestoreProject, cfg.CredentialsFile)
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
}

// applyTheme pins the adaptive colors when the user chose a fixed theme.
func applyTheme(name string) {
	switch name {
	case "light":
		lipgloss.SetHasDarkBackground(false)
	case "dark":
		lipgloss.SetHasDarkBackground(true)
	}
}
