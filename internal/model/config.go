package model

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// DefaultAutomationSecret is the development fallback used when no secret
// is configured anywhere. Production deployments must set AUTOMATION_SECRET.
const DefaultAutomationSecret = "marketing-pilot-dev-secret"

// Store backends.
const (
	BackendSQLite    = "sqlite"
	BackendFirestore = "firestore"
)

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr               string `mapstructure:"addr" yaml:"addr"`
	ReadTimeoutSec     int    `mapstructure:"read_timeout_sec" yaml:"read_timeout_sec"`
	WriteTimeoutSec    int    `mapstructure:"write_timeout_sec" yaml:"write_timeout_sec"`
	ShutdownTimeoutSec int    `mapstructure:"shutdown_timeout_sec" yaml:"shutdown_timeout_sec"`
}

// StoreConfig selects and configures the persistence backend.
type StoreConfig struct {
	// Backend is "sqlite" or "firestore".
	Backend string `mapstructure:"backend" yaml:"backend"`

	// Path is the SQLite database file.
	Path string `mapstructure:"path" yaml:"path"`

	// FirestoreProject is the Google Cloud project ID for the Firestore backend.
	FirestoreProject string `mapstructure:"firestore_project" yaml:"firestore_project"`

	// CredentialsFile optionally points at a service account JSON key.
	CredentialsFile string `mapstructure:"credentials_file" yaml:"credentials_file"`
}

// AutomationConfig tunes the check routines.
type AutomationConfig struct {
	// Secret gates the POST automation endpoint.
	Secret string `mapstructure:"secret" yaml:"secret"`

	// DueSoonHours is the forward window of the due_soon check.
	DueSoonHours int `mapstructure:"due_soon_hours" yaml:"due_soon_hours"`

	// StuckDays is how long a task may go without activity before the
	// stuck check flags it.
	StuckDays int `mapstructure:"stuck_days" yaml:"stuck_days"`

	// NotifyManagers sends a copy of every task notification to users
	// with the manager or admin role.
	NotifyManagers bool `mapstructure:"notify_managers" yaml:"notify_managers"`

	// EmailWeeklyReport mails each user their weekly report in addition
	// to the in-app notification.
	EmailWeeklyReport bool `mapstructure:"email_weekly_report" yaml:"email_weekly_report"`

	// Timezone is the IANA zone used to compute the start of the week.
	Timezone string `mapstructure:"timezone" yaml:"timezone"`
}

// DueSoonWindow returns DueSoonHours as a duration.
func (c AutomationConfig) DueSoonWindow() time.Duration {
	return time.Duration(c.DueSoonHours) * time.Hour
}

// StuckAfter returns StuckDays as a duration.
func (c AutomationConfig) StuckAfter() time.Duration {
	return time.Duration(c.StuckDays) * 24 * time.Hour
}

// Location resolves Timezone, defaulting to UTC.
func (c AutomationConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// SMTPConfig holds outbound mail settings.
type SMTPConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     string `mapstructure:"port" yaml:"port"`
	User     string `mapstructure:"user" yaml:"user"`
	Pass     string `mapstructure:"pass" yaml:"pass"`
	From     string `mapstructure:"from" yaml:"from"`
	FromName string `mapstructure:"from_name" yaml:"from_name"`

	// IMAPHost enables filing a copy of every sent message in SentFolder
	// over IMAP, using the SMTP credentials. Empty disables it.
	IMAPHost   string `mapstructure:"imap_host" yaml:"imap_host"`
	IMAPPort   string `mapstructure:"imap_port" yaml:"imap_port"`
	SentFolder string `mapstructure:"sent_folder" yaml:"sent_folder"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// DisplayConfig holds terminal rendering preferences.
type DisplayConfig struct {
	Theme string `mapstructure:"theme" yaml:"theme"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
	Store      StoreConfig      `mapstructure:"store" yaml:"store"`
	Automation AutomationConfig `mapstructure:"automation" yaml:"automation"`
	SMTP       SMTPConfig       `mapstructure:"smtp" yaml:"smtp"`
	Log        LogConfig        `mapstructure:"log" yaml:"log"`
	Display    DisplayConfig    `mapstructure:"display" yaml:"display"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/marketing-pilot/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// DefaultDBPath returns the default SQLite database location.
func DefaultDBPath() string {
	return filepath.Join(configDir(), "pilot.db")
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "marketing-pilot")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Addr:               ":8080",
			ReadTimeoutSec:     15,
			WriteTimeoutSec:    60,
			ShutdownTimeoutSec: 10,
		},
		Store: StoreConfig{
			Backend: BackendSQLite,
			Path:    DefaultDBPath(),
		},
		Automation: AutomationConfig{
			DueSoonHours: 48,
			StuckDays:    3,
			Timezone:     "UTC",
		},
		SMTP: SMTPConfig{
			FromName:   "Marketing Pilot",
			IMAPPort:   "993",
			SentFolder: "Sent",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Display: DisplayConfig{
			Theme: "default",
		},
	}
}

// DefaultConfig returns the built-in defaults, without environment
// overrides.
func DefaultConfig() *AppConfig {
	return defaultAppConfig()
}

// envBindings maps config keys to the environment variables that
// override them.
var envBindings = map[string][]string{
	"automation.secret":       {"AUTOMATION_SECRET"},
	"smtp.host":               {"SMTP_HOST"},
	"smtp.port":               {"SMTP_PORT"},
	"smtp.user":               {"SMTP_USER"},
	"smtp.pass":               {"SMTP_PASS", "BREVO_API_KEY"},
	"smtp.from":               {"SMTP_FROM"},
	"smtp.imap_host":          {"IMAP_HOST"},
	"smtp.imap_port":          {"IMAP_PORT"},
	"store.backend":           {"PILOT_STORE_BACKEND"},
	"store.path":              {"PILOT_DB_PATH"},
	"store.firestore_project": {"FIRESTORE_PROJECT_ID", "GOOGLE_CLOUD_PROJECT"},
	"store.credentials_file":  {"GOOGLE_APPLICATION_CREDENTIALS"},
	"server.addr":             {"PILOT_ADDR"},
	"log.level":               {"PILOT_LOG_LEVEL"},
}

// LoadConfig reads configuration from the given YAML file path using Viper,
// then applies environment overrides. A missing file yields the defaults
// (plus environment).
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	def := defaultAppConfig()
	v.SetDefault("server.addr", def.Server.Addr)
	v.SetDefault("server.read_timeout_sec", def.Server.ReadTimeoutSec)
	v.SetDefault("server.write_timeout_sec", def.Server.WriteTimeoutSec)
	v.SetDefault("server.shutdown_timeout_sec", def.Server.ShutdownTimeoutSec)
	v.SetDefault("store.backend", def.Store.Backend)
	v.SetDefault("store.path", def.Store.Path)
	v.SetDefault("automation.due_soon_hours", def.Automation.DueSoonHours)
	v.SetDefault("automation.stuck_days", def.Automation.StuckDays)
	v.SetDefault("automation.timezone", def.Automation.Timezone)
	v.SetDefault("smtp.from_name", def.SMTP.FromName)
	v.SetDefault("smtp.imap_port", def.SMTP.IMAPPort)
	v.SetDefault("smtp.sent_folder", def.SMTP.SentFolder)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.format", def.Log.Format)
	v.SetDefault("display.theme", def.Display.Theme)

	for key, envs := range envBindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("binding env for %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); !ok {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		}
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks value ranges that viper cannot express.
func (c *AppConfig) Validate() error {
	switch c.Store.Backend {
	case BackendSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("store.path must be set for the sqlite backend")
		}
	case BackendFirestore:
		if c.Store.FirestoreProject == "" {
			return fmt.Errorf("store.firestore_project must be set for the firestore backend")
		}
	default:
		return fmt.Errorf("unknown store.backend %q", c.Store.Backend)
	}
	if c.Automation.DueSoonHours <= 0 {
		return fmt.Errorf("automation.due_soon_hours must be positive")
	}
	if c.Automation.StuckDays <= 0 {
		return fmt.Errorf("automation.stuck_days must be positive")
	}
	if _, err := c.Automation.Location(); err != nil {
		return err
	}
	return nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed. Secrets are never written; they
// belong in the environment or the keyring.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	automation := cfg.Automation
	automation.Secret = ""
	smtp := cfg.SMTP
	smtp.Pass = ""

	v.Set("server", cfg.Server)
	v.Set("store", cfg.Store)
	v.Set("automation", automation)
	v.Set("smtp", smtp)
	v.Set("log", cfg.Log)
	v.Set("display", cfg.Display)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
