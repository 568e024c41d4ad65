package model

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, envs := range envBindings {
		for _, e := range envs {
			t.Setenv(e, "")
		}
	}
}

func TestLoadConfig_MissingFileGivesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, 48*time.Hour, cfg.Automation.DueSoonWindow())
	assert.Equal(t, 72*time.Hour, cfg.Automation.StuckAfter())
	assert.Empty(t, cfg.Automation.Secret)
}

func TestLoadConfig_FileAndEnvironment(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
automation:
  due_soon_hours: 24
  stuck_days: 5
  notify_managers: true
  timezone: Europe/Berlin
smtp:
  host: smtp.example.com
  port: "587"
`), 0o600))

	t.Setenv("AUTOMATION_SECRET", "env-secret")
	t.Setenv("BREVO_API_KEY", "brevo-key")
	t.Setenv("PILOT_ADDR", ":9090")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 24*time.Hour, cfg.Automation.DueSoonWindow())
	assert.Equal(t, 5*24*time.Hour, cfg.Automation.StuckAfter())
	assert.True(t, cfg.Automation.NotifyManagers)
	assert.Equal(t, "env-secret", cfg.Automation.Secret)
	assert.Equal(t, "brevo-key", cfg.SMTP.Pass)
	assert.Equal(t, "smtp.example.com", cfg.SMTP.Host)
	assert.Equal(t, ":9090", cfg.Server.Addr)

	loc, err := cfg.Automation.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", loc.String())
}

func TestLoadConfig_Invalid(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("automation:\n  timezone: Mars/Olympus\n"), 0o600))

	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "Mars/Olympus")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*AppConfig)
		wantErr string
	}{
		{"defaults", func(*AppConfig) {}, ""},
		{"unknown backend", func(c *AppConfig) { c.Store.Backend = "mongo" }, "unknown store.backend"},
		{"sqlite without path", func(c *AppConfig) { c.Store.Path = "" }, "store.path"},
		{"firestore without project", func(c *AppConfig) { c.Store.Backend = BackendFirestore }, "firestore_project"},
		{"zero window", func(c *AppConfig) { c.Automation.DueSoonHours = 0 }, "due_soon_hours"},
		{"negative stuck", func(c *AppConfig) { c.Automation.StuckDays = -1 }, "stuck_days"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestSaveConfig_OmitsSecrets(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	cfg := DefaultConfig()
	cfg.Automation.Secret = "top-secret"
	cfg.SMTP.Pass = "smtp-pass"
	cfg.Automation.StuckDays = 4
	require.NoError(t, SaveConfig(path, cfg))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "top-secret")
	assert.NotContains(t, string(raw), "smtp-pass")

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 4, loaded.Automation.StuckDays)
	assert.Empty(t, loaded.Automation.Secret)
	assert.Equal(t, "top-secret", cfg.Automation.Secret, "caller's config is not modified")
}

func TestParseCheckType(t *testing.T) {
	for _, ct := range CheckTypes {
		got, err := ParseCheckType(string(ct))
		require.NoError(t, err)
		assert.Equal(t, ct, got)
	}
	for _, bad := range []string{"", "ALL", "daily"} {
		_, err := ParseCheckType(bad)
		assert.ErrorIs(t, err, ErrUnknownCheckType, bad)
	}
}

func TestRunResult_EncodesEmptyTaskIDs(t *testing.T) {
	b, err := json.Marshal(NewRunResult())
	require.NoError(t, err)
	assert.JSONEq(t, `{"checked":0,"flagged":0,"notificationsCreated":0,"taskIds":[]}`, string(b))
}

func TestRunResult_Add(t *testing.T) {
	total := NewRunResult()
	total.Add(&RunResult{Checked: 3, Flagged: 1, NotificationsCreated: 2, TaskIDs: []string{"a"}})
	total.Add(&RunResult{Checked: 3, Flagged: 2, NotificationsCreated: 2, TaskIDs: []string{"b", "c"}})
	assert.Equal(t, 6, total.Checked)
	assert.Equal(t, 3, total.Flagged)
	assert.Equal(t, 4, total.NotificationsCreated)
	assert.Equal(t, []string{"a", "b", "c"}, total.TaskIDs)
}

func TestEntityRef(t *testing.T) {
	assert.Equal(t, "/tasks/t1", EntityRef{Kind: EntityKindTask, ID: "t1"}.Link())
	assert.Equal(t, "/projects/p1", EntityRef{Kind: EntityKindProject, ID: "p1"}.Link())
	assert.Equal(t, "", EntityRef{ID: "x"}.Link())

	_, err := ParseEntityKind("client")
	assert.Error(t, err)

	task := Task{ID: "t1", Title: "Brief", CreatedAt: time.Unix(0, 0)}
	assert.Equal(t, EntityRef{Kind: EntityKindTask, ID: "t1"}, TaskEntity(task).Ref())
	assert.Equal(t, task.CreatedAt, task.ActivityAt())

	due := time.Unix(3600, 0)
	proj := ProjectEntity(Project{ID: "p1", Name: "Spring", ClientID: "c1", Status: "active", DueDate: &due})
	assert.Equal(t, EntityRef{Kind: EntityKindProject, ID: "p1"}, proj.Ref())
	assert.Equal(t, "Spring", proj.Title())
	assert.Equal(t, "c1", proj.ClientID())
	assert.Equal(t, "active", proj.Status())
	assert.Equal(t, &due, proj.DueDate())
	assert.Nil(t, TaskEntity(task).DueDate())
	assert.Equal(t, "", Entity{}.Title())
}
