package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/marketing-pilot/internal/api"
	"github.com/nhle/marketing-pilot/internal/app"
	"github.com/nhle/marketing-pilot/internal/credential"
	"github.com/nhle/marketing-pilot/internal/model"
	"github.com/nhle/marketing-pilot/internal/store"
	uitimer "github.com/nhle/marketing-pilot/internal/ui/timer"
)

// fakeKeyring replaces the keyring seams for one test.
func fakeKeyring(t *testing.T) map[string]string {
	t.Helper()
	ring := map[string]string{}
	origGet, origSet := keyringGet, keyringSet
	keyringGet = func(key string) (string, error) {
		if v, ok := ring[key]; ok {
			return v, nil
		}
		return "", credential.ErrNotFound
	}
	keyringSet = func(key, value string) error {
		ring[key] = value
		return nil
	}
	t.Cleanup(func() { keyringGet, keyringSet = origGet, origSet })
	return ring
}

// testEnv points the CLI at a throwaway config path and database.
func testEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("PILOT_DB_PATH", filepath.Join(dir, "pilot.db"))
	t.Setenv("PILOT_STORE_BACKEND", model.BackendSQLite)
	t.Setenv("AUTOMATION_SECRET", "")
	t.Setenv("SMTP_HOST", "")
	fakeKeyring(t)
	return filepath.Join(dir, "config.yaml")
}

func execute(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand("test")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", configPath}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestRoot_HelpListsCommands(t *testing.T) {
	out, err := execute(t, testEnv(t), "--help")
	require.NoError(t, err)
	for _, name := range []string{"serve", "run", "trigger", "notifications", "timer", "secret", "config", "seed"} {
		assert.Contains(t, out, name)
	}
}

func TestSeedRunAndList(t *testing.T) {
	cfg := testEnv(t)

	out, err := execute(t, cfg, "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "Seeded 3 users, 2 clients, 1 projects, 5 tasks")

	out, err = execute(t, cfg, "run", "all", "--json")
	require.NoError(t, err)
	var res model.RunResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 2, res.Breakdown[model.CheckDueSoon].Flagged)
	assert.Equal(t, 1, res.Breakdown[model.CheckOverdue].Flagged)
	assert.Equal(t, 2, res.Breakdown[model.CheckStuck].Flagged)
	assert.Len(t, res.Reports, 3)

	out, err = execute(t, cfg, "run", "overdue")
	require.NoError(t, err)
	assert.Contains(t, out, "Automation: overdue")
	assert.Contains(t, out, "flagged 1")

	out, err = execute(t, cfg, "notifications", "list", "--user", "u-ben", "--unread")
	require.NoError(t, err)
	assert.Contains(t, out, "overdue")
	assert.Contains(t, out, "Schedule social posts")
}

func TestRun_UnknownType(t *testing.T) {
	_, err := execute(t, testEnv(t), "run", "hourly")
	assert.ErrorIs(t, err, model.ErrUnknownCheckType)
}

func TestNotificationsList_RequiresUser(t *testing.T) {
	_, err := execute(t, testEnv(t), "notifications", "list")
	assert.ErrorContains(t, err, "user")
}

func TestNotificationsRead_NotFound(t *testing.T) {
	_, err := execute(t, testEnv(t), "notifications", "read", "missing")
	assert.ErrorContains(t, err, "not found")
}

// closeCountingStore records how often the container closes its store.
type closeCountingStore struct {
	store.Store
	closed *int
}

func (s closeCountingStore) Close() error {
	*s.closed++
	return s.Store.Close()
}

func TestContainerClosedWhenCommandFails(t *testing.T) {
	cfg := testEnv(t)
	closed := 0
	newContainer := func(ctx context.Context, configPath string) (*app.Container, error) {
		return app.New(ctx, configPath, app.Options{
			LogOutput: io.Discard,
			Lookup:    keyringGet,
			OpenStore: func(ctx context.Context, sc model.StoreConfig) (store.Store, error) {
				st, err := app.OpenStore(ctx, sc)
				if err != nil {
					return nil, err
				}
				return closeCountingStore{Store: st, closed: &closed}, nil
			},
		})
	}

	root := newRootCommand("test", newContainer)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"--config", cfg, "notifications", "read", "missing"})
	require.Error(t, root.Execute())
	assert.Equal(t, 1, closed)

	root = newRootCommand("test", newContainer)
	root.SetOut(io.Discard)
	root.SetArgs([]string{"--config", cfg, "seed"})
	require.NoError(t, root.Execute())
	assert.Equal(t, 2, closed)
}

func TestConfigInitAndShow(t *testing.T) {
	cfg := testEnv(t)

	out, err := execute(t, cfg, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+cfg)
	_, err = os.Stat(cfg)
	require.NoError(t, err)

	_, err = execute(t, cfg, "config", "init")
	assert.ErrorContains(t, err, "already exists")

	_, err = execute(t, cfg, "config", "init", "--force")
	assert.NoError(t, err)

	t.Setenv("AUTOMATION_SECRET", "do-not-print-me")
	out, err = execute(t, cfg, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "due_soon_hours: 48")
	assert.Contains(t, out, redacted)
	assert.NotContains(t, out, "do-not-print-me")
}

func TestSecretSetAndGet(t *testing.T) {
	cfg := testEnv(t)

	out, err := execute(t, cfg, "secret", "get", "automation-secret")
	require.NoError(t, err)
	assert.Contains(t, out, "source: fallback")

	_, err = execute(t, cfg, "secret", "set", "automation-secret", "--value", "kr-secret-12345")
	require.NoError(t, err)

	out, err = execute(t, cfg, "secret", "get", "automation-secret")
	require.NoError(t, err)
	assert.Contains(t, out, "***********2345 (source: keyring)")

	out, err = execute(t, cfg, "secret", "get", "smtp-password")
	require.NoError(t, err)
	assert.Contains(t, out, "(not set)")

	_, err = execute(t, cfg, "secret", "set", "github-token", "--value", "x")
	assert.ErrorContains(t, err, "unknown secret")
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", maskSecret(""))
	assert.Equal(t, "****", maskSecret("abcd"))
	assert.Equal(t, "*****6789", maskSecret("123456789"))
}

func TestTrigger(t *testing.T) {
	cfg := testEnv(t)
	t.Setenv("AUTOMATION_SECRET", "trigger-secret")

	var gotSecret string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSecret = r.Header.Get(api.SecretHeader)
		json.NewEncoder(w).Encode(api.RunResponse{
			Success: true,
			Type:    model.CheckDueSoon,
			Result:  &model.RunResult{Checked: 4, Flagged: 2, NotificationsCreated: 2, TaskIDs: []string{"a", "b"}},
		})
	}))
	defer srv.Close()

	out, err := execute(t, cfg, "trigger", "--url", srv.URL, "--type", "due_soon", "--once")
	require.NoError(t, err)
	assert.Equal(t, "trigger-secret", gotSecret)
	assert.Contains(t, out, "checked 4, flagged 2, notifications 2")

	_, err = execute(t, cfg, "trigger", "--url", srv.URL)
	assert.ErrorContains(t, err, "--schedule or --once")

	_, err = execute(t, cfg, "trigger", "--url", srv.URL, "--schedule", "not a cron")
	assert.ErrorContains(t, err, "parsing schedule")
}

func TestTimer(t *testing.T) {
	cfg := testEnv(t)
	_, err := execute(t, cfg, "seed")
	require.NoError(t, err)

	orig := runProgram
	t.Cleanup(func() { runProgram = orig })

	var ran uitimer.Model
	runProgram = func(m tea.Model) (tea.Model, error) {
		ran = m.(uitimer.Model)
		return m, nil
	}

	_, err = execute(t, cfg, "timer", "t-brief", "--user", "u-ana")
	require.NoError(t, err)
	assert.Equal(t, "t-brief", ran.Timer().TaskID())

	_, err = execute(t, cfg, "timer", "t-missing")
	assert.ErrorContains(t, err, "not found")
}
