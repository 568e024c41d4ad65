package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/marketing-pilot/internal/api"
	"github.com/nhle/marketing-pilot/internal/model"
)

func TestClient_Run(t *testing.T) {
	var gotSecret, gotType, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSecret = r.Header.Get(api.SecretHeader)
		gotType = r.URL.Query().Get("type")
		gotMethod = r.Method
		json.NewEncoder(w).Encode(api.RunResponse{
			Success:    true,
			Type:       model.CheckOverdue,
			Result:     &model.RunResult{Checked: 3, Flagged: 1, NotificationsCreated: 1, TaskIDs: []string{"t1"}},
			ExecutedAt: "2026-03-04T12:00:00Z",
		})
	}))
	defer srv.Close()

	resp, err := NewClient(srv.URL+"/", "s3cret").Run(context.Background(), model.CheckOverdue)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "s3cret", gotSecret)
	assert.Equal(t, "overdue", gotType)
	assert.True(t, resp.Success)
	assert.Equal(t, []string{"t1"}, resp.Result.TaskIDs)
}

func TestClient_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "wrong").Run(context.Background(), model.CheckAll)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"loading tasks: disk I/O error"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "s").Run(context.Background(), model.CheckStuck)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server error (500)")
	assert.Contains(t, err.Error(), "disk I/O error")
}

func TestClient_RetriesWhenThrottled(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(api.RunResponse{Success: true, Type: model.CheckDueSoon})
	}))
	defer srv.Close()

	resp, err := NewClient(srv.URL, "s").Run(context.Background(), model.CheckDueSoon)
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_GivesUpAfterMaxRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "s", WithMaxRetries(1)).Run(context.Background(), model.CheckDueSoon)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries (1) exceeded")
}

func TestRetryAfterDuration(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		attempt int
		want    time.Duration
	}{
		{"header seconds", "7", 0, 7 * time.Second},
		{"backoff first", "", 0, time.Second},
		{"backoff third", "", 2, 4 * time.Second},
		{"backoff capped", "", 10, 30 * time.Second},
		{"bad header", "soon", 1, 2 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &http.Response{Header: http.Header{}}
			if tt.header != "" {
				resp.Header.Set("Retry-After", tt.header)
			}
			assert.Equal(t, tt.want, retryAfterDuration(resp, tt.attempt))
		})
	}
}

func TestParseSchedule(t *testing.T) {
	s, err := ParseSchedule("0 8 * * 1")
	require.NoError(t, err)
	from := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC) // Wednesday
	assert.Equal(t, time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC), s.Next(from))

	_, err = ParseSchedule("@daily")
	assert.NoError(t, err)

	_, err = ParseSchedule("every tuesday")
	assert.Error(t, err)
}

type fakeRunner struct {
	calls int
	err   error
}

func (f *fakeRunner) Run(_ context.Context, check model.CheckType) (*api.RunResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &api.RunResponse{Success: true, Type: check, Result: model.NewRunResult()}, nil
}

func TestLoop_RunsOnEachActivation(t *testing.T) {
	sched, err := ParseSchedule("@hourly")
	require.NoError(t, err)

	now := time.Date(2026, 3, 4, 12, 30, 0, 0, time.UTC)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var waits []time.Duration
	runner := &fakeRunner{err: errors.New("connection refused")}
	loop := NewLoop(runner, sched, model.CheckAll, WithLoopClock(
		func() time.Time { return now },
		func(ctx context.Context, d time.Duration) error {
			waits = append(waits, d)
			now = now.Add(d)
			if len(waits) == 4 {
				cancel()
				return ctx.Err()
			}
			return nil
		},
	))

	require.NoError(t, loop.Run(ctx))
	assert.Equal(t, 3, runner.calls, "failed runs do not stop the loop")
	assert.Equal(t, []time.Duration{30 * time.Minute, time.Hour, time.Hour, time.Hour}, waits)
}

func TestLoop_Once(t *testing.T) {
	sched, err := ParseSchedule("@daily")
	require.NoError(t, err)

	runner := &fakeRunner{}
	resp, err := NewLoop(runner, sched, model.CheckWeeklyReport).Once(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.CheckWeeklyReport, resp.Type)
	assert.Equal(t, 1, runner.calls)
}
