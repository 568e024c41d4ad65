// Package api serves the HTTP surface: the secret-gated automation
// endpoint plus the notification, task and mail routes used by the web
// client.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/nhle/marketing-pilot/internal/logging"
	"github.com/nhle/marketing-pilot/internal/mail"
	"github.com/nhle/marketing-pilot/internal/model"
	"github.com/nhle/marketing-pilot/internal/notify"
	"github.com/nhle/marketing-pilot/internal/store"
)

// SecretHeader carries the shared automation secret.
const SecretHeader = "x-automation-secret"

// Runner executes automation checks. *automation.Engine satisfies it.
type Runner interface {
	Run(ctx context.Context, check model.CheckType) (*model.RunResult, error)
}

// Mailer sends outbound email. *mail.Mailer satisfies it.
type Mailer interface {
	Send(ctx context.Context, msg mail.Message) error
}

// Config holds listener settings and the automation secret.
type Config struct {
	Addr            string
	Secret          string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// ConfigFrom converts the application server section.
func ConfigFrom(c model.ServerConfig, secret string) Config {
	return Config{
		Addr:            c.Addr,
		Secret:          secret,
		ReadTimeout:     time.Duration(c.ReadTimeoutSec) * time.Second,
		WriteTimeout:    time.Duration(c.WriteTimeoutSec) * time.Second,
		ShutdownTimeout: time.Duration(c.ShutdownTimeoutSec) * time.Second,
	}
}

// Deps are the services the handlers call. Mailer may be nil when SMTP
// is not configured.
type Deps struct {
	Runner Runner
	Notify *notify.Service
	Store  store.Store
	Mailer Mailer
	Logger *slog.Logger
	Now    func() time.Time
}

// Server is the HTTP API server.
type Server struct {
	cfg    Config
	runner Runner
	notify *notify.Service
	store  store.Store
	mailer Mailer
	log    *slog.Logger
	now    func() time.Time
	mux    *http.ServeMux
}

// NewServer creates a new API server.
func NewServer(cfg Config, deps Deps) *Server {
	s := &Server{
		cfg:    cfg,
		runner: deps.Runner,
		notify: deps.Notify,
		store:  deps.Store,
		mailer: deps.Mailer,
		log:    deps.Logger,
		now:    deps.Now,
		mux:    http.NewServeMux(),
	}
	if s.log == nil {
		s.log = logging.Discard()
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/automations/run", s.automationHandler())

	s.mux.HandleFunc("GET /api/users/{id}/notifications", s.listNotificationsHandler())
	s.mux.HandleFunc("GET /api/notifications/{id}", s.openNotificationHandler())
	s.mux.HandleFunc("POST /api/notifications/{id}/read", s.acknowledgeHandler())
	s.mux.HandleFunc("POST /api/notifications/{id}/goto", s.goToHandler())
	s.mux.HandleFunc("POST /api/notifications/{id}/close", s.closeHandler())

	s.mux.HandleFunc("POST /api/tasks/{id}/assign", s.assignTaskHandler())
	s.mux.HandleFunc("POST /api/tasks/{id}/status", s.updateStatusHandler())
	s.mux.HandleFunc("POST /api/tasks/{id}/timer/start", s.startTimerHandler())
	s.mux.HandleFunc("POST /api/tasks/{id}/time", s.logTimeHandler())

	s.mux.HandleFunc("POST /api/approvals", s.requestApprovalHandler())
	s.mux.HandleFunc("POST /api/email/send", s.sendEmailHandler())
}

// Handler returns the routed handler wrapped in request logging.
func (s *Server) Handler() http.Handler {
	return logging.Middleware(s.log, s.mux)
}

// Start listens on the configured address and serves until ctx is
// cancelled.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully. Requests in flight at cancellation run to completion.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.log.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeServiceError maps service errors to status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, notify.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}
