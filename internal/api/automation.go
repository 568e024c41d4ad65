package api

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/nhle/marketing-pilot/internal/model"
)

// RunResponse is the body of a successful automation run.
type RunResponse struct {
	Success    bool             `json:"success"`
	Type       model.CheckType  `json:"type"`
	Result     *model.RunResult `json:"result"`
	ExecutedAt string           `json:"executedAt"`
}

// CapabilityResponse is the static body returned by GET.
type CapabilityResponse struct {
	Status    string            `json:"status"`
	Endpoint  string            `json:"endpoint"`
	Method    string            `json:"method"`
	Header    string            `json:"header"`
	Types     []model.CheckType `json:"types"`
	Schedules map[string]string `json:"schedules"`
}

var capabilities = CapabilityResponse{
	Status:   "ok",
	Endpoint: "/api/automations/run",
	Method:   http.MethodPost,
	Header:   SecretHeader,
	Types:    model.CheckTypes,
	Schedules: map[string]string{
		string(model.CheckDueSoon):      "daily",
		string(model.CheckOverdue):      "daily",
		string(model.CheckStuck):        "daily",
		string(model.CheckWeeklyReport): "weekly (Monday)",
		string(model.CheckAll):          "daily",
	},
}

// authorized compares the presented secret in constant time. An empty
// configured secret authorizes nobody.
func (s *Server) authorized(presented string) bool {
	if s.cfg.Secret == "" || presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(s.cfg.Secret)) == 1
}

func (s *Server) automationHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, capabilities)
			return
		case http.MethodPost:
		default:
			w.Header().Set("Allow", "GET, POST")
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		if !s.authorized(r.Header.Get(SecretHeader)) {
			s.log.Warn("automation request rejected", "remote", r.RemoteAddr)
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		check, err := model.ParseCheckType(r.URL.Query().Get("type"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		res, err := s.runner.Run(r.Context(), check)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		writeJSON(w, RunResponse{
			Success:    true,
			Type:       check,
			Result:     res,
			ExecutedAt: s.now().UTC().Format(time.RFC3339),
		})
	}
}
