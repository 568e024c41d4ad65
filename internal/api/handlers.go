package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/nhle/marketing-pilot/internal/mail"
	"github.com/nhle/marketing-pilot/internal/model"
)

func (s *Server) listNotificationsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		unread := q.Get("unread") == "true"
		limit := 0
		if v := q.Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
				return
			}
			limit = n
		}

		inbox, err := s.notify.List(r.Context(), r.PathValue("id"), unread, limit)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, inbox)
	}
}

func (s *Server) openNotificationHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := s.notify.Open(r.Context(), r.PathValue("id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, m)
	}
}

func (s *Server) acknowledgeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.notify.Acknowledge(r.Context(), r.PathValue("id")); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, map[string]bool{"read": true})
	}
}

func (s *Server) goToHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		link, err := s.notify.GoTo(r.Context(), r.PathValue("id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, map[string]string{"link": link})
	}
}

func (s *Server) closeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.notify.Close(r.Context(), r.PathValue("id")); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, map[string]bool{"read": true})
	}
}

// NotificationResponse wraps the notification a trigger produced, which
// is null when nobody needed notifying.
type NotificationResponse struct {
	Notification *model.Notification `json:"notification"`
}

type assignRequest struct {
	AssigneeID string `json:"assigneeId"`
	ActorID    string `json:"actorId"`
}

func (s *Server) assignTaskHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req assignRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		n, err := s.notify.AssignTask(r.Context(), r.PathValue("id"), req.AssigneeID, req.ActorID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, NotificationResponse{Notification: n})
	}
}

type statusRequest struct {
	Status  string `json:"status"`
	ActorID string `json:"actorId"`
}

func (s *Server) updateStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req statusRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		n, err := s.notify.UpdateStatus(r.Context(), r.PathValue("id"), req.Status, req.ActorID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, NotificationResponse{Notification: n})
	}
}

type timerStartRequest struct {
	UserID string `json:"userId"`
}

func (s *Server) startTimerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req timerStartRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.UserID == "" {
			writeError(w, http.StatusBadRequest, "userId is required")
			return
		}
		at := s.now()
		if err := s.store.MarkTimerStarted(r.Context(), r.PathValue("id"), req.UserID, at); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, map[string]string{"startedAt": at.UTC().Format(time.RFC3339)})
	}
}

type logTimeRequest struct {
	UserID  string `json:"userId"`
	Seconds int64  `json:"seconds"`
}

func (s *Server) logTimeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req logTimeRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.Seconds <= 0 {
			writeError(w, http.StatusBadRequest, "seconds must be positive")
			return
		}
		entry := model.TimeEntry{
			TaskID:   r.PathValue("id"),
			UserID:   req.UserID,
			Seconds:  req.Seconds,
			LoggedAt: s.now(),
		}
		if err := s.store.LogTime(r.Context(), entry); err != nil {
			writeServiceError(w, err)
			return
		}
		task, err := s.store.GetTaskByID(r.Context(), entry.TaskID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, task)
	}
}

type approvalRequest struct {
	EntityKind  string `json:"entityKind"`
	EntityID    string `json:"entityId"`
	ApproverID  string `json:"approverId"`
	RequesterID string `json:"requesterId"`
}

func (s *Server) requestApprovalHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req approvalRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		ref := model.EntityRef{Kind: model.EntityKind(req.EntityKind), ID: req.EntityID}
		n, err := s.notify.RequestApproval(r.Context(), ref, req.ApproverID, req.RequesterID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, NotificationResponse{Notification: n})
	}
}

func (s *Server) sendEmailHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authorized(r.Header.Get(SecretHeader)) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if s.mailer == nil {
			writeError(w, http.StatusServiceUnavailable, mail.ErrNotConfigured.Error())
			return
		}

		var msg mail.Message
		if !decodeJSON(w, r, &msg) {
			return
		}
		if err := msg.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		if err := s.mailer.Send(r.Context(), msg); err != nil {
			s.log.Error("sending email failed", "subject", msg.Subject, "error", err)
			code := http.StatusBadGateway
			if errors.Is(err, mail.ErrNotConfigured) {
				code = http.StatusServiceUnavailable
			}
			writeError(w, code, err.Error())
			return
		}
		writeJSON(w, map[string]bool{"success": true})
	}
}
