// Package notify holds the user-facing notification actions: opening the
// notification modal, marking notifications read, and the manual
// triggers (task assignment, status change, approval request) that
// create notifications outside the automation checks.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nhle/marketing-pilot/internal/logging"
	"github.com/nhle/marketing-pilot/internal/model"
	"github.com/nhle/marketing-pilot/internal/store"
)

// ErrInvalidInput wraps every rejection of caller-supplied values.
var ErrInvalidInput = errors.New("invalid input")

// Service performs notification actions against a store.
type Service struct {
	store store.Store
	now   func() time.Time
	log   *slog.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the time source used for new notifications.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) { s.log = log }
}

// New returns a Service backed by st.
func New(st store.Store, opts ...Option) *Service {
	s := &Service{store: st, now: time.Now, log: logging.Discard()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Inbox is one user's notification listing.
type Inbox struct {
	Notifications []model.Notification `json:"notifications"`
	Unread        int                  `json:"unread"`
}

// List returns a user's notifications, newest first, with the unread count.
func (s *Service) List(ctx context.Context, userID string, unreadOnly bool, limit int) (*Inbox, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	ns, err := s.store.GetNotifications(ctx, store.NotificationFilter{
		UserID:     userID,
		UnreadOnly: unreadOnly,
		Limit:      limit,
	})
	if err != nil {
		return nil, err
	}
	unread, err := s.store.CountNotifications(ctx, store.NotificationFilter{UserID: userID, UnreadOnly: true})
	if err != nil {
		return nil, err
	}
	if ns == nil {
		ns = []model.Notification{}
	}
	return &Inbox{Notifications: ns, Unread: unread}, nil
}

// create fills CreatedAt and writes n.
func (s *Service) create(ctx context.Context, n *model.Notification) error {
	n.CreatedAt = s.now()
	if err := s.store.CreateNotification(ctx, n); err != nil {
		return err
	}
	s.log.Debug("notification created", "id", n.ID, "user", n.UserID, "type", n.Type)
	return nil
}

// displayName returns the user's name, or "Someone" when the user is
// unknown.
func (s *Service) displayName(ctx context.Context, userID string) string {
	if userID == "" {
		return "Someone"
	}
	u, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return "Someone"
	}
	return u.Name
}
