package notify

import (
	"context"
	"errors"

	"github.com/nhle/marketing-pilot/internal/model"
	"github.com/nhle/marketing-pilot/internal/store"
)

// Modal is a notification resolved for display: its linked entity with
// the entity's client name and current status.
type Modal struct {
	Notification model.Notification `json:"notification"`
	Entity       *model.Entity      `json:"entity,omitempty"`
	ClientName   string             `json:"clientName,omitempty"`
	Status       string             `json:"status,omitempty"`
}

// Open resolves notification id for the modal. A linked entity that no
// longer exists leaves Entity nil rather than failing.
func (s *Service) Open(ctx context.Context, id string) (*Modal, error) {
	n, err := s.store.GetNotificationByID(ctx, id)
	if err != nil {
		return nil, err
	}
	m := &Modal{Notification: *n}

	ref, ok := n.Ref()
	if !ok {
		return m, nil
	}
	entity, err := store.GetEntity(ctx, s.store, ref)
	if errors.Is(err, store.ErrNotFound) {
		s.log.Warn("notification entity missing", "notification", id, "kind", ref.Kind, "entity", ref.ID)
		return m, nil
	}
	if err != nil {
		return nil, err
	}
	m.Entity = &entity
	m.Status = entity.Status()

	if cid := entity.ClientID(); cid != "" {
		c, err := s.store.GetClientByID(ctx, cid)
		switch {
		case err == nil:
			m.ClientName = c.Name
		case !errors.Is(err, store.ErrNotFound):
			return nil, err
		}
	}
	return m, nil
}

// Acknowledge marks the notification read. Repeating it is a no-op.
func (s *Service) Acknowledge(ctx context.Context, id string) error {
	return s.store.MarkNotificationRead(ctx, id)
}

// GoTo marks the notification read and returns the deep link to its
// entity, or "" when it has none.
func (s *Service) GoTo(ctx context.Context, id string) (string, error) {
	n, err := s.store.GetNotificationByID(ctx, id)
	if err != nil {
		return "", err
	}
	if err := s.store.MarkNotificationRead(ctx, id); err != nil {
		return "", err
	}
	if n.Link != "" {
		return n.Link, nil
	}
	if ref, ok := n.Ref(); ok {
		return ref.Link(), nil
	}
	return "", nil
}

// Close dismisses the modal. Closing without acting still marks read.
func (s *Service) Close(ctx context.Context, id string) error {
	return s.store.MarkNotificationRead(ctx, id)
}
