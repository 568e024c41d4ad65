package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/nhle/marketing-pilot/internal/model"
)

// validateNotification applies the notification field rules shared by
// every backend.
func validateNotification(n *model.Notification) error {
	if n.UserID == "" {
		return fmt.Errorf("notification recipient must not be empty")
	}
	if n.Type == "" {
		return fmt.Errorf("notification type must not be empty")
	}
	if strings.TrimSpace(n.Message) == "" {
		return fmt.Errorf("notification message must not be empty")
	}
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	n.Read = false
	n.ReadAt = nil
	return nil
}

// CreateNotification inserts a new, unread notification record.
func (s *SQLiteStore) CreateNotification(
	ctx context.Context,
	n *model.Notification,
) error {
	if err := validateNotification(n); err != nil {
		return err
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.timestamp()
	}
	n.CreatedAt = dbTime(n.CreatedAt)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (
			id, user_id, type, title, message, link,
			entity_kind, entity_id, read, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, string(n.Type), n.Title, n.Message, n.Link,
		string(n.EntityKind), n.EntityID, boolToInt(n.Read), n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating notification: %w", err)
	}
	return nil
}

// GetNotificationByID retrieves a single notification.
func (s *SQLiteStore) GetNotificationByID(
	ctx context.Context,
	id string,
) (*model.Notification, error) {
	var n model.Notification
	if err := s.db.GetContext(ctx, &n, "SELECT * FROM notifications WHERE id = ?", id); err != nil {
		return nil, notFound(err, "notification", id)
	}
	return &n, nil
}

func notificationWhere(filter NotificationFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}
	if filter.UserID != "" {
		conditions = append(conditions, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.UnreadOnly {
		conditions = append(conditions, "read = 0")
	}
	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// GetNotifications retrieves notifications matching the filter, newest first.
func (s *SQLiteStore) GetNotifications(
	ctx context.Context,
	filter NotificationFilter,
) ([]model.Notification, error) {
	where, args := notificationWhere(filter)
	query := "SELECT * FROM notifications" + where + " ORDER BY created_at DESC, id"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	var notifications []model.Notification
	if err := s.db.SelectContext(ctx, &notifications, query, args...); err != nil {
		return nil, fmt.Errorf("querying notifications: %w", err)
	}
	return notifications, nil
}

// CountNotifications counts notifications matching the filter (Limit is ignored).
func (s *SQLiteStore) CountNotifications(
	ctx context.Context,
	filter NotificationFilter,
) (int, error) {
	where, args := notificationWhere(filter)
	var count int
	if err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM notifications"+where, args...); err != nil {
		return 0, fmt.Errorf("counting notifications: %w", err)
	}
	return count, nil
}

// MarkNotificationRead marks a single notification as read. Marking an
// already-read notification keeps its original read_at and succeeds.
func (s *SQLiteStore) MarkNotificationRead(
	ctx context.Context,
	id string,
) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET read = 1, read_at = COALESCE(read_at, ?) WHERE id = ?",
		s.timestamp(), id,
	)
	if err != nil {
		return fmt.Errorf("marking notification %s as read: %w", id, err)
	}
	return requireRow(result, "notification", id)
}
