package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/nhle/marketing-pilot/internal/model"
	"github.com/nhle/marketing-pilot/internal/store"
)

// AssignTask reassigns a task and notifies the new assignee. No
// notification is written when actors assign themselves.
func (s *Service) AssignTask(ctx context.Context, taskID, assigneeID, actorID string) (*model.Notification, error) {
	if assigneeID == "" {
		return nil, fmt.Errorf("%w: assignee id is required", ErrInvalidInput)
	}
	task, err := s.store.GetTaskByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetUserByID(ctx, assigneeID); err != nil {
		return nil, err
	}
	if err := s.store.AssignTask(ctx, taskID, assigneeID); err != nil {
		return nil, err
	}
	if actorID == assigneeID {
		return nil, nil
	}

	ref := model.EntityRef{Kind: model.EntityKindTask, ID: task.ID}
	n := &model.Notification{
		UserID:     assigneeID,
		Type:       model.NotificationTaskAssigned,
		Title:      "New task assigned",
		Message:    fmt.Sprintf("%s assigned you %q.", s.displayName(ctx, actorID), task.Title),
		Link:       ref.Link(),
		EntityKind: ref.Kind,
		EntityID:   ref.ID,
	}
	if err := s.create(ctx, n); err != nil {
		return nil, fmt.Errorf("notifying assignee: %w", err)
	}
	return n, nil
}

// UpdateStatus moves a task to status and notifies its assignee, unless
// the assignee made the change or the task is unassigned.
func (s *Service) UpdateStatus(ctx context.Context, taskID, status, actorID string) (*model.Notification, error) {
	if !model.ValidTaskStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	task, err := s.store.GetTaskByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateTaskStatus(ctx, taskID, status); err != nil {
		return nil, err
	}
	if task.AssigneeID == "" || task.AssigneeID == actorID {
		return nil, nil
	}

	ref := model.EntityRef{Kind: model.EntityKindTask, ID: task.ID}
	n := &model.Notification{
		UserID:     task.AssigneeID,
		Type:       model.NotificationTaskUpdated,
		Title:      "Task updated",
		Message:    fmt.Sprintf("%s moved %q to %s.", s.displayName(ctx, actorID), task.Title, statusLabel(status)),
		Link:       ref.Link(),
		EntityKind: ref.Kind,
		EntityID:   ref.ID,
	}
	if err := s.create(ctx, n); err != nil {
		return nil, fmt.Errorf("notifying assignee: %w", err)
	}
	return n, nil
}

// RequestApproval asks approverID to approve a task or project.
func (s *Service) RequestApproval(ctx context.Context, ref model.EntityRef, approverID, requesterID string) (*model.Notification, error) {
	if approverID == "" {
		return nil, fmt.Errorf("%w: approver id is required", ErrInvalidInput)
	}
	if _, err := model.ParseEntityKind(string(ref.Kind)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	entity, err := store.GetEntity(ctx, s.store, ref)
	if err != nil {
		return nil, err
	}
	approver, err := s.store.GetUserByID(ctx, approverID)
	if err != nil {
		return nil, err
	}

	n := &model.Notification{
		UserID:     approver.ID,
		Type:       model.NotificationApprovalRequest,
		Title:      "Approval requested",
		Message:    fmt.Sprintf("%s requested your approval on %q.", s.displayName(ctx, requesterID), entity.Title()),
		Link:       ref.Link(),
		EntityKind: ref.Kind,
		EntityID:   ref.ID,
	}
	if err := s.create(ctx, n); err != nil {
		return nil, fmt.Errorf("notifying approver: %w", err)
	}
	return n, nil
}

// statusLabel renders a workflow state for display, e.g. "in review".
func statusLabel(status string) string {
	return strings.ReplaceAll(status, "_", " ")
}
