package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/nhle/marketing-pilot/internal/model"
)

// CreateProject inserts a new project. Generates a UUID if ID is empty.
func (s *SQLiteStore) CreateProject(ctx context.Context, project *model.Project) error {
	if strings.TrimSpace(project.Name) == "" {
		return fmt.Errorf("project name must not be empty")
	}
	if project.ID == "" {
		project.ID = uuid.New().String()
	}
	if project.Status == "" {
		project.Status = "active"
	}
	if project.CreatedAt.IsZero() {
		project.CreatedAt = s.timestamp()
	}
	project.CreatedAt = dbTime(project.CreatedAt)
	project.DueDate = dbTimePtr(project.DueDate)

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO projects (id, name, client_id, owner_id, status, due_date, created_at)
		VALUES (:id, :name, :client_id, :owner_id, :status, :due_date, :created_at)`,
		project)
	if err != nil {
		return fmt.Errorf("creating project: %w", err)
	}
	return nil
}

// GetProjectByID retrieves a single project by ID.
func (s *SQLiteStore) GetProjectByID(
	ctx context.Context,
	id string,
) (*model.Project, error) {
	var p model.Project
	if err := s.db.GetContext(ctx, &p, "SELECT * FROM projects WHERE id = ?", id); err != nil {
		return nil, notFound(err, "project", id)
	}
	return &p, nil
}

// GetProjects returns all projects ordered by name.
func (s *SQLiteStore) GetProjects(ctx context.Context) ([]model.Project, error) {
	var projects []model.Project
	if err := s.db.SelectContext(ctx, &projects, "SELECT * FROM projects ORDER BY name"); err != nil {
		return nil, fmt.Errorf("querying projects: %w", err)
	}
	return projects, nil
}
