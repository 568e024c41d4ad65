package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/nhle/marketing-pilot/internal/model"
)

// UpsertClient inserts or replaces a client. Generates a UUID if ID is empty.
func (s *SQLiteStore) UpsertClient(ctx context.Context, client *model.Client) error {
	if strings.TrimSpace(client.Name) == "" {
		return fmt.Errorf("client name must not be empty")
	}
	if client.ID == "" {
		client.ID = uuid.New().String()
	}
	if client.CreatedAt.IsZero() {
		client.CreatedAt = s.timestamp()
	}
	client.CreatedAt = dbTime(client.CreatedAt)

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO clients (id, name, created_at) VALUES (:id, :name, :created_at)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name`, client)
	if err != nil {
		return fmt.Errorf("upserting client %s: %w", client.ID, err)
	}
	return nil
}

// GetClientByID retrieves a single client.
func (s *SQLiteStore) GetClientByID(ctx context.Context, id string) (*model.Client, error) {
	var c model.Client
	if err := s.db.GetContext(ctx, &c, "SELECT * FROM clients WHERE id = ?", id); err != nil {
		return nil, notFound(err, "client", id)
	}
	return &c, nil
}

// GetClients returns all clients ordered by name.
func (s *SQLiteStore) GetClients(ctx context.Context) ([]model.Client, error) {
	var clients []model.Client
	if err := s.db.SelectContext(ctx, &clients, "SELECT * FROM clients ORDER BY name"); err != nil {
		return nil, fmt.Errorf("querying clients: %w", err)
	}
	return clients, nil
}

// validateUser applies the user field rules shared by every backend.
func validateUser(user *model.User) error {
	if strings.TrimSpace(user.Name) == "" {
		return fmt.Errorf("user name must not be empty")
	}
	if user.Role == "" {
		user.Role = model.RoleMember
	}
	switch user.Role {
	case model.RoleMember, model.RoleManager, model.RoleAdmin:
	default:
		return fmt.Errorf("invalid user role %q", user.Role)
	}
	if user.Email != "" && !strings.Contains(user.Email, "@") {
		return fmt.Errorf("invalid email address %q", user.Email)
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	return nil
}

// UpsertUser inserts or replaces a user. Generates a UUID if ID is empty.
func (s *SQLiteStore) UpsertUser(ctx context.Context, user *model.User) error {
	if err := validateUser(user); err != nil {
		return err
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.timestamp()
	}
	user.CreatedAt = dbTime(user.CreatedAt)

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO users (id, name, email, role, created_at)
		VALUES (:id, :name, :email, :role, :created_at)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, email = excluded.email, role = excluded.role`, user)
	if err != nil {
		return fmt.Errorf("upserting user %s: %w", user.ID, err)
	}
	return nil
}

// GetUserByID retrieves a single user.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	if err := s.db.GetContext(ctx, &u, "SELECT * FROM users WHERE id = ?", id); err != nil {
		return nil, notFound(err, "user", id)
	}
	return &u, nil
}

// GetUsers returns users ordered by name, optionally restricted to a role.
func (s *SQLiteStore) GetUsers(ctx context.Context, filter UserFilter) ([]model.User, error) {
	query := "SELECT * FROM users"
	var args []interface{}
	if filter.Role != nil {
		query += " WHERE role = ?"
		args = append(args, *filter.Role)
	}
	query += " ORDER BY name, id"

	var users []model.User
	if err := s.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	return users, nil
}
