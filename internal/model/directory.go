package model

import "time"

// User roles.
const (
	RoleMember  = "member"
	RoleManager = "manager"
	RoleAdmin   = "admin"
)

// User is a team member who can be assigned tasks and receive notifications.
type User struct {
	ID        string    `json:"id" db:"id" firestore:"-"`
	Name      string    `json:"name" db:"name" firestore:"name"`
	Email     string    `json:"email" db:"email" firestore:"email"`
	Role      string    `json:"role" db:"role" firestore:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at" firestore:"created_at"`
}

// IsManager reports whether the user receives manager copies of
// automation notifications.
func (u User) IsManager() bool {
	return u.Role == RoleManager || u.Role == RoleAdmin
}

// Client is a customer the team does marketing work for.
type Client struct {
	ID        string    `json:"id" db:"id" firestore:"-"`
	Name      string    `json:"name" db:"name" firestore:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at" firestore:"created_at"`
}
