package model

import "time"

// Project groups related tasks for a client.
type Project struct {
	ID        string     `json:"id" db:"id" firestore:"-"`
	Name      string     `json:"name" db:"name" firestore:"name"`
	ClientID  string     `json:"client_id" db:"client_id" firestore:"client_id"`
	OwnerID   string     `json:"owner_id" db:"owner_id" firestore:"owner_id"`
	Status    string     `json:"status" db:"status" firestore:"status"`
	DueDate   *time.Time `json:"due_date,omitempty" db:"due_date" firestore:"due_date"`
	CreatedAt time.Time  `json:"created_at" db:"created_at" firestore:"created_at"`
}
