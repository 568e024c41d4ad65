package model

import (
	"fmt"
	"time"
)

// EntityKind discriminates the Entity union.
type EntityKind string

const (
	EntityKindTask    EntityKind = "task"
	EntityKindProject EntityKind = "project"
)

// ParseEntityKind validates a kind string received from a client.
func ParseEntityKind(s string) (EntityKind, error) {
	switch EntityKind(s) {
	case EntityKindTask, EntityKindProject:
		return EntityKind(s), nil
	}
	return "", fmt.Errorf("unknown entity kind %q", s)
}

// EntityRef points at a task or project without loading it.
type EntityRef struct {
	Kind EntityKind `json:"kind"`
	ID   string     `json:"id"`
}

// Link returns the application deep link for the referenced entity.
func (r EntityRef) Link() string {
	switch r.Kind {
	case EntityKindTask:
		return "/tasks/" + r.ID
	case EntityKindProject:
		return "/projects/" + r.ID
	}
	return ""
}

// Entity is either a Task or a Project. Exactly one of the pointers is
// set, matching Kind.
type Entity struct {
	Kind    EntityKind `json:"kind"`
	Task    *Task      `json:"task,omitempty"`
	Project *Project   `json:"project,omitempty"`
}

// TaskEntity wraps a task.
func TaskEntity(t Task) Entity { return Entity{Kind: EntityKindTask, Task: &t} }

// ProjectEntity wraps a project.
func ProjectEntity(p Project) Entity { return Entity{Kind: EntityKindProject, Project: &p} }

// Ref returns the kind and ID that identify the wrapped record.
func (e Entity) Ref() EntityRef {
	switch e.Kind {
	case EntityKindTask:
		return EntityRef{Kind: e.Kind, ID: e.Task.ID}
	case EntityKindProject:
		return EntityRef{Kind: e.Kind, ID: e.Project.ID}
	}
	return EntityRef{}
}

// Title returns the task title or the project name.
func (e Entity) Title() string {
	switch e.Kind {
	case EntityKindTask:
		return e.Task.Title
	case EntityKindProject:
		return e.Project.Name
	}
	return ""
}

// ClientID returns the owning client, empty when unset.
func (e Entity) ClientID() string {
	switch e.Kind {
	case EntityKindTask:
		return e.Task.ClientID
	case EntityKindProject:
		return e.Project.ClientID
	}
	return ""
}

// Status returns the wrapped record's status.
func (e Entity) Status() string {
	switch e.Kind {
	case EntityKindTask:
		return e.Task.Status
	case EntityKindProject:
		return e.Project.Status
	}
	return ""
}

// DueDate returns the due date, or nil when there is none.
func (e Entity) DueDate() *time.Time {
	switch e.Kind {
	case EntityKindTask:
		return e.Task.DueDate
	case EntityKindProject:
		return e.Project.DueDate
	}
	return nil
}
