package domain

import "time"

// Todo limits, in characters.
const (
	MaxTodoTitleLen       = 100
	MaxTodoDescriptionLen = 500
)

type Todo struct {
	ID          int64
	OwnerID     int64 // set at creation, never changed
	Title       string
	Description string
	Completed   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TodoPatch is a partial update. Nil fields are left untouched.
type TodoPatch struct {
	Title       *string
	Description *string
	Completed   *bool
}

// Apply copies every set field onto t.
func (p TodoPatch) Apply(t *Todo) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
}

// TodoFilter narrows a todo listing. OwnerID zero means every owner.
type TodoFilter struct {
	OwnerID   int64
	Completed *bool
	Limit     int
	Offset    int
}
