package model

import (
	"strings"
	"time"
)

// Field limits for tasks.
const (
	MaxTitleLength       = 100
	MaxDescriptionLength = 500
)

// Category groups tasks by area of life.
type Category string

const (
	CategoryWork     Category = "Work"
	CategoryPersonal Category = "Personal"
	CategoryHobby    Category = "Hobby"
	CategoryOther    Category = "Other"
)

// IsValid reports whether c is a known category.
func (c Category) IsValid() bool {
	switch c {
	case CategoryWork, CategoryPersonal, CategoryHobby, CategoryOther:
		return true
	}
	return false
}

// Priority ranks tasks against each other.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// IsValid reports whether p is a known priority.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Status is the progress column a task sits in.
// Any status may follow any other; the board does not enforce an order.
type Status string

const (
	StatusNotStarted Status = "Not Started"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// ParseStatus maps compact spellings such as "InProgress" onto the
// canonical value. Unknown input is returned unchanged for validation to reject.
func ParseStatus(raw string) Status {
	switch strings.TrimSpace(raw) {
	case "NotStarted":
		return StatusNotStarted
	case "InProgress":
		return StatusInProgress
	}
	return Status(strings.TrimSpace(raw))
}

// Task is a unit of work owned by exactly one user.
type Task struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"ownerId"`
	Title       string     `json:"title" validate:"min=1,max=100"`
	Description string     `json:"description" validate:"max=500"`
	Category    Category   `json:"category" validate:"category"`
	Priority    Priority   `json:"priority" validate:"priority"`
	Status      Status     `json:"status" validate:"status"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	Version     int64      `json:"version"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Normalize trims text fields and fills in defaults for empty enums.
func (t *Task) Normalize() {
	t.Title = strings.TrimSpace(t.Title)
	t.Description = strings.TrimSpace(t.Description)
	if t.Category == "" {
		t.Category = CategoryPersonal
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if t.Status == "" {
		t.Status = StatusNotStarted
	}
	if t.Deadline != nil {
		d := t.Deadline.UTC()
		t.Deadline = &d
	}
}

// Validate checks field lengths and enum membership.
func (t *Task) Validate() error {
	return Validate(t)
}

// TaskPatch is a partial update. It deliberately has no owner field.
type TaskPatch struct {
	Title         *string   `json:"title" validate:"omitnil,min=1,max=100"`
	Description   *string   `json:"description" validate:"omitnil,max=500"`
	Category      *Category `json:"category" validate:"omitnil,category"`
	Priority      *Priority `json:"priority" validate:"omitnil,priority"`
	Status        *Status   `json:"status" validate:"omitnil,status"`
	Deadline      *time.Time
	ClearDeadline bool

	// ExpectedVersion enables the optimistic check when set.
	ExpectedVersion *int64
}

// Normalize trims text fields present in the patch.
func (p *TaskPatch) Normalize() {
	if p.Title != nil {
		v := strings.TrimSpace(*p.Title)
		p.Title = &v
	}
	if p.Description != nil {
		v := strings.TrimSpace(*p.Description)
		p.Description = &v
	}
	if p.Deadline != nil {
		d := p.Deadline.UTC()
		p.Deadline = &d
	}
}

// Validate checks every field present in the patch.
func (p *TaskPatch) Validate() error {
	return Validate(p)
}

// IsEmpty reports whether the patch changes nothing.
func (p *TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Category == nil &&
		p.Priority == nil && p.Status == nil && p.Deadline == nil && !p.ClearDeadline
}

// ApplyTo copies the present fields onto t. Ownership and timestamps are untouched.
func (p *TaskPatch) ApplyTo(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	switch {
	case p.ClearDeadline:
		t.Deadline = nil
	case p.Deadline != nil:
		d := *p.Deadline
		t.Deadline = &d
	}
}

// TaskFilter narrows an owner's task listing. Zero values match everything.
type TaskFilter struct {
	Status       Status
	Category     Category
	Priority     Priority
	DeadlineFrom *time.Time
	DeadlineTo   *time.Time
}

// Matches reports whether t passes the filter.
func (f TaskFilter) Matches(t *Task) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	if f.DeadlineFrom != nil || f.DeadlineTo != nil {
		if t.Deadline == nil {
			return false
		}
		if f.DeadlineFrom != nil && t.Deadline.Before(*f.DeadlineFrom) {
			return false
		}
		if f.DeadlineTo != nil && !t.Deadline.Before(*f.DeadlineTo) {
			return false
		}
	}
	return true
}
