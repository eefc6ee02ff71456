package crm

import (
	"time"

	"github.com/hubcrm/backend/internal/domain/shared"
)

// Task is a to-do item, optionally assigned to a contact
type Task struct {
	ID          int64
	Name        string
	Description string
	DueDate     string
	Status      string
	Priority    string
	AssignedTo  *Ref
	Owner       string
	CreatedBy   string
	ModifiedBy  string
	CreatedAt   string
	UpdatedAt   string
}

// ApplyDefaults fills status and priority the way new tasks start out
func (t *Task) ApplyDefaults() {
	if t.Status == "" {
		t.Status = TaskStatusOpen
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
}

// IsOverdue reports whether the due date lies on a day before now.
// The task status is not considered.
func (t *Task) IsOverdue(now time.Time) bool {
	return isBeforeToday(t.DueDate, now)
}

// Validate checks the task form rules
func (t *Task) Validate() error {
	var errs shared.ValidationErrors
	requireText(&errs, "name", t.Name, "Task name")
	requireOneOf(&errs, "status", t.Status, TaskStatuses)
	requireOneOf(&errs, "priority", t.Priority, TaskPriorities)
	requireDate(&errs, "dueDate", t.DueDate)
	return errs.OrNil()
}

// FilterTasks searches name and description, filters by status and
// priority, and supports the overdue preset.
func FilterTasks(items []Task, f ListFilter, now time.Time) ([]Task, error) {
	if err := f.checkPreset(PresetOverdue); err != nil {
		return nil, err
	}
	return filterSlice(items, func(t Task) bool {
		if !matchesSearch(f.Search, t.Name, t.Description) {
			return false
		}
		if !matchesOption(f.Status, t.Status) || !matchesOption(f.Priority, t.Priority) {
			return false
		}
		if f.Preset == PresetOverdue {
			return t.IsOverdue(now)
		}
		return true
	}), nil
}
