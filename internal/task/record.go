package task

import (
	"fmt"
	"time"

	"github.com/amirbrooks/tasktrack/internal/due"
	"github.com/amirbrooks/tasktrack/internal/fuzzy"
)

// Record is the persisted shape of a task.
type Record struct {
	ID          *int   `json:"id" yaml:"id" toml:"id"`
	Title       string `json:"title" yaml:"title" toml:"title"`
	Description string `json:"description" yaml:"description" toml:"description"`
	Category    string `json:"category" yaml:"category" toml:"category"`
	DueDate     string `json:"due_date" yaml:"due_date" toml:"due_date"`
	Priority    string `json:"priority" yaml:"priority" toml:"priority"`
	Status      string `json:"status" yaml:"status" toml:"status"`
}

func (t Task) Record() Record {
	id := t.ID
	return Record{
		ID:          &id,
		Title:       t.Title,
		Description: t.Description,
		Category:    t.Category,
		DueDate:     due.Format(t.Due),
		Priority:    t.Priority,
		Status:      t.Status,
	}
}

// FromRecord rebuilds a task, re-running every validation. Unlike New it
// applies no defaults: id, category, priority, status and due date must all be
// present.
func FromRecord(r Record, ids *Counter, now time.Time) (*Task, error) {
	if r.ID == nil {
		return nil, fmt.Errorf("%w: missing", ErrInvalidID)
	}
	if r.DueDate == "" {
		return nil, fmt.Errorf("%w: missing", due.ErrInvalidDueDate)
	}
	required := []struct {
		name    string
		value   string
		allowed []string
	}{
		{"category", r.Category, Categories},
		{"priority", r.Priority, Priorities},
		{"status", r.Status, Statuses},
	}
	for _, f := range required {
		if f.value == "" {
			return nil, fmt.Errorf("%s: %w", f.name, &fuzzy.EnumError{Allowed: f.allowed})
		}
	}
	return New(Input{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Category:    &r.Category,
		Due:         &r.DueDate,
		Priority:    &r.Priority,
		Status:      &r.Status,
	}, ids, now)
}
