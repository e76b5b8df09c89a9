package task

import (
	"fmt"
	"strings"
	"time"
)

// Field names a task attribute by its persisted key.
type Field string

const (
	FieldID          Field = "id"
	FieldTitle       Field = "title"
	FieldDescription Field = "description"
	FieldCategory    Field = "category"
	FieldDue         Field = "due_date"
	FieldPriority    Field = "priority"
	FieldStatus      Field = "status"
)

// UserFields are the fields a user may search in or edit, in menu order.
var UserFields = []Field{FieldTitle, FieldDescription, FieldCategory, FieldDue, FieldPriority, FieldStatus}

// ParseField accepts any known field name, case-insensitively.
func ParseField(s string) (Field, bool) {
	f := Field(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FieldID, FieldTitle, FieldDescription, FieldCategory, FieldDue, FieldPriority, FieldStatus:
		return f, true
	}
	return "", false
}

// IsUserField reports whether f is one of UserFields.
func IsUserField(f Field) bool {
	for _, sf := range UserFields {
		if sf == f {
			return true
		}
	}
	return false
}

// Value returns the string rendering of f used for matching.
func (t Task) Value(f Field) string {
	switch f {
	case FieldID:
		return idString(t.ID)
	case FieldTitle:
		return t.Title
	case FieldDescription:
		return t.Description
	case FieldCategory:
		return t.Category
	case FieldDue:
		return t.Due.Format(TimeLayout)
	case FieldPriority:
		return t.Priority
	case FieldStatus:
		return t.Status
	default:
		return ""
	}
}

// Set assigns value to an editable field, applying the same validation as
// construction.
func (t *Task) Set(f Field, value string, now time.Time) error {
	switch f {
	case FieldTitle:
		return t.SetTitle(value)
	case FieldDescription:
		t.SetDescription(value)
		return nil
	case FieldCategory:
		return t.SetCategory(value)
	case FieldDue:
		return t.SetDue(value, now)
	case FieldPriority:
		return t.SetPriority(value)
	case FieldStatus:
		return t.SetStatus(value)
	default:
		return fmt.Errorf("field %q cannot be edited", f)
	}
}
