package task

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/amirbrooks/tasktrack/internal/due"
	"github.com/amirbrooks/tasktrack/internal/fuzzy"
)

var (
	ErrInvalidTitle = errors.New("invalid title")
	ErrInvalidID    = errors.New("invalid id")
)

// Canonical values. Inputs are fuzzy-matched onto these.
const (
	CategoryStudy    = "учеба"
	CategoryWork     = "работа"
	CategoryPersonal = "личное"
	CategoryLeisure  = "досуг"
	CategoryOther    = "другое"

	PriorityHigh   = "высокий"
	PriorityMedium = "средний"
	PriorityLow    = "низкий"
	PriorityNone   = "отсутствует"

	StatusDone       = "выполнена"
	StatusNotDone    = "не выполнена"
	StatusInProgress = "в процессе"
)

var (
	Categories = []string{CategoryStudy, CategoryWork, CategoryPersonal, CategoryLeisure, CategoryOther}
	Priorities = []string{PriorityHigh, PriorityMedium, PriorityLow, PriorityNone}
	Statuses   = []string{StatusDone, StatusNotDone, StatusInProgress}
)

const (
	DefaultCategory = CategoryOther
	DefaultPriority = PriorityNone
	DefaultStatus   = StatusInProgress
)

// TimeLayout is the default textual rendering of a due date, used when
// searching across fields.
const TimeLayout = "2006-01-02 15:04:05"

type Task struct {
	ID          int
	Title       string
	Description string
	Category    string
	Due         time.Time
	Priority    string
	Status      string
}

// Input holds raw user-supplied values for a new task. A nil Category,
// Priority or Status selects the default and a nil Due means "now". Present
// values are always validated, so a blank one is rejected. A nil ID draws the
// next id from the counter.
type Input struct {
	ID          *int
	Title       string
	Description string
	Category    *string
	Due         *string
	Priority    *string
	Status      *string
}

// Patch holds replacement values for an existing task. Empty fields are left
// unchanged.
type Patch struct {
	Title       string
	Description string
	Category    string
	Due         string
	Priority    string
	Status      string
}

func (p Patch) IsEmpty() bool {
	return p == Patch{}
}

// New validates in and assigns an id. The counter only advances when every
// field is valid.
func New(in Input, ids *Counter, now time.Time) (*Task, error) {
	t := &Task{}
	if err := t.SetTitle(in.Title); err != nil {
		return nil, err
	}
	t.SetDescription(in.Description)
	if err := t.SetCategory(valueOr(in.Category, DefaultCategory)); err != nil {
		return nil, err
	}
	if err := t.SetPriority(valueOr(in.Priority, DefaultPriority)); err != nil {
		return nil, err
	}
	if err := t.SetStatus(valueOr(in.Status, DefaultStatus)); err != nil {
		return nil, err
	}
	if in.Due == nil {
		t.Due = now.Truncate(time.Minute)
	} else if err := t.SetDue(*in.Due, now); err != nil {
		return nil, err
	}
	if in.ID != nil {
		if *in.ID < 0 {
			return nil, fmt.Errorf("%w: %d is negative", ErrInvalidID, *in.ID)
		}
		t.ID = *in.ID
		ids.Observe(t.ID)
	} else {
		t.ID = ids.Next()
	}
	return t, nil
}

func valueOr(v *string, def string) string {
	if v == nil {
		return def
	}
	return *v
}

// ValidateTitle reports whether title is non-empty and starts with a letter
// or digit.
func ValidateTitle(title string) error {
	r, _ := utf8.DecodeRuneInString(title)
	if title == "" || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
		return fmt.Errorf("%w: %q must start with a letter or digit", ErrInvalidTitle, title)
	}
	return nil
}

func (t *Task) SetTitle(title string) error {
	if err := ValidateTitle(title); err != nil {
		return err
	}
	t.Title = title
	return nil
}

func (t *Task) SetDescription(desc string) {
	t.Description = desc
}

func (t *Task) SetCategory(v string) error {
	c, err := fuzzy.Normalize(v, Categories)
	if err != nil {
		return fmt.Errorf("category: %w", err)
	}
	t.Category = c
	return nil
}

func (t *Task) SetPriority(v string) error {
	p, err := fuzzy.Normalize(v, Priorities)
	if err != nil {
		return fmt.Errorf("priority: %w", err)
	}
	t.Priority = p
	return nil
}

func (t *Task) SetStatus(v string) error {
	s, err := fuzzy.Normalize(v, Statuses)
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}
	t.Status = s
	return nil
}

// SetDue parses expr relative to now.
func (t *Task) SetDue(expr string, now time.Time) error {
	d, err := due.Parse(expr, now)
	if err != nil {
		return err
	}
	t.Due = d
	return nil
}

// Apply sets every non-empty field of p, stopping at the first invalid value.
// Callers that need all-or-nothing semantics apply to a copy.
func (t *Task) Apply(p Patch, now time.Time) error {
	if p.Title != "" {
		if err := t.SetTitle(p.Title); err != nil {
			return err
		}
	}
	if p.Description != "" {
		t.SetDescription(p.Description)
	}
	if p.Category != "" {
		if err := t.SetCategory(p.Category); err != nil {
			return err
		}
	}
	if p.Due != "" {
		if err := t.SetDue(p.Due, now); err != nil {
			return err
		}
	}
	if p.Priority != "" {
		if err := t.SetPriority(p.Priority); err != nil {
			return err
		}
	}
	if p.Status != "" {
		if err := t.SetStatus(p.Status); err != nil {
			return err
		}
	}
	return nil
}

// Equal compares every field, with due dates compared as instants.
func (t Task) Equal(o Task) bool {
	return t.ID == o.ID &&
		t.Title == o.Title &&
		t.Description == o.Description &&
		t.Category == o.Category &&
		t.Priority == o.Priority &&
		t.Status == o.Status &&
		t.Due.Equal(o.Due)
}

func (t Task) IsDone() bool { return t.Status == StatusDone }

func (t Task) RenderHuman() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Task #%d: %s\n", t.ID, t.Title))
	b.WriteString(fmt.Sprintf("Description: %s\n", t.Description))
	b.WriteString(fmt.Sprintf("Category: %s\n", t.Category))
	b.WriteString(fmt.Sprintf("Due: %s\n", due.Format(t.Due)))
	b.WriteString(fmt.Sprintf("Priority: %s\n", t.Priority))
	b.WriteString(fmt.Sprintf("Status: %s\n", t.Status))
	return b.String()
}

func (t Task) String() string {
	return fmt.Sprintf("#%d %s [%s/%s/%s] due %s", t.ID, t.Title, t.Category, t.Priority, t.Status, due.Format(t.Due))
}

// Counter allocates task ids. Explicit ids ratchet it forward so later
// allocations never collide with them.
type Counter struct {
	next int
}

func NewCounter() *Counter { return &Counter{} }

func (c *Counter) Next() int {
	id := c.next
	c.next++
	return id
}

// Observe records an explicitly assigned id.
func (c *Counter) Observe(id int) {
	if id >= c.next {
		c.next = id + 1
	}
}

// Peek returns the id the next call to Next will hand out.
func (c *Counter) Peek() int { return c.next }

func idString(id int) string { return strconv.Itoa(id) }
