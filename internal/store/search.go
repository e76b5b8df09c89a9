package store

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/amirbrooks/tasktrack/internal/task"
)

const (
	MatchRegex    = "regex"
	MatchPrefix   = "prefix"
	MatchContains = "contains"
)

// Fields consulted when no field is given. Regex mode skips due_date,
// priority and id; contains mode skips priority and id.
var (
	regexFields    = []task.Field{task.FieldTitle, task.FieldDescription, task.FieldCategory, task.FieldStatus}
	prefixFields   = []task.Field{task.FieldTitle, task.FieldDescription, task.FieldCategory, task.FieldStatus, task.FieldID, task.FieldDue}
	containsFields = []task.Field{task.FieldTitle, task.FieldDescription, task.FieldCategory, task.FieldStatus, task.FieldDue}
)

// Query is a parsed search expression.
type Query struct {
	Match string
	Text  string
}

// ParseQuery picks the match mode from the leading character:
//
//	/pattern/  regular expression (the last character is dropped)
//	^prefix    literal prefix
//	anything   literal substring
func ParseQuery(q string) Query {
	switch {
	case strings.HasPrefix(q, "/"):
		r := []rune(q)
		if len(r) < 2 {
			return Query{Match: MatchRegex}
		}
		return Query{Match: MatchRegex, Text: string(r[1 : len(r)-1])}
	case strings.HasPrefix(q, "^"):
		return Query{Match: MatchPrefix, Text: q[1:]}
	default:
		return Query{Match: MatchContains, Text: q}
	}
}

// Search returns the tasks matching query, in store order. field restricts
// prefix and contains searches to one field; regex searches ignore it.
func (s *Store) Search(query string, field task.Field) ([]task.Task, error) {
	q := ParseQuery(query)
	switch q.Match {
	case MatchRegex:
		return s.searchRegex(q.Text)
	case MatchPrefix:
		return s.searchFields(field, prefixFields, func(v string) bool { return strings.HasPrefix(v, q.Text) }), nil
	default:
		return s.searchFields(field, containsFields, func(v string) bool { return strings.Contains(v, q.Text) }), nil
	}
}

func (s *Store) searchRegex(pattern string) ([]task.Task, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}
	return s.searchFields("", regexFields, re.MatchString), nil
}

func (s *Store) searchFields(field task.Field, defaults []task.Field, match func(string) bool) []task.Task {
	fields := defaults
	if field != "" {
		fields = []task.Field{field}
	}
	var out []task.Task
	for _, t := range s.tasks {
		for _, f := range fields {
			if match(t.Value(f)) {
				out = append(out, t)
				break
			}
		}
	}
	return out
}

// SearchByID runs a prefix search on the id field and returns the first hit
// whose id is exactly id. Longer ids sharing the prefix (10 when asking for
// 1) are skipped rather than returned as the first prefix hit, so an id with
// no exact match is ErrNotFound.
func (s *Store) SearchByID(id int) (task.Task, error) {
	want := strconv.Itoa(id)
	hits, err := s.Search("^"+want, task.FieldID)
	if err != nil {
		return task.Task{}, err
	}
	for _, t := range hits {
		if t.Value(task.FieldID) == want {
			return t, nil
		}
	}
	return task.Task{}, fmt.Errorf("%w: task %d", ErrNotFound, id)
}
