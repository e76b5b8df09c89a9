package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/amirbrooks/tasktrack/internal/task"
)

func TestParseQueryDispatch(t *testing.T) {
	cases := []struct {
		in   string
		want Query
	}{
		{"/regex_pattern/", Query{Match: MatchRegex, Text: "regex_pattern"}},
		{"/abc", Query{Match: MatchRegex, Text: "ab"}},
		{"/", Query{Match: MatchRegex, Text: ""}},
		{"/\\d{4}-\\d{2}/", Query{Match: MatchRegex, Text: "\\d{4}-\\d{2}"}},
		{"/задача/", Query{Match: MatchRegex, Text: "задача"}},
		{"^prefix", Query{Match: MatchPrefix, Text: "prefix"}},
		{"^", Query{Match: MatchPrefix, Text: ""}},
		{"exact_term", Query{Match: MatchContains, Text: "exact_term"}},
		{"a/b", Query{Match: MatchContains, Text: "a/b"}},
	}
	for _, tc := range cases {
		if got := ParseQuery(tc.in); got != tc.want {
			t.Errorf("ParseQuery(%q) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}

func TestSearchModes(t *testing.T) {
	s := openFixture(t)
	cases := []struct {
		query string
		field task.Field
		want  []int
	}{
		// regex
		{"/Задача/", "", []int{3, 5}},
		{"/Описание задачи/", "", []int{3}},
		{"/личное/", "", []int{5}},
		{"/в процессе/", "", []int{3, 5}},
		{"/\\(/", "", nil},
		{"/2024/", "", nil},
		{"/высокий/", "", nil},
		{"/высокий/", task.FieldPriority, nil},
		// prefix
		{"^Задача 1", "", []int{3}},
		{"^Задача по личным делам", "", []int{5}},
		{"^личное", "", []int{5}},
		{"^в процессе", "", []int{3, 5}},
		{"^3", "", []int{3}},
		{"^2024-12-31 00:00:00", "", []int{3, 5}},
		{"^высокий", "", nil},
		{"^высокий", task.FieldPriority, []int{3}},
		{"^Лич", task.FieldTitle, []int{5}},
		{"^Лич", task.FieldCategory, nil},
		// contains
		{"Зада", "", []int{3, 5}},
		{" личным делам", "", []int{5}},
		{"лич", "", []int{5}},
		{"цессе", "", []int{3, 5}},
		{"12-31", "", []int{3, 5}},
		{"сред", "", nil},
		{"сред", task.FieldPriority, []int{5}},
		{"5", "", nil},
		{"\\(", "", nil},
		{"Несуществующее описание", "", nil},
	}
	for _, tc := range cases {
		got, err := s.Search(tc.query, tc.field)
		if err != nil {
			t.Fatalf("Search(%q, %q): %v", tc.query, tc.field, err)
		}
		if !sameIDs(ids(got), tc.want) {
			t.Errorf("Search(%q, %q) = %v, want %v", tc.query, tc.field, ids(got), tc.want)
		}
	}
}

func TestSearchInvalidPattern(t *testing.T) {
	s := openFixture(t)
	if _, err := s.Search("/(/", ""); !errors.Is(err, ErrInvalidPattern) {
		t.Fatalf("err = %v, want ErrInvalidPattern", err)
	}
}

func TestSearchByID(t *testing.T) {
	s := openFixture(t)
	for _, id := range []int{3, 5} {
		got, err := s.SearchByID(id)
		if err != nil {
			t.Fatalf("SearchByID(%d): %v", id, err)
		}
		if got.ID != id {
			t.Fatalf("SearchByID(%d) = %d", id, got.ID)
		}
	}
	if _, err := s.SearchByID(99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("SearchByID(99) err = %v, want ErrNotFound", err)
	}
}

func TestSearchByIDDoesNotReturnLongerPrefixMatch(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "tasks.json"), WithClock(clock))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ten := 10
	if _, err := s.Add(task.Input{ID: &ten, Title: "Ten"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := s.SearchByID(1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("SearchByID(1) err = %v, want ErrNotFound", err)
	}
	one := 1
	if _, err := s.Add(task.Input{ID: &one, Title: "One"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	got, err := s.SearchByID(1)
	if err != nil || got.Title != "One" {
		t.Fatalf("SearchByID(1) = %+v, %v", got, err)
	}
}
