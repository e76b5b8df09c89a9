// Package due turns free-text due-date expressions into concrete points in time.
//
// An expression is either absolute ("2024-12-15", "2024-12-15 14:30", "14:30",
// "2024-12-15T14:30:00") or a whitespace-separated list of relative offsets
// such as "1y 2mo 3d 4h 5m". Unit words are matched approximately, so "days",
// "day" and "дни" are all days.
package due

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/amirbrooks/tasktrack/internal/fuzzy"
)

// Layout is the persisted rendering of a due date.
const Layout = "2006-01-02 15:04"

var ErrInvalidDueDate = errors.New("invalid due date")

// Error describes an expression that could not be parsed. It satisfies
// errors.Is(err, ErrInvalidDueDate) and unwraps to the cause, if any.
type Error struct {
	Expr string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ErrInvalidDueDate.Error()
	}
	if e.Err == nil {
		return fmt.Sprintf("%s %q", ErrInvalidDueDate, e.Expr)
	}
	return fmt.Sprintf("%s %q: %v", ErrInvalidDueDate, e.Expr, e.Err)
}

func (e *Error) Is(target error) bool { return target == ErrInvalidDueDate }

func (e *Error) Unwrap() error { return e.Err }

type Unit int

const (
	Year Unit = iota
	Month
	Day
	Hour
	Minute
)

func (u Unit) String() string {
	switch u {
	case Year:
		return "year"
	case Month:
		return "month"
	case Day:
		return "day"
	case Hour:
		return "hour"
	case Minute:
		return "minute"
	default:
		return "unit(" + strconv.Itoa(int(u)) + ")"
	}
}

// Scan order of this table decides ties during unit matching.
var unitWords = []struct {
	unit  Unit
	words []string
}{
	{Year, []string{"year", "years", "y", "год", "годы"}},
	{Month, []string{"month", "months", "mo", "месяц", "месяцы"}},
	{Day, []string{"day", "days", "d", "день", "дни"}},
	{Hour, []string{"hour", "hours", "h", "час", "часы"}},
	{Minute, []string{"minute", "minutes", "m", "минута", "минуты"}},
}

var (
	synonyms   []string
	unitByWord = map[string]Unit{}
)

func init() {
	for _, u := range unitWords {
		for _, w := range u.words {
			synonyms = append(synonyms, w)
			unitByWord[w] = u.unit
		}
	}
}

// Synonyms returns every accepted unit word in matching order.
func Synonyms() []string {
	return append([]string(nil), synonyms...)
}

// absoluteLayouts are tried in order against the whole trimmed expression.
var absoluteLayouts = []string{
	"2006-1-2",
	"2006-1-2 15:04",
	"15:04",
	"2006-1-2T15:04:05",
}

// tokenRe matches an unsigned integer immediately followed by a unit word.
var tokenRe = regexp.MustCompile(`^(\d+)(\pL[\pL\pN_]*)`)

const (
	maxMinutes = math.MaxInt64 / int64(time.Minute)
	maxDays    = 366 * 10000
	maxMonths  = 12 * 10000
)

var minutesPer = map[Unit]int64{Hour: 60, Minute: 1}

// Parse resolves expr relative to now. The result is truncated to the minute
// and lives in now's location.
func Parse(expr string, now time.Time) (time.Time, error) {
	text := strings.TrimSpace(expr)
	if text == "" {
		return time.Time{}, &Error{Expr: expr, Err: errors.New("empty expression")}
	}
	if t, ok := parseAbsolute(text, now); ok {
		return t.Truncate(time.Minute), nil
	}
	return parseRelative(text, now)
}

// Format renders t with Layout.
func Format(t time.Time) string {
	return t.Format(Layout)
}

func parseAbsolute(text string, now time.Time) (time.Time, bool) {
	loc := now.Location()
	for _, layout := range absoluteLayouts {
		t, err := time.ParseInLocation(layout, text, loc)
		if err != nil {
			continue
		}
		if layout == "15:04" {
			y, m, d := now.Date()
			t = time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, loc)
		}
		return t, true
	}
	return time.Time{}, false
}

func parseRelative(text string, now time.Time) (time.Time, error) {
	var (
		months  int64
		days    int64
		minutes int64
		matched bool
	)
	for _, part := range strings.Fields(text) {
		m := tokenRe.FindStringSubmatch(part)
		if m == nil {
			continue
		}
		matched = true
		value, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return time.Time{}, &Error{Expr: text, Err: err}
		}
		word, err := fuzzy.Normalize(m[2], synonyms)
		if err != nil {
			return time.Time{}, &Error{Expr: text, Err: err}
		}
		u := unitByWord[word]
		switch u {
		case Year, Month:
			per := int64(1)
			if u == Year {
				per = 12
			}
			if value > (maxMonths-months)/per {
				return time.Time{}, &Error{Expr: text, Err: fmt.Errorf("offset %q out of range", part)}
			}
			months += value * per
		case Day:
			if value > maxDays-days {
				return time.Time{}, &Error{Expr: text, Err: fmt.Errorf("offset %q out of range", part)}
			}
			days += value
		default:
			per := minutesPer[u]
			if value > (maxMinutes-minutes)/per {
				return time.Time{}, &Error{Expr: text, Err: fmt.Errorf("offset %q out of range", part)}
			}
			minutes += value * per
		}
	}
	if !matched {
		return time.Time{}, &Error{Expr: text}
	}
	// Days move the calendar date and keep the wall clock; hours and minutes
	// are elapsed time.
	t := now.AddDate(0, 0, int(days)).Add(time.Duration(minutes) * time.Minute)
	if months > 0 {
		t = AddMonths(t, int(months))
	}
	return t.Truncate(time.Minute), nil
}

// AddMonths adds n months to t by moving the month field and carrying into the
// year. The day is clamped to the last day of the resulting month.
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	total := int(m) - 1 + n
	y += total / 12
	month := time.Month(total%12 + 1)
	if total < 0 && total%12 != 0 {
		y--
		month = time.Month(total%12 + 13)
	}
	if last := daysIn(y, month, t.Location()); d > last {
		d = last
	}
	return time.Date(y, month, d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}
