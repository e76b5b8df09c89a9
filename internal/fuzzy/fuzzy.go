// Package fuzzy maps free-text input onto a closed set of canonical values
// using approximate string similarity.
package fuzzy

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/hbollon/go-edlib"
)

// Threshold is the minimum score (0-100) a candidate needs to be accepted.
const Threshold = 70.0

var ErrInvalidEnumValue = errors.New("invalid value")

// EnumError reports an input that did not match any allowed value closely enough.
// It satisfies errors.Is(err, ErrInvalidEnumValue).
type EnumError struct {
	Input   string
	Allowed []string
}

func (e *EnumError) Error() string {
	if e == nil {
		return ErrInvalidEnumValue.Error()
	}
	if len(e.Allowed) == 0 {
		return fmt.Sprintf("%s %q: nothing to match against", ErrInvalidEnumValue, e.Input)
	}
	return fmt.Sprintf("%s %q (allowed: %s)", ErrInvalidEnumValue, e.Input, strings.Join(e.Allowed, ", "))
}

func (e *EnumError) Is(target error) bool {
	return target == ErrInvalidEnumValue
}

// Scorer returns a similarity score in [0, 100].
type Scorer func(a, b string) float64

// Matcher picks the best allowed value for an input.
type Matcher struct {
	Score     Scorer
	Threshold float64
}

// Default is the matcher used by Normalize.
var Default = Matcher{Score: Ratio, Threshold: Threshold}

// Normalize trims and lowercases input and returns the closest value from
// allowed. The first candidate reaching the best score wins.
func Normalize(input string, allowed []string) (string, error) {
	return Default.Normalize(input, allowed)
}

func (m Matcher) Normalize(input string, allowed []string) (string, error) {
	in := strings.ToLower(strings.TrimSpace(input))
	if len(allowed) == 0 {
		return "", &EnumError{Input: in}
	}
	score := m.Score
	if score == nil {
		score = Ratio
	}
	best := -1
	bestScore := -1.0
	for i, candidate := range allowed {
		s := score(in, candidate)
		if s > bestScore {
			best, bestScore = i, s
		}
	}
	if bestScore < m.Threshold {
		return "", &EnumError{Input: in, Allowed: append([]string(nil), allowed...)}
	}
	return allowed[best], nil
}

// Ratio is the normalized InDel similarity of a and b, compared rune by rune:
// 100 * 2*LCS / (len(a)+len(b)). Two empty strings are identical.
func Ratio(a, b string) float64 {
	total := utf8.RuneCountInString(a) + utf8.RuneCountInString(b)
	if total == 0 {
		return 100
	}
	return 100 * float64(2*edlib.LCS(a, b)) / float64(total)
}
