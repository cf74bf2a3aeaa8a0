// Package util provides shared utilities: lenient integer parsing and
// error aggregation.
package util

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// ─── Integer Parsing ──────────────────────────────────────────────────────────

// ParseInt reads an integer the way a browser's parseInt does without a radix:
// leading whitespace is skipped, an optional sign is accepted, a 0x/0X prefix
// switches to hex, and the longest run of digits is used. Trailing garbage is
// ignored ("12abc" → 12). ok is false when no digit could be read. A digit run
// beyond the int range saturates to math.MaxInt or math.MinInt, where a browser
// would keep an inexact float.
func ParseInt(s string) (v int, ok bool) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	neg := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}

	base := 10
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		base = 16
		s = s[2:]
	}

	end := 0
	for end < len(s) && isDigit(s[end], base) {
		end++
	}
	if end == 0 {
		return 0, false
	}

	digits := s[:end]
	if neg {
		digits = "-" + digits
	}
	// On ErrRange n already holds the int64 bound of the right sign.
	n, err := strconv.ParseInt(digits, base, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	switch {
	case n > math.MaxInt:
		return math.MaxInt, true
	case n < math.MinInt:
		return math.MinInt, true
	}
	return int(n), true
}

func isDigit(c byte, base int) bool {
	switch {
	case c >= '0' && c <= '9':
		return true
	case base == 16 && c >= 'a' && c <= 'f':
		return true
	case base == 16 && c >= 'A' && c <= 'F':
		return true
	}
	return false
}

// ─── Error Helpers ────────────────────────────────────────────────────────────

// MultiError collects multiple errors and presents them as one.
type MultiError struct {
	Errors []error
}

func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

func (m *MultiError) Err() error {
	if len(m.Errors) == 0 {
		return nil
	}
	return m
}

func (m *MultiError) Error() string {
	msgs := make([]string, len(m.Errors))
	for i, e := range m.Errors {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (m *MultiError) Unwrap() []error {
	return m.Errors
}
