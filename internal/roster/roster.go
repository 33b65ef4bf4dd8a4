// Package roster parses registration number ranges and formats registration
// numbers.
package roster

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MaxStudents is the largest allowed difference between range end and start.
const MaxStudents = 1000

var (
	ErrRangeFormat   = errors.New("invalid range format, use start-end (e.g. 1-10)")
	ErrRangeOrder    = errors.New("range start must be less than end")
	ErrRangeTooLarge = fmt.Errorf("range too large (max %d students)", MaxStudents)
)

// ParseRange parses "start-end". The input must split on "-" into exactly two
// non-negative integers, so "-5-10" and "5--10" are format errors.
func ParseRange(s string) (start, end int, err error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 2 {
		return 0, 0, ErrRangeFormat
	}

	start, err = strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, ErrRangeFormat
	}
	end, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, ErrRangeFormat
	}

	if start >= end {
		return 0, 0, ErrRangeOrder
	}
	if end-start > MaxStudents {
		return 0, 0, ErrRangeTooLarge
	}
	return start, end, nil
}

// RegistrationNumber formats n with prefix, zero padded to three digits.
func RegistrationNumber(prefix string, n int) string {
	return fmt.Sprintf("%s%03d", prefix, n)
}

// Numbers returns the registration numbers for start..end inclusive.
func Numbers(prefix string, start, end int) []string {
	if end < start {
		return nil
	}
	out := make([]string, 0, end-start+1)
	for i := start; i <= end; i++ {
		out = append(out, RegistrationNumber(prefix, i))
	}
	return out
}
