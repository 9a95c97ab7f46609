package volume

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

var ErrInvalidDate = errors.New("invalid date")

var (
	dateSeparatorsReplacer = strings.NewReplacer(".", "-", "/", "-")
	isoLikeDateRegex       = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
)

// Normalize turns dates like 2025/1/5, 2025.01.5 or 2025-1-05 into 2025-01-05.
// Text that does not look like a date is returned trimmed, but otherwise as is,
// so old malformed rows still show up in the aggregations.
func Normalize(dateText string) string {
	s := strings.TrimSpace(dateSeparatorsReplacer.Replace(dateText))
	m := isoLikeDateRegex.FindStringSubmatch(s)
	if m == nil {
		return s
	}
	return m[1] + "-" + padTwo(m[2]) + "-" + padTwo(m[3])
}

// NormalizeStrict is like Normalize, but rejects anything that is not a real calendar date.
func NormalizeStrict(dateText string) (string, error) {
	s := strings.TrimSpace(dateSeparatorsReplacer.Replace(dateText))
	m := isoLikeDateRegex.FindStringSubmatch(s)
	if m == nil {
		return "", fmt.Errorf("%w: [%s]", ErrInvalidDate, dateText)
	}

	normalized := m[1] + "-" + padTwo(m[2]) + "-" + padTwo(m[3])
	if _, err := time.Parse(time.DateOnly, normalized); err != nil {
		return "", fmt.Errorf("%w: [%s]: %s", ErrInvalidDate, dateText, err)
	}

	return normalized, nil
}

// padTwo expects 1 or 2 ASCII digits (guaranteed by isoLikeDateRegex)
func padTwo(digits string) string {
	if len(digits) == 1 {
		return "0" + digits
	}
	return digits
}
