package entities

import (
	"fmt"
	"strings"
	"time"
)

// Member is a person in the family tree.
// The engine only reads identity and dates; the member directory owns the rest.
type Member struct {
	ID        string
	FirstName string
	LastName  string
	BirthDate *time.Time
	DeathDate *time.Time
	CreatedAt time.Time
}

// DisplayName returns "First Last", trimmed when either part is missing
func (m *Member) DisplayName() string {
	return strings.TrimSpace(m.FirstName + " " + m.LastName)
}

// Validate checks if the member is valid for creation
func (m *Member) Validate() error {
	if strings.TrimSpace(m.FirstName) == "" && strings.TrimSpace(m.LastName) == "" {
		return fmt.Errorf("member name is required")
	}
	if m.BirthDate != nil && m.DeathDate != nil && m.DeathDate.Before(*m.BirthDate) {
		return fmt.Errorf("death date is before birth date")
	}
	return nil
}

// BornAfter reports whether m was born strictly after other.
// ok is false when either birth date is unknown.
func (m *Member) BornAfter(other *Member) (after bool, ok bool) {
	if m == nil || other == nil || m.BirthDate == nil || other.BirthDate == nil {
		return false, false
	}
	return m.BirthDate.After(*other.BirthDate), true
}

// DateLayout is the calendar date format used in transfer files
const DateLayout = "2006-01-02"

// ParseDate parses an optional YYYY-MM-DD date. Empty input yields nil.
func ParseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return &t, nil
}

// FormatDate formats an optional date, returning "" for nil
func FormatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(DateLayout)
}
