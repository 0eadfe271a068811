package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Enrollment places a student inside a course span, e.g. 2025-2029.
// It is re-derived from the stored academic year on every evaluation and is
// never cached in mutable state.
type Enrollment struct {
	StartYear int `json:"start_year"`
	EndYear   int `json:"end_year"`
}

// DurationYears returns the nominal course length in years.
func (e Enrollment) DurationYears() int {
	return e.EndYear - e.StartYear
}

// Valid reports whether the span is well formed.
func (e Enrollment) Valid() bool {
	return e.StartYear > 0 && e.EndYear > e.StartYear
}

// ParseEnrollment reads an academic year string of the form "2025-2029".
func ParseEnrollment(raw string) (Enrollment, error) {
	parts := strings.SplitN(strings.TrimSpace(raw), "-", 2)
	if len(parts) != 2 {
		return Enrollment{}, fmt.Errorf("malformed academic year %q", raw)
	}
	start, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return Enrollment{}, fmt.Errorf("malformed academic year %q: %w", raw, err)
	}
	end, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return Enrollment{}, fmt.Errorf("malformed academic year %q: %w", raw, err)
	}
	e := Enrollment{StartYear: start, EndYear: end}
	if !e.Valid() {
		return Enrollment{}, fmt.Errorf("invalid academic year span %q", raw)
	}
	return e, nil
}

// SemesterWindow is one 6-month academic term. Start is inclusive, End is
// exclusive, so consecutive windows tile the course span without gaps.
type SemesterWindow struct {
	Index      int       `json:"index"`
	CourseYear int       `json:"course_year"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
}

// Contains reports whether t falls inside the window.
func (w SemesterWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}
