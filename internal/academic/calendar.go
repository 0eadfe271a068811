// Package academic holds the pure calendar math shared by the photo
// eligibility engine and the completion certificate. The business year
// starts on June 1 and splits into two fixed 6-month halves: June-November
// and December-May. None of this is configurable.
package academic

import (
	"fmt"
	"time"

	"github.com/Kishore-Procode/work-flow-lms-api-sub000/internal/models"
)

// graceEndMonth extends the enrolled window past the nominal course end so
// a student finishing late can still submit through March 31 of the year
// after the final academic year.
const graceEndMonth = time.March

// StartYearAt returns the academic year that t falls into, identified by
// the calendar year of its June 1 start.
func StartYearAt(t time.Time) int {
	if t.Month() >= time.June {
		return t.Year()
	}
	return t.Year() - 1
}

// TotalSemesters maps a course duration to its semester count: 8 for a
// 4-year course, 6 for a 3-year course, twice the duration otherwise.
func TotalSemesters(e models.Enrollment) int {
	switch d := e.DurationYears(); d {
	case 4:
		return 8
	case 3:
		return 6
	default:
		return d * 2
	}
}

// Window returns the date range of the 1-based semester index for an
// enrollment. Odd semesters run June-November of their course year, even
// semesters run December-May spilling into the next calendar year.
func Window(e models.Enrollment, index int) (models.SemesterWindow, error) {
	if index < 1 {
		return models.SemesterWindow{}, fmt.Errorf("semester index must be positive, got %d", index)
	}
	courseYear := (index + 1) / 2
	semInYear := ((index - 1) % 2) + 1
	year := e.StartYear + courseYear - 1

	w := models.SemesterWindow{Index: index, CourseYear: courseYear}
	if semInYear == 1 {
		w.Start = time.Date(year, time.June, 1, 0, 0, 0, 0, time.UTC)
		w.End = time.Date(year, time.December, 1, 0, 0, 0, 0, time.UTC)
	} else {
		w.Start = time.Date(year, time.December, 1, 0, 0, 0, 0, time.UTC)
		w.End = time.Date(year+1, time.June, 1, 0, 0, 0, 0, time.UTC)
	}
	return w, nil
}

// CurrentCycle returns the open 6-month half bracketing now, without any
// enrollment context (Index and CourseYear are zero).
func CurrentCycle(now time.Time) models.SemesterWindow {
	year := StartYearAt(now)
	if now.Month() >= time.June && now.Month() <= time.November {
		return models.SemesterWindow{
			Start: time.Date(year, time.June, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(year, time.December, 1, 0, 0, 0, 0, time.UTC),
		}
	}
	return models.SemesterWindow{
		Start: time.Date(year, time.December, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(year+1, time.June, 1, 0, 0, 0, 0, time.UTC),
	}
}

// NextCycleStart returns the first day of the semester cycle following now.
func NextCycleStart(now time.Time) time.Time {
	return CurrentCycle(now).End
}

// IndexAt computes the raw 1-based semester index for now against the
// enrollment, without clamping to the course length. Values above
// TotalSemesters mean the student has outrun the course span; values below
// 1 mean the enrollment has not started.
func IndexAt(e models.Enrollment, now time.Time) int {
	yearInCourse := StartYearAt(now) - e.StartYear + 1
	semInYear := 1
	if now.Month() < time.June || now.Month() > time.November {
		semInYear = 2
	}
	return (yearInCourse-1)*2 + semInYear
}

// WithinEnrolledWindow reports whether now falls between June 1 of the
// start year and March 31 of the year after the course end, inclusive. The
// grace period through the following March is a deliberate business rule.
func WithinEnrolledWindow(e models.Enrollment, now time.Time) bool {
	start := time.Date(e.StartYear, time.June, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(e.EndYear+1, graceEndMonth+1, 1, 0, 0, 0, 0, time.UTC)
	return !now.Before(start) && now.Before(end)
}
