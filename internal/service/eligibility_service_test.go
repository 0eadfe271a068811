package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Kishore-Procode/work-flow-lms-api-sub000/internal/academic"
	"github.com/Kishore-Procode/work-flow-lms-api-sub000/internal/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// recordStub marks semester windows (by start date) that hold a record.
type recordStub struct {
	windows map[time.Time]bool
	err     error
}

func newRecordStub() *recordStub {
	return &recordStub{windows: make(map[time.Time]bool)}
}

func (r *recordStub) markSemester(t *testing.T, enr models.Enrollment, index int) {
	t.Helper()
	w, err := academic.Window(enr, index)
	require.NoError(t, err)
	r.windows[w.Start] = true
}

func (r *recordStub) ExistsInWindow(ctx context.Context, entityID, submitterID string, window models.SemesterWindow) (bool, error) {
	if r.err != nil {
		return false, r.err
	}
	return r.windows[window.Start], nil
}

var testEnrollment = models.Enrollment{StartYear: 2025, EndYear: 2029}

func TestEvaluateFirstSemesterAllowed(t *testing.T) {
	records := newRecordStub()
	svc := NewEligibilityService(records, nil)

	decision, err := svc.Evaluate(context.Background(), "tree-1", "student-1",
		date(2025, time.July, 15), testEnrollment)
	require.NoError(t, err)
	require.True(t, decision.Allowed())
	require.Equal(t, 1, decision.SemesterIndex)
	require.Equal(t, 8, decision.TotalSemesters)
}

func TestEvaluateAlreadySubmittedThisCycle(t *testing.T) {
	records := newRecordStub()
	records.markSemester(t, testEnrollment, 1)
	svc := NewEligibilityService(records, nil)

	decision, err := svc.Evaluate(context.Background(), "tree-1", "student-1",
		date(2025, time.September, 1), testEnrollment)
	require.NoError(t, err)
	require.Equal(t, StatusDenied, decision.Status)
	require.Contains(t, decision.Reason, "already exists")
	require.NotNil(t, decision.NextAllowedDate)
	require.Equal(t, date(2025, time.December, 1), *decision.NextAllowedDate)
	require.Equal(t, 1, decision.SemesterIndex)
	require.Equal(t, 2, decision.NextSemester)
}

func TestEvaluateMissingEarlierSemester(t *testing.T) {
	records := newRecordStub()
	svc := NewEligibilityService(records, nil)

	// semester 2 window, nothing submitted for semester 1
	decision, err := svc.Evaluate(context.Background(), "tree-1", "student-1",
		date(2025, time.December, 10), testEnrollment)
	require.NoError(t, err)
	require.Equal(t, StatusDenied, decision.Status)
	require.Contains(t, decision.Reason, "1st semester")
	require.Equal(t, 1, decision.SemesterIndex)
}

func TestEvaluateSkipsToFirstMissingSemester(t *testing.T) {
	records := newRecordStub()
	records.markSemester(t, testEnrollment, 1)
	records.markSemester(t, testEnrollment, 2)
	svc := NewEligibilityService(records, nil)

	// semester 4 window with semester 3 missing
	decision, err := svc.Evaluate(context.Background(), "tree-1", "student-1",
		date(2027, time.January, 10), testEnrollment)
	require.NoError(t, err)
	require.Equal(t, StatusDenied, decision.Status)
	require.Contains(t, decision.Reason, "3rd semester")
}

func TestEvaluateFullyCompleted(t *testing.T) {
	records := newRecordStub()
	for i := 1; i <= 8; i++ {
		records.markSemester(t, testEnrollment, i)
	}
	svc := NewEligibilityService(records, nil)

	decision, err := svc.Evaluate(context.Background(), "tree-1", "student-1",
		date(2029, time.January, 10), testEnrollment)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, decision.Status)
	require.Equal(t, 8, decision.TotalSemesters)
}

func TestEvaluateOvershootCongratulates(t *testing.T) {
	records := newRecordStub()
	for i := 1; i <= 7; i++ {
		records.markSemester(t, testEnrollment, i)
	}
	svc := NewEligibilityService(records, nil)

	// inside the March grace window but past the final course year
	decision, err := svc.Evaluate(context.Background(), "tree-1", "student-1",
		date(2029, time.September, 1), testEnrollment)
	require.NoError(t, err)
	require.Equal(t, StatusDenied, decision.Status)
	require.Contains(t, decision.Reason, "congratulations")
}

func TestEvaluateOutsideEnrollmentWindow(t *testing.T) {
	records := newRecordStub()
	svc := NewEligibilityService(records, nil)

	decision, err := svc.Evaluate(context.Background(), "tree-1", "student-1",
		date(2024, time.December, 1), testEnrollment)
	require.NoError(t, err)
	require.Equal(t, StatusDenied, decision.Status)
	require.Contains(t, decision.Reason, "2025-2029")
}

func TestEvaluateInvalidEnrollmentFailsClosed(t *testing.T) {
	svc := NewEligibilityService(newRecordStub(), nil)

	decision, err := svc.Evaluate(context.Background(), "tree-1", "student-1",
		date(2025, time.July, 1), models.Enrollment{StartYear: 2029, EndYear: 2025})
	require.NoError(t, err)
	require.Equal(t, StatusDenied, decision.Status)
}

func TestFullyCompletedScansFixedEightSemesters(t *testing.T) {
	// A 3-year course has 6 semesters, yet the completion scan still walks
	// 8 windows; records only in 1..6 therefore do not count as complete.
	enr := models.Enrollment{StartYear: 2025, EndYear: 2028}
	records := newRecordStub()
	for i := 1; i <= 6; i++ {
		records.markSemester(t, enr, i)
	}
	svc := NewEligibilityService(records, nil)

	done, err := svc.FullyCompleted(context.Background(), "tree-1", "student-1", enr)
	require.NoError(t, err)
	require.False(t, done)
}
