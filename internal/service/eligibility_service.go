package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Kishore-Procode/work-flow-lms-api-sub000/internal/academic"
	"github.com/Kishore-Procode/work-flow-lms-api-sub000/internal/models"
	appErrors "github.com/Kishore-Procode/work-flow-lms-api-sub000/pkg/errors"
)

// fullScanSemesters is the number of windows the completion pre-check
// walks. The legacy system scanned a fixed 8 regardless of course length,
// which under-reports completion for 3-year courses; kept as-is so the
// observable behavior does not change. See DESIGN.md.
const fullScanSemesters = 8

type recordChecker interface {
	ExistsInWindow(ctx context.Context, entityID, submitterID string, window models.SemesterWindow) (bool, error)
}

// DecisionStatus tags an eligibility outcome.
type DecisionStatus string

const (
	StatusAllowed   DecisionStatus = "ALLOWED"
	StatusDenied    DecisionStatus = "DENIED"
	StatusCompleted DecisionStatus = "COMPLETED"
)

// EligibilityDecision is the structured outcome of an evaluation. Expected
// ineligibility is always a decision, never an error.
type EligibilityDecision struct {
	Status          DecisionStatus
	Reason          string
	SemesterIndex   int
	NextSemester    int
	TotalSemesters  int
	NextAllowedDate *time.Time
}

// Allowed reports whether a new submission may be accepted.
func (d *EligibilityDecision) Allowed() bool {
	return d != nil && d.Status == StatusAllowed
}

// EligibilityService decides whether a photo submission may be accepted:
// one per semester, in strict order, inside the enrolled window.
type EligibilityService struct {
	records recordChecker
	logger  *zap.Logger
}

// NewEligibilityService constructs the service.
func NewEligibilityService(records recordChecker, logger *zap.Logger) *EligibilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EligibilityService{records: records, logger: logger}
}

// Evaluate runs the eligibility checks in order; the first failing check
// wins. Storage faults surface as errors, everything else as a decision.
func (s *EligibilityService) Evaluate(ctx context.Context, entityID, submitterID string, now time.Time, enrollment models.Enrollment) (*EligibilityDecision, error) {
	if !enrollment.Valid() {
		return &EligibilityDecision{
			Status: StatusDenied,
			Reason: "enrollment record could not be read",
		}, nil
	}
	total := academic.TotalSemesters(enrollment)

	done, err := s.FullyCompleted(ctx, entityID, submitterID, enrollment)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check completed semesters")
	}
	if done {
		return &EligibilityDecision{Status: StatusCompleted, TotalSemesters: total}, nil
	}

	current := academic.IndexAt(enrollment, now)
	if current > total {
		return &EligibilityDecision{
			Status:         StatusDenied,
			Reason:         fmt.Sprintf("congratulations, all %d semesters of your course are behind you; no further photos are expected", total),
			TotalSemesters: total,
		}, nil
	}

	if !academic.WithinEnrolledWindow(enrollment, now) {
		return &EligibilityDecision{
			Status:         StatusDenied,
			Reason:         fmt.Sprintf("submissions are only accepted during your %d-%d enrollment", enrollment.StartYear, enrollment.EndYear),
			TotalSemesters: total,
		}, nil
	}

	// Strict in-order completion: every earlier semester must already hold
	// a record before the current one may be filled.
	for idx := 1; idx < current; idx++ {
		window, err := academic.Window(enrollment, idx)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to derive semester window")
		}
		exists, err := s.records.ExistsInWindow(ctx, entityID, submitterID, window)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check semester record")
		}
		if !exists {
			return &EligibilityDecision{
				Status:         StatusDenied,
				Reason:         fmt.Sprintf("the %s semester photo is missing; semesters must be completed in order", academic.Ordinal(idx)),
				SemesterIndex:  idx,
				TotalSemesters: total,
			}, nil
		}
	}

	cycle := academic.CurrentCycle(now)
	exists, err := s.records.ExistsInWindow(ctx, entityID, submitterID, cycle)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check current cycle")
	}
	if exists {
		next := academic.NextCycleStart(now)
		return &EligibilityDecision{
			Status:          StatusDenied,
			Reason:          fmt.Sprintf("a photo for the %s semester already exists this cycle", academic.Ordinal(current)),
			SemesterIndex:   current,
			NextSemester:    current + 1,
			TotalSemesters:  total,
			NextAllowedDate: &next,
		}, nil
	}

	return &EligibilityDecision{Status: StatusAllowed, SemesterIndex: current, TotalSemesters: total}, nil
}

// FullyCompleted reports whether every one of the fixed scan windows holds
// a record. It runs before the main evaluation and also gates certificate
// download.
func (s *EligibilityService) FullyCompleted(ctx context.Context, entityID, submitterID string, enrollment models.Enrollment) (bool, error) {
	for idx := 1; idx <= fullScanSemesters; idx++ {
		window, err := academic.Window(enrollment, idx)
		if err != nil {
			return false, err
		}
		exists, err := s.records.ExistsInWindow(ctx, entityID, submitterID, window)
		if err != nil {
			return false, err
		}
		if !exists {
			return false, nil
		}
	}
	return true, nil
}
