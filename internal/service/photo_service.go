package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Kishore-Procode/work-flow-lms-api-sub000/internal/academic"
	"github.com/Kishore-Procode/work-flow-lms-api-sub000/internal/dto"
	"github.com/Kishore-Procode/work-flow-lms-api-sub000/internal/geo"
	"github.com/Kishore-Procode/work-flow-lms-api-sub000/internal/models"
	appErrors "github.com/Kishore-Procode/work-flow-lms-api-sub000/pkg/errors"
	"github.com/Kishore-Procode/work-flow-lms-api-sub000/pkg/export"
)

type photoStore interface {
	ExistsInWindow(ctx context.Context, entityID, submitterID string, window models.SemesterWindow) (bool, error)
	LatestLocation(ctx context.Context, entityID string) (*geo.Point, error)
	Create(ctx context.Context, submission *models.PhotoSubmission) error
	ListByEntity(ctx context.Context, entityID string, limit int) ([]models.PhotoSubmission, error)
}

type enrollmentProvider interface {
	AcademicYear(ctx context.Context, userID string) (string, error)
}

// PhotoService orchestrates the upload path: eligibility, proximity, then
// persistence. The repository backs the check-then-persist race with a
// unique (entity, submitter, window_start) constraint.
type PhotoService struct {
	repo         photoStore
	students     enrollmentProvider
	eligibility  *EligibilityService
	proximity    *ProximityGuard
	certificates *export.CertificateRenderer
	certTitle    string
	validator    *validator.Validate
	logger       *zap.Logger
	now          func() time.Time
}

// PhotoServiceOption configures the service.
type PhotoServiceOption func(*PhotoService)

// WithPhotoClock overrides the time source, for tests.
func WithPhotoClock(now func() time.Time) PhotoServiceOption {
	return func(s *PhotoService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithCertificateTitle overrides the certificate heading.
func WithCertificateTitle(title string) PhotoServiceOption {
	return func(s *PhotoService) {
		if title != "" {
			s.certTitle = title
		}
	}
}

// NewPhotoService constructs the service.
func NewPhotoService(
	repo photoStore,
	students enrollmentProvider,
	eligibility *EligibilityService,
	proximity *ProximityGuard,
	validate *validator.Validate,
	logger *zap.Logger,
	opts ...PhotoServiceOption,
) *PhotoService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &PhotoService{
		repo:         repo,
		students:     students,
		eligibility:  eligibility,
		proximity:    proximity,
		certificates: export.NewCertificateRenderer(),
		validator:    validate,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Eligibility evaluates whether the submitter may upload for the entity
// right now, without persisting anything.
func (s *PhotoService) Eligibility(ctx context.Context, entityID string, claims *models.JWTClaims) (*dto.EligibilityView, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	enrollment, decision := s.enrollmentFor(ctx, claims.UserID)
	if decision != nil {
		view := eligibilityView(decision)
		return &view, nil
	}
	result, err := s.eligibility.Evaluate(ctx, entityID, claims.UserID, s.now(), enrollment)
	if err != nil {
		return nil, err
	}
	view := eligibilityView(result)
	return &view, nil
}

// Upload accepts a photo when every check passes and stores it. A denied
// decision is a normal result, not an error.
func (s *PhotoService) Upload(ctx context.Context, req dto.UploadPhotoRequest, claims *models.JWTClaims) (*dto.UploadPhotoResult, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid photo payload")
	}

	now := s.now()
	takenAt := now
	if req.TakenAt != nil {
		takenAt = req.TakenAt.UTC()
	}

	enrollment, denied := s.enrollmentFor(ctx, claims.UserID)
	if denied != nil {
		return &dto.UploadPhotoResult{Decision: eligibilityView(denied)}, nil
	}

	decision, err := s.eligibility.Evaluate(ctx, req.EntityID, claims.UserID, now, enrollment)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed() {
		return &dto.UploadPhotoResult{Decision: eligibilityView(decision)}, nil
	}

	candidate := pointOf(req.Latitude, req.Longitude)
	prior, err := s.repo.LatestLocation(ctx, req.EntityID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load prior photo location")
	}
	if prox := s.proximity.Check(candidate, prior); !prox.OK {
		return &dto.UploadPhotoResult{Decision: dto.EligibilityView{
			Status: string(StatusDenied),
			Reason: fmt.Sprintf("photo is %.0f m from the previous location, limit is %.0f m",
				prox.DistanceMeters, s.proximity.MaxMeters()),
			SemesterIndex:  decision.SemesterIndex,
			TotalSemesters: decision.TotalSemesters,
		}}, nil
	}

	window, err := academic.Window(enrollment, decision.SemesterIndex)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to derive semester window")
	}
	// taken_at drives the per-window existence checks, so a timestamp
	// outside the current window would corrupt later evaluations.
	if !window.Contains(takenAt) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "taken_at must fall within the current semester window")
	}
	submission := &models.PhotoSubmission{
		ID:            uuid.NewString(),
		EntityID:      req.EntityID,
		SubmitterID:   claims.UserID,
		Caption:       req.Caption,
		FileURL:       req.FileURL,
		SemesterIndex: decision.SemesterIndex,
		WindowStart:   window.Start,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
		TakenAt:       takenAt,
	}
	if err := s.repo.Create(ctx, submission); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store photo submission")
	}
	s.logger.Info("photo submission accepted",
		zap.String("entity_id", req.EntityID),
		zap.String("submitter_id", claims.UserID),
		zap.Int("semester", decision.SemesterIndex))

	return &dto.UploadPhotoResult{Decision: eligibilityView(decision), Submission: submission}, nil
}

// History lists stored submissions for an entity, newest first.
func (s *PhotoService) History(ctx context.Context, entityID string, limit int, claims *models.JWTClaims) ([]models.PhotoSubmission, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	submissions, err := s.repo.ListByEntity(ctx, entityID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list photo submissions")
	}
	return submissions, nil
}

// Certificate renders the completion PDF; it is only available once every
// scanned semester window holds a record.
func (s *PhotoService) Certificate(ctx context.Context, entityID, entityName, studentName string, claims *models.JWTClaims) ([]byte, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	enrollment, denied := s.enrollmentFor(ctx, claims.UserID)
	if denied != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, denied.Reason)
	}
	done, err := s.eligibility.FullyCompleted(ctx, entityID, claims.UserID, enrollment)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check completion")
	}
	if !done {
		return nil, appErrors.Clone(appErrors.ErrConflict, "certificate is available only after all semester photos are submitted")
	}

	windows := make([]models.SemesterWindow, 0, fullScanSemesters)
	for idx := 1; idx <= fullScanSemesters; idx++ {
		w, err := academic.Window(enrollment, idx)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to derive semester window")
		}
		windows = append(windows, w)
	}
	return s.certificates.Render(export.CertificateData{
		Title:       s.certTitle,
		StudentName: studentName,
		EntityName:  entityName,
		Enrollment:  enrollment,
		Windows:     windows,
		IssuedAt:    s.now(),
	})
}

// enrollmentFor loads and parses the student's academic year. Failures
// produce a fail-closed denial rather than an error.
func (s *PhotoService) enrollmentFor(ctx context.Context, userID string) (models.Enrollment, *EligibilityDecision) {
	raw, err := s.students.AcademicYear(ctx, userID)
	if err != nil {
		s.logger.Warn("failed to load academic year", zap.String("user_id", userID), zap.Error(err))
		return models.Enrollment{}, &EligibilityDecision{
			Status: StatusDenied,
			Reason: "enrollment record could not be read",
		}
	}
	enrollment, err := models.ParseEnrollment(raw)
	if err != nil {
		s.logger.Warn("malformed academic year", zap.String("user_id", userID), zap.Error(err))
		return models.Enrollment{}, &EligibilityDecision{
			Status: StatusDenied,
			Reason: "enrollment record could not be read",
		}
	}
	return enrollment, nil
}

func pointOf(lat, lon *float64) *geo.Point {
	if lat == nil || lon == nil {
		return nil
	}
	return &geo.Point{Lat: *lat, Lon: *lon}
}

func eligibilityView(d *EligibilityDecision) dto.EligibilityView {
	view := dto.EligibilityView{
		Status:          string(d.Status),
		Reason:          d.Reason,
		SemesterIndex:   d.SemesterIndex,
		NextSemester:    d.NextSemester,
		TotalSemesters:  d.TotalSemesters,
		NextAllowedDate: d.NextAllowedDate,
	}
	return view
}
