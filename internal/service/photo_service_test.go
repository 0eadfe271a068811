package service

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Kishore-Procode/work-flow-lms-api-sub000/internal/academic"
	"github.com/Kishore-Procode/work-flow-lms-api-sub000/internal/dto"
	"github.com/Kishore-Procode/work-flow-lms-api-sub000/internal/geo"
	"github.com/Kishore-Procode/work-flow-lms-api-sub000/internal/models"
	appErrors "github.com/Kishore-Procode/work-flow-lms-api-sub000/pkg/errors"
)

type photoStoreStub struct {
	*recordStub
	prior   *geo.Point
	created []*models.PhotoSubmission
}

func newPhotoStoreStub() *photoStoreStub {
	return &photoStoreStub{recordStub: newRecordStub()}
}

func (s *photoStoreStub) LatestLocation(ctx context.Context, entityID string) (*geo.Point, error) {
	return s.prior, nil
}

func (s *photoStoreStub) Create(ctx context.Context, submission *models.PhotoSubmission) error {
	s.created = append(s.created, submission)
	return nil
}

func (s *photoStoreStub) ListByEntity(ctx context.Context, entityID string, limit int) ([]models.PhotoSubmission, error) {
	out := make([]models.PhotoSubmission, 0, len(s.created))
	for i := len(s.created) - 1; i >= 0; i-- {
		if s.created[i].EntityID == entityID {
			out = append(out, *s.created[i])
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

type enrollmentStub struct {
	year string
	err  error
}

func (e *enrollmentStub) AcademicYear(ctx context.Context, userID string) (string, error) {
	return e.year, e.err
}

func floatPtr(f float64) *float64 { return &f }

func newPhotoService(store *photoStoreStub, students enrollmentProvider, now time.Time) *PhotoService {
	return NewPhotoService(store, students,
		NewEligibilityService(store, nil),
		NewProximityGuard(DefaultMaxDistanceMeters, nil),
		nil, nil, WithPhotoClock(func() time.Time { return now }))
}

func validUpload() dto.UploadPhotoRequest {
	return dto.UploadPhotoRequest{
		EntityID:  "tree-1",
		Caption:   "first semester planting",
		FileURL:   "https://cdn.example.edu/p/1.jpg",
		Latitude:  floatPtr(13.0827),
		Longitude: floatPtr(80.2707),
	}
}

func studentClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "student-1", Role: models.RoleStudent, CollegeID: "college-1"}
}

func TestUploadStoresAcceptedPhoto(t *testing.T) {
	store := newPhotoStoreStub()
	svc := newPhotoService(store, &enrollmentStub{year: "2025-2029"}, date(2025, time.July, 15))

	result, err := svc.Upload(context.Background(), validUpload(), studentClaims())
	require.NoError(t, err)
	require.Equal(t, string(StatusAllowed), result.Decision.Status)
	require.NotNil(t, result.Submission)
	require.Len(t, store.created, 1)

	stored := store.created[0]
	require.Equal(t, 1, stored.SemesterIndex)
	require.Equal(t, date(2025, time.June, 1), stored.WindowStart)
	require.Equal(t, "student-1", stored.SubmitterID)
	require.NotNil(t, stored.Latitude)
}

func TestUploadDeniedDecisionIsNotAnError(t *testing.T) {
	store := newPhotoStoreStub()
	store.markSemester(t, testEnrollment, 1)
	svc := newPhotoService(store, &enrollmentStub{year: "2025-2029"}, date(2025, time.September, 1))

	result, err := svc.Upload(context.Background(), validUpload(), studentClaims())
	require.NoError(t, err)
	require.Equal(t, string(StatusDenied), result.Decision.Status)
	require.Nil(t, result.Submission)
	require.Empty(t, store.created)
}

func TestUploadRejectedByProximity(t *testing.T) {
	store := newPhotoStoreStub()
	// ~110 m north of the candidate point
	store.prior = &geo.Point{Lat: 13.0837, Lon: 80.2707}
	svc := newPhotoService(store, &enrollmentStub{year: "2025-2029"}, date(2025, time.July, 15))

	result, err := svc.Upload(context.Background(), validUpload(), studentClaims())
	require.NoError(t, err)
	require.Equal(t, string(StatusDenied), result.Decision.Status)
	require.Contains(t, result.Decision.Reason, "previous location")
	require.Empty(t, store.created)
}

func TestUploadWithoutCoordinatesSkipsProximity(t *testing.T) {
	store := newPhotoStoreStub()
	store.prior = &geo.Point{Lat: 13.0837, Lon: 80.2707}
	svc := newPhotoService(store, &enrollmentStub{year: "2025-2029"}, date(2025, time.July, 15))

	req := validUpload()
	req.Latitude = nil
	req.Longitude = nil
	result, err := svc.Upload(context.Background(), req, studentClaims())
	require.NoError(t, err)
	require.Equal(t, string(StatusAllowed), result.Decision.Status)
	require.Len(t, store.created, 1)
	require.Nil(t, store.created[0].Latitude)
}

func TestUploadFailsClosedOnUnreadableEnrollment(t *testing.T) {
	store := newPhotoStoreStub()
	svc := newPhotoService(store, &enrollmentStub{err: errors.New("db down")}, date(2025, time.July, 15))

	result, err := svc.Upload(context.Background(), validUpload(), studentClaims())
	require.NoError(t, err)
	require.Equal(t, string(StatusDenied), result.Decision.Status)
	require.Contains(t, result.Decision.Reason, "enrollment record")
	require.Empty(t, store.created)
}

func TestUploadValidation(t *testing.T) {
	svc := newPhotoService(newPhotoStoreStub(), &enrollmentStub{year: "2025-2029"}, date(2025, time.July, 15))

	req := validUpload()
	req.Latitude = floatPtr(123.4)
	_, err := svc.Upload(context.Background(), req, studentClaims())
	require.Error(t, err)
	require.True(t, appErrors.Is(err, appErrors.ErrValidation))

	req = validUpload()
	req.FileURL = ""
	_, err = svc.Upload(context.Background(), req, studentClaims())
	require.Error(t, err)
	require.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.Upload(context.Background(), validUpload(), nil)
	require.Error(t, err)
	require.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}

func TestEligibilityView(t *testing.T) {
	store := newPhotoStoreStub()
	svc := newPhotoService(store, &enrollmentStub{year: "2025-2029"}, date(2025, time.July, 15))

	view, err := svc.Eligibility(context.Background(), "tree-1", studentClaims())
	require.NoError(t, err)
	require.Equal(t, string(StatusAllowed), view.Status)
	require.Equal(t, 1, view.SemesterIndex)
	require.Equal(t, 8, view.TotalSemesters)
}

func TestCertificateRequiresCompletion(t *testing.T) {
	store := newPhotoStoreStub()
	svc := newPhotoService(store, &enrollmentStub{year: "2025-2029"}, date(2029, time.June, 15))

	_, err := svc.Certificate(context.Background(), "tree-1", "Neem", "A Student", studentClaims())
	require.Error(t, err)
	require.True(t, appErrors.Is(err, appErrors.ErrConflict))

	for idx := 1; idx <= 8; idx++ {
		store.markSemester(t, testEnrollment, idx)
	}
	pdf, err := svc.Certificate(context.Background(), "tree-1", "Neem", "A Student", studentClaims())
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
}

func TestUploadWindowMatchesMidCourseSemester(t *testing.T) {
	store := newPhotoStoreStub()
	for idx := 1; idx <= 4; idx++ {
		store.markSemester(t, testEnrollment, idx)
	}
	svc := newPhotoService(store, &enrollmentStub{year: "2025-2029"}, date(2027, time.August, 10))

	result, err := svc.Upload(context.Background(), validUpload(), studentClaims())
	require.NoError(t, err)
	require.Equal(t, string(StatusAllowed), result.Decision.Status)
	require.Equal(t, 5, result.Decision.SemesterIndex)

	w, err := academic.Window(testEnrollment, 5)
	require.NoError(t, err)
	require.Equal(t, w.Start, store.created[0].WindowStart)
}
