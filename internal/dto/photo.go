package dto

import (
	"time"

	"github.com/Kishore-Procode/work-flow-lms-api-sub000/internal/models"
)

// UploadPhotoRequest is the accepted-photo payload. Coordinates are explicit
// fields; the legacy caption-suffix encoding is not accepted.
type UploadPhotoRequest struct {
	EntityID  string     `json:"entity_id" validate:"required"`
	Caption   string     `json:"caption"`
	FileURL   string     `json:"file_url" validate:"required"`
	Latitude  *float64   `json:"latitude,omitempty" validate:"omitempty,min=-90,max=90"`
	Longitude *float64   `json:"longitude,omitempty" validate:"omitempty,min=-180,max=180"`
	TakenAt   *time.Time `json:"taken_at,omitempty"`
}

// EligibilityView mirrors the evaluator decision for API consumers.
type EligibilityView struct {
	Status          string     `json:"status"`
	Reason          string     `json:"reason,omitempty"`
	SemesterIndex   int        `json:"semester_index,omitempty"`
	NextSemester    int        `json:"next_semester,omitempty"`
	TotalSemesters  int        `json:"total_semesters,omitempty"`
	NextAllowedDate *time.Time `json:"next_allowed_date,omitempty"`
}

// UploadPhotoResult pairs the decision with the stored submission when the
// upload was accepted.
type UploadPhotoResult struct {
	Decision   EligibilityView         `json:"decision"`
	Submission *models.PhotoSubmission `json:"submission,omitempty"`
}
