package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Kishore-Procode/work-flow-lms-api-sub000/internal/geo"
	"github.com/Kishore-Procode/work-flow-lms-api-sub000/internal/models"
)

// PhotoRepository persists accepted photo submissions. A unique constraint
// on (entity_id, submitter_id, window_start) backs the one-per-semester
// rule against concurrent uploads.
type PhotoRepository struct {
	db *sqlx.DB
}

// NewPhotoRepository constructs the repository.
func NewPhotoRepository(db *sqlx.DB) *PhotoRepository {
	return &PhotoRepository{db: db}
}

// Create inserts an accepted photo submission.
func (r *PhotoRepository) Create(ctx context.Context, submission *models.PhotoSubmission) error {
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	if submission.CreatedAt.IsZero() {
		submission.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO photo_submissions
		(id, entity_id, submitter_id, caption, file_url, semester_index, window_start, latitude, longitude, taken_at, created_at)
		VALUES (:id, :entity_id, :submitter_id, :caption, :file_url, :semester_index, :window_start, :latitude, :longitude, :taken_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, submission); err != nil {
		return fmt.Errorf("create photo submission: %w", err)
	}
	return nil
}

// ExistsInWindow reports whether the submitter already has a photo for the
// entity inside the semester window.
func (r *PhotoRepository) ExistsInWindow(ctx context.Context, entityID, submitterID string, window models.SemesterWindow) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM photo_submissions
		WHERE entity_id = $1 AND submitter_id = $2 AND taken_at >= $3 AND taken_at < $4)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, entityID, submitterID, window.Start, window.End); err != nil {
		return false, fmt.Errorf("check photo in window: %w", err)
	}
	return exists, nil
}

// LatestLocation returns the coordinates of the most recent submission for
// the entity, or nil when no geotagged photo exists yet.
func (r *PhotoRepository) LatestLocation(ctx context.Context, entityID string) (*geo.Point, error) {
	const query = `SELECT latitude, longitude FROM photo_submissions
		WHERE entity_id = $1 AND latitude IS NOT NULL AND longitude IS NOT NULL
		ORDER BY taken_at DESC LIMIT 1`
	var row struct {
		Latitude  float64 `db:"latitude"`
		Longitude float64 `db:"longitude"`
	}
	if err := r.db.GetContext(ctx, &row, query, entityID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("load latest photo location: %w", err)
	}
	return &geo.Point{Lat: row.Latitude, Lon: row.Longitude}, nil
}

// ListByEntity returns submissions for an entity, newest first.
func (r *PhotoRepository) ListByEntity(ctx context.Context, entityID string, limit int) ([]models.PhotoSubmission, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	const query = `SELECT id, entity_id, submitter_id, caption, file_url, semester_index, window_start, latitude, longitude, taken_at, created_at
		FROM photo_submissions WHERE entity_id = $1 ORDER BY taken_at DESC LIMIT $2`
	var submissions []models.PhotoSubmission
	if err := r.db.SelectContext(ctx, &submissions, query, entityID, limit); err != nil {
		return nil, fmt.Errorf("list photo submissions: %w", err)
	}
	return submissions, nil
}
