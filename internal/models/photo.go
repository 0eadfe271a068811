package models

import "time"

// PhotoSubmission is one accepted progress photo for a tracked resource.
// Rows are created only through the eligibility acceptance path and are
// never mutated afterwards. Coordinates are explicit columns rather than
// text smuggled into the caption.
type PhotoSubmission struct {
	ID            string    `db:"id" json:"id"`
	EntityID      string    `db:"entity_id" json:"entity_id"`
	SubmitterID   string    `db:"submitter_id" json:"submitter_id"`
	Caption       string    `db:"caption" json:"caption"`
	FileURL       string    `db:"file_url" json:"file_url"`
	SemesterIndex int       `db:"semester_index" json:"semester_index"`
	WindowStart   time.Time `db:"window_start" json:"window_start"`
	Latitude      *float64  `db:"latitude" json:"latitude,omitempty"`
	Longitude     *float64  `db:"longitude" json:"longitude,omitempty"`
	TakenAt       time.Time `db:"taken_at" json:"taken_at"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
