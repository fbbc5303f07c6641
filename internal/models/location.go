package models

import "time"

// LocationSample is one GPS reading. Samples are append-only.
type LocationSample struct {
	ID           int64     `json:"id" db:"id"`
	TechID       string    `json:"tech_id" db:"tech_id"`
	JobID        *string   `json:"job_id" db:"job_id"`
	Lat          float64   `json:"lat" db:"lat"`
	Lng          float64   `json:"lng" db:"lng"`
	IsStartPoint bool      `json:"is_start_point" db:"is_start_point"`
	IsEndPoint   bool      `json:"is_end_point" db:"is_end_point"`
	RecordedAt   time.Time `json:"recorded_at" db:"recorded_at"`
}

// HistoryEntry is a sample with the job it was recorded for
type HistoryEntry struct {
	LocationSample
	Job *JobSummary `json:"job,omitempty"`
}
