package models

import "time"

// Route is the recorded start-to-end trajectory of one job.
// A job has at most one route; it is open until CompletedAt is set.
type Route struct {
	ID          string     `json:"id" db:"id"`
	JobID       string     `json:"job_id" db:"job_id"`
	TechID      string     `json:"tech_id" db:"tech_id"`
	StartLat    float64    `json:"start_lat" db:"start_lat"`
	StartLng    float64    `json:"start_lng" db:"start_lng"`
	EndLat      *float64   `json:"end_lat" db:"end_lat"`
	EndLng      *float64   `json:"end_lng" db:"end_lng"`
	StartedAt   time.Time  `json:"started_at" db:"started_at"`
	CompletedAt *time.Time `json:"completed_at" db:"completed_at"`
}

// IsOpen reports whether the route has not been completed yet
func (r *Route) IsOpen() bool {
	return r.CompletedAt == nil
}

// ActiveRoute is an open route joined with technician and job summaries
type ActiveRoute struct {
	Route
	Technician TechnicianSnapshot `json:"technician"`
	Job        JobSummary         `json:"job"`
}

// JobRoute is a job's route (nil if never started) and every sample recorded for the job
type JobRoute struct {
	Route           *RouteDetail     `json:"route"`
	LocationHistory []LocationSample `json:"location_history"`
}

// RouteDetail is a route with the names needed to render it
type RouteDetail struct {
	Route
	Technician TechnicianRef `json:"technician"`
	Job        JobSummary    `json:"job"`
}

// TechnicianRef identifies a technician in nested payloads
type TechnicianRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
