package models

import "time"

// JobStatus follows ASSIGNED → ACCEPTED → IN_PROGRESS → COMPLETED
type JobStatus string

const (
	JobAssigned   JobStatus = "ASSIGNED"
	JobAccepted   JobStatus = "ACCEPTED"
	JobInProgress JobStatus = "IN_PROGRESS"
	JobCompleted  JobStatus = "COMPLETED"
)

// OpenJobStatuses are the statuses of jobs still on a technician's plate
var OpenJobStatuses = []JobStatus{JobAssigned, JobAccepted, JobInProgress}

// CanTransition reports whether a job may move from s to next
func (s JobStatus) CanTransition(next JobStatus) bool {
	switch next {
	case JobAccepted:
		return s == JobAssigned
	case JobInProgress:
		return s == JobAssigned || s == JobAccepted
	case JobCompleted:
		return s == JobInProgress
	}
	return false
}

type Job struct {
	ID          string     `json:"id" db:"id"`
	Title       string     `json:"title" db:"title"`
	Description *string    `json:"description,omitempty" db:"description"`
	Address     *string    `json:"address,omitempty" db:"address"`
	AddressLat  *float64   `json:"address_lat,omitempty" db:"address_lat"`
	AddressLng  *float64   `json:"address_lng,omitempty" db:"address_lng"`
	Status      JobStatus  `json:"status" db:"status"`
	AdminID     *string    `json:"admin_id,omitempty" db:"admin_id"`
	TechID      string     `json:"tech_id" db:"tech_id"`
	AcceptedAt  *time.Time `json:"accepted_at,omitempty" db:"accepted_at"`
	StartedAt   *time.Time `json:"started_at,omitempty" db:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// Summary trims a job down to what dashboards show next to a technician
func (j *Job) Summary() JobSummary {
	return JobSummary{
		ID:         j.ID,
		Title:      j.Title,
		Status:     j.Status,
		Address:    j.Address,
		AddressLat: j.AddressLat,
		AddressLng: j.AddressLng,
	}
}

type JobSummary struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Status     JobStatus `json:"status,omitempty"`
	Address    *string   `json:"address,omitempty"`
	AddressLat *float64  `json:"address_lat,omitempty"`
	AddressLng *float64  `json:"address_lng,omitempty"`
}

// AssignJobRequest is the request body for POST /api/admin/assign-job
type AssignJobRequest struct {
	Title       string   `json:"title" validate:"required"`
	Description *string  `json:"description,omitempty"`
	Address     *string  `json:"address,omitempty"`
	AddressLat  *float64 `json:"address_lat,omitempty" validate:"omitempty,min=-90,max=90"`
	AddressLng  *float64 `json:"address_lng,omitempty" validate:"omitempty,min=-180,max=180"`
	TechID      string   `json:"tech_id" validate:"required"`
}
