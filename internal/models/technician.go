package models

import "time"

// TechnicianStatus is the presence shown to administrators
type TechnicianStatus string

const (
	StatusOffline TechnicianStatus = "OFFLINE"
	StatusOnline  TechnicianStatus = "ONLINE"
	StatusOnWay   TechnicianStatus = "ON_WAY"
)

// Valid reports whether s is one of the known statuses
func (s TechnicianStatus) Valid() bool {
	switch s {
	case StatusOffline, StatusOnline, StatusOnWay:
		return true
	}
	return false
}

// Technician is the current-state record for one field technician.
// There is exactly one row per technician, overwritten by every tracking event.
type Technician struct {
	ID           string           `json:"id" db:"id"`
	Name         string           `json:"name" db:"name"`
	Email        string           `json:"email" db:"email"`
	Password     string           `json:"-" db:"password"`
	LastLat      *float64         `json:"last_lat" db:"last_lat"`   // nil = never reported
	LastLng      *float64         `json:"last_lng" db:"last_lng"`   // nil = never reported
	LastPing     *time.Time       `json:"last_ping" db:"last_ping"` // nil = never reported
	IsTracking   bool             `json:"is_tracking" db:"is_tracking"`
	Status       TechnicianStatus `json:"status" db:"status"`
	CurrentJobID *string          `json:"current_job_id" db:"current_job_id"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at" db:"updated_at"`
}

// HasPosition reports whether the technician ever reported coordinates
func (t *Technician) HasPosition() bool {
	return t.LastLat != nil && t.LastLng != nil
}

// TechnicianSnapshot is the read model returned to dashboards
type TechnicianSnapshot struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Email        string           `json:"email"`
	LastLat      *float64         `json:"last_lat"`
	LastLng      *float64         `json:"last_lng"`
	LastPing     *time.Time       `json:"last_ping"`
	IsTracking   bool             `json:"is_tracking"`
	Status       TechnicianStatus `json:"status"`
	CurrentJobID *string          `json:"current_job_id"`
	ActiveJob    *JobSummary      `json:"active_job,omitempty"`
}

// Snapshot converts the state row into its read model
func (t *Technician) Snapshot() TechnicianSnapshot {
	return TechnicianSnapshot{
		ID:           t.ID,
		Name:         t.Name,
		Email:        t.Email,
		LastLat:      t.LastLat,
		LastLng:      t.LastLng,
		LastPing:     t.LastPing,
		IsTracking:   t.IsTracking,
		Status:       t.Status,
		CurrentJobID: t.CurrentJobID,
	}
}
