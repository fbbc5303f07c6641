package tracking

import (
	"time"

	"techtrack-backend/internal/models"
)

// LocationSaved acknowledges an accepted location update to its sender
type LocationSaved struct {
	Success bool    `json:"success"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

// LocationUpdate is broadcast to administrators for every accepted sample
type LocationUpdate struct {
	TechnicianID string                  `json:"technician_id"`
	Lat          float64                 `json:"lat"`
	Lng          float64                 `json:"lng"`
	JobID        *string                 `json:"job_id"`
	Timestamp    time.Time               `json:"timestamp"`
	TechName     string                  `json:"tech_name"`
	Status       models.TechnicianStatus `json:"status"`
}

type LocationResult struct {
	Saved  LocationSaved
	Update LocationUpdate
}

// RouteEvent is both the ack and the broadcast for route start and completion
type RouteEvent struct {
	Success      bool          `json:"success"`
	TechnicianID string        `json:"technician_id"`
	JobID        string        `json:"job_id"`
	Lat          float64       `json:"lat"`
	Lng          float64       `json:"lng"`
	Route        *models.Route `json:"route"`
	Timestamp    time.Time     `json:"timestamp"`
}

// GPSToggled acknowledges a GPS toggle with the updated technician state
type GPSToggled struct {
	Success    bool                      `json:"success"`
	Enabled    bool                      `json:"enabled"`
	Technician models.TechnicianSnapshot `json:"technician"`
}

// GPSChanged is broadcast to administrators when a technician toggles GPS
type GPSChanged struct {
	TechnicianID string                  `json:"technician_id"`
	TechName     string                  `json:"tech_name"`
	Enabled      bool                    `json:"enabled"`
	Lat          *float64                `json:"lat"`
	Lng          *float64                `json:"lng"`
	Status       models.TechnicianStatus `json:"status"`
	Timestamp    time.Time               `json:"timestamp"`
}

type GPSResult struct {
	Toggled GPSToggled
	Changed GPSChanged
}

// JobStatusChanged is broadcast when a job moves through its workflow
type JobStatusChanged struct {
	JobID            string                  `json:"job_id"`
	TechnicianID     string                  `json:"technician_id"`
	JobStatus        models.JobStatus        `json:"job_status"`
	TechnicianStatus models.TechnicianStatus `json:"technician_status"`
	IsTracking       bool                    `json:"is_tracking"`
	Timestamp        time.Time               `json:"timestamp"`
}

type JobResult struct {
	Job     *models.Job
	Changed JobStatusChanged
	// ClosedRoute is set when completing the job also closed its open route
	ClosedRoute *RouteEvent
}

// TrackingResult is returned by SetTracking
type TrackingResult struct {
	Technician models.TechnicianSnapshot
	Changed    GPSChanged
}
