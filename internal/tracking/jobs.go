package tracking

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"techtrack-backend/internal/models"
)

// AssignJob creates an ASSIGNED job for an existing technician
func (e *Engine) AssignJob(ctx context.Context, adminID string, req models.AssignJobRequest) (*models.Job, error) {
	if err := requireID("technician", req.TechID); err != nil {
		return nil, err
	}
	if req.AddressLat != nil && req.AddressLng != nil {
		if err := ValidateCoordinates(*req.AddressLat, *req.AddressLng); err != nil {
			return nil, err
		}
	}
	if _, err := e.store.GetTechnician(ctx, req.TechID); err != nil {
		return nil, err
	}

	job := &models.Job{
		ID:          uuid.New().String(),
		Title:       req.Title,
		Description: req.Description,
		Address:     req.Address,
		AddressLat:  req.AddressLat,
		AddressLng:  req.AddressLng,
		Status:      models.JobAssigned,
		TechID:      req.TechID,
		CreatedAt:   e.now(),
	}
	if adminID != "" {
		job.AdminID = &adminID
	}
	if err := e.store.CreateJob(ctx, job); err != nil {
		return nil, err
	}

	e.log.Info().Str("job_id", job.ID).Str("tech_id", job.TechID).Msg("📋 Job assigned")
	return job, nil
}

// AcceptJob moves an ASSIGNED job to ACCEPTED. Tracking state is untouched.
func (e *Engine) AcceptJob(ctx context.Context, techID, jobID string) (*JobResult, error) {
	return e.transitionJob(ctx, techID, jobID, models.JobAccepted, func(*models.Technician) error {
		return nil
	})
}

// StartJob moves the job to IN_PROGRESS, binds the technician to it and
// turns tracking on.
func (e *Engine) StartJob(ctx context.Context, techID, jobID string) (*JobResult, error) {
	return e.transitionJob(ctx, techID, jobID, models.JobInProgress, func(tech *models.Technician) error {
		applyState(tech, true, &jobID, "")
		return nil
	})
}

// CompleteJob moves the job to COMPLETED. An open route for the job is closed
// at the technician's last known position, and the technician is released.
func (e *Engine) CompleteJob(ctx context.Context, techID, jobID string) (*JobResult, error) {
	var closed *RouteEvent
	res, err := e.transitionJob(ctx, techID, jobID, models.JobCompleted, func(tech *models.Technician) error {
		if tech.HasPosition() {
			_, err := e.store.GetOpenRoute(ctx, jobID)
			if err != nil && !errors.Is(err, ErrRouteNotFound) {
				return err
			}
			if err == nil {
				now := e.now()
				route, err := e.closeRoute(ctx, tech, jobID, *tech.LastLat, *tech.LastLng, now)
				if err != nil {
					return err
				}
				closed = &RouteEvent{
					Success:      true,
					TechnicianID: techID,
					JobID:        jobID,
					Lat:          *tech.LastLat,
					Lng:          *tech.LastLng,
					Route:        route,
					Timestamp:    now,
				}
			}
		}
		if boundTo(tech, jobID) {
			applyState(tech, false, nil, models.StatusOnline)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	res.ClosedRoute = closed
	return res, nil
}

// transitionJob checks ownership and the workflow edge, applies mutate to the
// technician, then persists technician and job.
func (e *Engine) transitionJob(ctx context.Context, techID, jobID string, next models.JobStatus, mutate func(*models.Technician) error) (*JobResult, error) {
	if err := requireID("technician", techID); err != nil {
		return nil, err
	}
	if err := requireID("job", jobID); err != nil {
		return nil, err
	}
	unlock := e.locks.Lock(techID)
	defer unlock()

	job, err := e.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.TechID != techID {
		return nil, fmt.Errorf("%w: job %s is not assigned to technician %s", ErrValidation, jobID, techID)
	}
	if !job.Status.CanTransition(next) {
		return nil, fmt.Errorf("%w: job %s cannot move from %s to %s", ErrValidation, jobID, job.Status, next)
	}

	tech, err := e.store.GetTechnician(ctx, techID)
	if err != nil {
		return nil, err
	}
	if err := mutate(tech); err != nil {
		return nil, err
	}

	now := e.now()
	tech.LastPing = &now
	if err := e.store.SaveTechnicianState(ctx, tech); err != nil {
		return nil, err
	}
	updated, err := e.store.UpdateJobStatus(ctx, jobID, next, now)
	if err != nil {
		return nil, err
	}

	e.log.Info().
		Str("tech_id", techID).
		Str("job_id", jobID).
		Str("status", string(next)).
		Msg("📋 Job status changed")

	return &JobResult{
		Job: updated,
		Changed: JobStatusChanged{
			JobID:            jobID,
			TechnicianID:     techID,
			JobStatus:        next,
			TechnicianStatus: tech.Status,
			IsTracking:       tech.IsTracking,
			Timestamp:        now,
		},
	}, nil
}
