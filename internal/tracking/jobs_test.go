package tracking_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techtrack-backend/internal/models"
	"techtrack-backend/internal/tracking"
)

func TestAssignJob(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	job, err := engine.AssignJob(ctx, "admin-1", models.AssignJobRequest{
		Title:      "Replace filter",
		TechID:     otherID,
		AddressLat: ptr(32.78),
		AddressLng: ptr(-96.8),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, models.JobAssigned, job.Status)
	require.NotNil(t, job.AdminID)
	assert.Equal(t, "admin-1", *job.AdminID)

	stored, err := store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "Replace filter", stored.Title)
	assert.Equal(t, otherID, stored.TechID)

	_, err = engine.AssignJob(ctx, "admin-1", models.AssignJobRequest{Title: "x", TechID: "nobody"})
	assert.ErrorIs(t, err, tracking.ErrNotFound)

	_, err = engine.AssignJob(ctx, "admin-1", models.AssignJobRequest{Title: "x", TechID: techID, AddressLat: ptr(100), AddressLng: ptr(0)})
	assert.ErrorIs(t, err, tracking.ErrValidation)
}

func TestJobWorkflow(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	accepted, err := engine.AcceptJob(ctx, techID, jobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobAccepted, accepted.Job.Status)
	assert.NotNil(t, accepted.Job.AcceptedAt)
	assert.False(t, accepted.Changed.IsTracking)

	tech, err := store.GetTechnician(ctx, techID)
	require.NoError(t, err)
	assert.False(t, tech.IsTracking)
	assert.NotNil(t, tech.LastPing)

	_, err = engine.CompleteJob(ctx, techID, jobID)
	assert.ErrorIs(t, err, tracking.ErrValidation)

	started, err := engine.StartJob(ctx, techID, jobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobInProgress, started.Job.Status)
	assert.Equal(t, models.StatusOnWay, started.Changed.TechnicianStatus)
	assert.True(t, started.Changed.IsTracking)

	tech, err = store.GetTechnician(ctx, techID)
	require.NoError(t, err)
	assert.True(t, tech.IsTracking)
	require.NotNil(t, tech.CurrentJobID)
	assert.Equal(t, jobID, *tech.CurrentJobID)

	completed, err := engine.CompleteJob(ctx, techID, jobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobCompleted, completed.Job.Status)
	assert.NotNil(t, completed.Job.CompletedAt)
	assert.Nil(t, completed.ClosedRoute)
	assert.Equal(t, models.StatusOnline, completed.Changed.TechnicianStatus)
	assert.False(t, completed.Changed.IsTracking)

	tech, err = store.GetTechnician(ctx, techID)
	require.NoError(t, err)
	assert.False(t, tech.IsTracking)
	assert.Equal(t, models.StatusOnline, tech.Status)
	assert.Nil(t, tech.CurrentJobID)

	_, err = engine.StartJob(ctx, techID, jobID)
	assert.ErrorIs(t, err, tracking.ErrValidation)
}

func TestJobWorkflow_Ownership(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.AcceptJob(ctx, otherID, jobID)
	assert.ErrorIs(t, err, tracking.ErrValidation)

	_, err = engine.StartJob(ctx, techID, "missing")
	assert.ErrorIs(t, err, tracking.ErrNotFound)

	_, err = engine.StartJob(ctx, "", jobID)
	assert.ErrorIs(t, err, tracking.ErrValidation)
}

func TestCompleteJob_ClosesOpenRoute(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.StartRoute(ctx, techID, jobID, 10, 20)
	require.NoError(t, err)
	_, err = engine.StartJob(ctx, techID, jobID)
	require.NoError(t, err)
	_, err = engine.AcceptLocationUpdate(ctx, techID, 11, 21, "")
	require.NoError(t, err)

	res, err := engine.CompleteJob(ctx, techID, jobID)
	require.NoError(t, err)
	require.NotNil(t, res.ClosedRoute)
	assert.Equal(t, 11.0, res.ClosedRoute.Lat)
	assert.Equal(t, 21.0, res.ClosedRoute.Lng)
	require.NotNil(t, res.ClosedRoute.Route)
	assert.False(t, res.ClosedRoute.Route.IsOpen())

	_, err = store.GetOpenRoute(ctx, jobID)
	assert.ErrorIs(t, err, tracking.ErrRouteNotFound)

	samples, err := store.JobLocations(ctx, jobID)
	require.NoError(t, err)
	require.Len(t, samples, 3)
	assert.True(t, samples[0].IsStartPoint)
	assert.True(t, samples[2].IsEndPoint)

	tech, err := store.GetTechnician(ctx, techID)
	require.NoError(t, err)
	assert.False(t, tech.IsTracking)
	assert.Equal(t, models.StatusOnline, tech.Status)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, models.JobAssigned.CanTransition(models.JobAccepted))
	assert.True(t, models.JobAssigned.CanTransition(models.JobInProgress))
	assert.True(t, models.JobAccepted.CanTransition(models.JobInProgress))
	assert.True(t, models.JobInProgress.CanTransition(models.JobCompleted))

	assert.False(t, models.JobAccepted.CanTransition(models.JobAccepted))
	assert.False(t, models.JobAssigned.CanTransition(models.JobCompleted))
	assert.False(t, models.JobCompleted.CanTransition(models.JobInProgress))
	assert.False(t, models.JobInProgress.CanTransition(models.JobAssigned))
}
