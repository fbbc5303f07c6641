package services

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techtrack-backend/internal/fanout"
	"techtrack-backend/internal/models"
	"techtrack-backend/internal/tracking"
)

func TestTopicMessage_Route(t *testing.T) {
	event := fanout.Event{
		Type: "route_completed",
		Data: &tracking.RouteEvent{TechnicianID: "t1", JobID: "j1", Lat: 32.5, Lng: -96.25, Timestamp: time.Now()},
	}

	msg, ok := TopicMessage("admins", event)
	require.True(t, ok)
	assert.Equal(t, "admins", msg.Topic)
	assert.Equal(t, "Route Completed", msg.Notification.Title)
	assert.Contains(t, msg.Notification.Body, "j1")
	assert.Equal(t, map[string]string{
		"type":          "route_completed",
		"technician_id": "t1",
		"job_id":        "j1",
		"lat":           "32.5",
		"lng":           "-96.25",
	}, msg.Data)
	assert.Equal(t, "high", msg.Android.Priority)

	event.Type = "route_started"
	msg, ok = TopicMessage("admins", event)
	require.True(t, ok)
	assert.Equal(t, "Route Started", msg.Notification.Title)
}

func TestTopicMessage_GPS(t *testing.T) {
	msg, ok := TopicMessage("admins", fanout.Event{
		Type: "tech_gps_changed",
		Data: &tracking.GPSChanged{TechnicianID: "t1", TechName: "Ana", Enabled: false, Status: models.StatusOffline},
	})
	require.True(t, ok)
	assert.Equal(t, "Ana turned GPS off", msg.Notification.Body)
	assert.Equal(t, "false", msg.Data["enabled"])
	assert.Equal(t, "OFFLINE", msg.Data["status"])
}

func TestTopicMessage_IgnoresOtherEvents(t *testing.T) {
	_, ok := TopicMessage("admins", fanout.Event{Type: "location_update", Data: &tracking.LocationUpdate{}})
	assert.False(t, ok)

	// values instead of pointers are not notification payloads
	_, ok = TopicMessage("admins", fanout.Event{Type: "route_started", Data: tracking.RouteEvent{}})
	assert.False(t, ok)
}

func TestNewFCMServiceFromBase64_BadInput(t *testing.T) {
	_, err := NewFCMServiceFromBase64(context.Background(), "%%% not base64 %%%", "", zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base64")
}
