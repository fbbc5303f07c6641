package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"techtrack-backend/internal/fanout"
	"techtrack-backend/internal/tracking"
)

// DefaultAdminTopic is the FCM topic administrator devices subscribe to
const DefaultAdminTopic = "admin-tracking"

// FCMService pushes tracking events to administrators who are not connected
// to the realtime channel. It implements fanout.Sink.
type FCMService struct {
	client *messaging.Client
	topic  string
	log    zerolog.Logger
}

// NewFCMService creates a new FCM service instance from a credentials file
func NewFCMService(ctx context.Context, credentialsFile, topic string, log zerolog.Logger) (*FCMService, error) {
	return newFCMService(ctx, option.WithCredentialsFile(credentialsFile), topic, log)
}

// NewFCMServiceFromBase64 creates a new FCM service instance from base64-encoded credentials
// This is useful for cloud deployments (Railway, Fly.io, Render) where you can't upload files easily
func NewFCMServiceFromBase64(ctx context.Context, credentialsBase64, topic string, log zerolog.Logger) (*FCMService, error) {
	credentialsJSON, err := base64.StdEncoding.DecodeString(credentialsBase64)
	if err != nil {
		return nil, fmt.Errorf("error decoding base64 credentials: %w", err)
	}
	return newFCMService(ctx, option.WithCredentialsJSON(credentialsJSON), topic, log)
}

func newFCMService(ctx context.Context, opt option.ClientOption, topic string, log zerolog.Logger) (*FCMService, error) {
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}

	if topic == "" {
		topic = DefaultAdminTopic
	}
	return &FCMService{
		client: client,
		topic:  topic,
		log:    log.With().Str("component", "fcm").Logger(),
	}, nil
}

func (s *FCMService) Name() string {
	return "fcm:" + s.topic
}

// Publish sends a topic notification for route and GPS events. Other event
// types are ignored.
func (s *FCMService) Publish(ctx context.Context, event fanout.Event) error {
	message, ok := TopicMessage(s.topic, event)
	if !ok {
		return nil
	}

	response, err := s.client.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("error sending FCM message: %w", err)
	}

	s.log.Debug().Str("type", event.Type).Str("message_id", response).Msg("✅ FCM notification sent successfully")
	return nil
}

// TopicMessage builds the notification for an administrator broadcast
func TopicMessage(topic string, event fanout.Event) (*messaging.Message, bool) {
	var title, body string
	data := map[string]string{"type": event.Type}

	switch e := event.Data.(type) {
	case *tracking.RouteEvent:
		data["technician_id"] = e.TechnicianID
		data["job_id"] = e.JobID
		data["lat"] = strconv.FormatFloat(e.Lat, 'f', -1, 64)
		data["lng"] = strconv.FormatFloat(e.Lng, 'f', -1, 64)
		if event.Type == "route_completed" {
			title = "Route Completed"
			body = fmt.Sprintf("Technician %s finished the route for job %s", e.TechnicianID, e.JobID)
		} else {
			title = "Route Started"
			body = fmt.Sprintf("Technician %s is on the way to job %s", e.TechnicianID, e.JobID)
		}
	case *tracking.GPSChanged:
		data["technician_id"] = e.TechnicianID
		data["enabled"] = strconv.FormatBool(e.Enabled)
		data["status"] = string(e.Status)
		state := "off"
		if e.Enabled {
			state = "on"
		}
		title = "GPS Status Changed"
		body = fmt.Sprintf("%s turned GPS %s", e.TechName, state)
	default:
		return nil, false
	}

	return &messaging.Message{
		Topic: topic,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					ContentAvailable: true,
					Sound:            "default",
				},
			},
		},
	}, true
}
