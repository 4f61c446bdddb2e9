package notify

import (
	"context"
	"fmt"
	"strconv"

	"github.com/2beens/gymcoach/internal/workout"

	"github.com/gen2brain/beeep"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/fcm/v1"
	"google.golang.org/api/option"
)

// Sender delivers an alert to the user.
type Sender interface {
	Send(ctx context.Context, alert workout.Alert) error
}

type deviceTokens interface {
	Token(ctx context.Context, userID string) (string, error)
}

// LogSender only logs alerts, used when push delivery is disabled.
type LogSender struct{}

func NewLogSender() *LogSender {
	return &LogSender{}
}

func (s *LogSender) Send(_ context.Context, alert workout.Alert) error {
	log.Infof("alert for user [%s], session [%s]: %s - %s", alert.UserID, alert.SessionID, alert.Title, alert.Body)
	return nil
}

// FCMSender pushes alerts through Firebase Cloud Messaging (HTTP v1 API).
type FCMSender struct {
	parent   string
	messages *fcm.ProjectsMessagesService
	devices  deviceTokens
}

func NewFCMSender(ctx context.Context, projectID string, credentialsJson []byte, devices deviceTokens) (*FCMSender, error) {
	return NewFCMSenderWithOptions(ctx, projectID, devices, option.WithCredentialsJSON(credentialsJson))
}

func NewFCMSenderWithOptions(ctx context.Context, projectID string, devices deviceTokens, opts ...option.ClientOption) (*FCMSender, error) {
	if projectID == "" {
		return nil, fmt.Errorf("fcm project id not set")
	}

	// https://github.com/googleapis/google-api-go-client/blob/main/fcm/v1/fcm-gen.go
	service, err := fcm.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create fcm client: %w", err)
	}

	return &FCMSender{
		parent:   "projects/" + projectID,
		messages: fcm.NewProjectsMessagesService(service),
		devices:  devices,
	}, nil
}

func (s *FCMSender) Send(ctx context.Context, alert workout.Alert) error {
	token, err := s.devices.Token(ctx, alert.UserID)
	if err != nil {
		return err
	}

	msg := &fcm.SendMessageRequest{
		Message: &fcm.Message{
			Token: token,
			Notification: &fcm.Notification{
				Title: alert.Title,
				Body:  alert.Body,
			},
			Data: map[string]string{
				"kind":         "rest_finished",
				"sessionId":    alert.SessionID,
				"exerciseId":   alert.ExerciseID,
				"nextSetIndex": strconv.Itoa(alert.NextSetIndex),
			},
			Android: &fcm.AndroidConfig{
				Priority: "HIGH",
			},
		},
	}

	sent, err := s.messages.Send(s.parent, msg).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("fcm send: %w", err)
	}
	log.Tracef("fcm message sent: %s", sent.Name)

	return nil
}

// DesktopSender shows alerts as desktop notifications of the machine running the
// service. Meant for local development only.
type DesktopSender struct {
	notify func(title, message string, icon any) error
}

func NewDesktopSender() *DesktopSender {
	return &DesktopSender{
		notify: beeep.Notify,
	}
}

func (s *DesktopSender) Send(_ context.Context, alert workout.Alert) error {
	if err := s.notify(alert.Title, alert.Body, ""); err != nil {
		return fmt.Errorf("desktop notification: %w", err)
	}
	return nil
}
