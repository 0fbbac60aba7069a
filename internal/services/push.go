package services

import (
	"fmt"

	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"
)

// PushService delivers APNs alerts to users who are not connected over
// WebSocket.
type PushService struct {
	client *apns2.Client
	topic  string
}

// NewPushService creates a new push service using token-based APNs auth.
func NewPushService(keyFile, keyID, teamID, bundleID string, production bool) (*PushService, error) {
	authKey, err := token.AuthKeyFromFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load APNs auth key: %w", err)
	}

	t := &token.Token{
		AuthKey: authKey,
		KeyID:   keyID,
		TeamID:  teamID,
	}

	client := apns2.NewTokenClient(t)
	if production {
		client = client.Production()
	} else {
		client = client.Development()
	}

	return &PushService{
		client: client,
		topic:  bundleID,
	}, nil
}

// Send pushes an alert to a device.
func (s *PushService) Send(deviceToken, alert string) error {
	notification := &apns2.Notification{
		DeviceToken: deviceToken,
		Topic:       s.topic,
		Payload:     payload.NewPayload().Alert(alert).Sound("default"),
	}

	res, err := s.client.Push(notification)
	if err != nil {
		return fmt.Errorf("failed to push notification: %w", err)
	}
	if !res.Sent() {
		return fmt.Errorf("push rejected: %s", res.Reason)
	}
	return nil
}
