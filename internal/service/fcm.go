package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"medremind/internal/model"
)

// FCMClient wraps the Firebase Cloud Messaging client.
//
// The mobile app registers with FCM and reports its device token to this
// backend (device_tokens table). Delivery then goes token-by-token through
// Send; provider errors are returned unwrapped so the reclaimer can classify
// permanently dead tokens (UNREGISTERED, INVALID_ARGUMENT, NOT_FOUND).
//
// Credentials come from Firebase Console: Project Settings -> Service
// Accounts -> Generate New Private Key.
type FCMClient struct {
	client *messaging.Client
}

// NewFCMClient creates a new FCM client from environment credentials.
// The private key in .env carries literal "\n" sequences; the SDK expects
// real newlines in the PEM block.
func NewFCMClient(ctx context.Context, projectID, clientEmail, privateKey string) (*FCMClient, error) {
	privateKey = strings.ReplaceAll(privateKey, "\\n", "\n")

	credsJSON := fmt.Sprintf(`{
		"type": "service_account",
		"project_id": %q,
		"private_key": %q,
		"client_email": %q,
		"token_uri": "https://oauth2.googleapis.com/token"
	}`, projectID, privateKey, clientEmail)

	opt := option.WithCredentialsJSON([]byte(credsJSON))
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("get messaging client: %w", err)
	}

	log.Printf("[FCM] Initialized for project: %s", projectID)
	return &FCMClient{client: client}, nil
}

// Send delivers one message to one device token.
// Exactly one provider call, no retry; provider errors are returned as-is.
func (c *FCMClient) Send(ctx context.Context, token string, msg model.OutboundMessage) error {
	message := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: msg.Data,
		// Reminders should ring through battery-saving mode
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound: "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: "default",
				},
			},
		},
	}

	if _, err := c.client.Send(ctx, message); err != nil {
		return err
	}
	return nil
}
