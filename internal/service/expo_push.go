package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"medremind/internal/model"
)

// ExpoPushClient sends push notifications via Expo's Push API.
//
// Expo Push is the provider used while the mobile app still runs inside
// Expo Go: no APNs/FCM configuration and no credentials required. The app
// reports an "ExponentPushToken[...]" token which we store like any other
// device token.
type ExpoPushClient struct {
	httpClient *http.Client
}

// ExpoPushMessage is the payload for Expo's Push API.
type ExpoPushMessage struct {
	To       []string          `json:"to"`
	Title    string            `json:"title,omitempty"`
	Body     string            `json:"body"`
	Data     map[string]string `json:"data,omitempty"`
	Sound    string            `json:"sound,omitempty"`
	Priority string            `json:"priority,omitempty"`
}

// ExpoPushResponse is the response from Expo's API.
type ExpoPushResponse struct {
	Data []ExpoPushTicket `json:"data"`
}

type ExpoPushTicket struct {
	Status  string `json:"status"` // "ok" or "error"
	ID      string `json:"id"`
	Message string `json:"message,omitempty"`
	Details struct {
		Error string `json:"error,omitempty"` // "DeviceNotRegistered", "MessageTooBig", ...
	} `json:"details,omitempty"`
}

// ExpoPushError is a per-ticket delivery failure reported by Expo.
// Code "DeviceNotRegistered" marks the destination as permanently invalid.
type ExpoPushError struct {
	Code    string
	Message string
}

func (e *ExpoPushError) Error() string {
	return fmt.Sprintf("expo push: %s (%s)", e.Message, e.Code)
}

// ExpoErrDeviceNotRegistered is Expo's signature for a dead push token.
const ExpoErrDeviceNotRegistered = "DeviceNotRegistered"

const expoPushURL = "https://exp.host/--/api/v2/push/send"

// NewExpoPushClient creates a new Expo Push client.
func NewExpoPushClient() *ExpoPushClient {
	return &ExpoPushClient{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Send delivers one message to one Expo push token.
// Ticket-level failures are returned as *ExpoPushError so the reclaimer can
// recognize DeviceNotRegistered.
func (c *ExpoPushClient) Send(ctx context.Context, token string, msg model.OutboundMessage) error {
	if !strings.HasPrefix(token, "ExponentPushToken[") && !strings.HasPrefix(token, "ExpoPushToken[") {
		return &ExpoPushError{Code: ExpoErrDeviceNotRegistered, Message: "not an Expo push token"}
	}

	payload, err := json.Marshal(ExpoPushMessage{
		To:       []string{token},
		Title:    msg.Title,
		Body:     msg.Body,
		Sound:    "default",
		Priority: "high",
		Data:     msg.Data,
	})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, expoPushURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("expo api error: status=%d body=%s", resp.StatusCode, string(respBody))
	}

	var pushResp ExpoPushResponse
	if err := json.Unmarshal(respBody, &pushResp); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}

	for _, ticket := range pushResp.Data {
		if ticket.Status != "ok" {
			return &ExpoPushError{Code: ticket.Details.Error, Message: ticket.Message}
		}
	}

	return nil
}
