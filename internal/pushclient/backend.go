package pushclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// TokenSaver pushes the acquired token to the recipient's remote record
// so the server can address this installation.
type TokenSaver interface {
	SaveToken(ctx context.Context, token, platform string) error
	DeleteToken(ctx context.Context) error
}

// HTTPBackend saves tokens against the reminder server's device API.
type HTTPBackend struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
}

// NewHTTPBackend creates a backend client. authToken is the bearer
// token identifying the recipient.
func NewHTTPBackend(baseURL, authToken string) *HTTPBackend {
	return &HTTPBackend{
		baseURL:   baseURL,
		authToken: authToken,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SaveToken registers the token for the authenticated recipient.
func (b *HTTPBackend) SaveToken(ctx context.Context, token, platform string) error {
	body, err := json.Marshal(map[string]string{
		"token":    token,
		"platform": platform,
	})
	if err != nil {
		return fmt.Errorf("marshal token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/api/devices/token", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.authToken)

	return b.do(req)
}

// DeleteToken removes the recipient's stored token, used at logout.
func (b *HTTPBackend) DeleteToken(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, b.baseURL+"/api/devices/token", nil)
	if err != nil {
		return fmt.Errorf("build delete request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+b.authToken)

	return b.do(req)
}

func (b *HTTPBackend) do(req *http.Request) error {
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call device API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("device API returned %d: %s", resp.StatusCode, data)
	}
	return nil
}
