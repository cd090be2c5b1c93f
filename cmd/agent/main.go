// The agent keeps a device's push token registered with the reminder
// server. The platform shell writes the provider token to a well-known
// file; the agent acquires it through the lifecycle manager, mirrors it
// to the server, and caches it durably for offline starts.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"medremind/internal/pushclient"
)

func main() {
	refresh := flag.Bool("refresh", false, "drop the current registration and acquire a fresh token")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading it, relying on environment variables")
	}

	backendURL := envOr("BACKEND_URL", "http://localhost:8080")
	authToken := os.Getenv("AUTH_TOKEN")
	if authToken == "" {
		log.Fatal("AUTH_TOKEN is required")
	}
	tokenFile := envOr("TOKEN_FILE", "/var/run/push/provider_token")
	cacheDir := envOr("CACHE_DIR", defaultCacheDir())
	platform := envOr("PLATFORM", "expo")

	provider := &fileProvider{path: tokenFile}
	store := pushclient.NewTokenStore(cacheDir)
	backend := pushclient.NewHTTPBackend(backendURL, authToken)
	manager := pushclient.NewManager(provider, store, backend, platform)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	token, err := manager.Acquire(ctx, *refresh)
	if err != nil {
		log.Fatalf("Token acquisition failed: %v", err)
	}

	fmt.Println(token)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".medremind"
	}
	return filepath.Join(home, ".medremind")
}

// fileProvider reads the provider token from a file maintained by the
// platform shell. Registration polls until the file shows up.
type fileProvider struct {
	path string
}

func (p *fileProvider) RequestPermission(ctx context.Context) (bool, error) {
	// Permission prompts are handled by the platform shell before it
	// writes the token file.
	return true, nil
}

func (p *fileProvider) Register(onToken func(string), onError func(error)) {
	go func() {
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()

		for range ticker.C {
			data, err := os.ReadFile(p.path)
			if err != nil {
				if os.IsNotExist(err) {
					continue
				}
				onError(err)
				return
			}
			token := strings.TrimSpace(string(data))
			if token != "" {
				onToken(token)
				return
			}
		}
	}()
}

func (p *fileProvider) Unregister(ctx context.Context) error {
	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (p *fileProvider) Subscribe(handler func(pushclient.ForegroundMessage)) func() {
	// Headless agent, no foreground surface.
	return func() {}
}
