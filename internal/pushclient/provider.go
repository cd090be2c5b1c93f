package pushclient

import "context"

// ForegroundMessage is a push notification received while the app is in
// the foreground, surfaced to in-app handlers instead of the system tray.
type ForegroundMessage struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data"`
}

// Provider abstracts the platform push registration service. The
// registration itself is callback-based: Register returns immediately
// and the provider later invokes exactly one of the two callbacks.
type Provider interface {
	// RequestPermission asks the platform for notification permission.
	// Returns false when the user denied it.
	RequestPermission(ctx context.Context) (bool, error)

	// Register starts a token registration. The provider calls onToken
	// with the new token on success, or onError on failure. Either
	// callback may arrive on any goroutine, at any later time.
	Register(onToken func(token string), onError func(err error))

	// Unregister drops the current registration so a later Register
	// yields a fresh token.
	Unregister(ctx context.Context) error

	// Subscribe registers a handler for foreground messages and returns
	// a function that removes it.
	Subscribe(handler func(ForegroundMessage)) (unsubscribe func())
}
