package pushclient

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrPermissionDenied means the user declined notification
	// permission. Terminal for the session, the manager does not retry.
	ErrPermissionDenied = errors.New("notification permission denied")

	// ErrProviderUnavailable means the registration service failed.
	// Transient, a later Acquire may succeed.
	ErrProviderUnavailable = errors.New("push provider unavailable")

	// ErrRegistrationTimeout means the registration callback did not
	// arrive in time. The durably cached token, if any, is returned
	// instead.
	ErrRegistrationTimeout = errors.New("push registration timed out")
)

const (
	// DefaultRegistrationTimeout bounds the wait on the registration
	// callback.
	DefaultRegistrationTimeout = 8 * time.Second

	// refreshSettleDelay gives the provider time to drop the old
	// registration before a forced re-register.
	refreshSettleDelay = 500 * time.Millisecond
)

// registration is one in-flight token registration shared by every
// caller that joined it. It settles exactly once: the first of
// token-received, registration-error, or timeout wins and late events
// are ignored.
type registration struct {
	once  sync.Once
	done  chan struct{}
	token string
	err   error
}

func newRegistration() *registration {
	return &registration{done: make(chan struct{})}
}

func (r *registration) settle(token string, err error) {
	r.once.Do(func() {
		r.token = token
		r.err = err
		close(r.done)
	})
}

// Manager owns the device token lifecycle for one installation: it
// acquires a token from the Provider, caches it in memory and on disk,
// and mirrors it to the recipient's remote record. Concurrent Acquire
// calls coalesce onto a single in-flight registration.
type Manager struct {
	provider Provider
	store    *TokenStore
	backend  TokenSaver // can be nil, remote save is then skipped
	platform string
	timeout  time.Duration

	mu       sync.Mutex
	memToken string
	inflight *registration

	handlersMu    sync.Mutex
	handlers      map[int64]func(ForegroundMessage)
	nextHandlerID int64
	providerUnsub func()
}

// NewManager creates a Manager. platform tags saved tokens, e.g. "expo".
func NewManager(provider Provider, store *TokenStore, backend TokenSaver, platform string) *Manager {
	return &Manager{
		provider: provider,
		store:    store,
		backend:  backend,
		platform: platform,
		timeout:  DefaultRegistrationTimeout,
		handlers: make(map[int64]func(ForegroundMessage)),
	}
}

// Acquire returns the installation's push token, registering one if
// needed. An empty token with a nil error never occurs; on failure the
// token is empty and the error says why.
//
// Without forceRefresh it prefers the in-memory token, then the durable
// cache, then a fresh registration. With forceRefresh it unregisters,
// purges both caches, and re-registers, so the caller never gets a
// token that predates the refresh.
func (m *Manager) Acquire(ctx context.Context, forceRefresh bool) (string, error) {
	if forceRefresh {
		m.reset(ctx)
		time.Sleep(refreshSettleDelay)
	}

	m.mu.Lock()

	if !forceRefresh {
		if m.memToken != "" {
			token := m.memToken
			m.mu.Unlock()
			return token, nil
		}

		if m.inflight != nil {
			reg := m.inflight
			m.mu.Unlock()
			return m.await(ctx, reg)
		}

		if cached, err := m.store.Load(); err == nil && cached != nil && cached.Token != "" {
			m.memToken = cached.Token
			m.mu.Unlock()
			return cached.Token, nil
		}
	}

	reg := newRegistration()
	m.inflight = reg
	m.mu.Unlock()

	go m.register(ctx, reg)

	return m.finish(ctx, reg)
}

// register drives one registration attempt to settlement.
func (m *Manager) register(ctx context.Context, reg *registration) {
	granted, err := m.provider.RequestPermission(ctx)
	if err != nil {
		reg.settle("", fmt.Errorf("%w: %v", ErrProviderUnavailable, err))
		return
	}
	if !granted {
		reg.settle("", ErrPermissionDenied)
		return
	}

	timer := time.AfterFunc(m.timeout, func() {
		reg.settle("", ErrRegistrationTimeout)
	})

	m.provider.Register(
		func(token string) {
			timer.Stop()
			reg.settle(token, nil)
		},
		func(err error) {
			timer.Stop()
			reg.settle("", fmt.Errorf("%w: %v", ErrProviderUnavailable, err))
		},
	)
}

// finish waits for the registration the caller started and applies its
// side effects. Side effects run only while this registration is still
// current; a forced refresh that started meanwhile detaches it.
func (m *Manager) finish(ctx context.Context, reg *registration) (string, error) {
	select {
	case <-reg.done:
	case <-ctx.Done():
		return "", ctx.Err()
	}

	m.mu.Lock()
	current := m.inflight == reg
	if current {
		m.inflight = nil
	}
	m.mu.Unlock()

	if reg.err == nil {
		if current {
			m.persist(ctx, reg.token)
		}
		return reg.token, nil
	}

	return m.resolveFailure(reg.err)
}

// await joins an in-flight registration started by another caller.
func (m *Manager) await(ctx context.Context, reg *registration) (string, error) {
	select {
	case <-reg.done:
	case <-ctx.Done():
		return "", ctx.Err()
	}

	if reg.err == nil {
		return reg.token, nil
	}
	return m.resolveFailure(reg.err)
}

// resolveFailure applies the timeout fallback: the last durably cached
// token, when one exists, stands in for the token that never arrived.
func (m *Manager) resolveFailure(regErr error) (string, error) {
	if errors.Is(regErr, ErrRegistrationTimeout) {
		if cached, err := m.store.Load(); err == nil && cached != nil && cached.Token != "" {
			log.Printf("[PushClient] Registration timed out, using cached token")
			return cached.Token, nil
		}
	}
	return "", regErr
}

// reset unregisters and purges both token caches. Any in-flight
// registration is detached so its late outcome cannot persist.
func (m *Manager) reset(ctx context.Context) {
	m.mu.Lock()
	m.inflight = nil
	m.memToken = ""
	m.mu.Unlock()

	if err := m.provider.Unregister(ctx); err != nil {
		log.Printf("[PushClient] Unregister failed: %v", err)
	}
	if err := m.store.Invalidate(); err != nil {
		log.Printf("[PushClient] Cache invalidate failed: %v", err)
	}
}

// persist updates the in-memory cache, the durable cache, and the
// recipient's remote record. Cache failures are logged, not fatal, the
// token is already usable.
func (m *Manager) persist(ctx context.Context, token string) {
	m.mu.Lock()
	m.memToken = token
	m.mu.Unlock()

	cached, err := m.store.Load()
	if err != nil || cached == nil {
		cached = &CachedToken{InstallationID: uuid.NewString()}
	}
	cached.Token = token
	cached.UpdatedAt = time.Now()
	if err := m.store.Save(cached); err != nil {
		log.Printf("[PushClient] Durable cache save failed: %v", err)
	}

	if m.backend != nil {
		if err := m.backend.SaveToken(ctx, token, m.platform); err != nil {
			log.Printf("[PushClient] Remote token save failed: %v", err)
		}
	}
}

// GetCachedToken returns the current token without triggering a
// registration: the in-memory value, else the durable cache, else "".
func (m *Manager) GetCachedToken() string {
	m.mu.Lock()
	if m.memToken != "" {
		token := m.memToken
		m.mu.Unlock()
		return token
	}
	m.mu.Unlock()

	if cached, err := m.store.Load(); err == nil && cached != nil {
		return cached.Token
	}
	return ""
}

// SaveToken pushes an already-known token to both caches and the remote
// record, used when the platform hands the app a token out of band.
func (m *Manager) SaveToken(ctx context.Context, token string) {
	m.persist(ctx, token)
}

// OnForegroundMessage registers a handler for pushes received while the
// app is foregrounded and returns a function that removes it. The
// provider subscription is created on the first handler and dropped
// with the last one.
func (m *Manager) OnForegroundMessage(handler func(ForegroundMessage)) (unsubscribe func()) {
	m.handlersMu.Lock()
	defer m.handlersMu.Unlock()

	if m.providerUnsub == nil {
		m.providerUnsub = m.provider.Subscribe(m.dispatchForeground)
	}

	m.nextHandlerID++
	id := m.nextHandlerID
	m.handlers[id] = handler

	return func() {
		m.handlersMu.Lock()
		defer m.handlersMu.Unlock()
		delete(m.handlers, id)
		if len(m.handlers) == 0 && m.providerUnsub != nil {
			m.providerUnsub()
			m.providerUnsub = nil
		}
	}
}

func (m *Manager) dispatchForeground(msg ForegroundMessage) {
	m.handlersMu.Lock()
	handlers := make([]func(ForegroundMessage), 0, len(m.handlers))
	for _, h := range m.handlers {
		handlers = append(handlers, h)
	}
	m.handlersMu.Unlock()

	for _, h := range handlers {
		h(msg)
	}
}
