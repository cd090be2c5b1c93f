package pushclient

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// =============================================================================
// MOCK PROVIDER
// =============================================================================

type mockProvider struct {
	permissionFn func(ctx context.Context) (bool, error)
	registerFn   func(onToken func(string), onError func(error))

	registerCount   int32
	unregisterCount int32

	mu         sync.Mutex
	subscriber func(ForegroundMessage)
}

func (m *mockProvider) RequestPermission(ctx context.Context) (bool, error) {
	if m.permissionFn != nil {
		return m.permissionFn(ctx)
	}
	return true, nil
}

func (m *mockProvider) Register(onToken func(string), onError func(error)) {
	atomic.AddInt32(&m.registerCount, 1)
	if m.registerFn != nil {
		m.registerFn(onToken, onError)
	}
}

func (m *mockProvider) Unregister(ctx context.Context) error {
	atomic.AddInt32(&m.unregisterCount, 1)
	return nil
}

func (m *mockProvider) Subscribe(handler func(ForegroundMessage)) func() {
	m.mu.Lock()
	m.subscriber = handler
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		m.subscriber = nil
		m.mu.Unlock()
	}
}

func (m *mockProvider) emit(msg ForegroundMessage) {
	m.mu.Lock()
	h := m.subscriber
	m.mu.Unlock()
	if h != nil {
		h(msg)
	}
}

func newTestManager(t *testing.T, provider *mockProvider) *Manager {
	t.Helper()
	store := NewTokenStore(t.TempDir())
	return NewManager(provider, store, nil, "expo")
}

// =============================================================================
// ACQUIRE TESTS
// =============================================================================

func TestManager_Acquire_ReturnsFreshToken(t *testing.T) {
	provider := &mockProvider{
		registerFn: func(onToken func(string), onError func(error)) {
			onToken("tok-fresh")
		},
	}
	m := newTestManager(t, provider)

	token, err := m.Acquire(context.Background(), false)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if token != "tok-fresh" {
		t.Errorf("expected tok-fresh, got %q", token)
	}

	// The token is now cached both in memory and on disk.
	if got := m.GetCachedToken(); got != "tok-fresh" {
		t.Errorf("expected cached token tok-fresh, got %q", got)
	}
	cached, err := m.store.Load()
	if err != nil || cached == nil || cached.Token != "tok-fresh" {
		t.Errorf("expected durable cache tok-fresh, got %+v err=%v", cached, err)
	}
	if cached.InstallationID == "" {
		t.Error("expected an installation ID on the durable cache")
	}
}

func TestManager_Acquire_SingleFlight(t *testing.T) {
	registerStarted := make(chan struct{})
	tokenCh := make(chan func(string), 1)

	provider := &mockProvider{
		registerFn: func(onToken func(string), onError func(error)) {
			tokenCh <- onToken
			close(registerStarted)
		},
	}
	m := newTestManager(t, provider)

	type result struct {
		token string
		err   error
	}
	results := make(chan result, 2)

	go func() {
		tok, err := m.Acquire(context.Background(), false)
		results <- result{tok, err}
	}()

	// Wait for the first registration to be in flight, then join it
	// with a second caller.
	<-registerStarted
	go func() {
		tok, err := m.Acquire(context.Background(), false)
		results <- result{tok, err}
	}()
	time.Sleep(50 * time.Millisecond)

	(<-tokenCh)("tok-shared")

	for i := 0; i < 2; i++ {
		r := <-results
		if r.err != nil {
			t.Fatalf("caller %d: unexpected error %v", i, r.err)
		}
		if r.token != "tok-shared" {
			t.Errorf("caller %d: expected tok-shared, got %q", i, r.token)
		}
	}

	if n := atomic.LoadInt32(&provider.registerCount); n != 1 {
		t.Errorf("expected exactly 1 registration, got %d", n)
	}
}

func TestManager_Acquire_PermissionDenied(t *testing.T) {
	provider := &mockProvider{
		permissionFn: func(ctx context.Context) (bool, error) {
			return false, nil
		},
	}
	m := newTestManager(t, provider)

	token, err := m.Acquire(context.Background(), false)
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if token != "" {
		t.Errorf("expected empty token, got %q", token)
	}

	if n := atomic.LoadInt32(&provider.registerCount); n != 0 {
		t.Errorf("expected no registration after denial, got %d", n)
	}
}

func TestManager_Acquire_ProviderError(t *testing.T) {
	provider := &mockProvider{
		registerFn: func(onToken func(string), onError func(error)) {
			onError(errors.New("fcm unreachable"))
		},
	}
	m := newTestManager(t, provider)

	_, err := m.Acquire(context.Background(), false)
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestManager_Acquire_TimeoutFallsBackToCache(t *testing.T) {
	registerStarted := make(chan struct{})
	provider := &mockProvider{
		registerFn: func(onToken func(string), onError func(error)) {
			close(registerStarted)
			// Callback never arrives.
		},
	}
	m := newTestManager(t, provider)
	m.timeout = 100 * time.Millisecond

	type result struct {
		token string
		err   error
	}
	results := make(chan result, 1)
	go func() {
		tok, err := m.Acquire(context.Background(), false)
		results <- result{tok, err}
	}()

	// A token from an earlier session lands on disk while the
	// registration is still pending; the timeout falls back to it.
	<-registerStarted
	if err := m.store.Save(&CachedToken{InstallationID: "install-1", Token: "tok-cached", UpdatedAt: time.Now()}); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	r := <-results
	if r.err != nil {
		t.Fatalf("expected cached fallback, got error %v", r.err)
	}
	if r.token != "tok-cached" {
		t.Errorf("expected tok-cached, got %q", r.token)
	}
}

func TestManager_Acquire_TimeoutWithoutCache(t *testing.T) {
	provider := &mockProvider{}
	m := newTestManager(t, provider)
	m.timeout = 50 * time.Millisecond

	token, err := m.Acquire(context.Background(), false)
	if !errors.Is(err, ErrRegistrationTimeout) {
		t.Fatalf("expected ErrRegistrationTimeout, got %v", err)
	}
	if token != "" {
		t.Errorf("expected empty token, got %q", token)
	}
}

func TestManager_Acquire_LateCallbackAfterTimeoutIsIgnored(t *testing.T) {
	tokenCh := make(chan func(string), 1)
	provider := &mockProvider{
		registerFn: func(onToken func(string), onError func(error)) {
			tokenCh <- onToken
		},
	}
	m := newTestManager(t, provider)
	m.timeout = 50 * time.Millisecond

	_, err := m.Acquire(context.Background(), false)
	if !errors.Is(err, ErrRegistrationTimeout) {
		t.Fatalf("expected ErrRegistrationTimeout, got %v", err)
	}

	// The registration already settled on timeout; a late token must
	// not resurrect it into the caches.
	(<-tokenCh)("tok-late")
	time.Sleep(20 * time.Millisecond)

	if got := m.GetCachedToken(); got != "" {
		t.Errorf("late callback leaked into cache: %q", got)
	}
}

func TestManager_Acquire_ForceRefreshNeverReturnsOldToken(t *testing.T) {
	var tokens = []string{"tok-old", "tok-new"}
	var next int32
	provider := &mockProvider{
		registerFn: func(onToken func(string), onError func(error)) {
			i := atomic.AddInt32(&next, 1) - 1
			onToken(tokens[i])
		},
	}
	m := newTestManager(t, provider)

	first, err := m.Acquire(context.Background(), false)
	if err != nil || first != "tok-old" {
		t.Fatalf("first acquire: token=%q err=%v", first, err)
	}

	second, err := m.Acquire(context.Background(), true)
	if err != nil {
		t.Fatalf("forced refresh: %v", err)
	}
	if second != "tok-new" {
		t.Errorf("forced refresh returned stale token %q", second)
	}

	if n := atomic.LoadInt32(&provider.unregisterCount); n != 1 {
		t.Errorf("expected 1 unregister before re-register, got %d", n)
	}

	// The old token is unreachable everywhere.
	if got := m.GetCachedToken(); got != "tok-new" {
		t.Errorf("expected tok-new in cache, got %q", got)
	}
	cached, _ := m.store.Load()
	if cached == nil || cached.Token != "tok-new" {
		t.Errorf("expected tok-new in durable cache, got %+v", cached)
	}
}

func TestManager_Acquire_PrefersDurableCache(t *testing.T) {
	provider := &mockProvider{}
	m := newTestManager(t, provider)

	if err := m.store.Save(&CachedToken{InstallationID: "i", Token: "tok-disk"}); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	token, err := m.Acquire(context.Background(), false)
	if err != nil {
		t.Fatalf("expected cached token, got error %v", err)
	}
	if token != "tok-disk" {
		t.Errorf("expected tok-disk, got %q", token)
	}
	if n := atomic.LoadInt32(&provider.registerCount); n != 0 {
		t.Errorf("expected no registration when cache is warm, got %d", n)
	}
}

// =============================================================================
// FOREGROUND MESSAGE TESTS
// =============================================================================

func TestManager_OnForegroundMessage(t *testing.T) {
	provider := &mockProvider{}
	m := newTestManager(t, provider)

	var got []ForegroundMessage
	var mu sync.Mutex
	unsubscribe := m.OnForegroundMessage(func(msg ForegroundMessage) {
		mu.Lock()
		got = append(got, msg)
		mu.Unlock()
	})

	provider.emit(ForegroundMessage{Title: "Medication reminder", Body: "Time to take aspirin."})

	mu.Lock()
	n := len(got)
	mu.Unlock()
	if n != 1 {
		t.Fatalf("expected 1 message, got %d", n)
	}

	unsubscribe()
	provider.emit(ForegroundMessage{Title: "after unsubscribe"})

	mu.Lock()
	n = len(got)
	mu.Unlock()
	if n != 1 {
		t.Errorf("expected no delivery after unsubscribe, got %d", n)
	}
}
