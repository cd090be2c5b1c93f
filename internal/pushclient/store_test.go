package pushclient

import (
	"testing"
	"time"
)

func TestTokenStore_LoadMissingReturnsNil(t *testing.T) {
	store := NewTokenStore(t.TempDir())

	cached, err := store.Load()
	if err != nil {
		t.Fatalf("expected no error for missing cache, got %v", err)
	}
	if cached != nil {
		t.Errorf("expected nil cache, got %+v", cached)
	}
}

func TestTokenStore_SaveLoadInvalidate(t *testing.T) {
	store := NewTokenStore(t.TempDir())

	in := &CachedToken{
		InstallationID: "install-1",
		Token:          "tok-1",
		UpdatedAt:      time.Now().Truncate(time.Second),
	}
	if err := store.Save(in); err != nil {
		t.Fatalf("save: %v", err)
	}

	out, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if out == nil || out.Token != in.Token || out.InstallationID != in.InstallationID {
		t.Errorf("roundtrip mismatch: %+v", out)
	}

	if err := store.Invalidate(); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if err := store.Invalidate(); err != nil {
		t.Fatalf("second invalidate should be a no-op, got %v", err)
	}

	out, err = store.Load()
	if err != nil || out != nil {
		t.Errorf("expected empty store after invalidate, got %+v err=%v", out, err)
	}
}
