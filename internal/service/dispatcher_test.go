package service

import (
	"context"
	"errors"
	"testing"

	"medremind/internal/model"
)

// =============================================================================
// MOCKS
// =============================================================================

type mockSender struct {
	sendFn func(ctx context.Context, token string, msg model.OutboundMessage) error

	sendCalls []string // tokens passed to Send, in order
}

func (m *mockSender) Send(ctx context.Context, token string, msg model.OutboundMessage) error {
	m.sendCalls = append(m.sendCalls, token)
	if m.sendFn != nil {
		return m.sendFn(ctx, token, msg)
	}
	return nil
}

type mockLedger struct {
	appendFn func(ctx context.Context, rec *model.DeliveryRecord) (int64, error)

	records []model.DeliveryRecord
}

func (m *mockLedger) Append(ctx context.Context, rec *model.DeliveryRecord) (int64, error) {
	m.records = append(m.records, *rec)
	if m.appendFn != nil {
		return m.appendFn(ctx, rec)
	}
	return int64(len(m.records)), nil
}

func (m *mockLedger) ListByOwner(ctx context.Context, ownerID int64, limit int) ([]model.DeliveryRecord, error) {
	return m.records, nil
}

func (m *mockLedger) MarkRead(ctx context.Context, ownerID, recordID int64) error {
	return nil
}

func (m *mockLedger) MarkAllRead(ctx context.Context, ownerID int64) (int64, error) {
	return 0, nil
}

func (m *mockLedger) UnreadCount(ctx context.Context, ownerID int64) (int, error) {
	return 0, nil
}

type mockTokenRepo struct {
	getByOwnerFn func(ctx context.Context, ownerID int64) (*model.DeviceToken, error)

	deleted []int64
}

func (m *mockTokenRepo) Upsert(ctx context.Context, ownerID int64, token, platform string) error {
	return nil
}

func (m *mockTokenRepo) GetByOwner(ctx context.Context, ownerID int64) (*model.DeviceToken, error) {
	if m.getByOwnerFn != nil {
		return m.getByOwnerFn(ctx, ownerID)
	}
	return &model.DeviceToken{OwnerID: ownerID, Token: "tok-default"}, nil
}

func (m *mockTokenRepo) Delete(ctx context.Context, ownerID int64) error {
	m.deleted = append(m.deleted, ownerID)
	return nil
}

type mockPrefRepo struct {
	getFn func(ctx context.Context, ownerID int64) (bool, error)
}

func (m *mockPrefRepo) Get(ctx context.Context, ownerID int64) (bool, error) {
	if m.getFn != nil {
		return m.getFn(ctx, ownerID)
	}
	return true, nil
}

func (m *mockPrefRepo) Set(ctx context.Context, ownerID int64, enabled bool) error {
	return nil
}

func newTestDispatcher(sender *mockSender, ledger *mockLedger, tokens *mockTokenRepo, prefs *mockPrefRepo) *Dispatcher {
	return NewDispatcher(sender, ledger, tokens, prefs, nil, NewReclaimer(tokens))
}

// =============================================================================
// DISPATCH TESTS
// =============================================================================

func TestDispatcher_Dispatch_SuccessWritesLedger(t *testing.T) {
	sender := &mockSender{}
	ledger := &mockLedger{}
	tokens := &mockTokenRepo{}
	d := newTestDispatcher(sender, ledger, tokens, &mockPrefRepo{})

	msg := model.OutboundMessage{Title: "Medication reminder", Body: "Time to take aspirin.", SourceRef: "medication:7"}
	err := d.Dispatch(context.Background(), 1, "tok-1", msg)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(ledger.records) != 1 {
		t.Fatalf("expected exactly 1 ledger record, got %d", len(ledger.records))
	}
	rec := ledger.records[0]
	if !rec.Success {
		t.Error("expected success=true on the ledger record")
	}
	if rec.OwnerID != 1 || rec.Title != msg.Title || rec.Content != msg.Body || rec.SourceRef != msg.SourceRef {
		t.Errorf("ledger record fields wrong: %+v", rec)
	}
}

func TestDispatcher_Dispatch_FailureStillWritesLedger(t *testing.T) {
	sender := &mockSender{
		sendFn: func(ctx context.Context, token string, msg model.OutboundMessage) error {
			return errors.New("connection reset by peer")
		},
	}
	ledger := &mockLedger{}
	tokens := &mockTokenRepo{}
	d := newTestDispatcher(sender, ledger, tokens, &mockPrefRepo{})

	err := d.Dispatch(context.Background(), 1, "tok-1", model.OutboundMessage{Title: "t", Body: "b"})
	if err == nil {
		t.Fatal("expected the send error to propagate")
	}

	if len(ledger.records) != 1 {
		t.Fatalf("expected exactly 1 ledger record, got %d", len(ledger.records))
	}
	if ledger.records[0].Success {
		t.Error("expected success=false on the ledger record")
	}

	// A transient network failure must not purge the token.
	if len(tokens.deleted) != 0 {
		t.Errorf("expected no token purge, got %v", tokens.deleted)
	}
}

func TestDispatcher_Dispatch_NoRetry(t *testing.T) {
	sender := &mockSender{
		sendFn: func(ctx context.Context, token string, msg model.OutboundMessage) error {
			return errors.New("timeout")
		},
	}
	d := newTestDispatcher(sender, &mockLedger{}, &mockTokenRepo{}, &mockPrefRepo{})

	_ = d.Dispatch(context.Background(), 1, "tok-1", model.OutboundMessage{})

	if len(sender.sendCalls) != 1 {
		t.Fatalf("expected exactly 1 provider call, got %d", len(sender.sendCalls))
	}
}

func TestDispatcher_Dispatch_PermanentFailurePurgesToken(t *testing.T) {
	sender := &mockSender{
		sendFn: func(ctx context.Context, token string, msg model.OutboundMessage) error {
			return &ExpoPushError{Code: ExpoErrDeviceNotRegistered, Message: "device gone"}
		},
	}
	ledger := &mockLedger{}
	tokens := &mockTokenRepo{}
	d := newTestDispatcher(sender, ledger, tokens, &mockPrefRepo{})

	_ = d.Dispatch(context.Background(), 42, "tok-stale", model.OutboundMessage{})

	if len(tokens.deleted) != 1 || tokens.deleted[0] != 42 {
		t.Fatalf("expected token purge for owner 42, got %v", tokens.deleted)
	}
	// The ledger record still lands before the purge result matters.
	if len(ledger.records) != 1 {
		t.Fatalf("expected exactly 1 ledger record, got %d", len(ledger.records))
	}
}

// =============================================================================
// DELIVER TO OWNER TESTS
// =============================================================================

func TestDispatcher_DeliverToOwner_DisabledPreferenceIsSilent(t *testing.T) {
	sender := &mockSender{}
	ledger := &mockLedger{}
	prefs := &mockPrefRepo{
		getFn: func(ctx context.Context, ownerID int64) (bool, error) {
			return false, nil
		},
	}
	d := newTestDispatcher(sender, ledger, &mockTokenRepo{}, prefs)

	err := d.DeliverToOwner(context.Background(), 1, []model.OutboundMessage{{Title: "t"}})
	if err != nil {
		t.Fatalf("expected silent skip, got %v", err)
	}

	if len(sender.sendCalls) != 0 {
		t.Error("expected no provider call for a disabled recipient")
	}
	if len(ledger.records) != 0 {
		t.Errorf("expected zero ledger writes, got %d", len(ledger.records))
	}
}

func TestDispatcher_DeliverToOwner_MissingTokenIsSilent(t *testing.T) {
	sender := &mockSender{}
	ledger := &mockLedger{}
	tokens := &mockTokenRepo{
		getByOwnerFn: func(ctx context.Context, ownerID int64) (*model.DeviceToken, error) {
			return nil, nil
		},
	}
	d := newTestDispatcher(sender, ledger, tokens, &mockPrefRepo{})

	err := d.DeliverToOwner(context.Background(), 1, []model.OutboundMessage{{Title: "t"}})
	if err != nil {
		t.Fatalf("expected silent skip, got %v", err)
	}

	if len(sender.sendCalls) != 0 {
		t.Error("expected no provider call for a tokenless recipient")
	}
	if len(ledger.records) != 0 {
		t.Errorf("expected zero ledger writes, got %d", len(ledger.records))
	}
}

func TestDispatcher_DeliverToOwner_ContinuesAfterFailure(t *testing.T) {
	var calls int
	sender := &mockSender{
		sendFn: func(ctx context.Context, token string, msg model.OutboundMessage) error {
			calls++
			if calls == 1 {
				return errors.New("transient failure")
			}
			return nil
		},
	}
	ledger := &mockLedger{}
	d := newTestDispatcher(sender, ledger, &mockTokenRepo{}, &mockPrefRepo{})

	msgs := []model.OutboundMessage{
		{Title: "first", SourceRef: "medication:1"},
		{Title: "second", SourceRef: "medication:2"},
	}
	err := d.DeliverToOwner(context.Background(), 1, msgs)
	if err == nil {
		t.Fatal("expected the first failure to surface")
	}

	// Both messages get a provider attempt and a ledger record.
	if len(sender.sendCalls) != 2 {
		t.Errorf("expected 2 provider calls, got %d", len(sender.sendCalls))
	}
	if len(ledger.records) != 2 {
		t.Fatalf("expected 2 ledger records, got %d", len(ledger.records))
	}
	if ledger.records[0].Success || !ledger.records[1].Success {
		t.Errorf("expected [failed, succeeded], got [%v, %v]",
			ledger.records[0].Success, ledger.records[1].Success)
	}
}
