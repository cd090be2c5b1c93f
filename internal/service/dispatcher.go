package service

import (
	"context"
	"fmt"
	"log"

	"medremind/internal/cache"
	"medremind/internal/model"
	"medremind/internal/repository"
)

// PushSender sends one message to one device token.
// FCMClient and ExpoPushClient both satisfy this; which one is wired is a
// deployment choice (PUSH_PROVIDER).
type PushSender interface {
	Send(ctx context.Context, token string, msg model.OutboundMessage) error
}

// Dispatcher delivers push messages and keeps the ledger honest: every send
// attempt, success or failure, lands in the delivery ledger before Dispatch
// returns, and permanent failures hand the token to the reclaimer.
type Dispatcher struct {
	sender    PushSender
	ledger    repository.DeliveryRepository
	tokens    repository.DeviceTokenRepository
	prefs     repository.PreferenceRepository
	badge     cache.BadgeCache // nil-able: badge bumping is best-effort
	reclaimer *Reclaimer
}

func NewDispatcher(
	sender PushSender,
	ledger repository.DeliveryRepository,
	tokens repository.DeviceTokenRepository,
	prefs repository.PreferenceRepository,
	badge cache.BadgeCache,
	reclaimer *Reclaimer,
) *Dispatcher {
	return &Dispatcher{
		sender:    sender,
		ledger:    ledger,
		tokens:    tokens,
		prefs:     prefs,
		badge:     badge,
		reclaimer: reclaimer,
	}
}

// Dispatch sends one message to one token: exactly one provider call, no
// internal retry. The ledger record is appended synchronously whatever the
// outcome; a failure reason is then handed to the reclaimer.
func (d *Dispatcher) Dispatch(ctx context.Context, ownerID int64, token string, msg model.OutboundMessage) error {
	sendErr := d.sender.Send(ctx, token, msg)

	rec := &model.DeliveryRecord{
		OwnerID:   ownerID,
		Title:     msg.Title,
		Content:   msg.Body,
		SourceRef: msg.SourceRef,
		Success:   sendErr == nil,
	}
	if _, err := d.ledger.Append(ctx, rec); err != nil {
		// The attempt happened but left no trace; surface loudly.
		log.Printf("[Dispatcher] Ledger append FAILED: owner=%d source=%s err=%v", ownerID, msg.SourceRef, err)
		return fmt.Errorf("append delivery record: %w", err)
	}

	if d.badge != nil {
		if err := d.badge.Increment(ctx, ownerID); err != nil {
			log.Printf("[Dispatcher] Badge bump failed: owner=%d err=%v", ownerID, err)
		}
	}

	if sendErr != nil {
		log.Printf("[Dispatcher] Send FAILED: owner=%d source=%s err=%v", ownerID, msg.SourceRef, sendErr)
		d.reclaimer.Reclaim(ctx, ownerID, sendErr)
		return sendErr
	}

	return nil
}

// DeliverToOwner runs the full per-recipient flow shared by the schedule
// matcher and the stream worker: preference check, token lookup, then one
// Dispatch per message.
//
// A disabled preference or a missing token is a silent skip: no ledger
// entry, no error. Each message is dispatched even if an earlier one in the
// batch failed; the recipient's remaining reminders still deserve a try.
func (d *Dispatcher) DeliverToOwner(ctx context.Context, ownerID int64, msgs []model.OutboundMessage) error {
	if len(msgs) == 0 {
		return nil
	}

	enabled, err := d.prefs.Get(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("get preference: %w", err)
	}
	if !enabled {
		log.Printf("[Dispatcher] Notifications disabled: owner=%d skipped=%d", ownerID, len(msgs))
		return nil
	}

	tok, err := d.tokens.GetByOwner(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("get device token: %w", err)
	}
	if tok == nil {
		log.Printf("[Dispatcher] No device token: owner=%d skipped=%d", ownerID, len(msgs))
		return nil
	}

	var firstErr error
	for _, msg := range msgs {
		if err := d.Dispatch(ctx, ownerID, tok.Token, msg); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
