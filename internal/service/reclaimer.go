package service

import (
	"context"
	"errors"
	"log"
	"strings"

	"firebase.google.com/go/v4/errorutils"
	"firebase.google.com/go/v4/messaging"

	"medremind/internal/repository"
)

// Reclaimer purges device tokens that a delivery outcome proved permanently
// unusable. Anything not recognized as permanent is left alone: the token
// stays and the recipient is simply eligible again on the next scheduled
// cycle.
type Reclaimer struct {
	tokens repository.DeviceTokenRepository
}

func NewReclaimer(tokens repository.DeviceTokenRepository) *Reclaimer {
	return &Reclaimer{tokens: tokens}
}

// Reclaim classifies the failure reason and, when it signals a dead token,
// deletes the recipient's stored token. The delete is idempotent; an
// already-absent token is a no-op.
func (r *Reclaimer) Reclaim(ctx context.Context, ownerID int64, reason error) {
	if !IsPermanentlyInvalid(reason) {
		return
	}

	if err := r.tokens.Delete(ctx, ownerID); err != nil {
		log.Printf("[Reclaimer] Purge FAILED: owner=%d err=%v", ownerID, err)
		return
	}
	log.Printf("[Reclaimer] Purged token: owner=%d reason=%v", ownerID, reason)
}

// IsPermanentlyInvalid reports whether a provider failure means the
// destination token will never work again. Recognized signatures:
// FCM UNREGISTERED / INVALID_ARGUMENT / NOT_FOUND, Expo DeviceNotRegistered,
// and the literal "entity was not found" message some gateways wrap the
// NOT_FOUND status into.
func IsPermanentlyInvalid(err error) bool {
	if err == nil {
		return false
	}

	var expoErr *ExpoPushError
	if errors.As(err, &expoErr) {
		return expoErr.Code == ExpoErrDeviceNotRegistered
	}

	if messaging.IsUnregistered(err) {
		return true
	}
	if errorutils.IsInvalidArgument(err) || errorutils.IsNotFound(err) {
		return true
	}

	return strings.Contains(err.Error(), "entity was not found")
}
