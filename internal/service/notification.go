package service

import (
	"context"
	"log"

	"medremind/internal/cache"
	"medremind/internal/model"
	"medremind/internal/repository"
)

// NotificationService is the recipient-facing side of the delivery ledger:
// listing, the read toggle, the unread badge, and device token registration.
// Writing ledger records is the dispatcher's job alone.
type NotificationService struct {
	ledger repository.DeliveryRepository
	tokens repository.DeviceTokenRepository
	prefs  repository.PreferenceRepository
	badge  cache.BadgeCache
}

func NewNotificationService(
	ledger repository.DeliveryRepository,
	tokens repository.DeviceTokenRepository,
	prefs repository.PreferenceRepository,
	badge cache.BadgeCache,
) *NotificationService {
	return &NotificationService{
		ledger: ledger,
		tokens: tokens,
		prefs:  prefs,
		badge:  badge,
	}
}

// GetDeliveries returns the recipient's ledger, newest first, with the
// unread count for the badge.
func (s *NotificationService) GetDeliveries(ctx context.Context, ownerID int64, limit int) (*model.DeliveryListResponse, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}

	records, err := s.ledger.ListByOwner(ctx, ownerID, limit)
	if err != nil {
		return nil, err
	}

	unread, err := s.UnreadCount(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	return &model.DeliveryListResponse{
		Records:     records,
		UnreadCount: unread,
	}, nil
}

// MarkRead flips the read flag on one record owned by the recipient.
// This is the ledger's only permitted mutation.
func (s *NotificationService) MarkRead(ctx context.Context, ownerID, recordID int64) error {
	if err := s.ledger.MarkRead(ctx, ownerID, recordID); err != nil {
		return err
	}
	s.invalidateBadge(ctx, ownerID)
	return nil
}

// MarkAllRead flips the read flag on all of the recipient's records.
func (s *NotificationService) MarkAllRead(ctx context.Context, ownerID int64) error {
	if _, err := s.ledger.MarkAllRead(ctx, ownerID); err != nil {
		return err
	}
	s.invalidateBadge(ctx, ownerID)
	return nil
}

// UnreadCount returns the unread ledger count, served from the badge cache
// when warm and repopulated from the ledger on a miss.
func (s *NotificationService) UnreadCount(ctx context.Context, ownerID int64) (int, error) {
	if s.badge != nil {
		count, found, err := s.badge.Get(ctx, ownerID)
		if err == nil && found {
			return count, nil
		}
		if err != nil {
			log.Printf("[NotificationService] Badge read failed, falling back: owner=%d err=%v", ownerID, err)
		}
	}

	count, err := s.ledger.UnreadCount(ctx, ownerID)
	if err != nil {
		return 0, err
	}

	if s.badge != nil {
		if err := s.badge.Set(ctx, ownerID, count); err != nil {
			log.Printf("[NotificationService] Badge set failed: owner=%d err=%v", ownerID, err)
		}
	}
	return count, nil
}

// RegisterDeviceToken stores or replaces the recipient's push token.
// Called when the client's token lifecycle manager acquires a token at
// login or on a provider-initiated refresh. Last write wins.
func (s *NotificationService) RegisterDeviceToken(ctx context.Context, ownerID int64, token, platform string) error {
	if platform == "" {
		platform = model.PlatformExpo
	}
	return s.tokens.Upsert(ctx, ownerID, token, platform)
}

// RemoveDeviceToken removes the recipient's push token (e.g. on logout).
func (s *NotificationService) RemoveDeviceToken(ctx context.Context, ownerID int64) error {
	return s.tokens.Delete(ctx, ownerID)
}

// GetPreference returns the recipient's push opt-in flag.
func (s *NotificationService) GetPreference(ctx context.Context, ownerID int64) (bool, error) {
	return s.prefs.Get(ctx, ownerID)
}

// SetPreference stores the recipient's push opt-in flag.
func (s *NotificationService) SetPreference(ctx context.Context, ownerID int64, enabled bool) error {
	return s.prefs.Set(ctx, ownerID, enabled)
}

func (s *NotificationService) invalidateBadge(ctx context.Context, ownerID int64) {
	if s.badge == nil {
		return
	}
	if err := s.badge.Invalidate(ctx, ownerID); err != nil {
		log.Printf("[NotificationService] Badge invalidate failed: owner=%d err=%v", ownerID, err)
	}
}
