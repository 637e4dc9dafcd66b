package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"equipment-tracker-backend/internal/model"
)

// PutSubscription creates or replaces a push subscription and its room set.
func (s *gormStore) PutSubscription(ctx context.Context, sub *model.PushSubscription, roomIDs []int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Rooms").Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth"}),
		}).Create(sub).Error; err != nil {
			return fmt.Errorf("failed to upsert subscription: %w", err)
		}

		rooms := []*model.Room{}
		if len(roomIDs) > 0 {
			if err := tx.Find(&rooms, roomIDs).Error; err != nil {
				return fmt.Errorf("failed to load subscribed rooms: %w", err)
			}
		}

		if err := tx.Model(sub).Association("Rooms").Replace(rooms); err != nil {
			return fmt.Errorf("failed to replace subscribed rooms: %w", err)
		}
		sub.Rooms = rooms
		return nil
	})
}

func (s *gormStore) GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	if err := s.db.WithContext(ctx).Preload("Rooms").First(&sub, "endpoint = ?", endpoint).Error; err != nil {
		return nil, notFound(err, "subscription not found")
	}
	return &sub, nil
}

// DeleteSubscription removes a subscription together with its room mappings.
func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	sub := model.PushSubscription{Endpoint: endpoint}
	if err := s.db.WithContext(ctx).Select("Rooms").Delete(&sub).Error; err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	return nil
}

// SubscriptionsForRoom returns every subscription that follows roomID.
func (s *gormStore) SubscriptionsForRoom(ctx context.Context, roomID int64) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	err := s.db.WithContext(ctx).
		Joins("JOIN subscription_room_mapping srm ON srm.push_subscription_endpoint = push_subscriptions.endpoint").
		Where("srm.room_id = ?", roomID).
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load subscriptions for room %d: %w", roomID, err)
	}
	return subs, nil
}
