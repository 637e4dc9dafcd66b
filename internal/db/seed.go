package db

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"equipment-tracker-backend/config"
	"equipment-tracker-backend/internal/auth"
	"equipment-tracker-backend/internal/model"
)

// EquipmentTypes is the static reference data every installation starts with.
var EquipmentTypes = []model.EquipmentType{
	{ID: 1, Name: "Sidecar"},
	{ID: 2, Name: "In-Row CDU"},
	{ID: 3, Name: "ChillerDoor"},
}

// Seed inserts the equipment types and any configured users that do not exist yet.
// Existing rows are never modified.
func Seed(ctx context.Context, db *gorm.DB, users []config.SeedUser, log *zap.Logger) error {
	types := make([]model.EquipmentType, len(EquipmentTypes))
	copy(types, EquipmentTypes)
	if err := db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&types).Error; err != nil {
		return fmt.Errorf("failed to seed equipment types: %w", err)
	}

	for _, su := range users {
		role, err := model.ParseRole(su.Role)
		if err != nil {
			return fmt.Errorf("seed user %q: %w", su.Username, err)
		}

		var existing model.User
		err = db.WithContext(ctx).Where("username = ?", su.Username).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to look up seed user %q: %w", su.Username, err)
		}

		hash, err := auth.HashPassword(su.Password)
		if err != nil {
			return fmt.Errorf("seed user %q: %w", su.Username, err)
		}
		u := model.User{Username: su.Username, PasswordHash: hash, Role: role}
		if err := db.WithContext(ctx).Create(&u).Error; err != nil {
			return fmt.Errorf("failed to create seed user %q: %w", su.Username, err)
		}
		log.Info("seeded user", zap.String("username", u.Username), zap.String("role", string(u.Role)))
	}
	return nil
}
