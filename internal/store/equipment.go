package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"equipment-tracker-backend/internal/apperr"
	"equipment-tracker-backend/internal/model"
)

func (s *gormStore) ListEquipmentTypes(ctx context.Context) ([]model.EquipmentType, error) {
	var types []model.EquipmentType
	if err := s.db.WithContext(ctx).Order("id").Find(&types).Error; err != nil {
		return nil, fmt.Errorf("failed to list equipment types: %w", err)
	}
	return types, nil
}

func (s *gormStore) GetEquipmentType(ctx context.Context, id int64) (*model.EquipmentType, error) {
	var et model.EquipmentType
	if err := s.db.WithContext(ctx).First(&et, id).Error; err != nil {
		return nil, notFound(err, "equipment type %d not found", id)
	}
	return &et, nil
}

// FindEquipmentBySerials looks an equipment unit up by OEM serial first, then by
// vendor serial. It returns nil without error when neither matches.
func (s *gormStore) FindEquipmentBySerials(ctx context.Context, oemSerial, vendorSerial string) (*model.Equipment, error) {
	db := s.db.WithContext(ctx)
	lookups := []struct {
		column string
		value  string
	}{
		{"oem_serial", oemSerial},
		{"vendor_serial", vendorSerial},
	}

	for _, l := range lookups {
		if l.value == "" {
			continue
		}
		var eq model.Equipment
		err := db.Where(l.column+" = ?", l.value).First(&eq).Error
		if err == nil {
			return &eq, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to look up equipment by %s: %w", l.column, err)
		}
	}
	return nil, nil
}

func (s *gormStore) GetEquipment(ctx context.Context, id int64) (*model.Equipment, error) {
	var eq model.Equipment
	if err := s.db.WithContext(ctx).Preload("EquipmentType").First(&eq, id).Error; err != nil {
		return nil, notFound(err, "equipment %d not found", id)
	}
	return &eq, nil
}

// SaveEquipment inserts eq when it has no id and updates it otherwise. A serial
// already taken by another row surfaces as a Conflict error: two uploads racing on
// the same new serial pair lose on the unique index rather than duplicating rows.
func (s *gormStore) SaveEquipment(ctx context.Context, eq *model.Equipment) error {
	db := s.db.WithContext(ctx)
	var err error
	if eq.ID == 0 {
		err = db.Create(eq).Error
	} else {
		err = db.Omit("Room", "EquipmentType").Save(eq).Error
	}
	if err != nil {
		if isDuplicateKey(err) {
			return apperr.Conflict(err, "equipment with serial %s / %s already exists", eq.OEMSerial, eq.VendorSerial)
		}
		return fmt.Errorf("failed to save equipment %s: %w", eq.OEMSerial, err)
	}
	return nil
}

// ListEquipment returns the equipment in a room ordered by OEM serial.
func (s *gormStore) ListEquipment(ctx context.Context, roomID int64, filter EquipmentFilter) ([]model.Equipment, error) {
	q := s.db.WithContext(ctx).
		Preload("EquipmentType").
		Where("room_id = ?", roomID)

	if term := strings.ToLower(strings.TrimSpace(filter.Query)); term != "" {
		like := "%" + term + "%"
		q = q.Where("LOWER(oem_serial) LIKE ? OR LOWER(vendor_serial) LIKE ?", like, like)
	}
	if filter.TypeID != nil {
		q = q.Where("equipment_type_id = ?", *filter.TypeID)
	}

	var items []model.Equipment
	if err := q.Order("oem_serial").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list equipment for room %d: %w", roomID, err)
	}
	return items, nil
}

func (s *gormStore) CreateManagementRecord(ctx context.Context, rec *model.ManagementRecord) error {
	if rec.RoomID == 0 {
		return apperr.Validation("a management record requires a room")
	}
	if err := s.db.WithContext(ctx).Omit("Equipment", "Room").Create(rec).Error; err != nil {
		return fmt.Errorf("failed to create management record for equipment %d: %w", rec.EquipmentID, err)
	}
	return nil
}

// GetManagementRecord returns a record with its equipment and room loaded.
func (s *gormStore) GetManagementRecord(ctx context.Context, id int64) (*model.ManagementRecord, error) {
	var rec model.ManagementRecord
	err := s.db.WithContext(ctx).
		Preload("Equipment").
		Preload("Room").
		First(&rec, id).Error
	if err != nil {
		return nil, notFound(err, "management record %d not found", id)
	}
	return &rec, nil
}

// ListManagementRecords returns the audit trail of an equipment unit, newest first.
func (s *gormStore) ListManagementRecords(ctx context.Context, equipmentID int64) ([]model.ManagementRecord, error) {
	var records []model.ManagementRecord
	err := s.db.WithContext(ctx).
		Where("equipment_id = ?", equipmentID).
		Order("created_at DESC, id DESC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list management records for equipment %d: %w", equipmentID, err)
	}
	return records, nil
}

// Reset deletes every record, equipment unit, room and case scene in one transaction.
// Users, equipment types and push subscriptions are kept.
func (s *gormStore) Reset(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		all := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		if err := all.Exec("DELETE FROM subscription_room_mapping").Error; err != nil {
			return fmt.Errorf("failed to clear subscription rooms: %w", err)
		}
		for _, m := range []any{&model.ManagementRecord{}, &model.Equipment{}, &model.Room{}, &model.CaseScene{}} {
			if err := all.Delete(m).Error; err != nil {
				return fmt.Errorf("failed to reset %T: %w", m, err)
			}
		}
		return nil
	})
}
