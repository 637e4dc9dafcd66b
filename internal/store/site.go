package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"equipment-tracker-backend/internal/apperr"
	"equipment-tracker-backend/internal/model"
	"equipment-tracker-backend/internal/parse"
)

// EnsureWithParts looks up the case scene (country, location) and, when roomName is
// non-empty after normalisation, the room inside it, creating whichever is missing.
// The returned room is nil when no room name was given.
func (s *gormStore) EnsureWithParts(ctx context.Context, country, location, roomName string) (*model.CaseScene, *model.Room, error) {
	country = parse.NormalizeSpace(country)
	location = parse.NormalizeSpace(location)
	if country == "" || location == "" {
		return nil, nil, apperr.Validation("country and location must not be empty")
	}

	db := s.db.WithContext(ctx)

	var cs model.CaseScene
	err := db.Where("country = ? AND location = ?", country, location).First(&cs).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		cs = model.CaseScene{Country: country, Location: location}
		if err := db.Create(&cs).Error; err != nil {
			if isDuplicateKey(err) {
				return nil, nil, apperr.Conflict(err, "case scene %s was created concurrently, retry", cs.Key())
			}
			return nil, nil, fmt.Errorf("failed to create case scene %s: %w", cs.Key(), err)
		}
	case err != nil:
		return nil, nil, fmt.Errorf("failed to look up case scene %s(%s): %w", country, location, err)
	}

	roomName = parse.NormalizeSpace(roomName)
	if roomName == "" {
		return &cs, nil, nil
	}

	var room model.Room
	err = db.Where("case_scene_id = ? AND room_name = ?", cs.ID, roomName).First(&room).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		room = model.Room{CaseSceneID: cs.ID, RoomName: roomName}
		if err := db.Create(&room).Error; err != nil {
			if isDuplicateKey(err) {
				return nil, nil, apperr.Conflict(err, "room %q was created concurrently, retry", roomName)
			}
			return nil, nil, fmt.Errorf("failed to create room %q in case scene %d: %w", roomName, cs.ID, err)
		}
	case err != nil:
		return nil, nil, fmt.Errorf("failed to look up room %q in case scene %d: %w", roomName, cs.ID, err)
	}

	return &cs, &room, nil
}

// ParseAndEnsure parses a raw "Country(Location)" identifier and ensures the case scene and room.
func (s *gormStore) ParseAndEnsure(ctx context.Context, raw, roomName string) (*model.CaseScene, *model.Room, error) {
	country, location, err := parse.ParseSite(raw)
	if err != nil {
		return nil, nil, err
	}
	return s.EnsureWithParts(ctx, country, location, roomName)
}

// ListCaseScenes returns every case scene with its rooms, both ordered by id.
func (s *gormStore) ListCaseScenes(ctx context.Context) ([]model.CaseScene, error) {
	var scenes []model.CaseScene
	err := s.db.WithContext(ctx).
		Preload("Rooms", func(db *gorm.DB) *gorm.DB { return db.Order("rooms.id") }).
		Order("case_scenes.id").
		Find(&scenes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list case scenes: %w", err)
	}
	return scenes, nil
}

// GetCaseScene returns a case scene with its rooms ordered by name.
func (s *gormStore) GetCaseScene(ctx context.Context, id int64) (*model.CaseScene, error) {
	var cs model.CaseScene
	err := s.db.WithContext(ctx).
		Preload("Rooms", func(db *gorm.DB) *gorm.DB { return db.Order("rooms.room_name") }).
		First(&cs, id).Error
	if err != nil {
		return nil, notFound(err, "case scene %d not found", id)
	}
	return &cs, nil
}

// GetRoom returns the room with roomID if it belongs to caseSceneID.
func (s *gormStore) GetRoom(ctx context.Context, caseSceneID, roomID int64) (*model.Room, error) {
	var room model.Room
	err := s.db.WithContext(ctx).
		Preload("CaseScene").
		Where("case_scene_id = ?", caseSceneID).
		First(&room, roomID).Error
	if err != nil {
		return nil, notFound(err, "room %d not found in case scene %d", roomID, caseSceneID)
	}
	return &room, nil
}
