package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"equipment-tracker-backend/internal/apperr"
	"equipment-tracker-backend/internal/model"
)

// EquipmentFilter narrows a room's equipment listing.
type EquipmentFilter struct {
	Query  string // case-insensitive substring of either serial
	TypeID *int64
}

// Store defines the interface for all database operations.
type Store interface {
	DB() *gorm.DB
	// Transaction runs fn against a Store bound to a single database transaction.
	Transaction(ctx context.Context, fn func(tx Store) error) error

	// Case scenes and rooms
	EnsureWithParts(ctx context.Context, country, location, roomName string) (*model.CaseScene, *model.Room, error)
	ParseAndEnsure(ctx context.Context, raw, roomName string) (*model.CaseScene, *model.Room, error)
	ListCaseScenes(ctx context.Context) ([]model.CaseScene, error)
	GetCaseScene(ctx context.Context, id int64) (*model.CaseScene, error)
	GetRoom(ctx context.Context, caseSceneID, roomID int64) (*model.Room, error)

	// Equipment and audit records
	ListEquipmentTypes(ctx context.Context) ([]model.EquipmentType, error)
	GetEquipmentType(ctx context.Context, id int64) (*model.EquipmentType, error)
	FindEquipmentBySerials(ctx context.Context, oemSerial, vendorSerial string) (*model.Equipment, error)
	GetEquipment(ctx context.Context, id int64) (*model.Equipment, error)
	SaveEquipment(ctx context.Context, eq *model.Equipment) error
	ListEquipment(ctx context.Context, roomID int64, filter EquipmentFilter) ([]model.Equipment, error)
	CreateManagementRecord(ctx context.Context, rec *model.ManagementRecord) error
	GetManagementRecord(ctx context.Context, id int64) (*model.ManagementRecord, error)
	ListManagementRecords(ctx context.Context, equipmentID int64) ([]model.ManagementRecord, error)

	// Users
	FindUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUser(ctx context.Context, id int64) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	CreateUser(ctx context.Context, u *model.User) error
	DeleteUser(ctx context.Context, id int64) error
	CountUsersByRole(ctx context.Context, role model.Role) (int64, error)

	// Push subscriptions
	PutSubscription(ctx context.Context, sub *model.PushSubscription, roomIDs []int64) error
	GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
	SubscriptionsForRoom(ctx context.Context, roomID int64) ([]model.PushSubscription, error)

	// Reset removes every record, equipment unit, room and case scene.
	Reset(ctx context.Context) error
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

func (s *gormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

// notFound maps gorm's missing-row error onto a NotFound application error.
func notFound(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(format, args...)
	}
	return err
}

func isDuplicateKey(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
