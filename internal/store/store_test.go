package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"equipment-tracker-backend/config"
	"equipment-tracker-backend/internal/apperr"
	"equipment-tracker-backend/internal/db"
	"equipment-tracker-backend/internal/model"
)

// A helper function to create a mock database connection.
func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: sqlDB,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

// newSQLiteStore returns a store over a migrated and seeded in-memory database.
func newSQLiteStore(t *testing.T) Store {
	t.Helper()
	gormDB, err := db.Init(&config.DatabaseConfig{Driver: "sqlite", DSN: "file::memory:"}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, db.Seed(context.Background(), gormDB, nil, zap.NewNop()))
	t.Cleanup(func() {
		if sqlDB, err := gormDB.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return NewGormStore(gormDB)
}

func TestGormStore_FindEquipmentBySerials(t *testing.T) {
	now := time.Now()
	columns := []string{"id", "vendor_serial", "oem_serial", "firmware", "created_at", "updated_at"}
	byOEM := regexp.QuoteMeta(`SELECT * FROM "equipment" WHERE oem_serial = $1 ORDER BY "equipment"."id" LIMIT $2`)
	byVendor := regexp.QuoteMeta(`SELECT * FROM "equipment" WHERE vendor_serial = $1 ORDER BY "equipment"."id" LIMIT $2`)

	testCases := []struct {
		name             string
		oem, vendor      string
		mockExpectations func(mock sqlmock.Sqlmock)
		expectedID       int64
		expectedErr      bool
	}{
		{
			name: "Found by OEM serial, vendor serial is not queried",
			oem:  "ABC", vendor: "DEF",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(byOEM).
					WithArgs("ABC", 1).
					WillReturnRows(sqlmock.NewRows(columns).AddRow(5, "DEF", "ABC", "1.0", now, now))
			},
			expectedID: 5,
		},
		{
			name: "Falls back to vendor serial",
			oem:  "ABC", vendor: "DEF",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(byOEM).
					WithArgs("ABC", 1).
					WillReturnRows(sqlmock.NewRows(columns))
				mock.ExpectQuery(byVendor).
					WithArgs("DEF", 1).
					WillReturnRows(sqlmock.NewRows(columns).AddRow(9, "DEF", "OLD", "0.9", now, now))
			},
			expectedID: 9,
		},
		{
			name: "Empty OEM serial skips straight to vendor serial",
			oem:  "", vendor: "DEF",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(byVendor).
					WithArgs("DEF", 1).
					WillReturnRows(sqlmock.NewRows(columns))
			},
			expectedID: 0,
		},
		{
			name: "Query failure is returned",
			oem:  "ABC", vendor: "DEF",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(byOEM).
					WithArgs("ABC", 1).
					WillReturnError(errors.New("connection reset"))
			},
			expectedErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gormDB, mock := newTestDB(t)
			s := NewGormStore(gormDB)

			tc.mockExpectations(mock)

			eq, err := s.FindEquipmentBySerials(context.Background(), tc.oem, tc.vendor)

			if tc.expectedErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				if tc.expectedID == 0 {
					assert.Nil(t, eq)
				} else {
					require.NotNil(t, eq)
					assert.Equal(t, tc.expectedID, eq.ID)
				}
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestGormStore_EnsureWithParts_CreatesOnce(t *testing.T) {
	gormDB, mock := newTestDB(t)
	s := NewGormStore(gormDB)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "case_scenes" WHERE country = $1 AND location = $2 ORDER BY "case_scenes"."id" LIMIT $3`)).
		WithArgs("USA", "Quincy", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "country", "location", "created_at"}).AddRow(3, "USA", "Quincy", now))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "rooms" WHERE case_scene_id = $1 AND room_name = $2 ORDER BY "rooms"."id" LIMIT $3`)).
		WithArgs(3, "Hall 1", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "rooms"`)).
		WithArgs("Hall 1", 3, Any{}).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
	mock.ExpectCommit()

	cs, room, err := s.EnsureWithParts(context.Background(), " USA ", "Quincy", "  Hall   1 ")
	require.NoError(t, err)
	assert.Equal(t, int64(3), cs.ID)
	require.NotNil(t, room)
	assert.Equal(t, int64(11), room.ID)
	assert.Equal(t, "Hall 1", room.RoomName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_EnsureWithParts_Validation(t *testing.T) {
	gormDB, mock := newTestDB(t)
	s := NewGormStore(gormDB)

	_, _, err := s.EnsureWithParts(context.Background(), "  ", "Quincy", "Hall1")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, _, err = s.ParseAndEnsure(context.Background(), "   ", "Hall1")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_CreateManagementRecord_RequiresRoom(t *testing.T) {
	gormDB, mock := newTestDB(t)
	s := NewGormStore(gormDB)

	err := s.CreateManagementRecord(context.Background(), &model.ManagementRecord{EquipmentID: 1})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestParseAndEnsure_Idempotent(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	cs1, room1, err := s.ParseAndEnsure(ctx, "USA(Quincy)", "Hall1")
	require.NoError(t, err)
	cs2, room2, err := s.ParseAndEnsure(ctx, "USA ( Quincy )", "Hall1")
	require.NoError(t, err)

	assert.Equal(t, cs1.ID, cs2.ID)
	assert.Equal(t, room1.ID, room2.ID)
	assert.Equal(t, "Quincy", cs2.Location)

	cs3, room3, err := s.ParseAndEnsure(ctx, "USA(Quincy)", "   ")
	require.NoError(t, err)
	assert.Equal(t, cs1.ID, cs3.ID)
	assert.Nil(t, room3)

	scenes, err := s.ListCaseScenes(ctx)
	require.NoError(t, err)
	require.Len(t, scenes, 1)
	assert.Len(t, scenes[0].Rooms, 1)
}

func TestSaveEquipment_DuplicateSerialIsConflict(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	_, room, err := s.EnsureWithParts(ctx, "USA", "Quincy", "Hall1")
	require.NoError(t, err)

	first := &model.Equipment{OEMSerial: "ABC", VendorSerial: "DEF", Firmware: "1.0", RoomID: &room.ID}
	require.NoError(t, s.SaveEquipment(ctx, first))

	dup := &model.Equipment{OEMSerial: "XYZ", VendorSerial: "DEF", Firmware: "1.0"}
	err = s.SaveEquipment(ctx, dup)
	assert.True(t, apperr.IsKind(err, apperr.KindConflict), "got %v", err)

	first.Firmware = "2.0"
	require.NoError(t, s.SaveEquipment(ctx, first))
	got, err := s.GetEquipment(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "2.0", got.Firmware)

	_, err = s.GetEquipment(ctx, 999)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestListEquipment_Filters(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	_, room, err := s.EnsureWithParts(ctx, "USA", "Quincy", "Hall1")
	require.NoError(t, err)

	sidecar, cdu := int64(1), int64(2)
	for _, eq := range []*model.Equipment{
		{OEMSerial: "Q-200", VendorSerial: "V-2", Firmware: "1", RoomID: &room.ID, EquipmentTypeID: &cdu},
		{OEMSerial: "Q-100", VendorSerial: "V-1", Firmware: "1", RoomID: &room.ID, EquipmentTypeID: &sidecar},
		{OEMSerial: "Z-1", VendorSerial: "abc-9", Firmware: "1", RoomID: &room.ID},
	} {
		require.NoError(t, s.SaveEquipment(ctx, eq))
	}

	all, err := s.ListEquipment(ctx, room.ID, EquipmentFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Q-100", all[0].OEMSerial)
	require.NotNil(t, all[0].EquipmentType)
	assert.Equal(t, "Sidecar", all[0].EquipmentType.Name)

	byQuery, err := s.ListEquipment(ctx, room.ID, EquipmentFilter{Query: "ABC"})
	require.NoError(t, err)
	require.Len(t, byQuery, 1)
	assert.Equal(t, "Z-1", byQuery[0].OEMSerial)

	byType, err := s.ListEquipment(ctx, room.ID, EquipmentFilter{TypeID: &cdu})
	require.NoError(t, err)
	require.Len(t, byType, 1)
	assert.Equal(t, "Q-200", byType[0].OEMSerial)
}

func TestTransaction_RollsBack(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	err := s.Transaction(ctx, func(tx Store) error {
		if _, _, err := tx.EnsureWithParts(ctx, "USA", "Quincy", "Hall1"); err != nil {
			return err
		}
		return errors.New("boom")
	})
	assert.EqualError(t, err, "boom")

	scenes, err := s.ListCaseScenes(ctx)
	require.NoError(t, err)
	assert.Empty(t, scenes)
}

func TestUsers(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	u := &model.User{Username: "alice", PasswordHash: "x", Role: model.RoleSuperuser}
	require.NoError(t, s.CreateUser(ctx, u))
	err := s.CreateUser(ctx, &model.User{Username: "alice", PasswordHash: "y", Role: model.RoleUser})
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))

	found, err := s.FindUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)

	n, err := s.CountUsersByRole(ctx, model.RoleSuperuser)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, s.DeleteUser(ctx, u.ID))
	assert.True(t, apperr.IsKind(s.DeleteUser(ctx, u.ID), apperr.KindNotFound))
	_, err = s.FindUserByUsername(ctx, "alice")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestSubscriptions(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	_, hall1, err := s.EnsureWithParts(ctx, "USA", "Quincy", "Hall1")
	require.NoError(t, err)
	_, hall2, err := s.EnsureWithParts(ctx, "USA", "Quincy", "Hall2")
	require.NoError(t, err)

	sub := &model.PushSubscription{Endpoint: "https://push.example/1", P256DH: "k", Auth: "a"}
	require.NoError(t, s.PutSubscription(ctx, sub, []int64{hall1.ID, hall2.ID}))
	require.NoError(t, s.PutSubscription(ctx, sub, []int64{hall2.ID}))

	got, err := s.GetSubscription(ctx, sub.Endpoint)
	require.NoError(t, err)
	require.Len(t, got.Rooms, 1)
	assert.Equal(t, hall2.ID, got.Rooms[0].ID)

	forHall1, err := s.SubscriptionsForRoom(ctx, hall1.ID)
	require.NoError(t, err)
	assert.Empty(t, forHall1)
	forHall2, err := s.SubscriptionsForRoom(ctx, hall2.ID)
	require.NoError(t, err)
	assert.Len(t, forHall2, 1)

	require.NoError(t, s.DeleteSubscription(ctx, sub.Endpoint))
	_, err = s.GetSubscription(ctx, sub.Endpoint)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestReset(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	_, room, err := s.EnsureWithParts(ctx, "USA", "Quincy", "Hall1")
	require.NoError(t, err)
	eq := &model.Equipment{OEMSerial: "ABC", VendorSerial: "DEF", Firmware: "1.0", RoomID: &room.ID}
	require.NoError(t, s.SaveEquipment(ctx, eq))
	require.NoError(t, s.CreateManagementRecord(ctx, &model.ManagementRecord{EquipmentID: eq.ID, RoomID: room.ID}))
	require.NoError(t, s.PutSubscription(ctx, &model.PushSubscription{Endpoint: "e", P256DH: "k", Auth: "a"}, []int64{room.ID}))

	require.NoError(t, s.Reset(ctx))

	scenes, err := s.ListCaseScenes(ctx)
	require.NoError(t, err)
	assert.Empty(t, scenes)
	records, err := s.ListManagementRecords(ctx, eq.ID)
	require.NoError(t, err)
	assert.Empty(t, records)
	types, err := s.ListEquipmentTypes(ctx)
	require.NoError(t, err)
	assert.Len(t, types, 3)
	sub, err := s.GetSubscription(ctx, "e")
	require.NoError(t, err)
	assert.Empty(t, sub.Rooms)
}

// Any is a helper for sqlmock to match any argument.
type Any struct{}

// Match satisfies the sqlmock.Argument interface
func (a Any) Match(v driver.Value) bool {
	return true
}
