package model

import "time"

// EquipmentType is static reference data seeded at startup.
type EquipmentType struct {
	ID   int64  `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name string `gorm:"size:40;not null" json:"name"`
}

// Equipment is a tracked physical unit identified by its vendor and OEM serials.
type Equipment struct {
	ID              int64     `gorm:"primaryKey" json:"id"`
	VendorSerial    string    `gorm:"size:64;uniqueIndex;not null" json:"vendor_serial"`
	OEMSerial       string    `gorm:"column:oem_serial;size:64;uniqueIndex;not null" json:"oem_serial"`
	ATS             string    `gorm:"column:ats;size:45" json:"ats"`
	MACAddress      string    `gorm:"column:mac_address;size:30" json:"mac_address"`
	Firmware        string    `gorm:"size:128;not null" json:"firmware"`
	RoomID          *int64    `gorm:"index" json:"room_id"`
	EquipmentTypeID *int64    `gorm:"index" json:"equipment_type_id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	// Associations
	Room          *Room          `json:"-"`
	EquipmentType *EquipmentType `json:"equipment_type,omitempty"`
}

// TableName keeps the singular table name used by the reporting queries.
func (Equipment) TableName() string { return "equipment" }

// ManagementRecord is an append-only audit row tied to an equipment unit and a room.
type ManagementRecord struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	EquipmentID int64     `gorm:"index;not null" json:"equipment_id"`
	RoomID      int64     `gorm:"index;not null" json:"room_id"`
	ChangesText *string   `gorm:"type:text" json:"changes_text"`
	CreatedAt   time.Time `json:"created_at"`

	// Associations
	Equipment *Equipment `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Room      *Room      `json:"-"`
}
