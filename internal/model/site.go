package model

import (
	"fmt"
	"time"
)

// CaseScene represents a physical site identified by (country, location).
type CaseScene struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Country   string    `gorm:"size:64;not null;uniqueIndex:uq_case_scene_country_location" json:"country"`
	Location  string    `gorm:"size:64;not null;uniqueIndex:uq_case_scene_country_location" json:"location"`
	CreatedAt time.Time `json:"created_at"`

	// Associations
	Rooms []Room `gorm:"foreignKey:CaseSceneID" json:"rooms,omitempty"`
}

// Key renders the display key "<country>(<location>)" used by the side-index and the tree.
func (c CaseScene) Key() string {
	return fmt.Sprintf("%s(%s)", c.Country, c.Location)
}

// Room is a sub-location within a CaseScene.
type Room struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	RoomName    string    `gorm:"size:64;not null;uniqueIndex:uq_room_case_roomname" json:"room_name"`
	CaseSceneID int64     `gorm:"not null;uniqueIndex:uq_room_case_roomname" json:"case_scene_id"`
	CreatedAt   time.Time `json:"created_at"`

	// Associations
	CaseScene *CaseScene `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
