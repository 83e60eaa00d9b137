package model

import "time"

// HostelBlock is a hostel building. All of its beds go to one gender.
type HostelBlock struct {
	HostelID          int64     `gorm:"primaryKey;autoIncrement:false"`
	Code              string    `gorm:"uniqueIndex;size:32;not null"`
	Name              string    `gorm:"size:128;not null"`
	GenderSegregation Gender    `gorm:"size:16;not null;index"`
	CreatedAt         time.Time `gorm:"not null"`
	UpdatedAt         time.Time `gorm:"not null"`
}

// Floor is one storey of a hostel.
type Floor struct {
	ID          int64 `gorm:"primaryKey"`
	HostelID    int64 `gorm:"uniqueIndex:idx_floor_hostel_number;not null"`
	FloorNumber int   `gorm:"uniqueIndex:idx_floor_hostel_number;not null"`
}

// Room is a single or triple occupancy room on a floor.
type Room struct {
	ID          int64    `gorm:"primaryKey"`
	HostelID    int64    `gorm:"uniqueIndex:idx_room_hostel_number;not null"`
	RoomNumber  string   `gorm:"uniqueIndex:idx_room_hostel_number;size:32;not null"`
	FloorNumber int      `gorm:"not null"`
	RoomType    RoomType `gorm:"size:16;not null"`
	Capacity    int      `gorm:"not null"`
}

// Bed is the smallest unit of capacity. OccupantStudentID mirrors the
// active AllotmentRecord for the bed, if any.
type Bed struct {
	BedID             string   `gorm:"primaryKey;size:64"`
	HostelID          int64    `gorm:"index;not null"`
	FloorNumber       int      `gorm:"not null"`
	RoomNumber        string   `gorm:"size:32;not null"`
	RoomType          RoomType `gorm:"size:16;not null"`
	BedIndex          int      `gorm:"not null"`
	OccupantStudentID *string  `gorm:"size:64"`
}
