package model

import "time"

// AllotmentRecord binds one student to one bed. At most one active record
// may exist per bed and per student; both are enforced by partial unique indexes.
type AllotmentRecord struct {
	ID            int64           `gorm:"primaryKey"`
	RunID         string          `gorm:"size:36;index"`
	StudentID     string          `gorm:"size:64;not null;index;index:idx_allotment_active_student,unique,where:status = 'active'"`
	HostelID      int64           `gorm:"not null;index"`
	RoomNumber    string          `gorm:"size:32;not null"`
	BedID         string          `gorm:"size:64;not null;index;index:idx_allotment_active_bed,unique,where:status = 'active'"`
	Floor         int             `gorm:"not null"`
	RoomType      RoomType        `gorm:"size:16;not null"`
	AllotmentDate time.Time       `gorm:"not null"`
	Status        AllotmentStatus `gorm:"size:16;not null;index"`
	CancelledAt   *time.Time

	// Associations
	Student StudentApplication `gorm:"foreignKey:StudentID;references:StudentID"`
	Hostel  HostelBlock        `gorm:"foreignKey:HostelID;references:HostelID"`
}

// CapacityCounter is the cached occupancy view for one hostel and room type.
// It is only ever written by the persister and by reconciliation.
type CapacityCounter struct {
	HostelID      int64     `gorm:"primaryKey;autoIncrement:false"`
	RoomType      RoomType  `gorm:"primaryKey;size:16"`
	TotalBeds     int       `gorm:"not null"`
	OccupiedBeds  int       `gorm:"not null"`
	AvailableBeds int       `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}
