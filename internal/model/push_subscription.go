package model

import "time"

// PushSubscription holds a student's browser push subscription.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	StudentID string    `gorm:"size:64;not null;index"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}
