package model

import "time"

// StudentApplication is a student's hostel application as captured at registration.
// Allotted is flipped only by an allotment run or a withdrawal. Withdrawn is
// set by a withdrawal and keeps the student out of later runs.
type StudentApplication struct {
	StudentID      string         `gorm:"primaryKey;size:64" json:"studentId"`
	Name           string         `gorm:"size:128;not null" json:"name"`
	Email          string         `gorm:"size:128" json:"email"`
	Gender         Gender         `gorm:"size:16;not null;index" json:"gender"`
	CourseName     string         `gorm:"size:128" json:"courseName"`
	RollNumber     string         `gorm:"uniqueIndex;size:64;not null" json:"rollNumber"`
	AdmissionYear  int            `gorm:"not null" json:"admissionYear"`
	SgpaOdd        float64        `gorm:"not null" json:"sgpaOdd"`
	SgpaEven       float64        `gorm:"not null" json:"sgpaEven"`
	RoomPreference RoomPreference `gorm:"size:16;not null" json:"roomPreference"`
	Eligible       bool           `gorm:"not null" json:"eligible"`
	Allotted       bool           `gorm:"not null;index" json:"allotted"`
	Withdrawn      bool           `gorm:"not null;default:false" json:"withdrawn"`
	CreatedAt      time.Time      `gorm:"not null" json:"-"`
	UpdatedAt      time.Time      `gorm:"not null" json:"-"`
}

// AverageSGPA is the mean of the odd and even semester SGPA.
func (s StudentApplication) AverageSGPA() float64 {
	return (s.SgpaOdd + s.SgpaEven) / 2
}
