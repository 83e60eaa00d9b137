package roster

import (
	"fmt"
	"math"
	"strings"

	"hostel-allotment-backend/internal/model"
)

// ApiResponse models the top-level structure of the registration API's response.
type ApiResponse struct {
	Code int `json:"code"`
	Data struct {
		Page     int       `json:"page"`
		PageSize int       `json:"pageSize"`
		Total    int       `json:"total"`
		Items    []ApiItem `json:"items"`
	} `json:"data"`
}

// ApiItem is one student application as published by the registration backend.
type ApiItem struct {
	StudentID      string  `json:"studentId"`
	Name           string  `json:"name"`
	Email          string  `json:"email"`
	Gender         string  `json:"gender"`
	CourseName     string  `json:"courseName"`
	RollNumber     string  `json:"rollNumber"`
	AdmissionYear  int     `json:"admissionYear"`
	SgpaOdd        float64 `json:"sgpaOdd"`
	SgpaEven       float64 `json:"sgpaEven"`
	RoomPreference *string `json:"roomPreference"`
	Eligible       bool    `json:"eligible"`
}

// Application converts the item, rejecting values outside the closed enums.
func (it ApiItem) Application() (model.StudentApplication, error) {
	if strings.TrimSpace(it.StudentID) == "" {
		return model.StudentApplication{}, fmt.Errorf("missing studentId")
	}
	if strings.TrimSpace(it.RollNumber) == "" {
		return model.StudentApplication{}, fmt.Errorf("student %s: missing rollNumber", it.StudentID)
	}
	for _, v := range []float64{it.SgpaOdd, it.SgpaEven} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return model.StudentApplication{}, fmt.Errorf("student %s: sgpa is not a finite number", it.StudentID)
		}
	}
	g, err := model.ParseGender(it.Gender)
	if err != nil {
		return model.StudentApplication{}, fmt.Errorf("student %s: %w", it.StudentID, err)
	}
	pref := model.PreferenceNone
	if it.RoomPreference != nil {
		if pref, err = model.ParseRoomPreference(*it.RoomPreference); err != nil {
			return model.StudentApplication{}, fmt.Errorf("student %s: %w", it.StudentID, err)
		}
	}

	return model.StudentApplication{
		StudentID:      strings.TrimSpace(it.StudentID),
		Name:           strings.TrimSpace(it.Name),
		Email:          strings.TrimSpace(it.Email),
		Gender:         g,
		CourseName:     strings.TrimSpace(it.CourseName),
		RollNumber:     strings.TrimSpace(it.RollNumber),
		AdmissionYear:  it.AdmissionYear,
		SgpaOdd:        it.SgpaOdd,
		SgpaEven:       it.SgpaEven,
		RoomPreference: pref,
		Eligible:       it.Eligible,
	}, nil
}
