package allotment

import (
	"context"

	"hostel-allotment-backend/internal/model"
)

// StudentProfile is the populated student reference the dashboard expects.
type StudentProfile struct {
	ID            string       `json:"_id"`
	Email         string       `json:"email"`
	Gender        model.Gender `json:"gender"`
	AdmissionYear int          `json:"admissionYear"`
	SgpaOdd       float64      `json:"sgpaOdd"`
	SgpaEven      float64      `json:"sgpaEven"`
}

// AllottedStudent is one row of the allotted-students listing.
type AllottedStudent struct {
	Name               string               `json:"name"`
	RollNumber         string               `json:"rollNumber"`
	CourseName         string               `json:"courseName"`
	StudentProfileID   StudentProfile       `json:"studentProfileId"`
	RoomPreference     model.RoomPreference `json:"roomPreference"`
	AllottedHostelType string               `json:"allottedHostelType"`
	AllottedRoomNumber string               `json:"allottedRoomNumber"`
	AllottedBedID      string               `json:"allottedBedId"`
	Floor              int                  `json:"floor"`
}

// AllottedStudents lists every active allotment in bed order.
func (s *Service) AllottedStudents(ctx context.Context) ([]AllottedStudent, error) {
	recs, err := s.store.ActiveAllotmentsWithStudents(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]AllottedStudent, 0, len(recs))
	for _, rec := range recs {
		st := rec.Student
		out = append(out, AllottedStudent{
			Name:       st.Name,
			RollNumber: st.RollNumber,
			CourseName: st.CourseName,
			StudentProfileID: StudentProfile{
				ID:            st.StudentID,
				Email:         st.Email,
				Gender:        st.Gender,
				AdmissionYear: st.AdmissionYear,
				SgpaOdd:       st.SgpaOdd,
				SgpaEven:      st.SgpaEven,
			},
			RoomPreference:     st.RoomPreference,
			AllottedHostelType: rec.Hostel.GenderSegregation.Label(),
			AllottedRoomNumber: rec.RoomNumber,
			AllottedBedID:      rec.BedID,
			Floor:              rec.Floor,
		})
	}
	return out, nil
}
