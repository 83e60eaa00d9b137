// Package eligibility selects the students an allotment run considers and
// puts them in priority order.
package eligibility

import (
	"math"
	"sort"

	"hostel-allotment-backend/internal/model"
)

// IsCandidate reports whether an application takes part in a run.
func IsCandidate(app model.StudentApplication) bool {
	return app.Eligible && !app.Allotted && !app.Withdrawn && app.RoomPreference != model.PreferenceNone && app.Gender.Valid()
}

// Less is the priority order: earlier admission year first, then higher
// average SGPA, then roll number, then student ID so the order is total.
func Less(a, b model.StudentApplication) bool {
	if a.AdmissionYear != b.AdmissionYear {
		return a.AdmissionYear < b.AdmissionYear
	}
	if sa, sb := sgpaKey(a), sgpaKey(b); sa != sb {
		return sa > sb
	}
	if a.RollNumber != b.RollNumber {
		return a.RollNumber < b.RollNumber
	}
	return a.StudentID < b.StudentID
}

// sgpaKey orders the same as the average SGPA. A NaN ranks last so the
// comparison stays a strict weak order.
func sgpaKey(app model.StudentApplication) float64 {
	sum := app.SgpaOdd + app.SgpaEven
	if math.IsNaN(sum) {
		return math.Inf(-1)
	}
	return sum
}

// Filter returns the candidates in priority order. The input is not modified.
func Filter(apps []model.StudentApplication) []model.StudentApplication {
	out := make([]model.StudentApplication, 0, len(apps))
	for _, app := range apps {
		if IsCandidate(app) {
			out = append(out, app)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return Less(out[i], out[j]) })
	return out
}
