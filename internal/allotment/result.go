package allotment

import (
	"fmt"
	"time"

	"hostel-allotment-backend/internal/allocation"
	"hostel-allotment-backend/internal/model"
)

// AssignedBed is one allotment made by a run.
type AssignedBed struct {
	StudentID  string         `json:"studentId"`
	Name       string         `json:"name"`
	HostelID   int64          `json:"hostelId"`
	BedID      string         `json:"bedId"`
	RoomNumber string         `json:"roomNumber"`
	Floor      int            `json:"floor"`
	RoomType   model.RoomType `json:"roomType"`
	Fallback   bool           `json:"fallback,omitempty"`
}

// RunError records a student whose allotment could not be written.
type RunError struct {
	StudentID string `json:"studentId"`
	BedID     string `json:"bedId"`
	Error     string `json:"error"`
}

// RunResult is the outcome of one allotment run.
type RunResult struct {
	RunID      string                  `json:"runId"`
	StartedAt  time.Time               `json:"startedAt"`
	FinishedAt time.Time               `json:"finishedAt"`
	Candidates int                     `json:"candidates"`
	Assigned   []AssignedBed           `json:"assigned"`
	Unallotted []allocation.Unallotted `json:"unallotted"`
	Errors     []RunError              `json:"errors"`
}

// Summary is the human readable message returned to the admin UI.
func (r *RunResult) Summary() string {
	msg := fmt.Sprintf("Allotment completed: %d students allotted, %d unallotted", len(r.Assigned), len(r.Unallotted))
	if len(r.Errors) > 0 {
		msg += fmt.Sprintf(", %d failed to save", len(r.Errors))
	}
	return msg
}
