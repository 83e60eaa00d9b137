package allotment

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"hostel-allotment-backend/internal/allocation"
	"hostel-allotment-backend/internal/inventory"
	"hostel-allotment-backend/internal/model"
	"hostel-allotment-backend/internal/store"
)

const (
	ReasonPersistenceFailure = "persistence failure"
	ReasonAlreadyAllotted    = "already allotted"
)

// persister writes assignments one transaction per student. A failed write
// releases the reserved bed and never stops the rest of the run.
type persister struct {
	store   store.Store
	inv     *inventory.Inventory
	timeout time.Duration
	logger  *zap.Logger
}

func (p *persister) persist(ctx context.Context, runID string, at time.Time, assignments []allocation.Assignment) ([]AssignedBed, []allocation.Unallotted, []RunError) {
	var (
		assigned   []AssignedBed
		unallotted []allocation.Unallotted
		errs       []RunError
	)

	for _, a := range assignments {
		rec := &model.AllotmentRecord{
			RunID:         runID,
			StudentID:     a.Student.StudentID,
			HostelID:      a.Bed.HostelID,
			RoomNumber:    a.Bed.RoomNumber,
			BedID:         a.Bed.BedID,
			Floor:         a.Bed.Floor,
			RoomType:      a.Bed.RoomType,
			AllotmentDate: at,
			Status:        model.StatusActive,
		}

		wctx, cancel := context.WithTimeout(ctx, p.timeout)
		err := p.store.CommitAllotment(wctx, rec)
		cancel()

		if err == nil {
			assigned = append(assigned, AssignedBed{
				StudentID:  a.Student.StudentID,
				Name:       a.Student.Name,
				HostelID:   a.Bed.HostelID,
				BedID:      a.Bed.BedID,
				RoomNumber: a.Bed.RoomNumber,
				Floor:      a.Bed.Floor,
				RoomType:   a.Bed.RoomType,
				Fallback:   a.Fallback,
			})
			continue
		}

		if relErr := p.inv.Release(a.Bed.BedID); relErr != nil {
			p.logger.Error("Failed to release bed after write failure", zap.String("bed_id", a.Bed.BedID), zap.Error(relErr))
		}

		reason := ReasonPersistenceFailure
		if errors.Is(err, store.ErrAlreadyAllotted) {
			reason = ReasonAlreadyAllotted
			p.logger.Info("Student allotted concurrently, skipping", zap.String("student_id", a.Student.StudentID))
		} else {
			p.logger.Warn("Failed to persist allotment",
				zap.String("student_id", a.Student.StudentID),
				zap.String("bed_id", a.Bed.BedID),
				zap.Error(err))
			errs = append(errs, RunError{StudentID: a.Student.StudentID, BedID: a.Bed.BedID, Error: err.Error()})
		}
		unallotted = append(unallotted, allocation.Unallotted{
			StudentID:  a.Student.StudentID,
			Name:       a.Student.Name,
			RollNumber: a.Student.RollNumber,
			Reason:     reason,
		})
	}
	return assigned, unallotted, errs
}
