package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hostel-allotment-backend/internal/model"
	"hostel-allotment-backend/internal/parse"
)

// CommitAllotment writes one allotment atomically: the student flips to
// allotted, the bed takes its occupant, the record is inserted and the
// counter moves by one. Any failed step rolls the whole write back.
func (s *gormStore) CommitAllotment(ctx context.Context, rec *model.AllotmentRecord) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Compare-and-set: a concurrent run may have allotted the student since filtering.
		res := tx.Model(&model.StudentApplication{}).
			Where("student_id = ? AND allotted = ?", rec.StudentID, false).
			Update("allotted", true)
		if res.Error != nil {
			return fmt.Errorf("failed to mark student %s allotted: %w", rec.StudentID, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyAllotted
		}

		res = tx.Model(&model.Bed{}).
			Where("bed_id = ? AND occupant_student_id IS NULL", rec.BedID).
			Update("occupant_student_id", rec.StudentID)
		if res.Error != nil {
			return fmt.Errorf("failed to occupy bed %s: %w", rec.BedID, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrBedOccupied
		}

		if err := tx.Omit(clause.Associations).Create(rec).Error; err != nil {
			return fmt.Errorf("failed to create allotment record for student %s: %w", rec.StudentID, err)
		}

		res = tx.Model(&model.CapacityCounter{}).
			Where("hostel_id = ? AND room_type = ? AND available_beds > 0", rec.HostelID, rec.RoomType).
			Updates(map[string]any{
				"occupied_beds":  gorm.Expr("occupied_beds + ?", 1),
				"available_beds": gorm.Expr("available_beds - ?", 1),
			})
		if res.Error != nil {
			return fmt.Errorf("failed to update capacity counter: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrCounterDrift
		}
		return nil
	})
}

// CancelAllotment cancels the student's active record, frees the bed and
// marks the student withdrawn so later runs skip them.
func (s *gormStore) CancelAllotment(ctx context.Context, studentID string, at time.Time) (*model.AllotmentRecord, error) {
	var rec model.AllotmentRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("student_id = ? AND status = ?", studentID, model.StatusActive).First(&rec).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoActiveAllotment
			}
			return fmt.Errorf("failed to load allotment for student %s: %w", studentID, err)
		}

		if err := tx.Model(&model.AllotmentRecord{}).Where("id = ?", rec.ID).Updates(map[string]any{
			"status":       model.StatusCancelled,
			"cancelled_at": at,
		}).Error; err != nil {
			return fmt.Errorf("failed to cancel allotment %d: %w", rec.ID, err)
		}

		if err := tx.Model(&model.StudentApplication{}).
			Where("student_id = ?", studentID).
			Updates(map[string]any{"allotted": false, "withdrawn": true}).Error; err != nil {
			return fmt.Errorf("failed to mark student %s withdrawn: %w", studentID, err)
		}

		if err := tx.Model(&model.Bed{}).
			Where("bed_id = ? AND occupant_student_id = ?", rec.BedID, studentID).
			Update("occupant_student_id", nil).Error; err != nil {
			return fmt.Errorf("failed to free bed %s: %w", rec.BedID, err)
		}

		res := tx.Model(&model.CapacityCounter{}).
			Where("hostel_id = ? AND room_type = ? AND occupied_beds > 0", rec.HostelID, rec.RoomType).
			Updates(map[string]any{
				"occupied_beds":  gorm.Expr("occupied_beds - ?", 1),
				"available_beds": gorm.Expr("available_beds + ?", 1),
			})
		if res.Error != nil {
			return fmt.Errorf("failed to update capacity counter: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrCounterDrift
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	rec.Status = model.StatusCancelled
	rec.CancelledAt = &at
	return &rec, nil
}

// ActiveAllotments returns all active records without associations.
func (s *gormStore) ActiveAllotments(ctx context.Context) ([]model.AllotmentRecord, error) {
	var recs []model.AllotmentRecord
	if err := s.db.WithContext(ctx).Where("status = ?", model.StatusActive).Order("id").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list active allotments: %w", err)
	}
	return recs, nil
}

// ActiveAllotmentsWithStudents returns active records with student and hostel
// loaded, in bed traversal order.
func (s *gormStore) ActiveAllotmentsWithStudents(ctx context.Context) ([]model.AllotmentRecord, error) {
	var recs []model.AllotmentRecord
	if err := s.db.WithContext(ctx).
		Preload("Student").
		Preload("Hostel").
		Where("status = ?", model.StatusActive).
		Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list allotted students: %w", err)
	}

	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.HostelID != b.HostelID {
			return a.HostelID < b.HostelID
		}
		if a.Floor != b.Floor {
			return a.Floor < b.Floor
		}
		if c := parse.CompareRooms(a.RoomNumber, b.RoomNumber); c != 0 {
			return c < 0
		}
		return a.BedID < b.BedID
	})
	return recs, nil
}

// ActiveAllotmentFor returns the student's active record with its hostel.
func (s *gormStore) ActiveAllotmentFor(ctx context.Context, studentID string) (*model.AllotmentRecord, error) {
	var rec model.AllotmentRecord
	err := s.db.WithContext(ctx).
		Preload("Hostel").
		Where("student_id = ? AND status = ?", studentID, model.StatusActive).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoActiveAllotment
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load allotment for student %s: %w", studentID, err)
	}
	return &rec, nil
}
