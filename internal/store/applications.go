package store

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"hostel-allotment-backend/internal/model"
)

// UpsertApplications inserts or refreshes applications by student ID. The
// allotted and withdrawn flags are owned by runs and withdrawals and are
// never overwritten here.
func (s *gormStore) UpsertApplications(ctx context.Context, apps []model.StudentApplication) error {
	if len(apps) == 0 {
		return nil
	}
	rows := append([]model.StudentApplication(nil), apps...)
	for i := range rows {
		rows[i].Allotted = false
		rows[i].Withdrawn = false
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "student_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "email", "gender", "course_name", "roll_number", "admission_year",
			"sgpa_odd", "sgpa_even", "room_preference", "eligible", "updated_at",
		}),
	}).CreateInBatches(&rows, 100).Error
	if err != nil {
		return fmt.Errorf("batch upsert applications failed: %w", err)
	}
	return nil
}

// ListApplications returns every application ordered by student ID.
func (s *gormStore) ListApplications(ctx context.Context) ([]model.StudentApplication, error) {
	var apps []model.StudentApplication
	if err := s.db.WithContext(ctx).Order("student_id").Find(&apps).Error; err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	return apps, nil
}
