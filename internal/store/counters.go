package store

import (
	"context"
	"fmt"
	"sort"

	"gorm.io/gorm"

	"hostel-allotment-backend/internal/model"
)

// ListCounters returns the cached capacity counters.
func (s *gormStore) ListCounters(ctx context.Context) ([]model.CapacityCounter, error) {
	var counters []model.CapacityCounter
	if err := s.db.WithContext(ctx).Order("hostel_id, room_type").Find(&counters).Error; err != nil {
		return nil, fmt.Errorf("failed to list capacity counters: %w", err)
	}
	return counters, nil
}

// RewriteCounters replaces every counter and bed occupant with recomputed
// values. occupants maps bed ID to student ID.
func (s *gormStore) RewriteCounters(ctx context.Context, counters []model.CapacityCounter, occupants map[string]string) error {
	rows := append([]model.CapacityCounter(nil), counters...)

	bedIDs := make([]string, 0, len(occupants))
	for bedID := range occupants {
		bedIDs = append(bedIDs, bedID)
	}
	sort.Strings(bedIDs)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.CapacityCounter{}).Error; err != nil {
			return fmt.Errorf("failed to clear capacity counters: %w", err)
		}
		if len(rows) > 0 {
			if err := tx.Create(&rows).Error; err != nil {
				return fmt.Errorf("failed to write capacity counters: %w", err)
			}
		}

		if err := tx.Model(&model.Bed{}).
			Where("occupant_student_id IS NOT NULL").
			Update("occupant_student_id", nil).Error; err != nil {
			return fmt.Errorf("failed to clear bed occupants: %w", err)
		}
		for _, bedID := range bedIDs {
			if err := tx.Model(&model.Bed{}).
				Where("bed_id = ?", bedID).
				Update("occupant_student_id", occupants[bedID]).Error; err != nil {
				return fmt.Errorf("failed to set occupant of bed %s: %w", bedID, err)
			}
		}
		return nil
	})
}
