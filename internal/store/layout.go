package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hostel-allotment-backend/internal/layout"
	"hostel-allotment-backend/internal/model"
)

// SeedLayout upserts the physical layout. Bed occupancy is left untouched so
// seeding is safe on every start.
func (s *gormStore) SeedLayout(ctx context.Context, l *layout.Layout) error {
	hostels := append([]model.HostelBlock(nil), l.Hostels...)
	floors := append([]model.Floor(nil), l.Floors...)
	rooms := append([]model.Room(nil), l.Rooms...)
	beds := append([]model.Bed(nil), l.Beds...)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(hostels) > 0 {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "hostel_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"code", "name", "gender_segregation", "updated_at"}),
			}).Create(&hostels).Error; err != nil {
				return fmt.Errorf("upsert hostels failed: %w", err)
			}
		}

		if len(floors) > 0 {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "hostel_id"}, {Name: "floor_number"}},
				DoNothing: true,
			}).Create(&floors).Error; err != nil {
				return fmt.Errorf("upsert floors failed: %w", err)
			}
		}

		if len(rooms) > 0 {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "hostel_id"}, {Name: "room_number"}},
				DoUpdates: clause.AssignmentColumns([]string{"floor_number", "room_type", "capacity"}),
			}).CreateInBatches(&rooms, 100).Error; err != nil {
				return fmt.Errorf("upsert rooms failed: %w", err)
			}
		}

		if len(beds) > 0 {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "bed_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"hostel_id", "floor_number", "room_number", "room_type", "bed_index"}),
			}).CreateInBatches(&beds, 100).Error; err != nil {
				return fmt.Errorf("upsert beds failed: %w", err)
			}
		}
		return nil
	})
}

// ListHostels returns all hostels ordered by ID.
func (s *gormStore) ListHostels(ctx context.Context) ([]model.HostelBlock, error) {
	var hostels []model.HostelBlock
	if err := s.db.WithContext(ctx).Order("hostel_id").Find(&hostels).Error; err != nil {
		return nil, fmt.Errorf("failed to list hostels: %w", err)
	}
	return hostels, nil
}

// ListBeds returns every bed definition.
func (s *gormStore) ListBeds(ctx context.Context) ([]model.Bed, error) {
	var beds []model.Bed
	if err := s.db.WithContext(ctx).Order("bed_id").Find(&beds).Error; err != nil {
		return nil, fmt.Errorf("failed to list beds: %w", err)
	}
	return beds, nil
}
