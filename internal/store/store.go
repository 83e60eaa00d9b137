package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"hostel-allotment-backend/internal/layout"
	"hostel-allotment-backend/internal/model"
)

var (
	ErrAlreadyAllotted   = errors.New("student is already allotted")
	ErrBedOccupied       = errors.New("bed is already occupied")
	ErrCounterDrift      = errors.New("capacity counter out of step with beds")
	ErrNoActiveAllotment = errors.New("student has no active allotment")
)

// Store defines the interface for all database operations.
type Store interface {
	DB() *gorm.DB

	UpsertApplications(ctx context.Context, apps []model.StudentApplication) error
	ListApplications(ctx context.Context) ([]model.StudentApplication, error)

	SeedLayout(ctx context.Context, l *layout.Layout) error
	ListHostels(ctx context.Context) ([]model.HostelBlock, error)
	ListBeds(ctx context.Context) ([]model.Bed, error)

	ActiveAllotments(ctx context.Context) ([]model.AllotmentRecord, error)
	ActiveAllotmentsWithStudents(ctx context.Context) ([]model.AllotmentRecord, error)
	ActiveAllotmentFor(ctx context.Context, studentID string) (*model.AllotmentRecord, error)
	CommitAllotment(ctx context.Context, rec *model.AllotmentRecord) error
	CancelAllotment(ctx context.Context, studentID string, at time.Time) (*model.AllotmentRecord, error)

	ListCounters(ctx context.Context) ([]model.CapacityCounter, error)
	RewriteCounters(ctx context.Context, counters []model.CapacityCounter, occupants map[string]string) error

	SaveSubscription(ctx context.Context, sub *model.PushSubscription) error
	DeleteSubscription(ctx context.Context, endpoint string) error
	SubscriptionsForStudent(ctx context.Context, studentID string) ([]model.PushSubscription, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}
