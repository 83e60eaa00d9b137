// Package allotment runs allotments end to end: it loads ground truth,
// allocates beds, persists each assignment and reports availability.
package allotment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"hostel-allotment-backend/internal/allocation"
	"hostel-allotment-backend/internal/eligibility"
	"hostel-allotment-backend/internal/inventory"
	"hostel-allotment-backend/internal/layout"
	"hostel-allotment-backend/internal/model"
	"hostel-allotment-backend/internal/store"
)

var (
	ErrRunInProgress      = errors.New("allotment already in progress")
	ErrInvariantViolation = allocation.ErrInvariantViolation
	ErrNotAllotted        = errors.New("student has no active allotment")
)

// Notifier is told about every student a run allots.
type Notifier interface {
	Dispatch(studentID string)
}

type Options struct {
	Workers        int
	Policy         allocation.Policy
	PersistTimeout time.Duration
	RunTimeout     time.Duration
}

// Service owns the inventory and serializes every mutation through the run lock.
type Service struct {
	store    store.Store
	inv      *inventory.Inventory
	engine   *allocation.Engine
	lock     RunLock
	notifier Notifier
	opts     Options
	logger   *zap.Logger
	tracer   trace.Tracer
	now      func() time.Time

	mu   sync.RWMutex
	last *RunResult
}

// NewService wires a Service. notifier may be nil.
func NewService(st store.Store, lock RunLock, notifier Notifier, opts Options, logger *zap.Logger) *Service {
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = 5 * time.Second
	}
	if opts.RunTimeout <= 0 {
		opts.RunTimeout = 2 * time.Minute
	}
	inv := inventory.New()
	return &Service{
		store:    st,
		inv:      inv,
		engine:   allocation.NewEngine(inv, allocation.Options{Workers: opts.Workers, Policy: opts.Policy}, logger),
		lock:     lock,
		notifier: notifier,
		opts:     opts,
		logger:   logger,
		tracer:   otel.Tracer("hostel-allotment-backend/internal/allotment"),
		now:      time.Now,
	}
}

// Bootstrap seeds the layout and brings counters and the inventory in line with it.
func (s *Service) Bootstrap(ctx context.Context, l *layout.Layout) error {
	if err := s.store.SeedLayout(ctx, l); err != nil {
		return err
	}
	_, err := s.Reconcile(ctx)
	return err
}

// Run performs one allotment run. Capacity exhaustion is not an error; it
// shows up as unallotted students in the result.
func (s *Service) Run(ctx context.Context) (*RunResult, error) {
	unlock, err := s.lock.TryLock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	// The run outlives a disconnected client but not its own deadline.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.RunTimeout)
	defer cancel()

	runID := uuid.NewString()
	ctx, span := s.tracer.Start(ctx, "allotment.Run", trace.WithAttributes(attribute.String("run_id", runID)))
	defer span.End()

	result := &RunResult{RunID: runID, StartedAt: s.now()}
	log := s.logger.With(zap.String("run_id", runID))
	log.Info("Starting allotment run")

	if err := s.reload(ctx); err != nil {
		return nil, err
	}

	apps, err := s.store.ListApplications(ctx)
	if err != nil {
		return nil, err
	}
	candidates := eligibility.Filter(apps)
	result.Candidates = len(candidates)

	alloc, err := s.engine.Allocate(ctx, candidates)
	if err != nil {
		return nil, fmt.Errorf("allocation failed: %w", err)
	}
	result.Unallotted = alloc.Unallotted

	p := &persister{store: s.store, inv: s.inv, timeout: s.opts.PersistTimeout, logger: log}
	assigned, unallotted, errs := p.persist(ctx, runID, result.StartedAt, alloc.Assigned)
	result.Assigned = assigned
	result.Unallotted = append(result.Unallotted, unallotted...)
	result.Errors = errs
	result.FinishedAt = s.now()

	span.SetAttributes(
		attribute.Int("assigned", len(result.Assigned)),
		attribute.Int("unallotted", len(result.Unallotted)),
		attribute.Int("errors", len(result.Errors)),
	)
	log.Info("Allotment run finished",
		zap.Int("candidates", result.Candidates),
		zap.Int("assigned", len(result.Assigned)),
		zap.Int("unallotted", len(result.Unallotted)),
		zap.Int("errors", len(result.Errors)),
		zap.Duration("duration", result.FinishedAt.Sub(result.StartedAt)))

	s.mu.Lock()
	s.last = result
	s.mu.Unlock()

	if s.notifier != nil {
		for _, a := range result.Assigned {
			s.notifier.Dispatch(a.StudentID)
		}
	}
	return result, nil
}

// LastRun returns the result of the most recent completed run.
func (s *Service) LastRun() (*RunResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, s.last != nil
}

// Withdraw cancels a student's active allotment and frees the bed.
func (s *Service) Withdraw(ctx context.Context, studentID string) (*model.AllotmentRecord, error) {
	unlock, err := s.lock.TryLock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	rec, err := s.store.CancelAllotment(ctx, studentID, s.now())
	if errors.Is(err, store.ErrNoActiveAllotment) {
		return nil, ErrNotAllotted
	}
	if err != nil {
		return nil, err
	}

	if err := s.inv.Release(rec.BedID); err != nil {
		// The next run reloads from the database, which is already correct.
		s.logger.Warn("Inventory out of step on withdrawal",
			zap.String("student_id", studentID),
			zap.String("bed_id", rec.BedID),
			zap.Error(err))
	}
	s.logger.Info("Allotment withdrawn", zap.String("student_id", studentID), zap.String("bed_id", rec.BedID))
	return rec, nil
}

// reload rebuilds the inventory from beds and active allotments.
func (s *Service) reload(ctx context.Context) error {
	hostels, err := s.store.ListHostels(ctx)
	if err != nil {
		return err
	}
	beds, err := s.store.ListBeds(ctx)
	if err != nil {
		return err
	}
	active, err := s.store.ActiveAllotments(ctx)
	if err != nil {
		return err
	}

	occupied := make([]string, 0, len(active))
	for _, rec := range active {
		occupied = append(occupied, rec.BedID)
	}
	if stale := s.inv.Load(hostels, beds, occupied); len(stale) > 0 {
		s.logger.Warn("Ignoring beds missing from the layout", zap.Strings("bed_ids", stale))
	}
	return nil
}
