// Package allocation assigns prioritized candidates to beds.
package allocation

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"hostel-allotment-backend/internal/inventory"
	"hostel-allotment-backend/internal/model"
)

const (
	ReasonNoCapacity        = "no capacity in preferred room type"
	ReasonInvariantViolated = "invariant violation"
)

var ErrInvariantViolation = errors.New("allotment invariant violated")

// Policy names an optional step that runs after the exact-preference pass.
type Policy string

const (
	PolicyNone           Policy = "none"
	PolicySingleToTriple Policy = "single_to_triple"
)

// ParsePolicy maps a config value to a Policy. Empty means none.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyNone:
		return PolicyNone, nil
	case PolicySingleToTriple:
		return PolicySingleToTriple, nil
	}
	return "", fmt.Errorf("unknown fallback policy %q", s)
}

// Reserver is the part of the inventory the engine draws beds from.
type Reserver interface {
	ReserveForGender(g model.Gender, rt model.RoomType) (inventory.Reservation, error)
	Release(bedID string) error
}

// Assignment pairs a student with a reserved bed.
type Assignment struct {
	Student  model.StudentApplication
	Bed      inventory.Reservation
	Fallback bool
}

// Unallotted is a candidate the run could not place.
type Unallotted struct {
	StudentID  string `json:"studentId"`
	Name       string `json:"name"`
	RollNumber string `json:"rollNumber"`
	Reason     string `json:"reason"`
}

// Result lists assignments and unallotted students, both in candidate order.
type Result struct {
	Assigned   []Assignment
	Unallotted []Unallotted
}

type Options struct {
	Workers int
	Policy  Policy
}

// Engine runs the greedy allocation.
type Engine struct {
	inv    Reserver
	opts   Options
	logger *zap.Logger
	tracer trace.Tracer
}

func NewEngine(inv Reserver, opts Options, logger *zap.Logger) *Engine {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Policy == "" {
		opts.Policy = PolicyNone
	}
	return &Engine{
		inv:    inv,
		opts:   opts,
		logger: logger,
		tracer: otel.Tracer("hostel-allotment-backend/internal/allocation"),
	}
}

type partitionKey struct {
	gender   model.Gender
	roomType model.RoomType
}

type outcome struct {
	bed      *inventory.Reservation
	fallback bool
	reason   string
}

// Allocate walks the candidates in order and reserves one bed of the
// preferred room type for each. Candidates of different (gender, room type)
// never compete for a bed, so those partitions run concurrently.
func (e *Engine) Allocate(ctx context.Context, candidates []model.StudentApplication) (*Result, error) {
	ctx, span := e.tracer.Start(ctx, "allocation.Allocate",
		trace.WithAttributes(attribute.Int("candidates", len(candidates))))
	defer span.End()

	outcomes := make([]outcome, len(candidates))
	partitions := make(map[partitionKey][]int)
	var keys []partitionKey
	for i, c := range candidates {
		rt, ok := c.RoomPreference.RoomType()
		if !ok {
			outcomes[i].reason = ReasonNoCapacity
			continue
		}
		k := partitionKey{c.Gender, rt}
		if _, seen := partitions[k]; !seen {
			keys = append(keys, k)
		}
		partitions[k] = append(partitions[k], i)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)
	for _, k := range keys {
		k, idx := k, partitions[k]
		g.Go(func() error {
			return e.fill(gctx, candidates, outcomes, idx, k.roomType, false)
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "allocation aborted")
		return nil, err
	}

	if e.opts.Policy == PolicySingleToTriple {
		var idx []int
		for i, c := range candidates {
			if outcomes[i].bed == nil && outcomes[i].reason == ReasonNoCapacity && c.RoomPreference == model.PreferenceSingle {
				idx = append(idx, i)
			}
		}
		if err := e.fill(ctx, candidates, outcomes, idx, model.RoomTypeTriple, true); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "fallback aborted")
			return nil, err
		}
	}

	res := &Result{}
	for i, c := range candidates {
		o := outcomes[i]
		if o.bed != nil {
			res.Assigned = append(res.Assigned, Assignment{Student: c, Bed: *o.bed, Fallback: o.fallback})
			continue
		}
		res.Unallotted = append(res.Unallotted, Unallotted{
			StudentID:  c.StudentID,
			Name:       c.Name,
			RollNumber: c.RollNumber,
			Reason:     o.reason,
		})
	}

	span.SetAttributes(
		attribute.Int("assigned", len(res.Assigned)),
		attribute.Int("unallotted", len(res.Unallotted)),
	)
	return res, nil
}

// fill reserves beds of one room type for the candidates at idx, in order.
// Each index is owned by exactly one caller, so outcomes needs no lock.
func (e *Engine) fill(ctx context.Context, candidates []model.StudentApplication, outcomes []outcome, idx []int, rt model.RoomType, fallback bool) error {
	for _, i := range idx {
		if err := ctx.Err(); err != nil {
			return err
		}
		c := candidates[i]

		bed, err := e.inv.ReserveForGender(c.Gender, rt)
		if errors.Is(err, inventory.ErrNotAvailable) {
			outcomes[i] = outcome{reason: ReasonNoCapacity}
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to reserve %s bed for student %s: %w", rt, c.StudentID, err)
		}

		if err := CheckAssignment(c, bed, rt); err != nil {
			e.logger.Error("Refusing assignment",
				zap.Bool("alert", true),
				zap.String("student_id", c.StudentID),
				zap.String("bed_id", bed.BedID),
				zap.Error(err))
			if relErr := e.inv.Release(bed.BedID); relErr != nil {
				e.logger.Error("Failed to release bed", zap.String("bed_id", bed.BedID), zap.Error(relErr))
			}
			outcomes[i] = outcome{reason: ReasonInvariantViolated}
			continue
		}

		b := bed
		outcomes[i] = outcome{bed: &b, fallback: fallback}
		if fallback {
			e.logger.Info("Applied fallback policy",
				zap.String("policy", string(PolicySingleToTriple)),
				zap.String("student_id", c.StudentID),
				zap.String("bed_id", bed.BedID))
		}
	}
	return nil
}

// CheckAssignment verifies a reservation of room type rt may be given to the student.
func CheckAssignment(student model.StudentApplication, bed inventory.Reservation, rt model.RoomType) error {
	if student.Gender != bed.Gender {
		return fmt.Errorf("%w: student %s is %s but bed %s is in a %s hostel",
			ErrInvariantViolation, student.StudentID, student.Gender, bed.BedID, bed.Gender)
	}
	if bed.RoomType != rt {
		return fmt.Errorf("%w: bed %s is %s, wanted %s", ErrInvariantViolation, bed.BedID, bed.RoomType, rt)
	}
	return nil
}
