package allotment

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"hostel-allotment-backend/internal/inventory"
	"hostel-allotment-backend/internal/model"
)

// Availability is the per-gender view served to the dashboard.
type Availability struct {
	Boys  inventory.Counts `json:"boys"`
	Girls inventory.Counts `json:"girls"`
}

// HostelAvailability is the live count of one hostel.
type HostelAvailability struct {
	HostelID int64  `json:"hostelId"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	Gender   string `json:"gender"`
	inventory.Counts
}

// Drift is one counter that disagreed with the allotment records.
type Drift struct {
	HostelID         int64          `json:"hostelId"`
	RoomType         model.RoomType `json:"roomType"`
	PreviousTotal    int            `json:"previousTotal"`
	PreviousOccupied int            `json:"previousOccupied"`
	Total            int            `json:"total"`
	Occupied         int            `json:"occupied"`
}

// ReconcileReport summarizes what reconciliation repaired.
type ReconcileReport struct {
	Drift        []Drift  `json:"drift"`
	BedsRepaired int      `json:"bedsRepaired"`
	StaleRecords []string `json:"staleRecords"`
}

// Availability aggregates the capacity counters per gender.
func (s *Service) Availability(ctx context.Context) (*Availability, error) {
	hostels, err := s.store.ListHostels(ctx)
	if err != nil {
		return nil, err
	}
	counters, err := s.store.ListCounters(ctx)
	if err != nil {
		return nil, err
	}

	genderOf := make(map[int64]model.Gender, len(hostels))
	for _, h := range hostels {
		genderOf[h.HostelID] = h.GenderSegregation
	}

	var out Availability
	for _, c := range counters {
		switch genderOf[c.HostelID] {
		case model.GenderMale:
			out.Boys.Add(c.RoomType, c.TotalBeds, c.OccupiedBeds)
		case model.GenderFemale:
			out.Girls.Add(c.RoomType, c.TotalBeds, c.OccupiedBeds)
		}
	}
	return &out, nil
}

// HostelAvailability returns the live inventory counts of every hostel.
func (s *Service) HostelAvailability() ([]HostelAvailability, error) {
	hostels := s.inv.Hostels()
	out := make([]HostelAvailability, 0, len(hostels))
	for _, h := range hostels {
		c, err := s.inv.Snapshot(h.HostelID)
		if err != nil {
			return nil, err
		}
		out = append(out, HostelAvailability{
			HostelID: h.HostelID,
			Code:     h.Code,
			Name:     h.Name,
			Gender:   h.GenderSegregation.Label(),
			Counts:   c,
		})
	}
	return out, nil
}

type counterKey struct {
	hostelID int64
	roomType model.RoomType
}

// Reconcile recomputes every counter and bed occupant from the active
// allotment records, then reloads the inventory.
func (s *Service) Reconcile(ctx context.Context) (*ReconcileReport, error) {
	unlock, err := s.lock.TryLock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	hostels, err := s.store.ListHostels(ctx)
	if err != nil {
		return nil, err
	}
	beds, err := s.store.ListBeds(ctx)
	if err != nil {
		return nil, err
	}
	active, err := s.store.ActiveAllotments(ctx)
	if err != nil {
		return nil, err
	}
	previous, err := s.store.ListCounters(ctx)
	if err != nil {
		return nil, err
	}

	known := make(map[int64]bool, len(hostels))
	for _, h := range hostels {
		known[h.HostelID] = true
	}

	totals := make(map[counterKey]int)
	bedByID := make(map[string]model.Bed, len(beds))
	for _, b := range beds {
		if !known[b.HostelID] {
			continue
		}
		bedByID[b.BedID] = b
		totals[counterKey{b.HostelID, b.RoomType}]++
	}

	report := &ReconcileReport{}
	occupied := make(map[counterKey]int)
	occupants := make(map[string]string, len(active))
	for _, rec := range active {
		b, ok := bedByID[rec.BedID]
		if !ok {
			report.StaleRecords = append(report.StaleRecords, rec.BedID)
			continue
		}
		occupants[b.BedID] = rec.StudentID
		occupied[counterKey{b.HostelID, b.RoomType}]++
	}

	for _, b := range bedByID {
		want, has := occupants[b.BedID]
		switch {
		case has && (b.OccupantStudentID == nil || *b.OccupantStudentID != want):
			report.BedsRepaired++
		case !has && b.OccupantStudentID != nil:
			report.BedsRepaired++
		}
	}

	prev := make(map[counterKey]model.CapacityCounter, len(previous))
	for _, c := range previous {
		prev[counterKey{c.HostelID, c.RoomType}] = c
	}

	keys := make([]counterKey, 0, len(totals))
	for k := range totals {
		keys = append(keys, k)
	}
	for k := range prev {
		if _, ok := totals[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].hostelID != keys[j].hostelID {
			return keys[i].hostelID < keys[j].hostelID
		}
		return keys[i].roomType < keys[j].roomType
	})

	now := s.now()
	counters := make([]model.CapacityCounter, 0, len(totals))
	for _, k := range keys {
		total, occ := totals[k], occupied[k]
		p, had := prev[k]
		if !had || p.TotalBeds != total || p.OccupiedBeds != occ || p.AvailableBeds != total-occ {
			report.Drift = append(report.Drift, Drift{
				HostelID:         k.hostelID,
				RoomType:         k.roomType,
				PreviousTotal:    p.TotalBeds,
				PreviousOccupied: p.OccupiedBeds,
				Total:            total,
				Occupied:         occ,
			})
		}
		if total == 0 {
			continue
		}
		counters = append(counters, model.CapacityCounter{
			HostelID:      k.hostelID,
			RoomType:      k.roomType,
			TotalBeds:     total,
			OccupiedBeds:  occ,
			AvailableBeds: total - occ,
			UpdatedAt:     now,
		})
	}

	if err := s.store.RewriteCounters(ctx, counters, occupants); err != nil {
		return nil, fmt.Errorf("failed to rewrite counters: %w", err)
	}

	occupiedIDs := make([]string, 0, len(occupants))
	for bedID := range occupants {
		occupiedIDs = append(occupiedIDs, bedID)
	}
	s.inv.Load(hostels, beds, occupiedIDs)

	sort.Strings(report.StaleRecords)
	if len(report.Drift) > 0 || report.BedsRepaired > 0 || len(report.StaleRecords) > 0 {
		s.logger.Warn("Reconciliation repaired drift",
			zap.Int("counters", len(report.Drift)),
			zap.Int("beds", report.BedsRepaired),
			zap.Strings("stale_records", report.StaleRecords))
	} else {
		s.logger.Info("Reconciliation found no drift")
	}
	return report, nil
}
