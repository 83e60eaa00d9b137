// Package inventory keeps the authoritative in-memory view of which beds are
// free. Reservations are serialized per (hostel, room type) partition.
package inventory

import (
	"container/heap"
	"errors"
	"fmt"
	"sort"
	"sync"

	"hostel-allotment-backend/internal/model"
	"hostel-allotment-backend/internal/parse"
)

var (
	ErrNotAvailable   = errors.New("no bed available")
	ErrUnknownBed     = errors.New("unknown bed")
	ErrBedNotOccupied = errors.New("bed is not occupied")
	ErrUnknownHostel  = errors.New("unknown hostel")
)

// Reservation is a bed handed out by Reserve.
type Reservation struct {
	BedID      string
	HostelID   int64
	HostelCode string
	Gender     model.Gender
	Floor      int
	RoomNumber string
	RoomType   model.RoomType
	BedIndex   int
}

// Counts is the occupancy summary of one hostel or one gender.
type Counts struct {
	SingleTotalBeds     int `json:"singleTotalBeds"`
	SingleOccupiedBeds  int `json:"singleOccupiedBeds"`
	SingleAvailableBeds int `json:"singleAvailableBeds"`
	TripleTotalBeds     int `json:"tripleTotalBeds"`
	TripleOccupiedBeds  int `json:"tripleOccupiedBeds"`
	TripleAvailableBeds int `json:"tripleAvailableBeds"`
}

// Add accumulates the counts for one room type.
func (c *Counts) Add(rt model.RoomType, total, occupied int) {
	switch rt {
	case model.RoomTypeSingle:
		c.SingleTotalBeds += total
		c.SingleOccupiedBeds += occupied
		c.SingleAvailableBeds += total - occupied
	case model.RoomTypeTriple:
		c.TripleTotalBeds += total
		c.TripleOccupiedBeds += occupied
		c.TripleAvailableBeds += total - occupied
	}
}

type partitionKey struct {
	hostelID int64
	roomType model.RoomType
}

type bedRef struct {
	part *partition
	pos  int
}

// Inventory is safe for concurrent use. Load replaces the whole arena and must
// not race with reservations.
type Inventory struct {
	mu         sync.RWMutex
	hostels    map[int64]model.HostelBlock
	order      []int64
	partitions map[partitionKey]*partition
	beds       map[string]bedRef
}

// New returns an empty inventory.
func New() *Inventory {
	return &Inventory{
		hostels:    make(map[int64]model.HostelBlock),
		partitions: make(map[partitionKey]*partition),
		beds:       make(map[string]bedRef),
	}
}

// Load rebuilds the arena from bed definitions and the IDs of beds that are
// currently occupied. Beds of unknown hostels and occupied IDs that match no
// bed are skipped and returned as stale.
func (inv *Inventory) Load(hostels []model.HostelBlock, beds []model.Bed, occupied []string) (stale []string) {
	hostelByID := make(map[int64]model.HostelBlock, len(hostels))
	order := make([]int64, 0, len(hostels))
	for _, h := range hostels {
		hostelByID[h.HostelID] = h
		order = append(order, h.HostelID)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	grouped := make(map[partitionKey][]model.Bed)
	for _, b := range beds {
		if _, ok := hostelByID[b.HostelID]; !ok {
			stale = append(stale, b.BedID)
			continue
		}
		k := partitionKey{b.HostelID, b.RoomType}
		grouped[k] = append(grouped[k], b)
	}

	partitions := make(map[partitionKey]*partition, len(grouped))
	refs := make(map[string]bedRef, len(beds))
	for k, group := range grouped {
		p := newPartition(hostelByID[k.hostelID], group)
		partitions[k] = p
		for i, b := range p.beds {
			refs[b.BedID] = bedRef{part: p, pos: i}
		}
	}

	for _, bedID := range occupied {
		ref, ok := refs[bedID]
		if !ok {
			stale = append(stale, bedID)
			continue
		}
		if ref.part.occupied[ref.pos] {
			continue
		}
		ref.part.occupied[ref.pos] = true
		ref.part.free--
	}

	inv.mu.Lock()
	inv.hostels = hostelByID
	inv.order = order
	inv.partitions = partitions
	inv.beds = refs
	inv.mu.Unlock()

	sort.Strings(stale)
	return stale
}

// Hostels returns the loaded hostels in ID order.
func (inv *Inventory) Hostels() []model.HostelBlock {
	inv.mu.RLock()
	defer inv.mu.RUnlock()

	out := make([]model.HostelBlock, 0, len(inv.order))
	for _, id := range inv.order {
		out = append(out, inv.hostels[id])
	}
	return out
}

// Reserve takes the first free bed of the given type in a hostel, in
// (floor, room, bed index) order.
func (inv *Inventory) Reserve(hostelID int64, rt model.RoomType) (Reservation, error) {
	inv.mu.RLock()
	_, known := inv.hostels[hostelID]
	p := inv.partitions[partitionKey{hostelID, rt}]
	inv.mu.RUnlock()

	if !known {
		return Reservation{}, fmt.Errorf("%w: %d", ErrUnknownHostel, hostelID)
	}
	if p == nil {
		return Reservation{}, ErrNotAvailable
	}
	return p.reserve()
}

// ReserveForGender walks the hostels of a gender in ID order and reserves
// from the first one with a free bed of the given type.
func (inv *Inventory) ReserveForGender(g model.Gender, rt model.RoomType) (Reservation, error) {
	inv.mu.RLock()
	var parts []*partition
	for _, id := range inv.order {
		if inv.hostels[id].GenderSegregation != g {
			continue
		}
		if p := inv.partitions[partitionKey{id, rt}]; p != nil {
			parts = append(parts, p)
		}
	}
	inv.mu.RUnlock()

	for _, p := range parts {
		r, err := p.reserve()
		if errors.Is(err, ErrNotAvailable) {
			continue
		}
		return r, err
	}
	return Reservation{}, ErrNotAvailable
}

// Release frees a previously reserved or loaded bed.
func (inv *Inventory) Release(bedID string) error {
	inv.mu.RLock()
	ref, ok := inv.beds[bedID]
	inv.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownBed, bedID)
	}
	return ref.part.release(ref.pos)
}

// Snapshot returns the live counts of one hostel.
func (inv *Inventory) Snapshot(hostelID int64) (Counts, error) {
	inv.mu.RLock()
	_, known := inv.hostels[hostelID]
	parts := make(map[model.RoomType]*partition, len(model.RoomTypes))
	for _, rt := range model.RoomTypes {
		if p := inv.partitions[partitionKey{hostelID, rt}]; p != nil {
			parts[rt] = p
		}
	}
	inv.mu.RUnlock()

	if !known {
		return Counts{}, fmt.Errorf("%w: %d", ErrUnknownHostel, hostelID)
	}

	var c Counts
	for rt, p := range parts {
		total, occupied := p.counts()
		c.Add(rt, total, occupied)
	}
	return c, nil
}

// partition owns the beds of one hostel and room type.
type partition struct {
	mu       sync.Mutex
	hostel   model.HostelBlock
	beds     []model.Bed
	occupied []bool
	free     int
	cursor   int
	released posHeap
}

func newPartition(h model.HostelBlock, beds []model.Bed) *partition {
	sort.Slice(beds, func(i, j int) bool {
		a, b := beds[i], beds[j]
		if a.FloorNumber != b.FloorNumber {
			return a.FloorNumber < b.FloorNumber
		}
		if c := parse.CompareRooms(a.RoomNumber, b.RoomNumber); c != 0 {
			return c < 0
		}
		return a.BedIndex < b.BedIndex
	})
	return &partition{
		hostel:   h,
		beds:     beds,
		occupied: make([]bool, len(beds)),
		free:     len(beds),
	}
}

func (p *partition) reserve() (Reservation, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var pos int
	// Everything below the cursor is occupied unless it sits in the heap.
	if p.released.Len() > 0 {
		pos = heap.Pop(&p.released).(int)
	} else {
		for p.cursor < len(p.beds) && p.occupied[p.cursor] {
			p.cursor++
		}
		if p.cursor == len(p.beds) {
			return Reservation{}, ErrNotAvailable
		}
		pos = p.cursor
		p.cursor++
	}

	p.occupied[pos] = true
	p.free--
	b := p.beds[pos]
	return Reservation{
		BedID:      b.BedID,
		HostelID:   b.HostelID,
		HostelCode: p.hostel.Code,
		Gender:     p.hostel.GenderSegregation,
		Floor:      b.FloorNumber,
		RoomNumber: b.RoomNumber,
		RoomType:   b.RoomType,
		BedIndex:   b.BedIndex,
	}, nil
}

func (p *partition) release(pos int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.occupied[pos] {
		return fmt.Errorf("%w: %s", ErrBedNotOccupied, p.beds[pos].BedID)
	}
	p.occupied[pos] = false
	p.free++
	if pos < p.cursor {
		heap.Push(&p.released, pos)
	}
	return nil
}

func (p *partition) counts() (total, occupied int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.beds), len(p.beds) - p.free
}

// posHeap is a min-heap of bed positions.
type posHeap []int

func (h posHeap) Len() int           { return len(h) }
func (h posHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h posHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *posHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *posHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
