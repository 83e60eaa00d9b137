// Package layout reads the physical hostel layout (hostels, floors, rooms and
// beds) from a YAML file.
package layout

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"

	"hostel-allotment-backend/internal/model"
	"hostel-allotment-backend/internal/parse"
)

// File mirrors the YAML document.
type File struct {
	Hostels []HostelSpec `yaml:"hostels"`
}

// HostelSpec describes one hostel block.
type HostelSpec struct {
	ID     int64       `yaml:"id"`
	Code   string      `yaml:"code"`
	Name   string      `yaml:"name"`
	Gender string      `yaml:"gender"`
	Rooms  []RoomGroup `yaml:"rooms"`
}

// RoomGroup is a set of rooms sharing a type. Rooms are listed explicitly,
// as a numeric range, or both. Floor overrides the floor derived from the room number.
type RoomGroup struct {
	Type    string   `yaml:"type"`
	Numbers []string `yaml:"numbers"`
	From    int      `yaml:"from"`
	To      int      `yaml:"to"`
	Floor   *int     `yaml:"floor"`
}

// Layout is the flattened set of rows to persist.
type Layout struct {
	Hostels []model.HostelBlock
	Floors  []model.Floor
	Rooms   []model.Room
	Beds    []model.Bed
}

// Load reads and validates the layout file at path.
func Load(path string) (*Layout, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Parse(f)
}

// Parse decodes a layout document and expands it into rows.
func Parse(r io.Reader) (*Layout, error) {
	var file File
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to decode layout: %w", err)
	}
	return file.Expand()
}

// Expand validates the document and produces one row per hostel, floor, room and bed.
func (f *File) Expand() (*Layout, error) {
	if len(f.Hostels) == 0 {
		return nil, fmt.Errorf("layout defines no hostels")
	}

	out := &Layout{}
	seenIDs := make(map[int64]bool)
	seenCodes := make(map[string]bool)

	for _, h := range f.Hostels {
		if h.ID <= 0 {
			return nil, fmt.Errorf("hostel %q: id must be positive", h.Code)
		}
		if h.Code == "" {
			return nil, fmt.Errorf("hostel %d: code is required", h.ID)
		}
		if seenIDs[h.ID] || seenCodes[h.Code] {
			return nil, fmt.Errorf("hostel %d (%s) is defined twice", h.ID, h.Code)
		}
		seenIDs[h.ID], seenCodes[h.Code] = true, true

		gender, err := model.ParseGender(h.Gender)
		if err != nil {
			return nil, fmt.Errorf("hostel %s: %w", h.Code, err)
		}
		name := h.Name
		if name == "" {
			name = h.Code
		}
		out.Hostels = append(out.Hostels, model.HostelBlock{
			HostelID:          h.ID,
			Code:              h.Code,
			Name:              name,
			GenderSegregation: gender,
		})

		if err := out.expandRooms(h); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func (l *Layout) expandRooms(h HostelSpec) error {
	floors := make(map[int]bool)
	seenRooms := make(map[string]bool)

	for _, g := range h.Rooms {
		roomType, err := model.ParseRoomType(g.Type)
		if err != nil {
			return fmt.Errorf("hostel %s: %w", h.Code, err)
		}

		numbers := append([]string(nil), g.Numbers...)
		if g.From > 0 || g.To > 0 {
			if g.From <= 0 || g.To < g.From {
				return fmt.Errorf("hostel %s: invalid room range %d-%d", h.Code, g.From, g.To)
			}
			for n := g.From; n <= g.To; n++ {
				numbers = append(numbers, strconv.Itoa(n))
			}
		}
		if len(numbers) == 0 {
			return fmt.Errorf("hostel %s: room group of type %s lists no rooms", h.Code, roomType)
		}

		for _, raw := range numbers {
			number := parse.NormalizeRoom(raw)
			if seenRooms[number] {
				return fmt.Errorf("hostel %s: room %s is defined twice", h.Code, number)
			}
			seenRooms[number] = true

			floor, err := parse.FloorOfRoom(number)
			if err != nil {
				return fmt.Errorf("hostel %s: %w", h.Code, err)
			}
			if g.Floor != nil {
				floor = *g.Floor
			}
			floors[floor] = true

			l.Rooms = append(l.Rooms, model.Room{
				HostelID:    h.ID,
				RoomNumber:  number,
				FloorNumber: floor,
				RoomType:    roomType,
				Capacity:    roomType.Capacity(),
			})
			for i := 1; i <= roomType.Capacity(); i++ {
				l.Beds = append(l.Beds, model.Bed{
					BedID:       parse.FormatBedID(h.Code, number, i),
					HostelID:    h.ID,
					FloorNumber: floor,
					RoomNumber:  number,
					RoomType:    roomType,
					BedIndex:    i,
				})
			}
		}
	}

	floorNumbers := make([]int, 0, len(floors))
	for f := range floors {
		floorNumbers = append(floorNumbers, f)
	}
	sort.Ints(floorNumbers)
	for _, f := range floorNumbers {
		l.Floors = append(l.Floors, model.Floor{HostelID: h.ID, FloorNumber: f})
	}
	return nil
}

// TotalBeds counts the beds per hostel and room type.
func (l *Layout) TotalBeds() map[int64]map[model.RoomType]int {
	totals := make(map[int64]map[model.RoomType]int)
	for _, b := range l.Beds {
		if totals[b.HostelID] == nil {
			totals[b.HostelID] = make(map[model.RoomType]int)
		}
		totals[b.HostelID][b.RoomType]++
	}
	return totals
}
