package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	roomRe  = regexp.MustCompile(`^([A-Za-z]*)\s*-?\s*(\d+)$`)
	bedIdRe = regexp.MustCompile(`^(.+)-([A-Za-z]*\d+)-(\d+)$`)
)

// ParsedBed holds the structured parts of a bed ID such as "BH1-204-2".
type ParsedBed struct {
	Hostel string
	Room   string
	Floor  int
	Bed    int
}

// FormatBedID builds the canonical bed ID for a bed inside a room.
func FormatBedID(hostelCode, roomNumber string, bedIndex int) string {
	return fmt.Sprintf("%s-%s-%d", strings.TrimSpace(hostelCode), NormalizeRoom(roomNumber), bedIndex)
}

// NormalizeRoom trims spaces and the optional dash between a wing letter and the number ("A-204" -> "A204").
func NormalizeRoom(raw string) string {
	s := strings.TrimSpace(raw)
	if m := roomRe.FindStringSubmatch(s); m != nil {
		return strings.ToUpper(m[1]) + m[2]
	}
	return s
}

// FloorOfRoom derives the floor from a room number: the digits above the last
// two are the floor, so "204" is on floor 2, "1012" on floor 10 and "12" on the ground floor.
func FloorOfRoom(raw string) (int, error) {
	m := roomRe.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return 0, fmt.Errorf("unable to parse room number: %q", raw)
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, fmt.Errorf("unable to parse room number %q: %w", raw, err)
	}
	return n / 100, nil
}

// CompareRooms orders room numbers numerically when both parse, falling back
// to string order, so "99" sorts before "101".
func CompareRooms(a, b string) int {
	ma, mb := roomRe.FindStringSubmatch(a), roomRe.FindStringSubmatch(b)
	if ma != nil && mb != nil {
		if c := strings.Compare(strings.ToUpper(ma[1]), strings.ToUpper(mb[1])); c != 0 {
			return c
		}
		na, errA := strconv.Atoi(ma[2])
		nb, errB := strconv.Atoi(mb[2])
		if errA == nil && errB == nil && na != nb {
			if na < nb {
				return -1
			}
			return 1
		}
	}
	return strings.Compare(a, b)
}

// ParseBedID splits a bed ID into hostel code, room, floor and bed index.
// The hostel code may itself contain dashes.
func ParseBedID(raw string) (ParsedBed, error) {
	s := strings.TrimSpace(raw)
	m := bedIdRe.FindStringSubmatch(s)
	if m == nil {
		return ParsedBed{}, fmt.Errorf("unable to parse bed id: %q", raw)
	}

	bed, err := strconv.Atoi(m[3])
	if err != nil || bed <= 0 {
		return ParsedBed{}, fmt.Errorf("invalid bed index in %q", raw)
	}

	floor, err := FloorOfRoom(m[2])
	if err != nil {
		return ParsedBed{}, err
	}

	return ParsedBed{Hostel: m[1], Room: NormalizeRoom(m[2]), Floor: floor, Bed: bed}, nil
}
