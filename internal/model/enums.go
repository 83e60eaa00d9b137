package model

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// Gender is the gender a student registers with and a hostel is segregated by.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// ParseGender accepts the stored values and the dashboard labels ("boys", "girls").
func ParseGender(s string) (Gender, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male", "boys", "boy", "m":
		return GenderMale, nil
	case "female", "girls", "girl", "f":
		return GenderFemale, nil
	}
	return "", fmt.Errorf("unknown gender %q", s)
}

// Valid reports whether g is one of the known genders.
func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale
}

// Label returns the hostel side shown on the dashboard.
func (g Gender) Label() string {
	switch g {
	case GenderMale:
		return "boys"
	case GenderFemale:
		return "girls"
	}
	return ""
}

func (g *Gender) UnmarshalText(b []byte) error {
	parsed, err := ParseGender(string(b))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

func (g *Gender) Scan(v any) error {
	s, err := scanString(v)
	if err != nil {
		return err
	}
	return g.UnmarshalText([]byte(s))
}

func (g Gender) Value() (driver.Value, error) {
	if !g.Valid() {
		return nil, fmt.Errorf("invalid gender %q", string(g))
	}
	return string(g), nil
}

// RoomType is the physical kind of a room. Its capacity is fixed by the type.
type RoomType string

const (
	RoomTypeSingle RoomType = "single"
	RoomTypeTriple RoomType = "triple"
)

// RoomTypes lists the room types in report order.
var RoomTypes = []RoomType{RoomTypeSingle, RoomTypeTriple}

func ParseRoomType(s string) (RoomType, error) {
	switch RoomType(strings.ToLower(strings.TrimSpace(s))) {
	case RoomTypeSingle:
		return RoomTypeSingle, nil
	case RoomTypeTriple:
		return RoomTypeTriple, nil
	}
	return "", fmt.Errorf("unknown room type %q", s)
}

func (t RoomType) Valid() bool {
	return t == RoomTypeSingle || t == RoomTypeTriple
}

// Capacity is the number of beds in a room of this type.
func (t RoomType) Capacity() int {
	switch t {
	case RoomTypeSingle:
		return 1
	case RoomTypeTriple:
		return 3
	}
	return 0
}

func (t *RoomType) UnmarshalText(b []byte) error {
	parsed, err := ParseRoomType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t *RoomType) Scan(v any) error {
	s, err := scanString(v)
	if err != nil {
		return err
	}
	return t.UnmarshalText([]byte(s))
}

func (t RoomType) Value() (driver.Value, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid room type %q", string(t))
	}
	return string(t), nil
}

// RoomPreference is the room type a student asked for at registration.
// The empty preference means the student has not chosen yet.
type RoomPreference string

const (
	PreferenceNone   RoomPreference = ""
	PreferenceSingle RoomPreference = "single"
	PreferenceDouble RoomPreference = "double"
	PreferenceTriple RoomPreference = "triple"
)

func ParseRoomPreference(s string) (RoomPreference, error) {
	switch p := RoomPreference(strings.ToLower(strings.TrimSpace(s))); p {
	case PreferenceNone, PreferenceSingle, PreferenceDouble, PreferenceTriple:
		return p, nil
	}
	return "", fmt.Errorf("unknown room preference %q", s)
}

// RoomType maps the preference onto a physical room type. Double rooms do
// not exist in any hostel, so a double preference has no room type.
func (p RoomPreference) RoomType() (RoomType, bool) {
	switch p {
	case PreferenceSingle:
		return RoomTypeSingle, true
	case PreferenceTriple:
		return RoomTypeTriple, true
	}
	return "", false
}

func (p *RoomPreference) UnmarshalText(b []byte) error {
	parsed, err := ParseRoomPreference(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func (p *RoomPreference) Scan(v any) error {
	if v == nil {
		*p = PreferenceNone
		return nil
	}
	s, err := scanString(v)
	if err != nil {
		return err
	}
	return p.UnmarshalText([]byte(s))
}

func (p RoomPreference) Value() (driver.Value, error) {
	if _, err := ParseRoomPreference(string(p)); err != nil {
		return nil, err
	}
	return string(p), nil
}

// AllotmentStatus is the lifecycle state of an AllotmentRecord.
type AllotmentStatus string

const (
	StatusActive    AllotmentStatus = "active"
	StatusCancelled AllotmentStatus = "cancelled"
)

func (s AllotmentStatus) Valid() bool {
	return s == StatusActive || s == StatusCancelled
}

func (s *AllotmentStatus) Scan(v any) error {
	str, err := scanString(v)
	if err != nil {
		return err
	}
	status := AllotmentStatus(str)
	if !status.Valid() {
		return fmt.Errorf("unknown allotment status %q", str)
	}
	*s = status
	return nil
}

func (s AllotmentStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid allotment status %q", string(s))
	}
	return string(s), nil
}

func scanString(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case nil:
		return "", fmt.Errorf("unexpected NULL")
	}
	return "", fmt.Errorf("unsupported column type %T", v)
}
