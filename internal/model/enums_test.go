package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGender(t *testing.T) {
	testCases := []struct {
		raw       string
		expected  Gender
		expectErr bool
	}{
		{raw: "male", expected: GenderMale},
		{raw: "Boys", expected: GenderMale},
		{raw: " female ", expected: GenderFemale},
		{raw: "girls", expected: GenderFemale},
		{raw: "other", expectErr: true},
		{raw: "", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.raw, func(t *testing.T) {
			g, err := ParseGender(tc.raw)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, g)
		})
	}
}

func TestGenderLabel(t *testing.T) {
	assert.Equal(t, "boys", GenderMale.Label())
	assert.Equal(t, "girls", GenderFemale.Label())
	assert.Equal(t, "", Gender("x").Label())
}

func TestRoomPreference_RoomType(t *testing.T) {
	rt, ok := PreferenceSingle.RoomType()
	assert.True(t, ok)
	assert.Equal(t, RoomTypeSingle, rt)

	rt, ok = PreferenceTriple.RoomType()
	assert.True(t, ok)
	assert.Equal(t, RoomTypeTriple, rt)

	_, ok = PreferenceDouble.RoomType()
	assert.False(t, ok, "no hostel has double rooms")

	_, ok = PreferenceNone.RoomType()
	assert.False(t, ok)
}

func TestRoomTypeCapacity(t *testing.T) {
	assert.Equal(t, 1, RoomTypeSingle.Capacity())
	assert.Equal(t, 3, RoomTypeTriple.Capacity())
	assert.Equal(t, 0, RoomType("double").Capacity())
}

func TestEnumsRejectUnknownValues(t *testing.T) {
	var g Gender
	assert.Error(t, g.Scan("unknown"))
	assert.Error(t, g.Scan(nil))
	require.NoError(t, g.Scan([]byte("female")))
	assert.Equal(t, GenderFemale, g)

	var rt RoomType
	assert.Error(t, rt.Scan("double"))

	var p RoomPreference
	require.NoError(t, p.Scan(nil))
	assert.Equal(t, PreferenceNone, p)
	assert.Error(t, p.Scan("quad"))

	_, err := Gender("").Value()
	assert.Error(t, err)
	_, err = AllotmentStatus("pending").Value()
	assert.Error(t, err)
}

func TestStudentApplication_JSONRejectsBadGender(t *testing.T) {
	var app StudentApplication
	err := json.Unmarshal([]byte(`{"studentId":"s1","gender":"robot"}`), &app)
	assert.Error(t, err)

	err = json.Unmarshal([]byte(`{"studentId":"s1","gender":"girls","roomPreference":"Triple"}`), &app)
	require.NoError(t, err)
	assert.Equal(t, GenderFemale, app.Gender)
	assert.Equal(t, PreferenceTriple, app.RoomPreference)
}

func TestAverageSGPA(t *testing.T) {
	s := StudentApplication{SgpaOdd: 8.0, SgpaEven: 9.0}
	assert.InDelta(t, 8.5, s.AverageSGPA(), 1e-9)
}
