package allocation

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hostel-allotment-backend/internal/eligibility"
	"hostel-allotment-backend/internal/inventory"
	"hostel-allotment-backend/internal/model"
	"hostel-allotment-backend/internal/parse"
)

func newInventory(singles, triples map[model.Gender]int) *inventory.Inventory {
	hostels := []model.HostelBlock{
		{HostelID: 1, Code: "BH1", Name: "BH1", GenderSegregation: model.GenderMale},
		{HostelID: 2, Code: "GH1", Name: "GH1", GenderSegregation: model.GenderFemale},
	}
	var beds []model.Bed
	for _, h := range hostels {
		for r := 0; r < singles[h.GenderSegregation]; r++ {
			room := fmt.Sprint(101 + r)
			beds = append(beds, model.Bed{BedID: parse.FormatBedID(h.Code, room, 1), HostelID: h.HostelID, FloorNumber: 1, RoomNumber: room, RoomType: model.RoomTypeSingle, BedIndex: 1})
		}
		for r := 0; r < triples[h.GenderSegregation]; r++ {
			room := fmt.Sprint(201 + r)
			for b := 1; b <= 3; b++ {
				beds = append(beds, model.Bed{BedID: parse.FormatBedID(h.Code, room, b), HostelID: h.HostelID, FloorNumber: 2, RoomNumber: room, RoomType: model.RoomTypeTriple, BedIndex: b})
			}
		}
	}
	inv := inventory.New()
	inv.Load(hostels, beds, nil)
	return inv
}

func student(id string, g model.Gender, pref model.RoomPreference, year int, sgpa float64) model.StudentApplication {
	return model.StudentApplication{
		StudentID:      id,
		Name:           "Student " + id,
		Gender:         g,
		RollNumber:     "R-" + id,
		AdmissionYear:  year,
		SgpaOdd:        sgpa,
		SgpaEven:       sgpa,
		RoomPreference: pref,
		Eligible:       true,
	}
}

func TestAllocate_FiveBoysThreeSingles(t *testing.T) {
	inv := newInventory(map[model.Gender]int{model.GenderMale: 3}, nil)
	e := NewEngine(inv, Options{Workers: 2}, zap.NewNop())

	var apps []model.StudentApplication
	for i := 1; i <= 5; i++ {
		apps = append(apps, student(fmt.Sprint(i), model.GenderMale, model.PreferenceSingle, 2023, 10-float64(i)))
	}

	res, err := e.Allocate(context.Background(), eligibility.Filter(apps))
	require.NoError(t, err)

	require.Len(t, res.Assigned, 3)
	assert.Equal(t, "1", res.Assigned[0].Student.StudentID)
	assert.Equal(t, "BH1-101-1", res.Assigned[0].Bed.BedID)
	assert.Equal(t, "BH1-103-1", res.Assigned[2].Bed.BedID)

	require.Len(t, res.Unallotted, 2)
	for _, u := range res.Unallotted {
		assert.Equal(t, ReasonNoCapacity, u.Reason)
	}
	assert.Equal(t, []string{"4", "5"}, []string{res.Unallotted[0].StudentID, res.Unallotted[1].StudentID})

	c, err := inv.Snapshot(1)
	require.NoError(t, err)
	assert.Equal(t, 0, c.SingleAvailableBeds)
}

func TestAllocate_OlderCohortsFirst(t *testing.T) {
	inv := newInventory(map[model.Gender]int{model.GenderMale: 3}, nil)
	e := NewEngine(inv, Options{Workers: 4}, zap.NewNop())

	apps := []model.StudentApplication{
		student("a", model.GenderMale, model.PreferenceSingle, 2023, 9.8),
		student("b", model.GenderMale, model.PreferenceSingle, 2021, 6.0),
		student("c", model.GenderMale, model.PreferenceSingle, 2022, 7.5),
		student("d", model.GenderMale, model.PreferenceSingle, 2021, 8.0),
		student("e", model.GenderMale, model.PreferenceSingle, 2023, 9.9),
	}

	res, err := e.Allocate(context.Background(), eligibility.Filter(apps))
	require.NoError(t, err)

	var got []string
	for _, a := range res.Assigned {
		got = append(got, a.Student.StudentID+"="+a.Bed.BedID)
	}
	assert.Equal(t, []string{"d=BH1-101-1", "b=BH1-102-1", "c=BH1-103-1"}, got)
	require.Len(t, res.Unallotted, 2)
	assert.Equal(t, "e", res.Unallotted[0].StudentID)
	assert.Equal(t, "a", res.Unallotted[1].StudentID)
}

func TestAllocate_NoDowngradeWithoutPolicy(t *testing.T) {
	inv := newInventory(map[model.Gender]int{model.GenderFemale: 0}, map[model.Gender]int{model.GenderFemale: 1})
	e := NewEngine(inv, Options{}, zap.NewNop())

	apps := []model.StudentApplication{
		student("g1", model.GenderFemale, model.PreferenceSingle, 2023, 9),
		student("g2", model.GenderFemale, model.PreferenceDouble, 2023, 8),
	}
	res, err := e.Allocate(context.Background(), apps)
	require.NoError(t, err)

	assert.Empty(t, res.Assigned)
	require.Len(t, res.Unallotted, 2)
	assert.Equal(t, ReasonNoCapacity, res.Unallotted[0].Reason)
	assert.Equal(t, ReasonNoCapacity, res.Unallotted[1].Reason, "double has no physical room type")
}

func TestAllocate_SingleToTriplePolicyRunsAfterExactPass(t *testing.T) {
	inv := newInventory(map[model.Gender]int{model.GenderMale: 1}, map[model.Gender]int{model.GenderMale: 1})
	e := NewEngine(inv, Options{Policy: PolicySingleToTriple}, zap.NewNop())

	apps := eligibility.Filter([]model.StudentApplication{
		student("a", model.GenderMale, model.PreferenceSingle, 2022, 9),
		student("b", model.GenderMale, model.PreferenceSingle, 2023, 9),
		student("c", model.GenderMale, model.PreferenceTriple, 2023, 8),
		student("d", model.GenderMale, model.PreferenceTriple, 2024, 8),
		student("e", model.GenderMale, model.PreferenceSingle, 2024, 7),
	})
	res, err := e.Allocate(context.Background(), apps)
	require.NoError(t, err)

	got := map[string]Assignment{}
	for _, a := range res.Assigned {
		got[a.Student.StudentID] = a
	}
	// Exact-preference triples are placed before any fallback is tried.
	assert.Equal(t, "BH1-201-1", got["c"].Bed.BedID)
	assert.Equal(t, "BH1-201-2", got["d"].Bed.BedID)
	assert.False(t, got["c"].Fallback)
	assert.Equal(t, "BH1-201-3", got["b"].Bed.BedID)
	assert.True(t, got["b"].Fallback)

	require.Len(t, res.Unallotted, 1)
	assert.Equal(t, "e", res.Unallotted[0].StudentID)
}

func TestAllocate_Deterministic(t *testing.T) {
	var apps []model.StudentApplication
	for i := 0; i < 40; i++ {
		g := model.GenderMale
		if i%2 == 1 {
			g = model.GenderFemale
		}
		pref := model.PreferenceTriple
		if i%3 == 0 {
			pref = model.PreferenceSingle
		}
		apps = append(apps, student(fmt.Sprintf("s%02d", i), g, pref, 2020+i%4, float64(i%7)))
	}
	candidates := eligibility.Filter(apps)

	run := func(workers int) []string {
		inv := newInventory(
			map[model.Gender]int{model.GenderMale: 3, model.GenderFemale: 2},
			map[model.Gender]int{model.GenderMale: 3, model.GenderFemale: 3},
		)
		res, err := NewEngine(inv, Options{Workers: workers}, zap.NewNop()).Allocate(context.Background(), candidates)
		require.NoError(t, err)
		var out []string
		for _, a := range res.Assigned {
			out = append(out, a.Student.StudentID+"="+a.Bed.BedID)
		}
		return out
	}

	first := run(1)
	assert.NotEmpty(t, first)
	assert.Equal(t, first, run(1))
	assert.Equal(t, first, run(8))
}

// crossedReserver hands out a bed from the wrong hostel.
type crossedReserver struct {
	released []string
	err      error
}

func (c *crossedReserver) ReserveForGender(g model.Gender, rt model.RoomType) (inventory.Reservation, error) {
	if c.err != nil {
		return inventory.Reservation{}, c.err
	}
	return inventory.Reservation{BedID: "GH1-101-1", HostelID: 2, Gender: model.GenderFemale, RoomType: rt}, nil
}

func (c *crossedReserver) Release(bedID string) error {
	c.released = append(c.released, bedID)
	return nil
}

func TestAllocate_InvariantViolationReleasesBed(t *testing.T) {
	r := &crossedReserver{}
	e := NewEngine(r, Options{}, zap.NewNop())

	res, err := e.Allocate(context.Background(), []model.StudentApplication{
		student("b1", model.GenderMale, model.PreferenceSingle, 2023, 9),
	})
	require.NoError(t, err)

	assert.Empty(t, res.Assigned)
	require.Len(t, res.Unallotted, 1)
	assert.Equal(t, ReasonInvariantViolated, res.Unallotted[0].Reason)
	assert.Equal(t, []string{"GH1-101-1"}, r.released)
}

func TestAllocate_ReserverErrorAborts(t *testing.T) {
	boom := errors.New("boom")
	e := NewEngine(&crossedReserver{err: boom}, Options{}, zap.NewNop())

	_, err := e.Allocate(context.Background(), []model.StudentApplication{
		student("b1", model.GenderMale, model.PreferenceSingle, 2023, 9),
	})
	assert.ErrorIs(t, err, boom)
}

func TestCheckAssignment(t *testing.T) {
	s := student("b1", model.GenderMale, model.PreferenceSingle, 2023, 9)
	ok := inventory.Reservation{BedID: "BH1-101-1", Gender: model.GenderMale, RoomType: model.RoomTypeSingle}

	assert.NoError(t, CheckAssignment(s, ok, model.RoomTypeSingle))
	assert.ErrorIs(t, CheckAssignment(s, ok, model.RoomTypeTriple), ErrInvariantViolation)

	crossed := ok
	crossed.Gender = model.GenderFemale
	assert.ErrorIs(t, CheckAssignment(s, crossed, model.RoomTypeSingle), ErrInvariantViolation)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyNone, p)

	p, err = ParsePolicy("single_to_triple")
	require.NoError(t, err)
	assert.Equal(t, PolicySingleToTriple, p)

	_, err = ParsePolicy("triple_to_single")
	assert.Error(t, err)
}
