package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"hostel-allotment-backend/internal/allotment"
	"hostel-allotment-backend/internal/model"
)

func TestWriteAllottedStudents(t *testing.T) {
	rows := []allotment.AllottedStudent{
		{
			Name:       "Asha",
			RollNumber: "R1",
			CourseName: "B.Tech",
			StudentProfileID: allotment.StudentProfile{
				ID:            "s1",
				Email:         "asha@example.edu",
				Gender:        model.GenderFemale,
				AdmissionYear: 2023,
				SgpaOdd:       9,
				SgpaEven:      8.5,
			},
			RoomPreference:     model.PreferenceTriple,
			AllottedHostelType: "girls",
			AllottedRoomNumber: "204",
			AllottedBedID:      "GH1-204-2",
			Floor:              2,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteAllottedStudents(&buf, rows))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{sheetName}, f.GetSheetList())

	got, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, headers, got[0])
	assert.Equal(t, []string{
		"Asha", "R1", "B.Tech", "asha@example.edu", "girls", "2023",
		"9", "8.5", "triple", "GH1", "2", "204", "GH1-204-2",
	}, got[1])
}

func TestWriteAllottedStudents_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteAllottedStudents(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetRows(sheetName)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
