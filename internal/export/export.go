// Package export renders allotment listings as spreadsheets.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"hostel-allotment-backend/internal/allotment"
	"hostel-allotment-backend/internal/parse"
)

const sheetName = "Allotted Students"

var headers = []string{
	"Name", "Roll Number", "Course", "Email", "Gender", "Admission Year",
	"SGPA (Odd)", "SGPA (Even)", "Preference", "Hostel", "Floor", "Room", "Bed",
}

// WriteAllottedStudents writes rows as an XLSX workbook to w.
func WriteAllottedStudents(w io.Writer, rows []allotment.AllottedStudent) error {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to drop default sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for i, h := range headers {
		c, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, c, h); err != nil {
			return err
		}
	}
	last, _ := excelize.ColumnNumberToName(len(headers))
	if err := f.SetCellStyle(sheetName, "A1", last+"1", headerStyle); err != nil {
		return err
	}
	_ = f.SetColWidth(sheetName, "A", "A", 24)
	_ = f.SetColWidth(sheetName, "B", last, 14)

	for r, row := range rows {
		values := []any{
			row.Name,
			row.RollNumber,
			row.CourseName,
			row.StudentProfileID.Email,
			row.AllottedHostelType,
			row.StudentProfileID.AdmissionYear,
			row.StudentProfileID.SgpaOdd,
			row.StudentProfileID.SgpaEven,
			string(row.RoomPreference),
			hostelOf(row.AllottedBedID),
			row.Floor,
			row.AllottedRoomNumber,
			row.AllottedBedID,
		}
		c, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(sheetName, c, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", r+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// hostelOf extracts the hostel code from a bed ID, or "" when it does not parse.
func hostelOf(bedID string) string {
	p, err := parse.ParseBedID(bedID)
	if err != nil {
		return ""
	}
	return p.Hostel
}
