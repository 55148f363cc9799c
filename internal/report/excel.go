// Package report renders custody data as Excel workbooks for offline
// review.
package report

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"rosterwatch/internal/models"
)

// rosterHeader is the column layout of a facility sheet.
var rosterHeader = []string{
	"Name",
	"Date of Birth",
	"Sex",
	"Race",
	"Arrest Date",
	"Cell Block",
	"Holding Agency",
	"Charges",
	"Last Seen",
}

// FacilityRoster pairs one facility with its current open records.
type FacilityRoster struct {
	Facility *models.Facility
	Records  []*models.CustodyRecord
}

// GenerateRosterWorkbook builds a workbook with one sheet per facility.
func GenerateRosterWorkbook(rosters []FacilityRoster) ([]byte, error) {
	if len(rosters) == 0 {
		return nil, fmt.Errorf("no facilities to export")
	}

	f := excelize.NewFile()
	// Don't defer Close() before WriteTo: it needs the file open.

	for i, roster := range rosters {
		sheetName := sheetNameFor(roster.Facility)
		if i == 0 {
			// Reuse the default sheet for the first facility.
			if err := f.SetSheetName("Sheet1", sheetName); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to rename sheet: %w", err)
			}
		} else {
			if _, err := f.NewSheet(sheetName); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to create sheet: %w", err)
			}
		}

		for col, header := range rosterHeader {
			cell, err := excelize.CoordinatesToCellName(col+1, 1)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to compute header cell: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, header); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to write header: %w", err)
			}
		}

		for row, rec := range roster.Records {
			values := []interface{}{
				rec.Name,
				rec.DateOfBirth,
				rec.Sex,
				rec.Race,
				rec.ArrestDate,
				rec.CellBlock,
				rec.HoldingAgency,
				rec.Charges,
				rec.LastSeen.Format("2006-01-02 15:04:05"),
			}
			for col, value := range values {
				cell, err := excelize.CoordinatesToCellName(col+1, row+2)
				if err != nil {
					f.Close()
					return nil, fmt.Errorf("failed to compute cell: %w", err)
				}
				if err := f.SetCellValue(sheetName, cell, value); err != nil {
					f.Close()
					return nil, fmt.Errorf("failed to write cell: %w", err)
				}
			}
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// sheetNameFor keeps sheet names inside Excel's 31-character limit.
func sheetNameFor(fac *models.Facility) string {
	name := fac.FacilityName
	if name == "" {
		name = fac.FacilityID
	}
	if len(name) > 31 {
		name = name[:31]
	}
	return name
}
