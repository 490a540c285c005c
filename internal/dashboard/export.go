package dashboard

import (
	"fmt"
	"io"
	"time"

	"facilitymonitor/internal/models"
	"github.com/xuri/excelize/v2"
)

const exportSheet = "Data"

// ExportFilename names a workbook like "sensor-data_2025-01-31_14-05.xlsx".
func ExportFilename(kind models.ExportKind, now time.Time) string {
	return fmt.Sprintf("%s-data_%s.xlsx", exportSegment(kind), now.Format("2006-01-02_15-04"))
}

// WriteWorkbook renders data as a single-sheet workbook. Timestamps are
// written as text in loc.
func WriteWorkbook(w io.Writer, data models.ExportData, loc *time.Location) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return err
	}

	header := data.Header()
	headerCells := make([]any, len(header))
	for i, h := range header {
		headerCells[i] = h
	}
	if err := f.SetSheetRow(exportSheet, "A1", &headerCells); err != nil {
		return err
	}

	for i := 0; i < data.Len(); i++ {
		row := data.Row(i)
		for j, cell := range row {
			if ts, ok := cell.(time.Time); ok {
				row[j] = ts.In(loc).Format("2006-01-02 15:04:05")
			}
		}
		cellRef, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(exportSheet, cellRef, &row); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
