package leave

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const historySheet = "Leave History"

var historyHeaders = []string{"ID", "Type", "Start", "End", "Days", "Status", "Reason", "Applied On"}

// WriteHistoryXLSX writes requests as a one-sheet workbook, in the order given.
func WriteHistoryXLSX(w io.Writer, requests []LeaveRequest) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), historySheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	for i, h := range historyHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(historySheet, cell, h); err != nil {
			return err
		}
	}

	for idx, r := range requests {
		row := idx + 2
		values := []any{
			r.ID,
			r.LeaveTypeID,
			r.StartDate.String(),
			r.EndDate.String(),
			r.ChargedDays.Float64(),
			string(r.Status),
			r.Reason,
			r.AppliedOn.String(),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(historySheet, cell, v); err != nil {
				return err
			}
		}
	}

	f.SetColWidth(historySheet, "A", "A", 8)
	f.SetColWidth(historySheet, "B", "B", 12)
	f.SetColWidth(historySheet, "C", "D", 12)
	f.SetColWidth(historySheet, "G", "G", 30)
	f.SetColWidth(historySheet, "H", "H", 12)

	return f.Write(w)
}
