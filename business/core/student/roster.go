package student

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// RosterSheet is the name of the worksheet holding the roster.
const RosterSheet = "Students"

// Roster writes the cached roster as an xlsx workbook. The workbook holds
// whatever the view last loaded; it does not call the ledger.
func (c *Core) Roster(w io.Writer) error {
	state := c.Snapshot()

	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(RosterSheet)
	if err != nil {
		return fmt.Errorf("creating sheet: %w", err)
	}
	f.SetActiveSheet(idx)

	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("removing default sheet: %w", err)
	}

	if err := f.SetSheetRow(RosterSheet, "A1", &[]any{"ID", "Name"}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, s := range state.Students {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("locating row %d: %w", i, err)
		}

		if err := f.SetSheetRow(RosterSheet, cell, &[]any{s.ID, s.Name}); err != nil {
			return fmt.Errorf("writing student %d: %w", s.ID, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}

	return nil
}
