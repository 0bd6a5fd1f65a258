package workbook

import (
	"github.com/go-faster/errors"
	"github.com/xuri/excelize/v2"

	"github.com/workforcehq/workforce-sdk/modules/workforce/services"
)

// Write encodes sheets into an xlsx workbook with bold header rows. Sheet
// order in the file follows the slice order.
func Write(sheets []services.SheetDoc) ([]byte, error) {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, errors.Wrap(err, "create header style")
	}

	for _, sheet := range sheets {
		if _, err := f.NewSheet(sheet.Name); err != nil {
			return nil, errors.Wrapf(err, "create sheet %q", sheet.Name)
		}
		header := make([]any, len(sheet.Header))
		for i, col := range sheet.Header {
			header[i] = col
		}
		if err := f.SetSheetRow(sheet.Name, "A1", &header); err != nil {
			return nil, errors.Wrapf(err, "write header of %q", sheet.Name)
		}
		lastCell, err := excelize.CoordinatesToCellName(len(sheet.Header), 1)
		if err != nil {
			return nil, errors.Wrap(err, "resolve header range")
		}
		if err := f.SetCellStyle(sheet.Name, "A1", lastCell, headerStyle); err != nil {
			return nil, errors.Wrapf(err, "style header of %q", sheet.Name)
		}
		for i, row := range sheet.Rows {
			cell, err := excelize.CoordinatesToCellName(1, i+2)
			if err != nil {
				return nil, errors.Wrap(err, "resolve row cell")
			}
			values := row
			if err := f.SetSheetRow(sheet.Name, cell, &values); err != nil {
				return nil, errors.Wrapf(err, "write row %d of %q", i+2, sheet.Name)
			}
		}
	}

	// The workbook starts with a default sheet that is not part of the
	// export.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, errors.Wrap(err, "drop default sheet")
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, errors.Wrap(err, "encode workbook")
	}
	return buf.Bytes(), nil
}
