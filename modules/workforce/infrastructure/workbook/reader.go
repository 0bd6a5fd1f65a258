package workbook

import (
	"bytes"

	"github.com/go-faster/errors"
	"github.com/xuri/excelize/v2"
)

// Reader decodes one uploaded xlsx workbook into string grids.
type Reader struct {
	file *excelize.File
}

func Open(data []byte) (*Reader, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "open workbook")
	}
	return &Reader{file: f}, nil
}

func (r *Reader) SheetNames() []string {
	return r.file.GetSheetList()
}

func (r *Reader) Rows(sheet string) ([][]string, error) {
	rows, err := r.file.GetRows(sheet)
	if err != nil {
		return nil, errors.Wrap(err, "read sheet rows")
	}
	return rows, nil
}

func (r *Reader) Close() error {
	return r.file.Close()
}
