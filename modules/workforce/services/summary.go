package services

// RowError pins a failure to its spreadsheet row. Row numbers are
// 1-based and include the header, so the first data row is row 2.
type RowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

// SheetDetail is the per-sheet outcome breakdown of one import run.
type SheetDetail struct {
	Imported int        `json:"imported"`
	Skipped  int        `json:"skipped"`
	Failed   int        `json:"failed"`
	Errors   []RowError `json:"errors"`
}

func (d *SheetDetail) Fail(row int, msg string) {
	d.Failed++
	d.Errors = append(d.Errors, RowError{Row: row, Error: msg})
}

type ImportSummary struct {
	TotalSheets     int `json:"totalSheets"`
	ProcessedSheets int `json:"processedSheets"`
	TotalRecords    int `json:"totalRecords"`
	Imported        int `json:"imported"`
	Skipped         int `json:"skipped"`
	Failed          int `json:"failed"`
}

// SummarizeDetails rolls per-sheet details up into workbook totals.
// totalSheets counts the sheets found in the upload, processed or not.
func SummarizeDetails(totalSheets int, details map[string]*SheetDetail) ImportSummary {
	s := ImportSummary{TotalSheets: totalSheets}
	for _, d := range details {
		s.ProcessedSheets++
		s.TotalRecords += d.Imported + d.Skipped + d.Failed
		s.Imported += d.Imported
		s.Skipped += d.Skipped
		s.Failed += d.Failed
	}
	return s
}
