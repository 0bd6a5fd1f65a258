package services

// RequiredSheets must all be present for an import to start. People is the
// one optional sheet.
var RequiredSheets = []string{
	SheetCompany,
	SheetFunction,
	SheetJob,
	SheetTask,
	SheetProcess,
	SheetTaskProcess,
	SheetJobTask,
}

type StructureResult struct {
	Valid         bool     `json:"valid"`
	MissingSheets []string `json:"missingSheets"`
}

// ValidateStructure checks the uploaded workbook's sheet names against the
// required set. Extra sheets are ignored.
func ValidateStructure(found []string) StructureResult {
	present := make(map[string]bool, len(found))
	for _, name := range found {
		present[name] = true
	}
	missing := []string{}
	for _, name := range RequiredSheets {
		if !present[name] {
			missing = append(missing, name)
		}
	}
	return StructureResult{Valid: len(missing) == 0, MissingSheets: missing}
}
