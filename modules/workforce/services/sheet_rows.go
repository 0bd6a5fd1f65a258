package services

import (
	"fmt"
	"strings"
)

const (
	SheetCompany     = "Company"
	SheetFunction    = "Function"
	SheetJob         = "Job"
	SheetTask        = "Task"
	SheetProcess     = "Process"
	SheetTaskProcess = "Task-Process"
	SheetJobTask     = "Job-Task"
	SheetPeople      = "People"
)

// Column contracts are case- and spacing-sensitive. They double as export
// headers, so an exported workbook parses back through the same contract.
var (
	CompanyHeader     = []string{"Company Code", "Company Name"}
	FunctionHeader    = []string{"Function Name", "Function Code", "Background color", "Company Code", "Parent Function Code", "Description"}
	JobHeader         = []string{"Job Name", "Job Code", "Hourly Rate", "Max Hours Per Day", "Function", "Company Code", "Level Rank", "Skills", "Skill Rank", "Job Description"}
	TaskHeader        = []string{"Task Name", "Task Code", "Capacity (minutes)", "Company Code", "Associated Jobs", "Req Skills", "Skill Rank", "Task Description"}
	ProcessHeader     = []string{"Process Name", "Process Code", "Company Code", "Process Overview"}
	PeopleHeader      = []string{"First Name", "Surname", "Email", "Phone", "Company Code", "Job Code", "Is Manager"}
	TaskProcessHeader = []string{"TaskCode", "ProcessCode", "Order"}
	JobTaskHeader     = []string{"TaskCode", "JobCode"}
)

type CompanyRow struct {
	Code string
	Name string
}

type FunctionRow struct {
	Name            string
	Code            string
	BackgroundColor string
	CompanyCode     string
	ParentCode      string
	Description     string
}

type JobRow struct {
	Name           string
	Code           string
	HourlyRate     string
	MaxHoursPerDay string
	FunctionCode   string
	CompanyCode    string
	LevelRank      string
	Skills         string
	SkillRank      string
	Description    string
}

type TaskRow struct {
	Name            string
	Code            string
	CapacityMinutes string
	CompanyCode     string
	AssociatedJobs  string
	ReqSkills       string
	SkillRank       string
	Description     string
}

type ProcessRow struct {
	Name        string
	Code        string
	CompanyCode string
	Overview    string
}

type PersonRow struct {
	FirstName   string
	Surname     string
	Email       string
	Phone       string
	CompanyCode string
	JobCode     string
	IsManager   string
}

type TaskProcessRow struct {
	TaskCode    string
	ProcessCode string
	Order       string
}

type JobTaskRow struct {
	TaskCode string
	JobCode  string
}

// ParsedWorkbook holds the normalized, typed rows of one upload. It lives for
// the duration of a single import call and is never persisted.
type ParsedWorkbook struct {
	FoundSheets   []string
	HasPeople     bool
	Companies     []CompanyRow
	Functions     []FunctionRow
	Jobs          []JobRow
	Tasks         []TaskRow
	Processes     []ProcessRow
	People        []PersonRow
	TaskProcesses []TaskProcessRow
	JobTasks      []JobTaskRow
}

// RowCounts returns the number of normalized rows per present sheet.
func (w *ParsedWorkbook) RowCounts() map[string]int {
	counts := map[string]int{
		SheetCompany:     len(w.Companies),
		SheetFunction:    len(w.Functions),
		SheetJob:         len(w.Jobs),
		SheetTask:        len(w.Tasks),
		SheetProcess:     len(w.Processes),
		SheetTaskProcess: len(w.TaskProcesses),
		SheetJobTask:     len(w.JobTasks),
	}
	if w.HasPeople {
		counts[SheetPeople] = len(w.People)
	}
	return counts
}

// WorkbookSource is the decoded-spreadsheet capability the parser consumes.
type WorkbookSource interface {
	SheetNames() []string
	Rows(sheet string) ([][]string, error)
}

// SheetContractError reports header-contract violations found at parse time.
type SheetContractError struct {
	Problems []string
}

func (e *SheetContractError) Error() string {
	return "workbook does not match the sheet contracts: " + strings.Join(e.Problems, "; ")
}

// ParseWorkbook normalizes every known sheet of src into typed rows: column
// names and cell values are trimmed, cells are kept as strings and
// fully-blank rows are dropped. A present sheet whose header deviates from
// its contract (missing or unknown columns) is a parse error; numeric-looking
// fields stay strings so a bad number surfaces later as a row failure, not
// here.
func ParseWorkbook(src WorkbookSource) (*ParsedWorkbook, error) {
	wb := &ParsedWorkbook{FoundSheets: src.SheetNames()}
	present := make(map[string]bool, len(wb.FoundSheets))
	for _, name := range wb.FoundSheets {
		present[name] = true
	}

	var problems []string
	parse := func(sheet string, contract []string, consume func(get func(col string) string)) {
		if !present[sheet] {
			return
		}
		grid, err := src.Rows(sheet)
		if err != nil {
			problems = append(problems, fmt.Sprintf("sheet %q: %v", sheet, err))
			return
		}
		if len(grid) == 0 {
			problems = append(problems, fmt.Sprintf("sheet %q: missing header row", sheet))
			return
		}

		index, headerProblems := matchHeader(sheet, grid[0], contract)
		if len(headerProblems) > 0 {
			problems = append(problems, headerProblems...)
			return
		}

		for _, raw := range grid[1:] {
			row := normalizeRow(raw, index)
			if row == nil {
				continue
			}
			consume(func(col string) string { return row[col] })
		}
	}

	parse(SheetCompany, CompanyHeader, func(get func(string) string) {
		wb.Companies = append(wb.Companies, CompanyRow{
			Code: get("Company Code"),
			Name: get("Company Name"),
		})
	})
	parse(SheetFunction, FunctionHeader, func(get func(string) string) {
		wb.Functions = append(wb.Functions, FunctionRow{
			Name:            get("Function Name"),
			Code:            get("Function Code"),
			BackgroundColor: get("Background color"),
			CompanyCode:     get("Company Code"),
			ParentCode:      get("Parent Function Code"),
			Description:     get("Description"),
		})
	})
	parse(SheetJob, JobHeader, func(get func(string) string) {
		wb.Jobs = append(wb.Jobs, JobRow{
			Name:           get("Job Name"),
			Code:           get("Job Code"),
			HourlyRate:     get("Hourly Rate"),
			MaxHoursPerDay: get("Max Hours Per Day"),
			FunctionCode:   get("Function"),
			CompanyCode:    get("Company Code"),
			LevelRank:      get("Level Rank"),
			Skills:         get("Skills"),
			SkillRank:      get("Skill Rank"),
			Description:    get("Job Description"),
		})
	})
	parse(SheetTask, TaskHeader, func(get func(string) string) {
		wb.Tasks = append(wb.Tasks, TaskRow{
			Name:            get("Task Name"),
			Code:            get("Task Code"),
			CapacityMinutes: get("Capacity (minutes)"),
			CompanyCode:     get("Company Code"),
			AssociatedJobs:  get("Associated Jobs"),
			ReqSkills:       get("Req Skills"),
			SkillRank:       get("Skill Rank"),
			Description:     get("Task Description"),
		})
	})
	parse(SheetProcess, ProcessHeader, func(get func(string) string) {
		wb.Processes = append(wb.Processes, ProcessRow{
			Name:        get("Process Name"),
			Code:        get("Process Code"),
			CompanyCode: get("Company Code"),
			Overview:    get("Process Overview"),
		})
	})
	parse(SheetPeople, PeopleHeader, func(get func(string) string) {
		wb.People = append(wb.People, PersonRow{
			FirstName:   get("First Name"),
			Surname:     get("Surname"),
			Email:       get("Email"),
			Phone:       get("Phone"),
			CompanyCode: get("Company Code"),
			JobCode:     get("Job Code"),
			IsManager:   get("Is Manager"),
		})
	})
	parse(SheetTaskProcess, TaskProcessHeader, func(get func(string) string) {
		wb.TaskProcesses = append(wb.TaskProcesses, TaskProcessRow{
			TaskCode:    get("TaskCode"),
			ProcessCode: get("ProcessCode"),
			Order:       get("Order"),
		})
	})
	parse(SheetJobTask, JobTaskHeader, func(get func(string) string) {
		wb.JobTasks = append(wb.JobTasks, JobTaskRow{
			TaskCode: get("TaskCode"),
			JobCode:  get("JobCode"),
		})
	})

	if len(problems) > 0 {
		return nil, &SheetContractError{Problems: problems}
	}
	wb.HasPeople = present[SheetPeople]
	return wb, nil
}

// matchHeader maps contract column names to cell positions. Trailing blank
// header cells are tolerated; anything else off-contract is a problem.
func matchHeader(sheet string, rawHeader, contract []string) (map[string]int, []string) {
	index := make(map[string]int, len(contract))
	seen := make(map[string]bool, len(contract))
	expected := make(map[string]bool, len(contract))
	for _, col := range contract {
		expected[col] = true
	}

	var problems []string
	for i, raw := range rawHeader {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		if !expected[name] {
			problems = append(problems, fmt.Sprintf("sheet %q: unexpected column %q", sheet, name))
			continue
		}
		if seen[name] {
			problems = append(problems, fmt.Sprintf("sheet %q: duplicate column %q", sheet, name))
			continue
		}
		seen[name] = true
		index[name] = i
	}
	for _, col := range contract {
		if !seen[col] {
			problems = append(problems, fmt.Sprintf("sheet %q: missing column %q", sheet, col))
		}
	}
	return index, problems
}

// normalizeRow trims every mapped cell and returns nil for fully-blank rows.
func normalizeRow(raw []string, index map[string]int) map[string]string {
	row := make(map[string]string, len(index))
	blank := true
	for col, pos := range index {
		value := ""
		if pos < len(raw) {
			value = strings.TrimSpace(raw[pos])
		}
		if value != "" {
			blank = false
		}
		row[col] = value
	}
	if blank {
		return nil
	}
	return row
}
