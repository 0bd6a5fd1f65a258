package services

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-faster/errors"
)

// SheetDoc is one sheet of an export workbook, ready for encoding.
type SheetDoc struct {
	Name   string
	Header []string
	Rows   [][]any
}

// ExportSelector picks the slice of the database to export. Exactly one of
// CompanyCode or ProcessCodes must be set.
type ExportSelector struct {
	CompanyCode  string
	ProcessCodes []string
}

func (s ExportSelector) Validate() error {
	hasCompany := s.CompanyCode != ""
	hasProcesses := len(s.ProcessCodes) > 0
	if hasCompany == hasProcesses {
		return errors.New("exactly one of company or processes must be selected")
	}
	return nil
}

type ExportService struct {
	store      ExportStore
	maxCellLen int
}

func NewExportService(store ExportStore, maxCellLen int) *ExportService {
	return &ExportService{store: store, maxCellLen: maxCellLen}
}

// BuildSheets projects the selected scope into sheets whose headers and
// values match the import contracts, so an export re-imports cleanly. Sheets
// come back in import phase order.
func (s *ExportService) BuildSheets(ctx context.Context, sel ExportSelector) ([]SheetDoc, error) {
	if err := sel.Validate(); err != nil {
		return nil, err
	}
	scope, err := s.collect(ctx, sel)
	if err != nil {
		return nil, err
	}
	return s.project(ctx, scope)
}

// exportScope is the closed set of records one export covers.
type exportScope struct {
	companies []CompanyRecord
	functions []FunctionRecord
	jobs      []JobRecord
	tasks     []TaskRecord
	processes []ProcessRecord
	people    []PersonRecord
}

func (s *ExportService) collect(ctx context.Context, sel ExportSelector) (*exportScope, error) {
	if sel.CompanyCode != "" {
		return s.collectCompany(ctx, sel.CompanyCode)
	}
	return s.collectProcesses(ctx, sel.ProcessCodes)
}

func (s *ExportService) collectCompany(ctx context.Context, code string) (*exportScope, error) {
	company, err := s.store.CompanyByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, errors.Errorf("company %q not found", code)
		}
		return nil, err
	}
	scope := &exportScope{companies: []CompanyRecord{company}}
	if scope.functions, err = s.store.FunctionsByCompany(ctx, company.ID); err != nil {
		return nil, err
	}
	if scope.jobs, err = s.store.JobsByCompany(ctx, company.ID); err != nil {
		return nil, err
	}
	if scope.tasks, err = s.store.TasksByCompany(ctx, company.ID); err != nil {
		return nil, err
	}
	if scope.processes, err = s.store.ProcessesByCompany(ctx, company.ID); err != nil {
		return nil, err
	}
	if scope.people, err = s.store.PeopleByCompany(ctx, company.ID); err != nil {
		return nil, err
	}
	return scope, nil
}

// collectProcesses walks outward from the selected processes: their tasks,
// the jobs linked to those tasks, the jobs' functions with their ancestor
// chain, every company touched, and the people holding the jobs.
func (s *ExportService) collectProcesses(ctx context.Context, codes []string) (*exportScope, error) {
	processes, err := s.store.ProcessesByCodes(ctx, codes)
	if err != nil {
		return nil, err
	}
	if len(processes) == 0 {
		return nil, errors.Errorf("no processes found for codes %v", codes)
	}
	scope := &exportScope{processes: processes}

	processIDs := make([]int, len(processes))
	for i, p := range processes {
		processIDs[i] = p.ID
	}
	if scope.tasks, err = s.store.TasksByProcessIDs(ctx, processIDs); err != nil {
		return nil, err
	}

	taskIDs := make([]int, len(scope.tasks))
	for i, t := range scope.tasks {
		taskIDs[i] = t.ID
	}
	if scope.jobs, err = s.store.JobsByTaskIDs(ctx, taskIDs); err != nil {
		return nil, err
	}

	// Functions close over parents so exported rows never reference a
	// parent outside the workbook.
	pending := map[int]bool{}
	for _, j := range scope.jobs {
		pending[j.FunctionID] = true
	}
	seen := map[int]bool{}
	for len(pending) > 0 {
		ids := make([]int, 0, len(pending))
		for id := range pending {
			if !seen[id] {
				ids = append(ids, id)
			}
			seen[id] = true
		}
		pending = map[int]bool{}
		if len(ids) == 0 {
			break
		}
		sort.Ints(ids)
		batch, err := s.store.FunctionsByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		for _, f := range batch {
			scope.functions = append(scope.functions, f)
			if f.ParentID != nil && !seen[*f.ParentID] {
				pending[*f.ParentID] = true
			}
		}
	}
	sort.Slice(scope.functions, func(i, j int) bool { return scope.functions[i].ID < scope.functions[j].ID })

	companyIDs := map[int]bool{}
	for _, p := range scope.processes {
		companyIDs[p.CompanyID] = true
	}
	for _, t := range scope.tasks {
		companyIDs[t.CompanyID] = true
	}
	for _, j := range scope.jobs {
		companyIDs[j.CompanyID] = true
	}
	for _, f := range scope.functions {
		companyIDs[f.CompanyID] = true
	}
	ids := make([]int, 0, len(companyIDs))
	for id := range companyIDs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	if scope.companies, err = s.store.CompaniesByIDs(ctx, ids); err != nil {
		return nil, err
	}

	jobIDs := make([]int, len(scope.jobs))
	for i, j := range scope.jobs {
		jobIDs[i] = j.ID
	}
	if scope.people, err = s.store.PeopleByJobIDs(ctx, jobIDs); err != nil {
		return nil, err
	}
	return scope, nil
}

func (s *ExportService) project(ctx context.Context, scope *exportScope) ([]SheetDoc, error) {
	companyCodes := map[int]string{}
	for _, c := range scope.companies {
		companyCodes[c.ID] = c.Code
	}
	functionCodes := map[int]string{}
	for _, f := range scope.functions {
		functionCodes[f.ID] = f.Code
	}
	jobCodes := map[int]string{}
	jobIDs := make([]int, len(scope.jobs))
	levelIDs := map[int]bool{}
	for i, j := range scope.jobs {
		jobCodes[j.ID] = j.Code
		jobIDs[i] = j.ID
		levelIDs[j.JobLevelID] = true
	}
	taskCodes := map[int]string{}
	taskIDs := make([]int, len(scope.tasks))
	for i, t := range scope.tasks {
		taskCodes[t.ID] = t.Code
		taskIDs[i] = t.ID
	}
	processCodes := map[int]string{}
	processIDs := make([]int, len(scope.processes))
	for i, p := range scope.processes {
		processCodes[p.ID] = p.Code
		processIDs[i] = p.ID
	}

	ids := make([]int, 0, len(levelIDs))
	for id := range levelIDs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	levels, err := s.store.JobLevelsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	levelRanks := map[int]int{}
	for _, l := range levels {
		levelRanks[l.ID] = l.Rank
	}

	jobSkills, err := s.store.JobSkillsByJobIDs(ctx, jobIDs)
	if err != nil {
		return nil, err
	}
	taskSkills, err := s.store.TaskSkillsByTaskIDs(ctx, taskIDs)
	if err != nil {
		return nil, err
	}
	processTasks, err := s.store.ProcessTaskLinksByProcessIDs(ctx, processIDs)
	if err != nil {
		return nil, err
	}
	jobTasks, err := s.store.JobTaskLinksByTaskIDs(ctx, taskIDs)
	if err != nil {
		return nil, err
	}

	skillsByOwner := map[int][]SkillAttachment{}
	for _, a := range jobSkills {
		skillsByOwner[a.OwnerID] = append(skillsByOwner[a.OwnerID], a)
	}
	taskSkillsByOwner := map[int][]SkillAttachment{}
	for _, a := range taskSkills {
		taskSkillsByOwner[a.OwnerID] = append(taskSkillsByOwner[a.OwnerID], a)
	}
	jobsByTask := map[int][]string{}
	for _, l := range jobTasks {
		if code, ok := jobCodes[l.JobID]; ok {
			jobsByTask[l.TaskID] = append(jobsByTask[l.TaskID], code)
		}
	}

	companySheet := SheetDoc{Name: SheetCompany, Header: CompanyHeader}
	for _, c := range scope.companies {
		companySheet.Rows = append(companySheet.Rows, []any{c.Code, c.Name})
	}

	functionSheet := SheetDoc{Name: SheetFunction, Header: FunctionHeader}
	for _, f := range scope.functions {
		parentCode := ""
		if f.ParentID != nil {
			parentCode = functionCodes[*f.ParentID]
		}
		functionSheet.Rows = append(functionSheet.Rows, []any{
			f.Name,
			f.Code,
			deref(f.BackgroundColor),
			companyCodes[f.CompanyID],
			parentCode,
			s.clip(deref(f.Overview)),
		})
	}

	jobSheet := SheetDoc{Name: SheetJob, Header: JobHeader}
	for _, j := range scope.jobs {
		names, ranks := skillColumns(skillsByOwner[j.ID])
		jobSheet.Rows = append(jobSheet.Rows, []any{
			j.Name,
			j.Code,
			j.HourlyRate.InexactFloat64(),
			j.MaxHoursPerDay.InexactFloat64(),
			functionCodes[j.FunctionID],
			companyCodes[j.CompanyID],
			levelRanks[j.JobLevelID],
			names,
			ranks,
			s.clip(j.Description),
		})
	}

	taskSheet := SheetDoc{Name: SheetTask, Header: TaskHeader}
	for _, t := range scope.tasks {
		names, ranks := skillColumns(taskSkillsByOwner[t.ID])
		taskSheet.Rows = append(taskSheet.Rows, []any{
			t.Name,
			t.Code,
			t.CapacityMinutes,
			companyCodes[t.CompanyID],
			strings.Join(jobsByTask[t.ID], ", "),
			names,
			ranks,
			s.clip(t.Overview),
		})
	}

	processSheet := SheetDoc{Name: SheetProcess, Header: ProcessHeader}
	for _, p := range scope.processes {
		processSheet.Rows = append(processSheet.Rows, []any{
			p.Name,
			p.Code,
			companyCodes[p.CompanyID],
			s.clip(p.Overview),
		})
	}

	taskProcessSheet := SheetDoc{Name: SheetTaskProcess, Header: TaskProcessHeader}
	for _, l := range processTasks {
		taskCode, ok := taskCodes[l.TaskID]
		if !ok {
			continue
		}
		taskProcessSheet.Rows = append(taskProcessSheet.Rows, []any{
			taskCode,
			processCodes[l.ProcessID],
			l.SortOrder,
		})
	}

	jobTaskSheet := SheetDoc{Name: SheetJobTask, Header: JobTaskHeader}
	for _, l := range jobTasks {
		taskCode, ok := taskCodes[l.TaskID]
		jobCode, jok := jobCodes[l.JobID]
		if !ok || !jok {
			continue
		}
		jobTaskSheet.Rows = append(jobTaskSheet.Rows, []any{taskCode, jobCode})
	}

	peopleSheet := SheetDoc{Name: SheetPeople, Header: PeopleHeader}
	for _, p := range scope.people {
		isManager := "No"
		if p.IsManager {
			isManager = "Yes"
		}
		peopleSheet.Rows = append(peopleSheet.Rows, []any{
			p.FirstName,
			p.Surname,
			p.Email,
			deref(p.Phone),
			companyCodes[p.CompanyID],
			jobCodes[p.JobID],
			isManager,
		})
	}

	return []SheetDoc{
		companySheet,
		functionSheet,
		jobSheet,
		taskSheet,
		processSheet,
		taskProcessSheet,
		jobTaskSheet,
		peopleSheet,
	}, nil
}

// clip bounds long text to the spreadsheet cell limit, marking the cut. The
// cut backs up to a rune boundary so the cell never holds invalid UTF-8.
func (s *ExportService) clip(v string) string {
	if s.maxCellLen <= 0 || len(v) <= s.maxCellLen {
		return v
	}
	cut := s.maxCellLen
	for cut > 0 && !utf8.RuneStart(v[cut]) {
		cut--
	}
	return v[:cut] + "... [truncated]"
}

// skillColumns renders attachments into the paired Skills / Skill Rank CSV
// columns, preserving attachment order so ranks stay aligned by position.
func skillColumns(attachments []SkillAttachment) (string, string) {
	if len(attachments) == 0 {
		return "", ""
	}
	names := make([]string, len(attachments))
	ranks := make([]string, len(attachments))
	for i, a := range attachments {
		names[i] = a.SkillName
		ranks[i] = strconv.Itoa(a.Rank)
	}
	return strings.Join(names, ", "), strings.Join(ranks, ", ")
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
