package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/workforcehq/workforce-sdk/pkg/composables"
	"github.com/workforcehq/workforce-sdk/pkg/eventbus"
)

// rowError marks a failure scoped to a single spreadsheet row. The importer
// records it against the row and moves on; every other error aborts the run.
type rowError struct {
	msg string
}

func (e *rowError) Error() string { return e.msg }

func rowFailf(format string, args ...any) error {
	return &rowError{msg: fmt.Sprintf(format, args...)}
}

type rowOutcome int

const (
	rowImported rowOutcome = iota
	rowSkipped
)

// ImportResult is the caller-facing outcome of one import run.
type ImportResult struct {
	Success bool                    `json:"success"`
	Message string                  `json:"message"`
	Summary ImportSummary           `json:"summary"`
	Details map[string]*SheetDetail `json:"details"`
}

type ImportService struct {
	store Store
	uow   UnitOfWork
	bus   eventbus.EventBus
}

func NewImportService(store Store, uow UnitOfWork, bus eventbus.EventBus) *ImportService {
	return &ImportService{store: store, uow: uow, bus: bus}
}

// Import reconciles a parsed workbook into the database inside a single
// transaction. Sheets are processed in dependency order so each phase can
// resolve references created by the ones before it. Row failures are
// recorded and do not stop the run; with dryRun the whole transaction rolls
// back after the full pass, so the summary reflects what a real import would
// have done.
func (s *ImportService) Import(ctx context.Context, wb *ParsedWorkbook, dryRun bool) (*ImportResult, error) {
	details := map[string]*SheetDetail{
		SheetCompany:     {Errors: []RowError{}},
		SheetFunction:    {Errors: []RowError{}},
		SheetJob:         {Errors: []RowError{}},
		SheetTask:        {Errors: []RowError{}},
		SheetProcess:     {Errors: []RowError{}},
		SheetTaskProcess: {Errors: []RowError{}},
		SheetJobTask:     {Errors: []RowError{}},
	}
	if wb.HasPeople {
		details[SheetPeople] = &SheetDetail{Errors: []RowError{}}
	}

	err := s.uow.Run(ctx, dryRun, func(txCtx context.Context) error {
		run := &importRun{ctx: txCtx, store: s.store}
		if err := run.sheet(details[SheetCompany], len(wb.Companies), func(i int) (rowOutcome, error) {
			return run.reconcileCompany(wb.Companies[i])
		}); err != nil {
			return err
		}
		if err := run.sheet(details[SheetFunction], len(wb.Functions), func(i int) (rowOutcome, error) {
			return run.reconcileFunction(wb.Functions[i])
		}); err != nil {
			return err
		}
		if err := run.sheet(details[SheetJob], len(wb.Jobs), func(i int) (rowOutcome, error) {
			return run.reconcileJob(wb.Jobs[i])
		}); err != nil {
			return err
		}
		if err := run.sheet(details[SheetTask], len(wb.Tasks), func(i int) (rowOutcome, error) {
			return run.reconcileTask(wb.Tasks[i])
		}); err != nil {
			return err
		}
		if err := run.sheet(details[SheetProcess], len(wb.Processes), func(i int) (rowOutcome, error) {
			return run.reconcileProcess(wb.Processes[i])
		}); err != nil {
			return err
		}
		if err := run.sheet(details[SheetTaskProcess], len(wb.TaskProcesses), func(i int) (rowOutcome, error) {
			return run.reconcileTaskProcess(wb.TaskProcesses[i])
		}); err != nil {
			return err
		}
		if err := run.sheet(details[SheetJobTask], len(wb.JobTasks), func(i int) (rowOutcome, error) {
			return run.reconcileJobTask(wb.JobTasks[i])
		}); err != nil {
			return err
		}
		if wb.HasPeople {
			if err := run.sheet(details[SheetPeople], len(wb.People), func(i int) (rowOutcome, error) {
				return run.reconcilePerson(wb.People[i])
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		// The transaction rolled back, so any per-sheet tallies describe
		// work that never happened. Report only the failure.
		return &ImportResult{
			Success: false,
			Message: "Import failed: " + err.Error(),
		}, err
	}

	message := "Import completed successfully"
	if dryRun {
		message = "Dry run completed successfully (no data saved)"
	}
	result := &ImportResult{
		Success: true,
		Message: message,
		Summary: SummarizeDetails(len(wb.FoundSheets), details),
		Details: details,
	}
	if s.bus != nil {
		s.bus.Publish(ImportCompletedEvent{DryRun: dryRun, Summary: result.Summary})
	}
	return result, nil
}

// importRun carries the per-transaction state of one import pass.
type importRun struct {
	ctx   context.Context
	store Store
}

// sheet drives one phase: row errors are tallied against the data row's
// spreadsheet position (loop index plus header offset), anything else aborts.
func (r *importRun) sheet(detail *SheetDetail, n int, reconcile func(i int) (rowOutcome, error)) error {
	for i := 0; i < n; i++ {
		outcome, err := reconcile(i)
		if err != nil {
			var rerr *rowError
			if errors.As(err, &rerr) {
				detail.Fail(i+2, rerr.msg)
				continue
			}
			return err
		}
		switch outcome {
		case rowImported:
			detail.Imported++
		case rowSkipped:
			detail.Skipped++
		}
	}
	return nil
}

func (r *importRun) reconcileCompany(row CompanyRow) (rowOutcome, error) {
	if row.Code == "" {
		return 0, rowFailf("company code is required")
	}
	if _, err := r.store.CompanyByCode(r.ctx, row.Code); err == nil {
		return rowSkipped, nil
	} else if !errors.Is(err, ErrNotFound) {
		return 0, err
	}
	if row.Name == "" {
		return 0, rowFailf("company name is required")
	}
	if _, err := r.store.CreateCompany(r.ctx, CompanyInsert{Code: row.Code, Name: row.Name}); err != nil {
		return 0, err
	}
	return rowImported, nil
}

func (r *importRun) companyID(code string) (int, error) {
	if code == "" {
		return 0, rowFailf("company code is required")
	}
	company, err := r.store.CompanyByCode(r.ctx, code)
	if errors.Is(err, ErrNotFound) {
		return 0, rowFailf("company %q not found", code)
	}
	if err != nil {
		return 0, err
	}
	return company.ID, nil
}

func (r *importRun) reconcileFunction(row FunctionRow) (rowOutcome, error) {
	if row.Code == "" {
		return 0, rowFailf("function code is required")
	}
	if _, err := r.store.FunctionByCode(r.ctx, row.Code); err == nil {
		return rowSkipped, nil
	} else if !errors.Is(err, ErrNotFound) {
		return 0, err
	}
	if row.Name == "" {
		return 0, rowFailf("function name is required")
	}
	companyID, err := r.companyID(row.CompanyCode)
	if err != nil {
		return 0, err
	}

	// The parent reference is optional: an unresolvable code degrades to a
	// root function rather than failing the row.
	var parentID *int
	if row.ParentCode != "" {
		parent, err := r.store.FunctionByCode(r.ctx, row.ParentCode)
		switch {
		case err == nil:
			parentID = &parent.ID
		case !errors.Is(err, ErrNotFound):
			return 0, err
		}
	}
	insert := FunctionInsert{
		Code:      row.Code,
		Name:      row.Name,
		CompanyID: companyID,
		ParentID:  parentID,
	}
	if row.BackgroundColor != "" {
		insert.BackgroundColor = &row.BackgroundColor
	}
	if row.Description != "" {
		insert.Overview = &row.Description
	}
	if _, err := r.store.CreateFunction(r.ctx, insert); err != nil {
		return 0, err
	}
	return rowImported, nil
}

func (r *importRun) reconcileJob(row JobRow) (rowOutcome, error) {
	if row.Code == "" {
		return 0, rowFailf("job code is required")
	}
	existing, err := r.store.JobByCode(r.ctx, row.Code)
	switch {
	case err == nil:
		// Existing jobs skip without re-validating the row, but still pick
		// up new skill attachments.
		skills, err := parseSkillList(row.Skills, row.SkillRank)
		if err != nil {
			return 0, err
		}
		if err := r.attachSkills(skills, func(skillID, levelID int) error {
			exists, err := r.store.JobSkillExists(r.ctx, existing.ID, skillID)
			if err != nil || exists {
				return err
			}
			return r.store.CreateJobSkill(r.ctx, existing.ID, skillID, levelID)
		}); err != nil {
			return 0, err
		}
		return rowSkipped, nil
	case !errors.Is(err, ErrNotFound):
		return 0, err
	}

	if row.Name == "" {
		return 0, rowFailf("job name is required")
	}
	companyID, err := r.companyID(row.CompanyCode)
	if err != nil {
		return 0, err
	}
	if row.FunctionCode == "" {
		return 0, rowFailf("function code is required")
	}
	function, err := r.store.FunctionByCode(r.ctx, row.FunctionCode)
	if errors.Is(err, ErrNotFound) {
		return 0, rowFailf("function %q not found", row.FunctionCode)
	}
	if err != nil {
		return 0, err
	}

	skills, err := parseSkillList(row.Skills, row.SkillRank)
	if err != nil {
		return 0, err
	}

	levelRank := 1
	if row.LevelRank != "" {
		levelRank, err = strconv.Atoi(row.LevelRank)
		if err != nil || levelRank < 1 {
			return 0, rowFailf("invalid level rank %q", row.LevelRank)
		}
	}
	levelID, err := r.jobLevelID(levelRank)
	if err != nil {
		return 0, err
	}

	hourlyRate := decimal.Zero
	if row.HourlyRate != "" {
		hourlyRate, err = decimal.NewFromString(row.HourlyRate)
		if err != nil {
			return 0, rowFailf("invalid hourly rate %q", row.HourlyRate)
		}
	}
	maxHours := decimal.NewFromInt(8)
	if row.MaxHoursPerDay != "" {
		maxHours, err = decimal.NewFromString(row.MaxHoursPerDay)
		if err != nil {
			return 0, rowFailf("invalid max hours per day %q", row.MaxHoursPerDay)
		}
	}

	insert := JobInsert{
		Code:           row.Code,
		Name:           row.Name,
		CompanyID:      companyID,
		FunctionID:     function.ID,
		JobLevelID:     levelID,
		HourlyRate:     hourlyRate,
		MaxHoursPerDay: maxHours,
		Description:    row.Description,
	}
	job, err := r.store.CreateJob(r.ctx, insert)
	if err != nil {
		return 0, err
	}
	if err := r.attachSkills(skills, func(skillID, skillLevelID int) error {
		return r.store.CreateJobSkill(r.ctx, job.ID, skillID, skillLevelID)
	}); err != nil {
		return 0, err
	}
	return rowImported, nil
}

func (r *importRun) reconcileTask(row TaskRow) (rowOutcome, error) {
	if row.Code == "" {
		return 0, rowFailf("task code is required")
	}
	existing, err := r.store.TaskByCode(r.ctx, row.Code)
	switch {
	case err == nil:
		skills, err := parseSkillList(row.ReqSkills, row.SkillRank)
		if err != nil {
			return 0, err
		}
		if err := r.attachSkills(skills, func(skillID, levelID int) error {
			exists, err := r.store.TaskSkillExists(r.ctx, existing.ID, skillID)
			if err != nil || exists {
				return err
			}
			return r.store.CreateTaskSkill(r.ctx, existing.ID, skillID, levelID)
		}); err != nil {
			return 0, err
		}
		return rowSkipped, nil
	case !errors.Is(err, ErrNotFound):
		return 0, err
	}

	if row.Name == "" {
		return 0, rowFailf("task name is required")
	}
	companyID, err := r.companyID(row.CompanyCode)
	if err != nil {
		return 0, err
	}

	// Job associations on this sheet are informational; the Job-Task sheet
	// is the authoritative source of those links.
	skills, err := parseSkillList(row.ReqSkills, row.SkillRank)
	if err != nil {
		return 0, err
	}

	capacity := 0
	if row.CapacityMinutes != "" {
		capacity, err = strconv.Atoi(row.CapacityMinutes)
		if err != nil || capacity < 0 {
			return 0, rowFailf("invalid capacity %q", row.CapacityMinutes)
		}
	}
	insert := TaskInsert{
		Code:            row.Code,
		Name:            row.Name,
		CompanyID:       companyID,
		CapacityMinutes: capacity,
		Overview:        row.Description,
	}
	task, err := r.store.CreateTask(r.ctx, insert)
	if err != nil {
		return 0, err
	}
	if err := r.attachSkills(skills, func(skillID, skillLevelID int) error {
		return r.store.CreateTaskSkill(r.ctx, task.ID, skillID, skillLevelID)
	}); err != nil {
		return 0, err
	}
	return rowImported, nil
}

func (r *importRun) reconcileProcess(row ProcessRow) (rowOutcome, error) {
	if row.Code == "" {
		return 0, rowFailf("process code is required")
	}
	if _, err := r.store.ProcessByCode(r.ctx, row.Code); err == nil {
		return rowSkipped, nil
	} else if !errors.Is(err, ErrNotFound) {
		return 0, err
	}
	if row.Name == "" {
		return 0, rowFailf("process name is required")
	}
	companyID, err := r.companyID(row.CompanyCode)
	if err != nil {
		return 0, err
	}
	insert := ProcessInsert{Code: row.Code, Name: row.Name, CompanyID: companyID, Overview: row.Overview}
	if _, err := r.store.CreateProcess(r.ctx, insert); err != nil {
		return 0, err
	}
	return rowImported, nil
}

// reconcileTaskProcess links a task into a process at a position. Links whose
// endpoints are missing are skipped with a warning, not failed, so a partial
// upload does not litter the report with cascade errors.
func (r *importRun) reconcileTaskProcess(row TaskProcessRow) (rowOutcome, error) {
	logger := composables.UseLogger(r.ctx)
	task, err := r.store.TaskByCode(r.ctx, row.TaskCode)
	if errors.Is(err, ErrNotFound) {
		logger.Warnf("task-process link skipped: task %q not found", row.TaskCode)
		return rowSkipped, nil
	}
	if err != nil {
		return 0, err
	}
	process, err := r.store.ProcessByCode(r.ctx, row.ProcessCode)
	if errors.Is(err, ErrNotFound) {
		logger.Warnf("task-process link skipped: process %q not found", row.ProcessCode)
		return rowSkipped, nil
	}
	if err != nil {
		return 0, err
	}

	order := 0
	if row.Order != "" {
		order, err = strconv.Atoi(row.Order)
		if err != nil {
			return 0, rowFailf("invalid order %q", row.Order)
		}
	}
	exists, err := r.store.ProcessTaskLinkExists(r.ctx, process.ID, task.ID)
	if err != nil {
		return 0, err
	}
	if exists {
		return rowSkipped, nil
	}
	if err := r.store.CreateProcessTaskLink(r.ctx, process.ID, task.ID, order); err != nil {
		return 0, err
	}
	return rowImported, nil
}

func (r *importRun) reconcileJobTask(row JobTaskRow) (rowOutcome, error) {
	logger := composables.UseLogger(r.ctx)
	task, err := r.store.TaskByCode(r.ctx, row.TaskCode)
	if errors.Is(err, ErrNotFound) {
		logger.Warnf("job-task link skipped: task %q not found", row.TaskCode)
		return rowSkipped, nil
	}
	if err != nil {
		return 0, err
	}
	job, err := r.store.JobByCode(r.ctx, row.JobCode)
	if errors.Is(err, ErrNotFound) {
		logger.Warnf("job-task link skipped: job %q not found", row.JobCode)
		return rowSkipped, nil
	}
	if err != nil {
		return 0, err
	}
	exists, err := r.store.JobTaskLinkExists(r.ctx, job.ID, task.ID)
	if err != nil {
		return 0, err
	}
	if exists {
		return rowSkipped, nil
	}
	if err := r.store.CreateJobTaskLink(r.ctx, job.ID, task.ID); err != nil {
		return 0, err
	}
	return rowImported, nil
}

func (r *importRun) reconcilePerson(row PersonRow) (rowOutcome, error) {
	if row.Email == "" {
		return 0, rowFailf("email is required")
	}
	if _, err := r.store.PersonByEmail(r.ctx, row.Email); err == nil {
		return rowSkipped, nil
	} else if !errors.Is(err, ErrNotFound) {
		return 0, err
	}
	companyID, err := r.companyID(row.CompanyCode)
	if err != nil {
		return 0, err
	}
	if row.JobCode == "" {
		return 0, rowFailf("job code is required")
	}
	job, err := r.store.JobByCode(r.ctx, row.JobCode)
	if errors.Is(err, ErrNotFound) {
		return 0, rowFailf("job %q not found", row.JobCode)
	}
	if err != nil {
		return 0, err
	}

	isManager := false
	switch strings.ToLower(row.IsManager) {
	case "yes", "true":
		isManager = true
	}
	insert := PersonInsert{
		FirstName: row.FirstName,
		Surname:   row.Surname,
		Email:     row.Email,
		CompanyID: companyID,
		JobID:     job.ID,
		IsManager: isManager,
	}
	if row.Phone != "" {
		insert.Phone = &row.Phone
	}
	if _, err := r.store.CreatePerson(r.ctx, insert); err != nil {
		return 0, err
	}
	return rowImported, nil
}

// attachSkills resolves each skill name and rank to dictionary rows, creating
// them on first sight, then hands the ids to link.
func (r *importRun) attachSkills(skills []skillRef, link func(skillID, skillLevelID int) error) error {
	for _, ref := range skills {
		skill, err := r.store.SkillByName(r.ctx, ref.Name)
		if errors.Is(err, ErrNotFound) {
			skill, err = r.store.CreateSkill(r.ctx, ref.Name)
		}
		if err != nil {
			return err
		}
		level, err := r.store.SkillLevelByRank(r.ctx, ref.Rank)
		if errors.Is(err, ErrNotFound) {
			level, err = r.store.CreateSkillLevel(r.ctx, ref.Rank, LevelNameForRank(ref.Rank), fmt.Sprintf("Level %d", ref.Rank))
		}
		if err != nil {
			return err
		}
		if err := link(skill.ID, level.ID); err != nil {
			return err
		}
	}
	return nil
}

func (r *importRun) jobLevelID(rank int) (int, error) {
	level, err := r.store.JobLevelByRank(r.ctx, rank)
	if errors.Is(err, ErrNotFound) {
		level, err = r.store.CreateJobLevel(r.ctx, rank, LevelNameForRank(rank), fmt.Sprintf("Level %d", rank))
	}
	if err != nil {
		return 0, err
	}
	return level.ID, nil
}
