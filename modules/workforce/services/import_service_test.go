package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workforcehq/workforce-sdk/pkg/eventbus"
)

func newImportFixture() (*ImportService, *memStore) {
	store := newMemStore()
	return NewImportService(store, &memUnitOfWork{store: store}, nil), store
}

func fullWorkbook() *ParsedWorkbook {
	return &ParsedWorkbook{
		FoundSheets: append(append([]string{}, RequiredSheets...), SheetPeople),
		HasPeople:   true,
		Companies:   []CompanyRow{{Code: "ACME", Name: "Acme Industrial"}},
		Functions: []FunctionRow{
			{Name: "Operations", Code: "OPS", CompanyCode: "ACME"},
			{Name: "Fabrication", Code: "FAB", CompanyCode: "ACME", ParentCode: "OPS", BackgroundColor: "#FFAA00"},
		},
		Jobs: []JobRow{{
			Name:           "Welder",
			Code:           "WELD",
			HourlyRate:     "24.50",
			MaxHoursPerDay: "8",
			FunctionCode:   "FAB",
			CompanyCode:    "ACME",
			LevelRank:      "2",
			Skills:         "Welding, Painting",
			SkillRank:      "3, 1",
			Description:    "Structural welding",
		}},
		Tasks: []TaskRow{{
			Name:            "Frame Assembly",
			Code:            "FRAME",
			CapacityMinutes: "90",
			CompanyCode:     "ACME",
			ReqSkills:       "Welding",
			SkillRank:       "2",
		}},
		Processes:     []ProcessRow{{Name: "Chassis Build", Code: "CHASSIS", CompanyCode: "ACME", Overview: "Frame to rolling chassis"}},
		TaskProcesses: []TaskProcessRow{{TaskCode: "FRAME", ProcessCode: "CHASSIS", Order: "1"}},
		JobTasks:      []JobTaskRow{{TaskCode: "FRAME", JobCode: "WELD"}},
		People: []PersonRow{{
			FirstName:   "Dana",
			Surname:     "Reyes",
			Email:       "dana@acme.test",
			CompanyCode: "ACME",
			JobCode:     "WELD",
			IsManager:   "Yes",
		}},
	}
}

func TestImportService_FullWorkbook(t *testing.T) {
	svc, store := newImportFixture()

	result, err := svc.Import(context.Background(), fullWorkbook(), false)
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, "Import completed successfully", result.Message)
	assert.Equal(t, 8, result.Summary.TotalSheets)
	assert.Equal(t, 8, result.Summary.ProcessedSheets)
	assert.Equal(t, 9, result.Summary.Imported)
	assert.Equal(t, 0, result.Summary.Skipped)
	assert.Equal(t, 0, result.Summary.Failed)

	company, err := store.CompanyByCode(context.Background(), "ACME")
	require.NoError(t, err)

	fab, err := store.FunctionByCode(context.Background(), "FAB")
	require.NoError(t, err)
	assert.Equal(t, company.ID, fab.CompanyID)
	ops, err := store.FunctionByCode(context.Background(), "OPS")
	require.NoError(t, err)
	require.NotNil(t, fab.ParentID)
	assert.Equal(t, ops.ID, *fab.ParentID)

	job, err := store.JobByCode(context.Background(), "WELD")
	require.NoError(t, err)
	assert.Equal(t, fab.ID, job.FunctionID)
	assert.True(t, job.HourlyRate.Equal(decimal.RequireFromString("24.50")))
	level, err := store.JobLevelByRank(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, level.ID, job.JobLevelID)
	assert.Equal(t, "INTERMEDIATE", level.Name)

	jobSkills, err := store.JobSkillsByJobIDs(context.Background(), []int{job.ID})
	require.NoError(t, err)
	require.Len(t, jobSkills, 2)
	assert.Equal(t, "Welding", jobSkills[0].SkillName)
	assert.Equal(t, 3, jobSkills[0].Rank)
	assert.Equal(t, "Painting", jobSkills[1].SkillName)
	assert.Equal(t, 1, jobSkills[1].Rank)

	task, err := store.TaskByCode(context.Background(), "FRAME")
	require.NoError(t, err)
	assert.Equal(t, 90, task.CapacityMinutes)
	taskSkills, err := store.TaskSkillsByTaskIDs(context.Background(), []int{task.ID})
	require.NoError(t, err)
	require.Len(t, taskSkills, 1)
	assert.Equal(t, 2, taskSkills[0].Rank)

	process, err := store.ProcessByCode(context.Background(), "CHASSIS")
	require.NoError(t, err)
	links, err := store.ProcessTaskLinksByProcessIDs(context.Background(), []int{process.ID})
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, task.ID, links[0].TaskID)
	assert.Equal(t, 1, links[0].SortOrder)

	person, err := store.PersonByEmail(context.Background(), "dana@acme.test")
	require.NoError(t, err)
	assert.True(t, person.IsManager)
	assert.Equal(t, job.ID, person.JobID)
}

func TestImportService_SecondRunSkipsEverything(t *testing.T) {
	svc, _ := newImportFixture()

	_, err := svc.Import(context.Background(), fullWorkbook(), false)
	require.NoError(t, err)

	result, err := svc.Import(context.Background(), fullWorkbook(), false)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Summary.Imported)
	assert.Equal(t, 9, result.Summary.Skipped)
	assert.Equal(t, 0, result.Summary.Failed)
}

func TestImportService_RowFailureDoesNotStopTheSheet(t *testing.T) {
	svc, store := newImportFixture()

	wb := fullWorkbook()
	wb.Functions = append([]FunctionRow{
		{Name: "Phantom", Code: "PHANTOM", CompanyCode: "GHOST"},
	}, wb.Functions...)

	result, err := svc.Import(context.Background(), wb, false)
	require.NoError(t, err)
	require.True(t, result.Success)

	detail := result.Details[SheetFunction]
	assert.Equal(t, 2, detail.Imported)
	assert.Equal(t, 1, detail.Failed)
	require.Len(t, detail.Errors, 1)
	assert.Equal(t, 2, detail.Errors[0].Row)
	assert.Contains(t, detail.Errors[0].Error, "GHOST")

	_, err = store.FunctionByCode(context.Background(), "PHANTOM")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.FunctionByCode(context.Background(), "FAB")
	assert.NoError(t, err)
}

func TestImportService_DryRunLeavesStoreUntouched(t *testing.T) {
	svc, store := newImportFixture()

	result, err := svc.Import(context.Background(), fullWorkbook(), true)
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, "Dry run completed successfully (no data saved)", result.Message)
	assert.Equal(t, 9, result.Summary.Imported)

	_, err = store.CompanyByCode(context.Background(), "ACME")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, store.jobs)
	assert.Empty(t, store.skills)
}

func TestImportService_SkillRankFallsBackToFirstRank(t *testing.T) {
	svc, store := newImportFixture()

	wb := fullWorkbook()
	wb.Jobs[0].Skills = "Welding, Painting, Rigging"
	wb.Jobs[0].SkillRank = "3"

	_, err := svc.Import(context.Background(), wb, false)
	require.NoError(t, err)

	job, err := store.JobByCode(context.Background(), "WELD")
	require.NoError(t, err)
	attachments, err := store.JobSkillsByJobIDs(context.Background(), []int{job.ID})
	require.NoError(t, err)
	require.Len(t, attachments, 3)
	for _, a := range attachments {
		assert.Equal(t, 3, a.Rank)
	}
}

func TestImportService_MissingSkillRankDefaultsToOne(t *testing.T) {
	svc, store := newImportFixture()

	wb := fullWorkbook()
	wb.Jobs[0].Skills = "Welding"
	wb.Jobs[0].SkillRank = ""

	_, err := svc.Import(context.Background(), wb, false)
	require.NoError(t, err)

	job, err := store.JobByCode(context.Background(), "WELD")
	require.NoError(t, err)
	attachments, err := store.JobSkillsByJobIDs(context.Background(), []int{job.ID})
	require.NoError(t, err)
	require.Len(t, attachments, 1)
	assert.Equal(t, 1, attachments[0].Rank)
}

func TestImportService_InvalidSkillRankFailsTheRow(t *testing.T) {
	svc, store := newImportFixture()

	wb := fullWorkbook()
	wb.Jobs[0].SkillRank = "high"

	result, err := svc.Import(context.Background(), wb, false)
	require.NoError(t, err)

	detail := result.Details[SheetJob]
	assert.Equal(t, 0, detail.Imported)
	require.Len(t, detail.Errors, 1)
	assert.Equal(t, 2, detail.Errors[0].Row)
	assert.Contains(t, detail.Errors[0].Error, "high")

	_, err = store.JobByCode(context.Background(), "WELD")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestImportService_RankAboveFiveKeepsRankClampsName(t *testing.T) {
	svc, store := newImportFixture()

	wb := fullWorkbook()
	wb.Jobs[0].Skills = "Welding"
	wb.Jobs[0].SkillRank = "7"

	_, err := svc.Import(context.Background(), wb, false)
	require.NoError(t, err)

	level, err := store.SkillLevelByRank(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "EXPERT", level.Name)
}

func TestImportService_UnresolvableLinkIsSkippedNotFailed(t *testing.T) {
	svc, _ := newImportFixture()

	wb := fullWorkbook()
	wb.TaskProcesses = append(wb.TaskProcesses, TaskProcessRow{TaskCode: "NOPE", ProcessCode: "CHASSIS", Order: "2"})

	result, err := svc.Import(context.Background(), wb, false)
	require.NoError(t, err)

	detail := result.Details[SheetTaskProcess]
	assert.Equal(t, 1, detail.Imported)
	assert.Equal(t, 1, detail.Skipped)
	assert.Equal(t, 0, detail.Failed)
}

func TestImportService_ExistingJobStillGainsNewSkills(t *testing.T) {
	svc, store := newImportFixture()

	_, err := svc.Import(context.Background(), fullWorkbook(), false)
	require.NoError(t, err)

	wb := fullWorkbook()
	wb.Jobs[0].Skills = "Welding, Rigging"
	wb.Jobs[0].SkillRank = "3, 2"

	result, err := svc.Import(context.Background(), wb, false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Details[SheetJob].Skipped)

	job, err := store.JobByCode(context.Background(), "WELD")
	require.NoError(t, err)
	attachments, err := store.JobSkillsByJobIDs(context.Background(), []int{job.ID})
	require.NoError(t, err)
	names := make([]string, len(attachments))
	for i, a := range attachments {
		names[i] = a.SkillName
	}
	assert.ElementsMatch(t, []string{"Welding", "Painting", "Rigging"}, names)
}

func TestImportService_MissingParentFunctionImportsAsRoot(t *testing.T) {
	svc, store := newImportFixture()

	wb := fullWorkbook()
	wb.Functions = append(wb.Functions, FunctionRow{
		Name:        "Finishing",
		Code:        "FINISH",
		CompanyCode: "ACME",
		ParentCode:  "NO-SUCH-PARENT",
	})

	result, err := svc.Import(context.Background(), wb, false)
	require.NoError(t, err)

	detail := result.Details[SheetFunction]
	assert.Equal(t, 3, detail.Imported)
	assert.Equal(t, 0, detail.Failed)
	assert.Empty(t, detail.Errors)

	finish, err := store.FunctionByCode(context.Background(), "FINISH")
	require.NoError(t, err)
	assert.Nil(t, finish.ParentID)
}

func TestImportService_ExistingRowSkipsBeforeFieldValidation(t *testing.T) {
	svc, _ := newImportFixture()

	_, err := svc.Import(context.Background(), fullWorkbook(), false)
	require.NoError(t, err)

	// A known code skips immediately, even when the rest of the row would
	// not validate on its own.
	wb := fullWorkbook()
	wb.Functions = []FunctionRow{{Name: "Operations", Code: "OPS", CompanyCode: "GHOST"}}
	wb.Jobs = []JobRow{{Name: "Welder", Code: "WELD", CompanyCode: "GHOST", FunctionCode: "NOPE"}}
	wb.Companies = []CompanyRow{{Code: "ACME"}}

	result, err := svc.Import(context.Background(), wb, false)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Details[SheetFunction].Skipped)
	assert.Equal(t, 0, result.Details[SheetFunction].Failed)
	assert.Equal(t, 1, result.Details[SheetJob].Skipped)
	assert.Equal(t, 0, result.Details[SheetJob].Failed)
	assert.Equal(t, 1, result.Details[SheetCompany].Skipped)
	assert.Equal(t, 0, result.Summary.Failed)
}

// failingStore forces an unexpected storage error partway into a run.
type failingStore struct {
	Store
	err error
}

func (f *failingStore) CreateCompany(context.Context, CompanyInsert) (CompanyRecord, error) {
	return CompanyRecord{}, f.err
}

func TestImportService_StorageErrorReturnsNoPartialDetails(t *testing.T) {
	store := newMemStore()
	svc := NewImportService(
		&failingStore{Store: store, err: assert.AnError},
		&memUnitOfWork{store: store},
		nil,
	)

	result, err := svc.Import(context.Background(), fullWorkbook(), false)
	require.Error(t, err)
	require.NotNil(t, result)
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "Import failed: ")
	assert.Nil(t, result.Details)
	assert.Equal(t, ImportSummary{}, result.Summary)

	// The unit of work rolled everything back.
	assert.Empty(t, store.companies)
}

func TestImportService_PublishesCompletionEvent(t *testing.T) {
	store := newMemStore()
	bus := eventbus.NewEventPublisher(logrus.New())
	var got ImportCompletedEvent
	bus.Subscribe(func(event ImportCompletedEvent) {
		got = event
	})
	svc := NewImportService(store, &memUnitOfWork{store: store}, bus)

	_, err := svc.Import(context.Background(), fullWorkbook(), true)
	require.NoError(t, err)
	assert.True(t, got.DryRun)
	assert.Equal(t, 9, got.Summary.Imported)
}
