package services

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned by natural-key lookups when no record matches.
var ErrNotFound = errors.New("record not found")

type CompanyRecord struct {
	ID   int
	Code string
	Name string
}

type FunctionRecord struct {
	ID              int
	Code            string
	Name            string
	CompanyID       int
	BackgroundColor *string
	ParentID        *int
	Overview        *string
}

type JobRecord struct {
	ID             int
	Code           string
	Name           string
	CompanyID      int
	FunctionID     int
	JobLevelID     int
	HourlyRate     decimal.Decimal
	MaxHoursPerDay decimal.Decimal
	Description    string
}

type TaskRecord struct {
	ID              int
	Code            string
	Name            string
	CompanyID       int
	CapacityMinutes int
	Overview        string
}

type ProcessRecord struct {
	ID        int
	Code      string
	Name      string
	CompanyID int
	Overview  string
}

type PersonRecord struct {
	ID        int
	FirstName string
	Surname   string
	Email     string
	Phone     *string
	CompanyID int
	JobID     int
	IsManager bool
}

type SkillRecord struct {
	ID   int
	Name string
}

type SkillLevelRecord struct {
	ID   int
	Rank int
	Name string
}

type JobLevelRecord struct {
	ID   int
	Rank int
	Name string
}

type CompanyInsert struct {
	Code string
	Name string
}

type FunctionInsert struct {
	Code            string
	Name            string
	CompanyID       int
	BackgroundColor *string
	ParentID        *int
	Overview        *string
}

type JobInsert struct {
	Code           string
	Name           string
	CompanyID      int
	FunctionID     int
	JobLevelID     int
	HourlyRate     decimal.Decimal
	MaxHoursPerDay decimal.Decimal
	Description    string
}

type TaskInsert struct {
	Code            string
	Name            string
	CompanyID       int
	CapacityMinutes int
	Overview        string
}

type ProcessInsert struct {
	Code      string
	Name      string
	CompanyID int
	Overview  string
}

type PersonInsert struct {
	FirstName string
	Surname   string
	Email     string
	Phone     *string
	CompanyID int
	JobID     int
	IsManager bool
}

// Store is the transactional surface the import reconcilers run against.
// Every method observes the transaction bound to ctx, so rows created by an
// earlier phase (or an earlier row of the same phase) are visible to later
// lookups within one import.
type Store interface {
	CompanyByCode(ctx context.Context, code string) (CompanyRecord, error)
	CreateCompany(ctx context.Context, data CompanyInsert) (CompanyRecord, error)

	FunctionByCode(ctx context.Context, code string) (FunctionRecord, error)
	CreateFunction(ctx context.Context, data FunctionInsert) (FunctionRecord, error)

	JobByCode(ctx context.Context, code string) (JobRecord, error)
	CreateJob(ctx context.Context, data JobInsert) (JobRecord, error)

	TaskByCode(ctx context.Context, code string) (TaskRecord, error)
	CreateTask(ctx context.Context, data TaskInsert) (TaskRecord, error)

	ProcessByCode(ctx context.Context, code string) (ProcessRecord, error)
	CreateProcess(ctx context.Context, data ProcessInsert) (ProcessRecord, error)

	PersonByEmail(ctx context.Context, email string) (PersonRecord, error)
	CreatePerson(ctx context.Context, data PersonInsert) (PersonRecord, error)

	// Skill, skill-level and job-level rows are shared append-only
	// dictionaries. Create must tolerate a concurrent import winning the
	// insert race by re-reading the now-existing row.
	SkillByName(ctx context.Context, name string) (SkillRecord, error)
	CreateSkill(ctx context.Context, name string) (SkillRecord, error)

	SkillLevelByRank(ctx context.Context, rank int) (SkillLevelRecord, error)
	CreateSkillLevel(ctx context.Context, rank int, name, description string) (SkillLevelRecord, error)

	JobLevelByRank(ctx context.Context, rank int) (JobLevelRecord, error)
	CreateJobLevel(ctx context.Context, rank int, name, description string) (JobLevelRecord, error)

	JobSkillExists(ctx context.Context, jobID, skillID int) (bool, error)
	CreateJobSkill(ctx context.Context, jobID, skillID, skillLevelID int) error

	TaskSkillExists(ctx context.Context, taskID, skillID int) (bool, error)
	CreateTaskSkill(ctx context.Context, taskID, skillID, skillLevelID int) error

	ProcessTaskLinkExists(ctx context.Context, processID, taskID int) (bool, error)
	CreateProcessTaskLink(ctx context.Context, processID, taskID, sortOrder int) error

	JobTaskLinkExists(ctx context.Context, jobID, taskID int) (bool, error)
	CreateJobTaskLink(ctx context.Context, jobID, taskID int) error
}

// SkillAttachment is one (owner, skill, rank) row, in attachment order.
type SkillAttachment struct {
	OwnerID   int
	SkillName string
	Rank      int
}

type ProcessTaskLink struct {
	ProcessID int
	TaskID    int
	SortOrder int
}

type JobTaskLink struct {
	JobID  int
	TaskID int
}

// ExportStore is the read-only surface the exporter projects from. Queries
// run against last-committed state; slice results are ordered by insertion
// (primary key) so exports are deterministic.
type ExportStore interface {
	CompanyByCode(ctx context.Context, code string) (CompanyRecord, error)
	CompaniesByIDs(ctx context.Context, ids []int) ([]CompanyRecord, error)

	FunctionsByCompany(ctx context.Context, companyID int) ([]FunctionRecord, error)
	FunctionsByIDs(ctx context.Context, ids []int) ([]FunctionRecord, error)

	JobsByCompany(ctx context.Context, companyID int) ([]JobRecord, error)
	JobsByTaskIDs(ctx context.Context, taskIDs []int) ([]JobRecord, error)

	TasksByCompany(ctx context.Context, companyID int) ([]TaskRecord, error)
	TasksByProcessIDs(ctx context.Context, processIDs []int) ([]TaskRecord, error)

	ProcessesByCompany(ctx context.Context, companyID int) ([]ProcessRecord, error)
	ProcessesByCodes(ctx context.Context, codes []string) ([]ProcessRecord, error)

	PeopleByCompany(ctx context.Context, companyID int) ([]PersonRecord, error)
	PeopleByJobIDs(ctx context.Context, jobIDs []int) ([]PersonRecord, error)

	JobLevelsByIDs(ctx context.Context, ids []int) ([]JobLevelRecord, error)
	JobSkillsByJobIDs(ctx context.Context, jobIDs []int) ([]SkillAttachment, error)
	TaskSkillsByTaskIDs(ctx context.Context, taskIDs []int) ([]SkillAttachment, error)
	ProcessTaskLinksByProcessIDs(ctx context.Context, processIDs []int) ([]ProcessTaskLink, error)
	JobTaskLinksByTaskIDs(ctx context.Context, taskIDs []int) ([]JobTaskLink, error)
}

// UnitOfWork runs fn inside one atomic storage scope. A dry run executes fn
// fully, then discards every write; fn cannot tell the difference.
type UnitOfWork interface {
	Run(ctx context.Context, dryRun bool, fn func(context.Context) error) error
}
