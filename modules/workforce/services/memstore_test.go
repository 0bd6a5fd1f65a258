package services

import (
	"context"
)

// memStore is an in-memory Store and ExportStore used by the service tests.
// Lookups are linear scans; ids are handed out from a single counter so
// insertion order doubles as primary-key order.
type memStore struct {
	nextID int

	companies []CompanyRecord
	functions []FunctionRecord
	jobs      []JobRecord
	tasks     []TaskRecord
	processes []ProcessRecord
	people    []PersonRecord

	skills      []SkillRecord
	skillLevels []SkillLevelRecord
	jobLevels   []JobLevelRecord

	jobSkills    []memSkillLink
	taskSkills   []memSkillLink
	processTasks []ProcessTaskLink
	jobTasks     []JobTaskLink
}

type memSkillLink struct {
	OwnerID      int
	SkillID      int
	SkillLevelID int
}

func newMemStore() *memStore {
	return &memStore{}
}

func (m *memStore) id() int {
	m.nextID++
	return m.nextID
}

func (m *memStore) snapshot() memStore {
	clone := *m
	clone.companies = append([]CompanyRecord(nil), m.companies...)
	clone.functions = append([]FunctionRecord(nil), m.functions...)
	clone.jobs = append([]JobRecord(nil), m.jobs...)
	clone.tasks = append([]TaskRecord(nil), m.tasks...)
	clone.processes = append([]ProcessRecord(nil), m.processes...)
	clone.people = append([]PersonRecord(nil), m.people...)
	clone.skills = append([]SkillRecord(nil), m.skills...)
	clone.skillLevels = append([]SkillLevelRecord(nil), m.skillLevels...)
	clone.jobLevels = append([]JobLevelRecord(nil), m.jobLevels...)
	clone.jobSkills = append([]memSkillLink(nil), m.jobSkills...)
	clone.taskSkills = append([]memSkillLink(nil), m.taskSkills...)
	clone.processTasks = append([]ProcessTaskLink(nil), m.processTasks...)
	clone.jobTasks = append([]JobTaskLink(nil), m.jobTasks...)
	return clone
}

func (m *memStore) restore(snap memStore) {
	*m = snap
}

// memUnitOfWork mimics transactional semantics over memStore: a failed or
// dry run pass leaves the store exactly as it was.
type memUnitOfWork struct {
	store *memStore
}

func (u *memUnitOfWork) Run(ctx context.Context, dryRun bool, fn func(context.Context) error) error {
	snap := u.store.snapshot()
	if err := fn(ctx); err != nil {
		u.store.restore(snap)
		return err
	}
	if dryRun {
		u.store.restore(snap)
	}
	return nil
}

func (m *memStore) CompanyByCode(_ context.Context, code string) (CompanyRecord, error) {
	for _, c := range m.companies {
		if c.Code == code {
			return c, nil
		}
	}
	return CompanyRecord{}, ErrNotFound
}

func (m *memStore) CreateCompany(_ context.Context, data CompanyInsert) (CompanyRecord, error) {
	rec := CompanyRecord{ID: m.id(), Code: data.Code, Name: data.Name}
	m.companies = append(m.companies, rec)
	return rec, nil
}

func (m *memStore) FunctionByCode(_ context.Context, code string) (FunctionRecord, error) {
	for _, f := range m.functions {
		if f.Code == code {
			return f, nil
		}
	}
	return FunctionRecord{}, ErrNotFound
}

func (m *memStore) CreateFunction(_ context.Context, data FunctionInsert) (FunctionRecord, error) {
	rec := FunctionRecord{
		ID:              m.id(),
		Code:            data.Code,
		Name:            data.Name,
		CompanyID:       data.CompanyID,
		BackgroundColor: data.BackgroundColor,
		ParentID:        data.ParentID,
		Overview:        data.Overview,
	}
	m.functions = append(m.functions, rec)
	return rec, nil
}

func (m *memStore) JobByCode(_ context.Context, code string) (JobRecord, error) {
	for _, j := range m.jobs {
		if j.Code == code {
			return j, nil
		}
	}
	return JobRecord{}, ErrNotFound
}

func (m *memStore) CreateJob(_ context.Context, data JobInsert) (JobRecord, error) {
	rec := JobRecord{
		ID:             m.id(),
		Code:           data.Code,
		Name:           data.Name,
		CompanyID:      data.CompanyID,
		FunctionID:     data.FunctionID,
		JobLevelID:     data.JobLevelID,
		HourlyRate:     data.HourlyRate,
		MaxHoursPerDay: data.MaxHoursPerDay,
		Description:    data.Description,
	}
	m.jobs = append(m.jobs, rec)
	return rec, nil
}

func (m *memStore) TaskByCode(_ context.Context, code string) (TaskRecord, error) {
	for _, t := range m.tasks {
		if t.Code == code {
			return t, nil
		}
	}
	return TaskRecord{}, ErrNotFound
}

func (m *memStore) CreateTask(_ context.Context, data TaskInsert) (TaskRecord, error) {
	rec := TaskRecord{
		ID:              m.id(),
		Code:            data.Code,
		Name:            data.Name,
		CompanyID:       data.CompanyID,
		CapacityMinutes: data.CapacityMinutes,
		Overview:        data.Overview,
	}
	m.tasks = append(m.tasks, rec)
	return rec, nil
}

func (m *memStore) ProcessByCode(_ context.Context, code string) (ProcessRecord, error) {
	for _, p := range m.processes {
		if p.Code == code {
			return p, nil
		}
	}
	return ProcessRecord{}, ErrNotFound
}

func (m *memStore) CreateProcess(_ context.Context, data ProcessInsert) (ProcessRecord, error) {
	rec := ProcessRecord{
		ID:        m.id(),
		Code:      data.Code,
		Name:      data.Name,
		CompanyID: data.CompanyID,
		Overview:  data.Overview,
	}
	m.processes = append(m.processes, rec)
	return rec, nil
}

func (m *memStore) PersonByEmail(_ context.Context, email string) (PersonRecord, error) {
	for _, p := range m.people {
		if p.Email == email {
			return p, nil
		}
	}
	return PersonRecord{}, ErrNotFound
}

func (m *memStore) CreatePerson(_ context.Context, data PersonInsert) (PersonRecord, error) {
	rec := PersonRecord{
		ID:        m.id(),
		FirstName: data.FirstName,
		Surname:   data.Surname,
		Email:     data.Email,
		Phone:     data.Phone,
		CompanyID: data.CompanyID,
		JobID:     data.JobID,
		IsManager: data.IsManager,
	}
	m.people = append(m.people, rec)
	return rec, nil
}

func (m *memStore) SkillByName(_ context.Context, name string) (SkillRecord, error) {
	for _, s := range m.skills {
		if s.Name == name {
			return s, nil
		}
	}
	return SkillRecord{}, ErrNotFound
}

func (m *memStore) CreateSkill(_ context.Context, name string) (SkillRecord, error) {
	rec := SkillRecord{ID: m.id(), Name: name}
	m.skills = append(m.skills, rec)
	return rec, nil
}

func (m *memStore) SkillLevelByRank(_ context.Context, rank int) (SkillLevelRecord, error) {
	for _, l := range m.skillLevels {
		if l.Rank == rank {
			return l, nil
		}
	}
	return SkillLevelRecord{}, ErrNotFound
}

func (m *memStore) CreateSkillLevel(_ context.Context, rank int, name, _ string) (SkillLevelRecord, error) {
	rec := SkillLevelRecord{ID: m.id(), Rank: rank, Name: name}
	m.skillLevels = append(m.skillLevels, rec)
	return rec, nil
}

func (m *memStore) JobLevelByRank(_ context.Context, rank int) (JobLevelRecord, error) {
	for _, l := range m.jobLevels {
		if l.Rank == rank {
			return l, nil
		}
	}
	return JobLevelRecord{}, ErrNotFound
}

func (m *memStore) CreateJobLevel(_ context.Context, rank int, name, _ string) (JobLevelRecord, error) {
	rec := JobLevelRecord{ID: m.id(), Rank: rank, Name: name}
	m.jobLevels = append(m.jobLevels, rec)
	return rec, nil
}

func (m *memStore) JobSkillExists(_ context.Context, jobID, skillID int) (bool, error) {
	for _, l := range m.jobSkills {
		if l.OwnerID == jobID && l.SkillID == skillID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) CreateJobSkill(_ context.Context, jobID, skillID, skillLevelID int) error {
	m.jobSkills = append(m.jobSkills, memSkillLink{OwnerID: jobID, SkillID: skillID, SkillLevelID: skillLevelID})
	return nil
}

func (m *memStore) TaskSkillExists(_ context.Context, taskID, skillID int) (bool, error) {
	for _, l := range m.taskSkills {
		if l.OwnerID == taskID && l.SkillID == skillID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) CreateTaskSkill(_ context.Context, taskID, skillID, skillLevelID int) error {
	m.taskSkills = append(m.taskSkills, memSkillLink{OwnerID: taskID, SkillID: skillID, SkillLevelID: skillLevelID})
	return nil
}

func (m *memStore) ProcessTaskLinkExists(_ context.Context, processID, taskID int) (bool, error) {
	for _, l := range m.processTasks {
		if l.ProcessID == processID && l.TaskID == taskID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) CreateProcessTaskLink(_ context.Context, processID, taskID, sortOrder int) error {
	m.processTasks = append(m.processTasks, ProcessTaskLink{ProcessID: processID, TaskID: taskID, SortOrder: sortOrder})
	return nil
}

func (m *memStore) JobTaskLinkExists(_ context.Context, jobID, taskID int) (bool, error) {
	for _, l := range m.jobTasks {
		if l.JobID == jobID && l.TaskID == taskID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) CreateJobTaskLink(_ context.Context, jobID, taskID int) error {
	m.jobTasks = append(m.jobTasks, JobTaskLink{JobID: jobID, TaskID: taskID})
	return nil
}

func (m *memStore) CompaniesByIDs(_ context.Context, ids []int) ([]CompanyRecord, error) {
	want := toSet(ids)
	var out []CompanyRecord
	for _, c := range m.companies {
		if want[c.ID] {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memStore) FunctionsByCompany(_ context.Context, companyID int) ([]FunctionRecord, error) {
	var out []FunctionRecord
	for _, f := range m.functions {
		if f.CompanyID == companyID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *memStore) FunctionsByIDs(_ context.Context, ids []int) ([]FunctionRecord, error) {
	want := toSet(ids)
	var out []FunctionRecord
	for _, f := range m.functions {
		if want[f.ID] {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *memStore) JobsByCompany(_ context.Context, companyID int) ([]JobRecord, error) {
	var out []JobRecord
	for _, j := range m.jobs {
		if j.CompanyID == companyID {
			out = append(out, j)
		}
	}
	return out, nil
}

func (m *memStore) JobsByTaskIDs(_ context.Context, taskIDs []int) ([]JobRecord, error) {
	want := toSet(taskIDs)
	jobIDs := map[int]bool{}
	for _, l := range m.jobTasks {
		if want[l.TaskID] {
			jobIDs[l.JobID] = true
		}
	}
	var out []JobRecord
	for _, j := range m.jobs {
		if jobIDs[j.ID] {
			out = append(out, j)
		}
	}
	return out, nil
}

func (m *memStore) TasksByCompany(_ context.Context, companyID int) ([]TaskRecord, error) {
	var out []TaskRecord
	for _, t := range m.tasks {
		if t.CompanyID == companyID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memStore) TasksByProcessIDs(_ context.Context, processIDs []int) ([]TaskRecord, error) {
	want := toSet(processIDs)
	taskIDs := map[int]bool{}
	for _, l := range m.processTasks {
		if want[l.ProcessID] {
			taskIDs[l.TaskID] = true
		}
	}
	var out []TaskRecord
	for _, t := range m.tasks {
		if taskIDs[t.ID] {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memStore) ProcessesByCompany(_ context.Context, companyID int) ([]ProcessRecord, error) {
	var out []ProcessRecord
	for _, p := range m.processes {
		if p.CompanyID == companyID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) ProcessesByCodes(_ context.Context, codes []string) ([]ProcessRecord, error) {
	want := map[string]bool{}
	for _, code := range codes {
		want[code] = true
	}
	var out []ProcessRecord
	for _, p := range m.processes {
		if want[p.Code] {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) PeopleByCompany(_ context.Context, companyID int) ([]PersonRecord, error) {
	var out []PersonRecord
	for _, p := range m.people {
		if p.CompanyID == companyID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) PeopleByJobIDs(_ context.Context, jobIDs []int) ([]PersonRecord, error) {
	want := toSet(jobIDs)
	var out []PersonRecord
	for _, p := range m.people {
		if want[p.JobID] {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) JobLevelsByIDs(_ context.Context, ids []int) ([]JobLevelRecord, error) {
	want := toSet(ids)
	var out []JobLevelRecord
	for _, l := range m.jobLevels {
		if want[l.ID] {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memStore) JobSkillsByJobIDs(_ context.Context, jobIDs []int) ([]SkillAttachment, error) {
	return m.attachments(m.jobSkills, jobIDs), nil
}

func (m *memStore) TaskSkillsByTaskIDs(_ context.Context, taskIDs []int) ([]SkillAttachment, error) {
	return m.attachments(m.taskSkills, taskIDs), nil
}

func (m *memStore) attachments(links []memSkillLink, ownerIDs []int) []SkillAttachment {
	want := toSet(ownerIDs)
	var out []SkillAttachment
	for _, l := range links {
		if !want[l.OwnerID] {
			continue
		}
		a := SkillAttachment{OwnerID: l.OwnerID}
		for _, s := range m.skills {
			if s.ID == l.SkillID {
				a.SkillName = s.Name
			}
		}
		for _, lvl := range m.skillLevels {
			if lvl.ID == l.SkillLevelID {
				a.Rank = lvl.Rank
			}
		}
		out = append(out, a)
	}
	return out
}

func (m *memStore) ProcessTaskLinksByProcessIDs(_ context.Context, processIDs []int) ([]ProcessTaskLink, error) {
	want := toSet(processIDs)
	var out []ProcessTaskLink
	for _, l := range m.processTasks {
		if want[l.ProcessID] {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memStore) JobTaskLinksByTaskIDs(_ context.Context, taskIDs []int) ([]JobTaskLink, error) {
	want := toSet(taskIDs)
	var out []JobTaskLink
	for _, l := range m.jobTasks {
		if want[l.TaskID] {
			out = append(out, l)
		}
	}
	return out, nil
}

func toSet(ids []int) map[int]bool {
	set := make(map[int]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
