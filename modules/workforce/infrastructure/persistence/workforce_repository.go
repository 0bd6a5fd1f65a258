package persistence

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/workforcehq/workforce-sdk/modules/workforce/services"
	"github.com/workforcehq/workforce-sdk/pkg/composables"
	"github.com/workforcehq/workforce-sdk/pkg/repo"
)

const (
	selectCompany  = `SELECT id, code, name FROM companies`
	selectFunction = `SELECT id, code, name, company_id, background_color, parent_id, overview FROM functions`
	selectJob      = `SELECT id, code, name, company_id, function_id, job_level_id, hourly_rate, max_hours_per_day, description FROM jobs`
	selectTask     = `SELECT id, code, name, company_id, capacity_minutes, overview FROM tasks`
	selectProcess  = `SELECT id, code, name, company_id, overview FROM processes`
	selectPerson   = `SELECT id, first_name, surname, email, phone, company_id, job_id, is_manager FROM people`
)

// WorkforceRepository is the pgx-backed implementation of the import store.
// Every query goes through the transaction bound to ctx when one is present,
// falling back to the pool otherwise.
type WorkforceRepository struct{}

func NewWorkforceRepository() *WorkforceRepository {
	return &WorkforceRepository{}
}

func (r *WorkforceRepository) tx(ctx context.Context) (repo.Tx, error) {
	return composables.UseTx(ctx)
}

func (r *WorkforceRepository) CompanyByCode(ctx context.Context, code string) (services.CompanyRecord, error) {
	tx, err := r.tx(ctx)
	if err != nil {
		return services.CompanyRecord{}, err
	}
	var rec services.CompanyRecord
	err = tx.QueryRow(ctx, selectCompany+` WHERE code = $1`, code).
		Scan(&rec.ID, &rec.Code, &rec.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return services.CompanyRecord{}, services.ErrNotFound
	}
	if err != nil {
		return services.CompanyRecord{}, errors.Wrap(err, "query company")
	}
	return rec, nil
}

func (r *WorkforceRepository) CreateCompany(ctx context.Context, data services.CompanyInsert) (services.CompanyRecord, error) {
	tx, err := r.tx(ctx)
	if err != nil {
		return services.CompanyRecord{}, err
	}
	var rec services.CompanyRecord
	err = tx.QueryRow(ctx,
		`INSERT INTO companies (code, name) VALUES ($1, $2) RETURNING id, code, name`,
		data.Code, data.Name,
	).Scan(&rec.ID, &rec.Code, &rec.Name)
	if err != nil {
		return services.CompanyRecord{}, errors.Wrap(err, "insert company")
	}
	return rec, nil
}

func (r *WorkforceRepository) FunctionByCode(ctx context.Context, code string) (services.FunctionRecord, error) {
	tx, err := r.tx(ctx)
	if err != nil {
		return services.FunctionRecord{}, err
	}
	rec, err := scanFunction(tx.QueryRow(ctx, selectFunction+` WHERE code = $1`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return services.FunctionRecord{}, services.ErrNotFound
	}
	if err != nil {
		return services.FunctionRecord{}, errors.Wrap(err, "query function")
	}
	return rec, nil
}

func (r *WorkforceRepository) CreateFunction(ctx context.Context, data services.FunctionInsert) (services.FunctionRecord, error) {
	tx, err := r.tx(ctx)
	if err != nil {
		return services.FunctionRecord{}, err
	}
	rec, err := scanFunction(tx.QueryRow(ctx,
		`INSERT INTO functions (code, name, company_id, background_color, parent_id, overview)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, code, name, company_id, background_color, parent_id, overview`,
		data.Code, data.Name, data.CompanyID, data.BackgroundColor, data.ParentID, data.Overview,
	))
	if err != nil {
		return services.FunctionRecord{}, errors.Wrap(err, "insert function")
	}
	return rec, nil
}

func (r *WorkforceRepository) JobByCode(ctx context.Context, code string) (services.JobRecord, error) {
	tx, err := r.tx(ctx)
	if err != nil {
		return services.JobRecord{}, err
	}
	rec, err := scanJob(tx.QueryRow(ctx, selectJob+` WHERE code = $1`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return services.JobRecord{}, services.ErrNotFound
	}
	if err != nil {
		return services.JobRecord{}, errors.Wrap(err, "query job")
	}
	return rec, nil
}

func (r *WorkforceRepository) CreateJob(ctx context.Context, data services.JobInsert) (services.JobRecord, error) {
	tx, err := r.tx(ctx)
	if err != nil {
		return services.JobRecord{}, err
	}
	rec, err := scanJob(tx.QueryRow(ctx,
		`INSERT INTO jobs (code, name, company_id, function_id, job_level_id, hourly_rate, max_hours_per_day, description)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, code, name, company_id, function_id, job_level_id, hourly_rate, max_hours_per_day, description`,
		data.Code, data.Name, data.CompanyID, data.FunctionID, data.JobLevelID,
		data.HourlyRate, data.MaxHoursPerDay, data.Description,
	))
	if err != nil {
		return services.JobRecord{}, errors.Wrap(err, "insert job")
	}
	return rec, nil
}

func (r *WorkforceRepository) TaskByCode(ctx context.Context, code string) (services.TaskRecord, error) {
	tx, err := r.tx(ctx)
	if err != nil {
		return services.TaskRecord{}, err
	}
	rec, err := scanTask(tx.QueryRow(ctx, selectTask+` WHERE code = $1`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return services.TaskRecord{}, services.ErrNotFound
	}
	if err != nil {
		return services.TaskRecord{}, errors.Wrap(err, "query task")
	}
	return rec, nil
}

func (r *WorkforceRepository) CreateTask(ctx context.Context, data services.TaskInsert) (services.TaskRecord, error) {
	tx, err := r.tx(ctx)
	if err != nil {
		return services.TaskRecord{}, err
	}
	rec, err := scanTask(tx.QueryRow(ctx,
		`INSERT INTO tasks (code, name, company_id, capacity_minutes, overview)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, code, name, company_id, capacity_minutes, overview`,
		data.Code, data.Name, data.CompanyID, data.CapacityMinutes, data.Overview,
	))
	if err != nil {
		return services.TaskRecord{}, errors.Wrap(err, "insert task")
	}
	return rec, nil
}

func (r *WorkforceRepository) ProcessByCode(ctx context.Context, code string) (services.ProcessRecord, error) {
	tx, err := r.tx(ctx)
	if err != nil {
		return services.ProcessRecord{}, err
	}
	rec, err := scanProcess(tx.QueryRow(ctx, selectProcess+` WHERE code = $1`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return services.ProcessRecord{}, services.ErrNotFound
	}
	if err != nil {
		return services.ProcessRecord{}, errors.Wrap(err, "query process")
	}
	return rec, nil
}

func (r *WorkforceRepository) CreateProcess(ctx context.Context, data services.ProcessInsert) (services.ProcessRecord, error) {
	tx, err := r.tx(ctx)
	if err != nil {
		return services.ProcessRecord{}, err
	}
	rec, err := scanProcess(tx.QueryRow(ctx,
		`INSERT INTO processes (code, name, company_id, overview)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, code, name, company_id, overview`,
		data.Code, data.Name, data.CompanyID, data.Overview,
	))
	if err != nil {
		return services.ProcessRecord{}, errors.Wrap(err, "insert process")
	}
	return rec, nil
}

func (r *WorkforceRepository) PersonByEmail(ctx context.Context, email string) (services.PersonRecord, error) {
	tx, err := r.tx(ctx)
	if err != nil {
		return services.PersonRecord{}, err
	}
	rec, err := scanPerson(tx.QueryRow(ctx, selectPerson+` WHERE email = $1`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return services.PersonRecord{}, services.ErrNotFound
	}
	if err != nil {
		return services.PersonRecord{}, errors.Wrap(err, "query person")
	}
	return rec, nil
}

func (r *WorkforceRepository) CreatePerson(ctx context.Context, data services.PersonInsert) (services.PersonRecord, error) {
	tx, err := r.tx(ctx)
	if err != nil {
		return services.PersonRecord{}, err
	}
	rec, err := scanPerson(tx.QueryRow(ctx,
		`INSERT INTO people (first_name, surname, email, phone, company_id, job_id, is_manager)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, first_name, surname, email, phone, company_id, job_id, is_manager`,
		data.FirstName, data.Surname, data.Email, data.Phone, data.CompanyID, data.JobID, data.IsManager,
	))
	if err != nil {
		return services.PersonRecord{}, errors.Wrap(err, "insert person")
	}
	return rec, nil
}

func (r *WorkforceRepository) SkillByName(ctx context.Context, name string) (services.SkillRecord, error) {
	tx, err := r.tx(ctx)
	if err != nil {
		return services.SkillRecord{}, err
	}
	var rec services.SkillRecord
	err = tx.QueryRow(ctx, `SELECT id, name FROM skills WHERE name = $1`, name).
		Scan(&rec.ID, &rec.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return services.SkillRecord{}, services.ErrNotFound
	}
	if err != nil {
		return services.SkillRecord{}, errors.Wrap(err, "query skill")
	}
	return rec, nil
}

// CreateSkill inserts the dictionary row, deferring to a concurrent winner
// on conflict.
func (r *WorkforceRepository) CreateSkill(ctx context.Context, name string) (services.SkillRecord, error) {
	tx, err := r.tx(ctx)
	if err != nil {
		return services.SkillRecord{}, err
	}
	var rec services.SkillRecord
	err = tx.QueryRow(ctx,
		`INSERT INTO skills (name) VALUES ($1)
		 ON CONFLICT (name) DO NOTHING
		 RETURNING id, name`, name,
	).Scan(&rec.ID, &rec.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return r.SkillByName(ctx, name)
	}
	if err != nil {
		return services.SkillRecord{}, errors.Wrap(err, "insert skill")
	}
	return rec, nil
}

func (r *WorkforceRepository) SkillLevelByRank(ctx context.Context, rank int) (services.SkillLevelRecord, error) {
	tx, err := r.tx(ctx)
	if err != nil {
		return services.SkillLevelRecord{}, err
	}
	var rec services.SkillLevelRecord
	err = tx.QueryRow(ctx, `SELECT id, rank, name FROM skill_levels WHERE rank = $1`, rank).
		Scan(&rec.ID, &rec.Rank, &rec.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return services.SkillLevelRecord{}, services.ErrNotFound
	}
	if err != nil {
		return services.SkillLevelRecord{}, errors.Wrap(err, "query skill level")
	}
	return rec, nil
}

func (r *WorkforceRepository) CreateSkillLevel(ctx context.Context, rank int, name, description string) (services.SkillLevelRecord, error) {
	tx, err := r.tx(ctx)
	if err != nil {
		return services.SkillLevelRecord{}, err
	}
	var rec services.SkillLevelRecord
	err = tx.QueryRow(ctx,
		`INSERT INTO skill_levels (rank, name, description) VALUES ($1, $2, $3)
		 ON CONFLICT (rank) DO NOTHING
		 RETURNING id, rank, name`,
		rank, name, description,
	).Scan(&rec.ID, &rec.Rank, &rec.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return r.SkillLevelByRank(ctx, rank)
	}
	if err != nil {
		return services.SkillLevelRecord{}, errors.Wrap(err, "insert skill level")
	}
	return rec, nil
}

func (r *WorkforceRepository) JobLevelByRank(ctx context.Context, rank int) (services.JobLevelRecord, error) {
	tx, err := r.tx(ctx)
	if err != nil {
		return services.JobLevelRecord{}, err
	}
	var rec services.JobLevelRecord
	err = tx.QueryRow(ctx, `SELECT id, rank, name FROM job_levels WHERE rank = $1`, rank).
		Scan(&rec.ID, &rec.Rank, &rec.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return services.JobLevelRecord{}, services.ErrNotFound
	}
	if err != nil {
		return services.JobLevelRecord{}, errors.Wrap(err, "query job level")
	}
	return rec, nil
}

func (r *WorkforceRepository) CreateJobLevel(ctx context.Context, rank int, name, description string) (services.JobLevelRecord, error) {
	tx, err := r.tx(ctx)
	if err != nil {
		return services.JobLevelRecord{}, err
	}
	var rec services.JobLevelRecord
	err = tx.QueryRow(ctx,
		`INSERT INTO job_levels (rank, name, description) VALUES ($1, $2, $3)
		 ON CONFLICT (rank) DO NOTHING
		 RETURNING id, rank, name`,
		rank, name, description,
	).Scan(&rec.ID, &rec.Rank, &rec.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return r.JobLevelByRank(ctx, rank)
	}
	if err != nil {
		return services.JobLevelRecord{}, errors.Wrap(err, "insert job level")
	}
	return rec, nil
}

func (r *WorkforceRepository) JobSkillExists(ctx context.Context, jobID, skillID int) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM job_skills WHERE job_id = $1 AND skill_id = $2)`, jobID, skillID)
}

func (r *WorkforceRepository) CreateJobSkill(ctx context.Context, jobID, skillID, skillLevelID int) error {
	tx, err := r.tx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO job_skills (job_id, skill_id, skill_level_id) VALUES ($1, $2, $3)
		 ON CONFLICT (job_id, skill_id) DO NOTHING`,
		jobID, skillID, skillLevelID,
	)
	return errors.Wrap(err, "insert job skill")
}

func (r *WorkforceRepository) TaskSkillExists(ctx context.Context, taskID, skillID int) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM task_skills WHERE task_id = $1 AND skill_id = $2)`, taskID, skillID)
}

func (r *WorkforceRepository) CreateTaskSkill(ctx context.Context, taskID, skillID, skillLevelID int) error {
	tx, err := r.tx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO task_skills (task_id, skill_id, skill_level_id) VALUES ($1, $2, $3)
		 ON CONFLICT (task_id, skill_id) DO NOTHING`,
		taskID, skillID, skillLevelID,
	)
	return errors.Wrap(err, "insert task skill")
}

func (r *WorkforceRepository) ProcessTaskLinkExists(ctx context.Context, processID, taskID int) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM process_tasks WHERE process_id = $1 AND task_id = $2)`, processID, taskID)
}

func (r *WorkforceRepository) CreateProcessTaskLink(ctx context.Context, processID, taskID, sortOrder int) error {
	tx, err := r.tx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO process_tasks (process_id, task_id, sort_order) VALUES ($1, $2, $3)
		 ON CONFLICT (process_id, task_id) DO NOTHING`,
		processID, taskID, sortOrder,
	)
	return errors.Wrap(err, "insert process task link")
}

func (r *WorkforceRepository) JobTaskLinkExists(ctx context.Context, jobID, taskID int) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM job_tasks WHERE job_id = $1 AND task_id = $2)`, jobID, taskID)
}

func (r *WorkforceRepository) CreateJobTaskLink(ctx context.Context, jobID, taskID int) error {
	tx, err := r.tx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO job_tasks (job_id, task_id) VALUES ($1, $2)
		 ON CONFLICT (job_id, task_id) DO NOTHING`,
		jobID, taskID,
	)
	return errors.Wrap(err, "insert job task link")
}

func (r *WorkforceRepository) exists(ctx context.Context, query string, args ...any) (bool, error) {
	tx, err := r.tx(ctx)
	if err != nil {
		return false, err
	}
	var exists bool
	if err := tx.QueryRow(ctx, query, args...).Scan(&exists); err != nil {
		return false, errors.Wrap(err, "query exists")
	}
	return exists, nil
}

func scanFunction(row pgx.Row) (services.FunctionRecord, error) {
	var rec services.FunctionRecord
	err := row.Scan(&rec.ID, &rec.Code, &rec.Name, &rec.CompanyID, &rec.BackgroundColor, &rec.ParentID, &rec.Overview)
	return rec, err
}

func scanJob(row pgx.Row) (services.JobRecord, error) {
	var rec services.JobRecord
	err := row.Scan(&rec.ID, &rec.Code, &rec.Name, &rec.CompanyID, &rec.FunctionID, &rec.JobLevelID, &rec.HourlyRate, &rec.MaxHoursPerDay, &rec.Description)
	return rec, err
}

func scanTask(row pgx.Row) (services.TaskRecord, error) {
	var rec services.TaskRecord
	err := row.Scan(&rec.ID, &rec.Code, &rec.Name, &rec.CompanyID, &rec.CapacityMinutes, &rec.Overview)
	return rec, err
}

func scanProcess(row pgx.Row) (services.ProcessRecord, error) {
	var rec services.ProcessRecord
	err := row.Scan(&rec.ID, &rec.Code, &rec.Name, &rec.CompanyID, &rec.Overview)
	return rec, err
}

func scanPerson(row pgx.Row) (services.PersonRecord, error) {
	var rec services.PersonRecord
	err := row.Scan(&rec.ID, &rec.FirstName, &rec.Surname, &rec.Email, &rec.Phone, &rec.CompanyID, &rec.JobID, &rec.IsManager)
	return rec, err
}
