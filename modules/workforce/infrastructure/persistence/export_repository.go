package persistence

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/workforcehq/workforce-sdk/modules/workforce/services"
)

// ExportStore queries. All batch lookups early-return on an empty key set and
// order by primary key so exported workbooks are deterministic.

func (r *WorkforceRepository) CompaniesByIDs(ctx context.Context, ids []int) ([]services.CompanyRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return collect(r, ctx,
		selectCompany+` WHERE id = ANY($1::int4[]) ORDER BY id`,
		[]any{int4(ids)},
		func(rows pgx.Rows) (services.CompanyRecord, error) {
			var rec services.CompanyRecord
			err := rows.Scan(&rec.ID, &rec.Code, &rec.Name)
			return rec, err
		})
}

func (r *WorkforceRepository) FunctionsByCompany(ctx context.Context, companyID int) ([]services.FunctionRecord, error) {
	return collect(r, ctx,
		selectFunction+` WHERE company_id = $1 ORDER BY id`,
		[]any{companyID},
		func(rows pgx.Rows) (services.FunctionRecord, error) { return scanFunction(rows) })
}

func (r *WorkforceRepository) FunctionsByIDs(ctx context.Context, ids []int) ([]services.FunctionRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return collect(r, ctx,
		selectFunction+` WHERE id = ANY($1::int4[]) ORDER BY id`,
		[]any{int4(ids)},
		func(rows pgx.Rows) (services.FunctionRecord, error) { return scanFunction(rows) })
}

func (r *WorkforceRepository) JobsByCompany(ctx context.Context, companyID int) ([]services.JobRecord, error) {
	return collect(r, ctx,
		selectJob+` WHERE company_id = $1 ORDER BY id`,
		[]any{companyID},
		func(rows pgx.Rows) (services.JobRecord, error) { return scanJob(rows) })
}

func (r *WorkforceRepository) JobsByTaskIDs(ctx context.Context, taskIDs []int) ([]services.JobRecord, error) {
	if len(taskIDs) == 0 {
		return nil, nil
	}
	return collect(r, ctx,
		selectJob+` WHERE id IN (SELECT job_id FROM job_tasks WHERE task_id = ANY($1::int4[])) ORDER BY id`,
		[]any{int4(taskIDs)},
		func(rows pgx.Rows) (services.JobRecord, error) { return scanJob(rows) })
}

func (r *WorkforceRepository) TasksByCompany(ctx context.Context, companyID int) ([]services.TaskRecord, error) {
	return collect(r, ctx,
		selectTask+` WHERE company_id = $1 ORDER BY id`,
		[]any{companyID},
		func(rows pgx.Rows) (services.TaskRecord, error) { return scanTask(rows) })
}

func (r *WorkforceRepository) TasksByProcessIDs(ctx context.Context, processIDs []int) ([]services.TaskRecord, error) {
	if len(processIDs) == 0 {
		return nil, nil
	}
	return collect(r, ctx,
		selectTask+` WHERE id IN (SELECT task_id FROM process_tasks WHERE process_id = ANY($1::int4[])) ORDER BY id`,
		[]any{int4(processIDs)},
		func(rows pgx.Rows) (services.TaskRecord, error) { return scanTask(rows) })
}

func (r *WorkforceRepository) ProcessesByCompany(ctx context.Context, companyID int) ([]services.ProcessRecord, error) {
	return collect(r, ctx,
		selectProcess+` WHERE company_id = $1 ORDER BY id`,
		[]any{companyID},
		func(rows pgx.Rows) (services.ProcessRecord, error) { return scanProcess(rows) })
}

func (r *WorkforceRepository) ProcessesByCodes(ctx context.Context, codes []string) ([]services.ProcessRecord, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	return collect(r, ctx,
		selectProcess+` WHERE code = ANY($1::text[]) ORDER BY id`,
		[]any{codes},
		func(rows pgx.Rows) (services.ProcessRecord, error) { return scanProcess(rows) })
}

func (r *WorkforceRepository) PeopleByCompany(ctx context.Context, companyID int) ([]services.PersonRecord, error) {
	return collect(r, ctx,
		selectPerson+` WHERE company_id = $1 ORDER BY id`,
		[]any{companyID},
		func(rows pgx.Rows) (services.PersonRecord, error) { return scanPerson(rows) })
}

func (r *WorkforceRepository) PeopleByJobIDs(ctx context.Context, jobIDs []int) ([]services.PersonRecord, error) {
	if len(jobIDs) == 0 {
		return nil, nil
	}
	return collect(r, ctx,
		selectPerson+` WHERE job_id = ANY($1::int4[]) ORDER BY id`,
		[]any{int4(jobIDs)},
		func(rows pgx.Rows) (services.PersonRecord, error) { return scanPerson(rows) })
}

func (r *WorkforceRepository) JobLevelsByIDs(ctx context.Context, ids []int) ([]services.JobLevelRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return collect(r, ctx,
		`SELECT id, rank, name FROM job_levels WHERE id = ANY($1::int4[]) ORDER BY id`,
		[]any{int4(ids)},
		func(rows pgx.Rows) (services.JobLevelRecord, error) {
			var rec services.JobLevelRecord
			err := rows.Scan(&rec.ID, &rec.Rank, &rec.Name)
			return rec, err
		})
}

func (r *WorkforceRepository) JobSkillsByJobIDs(ctx context.Context, jobIDs []int) ([]services.SkillAttachment, error) {
	if len(jobIDs) == 0 {
		return nil, nil
	}
	return collect(r, ctx,
		`SELECT js.job_id, s.name, sl.rank
		   FROM job_skills js
		   JOIN skills s ON s.id = js.skill_id
		   JOIN skill_levels sl ON sl.id = js.skill_level_id
		  WHERE js.job_id = ANY($1::int4[])
		  ORDER BY js.job_id, s.id`,
		[]any{int4(jobIDs)},
		scanAttachment)
}

func (r *WorkforceRepository) TaskSkillsByTaskIDs(ctx context.Context, taskIDs []int) ([]services.SkillAttachment, error) {
	if len(taskIDs) == 0 {
		return nil, nil
	}
	return collect(r, ctx,
		`SELECT ts.task_id, s.name, sl.rank
		   FROM task_skills ts
		   JOIN skills s ON s.id = ts.skill_id
		   JOIN skill_levels sl ON sl.id = ts.skill_level_id
		  WHERE ts.task_id = ANY($1::int4[])
		  ORDER BY ts.task_id, s.id`,
		[]any{int4(taskIDs)},
		scanAttachment)
}

func (r *WorkforceRepository) ProcessTaskLinksByProcessIDs(ctx context.Context, processIDs []int) ([]services.ProcessTaskLink, error) {
	if len(processIDs) == 0 {
		return nil, nil
	}
	return collect(r, ctx,
		`SELECT process_id, task_id, sort_order
		   FROM process_tasks
		  WHERE process_id = ANY($1::int4[])
		  ORDER BY process_id, sort_order, task_id`,
		[]any{int4(processIDs)},
		func(rows pgx.Rows) (services.ProcessTaskLink, error) {
			var link services.ProcessTaskLink
			err := rows.Scan(&link.ProcessID, &link.TaskID, &link.SortOrder)
			return link, err
		})
}

func (r *WorkforceRepository) JobTaskLinksByTaskIDs(ctx context.Context, taskIDs []int) ([]services.JobTaskLink, error) {
	if len(taskIDs) == 0 {
		return nil, nil
	}
	return collect(r, ctx,
		`SELECT job_id, task_id FROM job_tasks WHERE task_id = ANY($1::int4[]) ORDER BY task_id, job_id`,
		[]any{int4(taskIDs)},
		func(rows pgx.Rows) (services.JobTaskLink, error) {
			var link services.JobTaskLink
			err := rows.Scan(&link.JobID, &link.TaskID)
			return link, err
		})
}

func scanAttachment(rows pgx.Rows) (services.SkillAttachment, error) {
	var a services.SkillAttachment
	err := rows.Scan(&a.OwnerID, &a.SkillName, &a.Rank)
	return a, err
}

func collect[T any](r *WorkforceRepository, ctx context.Context, query string, args []any, scan func(pgx.Rows) (T, error)) ([]T, error) {
	tx, err := r.tx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query")
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan")
		}
		out = append(out, item)
	}
	return out, errors.Wrap(rows.Err(), "rows")
}

func int4(ids []int) []int32 {
	out := make([]int32, len(ids))
	for i, id := range ids {
		out[i] = int32(id)
	}
	return out
}
