package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sciencehub/internal/model"
)

type ProjectRepository struct {
	db *pgxpool.Pool
}

func NewProjectRepository(db *pgxpool.Pool) *ProjectRepository {
	return &ProjectRepository{db: db}
}

const projectSelect = `
        SELECT p.id, p.company_id, p.title, p.description, p.requirements, p.skills_required,
               p.budget_min::float8, p.budget_max::float8, p.deadline, p.status, p.created_at, p.updated_at,
               c.company_name, c.logo_url, c.industry
        FROM projects p
        JOIN company_profiles c ON c.id = p.company_id
`

func scanProject(row pgx.Row) (*model.Project, error) {
	var p model.Project
	var company model.CompanySummary
	err := row.Scan(
		&p.ID,
		&p.CompanyID,
		&p.Title,
		&p.Description,
		&p.Requirements,
		&p.SkillsRequired,
		&p.BudgetMin,
		&p.BudgetMax,
		&p.Deadline,
		&p.Status,
		&p.CreatedAt,
		&p.UpdatedAt,
		&company.CompanyName,
		&company.LogoURL,
		&company.Industry,
	)
	if err != nil {
		return nil, err
	}
	p.Company = &company
	return &p, nil
}

// ListProjects returns projects matching filter, newest first, each with its
// company summary.
func (r *ProjectRepository) ListProjects(ctx context.Context, filter model.ProjectFilter) ([]model.Project, error) {
	query := projectSelect + `
        WHERE ($1 = '' OR p.company_id::text = $1)
          AND ($2 = '' OR p.status::text = $2)
        ORDER BY p.created_at DESC
    `
	rows, err := r.db.Query(ctx, query, filter.CompanyID, string(filter.Status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	projects := []model.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

func (r *ProjectRepository) GetProject(ctx context.Context, id string) (*model.Project, error) {
	p, err := scanProject(r.db.QueryRow(ctx, projectSelect+` WHERE p.id = $1`, id))
	if err != nil {
		return nil, mapError(err)
	}
	return p, nil
}

func (r *ProjectRepository) CreateProject(ctx context.Context, p *model.Project) error {
	query := `
        INSERT INTO projects (id, company_id, title, description, requirements, skills_required,
                              budget_min, budget_max, deadline, status)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING created_at, updated_at
    `
	err := r.db.QueryRow(ctx, query,
		p.ID, p.CompanyID, p.Title, p.Description, p.Requirements, nonNilStrings(p.SkillsRequired),
		p.BudgetMin, p.BudgetMax, p.Deadline, string(p.Status),
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	return mapError(err)
}

// UpdateProject writes every mutable column of p.
func (r *ProjectRepository) UpdateProject(ctx context.Context, p *model.Project) error {
	query := `
        UPDATE projects
        SET title = $2, description = $3, requirements = $4, skills_required = $5,
            budget_min = $6, budget_max = $7, deadline = $8, status = $9, updated_at = NOW()
        WHERE id = $1
        RETURNING updated_at
    `
	err := r.db.QueryRow(ctx, query,
		p.ID, p.Title, p.Description, p.Requirements, nonNilStrings(p.SkillsRequired),
		p.BudgetMin, p.BudgetMax, p.Deadline, string(p.Status),
	).Scan(&p.UpdatedAt)
	return mapError(err)
}

func (r *ProjectRepository) DeleteProject(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
