package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sciencehub/contracts/mq"
	"sciencehub/internal/model"
	"sciencehub/pkg/outbox"
	"sciencehub/pkg/trace"
)

type ApplicationRepository struct {
	db     *pgxpool.Pool
	outbox *outbox.Repository
}

func NewApplicationRepository(db *pgxpool.Pool, outboxRepo *outbox.Repository) *ApplicationRepository {
	return &ApplicationRepository{db: db, outbox: outboxRepo}
}

const applicationSelect = `
        SELECT a.id, a.project_id, a.researcher_id, p.company_id, a.cover_letter, a.proposed_timeline,
               a.proposed_budget::float8, a.status, a.created_at, a.updated_at,
               p.title, p.budget_min::float8, p.budget_max::float8, p.deadline, c.company_name, c.logo_url,
               r.first_name, r.last_name, r.avatar_url, r.specialization
        FROM applications a
        JOIN projects p ON p.id = a.project_id
        JOIN company_profiles c ON c.id = p.company_id
        JOIN researcher_profiles r ON r.id = a.researcher_id
`

func scanApplication(row pgx.Row) (*model.Application, error) {
	var a model.Application
	var project model.ProjectSummary
	var researcher model.ResearcherSummary
	err := row.Scan(
		&a.ID,
		&a.ProjectID,
		&a.ResearcherID,
		&a.CompanyID,
		&a.CoverLetter,
		&a.ProposedTimeline,
		&a.ProposedBudget,
		&a.Status,
		&a.CreatedAt,
		&a.UpdatedAt,
		&project.Title,
		&project.BudgetMin,
		&project.BudgetMax,
		&project.Deadline,
		&project.CompanyName,
		&project.LogoURL,
		&researcher.FirstName,
		&researcher.LastName,
		&researcher.AvatarURL,
		&researcher.Specialization,
	)
	if err != nil {
		return nil, err
	}
	a.Project = &project
	a.Researcher = &researcher
	return &a, nil
}

// ListApplications returns the applications of one side, newest first.
func (r *ApplicationRepository) ListApplications(ctx context.Context, filter model.ApplicationFilter) ([]model.Application, error) {
	query := applicationSelect + `
        WHERE ($1 = '' OR p.company_id::text = $1)
          AND ($2 = '' OR a.researcher_id::text = $2)
        ORDER BY a.created_at DESC
    `
	rows, err := r.db.Query(ctx, query, filter.CompanyID, filter.ResearcherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applications := []model.Application{}
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		applications = append(applications, *a)
	}
	return applications, rows.Err()
}

func (r *ApplicationRepository) GetApplication(ctx context.Context, id string) (*model.Application, error) {
	a, err := scanApplication(r.db.QueryRow(ctx, applicationSelect+` WHERE a.id = $1`, id))
	if err != nil {
		return nil, mapError(err)
	}
	return a, nil
}

func (r *ApplicationRepository) ApplicationExists(ctx context.Context, projectID, researcherID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM applications WHERE project_id = $1 AND researcher_id = $2)`,
		projectID, researcherID,
	).Scan(&exists)
	return exists, err
}

// CreateApplication inserts a. A second application for the same project by
// the same researcher fails with ErrConflict.
func (r *ApplicationRepository) CreateApplication(ctx context.Context, a *model.Application) error {
	query := `
        INSERT INTO applications (id, project_id, researcher_id, cover_letter, proposed_timeline,
                                  proposed_budget, status)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING created_at, updated_at
    `
	err := r.db.QueryRow(ctx, query,
		a.ID, a.ProjectID, a.ResearcherID, a.CoverLetter, a.ProposedTimeline,
		a.ProposedBudget, string(a.Status),
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	return mapError(err)
}

// UpdateApplicationFields writes the researcher-editable fields while the
// application is still pending. ErrConflict means it left pending first.
func (r *ApplicationRepository) UpdateApplicationFields(ctx context.Context, a *model.Application) error {
	query := `
        UPDATE applications
        SET cover_letter = $2, proposed_timeline = $3, proposed_budget = $4, updated_at = NOW()
        WHERE id = $1 AND status = 'pending'
        RETURNING updated_at
    `
	err := r.db.QueryRow(ctx, query, a.ID, a.CoverLetter, a.ProposedTimeline, a.ProposedBudget).Scan(&a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrConflict
		}
		return mapError(err)
	}
	return nil
}

// TransitionApplication moves an application from one status to another with
// a conditional update. ErrConflict means the application was not in from.
// Moving to accepted also records an application.accepted outbox event in the
// same transaction.
func (r *ApplicationRepository) TransitionApplication(ctx context.Context, id string, from, to model.ApplicationStatus) (*model.Application, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var payload mq.ApplicationAcceptedPayload
	err = tx.QueryRow(ctx, `
        UPDATE applications a
        SET status = $3, updated_at = NOW()
        FROM projects p
        WHERE a.id = $1 AND a.status = $2 AND p.id = a.project_id
        RETURNING a.id, a.project_id, p.company_id, a.researcher_id, a.updated_at
    `, id, string(from), string(to)).Scan(
		&payload.ApplicationID,
		&payload.ProjectID,
		&payload.CompanyID,
		&payload.ResearcherID,
		&payload.AcceptedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConflict
		}
		return nil, mapError(err)
	}

	if to == model.ApplicationAccepted {
		payload.AcceptedAt = payload.AcceptedAt.UTC().Truncate(time.Microsecond)
		payload.TraceID = trace.FromContext(ctx)
		if err := outbox.InsertEventInTx(ctx, tx, r.outbox,
			mq.AggregateApplication, id, mq.RoutingKeyApplicationAccepted, payload,
		); err != nil {
			return nil, fmt.Errorf("insert outbox event: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return r.GetApplication(ctx, id)
}

// DeleteApplication removes an application unless it has been accepted.
// ErrConflict means it is (or just became) accepted.
func (r *ApplicationRepository) DeleteApplication(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM applications WHERE id = $1 AND status <> 'accepted'`, id)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

// GetApplicationParties resolves the user ids on both sides of an
// application.
func (r *ApplicationRepository) GetApplicationParties(ctx context.Context, id string) (*model.ApplicationParties, error) {
	query := `
        SELECT a.id, a.status, a.project_id, c.user_id, rp.user_id
        FROM applications a
        JOIN projects p ON p.id = a.project_id
        JOIN company_profiles c ON c.id = p.company_id
        JOIN researcher_profiles rp ON rp.id = a.researcher_id
        WHERE a.id = $1
    `
	var parties model.ApplicationParties
	err := r.db.QueryRow(ctx, query, id).Scan(
		&parties.ApplicationID,
		&parties.Status,
		&parties.ProjectID,
		&parties.CompanyUserID,
		&parties.ResearcherUserID,
	)
	if err != nil {
		return nil, mapError(err)
	}
	return &parties, nil
}
