package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"sciencehub/internal/model"
)

type ProfileRepository struct {
	db *pgxpool.Pool
}

func NewProfileRepository(db *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// FindProfileRefs returns the role of a user and the ids of its profile rows
// in one round trip. ErrNotFound means the user row does not exist yet.
func (r *ProfileRepository) FindProfileRefs(ctx context.Context, userID string) (model.ProfileRefs, error) {
	query := `
        SELECT u.role, cp.id, rp.id
        FROM users u
        LEFT JOIN company_profiles cp ON cp.user_id = u.id
        LEFT JOIN researcher_profiles rp ON rp.user_id = u.id
        WHERE u.id = $1
    `
	var role, companyID, researcherID *string
	if err := r.db.QueryRow(ctx, query, userID).Scan(&role, &companyID, &researcherID); err != nil {
		return model.ProfileRefs{}, mapError(err)
	}

	var refs model.ProfileRefs
	if role != nil {
		refs.Role = model.Role(*role)
	}
	if companyID != nil {
		refs.CompanyID = *companyID
	}
	if researcherID != nil {
		refs.ResearcherID = *researcherID
	}
	return refs, nil
}

func (r *ProfileRepository) GetUser(ctx context.Context, userID string) (*model.User, error) {
	query := `SELECT id, email, role, created_at FROM users WHERE id = $1`
	var u model.User
	var role *string
	if err := r.db.QueryRow(ctx, query, userID).Scan(&u.ID, &u.Email, &role, &u.CreatedAt); err != nil {
		return nil, mapError(err)
	}
	if role != nil {
		u.Role = model.Role(*role)
	}
	return &u, nil
}

// CreateProfile records the role on the user row and inserts an empty profile
// for it. Repeating the call with the same role is a no-op; asking for a
// different role once one is set returns ErrConflict.
func (r *ProfileRepository) CreateProfile(ctx context.Context, userID, email string, role model.Role) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
        INSERT INTO users (id, email, role)
        VALUES ($1, $2, $3)
        ON CONFLICT (id) DO UPDATE
        SET role = EXCLUDED.role,
            email = CASE WHEN EXCLUDED.email <> '' THEN EXCLUDED.email ELSE users.email END,
            updated_at = NOW()
        WHERE users.role IS NULL OR users.role = EXCLUDED.role
    `, userID, email, string(role))
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}

	var insert string
	switch role {
	case model.RoleCompany:
		insert = `INSERT INTO company_profiles (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`
	case model.RoleResearcher:
		insert = `INSERT INTO researcher_profiles (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`
	default:
		return fmt.Errorf("unknown role %q", role)
	}
	if _, err := tx.Exec(ctx, insert, userID); err != nil {
		return mapError(err)
	}

	return tx.Commit(ctx)
}

const companyProfileColumns = `id, user_id, company_name, description, website, industry,
        company_size, location, logo_url, verified, created_at, updated_at`

func (r *ProfileRepository) GetCompanyProfile(ctx context.Context, userID string) (*model.CompanyProfile, error) {
	query := `SELECT ` + companyProfileColumns + ` FROM company_profiles WHERE user_id = $1`
	var p model.CompanyProfile
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&p.ID,
		&p.UserID,
		&p.CompanyName,
		&p.Description,
		&p.Website,
		&p.Industry,
		&p.CompanySize,
		&p.Location,
		&p.LogoURL,
		&p.Verified,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}
	return &p, nil
}

// SaveCompanyProfile writes the editable columns of an existing profile.
func (r *ProfileRepository) SaveCompanyProfile(ctx context.Context, p *model.CompanyProfile) error {
	query := `
        UPDATE company_profiles
        SET company_name = $2, description = $3, website = $4, industry = $5,
            company_size = $6, location = $7, logo_url = $8, updated_at = NOW()
        WHERE id = $1
        RETURNING updated_at
    `
	err := r.db.QueryRow(ctx, query,
		p.ID, p.CompanyName, p.Description, p.Website, p.Industry,
		p.CompanySize, p.Location, p.LogoURL,
	).Scan(&p.UpdatedAt)
	return mapError(err)
}

const researcherProfileColumns = `id, user_id, first_name, last_name, bio, specialization, education,
        experience_years, location, avatar_url, portfolio_url, verified, created_at, updated_at`

func (r *ProfileRepository) GetResearcherProfile(ctx context.Context, userID string) (*model.ResearcherProfile, error) {
	query := `SELECT ` + researcherProfileColumns + ` FROM researcher_profiles WHERE user_id = $1`
	var p model.ResearcherProfile
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&p.ID,
		&p.UserID,
		&p.FirstName,
		&p.LastName,
		&p.Bio,
		&p.Specialization,
		&p.Education,
		&p.ExperienceYears,
		&p.Location,
		&p.AvatarURL,
		&p.PortfolioURL,
		&p.Verified,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}
	return &p, nil
}

func (r *ProfileRepository) SaveResearcherProfile(ctx context.Context, p *model.ResearcherProfile) error {
	query := `
        UPDATE researcher_profiles
        SET first_name = $2, last_name = $3, bio = $4, specialization = $5, education = $6,
            experience_years = $7, location = $8, avatar_url = $9, portfolio_url = $10,
            updated_at = NOW()
        WHERE id = $1
        RETURNING updated_at
    `
	specialization := p.Specialization
	if specialization == nil {
		specialization = []string{}
	}
	err := r.db.QueryRow(ctx, query,
		p.ID, p.FirstName, p.LastName, p.Bio, specialization, p.Education,
		p.ExperienceYears, p.Location, p.AvatarURL, p.PortfolioURL,
	).Scan(&p.UpdatedAt)
	return mapError(err)
}

