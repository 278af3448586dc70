package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sciencehub/internal/model"
)

type ReviewRepository struct {
	db *pgxpool.Pool
}

func NewReviewRepository(db *pgxpool.Pool) *ReviewRepository {
	return &ReviewRepository{db: db}
}

const reviewSelect = `
        SELECT rv.id, rv.application_id, rv.reviewer_id, rv.reviewee_id, rv.rating, rv.comment,
               rv.created_at, rv.updated_at, p.title,
               ru.role, rc.company_name, rc.logo_url, rr.first_name, rr.last_name, rr.avatar_url,
               eu.role, ec.company_name, ec.logo_url, er.first_name, er.last_name, er.avatar_url
        FROM reviews rv
        JOIN applications a ON a.id = rv.application_id
        JOIN projects p ON p.id = a.project_id
        JOIN users ru ON ru.id = rv.reviewer_id
        LEFT JOIN company_profiles rc ON rc.user_id = rv.reviewer_id
        LEFT JOIN researcher_profiles rr ON rr.user_id = rv.reviewer_id
        JOIN users eu ON eu.id = rv.reviewee_id
        LEFT JOIN company_profiles ec ON ec.user_id = rv.reviewee_id
        LEFT JOIN researcher_profiles er ON er.user_id = rv.reviewee_id
`

// participantColumns is one side's joined profile columns.
type participantColumns struct {
	role        *string
	companyName *string
	logoURL     *string
	firstName   *string
	lastName    *string
	avatarURL   *string
}

func (c participantColumns) participant(userID string) model.Participant {
	if c.role != nil && model.Role(*c.role) == model.RoleCompany {
		p := model.CompanyParticipant{UserID: userID, LogoURL: c.logoURL}
		if c.companyName != nil {
			p.CompanyName = *c.companyName
		}
		return p
	}
	p := model.ResearcherParticipant{UserID: userID, AvatarURL: c.avatarURL}
	if c.firstName != nil {
		p.FirstName = *c.firstName
	}
	if c.lastName != nil {
		p.LastName = *c.lastName
	}
	return p
}

func scanReview(row pgx.Row) (*model.Review, error) {
	var rv model.Review
	var reviewer, reviewee participantColumns
	err := row.Scan(
		&rv.ID,
		&rv.ApplicationID,
		&rv.ReviewerID,
		&rv.RevieweeID,
		&rv.Rating,
		&rv.Comment,
		&rv.CreatedAt,
		&rv.UpdatedAt,
		&rv.ProjectTitle,
		&reviewer.role, &reviewer.companyName, &reviewer.logoURL,
		&reviewer.firstName, &reviewer.lastName, &reviewer.avatarURL,
		&reviewee.role, &reviewee.companyName, &reviewee.logoURL,
		&reviewee.firstName, &reviewee.lastName, &reviewee.avatarURL,
	)
	if err != nil {
		return nil, err
	}
	rv.Reviewer = reviewer.participant(rv.ReviewerID)
	rv.Reviewee = reviewee.participant(rv.RevieweeID)
	return &rv, nil
}

// ListReviews returns reviews matching filter, newest first.
func (r *ReviewRepository) ListReviews(ctx context.Context, filter model.ReviewFilter) ([]model.Review, error) {
	query := reviewSelect + `
        WHERE ($1 = '' OR rv.reviewee_id::text = $1)
          AND ($2 = '' OR rv.application_id::text = $2)
        ORDER BY rv.created_at DESC
    `
	rows, err := r.db.Query(ctx, query, filter.RevieweeID, filter.ApplicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reviews := []model.Review{}
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, *rv)
	}
	return reviews, rows.Err()
}

func (r *ReviewRepository) GetReview(ctx context.Context, id string) (*model.Review, error) {
	rv, err := scanReview(r.db.QueryRow(ctx, reviewSelect+` WHERE rv.id = $1`, id))
	if err != nil {
		return nil, mapError(err)
	}
	return rv, nil
}

func (r *ReviewRepository) ReviewExists(ctx context.Context, applicationID, reviewerID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM reviews WHERE application_id = $1 AND reviewer_id = $2)`,
		applicationID, reviewerID,
	).Scan(&exists)
	return exists, err
}

// CreateReview inserts rv. A second review of the same application by the
// same reviewer fails with ErrConflict.
func (r *ReviewRepository) CreateReview(ctx context.Context, rv *model.Review) error {
	query := `
        INSERT INTO reviews (id, application_id, reviewer_id, reviewee_id, rating, comment)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING created_at, updated_at
    `
	err := r.db.QueryRow(ctx, query,
		rv.ID, rv.ApplicationID, rv.ReviewerID, rv.RevieweeID, rv.Rating, rv.Comment,
	).Scan(&rv.CreatedAt, &rv.UpdatedAt)
	return mapError(err)
}

func (r *ReviewRepository) UpdateReview(ctx context.Context, rv *model.Review) error {
	err := r.db.QueryRow(ctx, `
        UPDATE reviews SET rating = $2, comment = $3, updated_at = NOW()
        WHERE id = $1
        RETURNING updated_at
    `, rv.ID, rv.Rating, rv.Comment).Scan(&rv.UpdatedAt)
	return mapError(err)
}

func (r *ReviewRepository) DeleteReview(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
