// Package review records the ratings both sides of an accepted application
// leave for each other.
package review

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sciencehub/internal/apperr"
	"sciencehub/internal/caller"
	"sciencehub/internal/model"
	"sciencehub/internal/repository"
	"sciencehub/pkg/logger"
)

const (
	minRating = 1
	maxRating = 5
)

type Store interface {
	ListReviews(ctx context.Context, filter model.ReviewFilter) ([]model.Review, error)
	GetReview(ctx context.Context, id string) (*model.Review, error)
	ReviewExists(ctx context.Context, applicationID, reviewerID string) (bool, error)
	CreateReview(ctx context.Context, rv *model.Review) error
	UpdateReview(ctx context.Context, rv *model.Review) error
	DeleteReview(ctx context.Context, id string) error
}

type Applications interface {
	GetApplicationParties(ctx context.Context, id string) (*model.ApplicationParties, error)
}

type Service struct {
	store        Store
	applications Applications
	logger       *zap.Logger
}

func NewService(store Store, applications Applications, logger *zap.Logger) *Service {
	return &Service{store: store, applications: applications, logger: logger}
}

func (s *Service) List(ctx context.Context, filter model.ReviewFilter) ([]model.Review, error) {
	reviews, err := s.store.ListReviews(ctx, filter)
	if err != nil {
		return nil, apperr.Internal("failed to list reviews", err)
	}
	return reviews, nil
}

func (s *Service) Get(ctx context.Context, id string) (*model.Review, error) {
	rv, err := s.store.GetReview(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("review not found")
	}
	if err != nil {
		return nil, apperr.Internal("failed to load review", err)
	}
	return rv, nil
}

// Create lets one side of an accepted application review the other side.
func (s *Service) Create(ctx context.Context, c caller.Caller, in model.NewReview) (*model.Review, error) {
	if in.ApplicationID == "" || in.RevieweeID == "" {
		return nil, apperr.Validation("application_id and reviewee_id are required")
	}
	if err := validateRating(in.Rating); err != nil {
		return nil, err
	}

	parties, err := s.applications.GetApplicationParties(ctx, in.ApplicationID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("application not found")
	}
	if err != nil {
		return nil, apperr.Internal("failed to load application", err)
	}
	if parties.Status != model.ApplicationAccepted {
		return nil, apperr.InvalidState("only accepted applications can be reviewed")
	}

	var counterpart string
	switch c.UserID {
	case parties.CompanyUserID:
		counterpart = parties.ResearcherUserID
	case parties.ResearcherUserID:
		counterpart = parties.CompanyUserID
	default:
		return nil, apperr.Forbidden("not a participant of this application")
	}
	if in.RevieweeID != counterpart {
		return nil, apperr.Validation("reviewee must be the other participant of the application")
	}

	exists, err := s.store.ReviewExists(ctx, in.ApplicationID, c.UserID)
	if err != nil {
		return nil, apperr.Internal("failed to check existing review", err)
	}
	if exists {
		return nil, apperr.Conflict("already reviewed this application")
	}

	rv := &model.Review{
		ID:            uuid.NewString(),
		ApplicationID: in.ApplicationID,
		ReviewerID:    c.UserID,
		RevieweeID:    in.RevieweeID,
		Rating:        in.Rating,
		Comment:       in.Comment,
	}
	if err := s.store.CreateReview(ctx, rv); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, apperr.Conflict("already reviewed this application")
		}
		return nil, apperr.Internal("failed to create review", err)
	}

	logger.WithTrace(ctx, s.logger).Info("Review created",
		zap.String("review_id", rv.ID),
		zap.String("application_id", rv.ApplicationID),
		zap.Int("rating", rv.Rating),
	)
	return s.Get(ctx, rv.ID)
}

func (s *Service) Update(ctx context.Context, c caller.Caller, id string, patch model.ReviewPatch) (*model.Review, error) {
	rv, err := s.authored(ctx, c, id)
	if err != nil {
		return nil, err
	}
	if patch.Rating != nil {
		if err := validateRating(*patch.Rating); err != nil {
			return nil, err
		}
		rv.Rating = *patch.Rating
	}
	if patch.Comment != nil {
		rv.Comment = patch.Comment
	}

	if err := s.store.UpdateReview(ctx, rv); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("review not found")
		}
		return nil, apperr.Internal("failed to update review", err)
	}
	return s.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, c caller.Caller, id string) error {
	if _, err := s.authored(ctx, c, id); err != nil {
		return err
	}
	if err := s.store.DeleteReview(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("review not found")
		}
		return apperr.Internal("failed to delete review", err)
	}
	return nil
}

func (s *Service) authored(ctx context.Context, c caller.Caller, id string) (*model.Review, error) {
	rv, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.UserID == "" || rv.ReviewerID != c.UserID {
		return nil, apperr.Forbidden("only the reviewer can change this review")
	}
	return rv, nil
}

func validateRating(rating int) error {
	if rating < minRating || rating > maxRating {
		return apperr.Validation("rating must be between %d and %d", minRating, maxRating)
	}
	return nil
}
