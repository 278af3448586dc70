// Package profile resolves who a request acts as and manages the role
// profiles behind that.
package profile

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"sciencehub/internal/apperr"
	"sciencehub/internal/caller"
	"sciencehub/internal/model"
	"sciencehub/internal/repository"
	"sciencehub/pkg/logger"
)

type Store interface {
	FindProfileRefs(ctx context.Context, userID string) (model.ProfileRefs, error)
	GetUser(ctx context.Context, userID string) (*model.User, error)
	CreateProfile(ctx context.Context, userID, email string, role model.Role) error
	GetCompanyProfile(ctx context.Context, userID string) (*model.CompanyProfile, error)
	SaveCompanyProfile(ctx context.Context, p *model.CompanyProfile) error
	GetResearcherProfile(ctx context.Context, userID string) (*model.ResearcherProfile, error)
	SaveResearcherProfile(ctx context.Context, p *model.ResearcherProfile) error
}

type Service struct {
	store  Store
	logger *zap.Logger
}

func NewService(store Store, logger *zap.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Resolve maps an authenticated user id to a Caller. A user without a row or
// without a role resolves to a Caller with an empty role.
func (s *Service) Resolve(ctx context.Context, userID, email string) (caller.Caller, error) {
	if userID == "" {
		return caller.Caller{}, apperr.Unauthenticated("user not authenticated")
	}

	c := caller.Caller{UserID: userID, Email: email}
	refs, err := s.store.FindProfileRefs(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return c, nil
	}
	if err != nil {
		logger.WithTrace(ctx, s.logger).Error("Failed to resolve caller", zap.String("user_id", userID), zap.Error(err))
		return caller.Caller{}, apperr.Internal("failed to resolve profile", err)
	}

	c.Role = refs.Role
	switch refs.Role {
	case model.RoleCompany:
		c.CompanyID = refs.CompanyID
	case model.RoleResearcher:
		c.ResearcherID = refs.ResearcherID
	}
	return c, nil
}

// CreateProfile chooses the user's role and creates the matching empty
// profile. Repeating it with the same role is harmless.
func (s *Service) CreateProfile(ctx context.Context, c caller.Caller, role model.Role) (*model.Profile, error) {
	if c.UserID == "" {
		return nil, apperr.Unauthenticated("user not authenticated")
	}
	if !role.Valid() {
		return nil, apperr.Validation("role must be company or researcher")
	}

	if err := s.store.CreateProfile(ctx, c.UserID, c.Email, role); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, apperr.Conflict("user already has a different role")
		}
		logger.WithTrace(ctx, s.logger).Error("Failed to create profile",
			zap.String("user_id", c.UserID),
			zap.String("role", string(role)),
			zap.Error(err),
		)
		return nil, apperr.Internal("failed to create profile", err)
	}

	logger.WithTrace(ctx, s.logger).Info("Profile created", zap.String("user_id", c.UserID), zap.String("role", string(role)))
	return s.load(ctx, c.UserID, c.Email, role)
}

// GetProfile returns the caller's own profile.
func (s *Service) GetProfile(ctx context.Context, c caller.Caller) (*model.Profile, error) {
	if c.UserID == "" {
		return nil, apperr.Unauthenticated("user not authenticated")
	}
	return s.load(ctx, c.UserID, c.Email, c.Role)
}

func (s *Service) load(ctx context.Context, userID, email string, role model.Role) (*model.Profile, error) {
	p := &model.Profile{UserID: userID, Email: email, Role: role}
	if u, err := s.store.GetUser(ctx, userID); err == nil && u.Email != "" {
		p.Email = u.Email
	}

	var err error
	switch role {
	case model.RoleCompany:
		p.Company, err = s.store.GetCompanyProfile(ctx, userID)
	case model.RoleResearcher:
		p.Researcher, err = s.store.GetResearcherProfile(ctx, userID)
	default:
		return p, nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return p, nil
	}
	if err != nil {
		return nil, apperr.Internal("failed to load profile", err)
	}
	return p, nil
}

// UpdateCompanyProfile lets a company fill in its own profile.
func (s *Service) UpdateCompanyProfile(ctx context.Context, c caller.Caller, patch model.CompanyProfilePatch) (*model.CompanyProfile, error) {
	if !c.IsCompany() {
		return nil, apperr.Forbidden("only companies can edit a company profile")
	}
	if patch.CompanyName != nil && *patch.CompanyName == "" {
		return nil, apperr.Validation("company_name cannot be empty")
	}

	current, err := s.store.GetCompanyProfile(ctx, c.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("profile not found")
	}
	if err != nil {
		return nil, apperr.Internal("failed to load profile", err)
	}

	patch.Apply(current)
	if err := s.store.SaveCompanyProfile(ctx, current); err != nil {
		return nil, apperr.Internal("failed to update profile", err)
	}
	return current, nil
}

// UpdateResearcherProfile lets a researcher fill in their own profile.
func (s *Service) UpdateResearcherProfile(ctx context.Context, c caller.Caller, patch model.ResearcherProfilePatch) (*model.ResearcherProfile, error) {
	if !c.IsResearcher() {
		return nil, apperr.Forbidden("only researchers can edit a researcher profile")
	}
	if patch.ExperienceYears != nil && *patch.ExperienceYears < 0 {
		return nil, apperr.Validation("experience_years cannot be negative")
	}

	current, err := s.store.GetResearcherProfile(ctx, c.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("profile not found")
	}
	if err != nil {
		return nil, apperr.Internal("failed to load profile", err)
	}

	patch.Apply(current)
	if err := s.store.SaveResearcherProfile(ctx, current); err != nil {
		return nil, apperr.Internal("failed to update profile", err)
	}
	return current, nil
}
