// Package application runs the apply / decide / withdraw workflow between
// researchers and the companies that own projects.
package application

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sciencehub/internal/apperr"
	"sciencehub/internal/caller"
	"sciencehub/internal/model"
	"sciencehub/internal/repository"
	"sciencehub/pkg/logger"
	"sciencehub/pkg/metrics"
	"sciencehub/pkg/rbac"
)

type Store interface {
	ListApplications(ctx context.Context, filter model.ApplicationFilter) ([]model.Application, error)
	GetApplication(ctx context.Context, id string) (*model.Application, error)
	ApplicationExists(ctx context.Context, projectID, researcherID string) (bool, error)
	CreateApplication(ctx context.Context, a *model.Application) error
	UpdateApplicationFields(ctx context.Context, a *model.Application) error
	TransitionApplication(ctx context.Context, id string, from, to model.ApplicationStatus) (*model.Application, error)
	DeleteApplication(ctx context.Context, id string) error
}

// Projects is the read access the workflow needs to the project registry.
type Projects interface {
	GetProject(ctx context.Context, id string) (*model.Project, error)
}

type Service struct {
	store    Store
	projects Projects
	logger   *zap.Logger
}

func NewService(store Store, projects Projects, logger *zap.Logger) *Service {
	return &Service{store: store, projects: projects, logger: logger}
}

// List returns the applications to a company's projects, or a researcher's
// own applications.
func (s *Service) List(ctx context.Context, c caller.Caller) ([]model.Application, error) {
	var filter model.ApplicationFilter
	switch {
	case c.IsCompany():
		filter.CompanyID = c.CompanyID
	case c.IsResearcher():
		filter.ResearcherID = c.ResearcherID
	default:
		return []model.Application{}, nil
	}

	applications, err := s.store.ListApplications(ctx, filter)
	if err != nil {
		return nil, apperr.Internal("failed to list applications", err)
	}
	return applications, nil
}

func (s *Service) Get(ctx context.Context, c caller.Caller, id string) (*model.Application, error) {
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isApplicant(c, a) && !isOwner(c, a) {
		return nil, apperr.Forbidden("no access to this application")
	}
	return a, nil
}

func (s *Service) Create(ctx context.Context, c caller.Caller, in model.NewApplication) (*model.Application, error) {
	if !c.IsResearcher() || rbac.CheckPermission(string(c.Role), rbac.PermissionApplicationCreate) != nil {
		return nil, apperr.Forbidden("only researchers can apply to projects")
	}
	if in.ProjectID == "" || strings.TrimSpace(in.CoverLetter) == "" {
		return nil, apperr.Validation("project_id and cover_letter are required")
	}
	if in.ProposedBudget != nil && *in.ProposedBudget < 0 {
		return nil, apperr.Validation("proposed_budget cannot be negative")
	}

	p, err := s.projects.GetProject(ctx, in.ProjectID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Internal("failed to load project", err)
	}
	if p == nil || p.Status != model.ProjectPublished {
		return nil, apperr.InvalidState("project not found or not published")
	}

	exists, err := s.store.ApplicationExists(ctx, in.ProjectID, c.ResearcherID)
	if err != nil {
		return nil, apperr.Internal("failed to check existing application", err)
	}
	if exists {
		return nil, apperr.Conflict("already applied to this project")
	}

	a := &model.Application{
		ID:               uuid.NewString(),
		ProjectID:        in.ProjectID,
		ResearcherID:     c.ResearcherID,
		CoverLetter:      in.CoverLetter,
		ProposedTimeline: in.ProposedTimeline,
		ProposedBudget:   in.ProposedBudget,
		Status:           model.ApplicationPending,
	}
	if err := s.store.CreateApplication(ctx, a); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, apperr.Conflict("already applied to this project")
		}
		return nil, apperr.Internal("failed to create application", err)
	}

	logger.WithTrace(ctx, s.logger).Info("Application submitted",
		zap.String("application_id", a.ID),
		zap.String("project_id", a.ProjectID),
		zap.String("researcher_id", a.ResearcherID),
	)
	return s.load(ctx, a.ID)
}

// Update applies a researcher edit or withdrawal, or a company decision.
// Status changes are conditional on the application still being pending;
// losing that race returns Conflict.
func (s *Service) Update(ctx context.Context, c caller.Caller, id string, patch model.ApplicationPatch) (*model.Application, error) {
	a, err := s.Get(ctx, c, id)
	if err != nil {
		return nil, err
	}
	if (patch.Status != nil || patch.HasFieldChanges()) && a.Status != model.ApplicationPending {
		return nil, apperr.InvalidTransition("application is %s and can no longer change", a.Status)
	}

	if isApplicant(c, a) {
		return s.updateAsResearcher(ctx, c, a, patch)
	}
	return s.decide(ctx, c, a, patch)
}

func (s *Service) updateAsResearcher(ctx context.Context, c caller.Caller, a *model.Application, patch model.ApplicationPatch) (*model.Application, error) {
	if patch.Status != nil && *patch.Status != model.ApplicationWithdrawn {
		return nil, apperr.Forbidden("researchers can only withdraw an application")
	}
	if patch.Status != nil && patch.HasFieldChanges() {
		return nil, apperr.Validation("a withdrawal cannot be combined with field edits")
	}
	if b := patch.ProposedBudget.Value; b != nil && *b < 0 {
		return nil, apperr.Validation("proposed_budget cannot be negative")
	}
	if patch.CoverLetter != nil && strings.TrimSpace(*patch.CoverLetter) == "" {
		return nil, apperr.Validation("cover_letter cannot be empty")
	}

	if patch.Status == nil {
		if patch.HasFieldChanges() {
			patch.Apply(a)
			if err := s.store.UpdateApplicationFields(ctx, a); err != nil {
				if errors.Is(err, repository.ErrConflict) {
					return nil, apperr.Conflict("application changed status concurrently")
				}
				return nil, apperr.Internal("failed to update application", err)
			}
		}
		return s.load(ctx, a.ID)
	}
	if err := rbac.CheckPermission(string(c.Role), rbac.PermissionApplicationWithdraw); err != nil {
		return nil, apperr.Forbidden("%s", err.Error())
	}
	return s.transition(ctx, a, model.ApplicationWithdrawn)
}

func (s *Service) decide(ctx context.Context, c caller.Caller, a *model.Application, patch model.ApplicationPatch) (*model.Application, error) {
	if patch.HasFieldChanges() {
		return nil, apperr.Forbidden("companies cannot edit application details")
	}
	if patch.Status == nil {
		return nil, apperr.Validation("status is required")
	}
	to := *patch.Status
	if to != model.ApplicationAccepted && to != model.ApplicationRejected {
		return nil, apperr.InvalidTransition("companies can only accept or reject an application")
	}
	if err := rbac.CheckPermission(string(c.Role), rbac.PermissionApplicationDecide); err != nil {
		return nil, apperr.Forbidden("%s", err.Error())
	}
	return s.transition(ctx, a, to)
}

func (s *Service) transition(ctx context.Context, a *model.Application, to model.ApplicationStatus) (*model.Application, error) {
	updated, err := s.store.TransitionApplication(ctx, a.ID, model.ApplicationPending, to)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, apperr.Conflict("application is no longer pending")
		}
		return nil, apperr.Internal("failed to update application status", err)
	}

	metrics.IncrementApplicationTransition(string(to))
	logger.WithTrace(ctx, s.logger).Info("Application status changed",
		zap.String("application_id", a.ID),
		zap.String("from", string(model.ApplicationPending)),
		zap.String("to", string(to)),
	)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, c caller.Caller, id string) error {
	a, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !isApplicant(c, a) || rbac.CheckPermission(string(c.Role), rbac.PermissionApplicationDelete) != nil {
		return apperr.Forbidden("only the applicant can delete an application")
	}
	if a.Status == model.ApplicationAccepted {
		return apperr.InvalidState("accepted applications cannot be deleted")
	}

	if err := s.store.DeleteApplication(ctx, id); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return apperr.InvalidState("accepted applications cannot be deleted")
		}
		return apperr.Internal("failed to delete application", err)
	}
	return nil
}

func (s *Service) load(ctx context.Context, id string) (*model.Application, error) {
	a, err := s.store.GetApplication(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("application not found")
	}
	if err != nil {
		return nil, apperr.Internal("failed to load application", err)
	}
	return a, nil
}

func isApplicant(c caller.Caller, a *model.Application) bool {
	return c.IsResearcher() && a.ResearcherID == c.ResearcherID
}

func isOwner(c caller.Caller, a *model.Application) bool {
	return c.IsCompany() && a.CompanyID == c.CompanyID
}
