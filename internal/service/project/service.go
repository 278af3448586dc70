// Package project manages the projects companies post.
package project

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
	"sciencehub/pkg/rbac"
)

type Store interface {
	ListProjects(ctx context.Context, filter model.ProjectFilter) ([]model.Project, error)
	GetProject(ctx context.Context, id string) (*model.Project, error)
	CreateProject(ctx context.Context, p *model.Project) error
	UpdateProject(ctx context.Context, p *model.Project) error
	DeleteProject(ctx context.Context, id string) error
}

type Service struct {
	store  Store
	logger *zap.Logger
}

func NewService(store Store, logger *zap.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// List returns a company's own projects in every status, or the published
// projects for a researcher. Anyone else sees nothing.
func (s *Service) List(ctx context.Context, c caller.Caller) ([]model.Project, error) {
	var filter model.ProjectFilter
	switch {
	case c.IsCompany():
		filter.CompanyID = c.CompanyID
	case c.Role == model.RoleResearcher:
		filter.Status = model.ProjectPublished
	default:
		return []model.Project{}, nil
	}

	projects, err := s.store.ListProjects(ctx, filter)
	if err != nil {
		logger.WithTrace(ctx, s.logger).Error("Failed to list projects", zap.String("user_id", c.UserID), zap.Error(err))
		return nil, apperr.Internal("failed to list projects", err)
	}
	return projects, nil
}

// Get returns any project by id together with its company summary.
func (s *Service) Get(ctx context.Context, id string) (*model.Project, error) {
	p, err := s.store.GetProject(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("project not found")
	}
	if err != nil {
		return nil, apperr.Internal("failed to load project", err)
	}
	return p, nil
}

func (s *Service) Create(ctx context.Context, c caller.Caller, in model.NewProject) (*model.Project, error) {
	if !c.IsCompany() || rbac.CheckPermission(string(c.Role), rbac.PermissionProjectCreate) != nil {
		return nil, apperr.Forbidden("only companies can create projects")
	}

	p := &model.Project{
		ID:             uuid.NewString(),
		CompanyID:      c.CompanyID,
		Title:          strings.TrimSpace(in.Title),
		Description:    in.Description,
		Requirements:   in.Requirements,
		SkillsRequired: in.SkillsRequired,
		BudgetMin:      in.BudgetMin,
		BudgetMax:      in.BudgetMax,
		Deadline:       in.Deadline,
		Status:         in.Status,
	}
	if p.Status == "" {
		p.Status = model.ProjectDraft
	}
	if p.SkillsRequired == nil {
		p.SkillsRequired = []string{}
	}
	if err := validate(p); err != nil {
		return nil, err
	}

	if err := s.store.CreateProject(ctx, p); err != nil {
		logger.WithTrace(ctx, s.logger).Error("Failed to create project", zap.String("company_id", c.CompanyID), zap.Error(err))
		return nil, apperr.Internal("failed to create project", err)
	}

	logger.WithTrace(ctx, s.logger).Info("Project created",
		zap.String("project_id", p.ID),
		zap.String("company_id", p.CompanyID),
		zap.String("status", string(p.Status)),
	)
	return s.Get(ctx, p.ID)
}

func (s *Service) Update(ctx context.Context, c caller.Caller, id string, patch model.ProjectPatch) (*model.Project, error) {
	p, err := s.owned(ctx, c, id)
	if err != nil {
		return nil, err
	}

	patch.Apply(p)
	p.Title = strings.TrimSpace(p.Title)
	if err := validate(p); err != nil {
		return nil, err
	}

	if err := s.store.UpdateProject(ctx, p); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("project not found")
		}
		return nil, apperr.Internal("failed to update project", err)
	}
	return s.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, c caller.Caller, id string) error {
	if _, err := s.owned(ctx, c, id); err != nil {
		return err
	}
	if err := s.store.DeleteProject(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("project not found")
		}
		return apperr.Internal("failed to delete project", err)
	}
	logger.WithTrace(ctx, s.logger).Info("Project deleted", zap.String("project_id", id), zap.String("company_id", c.CompanyID))
	return nil
}

// owned loads a project and checks that the caller's company owns it.
func (s *Service) owned(ctx context.Context, c caller.Caller, id string) (*model.Project, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.IsCompany() || p.CompanyID != c.CompanyID || rbac.CheckPermission(string(c.Role), rbac.PermissionProjectManage) != nil {
		return nil, apperr.Forbidden("not the owner of this project")
	}
	return p, nil
}

func validate(p *model.Project) error {
	if p.Title == "" {
		return apperr.Validation("title is required")
	}
	if !p.Status.Valid() {
		return apperr.Validation("invalid project status %q", p.Status)
	}
	if p.BudgetMin != nil && *p.BudgetMin < 0 {
		return apperr.Validation("budget_min cannot be negative")
	}
	if p.BudgetMax != nil && *p.BudgetMax < 0 {
		return apperr.Validation("budget_max cannot be negative")
	}
	if p.BudgetMin != nil && p.BudgetMax != nil && *p.BudgetMin > *p.BudgetMax {
		return apperr.Validation("budget_min cannot exceed budget_max")
	}
	return nil
}
