// Package memstore is an in-memory implementation of every repository the
// services depend on. It enforces the same unique keys and conditional
// updates as the PostgreSQL schema and is used by tests and local demos.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"sciencehub/contracts/mq"
	"sciencehub/internal/model"
	"sciencehub/internal/repository"
	"sciencehub/pkg/trace"
)

type readKey struct {
	chatID string
	userID string
}

type Store struct {
	mu sync.RWMutex

	users        map[string]*model.User
	companies    map[string]*model.CompanyProfile
	researchers  map[string]*model.ResearcherProfile
	projects     map[string]*model.Project
	applications map[string]*model.Application
	chats        map[string]*model.Chat
	messages     []model.Message
	reads        map[readKey]time.Time
	reviews      map[string]*model.Review

	accepted []mq.ApplicationAcceptedPayload
	last     time.Time
}

func New() *Store {
	return &Store{
		users:        map[string]*model.User{},
		companies:    map[string]*model.CompanyProfile{},
		researchers:  map[string]*model.ResearcherProfile{},
		projects:     map[string]*model.Project{},
		applications: map[string]*model.Application{},
		chats:        map[string]*model.Chat{},
		reads:        map[readKey]time.Time{},
		reviews:      map[string]*model.Review{},
	}
}

// now returns a strictly increasing timestamp so ordering by time is total.
// Callers hold s.mu.
func (s *Store) now() time.Time {
	t := time.Now().UTC().Truncate(time.Microsecond)
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	return t
}

// AcceptedEvents returns the application.accepted events recorded so far,
// standing in for the outbox table.
func (s *Store) AcceptedEvents() []mq.ApplicationAcceptedPayload {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]mq.ApplicationAcceptedPayload(nil), s.accepted...)
}

// --- profiles ---

func (s *Store) FindProfileRefs(_ context.Context, userID string) (model.ProfileRefs, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return model.ProfileRefs{}, repository.ErrNotFound
	}
	refs := model.ProfileRefs{Role: u.Role}
	if c := s.companyByUser(userID); c != nil {
		refs.CompanyID = c.ID
	}
	if r := s.researcherByUser(userID); r != nil {
		refs.ResearcherID = r.ID
	}
	return refs, nil
}

func (s *Store) GetUser(_ context.Context, userID string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Store) CreateProfile(_ context.Context, userID, email string, role model.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	u, ok := s.users[userID]
	if !ok {
		u = &model.User{ID: userID, Email: email, CreatedAt: now}
		s.users[userID] = u
	}
	if u.Role != "" && u.Role != role {
		return repository.ErrConflict
	}
	u.Role = role
	if email != "" {
		u.Email = email
	}

	switch role {
	case model.RoleCompany:
		if s.companyByUser(userID) == nil {
			id := uuid.NewString()
			s.companies[id] = &model.CompanyProfile{ID: id, UserID: userID, CreatedAt: now, UpdatedAt: now}
		}
	case model.RoleResearcher:
		if s.researcherByUser(userID) == nil {
			id := uuid.NewString()
			s.researchers[id] = &model.ResearcherProfile{ID: id, UserID: userID, Specialization: []string{}, CreatedAt: now, UpdatedAt: now}
		}
	default:
		return fmt.Errorf("unknown role %q", role)
	}
	return nil
}

func (s *Store) GetCompanyProfile(_ context.Context, userID string) (*model.CompanyProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := s.companyByUser(userID)
	if c == nil {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *Store) SaveCompanyProfile(_ context.Context, p *model.CompanyProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.companies[p.ID]
	if !ok {
		return repository.ErrNotFound
	}
	p.UpdatedAt = s.now()
	cp := *p
	cp.UserID, cp.Verified, cp.CreatedAt = existing.UserID, existing.Verified, existing.CreatedAt
	s.companies[p.ID] = &cp
	return nil
}

func (s *Store) GetResearcherProfile(_ context.Context, userID string) (*model.ResearcherProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r := s.researcherByUser(userID)
	if r == nil {
		return nil, repository.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *Store) SaveResearcherProfile(_ context.Context, p *model.ResearcherProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.researchers[p.ID]
	if !ok {
		return repository.ErrNotFound
	}
	p.UpdatedAt = s.now()
	cp := *p
	cp.UserID, cp.Verified, cp.CreatedAt = existing.UserID, existing.Verified, existing.CreatedAt
	s.researchers[p.ID] = &cp
	return nil
}

func (s *Store) companyByUser(userID string) *model.CompanyProfile {
	for _, c := range s.companies {
		if c.UserID == userID {
			return c
		}
	}
	return nil
}

func (s *Store) researcherByUser(userID string) *model.ResearcherProfile {
	for _, r := range s.researchers {
		if r.UserID == userID {
			return r
		}
	}
	return nil
}

// --- projects ---

func (s *Store) projectView(p *model.Project) model.Project {
	out := *p
	if c, ok := s.companies[p.CompanyID]; ok {
		out.Company = &model.CompanySummary{CompanyName: c.CompanyName, LogoURL: c.LogoURL, Industry: c.Industry}
	}
	return out
}

func (s *Store) ListProjects(_ context.Context, filter model.ProjectFilter) ([]model.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	projects := []model.Project{}
	for _, p := range s.projects {
		if filter.CompanyID != "" && p.CompanyID != filter.CompanyID {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		projects = append(projects, s.projectView(p))
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].CreatedAt.After(projects[j].CreatedAt) })
	return projects, nil
}

func (s *Store) GetProject(_ context.Context, id string) (*model.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.projects[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := s.projectView(p)
	return &out, nil
}

func (s *Store) CreateProject(_ context.Context, p *model.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.companies[p.CompanyID]; !ok {
		return fmt.Errorf("company %s does not exist", p.CompanyID)
	}
	if _, ok := s.projects[p.ID]; ok {
		return repository.ErrConflict
	}
	p.CreatedAt = s.now()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	cp.Company = nil
	s.projects[p.ID] = &cp
	return nil
}

func (s *Store) UpdateProject(_ context.Context, p *model.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.projects[p.ID]
	if !ok {
		return repository.ErrNotFound
	}
	p.UpdatedAt = s.now()
	cp := *p
	cp.CompanyID, cp.CreatedAt, cp.Company = existing.CompanyID, existing.CreatedAt, nil
	s.projects[p.ID] = &cp
	return nil
}

func (s *Store) DeleteProject(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.projects, id)
	for appID, a := range s.applications {
		if a.ProjectID == id {
			s.deleteApplicationLocked(appID)
		}
	}
	return nil
}

// --- applications ---

func (s *Store) applicationView(a *model.Application) model.Application {
	out := *a
	if p, ok := s.projects[a.ProjectID]; ok {
		out.CompanyID = p.CompanyID
		summary := &model.ProjectSummary{Title: p.Title, BudgetMin: p.BudgetMin, BudgetMax: p.BudgetMax, Deadline: p.Deadline}
		if c, ok := s.companies[p.CompanyID]; ok {
			summary.CompanyName, summary.LogoURL = c.CompanyName, c.LogoURL
		}
		out.Project = summary
	}
	if r, ok := s.researchers[a.ResearcherID]; ok {
		out.Researcher = &model.ResearcherSummary{
			FirstName: r.FirstName, LastName: r.LastName, AvatarURL: r.AvatarURL, Specialization: r.Specialization,
		}
	}
	return out
}

func (s *Store) ListApplications(_ context.Context, filter model.ApplicationFilter) ([]model.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	applications := []model.Application{}
	for _, a := range s.applications {
		view := s.applicationView(a)
		if filter.CompanyID != "" && view.CompanyID != filter.CompanyID {
			continue
		}
		if filter.ResearcherID != "" && a.ResearcherID != filter.ResearcherID {
			continue
		}
		applications = append(applications, view)
	}
	sort.Slice(applications, func(i, j int) bool {
		return applications[i].CreatedAt.After(applications[j].CreatedAt)
	})
	return applications, nil
}

func (s *Store) GetApplication(_ context.Context, id string) (*model.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.applications[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := s.applicationView(a)
	return &out, nil
}

func (s *Store) ApplicationExists(_ context.Context, projectID, researcherID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findApplication(projectID, researcherID) != nil, nil
}

func (s *Store) findApplication(projectID, researcherID string) *model.Application {
	for _, a := range s.applications {
		if a.ProjectID == projectID && a.ResearcherID == researcherID {
			return a
		}
	}
	return nil
}

func (s *Store) CreateApplication(_ context.Context, a *model.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[a.ProjectID]; !ok {
		return fmt.Errorf("project %s does not exist", a.ProjectID)
	}
	if s.findApplication(a.ProjectID, a.ResearcherID) != nil {
		return fmt.Errorf("%w: applications_project_researcher_key", repository.ErrConflict)
	}
	a.CreatedAt = s.now()
	a.UpdatedAt = a.CreatedAt
	cp := *a
	cp.Project, cp.Researcher = nil, nil
	s.applications[a.ID] = &cp
	return nil
}

func (s *Store) UpdateApplicationFields(_ context.Context, a *model.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.applications[a.ID]
	if !ok || existing.Status != model.ApplicationPending {
		return repository.ErrConflict
	}
	existing.CoverLetter = a.CoverLetter
	existing.ProposedTimeline = a.ProposedTimeline
	existing.ProposedBudget = a.ProposedBudget
	existing.UpdatedAt = s.now()
	a.UpdatedAt = existing.UpdatedAt
	return nil
}

func (s *Store) TransitionApplication(ctx context.Context, id string, from, to model.ApplicationStatus) (*model.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.applications[id]
	if !ok || a.Status != from {
		return nil, repository.ErrConflict
	}
	a.Status = to
	a.UpdatedAt = s.now()

	out := s.applicationView(a)
	if to == model.ApplicationAccepted {
		s.accepted = append(s.accepted, mq.ApplicationAcceptedPayload{
			ApplicationID: a.ID,
			ProjectID:     a.ProjectID,
			CompanyID:     out.CompanyID,
			ResearcherID:  a.ResearcherID,
			AcceptedAt:    a.UpdatedAt,
			TraceID:       trace.FromContext(ctx),
		})
	}
	return &out, nil
}

func (s *Store) DeleteApplication(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.applications[id]
	if !ok || a.Status == model.ApplicationAccepted {
		return repository.ErrConflict
	}
	s.deleteApplicationLocked(id)
	return nil
}

func (s *Store) deleteApplicationLocked(id string) {
	delete(s.applications, id)
	for chatID, ch := range s.chats {
		if ch.ApplicationID == id {
			delete(s.chats, chatID)
			s.dropMessages(chatID)
		}
	}
	for reviewID, rv := range s.reviews {
		if rv.ApplicationID == id {
			delete(s.reviews, reviewID)
		}
	}
}

func (s *Store) GetApplicationParties(_ context.Context, id string) (*model.ApplicationParties, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.applications[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	parties := &model.ApplicationParties{ApplicationID: a.ID, Status: a.Status, ProjectID: a.ProjectID}
	if p, ok := s.projects[a.ProjectID]; ok {
		if c, ok := s.companies[p.CompanyID]; ok {
			parties.CompanyUserID = c.UserID
		}
	}
	if r, ok := s.researchers[a.ResearcherID]; ok {
		parties.ResearcherUserID = r.UserID
	}
	return parties, nil
}
