package model

import "time"

type ApplicationStatus string

const (
	ApplicationPending   ApplicationStatus = "pending"
	ApplicationAccepted  ApplicationStatus = "accepted"
	ApplicationRejected  ApplicationStatus = "rejected"
	ApplicationWithdrawn ApplicationStatus = "withdrawn"
)

func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationPending, ApplicationAccepted, ApplicationRejected, ApplicationWithdrawn:
		return true
	}
	return false
}

type Application struct {
	ID               string             `json:"id"`
	ProjectID        string             `json:"project_id"`
	ResearcherID     string             `json:"researcher_id"`
	CompanyID        string             `json:"company_id"`
	CoverLetter      string             `json:"cover_letter"`
	ProposedTimeline *string            `json:"proposed_timeline"`
	ProposedBudget   *float64           `json:"proposed_budget"`
	Status           ApplicationStatus  `json:"status"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
	Project          *ProjectSummary    `json:"projects,omitempty"`
	Researcher       *ResearcherSummary `json:"researcher_profiles,omitempty"`
}

type ProjectSummary struct {
	Title       string   `json:"title"`
	BudgetMin   *float64 `json:"budget_min"`
	BudgetMax   *float64 `json:"budget_max"`
	Deadline    *Date    `json:"deadline"`
	CompanyName string   `json:"company_name"`
	LogoURL     *string  `json:"logo_url"`
}

type ResearcherSummary struct {
	FirstName      string   `json:"first_name"`
	LastName       string   `json:"last_name"`
	AvatarURL      *string  `json:"avatar_url"`
	Specialization []string `json:"specialization"`
}

type NewApplication struct {
	ProjectID        string   `json:"project_id"`
	CoverLetter      string   `json:"cover_letter"`
	ProposedTimeline *string  `json:"proposed_timeline"`
	ProposedBudget   *float64 `json:"proposed_budget"`
}

// ApplicationPatch carries a status change or researcher field edits.
// project_id, researcher_id and timestamps are not part of it. The
// proposal fields are cleared by an explicit null.
type ApplicationPatch struct {
	Status           *ApplicationStatus `json:"status"`
	CoverLetter      *string            `json:"cover_letter"`
	ProposedTimeline Nullable[string]   `json:"proposed_timeline"`
	ProposedBudget   Nullable[float64]  `json:"proposed_budget"`
}

func (p ApplicationPatch) HasFieldChanges() bool {
	return p.CoverLetter != nil || p.ProposedTimeline.Set || p.ProposedBudget.Set
}

func (p ApplicationPatch) Apply(a *Application) {
	if p.CoverLetter != nil {
		a.CoverLetter = *p.CoverLetter
	}
	p.ProposedTimeline.ApplyTo(&a.ProposedTimeline)
	p.ProposedBudget.ApplyTo(&a.ProposedBudget)
}

// ApplicationParties identifies the two sides of an application by user id.
type ApplicationParties struct {
	ApplicationID    string
	Status           ApplicationStatus
	ProjectID        string
	CompanyUserID    string
	ResearcherUserID string
}

// ApplicationFilter narrows an application listing to one side.
type ApplicationFilter struct {
	CompanyID    string
	ResearcherID string
}
