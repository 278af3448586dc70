package model

import "time"

type ProjectStatus string

const (
	ProjectDraft      ProjectStatus = "draft"
	ProjectPublished  ProjectStatus = "published"
	ProjectInProgress ProjectStatus = "in_progress"
	ProjectCompleted  ProjectStatus = "completed"
	ProjectCancelled  ProjectStatus = "cancelled"
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectDraft, ProjectPublished, ProjectInProgress, ProjectCompleted, ProjectCancelled:
		return true
	}
	return false
}

type Project struct {
	ID             string          `json:"id"`
	CompanyID      string          `json:"company_id"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Requirements   string          `json:"requirements"`
	SkillsRequired []string        `json:"skills_required"`
	BudgetMin      *float64        `json:"budget_min"`
	BudgetMax      *float64        `json:"budget_max"`
	Deadline       *Date           `json:"deadline"`
	Status         ProjectStatus   `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	Company        *CompanySummary `json:"companies,omitempty"`
}

// CompanySummary is the slice of a company profile shown next to its
// projects.
type CompanySummary struct {
	CompanyName string  `json:"company_name"`
	LogoURL     *string `json:"logo_url"`
	Industry    *string `json:"industry,omitempty"`
}

// NewProject is the input for creating a project. Ownership and ids are
// assigned by the service.
type NewProject struct {
	Title          string        `json:"title"`
	Description    string        `json:"description"`
	Requirements   string        `json:"requirements"`
	SkillsRequired []string      `json:"skills_required"`
	BudgetMin      *float64      `json:"budget_min"`
	BudgetMax      *float64      `json:"budget_max"`
	Deadline       *Date         `json:"deadline"`
	Status         ProjectStatus `json:"status"`
}

// ProjectPatch lists the fields an owner may change. Identity and
// ownership columns are deliberately absent. Budgets and deadline are
// cleared by an explicit null.
type ProjectPatch struct {
	Title          *string           `json:"title"`
	Description    *string           `json:"description"`
	Requirements   *string           `json:"requirements"`
	SkillsRequired *[]string         `json:"skills_required"`
	BudgetMin      Nullable[float64] `json:"budget_min"`
	BudgetMax      Nullable[float64] `json:"budget_max"`
	Deadline       Nullable[Date]    `json:"deadline"`
	Status         *ProjectStatus    `json:"status"`
}

func (p ProjectPatch) Apply(pr *Project) {
	if p.Title != nil {
		pr.Title = *p.Title
	}
	if p.Description != nil {
		pr.Description = *p.Description
	}
	if p.Requirements != nil {
		pr.Requirements = *p.Requirements
	}
	if p.SkillsRequired != nil {
		pr.SkillsRequired = *p.SkillsRequired
	}
	p.BudgetMin.ApplyTo(&pr.BudgetMin)
	p.BudgetMax.ApplyTo(&pr.BudgetMax)
	p.Deadline.ApplyTo(&pr.Deadline)
	if p.Status != nil {
		pr.Status = *p.Status
	}
}

// ProjectFilter narrows a project listing. Empty fields match everything.
type ProjectFilter struct {
	CompanyID string
	Status    ProjectStatus
}
