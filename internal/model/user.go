package model

import "time"

type Role string

const (
	RoleCompany    Role = "company"
	RoleResearcher Role = "researcher"
)

func (r Role) Valid() bool {
	return r == RoleCompany || r == RoleResearcher
}

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      Role      `json:"role,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ProfileRefs is what the profile tables know about one user: the chosen
// role and the id of the matching profile row, if any.
type ProfileRefs struct {
	Role         Role
	CompanyID    string
	ResearcherID string
}

type CompanyProfile struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	CompanyName string    `json:"company_name"`
	Description string    `json:"description"`
	Website     *string   `json:"website"`
	Industry    *string   `json:"industry"`
	CompanySize *string   `json:"company_size"`
	Location    *string   `json:"location"`
	LogoURL     *string   `json:"logo_url"`
	Verified    bool      `json:"verified"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ResearcherProfile struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	Bio             string    `json:"bio"`
	Specialization  []string  `json:"specialization"`
	Education       *string   `json:"education"`
	ExperienceYears *int      `json:"experience_years"`
	Location        *string   `json:"location"`
	AvatarURL       *string   `json:"avatar_url"`
	PortfolioURL    *string   `json:"portfolio_url"`
	Verified        bool      `json:"verified"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// CompanyProfilePatch holds the owner-editable company fields. Nil means
// unchanged.
type CompanyProfilePatch struct {
	CompanyName *string `json:"company_name"`
	Description *string `json:"description"`
	Website     *string `json:"website"`
	Industry    *string `json:"industry"`
	CompanySize *string `json:"company_size"`
	Location    *string `json:"location"`
	LogoURL     *string `json:"logo_url"`
}

func (p CompanyProfilePatch) Apply(c *CompanyProfile) {
	if p.CompanyName != nil {
		c.CompanyName = *p.CompanyName
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	if p.Website != nil {
		c.Website = p.Website
	}
	if p.Industry != nil {
		c.Industry = p.Industry
	}
	if p.CompanySize != nil {
		c.CompanySize = p.CompanySize
	}
	if p.Location != nil {
		c.Location = p.Location
	}
	if p.LogoURL != nil {
		c.LogoURL = p.LogoURL
	}
}

type ResearcherProfilePatch struct {
	FirstName       *string   `json:"first_name"`
	LastName        *string   `json:"last_name"`
	Bio             *string   `json:"bio"`
	Specialization  *[]string `json:"specialization"`
	Education       *string   `json:"education"`
	ExperienceYears *int      `json:"experience_years"`
	Location        *string   `json:"location"`
	AvatarURL       *string   `json:"avatar_url"`
	PortfolioURL    *string   `json:"portfolio_url"`
}

func (p ResearcherProfilePatch) Apply(r *ResearcherProfile) {
	if p.FirstName != nil {
		r.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		r.LastName = *p.LastName
	}
	if p.Bio != nil {
		r.Bio = *p.Bio
	}
	if p.Specialization != nil {
		r.Specialization = *p.Specialization
	}
	if p.Education != nil {
		r.Education = p.Education
	}
	if p.ExperienceYears != nil {
		r.ExperienceYears = p.ExperienceYears
	}
	if p.Location != nil {
		r.Location = p.Location
	}
	if p.AvatarURL != nil {
		r.AvatarURL = p.AvatarURL
	}
	if p.PortfolioURL != nil {
		r.PortfolioURL = p.PortfolioURL
	}
}

// Profile is the caller's own profile as returned by GET /profile. Exactly
// one of Company and Researcher is set when Role is.
type Profile struct {
	UserID     string             `json:"user_id"`
	Email      string             `json:"email"`
	Role       Role               `json:"role,omitempty"`
	Company    *CompanyProfile    `json:"company_profile,omitempty"`
	Researcher *ResearcherProfile `json:"researcher_profile,omitempty"`
}
