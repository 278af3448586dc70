package model

import (
	"encoding/json"
	"strings"
	"time"
)

type Review struct {
	ID            string      `json:"id"`
	ApplicationID string      `json:"application_id"`
	ReviewerID    string      `json:"reviewer_id"`
	RevieweeID    string      `json:"reviewee_id"`
	Rating        int         `json:"rating"`
	Comment       *string     `json:"comment"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
	Reviewer      Participant `json:"reviewer,omitempty"`
	Reviewee      Participant `json:"reviewee,omitempty"`
	ProjectTitle  string      `json:"project_title,omitempty"`
}

type NewReview struct {
	ApplicationID string  `json:"application_id"`
	RevieweeID    string  `json:"reviewee_id"`
	Rating        int     `json:"rating"`
	Comment       *string `json:"comment"`
}

type ReviewPatch struct {
	Rating  *int    `json:"rating"`
	Comment *string `json:"comment"`
}

type ReviewFilter struct {
	RevieweeID    string
	ApplicationID string
}

// Participant is one side of an engagement as shown on a review. It is
// either a CompanyParticipant or a ResearcherParticipant.
type Participant interface {
	ParticipantRole() Role
	DisplayName() string
	isParticipant()
}

type CompanyParticipant struct {
	UserID      string
	CompanyName string
	LogoURL     *string
}

func (CompanyParticipant) ParticipantRole() Role { return RoleCompany }
func (p CompanyParticipant) DisplayName() string { return p.CompanyName }
func (CompanyParticipant) isParticipant()        {}

func (p CompanyParticipant) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Role        Role    `json:"role"`
		UserID      string  `json:"user_id"`
		DisplayName string  `json:"display_name"`
		CompanyName string  `json:"company_name"`
		LogoURL     *string `json:"logo_url"`
	}{RoleCompany, p.UserID, p.DisplayName(), p.CompanyName, p.LogoURL})
}

type ResearcherParticipant struct {
	UserID    string
	FirstName string
	LastName  string
	AvatarURL *string
}

func (ResearcherParticipant) ParticipantRole() Role { return RoleResearcher }

func (p ResearcherParticipant) DisplayName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

func (ResearcherParticipant) isParticipant() {}

func (p ResearcherParticipant) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Role        Role    `json:"role"`
		UserID      string  `json:"user_id"`
		DisplayName string  `json:"display_name"`
		FirstName   string  `json:"first_name"`
		LastName    string  `json:"last_name"`
		AvatarURL   *string `json:"avatar_url"`
	}{RoleResearcher, p.UserID, p.DisplayName(), p.FirstName, p.LastName, p.AvatarURL})
}
