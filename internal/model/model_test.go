package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateJSON(t *testing.T) {
	var p NewProject
	require.NoError(t, json.Unmarshal([]byte(`{"title":"x","deadline":"2025-03-01"}`), &p))
	require.NotNil(t, p.Deadline)
	assert.Equal(t, NewDate(2025, time.March, 1), *p.Deadline)

	out, err := json.Marshal(p.Deadline)
	require.NoError(t, err)
	assert.Equal(t, `"2025-03-01"`, string(out))
}

func TestDateAcceptsTimestamp(t *testing.T) {
	var d Date
	require.NoError(t, json.Unmarshal([]byte(`"2025-03-01T10:00:00Z"`), &d))
	assert.Equal(t, "2025-03-01", d.String())
	assert.Error(t, json.Unmarshal([]byte(`"tomorrow"`), &d))
	assert.Error(t, json.Unmarshal([]byte(`20250301`), &d))
}

func TestParticipantJSONCarriesRole(t *testing.T) {
	logo := "https://cdn/acme.png"
	r := Review{
		ID:       "r1",
		Rating:   5,
		Reviewer: CompanyParticipant{UserID: "u1", CompanyName: "Acme", LogoURL: &logo},
		Reviewee: ResearcherParticipant{UserID: "u2", FirstName: "Ada", LastName: "Lovelace"},
	}
	out, err := json.Marshal(r)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &decoded))
	reviewer := decoded["reviewer"].(map[string]interface{})
	reviewee := decoded["reviewee"].(map[string]interface{})
	assert.Equal(t, "company", reviewer["role"])
	assert.Equal(t, "Acme", reviewer["display_name"])
	assert.Equal(t, "researcher", reviewee["role"])
	assert.Equal(t, "Ada Lovelace", reviewee["display_name"])
}

func TestProjectPatchLeavesUnsetFields(t *testing.T) {
	min := 10.0
	p := Project{Title: "old", Description: "keep", BudgetMin: &min, Status: ProjectDraft}
	title := "new"
	status := ProjectPublished
	ProjectPatch{Title: &title, Status: &status}.Apply(&p)

	assert.Equal(t, "new", p.Title)
	assert.Equal(t, "keep", p.Description)
	assert.Equal(t, &min, p.BudgetMin)
	assert.Equal(t, ProjectPublished, p.Status)
}

func TestPatchDistinguishesNullFromAbsent(t *testing.T) {
	min, max := 100.0, 200.0
	day := NewDate(2026, time.March, 1)
	p := Project{Title: "t", BudgetMin: &min, BudgetMax: &max, Deadline: &day}

	var patch ProjectPatch
	require.NoError(t, json.Unmarshal([]byte(`{"budget_max":null,"deadline":"2026-04-01"}`), &patch))
	assert.False(t, patch.BudgetMin.Set)
	assert.True(t, patch.BudgetMax.Set)
	assert.Nil(t, patch.BudgetMax.Value)

	patch.Apply(&p)
	assert.Equal(t, &min, p.BudgetMin)
	assert.Nil(t, p.BudgetMax)
	require.NotNil(t, p.Deadline)
	assert.Equal(t, "2026-04-01", p.Deadline.String())

	var ap ApplicationPatch
	require.NoError(t, json.Unmarshal([]byte(`{"proposed_timeline":null}`), &ap))
	assert.True(t, ap.HasFieldChanges())
	timeline := "two weeks"
	a := Application{ProposedTimeline: &timeline}
	ap.Apply(&a)
	assert.Nil(t, a.ProposedTimeline)

	assert.Error(t, json.Unmarshal([]byte(`{"budget_min":"lots"}`), &patch))
}
