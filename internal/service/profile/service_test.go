package profile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sciencehub/internal/apperr"
	"sciencehub/internal/caller"
	"sciencehub/internal/model"
	"sciencehub/internal/repository/memstore"
)

func newService() *Service {
	return NewService(memstore.New(), zap.NewNop())
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	s := newService()

	_, err := s.Resolve(ctx, "", "")
	assert.True(t, apperr.Is(err, apperr.KindUnauthenticated))

	c, err := s.Resolve(ctx, "u1", "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", c.UserID)
	assert.Empty(t, c.Role, "unknown users have no role yet")
	assert.Empty(t, c.CompanyID)

	_, err = s.CreateProfile(ctx, c, model.RoleCompany)
	require.NoError(t, err)

	c, err = s.Resolve(ctx, "u1", "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, model.RoleCompany, c.Role)
	assert.NotEmpty(t, c.CompanyID)
	assert.Empty(t, c.ResearcherID)
}

func TestCreateProfile(t *testing.T) {
	ctx := context.Background()
	s := newService()
	c := caller.Caller{UserID: "u2", Email: "r@example.com"}

	tests := []struct {
		name string
		role model.Role
		kind apperr.Kind
	}{
		{name: "invalid role", role: "admin", kind: apperr.KindValidation},
		{name: "researcher", role: model.RoleResearcher},
		{name: "same role again", role: model.RoleResearcher},
		{name: "role switch", role: model.RoleCompany, kind: apperr.KindConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := s.CreateProfile(ctx, c, tt.role)
			if tt.kind != "" {
				assert.Equal(t, tt.kind, apperr.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.role, p.Role)
			require.NotNil(t, p.Researcher)
			assert.Equal(t, "u2", p.Researcher.UserID)
		})
	}
}

func TestUpdateProfiles(t *testing.T) {
	ctx := context.Background()
	s := newService()

	_, err := s.CreateProfile(ctx, caller.Caller{UserID: "co"}, model.RoleCompany)
	require.NoError(t, err)
	company, err := s.Resolve(ctx, "co", "")
	require.NoError(t, err)

	name := "Acme Labs"
	updated, err := s.UpdateCompanyProfile(ctx, company, model.CompanyProfilePatch{CompanyName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Acme Labs", updated.CompanyName)

	empty := ""
	_, err = s.UpdateCompanyProfile(ctx, company, model.CompanyProfilePatch{CompanyName: &empty})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = s.UpdateResearcherProfile(ctx, company, model.ResearcherProfilePatch{})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	got, err := s.GetProfile(ctx, company)
	require.NoError(t, err)
	require.NotNil(t, got.Company)
	assert.Equal(t, "Acme Labs", got.Company.CompanyName)
	assert.Nil(t, got.Researcher)
}
