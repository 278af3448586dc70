// Package testutil seeds an in-memory store with ready-to-use callers.
package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"sciencehub/internal/caller"
	"sciencehub/internal/model"
	"sciencehub/internal/repository/memstore"
)

// Company creates a company user with a named profile and returns the caller
// it resolves to.
func Company(t testing.TB, s *memstore.Store, userID, name string) caller.Caller {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.CreateProfile(ctx, userID, userID+"@example.com", model.RoleCompany))

	p, err := s.GetCompanyProfile(ctx, userID)
	require.NoError(t, err)
	p.CompanyName = name
	require.NoError(t, s.SaveCompanyProfile(ctx, p))

	return caller.Caller{UserID: userID, Email: userID + "@example.com", Role: model.RoleCompany, CompanyID: p.ID}
}

// Researcher creates a researcher user with a named profile.
func Researcher(t testing.TB, s *memstore.Store, userID, firstName, lastName string) caller.Caller {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.CreateProfile(ctx, userID, userID+"@example.com", model.RoleResearcher))

	p, err := s.GetResearcherProfile(ctx, userID)
	require.NoError(t, err)
	p.FirstName, p.LastName = firstName, lastName
	require.NoError(t, s.SaveResearcherProfile(ctx, p))

	return caller.Caller{UserID: userID, Email: userID + "@example.com", Role: model.RoleResearcher, ResearcherID: p.ID}
}

// Anonymous is an authenticated user who has not picked a role.
func Anonymous(userID string) caller.Caller {
	return caller.Caller{UserID: userID}
}

func Float(v float64) *float64 { return &v }

func String(v string) *string { return &v }
