// Package caller carries the resolved identity of the current request.
package caller

import (
	"context"

	"sciencehub/internal/model"
)

// Caller is the authenticated user together with the role profile they act
// through. CompanyID is set only for companies with a profile row,
// ResearcherID only for researchers with one.
type Caller struct {
	UserID       string
	Email        string
	Role         model.Role
	CompanyID    string
	ResearcherID string
}

func (c Caller) IsCompany() bool {
	return c.Role == model.RoleCompany && c.CompanyID != ""
}

func (c Caller) IsResearcher() bool {
	return c.Role == model.RoleResearcher && c.ResearcherID != ""
}

type ctxKey struct{}

func WithContext(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

func FromContext(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(ctxKey{}).(Caller)
	return c, ok
}
