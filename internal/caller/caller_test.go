package caller

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"sciencehub/internal/model"
)

func TestContextRoundTrip(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := WithContext(context.Background(), Caller{UserID: "u1", Role: model.RoleCompany, CompanyID: "c1"})
	c, ok := FromContext(ctx)
	assert.True(t, ok)
	assert.True(t, c.IsCompany())
	assert.False(t, c.IsResearcher())
}

func TestRoleWithoutProfileIsNotAnEntity(t *testing.T) {
	c := Caller{UserID: "u1", Role: model.RoleResearcher}
	assert.False(t, c.IsResearcher())
}
