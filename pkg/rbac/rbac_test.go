package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckPermission(t *testing.T) {
	tests := []struct {
		role       string
		permission string
		allowed    bool
	}{
		{RoleCompany, PermissionProjectCreate, true},
		{RoleCompany, PermissionApplicationDecide, true},
		{RoleCompany, PermissionApplicationCreate, false},
		{RoleResearcher, PermissionApplicationCreate, true},
		{RoleResearcher, PermissionApplicationWithdraw, true},
		{RoleResearcher, PermissionProjectCreate, false},
		{"", PermissionProjectCreate, false},
		{"admin", PermissionProjectCreate, false},
	}

	for _, tt := range tests {
		err := CheckPermission(tt.role, tt.permission)
		if tt.allowed {
			assert.NoError(t, err, "%s/%s", tt.role, tt.permission)
			continue
		}
		var denied *PermissionDeniedError
		assert.ErrorAs(t, err, &denied, "%s/%s", tt.role, tt.permission)
	}
}
