package rbac

// 权限常量
const (
	PermissionProjectCreate = "project:create"
	PermissionProjectManage = "project:manage"

	PermissionApplicationCreate   = "application:create"
	PermissionApplicationWithdraw = "application:withdraw"
	PermissionApplicationDecide   = "application:decide"
	PermissionApplicationDelete   = "application:delete"
)

// 角色常量
const (
	RoleCompany    = "company"
	RoleResearcher = "researcher"
)

// 角色权限映射
var rolePermissions = map[string][]string{
	RoleCompany: {
		PermissionProjectCreate,
		PermissionProjectManage,
		PermissionApplicationDecide,
	},
	RoleResearcher: {
		PermissionApplicationCreate,
		PermissionApplicationWithdraw,
		PermissionApplicationDelete,
	},
}

// HasPermission reports whether role grants permission. Unknown or empty
// roles grant nothing.
func HasPermission(role, permission string) bool {
	for _, p := range rolePermissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}

// CheckPermission 检查角色是否有指定权限（返回错误而不是布尔值，便于处理）
func CheckPermission(role, permission string) error {
	if !HasPermission(role, permission) {
		return &PermissionDeniedError{
			Role:       role,
			Permission: permission,
		}
	}
	return nil
}

// PermissionDeniedError 表示权限不足的错误
type PermissionDeniedError struct {
	Role       string
	Permission string
}

func (e *PermissionDeniedError) Error() string {
	return "insufficient permissions: " + e.Permission
}
