package rbac

// 权限常量
const (
	PermissionClientWrite      = "client:write"
	PermissionProjectWrite     = "project:write"
	PermissionTaskWrite        = "task:write"
	PermissionTaskUpdateStatus = "task:update_status"
	PermissionInvoiceWrite     = "invoice:write"
	PermissionAnalyticsRead    = "analytics:read"
	PermissionReportRead       = "report:read"
	PermissionOutboxReplay     = "outbox:replay"
)

// 角色常量，与 users.role 一致
const (
	RoleAdmin  = "Admin"
	RoleIntern = "Intern"
)

// 角色权限映射；读取实体列表/详情只需登录，不在此列出
var rolePermissions = map[string][]string{
	RoleIntern: {
		PermissionTaskUpdateStatus,
	},
	RoleAdmin: {
		PermissionClientWrite,
		PermissionProjectWrite,
		PermissionTaskWrite,
		PermissionTaskUpdateStatus,
		PermissionInvoiceWrite,
		PermissionAnalyticsRead,
		PermissionReportRead,
		PermissionOutboxReplay,
	},
}

// ValidRole 判断角色是否合法
func ValidRole(role string) bool {
	_, ok := rolePermissions[role]
	return ok
}

// HasPermission 检查角色是否有指定权限
func HasPermission(role string, permission string) bool {
	for _, p := range rolePermissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}

// CheckPermission 同 HasPermission，但返回错误便于处理
func CheckPermission(role string, permission string) error {
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
	return "insufficient permissions"
}
