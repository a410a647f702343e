package access

import "strings"

// Role 管理员角色（封闭集合）
type Role string

const (
	RoleTopLevelCoordinator    Role = "top-level-coordinator"   // Ketua RW
	RoleSubdivisionCoordinator Role = "subdivision-coordinator" // Ketua RT
	RoleSecretary              Role = "secretary"               // Sekretaris
	RoleTreasurer              Role = "treasurer"               // Bendahara

	// 提升角色：绕过权限矩阵
	RoleSuperAdministrator Role = "super-administrator"
	RolePlatformDeveloper  Role = "platform-developer"
)

// AllRoles lists every role in the closed set.
var AllRoles = []Role{
	RoleTopLevelCoordinator,
	RoleSubdivisionCoordinator,
	RoleSecretary,
	RoleTreasurer,
	RoleSuperAdministrator,
	RolePlatformDeveloper,
}

var roleAliases = map[string]Role{
	"ketua rw":    RoleTopLevelCoordinator,
	"ketua_rw":    RoleTopLevelCoordinator,
	"rw":          RoleTopLevelCoordinator,
	"ketua rt":    RoleSubdivisionCoordinator,
	"ketua_rt":    RoleSubdivisionCoordinator,
	"rt":          RoleSubdivisionCoordinator,
	"sekretaris":  RoleSecretary,
	"bendahara":   RoleTreasurer,
	"superadmin":  RoleSuperAdministrator,
	"super admin": RoleSuperAdministrator,
	"developer":   RolePlatformDeveloper,
	"dev":         RolePlatformDeveloper,
}

// ParseRole normalizes a stored role string. Matching is case-insensitive and accepts the
// legacy labels still present in older admin_roles rows.
func ParseRole(s string) (Role, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	if key == "" {
		return "", false
	}
	for _, r := range AllRoles {
		if string(r) == key {
			return r, true
		}
	}
	r, ok := roleAliases[key]
	return r, ok
}

// IsElevated 是否为提升角色
func (r Role) IsElevated() bool {
	return r == RoleSuperAdministrator || r == RolePlatformDeveloper
}

// SeesAllSubdivisions reports whether the role is organization-wide regardless of the
// subdivision code stored next to it.
func (r Role) SeesAllSubdivisions() bool {
	return r == RoleTopLevelCoordinator || r.IsElevated()
}
