package access

import (
	"fmt"
	"strings"
)

// Scope 行政范围
// SubdivisionCode 为 nil 表示全部 RT（RW 级及提升角色）
type Scope struct {
	SubdivisionCode *string `json:"subdivision_code"`
}

// AllSubdivisions 不限 RT
func AllSubdivisions() Scope { return Scope{} }

// SubdivisionScope 限定到单个 RT
func SubdivisionScope(code string) Scope {
	c := strings.TrimSpace(code)
	return Scope{SubdivisionCode: &c}
}

// IsRestricted reports whether queries must be constrained to one subdivision.
func (s Scope) IsRestricted() bool { return s.SubdivisionCode != nil }

// Allows reports whether a row belonging to subdivision is inside the scope.
func (s Scope) Allows(subdivision string) bool {
	if s.SubdivisionCode == nil {
		return true
	}
	return strings.TrimSpace(subdivision) == *s.SubdivisionCode
}

func (s Scope) String() string {
	if s.SubdivisionCode == nil {
		return "all"
	}
	return "rt:" + *s.SubdivisionCode
}

// ApplySubdivisionFilter 将 RT 过滤条件追加到 SQL 查询
// scope 不受限时不修改 query/args
//
// 示例:
//   - scope = all:  不追加条件
//   - scope = "02": WHERE p.subdivision = $1
func ApplySubdivisionFilter(query *string, args *[]any, scope Scope, tableAlias string, isFirstCondition bool) {
	if !scope.IsRestricted() {
		return
	}
	*args = append(*args, *scope.SubdivisionCode)
	column := "subdivision"
	if tableAlias != "" {
		column = tableAlias + ".subdivision"
	}
	condition := fmt.Sprintf(`%s = $%d`, column, len(*args))
	if isFirstCondition {
		*query += ` WHERE ` + condition
	} else {
		*query += ` AND ` + condition
	}
}

// Principal 当前请求的调用者（每次请求从 admin_roles 重新解析，不信任客户端传值）
type Principal struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Role        Role   `json:"role"`
	Scope       Scope  `json:"scope"`
}

// NewPrincipal derives the scope from the role: organization-wide roles ignore the stored
// subdivision code, every other role must carry one.
func NewPrincipal(userID, displayName string, role Role, subdivisionCode *string) (*Principal, error) {
	p := &Principal{UserID: userID, DisplayName: displayName, Role: role}
	if role.SeesAllSubdivisions() {
		p.Scope = AllSubdivisions()
		return p, nil
	}
	if subdivisionCode == nil || strings.TrimSpace(*subdivisionCode) == "" {
		return nil, fmt.Errorf("role %q requires a subdivision code", role)
	}
	p.Scope = SubdivisionScope(*subdivisionCode)
	return p, nil
}
